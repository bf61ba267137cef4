package core

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// SideEffect classifies a tool by the consequence of invoking it. The
// validator uses this to allow repeated read-only calls with different
// parameters while treating repeated identical mutating calls as unsafe
// duplicates.
type SideEffect int

const (
	// SideEffectReadOnly marks a tool that only reads data.
	SideEffectReadOnly SideEffect = iota
	// SideEffectMutating marks a tool that writes or otherwise changes state.
	// Mutating tools must be designed as idempotent single-unit writes; the
	// engine never spans a transaction across multiple chain entries.
	SideEffectMutating
)

// String returns the string representation of the side effect class.
func (s SideEffect) String() string {
	switch s {
	case SideEffectReadOnly:
		return "read_only"
	case SideEffectMutating:
		return "mutating"
	default:
		return "unknown"
	}
}

// NextAction is the steering signal a tool attaches to its result. The
// builder uses it to decide whether to keep planning, hand a question back to
// the user, finish, or abort.
type NextAction string

const (
	// NextContinue asks the builder to plan another step.
	NextContinue NextAction = "continue"
	// NextClarificationNeeded ends the chain and surfaces a question to the user.
	NextClarificationNeeded NextAction = "clarification_needed"
	// NextComplete ends the chain successfully; the result data is the answer.
	NextComplete NextAction = "complete"
	// NextError aborts the chain with a tool execution failure.
	NextError NextAction = "error"
)

// ToolCall is one planned invocation: a tool name plus its arguments.
// Produced by the planner and validated before execution.
type ToolCall struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Key returns a canonical identity for the call (tool plus arguments) used
// for exact-duplicate detection. encoding/json sorts map keys, so two calls
// with equal arguments always produce the same key.
func (c ToolCall) Key() string {
	raw, err := json.Marshal(c.Arguments)
	if err != nil {
		raw = []byte(fmt.Sprintf("%v", c.Arguments))
	}

	return c.Tool + "(" + string(raw) + ")"
}

// Equal reports whether two calls target the same tool with the same arguments.
func (c ToolCall) Equal(other ToolCall) bool {
	return c.Tool == other.Tool && c.Key() == other.Key()
}

// ToolResult is the uniform outcome of a tool invocation.
//
// InstructionForPlanner is the primary steering signal for the next planning
// round. SourceID and SourceLabel are attached by the executor at production
// time for fan-out sub-results and must never be reconstructed from the
// position of a result after failed siblings have been filtered out.
type ToolResult struct {
	Success               bool         `json:"success"`
	Data                  any          `json:"data,omitempty"`
	NextAction            NextAction   `json:"next_action"`
	InstructionForPlanner string       `json:"instruction_for_planner,omitempty"`
	Confidence            float64      `json:"confidence,omitempty"` // in [0,1]
	SourceID              string       `json:"source_id,omitempty"`
	SourceLabel           string       `json:"source_label,omitempty"`
	Error                 string       `json:"error,omitempty"`
	SubResults            []ToolResult `json:"sub_results,omitempty"` // fan-out only, in request order
}

// IsFanOut reports whether the result carries per-partition sub-results.
func (r ToolResult) IsFanOut() bool { return len(r.SubResults) > 0 }

// FailedResult builds a failed ToolResult that asks the planner to re-plan
// around the failure rather than aborting the whole chain.
func FailedResult(err error, instruction string) ToolResult {
	return ToolResult{
		Success:               false,
		NextAction:            NextContinue,
		InstructionForPlanner: instruction,
		Error:                 err.Error(),
	}
}

// Partition identifies one independent unit of data (for example a single
// conversation) processed separately during fan-out. The label travels with
// every sub-result produced for the partition.
type Partition struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// NewID generates a new unique identifier for invocations and tool calls.
func NewID() string {
	return uuid.NewString()
}

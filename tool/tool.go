// Package tool implements the capability subsystem: a static registry of
// invocable backend operations with schema validated arguments, a declared
// side-effect class and consistent error handling. Everything outside the
// engine is consumed through this narrow contract.
package tool

import (
	"fmt"

	"github.com/hupe1980/chainmesh/core"
)

// Tool is one registered, independently invocable backend capability.
//
// Tool implementations should:
//   - Provide clear, descriptive names (snake_case recommended)
//   - Define proper JSON schema for parameters
//   - Declare SideEffectMutating for anything that writes; mutating tools
//     must be idempotent single-unit writes
//   - Be thread-safe if used concurrently
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what this tool does.
	// It is handed to the planner to help it decide when to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	// The registry validates arguments against it before every invocation.
	Parameters() map[string]any

	// SideEffect returns the tool's side-effect class. The validator allows
	// repeated read-only calls with different parameters but treats repeated
	// identical mutating calls as unsafe duplicates.
	SideEffect() core.SideEffect

	// Call executes the tool. Arguments arrive pre-validated against the
	// declared schema; Call must not assume anything beyond that. The
	// returned ToolResult steers the builder via its NextAction and
	// InstructionForPlanner fields.
	Call(toolCtx *core.ToolContext, args map[string]any) (core.ToolResult, error)
}

// PartitionedTool is a tool whose single logical call is executed as N
// independent concurrent sub-invocations, one per partition. The executor
// detects this interface and fans out; one partition's failure never aborts
// its siblings.
type PartitionedTool interface {
	Tool

	// Partitions enumerates the independent data partitions the call
	// distributes over, in the order results must be reported.
	Partitions(toolCtx *core.ToolContext, args map[string]any) ([]core.Partition, error)

	// CallPartition runs the sub-task for one partition. The tool context's
	// Partition() identifies which one. The executor stamps SourceID and
	// SourceLabel onto the returned result; implementations do not need to.
	CallPartition(toolCtx *core.ToolContext, args map[string]any) (core.ToolResult, error)
}

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}

	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}

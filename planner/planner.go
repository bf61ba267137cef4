// Package planner defines the contract for the external collaborator that
// proposes the next tool call given the original request and the chain so
// far. The engine treats the planner as non-deterministic and untrusted: its
// output is parsed strictly, validated structurally, and bounded by the
// builder's round-trip budget.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/chainmesh/core"
)

// Request is the planner's input: the original user request, the chain built
// so far (tool, parameters, abbreviated result and instruction per step) and
// an optional correction hint from the builder's pre-append checks.
type Request struct {
	Original string
	Chain    core.Chain
	Hint     string
}

// Decision is the planner's output: either the next tool call candidate, or a
// "no further action" signal accompanied by a free-text final answer.
type Decision struct {
	Call        *core.ToolCall
	NoAction    bool
	FinalAnswer string
}

// Planner proposes the next step of a chain. Implementations may call out to
// a model (see the openai and anthropic subpackages) or replay a script.
type Planner interface {
	NextStep(ctx context.Context, req Request) (Decision, error)
}

// Func adapts a plain function to the Planner interface.
type Func func(ctx context.Context, req Request) (Decision, error)

// NextStep implements Planner.
func (f Func) NextStep(ctx context.Context, req Request) (Decision, error) {
	return f(ctx, req)
}

// ScriptPlanner replays a fixed list of decisions in order. It records every
// request it sees, which makes correction hints observable in tests. When the
// script is exhausted the last decision repeats, so a script ending in a
// looping decision exercises the builder's termination bounds.
type ScriptPlanner struct {
	mu       sync.Mutex
	steps    []Decision
	next     int
	Requests []Request
}

// NewScriptPlanner builds a planner replaying the given decisions.
func NewScriptPlanner(steps ...Decision) *ScriptPlanner {
	return &ScriptPlanner{steps: steps}
}

// NextStep implements Planner.
func (s *ScriptPlanner) NextStep(_ context.Context, req Request) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.steps) == 0 {
		return Decision{}, fmt.Errorf("script planner has no steps")
	}

	s.Requests = append(s.Requests, req)

	dec := s.steps[s.next]
	if s.next < len(s.steps)-1 {
		s.next++
	}

	return dec, nil
}

// Transcript renders the chain so far as a compact step-by-step log for
// inclusion in a planning prompt: tool, parameters, abbreviated result and
// the instruction the tool left for the planner.
func Transcript(c core.Chain) string {
	if c.Len() == 0 {
		return "(no steps executed yet)"
	}

	var b strings.Builder

	for i, e := range c.Entries {
		args, err := json.Marshal(e.Call.Arguments)
		if err != nil {
			args = []byte("{}")
		}

		fmt.Fprintf(&b, "step %d: %s %s", i+1, e.Call.Tool, args)

		if e.Result != nil {
			fmt.Fprintf(&b, " -> success=%t", e.Result.Success)

			if data := abbreviate(e.Result.Data, 200); data != "" {
				fmt.Fprintf(&b, " data=%s", data)
			}

			if e.Result.Error != "" {
				fmt.Fprintf(&b, " error=%s", e.Result.Error)
			}

			if e.Result.InstructionForPlanner != "" {
				fmt.Fprintf(&b, " instruction=%s", e.Result.InstructionForPlanner)
			}
		}

		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func abbreviate(data any, max int) string {
	if data == nil {
		return ""
	}

	s, ok := data.(string)
	if !ok {
		raw, err := json.Marshal(data)
		if err != nil {
			s = fmt.Sprintf("%v", data)
		} else {
			s = string(raw)
		}
	}

	if len(s) > max {
		return s[:max] + "..."
	}

	return s
}

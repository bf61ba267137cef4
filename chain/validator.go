// Package chain implements the structural heart of the engine: the pure
// Chain Validator and the iterative Chain Builder that consults the planner,
// deduplicates, validates and executes one step at a time under strict
// termination bounds.
package chain

import (
	"fmt"

	"github.com/hupe1980/chainmesh/core"
	"github.com/hupe1980/chainmesh/tool"
)

// DefaultMaxLength bounds a chain when no explicit limit is configured.
const DefaultMaxLength = 12

// ValidatorOptions configure a Validator.
type ValidatorOptions struct {
	// MaxLength caps the number of chain entries. Values < 1 fall back to
	// DefaultMaxLength.
	MaxLength int
}

// Validator is a pure structural check over a proposed ordered list of tool
// calls. It holds no per-request state and is safe for concurrent use.
type Validator struct {
	registry  *tool.Registry
	maxLength int
}

// NewValidator creates a validator bound to a registry.
func NewValidator(registry *tool.Registry, optFns ...func(o *ValidatorOptions)) *Validator {
	opts := ValidatorOptions{MaxLength: DefaultMaxLength}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxLength < 1 {
		opts.MaxLength = DefaultMaxLength
	}

	return &Validator{registry: registry, maxLength: opts.MaxLength}
}

// MaxLength returns the configured chain length cap.
func (v *Validator) MaxLength() int { return v.maxLength }

// Validate checks the chain's structural rules in order:
//
//  1. every tool name is registered
//  2. no two adjacent entries share a tool name, regardless of parameters —
//     the same capability twice in a row signals a stuck planner and is
//     rejected outright
//  3. no entry exactly duplicates an earlier non-adjacent mutating call
//     (an unsafe duplicate write); identical read-only duplicates are not
//     fatal here — the builder skips them silently before they ever land
//  4. the chain does not exceed the configured maximum length
//
// Every violation is reported as *core.ToolSequenceError naming the
// offending position and tool; unknown names carry *core.UnknownToolError
// as their cause.
func (v *Validator) Validate(c core.Chain) error {
	seen := make(map[string]int, c.Len())

	for i, e := range c.Entries {
		t, err := v.registry.Lookup(e.Call.Tool)
		if err != nil {
			return &core.ToolSequenceError{
				Position: i,
				Tool:     e.Call.Tool,
				Reason:   "unknown tool",
				Err:      err,
			}
		}

		if i > 0 && c.Entries[i-1].Call.Tool == e.Call.Tool {
			return &core.ToolSequenceError{
				Position: i,
				Tool:     e.Call.Tool,
				Reason:   "adjacent duplicate tool call",
			}
		}

		key := e.Call.Key()
		if prev, dup := seen[key]; dup && t.SideEffect() == core.SideEffectMutating {
			return &core.ToolSequenceError{
				Position: i,
				Tool:     e.Call.Tool,
				Reason:   fmt.Sprintf("unsafe duplicate of mutating call at position %d", prev),
			}
		}

		seen[key] = i
	}

	if c.Len() > v.maxLength {
		return &core.ToolSequenceError{
			Position: c.Len() - 1,
			Tool:     c.Entries[c.Len()-1].Call.Tool,
			Reason:   fmt.Sprintf("chain exceeds maximum length of %d", v.maxLength),
		}
	}

	return nil
}

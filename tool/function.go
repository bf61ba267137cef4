package tool

import (
	"time"

	"github.com/hupe1980/chainmesh/core"
	"github.com/hupe1980/chainmesh/internal/util"
)

// Func is the signature a plain Go function must satisfy to be exposed as a
// tool. Arguments arrive pre-validated by the registry.
type Func func(toolCtx *core.ToolContext, args map[string]any) (core.ToolResult, error)

// FunctionTool is a generic adapter that exposes a plain Go function as a
// chainmesh tool.
//
// Responsibilities:
//   - Holds a lightweight JSON-Schema-like parameter specification
//   - Declares the side-effect class (read-only by default)
//   - Normalizes error handling so callers receive *ToolError with
//     consistent codes (EXECUTION_ERROR for plain errors, custom codes
//     preserved when the function returns *ToolError directly)
//
// A FunctionTool has no internal mutable state after construction and is
// safe for concurrent use by multiple goroutines.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]any
	sideEffect  core.SideEffect
	fn          Func
}

// Option customizes a FunctionTool at construction time.
type Option func(*FunctionTool)

// WithSideEffect declares the tool's side-effect class. Defaults to read-only.
func WithSideEffect(s core.SideEffect) Option {
	return func(t *FunctionTool) { t.sideEffect = s }
}

// NewFunctionTool constructs a FunctionTool from explicit schema and function.
//
// Example:
//
//	lister := NewFunctionTool(
//	  "list_conversations",
//	  "List the requester's conversations, most recent first",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "limit": map[string]any{"type": "integer"},
//	    },
//	  },
//	  func(tc *core.ToolContext, args map[string]any) (core.ToolResult, error) {
//	    ...
//	  },
//	)
func NewFunctionTool(name, description string, parameters map[string]any, fn Func, opts ...Option) *FunctionTool {
	t := &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		sideEffect:  core.SideEffectReadOnly,
		fn:          fn,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// NewFunctionToolFromStruct derives the parameter schema from a struct using
// reflection. It is a convenience for simple argument containers and produces
// a schema equivalent to util.CreateSchema(structType).
func NewFunctionToolFromStruct(name, description string, structType any, fn Func, opts ...Option) *FunctionTool {
	return NewFunctionTool(name, description, util.CreateSchema(structType), fn, opts...)
}

// Name returns the unique tool name used in planner declarations and routing.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the short natural language description exposed to the planner.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the (minimal) JSON schema describing expected arguments.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// SideEffect returns the declared side-effect class.
func (t *FunctionTool) SideEffect() core.SideEffect { return t.sideEffect }

// Call invokes the underlying function. Failures are wrapped (or passed
// through) as *ToolError for uniform downstream handling.
//
// Error semantics:
//
//	*ToolError (returned directly) -> forwarded unchanged
//	other error                    -> *ToolError{Code: "EXECUTION_ERROR"}
func (t *FunctionTool) Call(toolCtx *core.ToolContext, args map[string]any) (core.ToolResult, error) {
	logger := toolCtx.Logger()
	start := time.Now()

	logger.Debug("tool.call.start", "tool", t.name, "fc_id", toolCtx.FunctionCallID())

	result, err := t.fn(toolCtx, args)
	if err != nil {
		if toolErr, ok := err.(*ToolError); ok { // Already a ToolError -> just log and forward
			logger.Error("tool.call.error", "tool", t.name, "error", toolErr.Message)

			return core.ToolResult{}, toolErr
		}

		logger.Error("tool.call.error", "tool", t.name, "error", err.Error())

		return core.ToolResult{}, &ToolError{
			Tool:    t.name,
			Message: err.Error(),
			Code:    "EXECUTION_ERROR",
		}
	}

	logger.Info("tool.call.success", "tool", t.name, "duration_ms", time.Since(start).Milliseconds())

	return result, nil
}

package chain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/chainmesh/core"
	"github.com/hupe1980/chainmesh/tool"
)

func newTestTool(name string, sideEffect core.SideEffect) tool.Tool {
	return tool.NewFunctionTool(
		name,
		"test tool "+name,
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ *core.ToolContext, _ map[string]any) (core.ToolResult, error) {
			return core.ToolResult{Success: true, NextAction: core.NextContinue}, nil
		},
		tool.WithSideEffect(sideEffect),
	)
}

func newTestRegistry(t *testing.T) *tool.Registry {
	t.Helper()

	registry := tool.NewRegistry()
	registry.MustRegister(
		newTestTool("list_conversations", core.SideEffectReadOnly),
		newTestTool("summarize_conversation", core.SideEffectReadOnly),
		newTestTool("send_message", core.SideEffectMutating),
	)

	return registry
}

func chainOf(calls ...core.ToolCall) core.Chain {
	var c core.Chain
	for _, call := range calls {
		c = c.With(call)
	}

	return c
}

func TestValidatorAcceptsValidChain(t *testing.T) {
	v := NewValidator(newTestRegistry(t))

	c := chainOf(
		core.ToolCall{Tool: "list_conversations"},
		core.ToolCall{Tool: "summarize_conversation", Arguments: map[string]any{"conversation_id": "c-1"}},
	)

	assert.NoError(t, v.Validate(c))
}

func TestValidatorRejectsUnknownTool(t *testing.T) {
	v := NewValidator(newTestRegistry(t))

	err := v.Validate(chainOf(core.ToolCall{Tool: "not_registered"}))
	require.Error(t, err)

	var seqErr *core.ToolSequenceError
	require.True(t, errors.As(err, &seqErr))
	assert.Equal(t, 0, seqErr.Position)
	assert.Equal(t, "not_registered", seqErr.Tool)

	var unknownErr *core.UnknownToolError
	assert.True(t, errors.As(err, &unknownErr))
}

func TestValidatorRejectsAdjacentDuplicate(t *testing.T) {
	v := NewValidator(newTestRegistry(t))

	// Same tool twice in a row is rejected regardless of parameters.
	err := v.Validate(chainOf(
		core.ToolCall{Tool: "list_conversations", Arguments: map[string]any{"limit": 1}},
		core.ToolCall{Tool: "list_conversations", Arguments: map[string]any{"limit": 2}},
	))
	require.Error(t, err)

	var seqErr *core.ToolSequenceError
	require.True(t, errors.As(err, &seqErr))
	assert.Equal(t, 1, seqErr.Position)
	assert.Contains(t, seqErr.Reason, "adjacent duplicate")
}

func TestValidatorDuplicateSideEffectClass(t *testing.T) {
	v := NewValidator(newTestRegistry(t))

	// An identical non-adjacent read-only duplicate is the builder's
	// silent-skip case, not a structural violation.
	readOnly := chainOf(
		core.ToolCall{Tool: "list_conversations", Arguments: map[string]any{"limit": 1}},
		core.ToolCall{Tool: "summarize_conversation"},
		core.ToolCall{Tool: "list_conversations", Arguments: map[string]any{"limit": 1}},
	)
	assert.NoError(t, v.Validate(readOnly))

	// The same shape with a mutating tool is an unsafe duplicate write.
	mutating := chainOf(
		core.ToolCall{Tool: "send_message", Arguments: map[string]any{"text": "hi"}},
		core.ToolCall{Tool: "list_conversations"},
		core.ToolCall{Tool: "send_message", Arguments: map[string]any{"text": "hi"}},
	)

	err := v.Validate(mutating)
	require.Error(t, err)

	var seqErr *core.ToolSequenceError
	require.True(t, errors.As(err, &seqErr))
	assert.Equal(t, 2, seqErr.Position)
	assert.Contains(t, seqErr.Reason, "unsafe duplicate")
}

func TestValidatorRejectsOverLengthChain(t *testing.T) {
	v := NewValidator(newTestRegistry(t), func(o *ValidatorOptions) { o.MaxLength = 3 })

	calls := make([]core.ToolCall, 0, 4)
	for i := 0; i < 4; i++ {
		name := "list_conversations"
		if i%2 == 1 {
			name = "summarize_conversation"
		}

		calls = append(calls, core.ToolCall{Tool: name, Arguments: map[string]any{"i": i}})
	}

	err := v.Validate(chainOf(calls...))
	require.Error(t, err)

	var seqErr *core.ToolSequenceError
	require.True(t, errors.As(err, &seqErr))
	assert.Contains(t, seqErr.Reason, "maximum length")
}

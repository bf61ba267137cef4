package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/chainmesh/logging"
)

func TestNewInvocationContextDefaults(t *testing.T) {
	inv := NewInvocationContext(nil, "user-1", "conv-1", nil)

	require.NotNil(t, inv.Context())
	assert.NotEmpty(t, inv.InvocationID())
	assert.Equal(t, "user-1", inv.RequesterID())
	assert.Equal(t, "conv-1", inv.ConversationID())
	assert.IsType(t, logging.NoOpLogger{}, inv.Logger())

	other := NewInvocationContext(nil, "user-1", "", nil)
	assert.NotEqual(t, inv.InvocationID(), other.InvocationID())
}

func TestToolContextAccessors(t *testing.T) {
	inv := NewInvocationContext(context.Background(), "user-1", "conv-1", nil)
	prior := []ToolResult{{Success: true, Data: "earlier"}}

	tc := NewToolContext(inv, "fc-1", prior)

	assert.Equal(t, inv.InvocationID(), tc.InvocationID())
	assert.Equal(t, "fc-1", tc.FunctionCallID())
	assert.Equal(t, "user-1", tc.RequesterID())
	assert.Equal(t, "conv-1", tc.ConversationID())
	assert.Equal(t, prior, tc.PriorResults())
	assert.Nil(t, tc.Partition())
}

func TestToolContextWithContext(t *testing.T) {
	inv := NewInvocationContext(context.Background(), "user-1", "", nil)
	tc := NewToolContext(inv, "fc-1", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clone := tc.WithContext(ctx)

	assert.Same(t, ctx, clone.Context())
	assert.Equal(t, context.Background(), tc.Context())
	assert.Equal(t, tc.FunctionCallID(), clone.FunctionCallID())
}

func TestToolContextForPartition(t *testing.T) {
	inv := NewInvocationContext(context.Background(), "user-1", "", nil)
	tc := NewToolContext(inv, "fc-1", nil)

	p := Partition{ID: "p-1", Label: "One"}
	clone := tc.ForPartition(p)

	require.NotNil(t, clone.Partition())
	assert.Equal(t, "p-1", clone.Partition().ID)
	assert.Equal(t, "One", clone.Partition().Label)

	// The clone gets its own function call ID; the parent stays unscoped.
	assert.NotEqual(t, tc.FunctionCallID(), clone.FunctionCallID())
	assert.Nil(t, tc.Partition())
}

package executor

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/chainmesh/core"
	"github.com/hupe1980/chainmesh/tool"
)

// partitionedScan fans out over a fixed partition list; behavior per partition
// is scripted through fail and delay.
type partitionedScan struct {
	partitions []core.Partition
	fail       map[string]error         // partition ID -> error to return
	delay      map[string]time.Duration // partition ID -> sleep before answering
	partsErr   error
}

func (s *partitionedScan) Name() string        { return "scan_conversations" }
func (s *partitionedScan) Description() string { return "scans each conversation independently" }

func (s *partitionedScan) Parameters() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

func (s *partitionedScan) SideEffect() core.SideEffect { return core.SideEffectReadOnly }

func (s *partitionedScan) Call(_ *core.ToolContext, _ map[string]any) (core.ToolResult, error) {
	return core.ToolResult{}, tool.NewToolError(s.Name(), "partitioned tool invoked sequentially", "EXECUTION_ERROR")
}

func (s *partitionedScan) Partitions(_ *core.ToolContext, _ map[string]any) ([]core.Partition, error) {
	if s.partsErr != nil {
		return nil, s.partsErr
	}

	return s.partitions, nil
}

func (s *partitionedScan) CallPartition(toolCtx *core.ToolContext, _ map[string]any) (core.ToolResult, error) {
	p := toolCtx.Partition()

	if d, ok := s.delay[p.ID]; ok {
		time.Sleep(d)
	}

	if err, ok := s.fail[p.ID]; ok {
		return core.ToolResult{}, err
	}

	return core.ToolResult{
		Success:    true,
		Data:       fmt.Sprintf("finding from %s", p.Label),
		NextAction: core.NextComplete,
		Confidence: 0.8,
	}, nil
}

func threePartitions() []core.Partition {
	return []core.Partition{
		{ID: "p-1", Label: "One"},
		{ID: "p-2", Label: "Two"},
		{ID: "p-3", Label: "Three"},
	}
}

func registryWith(t *testing.T, pt tool.Tool) *tool.Registry {
	t.Helper()

	registry := tool.NewRegistry()
	registry.MustRegister(pt)

	return registry
}

func TestFanOutStampsAttributionOnEverySubResult(t *testing.T) {
	scan := &partitionedScan{
		partitions: threePartitions(),
		fail:       map[string]error{"p-2": errors.New("store unavailable")},
	}

	x := New(registryWith(t, scan))

	res, err := x.Execute(newInvCtx(), core.Chain{}, core.ToolCall{Tool: "scan_conversations"})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.True(t, res.IsFanOut())
	require.Len(t, res.SubResults, 3)

	// Every sub-result carries its own partition's identity, failed or not;
	// the surviving results keep their labels at the original indices.
	assert.Equal(t, "One", res.SubResults[0].SourceLabel)
	assert.True(t, res.SubResults[0].Success)
	assert.Equal(t, "p-2", res.SubResults[1].SourceID)
	assert.False(t, res.SubResults[1].Success)
	assert.Equal(t, "Three", res.SubResults[2].SourceLabel)
	assert.Equal(t, "finding from Three", res.SubResults[2].Data)

	assert.Contains(t, res.InstructionForPlanner, "2 of 3 partitions succeeded")
	assert.InDelta(t, 0.8, res.Confidence, 1e-9)
	assert.Equal(t, core.NextComplete, res.NextAction)
}

func TestFanOutPreservesRequestOrder(t *testing.T) {
	// The first partition answers last; results still come back in
	// enumeration order, not completion order.
	scan := &partitionedScan{
		partitions: threePartitions(),
		delay: map[string]time.Duration{
			"p-1": 40 * time.Millisecond,
			"p-2": 20 * time.Millisecond,
		},
	}

	x := New(registryWith(t, scan), func(o *Options) { o.MaxParallel = 3 })

	res, err := x.Execute(newInvCtx(), core.Chain{}, core.ToolCall{Tool: "scan_conversations"})
	require.NoError(t, err)

	require.Len(t, res.SubResults, 3)

	for i, want := range []string{"p-1", "p-2", "p-3"} {
		assert.Equal(t, want, res.SubResults[i].SourceID)
	}
}

func TestFanOutAllPartitionsFailed(t *testing.T) {
	scan := &partitionedScan{
		partitions: threePartitions(),
		fail: map[string]error{
			"p-1": errors.New("down"),
			"p-2": errors.New("down"),
			"p-3": errors.New("down"),
		},
	}

	x := New(registryWith(t, scan))

	res, err := x.Execute(newInvCtx(), core.Chain{}, core.ToolCall{Tool: "scan_conversations"})
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, "all partitions failed", res.Error)
	assert.Len(t, res.SubResults, 3)
	assert.Equal(t, core.NextContinue, res.NextAction)
}

func TestFanOutNoPartitions(t *testing.T) {
	scan := &partitionedScan{partitions: nil}

	x := New(registryWith(t, scan))

	res, err := x.Execute(newInvCtx(), core.Chain{}, core.ToolCall{Tool: "scan_conversations"})
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Contains(t, res.InstructionForPlanner, "nothing to distribute over")
}

func TestFanOutPartitionEnumerationError(t *testing.T) {
	scan := &partitionedScan{partsErr: errors.New("directory unreachable")}

	x := New(registryWith(t, scan))

	res, err := x.Execute(newInvCtx(), core.Chain{}, core.ToolCall{Tool: "scan_conversations"})
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Contains(t, res.InstructionForPlanner, "could not enumerate")
}

func TestFanOutPartialSuccessContinues(t *testing.T) {
	// A successful sub-result that is not complete keeps the combined result
	// on continue so the builder plans another step.
	scan := &continueScan{partitions: threePartitions()}

	x := New(registryWith(t, scan))

	res, err := x.Execute(newInvCtx(), core.Chain{}, core.ToolCall{Tool: "scan_conversations"})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, core.NextContinue, res.NextAction)
}

// continueScan succeeds on every partition but never signals completion.
type continueScan struct {
	partitions []core.Partition
}

func (s *continueScan) Name() string        { return "scan_conversations" }
func (s *continueScan) Description() string { return "scans without completing" }

func (s *continueScan) Parameters() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

func (s *continueScan) SideEffect() core.SideEffect { return core.SideEffectReadOnly }

func (s *continueScan) Call(_ *core.ToolContext, _ map[string]any) (core.ToolResult, error) {
	return core.ToolResult{}, tool.NewToolError(s.Name(), "partitioned tool invoked sequentially", "EXECUTION_ERROR")
}

func (s *continueScan) Partitions(_ *core.ToolContext, _ map[string]any) ([]core.Partition, error) {
	return s.partitions, nil
}

func (s *continueScan) CallPartition(_ *core.ToolContext, _ map[string]any) (core.ToolResult, error) {
	return core.ToolResult{Success: true, NextAction: core.NextContinue}, nil
}

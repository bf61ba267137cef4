package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/chainmesh/core"
)

func TestParseDecisionToolCall(t *testing.T) {
	dec, err := ParseDecision(`{"tool": "list_conversations", "parameters": {"limit": 5}}`)
	require.NoError(t, err)

	require.NotNil(t, dec.Call)
	assert.Equal(t, "list_conversations", dec.Call.Tool)
	assert.Equal(t, float64(5), dec.Call.Arguments["limit"])
	assert.False(t, dec.NoAction)
}

func TestParseDecisionFencedJSON(t *testing.T) {
	raw := "```json\n{\"tool\": \"summarize_conversation\", \"parameters\": {\"conversation_id\": \"c-1\"}}\n```"

	dec, err := ParseDecision(raw)
	require.NoError(t, err)

	require.NotNil(t, dec.Call)
	assert.Equal(t, "summarize_conversation", dec.Call.Tool)
}

func TestParseDecisionJSONEmbeddedInProse(t *testing.T) {
	raw := `Sure, the next step is {"tool": "echo", "parameters": {"text": "a {brace} inside"}} as requested.`

	dec, err := ParseDecision(raw)
	require.NoError(t, err)

	require.NotNil(t, dec.Call)
	assert.Equal(t, "echo", dec.Call.Tool)
	assert.Equal(t, "a {brace} inside", dec.Call.Arguments["text"])
}

func TestParseDecisionDone(t *testing.T) {
	dec, err := ParseDecision(`{"done": true, "final_answer": "Alice is coming."}`)
	require.NoError(t, err)

	assert.True(t, dec.NoAction)
	assert.Nil(t, dec.Call)
	assert.Equal(t, "Alice is coming.", dec.FinalAnswer)
}

func TestParseDecisionNoActionPhrase(t *testing.T) {
	dec, err := ParseDecision("There is no further action required; the summary above covers everything.")
	require.NoError(t, err)

	assert.True(t, dec.NoAction)
}

func TestParseDecisionGarbage(t *testing.T) {
	_, err := ParseDecision("lorem ipsum dolor sit amet")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnparsableDecision))
}

func TestParseDecisionEmptyObject(t *testing.T) {
	_, err := ParseDecision(`{"parameters": {"x": 1}}`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnparsableDecision))
}

func TestScriptPlannerRepeatsLastStep(t *testing.T) {
	p := NewScriptPlanner(
		Decision{Call: &core.ToolCall{Tool: "a"}},
		Decision{Call: &core.ToolCall{Tool: "b"}},
	)

	for _, want := range []string{"a", "b", "b", "b"} {
		dec, err := p.NextStep(context.Background(), Request{Original: "q"})
		require.NoError(t, err)
		assert.Equal(t, want, dec.Call.Tool)
	}

	assert.Len(t, p.Requests, 4)
}

func TestTranscript(t *testing.T) {
	assert.Equal(t, "(no steps executed yet)", Transcript(core.Chain{}))

	var c core.Chain
	c = c.With(core.ToolCall{Tool: "list_conversations", Arguments: map[string]any{"limit": 2}})
	c.Entries[0].Result = &core.ToolResult{
		Success:               true,
		Data:                  []string{"c-1", "c-2"},
		InstructionForPlanner: "summarize c-1 next",
	}
	c = c.With(core.ToolCall{Tool: "summarize_conversation", Arguments: map[string]any{"conversation_id": "c-1"}})

	out := Transcript(c)

	assert.Contains(t, out, `step 1: list_conversations {"limit":2}`)
	assert.Contains(t, out, "success=true")
	assert.Contains(t, out, `data=["c-1","c-2"]`)
	assert.Contains(t, out, "instruction=summarize c-1 next")

	// The second entry has not executed yet; only its call is rendered.
	assert.Contains(t, out, "step 2: summarize_conversation")
	assert.NotContains(t, out, "step 2: summarize_conversation {\"conversation_id\":\"c-1\"} ->")
}

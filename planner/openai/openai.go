// Package openai provides a planner implementation backed by the OpenAI Chat
// Completions API with native function/tool calling. It declares the
// registry's tool descriptors to the model and converts the reply into a
// planner.Decision, falling back to strict text parsing when the model
// answers in prose instead of a tool call.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"

	"github.com/hupe1980/chainmesh/core"
	"github.com/hupe1980/chainmesh/planner"
	"github.com/hupe1980/chainmesh/tool"
)

const systemPrompt = `You plan the next backend tool call for a user request.
Rules:
- Call at most one tool per turn.
- Never call the same tool twice in a row.
- Never repeat a (tool, parameters) pair you already used.
- When the request is satisfied, do not call a tool; reply with JSON:
  {"done": true, "final_answer": "<your answer>"}`

// Options configure the OpenAI planner adapter. Fields mirror a subset of
// Chat Completion parameters intentionally kept minimal; extend via
// functional options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Planner wraps the OpenAI Chat Completions API behind the planner.Planner interface.
type Planner struct {
	client *openai.Client
	tools  []tool.Descriptor
	opts   Options
}

// NewPlanner creates a new OpenAI planner using the official client.
func NewPlanner(registry *tool.Registry, optFns ...func(o *Options)) *Planner {
	client := openai.NewClient()
	return NewPlannerFromClient(&client, registry, optFns...)
}

// NewPlannerFromClient creates a new OpenAI planner from an existing client.
func NewPlannerFromClient(client *openai.Client, registry *tool.Registry, optFns ...func(o *Options)) *Planner {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.2,
		MaxCompletionTokens: 1024,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Planner{client: client, tools: registry.Descriptors(), opts: opts}
}

// NextStep implements planner.Planner. A native tool call in the reply maps
// directly to a ToolCall candidate; a plain text reply goes through
// planner.ParseDecision so a verbose completion statement still terminates
// the chain gracefully.
func (p *Planner) NextStep(ctx context.Context, req planner.Request) (planner.Decision, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt(req)),
		},
		Model:               p.opts.Model,
		Temperature:         openai.Float(p.opts.Temperature),
		MaxCompletionTokens: openai.Int(p.opts.MaxCompletionTokens),
		Tools:               p.buildTools(),
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return planner.Decision{}, fmt.Errorf("openai api error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return planner.Decision{}, fmt.Errorf("openai: no choices returned")
	}

	msg := resp.Choices[0].Message

	if len(msg.ToolCalls) > 0 {
		tc := msg.ToolCalls[0]

		var args map[string]any
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return planner.Decision{}, fmt.Errorf("openai: unmarshal tool call arguments: %w", err)
			}
		}

		return planner.Decision{Call: &core.ToolCall{Tool: tc.Function.Name, Arguments: args}}, nil
	}

	return planner.ParseDecision(msg.Content)
}

// buildTools assembles OpenAI tool definitions from the registry descriptors.
func (p *Planner) buildTools() []openai.ChatCompletionToolParam {
	tools := make([]openai.ChatCompletionToolParam, len(p.tools))
	for i, d := range p.tools {
		tools[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        d.Name,
				Description: openai.String(d.Description),
				Parameters:  d.Parameters,
			},
		}
	}

	return tools
}

func userPrompt(req planner.Request) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Request: %s\n\nSteps so far:\n%s", req.Original, planner.Transcript(req.Chain))

	if req.Hint != "" {
		fmt.Fprintf(&b, "\n\nCorrection: %s", req.Hint)
	}

	return b.String()
}

// Package anthropic provides a planner implementation backed by the
// Anthropic Messages API with tool_use blocks.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

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

// Options configure the Anthropic planner adapter (model id, temperature,
// max tokens, API key). Extend via functional options to preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Planner wraps the Anthropic Messages API behind the planner.Planner interface.
type Planner struct {
	client *anthropic.Client
	tools  []tool.Descriptor
	opts   Options
}

// NewPlanner creates a new Anthropic planner using the official client.
func NewPlanner(registry *tool.Registry, optFns ...func(o *Options)) *Planner {
	opts := defaultOptions()

	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Planner{client: &client, tools: registry.Descriptors(), opts: opts}
}

// NewPlannerFromClient creates a new Anthropic planner from an existing client.
func NewPlannerFromClient(client *anthropic.Client, registry *tool.Registry, optFns ...func(o *Options)) *Planner {
	opts := defaultOptions()

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Planner{client: client, tools: registry.Descriptors(), opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.2,
		MaxTokens:   1024,
	}
}

// NextStep implements planner.Planner. A tool_use block in the reply maps
// directly to a ToolCall candidate; otherwise the accumulated text goes
// through planner.ParseDecision.
func (p *Planner) NextStep(ctx context.Context, req planner.Request) (planner.Decision, error) {
	params := anthropic.MessageNewParams{
		Model:       p.opts.Model,
		MaxTokens:   p.opts.MaxTokens,
		Temperature: anthropic.Float(p.opts.Temperature),
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt(req))),
		},
		Tools: p.buildTools(),
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return planner.Decision{}, fmt.Errorf("anthropic api error: %w", err)
	}

	var text strings.Builder

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.AsText().Text)
		case "tool_use":
			toolBlock := block.AsToolUse()

			var args map[string]any
			if toolBlock.Input != nil {
				raw, merr := json.Marshal(toolBlock.Input)
				if merr != nil {
					return planner.Decision{}, fmt.Errorf("anthropic: marshal tool input: %w", merr)
				}

				if uerr := json.Unmarshal(raw, &args); uerr != nil {
					return planner.Decision{}, fmt.Errorf("anthropic: unmarshal tool input: %w", uerr)
				}
			}

			return planner.Decision{Call: &core.ToolCall{Tool: toolBlock.Name, Arguments: args}}, nil
		}
	}

	return planner.ParseDecision(text.String())
}

// buildTools converts registry descriptors to the Anthropic tool format.
func (p *Planner) buildTools() []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, len(p.tools))

	for i, d := range p.tools {
		inputSchema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}

		if d.Parameters != nil {
			if properties, exists := d.Parameters["properties"]; exists {
				inputSchema.Properties = properties
			}

			inputSchema.Required = requiredStrings(d.Parameters["required"])
		}

		tools[i] = anthropic.ToolUnionParamOfTool(inputSchema, d.Name)
	}

	return tools
}

// requiredStrings normalizes the schema "required" entry, which may be
// []string when authored in Go or []any when decoded from JSON.
func requiredStrings(required any) []string {
	switch req := required.(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}

		return out
	default:
		return nil
	}
}

func userPrompt(req planner.Request) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Request: %s\n\nSteps so far:\n%s", req.Original, planner.Transcript(req.Chain))

	if req.Hint != "" {
		fmt.Fprintf(&b, "\n\nCorrection: %s", req.Hint)
	}

	return b.String()
}

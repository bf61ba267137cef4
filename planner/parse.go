package planner

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/chainmesh/core"
)

// ErrUnparsableDecision is returned when a planner reply is neither valid
// structured output nor a recognizable "no further action" statement.
var ErrUnparsableDecision = errors.New("unparsable planner decision")

// decisionWire mirrors the JSON object model-backed planners are instructed
// to emit when they do not use native tool calling.
type decisionWire struct {
	Tool        string         `json:"tool,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Done        bool           `json:"done,omitempty"`
	FinalAnswer string         `json:"final_answer,omitempty"`
}

// noActionPhrases are checked before declaring a hard parse error so a
// verbose model reply that clearly means "stop" degrades gracefully into a
// completed chain instead of crashing the request.
var noActionPhrases = []string{
	"no further action",
	"no action needed",
	"no action required",
	"no more tools",
	"nothing further",
}

// ParseDecision parses a raw planner reply using strict parse-then-validate
// semantics: first structured JSON (optionally fenced or embedded in prose),
// then explicit no-action phrasing, and only then a hard error.
func ParseDecision(raw string) (Decision, error) {
	text := strings.TrimSpace(stripFences(raw))

	if candidate, ok := extractJSONObject(text); ok {
		var wire decisionWire
		if err := json.Unmarshal([]byte(candidate), &wire); err == nil {
			return fromWire(wire, text)
		}
	}

	lower := strings.ToLower(text)
	for _, phrase := range noActionPhrases {
		if strings.Contains(lower, phrase) {
			return Decision{NoAction: true, FinalAnswer: text}, nil
		}
	}

	return Decision{}, fmt.Errorf("%w: %s", ErrUnparsableDecision, snippet(text, 120))
}

func fromWire(wire decisionWire, text string) (Decision, error) {
	if wire.Tool != "" {
		return Decision{Call: &core.ToolCall{Tool: wire.Tool, Arguments: wire.Parameters}}, nil
	}

	if wire.Done || wire.FinalAnswer != "" {
		answer := wire.FinalAnswer
		if answer == "" {
			answer = text
		}

		return Decision{NoAction: true, FinalAnswer: answer}, nil
	}

	return Decision{}, fmt.Errorf("%w: JSON object names no tool and no final answer", ErrUnparsableDecision)
}

// stripFences removes a surrounding markdown code fence, if present.
func stripFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}

	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")

	return strings.TrimSpace(trimmed)
}

// extractJSONObject finds the first balanced top-level {...} block in the
// text, allowing planners to wrap structured output in prose.
func extractJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		ch := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}

			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	return "", false
}

func snippet(s string, max int) string {
	if len(s) > max {
		return s[:max] + "..."
	}

	return s
}

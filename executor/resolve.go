package executor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hupe1980/chainmesh/core"
)

// Parameter values may reference prior results instead of carrying literals:
//
//	"$prev"    resolves to the previous entry's result data
//	"$step.N"  resolves to entry N's result data (0-based)
//
// References are resolved recursively through nested maps and slices. An
// unresolvable reference fails the entry's execution.
func resolveReferences(args map[string]any, c core.Chain) (map[string]any, error) {
	if len(args) == 0 {
		return map[string]any{}, nil
	}

	resolved, err := resolveValue(args, c)
	if err != nil {
		return nil, err
	}

	return resolved.(map[string]any), nil
}

func resolveValue(v any, c core.Chain) (any, error) {
	switch val := v.(type) {
	case string:
		return resolveString(val, c)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, nested := range val {
			resolved, err := resolveValue(nested, c)
			if err != nil {
				return nil, err
			}

			out[k] = resolved
		}

		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, nested := range val {
			resolved, err := resolveValue(nested, c)
			if err != nil {
				return nil, err
			}

			out[i] = resolved
		}

		return out, nil
	default:
		return v, nil
	}
}

func resolveString(s string, c core.Chain) (any, error) {
	switch {
	case s == "$prev":
		last := c.Last()
		if last == nil || last.Result == nil {
			return nil, fmt.Errorf(`"$prev" referenced but no prior step has executed`)
		}

		return last.Result.Data, nil
	case strings.HasPrefix(s, "$step."):
		idx, err := strconv.Atoi(strings.TrimPrefix(s, "$step."))
		if err != nil {
			return nil, fmt.Errorf("invalid step reference %q", s)
		}

		if idx < 0 || idx >= c.Len() {
			return nil, fmt.Errorf("step reference %q out of range for chain of length %d", s, c.Len())
		}

		entry := c.Entries[idx]
		if entry.Result == nil {
			return nil, fmt.Errorf("step reference %q targets an unexecuted entry", s)
		}

		return entry.Result.Data, nil
	default:
		return s, nil
	}
}

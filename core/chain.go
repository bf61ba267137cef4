package core

// Entry is one chain position: the planned call plus, once executed, its result.
type Entry struct {
	Call   ToolCall    `json:"call"`
	Result *ToolResult `json:"result,omitempty"`
}

// Chain is the ordered sequence of tool calls planned and executed to satisfy
// one request. It is a plain value threaded explicitly through the builder,
// executor and aggregator; each request owns its own instance and nothing is
// shared between concurrent requests.
//
// Invariants maintained by the validator and builder:
//   - no two adjacent entries share a tool name
//   - length never exceeds the configured maximum
type Chain struct {
	Entries []Entry `json:"entries"`
}

// Len returns the number of entries appended so far.
func (c Chain) Len() int { return len(c.Entries) }

// Last returns the most recent entry, or nil for an empty chain.
func (c Chain) Last() *Entry {
	if len(c.Entries) == 0 {
		return nil
	}

	return &c.Entries[len(c.Entries)-1]
}

// LastTool returns the tool name of the most recent entry, or "" for an
// empty chain. Used by the builder's adjacency pre-check.
func (c Chain) LastTool() string {
	if last := c.Last(); last != nil {
		return last.Call.Tool
	}

	return ""
}

// IndexOf returns the position of the first entry exactly matching the call
// (tool plus arguments), or -1 if absent.
func (c Chain) IndexOf(call ToolCall) int {
	key := call.Key()
	for i, e := range c.Entries {
		if e.Call.Tool == call.Tool && e.Call.Key() == key {
			return i
		}
	}

	return -1
}

// Contains reports whether an exact (tool, arguments) duplicate of the call
// is already present anywhere in the chain.
func (c Chain) Contains(call ToolCall) bool { return c.IndexOf(call) >= 0 }

// With returns a copy of the chain extended by one not-yet-executed call.
// The entry slice is copied so the original chain value stays untouched if
// validation rejects the extension.
func (c Chain) With(call ToolCall) Chain {
	entries := make([]Entry, len(c.Entries), len(c.Entries)+1)
	copy(entries, c.Entries)

	return Chain{Entries: append(entries, Entry{Call: call})}
}

// Results returns the executed results in chain order. Entries that have not
// been executed yet are skipped.
func (c Chain) Results() []ToolResult {
	results := make([]ToolResult, 0, len(c.Entries))
	for _, e := range c.Entries {
		if e.Result != nil {
			results = append(results, *e.Result)
		}
	}

	return results
}

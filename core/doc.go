// Package core provides the foundational domain types and execution contexts
// used by chainmesh. It defines the core abstractions for:
//
//   - ToolCall / ToolResult (the uniform input/output shape of every tool)
//   - Chain (the ordered, validated sequence of calls answering one request)
//   - Partition (one independent unit of data processed during fan-out)
//   - AggregatedAnswer (per-source findings with preserved attribution)
//   - InvocationContext / ToolContext (scoped execution & tool sandboxing)
//   - The engine-wide error taxonomy
//
// The package intentionally keeps implementation concerns (registry, planning,
// execution, aggregation) out of scope so each stays free of cyclic
// dependencies and the Chain can be threaded through them as a plain value.
package core

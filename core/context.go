package core

import (
	"context"

	"github.com/hupe1980/chainmesh/logging"
)

// InvocationContext carries request-scoped data through one chain run: the
// caller identity, an optional conversation scope, the request context and
// the logger. Each user request owns an independent instance; the tool
// registry is the only process-wide shared state.
type InvocationContext struct {
	ctx            context.Context
	invocationID   string
	requesterID    string
	conversationID string
	logger         logging.Logger
}

// NewInvocationContext creates a request-scoped context with a fresh
// invocation ID. A nil logger falls back to logging.NoOpLogger.
func NewInvocationContext(ctx context.Context, requesterID, conversationID string, logger logging.Logger) *InvocationContext {
	if ctx == nil {
		ctx = context.Background()
	}

	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	return &InvocationContext{
		ctx:            ctx,
		invocationID:   NewID(),
		requesterID:    requesterID,
		conversationID: conversationID,
		logger:         logger,
	}
}

// Context returns the request context used for cancellation.
func (ic *InvocationContext) Context() context.Context { return ic.ctx }

// InvocationID returns the unique identifier of this chain run.
func (ic *InvocationContext) InvocationID() string { return ic.invocationID }

// RequesterID returns the identity of the caller.
func (ic *InvocationContext) RequesterID() string { return ic.requesterID }

// ConversationID returns the conversation scope of the request, if any.
func (ic *InvocationContext) ConversationID() string { return ic.conversationID }

// Logger returns the logger associated with this invocation.
func (ic *InvocationContext) Logger() logging.Logger { return ic.logger }

// ToolContext is the constrained surface handed to tool implementations. It
// exposes the caller identity, prior chain results and, during fan-out, the
// partition this sub-invocation is scoped to.
type ToolContext struct {
	inv            *InvocationContext
	ctx            context.Context // may carry a per-invocation timeout
	functionCallID string
	priorResults   []ToolResult
	partition      *Partition
}

// NewToolContext constructs a tool context bound to a parent invocation and
// unique functionCallID. priorResults are the executed results of the chain
// so far, in order.
func NewToolContext(inv *InvocationContext, functionCallID string, priorResults []ToolResult) *ToolContext {
	return &ToolContext{
		inv:            inv,
		ctx:            inv.Context(),
		functionCallID: functionCallID,
		priorResults:   priorResults,
	}
}

// Context returns the context associated with the tool invocation.
func (tc *ToolContext) Context() context.Context { return tc.ctx }

// Logger returns the logger associated with the tool invocation.
func (tc *ToolContext) Logger() logging.Logger { return tc.inv.Logger() }

// InvocationID returns the chain run identifier.
func (tc *ToolContext) InvocationID() string { return tc.inv.InvocationID() }

// FunctionCallID returns the unique identifier of this tool invocation.
func (tc *ToolContext) FunctionCallID() string { return tc.functionCallID }

// RequesterID returns the identity of the caller.
func (tc *ToolContext) RequesterID() string { return tc.inv.RequesterID() }

// ConversationID returns the conversation scope of the request, if any.
func (tc *ToolContext) ConversationID() string { return tc.inv.ConversationID() }

// PriorResults returns the executed results of the chain so far, in order.
func (tc *ToolContext) PriorResults() []ToolResult { return tc.priorResults }

// Partition returns the partition this sub-invocation is scoped to, or nil
// outside fan-out execution.
func (tc *ToolContext) Partition() *Partition { return tc.partition }

// WithContext returns a clone bound to ctx, used by the executor to apply
// per-invocation timeouts without mutating the parent context.
func (tc *ToolContext) WithContext(ctx context.Context) *ToolContext {
	clone := *tc
	clone.ctx = ctx

	return &clone
}

// ForPartition returns a clone scoped to one partition with a fresh function
// call ID. Side effects performed through the clone must stay within the
// partition's own data.
func (tc *ToolContext) ForPartition(p Partition) *ToolContext {
	clone := *tc
	clone.partition = &p
	clone.functionCallID = NewID()

	return &clone
}

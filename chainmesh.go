// Package chainmesh provides a high-level façade over the chain building,
// execution and aggregation components, enabling a conversational agent to
// satisfy a request spanning multiple independent backend tools. Most
// applications interact with this package by:
//  1. Building a tool.Registry and registering tools at startup
//  2. Picking a planner (planner/openai, planner/anthropic, or a custom one)
//  3. Creating a ChainMesh via New() and calling Handle() per request
//
// The façade wires the validator, builder, executor and aggregator together
// while keeping setup concise. All defaults are safe for local development
// and testing; production deployments typically supply a structured logger
// and per-invocation timeouts.
package chainmesh

import (
	"context"
	"time"

	"github.com/hupe1980/chainmesh/aggregate"
	"github.com/hupe1980/chainmesh/chain"
	"github.com/hupe1980/chainmesh/core"
	"github.com/hupe1980/chainmesh/executor"
	"github.com/hupe1980/chainmesh/logging"
	"github.com/hupe1980/chainmesh/planner"
	"github.com/hupe1980/chainmesh/tool"
)

// Options configure a ChainMesh instance.
type Options struct {
	// MaxChainLength caps the number of entries per chain. Values < 1 fall
	// back to chain.DefaultMaxLength.
	MaxChainLength int

	// MaxPlannerRounds caps total planner round-trips per request. Values
	// < 1 fall back to 3 x MaxChainLength.
	MaxPlannerRounds int

	// ToolTimeout bounds each tool invocation (each partition during
	// fan-out). Zero disables the bound.
	ToolTimeout time.Duration

	// MaxParallel bounds concurrent partition sub-tasks during fan-out.
	MaxParallel int

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// ChainMesh is the high-level façade aggregating the engine components.
type ChainMesh struct {
	registry   *tool.Registry
	builder    *chain.Builder
	aggregator *aggregate.Aggregator
	logger     logging.Logger
}

// New creates a ChainMesh from a populated registry and a planner, with
// optional overrides.
func New(registry *tool.Registry, p planner.Planner, optFns ...func(o *Options)) *ChainMesh {
	opts := Options{Logger: logging.NoOpLogger{}}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	validator := chain.NewValidator(registry, func(o *chain.ValidatorOptions) {
		o.MaxLength = opts.MaxChainLength
	})

	exec := executor.New(registry, func(o *executor.Options) {
		o.Timeout = opts.ToolTimeout
		o.MaxParallel = opts.MaxParallel
		o.Logger = opts.Logger
	})

	builder := chain.NewBuilder(p, validator, exec, func(o *chain.BuilderOptions) {
		o.MaxRounds = opts.MaxPlannerRounds
		o.Logger = opts.Logger
	})

	return &ChainMesh{
		registry:   registry,
		builder:    builder,
		aggregator: aggregate.New(func(o *aggregate.Options) { o.Logger = opts.Logger }),
		logger:     opts.Logger,
	}
}

// Request is one user request handed to the engine.
type Request struct {
	RequesterID    string
	ConversationID string // optional conversation scope
	Text           string
}

// Outcome is the caller-facing batch result: either a success carrying the
// answer (and per-source findings after fan-out), or a failure carrying a
// diagnostic code plus a generic user-facing message. No streaming or
// partial protocol is exposed.
type Outcome struct {
	Success bool

	// Answer is the final free-text answer, when the chain completed.
	Answer string
	// Data is the last tool result's raw data, for presentation layers that
	// render structured output.
	Data any
	// PerSource carries attributed per-partition findings after fan-out.
	PerSource []core.SourceAnswer
	// Clarification is a question for the user; set instead of Answer when
	// the chain ended asking for clarification.
	Clarification string

	// ErrorKind is the internal diagnostic code on failure (core.Kind*).
	ErrorKind string
	// Message is the generic user-facing failure message.
	Message string

	// Chain is the executed chain, for diagnostics and presentation.
	Chain core.Chain
}

// userFacingFailure deliberately says nothing about internals; ErrorKind
// carries the diagnostic code.
const userFacingFailure = "Sorry, the request could not be completed."

// Handle runs one request's chain to completion and returns the batch
// outcome. The chain, its results and contexts are request-scoped and
// discarded afterwards; concurrent calls are independent.
func (m *ChainMesh) Handle(ctx context.Context, req Request) Outcome {
	invCtx := core.NewInvocationContext(ctx, req.RequesterID, req.ConversationID, m.logger)

	m.logger.Info("chainmesh.request.start",
		"invocation_id", invCtx.InvocationID(),
		"requester_id", req.RequesterID,
	)

	res, err := m.builder.Build(invCtx, req.Text)
	if err != nil {
		kind := core.KindOf(err)

		m.logger.Error("chainmesh.request.failed",
			"invocation_id", invCtx.InvocationID(),
			"error_kind", kind,
			"error", err.Error(),
		)

		return Outcome{
			Success:   false,
			ErrorKind: kind,
			Message:   userFacingFailure,
			Chain:     res.Chain,
		}
	}

	if res.Clarification != "" {
		return Outcome{
			Success:       true,
			Clarification: res.Clarification,
			Chain:         res.Chain,
		}
	}

	outcome := Outcome{
		Success: true,
		Answer:  res.FinalAnswer,
		Chain:   res.Chain,
	}

	if res.LastResult != nil {
		outcome.Data = res.LastResult.Data

		if res.LastResult.IsFanOut() {
			answer, aggErr := m.aggregator.Aggregate(res.LastResult.SubResults, req.Text)
			if aggErr != nil {
				return Outcome{
					Success:   false,
					ErrorKind: core.KindOf(aggErr),
					Message:   userFacingFailure,
					Chain:     res.Chain,
				}
			}

			outcome.PerSource = answer.PerSource
		}
	}

	m.logger.Info("chainmesh.request.complete",
		"invocation_id", invCtx.InvocationID(),
		"chain_len", res.Chain.Len(),
		"sources", len(outcome.PerSource),
	)

	return outcome
}

// Registry exposes the tool registry, the only process-wide shared state.
func (m *ChainMesh) Registry() *tool.Registry { return m.registry }

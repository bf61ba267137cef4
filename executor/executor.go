// Package executor runs validated chain entries: it resolves parameter
// references to prior results, invokes the registry with a per-invocation
// timeout and panic isolation, and fans a partitioned call out across its
// partitions concurrently without losing source attribution.
package executor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/hupe1980/chainmesh/core"
	"github.com/hupe1980/chainmesh/logging"
	"github.com/hupe1980/chainmesh/tool"
)

// Options configure an Executor.
type Options struct {
	// Timeout bounds each tool invocation (each partition during fan-out).
	// Exceeding it counts as that tool's or partition's failure only.
	// Zero disables the bound.
	Timeout time.Duration
	// MaxParallel bounds concurrent partition sub-tasks during fan-out.
	// Values < 1 mean one goroutine per partition.
	MaxParallel int
	Logger      logging.Logger
}

// Executor executes chain entries in order. It holds no per-request state;
// the chain travels through Execute as a plain value.
type Executor struct {
	registry    *tool.Registry
	timeout     time.Duration
	maxParallel int
	logger      logging.Logger
}

// New creates an executor bound to a registry.
func New(registry *tool.Registry, optFns ...func(o *Options)) *Executor {
	opts := Options{Logger: logging.NoOpLogger{}}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Executor{
		registry:    registry,
		timeout:     opts.Timeout,
		maxParallel: opts.MaxParallel,
		logger:      opts.Logger,
	}
}

// Execute runs one call against the chain built so far. Tools implementing
// tool.PartitionedTool fan out; everything else is a single sequential
// invocation whose result flows to the next planning step.
//
// Recoverable failures (unresolvable references, rejected parameters, tool
// errors, timeouts, panics) come back as a failed ToolResult so the builder
// can re-plan around them; only infrastructure-level problems (an
// unregistered tool slipping past validation) surface as an error.
func (e *Executor) Execute(invCtx *core.InvocationContext, c core.Chain, call core.ToolCall) (core.ToolResult, error) {
	args, err := resolveReferences(call.Arguments, c)
	if err != nil {
		e.logger.Warn("executor.resolve.failed", "tool", call.Tool, "error", err.Error())

		return core.FailedResult(err, fmt.Sprintf("a parameter reference could not be resolved (%v); re-plan with literal parameters", err)), nil
	}

	t, err := e.registry.Lookup(call.Tool)
	if err != nil {
		return core.ToolResult{}, err
	}

	toolCtx := core.NewToolContext(invCtx, core.NewID(), c.Results())

	if pt, ok := t.(tool.PartitionedTool); ok {
		return e.fanOut(toolCtx, pt, args)
	}

	start := time.Now()

	res := e.runGuarded(toolCtx, call.Tool, func(tctx *core.ToolContext) (core.ToolResult, error) {
		return e.registry.Invoke(tctx, call.Tool, args)
	})

	logging.LogToolCall(e.logger, call.Tool, time.Since(start), res.Success, resultError(res))

	return res, nil
}

// runGuarded invokes fn with the configured timeout and panic isolation,
// always producing a ToolResult. A lingering invocation is abandoned on
// timeout and its result discarded.
func (e *Executor) runGuarded(toolCtx *core.ToolContext, name string, fn func(tctx *core.ToolContext) (core.ToolResult, error)) core.ToolResult {
	ctx := toolCtx.Context()

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	tctx := toolCtx.WithContext(ctx)
	resCh := make(chan core.ToolResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("executor.tool.panic", "tool", name, "recover", fmt.Sprintf("%v", r), "stack", string(debug.Stack()))

				resCh <- core.FailedResult(
					fmt.Errorf("tool %q panicked", name),
					"the tool crashed; re-plan without it or with different parameters",
				)
			}
		}()

		res, err := fn(tctx)
		if err != nil {
			resCh <- failedFromError(name, err)
			return
		}

		resCh <- res
	}()

	select {
	case res := <-resCh:
		return res
	case <-ctx.Done():
		err := ctx.Err()
		e.logger.Warn("executor.tool.timeout", "tool", name, "error", err.Error())

		return core.FailedResult(
			fmt.Errorf("tool %q: %w", name, err),
			"the tool did not respond in time; re-plan or report the failure",
		)
	}
}

// failedFromError converts an invocation error into a recoverable failed
// result carrying an instruction the planner can act on.
func failedFromError(name string, err error) core.ToolResult {
	var paramErr *core.ParameterValidationError
	if errors.As(err, &paramErr) {
		return core.FailedResult(err, fmt.Sprintf("the parameters for %q were rejected (%v); correct them and try again", name, paramErr.Err))
	}

	return core.FailedResult(
		&core.ToolExecutionError{Tool: name, Err: err},
		fmt.Sprintf("tool %q failed (%v); re-plan around the failure or report it", name, err),
	)
}

func resultError(res core.ToolResult) error {
	if res.Error == "" {
		return nil
	}

	return errors.New(res.Error)
}

package chain

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hupe1980/chainmesh/core"
	"github.com/hupe1980/chainmesh/logging"
	"github.com/hupe1980/chainmesh/planner"
)

// State enumerates the builder's state machine. The loop moves
// PLANNING -> VALIDATING -> EXECUTING per step and exits to DONE or FAILED.
type State int

const (
	// StatePlanning is asking the planner for the next call.
	StatePlanning State = iota
	// StateValidating is running the structural validator on the tentative chain.
	StateValidating
	// StateExecuting is delegating the newly appended entry to the executor.
	StateExecuting
	// StateDone is the terminal success state (complete or clarification).
	StateDone
	// StateFailed is the terminal failure state.
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StatePlanning:
		return "PLANNING"
	case StateValidating:
		return "VALIDATING"
	case StateExecuting:
		return "EXECUTING"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Executor runs one validated call against the chain built so far and returns
// its result. Implemented by executor.Executor; abstracted here so builder
// tests can count and script executions.
type Executor interface {
	Execute(invCtx *core.InvocationContext, c core.Chain, call core.ToolCall) (core.ToolResult, error)
}

// BuilderOptions configure a Builder.
type BuilderOptions struct {
	// MaxRounds caps total planner round-trips to guarantee termination even
	// if the planner never signals completion. Values < 1 fall back to
	// 3 x the validator's maximum chain length.
	MaxRounds int
	Logger    logging.Logger
}

// Builder is the iterative loop consulting the planner for the next tool
// call, deduplicating and validating before appending, and executing each
// entry immediately so the next planning step sees the freshest result. It
// holds no per-request state; a fresh Chain value is threaded through every
// Build call.
type Builder struct {
	planner   planner.Planner
	validator *Validator
	executor  Executor
	maxRounds int
	logger    logging.Logger
}

// NewBuilder wires a builder from its collaborators.
func NewBuilder(p planner.Planner, v *Validator, x Executor, optFns ...func(o *BuilderOptions)) *Builder {
	opts := BuilderOptions{Logger: logging.NoOpLogger{}}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxRounds < 1 {
		opts.MaxRounds = 3 * v.MaxLength()
	}

	return &Builder{
		planner:   p,
		validator: v,
		executor:  x,
		maxRounds: opts.MaxRounds,
		logger:    opts.Logger,
	}
}

// Result is the outcome of one Build run.
type Result struct {
	Chain         core.Chain
	State         State // StateDone or StateFailed
	FinalAnswer   string
	Clarification string // set when the chain ended asking the user a question
	LastResult    *core.ToolResult
}

// Build runs the planning loop for one request.
//
// Per iteration: ask the planner for the next call (or a no-further-action
// signal); skip exact duplicates silently and re-prompt; reject a candidate
// matching the immediately preceding tool with an explicit correction hint
// (looping, not forgetfulness); validate the tentative chain — a structural
// violation is fatal; then execute the appended entry immediately so the
// planner sees its result, including InstructionForPlanner, on the next
// round.
//
// Exits DONE when a result's NextAction is complete or clarification_needed,
// FAILED on a fatal validation error, a result signaling error, or an
// exhausted round-trip budget.
func (b *Builder) Build(invCtx *core.InvocationContext, original string) (Result, error) {
	var c core.Chain

	hint := ""

	for round := 0; round < b.maxRounds; round++ {
		select {
		case <-invCtx.Context().Done():
			return Result{Chain: c, State: StateFailed}, invCtx.Context().Err()
		default:
		}

		b.logger.Debug("chain.build.round",
			"invocation_id", invCtx.InvocationID(),
			"round", round,
			"state", StatePlanning.String(),
			"chain_len", c.Len(),
		)

		dec, err := b.planner.NextStep(invCtx.Context(), planner.Request{Original: original, Chain: c, Hint: hint})
		if err != nil {
			return Result{Chain: c, State: StateFailed}, fmt.Errorf("planner failed: %w", err)
		}

		if dec.NoAction {
			return Result{
				Chain:       c,
				State:       StateDone,
				FinalAnswer: finalAnswer(dec.FinalAnswer, c),
				LastResult:  lastResult(c),
			}, nil
		}

		if dec.Call == nil {
			return Result{Chain: c, State: StateFailed},
				fmt.Errorf("planner returned neither a tool call nor a completion signal")
		}

		call := *dec.Call

		// Pre-append check (a): exact (tool, parameters) duplicate anywhere
		// in the chain. Skipped silently; the planner forgot, it is not stuck.
		if c.Contains(call) {
			b.logger.Debug("chain.build.duplicate_skipped", "tool", call.Tool, "round", round)

			hint = fmt.Sprintf("you already called %s earlier in this chain; use its recorded result instead of repeating it", call.Key())

			continue
		}

		// Pre-append check (b): candidate repeats the immediately preceding
		// tool. This signals looping and gets a distinct correction hint.
		if c.LastTool() == call.Tool {
			b.logger.Warn("chain.build.adjacent_rejected", "tool", call.Tool, "round", round)

			hint = fmt.Sprintf("tool %q was used in the immediately preceding step; calling the same tool twice in a row is never valid - pick a different tool or signal completion", call.Tool)

			continue
		}

		tentative := c.With(call)
		if err := b.validator.Validate(tentative); err != nil {
			b.logger.Error("chain.build.validation_failed",
				"invocation_id", invCtx.InvocationID(),
				"tool", call.Tool,
				"error", err.Error(),
			)

			return Result{Chain: c, State: StateFailed}, err
		}

		res, err := b.executor.Execute(invCtx, c, call)
		if err != nil {
			return Result{Chain: c, State: StateFailed}, err
		}

		c = tentative
		c.Entries[c.Len()-1].Result = &res
		hint = ""

		b.logger.Info("chain.build.step",
			"invocation_id", invCtx.InvocationID(),
			"tool", call.Tool,
			"position", c.Len()-1,
			"success", res.Success,
			"next_action", string(res.NextAction),
		)

		switch res.NextAction {
		case core.NextComplete:
			return Result{Chain: c, State: StateDone, FinalAnswer: answerText(res), LastResult: &res}, nil
		case core.NextClarificationNeeded:
			question := res.InstructionForPlanner
			if question == "" {
				question = answerText(res)
			}

			return Result{Chain: c, State: StateDone, Clarification: question, LastResult: &res}, nil
		case core.NextError:
			msg := res.Error
			if msg == "" {
				msg = "tool signaled a fatal error"
			}

			return Result{Chain: c, State: StateFailed, LastResult: &res},
				&core.ToolExecutionError{Tool: call.Tool, Err: errors.New(msg)}
		default:
			// continue: plan the next step
		}
	}

	return Result{Chain: c, State: StateFailed}, &core.ToolSequenceError{
		Position: c.Len(),
		Reason:   fmt.Sprintf("planner round-trip budget of %d exhausted without completion", b.maxRounds),
	}
}

// finalAnswer prefers the planner's free-text answer, then the data of the
// last executed result.
func finalAnswer(answer string, c core.Chain) string {
	if answer != "" {
		return answer
	}

	if last := lastResult(c); last != nil {
		return answerText(*last)
	}

	return ""
}

func lastResult(c core.Chain) *core.ToolResult {
	if last := c.Last(); last != nil {
		return last.Result
	}

	return nil
}

// answerText renders a result's data as the user-facing answer string.
func answerText(res core.ToolResult) string {
	switch data := res.Data.(type) {
	case nil:
		return res.InstructionForPlanner
	case string:
		return data
	default:
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Sprintf("%v", data)
		}

		return string(raw)
	}
}

package core

import (
	"context"
	"errors"
	"fmt"
)

// UnknownToolError indicates a call referenced a tool name that is not
// registered.
type UnknownToolError struct {
	Tool string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Tool)
}

// ParameterValidationError indicates arguments that violate the tool's
// declared parameter schema. Checked once, at the registry boundary.
type ParameterValidationError struct {
	Tool string
	Err  error
}

func (e *ParameterValidationError) Error() string {
	return fmt.Sprintf("invalid parameters for tool %q: %v", e.Tool, e.Err)
}

func (e *ParameterValidationError) Unwrap() error { return e.Err }

// ToolSequenceError indicates a structural chain violation: an unknown tool,
// an adjacent duplicate, an unsafe duplicate mutating call, an over-length
// chain or an exhausted planner round-trip budget. Always fatal for the
// request.
type ToolSequenceError struct {
	Position int    // offending chain position (0-based)
	Tool     string // offending tool name, if applicable
	Reason   string
	Err      error // optional cause (e.g. *UnknownToolError)
}

func (e *ToolSequenceError) Error() string {
	if e.Tool != "" {
		return fmt.Sprintf("tool sequence error at position %d (tool %q): %s", e.Position, e.Tool, e.Reason)
	}

	return fmt.Sprintf("tool sequence error at position %d: %s", e.Position, e.Reason)
}

func (e *ToolSequenceError) Unwrap() error { return e.Err }

// ToolExecutionError indicates a single tool's internal failure. It aborts
// the chain only when the failed result's NextAction says error; otherwise
// the builder may re-plan around the failed step.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %q execution failed: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }

// AllPartitionsFailedError indicates that every fan-out branch failed, leaving
// nothing to aggregate.
type AllPartitionsFailedError struct {
	Total int
}

func (e *AllPartitionsFailedError) Error() string {
	return fmt.Sprintf("all %d partitions failed", e.Total)
}

// Diagnostic codes surfaced to callers alongside a generic user-facing
// message. Internal detail stays in logs.
const (
	KindUnknownTool         = "unknown_tool"
	KindParameterValidation = "parameter_validation"
	KindToolSequence        = "tool_sequence"
	KindToolExecution       = "tool_execution"
	KindAllPartitionsFailed = "all_partitions_failed"
	KindCanceled            = "canceled"
	KindInternal            = "internal"
)

// KindOf maps an error to its diagnostic code.
func KindOf(err error) string {
	var (
		unknownErr   *UnknownToolError
		paramErr     *ParameterValidationError
		seqErr       *ToolSequenceError
		execErr      *ToolExecutionError
		partitionErr *AllPartitionsFailedError
	)

	switch {
	case err == nil:
		return ""
	case errors.As(err, &seqErr):
		return KindToolSequence
	case errors.As(err, &unknownErr):
		return KindUnknownTool
	case errors.As(err, &paramErr):
		return KindParameterValidation
	case errors.As(err, &execErr):
		return KindToolExecution
	case errors.As(err, &partitionErr):
		return KindAllPartitionsFailed
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindInternal
	}
}

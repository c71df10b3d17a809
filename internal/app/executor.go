package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	appctx "github.com/jsamuelsen/go-history-context/internal/app/context"
	"github.com/jsamuelsen/go-history-context/internal/domain"
	"github.com/jsamuelsen/go-history-context/internal/platform/logging"
)

// Operations run in three steps: Validate, Perform, Archive.
//
// Validate rejects bad input before anything is read or written. Perform
// computes the new state from the current one. Archive persists it and is the
// only step with side effects, so every event it writes is annotated with the
// history context of the operation.

// HistoryKeyOperation is the history context key holding the operation name.
const HistoryKeyOperation = "operation"

// ExecutionStep represents a step of an operation.
type ExecutionStep string

const (
	StepValidate ExecutionStep = "validate"
	StepPerform  ExecutionStep = "perform"
	StepArchive  ExecutionStep = "archive"
)

// ExecutionError wraps errors with the step where they occurred.
type ExecutionError struct {
	Operation string
	Step      ExecutionStep
	Cause     error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Operation, e.Step, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Operation defines the steps of one use case. Nil steps are skipped.
type Operation[I, P, O any] struct {
	// Name identifies the operation in logs and in the history context.
	Name string

	Validate func(ctx context.Context, input I) error
	Perform  func(ctx context.Context, input I) (P, error)
	Archive  func(ctx context.Context, input I, performed P) (O, error)
}

// Execute runs op inside a history scope that records the operation name.
// The scope is released before Execute returns, also when a step panics.
func Execute[I, P, O any](ctx context.Context, op Operation[I, P, O], input I) (O, error) {
	var out O

	err := appctx.With(ctx, appctx.Entries{HistoryKeyOperation: op.Name}, func(ctx context.Context) error {
		var err error
		out, err = run(ctx, op, input)
		return err
	})
	if err != nil {
		var zero O
		return zero, err
	}

	return out, nil
}

func run[I, P, O any](ctx context.Context, op Operation[I, P, O], input I) (O, error) {
	var (
		zero      O
		performed P
		out       O
	)

	logger := logging.FromContext(ctx).With(slog.String("operation", op.Name))
	start := time.Now()

	if op.Validate != nil {
		if err := op.Validate(ctx, input); err != nil {
			logger.WarnContext(ctx, "validation failed", slog.Any("error", err))
			return zero, &ExecutionError{Operation: op.Name, Step: StepValidate, Cause: err}
		}
	}

	if op.Perform != nil {
		var err error
		performed, err = op.Perform(ctx, input)
		if err != nil {
			logger.WarnContext(ctx, "perform failed", slog.Any("error", err))
			return zero, &ExecutionError{Operation: op.Name, Step: StepPerform, Cause: err}
		}
	}

	if op.Archive != nil {
		var err error
		out, err = op.Archive(ctx, input, performed)
		if err != nil {
			logger.Log(ctx, archiveLevel(err), "archive failed", slog.Any("error", err))
			return zero, &ExecutionError{Operation: op.Name, Step: StepArchive, Cause: err}
		}
	}

	logger.InfoContext(ctx, "operation completed", slog.Duration("duration", time.Since(start)))

	return out, nil
}

// archiveLevel keeps client-caused storage errors out of the error log.
func archiveLevel(err error) slog.Level {
	if domain.IsConflict(err) || domain.IsNotFound(err) || domain.IsValidation(err) {
		return slog.LevelWarn
	}
	return slog.LevelError
}

// IsExecutionError checks if an error occurred during execution.
func IsExecutionError(err error) bool {
	var execErr *ExecutionError
	return errors.As(err, &execErr)
}

// GetExecutionStep extracts the step from an execution error.
func GetExecutionStep(err error) (ExecutionStep, bool) {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Step, true
	}

	return "", false
}

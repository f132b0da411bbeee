package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quotenest/internal/domain"
	"github.com/jsamuelsen/quotenest/internal/platform/logging"
)

const tracerName = "github.com/jsamuelsen/quotenest/internal/app"

// Mutation pipeline: Validate → Perform → Verify
//
//  1. VALIDATE - normalize the input and reject it before the store is touched
//  2. PERFORM  - run the single store operation
//  3. VERIFY   - check the store honoured its contract before answering
//
// Every run is traced as one span named after the operation. Failures keep
// the domain error reachable through errors.Is/As.

// ExecutionStep represents a step in the mutation pipeline.
type ExecutionStep string

const (
	StepValidate ExecutionStep = "validate"
	StepPerform  ExecutionStep = "perform"
	StepVerify   ExecutionStep = "verify"
)

// ExecutionError wraps errors with the step where they occurred.
type ExecutionError struct {
	Step  ExecutionStep
	Op    string
	Cause error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Step, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Executor runs mutations through the pipeline.
type Executor struct {
	logger *slog.Logger
}

// NewExecutor creates a new executor with the given logger.
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{logger: logger}
}

// Operation defines the functions for each step of the pipeline.
type Operation[I, O any] struct {
	// Name identifies this operation for logging.
	Name string

	// Validate returns the normalized input or an error that aborts the operation.
	Validate func(ctx context.Context, input I) (I, error)

	// Perform executes the store call with the normalized input.
	Perform func(ctx context.Context, input I) (O, error)

	// Verify checks the result. Nil skips the step.
	Verify func(ctx context.Context, input I, out O) error
}

// Execute runs op with input.
func Execute[I, O any](ctx context.Context, exec *Executor, op Operation[I, O], input I) (O, error) {
	var zero O

	ctx, span := otel.Tracer(tracerName).Start(ctx, "quotes."+op.Name, trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	logger := logging.FromContextOr(ctx, exec.logger).With(slog.String("operation", op.Name))
	start := time.Now()

	fail := func(step ExecutionStep, err error) (O, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(step)+" failed")
		span.SetAttributes(attribute.String("quotes.failed_step", string(step)))

		level := slog.LevelError
		if domain.IsValidation(err) || domain.IsNotFound(err) {
			level = slog.LevelWarn
		}

		logger.Log(ctx, level, string(step)+" failed", slog.Any("error", err))

		return zero, &ExecutionError{Step: step, Op: op.Name, Cause: err}
	}

	if op.Validate != nil {
		normalized, err := op.Validate(ctx, input)
		if err != nil {
			return fail(StepValidate, err)
		}

		input = normalized
	}

	out, err := op.Perform(ctx, input)
	if err != nil {
		return fail(StepPerform, err)
	}

	if op.Verify != nil {
		if err := op.Verify(ctx, input, out); err != nil {
			return fail(StepVerify, err)
		}
	}

	logger.DebugContext(ctx, "operation completed", slog.Duration("duration", time.Since(start)))

	return out, nil
}

// GetExecutionStep extracts the step from an execution error.
func GetExecutionStep(err error) (ExecutionStep, bool) {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Step, true
	}

	return "", false
}

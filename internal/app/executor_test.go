package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/jsamuelsen/quotenest/internal/domain"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	return recorder
}

func TestExecute(t *testing.T) {
	errBoom := errors.New("boom")

	tests := []struct {
		name     string
		op       Operation[string, int]
		want     int
		wantStep ExecutionStep
		wantErr  error
	}{
		{
			name: "all steps succeed",
			op: Operation[string, int]{
				Name:     "length",
				Validate: func(_ context.Context, in string) (string, error) { return in + "!", nil },
				Perform:  func(_ context.Context, in string) (int, error) { return len(in), nil },
				Verify:   func(_ context.Context, _ string, out int) error { return nil },
			},
			want: 6,
		},
		{
			name: "nil validate and verify are skipped",
			op: Operation[string, int]{
				Name:    "length",
				Perform: func(_ context.Context, in string) (int, error) { return len(in), nil },
			},
			want: 5,
		},
		{
			name: "validation failure stops before perform",
			op: Operation[string, int]{
				Name: "length",
				Validate: func(_ context.Context, _ string) (string, error) {
					return "", domain.NewValidationError("text", "is required")
				},
				Perform: func(_ context.Context, _ string) (int, error) {
					panic("perform must not run")
				},
			},
			wantStep: StepValidate,
			wantErr:  domain.ErrValidation,
		},
		{
			name: "perform failure",
			op: Operation[string, int]{
				Name:    "length",
				Perform: func(_ context.Context, _ string) (int, error) { return 0, errBoom },
			},
			wantStep: StepPerform,
			wantErr:  errBoom,
		},
		{
			name: "verify failure",
			op: Operation[string, int]{
				Name:    "length",
				Perform: func(_ context.Context, in string) (int, error) { return len(in), nil },
				Verify:  func(_ context.Context, _ string, _ int) error { return errBoom },
			},
			wantStep: StepVerify,
			wantErr:  errBoom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Execute(context.Background(), NewExecutor(discardLogger()), tt.op, "hello")

			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)

				return
			}

			require.Error(t, err)
			require.ErrorIs(t, err, tt.wantErr)

			step, ok := GetExecutionStep(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantStep, step)
			assert.Contains(t, err.Error(), "length "+string(tt.wantStep))
		})
	}
}

func TestExecute_RecordsSpan(t *testing.T) {
	recorder := recordSpans(t)
	exec := NewExecutor(discardLogger())

	_, err := Execute(context.Background(), exec, Operation[string, int]{
		Name:    "create",
		Perform: func(_ context.Context, _ string) (int, error) { return 0, domain.NewStoreError("insert", nil) },
	}, "")
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "quotes.create", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestGetExecutionStep_NotExecutionError(t *testing.T) {
	_, ok := GetExecutionStep(errors.New("plain"))
	assert.False(t, ok)
}

func TestNewExecutor_NilLogger(t *testing.T) {
	assert.NotNil(t, NewExecutor(nil).logger)
}

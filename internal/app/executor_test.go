package app

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "github.com/jsamuelsen/go-history-context/internal/app/context"
	"github.com/jsamuelsen/go-history-context/internal/domain"
	"github.com/jsamuelsen/go-history-context/internal/platform/logging"
)

func TestExecute_RunsStepsInsideOperationScope(t *testing.T) {
	t.Parallel()

	ctx, h, err := appctx.Acquire(context.Background(), appctx.Entries{appctx.KeyUser: "u1"})
	require.NoError(t, err)
	defer h.MustRelease()

	var steps []string
	var seen appctx.Entries

	op := Operation[int, int, string]{
		Name: "double",
		Validate: func(context.Context, int) error {
			steps = append(steps, "validate")
			return nil
		},
		Perform: func(_ context.Context, in int) (int, error) {
			steps = append(steps, "perform")
			return in * 2, nil
		},
		Archive: func(ctx context.Context, _ int, performed int) (string, error) {
			steps = append(steps, "archive")
			seen = appctx.Effective(ctx)
			return "ok", nil
		},
	}

	out, err := Execute(ctx, op, 21)

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, []string{"validate", "perform", "archive"}, steps)
	assert.Equal(t, appctx.Entries{appctx.KeyUser: "u1", HistoryKeyOperation: "double"}, seen)

	assert.Equal(t, 1, h.Stack().Depth())
	assert.Equal(t, appctx.Entries{appctx.KeyUser: "u1"}, appctx.Effective(ctx))
}

func TestExecute_StepErrors(t *testing.T) {
	t.Parallel()

	cause := domain.NewValidationError("name", "cannot be empty")
	fail := func(context.Context, int) error { return cause }

	tests := []struct {
		name string
		op   Operation[int, int, int]
		step ExecutionStep
	}{
		{
			name: "validate",
			op:   Operation[int, int, int]{Name: "op", Validate: fail},
			step: StepValidate,
		},
		{
			name: "perform",
			op: Operation[int, int, int]{Name: "op", Perform: func(context.Context, int) (int, error) {
				return 0, cause
			}},
			step: StepPerform,
		},
		{
			name: "archive",
			op: Operation[int, int, int]{Name: "op", Archive: func(context.Context, int, int) (int, error) {
				return 0, cause
			}},
			step: StepArchive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out, err := Execute(context.Background(), tt.op, 1)

			require.Error(t, err)
			assert.Zero(t, out)
			assert.True(t, IsExecutionError(err))
			assert.ErrorIs(t, err, domain.ErrValidation)

			step, ok := GetExecutionStep(err)
			require.True(t, ok)
			assert.Equal(t, tt.step, step)
			assert.Contains(t, err.Error(), "op: "+string(tt.step)+" failed")
		})
	}
}

func TestExecute_ReleasesScopeOnPanic(t *testing.T) {
	t.Parallel()

	ctx, h, err := appctx.Acquire(context.Background(), nil)
	require.NoError(t, err)
	defer h.MustRelease()

	op := Operation[int, int, int]{
		Name:    "boom",
		Perform: func(context.Context, int) (int, error) { panic("boom") },
	}

	assert.PanicsWithValue(t, "boom", func() { _, _ = Execute(ctx, op, 1) })
	assert.Equal(t, 1, h.Stack().Depth())
}

func TestExecute_ArchiveLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		err   error
		level string
	}{
		{"conflict", domain.NewConflictError("item", "1", 1, 2), `"level":"WARN"`},
		{"unavailable", domain.NewUnavailableError("items", "closed"), `"level":"ERROR"`},
		{"unexpected", errors.New("disk full"), `"level":"ERROR"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))
			ctx := logging.WithContext(context.Background(), logger)

			op := Operation[int, int, int]{
				Name:    "store",
				Archive: func(context.Context, int, int) (int, error) { return 0, tt.err },
			}

			_, err := Execute(ctx, op, 1)

			require.ErrorIs(t, err, tt.err)
			assert.Contains(t, buf.String(), tt.level)
			assert.Contains(t, buf.String(), `"operation":"store"`)
		})
	}
}

func TestGetExecutionStep_NotExecutionError(t *testing.T) {
	t.Parallel()

	step, ok := GetExecutionStep(errors.New("plain"))

	assert.False(t, ok)
	assert.Empty(t, step)
	assert.False(t, IsExecutionError(nil))
}

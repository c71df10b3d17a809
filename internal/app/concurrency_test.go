package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "github.com/jsamuelsen/go-history-context/internal/app/context"
)

func TestParallel2(t *testing.T) {
	t.Parallel()

	t.Run("returns both results", func(t *testing.T) {
		t.Parallel()

		a, b, err := Parallel2(context.Background(),
			func(context.Context) (int, error) { return 1, nil },
			func(context.Context) (string, error) { return "two", nil },
		)

		require.NoError(t, err)
		assert.Equal(t, 1, a)
		assert.Equal(t, "two", b)
	})

	t.Run("first error cancels the other and zeroes results", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")

		a, b, err := Parallel2(context.Background(),
			func(context.Context) (int, error) { return 0, boom },
			func(ctx context.Context) (string, error) {
				<-ctx.Done()
				return "late", ctx.Err()
			},
		)

		require.ErrorIs(t, err, boom)
		assert.Zero(t, a)
		assert.Empty(t, b)
	})
}

func TestParallel2_WorkersGetIsolatedStacks(t *testing.T) {
	t.Parallel()

	ctx, h, err := appctx.Acquire(context.Background(), appctx.Entries{appctx.KeyUser: "u1"})
	require.NoError(t, err)
	defer h.MustRelease()

	parentID, _ := appctx.ID(ctx)
	scoped := func(key string) func(context.Context) (appctx.Entries, error) {
		return func(ctx context.Context) (appctx.Entries, error) {
			var seen appctx.Entries
			err := appctx.With(ctx, appctx.Entries{key: true}, func(ctx context.Context) error {
				time.Sleep(5 * time.Millisecond)
				seen = appctx.Effective(ctx)
				id, _ := appctx.ID(ctx)
				assert.Equal(t, parentID, id)
				return nil
			})
			return seen, err
		}
	}

	left, right, err := Parallel2(ctx, scoped("left"), scoped("right"))

	require.NoError(t, err)
	assert.Equal(t, appctx.Entries{appctx.KeyUser: "u1", "left": true}, left)
	assert.Equal(t, appctx.Entries{appctx.KeyUser: "u1", "right": true}, right)
	assert.Equal(t, 1, h.Stack().Depth())
}

func TestParallelPartialLimit(t *testing.T) {
	t.Parallel()

	var running, peak atomic.Int32

	items := []int{1, 2, 3, 4, 5, 6}
	results := ParallelPartialLimit(context.Background(), 2, items, func(_ context.Context, n int) (int, error) {
		cur := running.Add(1)
		defer running.Add(-1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)

		if n%3 == 0 {
			return 0, errors.New("divisible by three")
		}
		return n * 10, nil
	})

	require.Len(t, results, len(items))
	assert.LessOrEqual(t, peak.Load(), int32(2))
	for i, r := range results {
		if items[i]%3 == 0 {
			assert.Error(t, r.Err)
			continue
		}
		assert.NoError(t, r.Err)
		assert.Equal(t, items[i]*10, r.Value)
	}
}

func TestParallelPartialLimit_NonPositiveLimit(t *testing.T) {
	t.Parallel()

	results := ParallelPartialLimit(context.Background(), 0, []string{"a", "b"}, func(_ context.Context, s string) (string, error) {
		return s + s, nil
	})

	assert.Equal(t, []PartialResult[string]{{Value: "aa"}, {Value: "bb"}}, results)
}

package app

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	appctx "github.com/jsamuelsen/go-history-context/internal/app/context"
)

// The helpers below hand each goroutine its own forked history stack, so a
// scope opened by one worker is never visible to its siblings or the caller.

// Parallel2 executes two functions concurrently and returns both results or the first error.
// The context passed to each function is canceled when the other fails.
func Parallel2[T1, T2 any](
	ctx context.Context,
	fn1 func(context.Context) (T1, error),
	fn2 func(context.Context) (T2, error),
) (result1 T1, result2 T2, err error) {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var fnErr error
		result1, fnErr = fn1(appctx.Fork(ctx))
		return fnErr
	})

	g.Go(func() error {
		var fnErr error
		result2, fnErr = fn2(appctx.Fork(ctx))
		return fnErr
	})

	if err = g.Wait(); err != nil {
		var (
			zero1 T1
			zero2 T2
		)
		return zero1, zero2, fmt.Errorf("parallel execution failed: %w", err)
	}

	return result1, result2, nil
}

// PartialResult holds a result or an error for partial success patterns.
type PartialResult[T any] struct {
	Value T
	Err   error
}

// ParallelPartialLimit runs fn for every item with at most limit goroutines
// and collects every outcome in input order. It does not stop on errors.
func ParallelPartialLimit[In, Out any](
	ctx context.Context,
	limit int,
	items []In,
	fn func(context.Context, In) (Out, error),
) []PartialResult[Out] {
	if limit < 1 {
		limit = 1
	}

	results := make([]PartialResult[Out], len(items))
	sem := make(chan struct{}, limit)

	var wg sync.WaitGroup

	for i, item := range items {
		wg.Go(func() {
			sem <- struct{}{}
			defer func() { <-sem }()

			value, err := fn(appctx.Fork(ctx), item)
			results[i] = PartialResult[Out]{Value: value, Err: err}
		})
	}

	wg.Wait()

	return results
}

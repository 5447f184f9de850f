package pipeline

import (
	"context"
	"time"
)

// withTimeout runs fn under a deadline of d (none when d <= 0) and returns
// as soon as either fn finishes or the deadline passes. A fn that ignores its
// context keeps running in the background until it returns on its own; its
// result is discarded.
func withTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v: v, err: err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

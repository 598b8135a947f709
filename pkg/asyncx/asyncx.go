package asyncx

import (
	"context"
	"time"
)

// WithTimeout runs fn under a deadline of d. It returns as soon as the
// deadline passes even if fn ignores ctx; fn keeps running in the background
// and its result is discarded.
func WithTimeout(ctx context.Context, d time.Duration, fn func(context.Context) error) error {
	if d <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

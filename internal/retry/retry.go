package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	defaultMaxAttempts  = 3
	defaultInitialDelay = 1 * time.Second
	defaultMaxDelay     = 30 * time.Second
	defaultMultiplier   = 2.0
)

// Options controls how Do spaces out attempts.
type Options struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// Retryable decides whether a failure is worth another attempt.
	// When nil every error is retried until attempts run out.
	Retryable func(error) bool
	// Sleep overrides how inter-attempt waits are performed (tests).
	Sleep func(context.Context, time.Duration) error
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = defaultMaxAttempts
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = defaultInitialDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = defaultMaxDelay
	}
	if o.Multiplier <= 1 {
		o.Multiplier = defaultMultiplier
	}
	if o.Sleep == nil {
		o.Sleep = sleepContext
	}
	return o
}

// Do invokes op until it succeeds, the retry budget is exhausted, or the
// error is classified non-retryable. Waits grow geometrically from
// InitialDelay up to MaxDelay and suspend on the context rather than
// busy-waiting, so concurrent operations in the same process keep running.
func Do[T any](ctx context.Context, op func(context.Context) (T, error), opts Options) (T, error) {
	opts = opts.withDefaults()

	var zero T
	var lastErr error
	delay := opts.InitialDelay

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt >= opts.MaxAttempts {
			break
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}
		if opts.Retryable != nil && !opts.Retryable(err) {
			return zero, err
		}

		wait := delay
		if wait > opts.MaxDelay {
			wait = opts.MaxDelay
		}
		if err := opts.Sleep(ctx, wait); err != nil {
			return zero, err
		}
		delay = time.Duration(float64(delay) * opts.Multiplier)
	}

	return zero, fmt.Errorf("failed after %d attempts: %w", opts.MaxAttempts, lastErr)
}

// BackoffDelay computes the wait before the given 1-based attempt using the
// same geometric progression Do applies. The queue store uses it to schedule
// job-level retries without holding a worker slot.
func BackoffDelay(attempt int, base, maxDelay time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		base = defaultInitialDelay
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if maxDelay > 0 && delay >= maxDelay {
			return maxDelay
		}
	}
	if maxDelay > 0 && delay > maxDelay {
		return maxDelay
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

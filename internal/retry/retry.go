// Package retry wraps asynchronous operations with bounded exponential
// backoff. Aborted failures always bypass the budget so cancellation
// stays fast and deterministic.
package retry

import (
	"context"
	"math"
	"time"

	"github.com/openclaude/streamkit/internal/streamerr"
)

// Options tunes the backoff schedule for one logical call.
type Options struct {
	// MaxRetries is the number of re-attempts after the first try, so
	// MaxRetries=3 yields up to four attempts in total.
	MaxRetries int
	// InitialDelay is the sleep before the first re-attempt.
	InitialDelay time.Duration
	// MaxDelay caps the backoff growth.
	MaxDelay time.Duration
	// BackoffFactor multiplies the delay after every failed attempt.
	BackoffFactor float64
	// OnRetry fires before each backoff sleep, for logging hooks.
	OnRetry func(err error, attempt int, delay time.Duration)
}

// DefaultOptions mirrors the production defaults for streaming calls.
func DefaultOptions() Options {
	return Options{
		MaxRetries:    3,
		InitialDelay:  time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2,
	}
}

// Delay computes the backoff sleep after failed attempt number attempt,
// clamped to MaxDelay.
func (o Options) Delay(attempt int) time.Duration {
	factor := o.BackoffFactor
	if factor <= 1 {
		factor = 2
	}
	initial := o.InitialDelay
	if initial > o.MaxDelay {
		initial = o.MaxDelay
	}
	scaled := float64(initial) * math.Pow(factor, float64(attempt))
	if scaled >= float64(o.MaxDelay) || scaled < 0 {
		return o.MaxDelay
	}
	return time.Duration(scaled)
}

// Do runs op up to 1+MaxRetries times, sleeping between attempts.
// Aborted failures are returned immediately without sleeping or
// consuming a retry slot. When the budget is exhausted the most recent
// error is returned unchanged so callers see the true root cause.
func Do[T any](ctx context.Context, opts Options, op func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		if streamerr.IsAborted(err) {
			return zero, err
		}
		lastErr = err
		if attempt == opts.MaxRetries {
			break
		}

		delay := opts.Delay(attempt)
		if opts.OnRetry != nil {
			opts.OnRetry(err, attempt, delay)
		}
		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
	return zero, lastErr
}

// sleep waits for the backoff delay, aborting early when ctx fires.
func sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return streamerr.NewAborted(ctx.Err())
	case <-timer.C:
		return nil
	}
}

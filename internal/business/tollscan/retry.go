package tollscan

import (
	"context"
	"time"
)

// RetryPolicy bounds one logical acquisition. MaxAttempts stays small:
// this is a live-portal interaction, and aggressive retry risks lockout on
// the far end. Backoff is linear (attempt × BaseDelay); per-key traffic is
// already serialized by the coalescer, so jitter buys nothing here.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy matches the production posture: one retry.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 2, BaseDelay: 2 * time.Second}

// WithRetry runs op under the policy, using retryable to classify each
// failure. A non-retryable error returns immediately; exhausting the
// budget returns a TerminalError carrying only the last cause. The op owns
// its per-attempt resources and must release them on every exit path
// before WithRetry schedules the next attempt.
func WithRetry[T any](ctx context.Context, policy RetryPolicy, retryable func(error) bool, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		if !retryable(err) {
			return zero, err
		}
		lastErr = err

		if attempt == policy.MaxAttempts {
			break
		}
		if err := sleep(ctx, time.Duration(attempt)*policy.BaseDelay); err != nil {
			return zero, err
		}
	}
	return zero, &TerminalError{Attempts: policy.MaxAttempts, Cause: lastErr}
}

func sleep(ctx context.Context, d time.Duration) error {
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

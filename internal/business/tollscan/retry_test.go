package tollscan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWithRetryExactAttemptBound(t *testing.T) {
	t.Parallel()

	calls := 0
	transient := &PortalError{Kind: PortalResultWaitTimeout}

	_, err := WithRetry(context.Background(), RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond},
		Retryable,
		func(ctx context.Context) (int, error) {
			calls++
			return 0, transient
		})

	require.Equal(t, 2, calls, "an always-failing op runs exactly MaxAttempts times")

	var term *TerminalError
	require.ErrorAs(t, err, &term)
	require.Equal(t, 2, term.Attempts)
	require.ErrorIs(t, err, transient, "terminal error carries the last cause")
}

func TestWithRetrySucceedsAfterTransientFailure(t *testing.T) {
	t.Parallel()

	calls := 0
	result, err := WithRetry(context.Background(), RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond},
		Retryable,
		func(ctx context.Context) (string, error) {
			calls++
			if calls == 1 {
				return "", &PortalError{Kind: PortalNavigationFailed}
			}
			return "ok", nil
		})

	require.NoError(t, err)
	require.Equal(t, "ok", result)
	require.Equal(t, 2, calls)
}

func TestWithRetryNonRetryableShortCircuits(t *testing.T) {
	t.Parallel()

	calls := 0
	inputErr := &InputError{Field: "plate", Reason: "empty"}

	_, err := WithRetry(context.Background(), RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond},
		Retryable,
		func(ctx context.Context) (int, error) {
			calls++
			return 0, inputErr
		})

	require.Equal(t, 1, calls, "a deterministic input error must not burn the attempt budget")
	require.ErrorIs(t, err, inputErr)
	var term *TerminalError
	require.False(t, errors.As(err, &term), "short-circuit must not be wrapped as terminal")
}

func TestWithRetryCanceledDuringBackoff(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := WithRetry(ctx, RetryPolicy{MaxAttempts: 3, BaseDelay: time.Hour},
		Retryable,
		func(ctx context.Context) (int, error) {
			calls++
			return 0, &PortalError{Kind: PortalResultWaitTimeout}
		})

	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}

func TestRetryableClassification(t *testing.T) {
	t.Parallel()

	require.False(t, Retryable(&InputError{Field: "jurisdiction", Reason: "unknown"}))
	require.True(t, Retryable(&PortalError{Kind: PortalNavigationFailed}))
	require.True(t, Retryable(&PortalError{Kind: PortalResultWaitTimeout}))
	require.True(t, Retryable(&PortalError{Kind: PortalStructureChanged}))
	require.True(t, Retryable(errors.New("anything else")))
}

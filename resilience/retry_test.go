package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LLprod39/agent-ssh-dev-sub001/core"
	"github.com/LLprod39/agent-ssh-dev-sub001/resilience"
)

func fastRetryConfig() *resilience.RetryConfig {
	return &resilience.RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
		JitterEnabled: false,
	}
}

func TestRetrySucceedsOnFirstAttempt(t *testing.T) {
	calls := 0
	err := resilience.Retry(context.Background(), fastRetryConfig(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryExhaustsAttemptsOnPersistentFailure(t *testing.T) {
	calls := 0
	err := resilience.Retry(context.Background(), fastRetryConfig(), func() error {
		calls++
		return errors.New("transient")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrMaxRetriesExceeded)
	assert.Equal(t, 3, calls)
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := resilience.Retry(context.Background(), fastRetryConfig(), func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryDoesNotRetryValidationErrors(t *testing.T) {
	calls := 0
	err := resilience.Retry(context.Background(), fastRetryConfig(), func() error {
		calls++
		return core.ErrForbiddenCommand
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrForbiddenCommand)
	assert.Equal(t, 1, calls)
}

func TestRetryStopsOnContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := resilience.Retry(ctx, fastRetryConfig(), func() error {
		calls++
		return errors.New("transient")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestRetryWithCircuitBreakerShortCircuitsWhenOpen(t *testing.T) {
	cfg := resilience.DefaultConfig()
	cfg.Name = "retry-test"
	cfg.VolumeThreshold = 1
	cfg.ErrorThreshold = 0
	cb, err := resilience.NewCircuitBreaker(cfg)
	require.NoError(t, err)

	calls := 0
	failing := func() error {
		calls++
		return errors.New("boom")
	}

	// One real failure opens the breaker (VolumeThreshold=1,
	// ErrorThreshold=0); the retry loop's remaining attempts are rejected
	// by the breaker without invoking fn again.
	err = resilience.RetryWithCircuitBreaker(context.Background(), fastRetryConfig(), cb, failing)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrMaxRetriesExceeded)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "open", cb.GetState())
}

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

func TestCircuitBreakerOpensAfterVolumeAndErrorThreshold(t *testing.T) {
	cfg := resilience.DefaultConfig()
	cfg.Name = "test"
	cfg.VolumeThreshold = 2
	cfg.ErrorThreshold = 0.5
	cb, err := resilience.NewCircuitBreaker(cfg)
	require.NoError(t, err)

	failing := func() error { return errors.New("boom") }

	require.Error(t, cb.Execute(context.Background(), failing))
	require.Error(t, cb.Execute(context.Background(), failing))

	assert.Equal(t, "open", cb.GetState())
	assert.False(t, cb.CanExecute())
}

func TestCircuitBreakerRejectsWhenOpen(t *testing.T) {
	cfg := resilience.DefaultConfig()
	cfg.Name = "test"
	cfg.VolumeThreshold = 1
	cfg.ErrorThreshold = 0
	cb, err := resilience.NewCircuitBreaker(cfg)
	require.NoError(t, err)

	require.Error(t, cb.Execute(context.Background(), func() error { return errors.New("boom") }))
	require.Equal(t, "open", cb.GetState())

	err = cb.Execute(context.Background(), func() error { return nil })
	assert.ErrorIs(t, err, core.ErrCircuitBreakerOpen)
}

func TestCircuitBreakerHalfOpensAfterSleepWindow(t *testing.T) {
	cfg := resilience.DefaultConfig()
	cfg.Name = "test"
	cfg.VolumeThreshold = 1
	cfg.ErrorThreshold = 0
	cfg.SleepWindow = 10 * time.Millisecond
	cb, err := resilience.NewCircuitBreaker(cfg)
	require.NoError(t, err)

	require.Error(t, cb.Execute(context.Background(), func() error { return errors.New("boom") }))
	require.Equal(t, "open", cb.GetState())

	time.Sleep(20 * time.Millisecond)
	assert.True(t, cb.CanExecute())
	assert.Equal(t, "half-open", cb.GetState())
}

func TestCircuitBreakerClosesAfterHalfOpenSuccesses(t *testing.T) {
	cfg := resilience.DefaultConfig()
	cfg.Name = "test"
	cfg.VolumeThreshold = 1
	cfg.ErrorThreshold = 0
	cfg.SleepWindow = 1 * time.Millisecond
	cfg.HalfOpenRequests = 2
	cfg.SuccessThreshold = 0.5
	cb, err := resilience.NewCircuitBreaker(cfg)
	require.NoError(t, err)

	require.Error(t, cb.Execute(context.Background(), func() error { return errors.New("boom") }))
	time.Sleep(5 * time.Millisecond)
	require.True(t, cb.CanExecute())

	require.NoError(t, cb.Execute(context.Background(), func() error { return nil }))
	require.NoError(t, cb.Execute(context.Background(), func() error { return nil }))

	assert.Equal(t, "closed", cb.GetState())
}

func TestCircuitBreakerValidationErrorsDoNotCountTowardErrorRate(t *testing.T) {
	cfg := resilience.DefaultConfig()
	cfg.Name = "test"
	cfg.VolumeThreshold = 1
	cfg.ErrorThreshold = 0.1
	cb, err := resilience.NewCircuitBreaker(cfg)
	require.NoError(t, err)

	validationErr := core.NewFrameworkError("op", "validation", core.ErrForbiddenCommand)
	require.Error(t, cb.Execute(context.Background(), func() error { return validationErr }))

	assert.Equal(t, "closed", cb.GetState())
}

func TestFromCoreConfigBuildsWorkingBreaker(t *testing.T) {
	cc := core.CircuitBreakerConfig{Enabled: true, Threshold: 1, Timeout: time.Second, HalfOpenRequests: 1}
	cb, err := resilience.FromCoreConfig("llm", cc, core.NoOpLogger{}, core.NoOpTelemetry{})
	require.NoError(t, err)
	assert.Equal(t, "closed", cb.GetState())
}

func TestCircuitBreakerResetClearsState(t *testing.T) {
	cfg := resilience.DefaultConfig()
	cfg.Name = "test"
	cfg.VolumeThreshold = 1
	cfg.ErrorThreshold = 0
	cb, err := resilience.NewCircuitBreaker(cfg)
	require.NoError(t, err)

	require.Error(t, cb.Execute(context.Background(), func() error { return errors.New("boom") }))
	require.Equal(t, "open", cb.GetState())

	cb.Reset()
	assert.Equal(t, "closed", cb.GetState())
	assert.True(t, cb.CanExecute())
}

func TestCircuitBreakerConfigValidateRejectsOutOfRangeThresholds(t *testing.T) {
	cfg := resilience.DefaultConfig()
	cfg.ErrorThreshold = 1.5
	_, err := resilience.NewCircuitBreaker(cfg)
	assert.Error(t, err)
}

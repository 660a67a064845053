// Package resilience provides the concrete fault-tolerance primitives the
// engine wraps around blocking SSH and LLM calls: a sliding-window circuit
// breaker and exponential backoff retry. core.CircuitBreaker is the
// contract; CircuitBreaker here is the implementation.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LLprod39/agent-ssh-dev-sub001/core"
)

// CircuitState is one of closed/open/half-open.
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrorClassifier decides whether an error should count toward the
// circuit's error rate. Validation and context-cancellation errors are
// user/caller errors, not infrastructure failures, and don't count.
type ErrorClassifier func(error) bool

// DefaultErrorClassifier only counts transport/provider-style failures.
func DefaultErrorClassifier(err error) bool {
	if err == nil {
		return false
	}
	if core.IsConfigurationError(err) || core.IsValidationError(err) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, core.ErrContextCanceled) {
		return false
	}
	return true
}

// Config holds the tunables for one circuit breaker instance.
type Config struct {
	Name             string
	ErrorThreshold   float64 // error rate [0,1] that triggers opening
	VolumeThreshold  int     // minimum requests before the rate is evaluated
	SleepWindow      time.Duration
	HalfOpenRequests int
	SuccessThreshold float64 // success rate needed to close from half-open
	WindowSize       time.Duration
	BucketCount      int
	ErrorClassifier  ErrorClassifier
	Logger           core.Logger
	Telemetry        core.Telemetry
}

// DefaultConfig mirrors core.DefaultCircuitBreakerConfig's values, in the
// richer shape this package's constructor needs.
func DefaultConfig() *Config {
	return &Config{
		Name:             "default",
		ErrorThreshold:   0.5,
		VolumeThreshold:  5,
		SleepWindow:      30 * time.Second,
		HalfOpenRequests: 3,
		SuccessThreshold: 0.6,
		WindowSize:       60 * time.Second,
		BucketCount:      10,
	}
}

func (c *Config) validate() error {
	if c.ErrorThreshold < 0 || c.ErrorThreshold > 1 {
		return fmt.Errorf("%w: error threshold must be in [0,1]", core.ErrInvalidConfig)
	}
	if c.SuccessThreshold < 0 || c.SuccessThreshold > 1 {
		return fmt.Errorf("%w: success threshold must be in [0,1]", core.ErrInvalidConfig)
	}
	if c.VolumeThreshold < 0 {
		return fmt.Errorf("%w: volume threshold must not be negative", core.ErrInvalidConfig)
	}
	return nil
}

// CircuitBreaker implements core.CircuitBreaker with a sliding-window
// error rate and a half-open trial period.
type CircuitBreaker struct {
	config *Config

	state          atomic.Value // CircuitState
	stateChangedAt atomic.Value // time.Time

	window *SlidingWindow

	halfOpenSuccesses atomic.Int32
	halfOpenFailures  atomic.Int32

	rejectedExecutions atomic.Uint64
	totalExecutions    atomic.Uint64

	mu sync.Mutex
}

// NewCircuitBreaker constructs a CircuitBreaker from cfg, filling in
// documented defaults for zero-valued fields.
func NewCircuitBreaker(cfg *Config) (*CircuitBreaker, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid circuit breaker config: %w", err)
	}
	if cfg.WindowSize == 0 {
		cfg.WindowSize = 60 * time.Second
	}
	if cfg.BucketCount == 0 {
		cfg.BucketCount = 10
	}
	if cfg.ErrorClassifier == nil {
		cfg.ErrorClassifier = DefaultErrorClassifier
	}
	if cfg.Logger == nil {
		cfg.Logger = core.NoOpLogger{}
	}
	if cfg.Telemetry == nil {
		cfg.Telemetry = core.NoOpTelemetry{}
	}
	if cfg.SuccessThreshold == 0 {
		cfg.SuccessThreshold = 0.6
	}
	if cfg.HalfOpenRequests == 0 {
		cfg.HalfOpenRequests = 3
	}

	cb := &CircuitBreaker{
		config: cfg,
		window: NewSlidingWindow(cfg.WindowSize, cfg.BucketCount),
	}
	cb.state.Store(StateClosed)
	cb.stateChangedAt.Store(time.Now())

	return cb, nil
}

// FromCoreConfig adapts the shared core.CircuitBreakerConfig (loaded from
// §6 configuration) into a full resilience.Config. telemetry may be nil.
func FromCoreConfig(name string, cc core.CircuitBreakerConfig, logger core.Logger, telemetry core.Telemetry) (*CircuitBreaker, error) {
	cfg := DefaultConfig()
	cfg.Name = name
	cfg.Logger = logger
	cfg.Telemetry = telemetry
	cfg.SleepWindow = cc.Timeout
	cfg.HalfOpenRequests = cc.HalfOpenRequests
	if cc.Threshold > 0 {
		cfg.VolumeThreshold = cc.Threshold
	}
	return NewCircuitBreaker(cfg)
}

// Execute runs fn with circuit breaker protection and no timeout.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	return cb.ExecuteWithTimeout(ctx, 0, fn)
}

// ExecuteWithTimeout runs fn, bounded by timeout when positive, recording
// the outcome against the circuit's state. A panic inside fn is recovered
// and reported as an error rather than crashing the caller.
func (cb *CircuitBreaker) ExecuteWithTimeout(ctx context.Context, timeout time.Duration, fn func() error) error {
	if !cb.CanExecute() {
		cb.rejectedExecutions.Add(1)
		cb.config.Telemetry.RecordMetric("circuit_breaker.rejected", 1, map[string]string{"name": cb.config.Name})
		return fmt.Errorf("circuit breaker %q is open: %w", cb.config.Name, core.ErrCircuitBreakerOpen)
	}

	isHalfOpen := cb.state.Load().(CircuitState) == StateHalfOpen
	cb.totalExecutions.Add(1)

	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic in circuit breaker %q: %v\n%s", cb.config.Name, r, debug.Stack())
			}
		}()
		done <- fn()
	}()

	select {
	case err := <-done:
		cb.recordOutcome(err, isHalfOpen)
		return err
	case <-ctx.Done():
		go func() {
			err := <-done
			cb.recordOutcome(err, isHalfOpen)
		}()
		return ctx.Err()
	}
}

func (cb *CircuitBreaker) recordOutcome(err error, wasHalfOpen bool) {
	counts := cb.config.ErrorClassifier(err)
	status := "success"
	if counts {
		status = "failure"
		cb.window.RecordFailure()
		if wasHalfOpen {
			cb.halfOpenFailures.Add(1)
		}
	} else {
		cb.window.RecordSuccess()
		if wasHalfOpen {
			cb.halfOpenSuccesses.Add(1)
		}
	}
	cb.config.Telemetry.RecordMetric("circuit_breaker.calls", 1, map[string]string{"name": cb.config.Name, "status": status})
	cb.evaluateState()
}

func (cb *CircuitBreaker) evaluateState() {
	state := cb.state.Load().(CircuitState)

	switch state {
	case StateClosed:
		errorRate := cb.window.GetErrorRate()
		total := cb.window.GetTotal()
		if cb.config.VolumeThreshold > 0 && total >= uint64(cb.config.VolumeThreshold) && errorRate >= cb.config.ErrorThreshold {
			cb.transition(StateOpen)
		}

	case StateHalfOpen:
		successes := cb.halfOpenSuccesses.Load()
		failures := cb.halfOpenFailures.Load()
		total := successes + failures
		if cb.config.HalfOpenRequests > 0 && int(total) >= cb.config.HalfOpenRequests {
			successRate := float64(successes) / float64(total)
			cb.mu.Lock()
			if successRate >= cb.config.SuccessThreshold {
				cb.transition(StateClosed)
				cb.window.reset()
			} else {
				cb.transition(StateOpen)
			}
			cb.mu.Unlock()
		}
	}
}

func (cb *CircuitBreaker) transition(newState CircuitState) {
	old := cb.state.Load().(CircuitState)
	if old == newState {
		return
	}
	cb.state.Store(newState)
	cb.stateChangedAt.Store(time.Now())
	cb.halfOpenSuccesses.Store(0)
	cb.halfOpenFailures.Store(0)

	cb.config.Logger.Info("circuit breaker state change", map[string]interface{}{
		"name": cb.config.Name,
		"from": old.String(),
		"to":   newState.String(),
	})
	cb.config.Telemetry.RecordMetric("circuit_breaker.state_changes", 1, map[string]string{
		"name": cb.config.Name,
		"to":   newState.String(),
	})
}

// CanExecute reports whether Execute would run fn right now, transitioning
// open -> half-open once the sleep window has elapsed.
func (cb *CircuitBreaker) CanExecute() bool {
	state := cb.state.Load().(CircuitState)
	switch state {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		changedAt := cb.stateChangedAt.Load().(time.Time)
		if time.Since(changedAt) > cb.config.SleepWindow {
			cb.mu.Lock()
			defer cb.mu.Unlock()
			if cb.state.Load().(CircuitState) == StateOpen {
				cb.transition(StateHalfOpen)
			}
			return true
		}
		return false
	default:
		return false
	}
}

// GetState returns "closed", "open", or "half-open".
func (cb *CircuitBreaker) GetState() string {
	return cb.state.Load().(CircuitState).String()
}

// GetMetrics returns current counters for a status endpoint or CLI report.
func (cb *CircuitBreaker) GetMetrics() map[string]interface{} {
	success, failure := cb.window.GetCounts()
	return map[string]interface{}{
		"name":                cb.config.Name,
		"state":               cb.GetState(),
		"window_success":      success,
		"window_failure":      failure,
		"window_error_rate":   cb.window.GetErrorRate(),
		"total_executions":    cb.totalExecutions.Load(),
		"rejected_executions": cb.rejectedExecutions.Load(),
	}
}

// Reset forces the circuit back to closed and clears counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state.Store(StateClosed)
	cb.stateChangedAt.Store(time.Now())
	cb.halfOpenSuccesses.Store(0)
	cb.halfOpenFailures.Store(0)
	cb.window.reset()
}

var _ core.CircuitBreaker = (*CircuitBreaker)(nil)

// bucket is one time slice of the sliding window.
type bucket struct {
	timestamp time.Time
	success   uint64
	failure   uint64
}

// SlidingWindow tracks success/failure counts over a rolling time window
// divided into fixed buckets, rotating out stale buckets as time passes.
type SlidingWindow struct {
	buckets      []bucket
	windowSize   time.Duration
	bucketSize   time.Duration
	currentIdx   int
	lastRotation time.Time
	mu           sync.RWMutex
}

// NewSlidingWindow constructs a window of windowSize split into
// bucketCount buckets.
func NewSlidingWindow(windowSize time.Duration, bucketCount int) *SlidingWindow {
	if bucketCount <= 0 {
		bucketCount = 10
	}
	now := time.Now()
	buckets := make([]bucket, bucketCount)
	for i := range buckets {
		buckets[i].timestamp = now
	}
	return &SlidingWindow{
		buckets:      buckets,
		windowSize:   windowSize,
		bucketSize:   windowSize / time.Duration(bucketCount),
		lastRotation: now,
	}
}

func (sw *SlidingWindow) rotateBuckets() {
	now := time.Now()
	elapsed := now.Sub(sw.lastRotation)
	if elapsed < 0 {
		sw.resetLocked()
		return
	}
	if elapsed < sw.bucketSize {
		return
	}
	bucketsToRotate := int(elapsed / sw.bucketSize)
	if bucketsToRotate > len(sw.buckets) {
		bucketsToRotate = len(sw.buckets)
	}
	for i := 0; i < bucketsToRotate; i++ {
		sw.currentIdx = (sw.currentIdx + 1) % len(sw.buckets)
		sw.buckets[sw.currentIdx] = bucket{timestamp: now}
	}
	sw.lastRotation = now
}

func (sw *SlidingWindow) resetLocked() {
	now := time.Now()
	for i := range sw.buckets {
		sw.buckets[i] = bucket{timestamp: now}
	}
	sw.currentIdx = 0
	sw.lastRotation = now
}

func (sw *SlidingWindow) reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.resetLocked()
}

// RecordSuccess records one successful operation in the current bucket.
func (sw *SlidingWindow) RecordSuccess() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.rotateBuckets()
	sw.buckets[sw.currentIdx].success++
}

// RecordFailure records one failed operation in the current bucket.
func (sw *SlidingWindow) RecordFailure() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.rotateBuckets()
	sw.buckets[sw.currentIdx].failure++
}

// GetCounts sums success/failure across buckets still inside the window.
func (sw *SlidingWindow) GetCounts() (success, failure uint64) {
	sw.mu.RLock()
	defer sw.mu.RUnlock()
	cutoff := time.Now().Add(-sw.windowSize)
	for i := range sw.buckets {
		if sw.buckets[i].timestamp.After(cutoff) {
			success += sw.buckets[i].success
			failure += sw.buckets[i].failure
		}
	}
	return success, failure
}

// GetErrorRate returns failure/(success+failure) over the window, or 0
// when the window is empty.
func (sw *SlidingWindow) GetErrorRate() float64 {
	success, failure := sw.GetCounts()
	total := success + failure
	if total == 0 {
		return 0
	}
	return float64(failure) / float64(total)
}

// GetTotal returns success+failure over the window.
func (sw *SlidingWindow) GetTotal() uint64 {
	success, failure := sw.GetCounts()
	return success + failure
}

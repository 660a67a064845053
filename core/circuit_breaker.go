// Package core: CircuitBreaker is the fault-tolerance contract used to
// guard SSH connection attempts and LLM calls (§7.1). The concrete
// implementation lives in package resilience; this file only defines the
// interface and its configuration so other packages can depend on the
// contract without importing resilience directly.
package core

import (
	"context"
	"time"
)

// CircuitBreaker protects a blocking operation against cascading failures.
type CircuitBreaker interface {
	// Execute runs fn with circuit breaker protection. If the circuit is
	// open it returns ErrCircuitBreakerOpen without calling fn.
	Execute(ctx context.Context, fn func() error) error

	// ExecuteWithTimeout is Execute bounded by an explicit timeout.
	ExecuteWithTimeout(ctx context.Context, timeout time.Duration, fn func() error) error

	// GetState returns "closed", "open", or "half-open".
	GetState() string

	// GetMetrics returns current success/failure/rejection counters.
	GetMetrics() map[string]interface{}

	// Reset forces the circuit back to closed and clears counters.
	Reset()

	// CanExecute reports whether Execute would currently run fn.
	CanExecute() bool
}

// CircuitBreakerConfig is the declarative configuration shared between the
// config loader (§6) and resilience.NewCircuitBreaker.
type CircuitBreakerConfig struct {
	Enabled          bool          `json:"enabled" yaml:"enabled"`
	Threshold        int           `json:"threshold" yaml:"threshold"`
	Timeout          time.Duration `json:"timeout" yaml:"timeout"`
	HalfOpenRequests int           `json:"half_open_requests" yaml:"half_open_requests"`
}

// DefaultCircuitBreakerConfig returns sensible defaults.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Enabled:          true,
		Threshold:        5,
		Timeout:          30 * time.Second,
		HalfOpenRequests: 3,
	}
}

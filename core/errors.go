package core

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for comparison via errors.Is(). These are the
// generic error kinds from §7's taxonomy; components wrap them with
// FrameworkError to attach operation-specific context.
var (
	// Validation failures (§7: "reported, not retried")
	ErrEmptyCommand      = errors.New("command is empty")
	ErrForbiddenCommand  = errors.New("command matches a forbidden pattern")
	ErrInvalidDependency = errors.New("dependency graph references an unknown id")
	ErrCyclicDependency  = errors.New("dependency graph contains a cycle")
	ErrMissingConfig     = errors.New("missing required configuration")
	ErrInvalidConfig     = errors.New("invalid configuration")

	// Transport failures
	ErrConnectionFailed = errors.New("ssh connection failed")
	ErrTransportRefused = errors.New("transport refused to execute a forbidden command")
	ErrTimeout          = errors.New("operation timeout")
	ErrContextCanceled  = errors.New("context canceled")

	// Remote command failures
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")

	// Provider failures
	ErrProviderUnavailable = errors.New("llm provider unavailable")
	ErrProviderTimeout     = errors.New("llm provider timeout")
	ErrEmptyResponse       = errors.New("llm provider returned an empty response")

	// Idempotency
	ErrProbeFailed = errors.New("idempotency probe failed")

	// Internal invariant violations — fatal to the current task
	ErrInvariantViolation = errors.New("internal invariant violation")

	// Resilience
	ErrCircuitBreakerOpen = errors.New("circuit breaker open")
)

// FrameworkError provides structured error information with context. It
// implements the error interface and supports error wrapping via Unwrap,
// so callers can still use errors.Is/errors.As against the sentinels above.
type FrameworkError struct {
	Op      string // operation that failed, e.g. "executor.ExecuteSubtask"
	Kind    string // error kind, e.g. "validation", "transport", "provider"
	ID      string // optional id of the entity involved (task/step/subtask id)
	Message string
	Err     error
}

func (e *FrameworkError) Error() string {
	if e.Op != "" && e.Err != nil {
		if e.ID != "" {
			return fmt.Sprintf("%s [%s]: %v", e.Op, e.ID, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s error", e.Kind)
}

func (e *FrameworkError) Unwrap() error {
	return e.Err
}

// NewFrameworkError wraps err with operation and kind context.
func NewFrameworkError(op, kind string, err error) *FrameworkError {
	return &FrameworkError{Op: op, Kind: kind, Err: err}
}

// WithID attaches an entity id and returns the same error for chaining.
func (e *FrameworkError) WithID(id string) *FrameworkError {
	e.ID = id
	return e
}

// IsRetryable reports whether err is a transient condition worth retrying
// (transport/timeout/provider-availability kinds).
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConnectionFailed) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrProviderUnavailable) ||
		errors.Is(err, ErrProviderTimeout)
}

// IsValidationError reports whether err is a validation failure (never
// retried per §7).
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyCommand) ||
		errors.Is(err, ErrForbiddenCommand) ||
		errors.Is(err, ErrInvalidDependency) ||
		errors.Is(err, ErrCyclicDependency) ||
		errors.Is(err, ErrMissingConfig) ||
		errors.Is(err, ErrInvalidConfig)
}

// IsConfigurationError reports whether err stems from invalid/missing config.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfig) || errors.Is(err, ErrMissingConfig)
}

// IsInvariantViolation reports whether err is fatal internal-state corruption.
func IsInvariantViolation(err error) bool {
	return errors.Is(err, ErrInvariantViolation) ||
		errors.Is(err, ErrCyclicDependency)
}

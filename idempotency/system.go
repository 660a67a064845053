package idempotency

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/LLprod39/agent-ssh-dev-sub001/core"
)

// Prober executes a probe command on the remediation target and reports
// whether it succeeded. transport.Transport satisfies this narrowly — the
// idempotency package never imports transport to avoid a cycle.
type Prober interface {
	ExecuteCommand(ctx context.Context, command string, timeout time.Duration) (core.CommandResult, error)
}

// System composes Wrapper, Inferer, and Cache into the three-operation
// contract §4.4 specifies: GenerateIdempotent, CheckIdempotency, ShouldSkip.
type System struct {
	wrapper *Wrapper
	inferer *Inferer
	cache   Cache
	prober  Prober
	logger  core.Logger
	ttl     time.Duration
}

// NewSystem wires a System from its parts. prober may be nil until a
// transport is attached via SetProber (the executor constructs the system
// before it has dialed the target).
func NewSystem(cache Cache, prober Prober, ttl time.Duration, logger core.Logger) *System {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &System{
		wrapper: NewWrapper(logger),
		inferer: NewInferer(),
		cache:   cache,
		prober:  prober,
		logger:  logger,
		ttl:     ttl,
	}
}

// SetProber attaches the transport used to run precondition probes.
func (s *System) SetProber(prober Prober) {
	s.prober = prober
}

// GenerateIdempotent wraps baseCommand per the type/target mutation and
// returns the checks that back it.
func (s *System) GenerateIdempotent(baseCommand string, mutType MutationType, target string, params map[string]string) (string, []core.IdempotencyCheck, error) {
	return s.wrapper.Generate(baseCommand, mutType, target, params)
}

// CheckIdempotency probes each check, consulting the cache first.
func (s *System) CheckIdempotency(ctx context.Context, checks []core.IdempotencyCheck) ([]bool, error) {
	results := make([]bool, len(checks))
	for i, check := range checks {
		holds, err := s.probeOne(ctx, check)
		if err != nil {
			return results, err
		}
		results[i] = holds
	}
	return results, nil
}

func (s *System) probeOne(ctx context.Context, check core.IdempotencyCheck) (bool, error) {
	if cached, ok, err := s.cache.Get(ctx, check); err == nil && ok {
		if s.logger != nil {
			s.logger.Debug("idempotency cache hit", map[string]interface{}{
				"check_type": string(check.CheckType),
				"target":     check.Target,
			})
		}
		return cached.Holds, nil
	}

	holds, err := s.runProbe(ctx, check)
	if err != nil {
		return false, core.NewFrameworkError("idempotency.CheckIdempotency", "probe", err)
	}

	if setErr := s.cache.Set(ctx, check, CachedResult{Holds: holds, CheckedAt: time.Now()}, s.ttl); setErr != nil && s.logger != nil {
		s.logger.Warn("failed to cache idempotency result", map[string]interface{}{"error": setErr.Error()})
	}
	return holds, nil
}

func (s *System) runProbe(ctx context.Context, check core.IdempotencyCheck) (bool, error) {
	timeout := check.Timeout
	if timeout <= 0 {
		timeout = core.DefaultNetworkProbeTimeout
	}

	if s.prober == nil {
		return false, core.ErrProbeFailed
	}

	result, err := s.prober.ExecuteCommand(ctx, check.ProbeCommand, timeout)
	if err != nil {
		return false, err
	}
	if check.SuccessPattern == "" {
		return result.ExitCode == 0, nil
	}
	re, err := regexp.Compile(check.SuccessPattern)
	if err != nil {
		return false, err
	}
	return result.ExitCode == 0 && re.MatchString(result.Stdout), nil
}

// ShouldSkip infers a mutation type/target from raw command text and
// reports whether its precondition already holds, so the caller can
// replace the command with a synthetic success instead of running it.
func (s *System) ShouldSkip(ctx context.Context, command string) (bool, core.CommandResult, error) {
	mutType, target, ok := s.inferer.Infer(command)
	if !ok {
		return false, core.CommandResult{}, nil
	}

	_, checks, err := s.wrapper.Generate(command, mutType, target, nil)
	if err != nil || len(checks) == 0 {
		return false, core.CommandResult{}, err
	}

	holds, err := s.probeOne(ctx, checks[0])
	if err != nil {
		return false, core.CommandResult{}, err
	}
	if !holds {
		return false, core.CommandResult{}, nil
	}

	synthetic := core.CommandResult{
		Command:   command,
		Stdout:    fmt.Sprintf("[IDEMPOTENT] %s skipped — state already satisfied", command),
		Success:   true,
		ExitCode:  0,
		Status:    core.CommandCompleted,
		Timestamp: time.Now(),
		Metadata:  core.CommandMetadata{IdempotentSkip: true},
	}
	return true, synthetic, nil
}

// Close releases the backing cache's resources.
func (s *System) Close() error {
	return s.cache.Close()
}

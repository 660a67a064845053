// Package autocorrect implements the Autocorrection Engine (C4, §4.3):
// a fixed, ordered table of stderr-triggered rewrite strategies, driven
// through a bounded retry loop against a transport.Transport test call.
package autocorrect

import (
	"context"
	"strings"
	"time"

	"github.com/LLprod39/agent-ssh-dev-sub001/core"
	"github.com/LLprod39/agent-ssh-dev-sub001/transport"
)

// CorrectionAttempt records one rewrite trial (§4.3).
type CorrectionAttempt struct {
	Strategy   string
	Original   string
	Corrected  string
	Success    bool
	TestResult core.CommandResult
}

// AutocorrectionResult is Correct's return value.
type AutocorrectionResult struct {
	Success      bool
	FinalCommand string
	Attempts     []CorrectionAttempt
}

// Engine drives the §4.3 strategy table.
type Engine struct {
	strategies  []Strategy
	maxAttempts int
	testTimeout time.Duration
	logger      core.Logger
}

// New builds an Engine from cfg, including only the strategies cfg
// enables, in the §4.3 table order.
func New(cfg core.ExecutorConfig, logger core.Logger) *Engine {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	e := &Engine{
		maxAttempts: cfg.AutocorrectionMaxAttempts,
		testTimeout: cfg.AutocorrectionTimeout,
		logger:      logger,
	}
	if e.maxAttempts <= 0 {
		e.maxAttempts = 3
	}
	if e.testTimeout <= 0 {
		e.testTimeout = 15 * time.Second
	}

	all := []struct {
		enabled bool
		s       Strategy
	}{
		{cfg.EnablePermissionFix, permissionFixStrategy},
		{cfg.EnableCommandSubstitution, commandSubstitutionStrategy},
		{cfg.EnablePackageUpdate, packageUpdateStrategy},
		{cfg.EnableServiceRestart, serviceRestartStrategy},
		{cfg.EnableNetworkCheck, networkCheckStrategy},
		{cfg.EnablePathCorrection, pathCorrectionStrategy},
		{cfg.EnableSyntaxCheck, syntaxCheckStrategy},
		{cfg.EnableAlternativeFlags, alternativeFlagsStrategy},
	}
	for _, a := range all {
		if a.enabled {
			e.strategies = append(e.strategies, a.s)
		}
	}
	return e
}

// Correct runs the §4.3 loop: classify stderr, pick a strategy, rewrite,
// test via tr.ExecuteCommand, record the attempt. It stops on success,
// on max_attempts, or immediately on a cyclic/no-change rewrite.
func (e *Engine) Correct(ctx context.Context, failed core.CommandResult, tr transport.Transport, vctx core.ValidationContext) AutocorrectionResult {
	result := AutocorrectionResult{FinalCommand: failed.Command}

	current := failed
	tried := map[string]bool{strings.TrimSpace(current.Command): true}

	for i := 0; i < e.maxAttempts; i++ {
		strategy, corrected, ok := e.selectAndRewrite(current.Command, current.Stderr)
		if !ok {
			break
		}

		trimmed := strings.TrimSpace(corrected)
		if trimmed == strings.TrimSpace(current.Command) || tried[trimmed] {
			e.logger.Debug("autocorrection stopped: cyclic or no-change rewrite", map[string]interface{}{
				"strategy": strategy,
				"command":  corrected,
			})
			break
		}
		tried[trimmed] = true

		testCtx, cancel := context.WithTimeout(ctx, e.testTimeout)
		testResult, err := tr.ExecuteCommand(testCtx, corrected, e.testTimeout, vctx)
		cancel()

		attempt := CorrectionAttempt{
			Strategy:   strategy,
			Original:   current.Command,
			Corrected:  corrected,
			Success:    err == nil && testResult.Success,
			TestResult: testResult,
		}
		result.Attempts = append(result.Attempts, attempt)

		if attempt.Success {
			result.Success = true
			result.FinalCommand = corrected
			return result
		}

		current = testResult
		current.Command = corrected
	}

	result.FinalCommand = current.Command
	return result
}

// selectAndRewrite finds the first enabled strategy whose trigger
// matches stderr and applies its rewrite.
func (e *Engine) selectAndRewrite(command, stderr string) (strategyName, corrected string, ok bool) {
	for _, s := range e.strategies {
		if s.Trigger.MatchString(strings.ToLower(stderr)) {
			if rewritten, applied := s.Rewrite(command, stderr); applied {
				return s.Name, rewritten, true
			}
		}
	}
	return "", "", false
}

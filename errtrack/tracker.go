// Package errtrack implements the Error Tracker & Escalation System (C7,
// §4.6): per-step failure counters, policy-driven escalation, and a
// cooldown-gated, monotone escalation ladder (none < planner < human <
// emergency_stop).
package errtrack

import (
	"sync"
	"time"

	"github.com/LLprod39/agent-ssh-dev-sub001/core"
)

// StepErrorStats is an alias so callers can use errtrack.StepErrorStats
// interchangeably with core.StepErrorStats.
type StepErrorStats = core.StepErrorStats

// ErrorRecord is an alias of core.ErrorRecord.
type ErrorRecord = core.ErrorRecord

// EscalationLevel is an alias of core.EscalationLevel.
type EscalationLevel = core.EscalationLevel

const (
	LevelNone          = core.EscalationNone
	LevelPlanner       = core.EscalationPlanner
	LevelHuman         = core.EscalationHuman
	LevelEmergencyStop = core.EscalationEmergencyStop
)

// levelRank gives the monotone ladder's ordering for comparisons.
var levelRank = map[EscalationLevel]int{
	LevelNone:          0,
	LevelPlanner:       1,
	LevelHuman:         2,
	LevelEmergencyStop: 3,
}

// Tracker holds per-step error statistics behind a single RWMutex, and
// consults an EscalationPolicy to decide when a step's failure
// trajectory crosses an escalation threshold (§4.6).
type Tracker struct {
	mu            sync.RWMutex
	stats         map[string]*StepErrorStats
	lastEscalated map[string]time.Time

	policy        EscalationPolicy
	retention     time.Duration
	cooldown      time.Duration
	logger        core.Logger
}

// New builds a Tracker from cfg. If policy is nil, a RuleBasedPolicy is
// built from cfg.
func New(cfg core.ErrorHandlerConfig, policy EscalationPolicy, logger core.Logger) *Tracker {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	if policy == nil {
		policy = NewRuleBasedPolicy(cfg)
	}
	retention := time.Duration(cfg.MaxRetentionDays) * 24 * time.Hour
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	cooldown := time.Duration(cfg.EscalationCooldownMinutes) * time.Minute

	return &Tracker{
		stats:         make(map[string]*StepErrorStats),
		lastEscalated: make(map[string]time.Time),
		policy:        policy,
		retention:     retention,
		cooldown:      cooldown,
		logger:        logger,
	}
}

// RecordAttempt appends one attempt to stepID's record list and updates
// its derived counters (§4.6 Contract).
func (t *Tracker) RecordAttempt(stepID, command string, success bool, duration time.Duration, exitCode int, errText string, autocorrectionUsed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.stats[stepID]
	if !ok {
		s = &StepErrorStats{StepID: stepID, EscalationLevel: LevelNone}
		t.stats[stepID] = s
	}

	now := time.Now()
	record := ErrorRecord{
		Timestamp:          now,
		Command:            command,
		Success:            success,
		Duration:           duration,
		ExitCode:           exitCode,
		ErrorText:          errText,
		AutocorrectionUsed: autocorrectionUsed,
	}
	s.Records = append(s.Records, record)
	s.Attempts++

	if success {
		s.ConsecutiveFailures = 0
	} else {
		s.Failures++
		s.ConsecutiveFailures++
		s.LastErrorTime = &now
	}
	if autocorrectionUsed {
		s.AutocorrectionUses++
	}
	if s.Attempts > 0 {
		s.SuccessRate = float64(s.Attempts-s.Failures) / float64(s.Attempts) * 100
	}

	t.maybeEscalate(stepID, s, now)
}

// maybeEscalate consults the policy and raises s.EscalationLevel, never
// lowering it (§4.6, Invariant 6). The cooldown only throttles repeated
// escalation at the level the step is already at — every decision that
// reaches this point past the rank check below is a genuine upward
// transition on the none→planner→human→emergency_stop ladder, and must
// never be suppressed, or a step that fails past several thresholds in
// one execution would get stuck at the first level it reached.
func (t *Tracker) maybeEscalate(stepID string, s *StepErrorStats, now time.Time) {
	decided := t.policy.Evaluate(*s)
	if levelRank[decided] < levelRank[s.EscalationLevel] {
		return
	}
	if levelRank[decided] == levelRank[s.EscalationLevel] {
		if last, ok := t.lastEscalated[stepID]; ok && now.Sub(last) < t.cooldown {
			return
		}
	}

	s.EscalationLevel = decided
	t.lastEscalated[stepID] = now
	t.logger.Warn("step escalated", map[string]interface{}{
		"step_id": stepID,
		"level":   string(decided),
		"attempts": s.Attempts,
		"failures": s.Failures,
	})
}

// Escalate force-sets stepID's level, used by the orchestrator to arm
// emergency_stop — a decision outside any per-step threshold, made at
// the task level (OVERVIEW). It is a no-op if level would lower the
// step's current level (Invariant 6).
func (t *Tracker) Escalate(stepID string, level EscalationLevel) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.stats[stepID]
	if !ok {
		s = &StepErrorStats{StepID: stepID, EscalationLevel: LevelNone}
		t.stats[stepID] = s
	}
	if levelRank[level] > levelRank[s.EscalationLevel] {
		s.EscalationLevel = level
	}
}

// GetSummary returns a copy of stepID's stats, or a zero-value stats
// record with EscalationLevel none if the step has no history.
func (t *Tracker) GetSummary(stepID string) StepErrorStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, ok := t.stats[stepID]
	if !ok {
		return StepErrorStats{StepID: stepID, EscalationLevel: LevelNone}
	}
	return *s
}

// ShouldEscalateToPlanner reports whether stepID's level is at least
// planner (§4.6 Contract).
func (t *Tracker) ShouldEscalateToPlanner(stepID string) bool {
	return levelRank[t.GetSummary(stepID).EscalationLevel] >= levelRank[LevelPlanner]
}

// ShouldEscalateToHuman reports whether stepID's level is at least
// human (§4.6 Contract).
func (t *Tracker) ShouldEscalateToHuman(stepID string) bool {
	return levelRank[t.GetSummary(stepID).EscalationLevel] >= levelRank[LevelHuman]
}

// GetEscalationLevel returns stepID's current escalation level (§4.6
// Contract). It is monotone non-decreasing within one execution,
// excluding Cleanup (Invariant 6).
func (t *Tracker) GetEscalationLevel(stepID string) EscalationLevel {
	return t.GetSummary(stepID).EscalationLevel
}

// Cleanup drops records older than the configured retention window and
// evicts steps that end up with no records left (§4.6 Contract).
func (t *Tracker) Cleanup() {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := time.Now().Add(-t.retention)
	for stepID, s := range t.stats {
		kept := s.Records[:0]
		for _, r := range s.Records {
			if r.Timestamp.After(cutoff) {
				kept = append(kept, r)
			}
		}
		s.Records = kept
		if len(s.Records) == 0 {
			delete(t.stats, stepID)
			delete(t.lastEscalated, stepID)
		}
	}
}

package errtrack_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/LLprod39/agent-ssh-dev-sub001/core"
	"github.com/LLprod39/agent-ssh-dev-sub001/errtrack"
)

func newTracker() *errtrack.Tracker {
	return errtrack.New(core.ErrorHandlerConfig{
		ErrorThresholdPerStep:       3,
		SendToPlannerAfterThreshold: true,
		HumanEscalationThreshold:    4,
		EscalationCooldownMinutes:   0,
		MaxRetentionDays:            30,
	}, nil, core.NoOpLogger{})
}

func TestEscalationBoundaryCase(t *testing.T) {
	// spec.md boundary case: error_threshold_per_step=3,
	// human_escalation_threshold=4, four consecutive failures on step S.
	tr := newTracker()
	const step = "S"

	tr.RecordAttempt(step, "cmd", false, time.Millisecond, 1, "fail 1", false)
	assert.False(t, tr.ShouldEscalateToPlanner(step))

	tr.RecordAttempt(step, "cmd", false, time.Millisecond, 1, "fail 2", false)
	assert.False(t, tr.ShouldEscalateToPlanner(step))

	tr.RecordAttempt(step, "cmd", false, time.Millisecond, 1, "fail 3", false)
	assert.True(t, tr.ShouldEscalateToPlanner(step))
	assert.False(t, tr.ShouldEscalateToHuman(step))

	tr.RecordAttempt(step, "cmd", false, time.Millisecond, 1, "fail 4", false)
	assert.True(t, tr.ShouldEscalateToHuman(step))
}

func TestEscalationLevelMonotoneWithinExecution(t *testing.T) {
	tr := newTracker()
	const step = "S"

	for i := 0; i < 4; i++ {
		tr.RecordAttempt(step, "cmd", false, time.Millisecond, 1, "fail", false)
	}
	assert.Equal(t, core.EscalationHuman, tr.GetEscalationLevel(step))

	// A later success must not downgrade the escalation level.
	tr.RecordAttempt(step, "cmd", true, time.Millisecond, 0, "", false)
	assert.Equal(t, core.EscalationHuman, tr.GetEscalationLevel(step))
}

func TestRecordAttemptTracksConsecutiveFailuresAndSuccessRate(t *testing.T) {
	tr := newTracker()
	const step = "S"

	tr.RecordAttempt(step, "cmd", false, time.Millisecond, 1, "fail", false)
	tr.RecordAttempt(step, "cmd", false, time.Millisecond, 1, "fail", false)
	tr.RecordAttempt(step, "cmd", true, time.Millisecond, 0, "", true)

	summary := tr.GetSummary(step)
	assert.Equal(t, 3, summary.Attempts)
	assert.Equal(t, 2, summary.Failures)
	assert.Equal(t, 0, summary.ConsecutiveFailures)
	assert.Equal(t, 1, summary.AutocorrectionUses)
	assert.InDelta(t, 33.33, summary.SuccessRate, 0.1)
}

func TestNoOpPolicyNeverEscalates(t *testing.T) {
	tr := errtrack.New(core.ErrorHandlerConfig{ErrorThresholdPerStep: 1, HumanEscalationThreshold: 1}, errtrack.NoOpPolicy{}, core.NoOpLogger{})
	const step = "S"

	for i := 0; i < 10; i++ {
		tr.RecordAttempt(step, "cmd", false, time.Millisecond, 1, "fail", false)
	}
	assert.False(t, tr.ShouldEscalateToPlanner(step))
	assert.Equal(t, core.EscalationNone, tr.GetEscalationLevel(step))
}

func TestCleanupKeepsRecentRecords(t *testing.T) {
	tr := newTracker()
	const step = "S"
	tr.RecordAttempt(step, "cmd", false, time.Millisecond, 1, "fail", false)

	tr.Cleanup()
	summary := tr.GetSummary(step)
	assert.Equal(t, 1, summary.Attempts) // record is recent, still present

	_ = summary
}

func TestEscalateArmsEmergencyStopWithoutDowngrading(t *testing.T) {
	tr := newTracker()
	const step = "S"
	for i := 0; i < 4; i++ {
		tr.RecordAttempt(step, "cmd", false, time.Millisecond, 1, "fail", false)
	}
	assert.Equal(t, core.EscalationHuman, tr.GetEscalationLevel(step))

	tr.Escalate(step, core.EscalationEmergencyStop)
	assert.Equal(t, core.EscalationEmergencyStop, tr.GetEscalationLevel(step))

	tr.Escalate(step, core.EscalationPlanner)
	assert.Equal(t, core.EscalationEmergencyStop, tr.GetEscalationLevel(step))
}

// Package executor implements the Command Executor (C8, §4.7): the
// seven-step per-subtask algorithm that ties together idempotency, the
// dry-run simulator, the transport's safety-gated SSH execution,
// autocorrection, and error tracking.
package executor

import (
	"context"
	"strings"
	"time"

	"github.com/LLprod39/agent-ssh-dev-sub001/autocorrect"
	"github.com/LLprod39/agent-ssh-dev-sub001/core"
	"github.com/LLprod39/agent-ssh-dev-sub001/dryrun"
	"github.com/LLprod39/agent-ssh-dev-sub001/errtrack"
	"github.com/LLprod39/agent-ssh-dev-sub001/idempotency"
	"github.com/LLprod39/agent-ssh-dev-sub001/transport"
)

// criticalCommandPrefixes and criticalCommandSubstrings are the
// executor's own fallback shortlist
// (§4.7): commands that must not be bypassed on failure. The
// authoritative danger policy still lives in C1 (safety.Validator).
var criticalCommandPrefixes = []string{
	"systemctl start", "systemctl enable",
	"service start", "docker start",
}

var criticalCommandSubstrings = []string{
	"nginx -t", "apache2ctl configtest",
}

func isCriticalCommand(command string) bool {
	trimmed := strings.TrimSpace(command)
	for _, p := range criticalCommandPrefixes {
		if strings.HasPrefix(trimmed, p) || strings.HasPrefix(trimmed, "sudo "+p) {
			return true
		}
	}
	for _, s := range criticalCommandSubstrings {
		if strings.Contains(trimmed, s) {
			return true
		}
	}
	return false
}

// SubtaskExecutionResult is ExecuteSubtask's return value (§4.7).
type SubtaskExecutionResult struct {
	SubtaskID             string
	CommandResults        []core.CommandResult
	HealthCheckResults    []core.CommandResult
	Duration              time.Duration
	ErrorCount            int
	OverallSuccess        bool
	AutocorrectionApplied bool
	RollbackExecuted      bool
}

// Executor drives the §4.7 algorithm for one subtask at a time. It holds
// no package-level mutable state; one Executor is built per task
// execution by the orchestrator (§5).
type Executor struct {
	transport   transport.Transport
	idempotency *idempotency.System
	autocorrect *autocorrect.Engine
	errors      *errtrack.Tracker
	snapshots   *idempotency.SnapshotManager
	rollback    *idempotency.RollbackPlanner
	safety      transport.Validator

	inferer *idempotency.Inferer

	cfg       core.ExecutorConfig
	logger    core.Logger
	telemetry core.Telemetry
}

// New builds an Executor from its collaborators. Any of idempotency,
// autocorrect, errors, snapshots, safety may be nil to disable that
// concern (a nil safety disables the C1 gate on simulated commands only
// — the real transport still enforces its own gate per §4). telemetry
// may be nil, in which case spans/metrics are discarded.
func New(
	tr transport.Transport,
	idem *idempotency.System,
	ac *autocorrect.Engine,
	errs *errtrack.Tracker,
	snapshots *idempotency.SnapshotManager,
	safety transport.Validator,
	cfg core.ExecutorConfig,
	logger core.Logger,
	telemetry core.Telemetry,
) *Executor {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	if telemetry == nil {
		telemetry = core.NoOpTelemetry{}
	}
	if idem != nil && tr != nil {
		idem.SetProber(proberAdapter{tr})
	}
	return &Executor{
		transport:   tr,
		idempotency: idem,
		autocorrect: ac,
		errors:      errs,
		snapshots:   snapshots,
		rollback:    idempotency.NewRollbackPlanner(),
		safety:      safety,
		inferer:     idempotency.NewInferer(),
		cfg:         cfg,
		logger:      logger,
		telemetry:   telemetry,
	}
}

// ExecuteSubtask runs ec.Subtask's commands, then its health checks, per
// the seven-step algorithm in §4.7.
func (e *Executor) ExecuteSubtask(ctx context.Context, ec core.ExecutionContext) SubtaskExecutionResult {
	ctx, span := e.telemetry.StartSpan(ctx, "executor.execute_subtask")
	defer span.End()
	span.SetAttribute("subtask_id", ec.Subtask.ID)

	start := time.Now()
	subtask := ec.Subtask
	vctx := core.ValidationContext{TaskID: ec.TaskID, StepID: ec.StepID}

	result := SubtaskExecutionResult{SubtaskID: subtask.ID}

	timeout := subtask.CommandTimeout
	if timeout <= 0 {
		timeout = e.cfg.CommandTimeout
	}

	// Step 1: run each command in order, short-circuiting on a critical
	// command failure.
	brokeOnCritical := false
	for _, command := range subtask.Commands {
		cr := e.runOneCommand(ctx, command, ec, timeout, vctx)
		result.CommandResults = append(result.CommandResults, cr)
		e.record(ec.StepID, cr)

		if !cr.Success && isCriticalCommand(command) {
			brokeOnCritical = true
			break
		}
	}

	// Step 2: auto-correct failed commands, if enabled and we didn't
	// break out on a critical failure.
	anyFailed := false
	for _, cr := range result.CommandResults {
		if !cr.Success {
			anyFailed = true
			break
		}
	}
	if anyFailed && !brokeOnCritical && e.cfg.AutoCorrectionEnabled && e.autocorrect != nil {
		for i, cr := range result.CommandResults {
			if cr.Success {
				continue
			}
			corrected := e.autocorrect.Correct(ctx, cr, e.transport, vctx)
			if corrected.Success {
				result.AutocorrectionApplied = true
				final := corrected.Attempts[len(corrected.Attempts)-1].TestResult
				final.Metadata.Autocorrected = true
				for _, attempt := range corrected.Attempts {
					final.Metadata.CorrectionHistory = append(final.Metadata.CorrectionHistory, core.CorrectionAttemptRef{
						Strategy:  attempt.Strategy,
						Original:  attempt.Original,
						Corrected: attempt.Corrected,
						Success:   attempt.Success,
					})
				}
				result.CommandResults[i] = final
				e.record(ec.StepID, final)
			}
		}
	}

	// Step 3 & 4: if every command now succeeds, run health checks; no
	// autocorrection is applied to health checks.
	allCommandsOK := true
	for _, cr := range result.CommandResults {
		if !cr.Success {
			allCommandsOK = false
			break
		}
	}
	allHealthOK := true
	if allCommandsOK {
		for _, check := range subtask.HealthChecks {
			cr := e.runOneCommand(ctx, check, ec, timeout, vctx)
			result.HealthCheckResults = append(result.HealthCheckResults, cr)
			e.record(ec.StepID, cr)
			if !cr.Success {
				allHealthOK = false
			}
		}
	}

	result.OverallSuccess = allCommandsOK && allHealthOK

	// Step 5: best-effort rollback on failure (never in a dry run, which
	// puts nothing on the wire).
	if !result.OverallSuccess && len(subtask.RollbackCommands) > 0 && !ec.DryRun {
		e.executeRollback(ctx, subtask.RollbackCommands, ec, timeout, vctx)
		result.RollbackExecuted = true
	}

	// Step 6: progress callback.
	for _, cr := range result.CommandResults {
		if !cr.Success {
			result.ErrorCount++
		}
	}
	if ec.ProgressCallback != nil {
		ec.ProgressCallback(core.ProgressEvent{
			TaskID:    ec.TaskID,
			StepID:    ec.StepID,
			SubtaskID: subtask.ID,
			Message:   "subtask execution complete",
			Timestamp: time.Now(),
		})
	}

	result.Duration = time.Since(start)

	status := "success"
	if !result.OverallSuccess {
		status = "failure"
	}
	e.telemetry.RecordMetric("executor.subtasks.total", 1, map[string]string{"status": status})
	e.telemetry.RecordMetric("executor.subtasks.duration_ms", float64(result.Duration.Milliseconds()), nil)

	return result
}

// runOneCommand implements §4.7 step 1's (a)/(b): idempotency skip check,
// then dry-run simulation or real execution. A dry run skips the
// idempotency probe, since the probe would run over the transport.
func (e *Executor) runOneCommand(ctx context.Context, command string, ec core.ExecutionContext, timeout time.Duration, vctx core.ValidationContext) core.CommandResult {
	if e.idempotency != nil && !ec.DryRun {
		if skip, synthetic, err := e.idempotency.ShouldSkip(ctx, command); err == nil && skip {
			return synthetic
		}
	}

	if ec.DryRun {
		if e.safety != nil {
			if result := e.safety.Validate(command, vctx); !result.Valid || result.SecurityLevel == core.SecurityForbidden {
				return core.CommandResult{
					Command:   command,
					Success:   false,
					ExitCode:  1,
					Error:     "command refused by safety validator",
					Status:    core.CommandFailed,
					Timestamp: time.Now(),
				}
			}
		}
		sim := dryrun.Simulate([]string{command})
		if len(sim.SimulatedCommands) > 0 {
			return sim.SimulatedCommands[0]
		}
	}

	if e.transport == nil {
		return core.CommandResult{Command: command, Success: false, Error: "no transport configured", Timestamp: time.Now()}
	}

	cr, err := e.transport.ExecuteCommand(ctx, command, timeout, vctx)
	if err != nil && cr.Error == "" {
		cr.Error = err.Error()
	}
	e.recordSnapshotMutation(ec.TaskID, command, cr)
	time.Sleep(interCommandPause)
	return cr
}

// interCommandPause smooths transient I/O contention between commands
// (§4.7: "SHOULD inject a ≤ 100 ms pause").
const interCommandPause = 50 * time.Millisecond

func (e *Executor) record(stepID string, cr core.CommandResult) {
	if e.errors == nil {
		return
	}
	e.errors.RecordAttempt(stepID, cr.Command, cr.Success, cr.Duration, cr.ExitCode, cr.Error, cr.Metadata.Autocorrected)
}

// proberAdapter satisfies idempotency.Prober by calling through to a
// transport.Transport with an empty ValidationContext — idempotency
// probes are read-only precondition checks, not identity-scoped
// commands, so no caller identity is needed for the safety check they
// still pass through.
type proberAdapter struct {
	tr transport.Transport
}

func (p proberAdapter) ExecuteCommand(ctx context.Context, command string, timeout time.Duration) (core.CommandResult, error) {
	return p.tr.ExecuteCommand(ctx, command, timeout, core.ValidationContext{})
}

// recordSnapshotMutation appends a successful mutating command's effect
// to the task's StateSnapshot, so RollbackPlanner can later undo it.
func (e *Executor) recordSnapshotMutation(taskID, command string, cr core.CommandResult) {
	if e.snapshots == nil || !cr.Success {
		return
	}
	mutType, target, ok := e.inferer.Infer(command)
	if !ok {
		return
	}
	switch mutType {
	case idempotency.MutationInstallPackage:
		e.snapshots.RecordPackageInstalled(taskID, target)
	case idempotency.MutationStartService:
		e.snapshots.RecordServiceStarted(taskID, target)
	case idempotency.MutationEnableService:
		e.snapshots.RecordServiceEnabled(taskID, target)
	case idempotency.MutationCreateFile, idempotency.MutationCreateDirectory:
		e.snapshots.RecordFileCreated(taskID, target)
	case idempotency.MutationCreateUser:
		e.snapshots.RecordUserCreated(taskID, target)
	case idempotency.MutationCreateGroup:
		e.snapshots.RecordGroupCreated(taskID, target)
	}
}

func (e *Executor) executeRollback(ctx context.Context, commands []string, ec core.ExecutionContext, timeout time.Duration, vctx core.ValidationContext) {
	if e.transport == nil {
		return
	}
	for _, command := range commands {
		if _, err := e.transport.ExecuteCommand(ctx, command, timeout, vctx); err != nil {
			e.logger.Warn("rollback step failed, continuing", map[string]interface{}{
				"task_id": ec.TaskID,
				"command": command,
				"error":   err.Error(),
			})
		}
	}
}

// Package orchestrator implements the Orchestrator (C11, §4.10): the
// five-step lifecycle that drives one goal to completion on one host,
// wiring together the Task Planner, Subtask Planner, Command Executor,
// Error Tracker, and Idempotency System built by the rest of this module.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/LLprod39/agent-ssh-dev-sub001/autocorrect"
	"github.com/LLprod39/agent-ssh-dev-sub001/core"
	"github.com/LLprod39/agent-ssh-dev-sub001/errtrack"
	"github.com/LLprod39/agent-ssh-dev-sub001/executor"
	"github.com/LLprod39/agent-ssh-dev-sub001/idempotency"
	"github.com/LLprod39/agent-ssh-dev-sub001/llm"
	"github.com/LLprod39/agent-ssh-dev-sub001/planner"
	"github.com/LLprod39/agent-ssh-dev-sub001/safety"
	"github.com/LLprod39/agent-ssh-dev-sub001/transport"
)

// defaultMaxHistory caps the in-memory execution history kept by one
// Orchestrator instance (§4.10: "a capped history of past executions").
const defaultMaxHistory = 200

// TransportFactory builds the Transport used for one task execution.
// Orchestrator calls this once per ExecuteTask call (§5: the SSH
// connection "is owned by the orchestrator for one task and is not
// shared across tasks"). Tests supply a factory returning a fake
// transport; production code leaves it nil and gets a fresh
// transport.SSHTransport per task.
type TransportFactory func(profile core.ServerProfile, validator transport.Validator, logger core.Logger) transport.Transport

func defaultTransportFactory(profile core.ServerProfile, validator transport.Validator, logger core.Logger) transport.Transport {
	return transport.New(profile, validator, logger)
}

// ExecutionOptions customizes one ExecuteTask call.
type ExecutionOptions struct {
	DryRun                  bool
	AutoRollback            bool
	ProgressCallback        func(core.ProgressEvent)
	HumanEscalationCallback func(ctx context.Context, stepID string, stats core.StepErrorStats)
}

// StepExecutionResult summarizes one TaskStep's run.
type StepExecutionResult struct {
	StepID          string
	Title           string
	Success         bool
	Replanned       bool
	EscalationLevel core.EscalationLevel
	SubtaskResults  []executor.SubtaskExecutionResult
	PlanningIssues  []string
}

// TaskExecutionResult is ExecuteTask's return value and the unit stored
// in the execution history (§4.10's Contract).
type TaskExecutionResult struct {
	TaskID           string
	Goal             string
	Success          bool
	Aborted          bool
	Task             *core.Task
	StepResults      []StepExecutionResult
	Escalations      int
	RollbackExecuted bool
	Diagnostic       string
	StartedAt        time.Time
	CompletedAt      time.Time
	Duration         time.Duration
}

// Orchestrator drives §4.10's lifecycle. One instance owns its own
// planners, validator, idempotency cache/system, autocorrection engine,
// error tracker, and snapshot manager — all safe to reuse across many
// ExecuteTask calls on separate goroutines (§5: independent task
// executions "are independent and MAY proceed concurrently at the
// process level"); only the transport is rebuilt per task.
type Orchestrator struct {
	cfg       core.Config
	profile   core.ServerProfile
	logger    core.Logger
	telemetry core.Telemetry

	transportFactory TransportFactory

	taskPlanner    *planner.TaskPlanner
	subtaskPlanner *planner.SubtaskPlanner
	validator      *safety.Validator
	idemCache      idempotency.Cache
	idemSystem     *idempotency.System
	autocorrect    *autocorrect.Engine
	errTracker     *errtrack.Tracker
	snapshots      *idempotency.SnapshotManager

	mu         sync.Mutex
	history    []TaskExecutionResult
	maxHistory int
	stats      Statistics
}

// New builds an Orchestrator from cfg, profile, and an LLM client. If
// transportFactory is nil, a real transport.SSHTransport is dialed per
// task. telemetry may be nil, in which case spans and metrics are
// discarded (core.NoOpTelemetry).
func New(cfg core.Config, profile core.ServerProfile, llmClient *llm.Client, transportFactory TransportFactory, logger core.Logger, telemetry core.Telemetry) (*Orchestrator, error) {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	if transportFactory == nil {
		transportFactory = defaultTransportFactory
	}
	if telemetry == nil {
		telemetry = core.NoOpTelemetry{}
	}

	validator := safety.New(cfg.Security, logger)

	idemCache, err := idempotency.NewCache(cfg.Idempotency, logger)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: build idempotency cache: %w", err)
	}
	idemSystem := idempotency.NewSystem(idemCache, nil, cfg.Idempotency.CacheTTL, logger)

	errPolicy := errtrack.NewRuleBasedPolicy(cfg.ErrorHandler)
	errTracker := errtrack.New(cfg.ErrorHandler, errPolicy, logger)

	o := &Orchestrator{
		cfg:              cfg,
		profile:          profile,
		logger:           logger,
		telemetry:        telemetry,
		transportFactory: transportFactory,
		taskPlanner:      planner.NewTaskPlanner(llmClient, cfg.TaskAgent),
		subtaskPlanner:   planner.NewSubtaskPlanner(llmClient, validator, cfg.SubtaskAgent),
		validator:        validator,
		idemCache:        idemCache,
		idemSystem:       idemSystem,
		autocorrect:      autocorrect.New(cfg.Executor, logger),
		errTracker:       errTracker,
		snapshots:        idempotency.NewSnapshotManager(cfg.Idempotency.MaxSnapshots, cfg.Idempotency.PreserveSnapshots),
		maxHistory:       defaultMaxHistory,
	}
	return o, nil
}

// ExecuteTask drives §4.10's five-step lifecycle for goal on the
// configured server profile.
func (o *Orchestrator) ExecuteTask(ctx context.Context, goal string, opts ExecutionOptions) TaskExecutionResult {
	ctx, span := o.telemetry.StartSpan(ctx, "orchestrator.execute_task")
	defer span.End()
	span.SetAttribute("dry_run", opts.DryRun)

	started := time.Now()
	result := TaskExecutionResult{Goal: goal, StartedAt: started}

	tr := o.transportFactory(o.profile, o.validator, o.logger)
	exec := executor.New(tr, o.idemSystem, o.autocorrect, o.errTracker, o.snapshots, o.validator, o.cfg.Executor, o.logger, o.telemetry)

	// Step 1: ask the Task Planner for a Task.
	planningEC := core.ExecutionContext{
		ServerFacts: core.ServerFacts{
			OS:                o.profile.OSType,
			InstalledPackages: o.profile.InstalledPackages,
			InstalledServices: o.profile.InstalledServices,
		},
		DryRun: opts.DryRun,
	}
	planResult := o.taskPlanner.PlanTask(ctx, goal, planningEC)
	if !planResult.Success {
		result.Diagnostic = "task planning failed: " + planResult.Diagnostic
		result.CompletedAt = time.Now()
		result.Duration = result.CompletedAt.Sub(started)
		o.finish(result)
		return result
	}
	task := planResult.Task
	task.ID = uuid.NewString()
	task.Status = core.TaskPlanning
	result.Task = task
	result.TaskID = task.ID
	span.SetAttribute("task_id", task.ID)

	// Step 2: connect and populate server facts. A dry run keeps the
	// profile's static facts and sends no probe command.
	if err := tr.Connect(ctx); err != nil {
		result.Diagnostic = "ssh connect failed: " + err.Error()
		task.Status = core.TaskFailed
		result.CompletedAt = time.Now()
		result.Duration = result.CompletedAt.Sub(started)
		o.finish(result)
		return result
	}
	defer tr.Disconnect()

	timeout := o.cfg.Executor.CommandTimeout
	facts := planningEC.ServerFacts
	if !opts.DryRun {
		facts = gatherServerFacts(ctx, tr, o.profile, timeout)
	}

	// Step 3: create an idempotency snapshot for this task.
	o.snapshots.CreateStateSnapshot(task.ID, facts)

	task.Status = core.TaskRunning
	aborted := false

	// Step 4: run every step in dependency order (already topologically
	// sorted by the Task Planner).
	for _, step := range task.Steps {
		if aborted {
			step.Status = core.StepSkipped
			continue
		}

		step.Status = core.StepRunning
		stepResult := o.runStep(ctx, task, step, facts, exec, opts)
		result.StepResults = append(result.StepResults, stepResult)

		if stepResult.EscalationLevel == core.EscalationEmergencyStop {
			aborted = true
			step.Status = core.StepFailed
			continue
		}

		if stepResult.Success {
			step.Status = core.StepCompleted
		} else {
			step.Status = core.StepFailed
		}
	}

	result.Aborted = aborted
	overallSuccess := !aborted
	for _, sr := range result.StepResults {
		if !sr.Success {
			overallSuccess = false
		}
		if sr.EscalationLevel != core.EscalationNone {
			result.Escalations++
		}
	}
	result.Success = overallSuccess

	if overallSuccess {
		task.Status = core.TaskCompleted
	} else {
		task.Status = core.TaskFailed
	}
	now := time.Now()
	task.CompletedAt = &now

	// Step 5: optional rollback from the snapshot.
	if !overallSuccess && (aborted || opts.AutoRollback || o.cfg.Idempotency.AutoRollback) {
		if o.rollbackTask(ctx, tr, task.ID, timeout) {
			result.RollbackExecuted = true
		}
	}
	o.snapshots.Discard(task.ID)

	result.CompletedAt = time.Now()
	result.Duration = result.CompletedAt.Sub(started)
	o.finish(result)
	return result
}

// runStep asks the Subtask Planner to expand step, then drives each
// subtask through the executor, consulting the error tracker after each
// one (§4.10 step 4c).
func (o *Orchestrator) runStep(ctx context.Context, task *core.Task, step *core.TaskStep, facts core.ServerFacts, exec *executor.Executor, opts ExecutionOptions) StepExecutionResult {
	stepResult := StepExecutionResult{StepID: step.ID, Title: step.Title, Success: true}

	ec := core.ExecutionContext{
		StepID:           step.ID,
		TaskID:           task.ID,
		ServerFacts:      facts,
		DryRun:           opts.DryRun,
		ProgressCallback: opts.ProgressCallback,
	}

	planResult := o.subtaskPlanner.PlanSubtasks(ctx, step, ec)
	if !planResult.Success {
		stepResult.Success = false
		stepResult.PlanningIssues = []string{planResult.Diagnostic}
		return stepResult
	}
	stepResult.PlanningIssues = planResult.Issues
	step.Subtasks = planResult.Subtasks

	subtasks := planResult.Subtasks
	replanned := false

	for i := 0; i < len(subtasks); i++ {
		subtask := subtasks[i]
		subEC := ec
		subEC.Subtask = subtask

		subResult := exec.ExecuteSubtask(ctx, subEC)
		stepResult.SubtaskResults = append(stepResult.SubtaskResults, subResult)
		if !subResult.OverallSuccess {
			stepResult.Success = false
		}

		level := o.errTracker.GetEscalationLevel(step.ID)
		stepResult.EscalationLevel = level

		switch level {
		case core.EscalationEmergencyStop:
			return stepResult

		case core.EscalationHuman:
			if opts.HumanEscalationCallback != nil {
				opts.HumanEscalationCallback(ctx, step.ID, o.errTracker.GetSummary(step.ID))
			}
			stepResult.Success = false
			return stepResult

		case core.EscalationPlanner:
			if !replanned {
				revised := o.subtaskPlanner.PlanSubtasks(ctx, step, ec)
				if revised.Success {
					subtasks = revised.Subtasks
					step.Subtasks = subtasks
					stepResult.Replanned = true
					replanned = true
					i = -1
					continue
				}
			}
		}
	}

	return stepResult
}

// rollbackTask runs the best-effort inverse command sequence for
// taskID's snapshot over tr, tolerating individual command failures.
func (o *Orchestrator) rollbackTask(ctx context.Context, tr transport.Transport, taskID string, timeout time.Duration) bool {
	snap, ok := o.snapshots.Get(taskID)
	if !ok {
		return false
	}
	rollbackPlanner := idempotency.NewRollbackPlanner()
	commands := rollbackPlanner.CreateRollbackCommands(snap)
	if len(commands) == 0 {
		return false
	}
	vctx := core.ValidationContext{TaskID: taskID}
	for _, command := range commands {
		if _, err := tr.ExecuteCommand(ctx, command, timeout, vctx); err != nil {
			o.logger.Warn("task rollback step failed, continuing", map[string]interface{}{
				"task_id": taskID,
				"command": command,
				"error":   err.Error(),
			})
		}
	}
	return true
}

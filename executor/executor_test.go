package executor_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LLprod39/agent-ssh-dev-sub001/core"
	"github.com/LLprod39/agent-ssh-dev-sub001/executor"
)

// scriptedTransport returns results keyed by command text, recording the
// call order so tests can assert on short-circuit/rollback behavior.
type scriptedTransport struct {
	byCommand map[string]core.CommandResult
	calls     []string
}

func (s *scriptedTransport) Connect(ctx context.Context) error { return nil }

func (s *scriptedTransport) ExecuteCommand(ctx context.Context, command string, timeout time.Duration, vctx core.ValidationContext) (core.CommandResult, error) {
	s.calls = append(s.calls, command)
	if cr, ok := s.byCommand[command]; ok {
		cr.Command = command
		return cr, nil
	}
	return core.CommandResult{Command: command, Success: true, ExitCode: 0}, nil
}

func (s *scriptedTransport) UploadFile(ctx context.Context, local, remote string) error   { return nil }
func (s *scriptedTransport) DownloadFile(ctx context.Context, remote, local string) error { return nil }
func (s *scriptedTransport) Disconnect() error                                           { return nil }

func cfg() core.ExecutorConfig {
	return core.ExecutorConfig{
		MaxRetriesPerCommand:  3,
		AutoCorrectionEnabled: false,
		CommandTimeout:        time.Second,
	}
}

func TestExecuteSubtaskAllCommandsSucceed(t *testing.T) {
	tr := &scriptedTransport{byCommand: map[string]core.CommandResult{}}
	ex := executor.New(tr, nil, nil, nil, nil, nil, cfg(), core.NoOpLogger{}, nil)

	subtask := &core.Subtask{
		ID:           "st-1",
		Commands:     []string{"echo one", "echo two"},
		HealthChecks: []string{"echo health"},
	}
	result := ex.ExecuteSubtask(context.Background(), core.ExecutionContext{Subtask: subtask, TaskID: "t1", StepID: "s1"})

	require.True(t, result.OverallSuccess)
	assert.Len(t, result.CommandResults, 2)
	assert.Len(t, result.HealthCheckResults, 1)
	assert.Equal(t, 0, result.ErrorCount)
	assert.False(t, result.RollbackExecuted)
}

func TestExecuteSubtaskBreaksOnCriticalFailure(t *testing.T) {
	tr := &scriptedTransport{byCommand: map[string]core.CommandResult{
		"systemctl start nginx": {Success: false, ExitCode: 1, Stderr: "failed"},
	}}
	ex := executor.New(tr, nil, nil, nil, nil, nil, cfg(), core.NoOpLogger{}, nil)

	subtask := &core.Subtask{
		ID:       "st-2",
		Commands: []string{"systemctl start nginx", "echo should-not-run"},
	}
	result := ex.ExecuteSubtask(context.Background(), core.ExecutionContext{Subtask: subtask, TaskID: "t1", StepID: "s1"})

	assert.False(t, result.OverallSuccess)
	assert.Len(t, result.CommandResults, 1, "must not proceed past a critical command failure")
	assert.Len(t, tr.calls, 1)
}

func TestExecuteSubtaskRollsBackOnFailure(t *testing.T) {
	tr := &scriptedTransport{byCommand: map[string]core.CommandResult{
		"false": {Success: false, ExitCode: 1, Stderr: "boom"},
	}}
	ex := executor.New(tr, nil, nil, nil, nil, nil, cfg(), core.NoOpLogger{}, nil)

	subtask := &core.Subtask{
		ID:               "st-3",
		Commands:         []string{"false"},
		RollbackCommands: []string{"echo undo-1", "echo undo-2"},
	}
	result := ex.ExecuteSubtask(context.Background(), core.ExecutionContext{Subtask: subtask, TaskID: "t1", StepID: "s1"})

	assert.False(t, result.OverallSuccess)
	assert.True(t, result.RollbackExecuted)
	assert.Contains(t, tr.calls, "echo undo-1")
	assert.Contains(t, tr.calls, "echo undo-2")
}

func TestExecuteSubtaskDryRunNeverCallsTransport(t *testing.T) {
	tr := &scriptedTransport{byCommand: map[string]core.CommandResult{}}
	ex := executor.New(tr, nil, nil, nil, nil, nil, cfg(), core.NoOpLogger{}, nil)

	subtask := &core.Subtask{ID: "st-4", Commands: []string{"rm -rf /tmp/test"}}
	result := ex.ExecuteSubtask(context.Background(), core.ExecutionContext{Subtask: subtask, TaskID: "t1", StepID: "s1", DryRun: true})

	assert.Empty(t, tr.calls, "dry-run must never reach the transport (Invariant 7)")
	assert.Len(t, result.CommandResults, 1)
	assert.True(t, result.CommandResults[0].Metadata.DryRun)
}

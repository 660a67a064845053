package orchestrator_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LLprod39/agent-ssh-dev-sub001/core"
	"github.com/LLprod39/agent-ssh-dev-sub001/llm"
	"github.com/LLprod39/agent-ssh-dev-sub001/llm/providers/mock"
	"github.com/LLprod39/agent-ssh-dev-sub001/orchestrator"
	"github.com/LLprod39/agent-ssh-dev-sub001/transport"
)

// alwaysSucceedTransport is a fake transport.Transport that reports
// every command, upload, and download as successful, and every probe as
// empty output — good enough for the orchestrator's lifecycle plumbing,
// which this package tests independent of real SSH I/O.
type alwaysSucceedTransport struct {
	connected bool
	calls     []string
}

func (t *alwaysSucceedTransport) Connect(ctx context.Context) error {
	t.connected = true
	return nil
}

func (t *alwaysSucceedTransport) ExecuteCommand(ctx context.Context, command string, timeout time.Duration, vctx core.ValidationContext) (core.CommandResult, error) {
	t.calls = append(t.calls, command)
	return core.CommandResult{Command: command, Success: true, ExitCode: 0, Stdout: ""}, nil
}

func (t *alwaysSucceedTransport) UploadFile(ctx context.Context, local, remote string) error   { return nil }
func (t *alwaysSucceedTransport) DownloadFile(ctx context.Context, remote, local string) error { return nil }
func (t *alwaysSucceedTransport) Disconnect() error                                            { return nil }

func testConfig() core.Config {
	return core.Config{
		LLM:          core.LLMConfig{Provider: "mock", Model: "mock", Timeout: 5 * time.Second},
		TaskAgent:    core.TaskAgentConfig{MaxSteps: 10},
		SubtaskAgent: core.SubtaskAgentConfig{MaxSubtasks: 10},
		Executor:     core.ExecutorConfig{CommandTimeout: time.Second},
		ErrorHandler: core.ErrorHandlerConfig{ErrorThresholdPerStep: 5, HumanEscalationThreshold: 10},
		Idempotency:  core.IdempotencyConfig{Backend: "memory", CacheTTL: time.Minute},
		Security:     core.SecurityConfig{ValidateCommands: true},
	}
}

func newTestOrchestrator(t *testing.T, tr transport.Transport) (*orchestrator.Orchestrator, *mock.Client) {
	t.Helper()
	m := mock.New()
	client := llm.NewClient(testConfig().LLM, m, m, nil)

	factory := func(profile core.ServerProfile, validator transport.Validator, logger core.Logger) transport.Transport {
		return tr
	}

	o, err := orchestrator.New(testConfig(), core.ServerProfile{Host: "test-host", OSType: "ubuntu"}, client, factory, nil, nil)
	require.NoError(t, err)
	return o, m
}

func TestExecuteTaskHappyPathCompletesEveryStep(t *testing.T) {
	tr := &alwaysSucceedTransport{}
	o, _ := newTestOrchestrator(t, tr)

	result := o.ExecuteTask(context.Background(), "install and start nginx via a step plan", orchestrator.ExecutionOptions{})

	require.True(t, result.Success, result.Diagnostic)
	assert.True(t, tr.connected)
	assert.NotEmpty(t, result.StepResults)
	for _, sr := range result.StepResults {
		assert.True(t, sr.Success)
	}
	assert.False(t, result.RollbackExecuted)
}

func TestExecuteTaskRecordsHistoryAndStatistics(t *testing.T) {
	tr := &alwaysSucceedTransport{}
	o, _ := newTestOrchestrator(t, tr)

	result := o.ExecuteTask(context.Background(), "set up a service via a step plan", orchestrator.ExecutionOptions{})
	require.True(t, result.Success)

	status, ok := o.GetStatus(result.TaskID)
	require.True(t, ok)
	assert.Equal(t, result.TaskID, status.TaskID)

	history := o.GetHistory(0)
	require.Len(t, history, 1)

	stats := o.GetStatistics()
	assert.Equal(t, 1, stats.TasksExecuted)
	assert.Equal(t, 1, stats.TasksCompleted)
	assert.Equal(t, 0, stats.TasksFailed)
}

func TestExecuteTaskDryRunNeverCallsTransportExecuteCommand(t *testing.T) {
	tr := &alwaysSucceedTransport{}
	o, _ := newTestOrchestrator(t, tr)

	result := o.ExecuteTask(context.Background(), "install and start nginx via a step plan", orchestrator.ExecutionOptions{DryRun: true})

	require.True(t, result.Success, result.Diagnostic)
	assert.Empty(t, tr.calls)
}

func TestExecuteTaskConnectFailureIsReportedWithoutPanicking(t *testing.T) {
	o, _ := newTestOrchestrator(t, &failingConnectTransport{})

	result := o.ExecuteTask(context.Background(), "set up a service via a step plan", orchestrator.ExecutionOptions{})
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Diagnostic)
}

type failingConnectTransport struct{}

func (failingConnectTransport) Connect(ctx context.Context) error { return assertErr }

func (failingConnectTransport) ExecuteCommand(ctx context.Context, command string, timeout time.Duration, vctx core.ValidationContext) (core.CommandResult, error) {
	return core.CommandResult{}, assertErr
}
func (failingConnectTransport) UploadFile(ctx context.Context, local, remote string) error   { return nil }
func (failingConnectTransport) DownloadFile(ctx context.Context, remote, local string) error { return nil }
func (failingConnectTransport) Disconnect() error                                            { return nil }

var assertErr = &connectError{}

type connectError struct{}

func (*connectError) Error() string { return "simulated connect failure" }

func TestCleanupOldDataDropsOldHistoryAndKeepsRecent(t *testing.T) {
	tr := &alwaysSucceedTransport{}
	o, _ := newTestOrchestrator(t, tr)

	result := o.ExecuteTask(context.Background(), "set up a service via a step plan", orchestrator.ExecutionOptions{})
	require.True(t, result.Success)

	dropped := o.CleanupOldData(time.Hour)
	assert.Equal(t, 0, dropped)

	dropped = o.CleanupOldData(-time.Hour)
	assert.Equal(t, 1, dropped)
	assert.Empty(t, o.GetHistory(0))
}

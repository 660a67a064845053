package autocorrect_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/LLprod39/agent-ssh-dev-sub001/autocorrect"
	"github.com/LLprod39/agent-ssh-dev-sub001/core"
)

// stubTransport returns a scripted result for each ExecuteCommand call,
// by index, so tests can simulate "the corrected command succeeds".
type stubTransport struct {
	results []core.CommandResult
	calls   []string
}

func (s *stubTransport) Connect(ctx context.Context) error { return nil }
func (s *stubTransport) ExecuteCommand(ctx context.Context, command string, timeout time.Duration, vctx core.ValidationContext) (core.CommandResult, error) {
	s.calls = append(s.calls, command)
	idx := len(s.calls) - 1
	if idx >= len(s.results) {
		return core.CommandResult{Command: command, Success: false}, nil
	}
	r := s.results[idx]
	r.Command = command
	return r, nil
}
func (s *stubTransport) UploadFile(ctx context.Context, local, remote string) error   { return nil }
func (s *stubTransport) DownloadFile(ctx context.Context, remote, local string) error { return nil }
func (s *stubTransport) Disconnect() error                                           { return nil }

func engineWithAll() *autocorrect.Engine {
	return autocorrect.New(core.ExecutorConfig{
		AutocorrectionMaxAttempts: 3,
		AutocorrectionTimeout:     time.Second,
		EnablePermissionFix:       true,
		EnableCommandSubstitution: true,
		EnablePackageUpdate:       true,
		EnableServiceRestart:      true,
		EnableNetworkCheck:        true,
		EnablePathCorrection:      true,
		EnableSyntaxCheck:         true,
		EnableAlternativeFlags:    true,
	}, core.NoOpLogger{})
}

func TestCorrectPermissionFixSucceeds(t *testing.T) {
	e := engineWithAll()
	tr := &stubTransport{results: []core.CommandResult{{Success: true, ExitCode: 0}}}

	failed := core.CommandResult{Command: "apt install nginx", Stderr: "permission denied"}
	result := e.Correct(context.Background(), failed, tr, core.ValidationContext{})

	assert.True(t, result.Success)
	assert.Equal(t, "sudo apt install nginx", result.FinalCommand)
	assert.Len(t, result.Attempts, 1)
	assert.Equal(t, "permission-fix", result.Attempts[0].Strategy)
}

func TestCorrectStopsWhenNoFurtherStrategyApplies(t *testing.T) {
	e := engineWithAll()
	tr := &stubTransport{results: []core.CommandResult{
		{Success: false, Stderr: "permission denied"},
	}}

	failed := core.CommandResult{Command: "apt install nginx", Stderr: "permission denied"}
	result := e.Correct(context.Background(), failed, tr, core.ValidationContext{})

	assert.False(t, result.Success)
	assert.Len(t, result.Attempts, 1)
}

func TestCorrectNoStrategyMatchesReturnsNoAttempts(t *testing.T) {
	e := engineWithAll()
	tr := &stubTransport{}

	failed := core.CommandResult{Command: "echo hi", Stderr: "unrelated error"}
	result := e.Correct(context.Background(), failed, tr, core.ValidationContext{})

	assert.False(t, result.Success)
	assert.Empty(t, result.Attempts)
}

func TestCommandSubstitutionRewrite(t *testing.T) {
	e := engineWithAll()
	tr := &stubTransport{results: []core.CommandResult{{Success: true}}}

	failed := core.CommandResult{Command: "service nginx restart", Stderr: "command not found"}
	result := e.Correct(context.Background(), failed, tr, core.ValidationContext{})

	assert.True(t, result.Success)
	assert.Equal(t, "systemctl nginx restart", result.FinalCommand)
}

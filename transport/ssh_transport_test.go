package transport_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/LLprod39/agent-ssh-dev-sub001/core"
	"github.com/LLprod39/agent-ssh-dev-sub001/transport"
)

type stubValidator struct {
	result core.ValidationResult
}

func (s stubValidator) Validate(string, core.ValidationContext) core.ValidationResult {
	return s.result
}

func TestExecuteCommandRefusesForbiddenBeforeWire(t *testing.T) {
	v := stubValidator{result: core.ValidationResult{Valid: false, SecurityLevel: core.SecurityForbidden}}
	tr := transport.New(core.ServerProfile{}, v, core.NoOpLogger{})

	_, err := tr.ExecuteCommand(context.Background(), "rm -rf /", 0, core.ValidationContext{})

	assert.Error(t, err)
	assert.ErrorIs(t, err, core.ErrTransportRefused)
}

func TestExecuteCommandFailsClosedWithoutValidator(t *testing.T) {
	tr := transport.New(core.ServerProfile{}, nil, core.NoOpLogger{})

	_, err := tr.ExecuteCommand(context.Background(), "echo hi", 0, core.ValidationContext{})

	assert.Error(t, err)
	assert.ErrorIs(t, err, core.ErrTransportRefused)
}

func TestExecuteCommandWithoutConnectionFails(t *testing.T) {
	v := stubValidator{result: core.ValidationResult{Valid: true, SecurityLevel: core.SecuritySafe}}
	tr := transport.New(core.ServerProfile{}, v, core.NoOpLogger{})

	_, err := tr.ExecuteCommand(context.Background(), "echo hi", 0, core.ValidationContext{})

	assert.Error(t, err)
	assert.ErrorIs(t, err, core.ErrConnectionFailed)
}

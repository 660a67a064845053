package mock_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LLprod39/agent-ssh-dev-sub001/llm/providers/mock"
)

func TestMockDetectsTaskPlanShape(t *testing.T) {
	c := mock.New()

	resp, err := c.GenerateResponse(context.Background(), "Break this goal into ordered steps for a plan.", nil)

	require.NoError(t, err)
	assert.Contains(t, resp.Content, `"steps"`)
}

func TestMockDetectsSubtaskPlanShape(t *testing.T) {
	c := mock.New()

	resp, err := c.GenerateResponse(context.Background(), "List the shell commands for this subtask.", nil)

	require.NoError(t, err)
	assert.Contains(t, resp.Content, `"subtasks"`)
}

func TestMockSetResponsesOverridesDetection(t *testing.T) {
	c := mock.New()
	c.SetResponses("first", "second")

	first, _ := c.GenerateResponse(context.Background(), "plan steps", nil)
	second, _ := c.GenerateResponse(context.Background(), "plan steps", nil)
	_, err := c.GenerateResponse(context.Background(), "plan steps", nil)

	assert.Equal(t, "first", first.Content)
	assert.Equal(t, "second", second.Content)
	assert.Error(t, err)
}

func TestMockIsAlwaysAvailable(t *testing.T) {
	assert.True(t, mock.New().IsAvailable())
}

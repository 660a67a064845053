// Package mock is the deterministic LLM provider required by §4.2: no
// network call, no API key, inspects the prompt for "step"/"plan" versus
// "command"/"subtask" keywords and returns canned structured JSON in the
// matching shape, so the planners and autocorrection engine are testable
// offline.
package mock

import (
	"context"
	"fmt"
	"strings"

	"github.com/LLprod39/agent-ssh-dev-sub001/core"
)

// Client is the mock provider. Zero value is ready to use.
type Client struct {
	CallCount  int
	LastPrompt string
	Responses  []string // when set, returned in order instead of the canned shape
	index      int
	Err        error
}

// New constructs a mock client.
func New() *Client {
	return &Client{}
}

// SetResponses overrides the canned detection with a fixed response
// sequence, for tests that need specific content.
func (c *Client) SetResponses(responses ...string) {
	c.Responses = responses
	c.index = 0
}

// SetError makes every subsequent call fail with err.
func (c *Client) SetError(err error) {
	c.Err = err
}

// IsAvailable is always true — the mock has no external dependency.
func (c *Client) IsAvailable() bool { return true }

// GenerateResponse returns a canned response. If Responses was set via
// SetResponses, those are returned in order; otherwise the prompt is
// inspected for planner-shape keywords per §4.2.
func (c *Client) GenerateResponse(ctx context.Context, prompt string, options *core.AIOptions) (*core.AIResponse, error) {
	c.CallCount++
	c.LastPrompt = prompt

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if c.Err != nil {
		return nil, c.Err
	}

	var content string
	if len(c.Responses) > 0 {
		if c.index >= len(c.Responses) {
			return nil, fmt.Errorf("mock: no more configured responses")
		}
		content = c.Responses[c.index]
		c.index++
	} else {
		content = canned(prompt)
	}

	model := "mock"
	if options != nil && options.Model != "" {
		model = options.Model
	}

	return &core.AIResponse{
		Success: true,
		Content: content,
		Model:   model,
		Usage: core.TokenUsage{
			PromptTokens:     len(prompt) / 4,
			CompletionTokens: len(content) / 4,
			TotalTokens:      (len(prompt) + len(content)) / 4,
		},
	}, nil
}

// canned picks the response shape by keyword: "step"/"plan" implies a
// Task Planner prompt (C10); "command"/"subtask" implies a Subtask
// Planner prompt (C9). Subtask Planner wins when both appear, since a
// subtask prompt also carries its step's title and description.
func canned(prompt string) string {
	lowered := strings.ToLower(prompt)
	hasStepPlan := strings.Contains(lowered, "step") || strings.Contains(lowered, "plan")
	hasCommandSubtask := strings.Contains(lowered, "command") || strings.Contains(lowered, "subtask")

	if hasStepPlan && !hasCommandSubtask {
		return taskPlanResponse
	}
	if hasCommandSubtask {
		return subtaskPlanResponse
	}
	return taskPlanResponse
}

const taskPlanResponse = `{
  "steps": [
    {
      "title": "Verify current state",
      "description": "Check whether the target condition already holds before changing anything.",
      "priority": "medium",
      "estimated_duration_seconds": 300,
      "dependencies": []
    },
    {
      "title": "Apply the requested change",
      "description": "Install, configure, or start the service required by the goal.",
      "priority": "high",
      "estimated_duration_seconds": 900,
      "dependencies": [0]
    }
  ]
}`

const subtaskPlanResponse = `{
  "subtasks": [
    {
      "title": "Install required package",
      "description": "Ensure the package is present using the distribution's package manager.",
      "commands": ["apt-get install -y nginx"],
      "health_checks": ["dpkg -l | grep -q '^ii  nginx'"],
      "rollback_commands": ["apt-get remove -y nginx"],
      "expected_output": "Setting up nginx",
      "dependencies": []
    },
    {
      "title": "Start and enable service",
      "description": "Bring the service up and ensure it starts on boot.",
      "commands": ["systemctl start nginx", "systemctl enable nginx"],
      "health_checks": ["systemctl is-active nginx"],
      "rollback_commands": ["systemctl stop nginx", "systemctl disable nginx"],
      "expected_output": "active",
      "dependencies": [0]
    }
  ]
}`

var _ core.AIClient = (*Client)(nil)

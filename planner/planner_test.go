package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LLprod39/agent-ssh-dev-sub001/core"
	"github.com/LLprod39/agent-ssh-dev-sub001/llm"
	"github.com/LLprod39/agent-ssh-dev-sub001/llm/providers/mock"
)

func newMockClient(t *testing.T) (*llm.Client, *mock.Client) {
	t.Helper()
	m := mock.New()
	cfg := core.LLMConfig{Provider: "mock", Model: "mock", Temperature: 0.2, MaxTokens: 1000}
	return llm.NewClient(cfg, m, m, nil), m
}

type allowAllSafety struct{}

func (allowAllSafety) Validate(string, core.ValidationContext) core.ValidationResult {
	return core.ValidationResult{Valid: true, SecurityLevel: core.SecuritySafe}
}

type denyRMSafety struct{}

func (denyRMSafety) Validate(command string, _ core.ValidationContext) core.ValidationResult {
	if command == "rm -rf /" {
		return core.ValidationResult{Valid: false, SecurityLevel: core.SecurityForbidden}
	}
	return core.ValidationResult{Valid: true, SecurityLevel: core.SecuritySafe}
}

func TestJSONExtractFindsObjectInsideMarkdownFence(t *testing.T) {
	response := "Here is the plan:\n```json\n{\"steps\": [{\"title\": \"a\"}]}\n```\nLet me know if that works."
	raw, err := jsonExtract(response)
	require.NoError(t, err)
	assert.Contains(t, raw, `"title": "a"`)
}

func TestJSONExtractNoObjectReturnsError(t *testing.T) {
	_, err := jsonExtract("no json here at all")
	assert.ErrorIs(t, err, ErrNoJSONObject)
}

func TestJSONExtractIgnoresBracesInsideStrings(t *testing.T) {
	response := `{"title": "contains a { brace } inside a string", "n": 1}`
	raw, err := jsonExtract(response)
	require.NoError(t, err)
	assert.Equal(t, response, raw)
}

func TestDependencyGraphDetectsCycle(t *testing.T) {
	g := NewDependencyGraph()
	g.AddNode("a", []string{"b"})
	g.AddNode("b", []string{"a"})
	assert.Error(t, g.Validate())
}

func TestDependencyGraphDetectsDanglingReference(t *testing.T) {
	g := NewDependencyGraph()
	g.AddNode("a", []string{"missing"})
	assert.Error(t, g.Validate())
}

func TestDependencyGraphTopologicalOrderRespectsDependencies(t *testing.T) {
	g := NewDependencyGraph()
	g.AddNode("a", nil)
	g.AddNode("b", []string{"a"})
	g.AddNode("c", []string{"b"})

	order := g.TopologicalOrder()
	require.Len(t, order, 3)

	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	assert.Less(t, pos["a"], pos["b"])
	assert.Less(t, pos["b"], pos["c"])
}

func TestSubtaskPlannerParsesMockResponseInDependencyOrder(t *testing.T) {
	client, _ := newMockClient(t)
	planner := NewSubtaskPlanner(client, allowAllSafety{}, core.SubtaskAgentConfig{MaxSubtasks: 10})

	ec := core.ExecutionContext{ServerFacts: core.ServerFacts{OS: "ubuntu-22.04"}}
	step := &core.TaskStep{Title: "Install nginx", Description: "Set up the nginx web server via a subtask plan"}

	result := planner.PlanSubtasks(context.Background(), step, ec)
	require.True(t, result.Success, result.Diagnostic)
	require.Len(t, result.Subtasks, 2)

	assert.Equal(t, "Install required package", result.Subtasks[0].Title)
	assert.Equal(t, "Start and enable service", result.Subtasks[1].Title)
	assert.Contains(t, result.Subtasks[1].Dependencies, result.Subtasks[0].ID)
}

func TestSubtaskPlannerRecordsForbiddenCommandButStillReturnsSubtasks(t *testing.T) {
	client, m := newMockClient(t)
	m.SetResponses(`{"subtasks": [{"title": "destroy", "description": "d", "commands": ["rm -rf /"], "dependencies": []}]}`)

	planner := NewSubtaskPlanner(client, denyRMSafety{}, core.SubtaskAgentConfig{MaxSubtasks: 10})
	ec := core.ExecutionContext{ServerFacts: core.ServerFacts{OS: "ubuntu"}}
	step := &core.TaskStep{Title: "t", Description: "d"}

	result := planner.PlanSubtasks(context.Background(), step, ec)
	require.True(t, result.Success)
	require.Len(t, result.Subtasks, 1)
	assert.NotEmpty(t, result.Issues)
}

func TestSubtaskPlannerInvalidJSONReturnsFailure(t *testing.T) {
	client, m := newMockClient(t)
	m.SetResponses("not json at all")

	planner := NewSubtaskPlanner(client, allowAllSafety{}, core.SubtaskAgentConfig{})
	ec := core.ExecutionContext{ServerFacts: core.ServerFacts{OS: "ubuntu"}}
	step := &core.TaskStep{Title: "t", Description: "d"}

	result := planner.PlanSubtasks(context.Background(), step, ec)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Diagnostic)
}

func TestSubtaskPlannerEnrichesHealthChecksForSystemctlAndInstall(t *testing.T) {
	client, m := newMockClient(t)
	m.SetResponses(`{"subtasks": [{"title": "install and start", "description": "d", "commands": ["apt-get install -y nginx", "systemctl start nginx"], "dependencies": []}]}`)

	planner := NewSubtaskPlanner(client, allowAllSafety{}, core.SubtaskAgentConfig{})
	ec := core.ExecutionContext{ServerFacts: core.ServerFacts{OS: "ubuntu"}}
	step := &core.TaskStep{Title: "t", Description: "d"}

	result := planner.PlanSubtasks(context.Background(), step, ec)
	require.True(t, result.Success)
	require.Len(t, result.Subtasks, 1)

	checks := result.Subtasks[0].HealthChecks
	joined := ""
	for _, c := range checks {
		joined += c + "\n"
	}
	assert.Contains(t, joined, "is-system-running")
	assert.Contains(t, joined, "df ")
}

func TestTaskPlannerParsesMockResponseAndOrdersSteps(t *testing.T) {
	client, _ := newMockClient(t)
	planner := NewTaskPlanner(client, core.TaskAgentConfig{MaxSteps: 10})

	ec := core.ExecutionContext{ServerFacts: core.ServerFacts{OS: "ubuntu-22.04"}}
	result := planner.PlanTask(context.Background(), "set up and verify a service via a step plan", ec)

	require.True(t, result.Success, result.Diagnostic)
	require.NotNil(t, result.Task)
	require.Len(t, result.Task.Steps, 2)
	assert.Contains(t, result.Task.Steps[1].Dependencies, result.Task.Steps[0].ID)
}

func TestTaskPlannerFlagsMultipleCriticalSteps(t *testing.T) {
	client, m := newMockClient(t)
	m.SetResponses(`{"steps": [
		{"title": "a", "description": "d", "priority": "critical", "dependencies": []},
		{"title": "b", "description": "d", "priority": "critical", "dependencies": []}
	]}`)

	planner := NewTaskPlanner(client, core.TaskAgentConfig{})
	ec := core.ExecutionContext{ServerFacts: core.ServerFacts{OS: "ubuntu"}}
	result := planner.PlanTask(context.Background(), "goal", ec)

	require.True(t, result.Success)
	assert.NotEmpty(t, result.Issues)
}

func TestTaskPlannerLLMFailurePropagatesAsUnsuccessful(t *testing.T) {
	client, m := newMockClient(t)
	m.SetError(assert.AnError)

	planner := NewTaskPlanner(client, core.TaskAgentConfig{})
	ec := core.ExecutionContext{ServerFacts: core.ServerFacts{OS: "ubuntu"}}
	result := planner.PlanTask(context.Background(), "goal", ec)

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Diagnostic)
}

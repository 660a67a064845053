package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/LLprod39/agent-ssh-dev-sub001/core"
	"github.com/LLprod39/agent-ssh-dev-sub001/llm"
)

// TaskPlanner implements the hierarchical Task Planner (C10, §4.9): one
// level up from SubtaskPlanner, it decomposes a goal into an ordered set
// of steps rather than commands.
type TaskPlanner struct {
	client      *llm.Client
	builder     PromptBuilder
	maxSteps    int
	model       string
	temperature float32
	maxTokens   int
}

// NewTaskPlanner builds a TaskPlanner from cfg.
func NewTaskPlanner(client *llm.Client, cfg core.TaskAgentConfig) *TaskPlanner {
	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = 20
	}
	return &TaskPlanner{
		client:      client,
		builder:     DefaultPromptBuilder{},
		maxSteps:    maxSteps,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

type llmStep struct {
	Title                    string  `json:"title"`
	Description              string  `json:"description"`
	Priority                 string  `json:"priority"`
	EstimatedDurationSeconds float64 `json:"estimated_duration_seconds"`
	Dependencies             []int   `json:"dependencies"`
}

type llmStepsResponse struct {
	Steps []llmStep `json:"steps"`
}

// PlanTask implements the Task Planner's Contract (§4.9).
func (p *TaskPlanner) PlanTask(ctx context.Context, goal string, ec core.ExecutionContext) PlanningResult {
	prompt := p.builder.Build(PromptInput{
		Goal:           goal,
		OS:             ec.ServerFacts.OS,
		InstalledTools: ec.ServerFacts.InstalledPackages,
		MaxItems:       p.maxSteps,
		Schema:         taskSchema,
	})

	req := llm.NewRequestBuilder(prompt).
		WithModel(p.model).
		WithTemperature(p.temperature).
		WithMaxTokens(p.maxTokens).
		Build()

	resp, err := p.client.Generate(ctx, req)
	if err != nil {
		return PlanningResult{Success: false, Diagnostic: fmt.Sprintf("llm request failed: %v", err)}
	}

	raw, err := jsonExtract(resp.Content)
	if err != nil {
		return PlanningResult{Success: false, Diagnostic: fmt.Sprintf("no JSON object in LLM response: %v", err)}
	}

	var parsed llmStepsResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return PlanningResult{Success: false, Diagnostic: fmt.Sprintf("invalid step JSON: %v", err)}
	}

	steps, ids := p.instantiate(parsed.Steps)
	issues := p.validate(steps)
	ordered := p.topologicalSort(steps, ids)

	task := &core.Task{
		ID:          uuid.NewString(),
		Title:       goal,
		Description: goal,
		Status:      core.TaskPending,
		Steps:       ordered,
	}

	return PlanningResult{Success: true, Task: task, Issues: issues}
}

func (p *TaskPlanner) instantiate(raw []llmStep) ([]*core.TaskStep, []string) {
	ids := make([]string, len(raw))
	for i := range raw {
		ids[i] = uuid.NewString()
	}

	steps := make([]*core.TaskStep, len(raw))
	for i, rs := range raw {
		var deps []string
		for _, idx := range rs.Dependencies {
			if idx >= 0 && idx < len(ids) && idx != i {
				deps = append(deps, ids[idx])
			}
		}
		steps[i] = &core.TaskStep{
			ID:                ids[i],
			Title:             rs.Title,
			Description:       rs.Description,
			Priority:          normalizePriority(rs.Priority),
			Status:            core.StepPending,
			EstimatedDuration: time.Duration(rs.EstimatedDurationSeconds * float64(time.Second)),
			Dependencies:      deps,
			Order:             i,
		}
	}
	return steps, ids
}

func normalizePriority(raw string) core.Priority {
	switch core.Priority(raw) {
	case core.PriorityLow, core.PriorityMedium, core.PriorityHigh, core.PriorityCritical:
		return core.Priority(raw)
	default:
		return core.PriorityMedium
	}
}

// validate enforces at most one critical-priority step (§4.9: a task
// with more than one critical step likely mis-decomposed the goal) and
// an acyclic, fully-resolvable dependency graph.
func (p *TaskPlanner) validate(steps []*core.TaskStep) []string {
	var issues []string

	critical := 0
	for _, s := range steps {
		if s.Priority == core.PriorityCritical {
			critical++
		}
	}
	if critical > 1 {
		issues = append(issues, fmt.Sprintf("plan has %d critical-priority steps, expected at most 1", critical))
	}

	graph := NewDependencyGraph()
	for _, s := range steps {
		graph.AddNode(s.ID, s.Dependencies)
	}
	if err := graph.Validate(); err != nil {
		issues = append(issues, err.Error())
	}

	return issues
}

func (p *TaskPlanner) topologicalSort(steps []*core.TaskStep, ids []string) []*core.TaskStep {
	graph := NewDependencyGraph()
	for _, s := range steps {
		graph.AddNode(s.ID, s.Dependencies)
	}
	order := graph.TopologicalOrder()

	byID := make(map[string]*core.TaskStep, len(steps))
	for _, s := range steps {
		byID[s.ID] = s
	}

	ordered := make([]*core.TaskStep, 0, len(steps))
	seen := make(map[string]bool, len(steps))
	for _, id := range order {
		if s, ok := byID[id]; ok {
			ordered = append(ordered, s)
			seen[id] = true
		}
	}
	for _, s := range steps {
		if !seen[s.ID] {
			ordered = append(ordered, s)
		}
	}
	return ordered
}

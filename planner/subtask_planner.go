package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/LLprod39/agent-ssh-dev-sub001/core"
	"github.com/LLprod39/agent-ssh-dev-sub001/llm"
)

// SafetyChecker is the narrow capability the Subtask Planner needs from
// C1 to validate a proposed command isn't forbidden outright (§4.8:
// "Validates ... no forbidden command"). safety.Validator satisfies
// this structurally. This deliberately doesn't use IsSafe: IsSafe also
// rejects merely-dangerous-but-allowed commands, which §4.8 leaves to
// the executor's run-time safety gate, not planning-time validation.
type SafetyChecker interface {
	Validate(command string, vctx core.ValidationContext) core.ValidationResult
}

// PlanningResult is PlanSubtasks'/PlanTask's return value (§4.8, §4.9).
type PlanningResult struct {
	Success     bool
	Subtasks    []*core.Subtask
	Task        *core.Task
	Issues      []string
	Diagnostic  string
}

// SubtaskPlanner implements the Subtask Planner (C9, §4.8).
type SubtaskPlanner struct {
	client      *llm.Client
	builder     PromptBuilder
	safety      SafetyChecker
	maxSubtasks int
	model       string
	temperature float32
	maxTokens   int
}

// NewSubtaskPlanner builds a SubtaskPlanner from cfg and its collaborators.
func NewSubtaskPlanner(client *llm.Client, safety SafetyChecker, cfg core.SubtaskAgentConfig) *SubtaskPlanner {
	maxSubtasks := cfg.MaxSubtasks
	if maxSubtasks <= 0 {
		maxSubtasks = 30
	}
	return &SubtaskPlanner{
		client:      client,
		builder:     DefaultPromptBuilder{},
		safety:      safety,
		maxSubtasks: maxSubtasks,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

type llmSubtask struct {
	Title             string        `json:"title"`
	Description       string        `json:"description"`
	Commands          []interface{} `json:"commands"`
	HealthChecks      []interface{} `json:"health_checks"`
	RollbackCommands  []interface{} `json:"rollback_commands"`
	ExpectedOutput    string        `json:"expected_output"`
	Dependencies      []int         `json:"dependencies"`
}

type llmSubtasksResponse struct {
	Subtasks []llmSubtask `json:"subtasks"`
}

// PlanSubtasks implements the Subtask Planner's Contract (§4.8).
func (p *SubtaskPlanner) PlanSubtasks(ctx context.Context, step *core.TaskStep, ec core.ExecutionContext) PlanningResult {
	prompt := p.builder.Build(PromptInput{
		Goal:             step.Title + "\n" + step.Description,
		OS:               ec.ServerFacts.OS,
		InstalledTools:   ec.ServerFacts.InstalledPackages,
		MaxItems:         p.maxSubtasks,
		Schema:           subtaskSchema,
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

	var parsed llmSubtasksResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return PlanningResult{Success: false, Diagnostic: fmt.Sprintf("invalid subtask JSON: %v", err)}
	}

	subtasks, ids := p.instantiate(parsed.Subtasks)
	issues := p.validate(subtasks, ids)
	p.enrich(subtasks)
	ordered := p.topologicalSort(subtasks, ids)

	return PlanningResult{Success: true, Subtasks: ordered, Issues: issues}
}

// instantiate builds core.Subtask records with generated ids, filters
// non-string entries out of commands/health_checks/rollback_commands,
// and translates each LLM integer dependency index into the generated
// subtask id it refers to.
func (p *SubtaskPlanner) instantiate(raw []llmSubtask) ([]*core.Subtask, []string) {
	ids := make([]string, len(raw))
	for i := range raw {
		ids[i] = uuid.NewString()
	}

	subtasks := make([]*core.Subtask, len(raw))
	for i, rt := range raw {
		var deps []string
		for _, idx := range rt.Dependencies {
			if idx >= 0 && idx < len(ids) && idx != i {
				deps = append(deps, ids[idx])
			}
		}
		subtasks[i] = &core.Subtask{
			ID:               ids[i],
			Title:            rt.Title,
			Description:      rt.Description,
			Commands:         stringsOnly(rt.Commands),
			HealthChecks:     stringsOnly(rt.HealthChecks),
			RollbackCommands: stringsOnly(rt.RollbackCommands),
			ExpectedOutput:   rt.ExpectedOutput,
			Dependencies:     deps,
		}
	}
	return subtasks, ids
}

func stringsOnly(items []interface{}) []string {
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// validate checks non-empty commands per subtask, no forbidden command,
// and an acyclic dependency graph with resolvable ids (§4.8). Issues are
// recorded but the subtasks are still returned — the executor's safety
// checks catch dangerous entries at run time.
func (p *SubtaskPlanner) validate(subtasks []*core.Subtask, ids []string) []string {
	var issues []string

	for _, st := range subtasks {
		if len(st.Commands) == 0 {
			issues = append(issues, fmt.Sprintf("subtask %q has no commands", st.Title))
		}
		if p.safety != nil {
			for _, cmd := range st.Commands {
				if !p.safety.Validate(cmd, core.ValidationContext{}).Valid {
					issues = append(issues, fmt.Sprintf("subtask %q contains a forbidden command: %s", st.Title, cmd))
				}
			}
		}
	}

	graph := NewDependencyGraph()
	for _, st := range subtasks {
		graph.AddNode(st.ID, st.Dependencies)
	}
	if err := graph.Validate(); err != nil {
		issues = append(issues, err.Error())
	}

	return issues
}

// enrich auto-adds idempotency-aware health checks (§4.8): systemctl
// is-system-running when a subtask uses systemctl, a disk-usage
// threshold check when it uses a package installer.
func (p *SubtaskPlanner) enrich(subtasks []*core.Subtask) {
	for _, st := range subtasks {
		usesSystemctl := false
		usesInstall := false
		for _, cmd := range st.Commands {
			lower := strings.ToLower(cmd)
			if strings.Contains(lower, "systemctl") {
				usesSystemctl = true
			}
			if strings.Contains(lower, "install") {
				usesInstall = true
			}
		}
		if usesSystemctl && !containsCheck(st.HealthChecks, "is-system-running") {
			st.HealthChecks = append(st.HealthChecks, "systemctl is-system-running --wait || true")
		}
		if usesInstall && !containsCheck(st.HealthChecks, "df ") {
			st.HealthChecks = append(st.HealthChecks, "test $(df / --output=pcent | tail -1 | tr -dc '0-9') -lt 90")
		}
	}
}

func containsCheck(checks []string, substr string) bool {
	for _, c := range checks {
		if strings.Contains(c, substr) {
			return true
		}
	}
	return false
}

// topologicalSort orders subtasks per their DependencyGraph; subtasks
// whose ids were dropped from the graph (shouldn't happen given
// instantiate builds the graph from the same ids) are appended in their
// original order as a fallback.
func (p *SubtaskPlanner) topologicalSort(subtasks []*core.Subtask, ids []string) []*core.Subtask {
	graph := NewDependencyGraph()
	for _, st := range subtasks {
		graph.AddNode(st.ID, st.Dependencies)
	}
	order := graph.TopologicalOrder()

	byID := make(map[string]*core.Subtask, len(subtasks))
	for _, st := range subtasks {
		byID[st.ID] = st
	}

	ordered := make([]*core.Subtask, 0, len(subtasks))
	seen := make(map[string]bool, len(subtasks))
	for _, id := range order {
		if st, ok := byID[id]; ok {
			ordered = append(ordered, st)
			seen[id] = true
		}
	}
	for _, st := range subtasks {
		if !seen[st.ID] {
			ordered = append(ordered, st)
		}
	}
	return ordered
}

package planner

import (
	"fmt"
	"strings"
)

// PromptInput carries the data a planning prompt is assembled from.
// Mirrors the teacher's PromptInput shape (capability info + request +
// metadata), generalized to this engine's planning inputs.
type PromptInput struct {
	Goal              string
	OS                string
	InstalledTools    []string
	Constraints       []string
	PreviousSubtasks  []string
	MaxItems          int
	Schema            string
}

// PromptBuilder assembles planning prompts from composable sections,
// following the teacher's PromptBuilder interface (BuildPlanningPrompt
// over a PromptInput), narrowed to a single synchronous method since
// this engine's prompts need no context cancellation of their own (the
// surrounding llm.Client call already carries one).
type PromptBuilder interface {
	Build(input PromptInput) string
}

// DefaultPromptBuilder renders the sections every planner prompt shares:
// goal/step description, target environment, constraints, prior work,
// and the strict JSON schema the LLM must emit.
type DefaultPromptBuilder struct{}

// Build implements PromptBuilder.
func (DefaultPromptBuilder) Build(input PromptInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Goal:\n%s\n\n", input.Goal)

	if input.OS != "" {
		fmt.Fprintf(&b, "Target OS: %s\n", input.OS)
	}
	if len(input.InstalledTools) > 0 {
		fmt.Fprintf(&b, "Installed tools: %s\n", strings.Join(input.InstalledTools, ", "))
	}
	if len(input.Constraints) > 0 {
		fmt.Fprintf(&b, "Constraints:\n- %s\n", strings.Join(input.Constraints, "\n- "))
	}
	if len(input.PreviousSubtasks) > 0 {
		fmt.Fprintf(&b, "Previously planned:\n- %s\n", strings.Join(input.PreviousSubtasks, "\n- "))
	}
	b.WriteString("\n")

	if input.MaxItems > 0 {
		fmt.Fprintf(&b, "Respond with at most %d items.\n", input.MaxItems)
	}
	fmt.Fprintf(&b, "Respond with exactly one JSON object matching this schema, and nothing else:\n%s\n", input.Schema)

	return b.String()
}

// subtaskSchema is the strict JSON schema the Subtask Planner's prompt
// requires the LLM to emit (§4.8).
const subtaskSchema = `{
  "subtasks": [
    {
      "title": "string",
      "description": "string",
      "commands": ["string"],
      "health_checks": ["string"],
      "rollback_commands": ["string"],
      "expected_output": "string",
      "dependencies": [0]
    }
  ]
}`

// taskSchema is the strict JSON schema the Task Planner's prompt
// requires the LLM to emit (§4.9).
const taskSchema = `{
  "steps": [
    {
      "title": "string",
      "description": "string",
      "priority": "low|medium|high|critical",
      "estimated_duration_seconds": 0,
      "dependencies": [0]
    }
  ]
}`

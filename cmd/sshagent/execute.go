package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LLprod39/agent-ssh-dev-sub001/core"
	"github.com/LLprod39/agent-ssh-dev-sub001/orchestrator"
)

var executeCmd = &cobra.Command{
	Use:   "execute <goal>",
	Short: "Plan and execute a remediation goal on the configured server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		goal := args[0]
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		verbose := verboseFromFlags(cmd)

		cfg, err := loadConfig(configPathFromFlags(cmd))
		if err != nil {
			return err
		}
		profile, err := loadServerProfile(serverPathFromFlags(cmd))
		if err != nil {
			return err
		}

		log, err := buildLogger(cfg, verbose)
		if err != nil {
			return err
		}
		llmClient := buildLLMClient(cfg, log)

		o, err := orchestrator.New(*cfg, *profile, llmClient, nil, log, buildTelemetry())
		if err != nil {
			return fmt.Errorf("build orchestrator: %w", err)
		}

		result := o.ExecuteTask(context.Background(), goal, orchestrator.ExecutionOptions{
			DryRun:       dryRun || cfg.Executor.DryRunMode,
			AutoRollback: cfg.Idempotency.AutoRollback,
		})

		printExecutionResult(result, verbose)

		if err := appendHistoryEntry(historyEntry{
			TaskID:      result.TaskID,
			Goal:        result.Goal,
			Success:     result.Success,
			Aborted:     result.Aborted,
			Escalations: result.Escalations,
			Diagnostic:  result.Diagnostic,
			StartedAt:   result.StartedAt,
			CompletedAt: result.CompletedAt,
			Duration:    result.Duration,
		}); err != nil {
			fmt.Printf("warning: failed to record history: %v\n", err)
		}

		if !result.Success {
			return fmt.Errorf("task did not complete successfully")
		}
		return nil
	},
}

func printExecutionResult(result orchestrator.TaskExecutionResult, verbose bool) {
	status := "FAILED"
	if result.Success {
		status = "SUCCESS"
	}
	fmt.Printf("task %s: %s (%s)\n", result.TaskID, status, result.Duration)
	if result.Diagnostic != "" {
		fmt.Printf("  diagnostic: %s\n", result.Diagnostic)
	}
	if result.Escalations > 0 {
		fmt.Printf("  escalations: %d\n", result.Escalations)
	}
	for _, sr := range result.StepResults {
		mark := "ok"
		if !sr.Success {
			mark = "FAILED"
		}
		fmt.Printf("  step %-8s [%s] %s\n", sr.StepID[:min(8, len(sr.StepID))], mark, sr.Title)
		if sr.EscalationLevel != "" && sr.EscalationLevel != core.EscalationNone {
			fmt.Printf("    escalation: %s (replanned=%v)\n", sr.EscalationLevel, sr.Replanned)
		}
		if !verbose {
			continue
		}
		for _, subResult := range sr.SubtaskResults {
			subMark := "ok"
			if !subResult.OverallSuccess {
				subMark = "FAILED"
			}
			fmt.Printf("    subtask [%s] %d command(s)\n", subMark, len(subResult.CommandResults))
		}
	}
}

func init() {
	executeCmd.Flags().Bool("dry-run", false, "simulate every command instead of running it")
}

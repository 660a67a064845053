package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/LLprod39/agent-ssh-dev-sub001/orchestrator"
)

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Run a REPL over one long-lived Orchestrator instance",
	Long: `interactive keeps one Orchestrator alive for the whole session,
so its capped execution history and running Statistics (§4.10) actually
accumulate across goals, unlike the one-shot "execute" subcommand which
starts and discards a fresh Orchestrator per invocation. Type a goal to
run it, or one of: status, history [N], cleanup [DAYS], exit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
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

		fmt.Println("sshagent interactive — type a goal, or status/history/cleanup/exit")
		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				return nil
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			fields := strings.Fields(line)
			switch fields[0] {
			case "exit", "quit":
				return nil
			case "status":
				printLiveStatus(o)
			case "history":
				limit := 0
				if len(fields) > 1 {
					limit, _ = strconv.Atoi(fields[1])
				}
				printLiveHistory(o, limit)
			case "cleanup":
				days := 30
				if len(fields) > 1 {
					if n, err := strconv.Atoi(fields[1]); err == nil {
						days = n
					}
				}
				dropped := o.CleanupOldData(time.Duration(days) * 24 * time.Hour)
				fmt.Printf("dropped %d stale history entries\n", dropped)
			default:
				result := o.ExecuteTask(context.Background(), line, orchestrator.ExecutionOptions{
					DryRun: cfg.Executor.DryRunMode,
				})
				printExecutionResult(result, verbose)
			}
		}
	},
}

func printLiveStatus(o *orchestrator.Orchestrator) {
	stats := o.GetStatistics()
	fmt.Printf("tasks executed:  %d\n", stats.TasksExecuted)
	fmt.Printf("tasks completed: %d\n", stats.TasksCompleted)
	fmt.Printf("tasks failed:    %d\n", stats.TasksFailed)
	fmt.Printf("escalations:     %d\n", stats.Escalations)
	fmt.Printf("total exec time: %s\n", stats.TotalExecutionTime)
}

func printLiveHistory(o *orchestrator.Orchestrator, limit int) {
	history := o.GetHistory(limit)
	if len(history) == 0 {
		fmt.Println("no tasks executed this session")
		return
	}
	for _, r := range history {
		status := "FAILED"
		if r.Success {
			status = "SUCCESS"
		}
		fmt.Printf("%-36s %-10s %s\n", r.TaskID, status, r.Goal)
	}
}

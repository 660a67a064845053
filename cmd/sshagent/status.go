package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the most recently executed task",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := readHistoryLog()
		if err != nil {
			return fmt.Errorf("read history: %w", err)
		}
		if len(entries) == 0 {
			fmt.Println("no tasks executed yet")
			return nil
		}
		printHistoryEntry(entries[len(entries)-1])
		return nil
	},
}

func printHistoryEntry(e historyEntry) {
	status := "FAILED"
	if e.Success {
		status = "SUCCESS"
	}
	fmt.Printf("task %s: %s\n", e.TaskID, status)
	fmt.Printf("  goal:        %s\n", e.Goal)
	fmt.Printf("  started:     %s\n", e.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  duration:    %s\n", e.Duration)
	fmt.Printf("  escalations: %d\n", e.Escalations)
	if e.Aborted {
		fmt.Println("  aborted:     true")
	}
	if e.Diagnostic != "" {
		fmt.Printf("  diagnostic:  %s\n", e.Diagnostic)
	}
}

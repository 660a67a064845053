package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past task executions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		entries, err := readHistoryLog()
		if err != nil {
			return fmt.Errorf("read history: %w", err)
		}
		if limit > 0 && limit < len(entries) {
			entries = entries[len(entries)-limit:]
		}
		if len(entries) == 0 {
			fmt.Println("no tasks executed yet")
			return nil
		}

		fmt.Printf("%-36s %-10s %-8s %s\n", "TASK ID", "STATUS", "ESCAL.", "GOAL")
		for _, e := range entries {
			status := "FAILED"
			if e.Success {
				status = "SUCCESS"
			}
			fmt.Printf("%-36s %-10s %-8d %s\n", e.TaskID, status, e.Escalations, e.Goal)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().Int("limit", 0, "show only the N most recent entries (0 = all)")
}

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Drop execution history entries older than --days",
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		if days <= 0 {
			days = 30
		}
		cutoff := time.Now().AddDate(0, 0, -days)

		entries, err := readHistoryLog()
		if err != nil {
			return fmt.Errorf("read history: %w", err)
		}

		kept := entries[:0]
		dropped := 0
		for _, e := range entries {
			if e.CompletedAt.Before(cutoff) {
				dropped++
				continue
			}
			kept = append(kept, e)
		}

		if err := writeHistoryLog(kept); err != nil {
			return fmt.Errorf("write history: %w", err)
		}
		fmt.Printf("dropped %d entries older than %d days, %d remain\n", dropped, days, len(kept))
		return nil
	},
}

func init() {
	cleanupCmd.Flags().Int("days", 30, "retention window in days (§6 error_handler.max_retention_days default)")
}

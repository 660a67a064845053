// Command sshagent is the composition root for the SSH remediation
// engine: a Cobra CLI over core.Config, llm/transport construction, and
// orchestrator.Orchestrator (§6.1). It carries no engine logic of its
// own — every subcommand just wires the already-built packages together.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sshagent",
	Short: "LLM-driven SSH remediation engine",
	Long: `sshagent plans and executes multi-step remediation tasks on a
remote host over SSH, guarded by a safety validator, an idempotency
system, and an error tracker with escalation.`,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "path to the engine config YAML (default: ./sshagent.yaml)")
	rootCmd.PersistentFlags().String("server", "", "path to the server profile YAML (default: ./server.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug-level logging")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(executeCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(interactiveCmd)
}

func configPathFromFlags(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = "sshagent.yaml"
	}
	return path
}

func serverPathFromFlags(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("server")
	if path == "" {
		path = "server.yaml"
	}
	return path
}

func verboseFromFlags(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("verbose")
	return v
}

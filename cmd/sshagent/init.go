package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/LLprod39/agent-ssh-dev-sub001/core"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write starter config.yaml and server.yaml files",
	Long: `init writes a config file populated from every §6 default
(LLM, task agent, subtask agent, executor, error handler, idempotency,
security, logging) and a server profile template, refusing to
overwrite either file if it already exists.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := configPathFromFlags(cmd)
		serverPath := serverPathFromFlags(cmd)

		if err := writeIfAbsent(configPath, core.DefaultConfig()); err != nil {
			return err
		}
		if err := writeIfAbsent(serverPath, &core.ServerProfile{
			Host:       "203.0.113.10",
			Port:       22,
			Username:   "remediation",
			AuthMethod: core.AuthKey,
			KeyPath:    "~/.ssh/id_ed25519",
			OSType:     "ubuntu",
		}); err != nil {
			return err
		}

		fmt.Printf("wrote %s and %s\n", configPath, serverPath)
		fmt.Println("set llm.api_key (or SSHAGENT_LLM_API_KEY) before running 'sshagent execute'")
		return nil
	},
}

func writeIfAbsent(path string, v interface{}) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists, refusing to overwrite", path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	return os.WriteFile(path, data, 0o644)
}

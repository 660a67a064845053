package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or edit the engine configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the loaded config as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPathFromFlags(cmd))
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		fmt.Print(string(out))
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the config against every §6 range/enum constraint",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPathFromFlags(cmd))
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		fmt.Println("config is valid")
		return nil
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPathFromFlags(cmd)
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("%s not found (run 'sshagent init' first): %w", path, err)
		}

		editor := os.Getenv("EDITOR")
		if editor == "" {
			editor = "vi"
		}
		c := exec.Command(editor, path)
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		return c.Run()
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configEditCmd)
}

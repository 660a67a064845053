package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/LLprod39/agent-ssh-dev-sub001/core"
	"github.com/LLprod39/agent-ssh-dev-sub001/llm"
	"github.com/LLprod39/agent-ssh-dev-sub001/llm/providers/gemini"
	"github.com/LLprod39/agent-ssh-dev-sub001/llm/providers/mock"
	"github.com/LLprod39/agent-ssh-dev-sub001/llm/providers/openai"
	"github.com/LLprod39/agent-ssh-dev-sub001/pkg/logger"
	"github.com/LLprod39/agent-ssh-dev-sub001/pkg/telemetry"
)

// loadConfig reads core.Config from path as YAML, then overlays
// environment variables — the same layered priority core.NewConfig
// documents, just sourced from a file instead of functional options. It
// does not call Validate on the result; `config validate` does that.
func loadConfig(path string) (*core.Config, error) {
	cfg := core.DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file %s not found (run 'sshagent init' first)", path)
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("load config env overlay: %w", err)
	}
	return cfg, nil
}

// loadServerProfile reads core.ServerProfile from path as YAML.
func loadServerProfile(path string) (*core.ServerProfile, error) {
	profile := &core.ServerProfile{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("server profile %s not found (run 'sshagent init' first)", path)
		}
		return nil, fmt.Errorf("read server profile %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, profile); err != nil {
		return nil, fmt.Errorf("parse server profile %s: %w", path, err)
	}
	return profile, nil
}

// buildLogger constructs the process-wide SimpleLogger from cfg.Logging,
// bumping the level to debug when verbose is set on the command line.
func buildLogger(cfg *core.Config, verbose bool) (*logger.SimpleLogger, error) {
	l, err := logger.NewFromConfig(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	if verbose {
		l, err = logger.NewFromConfig(core.LoggingConfig{
			Level:         "debug",
			LogFile:       cfg.Logging.LogFile,
			ErrorFile:     cfg.Logging.ErrorFile,
			MaxFileSizeMB: cfg.Logging.MaxFileSizeMB,
			RetentionDays: cfg.Logging.RetentionDays,
			Compression:   cfg.Logging.Compression,
		})
		if err != nil {
			return nil, fmt.Errorf("build verbose logger: %w", err)
		}
	}
	return l, nil
}

// buildLLMClient wires the provider named by cfg.LLM.Provider, falling
// back to the mock provider for anything it doesn't recognize — the same
// fallback llm.NewClient performs when a real provider reports itself
// unavailable.
func buildLLMClient(cfg *core.Config, log core.Logger) *llm.Client {
	m := mock.New()
	var provider llm.Provider
	switch cfg.LLM.Provider {
	case "openai":
		provider = openai.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, log)
	case "gemini":
		provider = gemini.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, log)
	default:
		provider = m
	}
	return llm.NewClient(cfg.LLM, provider, m, log)
}

// buildTelemetry constructs the process-wide telemetry.Provider. With no
// global OpenTelemetry SDK/exporter registered by the host environment,
// every span and metric recorded through it is the otel API's own no-op
// implementation — wiring a real backend is a matter of calling
// otel.SetTracerProvider/SetMeterProvider before the CLI starts, not a
// code change here.
func buildTelemetry() *telemetry.Provider {
	return telemetry.New("sshagent")
}

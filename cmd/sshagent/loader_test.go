package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LLprod39/agent-ssh-dev-sub001/core"
)

func TestLoadConfigMissingFileReturnsActionableError(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sshagent init")
}

func TestLoadConfigRoundTripsWriteIfAbsentOutput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sshagent.yaml")

	require.NoError(t, writeIfAbsent(path, core.DefaultConfig()))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4", cfg.LLM.Model)
	assert.Equal(t, 20, cfg.TaskAgent.MaxSteps)
}

func TestWriteIfAbsentRefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sshagent.yaml")
	require.NoError(t, writeIfAbsent(path, core.DefaultConfig()))

	err := writeIfAbsent(path, core.DefaultConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestLoadServerProfileRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.yaml")

	profile := &core.ServerProfile{Host: "10.0.0.5", Port: 22, Username: "ops", AuthMethod: core.AuthKey}
	require.NoError(t, writeIfAbsent(path, profile))

	loaded, err := loadServerProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", loaded.Host)
	assert.Equal(t, "ops", loaded.Username)
}

func TestBuildLLMClientFallsBackToMockForUnknownProvider(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.LLM.Provider = "not-a-real-provider"
	client := buildLLMClient(cfg, core.NoOpLogger{})
	assert.True(t, client.IsAvailable())
}

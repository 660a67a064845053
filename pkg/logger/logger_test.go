package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LLprod39/agent-ssh-dev-sub001/pkg/logger"
)

func TestSimpleLoggerTextFormat(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Options{Level: "info", Out: &buf})

	log.Info("subtask started", map[string]interface{}{"subtask_id": "s1"})

	line := buf.String()
	assert.Contains(t, line, "subtask started")
	assert.Contains(t, line, "subtask_id=s1")
	assert.Contains(t, line, "[INFO]")
}

func TestSimpleLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Options{Level: "debug", JSON: true, Out: &buf})

	log.Debug("probe executed", map[string]interface{}{"target": "nginx"})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "probe executed", entry["message"])
	assert.Equal(t, "nginx", entry["target"])
	assert.Equal(t, "DEBUG", entry["level"])
}

func TestSimpleLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Options{Level: "warning", Out: &buf})

	log.Debug("should not appear", nil)
	log.Info("should not appear either", nil)
	log.Warn("this appears", nil)

	out := buf.String()
	assert.NotContains(t, out, "should not appear")
	assert.Contains(t, out, "this appears")
}

func TestSimpleLoggerWithComponent(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Options{Level: "info", JSON: true, Out: &buf})

	child := log.WithComponent("executor")
	child.Info("ran", nil)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "executor", entry["component"])
}

func TestSimpleLoggerRequestIDPropagation(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Options{Level: "info", JSON: true, Out: &buf})

	ctx := logger.WithRequestID(context.Background(), "req-42")
	log.InfoWithContext(ctx, "handled", nil)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-42", entry["request_id"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logger.DebugLevel, logger.ParseLevel("debug"))
	assert.Equal(t, logger.WarnLevel, logger.ParseLevel("warning"))
	assert.Equal(t, logger.ErrorLevel, logger.ParseLevel("error"))
	assert.Equal(t, logger.CriticalLevel, logger.ParseLevel("critical"))
	assert.Equal(t, logger.InfoLevel, logger.ParseLevel("nonsense"))
}

func TestErrorGoesToErrOut(t *testing.T) {
	var out, errOut bytes.Buffer
	log := logger.New(logger.Options{Level: "info", Out: &out, ErrOut: &errOut})

	log.Error("boom", nil)

	assert.Empty(t, out.String())
	assert.True(t, strings.Contains(errOut.String(), "boom"))
}

package llm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LLprod39/agent-ssh-dev-sub001/core"
	"github.com/LLprod39/agent-ssh-dev-sub001/llm"
	"github.com/LLprod39/agent-ssh-dev-sub001/llm/providers/mock"
)

func TestClientFallsBackToMockWhenProviderUnavailable(t *testing.T) {
	unavailable := &unavailableProvider{}
	fallback := mock.New()
	fallback.SetResponses(`{"steps": []}`)

	client := llm.NewClient(core.LLMConfig{Model: "gpt-4"}, unavailable, fallback, core.NoOpLogger{})

	assert.True(t, client.IsAvailable())

	resp, err := client.Generate(context.Background(), llm.NewRequestBuilder("plan the next step").Build())
	require.NoError(t, err)
	assert.Equal(t, `{"steps": []}`, resp.Content)
}

func TestClientAppliesConfigDefaults(t *testing.T) {
	m := mock.New()
	m.SetResponses("ok")
	client := llm.NewClient(core.LLMConfig{Model: "gpt-4", Temperature: 0.5, MaxTokens: 200}, m, m, core.NoOpLogger{})

	resp, err := client.Generate(context.Background(), llm.NewRequestBuilder("hi").Build())
	require.NoError(t, err)

	assert.Equal(t, "gpt-4", resp.Model)
	assert.Equal(t, "hi", m.LastPrompt)
	assert.Equal(t, 1, m.CallCount)
}

func TestRequestBuilderBuildsImmutableRequest(t *testing.T) {
	req := llm.NewRequestBuilder("do the thing").
		WithModel("gpt-4").
		WithTemperature(0.2).
		WithMaxTokens(500).
		WithSystem("you are an ops assistant").
		Build()

	assert.Equal(t, "do the thing", req.Prompt)
	assert.Equal(t, "gpt-4", req.Options.Model)
	assert.Equal(t, float32(0.2), req.Options.Temperature)
	assert.Equal(t, 500, req.Options.MaxTokens)
	assert.Equal(t, "you are an ops assistant", req.Options.SystemPrompt)
}

type unavailableProvider struct{}

func (unavailableProvider) IsAvailable() bool { return false }
func (unavailableProvider) GenerateResponse(ctx context.Context, prompt string, options *core.AIOptions) (*core.AIResponse, error) {
	return nil, core.ErrProviderUnavailable
}

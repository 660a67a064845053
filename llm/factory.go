package llm

import (
	"github.com/LLprod39/agent-ssh-dev-sub001/core"
	"github.com/LLprod39/agent-ssh-dev-sub001/llm/providers/gemini"
	"github.com/LLprod39/agent-ssh-dev-sub001/llm/providers/mock"
	"github.com/LLprod39/agent-ssh-dev-sub001/llm/providers/openai"
)

// NewClientFromConfig resolves cfg.Provider to a concrete Provider and
// wraps it in a Client with the mock as the availability fallback,
// per §4.2.
func NewClientFromConfig(cfg core.LLMConfig, logger core.Logger) *Client {
	fallback := mock.New()

	var provider Provider
	switch cfg.Provider {
	case "gemini":
		provider = gemini.NewClient(cfg.APIKey, cfg.BaseURL, logger)
	case "mock":
		provider = fallback
	case "openai", "":
		provider = openai.NewClient(cfg.APIKey, cfg.BaseURL, logger)
	default:
		// Unknown provider names are treated as OpenAI-compatible
		// endpoints (DeepSeek/Groq/Together/Ollama style), matching the
		// teacher's provider-alias convention of reusing the OpenAI
		// request shape against a different base URL.
		provider = openai.NewClient(cfg.APIKey, cfg.BaseURL, logger)
	}

	return NewClient(cfg, provider, fallback, logger)
}

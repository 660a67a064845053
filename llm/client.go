// Package llm implements the LLM Interface (§4.2): a small capability
// contract (Provider), a request builder, and a Client that wraps a
// Provider and falls back to the deterministic mock when the configured
// provider reports itself unavailable at startup.
package llm

import (
	"context"
	"time"

	"github.com/LLprod39/agent-ssh-dev-sub001/core"
	"github.com/LLprod39/agent-ssh-dev-sub001/resilience"
)

// Provider is the polymorphic capability set §4.2 requires of every
// concrete backend. core.AIClient already carries this exact shape; the
// alias keeps llm's own API surface self-contained.
type Provider = core.AIClient

// Request is an immutable generation request, produced by RequestBuilder.
type Request struct {
	Prompt  string
	Options core.AIOptions
}

// RequestBuilder builds a Request incrementally, mirroring the teacher's
// AIOption functional-option style but scoped to one request rather than
// a whole client configuration.
type RequestBuilder struct {
	prompt  string
	options core.AIOptions
}

// NewRequestBuilder starts a builder for prompt.
func NewRequestBuilder(prompt string) *RequestBuilder {
	return &RequestBuilder{prompt: prompt}
}

func (b *RequestBuilder) WithModel(model string) *RequestBuilder {
	b.options.Model = model
	return b
}

func (b *RequestBuilder) WithTemperature(temp float32) *RequestBuilder {
	b.options.Temperature = temp
	return b
}

func (b *RequestBuilder) WithMaxTokens(tokens int) *RequestBuilder {
	b.options.MaxTokens = tokens
	return b
}

func (b *RequestBuilder) WithSystem(prompt string) *RequestBuilder {
	b.options.SystemPrompt = prompt
	return b
}

func (b *RequestBuilder) WithContext(ctx map[string]interface{}) *RequestBuilder {
	b.options.Context = ctx
	return b
}

func (b *RequestBuilder) WithMetadata(metadata map[string]interface{}) *RequestBuilder {
	b.options.Metadata = metadata
	return b
}

// Build produces the immutable Request.
func (b *RequestBuilder) Build() Request {
	return Request{Prompt: b.prompt, Options: b.options}
}

// Client wraps a Provider, applying the LLM config's defaults to every
// request, timing out per-request via cfg.Timeout, and — per §7.1 —
// guarding the call with a circuit breaker composed with exponential
// backoff retry.
type Client struct {
	provider Provider
	fallback Provider // mock, used when provider.IsAvailable() is false
	cfg      core.LLMConfig
	logger   core.Logger
	breaker  *resilience.CircuitBreaker
}

// NewClient wraps provider (chosen by the caller, e.g. via the factory
// in factory.go). If that provider
// reports IsAvailable()=false, the client falls back to the mock for the
// lifetime of the process (§4.2's Open Question, resolved SHOULD).
func NewClient(cfg core.LLMConfig, provider Provider, fallback Provider, logger core.Logger) *Client {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	c := &Client{provider: provider, fallback: fallback, cfg: cfg, logger: logger}
	if provider == nil || !provider.IsAvailable() {
		logger.Warn("llm provider unavailable at startup, falling back to mock", map[string]interface{}{
			"configured_provider": cfg.Provider,
		})
		c.provider = fallback
	}

	if cfg.CircuitBreaker.Enabled {
		name := cfg.Provider
		if name == "" {
			name = "llm"
		}
		if cb, err := resilience.FromCoreConfig(name, cfg.CircuitBreaker, logger, nil); err == nil {
			c.breaker = cb
		} else {
			logger.Warn("llm circuit breaker config invalid, proceeding unguarded", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	return c
}

// Generate sends req through the active provider, applying cfg defaults
// for any unset option, and bounds the call by cfg.Timeout.
func (c *Client) Generate(ctx context.Context, req Request) (*core.AIResponse, error) {
	opts := req.Options
	if opts.Model == "" {
		opts.Model = c.cfg.Model
	}
	if opts.Temperature == 0 {
		opts.Temperature = c.cfg.Temperature
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = c.cfg.MaxTokens
	}

	timeout := c.cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	var resp *core.AIResponse
	call := func() error {
		var callErr error
		resp, callErr = c.provider.GenerateResponse(ctx, req.Prompt, &opts)
		return callErr
	}

	var err error
	if c.breaker != nil {
		err = resilience.RetryWithCircuitBreaker(ctx, resilience.DefaultRetryConfig(), c.breaker, call)
	} else {
		err = resilience.Retry(ctx, resilience.DefaultRetryConfig(), call)
	}
	if err != nil {
		c.logger.ErrorWithContext(ctx, "llm generation failed", map[string]interface{}{
			"model": opts.Model,
			"error": err.Error(),
		})
		return nil, core.NewFrameworkError("llm.Generate", "provider", err)
	}
	if resp != nil && resp.Duration == 0 {
		resp.Duration = time.Since(start)
	}
	return resp, nil
}

// IsAvailable reports whether the active (possibly fallback) provider is
// currently usable.
func (c *Client) IsAvailable() bool {
	return c.provider != nil && c.provider.IsAvailable()
}

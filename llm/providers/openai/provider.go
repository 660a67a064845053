// Package openai implements an OpenAI-compatible llm.Provider over the
// chat completions HTTP API. The same client also serves DeepSeek/Groq/
// Together/Ollama-style OpenAI-compatible endpoints by pointing BaseURL
// at them, mirroring the teacher's provider-alias pattern.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/LLprod39/agent-ssh-dev-sub001/core"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client implements core.AIClient against an OpenAI-compatible endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     core.Logger
}

// NewClient builds a Client. baseURL empty defaults to OpenAI's own API;
// pointing it at a compatible endpoint (DeepSeek, Groq, Together, a local
// Ollama) reuses the same request/response shape.
func NewClient(apiKey, baseURL string, logger core.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 180 * time.Second},
		logger:     logger,
	}
}

// IsAvailable reports whether an API key is configured. It does not
// probe the network — startup availability is a local, cheap check.
func (c *Client) IsAvailable() bool {
	return c.apiKey != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateResponse sends prompt (plus options.SystemPrompt, if set) as a
// chat completion request and returns the first choice's content.
func (c *Client) GenerateResponse(ctx context.Context, prompt string, options *core.AIOptions) (*core.AIResponse, error) {
	if c.apiKey == "" {
		c.logger.ErrorWithContext(ctx, "openai request failed: api key not configured", nil)
		return nil, core.NewFrameworkError("openai.GenerateResponse", "provider", core.ErrProviderUnavailable)
	}

	var messages []chatMessage
	if options != nil && options.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: options.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	body := chatRequest{Messages: messages}
	if options != nil {
		body.Model = options.Model
		body.Temperature = options.Temperature
		body.MaxTokens = options.MaxTokens
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal openai request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build openai request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.ErrorWithContext(ctx, "openai request failed", map[string]interface{}{"error": err.Error()})
		return nil, core.NewFrameworkError("openai.GenerateResponse", "provider", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read openai response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse openai response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("openai returned status %d", httpResp.StatusCode)
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return &core.AIResponse{Success: false, Error: msg, Duration: time.Since(start)}, nil
	}

	if len(parsed.Choices) == 0 {
		return &core.AIResponse{Success: false, Error: core.ErrEmptyResponse.Error(), Duration: time.Since(start)}, nil
	}

	model := ""
	if options != nil {
		model = options.Model
	}
	return &core.AIResponse{
		Success: true,
		Content: parsed.Choices[0].Message.Content,
		Model:   model,
		Usage: core.TokenUsage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		},
		Duration: time.Since(start),
	}, nil
}

var _ core.AIClient = (*Client)(nil)

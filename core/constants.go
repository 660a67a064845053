package core

import "time"

// Default timeouts from §5 ("Timeouts" / "Suspension/blocking points").
const (
	DefaultCommandTimeout     = 30 * time.Second
	DefaultLLMTimeout         = 60 * time.Second
	DefaultNetworkProbeTimeout = 30 * time.Second
)

// Environment variables recognized when loading Config (§6). Functional
// options always win over these; these win over compiled-in defaults.
const (
	EnvLLMAPIKey      = "SSHAGENT_LLM_API_KEY"
	EnvLLMBaseURL     = "SSHAGENT_LLM_BASE_URL"
	EnvLLMProvider    = "SSHAGENT_LLM_PROVIDER"
	EnvRedisURL       = "SSHAGENT_REDIS_URL"
	EnvLogLevel       = "SSHAGENT_LOG_LEVEL"
	EnvConfigFile     = "SSHAGENT_CONFIG_FILE"
)

// PlaceholderAPIKey is the literal placeholder string §6 forbids a real
// config from using verbatim ("api_key must not equal the literal
// placeholder string").
const PlaceholderAPIKey = "your-api-key-here"

// Redis database allocation for the idempotency check cache, mirroring
// the teacher framework's per-concern DB isolation convention.
const (
	RedisDBIdempotencyCache = 3
)

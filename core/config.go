package core

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every configuration section the engine reads (§6). It
// supports the same three-layer priority the framework uses everywhere
// else:
//  1. Default values (lowest priority)
//  2. Environment variables (medium priority)
//  3. Functional options (highest priority)
//
// Example usage:
//
//	cfg, err := NewConfig(
//	    WithLLMProvider("openai", "gpt-4"),
//	    WithDryRunMode(true),
//	)
type Config struct {
	LLM          LLMConfig          `json:"llm" yaml:"llm"`
	Taskmaster   TaskmasterConfig   `json:"taskmaster" yaml:"taskmaster"`
	TaskAgent    TaskAgentConfig    `json:"task_agent" yaml:"task_agent"`
	SubtaskAgent SubtaskAgentConfig `json:"subtask_agent" yaml:"subtask_agent"`
	Executor     ExecutorConfig     `json:"executor" yaml:"executor"`
	ErrorHandler ErrorHandlerConfig `json:"error_handler" yaml:"error_handler"`
	Idempotency  IdempotencyConfig  `json:"idempotency" yaml:"idempotency"`
	Security     SecurityConfig     `json:"security" yaml:"security"`
	Logging      LoggingConfig      `json:"logging" yaml:"logging"`

	// logger is used for configuration-loading diagnostics only; it is
	// never serialized.
	logger Logger `json:"-" yaml:"-"`
}

// LLMConfig configures the model backing the planners and autocorrection
// engine (§6 "llm").
type LLMConfig struct {
	APIKey      string        `json:"api_key" yaml:"api_key" env:"SSHAGENT_LLM_API_KEY" default:"your-api-key-here"`
	BaseURL     string        `json:"base_url" yaml:"base_url" env:"SSHAGENT_LLM_BASE_URL"`
	Model       string        `json:"model" yaml:"model" env:"SSHAGENT_LLM_MODEL" default:"gpt-4"`
	Provider    string        `json:"provider" yaml:"provider" env:"SSHAGENT_LLM_PROVIDER" default:"openai"`
	Temperature float32       `json:"temperature" yaml:"temperature" default:"0.3"`
	MaxTokens   int           `json:"max_tokens" yaml:"max_tokens" default:"4000"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout" default:"60s"`

	// CircuitBreaker guards provider calls per §7.1's ambient resilience
	// wrapping, composed with exponential-backoff retry in package llm.
	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker" yaml:"circuit_breaker"`
}

// TaskmasterConfig is the optional prompt-improvement helper (§6 "taskmaster").
type TaskmasterConfig struct {
	Enabled     bool    `json:"enabled" yaml:"enabled" default:"false"`
	Model       string  `json:"model" yaml:"model" default:"gpt-4"`
	Temperature float32 `json:"temperature" yaml:"temperature" default:"0.2"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens" default:"1000"`
}

// TaskAgentConfig configures the hierarchical Task Planner (§6 "task_agent").
type TaskAgentConfig struct {
	Model       string  `json:"model" yaml:"model" default:"gpt-4"`
	Temperature float32 `json:"temperature" yaml:"temperature" default:"0.3"`
	MaxSteps    int     `json:"max_steps" yaml:"max_steps" default:"20"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens" default:"4000"`
}

// SubtaskAgentConfig configures the Subtask Planner (§6 "subtask_agent").
type SubtaskAgentConfig struct {
	Model       string  `json:"model" yaml:"model" default:"gpt-4"`
	Temperature float32 `json:"temperature" yaml:"temperature" default:"0.3"`
	MaxSubtasks int     `json:"max_subtasks" yaml:"max_subtasks" default:"30"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens" default:"4000"`
}

// ExecutorConfig configures the Command Executor and its autocorrection
// behavior (§6 "executor").
type ExecutorConfig struct {
	MaxRetriesPerCommand      int           `json:"max_retries_per_command" yaml:"max_retries_per_command" default:"3"`
	AutoCorrectionEnabled     bool          `json:"auto_correction_enabled" yaml:"auto_correction_enabled" default:"true"`
	DryRunMode                bool          `json:"dry_run_mode" yaml:"dry_run_mode" default:"false"`
	CommandTimeout            time.Duration `json:"command_timeout" yaml:"command_timeout" default:"30s"`
	AutocorrectionMaxAttempts int           `json:"autocorrection_max_attempts" yaml:"autocorrection_max_attempts" default:"3"`
	AutocorrectionTimeout     time.Duration `json:"autocorrection_timeout" yaml:"autocorrection_timeout" default:"15s"`

	// Per-strategy enable flags (§4.3's strategy table).
	EnablePermissionFix       bool `json:"enable_permission_fix" yaml:"enable_permission_fix" default:"true"`
	EnableCommandSubstitution bool `json:"enable_command_substitution" yaml:"enable_command_substitution" default:"true"`
	EnablePackageUpdate       bool `json:"enable_package_update" yaml:"enable_package_update" default:"true"`
	EnableServiceRestart      bool `json:"enable_service_restart" yaml:"enable_service_restart" default:"true"`
	EnableNetworkCheck        bool `json:"enable_network_check" yaml:"enable_network_check" default:"true"`
	EnablePathCorrection      bool `json:"enable_path_correction" yaml:"enable_path_correction" default:"true"`
	EnableSyntaxCheck         bool `json:"enable_syntax_check" yaml:"enable_syntax_check" default:"true"`
	EnableAlternativeFlags    bool `json:"enable_alternative_flags" yaml:"enable_alternative_flags" default:"true"`
}

// ErrorHandlerConfig configures the Error Tracker & Escalation System
// (§6 "error_handler").
type ErrorHandlerConfig struct {
	ErrorThresholdPerStep       int  `json:"error_threshold_per_step" yaml:"error_threshold_per_step" default:"5"`
	SendToPlannerAfterThreshold bool `json:"send_to_planner_after_threshold" yaml:"send_to_planner_after_threshold" default:"true"`
	HumanEscalationThreshold    int  `json:"human_escalation_threshold" yaml:"human_escalation_threshold" default:"10"`
	EscalationCooldownMinutes   int  `json:"escalation_cooldown_minutes" yaml:"escalation_cooldown_minutes" default:"15"`
	MaxRetentionDays            int  `json:"max_retention_days" yaml:"max_retention_days" default:"30"`
}

// IdempotencyConfig configures the idempotency cache and rollback system
// (§6 "idempotency").
type IdempotencyConfig struct {
	Enabled           bool          `json:"enabled" yaml:"enabled" default:"true"`
	CacheTTL          time.Duration `json:"cache_ttl" yaml:"cache_ttl" default:"1h"`
	MaxSnapshots      int           `json:"max_snapshots" yaml:"max_snapshots" default:"100"`
	AutoRollback      bool          `json:"auto_rollback" yaml:"auto_rollback" default:"false"`
	CheckTimeout      time.Duration `json:"check_timeout" yaml:"check_timeout" default:"10s"`
	RollbackOnFailure bool          `json:"rollback_on_failure" yaml:"rollback_on_failure" default:"true"`
	RollbackTimeout   time.Duration `json:"rollback_timeout" yaml:"rollback_timeout" default:"60s"`
	PreserveSnapshots bool          `json:"preserve_snapshots" yaml:"preserve_snapshots" default:"false"`

	// Per-check-type enable flags, mirroring CheckType in types.go.
	EnableFileExistsCheck       bool `json:"enable_file_exists_check" yaml:"enable_file_exists_check" default:"true"`
	EnableServiceRunningCheck   bool `json:"enable_service_running_check" yaml:"enable_service_running_check" default:"true"`
	EnablePackageInstalledCheck bool `json:"enable_package_installed_check" yaml:"enable_package_installed_check" default:"true"`
	EnableUserExistsCheck       bool `json:"enable_user_exists_check" yaml:"enable_user_exists_check" default:"true"`
	EnablePortOpenCheck         bool `json:"enable_port_open_check" yaml:"enable_port_open_check" default:"true"`

	LogCacheHits   bool `json:"log_cache_hits" yaml:"log_cache_hits" default:"false"`
	LogSkippedRuns bool `json:"log_skipped_runs" yaml:"log_skipped_runs" default:"true"`

	// Backend selects the Memory implementation: "memory" or "redis".
	Backend  string `json:"backend" yaml:"backend" env:"SSHAGENT_IDEMPOTENCY_BACKEND" default:"memory"`
	RedisURL string `json:"redis_url" yaml:"redis_url" env:"SSHAGENT_REDIS_URL" default:""`
}

// SecurityConfig configures the Safety Validator (§6 "security").
type SecurityConfig struct {
	ValidateCommands                bool `json:"validate_commands" yaml:"validate_commands" default:"true"`
	LogForbiddenAttempts             bool `json:"log_forbidden_attempts" yaml:"log_forbidden_attempts" default:"true"`
	RequireConfirmationForDangerous bool `json:"require_confirmation_for_dangerous" yaml:"require_confirmation_for_dangerous" default:"true"`
	AllowedCommandsOnly              bool `json:"allowed_commands_only" yaml:"allowed_commands_only" default:"false"`
}

// LoggingConfig configures process-wide log output (§6 "logging").
type LoggingConfig struct {
	Level         string `json:"level" yaml:"level" env:"SSHAGENT_LOG_LEVEL" default:"info"`
	LogFile       string `json:"log_file" yaml:"log_file" default:""`
	ErrorFile     string `json:"error_file" yaml:"error_file" default:""`
	MaxFileSizeMB int    `json:"max_file_size_mb" yaml:"max_file_size_mb" default:"100"`
	RetentionDays int    `json:"retention_days" yaml:"retention_days" default:"30"`
	Compression   bool   `json:"compression" yaml:"compression" default:"false"`
}

// AuthMethod enumerates the Server profile's supported SSH authentication
// modes (§6 "Server profile").
type AuthMethod string

const (
	AuthKey      AuthMethod = "key"
	AuthPassword AuthMethod = "password"
)

// ServerProfile describes one remediation target (§6 "Server profile").
type ServerProfile struct {
	Host              string        `json:"host" yaml:"host"`
	Port              int           `json:"port" yaml:"port" default:"22"`
	Username          string        `json:"username" yaml:"username"`
	AuthMethod        AuthMethod    `json:"auth_method" yaml:"auth_method" default:"key"`
	KeyPath           string        `json:"key_path,omitempty" yaml:"key_path,omitempty"`
	Password          string        `json:"password,omitempty" yaml:"password,omitempty"`
	Timeout           time.Duration `json:"timeout" yaml:"timeout" default:"30s"`
	OSType            string        `json:"os_type" yaml:"os_type" default:"ubuntu"`
	ForbiddenCommands []string      `json:"forbidden_commands,omitempty" yaml:"forbidden_commands,omitempty"`
	InstalledServices []string      `json:"installed_services,omitempty" yaml:"installed_services,omitempty"`
	InstalledPackages []string      `json:"installed_packages,omitempty" yaml:"installed_packages,omitempty"`
	DiskThresholdMB   int           `json:"disk_threshold_mb" yaml:"disk_threshold_mb" default:"500"`
	MemoryThresholdMB int           `json:"memory_threshold_mb" yaml:"memory_threshold_mb" default:"256"`
}

// DefaultConfig returns a configuration with every §6 section populated
// from its documented defaults.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			APIKey:         PlaceholderAPIKey,
			Model:          "gpt-4",
			Provider:       "openai",
			Temperature:    0.3,
			MaxTokens:      4000,
			Timeout:        DefaultLLMTimeout,
			CircuitBreaker: DefaultCircuitBreakerConfig(),
		},
		Taskmaster: TaskmasterConfig{
			Enabled:     false,
			Model:       "gpt-4",
			Temperature: 0.2,
			MaxTokens:   1000,
		},
		TaskAgent: TaskAgentConfig{
			Model:       "gpt-4",
			Temperature: 0.3,
			MaxSteps:    20,
			MaxTokens:   4000,
		},
		SubtaskAgent: SubtaskAgentConfig{
			Model:       "gpt-4",
			Temperature: 0.3,
			MaxSubtasks: 30,
			MaxTokens:   4000,
		},
		Executor: ExecutorConfig{
			MaxRetriesPerCommand:      3,
			AutoCorrectionEnabled:     true,
			DryRunMode:                false,
			CommandTimeout:            DefaultCommandTimeout,
			AutocorrectionMaxAttempts: 3,
			AutocorrectionTimeout:     15 * time.Second,
			EnablePermissionFix:       true,
			EnableCommandSubstitution: true,
			EnablePackageUpdate:       true,
			EnableServiceRestart:      true,
			EnableNetworkCheck:        true,
			EnablePathCorrection:      true,
			EnableSyntaxCheck:         true,
			EnableAlternativeFlags:    true,
		},
		ErrorHandler: ErrorHandlerConfig{
			ErrorThresholdPerStep:       5,
			SendToPlannerAfterThreshold: true,
			HumanEscalationThreshold:    10,
			EscalationCooldownMinutes:   15,
			MaxRetentionDays:            30,
		},
		Idempotency: IdempotencyConfig{
			Enabled:                     true,
			CacheTTL:                    1 * time.Hour,
			MaxSnapshots:                100,
			AutoRollback:                false,
			CheckTimeout:                10 * time.Second,
			RollbackOnFailure:           true,
			RollbackTimeout:             60 * time.Second,
			PreserveSnapshots:           false,
			EnableFileExistsCheck:       true,
			EnableServiceRunningCheck:   true,
			EnablePackageInstalledCheck: true,
			EnableUserExistsCheck:       true,
			EnablePortOpenCheck:         true,
			LogCacheHits:                false,
			LogSkippedRuns:              true,
			Backend:                     "memory",
		},
		Security: SecurityConfig{
			ValidateCommands:                true,
			LogForbiddenAttempts:            true,
			RequireConfirmationForDangerous: true,
			AllowedCommandsOnly:              false,
		},
		Logging: LoggingConfig{
			Level:         "info",
			MaxFileSizeMB: 100,
			RetentionDays: 30,
			Compression:   false,
		},
	}
}

// LoadFromEnv overlays environment variables recognized by §6 onto cfg.
// Functional options applied afterward always win (three-layer priority).
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv(EnvLLMAPIKey); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv(EnvLLMBaseURL); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv(EnvLLMProvider); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("SSHAGENT_LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv(EnvRedisURL); v != "" {
		c.Idempotency.RedisURL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SSHAGENT_EXECUTOR_DRY_RUN"); v != "" {
		c.Executor.DryRunMode = parseBool(v)
	}
	if v := os.Getenv("SSHAGENT_IDEMPOTENCY_BACKEND"); v != "" {
		c.Idempotency.Backend = v
	}
	if v := os.Getenv("SSHAGENT_LLM_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.LLM.MaxTokens = n
		} else if c.logger != nil {
			c.logger.Warn("invalid integer in environment variable", map[string]interface{}{
				"SSHAGENT_LLM_MAX_TOKENS": v,
				"error":                   err.Error(),
			})
		}
	}
	return nil
}

// Validate enforces every numeric/enum range named in §6. It returns the
// first violation found.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return &FrameworkError{Op: "Config.Validate", Kind: "config", Message: "llm api_key is required", Err: ErrMissingConfig}
	}
	if c.LLM.APIKey == PlaceholderAPIKey {
		return &FrameworkError{Op: "Config.Validate", Kind: "config", Message: "llm api_key must not be the placeholder value", Err: ErrInvalidConfig}
	}
	if c.LLM.Provider != "openai" && c.LLM.Provider != "gemini" && c.LLM.Provider != "mock" {
		return &FrameworkError{Op: "Config.Validate", Kind: "config", Message: fmt.Sprintf("unsupported llm provider: %s", c.LLM.Provider), Err: ErrInvalidConfig}
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return &FrameworkError{Op: "Config.Validate", Kind: "config", Message: fmt.Sprintf("llm temperature out of range [0,2]: %v", c.LLM.Temperature), Err: ErrInvalidConfig}
	}
	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 8000 {
		return &FrameworkError{Op: "Config.Validate", Kind: "config", Message: fmt.Sprintf("llm max_tokens out of range [1,8000]: %d", c.LLM.MaxTokens), Err: ErrInvalidConfig}
	}
	if c.TaskAgent.MaxSteps < 1 || c.TaskAgent.MaxSteps > 50 {
		return &FrameworkError{Op: "Config.Validate", Kind: "config", Message: fmt.Sprintf("task_agent max_steps out of range [1,50]: %d", c.TaskAgent.MaxSteps), Err: ErrInvalidConfig}
	}
	if c.SubtaskAgent.MaxSubtasks < 1 || c.SubtaskAgent.MaxSubtasks > 100 {
		return &FrameworkError{Op: "Config.Validate", Kind: "config", Message: fmt.Sprintf("subtask_agent max_subtasks out of range [1,100]: %d", c.SubtaskAgent.MaxSubtasks), Err: ErrInvalidConfig}
	}
	if c.Executor.MaxRetriesPerCommand < 0 || c.Executor.MaxRetriesPerCommand > 10 {
		return &FrameworkError{Op: "Config.Validate", Kind: "config", Message: fmt.Sprintf("executor max_retries_per_command out of range [0,10]: %d", c.Executor.MaxRetriesPerCommand), Err: ErrInvalidConfig}
	}
	if c.Executor.CommandTimeout < time.Second || c.Executor.CommandTimeout > 300*time.Second {
		return &FrameworkError{Op: "Config.Validate", Kind: "config", Message: fmt.Sprintf("executor command_timeout out of range [1s,300s]: %v", c.Executor.CommandTimeout), Err: ErrInvalidConfig}
	}
	if c.ErrorHandler.ErrorThresholdPerStep < 1 {
		return &FrameworkError{Op: "Config.Validate", Kind: "config", Message: "error_handler error_threshold_per_step must be positive", Err: ErrInvalidConfig}
	}
	if c.ErrorHandler.HumanEscalationThreshold < c.ErrorHandler.ErrorThresholdPerStep {
		return &FrameworkError{Op: "Config.Validate", Kind: "config", Message: "error_handler human_escalation_threshold must be >= error_threshold_per_step", Err: ErrInvalidConfig}
	}
	if c.Idempotency.Enabled && c.Idempotency.Backend == "redis" && c.Idempotency.RedisURL == "" {
		return &FrameworkError{Op: "Config.Validate", Kind: "config", Message: "idempotency redis_url is required when backend=redis", Err: ErrMissingConfig}
	}
	switch c.Logging.Level {
	case "debug", "info", "warning", "error", "critical":
	default:
		return &FrameworkError{Op: "Config.Validate", Kind: "config", Message: fmt.Sprintf("invalid logging level: %s", c.Logging.Level), Err: ErrInvalidConfig}
	}
	return nil
}

// Helper functions

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// Option mutates a Config during NewConfig. Functional options are the
// highest-priority configuration layer.
type Option func(*Config) error

// WithLLMProvider sets the LLM provider and model together.
func WithLLMProvider(provider, model string) Option {
	return func(c *Config) error {
		c.LLM.Provider = provider
		c.LLM.Model = model
		return nil
	}
}

// WithLLMAPIKey sets the LLM API key.
func WithLLMAPIKey(key string) Option {
	return func(c *Config) error {
		c.LLM.APIKey = key
		return nil
	}
}

// WithDryRunMode toggles executor-wide dry-run simulation.
func WithDryRunMode(enabled bool) Option {
	return func(c *Config) error {
		c.Executor.DryRunMode = enabled
		return nil
	}
}

// WithAutoCorrection toggles the autocorrection engine.
func WithAutoCorrection(enabled bool) Option {
	return func(c *Config) error {
		c.Executor.AutoCorrectionEnabled = enabled
		return nil
	}
}

// WithIdempotencyBackend selects the idempotency cache backend ("memory"
// or "redis") and, for redis, its connection URL.
func WithIdempotencyBackend(backend, redisURL string) Option {
	return func(c *Config) error {
		c.Idempotency.Backend = backend
		c.Idempotency.RedisURL = redisURL
		return nil
	}
}

// WithLogLevel sets the process-wide log level.
func WithLogLevel(level string) Option {
	return func(c *Config) error {
		c.Logging.Level = level
		return nil
	}
}

// WithLogger installs a Logger used for configuration-loading diagnostics.
func WithLogger(logger Logger) Option {
	return func(c *Config) error {
		c.logger = logger
		return nil
	}
}

// NewConfig builds a Config from defaults, then environment variables,
// then functional options, validating the result before returning it.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env config: %w", err)
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Package safety implements the Safety Validator (§4.1): command
// classification into safe/dangerous/forbidden, allow-list enforcement,
// and the process-local attempt counters every other component consults
// before a command reaches the wire.
package safety

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/LLprod39/agent-ssh-dev-sub001/core"
)

// ValidationContext carries the caller identity attached to a forbidden-
// attempt log record (§4.1: "context (step id, task id, user)"). Alias
// of core.ValidationContext so the transport package's Validator
// interface and this package's concrete Validate method share one type.
type ValidationContext = core.ValidationContext

// Counters are the validator's process-local attempt tallies.
type Counters struct {
	Total      int64
	Forbidden  int64
	Dangerous  int64
	Allowed    int64
	Rejected   int64
}

// Validator classifies commands per §4.1's algorithm. Zero value is not
// usable; construct with New.
type Validator struct {
	mu sync.Mutex

	forbidden []compiledPattern
	dangerous []compiledPattern
	allowList []string // command prefixes; empty means allow-list disabled

	allowListOnly        bool
	requireConfirmation  bool
	logForbiddenAttempts bool

	counters Counters

	logger core.Logger
}

type compiledPattern struct {
	name string
	re   *regexp.Regexp
}

// New builds a Validator with the default forbidden/dangerous tables from
// §4.1, seeded from cfg. logger may be core.NoOpLogger{}.
func New(cfg core.SecurityConfig, logger core.Logger) *Validator {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	v := &Validator{
		forbidden:            defaultForbiddenPatterns(),
		dangerous:            defaultDangerousPatterns(),
		allowListOnly:        cfg.AllowedCommandsOnly,
		requireConfirmation:  cfg.RequireConfirmationForDangerous,
		logForbiddenAttempts: cfg.LogForbiddenAttempts,
		logger:               logger,
	}
	return v
}

// defaultForbiddenPatterns is the §4.1 forbidden set: commands that must
// never execute regardless of allow-list or confirmation policy.
func defaultForbiddenPatterns() []compiledPattern {
	return []compiledPattern{
		{"rm_rf_root", regexp.MustCompile(`rm\s+-[a-z]*r[a-z]*f[a-z]*\s+/\s*$`)},
		{"rm_rf_root_flags_split", regexp.MustCompile(`rm\s+-[a-z]*f[a-z]*r[a-z]*\s+/\s*$`)},
		{"dd_wipe_device", regexp.MustCompile(`dd\s+if=/dev/(zero|random|urandom)\b`)},
		{"mkfs", regexp.MustCompile(`\bmkfs(\.\w+)?\b`)},
		{"fdisk_device", regexp.MustCompile(`fdisk\s+/dev/\w+`)},
		{"power_control", regexp.MustCompile(`\b(shutdown|reboot|halt|poweroff)\b`)},
		{"fork_bomb", regexp.MustCompile(`:\(\)\s*\{\s*:\|\s*:\s*&\s*\}\s*;\s*:`)},
		{"redirect_block_device", regexp.MustCompile(`>\s*/dev/sd[a-z]\d*\b`)},
		{"chmod_777_global", regexp.MustCompile(`chmod\s+(-r\s+)?(777|666)\s+/\s*$`)},
		{"chown_root_recursive", regexp.MustCompile(`chown\s+-r\s+\S+\s+/\s*$`)},
		{"crontab_remove", regexp.MustCompile(`crontab\s+-r\b`)},
	}
}

// defaultDangerousPatterns is the §4.1 dangerous set: commands that
// execute but accumulate warnings and (by policy) require confirmation.
func defaultDangerousPatterns() []compiledPattern {
	return []compiledPattern{
		{"rm_recursive", regexp.MustCompile(`rm\s+-[a-z]*r[a-z]*\b`)},
		{"kill_signal_9", regexp.MustCompile(`kill\s+-9\b`)},
		{"pkill", regexp.MustCompile(`\bpkill\b`)},
		{"iptables_flush", regexp.MustCompile(`iptables\s+-f\b`)},
		{"systemctl_stop_critical", regexp.MustCompile(`systemctl\s+stop\s+(sshd|networking|network)\b`)},
		{"truncate_file", regexp.MustCompile(`>\s*/(etc|var)/\S+`)},
		{"chmod_wide", regexp.MustCompile(`chmod\s+(-r\s+)?[0-7]*7[0-7]{2}\b`)},
		{"passwd_root", regexp.MustCompile(`passwd\s+root\b`)},
		{"visudo_edit", regexp.MustCompile(`\bvisudo\b`)},
	}
}

// Validate runs the §4.1 algorithm against command and returns a
// ValidationResult. vctx is used only for the forbidden-attempt log
// record; it may be the zero value.
func (v *Validator) Validate(command string, vctx ValidationContext) core.ValidationResult {
	v.mu.Lock()
	v.counters.Total++
	v.mu.Unlock()

	trimmed := strings.TrimSpace(command)
	lowered := strings.ToLower(trimmed)

	if trimmed == "" {
		v.reject()
		return core.ValidationResult{
			Valid:         false,
			Errors:        []string{"command is empty"},
			SecurityLevel: core.SecurityForbidden,
		}
	}

	if v.allowListOnly {
		v.mu.Lock()
		allowed := v.matchesAllowList(lowered)
		v.mu.Unlock()
		if !allowed {
			v.reject()
			return core.ValidationResult{
				Valid:         false,
				Errors:        []string{"command is not on the allow-list"},
				SecurityLevel: core.SecurityForbidden,
			}
		}
	}

	v.mu.Lock()
	forbiddenMatch := matchAny(v.forbidden, lowered)
	v.mu.Unlock()
	if forbiddenMatch != "" {
		v.mu.Lock()
		v.counters.Forbidden++
		v.counters.Rejected++
		v.mu.Unlock()
		if v.logForbiddenAttempts {
			v.logger.Warn("forbidden command attempt", map[string]interface{}{
				"command":  command,
				"pattern":  forbiddenMatch,
				"task_id":  vctx.TaskID,
				"step_id":  vctx.StepID,
				"user":     vctx.User,
			})
		}
		return core.ValidationResult{
			Valid:         false,
			Errors:        []string{"command matches forbidden pattern: " + forbiddenMatch},
			SecurityLevel: core.SecurityForbidden,
		}
	}

	v.mu.Lock()
	dangerousMatches := matchAll(v.dangerous, lowered)
	v.mu.Unlock()
	if len(dangerousMatches) > 0 {
		v.mu.Lock()
		v.counters.Dangerous++
		v.counters.Allowed++
		v.mu.Unlock()
		warnings := make([]string, len(dangerousMatches))
		for i, m := range dangerousMatches {
			warnings[i] = "matches dangerous pattern: " + m
		}
		return core.ValidationResult{
			Valid:                true,
			Warnings:             warnings,
			SecurityLevel:        core.SecurityDangerous,
			RequiresConfirmation: v.requireConfirmation,
		}
	}

	v.mu.Lock()
	v.counters.Allowed++
	v.mu.Unlock()
	return core.ValidationResult{
		Valid:         true,
		SecurityLevel: core.SecuritySafe,
	}
}

// IsSafe reports whether command validates as safe (valid and
// security_level=safe), per §4.1's contract.
func (v *Validator) IsSafe(command string) bool {
	result := v.Validate(command, ValidationContext{})
	return result.Valid && result.SecurityLevel == core.SecuritySafe
}

// ValidateContext is the context-aware variant used by callers that need
// to honor cancellation around logging (e.g. a structured log sink with
// its own timeout); the classification itself is synchronous and cheap.
func (v *Validator) ValidateContext(ctx context.Context, command string, vctx ValidationContext) core.ValidationResult {
	return v.Validate(command, vctx)
}

func (v *Validator) reject() {
	v.mu.Lock()
	v.counters.Rejected++
	v.mu.Unlock()
}

func (v *Validator) matchesAllowList(lowered string) bool {
	for _, prefix := range v.allowList {
		if strings.HasPrefix(lowered, strings.ToLower(prefix)) {
			return true
		}
	}
	return false
}

func matchAny(patterns []compiledPattern, s string) string {
	for _, p := range patterns {
		if p.re.MatchString(s) {
			return p.name
		}
	}
	return ""
}

func matchAll(patterns []compiledPattern, s string) []string {
	var matches []string
	for _, p := range patterns {
		if p.re.MatchString(s) {
			matches = append(matches, p.name)
		}
	}
	return matches
}

// AddForbiddenPattern registers an additional forbidden pattern at
// runtime (§4.1: "supports dynamic add/remove ... at runtime").
func (v *Validator) AddForbiddenPattern(name, pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return core.NewFrameworkError("safety.AddForbiddenPattern", "validation", err)
	}
	v.mu.Lock()
	v.forbidden = append(v.forbidden, compiledPattern{name: name, re: re})
	v.mu.Unlock()
	return nil
}

// RemoveForbiddenPattern removes a previously added forbidden pattern by
// name. Removing an unknown name is a no-op.
func (v *Validator) RemoveForbiddenPattern(name string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	kept := v.forbidden[:0]
	for _, p := range v.forbidden {
		if p.name != name {
			kept = append(kept, p)
		}
	}
	v.forbidden = kept
}

// AddDangerousPattern registers an additional dangerous pattern at runtime.
func (v *Validator) AddDangerousPattern(name, pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return core.NewFrameworkError("safety.AddDangerousPattern", "validation", err)
	}
	v.mu.Lock()
	v.dangerous = append(v.dangerous, compiledPattern{name: name, re: re})
	v.mu.Unlock()
	return nil
}

// RemoveDangerousPattern removes a previously added dangerous pattern by
// name. Removing an unknown name is a no-op.
func (v *Validator) RemoveDangerousPattern(name string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	kept := v.dangerous[:0]
	for _, p := range v.dangerous {
		if p.name != name {
			kept = append(kept, p)
		}
	}
	v.dangerous = kept
}

// SetAllowList replaces the allow-list prefix table. An empty list with
// allow-list-only mode enabled rejects every command (§4, boundary case).
func (v *Validator) SetAllowList(prefixes []string) {
	v.mu.Lock()
	v.allowList = append([]string(nil), prefixes...)
	v.mu.Unlock()
}

// Counters returns a snapshot of the validator's process-local tallies.
func (v *Validator) Counters() Counters {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.counters
}

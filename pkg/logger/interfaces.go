package logger

import "github.com/LLprod39/agent-ssh-dev-sub001/core"

// Logger is an alias for core.ComponentAwareLogger so callers that only
// need the logging contract don't have to import core.
type Logger = core.ComponentAwareLogger

// LogLevel represents the logging severity level.
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	CriticalLevel
)

// ParseLevel converts a §6 logging.level string to a LogLevel, defaulting
// to InfoLevel for unrecognized input.
func ParseLevel(level string) LogLevel {
	switch level {
	case "debug":
		return DebugLevel
	case "warning", "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "critical":
		return CriticalLevel
	default:
		return InfoLevel
	}
}

func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case CriticalLevel:
		return "CRITICAL"
	default:
		return "INFO"
	}
}

package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/LLprod39/agent-ssh-dev-sub001/core"
)

// SimpleLogger is a small structured logger: leveled, text or JSON, with
// a persistent field set for WithComponent-scoped children.
type SimpleLogger struct {
	mu        sync.Mutex
	level     LogLevel
	json      bool
	component string
	fields    map[string]interface{}
	out       io.Writer
	errOut    io.Writer
}

// Options configures New.
type Options struct {
	Level   string // §6 logging.level
	JSON    bool
	Out     io.Writer // defaults to os.Stdout
	ErrOut  io.Writer // defaults to Out; used for Error and above when set
}

// New builds a SimpleLogger from Options.
func New(opts Options) *SimpleLogger {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	errOut := opts.ErrOut
	if errOut == nil {
		errOut = out
	}
	return &SimpleLogger{
		level:  ParseLevel(opts.Level),
		json:   opts.JSON,
		out:    out,
		errOut: errOut,
		fields: map[string]interface{}{},
	}
}

// NewFromConfig builds a SimpleLogger from the engine's §6 LoggingConfig,
// opening LogFile/ErrorFile when configured.
func NewFromConfig(cfg core.LoggingConfig) (*SimpleLogger, error) {
	var out io.Writer = os.Stdout
	var errOut io.Writer = os.Stderr

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, f)
	}
	if cfg.ErrorFile != "" {
		f, err := os.OpenFile(cfg.ErrorFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open error file: %w", err)
		}
		errOut = io.MultiWriter(os.Stderr, f)
	}

	return New(Options{Level: cfg.Level, JSON: true, Out: out, ErrOut: errOut}), nil
}

// NewDefaultLogger returns an info-level, text-format logger writing to
// stdout — a convenient zero-config default for tests and small tools.
func NewDefaultLogger() *SimpleLogger {
	return New(Options{Level: "info"})
}

func (l *SimpleLogger) clone(extra map[string]interface{}) *SimpleLogger {
	merged := make(map[string]interface{}, len(l.fields)+len(extra))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return &SimpleLogger{
		level:     l.level,
		json:      l.json,
		component: l.component,
		fields:    merged,
		out:       l.out,
		errOut:    l.errOut,
	}
}

// WithComponent returns a child logger tagging every entry with component,
// so a single process-wide logger can be specialized per subsystem.
func (l *SimpleLogger) WithComponent(component string) core.Logger {
	child := l.clone(nil)
	child.component = component
	return child
}

func (l *SimpleLogger) Debug(msg string, fields map[string]interface{}) {
	l.log(DebugLevel, msg, fields, nil)
}
func (l *SimpleLogger) Info(msg string, fields map[string]interface{}) {
	l.log(InfoLevel, msg, fields, nil)
}
func (l *SimpleLogger) Warn(msg string, fields map[string]interface{}) {
	l.log(WarnLevel, msg, fields, nil)
}
func (l *SimpleLogger) Error(msg string, fields map[string]interface{}) {
	l.log(ErrorLevel, msg, fields, nil)
}

func (l *SimpleLogger) DebugWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log(DebugLevel, msg, fields, ctx)
}
func (l *SimpleLogger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log(InfoLevel, msg, fields, ctx)
}
func (l *SimpleLogger) WarnWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log(WarnLevel, msg, fields, ctx)
}
func (l *SimpleLogger) ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log(ErrorLevel, msg, fields, ctx)
}

func (l *SimpleLogger) log(level LogLevel, msg string, fields map[string]interface{}, ctx context.Context) {
	if level < l.level {
		return
	}

	out := l.out
	if level >= ErrorLevel {
		out = l.errOut
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	if l.json {
		entry := map[string]interface{}{
			"timestamp": timestamp,
			"level":     level.String(),
			"message":   msg,
		}
		if l.component != "" {
			entry["component"] = l.component
		}
		if requestID, ok := requestIDFromContext(ctx); ok {
			entry["request_id"] = requestID
		}
		for k, v := range l.fields {
			entry[k] = v
		}
		for k, v := range fields {
			entry[k] = v
		}
		if data, err := json.Marshal(entry); err == nil {
			fmt.Fprintln(out, string(data))
		}
		return
	}

	var b strings.Builder
	b.WriteString(timestamp)
	b.WriteString(" [")
	b.WriteString(level.String())
	b.WriteString("]")
	if l.component != "" {
		fmt.Fprintf(&b, " [%s]", l.component)
	}
	b.WriteString(" ")
	b.WriteString(msg)
	for k, v := range l.fields {
		fmt.Fprintf(&b, " %s=%v", k, v)
	}
	for k, v := range fields {
		fmt.Fprintf(&b, " %s=%v", k, v)
	}

	l.mu.Lock()
	fmt.Fprintln(out, b.String())
	l.mu.Unlock()
}

type contextKey string

const requestIDKey contextKey = "request_id"

// WithRequestID attaches a request/correlation id to ctx for log entries
// produced further down the call chain.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func requestIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok && id != ""
}

var _ core.ComponentAwareLogger = (*SimpleLogger)(nil)

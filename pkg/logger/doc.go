// Package logger is the engine's concrete structured logging
// implementation. SimpleLogger implements core.ComponentAwareLogger:
// leveled (debug/info/warning/error/critical per §6), text or JSON
// output, optional log/error file sinks, and WithComponent child loggers
// for per-subsystem tagging.
//
// # Usage
//
//	log, err := logger.NewFromConfig(cfg.Logging)
//	execLog := log.WithComponent("executor")
//	execLog.Info("subtask started", map[string]interface{}{"subtask_id": id})
//
// Attach a request/correlation id to a context with WithRequestID so it
// is carried into every *WithContext log call down the chain.
package logger

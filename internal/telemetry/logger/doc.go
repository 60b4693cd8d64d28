// Package logger provides structured logging for meshview.
//
// It wraps log/slog:
//
//   - logger.go: handler setup, global level and package-level helpers
//   - context.go: logger and request ID propagation through context
//   - redact.go: masking of credentials before they reach the output
//
// The level is held in a shared slog.LevelVar so a config reload can
// change it without rebuilding loggers.
package logger

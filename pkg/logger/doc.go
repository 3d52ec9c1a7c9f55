// Package logger provides structured logging with configurable log
// levels. It wraps the standard log/slog package and provides a simple
// interface for application-wide logging.
package logger

// Package logger provides structured logging functionality for the application.
//
// It utilizes Go's standard library log/slog package to implement structured JSON logging
// with configurable log levels. Every record passes through RedactingHandler so that
// API keys and credentials echoed in upstream errors never reach the log stream.
package logger

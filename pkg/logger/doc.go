// Package logger provides structured logging with configurable log levels.
// It wraps the standard log/slog package and tags every record with the
// emitting service so logs from both processes can be told apart.
package logger

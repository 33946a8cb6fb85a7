// Package logger builds the process-wide slog.Logger from the log section
// of the configuration.
package logger

// Package logger defines the logging interface shared by every component.
package logger

// Logger is implemented by infra/logger. Components receive one with their own
// component field already set.
type Logger interface {
	Debugf(format string, args ...any)
	// Debugw logs a message with structured fields.
	Debugw(msg string, fields map[string]any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

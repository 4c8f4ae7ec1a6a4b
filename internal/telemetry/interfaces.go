// Package telemetry holds the small logging interface shared by server
// components, decoupling them from the standard library logger.
package telemetry

import "log"

// Logger exposes the operational logging used by server components. The
// structured event stream is separate; this is for plain messages.
type Logger interface {
	Printf(format string, args ...any)
}

// LoggerFunc adapts a function into the Logger interface.
type LoggerFunc func(format string, args ...any)

// Printf implements Logger.
func (f LoggerFunc) Printf(format string, args ...any) {
	if f == nil {
		return
	}
	f(format, args...)
}

// WrapLogger adapts a standard library logger to the Logger interface.
func WrapLogger(logger *log.Logger) Logger {
	return &loggerAdapter{logger: logger}
}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger {
	return LoggerFunc(nil)
}

type loggerAdapter struct {
	logger *log.Logger
}

func (l *loggerAdapter) Printf(format string, args ...any) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Printf(format, args...)
}

package logging

import (
	"context"

	"github.com/groundworkd/groundwork/internal/ports"
)

// NopLogger discards all log messages. Useful in tests.
type NopLogger struct {
	level ports.Level
}

// NewNopLogger creates a new NopLogger.
func NewNopLogger() *NopLogger {
	return &NopLogger{}
}

// Debug discards the message.
func (l *NopLogger) Debug(context.Context, string, ...ports.Field) {}

// Info discards the message.
func (l *NopLogger) Info(context.Context, string, ...ports.Field) {}

// Warn discards the message.
func (l *NopLogger) Warn(context.Context, string, ...ports.Field) {}

// Error discards the message.
func (l *NopLogger) Error(context.Context, string, ...ports.Field) {}

// With returns the same logger.
func (l *NopLogger) With(...ports.Field) ports.Logger { return l }

// Level returns the configured level.
func (l *NopLogger) Level() ports.Level { return l.level }

// SetLevel sets the configured level.
func (l *NopLogger) SetLevel(level ports.Level) { l.level = level }

// Ensure NopLogger implements ports.Logger.
var _ ports.Logger = (*NopLogger)(nil)

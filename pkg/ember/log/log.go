// Package log wraps go.uber.org/zap behind the small facade this
// codebase's connection and server types accept, grounded on
// packetd-packetd's logger.Logger (logger/logger.go) but trimmed for
// library use: no log rotation, no global mutable state, and a silent
// no-op default so embedders who never configure a logger pay nothing.
package log

import "go.uber.org/zap"

// Logger is the subset of *zap.Logger this module calls.
type Logger struct {
	z *zap.Logger
}

// Nop returns a Logger that discards everything, the default for
// ServerConfig/ConnectionConfig.
func Nop() Logger {
	return Logger{z: zap.NewNop()}
}

// Wrap adapts an existing *zap.Logger constructed by the embedder.
func Wrap(z *zap.Logger) Logger {
	if z == nil {
		return Nop()
	}
	return Logger{z: z}
}

func (l Logger) Debug(msg string, fields ...zap.Field) { l.z.Debug(msg, fields...) }
func (l Logger) Info(msg string, fields ...zap.Field)  { l.z.Info(msg, fields...) }
func (l Logger) Warn(msg string, fields ...zap.Field)  { l.z.Warn(msg, fields...) }
func (l Logger) Error(msg string, fields ...zap.Field) { l.z.Error(msg, fields...) }

// With returns a Logger with additional structured context attached,
// e.g. the per-connection trace ID.
func (l Logger) With(fields ...zap.Field) Logger {
	return Logger{z: l.z.With(fields...)}
}

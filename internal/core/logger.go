package core

import "go.uber.org/zap"

// Logger is the structured key/value logging contract used by the repository.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// zapLogger adapts a zap.SugaredLogger to Logger.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger wraps l; a nil logger falls back to zap.NewNop.
func NewZapLogger(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return zapLogger{sugar: l.Sugar()}
}

func (z zapLogger) Debug(msg string, kv ...any) { z.sugar.Debugw(msg, kv...) }
func (z zapLogger) Info(msg string, kv ...any)  { z.sugar.Infow(msg, kv...) }
func (z zapLogger) Warn(msg string, kv ...any)  { z.sugar.Warnw(msg, kv...) }
func (z zapLogger) Error(msg string, kv ...any) { z.sugar.Errorw(msg, kv...) }

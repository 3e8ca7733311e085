package logger

import (
	"go.uber.org/zap"
)

type zapLogger struct {
	sugar *zap.SugaredLogger
}

var _ Logger = &zapLogger{}

// NewZap adapts a zap logger to the Logger interface.
// The CLI uses this so library logs flow through the same
// structured logger as the rest of the binary.
func NewZap(log *zap.Logger) Logger {
	return &zapLogger{sugar: log.Sugar()}
}

func (z *zapLogger) Debugf(format string, args ...any) {
	z.sugar.Debugf(format, args...)
}

func (z *zapLogger) Infof(format string, args ...any) {
	z.sugar.Infof(format, args...)
}

func (z *zapLogger) Warnf(format string, args ...any) {
	z.sugar.Warnf(format, args...)
}

func (z *zapLogger) Errorf(format string, args ...any) {
	z.sugar.Errorf(format, args...)
}

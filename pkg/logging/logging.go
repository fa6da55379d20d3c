package logging

import (
	"context"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the logger for one invocation. Callers pass it down explicitly.
func New(debug bool) (*otelzap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return otelzap.New(z), nil
}

// Wrap adapts an existing zap logger, typically an observer core in tests.
func Wrap(z *zap.Logger) *otelzap.Logger {
	return otelzap.New(z)
}

// Nop returns a logger that discards everything.
func Nop() *otelzap.Logger {
	return otelzap.New(zap.NewNop())
}

// C returns a context-aware logger, falling back to Nop when l is nil.
func C(ctx context.Context, l *otelzap.Logger) otelzap.LoggerWithCtx {
	if l == nil {
		l = Nop()
	}
	return l.Ctx(ctx)
}

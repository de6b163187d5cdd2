package splatsurf

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger adapts a zap logger to Logger. Debug output is gated by an atomic
// level so SetDebug takes effect immediately.
type ZapLogger struct {
	sugar *zap.SugaredLogger
	level zap.AtomicLevel
}

// NewZapLogger builds a console logger at info level, or debug when debug is set.
func NewZapLogger(name string, debug bool) (*ZapLogger, error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if debug {
		level.SetLevel(zapcore.DebugLevel)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = level
	cfg.DisableStacktrace = true
	base, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &ZapLogger{sugar: base.Named(name).Sugar(), level: level}, nil
}

// WrapZap adapts an existing logger. Its core decides what is emitted;
// DebugEnabled reports the adapter's own level.
func WrapZap(l *zap.Logger, debug bool) *ZapLogger {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if debug {
		level.SetLevel(zapcore.DebugLevel)
	}
	return &ZapLogger{sugar: l.Sugar(), level: level}
}

func (z *ZapLogger) DebugEnabled() bool { return z.level.Enabled(zapcore.DebugLevel) }

func (z *ZapLogger) SetDebug(enabled bool) {
	if enabled {
		z.level.SetLevel(zapcore.DebugLevel)
	} else {
		z.level.SetLevel(zapcore.InfoLevel)
	}
}

func (z *ZapLogger) Debugf(format string, args ...any) {
	if z.DebugEnabled() {
		z.sugar.Debugf(format, args...)
	}
}

func (z *ZapLogger) Infof(format string, args ...any)  { z.sugar.Infof(format, args...) }
func (z *ZapLogger) Warnf(format string, args ...any)  { z.sugar.Warnf(format, args...) }
func (z *ZapLogger) Errorf(format string, args ...any) { z.sugar.Errorf(format, args...) }

// Sync flushes buffered output.
func (z *ZapLogger) Sync() error { return z.sugar.Sync() }

// Package logger wraps zap initialization so the rest of the
// application only deals with a configured *zap.Logger.
package logger

import (
	"go.uber.org/zap"
)

// Logger holds the underlying zap logger instance.
type Logger struct {
	Log *zap.Logger
}

// New returns a Logger with a no-op zap instance. Call Init to
// replace it with a configured one.
func New() *Logger {
	return &Logger{Log: zap.NewNop()}
}

// Init builds a production zap logger at the given level ("debug",
// "info", "warn", "error") and installs it on the receiver.
func (l *Logger) Init(level string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl

	log, err := cfg.Build()
	if err != nil {
		return err
	}

	l.Log = log
	return nil
}

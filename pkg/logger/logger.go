// Package logger owns the process-wide zap logger. Packages obtain child
// loggers through WithModule instead of wiring zap themselves, so one Init
// call at startup controls the level and encoding everywhere.
package logger

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	global = zap.NewNop()
)

// Init builds the global logger at the given level. An unknown level string
// falls back to info rather than failing startup.
func Init(level string) error {
	lvl := zapcore.InfoLevel
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	built, err := cfg.Build()
	if err != nil {
		return err
	}

	mu.Lock()
	global = built
	mu.Unlock()
	return nil
}

// Logger returns the current global logger. Before Init it is a no-op
// logger, never nil.
func Logger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Sync flushes buffered entries. Best effort at shutdown.
func Sync() error {
	return Logger().Sync()
}

// WithModule returns a child logger tagged with the owning module.
func WithModule(module string) *zap.Logger {
	return Logger().With(zap.String("module", module))
}

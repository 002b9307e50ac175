// Package logging builds the process logger
package logging

import (
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates an ectologger backed by zap. Pretty selects zap's development
// encoder for local runs.
func New(appName, level string, pretty bool) (ectologger.Logger, func(), error) {
	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	if pretty {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	cfg.InitialFields = map[string]any{"app": appName}

	zapLogger, err := cfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}

	sync := func() { _ = zapLogger.Sync() }
	return zapadapter.NewZapEctoLogger(zapLogger, nil), sync, nil
}

// Nop returns a logger that discards every message
func Nop() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

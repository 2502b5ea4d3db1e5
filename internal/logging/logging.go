// Package logging builds the process zap logger from the debug-level knob.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level maps the debug knob (0 minimal, 1 normal, 2 verbose) to a zap level.
func Level(debugLevel int) zapcore.Level {
	switch {
	case debugLevel <= 0:
		return zapcore.WarnLevel
	case debugLevel == 1:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// Options for New.
type Options struct {
	DebugLevel int
	// File is appended to in addition to stderr.
	File string
	// Console switches from JSON to the human-readable encoder.
	Console bool
}

// New builds a production logger. Verbose output also switches the encoder to
// development settings so stack traces stay readable.
func New(opts Options) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(Level(opts.DebugLevel))
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if opts.Console {
		config.Encoding = "console"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	if opts.DebugLevel >= 2 {
		config.Development = true
		config.Sampling = nil
	}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		config.OutputPaths = append(config.OutputPaths, opts.File)
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger builds the process logger. The TUI owns the terminal, so it
// logs to a file; one-shot runs log to stderr and stay quiet below warn
// unless a level was asked for.
func newLogger(rc RunConfig, tui bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Sampling = nil

	level := zapcore.WarnLevel
	if rc.LogLevel != "" {
		l, err := zapcore.ParseLevel(rc.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", rc.LogLevel, err)
		}
		level = l
	} else if tui {
		level = zapcore.InfoLevel
	}
	if rc.Verbose {
		level = zapcore.DebugLevel
	}
	config.Level = zap.NewAtomicLevelAt(level)

	if tui && rc.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(rc.LogFile), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log dir: %w", err)
		}
		config.OutputPaths = []string{rc.LogFile}
		config.ErrorOutputPaths = []string{rc.LogFile}
	} else {
		config.OutputPaths = []string{"stderr"}
		config.ErrorOutputPaths = []string{"stderr"}
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

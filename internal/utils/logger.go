package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogOptions selects the logger flavor. File, when set, receives the log
// lines in addition to stderr.
type LogOptions struct {
	Level       string `json:"level" yaml:"level"`
	File        string `json:"file" yaml:"file"`
	Development bool   `json:"development" yaml:"development"`
}

// NewLogger builds a zap logger from opts.
func NewLogger(opts LogOptions) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if opts.Development {
		config = zap.NewDevelopmentConfig()
	}
	if opts.Level != "" {
		level, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		config.Level = zap.NewAtomicLevelAt(level)
	}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		config.OutputPaths = append(config.OutputPaths, opts.File)
	}
	return config.Build()
}

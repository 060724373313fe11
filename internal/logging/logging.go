// Package logging builds the zap loggers used by the CLI and the daemon.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options holds logging configuration
type Options struct {
	Level      string // debug, info, warn, error
	JSON       bool   // json encoder instead of console
	File       string // rotated log file; empty writes to Output
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool

	// Output is used when File is empty. Defaults to stderr.
	Output io.Writer
}

// ParseLevel maps a level name to a zap level, defaulting to info
func ParseLevel(name string) zapcore.Level {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// New builds a logger from opts. With File set, output goes through a
// lumberjack rotator.
func New(opts Options) (*zap.Logger, error) {
	var sink zapcore.WriteSyncer
	switch {
	case opts.File != "":
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		})
	case opts.Output != nil:
		sink = zapcore.AddSync(opts.Output)
	default:
		sink = zapcore.Lock(os.Stderr)
	}

	var enc zapcore.Encoder
	if opts.JSON {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(cfg)
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		enc = zapcore.NewConsoleEncoder(cfg)
	}

	core := zapcore.NewCore(enc, sink, zap.NewAtomicLevelAt(ParseLevel(opts.Level)))
	return zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// NewCLI returns the console logger used by the toolbox command. Verbose
// enables debug output; otherwise only warnings and errors are shown.
func NewCLI(verbose bool) *zap.Logger {
	level := "warn"
	if verbose {
		level = "debug"
	}
	logger, err := New(Options{Level: level})
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

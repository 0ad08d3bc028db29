// Package logging builds the zap logger used by the ts3query CLI.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ts3query/ts3query/internal/config"
)

// New creates a logger from cfg. Without a file it writes human-readable
// lines to stderr, with a file it writes JSON through a rotating writer.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	return newLogger(cfg, os.Stderr)
}

func newLogger(cfg config.LogConfig, console io.Writer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	var core zapcore.Core
	if cfg.File == "" {
		core = zapcore.NewCore(consoleEncoder(), zapcore.AddSync(console), zap.NewAtomicLevelAt(level))
	} else {
		writer, err := fileWriter(cfg)
		if err != nil {
			return nil, err
		}
		core = zapcore.NewCore(fileEncoder(), writer, zap.NewAtomicLevelAt(level))
	}

	return zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

func consoleEncoder() zapcore.Encoder {
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(ec)
}

func fileEncoder() zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(ec)
}

func fileWriter(cfg config.LogConfig) (zapcore.WriteSyncer, error) {
	path, err := filepath.Abs(cfg.File)
	if err != nil {
		return nil, fmt.Errorf("log file path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB, // megabytes
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays, // days
		Compress:   cfg.Compress,
	}), nil
}

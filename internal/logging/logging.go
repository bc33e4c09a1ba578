// Package logging builds the zap loggers used by the CLI and devserver.
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

// Options configures New.
type Options struct {
	Level string
	// File is the JSON log destination; DefaultLogPath() when empty.
	File string
	// Console, when set, also writes human-readable logs to it.
	Console io.Writer
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// New returns a logger writing JSON to a rotating file. The terminal UI
// owns stdout, so console output is opt-in. The returned func flushes and
// closes the file.
func New(opts Options) (*zap.Logger, func(), error) {
	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("parse log level: %w", err)
	}

	path := opts.File
	if path == "" {
		path = DefaultLogPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}

	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   true,
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(file), level),
	}
	if opts.Console != nil {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.AddSync(opts.Console), level))
	}

	log := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
	closer := func() {
		_ = log.Sync()
		_ = file.Close()
	}
	return log, closer, nil
}

// DefaultLogPath returns $XDG_STATE_HOME/mocktest/mocktest.log, falling
// back to ~/.local/state/mocktest/mocktest.log.
func DefaultLogPath() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "mocktest", "mocktest.log")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "mocktest.log")
	}
	return filepath.Join(home, ".local", "state", "mocktest", "mocktest.log")
}

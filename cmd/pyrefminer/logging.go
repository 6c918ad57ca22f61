package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ludo-technologies/pyrefminer/internal/config"
)

// loadLogConfig reads the [log] table of the discovered configuration.
// A non-empty override replaces the configured file.
func loadLogConfig(override string) config.LogConfig {
	cfg, err := config.NewTomlConfigLoader().LoadConfig(".")
	if err != nil || cfg == nil {
		cfg = config.DefaultConfig()
	}
	logCfg := cfg.Log
	if override != "" {
		logCfg.File = override
	}
	if lvl := os.Getenv("PYREFMINER_LOG_LEVEL"); lvl != "" {
		logCfg.Level = lvl
	}
	return logCfg
}

// configureLogger installs the default slog logger. Records go to a rotating
// file; verbose mode also copies them to stderr at debug level.
func configureLogger(cfg config.LogConfig, verbose bool) (func() error, error) {
	level := parseSlogLevel(cfg.Level, slog.LevelInfo)
	if verbose {
		level = slog.LevelDebug
	}

	var writers []io.Writer
	closer := func() error { return nil }

	if cfg.File != "" {
		if dir := filepath.Dir(cfg.File); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return closer, err
			}
		}
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		writers = append(writers, lj)
		closer = lj.Close
	}
	if verbose {
		writers = append(writers, os.Stderr)
	}

	var out io.Writer = io.Discard
	switch len(writers) {
	case 0:
	case 1:
		out = writers[0]
	default:
		out = io.MultiWriter(writers...)
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{
		AddSource: true,
		Level:     level,
	})
	slog.SetDefault(slog.New(handler))
	return closer, nil
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return defaultLevel
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if n, err := strconv.Atoi(value); err == nil {
		return slog.Level(n)
	}
	return defaultLevel
}

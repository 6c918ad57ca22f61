package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/pyrefminer/domain"
	"github.com/ludo-technologies/pyrefminer/internal/config"
	"github.com/ludo-technologies/pyrefminer/internal/version"
)

func TestVersion(t *testing.T) {
	// Version package should provide version info
	if version.Short() == "" {
		t.Error("version should not be empty")
	}
}

func TestVersionCommand(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, out string)
	}{
		{
			name: "full",
			check: func(t *testing.T, out string) {
				assert.Contains(t, out, "pyrefminer ")
				assert.Contains(t, out, "OS/Arch:")
			},
		},
		{
			name: "short",
			args: []string{"--short"},
			check: func(t *testing.T, out string) {
				assert.Equal(t, version.Short()+"\n", out)
			},
		},
		{
			name: "json",
			args: []string{"--json"},
			check: func(t *testing.T, out string) {
				var info version.BuildInfo
				require.NoError(t, json.Unmarshal([]byte(out), &info))
				assert.Equal(t, version.Short(), info.Version)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			cmd := NewVersionCmd()
			cmd.SetOut(&out)
			cmd.SetArgs(tt.args)
			require.NoError(t, cmd.Execute())
			tt.check(t, out.String())
		})
	}
}

func TestParseSlogLevel(t *testing.T) {
	tests := []struct {
		value string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"8", slog.Level(8)},
		{"", slog.LevelWarn},
		{"loud", slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, parseSlogLevel(tt.value, slog.LevelWarn))
		})
	}
}

func TestConfigureLogger(t *testing.T) {
	previous := slog.Default()
	defer slog.SetDefault(previous)

	logPath := filepath.Join(t.TempDir(), "logs", "pyrefminer.log")
	cfg := config.DefaultConfig().Log
	cfg.File = logPath
	cfg.Level = "debug"

	closer, err := configureLogger(cfg, false)
	require.NoError(t, err)
	slog.Debug("mapped pair", "before", "a.py::f")
	require.NoError(t, closer())

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "mapped pair")
	assert.Contains(t, string(content), "before=a.py::f")
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", ".pyrefminer.toml")

	var out bytes.Buffer
	cmd := NewInitCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", path})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Configuration file created")

	loaded, err := config.NewTomlConfigLoader().LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Matching, loaded.Matching)

	// a second run refuses to overwrite
	cmd = NewInitCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--config", path})
	err = cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	cmd = NewInitCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", path, "--force"})
	assert.NoError(t, cmd.Execute())
}

func TestPrintError(t *testing.T) {
	var out bytes.Buffer
	printError(&out, domain.NewTimeoutError(errors.New("deadline exceeded")))
	assert.Contains(t, out.String(), string(domain.ErrorCategoryTimeout))
	assert.Contains(t, out.String(), "Suggestions")
}

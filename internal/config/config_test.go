package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, 15, config.Matching.PairTimeoutSeconds)
	assert.Equal(t, 15*time.Second, config.Matching.PairTimeout())
	assert.Equal(t, 0.4, config.Matching.MaxOperationNameDistance)
	assert.Equal(t, 0, config.Matching.Parallelism)
	assert.Empty(t, config.Detection.RefactoringTypes)
	assert.Equal(t, []string{"**/*.py"}, config.Input.IncludePatterns)
	assert.True(t, config.Input.Recursive)
	assert.Equal(t, "text", config.Output.Format)
	assert.False(t, config.Output.ShowDetails)
	assert.Equal(t, ".pyrefminer.log", config.Log.File)
	assert.Equal(t, "info", config.Log.Level)
	assert.NoError(t, config.Validate())
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "defaults",
			mutate: func(c *Config) {},
		},
		{
			name:   "zero timeout disables the budget",
			mutate: func(c *Config) { c.Matching.PairTimeoutSeconds = 0 },
		},
		{
			name:    "negative timeout",
			mutate:  func(c *Config) { c.Matching.PairTimeoutSeconds = -1 },
			wantErr: "pair_timeout_seconds",
		},
		{
			name:    "distance above one",
			mutate:  func(c *Config) { c.Matching.MaxOperationNameDistance = 1.2 },
			wantErr: "max_operation_name_distance",
		},
		{
			name:    "negative parallelism",
			mutate:  func(c *Config) { c.Matching.Parallelism = -2 },
			wantErr: "parallelism",
		},
		{
			name:    "unknown format",
			mutate:  func(c *Config) { c.Output.Format = "html" },
			wantErr: "output.format",
		},
		{
			name:    "unknown refactoring type",
			mutate:  func(c *Config) { c.Detection.RefactoringTypes = []string{"pull_up_method"} },
			wantErr: "detection.refactoring_types",
		},
		{
			name:   "known refactoring types",
			mutate: func(c *Config) { c.Detection.RefactoringTypes = []string{"rename_method", "extract-method"} },
		},
		{
			name:    "empty include patterns",
			mutate:  func(c *Config) { c.Input.IncludePatterns = nil },
			wantErr: "include_patterns",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Log.Level = "trace" },
			wantErr: "log.level",
		},
		{
			name:   "log level is case insensitive",
			mutate: func(c *Config) { c.Log.Level = "DEBUG" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "pyrefminer.yaml", `
matching:
  pair_timeout_seconds: 3
  parallelism: 2
output:
  format: json
  show_details: true
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 3, config.Matching.PairTimeoutSeconds)
	assert.Equal(t, 2, config.Matching.Parallelism)
	assert.Equal(t, "json", config.Output.Format)
	assert.True(t, config.Output.ShowDetails)
	// untouched keys keep their defaults
	assert.Equal(t, 0.4, config.Matching.MaxOperationNameDistance)
	assert.Equal(t, []string{"**/*.py"}, config.Input.IncludePatterns)
}

func TestLoadConfig_TOMLFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "custom.toml", `
[detection]
refactoring_types = ["rename_method", "move_method"]

[input]
recursive = false
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"rename_method", "move_method"}, config.Detection.RefactoringTypes)
	assert.False(t, config.Input.Recursive)
}

func TestLoadConfig_EnvironmentOverride(t *testing.T) {
	path := writeFile(t, t.TempDir(), "pyrefminer.yaml", "matching:\n  parallelism: 2\n")
	t.Setenv("PYREFMINER_OUTPUT_FORMAT", "csv")
	t.Setenv("PYREFMINER_MATCHING_PARALLELISM", "6")

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "csv", config.Output.Format)
	assert.Equal(t, 6, config.Matching.Parallelism)
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	invalid := writeFile(t, dir, "invalid.yaml", "output:\n  format: html\n")
	_, err = LoadConfig(invalid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestGenerateDefaultConfigTOML(t *testing.T) {
	content, err := GenerateDefaultConfigTOML()
	require.NoError(t, err)

	assert.Contains(t, content, "[matching]")
	assert.Contains(t, content, "pair_timeout_seconds = 15")
	assert.Contains(t, content, "max_operation_name_distance = 0.40")
	assert.Contains(t, content, "#   rename_method")
	assert.Contains(t, content, `include_patterns = ["**/*.py"]`)

	parsed, err := LoadDefaultConfigFromTOML()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), parsed)
}

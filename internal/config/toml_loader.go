package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// ConfigFileName is the dedicated configuration file looked up by discovery
const ConfigFileName = ".pyrefminer.toml"

// PyrefminerTomlConfig represents the structure of .pyrefminer.toml and of
// the [tool.pyrefminer] table in pyproject.toml
type PyrefminerTomlConfig struct {
	Matching  TomlMatchingConfig  `toml:"matching"`
	Detection TomlDetectionConfig `toml:"detection"`
	Input     TomlInputConfig     `toml:"input"`
	Output    TomlOutputConfig    `toml:"output"`
	Log       TomlLogConfig       `toml:"log"`
}

type TomlMatchingConfig struct {
	PairTimeoutSeconds       *int     `toml:"pair_timeout_seconds"` // pointer: 0 is meaningful
	MaxOperationNameDistance *float64 `toml:"max_operation_name_distance"`
	Parallelism              int      `toml:"parallelism"`
}

type TomlDetectionConfig struct {
	RefactoringTypes []string `toml:"refactoring_types"`
}

type TomlInputConfig struct {
	Recursive       *bool    `toml:"recursive"` // pointer to detect unset
	IncludePatterns []string `toml:"include_patterns"`
	ExcludePatterns []string `toml:"exclude_patterns"`
}

type TomlOutputConfig struct {
	Format      string `toml:"format"`
	ShowDetails *bool  `toml:"show_details"` // pointer to detect unset
	NoProgress  *bool  `toml:"no_progress"`  // pointer to detect unset
}

type TomlLogConfig struct {
	File       string `toml:"file"`
	Level      string `toml:"level"`
	MaxSize    int    `toml:"max_size"`
	MaxBackups int    `toml:"max_backups"`
	MaxAge     int    `toml:"max_age"`
	Compress   *bool  `toml:"compress"` // pointer to detect unset
}

// TomlConfigLoader handles TOML-only configuration loading
type TomlConfigLoader struct{}

// NewTomlConfigLoader creates a new TOML configuration loader
func NewTomlConfigLoader() *TomlConfigLoader {
	return &TomlConfigLoader{}
}

// LoadConfig loads configuration from TOML files with ruff-like priority:
// 1. .pyrefminer.toml (dedicated config file)
// 2. pyproject.toml (with [tool.pyrefminer] section)
// 3. defaults
func (l *TomlConfigLoader) LoadConfig(startDir string) (*Config, error) {
	if path, err := findUpwards(startDir, ConfigFileName); err == nil {
		return l.LoadFile(path)
	}

	if path, err := findPyprojectToml(startDir); err == nil {
		return LoadPyprojectConfig(path)
	}

	return DefaultConfig(), nil
}

// LoadFile loads a .pyrefminer.toml file on top of the defaults
func (l *TomlConfigLoader) LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var tomlConfig PyrefminerTomlConfig
	if err := toml.Unmarshal(data, &tomlConfig); err != nil {
		return nil, err
	}

	config := DefaultConfig()
	mergeTomlConfig(config, &tomlConfig)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// FindConfigFile returns the path of the configuration discovery would use,
// or "" when only defaults apply
func FindConfigFile(startDir string) string {
	if path, err := findUpwards(startDir, ConfigFileName); err == nil {
		return path
	}
	if path, err := findPyprojectToml(startDir); err == nil {
		return path
	}
	return ""
}

// findUpwards walks up the directory tree to find name
func findUpwards(startDir, name string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		dir = startDir
	}
	for {
		configPath := filepath.Join(dir, name)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root directory
			break
		}
		dir = parent
	}

	return "", os.ErrNotExist
}

// mergeTomlConfig overrides defaults with the values present in the file
func mergeTomlConfig(defaults *Config, t *PyrefminerTomlConfig) {
	// Matching
	if t.Matching.PairTimeoutSeconds != nil {
		defaults.Matching.PairTimeoutSeconds = *t.Matching.PairTimeoutSeconds
	}
	if t.Matching.MaxOperationNameDistance != nil {
		defaults.Matching.MaxOperationNameDistance = *t.Matching.MaxOperationNameDistance
	}
	if t.Matching.Parallelism > 0 {
		defaults.Matching.Parallelism = t.Matching.Parallelism
	}

	// Detection
	if len(t.Detection.RefactoringTypes) > 0 {
		defaults.Detection.RefactoringTypes = t.Detection.RefactoringTypes
	}

	// Input
	if t.Input.Recursive != nil {
		defaults.Input.Recursive = *t.Input.Recursive
	}
	if len(t.Input.IncludePatterns) > 0 {
		defaults.Input.IncludePatterns = t.Input.IncludePatterns
	}
	if len(t.Input.ExcludePatterns) > 0 {
		defaults.Input.ExcludePatterns = t.Input.ExcludePatterns
	}

	// Output
	if t.Output.Format != "" {
		defaults.Output.Format = t.Output.Format
	}
	if t.Output.ShowDetails != nil {
		defaults.Output.ShowDetails = *t.Output.ShowDetails
	}
	if t.Output.NoProgress != nil {
		defaults.Output.NoProgress = *t.Output.NoProgress
	}

	// Log
	if t.Log.File != "" {
		defaults.Log.File = t.Log.File
	}
	if t.Log.Level != "" {
		defaults.Log.Level = t.Log.Level
	}
	if t.Log.MaxSize > 0 {
		defaults.Log.MaxSize = t.Log.MaxSize
	}
	if t.Log.MaxBackups > 0 {
		defaults.Log.MaxBackups = t.Log.MaxBackups
	}
	if t.Log.MaxAge > 0 {
		defaults.Log.MaxAge = t.Log.MaxAge
	}
	if t.Log.Compress != nil {
		defaults.Log.Compress = *t.Log.Compress
	}
}

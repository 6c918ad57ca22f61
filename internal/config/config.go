package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ludo-technologies/pyrefminer/domain"
	"github.com/ludo-technologies/pyrefminer/internal/constants"
)

// Default matching settings
const (
	// DefaultPairTimeoutSeconds bounds the mapping of one operation pair
	DefaultPairTimeoutSeconds = int(constants.DefaultPairTimeout / time.Second)

	// DefaultParallelism of 0 lets the diff use GOMAXPROCS
	DefaultParallelism = 0
)

// Default log settings
const (
	DefaultLogFile       = ".pyrefminer.log"
	DefaultLogLevel      = "info"
	DefaultLogMaxSize    = 10
	DefaultLogMaxBackups = 3
	DefaultLogMaxAge     = 28
)

// EnvPrefix is the prefix of environment overrides (PYREFMINER_OUTPUT_FORMAT, ...)
const EnvPrefix = "PYREFMINER"

// Config represents the main configuration structure
type Config struct {
	// Matching holds statement matching configuration
	Matching MatchingConfig `mapstructure:"matching" yaml:"matching" toml:"matching"`

	// Detection selects the refactorings to report
	Detection DetectionConfig `mapstructure:"detection" yaml:"detection" toml:"detection"`

	// Input holds file collection configuration
	Input InputConfig `mapstructure:"input" yaml:"input" toml:"input"`

	// Output holds output formatting configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" toml:"output"`

	// Log holds log file configuration
	Log LogConfig `mapstructure:"log" yaml:"log" toml:"log"`
}

// MatchingConfig holds configuration for statement matching
type MatchingConfig struct {
	// PairTimeoutSeconds is the budget for mapping one operation pair.
	// 0 disables the budget.
	PairTimeoutSeconds int `mapstructure:"pair_timeout_seconds" yaml:"pair_timeout_seconds" toml:"pair_timeout_seconds"`

	// MaxOperationNameDistance is the largest normalized name distance
	// between two renamed invocations
	MaxOperationNameDistance float64 `mapstructure:"max_operation_name_distance" yaml:"max_operation_name_distance" toml:"max_operation_name_distance"`

	// Parallelism limits concurrent mappers; 0 means one per CPU
	Parallelism int `mapstructure:"parallelism" yaml:"parallelism" toml:"parallelism"`
}

// PairTimeout returns the pair budget as a duration
func (m MatchingConfig) PairTimeout() time.Duration {
	return time.Duration(m.PairTimeoutSeconds) * time.Second
}

// DetectionConfig holds configuration for refactoring selection
type DetectionConfig struct {
	// RefactoringTypes lists the types to report (snake_case names).
	// Empty reports every type.
	RefactoringTypes []string `mapstructure:"refactoring_types" yaml:"refactoring_types" toml:"refactoring_types"`
}

// InputConfig holds general input configuration
type InputConfig struct {
	// IncludePatterns specifies file patterns to include
	IncludePatterns []string `mapstructure:"include_patterns" yaml:"include_patterns" toml:"include_patterns"`

	// ExcludePatterns specifies file patterns to exclude
	ExcludePatterns []string `mapstructure:"exclude_patterns" yaml:"exclude_patterns" toml:"exclude_patterns"`

	// Recursive controls whether to walk directories recursively
	Recursive bool `mapstructure:"recursive" yaml:"recursive" toml:"recursive"`
}

// OutputConfig holds configuration for output formatting
type OutputConfig struct {
	// Format specifies the output format: text, json, yaml, csv
	Format string `mapstructure:"format" yaml:"format" toml:"format"`

	// ShowDetails controls whether mappings are listed per refactoring
	ShowDetails bool `mapstructure:"show_details" yaml:"show_details" toml:"show_details"`

	// NoProgress disables the progress bar
	NoProgress bool `mapstructure:"no_progress" yaml:"no_progress" toml:"no_progress"`
}

// LogConfig holds configuration for the rotating log file
type LogConfig struct {
	File       string `mapstructure:"file" yaml:"file" toml:"file"`
	Level      string `mapstructure:"level" yaml:"level" toml:"level"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size" toml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups" toml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age" toml:"max_age"`
	Compress   bool   `mapstructure:"compress" yaml:"compress" toml:"compress"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Matching: MatchingConfig{
			PairTimeoutSeconds:       DefaultPairTimeoutSeconds,
			MaxOperationNameDistance: constants.MaxOperationNameDistance,
			Parallelism:              DefaultParallelism,
		},
		Detection: DetectionConfig{
			RefactoringTypes: []string{},
		},
		Input: InputConfig{
			IncludePatterns: []string{"**/*.py"},
			ExcludePatterns: []string{},
			Recursive:       true,
		},
		Output: OutputConfig{
			Format:      "text",
			ShowDetails: false,
		},
		Log: LogConfig{
			File:       DefaultLogFile,
			Level:      DefaultLogLevel,
			MaxSize:    DefaultLogMaxSize,
			MaxBackups: DefaultLogMaxBackups,
			MaxAge:     DefaultLogMaxAge,
			Compress:   true,
		},
	}
}

// LoadConfig loads configuration from an explicit file of any format viper
// understands (toml, yaml, json). Values missing from the file keep their
// defaults and PYREFMINER_* environment variables override both.
// An empty path falls back to TOML discovery from the current directory.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		return NewTomlConfigLoader().LoadConfig(".")
	}

	v := newViper()
	v.SetConfigFile(configPath)
	if ext := strings.TrimPrefix(filepath.Ext(configPath), "."); ext == "" {
		v.SetConfigType("toml")
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	config := DefaultConfig()
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// newViper returns a viper instance seeded with the defaults so that
// environment overrides apply to keys the file does not mention
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	d := DefaultConfig()
	v.SetDefault("matching.pair_timeout_seconds", d.Matching.PairTimeoutSeconds)
	v.SetDefault("matching.max_operation_name_distance", d.Matching.MaxOperationNameDistance)
	v.SetDefault("matching.parallelism", d.Matching.Parallelism)
	v.SetDefault("detection.refactoring_types", d.Detection.RefactoringTypes)
	v.SetDefault("input.include_patterns", d.Input.IncludePatterns)
	v.SetDefault("input.exclude_patterns", d.Input.ExcludePatterns)
	v.SetDefault("input.recursive", d.Input.Recursive)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.show_details", d.Output.ShowDetails)
	v.SetDefault("output.no_progress", d.Output.NoProgress)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.max_size", d.Log.MaxSize)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age", d.Log.MaxAge)
	v.SetDefault("log.compress", d.Log.Compress)
	return v
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	if c.Matching.PairTimeoutSeconds < 0 {
		return fmt.Errorf("matching.pair_timeout_seconds must be >= 0, got %d", c.Matching.PairTimeoutSeconds)
	}

	if c.Matching.MaxOperationNameDistance < 0.0 || c.Matching.MaxOperationNameDistance > 1.0 {
		return fmt.Errorf("matching.max_operation_name_distance must be between 0.0 and 1.0, got %f",
			c.Matching.MaxOperationNameDistance)
	}

	if c.Matching.Parallelism < 0 {
		return fmt.Errorf("matching.parallelism must be >= 0, got %d", c.Matching.Parallelism)
	}

	validFormats := map[string]bool{
		"text": true,
		"json": true,
		"yaml": true,
		"csv":  true,
	}

	if !validFormats[c.Output.Format] {
		return fmt.Errorf("invalid output.format '%s', must be one of: text, json, yaml, csv", c.Output.Format)
	}

	if _, err := domain.ParseRefactoringTypes(c.Detection.RefactoringTypes); err != nil {
		return fmt.Errorf("invalid detection.refactoring_types: %w", err)
	}

	if len(c.Input.IncludePatterns) == 0 {
		return fmt.Errorf("input.include_patterns cannot be empty")
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log.level '%s', must be one of: debug, info, warn, error", c.Log.Level)
	}

	if c.Log.MaxSize < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAge < 0 {
		return fmt.Errorf("log rotation settings must be >= 0")
	}

	return nil
}

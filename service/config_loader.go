package service

import (
	"os"

	"github.com/ludo-technologies/pyrefminer/domain"
	"github.com/ludo-technologies/pyrefminer/internal/config"
)

// Flag names recorded in RefactoringRequest.ExplicitFlags
const (
	FlagFormat          = "format"
	FlagDetails         = "details"
	FlagTimeout         = "timeout"
	FlagMaxNameDistance = "max-name-distance"
	FlagParallel        = "parallel"
	FlagTypes           = "types"
	FlagRecursive       = "recursive"
	FlagInclude         = "include"
	FlagExclude         = "exclude"
	FlagNoProgress      = "no-progress"
	FlagOutput          = "output"
)

// ConfigurationLoaderImpl implements the RefactoringConfigurationLoader interface
type ConfigurationLoaderImpl struct{}

// NewConfigurationLoader creates a new configuration loader service
func NewConfigurationLoader() *ConfigurationLoaderImpl {
	return &ConfigurationLoaderImpl{}
}

// LoadConfig loads configuration from the specified path
func (c *ConfigurationLoaderImpl) LoadConfig(path string) (*domain.RefactoringRequest, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, domain.NewConfigError("failed to load configuration file", err)
	}

	req, err := ConfigToRequest(cfg)
	if err != nil {
		return nil, err
	}
	req.ConfigPath = path
	return req, nil
}

// LoadDefaultConfig discovers .pyrefminer.toml or pyproject.toml from
// startDir upwards. A broken file falls back to the built-in defaults.
func (c *ConfigurationLoaderImpl) LoadDefaultConfig(startDir string) *domain.RefactoringRequest {
	if startDir == "" {
		startDir = "."
	}

	cfg, err := config.NewTomlConfigLoader().LoadConfig(startDir)
	if err != nil {
		cfg = config.DefaultConfig()
	}

	req, err := ConfigToRequest(cfg)
	if err != nil {
		req, _ = ConfigToRequest(config.DefaultConfig())
	}
	req.ConfigPath = config.FindConfigFile(startDir)
	return req
}

// MergeConfig merges CLI flags with configuration file values. Paths and
// writers always come from override; other fields only when the matching
// flag was set.
func (c *ConfigurationLoaderImpl) MergeConfig(base *domain.RefactoringRequest, override *domain.RefactoringRequest) *domain.RefactoringRequest {
	if base == nil {
		merged := *override
		return &merged
	}
	merged := *base
	flags := override.ExplicitFlags

	if override.BeforePath != "" {
		merged.BeforePath = override.BeforePath
	}
	if override.AfterPath != "" {
		merged.AfterPath = override.AfterPath
	}
	if override.OutputWriter != nil {
		merged.OutputWriter = override.OutputWriter
	}
	if override.ConfigPath != "" {
		merged.ConfigPath = override.ConfigPath
	}

	merged.OutputFormat = domain.OutputFormat(config.MergeString(string(base.OutputFormat), string(override.OutputFormat), FlagFormat, flags))
	merged.OutputPath = config.MergeString(base.OutputPath, override.OutputPath, FlagOutput, flags)
	merged.ShowDetails = config.MergeBool(base.ShowDetails, override.ShowDetails, FlagDetails, flags)
	merged.NoProgress = config.MergeBool(base.NoProgress, override.NoProgress, FlagNoProgress, flags)

	merged.PairTimeout = config.MergeDuration(base.PairTimeout, override.PairTimeout, FlagTimeout, flags)
	merged.MaxOperationNameDistance = config.MergeFloat64(base.MaxOperationNameDistance, override.MaxOperationNameDistance, FlagMaxNameDistance, flags)
	merged.Parallelism = config.MergeInt(base.Parallelism, override.Parallelism, FlagParallel, flags)

	if config.WasExplicitlySet(flags, FlagTypes) {
		merged.RefactoringTypes = override.RefactoringTypes
	}

	merged.Recursive = config.MergeBool(base.Recursive, override.Recursive, FlagRecursive, flags)
	merged.IncludePatterns = config.MergeStringSlice(base.IncludePatterns, override.IncludePatterns, FlagInclude, flags)
	merged.ExcludePatterns = config.MergeStringSlice(base.ExcludePatterns, override.ExcludePatterns, FlagExclude, flags)

	merged.ExplicitFlags = flags
	return &merged
}

// ConfigToRequest converts internal config to a domain request
func ConfigToRequest(cfg *config.Config) (*domain.RefactoringRequest, error) {
	format, err := domain.ParseOutputFormat(cfg.Output.Format)
	if err != nil {
		return nil, domain.NewConfigError("invalid output format", err)
	}
	types, err := domain.ParseRefactoringTypes(cfg.Detection.RefactoringTypes)
	if err != nil {
		return nil, domain.NewConfigError("invalid refactoring types", err)
	}

	return &domain.RefactoringRequest{
		OutputFormat:             format,
		OutputWriter:             os.Stdout,
		ShowDetails:              cfg.Output.ShowDetails,
		NoProgress:               cfg.Output.NoProgress,
		PairTimeout:              cfg.Matching.PairTimeout(),
		MaxOperationNameDistance: cfg.Matching.MaxOperationNameDistance,
		Parallelism:              cfg.Matching.Parallelism,
		RefactoringTypes:         types,
		Recursive:                cfg.Input.Recursive,
		IncludePatterns:          cfg.Input.IncludePatterns,
		ExcludePatterns:          cfg.Input.ExcludePatterns,
	}, nil
}

var _ domain.RefactoringConfigurationLoader = (*ConfigurationLoaderImpl)(nil)

package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"
)

// PyprojectToml represents the structure of pyproject.toml
type PyprojectToml struct {
	Tool ToolConfig `toml:"tool"`
}

// ToolConfig represents the [tool] section
type ToolConfig struct {
	Pyrefminer PyrefminerTomlConfig `toml:"pyrefminer"`
}

// LoadPyprojectConfig loads the [tool.pyrefminer] table of a pyproject.toml.
// A pyproject.toml without the table yields the defaults.
func LoadPyprojectConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var pyproject PyprojectToml
	if err := toml.Unmarshal(data, &pyproject); err != nil {
		return nil, err
	}

	config := DefaultConfig()
	mergeTomlConfig(config, &pyproject.Tool.Pyrefminer)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// findPyprojectToml walks up the directory tree to find pyproject.toml
func findPyprojectToml(startDir string) (string, error) {
	return findUpwards(startDir, "pyproject.toml")
}

package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strconv"
	"text/template"

	"github.com/pelletier/go-toml/v2"

	"github.com/ludo-technologies/pyrefminer/domain"
)

// defaultConfigTmpl contains the embedded default configuration template
//
//go:embed default_config.toml.tmpl
var defaultConfigTmpl string

// DefaultConfigValues holds all values used to render the default config template.
// Values come from DefaultConfig so the template never drifts from the code.
type DefaultConfigValues struct {
	PairTimeoutSeconds       int
	MaxOperationNameDistance string
	Parallelism              int
	KnownTypes               []string

	Recursive       bool
	IncludePatterns []string

	Format      string
	ShowDetails bool

	LogFile       string
	LogLevel      string
	LogMaxSize    int
	LogMaxBackups int
	LogMaxAge     int
	LogCompress   bool
}

func newDefaultConfigValues() DefaultConfigValues {
	d := DefaultConfig()
	var known []string
	for _, t := range domain.AllRefactoringTypes() {
		known = append(known, string(t))
	}
	return DefaultConfigValues{
		PairTimeoutSeconds:       d.Matching.PairTimeoutSeconds,
		MaxOperationNameDistance: strconv.FormatFloat(d.Matching.MaxOperationNameDistance, 'f', 2, 64),
		Parallelism:              d.Matching.Parallelism,
		KnownTypes:               known,

		Recursive:       d.Input.Recursive,
		IncludePatterns: d.Input.IncludePatterns,

		Format:      d.Output.Format,
		ShowDetails: d.Output.ShowDetails,

		LogFile:       d.Log.File,
		LogLevel:      d.Log.Level,
		LogMaxSize:    d.Log.MaxSize,
		LogMaxBackups: d.Log.MaxBackups,
		LogMaxAge:     d.Log.MaxAge,
		LogCompress:   d.Log.Compress,
	}
}

// GenerateDefaultConfigTOML renders the commented default .pyrefminer.toml
func GenerateDefaultConfigTOML() (string, error) {
	tmpl, err := template.New("default_config").Parse(defaultConfigTmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse default config template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, newDefaultConfigValues()); err != nil {
		return "", fmt.Errorf("failed to render default config template: %w", err)
	}

	return buf.String(), nil
}

// LoadDefaultConfigFromTOML parses the rendered default config back into a Config
func LoadDefaultConfigFromTOML() (*Config, error) {
	configTOML, err := GenerateDefaultConfigTOML()
	if err != nil {
		return nil, err
	}

	var tomlCfg PyrefminerTomlConfig
	if err := toml.Unmarshal([]byte(configTOML), &tomlCfg); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	mergeTomlConfig(cfg, &tomlCfg)
	return cfg, nil
}

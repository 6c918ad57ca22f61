package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ludo-technologies/pyrefminer/internal/config"
)

// InitCommand represents the init command
type InitCommand struct {
	force      bool
	configPath string
}

// NewInitCommand creates a new init command
func NewInitCommand() *InitCommand {
	return &InitCommand{
		force:      false,
		configPath: config.ConfigFileName,
	}
}

// CreateCobraCommand creates the cobra command for configuration initialization
func (i *InitCommand) CreateCobraCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize pyrefminer configuration file",
		Long: `Initialize a pyrefminer configuration file in the current directory.

Creates a .pyrefminer.toml file listing every setting with its default
value: matching budgets, refactoring type selection, file patterns,
output format and log rotation.

Examples:
  # Create .pyrefminer.toml in current directory
  pyrefminer init

  # Create config file with custom name
  pyrefminer init --config myconfig.toml

  # Overwrite existing configuration file
  pyrefminer init --force`,
		Args: cobra.NoArgs,
		RunE: i.runInit,
	}

	cmd.Flags().BoolVarP(&i.force, "force", "f", false, "Overwrite existing configuration file")
	cmd.Flags().StringVarP(&i.configPath, "config", "c", i.configPath, "Configuration file path")

	return cmd
}

// runInit executes the init command
func (i *InitCommand) runInit(cmd *cobra.Command, args []string) error {
	configPath, err := filepath.Abs(i.configPath)
	if err != nil {
		return fmt.Errorf("failed to resolve config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil && !i.force {
		return fmt.Errorf("configuration file already exists: %s\nUse --force to overwrite", configPath)
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", configDir, err)
	}

	configData, err := config.GenerateDefaultConfigTOML()
	if err != nil {
		return fmt.Errorf("failed to render default configuration: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(configData), 0o644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	relPath, err := filepath.Rel(".", configPath)
	if err != nil {
		relPath = configPath
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✅ Configuration file created: %s\n", relPath)
	fmt.Fprintf(out, "\nTo customize pyrefminer for your project:\n")
	fmt.Fprintf(out, "  1. Edit %s\n", relPath)
	fmt.Fprintf(out, "  2. Adjust the settings as needed\n")
	fmt.Fprintf(out, "  3. Run 'pyrefminer detect <before> <after>' to use your configuration\n")

	return nil
}

// NewInitCmd creates and returns the init cobra command
func NewInitCmd() *cobra.Command {
	return NewInitCommand().CreateCobraCommand()
}

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ludo-technologies/pyrefminer/domain"
	"github.com/ludo-technologies/pyrefminer/service"
)

// CompareCommand aligns the statements of two single functions
type CompareCommand struct {
	outputFormat string
}

// NewCompareCommand creates a new compare command
func NewCompareCommand() *CompareCommand {
	return &CompareCommand{outputFormat: string(domain.OutputFormatText)}
}

// CreateCobraCommand creates the cobra command for function comparison
func (c *CompareCommand) CreateCobraCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <before.py> <after.py>",
		Short: "Map the statements of two functions",
		Long: `Compare the first function defined in each of two files.

Prints the statement mappings with their replacements, the statements left
unmapped on each side, and the refactorings found inside the function.

Examples:
  pyrefminer compare old.py new.py
  pyrefminer compare old.py new.py --format json`,
		Args: cobra.ExactArgs(2),
		RunE: c.runCompare,
	}

	cmd.Flags().StringVarP(&c.outputFormat, service.FlagFormat, "f", c.outputFormat, "Output format: text, json, yaml")

	return cmd
}

func (c *CompareCommand) runCompare(cmd *cobra.Command, args []string) error {
	format, err := domain.ParseOutputFormat(c.outputFormat)
	if err != nil {
		return err
	}

	before, err := os.ReadFile(args[0])
	if err != nil {
		return domain.NewFileNotFoundError(args[0], err)
	}
	after, err := os.ReadFile(args[1])
	if err != nil {
		return domain.NewFileNotFoundError(args[1], err)
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	svc := service.NewRefactoringService(service.NewFileReader(), nil, nil)
	cmp, err := svc.CompareOperations(ctx, string(before), string(after))
	if err != nil {
		return err
	}

	formatter := service.NewColorRefactoringFormatter(useColor(cmd, domain.RefactoringRequest{OutputFormat: format}))
	return formatter.WriteComparison(cmp, format, cmd.OutOrStdout())
}

// NewCompareCmd creates and returns the compare cobra command
func NewCompareCmd() *cobra.Command {
	return NewCompareCommand().CreateCobraCommand()
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ludo-technologies/pyrefminer/app"
	"github.com/ludo-technologies/pyrefminer/domain"
	"github.com/ludo-technologies/pyrefminer/internal/config"
	"github.com/ludo-technologies/pyrefminer/service"
)

// DetectCommand represents the detect command
type DetectCommand struct {
	outputFormat    string
	outputPath      string
	configFile      string
	showDetails     bool
	noProgress      bool
	pairTimeout     time.Duration
	maxNameDistance float64
	parallelism     int
	types           []string
	recursive       bool
	includePatterns []string
	excludePatterns []string
}

// NewDetectCommand creates a new detect command with default settings
func NewDetectCommand() *DetectCommand {
	defaults := config.DefaultConfig()
	return &DetectCommand{
		outputFormat:    defaults.Output.Format,
		pairTimeout:     defaults.Matching.PairTimeout(),
		maxNameDistance: defaults.Matching.MaxOperationNameDistance,
		parallelism:     defaults.Matching.Parallelism,
		recursive:       defaults.Input.Recursive,
		includePatterns: defaults.Input.IncludePatterns,
		excludePatterns: defaults.Input.ExcludePatterns,
	}
}

// CreateCobraCommand creates the cobra command for refactoring detection
func (c *DetectCommand) CreateCobraCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect <before> <after>",
		Short: "Detect refactorings between two versions",
		Long: `Compare two versions of Python code and report refactorings.

Both arguments must be files or both must be directories. Directories are
paired by module path relative to their root.

Examples:
  # Compare two checkouts of a project
  pyrefminer detect ./v1 ./v2

  # Compare two revisions of a single file
  pyrefminer detect old/cart.py new/cart.py

  # Report only renames, with statement mappings, as JSON
  pyrefminer detect ./v1 ./v2 --types rename_method,rename_variable --details --format json

  # Give each function pair at most 5 seconds
  pyrefminer detect ./v1 ./v2 --timeout 5s`,
		Args: cobra.ExactArgs(2),
		RunE: c.runDetect,
	}

	flags := cmd.Flags()
	flags.StringVarP(&c.outputFormat, service.FlagFormat, "f", c.outputFormat, "Output format: text, json, yaml, csv")
	flags.StringVarP(&c.outputPath, service.FlagOutput, "o", "", "Write the report to a file")
	flags.StringVarP(&c.configFile, "config", "c", "", "Configuration file path")
	flags.BoolVar(&c.showDetails, service.FlagDetails, false, "List the statement mappings of each refactoring")
	flags.BoolVar(&c.noProgress, service.FlagNoProgress, false, "Disable the progress bar")
	flags.DurationVar(&c.pairTimeout, service.FlagTimeout, c.pairTimeout, "Matching budget per function pair (0 disables)")
	flags.Float64Var(&c.maxNameDistance, service.FlagMaxNameDistance, c.maxNameDistance, "Largest normalized name distance of a renamed invocation")
	flags.IntVar(&c.parallelism, service.FlagParallel, c.parallelism, "Concurrent function pairs (0 = one per CPU)")
	flags.StringSliceVar(&c.types, service.FlagTypes, nil, "Refactoring types to report (default all)")
	flags.BoolVar(&c.recursive, service.FlagRecursive, c.recursive, "Walk directories recursively")
	flags.StringSliceVar(&c.includePatterns, service.FlagInclude, c.includePatterns, "File patterns to include")
	flags.StringSliceVar(&c.excludePatterns, service.FlagExclude, c.excludePatterns, "File patterns to exclude")

	return cmd
}

// buildRequest turns flags and arguments into a detection request
func (c *DetectCommand) buildRequest(cmd *cobra.Command, args []string) (domain.RefactoringRequest, error) {
	format, err := domain.ParseOutputFormat(c.outputFormat)
	if err != nil {
		return domain.RefactoringRequest{}, err
	}
	types, err := domain.ParseRefactoringTypes(c.types)
	if err != nil {
		return domain.RefactoringRequest{}, err
	}

	return domain.RefactoringRequest{
		BeforePath:               args[0],
		AfterPath:                args[1],
		OutputFormat:             format,
		OutputWriter:             cmd.OutOrStdout(),
		OutputPath:               c.outputPath,
		ShowDetails:              c.showDetails,
		NoProgress:               c.noProgress,
		PairTimeout:              c.pairTimeout,
		MaxOperationNameDistance: c.maxNameDistance,
		Parallelism:              c.parallelism,
		RefactoringTypes:         types,
		ConfigPath:               c.configFile,
		Recursive:                c.recursive,
		IncludePatterns:          c.includePatterns,
		ExcludePatterns:          c.excludePatterns,
		ExplicitFlags:            config.NewFlagTrackerFromFlagSet(cmd.Flags()).GetAll(),
	}, nil
}

// runDetect executes the detect command
func (c *DetectCommand) runDetect(cmd *cobra.Command, args []string) error {
	req, err := c.buildRequest(cmd, args)
	if err != nil {
		return domain.NewInvalidInputError("invalid flags", err)
	}

	useCase, err := c.createUseCase(cmd, req)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	response, err := useCase.Execute(ctx, req)
	if err != nil {
		return err
	}

	for _, w := range response.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "⚠️  %s\n", w)
	}
	return nil
}

// createUseCase wires the detection use case for the CLI
func (c *DetectCommand) createUseCase(cmd *cobra.Command, req domain.RefactoringRequest) (*app.RefactoringUseCase, error) {
	cache, err := service.NewModelCache(0)
	if err != nil {
		return nil, err
	}

	progress := service.NewProgressManager("Parsing")
	progress.SetWriter(cmd.ErrOrStderr())

	return app.NewRefactoringUseCaseBuilder().
		WithService(service.NewRefactoringService(service.NewFileReader(), cache, progress)).
		WithFormatter(service.NewColorRefactoringFormatter(useColor(cmd, req))).
		WithConfigLoader(service.NewConfigurationLoader()).
		WithOutputWriter(service.NewFileOutputWriter(cmd.ErrOrStderr())).
		Build()
}

// useColor reports whether the text report goes to a terminal that accepts
// ANSI colors
func useColor(cmd *cobra.Command, req domain.RefactoringRequest) bool {
	if req.OutputPath != "" || req.OutputFormat != domain.OutputFormatText {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := cmd.OutOrStdout().(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// NewDetectCmd creates and returns the detect cobra command
func NewDetectCmd() *cobra.Command {
	return NewDetectCommand().CreateCobraCommand()
}

// signalContext cancels the command context on SIGINT or SIGTERM
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

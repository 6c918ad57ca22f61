package main

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ludo-technologies/pyrefminer/internal/version"
	"github.com/ludo-technologies/pyrefminer/service"
)

// closeLog flushes the rotating log file on exit
var closeLog = func() error { return nil }

var rootCmd = &cobra.Command{
	Use:   "pyrefminer",
	Short: "Detect refactorings between two versions of Python code",
	Long: `pyrefminer compares two versions of a Python file or project and
reports the refactorings that turn one into the other.

It maps the statements of every pair of matching functions, explains each
difference as a set of replacements, and infers refactorings such as:
  • Rename Method, Move Operation
  • Extract Operation, Inline Operation
  • Rename, Merge and Split of variables and parameters
  • Changes of variable, parameter and return types`,
	Version:       version.Short(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		verbose, _ := cmd.Flags().GetBool("verbose")
		logFile, _ := cmd.Flags().GetString("log-file")
		closer, err := configureLogger(loadLogConfig(logFile), verbose)
		if err != nil {
			return err
		}
		closeLog = closer
		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().String("log-file", "", "Log file path (default from configuration)")

	rootCmd.AddCommand(NewDetectCmd())
	rootCmd.AddCommand(NewCompareCmd())
	rootCmd.AddCommand(NewInitCmd())
	rootCmd.AddCommand(NewVersionCmd())
}

func main() {
	err := rootCmd.Execute()
	_ = closeLog()
	if err != nil {
		printError(rootCmd.ErrOrStderr(), err)
		os.Exit(1)
	}
}

// printError writes a categorized error with recovery suggestions
func printError(w io.Writer, err error) {
	categorizer := service.NewErrorCategorizer()
	categorized := categorizer.Categorize(err)
	fmt.Fprintf(w, "❌ %s: %v\n", categorized.Category, err)

	suggestions := categorizer.GetRecoverySuggestions(categorized.Category)
	if len(suggestions) == 0 {
		return
	}
	fmt.Fprintf(w, "\n💡 Suggestions:\n")
	for _, s := range suggestions {
		fmt.Fprintf(w, "  • %s\n", s)
	}
}

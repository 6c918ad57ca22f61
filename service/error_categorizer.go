package service

import (
	"errors"
	"strings"

	"github.com/ludo-technologies/pyrefminer/domain"
)

type categoryPatterns struct {
	category domain.ErrorCategory
	patterns []string
}

// ErrorCategorizerImpl implements the ErrorCategorizer interface
type ErrorCategorizerImpl struct {
	patterns []categoryPatterns
}

// NewErrorCategorizer creates a new error categorizer
func NewErrorCategorizer() domain.ErrorCategorizer {
	return &ErrorCategorizerImpl{
		patterns: initializeErrorPatterns(),
	}
}

// initializeErrorPatterns initializes error pattern mappings. Earlier
// categories win when several match.
func initializeErrorPatterns() []categoryPatterns {
	return []categoryPatterns{
		{domain.ErrorCategoryTimeout, []string{
			"timeout",
			"timed out",
			"deadline",
			"context canceled",
		}},
		{domain.ErrorCategoryConfig, []string{
			"config",
			"invalid settings",
			"toml",
		}},
		{domain.ErrorCategoryInput, []string{
			"invalid input",
			"no python files",
			"no such file",
			"file not found",
			"cannot access",
			"permission denied",
		}},
		{domain.ErrorCategoryProcessing, []string{
			"parse",
			"syntax",
			"matching",
			"failed to compare",
		}},
		{domain.ErrorCategoryOutput, []string{
			"write",
			"output",
			"format",
			"cannot create",
		}},
	}
}

var errorCodeCategories = map[string]domain.ErrorCategory{
	domain.ErrCodeTimeout:           domain.ErrorCategoryTimeout,
	domain.ErrCodeConfigError:       domain.ErrorCategoryConfig,
	domain.ErrCodeFileNotFound:      domain.ErrorCategoryInput,
	domain.ErrCodeInvalidInput:      domain.ErrorCategoryInput,
	domain.ErrCodeParseError:        domain.ErrorCategoryProcessing,
	domain.ErrCodeAnalysisError:     domain.ErrorCategoryProcessing,
	domain.ErrCodeOutputError:       domain.ErrorCategoryOutput,
	domain.ErrCodeUnsupportedFormat: domain.ErrorCategoryOutput,
}

// Categorize determines the category of an error. Domain error codes take
// precedence over message patterns.
func (ec *ErrorCategorizerImpl) Categorize(err error) *domain.CategorizedError {
	if err == nil {
		return nil
	}

	var de domain.DomainError
	if errors.As(err, &de) {
		if category, ok := errorCodeCategories[de.Code]; ok {
			return &domain.CategorizedError{
				Category: category,
				Message:  ec.getCategoryMessage(category),
				Original: err,
			}
		}
	}

	errMsg := strings.ToLower(err.Error())
	for _, cp := range ec.patterns {
		if containsAnyPattern(errMsg, cp.patterns) {
			return &domain.CategorizedError{
				Category: cp.category,
				Message:  ec.getCategoryMessage(cp.category),
				Original: err,
			}
		}
	}

	return &domain.CategorizedError{
		Category: domain.ErrorCategoryUnknown,
		Message:  err.Error(),
		Original: err,
	}
}

// GetRecoverySuggestions returns recovery suggestions for an error category
func (ec *ErrorCategorizerImpl) GetRecoverySuggestions(category domain.ErrorCategory) []string {
	suggestions := map[domain.ErrorCategory][]string{
		domain.ErrorCategoryInput: {
			"Check that both paths exist and contain Python files",
			"Compare two files or two directories, not a file and a directory",
			"Check --include and --exclude patterns",
		},
		domain.ErrorCategoryConfig: {
			"Verify configuration file format and values",
			"Try: pyrefminer init to generate a valid config file",
			"Check for syntax errors in .pyrefminer.toml or [tool.pyrefminer] in pyproject.toml",
		},
		domain.ErrorCategoryTimeout: {
			"Increase the per-pair timeout with --timeout",
			"Compare a smaller set of files",
		},
		domain.ErrorCategoryOutput: {
			"Check write permissions and output format validity",
			"Use --format text, json, yaml or csv",
			"Ensure the output directory is writable",
		},
		domain.ErrorCategoryProcessing: {
			"Some files may have syntax errors",
			"Try: python -m py_compile on files to check for syntax errors",
			"Run with --verbose to see which files were skipped",
		},
		domain.ErrorCategoryUnknown: {
			"Run with --verbose for detailed error information",
			"Report the issue if it persists",
		},
	}

	if sug, ok := suggestions[category]; ok {
		return sug
	}
	return []string{"Check the error message for more details"}
}

// getCategoryMessage returns a user-friendly message for an error category
func (ec *ErrorCategorizerImpl) getCategoryMessage(category domain.ErrorCategory) string {
	messages := map[domain.ErrorCategory]string{
		domain.ErrorCategoryInput:      "Failed to process input files or directories",
		domain.ErrorCategoryConfig:     "Configuration file or settings error",
		domain.ErrorCategoryTimeout:    "Matching timed out",
		domain.ErrorCategoryOutput:     "Failed to generate or write output",
		domain.ErrorCategoryProcessing: "Error while parsing or comparing code",
		domain.ErrorCategoryUnknown:    "An unexpected error occurred",
	}

	if msg, ok := messages[category]; ok {
		return msg
	}
	return "An error occurred"
}

// containsAnyPattern checks if a string contains any of the given patterns
func containsAnyPattern(str string, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.Contains(str, pattern) {
			return true
		}
	}
	return false
}

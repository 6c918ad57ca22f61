package service

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ludo-technologies/pyrefminer/domain"
)

// WriteJSON writes indented JSON for the given value to the writer.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return domain.NewOutputError("failed to encode JSON", err)
	}
	return nil
}

// WriteYAML writes YAML for the given value to the writer.
func WriteYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return domain.NewOutputError("failed to encode YAML", err)
	}
	return nil
}

// Standard formatting constants
const (
	HeaderWidth    = 40
	SectionPadding = 2
	ItemPadding    = 4
)

// ANSI color codes for consistent color usage
const (
	ColorReset  = "\x1b[0m"
	ColorRed    = "\x1b[31m"
	ColorYellow = "\x1b[33m"
	ColorGreen  = "\x1b[32m"
	ColorCyan   = "\x1b[36m"
	ColorBold   = "\x1b[1m"
)

// FormatUtils provides shared formatting utilities
type FormatUtils struct {
	color bool
}

// NewFormatUtils creates a new format utilities instance
func NewFormatUtils(color bool) *FormatUtils {
	return &FormatUtils{color: color}
}

// FormatMainHeader creates a standardized main header
func (f *FormatUtils) FormatMainHeader(title string) string {
	return title + "\n" + strings.Repeat("=", HeaderWidth) + "\n\n"
}

// FormatSectionHeader creates a standardized section header
func (f *FormatUtils) FormatSectionHeader(title string) string {
	return f.Colorize(ColorBold, strings.ToUpper(title)) + "\n" + strings.Repeat("-", len(title)) + "\n"
}

// FormatLabelWithIndent creates a formatted label with specific indentation
func (f *FormatUtils) FormatLabelWithIndent(indent int, label string, value interface{}) string {
	return fmt.Sprintf("%s%s: %v\n", strings.Repeat(" ", indent), label, value)
}

// FormatDuration formats duration in milliseconds consistently
func (f *FormatUtils) FormatDuration(durationMs int64) string {
	return fmt.Sprintf("%dms", durationMs)
}

// FormatWarningsSection lists warnings under a WARNINGS header
func (f *FormatUtils) FormatWarningsSection(warnings []string) string {
	if len(warnings) == 0 {
		return ""
	}

	var builder strings.Builder
	builder.WriteString(f.FormatSectionHeader("Warnings"))
	for _, warning := range warnings {
		builder.WriteString(strings.Repeat(" ", SectionPadding) + f.Colorize(ColorYellow, "! ") + warning + "\n")
	}
	builder.WriteString("\n")
	return builder.String()
}

// Colorize wraps s in the color when colors are enabled
func (f *FormatUtils) Colorize(color, s string) string {
	if !f.color || s == "" {
		return s
	}
	return color + s + ColorReset
}

// TypeColor returns the color used for a refactoring type
func (f *FormatUtils) TypeColor(t domain.RefactoringType) string {
	switch t {
	case domain.RefactoringRenameMethod, domain.RefactoringMoveMethod,
		domain.RefactoringExtractMethod, domain.RefactoringInlineMethod:
		return ColorCyan
	case domain.RefactoringChangeVariableType, domain.RefactoringChangeParameterType, domain.RefactoringChangeReturnType:
		return ColorYellow
	default:
		return ColorGreen
	}
}

// DisplayName converts rename_method to "Rename Method"
func DisplayName(t domain.RefactoringType) string {
	words := strings.Split(string(t), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

package domain

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// OutputFormat represents the supported output formats
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
	OutputFormatYAML OutputFormat = "yaml"
	OutputFormatCSV  OutputFormat = "csv"
)

// ParseOutputFormat converts a format name to an OutputFormat
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case OutputFormatText, OutputFormatJSON, OutputFormatYAML, OutputFormatCSV:
		return f, nil
	}
	return "", NewUnsupportedFormatError(s)
}

// RefactoringType identifies a kind of refactoring in requests and reports
type RefactoringType string

const (
	RefactoringRenameMethod        RefactoringType = "rename_method"
	RefactoringMoveMethod          RefactoringType = "move_method"
	RefactoringExtractMethod       RefactoringType = "extract_method"
	RefactoringInlineMethod        RefactoringType = "inline_method"
	RefactoringRenameVariable      RefactoringType = "rename_variable"
	RefactoringRenameParameter     RefactoringType = "rename_parameter"
	RefactoringRenameAttribute     RefactoringType = "rename_attribute"
	RefactoringChangeVariableType  RefactoringType = "change_variable_type"
	RefactoringChangeParameterType RefactoringType = "change_parameter_type"
	RefactoringChangeReturnType    RefactoringType = "change_return_type"
	RefactoringMergeVariable       RefactoringType = "merge_variable"
	RefactoringSplitVariable       RefactoringType = "split_variable"
	RefactoringMergeParameter      RefactoringType = "merge_parameter"
	RefactoringSplitParameter      RefactoringType = "split_parameter"
	RefactoringRenameInvocation    RefactoringType = "rename_invocation"
)

// AllRefactoringTypes returns every known refactoring type in report order
func AllRefactoringTypes() []RefactoringType {
	return []RefactoringType{
		RefactoringRenameMethod,
		RefactoringMoveMethod,
		RefactoringExtractMethod,
		RefactoringInlineMethod,
		RefactoringRenameVariable,
		RefactoringRenameParameter,
		RefactoringRenameAttribute,
		RefactoringChangeVariableType,
		RefactoringChangeParameterType,
		RefactoringChangeReturnType,
		RefactoringMergeVariable,
		RefactoringSplitVariable,
		RefactoringMergeParameter,
		RefactoringSplitParameter,
		RefactoringRenameInvocation,
	}
}

// ParseRefactoringType accepts snake_case, kebab-case or display names
// ("Rename Method") and returns the matching type
func ParseRefactoringType(s string) (RefactoringType, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	for _, t := range AllRefactoringTypes() {
		if string(t) == normalized {
			return t, nil
		}
	}
	return "", NewInvalidInputError(fmt.Sprintf("unknown refactoring type: %s", s), nil)
}

// ParseRefactoringTypes parses a list of type names, dropping duplicates
func ParseRefactoringTypes(names []string) ([]RefactoringType, error) {
	seen := make(map[RefactoringType]bool)
	var types []RefactoringType
	for _, name := range names {
		t, err := ParseRefactoringType(name)
		if err != nil {
			return nil, err
		}
		if !seen[t] {
			seen[t] = true
			types = append(types, t)
		}
	}
	return types, nil
}

// RefactoringRequest represents a request for refactoring detection
type RefactoringRequest struct {
	// Before and after versions: two files or two directories
	BeforePath string
	AfterPath  string

	// Output configuration
	OutputFormat OutputFormat
	OutputWriter io.Writer
	OutputPath   string // Path to save output file
	ShowDetails  bool
	NoProgress   bool

	// Matching configuration
	PairTimeout              time.Duration // 0 disables the per-pair budget
	MaxOperationNameDistance float64
	Parallelism              int

	// RefactoringTypes filters the report; empty keeps every type
	RefactoringTypes []RefactoringType

	// Configuration
	ConfigPath string

	// Input options
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// ExplicitFlags records which CLI flags the user set
	ExplicitFlags map[string]bool
}

// Validate checks the request for missing or contradictory values
func (r *RefactoringRequest) Validate() error {
	if r.BeforePath == "" || r.AfterPath == "" {
		return NewValidationError("both a before and an after path are required")
	}
	if r.PairTimeout < 0 {
		return NewValidationError(fmt.Sprintf("pair timeout must be >= 0, got %s", r.PairTimeout))
	}
	if r.MaxOperationNameDistance < 0 || r.MaxOperationNameDistance > 1 {
		return NewValidationError(fmt.Sprintf("max operation name distance must be between 0.0 and 1.0, got %f",
			r.MaxOperationNameDistance))
	}
	if r.Parallelism < 0 {
		return NewValidationError(fmt.Sprintf("parallelism must be >= 0, got %d", r.Parallelism))
	}
	if r.OutputFormat != "" {
		if _, err := ParseOutputFormat(string(r.OutputFormat)); err != nil {
			return err
		}
	}
	return nil
}

// Wants reports whether refactorings of type t are requested
func (r *RefactoringRequest) Wants(t RefactoringType) bool {
	if len(r.RefactoringTypes) == 0 {
		return true
	}
	for _, want := range r.RefactoringTypes {
		if want == t {
			return true
		}
	}
	return false
}

// SourceLocation represents a line range in a source file
type SourceLocation struct {
	File      string `json:"file" yaml:"file"`
	StartLine int    `json:"start_line" yaml:"start_line"`
	EndLine   int    `json:"end_line" yaml:"end_line"`
}

// String returns file:start-end
func (l SourceLocation) String() string {
	return fmt.Sprintf("%s:%d-%d", l.File, l.StartLine, l.EndLine)
}

// OperationInfo describes a function or method
type OperationInfo struct {
	Name      string         `json:"name" yaml:"name"`
	ClassName string         `json:"class_name,omitempty" yaml:"class_name,omitempty"`
	Module    string         `json:"module" yaml:"module"`
	Signature string         `json:"signature" yaml:"signature"`
	Location  SourceLocation `json:"location" yaml:"location"`
}

// ReplacementInfo is one substitution justifying a statement mapping
type ReplacementInfo struct {
	Type   string `json:"type" yaml:"type"`
	Before string `json:"before" yaml:"before"`
	After  string `json:"after" yaml:"after"`
}

// StatementMapping pairs a statement before with a statement after
type StatementMapping struct {
	Before         string            `json:"before" yaml:"before"`
	After          string            `json:"after" yaml:"after"`
	BeforeLocation SourceLocation    `json:"before_location" yaml:"before_location"`
	AfterLocation  SourceLocation    `json:"after_location" yaml:"after_location"`
	Exact          bool              `json:"exact" yaml:"exact"`
	Replacements   []ReplacementInfo `json:"replacements,omitempty" yaml:"replacements,omitempty"`
}

// Refactoring represents one detected refactoring
type Refactoring struct {
	Type        RefactoringType    `json:"type" yaml:"type"`
	Description string             `json:"description" yaml:"description"`
	Before      string             `json:"before" yaml:"before"`
	After       string             `json:"after" yaml:"after"`
	Operation1  *OperationInfo     `json:"operation_before,omitempty" yaml:"operation_before,omitempty"`
	Operation2  *OperationInfo     `json:"operation_after,omitempty" yaml:"operation_after,omitempty"`
	Mappings    []StatementMapping `json:"mappings,omitempty" yaml:"mappings,omitempty"`
}

// TimedOutPair is an operation pair whose mapping ran out of time
type TimedOutPair struct {
	Before OperationInfo `json:"before" yaml:"before"`
	After  OperationInfo `json:"after" yaml:"after"`
}

// RefactoringStatistics summarizes a detection run
type RefactoringStatistics struct {
	FilesBefore        int            `json:"files_before" yaml:"files_before"`
	FilesAfter         int            `json:"files_after" yaml:"files_after"`
	ModulesAdded       int            `json:"modules_added" yaml:"modules_added"`
	ModulesRemoved     int            `json:"modules_removed" yaml:"modules_removed"`
	OperationsCompared int            `json:"operations_compared" yaml:"operations_compared"`
	MappedStatements   int            `json:"mapped_statements" yaml:"mapped_statements"`
	TotalRefactorings  int            `json:"total_refactorings" yaml:"total_refactorings"`
	TimedOutPairs      int            `json:"timed_out_pairs" yaml:"timed_out_pairs"`
	ByType             map[string]int `json:"by_type" yaml:"by_type"`
	DurationMs         int64          `json:"duration_ms" yaml:"duration_ms"`
}

// RefactoringResponse represents the result of refactoring detection
type RefactoringResponse struct {
	Refactorings  []Refactoring         `json:"refactorings" yaml:"refactorings"`
	TimedOutPairs []TimedOutPair        `json:"timed_out_pairs,omitempty" yaml:"timed_out_pairs,omitempty"`
	Statistics    RefactoringStatistics `json:"statistics" yaml:"statistics"`
	Warnings      []string              `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Errors        []string              `json:"errors,omitempty" yaml:"errors,omitempty"`
	GeneratedAt   string                `json:"generated_at" yaml:"generated_at"`
	Version       string                `json:"version" yaml:"version"`
	Config        interface{}           `json:"config,omitempty" yaml:"config,omitempty"`
}

// CountByType returns the number of refactorings per type, keyed by name
func (r *RefactoringResponse) CountByType() map[string]int {
	counts := make(map[string]int)
	for _, ref := range r.Refactorings {
		counts[string(ref.Type)]++
	}
	return counts
}

// SortedTypes returns the refactoring types present in the response in
// report order
func (r *RefactoringResponse) SortedTypes() []RefactoringType {
	order := make(map[RefactoringType]int)
	for i, t := range AllRefactoringTypes() {
		order[t] = i
	}
	present := make(map[RefactoringType]bool)
	var types []RefactoringType
	for _, ref := range r.Refactorings {
		if !present[ref.Type] {
			present[ref.Type] = true
			types = append(types, ref.Type)
		}
	}
	sort.Slice(types, func(i, j int) bool { return order[types[i]] < order[types[j]] })
	return types
}

// OperationComparison is the statement alignment of two single functions
type OperationComparison struct {
	Before         OperationInfo      `json:"before" yaml:"before"`
	After          OperationInfo      `json:"after" yaml:"after"`
	Mappings       []StatementMapping `json:"mappings" yaml:"mappings"`
	Refactorings   []Refactoring      `json:"refactorings,omitempty" yaml:"refactorings,omitempty"`
	UnmappedBefore []string           `json:"unmapped_before,omitempty" yaml:"unmapped_before,omitempty"`
	UnmappedAfter  []string           `json:"unmapped_after,omitempty" yaml:"unmapped_after,omitempty"`
	ExactMatches   int                `json:"exact_matches" yaml:"exact_matches"`
}

// RefactoringService defines the core business logic for refactoring detection
type RefactoringService interface {
	// DetectRefactorings compares the before and after paths of the request
	DetectRefactorings(ctx context.Context, req RefactoringRequest) (*RefactoringResponse, error)

	// CompareOperations aligns the first function of each source
	CompareOperations(ctx context.Context, before, after string) (*OperationComparison, error)
}

// FileReader defines the interface for reading and collecting Python files
type FileReader interface {
	// CollectPythonFiles finds all Python files in the given paths
	CollectPythonFiles(paths []string, recursive bool, includePatterns, excludePatterns []string) ([]string, error)

	// ReadFile reads the content of a file
	ReadFile(path string) ([]byte, error)

	// IsValidPythonFile checks if a file is a valid Python file
	IsValidPythonFile(path string) bool

	// FileExists checks if a file exists
	FileExists(path string) (bool, error)
}

// RefactoringFormatter defines the interface for formatting detection results
type RefactoringFormatter interface {
	// Format formats the response according to the specified format
	Format(response *RefactoringResponse, format OutputFormat) (string, error)

	// Write writes the formatted output to the writer
	Write(response *RefactoringResponse, format OutputFormat, writer io.Writer) error
}

// RefactoringConfigurationLoader defines the interface for loading configuration
type RefactoringConfigurationLoader interface {
	// LoadConfig loads configuration from the specified path
	LoadConfig(path string) (*RefactoringRequest, error)

	// LoadDefaultConfig discovers configuration starting at startDir
	LoadDefaultConfig(startDir string) *RefactoringRequest

	// MergeConfig merges CLI flags with configuration file values
	MergeConfig(base *RefactoringRequest, override *RefactoringRequest) *RefactoringRequest
}

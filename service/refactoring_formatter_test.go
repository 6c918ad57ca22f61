package service

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ludo-technologies/pyrefminer/domain"
)

func sampleResponse() *domain.RefactoringResponse {
	return &domain.RefactoringResponse{
		Refactorings: []domain.Refactoring{
			{
				Type:        domain.RefactoringRenameVariable,
				Description: "Rename Variable result to acc in total(items) in cart.py",
				Before:      "result",
				After:       "acc",
				Operation1:  &domain.OperationInfo{Name: "total", Module: "cart.py", Signature: "total(items)"},
				Operation2: &domain.OperationInfo{
					Name: "total", Module: "cart.py", Signature: "total(items)",
					Location: domain.SourceLocation{File: "cart.py", StartLine: 1, EndLine: 5},
				},
				Mappings: []domain.StatementMapping{
					{Before: "result = 0", After: "acc = 0", Replacements: []domain.ReplacementInfo{
						{Type: "VARIABLE_NAME", Before: "result", After: "acc"},
					}},
					{Before: "for item in items", After: "for item in items", Exact: true},
				},
			},
			{
				Type:        domain.RefactoringRenameMethod,
				Description: "Rename Method Cart.total() to Cart.compute_total() in cart.py",
				Before:      "cart.py::Cart.total",
				After:       "cart.py::Cart.compute_total",
				Operation1:  &domain.OperationInfo{Name: "total", ClassName: "Cart", Module: "cart.py", Signature: "Cart.total()"},
				Operation2:  &domain.OperationInfo{Name: "compute_total", ClassName: "Cart", Module: "cart.py", Signature: "Cart.compute_total()"},
			},
		},
		Statistics: domain.RefactoringStatistics{
			FilesBefore:        1,
			FilesAfter:         1,
			OperationsCompared: 3,
			TotalRefactorings:  2,
			ByType:             map[string]int{"rename_variable": 1, "rename_method": 1},
		},
		Warnings:    []string{"skipped broken.py: syntax error at line 1"},
		GeneratedAt: "2026-01-01T00:00:00Z",
		Version:     "dev",
	}
}

func TestRefactoringFormatter_Text(t *testing.T) {
	out, err := NewRefactoringFormatter().Format(sampleResponse(), domain.OutputFormatText)
	require.NoError(t, err)

	assert.Contains(t, out, "Refactoring Detection Report")
	assert.Contains(t, out, "Operations compared: 3")
	assert.Contains(t, out, "RENAME METHOD (1)")
	assert.Contains(t, out, "RENAME VARIABLE (1)")
	assert.Contains(t, out, "at: cart.py:1-5")
	assert.Contains(t, out, "= for item in items")
	assert.Contains(t, out, "VARIABLE_NAME: result -> acc")
	assert.Contains(t, out, "skipped broken.py")
	assert.NotContains(t, out, ColorReset)

	// report order puts methods before variables
	assert.Less(t, strings.Index(out, "RENAME METHOD"), strings.Index(out, "RENAME VARIABLE"))
}

func TestRefactoringFormatter_TextEmpty(t *testing.T) {
	out, err := NewRefactoringFormatter().Format(&domain.RefactoringResponse{}, domain.OutputFormatText)
	require.NoError(t, err)
	assert.Contains(t, out, "No refactorings detected.")
	assert.NotContains(t, out, "WARNINGS")
}

func TestRefactoringFormatter_Color(t *testing.T) {
	out, err := NewColorRefactoringFormatter(true).Format(sampleResponse(), domain.OutputFormatText)
	require.NoError(t, err)
	assert.Contains(t, out, ColorCyan+"Rename Method")
	assert.Contains(t, out, ColorReset)
}

func TestRefactoringFormatter_InlineDiff(t *testing.T) {
	f := NewRefactoringFormatter()
	diff := f.inlineDiff("result = 0", "acc = 0")
	assert.Contains(t, diff, "[-")
	assert.Contains(t, diff, "{+")
	assert.True(t, strings.HasSuffix(diff, " = 0"), diff)
}

func TestRefactoringFormatter_JSON(t *testing.T) {
	out, err := NewRefactoringFormatter().Format(sampleResponse(), domain.OutputFormatJSON)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	refs, ok := decoded["refactorings"].([]interface{})
	require.True(t, ok)
	require.Len(t, refs, 2)
	first := refs[0].(map[string]interface{})
	assert.Equal(t, "rename_variable", first["type"])
	assert.Contains(t, first, "operation_before")
}

func TestRefactoringFormatter_YAML(t *testing.T) {
	out, err := NewRefactoringFormatter().Format(sampleResponse(), domain.OutputFormatYAML)
	require.NoError(t, err)

	var decoded struct {
		Statistics struct {
			TotalRefactorings int `yaml:"total_refactorings"`
		} `yaml:"statistics"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, 2, decoded.Statistics.TotalRefactorings)
}

func TestRefactoringFormatter_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewRefactoringFormatter().Write(sampleResponse(), domain.OutputFormatCSV, &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "type", records[0][0])
	assert.Equal(t, []string{
		"rename_variable",
		"Rename Variable result to acc in total(items) in cart.py",
		"result", "acc", "total(items)", "total(items)", "cart.py", "1", "5",
	}, records[1])
}

func TestRefactoringFormatter_UnsupportedFormat(t *testing.T) {
	_, err := NewRefactoringFormatter().Format(sampleResponse(), domain.OutputFormat("html"))
	require.Error(t, err)

	var de domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.ErrCodeUnsupportedFormat, de.Code)
}

func TestRefactoringFormatter_WriteComparison(t *testing.T) {
	cmp := &domain.OperationComparison{
		Before: domain.OperationInfo{Name: "area", Signature: "area(w, h)"},
		After:  domain.OperationInfo{Name: "surface", Signature: "surface(w, h)"},
		Mappings: []domain.StatementMapping{
			{Before: "return w * h", After: "return w * h", Exact: true},
		},
		UnmappedAfter: []string{"log(w)"},
		Refactorings: []domain.Refactoring{
			{Type: domain.RefactoringRenameMethod, Description: "Rename Method area(w, h) to surface(w, h)"},
		},
		ExactMatches: 1,
	}

	var buf bytes.Buffer
	f := NewRefactoringFormatter()
	require.NoError(t, f.WriteComparison(cmp, domain.OutputFormatText, &buf))
	out := buf.String()
	assert.Contains(t, out, "area(w, h) -> surface(w, h)")
	assert.Contains(t, out, "MAPPINGS (1, 1 EXACT)")
	assert.Contains(t, out, "+ log(w)")
	assert.Contains(t, out, "Rename Method area(w, h) to surface(w, h)")

	buf.Reset()
	require.NoError(t, f.WriteComparison(cmp, domain.OutputFormatJSON, &buf))
	var decoded domain.OperationComparison
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 1, decoded.ExactMatches)

	assert.Error(t, f.WriteComparison(cmp, domain.OutputFormatCSV, &buf))
}

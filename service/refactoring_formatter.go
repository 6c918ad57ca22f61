package service

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/ludo-technologies/pyrefminer/domain"
)

// RefactoringFormatterImpl implements the RefactoringFormatter interface
type RefactoringFormatterImpl struct {
	utils *FormatUtils
}

// NewRefactoringFormatter creates a formatter without colors
func NewRefactoringFormatter() *RefactoringFormatterImpl {
	return &RefactoringFormatterImpl{utils: NewFormatUtils(false)}
}

// NewColorRefactoringFormatter creates a formatter that colors the text format
func NewColorRefactoringFormatter(color bool) *RefactoringFormatterImpl {
	return &RefactoringFormatterImpl{utils: NewFormatUtils(color)}
}

// Format formats the response according to the specified format
func (f *RefactoringFormatterImpl) Format(response *domain.RefactoringResponse, format domain.OutputFormat) (string, error) {
	var buf bytes.Buffer
	if err := f.Write(response, format, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Write writes the formatted output to the writer
func (f *RefactoringFormatterImpl) Write(response *domain.RefactoringResponse, format domain.OutputFormat, writer io.Writer) error {
	switch format {
	case domain.OutputFormatText, "":
		_, err := io.WriteString(writer, f.formatText(response))
		if err != nil {
			return domain.NewOutputError("failed to write text output", err)
		}
		return nil
	case domain.OutputFormatJSON:
		return WriteJSON(writer, response)
	case domain.OutputFormatYAML:
		return WriteYAML(writer, response)
	case domain.OutputFormatCSV:
		return f.writeCSV(response, writer)
	default:
		return domain.NewUnsupportedFormatError(string(format))
	}
}

func (f *RefactoringFormatterImpl) formatText(response *domain.RefactoringResponse) string {
	var builder strings.Builder
	u := f.utils
	stats := response.Statistics

	builder.WriteString(u.FormatMainHeader("Refactoring Detection Report"))

	builder.WriteString(u.FormatSectionHeader("Summary"))
	builder.WriteString(u.FormatLabelWithIndent(SectionPadding, "Files before", stats.FilesBefore))
	builder.WriteString(u.FormatLabelWithIndent(SectionPadding, "Files after", stats.FilesAfter))
	if stats.ModulesAdded > 0 || stats.ModulesRemoved > 0 {
		builder.WriteString(u.FormatLabelWithIndent(SectionPadding, "Modules added", stats.ModulesAdded))
		builder.WriteString(u.FormatLabelWithIndent(SectionPadding, "Modules removed", stats.ModulesRemoved))
	}
	builder.WriteString(u.FormatLabelWithIndent(SectionPadding, "Operations compared", stats.OperationsCompared))
	builder.WriteString(u.FormatLabelWithIndent(SectionPadding, "Mapped statements", stats.MappedStatements))
	builder.WriteString(u.FormatLabelWithIndent(SectionPadding, "Refactorings", len(response.Refactorings)))
	if len(response.TimedOutPairs) > 0 {
		builder.WriteString(u.FormatLabelWithIndent(SectionPadding, "Timed out pairs", len(response.TimedOutPairs)))
	}
	builder.WriteString(u.FormatLabelWithIndent(SectionPadding, "Duration", u.FormatDuration(stats.DurationMs)))
	builder.WriteString("\n")

	if len(response.Refactorings) == 0 {
		builder.WriteString(strings.Repeat(" ", SectionPadding) + "No refactorings detected.\n\n")
	}

	for _, t := range response.SortedTypes() {
		var group []domain.Refactoring
		for _, ref := range response.Refactorings {
			if ref.Type == t {
				group = append(group, ref)
			}
		}

		builder.WriteString(u.FormatSectionHeader(fmt.Sprintf("%s (%d)", DisplayName(t), len(group))))
		for _, ref := range group {
			builder.WriteString(strings.Repeat(" ", SectionPadding))
			builder.WriteString(u.Colorize(u.TypeColor(t), ref.Description))
			builder.WriteString("\n")
			if ref.Operation2 != nil && ref.Operation2.Location.File != "" {
				builder.WriteString(u.FormatLabelWithIndent(ItemPadding, "at", ref.Operation2.Location.String()))
			}
			for _, m := range ref.Mappings {
				builder.WriteString(f.formatMapping(m))
			}
		}
		builder.WriteString("\n")
	}

	builder.WriteString(u.FormatWarningsSection(response.Warnings))

	if len(response.Errors) > 0 {
		builder.WriteString(u.FormatSectionHeader("Errors"))
		for _, e := range response.Errors {
			builder.WriteString(strings.Repeat(" ", SectionPadding) + u.Colorize(ColorRed, "x ") + e + "\n")
		}
		builder.WriteString("\n")
	}

	return builder.String()
}

// formatMapping renders one statement mapping; replaced statements show an
// inline character diff
func (f *RefactoringFormatterImpl) formatMapping(m domain.StatementMapping) string {
	indent := strings.Repeat(" ", ItemPadding)
	if m.Exact || m.Before == m.After {
		return fmt.Sprintf("%s= %s\n", indent, m.Before)
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("%s~ %s\n", indent, f.inlineDiff(m.Before, m.After)))
	for _, r := range m.Replacements {
		builder.WriteString(fmt.Sprintf("%s    %s: %s -> %s\n", indent, r.Type, r.Before, r.After))
	}
	return builder.String()
}

func (f *RefactoringFormatterImpl) inlineDiff(before, after string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(before, after, false))

	var builder strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			builder.WriteString(d.Text)
		case diffmatchpatch.DiffDelete:
			builder.WriteString(f.utils.Colorize(ColorRed, "[-"+d.Text+"-]"))
		case diffmatchpatch.DiffInsert:
			builder.WriteString(f.utils.Colorize(ColorGreen, "{+"+d.Text+"+}"))
		}
	}
	return builder.String()
}

// WriteComparison writes the statement alignment of two functions. CSV is
// not supported for comparisons.
func (f *RefactoringFormatterImpl) WriteComparison(cmp *domain.OperationComparison, format domain.OutputFormat, writer io.Writer) error {
	switch format {
	case domain.OutputFormatText, "":
		if _, err := io.WriteString(writer, f.formatComparisonText(cmp)); err != nil {
			return domain.NewOutputError("failed to write text output", err)
		}
		return nil
	case domain.OutputFormatJSON:
		return WriteJSON(writer, cmp)
	case domain.OutputFormatYAML:
		return WriteYAML(writer, cmp)
	default:
		return domain.NewUnsupportedFormatError(string(format))
	}
}

func (f *RefactoringFormatterImpl) formatComparisonText(cmp *domain.OperationComparison) string {
	var builder strings.Builder
	u := f.utils

	builder.WriteString(u.FormatMainHeader(fmt.Sprintf("%s -> %s", cmp.Before.Signature, cmp.After.Signature)))

	builder.WriteString(u.FormatSectionHeader(fmt.Sprintf("Mappings (%d, %d exact)", len(cmp.Mappings), cmp.ExactMatches)))
	for _, m := range cmp.Mappings {
		builder.WriteString(f.formatMapping(m))
	}
	builder.WriteString("\n")

	if len(cmp.UnmappedBefore) > 0 || len(cmp.UnmappedAfter) > 0 {
		builder.WriteString(u.FormatSectionHeader("Unmapped"))
		for _, s := range cmp.UnmappedBefore {
			builder.WriteString(strings.Repeat(" ", ItemPadding) + u.Colorize(ColorRed, "- "+s) + "\n")
		}
		for _, s := range cmp.UnmappedAfter {
			builder.WriteString(strings.Repeat(" ", ItemPadding) + u.Colorize(ColorGreen, "+ "+s) + "\n")
		}
		builder.WriteString("\n")
	}

	if len(cmp.Refactorings) > 0 {
		builder.WriteString(u.FormatSectionHeader("Refactorings"))
		for _, ref := range cmp.Refactorings {
			builder.WriteString(strings.Repeat(" ", SectionPadding) + u.Colorize(u.TypeColor(ref.Type), ref.Description) + "\n")
		}
		builder.WriteString("\n")
	}

	return builder.String()
}

func (f *RefactoringFormatterImpl) writeCSV(response *domain.RefactoringResponse, writer io.Writer) error {
	w := csv.NewWriter(writer)

	header := []string{"type", "description", "before", "after", "operation_before", "operation_after", "file", "start_line", "end_line"}
	if err := w.Write(header); err != nil {
		return domain.NewOutputError("failed to write CSV header", err)
	}

	for _, ref := range response.Refactorings {
		var opBefore, opAfter, file, start, end string
		if ref.Operation1 != nil {
			opBefore = ref.Operation1.Signature
		}
		if ref.Operation2 != nil {
			opAfter = ref.Operation2.Signature
			file = ref.Operation2.Location.File
			start = strconv.Itoa(ref.Operation2.Location.StartLine)
			end = strconv.Itoa(ref.Operation2.Location.EndLine)
		}
		record := []string{string(ref.Type), ref.Description, ref.Before, ref.After, opBefore, opAfter, file, start, end}
		if err := w.Write(record); err != nil {
			return domain.NewOutputError("failed to write CSV record", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return domain.NewOutputError("failed to flush CSV output", err)
	}
	return nil
}

var _ domain.RefactoringFormatter = (*RefactoringFormatterImpl)(nil)

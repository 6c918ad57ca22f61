package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/pyrefminer/domain"
)

const ordersBefore = `class Orders:
    def add(self, row):
        self.rows.append(row)

    def total(self):
        result = 0
        for row in self.rows:
            result += float(row)
        return result
`

const ordersAfter = `class Orders:
    def add(self, row):
        self.rows.append(row)

    def sum_rows(self):
        result = 0
        for row in self.rows:
            result += float(row)
        return result
`

func writePython(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDetectCommand_JSON(t *testing.T) {
	root := t.TempDir()
	writePython(t, filepath.Join(root, "v1", "orders.py"), ordersBefore)
	writePython(t, filepath.Join(root, "v2", "orders.py"), ordersAfter)

	var out, errOut bytes.Buffer
	cmd := NewDetectCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{
		filepath.Join(root, "v1"), filepath.Join(root, "v2"),
		"--format", "json", "--no-progress",
	})
	require.NoError(t, cmd.Execute())

	var resp domain.RefactoringResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	require.Len(t, resp.Refactorings, 1)
	assert.Equal(t, domain.RefactoringRenameMethod, resp.Refactorings[0].Type)
	assert.Equal(t, 1, resp.Statistics.FilesBefore)
	assert.Empty(t, resp.Refactorings[0].Mappings)
}

func TestDetectCommand_OutputFile(t *testing.T) {
	root := t.TempDir()
	writePython(t, filepath.Join(root, "v1", "orders.py"), ordersBefore)
	writePython(t, filepath.Join(root, "v2", "orders.py"), ordersAfter)
	report := filepath.Join(root, "reports", "out.csv")

	var out, errOut bytes.Buffer
	cmd := NewDetectCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{
		filepath.Join(root, "v1"), filepath.Join(root, "v2"),
		"-f", "csv", "-o", report, "--no-progress",
	})
	require.NoError(t, cmd.Execute())

	content, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(content), "rename_method")
	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "out.csv")
}

func TestDetectCommand_InvalidFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad format", []string{"a", "b", "--format", "html"}},
		{"bad type", []string{"a", "b", "--types", "rename_everything"}},
		{"missing argument", []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			cmd := NewDetectCmd()
			cmd.SetOut(&out)
			cmd.SetErr(&out)
			cmd.SetArgs(tt.args)
			assert.Error(t, cmd.Execute())
		})
	}
}

func TestCompareCommand(t *testing.T) {
	root := t.TempDir()
	before := filepath.Join(root, "before.py")
	after := filepath.Join(root, "after.py")
	writePython(t, before, "def area(w, h):\n    return w * h\n")
	writePython(t, after, "def surface(w, h):\n    return w * h\n")

	var out bytes.Buffer
	cmd := NewCompareCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{before, after, "--format", "json"})
	require.NoError(t, cmd.Execute())

	var cmp domain.OperationComparison
	require.NoError(t, json.Unmarshal(out.Bytes(), &cmp))
	assert.Equal(t, "area", cmp.Before.Name)
	assert.Equal(t, "surface", cmp.After.Name)
	assert.Equal(t, 1, cmp.ExactMatches)

	cmd = NewCompareCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{filepath.Join(root, "missing.py"), after})
	assert.Error(t, cmd.Execute())
}

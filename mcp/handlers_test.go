package mcp_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/pyrefminer/domain"
	"github.com/ludo-technologies/pyrefminer/mcp"
)

const inventoryBefore = `class Inventory:
    def add(self, item):
        self.items.append(item)

    def count(self):
        total = 0
        for item in self.items:
            total += item.quantity
        return total
`

const inventoryAfter = `class Inventory:
    def add(self, item):
        self.items.append(item)

    def count_units(self):
        total = 0
        for item in self.items:
            total += item.quantity
        return total
`

// setupVersions writes two versions of a project and returns their roots
func setupVersions(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	before := filepath.Join(root, "v1")
	after := filepath.Join(root, "v2")
	for dir, content := range map[string]string{before: inventoryBefore, after: inventoryAfter} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "inventory.py"), []byte(content), 0o644))
	}
	return before, after
}

func runToolTest(
	t *testing.T,
	arguments interface{},
	handlerFunc func(*mcp.HandlerSet, context.Context, mcplib.CallToolRequest) (*mcplib.CallToolResult, error),
) *mcplib.CallToolResult {
	t.Helper()
	h := mcp.NewHandlerSet(mcp.NewDependencies(nil, ""))

	req := mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{
			Arguments: arguments,
		},
	}

	res, err := handlerFunc(h, context.Background(), req)
	require.NoError(t, err)
	return res
}

func TestHandleDetectRefactorings(t *testing.T) {
	before, after := setupVersions(t)

	type want struct {
		isError      bool
		expectPrefix string
		check        func(t *testing.T, text string)
	}
	tests := map[string]struct {
		arguments interface{}
		want      want
	}{
		"invalid_arguments_format": {
			arguments: "not-a-map",
			want:      want{isError: true, expectPrefix: "invalid arguments format"},
		},
		"before_missing": {
			arguments: map[string]interface{}{"after_path": after},
			want:      want{isError: true, expectPrefix: "before_path parameter is required"},
		},
		"path_not_exist": {
			arguments: map[string]interface{}{"before_path": "/non/existing/path", "after_path": after},
			want:      want{isError: true, expectPrefix: "path does not exist"},
		},
		"unknown_type": {
			arguments: map[string]interface{}{
				"before_path": before, "after_path": after,
				"types": []interface{}{"rename_universe"},
			},
			want: want{isError: true},
		},
		"summary": {
			arguments: map[string]interface{}{"before_path": before, "after_path": after},
			want: want{
				check: func(t *testing.T, text string) {
					var result map[string]interface{}
					require.NoError(t, json.Unmarshal([]byte(text), &result))
					refs := result["refactorings"].([]interface{})
					require.Len(t, refs, 1)
					first := refs[0].(map[string]interface{})
					assert.Equal(t, "rename_method", first["type"])
					assert.Contains(t, first["description"], "count_units")
				},
			},
		},
		"full_with_details": {
			arguments: map[string]interface{}{
				"before_path": before, "after_path": after,
				"output_mode": "full", "show_details": true,
			},
			want: want{
				check: func(t *testing.T, text string) {
					var resp domain.RefactoringResponse
					require.NoError(t, json.Unmarshal([]byte(text), &resp))
					require.Len(t, resp.Refactorings, 1)
					assert.NotEmpty(t, resp.Refactorings[0].Mappings)
				},
			},
		},
		"filtered_out": {
			arguments: map[string]interface{}{
				"before_path": before, "after_path": after,
				"types": []interface{}{"extract_operation"},
			},
			want: want{
				check: func(t *testing.T, text string) {
					var result map[string]interface{}
					require.NoError(t, json.Unmarshal([]byte(text), &result))
					assert.Empty(t, result["refactorings"])
				},
			},
		},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			res := runToolTest(t, tc.arguments, (*mcp.HandlerSet).HandleDetectRefactorings)
			require.Equal(t, tc.want.isError, res.IsError)
			require.NotEmpty(t, res.Content)
			text := mcplib.GetTextFromContent(res.Content[0])
			if tc.want.expectPrefix != "" {
				assert.True(t, strings.HasPrefix(text, tc.want.expectPrefix), "text %q", text)
			}
			if tc.want.check != nil {
				tc.want.check(t, text)
			}
		})
	}
}

func TestHandleCompareFunctions(t *testing.T) {
	tests := map[string]struct {
		arguments interface{}
		isError   bool
		check     func(t *testing.T, cmp domain.OperationComparison)
	}{
		"missing_after": {
			arguments: map[string]interface{}{"before_source": "def f():\n    pass\n"},
			isError:   true,
		},
		"no_function": {
			arguments: map[string]interface{}{"before_source": "x = 1\n", "after_source": "def f():\n    pass\n"},
			isError:   true,
		},
		"rename": {
			arguments: map[string]interface{}{
				"before_source": "def area(w, h):\n    return w * h\n",
				"after_source":  "def surface(w, h):\n    return w * h\n",
			},
			check: func(t *testing.T, cmp domain.OperationComparison) {
				assert.Equal(t, "area", cmp.Before.Name)
				assert.Equal(t, "surface", cmp.After.Name)
				assert.Equal(t, 1, cmp.ExactMatches)
				require.NotEmpty(t, cmp.Refactorings)
				assert.Equal(t, domain.RefactoringRenameMethod, cmp.Refactorings[0].Type)
			},
		},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			res := runToolTest(t, tc.arguments, (*mcp.HandlerSet).HandleCompareFunctions)
			require.Equal(t, tc.isError, res.IsError)
			if tc.check == nil {
				return
			}
			var cmp domain.OperationComparison
			require.NoError(t, json.Unmarshal([]byte(mcplib.GetTextFromContent(res.Content[0])), &cmp))
			tc.check(t, cmp)
		})
	}
}

func TestHandleListRefactoringTypes(t *testing.T) {
	res := runToolTest(t, map[string]interface{}{}, (*mcp.HandlerSet).HandleListRefactoringTypes)
	require.False(t, res.IsError)

	var result struct {
		Types []struct {
			Type string `json:"type"`
			Name string `json:"name"`
		} `json:"types"`
	}
	require.NoError(t, json.Unmarshal([]byte(mcplib.GetTextFromContent(res.Content[0])), &result))
	assert.Len(t, result.Types, len(domain.AllRefactoringTypes()))
	assert.Contains(t, result.Types, struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}{"rename_method", "Rename Method"})
}

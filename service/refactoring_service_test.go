package service

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/pyrefminer/domain"
)

const cartBefore = `class Cart:
    def add(self, item):
        self.items.append(item)

    def total(self):
        result = 0
        for item in self.items:
            result += item.price
        return result

    def clear(self):
        self.items = []
`

const cartAfter = `class Cart:
    def add(self, item):
        self.items.append(item)

    def compute_total(self):
        result = 0
        for item in self.items:
            result += item.price
        return result

    def clear(self):
        self.items = []
`

func newDetectRequest(before, after string) domain.RefactoringRequest {
	return domain.RefactoringRequest{
		BeforePath:               before,
		AfterPath:                after,
		OutputFormat:             domain.OutputFormatText,
		PairTimeout:              10 * time.Second,
		MaxOperationNameDistance: 0.4,
		Recursive:                true,
		IncludePatterns:          []string{"**/*.py"},
		NoProgress:               true,
	}
}

func TestRefactoringService_DetectRenameMethodInFiles(t *testing.T) {
	root := t.TempDir()
	before := createTestFile(t, root, "v1/cart_old.py", cartBefore)
	after := createTestFile(t, root, "v2/cart.py", cartAfter)

	svc := NewRefactoringService(NewFileReader(), nil, nil)
	req := newDetectRequest(before, after)
	req.ShowDetails = true

	resp, err := svc.DetectRefactorings(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, resp.Refactorings, 1)
	ref := resp.Refactorings[0]
	assert.Equal(t, domain.RefactoringRenameMethod, ref.Type)
	assert.Equal(t, "Rename Method Cart.total() to Cart.compute_total() in cart.py", ref.Description)
	require.NotNil(t, ref.Operation1)
	require.NotNil(t, ref.Operation2)
	assert.Equal(t, "total", ref.Operation1.Name)
	assert.Equal(t, "compute_total", ref.Operation2.Name)
	assert.Equal(t, "Cart", ref.Operation2.ClassName)
	assert.Equal(t, "cart.py", ref.Operation2.Module)
	assert.NotEmpty(t, ref.Mappings)

	assert.Equal(t, 1, resp.Statistics.FilesBefore)
	assert.Equal(t, 1, resp.Statistics.FilesAfter)
	assert.Zero(t, resp.Statistics.ModulesAdded)
	assert.Equal(t, 3, resp.Statistics.OperationsCompared)
	assert.Equal(t, 1, resp.Statistics.TotalRefactorings)
	assert.Equal(t, map[string]int{"rename_method": 1}, resp.Statistics.ByType)
	assert.Empty(t, resp.TimedOutPairs)
	assert.NotEmpty(t, resp.GeneratedAt)
}

func TestRefactoringService_MappingsOnlyWithDetails(t *testing.T) {
	root := t.TempDir()
	before := createTestFile(t, root, "v1/cart.py", cartBefore)
	after := createTestFile(t, root, "v2/cart.py", cartAfter)

	resp, err := NewRefactoringService(nil, nil, nil).DetectRefactorings(context.Background(), newDetectRequest(before, after))
	require.NoError(t, err)
	require.Len(t, resp.Refactorings, 1)
	assert.Empty(t, resp.Refactorings[0].Mappings)
}

func TestRefactoringService_DetectMoveAcrossDirectories(t *testing.T) {
	root := t.TempDir()
	createTestFile(t, root, "v1/a.py", "def keep():\n    return 1\n\n\ndef helper(x):\n    y = x * 2\n    return y + 1\n")
	createTestFile(t, root, "v1/b.py", "def other():\n    return 2\n")
	createTestFile(t, root, "v1/broken.py", "def broken(:\n")
	createTestFile(t, root, "v2/a.py", "def keep():\n    return 1\n")
	createTestFile(t, root, "v2/b.py", "def other():\n    return 2\n\n\ndef helper(x):\n    y = x * 2\n    return y + 1\n")
	createTestFile(t, root, "v2/settings.py", "DEBUG = False\n")

	req := newDetectRequest(filepath.Join(root, "v1"), filepath.Join(root, "v2"))
	req.Parallelism = 2

	resp, err := NewRefactoringService(NewFileReader(), nil, nil).DetectRefactorings(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, resp.Refactorings, 1)
	move := resp.Refactorings[0]
	assert.Equal(t, domain.RefactoringMoveMethod, move.Type)
	assert.Equal(t, "a.py::helper", move.Before)
	assert.Equal(t, "b.py::helper", move.After)

	assert.Equal(t, 3, resp.Statistics.FilesBefore)
	assert.Equal(t, 3, resp.Statistics.FilesAfter)
	assert.Equal(t, 1, resp.Statistics.ModulesAdded)
	assert.Equal(t, 1, resp.Statistics.ModulesRemoved)

	require.Len(t, resp.Warnings, 1)
	assert.Contains(t, resp.Warnings[0], "broken.py")
}

func TestRefactoringService_TypeFilter(t *testing.T) {
	root := t.TempDir()
	before := createTestFile(t, root, "v1/cart.py", cartBefore)
	after := createTestFile(t, root, "v2/cart.py", cartAfter)

	req := newDetectRequest(before, after)
	req.RefactoringTypes = []domain.RefactoringType{domain.RefactoringRenameVariable}

	resp, err := NewRefactoringService(nil, nil, nil).DetectRefactorings(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, resp.Refactorings)
	assert.Zero(t, resp.Statistics.TotalRefactorings)
}

func TestRefactoringService_TimedOutPairs(t *testing.T) {
	var before, after strings.Builder
	before.WriteString("def run(data):\n")
	after.WriteString("def run(data):\n")
	for i := 0; i < 40; i++ {
		before.WriteString("    value" + strings.Repeat("x", i%5) + " = compute(data)\n")
		after.WriteString("    result" + strings.Repeat("y", i%5) + " = process(data)\n")
	}

	root := t.TempDir()
	req := newDetectRequest(
		createTestFile(t, root, "v1/big.py", before.String()),
		createTestFile(t, root, "v2/big.py", after.String()),
	)
	req.PairTimeout = time.Nanosecond

	resp, err := NewRefactoringService(nil, nil, nil).DetectRefactorings(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, resp.TimedOutPairs, 1)
	assert.Equal(t, "run", resp.TimedOutPairs[0].Before.Name)
	assert.Equal(t, 1, resp.Statistics.TimedOutPairs)
	require.NotEmpty(t, resp.Warnings)
	assert.Contains(t, resp.Warnings[0], "timed out")
}

func TestRefactoringService_InputErrors(t *testing.T) {
	root := t.TempDir()
	file := createTestFile(t, root, "a.py", "x = 1\n")
	text := createTestFile(t, root, "notes.txt", "x")
	emptyBefore := filepath.Join(root, "empty1")
	emptyAfter := filepath.Join(root, "empty2")
	createTestFile(t, emptyBefore, "README.md", "")
	createTestFile(t, emptyAfter, "README.md", "")

	tests := []struct {
		name   string
		before string
		after  string
		code   string
	}{
		{"missing before", filepath.Join(root, "nope.py"), file, domain.ErrCodeFileNotFound},
		{"file and directory", file, root, domain.ErrCodeInvalidInput},
		{"not python", text, file, domain.ErrCodeInvalidInput},
		{"no python files", emptyBefore, emptyAfter, domain.ErrCodeInvalidInput},
		{"missing paths", "", file, domain.ErrCodeInvalidInput},
	}

	svc := NewRefactoringService(nil, nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.DetectRefactorings(context.Background(), newDetectRequest(tt.before, tt.after))
			require.Error(t, err)

			var de domain.DomainError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.code, de.Code)
		})
	}
}

func TestRefactoringService_CompareOperations(t *testing.T) {
	before := `def total(items):
    result = 0
    for item in items:
        result = result + item.price
    return result
`
	after := `def total(items):
    acc = 0
    for item in items:
        acc = acc + item.price
    return acc
`

	cmp, err := NewRefactoringService(nil, nil, nil).CompareOperations(context.Background(), before, after)
	require.NoError(t, err)

	assert.Equal(t, "total", cmp.Before.Name)
	assert.Equal(t, "total", cmp.After.Name)
	assert.NotEmpty(t, cmp.Mappings)
	assert.Empty(t, cmp.UnmappedBefore)
	assert.Empty(t, cmp.UnmappedAfter)

	var found bool
	for _, ref := range cmp.Refactorings {
		if ref.Type == domain.RefactoringRenameVariable && ref.Before == "result" && ref.After == "acc" {
			found = true
		}
	}
	assert.True(t, found, "refactorings: %v", cmp.Refactorings)
}

func TestRefactoringService_CompareOperationsRename(t *testing.T) {
	cmp, err := NewRefactoringService(nil, nil, nil).CompareOperations(context.Background(),
		"def area(w, h):\n    return w * h\n",
		"def surface(w, h):\n    return w * h\n")
	require.NoError(t, err)

	require.NotEmpty(t, cmp.Refactorings)
	assert.Equal(t, domain.RefactoringRenameMethod, cmp.Refactorings[0].Type)
	assert.Equal(t, 1, cmp.ExactMatches)
}

func TestRefactoringService_CompareOperationsErrors(t *testing.T) {
	svc := NewRefactoringService(nil, nil, nil)

	_, err := svc.CompareOperations(context.Background(), "x = 1\n", "def f():\n    pass\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no function definition")

	_, err = svc.CompareOperations(context.Background(), "def f(:\n", "def f():\n    pass\n")
	require.Error(t, err)
	var de domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.ErrCodeParseError, de.Code)
}

package analyzer

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/pyrefminer/domain"
	"github.com/ludo-technologies/pyrefminer/internal/fragment"
)

func refactoringTypes(refs []*Refactoring) []RefactoringType {
	var types []RefactoringType
	for _, ref := range refs {
		types = append(types, ref.Type)
	}
	return types
}

func findRefactoring(refs []*Refactoring, kind RefactoringType) *Refactoring {
	for _, ref := range refs {
		if ref.Type == kind {
			return ref
		}
	}
	return nil
}

func TestModelDiff_RenameMethod(t *testing.T) {
	before := []*fragment.Module{parseModule(t, "cart.py", cartBefore)}
	after := []*fragment.Module{parseModule(t, "cart.py", cartAfter)}

	result, err := NewModelDiff(DiffOptions{}).Diff(context.Background(), before, after)
	require.NoError(t, err)

	assert.Equal(t, []RefactoringType{RenameMethod}, refactoringTypes(result.Refactorings))
	assert.Equal(t, "Rename Method Cart.total() to Cart.compute_total() in cart.py",
		result.Refactorings[0].String())
	assert.Len(t, result.Mappers, 3)
	assert.Equal(t, 3, result.OperationsCompared)
	assert.Empty(t, result.TimedOutPairs)
}

func TestModelDiff_MoveOperation(t *testing.T) {
	before := []*fragment.Module{
		parseModule(t, "a.py", "def keep():\n    return 1\n\n\ndef helper(x):\n    y = x * 2\n    return y + 1\n"),
		parseModule(t, "b.py", "def other():\n    return 2\n"),
	}
	after := []*fragment.Module{
		parseModule(t, "a.py", "def keep():\n    return 1\n"),
		parseModule(t, "b.py", "def other():\n    return 2\n\n\ndef helper(x):\n    y = x * 2\n    return y + 1\n"),
	}

	result, err := NewModelDiff(DiffOptions{Parallelism: 2}).Diff(context.Background(), before, after)
	require.NoError(t, err)

	require.Equal(t, []RefactoringType{MoveOperation}, refactoringTypes(result.Refactorings))
	move := result.Refactorings[0]
	assert.Equal(t, "a.py::helper", move.Before)
	assert.Equal(t, "b.py::helper", move.After)
	assert.Equal(t, "Move Method helper(x) in a.py to helper(x) in b.py", move.String())
	assert.Equal(t, 3, result.OperationsCompared)
}

func TestModelDiff_ExtractAndInline(t *testing.T) {
	inline := []*fragment.Module{parseModule(t, "report.py", reportInline)}
	extracted := []*fragment.Module{parseModule(t, "report.py", reportExtracted)}

	t.Run("extract", func(t *testing.T) {
		result, err := NewModelDiff(DiffOptions{}).Diff(context.Background(), inline, extracted)
		require.NoError(t, err)

		ref := findRefactoring(result.Refactorings, ExtractOperation)
		require.NotNil(t, ref, "refactorings: %v", result.Refactorings)
		assert.Equal(t, "report", ref.Operation1.Name)
		assert.Equal(t, "compute_total", ref.Operation2.Name)
		assert.NotEmpty(t, ref.Mappings)
	})

	t.Run("inline", func(t *testing.T) {
		result, err := NewModelDiff(DiffOptions{}).Diff(context.Background(), extracted, inline)
		require.NoError(t, err)

		ref := findRefactoring(result.Refactorings, InlineOperation)
		require.NotNil(t, ref, "refactorings: %v", result.Refactorings)
		assert.Equal(t, "compute_total", ref.Operation1.Name)
		assert.Equal(t, "report", ref.Operation2.Name)
	})
}

func TestModelDiff_Deterministic(t *testing.T) {
	render := func() []string {
		before := []*fragment.Module{
			parseModule(t, "report.py", reportInline),
			parseModule(t, "cart.py", cartBefore),
		}
		after := []*fragment.Module{
			parseModule(t, "report.py", reportExtracted),
			parseModule(t, "cart.py", cartAfter),
		}
		result, err := NewModelDiff(DiffOptions{Parallelism: 4}).Diff(context.Background(), before, after)
		require.NoError(t, err)
		var out []string
		for _, ref := range result.Refactorings {
			out = append(out, ref.String())
		}
		return out
	}

	first := render()
	assert.NotEmpty(t, first)
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, render())
	}
}

func largeFunction(name, variable, callee string, offset int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "def %s(data):\n", name)
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&sb, "    %s%d = %s(data, %d)\n", variable, i, callee, i+offset)
	}
	return sb.String()
}

func TestModelDiff_RecordsTimedOutPairs(t *testing.T) {
	before := []*fragment.Module{parseModule(t, "big.py", largeFunction("run", "value", "compute", 0))}
	after := []*fragment.Module{parseModule(t, "big.py", largeFunction("run", "result", "process", 1))}

	result, err := NewModelDiff(DiffOptions{PairTimeout: time.Nanosecond}).Diff(context.Background(), before, after)
	require.NoError(t, err)

	require.Len(t, result.TimedOutPairs, 1)
	assert.Equal(t, "run", result.TimedOutPairs[0].Before.Name)
	assert.Equal(t, "run", result.TimedOutPairs[0].After.Name)
	assert.Empty(t, result.Mappers)
	assert.Empty(t, result.Refactorings)
}

func TestModelDiff_Cancelled(t *testing.T) {
	before := []*fragment.Module{parseModule(t, "cart.py", cartBefore)}
	after := []*fragment.Module{parseModule(t, "cart.py", cartAfter)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := NewModelDiff(DiffOptions{}).Diff(ctx, before, after)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, domain.IsTimeout(err))
}

func TestCommonOperations(t *testing.T) {
	ops1 := []*fragment.Operation{
		fragment.NewOperation("a", []string{"x"}, nil),
		fragment.NewOperation("b", nil, nil),
		fragment.NewOperation("c", []string{"x"}, nil),
	}
	ops2 := []*fragment.Operation{
		fragment.NewOperation("c", []string{"y"}, nil),
		fragment.NewOperation("a", []string{"x"}, nil),
		fragment.NewOperation("d", nil, nil),
	}

	pairs, removed, added := commonOperations(ops1, ops2)

	require.Len(t, pairs, 1)
	assert.Same(t, ops1[0], pairs[0].Before)
	assert.Same(t, ops2[1], pairs[0].After)
	assert.Equal(t, []*fragment.Operation{ops1[1], ops1[2]}, removed)
	assert.Equal(t, []*fragment.Operation{ops2[0], ops2[2]}, added)
}

func TestCollectScopes(t *testing.T) {
	module := parseModule(t, "cart.py", cartBefore+"\n\ndef helper():\n    return 1\n")

	idx := collectScopes([]*fragment.Module{module})

	require.Len(t, idx.list, 2)
	assert.Equal(t, "cart.py::", idx.list[0].key)
	assert.Len(t, idx.list[0].ops1, 1)
	assert.Equal(t, "cart.py::Cart", idx.list[1].key)
	assert.Len(t, idx.list[1].ops1, 3)
	assert.Equal(t, []string{"items"}, idx.list[1].attrs1)
}

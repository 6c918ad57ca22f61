package analyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/pyrefminer/internal/fragment"
	"github.com/ludo-technologies/pyrefminer/internal/replacement"
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

func cartDiff(t *testing.T) *ClassDiff {
	t.Helper()
	class1 := parseModule(t, "cart.py", cartBefore).Classes[0]
	class2 := parseModule(t, "cart.py", cartAfter).Classes[0]
	return &ClassDiff{
		Operations1: class1.Operations,
		Operations2: class2.Operations,
		Removed:     []*fragment.Operation{class1.Operations[1]},
		Added:       []*fragment.Operation{class2.Operations[1]},
	}
}

func TestClassDiff_MatchOperations(t *testing.T) {
	diff := cartDiff(t)

	result, err := diff.MatchOperations(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Mappers, 1)
	require.Len(t, result.Refactorings, 1)
	ref := result.Refactorings[0]
	assert.Equal(t, RenameMethod, ref.Type)
	assert.Equal(t, "Cart.total", ref.Before)
	assert.Equal(t, "Cart.compute_total", ref.After)
	assert.Empty(t, result.Removed)
	assert.Empty(t, result.Added)
	assert.True(t, exactMappings(result.Mappers[0]))
}

func TestClassDiff_RejectsContradictedConsensus(t *testing.T) {
	diff := cartDiff(t)
	diff.ConsistentRenames = map[string]string{"total": "sum"}

	result, err := diff.MatchOperations(context.Background())
	require.NoError(t, err)

	assert.Empty(t, result.Refactorings)
	assert.Len(t, result.Removed, 1)
	assert.Len(t, result.Added, 1)
}

func TestClassDiff_UsesPairMapper(t *testing.T) {
	diff := cartDiff(t)
	calls := 0
	diff.MapPair = func(ctx context.Context, op1, op2 *fragment.Operation, opts MapperOptions) (*BodyMapper, error) {
		calls++
		return nil, nil
	}

	result, err := diff.MatchOperations(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Empty(t, result.Mappers)
	assert.Len(t, result.Removed, 1)
}

func TestClassDiff_MapperOptionsFor(t *testing.T) {
	diff := &ClassDiff{
		AddedAttributes:          []string{"entries"},
		MaxOperationNameDistance: 0.3,
	}
	op1 := fragment.NewOperation("send", []string{"to", "body"}, nil)
	op2 := fragment.NewOperation("send", []string{"to", "message", "retries"}, nil)

	opts := diff.MapperOptionsFor(op1, op2)

	assert.Equal(t, []string{"message", "retries"}, opts.Env.AddedParameters)
	assert.Equal(t, []string{"body"}, opts.Env.RemovedParameters)
	assert.Equal(t, []string{"entries"}, opts.Env.AddedAttributes)
	assert.Equal(t, 0.3, opts.Env.MaxOperationNameDistance)
	assert.False(t, opts.Nested)
}

func TestNeighbors(t *testing.T) {
	a := &fragment.Operation{Name: "a", Position: 0}
	b := &fragment.Operation{Name: "b", Position: 1}
	c := &fragment.Operation{Name: "c", Position: 2}
	ops := []*fragment.Operation{c, a, b}

	prev, next := neighbors(ops, b)
	assert.Same(t, a, prev)
	assert.Same(t, c, next)

	prev, next = neighbors(ops, a)
	assert.Nil(t, prev)
	assert.Same(t, b, next)
}

func TestCompatibleSignature(t *testing.T) {
	typed := func(name string, params ...[2]string) *fragment.Operation {
		op := &fragment.Operation{Name: name}
		for _, p := range params {
			op.Parameters = append(op.Parameters, &fragment.Parameter{Name: p[0], Type: p[1]})
		}
		return op
	}

	tests := []struct {
		name string
		op1  *fragment.Operation
		op2  *fragment.Operation
		want bool
	}{
		{
			name: "equal parameters",
			op1:  typed("f", [2]string{"a", "int"}),
			op2:  typed("g", [2]string{"a", "int"}),
			want: true,
		},
		{
			name: "renamed parameter with same type",
			op1:  typed("f", [2]string{"a", "int"}),
			op2:  typed("g", [2]string{"b", "int"}),
			want: true,
		},
		{
			name: "different arity",
			op1:  typed("f", [2]string{"a", "int"}),
			op2:  typed("g", [2]string{"a", "int"}, [2]string{"b", "str"}),
			want: false,
		},
		{
			name: "renamed untyped parameter",
			op1:  typed("f", [2]string{"a", ""}),
			op2:  typed("g", [2]string{"b", ""}),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, compatibleSignature(tt.op1, tt.op2))
		})
	}
}

func TestGettersWithDifferentReturnType(t *testing.T) {
	getter := func(name, ret string) *fragment.Operation {
		return &fragment.Operation{Name: name, ReturnType: ret}
	}

	assert.True(t, gettersWithDifferentReturnType(getter("get_name", "str"), getter("get_id", "int")))
	assert.False(t, gettersWithDifferentReturnType(getter("get_name", "str"), getter("get_id", "str")))
	assert.False(t, gettersWithDifferentReturnType(getter("name", "str"), getter("get_id", "int")))
}

func TestSortMappers(t *testing.T) {
	set := func() *replacement.Set {
		return replacement.NewSet(replacement.New("a", "b", replacement.VariableName))
	}
	op := func(name string) *fragment.Operation {
		return fragment.NewOperation(name, nil, nil)
	}

	fewer := mapperWith(op("total"), op("totals"), set())
	far := mapperWith(op("total"), op("compute"), set(), set())
	near := mapperWith(op("total"), op("totals"), set(), set())

	mappers := []*BodyMapper{fewer, far, near}
	sortMappers(mappers)

	assert.Equal(t, []*BodyMapper{near, far, fewer}, mappers)
}

func TestMissingFrom(t *testing.T) {
	assert.Equal(t, []string{"b", "d"}, missingFrom([]string{"a", "b", "c", "d"}, []string{"c", "a"}))
	assert.Nil(t, missingFrom([]string{"a"}, []string{"a"}))
}

package analyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/pyrefminer/internal/fragment"
	"github.com/ludo-technologies/pyrefminer/internal/parser"
)

func parseModule(t *testing.T, path, source string) *fragment.Module {
	t.Helper()
	module, err := parser.ParseModule(context.Background(), []byte(source), path)
	require.NoError(t, err)
	return module
}

func functionNamed(t *testing.T, module *fragment.Module, name string) *fragment.Operation {
	t.Helper()
	for _, op := range module.AllOperations() {
		if op.Name == name {
			return op
		}
	}
	require.Failf(t, "function not found", "%s in %s", name, module.Path)
	return nil
}

func TestKeywordArgument(t *testing.T) {
	tests := []struct {
		arg   string
		name  string
		value string
		ok    bool
	}{
		{arg: "key=value", name: "key", value: "value", ok: true},
		{arg: "key = value", name: "key", value: "value", ok: true},
		{arg: "a==b"},
		{arg: "a<=b"},
		{arg: "a!=b"},
		{arg: "=b"},
		{arg: "a="},
		{arg: "items[0]"},
		{arg: "f(x)=y"},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			name, value, ok := keywordArgument(tt.arg)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.value, value)
		})
	}
}

func TestArgumentsOf(t *testing.T) {
	callee := &fragment.Operation{
		Name:      "send",
		ClassName: "Mailer",
		Parameters: []*fragment.Parameter{
			{Name: "self"},
			{Name: "to"},
			{Name: "body"},
			{Name: "retries", Default: "3"},
		},
	}

	tests := []struct {
		name string
		args []string
		want map[string]string
	}{
		{
			name: "positional",
			args: []string{"user.email", "text"},
			want: map[string]string{"to": "user.email", "body": "text"},
		},
		{
			name: "keyword",
			args: []string{"user.email", "retries=5", "body=text"},
			want: map[string]string{"to": "user.email", "body": "text", "retries": "5"},
		},
		{
			name: "same names are dropped",
			args: []string{"to", "body"},
			want: map[string]string{},
		},
		{
			name: "extra arguments are ignored",
			args: []string{"a", "b", "c", "d"},
			want: map[string]string{"to": "a", "body": "b", "retries": "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &fragment.Invocation{Name: "send", Arguments: tt.args}
			assert.Equal(t, tt.want, argumentsOf(callee, inv))
		})
	}
}

const changedMethodsSource = `def process(order):
    validate(order)
    save(order)
    notify(order)


def handle(order):
    validate(order)
    persist(order)


def persist(order):
    save(order)
    notify(order)
`

func TestIsPartOfMethodExtracted(t *testing.T) {
	module := parseModule(t, "orders.py", changedMethodsSource)
	process := functionNamed(t, module, "process")
	handle := functionNamed(t, module, "handle")
	persist := functionNamed(t, module, "persist")

	assert.True(t, IsPartOfMethodExtracted(process, handle, []*fragment.Operation{handle, persist}))
	assert.False(t, IsPartOfMethodExtracted(process, handle, []*fragment.Operation{handle}))
	assert.True(t, IsPartOfMethodInlined(handle, process, []*fragment.Operation{handle, persist}))
}

func TestIsPartOfMethodExtracted_NoCalls(t *testing.T) {
	module := parseModule(t, "orders.py", `def empty():
    return 1


def handle(order):
    validate(order)
`)
	empty := functionNamed(t, module, "empty")
	handle := functionNamed(t, module, "handle")

	assert.False(t, IsPartOfMethodExtracted(empty, handle, nil))
}

const reportInline = `def report(orders):
    total = 0
    for order in orders:
        total = total + order.amount
    print("Total", total)
    return total
`

const reportExtracted = `def report(orders):
    total = compute_total(orders)
    print("Total", total)
    return total


def compute_total(orders):
    total = 0
    for order in orders:
        total = total + order.amount
    return total
`

func TestExtractDetector_DetectExtracted(t *testing.T) {
	before := parseModule(t, "report.py", reportInline)
	after := parseModule(t, "report.py", reportExtracted)
	report1 := functionNamed(t, before, "report")
	report2 := functionNamed(t, after, "report")
	computeTotal := functionNamed(t, after, "compute_total")

	opts := MapperOptions{AddedOperations: []*fragment.Operation{computeTotal}}
	parent, err := NewBodyMapper(context.Background(), report1, report2, opts)
	require.NoError(t, err)

	detector := NewExtractDetector(opts)
	ref, child, err := detector.DetectExtracted(context.Background(), parent, computeTotal)
	require.NoError(t, err)
	require.NotNil(t, ref)
	require.NotNil(t, child)

	assert.Equal(t, ExtractOperation, ref.Type)
	assert.Same(t, report1, ref.Operation1)
	assert.Same(t, computeTotal, ref.Operation2)
	assert.True(t, child.IsNested())
	require.NotNil(t, child.CallSite)
	assert.Equal(t, "compute_total", child.CallSite.Name)
	assert.Positive(t, child.ExactMatches())
	assert.Equal(t, "Extract Method compute_total(orders) in report.py extracted from report(orders) in report.py", ref.String())

	_, _, err = detector.DetectInlined(context.Background(), parent, computeTotal)
	require.NoError(t, err)
}

func TestExtractDetector_DetectInlined(t *testing.T) {
	before := parseModule(t, "report.py", reportExtracted)
	after := parseModule(t, "report.py", reportInline)
	report1 := functionNamed(t, before, "report")
	report2 := functionNamed(t, after, "report")
	computeTotal := functionNamed(t, before, "compute_total")

	opts := MapperOptions{RemovedOperations: []*fragment.Operation{computeTotal}}
	parent, err := NewBodyMapper(context.Background(), report1, report2, opts)
	require.NoError(t, err)

	ref, child, err := NewExtractDetector(opts).DetectInlined(context.Background(), parent, computeTotal)
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, InlineOperation, ref.Type)
	assert.Same(t, computeTotal, ref.Operation1)
	assert.Same(t, report2, ref.Operation2)
	assert.Positive(t, child.MappingsWithoutBlocks())
}

func TestExtractDetector_NotCalled(t *testing.T) {
	before := parseModule(t, "report.py", reportInline)
	after := parseModule(t, "report.py", reportInline+`

def unrelated(values):
    return sorted(values)
`)
	parent, err := NewBodyMapper(context.Background(),
		functionNamed(t, before, "report"), functionNamed(t, after, "report"), MapperOptions{})
	require.NoError(t, err)

	ref, child, err := NewExtractDetector(MapperOptions{}).DetectExtracted(context.Background(), parent, functionNamed(t, after, "unrelated"))
	require.NoError(t, err)
	assert.Nil(t, ref)
	assert.Nil(t, child)
}

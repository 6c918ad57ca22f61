package replacement

import (
	"strings"
	"unicode"

	"github.com/ludo-technologies/pyrefminer/internal/fragment"
	"github.com/ludo-technologies/pyrefminer/internal/similarity"
)

// detector recognizes one idiomatic transformation between fragments that are
// not equal after substitution. It returns nil when it does not apply.
type detector func(st *inference) []*Replacement

// detectors run in order; the first one to fire decides the match
var detectors = []detector{
	detectInvocationRenamed,
	detectInvocationArgumentsChanged,
	detectInvocationExpressionChanged,
	detectExpressionArgumentSwapped,
	detectArgumentWrapped,
	detectArgumentConcatenated,
	detectBuilderCollapsed,
	detectListLiteralCollection,
	detectCreationArgumentsChanged,
	detectSetterForAssignment,
	detectConditionalExpression,
}

// coveringInvocations returns the invocations spanning both main expressions
func (st *inference) coveringInvocations() (*fragment.Invocation, *fragment.Invocation) {
	inv1, inv2 := st.f1.CoveringInvocation(), st.f2.CoveringInvocation()
	if inv1 == nil || inv2 == nil {
		return nil, nil
	}
	return inv1, inv2
}

// arguments1 returns the before arguments with committed replacements
// applied; arguments2 returns the argumentized after arguments.
func (st *inference) arguments1(inv *fragment.Invocation) []string {
	out := make([]string, len(inv.Arguments))
	for i, arg := range inv.Arguments {
		out[i] = st.replay(Argumentize(arg, st.engine.env.Argumentize1))
	}
	return out
}

func (st *inference) arguments2(inv *fragment.Invocation) []string {
	out := make([]string, len(inv.Arguments))
	for i, arg := range inv.Arguments {
		out[i] = Argumentize(arg, st.engine.env.Argumentize2)
	}
	return out
}

func equalLists(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func detectInvocationRenamed(st *inference) []*Replacement {
	inv1, inv2 := st.coveringInvocations()
	if inv1 == nil || inv1.Name == inv2.Name || !inv1.IdenticalExpression(inv2) {
		return nil
	}
	if !equalLists(st.arguments1(inv1), st.arguments2(inv2)) {
		return nil
	}
	if similarity.NameDistance(inv1.Name, inv2.Name) > st.engine.env.MaxOperationNameDistance {
		return nil
	}
	return []*Replacement{NewInvocation(inv1, inv2, MethodInvocationName)}
}

func detectInvocationArgumentsChanged(st *inference) []*Replacement {
	inv1, inv2 := st.coveringInvocations()
	if inv1 == nil || !inv1.IdenticalName(inv2) || !inv1.IdenticalExpression(inv2) {
		return nil
	}
	args1, args2 := st.arguments1(inv1), st.arguments2(inv2)
	if equalLists(args1, args2) {
		return nil
	}
	if len(args1) != len(args2) && len(intersection(args1, args2)) == 0 {
		return nil
	}
	return []*Replacement{NewInvocation(inv1, inv2, MethodInvocationArgument)}
}

func detectInvocationExpressionChanged(st *inference) []*Replacement {
	inv1, inv2 := st.coveringInvocations()
	if inv1 == nil || !inv1.IdenticalName(inv2) || inv1.IdenticalExpression(inv2) {
		return nil
	}
	if !equalLists(st.arguments1(inv1), st.arguments2(inv2)) {
		return nil
	}
	return []*Replacement{NewInvocation(inv1, inv2, MethodInvocationExpression)}
}

func detectExpressionArgumentSwapped(st *inference) []*Replacement {
	inv1, inv2 := st.coveringInvocations()
	if inv1 == nil || !inv1.IdenticalName(inv2) || inv1.Expression == "" || inv2.Expression == "" {
		return nil
	}
	if inv1.Expression == inv2.Expression {
		return nil
	}
	if !inv2.HasArgument(inv1.Expression) || !inv1.HasArgument(inv2.Expression) {
		return nil
	}
	return []*Replacement{NewInvocation(inv1, inv2, MethodInvocationExpressionArgumentSwapped)}
}

// detectArgumentWrapped fires when every differing argument of the same call
// is contained in its counterpart, as in f(x) -> f(str(x))
func detectArgumentWrapped(st *inference) []*Replacement {
	inv1, inv2 := st.coveringInvocations()
	if inv1 == nil || !inv1.IdenticalName(inv2) || !inv1.IdenticalExpression(inv2) {
		return nil
	}
	args1, args2 := st.arguments1(inv1), st.arguments2(inv2)
	if len(args1) != len(args2) {
		return nil
	}
	var found []*Replacement
	for i := range args1 {
		a1, a2 := args1[i], args2[i]
		if a1 == a2 {
			continue
		}
		if !(len(a2) > len(a1) && Occurrences(a2, a1) > 0) && !(len(a1) > len(a2) && Occurrences(a1, a2) > 0) {
			return nil
		}
		found = append(found, New(a1, a2, MethodInvocationArgumentWrapped))
	}
	return found
}

// detectArgumentConcatenated fires when several arguments were joined into
// one concatenation argument, or one concatenation was split into arguments
func detectArgumentConcatenated(st *inference) []*Replacement {
	inv1, inv2 := st.coveringInvocations()
	if inv1 == nil || !inv1.IdenticalName(inv2) || !inv1.IdenticalExpression(inv2) {
		return nil
	}
	args1, args2 := st.arguments1(inv1), st.arguments2(inv2)
	missing := difference(args1, args2)
	extra := difference(args2, args1)
	if concatenates(extra, missing) || concatenates(missing, extra) {
		return []*Replacement{NewInvocation(inv1, inv2, MethodInvocationArgumentConcatenated)}
	}
	return nil
}

func concatenates(joined, parts []string) bool {
	if len(joined) != 1 || len(parts) == 0 || !strings.Contains(joined[0], "+") {
		return false
	}
	var operands []string
	for _, p := range strings.Split(joined[0], "+") {
		operands = append(operands, strings.TrimSpace(p))
	}
	for _, p := range parts {
		if !containsString(operands, p) {
			return false
		}
	}
	return true
}

// detectBuilderCollapsed fires when X.builder().a(1).b(2).build() became
// X(1, 2), or the reverse
func detectBuilderCollapsed(st *inference) []*Replacement {
	if builderToCreation(st.f1.CoveringInvocation(), st.f1.Invocations, st.f2.CoveringCreation()) {
		return []*Replacement{New(st.f1.Expression, st.f2.Expression, BuilderReplacedWithClassInstanceCreation)}
	}
	if builderToCreation(st.f2.CoveringInvocation(), st.f2.Invocations, st.f1.CoveringCreation()) {
		return []*Replacement{New(st.f1.Expression, st.f2.Expression, BuilderReplacedWithClassInstanceCreation)}
	}
	return nil
}

func builderToCreation(build *fragment.Invocation, chain []*fragment.Invocation, creation *fragment.ObjectCreation) bool {
	if build == nil || creation == nil || build.Name != "build" || len(creation.Arguments) == 0 {
		return false
	}
	var chained []string
	for _, inv := range chain {
		chained = append(chained, inv.Arguments...)
	}
	for _, arg := range creation.Arguments {
		if !containsString(chained, arg) {
			return false
		}
	}
	return true
}

// detectListLiteralCollection fires when a list literal became a collection
// constructor with the same elements, or the reverse
func detectListLiteralCollection(st *inference) []*Replacement {
	c1, c2 := st.f1.CoveringCreation(), st.f2.CoveringCreation()
	if c1 == nil || c2 == nil || c1.Array == c2.Array {
		return nil
	}
	array, other := c1, c2
	if c2.Array {
		array, other = c2, c1
	}
	same := equalLists(array.Arguments, other.Arguments) ||
		(len(other.Arguments) == 1 && other.Arguments[0] == array.Text)
	if !same {
		return nil
	}
	return []*Replacement{NewCreation(c1, c2, ArrayCreationReplacedWithDataStructureCreation)}
}

func detectCreationArgumentsChanged(st *inference) []*Replacement {
	c1, c2 := st.f1.CoveringCreation(), st.f2.CoveringCreation()
	if c1 == nil || c2 == nil || c1.Type != c2.Type || c1.Array != c2.Array || c1.IdenticalArguments(c2) {
		return nil
	}
	return []*Replacement{NewCreation(c1, c2, ClassInstanceCreationArgument)}
}

// detectSetterForAssignment fires when obj.attr = v became obj.set_attr(v),
// or the reverse
func detectSetterForAssignment(st *inference) []*Replacement {
	if setterMatches(st.current, st.f2.CoveringInvocation()) {
		return []*Replacement{New(strings.TrimSpace(st.f1.Text), strings.TrimSpace(st.f2.Text), FieldAssignmentReplacedWithSetterMethodInvocation)}
	}
	if setterMatches(st.target, st.f1.CoveringInvocation()) {
		return []*Replacement{New(strings.TrimSpace(st.f1.Text), strings.TrimSpace(st.f2.Text), FieldAssignmentReplacedWithSetterMethodInvocation)}
	}
	return nil
}

func setterMatches(assignment string, setter *fragment.Invocation) bool {
	if setter == nil || len(setter.Arguments) != 1 {
		return false
	}
	lhs, rhs, ok := splitAssignment(assignment)
	if !ok {
		return false
	}
	dot := strings.LastIndexByte(lhs, '.')
	if dot <= 0 {
		return false
	}
	object, attribute := lhs[:dot], strings.TrimPrefix(lhs[dot+1:], "_")
	if setter.Expression != object || setter.Arguments[0] != rhs {
		return false
	}
	return setter.Name == "set_"+attribute || setter.Name == "set"+capitalize(attribute)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// detectConditionalExpression fires when a token was replaced by a
// conditional expression that still contains it
func detectConditionalExpression(st *inference) []*Replacement {
	for _, t2 := range difference(st.f2.Ternaries, st.f1.Ternaries) {
		for _, c1 := range st.tokens(st.all1) {
			if Occurrences(t2, c1) == 0 {
				continue
			}
			if PerformReplacement(st.current, c1, t2) == st.target {
				return []*Replacement{New(c1, t2, ConditionalExpression)}
			}
		}
	}
	for _, t1 := range difference(st.f1.Ternaries, st.f2.Ternaries) {
		for _, c2 := range st.tokens(st.all2) {
			if Occurrences(t1, c2) == 0 {
				continue
			}
			if PerformReplacement(st.current, t1, c2) == st.target {
				return []*Replacement{New(t1, c2, ConditionalExpression)}
			}
		}
	}
	return nil
}

func (st *inference) tokens(e *elements) []string {
	return concat(e.variables, e.invocations, e.strings, e.numbers, e.booleans, e.nulls)
}

func intersection(a, b []string) []string {
	set := make(map[string]bool, len(b))
	for _, s := range b {
		set[s] = true
	}
	var out []string
	for _, s := range a {
		if set[s] {
			out = append(out, s)
		}
	}
	return out
}

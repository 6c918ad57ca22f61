package replacement

import (
	"context"
	"sort"
	"unicode/utf8"

	"github.com/ludo-technologies/pyrefminer/domain"
	"github.com/ludo-technologies/pyrefminer/internal/constants"
	"github.com/ludo-technologies/pyrefminer/internal/fragment"
	"github.com/ludo-technologies/pyrefminer/internal/similarity"
)

// Env carries the operation-level facts inference may consult
type Env struct {
	// Argumentize1 and Argumentize2 map parameter names to the argument
	// expressions passed at a call site, per side. Used by nested mappers.
	Argumentize1 map[string]string
	Argumentize2 map[string]string

	AddedParameters   []string
	RemovedParameters []string
	AddedAttributes   []string
	RemovedAttributes []string

	MaxOperationNameDistance float64
}

// Engine infers replacements between fragment pairs of one mapper.
// It caches argumentized strings and is not safe for concurrent use.
type Engine struct {
	env   Env
	args1 map[*fragment.Fragment]string
	args2 map[*fragment.Fragment]string
}

// NewEngine creates an engine for the given environment
func NewEngine(env Env) *Engine {
	if env.MaxOperationNameDistance <= 0 {
		env.MaxOperationNameDistance = constants.MaxOperationNameDistance
	}
	return &Engine{
		env:   env,
		args1: make(map[*fragment.Fragment]string),
		args2: make(map[*fragment.Fragment]string),
	}
}

// Env returns the environment of the engine
func (e *Engine) Env() Env {
	return e.env
}

// Argumentized1 returns the canonical string of a before fragment
func (e *Engine) Argumentized1(f *fragment.Fragment) string {
	if s, ok := e.args1[f]; ok {
		return s
	}
	s := Argumentize(f.ArgumentizedString(), e.env.Argumentize1)
	e.args1[f] = s
	return s
}

// Argumentized2 returns the canonical string of an after fragment
func (e *Engine) Argumentized2(f *fragment.Fragment) string {
	if s, ok := e.args2[f]; ok {
		return s
	}
	s := Argumentize(f.ArgumentizedString(), e.env.Argumentize2)
	e.args2[f] = s
	return s
}

// Argumentize substitutes parameter names with call-site arguments.
// Parameters are applied in name order.
func Argumentize(s string, parameterToArgument map[string]string) string {
	if len(parameterToArgument) == 0 {
		return s
	}
	params := make([]string, 0, len(parameterToArgument))
	for p := range parameterToArgument {
		params = append(params, p)
	}
	sort.Strings(params)
	for _, p := range params {
		if arg := parameterToArgument[p]; arg != p {
			s = PerformReplacement(s, p, arg)
		}
	}
	return s
}

// Infer computes the replacements that turn f1 into f2. It returns NoMatch
// when the fragments do not correspond, and an error only on cancellation.
func (e *Engine) Infer(ctx context.Context, f1, f2 *fragment.Fragment) (Result, error) {
	if err := domain.CheckTimeout(ctx); err != nil {
		return NoMatch(), err
	}
	s1, s2 := e.Argumentized1(f1), e.Argumentized2(f2)
	if f1.Text == f2.Text || s1 == s2 {
		return Match(NewSet()), nil
	}

	distance, err := similarity.EditDistance(ctx, s1, s2)
	if err != nil {
		return NoMatch(), err
	}
	st := newInference(ctx, e, f1, f2, s1, s2, distance)

	for _, stage := range stages {
		if err := stage(st); err != nil {
			return NoMatch(), err
		}
		if st.current == st.target {
			return Match(st.set), nil
		}
	}

	if st.equalEnough() {
		return Match(st.set), nil
	}

	for _, detect := range detectors {
		if err := domain.CheckTimeout(ctx); err != nil {
			return NoMatch(), err
		}
		if found := detect(st); len(found) > 0 {
			for _, r := range found {
				st.set.Add(r)
			}
			return Match(st.set), nil
		}
	}
	return NoMatch(), nil
}

// inference holds the state of one Infer call
type inference struct {
	ctx    context.Context
	engine *Engine
	f1, f2 *fragment.Fragment

	current  string
	target   string
	distance int
	set      *Set

	all1, all2   *elements
	diff1, diff2 *elements

	consumed1 map[string]bool
	consumed2 map[string]bool
}

func newInference(ctx context.Context, e *Engine, f1, f2 *fragment.Fragment, s1, s2 string, distance int) *inference {
	st := &inference{
		ctx:       ctx,
		engine:    e,
		f1:        f1,
		f2:        f2,
		current:   s1,
		target:    s2,
		distance:  distance,
		set:       NewSet(),
		all1:      collectElements(f1),
		all2:      collectElements(f2),
		consumed1: make(map[string]bool),
		consumed2: make(map[string]bool),
	}
	st.diff1 = st.all1.minus(st.all2)
	st.diff2 = st.all2.minus(st.all1)
	st.diff1.variables = st.excludeVariables(st.diff1.variables, st.all1, st.all2)
	st.diff2.variables = st.excludeVariables(st.diff2.variables, st.all2, st.all1)
	return st
}

// excludeVariables drops variables that should not be substituted: names
// present on the other side in self-qualified (or unqualified) form, and call
// arguments that were dropped from (or added to) an otherwise equal call.
func (st *inference) excludeVariables(vars []string, own, other *elements) []string {
	var kept []string
	for _, v := range vars {
		if other.hasVariable("self." + v) {
			continue
		}
		if len(v) > 5 && v[:5] == "self." && other.hasVariable(v[5:]) {
			continue
		}
		if removedCallArgument(v, own, other) {
			continue
		}
		kept = append(kept, v)
	}
	return kept
}

func removedCallArgument(v string, own, other *elements) bool {
	for _, inv := range own.invocationList {
		if !inv.HasArgument(v) {
			continue
		}
		for _, cand := range other.invocationList {
			if cand.Name != inv.Name || cand.Expression != inv.Expression {
				continue
			}
			if len(cand.Arguments) != len(inv.Arguments)-1 {
				continue
			}
			if len(inv.CommonArguments(cand)) == len(cand.Arguments) {
				return true
			}
		}
	}
	return false
}

// classifier decides the kind of a before/after substitution, or rejects it
type classifier func(before, after string) (Kind, bool)

type candidate struct {
	before, after string
	kind          Kind
	temp          string
	distance      int
	normalized    float64
	occurrences   int
	multiple      bool
}

// better ranks by normalized distance, then prefers a substitution that
// fixes several occurrences at once
func (c *candidate) better(other *candidate) bool {
	if c.normalized != other.normalized {
		return c.normalized < other.normalized
	}
	if c.multiple != other.multiple {
		return c.multiple
	}
	return c.occurrences > other.occurrences
}

// multipleInstanceDrop accepts a substitution of a repeated token that does
// not beat the best distance so far when it differs from it by exactly the
// length delta of the two tokens.
func multipleInstanceDrop(d, minDistance int, before, after string) bool {
	if before == after {
		return false
	}
	delta := utf8.RuneCountInString(before) - utf8.RuneCountInString(after)
	if delta < 0 {
		delta = -delta
	}
	gap := d - minDistance
	if gap < 0 {
		gap = -gap
	}
	return gap == delta
}

// search greedily substitutes pool1 tokens with pool2 tokens. Each round keeps
// the substitution whose result is nearest to the target by normalized
// distance; the raw distance must strictly decrease. wrap renders a token as
// it appears in text (operators are surrounded by spaces).
func (st *inference) search(pool1, pool2 []string, classify classifier, wrap func(string) string) error {
	pool1 = st.available(pool1, st.consumed1, st.current, wrap)
	pool2 = st.available(pool2, st.consumed2, st.target, wrap)
	if len(pool1) == 0 || len(pool2) == 0 {
		return nil
	}
	beforeOuter := len(pool1) <= len(pool2)
	outer, inner := pool1, pool2
	if !beforeOuter {
		outer, inner = pool2, pool1
	}

	for _, o := range outer {
		if st.distance == 0 {
			return nil
		}
		if err := domain.CheckTimeout(st.ctx); err != nil {
			return err
		}
		var best *candidate
		minDistance := st.distance
		for _, in := range inner {
			before, after := o, in
			if !beforeOuter {
				before, after = in, o
			}
			if st.consumed1[before] || st.consumed2[after] {
				continue
			}
			kind, ok := classify(before, after)
			if !ok {
				continue
			}
			tb, ta := wrap(before), wrap(after)
			if !st.surroundingsAgree(tb, ta) {
				continue
			}
			temp := PerformReplacement(st.current, tb, ta)
			if temp == st.current {
				continue
			}
			occurrences := Occurrences(st.current, tb)
			multiple := occurrences > 1 && Occurrences(st.target, ta) > 1
			bound := minDistance
			if multiple {
				bound = st.distance - 1
			}
			d, err := similarity.BoundedEditDistance(st.ctx, temp, st.target, bound)
			if err != nil {
				return err
			}
			if d < 0 || d >= st.distance {
				continue
			}
			improves := d <= minDistance
			if !improves && !multipleInstanceDrop(d, minDistance, before, after) {
				continue
			}
			if improves {
				minDistance = d
			}
			c := &candidate{
				before:      before,
				after:       after,
				kind:        kind,
				temp:        temp,
				distance:    d,
				normalized:  similarity.Normalize(d, temp, st.target),
				occurrences: occurrences,
				multiple:    multiple,
			}
			if best == nil || c.better(best) {
				best = c
			}
			if d == 0 {
				break
			}
		}
		if best != nil {
			st.commit(best)
		}
	}
	return nil
}

func (st *inference) available(pool []string, consumed map[string]bool, text string, wrap func(string) string) []string {
	var out []string
	for _, s := range pool {
		if consumed[s] {
			continue
		}
		if Occurrences(text, wrap(s)) == 0 {
			continue
		}
		out = append(out, s)
	}
	return out
}

// surroundingsAgree only lets constant-like names take part in a
// substitution when the characters around them match on both sides.
func (st *inference) surroundingsAgree(before, after string) bool {
	if !IsConstantName(before) && !IsConstantName(after) {
		return true
	}
	b1, a1, ok1 := surroundings(st.current, before)
	b2, a2, ok2 := surroundings(st.target, after)
	return ok1 && ok2 && b1 == b2 && a1 == a2
}

func (st *inference) commit(c *candidate) {
	st.current = c.temp
	st.distance = c.distance
	st.consumed1[c.before] = true
	st.consumed2[c.after] = true
	st.set.Add(st.newReplacement(c.before, c.after, c.kind))
}

func (st *inference) newReplacement(before, after string, kind Kind) *Replacement {
	inv1, inv2 := st.all1.invocationByText[before], st.all2.invocationByText[after]
	if inv1 != nil && inv2 != nil {
		return NewInvocation(inv1, inv2, kind)
	}
	c1, c2 := st.all1.creationByText[before], st.all2.creationByText[after]
	if c1 != nil && c2 != nil {
		return NewCreation(c1, c2, kind)
	}
	r := New(before, after, kind)
	r.InvokedBefore, r.InvokedAfter = inv1, inv2
	r.CreatedBefore, r.CreatedAfter = c1, c2
	return r
}

// replay applies the committed token replacements to a sub-expression
func (st *inference) replay(s string) string {
	for _, r := range st.set.Items() {
		if r.Kind == InfixOperator {
			continue
		}
		s = PerformReplacement(s, r.Before, r.After)
	}
	return s
}

func identity(s string) string { return s }

func spaced(s string) string { return " " + s + " " }

// stages run in a fixed priority order
var stages = []func(*inference) error{
	(*inference).replaceVariablesAndInvocations,
	(*inference).replaceCreations,
	(*inference).replaceTypes,
	(*inference).replaceOperators,
	(*inference).replaceVariablesWithArrayAccesses,
	(*inference).replaceArrayAccessesWithInvocations,
	(*inference).replaceVariablesWithPrefixExpressions,
	(*inference).replaceLiterals,
	(*inference).replaceLiteralsWithVariables,
	(*inference).replaceNullLiterals,
}

func (st *inference) replaceVariablesAndInvocations() error {
	pool1 := concat(st.diff1.variables, st.diff1.invocations)
	pool2 := concat(st.diff2.variables, st.diff2.invocations)
	return st.search(pool1, pool2, func(b, a string) (Kind, bool) {
		bv, av := st.all1.hasVariable(b), st.all2.hasVariable(a)
		bi, ai := st.all1.invocationByText[b], st.all2.invocationByText[a]
		switch {
		case bv && av:
			return VariableName, true
		case bi != nil && ai != nil:
			return classifyInvocations(bi, ai), true
		case (bv && ai != nil) || (bi != nil && av):
			return VariableReplacedWithMethodInvocation, true
		}
		return 0, false
	}, identity)
}

func (st *inference) replaceCreations() error {
	pool1 := concat(st.diff1.creations, st.diff1.invocations)
	pool2 := concat(st.diff2.creations, st.diff2.invocations)
	return st.search(pool1, pool2, func(b, a string) (Kind, bool) {
		bc, ac := st.all1.creationByText[b], st.all2.creationByText[a]
		bi, ai := st.all1.invocationByText[b], st.all2.invocationByText[a]
		switch {
		case bc != nil && ac != nil:
			return classifyCreations(bc, ac), true
		case (bc != nil && ai != nil) || (bi != nil && ac != nil):
			return ClassInstanceCreationReplacedWithMethodInvocation, true
		}
		return 0, false
	}, identity)
}

func (st *inference) replaceTypes() error {
	return st.search(st.diff1.types, st.diff2.types, func(b, a string) (Kind, bool) {
		return Type, true
	}, identity)
}

func (st *inference) replaceOperators() error {
	return st.search(st.diff1.operators, st.diff2.operators, func(b, a string) (Kind, bool) {
		if IsInversion(b, a) {
			return 0, false
		}
		return InfixOperator, true
	}, spaced)
}

func (st *inference) replaceVariablesWithArrayAccesses() error {
	pool1 := concat(st.diff1.variables, st.diff1.arrayAccesses)
	pool2 := concat(st.diff2.variables, st.diff2.arrayAccesses)
	return st.search(pool1, pool2, func(b, a string) (Kind, bool) {
		if (st.all1.hasVariable(b) && st.all2.hasArrayAccess(a)) ||
			(st.all1.hasArrayAccess(b) && st.all2.hasVariable(a)) {
			return VariableReplacedWithArrayAccess, true
		}
		return 0, false
	}, identity)
}

func (st *inference) replaceArrayAccessesWithInvocations() error {
	pool1 := concat(st.diff1.arrayAccesses, st.diff1.invocations)
	pool2 := concat(st.diff2.arrayAccesses, st.diff2.invocations)
	return st.search(pool1, pool2, func(b, a string) (Kind, bool) {
		if (st.all1.hasArrayAccess(b) && st.all2.invocationByText[a] != nil) ||
			(st.all1.invocationByText[b] != nil && st.all2.hasArrayAccess(a)) {
			return ArrayAccessReplacedWithMethodInvocation, true
		}
		return 0, false
	}, identity)
}

func (st *inference) replaceVariablesWithPrefixExpressions() error {
	pool1 := concat(st.diff1.variables, st.diff1.prefixes)
	pool2 := concat(st.diff2.variables, st.diff2.prefixes)
	return st.search(pool1, pool2, func(b, a string) (Kind, bool) {
		if (st.all1.hasVariable(b) && st.all2.hasPrefix(a)) ||
			(st.all1.hasPrefix(b) && st.all2.hasVariable(a)) {
			return VariableReplacedWithPrefixExpression, true
		}
		return 0, false
	}, identity)
}

func (st *inference) replaceLiterals() error {
	pool1 := concat(st.diff1.strings, st.diff1.numbers, st.diff1.booleans)
	pool2 := concat(st.diff2.strings, st.diff2.numbers, st.diff2.booleans)
	return st.search(pool1, pool2, func(b, a string) (Kind, bool) {
		switch {
		case containsString(st.all1.strings, b) && containsString(st.all2.strings, a):
			return StringLiteral, true
		case containsString(st.all1.numbers, b) && containsString(st.all2.numbers, a):
			return NumberLiteral, true
		case containsString(st.all1.booleans, b) && containsString(st.all2.booleans, a):
			return BooleanLiteral, true
		}
		return 0, false
	}, identity)
}

func (st *inference) replaceLiteralsWithVariables() error {
	pool1 := concat(st.diff1.variables, st.diff1.strings, st.diff1.numbers, st.diff1.booleans)
	pool2 := concat(st.diff2.variables, st.diff2.strings, st.diff2.numbers, st.diff2.booleans)
	return st.search(pool1, pool2, func(b, a string) (Kind, bool) {
		bv, av := st.all1.hasVariable(b), st.all2.hasVariable(a)
		if bv == av {
			return 0, false
		}
		literal, lits := a, st.all2
		if av {
			literal, lits = b, st.all1
		}
		switch {
		case containsString(lits.strings, literal):
			return VariableReplacedWithStringLiteral, true
		case containsString(lits.numbers, literal):
			return VariableReplacedWithNumberLiteral, true
		case containsString(lits.booleans, literal):
			return BooleanReplacedWithVariable, true
		}
		return 0, false
	}, identity)
}

func (st *inference) replaceNullLiterals() error {
	pool1 := concat(st.diff1.variables, st.diff1.invocations, st.diff1.nulls)
	pool2 := concat(st.diff2.variables, st.diff2.invocations, st.diff2.nulls)
	return st.search(pool1, pool2, func(b, a string) (Kind, bool) {
		bn, an := containsString(st.all1.nulls, b), containsString(st.all2.nulls, a)
		if bn == an {
			return 0, false
		}
		return VariableReplacedWithNullLiteral, true
	}, identity)
}

func classifyInvocations(before, after *fragment.Invocation) Kind {
	sameName := before.IdenticalName(after)
	sameExpression := before.IdenticalExpression(after)
	sameArguments := before.IdenticalArguments(after)
	switch {
	case !sameName && sameExpression && sameArguments:
		return MethodInvocationName
	case sameName && sameExpression && !sameArguments:
		return MethodInvocationArgument
	case sameName && !sameExpression && sameArguments:
		return MethodInvocationExpression
	case !sameName && sameExpression && !sameArguments:
		return MethodInvocationNameAndArgument
	}
	return MethodInvocation
}

func classifyCreations(before, after *fragment.ObjectCreation) Kind {
	switch {
	case before.Array != after.Array:
		return ArrayCreationReplacedWithDataStructureCreation
	case before.Type == after.Type:
		return ClassInstanceCreationArgument
	}
	return ClassInstanceCreation
}

package replacement

import (
	"strings"

	"github.com/ludo-technologies/pyrefminer/internal/fragment"
	"github.com/ludo-technologies/pyrefminer/internal/similarity"
)

// equalEnough checks the textual exceptions under which two fragments that
// still differ after substitution are considered equal. Some rules add a
// replacement describing the remaining difference.
func (st *inference) equalEnough() bool {
	for _, rule := range equivalenceRules {
		if rule(st) {
			return true
		}
	}
	return false
}

var equivalenceRules = []func(*inference) bool{
	(*inference).invertedOperator,
	(*inference).castOrNegation,
	(*inference).declarationVersusAssignment,
	(*inference).declarationVersusReturn,
	(*inference).argumentsMatchAddedParameters,
	(*inference).concatenationMajority,
}

// diffTokens strips the common prefix and suffix of two strings, widening the
// differing middles so that they never start or end inside an identifier.
func diffTokens(s1, s2 string) (prefix, m1, m2, suffix string) {
	prefix, m1, m2, suffix = similarity.DiffCore(s1, s2)
	if startsWithIdent(m1) || startsWithIdent(m2) {
		for len(prefix) > 0 && isIdentByte(prefix[len(prefix)-1]) {
			last := prefix[len(prefix)-1:]
			prefix = prefix[:len(prefix)-1]
			m1, m2 = last+m1, last+m2
		}
	}
	if endsWithIdent(m1) || endsWithIdent(m2) {
		for len(suffix) > 0 && isIdentByte(suffix[0]) {
			first := suffix[:1]
			suffix = suffix[1:]
			m1, m2 = m1+first, m2+first
		}
	}
	return prefix, m1, m2, suffix
}

func startsWithIdent(s string) bool { return s != "" && isIdentByte(s[0]) }
func endsWithIdent(s string) bool   { return s != "" && isIdentByte(s[len(s)-1]) }

// invertedOperator accepts fragments whose only difference is an inverted
// comparison or boolean operator, recording an INVERT_CONDITIONAL.
func (st *inference) invertedOperator() bool {
	prefix, m1, m2, suffix := diffTokens(st.current, st.target)
	for len(prefix) > 0 && isOperatorByte(prefix[len(prefix)-1]) {
		last := prefix[len(prefix)-1:]
		prefix = prefix[:len(prefix)-1]
		m1, m2 = last+m1, last+m2
	}
	for len(suffix) > 0 && isOperatorByte(suffix[0]) {
		first := suffix[:1]
		suffix = suffix[1:]
		m1, m2 = m1+first, m2+first
	}

	inverted := IsInversion(m1, m2)
	if !inverted {
		// "is" / "is not" and "in" / "not in" differ by an inserted "not "
		added, other := m2, m1
		if m1 != "" {
			added, other = m1, m2
		}
		if other == "" && added == "not " &&
			(strings.HasSuffix(prefix, " is ") || strings.HasPrefix(suffix, "in ")) {
			inverted = true
		}
	}
	if !inverted {
		return false
	}
	st.set.Add(New(st.f1.Condition(), st.f2.Condition(), InvertConditional))
	return true
}

var castFunctions = map[string]bool{
	"int": true, "float": true, "str": true, "bool": true, "bytes": true,
	"list": true, "tuple": true, "set": true, "dict": true, "frozenset": true,
}

// castOrNegation accepts fragments differing by a conversion call such as
// int(x), or by a "not" prefix
func (st *inference) castOrNegation() bool {
	_, m1, m2, _ := diffTokens(st.current, st.target)
	return isCastOf(m1, m2) || isCastOf(m2, m1) || isNegationOf(m1, m2) || isNegationOf(m2, m1)
}

func isCastOf(inner, wrapped string) bool {
	if inner == "" {
		return false
	}
	open := strings.IndexByte(wrapped, '(')
	if open <= 0 || !strings.HasSuffix(wrapped, ")") {
		return false
	}
	return castFunctions[wrapped[:open]] && wrapped[open+1:len(wrapped)-1] == inner
}

func isNegationOf(plain, negated string) bool {
	if plain == "" {
		return strings.TrimSpace(negated) == "not"
	}
	return negated == "not "+plain || negated == "not ("+plain+")"
}

// declarationVersusAssignment accepts a declaration and a plain assignment
// that assign the same value to the same name
func (st *inference) declarationVersusAssignment() bool {
	if !oneOfKinds(st.f1, st.f2, fragment.KindVariableDeclaration, fragment.KindAssignment) {
		return false
	}
	lhs1, rhs1, ok1 := splitAssignment(st.current)
	lhs2, rhs2, ok2 := splitAssignment(st.target)
	if !ok1 || !ok2 {
		return false
	}
	return rhs1 == rhs2 && declaredName(lhs1) == declaredName(lhs2)
}

// declarationVersusReturn accepts a declaration whose initializer is returned
// by the other fragment
func (st *inference) declarationVersusReturn() bool {
	var decl, ret string
	switch {
	case st.f1.Kind == fragment.KindVariableDeclaration && st.f2.Kind == fragment.KindReturn:
		decl, ret = st.current, st.target
	case st.f1.Kind == fragment.KindReturn && st.f2.Kind == fragment.KindVariableDeclaration:
		decl, ret = st.target, st.current
	default:
		return false
	}
	_, rhs, ok := splitAssignment(decl)
	if !ok {
		return false
	}
	operand := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(ret), "return"))
	return operand != "" && operand == rhs
}

func oneOfKinds(f1, f2 *fragment.Fragment, k1, k2 fragment.Kind) bool {
	return (f1.Kind == k1 && f2.Kind == k2) || (f1.Kind == k2 && f2.Kind == k1)
}

// splitAssignment splits "lhs = rhs" at the first single "=".
func splitAssignment(s string) (lhs, rhs string, ok bool) {
	s = strings.TrimSpace(s)
	for i := 0; i < len(s); i++ {
		if s[i] != '=' {
			continue
		}
		if i+1 < len(s) && s[i+1] == '=' {
			i++
			continue
		}
		if i > 0 && strings.IndexByte("=!<>+-*/%&|^:", s[i-1]) >= 0 {
			continue
		}
		return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:]), true
	}
	return "", "", false
}

// declaredName strips an annotation ("x: int") or a leading type ("int x")
func declaredName(lhs string) string {
	if i := strings.IndexByte(lhs, ':'); i >= 0 {
		lhs = lhs[:i]
	}
	fields := strings.Fields(lhs)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// argumentsMatchAddedParameters accepts a call that only gained arguments
// naming added parameters or attributes. Arguments of removed parameters
// folded into one added parameter form a merge; the reverse forms a split.
func (st *inference) argumentsMatchAddedParameters() bool {
	env := st.engine.env
	for _, inv1 := range st.f1.Invocations {
		text1 := st.replay(inv1.Text)
		if !strings.Contains(st.current, text1) {
			continue
		}
		for _, inv2 := range st.f2.Invocations {
			if inv1.Name != inv2.Name || inv1.Expression != inv2.Expression || inv1.IdenticalArguments(inv2) {
				continue
			}
			if PerformReplacement(st.current, text1, inv2.Text) != st.target {
				continue
			}
			missing := difference(inv1.Arguments, inv2.Arguments)
			extra := difference(inv2.Arguments, inv1.Arguments)
			if len(extra) == 0 {
				continue
			}
			if !allNamed(extra, env.AddedParameters, env.AddedAttributes) {
				continue
			}
			if len(missing) > 0 && !allNamed(missing, env.RemovedParameters, env.RemovedAttributes) {
				continue
			}
			switch {
			case len(missing) >= 2 && len(extra) == 1:
				r := New(strings.Join(missing, ", "), extra[0], MergeVariables)
				r.Merged = missing
				st.set.Add(r)
			case len(missing) == 1 && len(extra) >= 2:
				r := New(missing[0], strings.Join(extra, ", "), SplitVariable)
				r.Split = extra
				st.set.Add(r)
			default:
				st.set.Add(NewInvocation(inv1, inv2, MethodInvocationArgument))
			}
			return true
		}
	}
	return false
}

func allNamed(args []string, params, attributes []string) bool {
	for _, arg := range args {
		name := strings.TrimPrefix(arg, "self.")
		if containsString(params, arg) || containsString(attributes, name) {
			continue
		}
		return false
	}
	return true
}

// concatenationMajority accepts two string concatenations sharing more than
// half of their operands
func (st *inference) concatenationMajority() bool {
	if !strings.Contains(st.current, " + ") || !strings.Contains(st.target, " + ") {
		return false
	}
	if len(st.f1.StringLiterals) == 0 && len(st.f2.StringLiterals) == 0 {
		return false
	}
	tokens1 := splitConcatenation(st.current)
	tokens2 := splitConcatenation(st.target)
	remaining := make(map[string]int, len(tokens2))
	for _, t := range tokens2 {
		remaining[t]++
	}
	common := 0
	for _, t := range tokens1 {
		if remaining[t] > 0 {
			remaining[t]--
			common++
		}
	}
	longest := len(tokens1)
	if len(tokens2) > longest {
		longest = len(tokens2)
	}
	if common*2 <= longest {
		return false
	}
	st.set.Add(New(st.f1.Condition(), st.f2.Condition(), Concatenation))
	return true
}

func splitConcatenation(s string) []string {
	parts := strings.Split(strings.TrimSpace(s), " + ")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

package replacement

import "github.com/ludo-technologies/pyrefminer/internal/fragment"

// elements are the substitutable tokens of one fragment, deduplicated and
// in first-seen order
type elements struct {
	variables     []string
	invocations   []string
	creations     []string
	types         []string
	operators     []string
	arrayAccesses []string
	prefixes      []string
	strings       []string
	numbers       []string
	booleans      []string
	nulls         []string

	invocationList   []*fragment.Invocation
	invocationByText map[string]*fragment.Invocation
	creationByText   map[string]*fragment.ObjectCreation
}

func collectElements(f *fragment.Fragment) *elements {
	e := &elements{
		variables:        dedupe(f.Variables),
		types:            dedupe(f.Types),
		operators:        dedupe(f.InfixOperators),
		arrayAccesses:    dedupe(f.ArrayAccesses),
		prefixes:         dedupe(f.PrefixExpressions),
		strings:          dedupe(f.StringLiterals),
		numbers:          dedupe(f.NumberLiterals),
		booleans:         dedupe(f.BooleanLiterals),
		nulls:            dedupe(f.NullLiterals),
		invocationList:   f.Invocations,
		invocationByText: make(map[string]*fragment.Invocation),
		creationByText:   make(map[string]*fragment.ObjectCreation),
	}
	for _, inv := range f.Invocations {
		if _, ok := e.invocationByText[inv.Text]; ok {
			continue
		}
		e.invocationByText[inv.Text] = inv
		e.invocations = append(e.invocations, inv.Text)
	}
	for _, c := range f.Creations {
		if _, ok := e.creationByText[c.Text]; ok {
			continue
		}
		e.creationByText[c.Text] = c
		e.creations = append(e.creations, c.Text)
	}
	return e
}

// minus returns the tokens of e missing from the same category of other.
// Lookup maps are shared with e.
func (e *elements) minus(other *elements) *elements {
	return &elements{
		variables:        difference(e.variables, other.variables),
		invocations:      difference(e.invocations, other.invocations),
		creations:        difference(e.creations, other.creations),
		types:            difference(e.types, other.types),
		operators:        difference(e.operators, other.operators),
		arrayAccesses:    difference(e.arrayAccesses, other.arrayAccesses),
		prefixes:         difference(e.prefixes, other.prefixes),
		strings:          difference(e.strings, other.strings),
		numbers:          difference(e.numbers, other.numbers),
		booleans:         difference(e.booleans, other.booleans),
		nulls:            difference(e.nulls, other.nulls),
		invocationList:   e.invocationList,
		invocationByText: e.invocationByText,
		creationByText:   e.creationByText,
	}
}

func (e *elements) hasVariable(s string) bool    { return containsString(e.variables, s) }
func (e *elements) hasArrayAccess(s string) bool { return containsString(e.arrayAccesses, s) }
func (e *elements) hasPrefix(s string) bool      { return containsString(e.prefixes, s) }

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, s := range items {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func difference(a, b []string) []string {
	set := make(map[string]bool, len(b))
	for _, s := range b {
		set[s] = true
	}
	var out []string
	for _, s := range a {
		if !set[s] {
			out = append(out, s)
		}
	}
	return out
}

func concat(lists ...[]string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, list := range lists {
		for _, s := range list {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

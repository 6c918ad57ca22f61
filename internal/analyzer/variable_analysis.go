package analyzer

import (
	"github.com/ludo-technologies/pyrefminer/internal/fragment"
	"github.com/ludo-technologies/pyrefminer/internal/replacement"
)

// renameCandidate groups the mappings that replace one variable by another
type renameCandidate struct {
	before, after string
	mappings      []*Mapping
	replacements  []*replacement.Replacement
}

// Refactorings derives variable-level refactorings from the mappings:
// variable and parameter renames, type changes, merges, splits and
// invocation renames.
func (m *BodyMapper) Refactorings() []*Refactoring {
	set := newRefactoringSet()
	renames := m.consistentRenames()
	set.add(m.renameRefactorings(renames)...)
	set.add(m.typeChangeRefactorings(renames)...)
	set.add(m.mergeSplitRefactorings()...)
	set.add(m.invocationRenameRefactorings()...)
	return set.items
}

// consistentRenames collects VARIABLE_NAME replacements whose before name is
// declared only before and whose after name is declared only after. When a
// name is replaced inconsistently the most frequent replacement wins.
func (m *BodyMapper) consistentRenames() []*renameCandidate {
	declared1 := declaredNames(m.Operation1)
	declared2 := declaredNames(m.Operation2)

	var order []string
	groups := make(map[string]*renameCandidate)
	for _, mp := range m.AllMappings() {
		for _, r := range mp.Replacements.OfKind(replacement.VariableName) {
			if !declared1[r.Before] || !declared2[r.After] || declared1[r.After] || declared2[r.Before] {
				continue
			}
			key := r.Before + "\x00" + r.After
			g, ok := groups[key]
			if !ok {
				g = &renameCandidate{before: r.Before, after: r.After}
				groups[key] = g
				order = append(order, key)
			}
			g.mappings = append(g.mappings, mp)
			g.replacements = append(g.replacements, r)
		}
	}

	best := make(map[string]*renameCandidate)
	var beforeOrder []string
	for _, key := range order {
		g := groups[key]
		current, ok := best[g.before]
		if !ok {
			beforeOrder = append(beforeOrder, g.before)
		}
		if !ok || len(g.mappings) > len(current.mappings) {
			best[g.before] = g
		}
	}
	var out []*renameCandidate
	for _, before := range beforeOrder {
		out = append(out, best[before])
	}
	return out
}

func (m *BodyMapper) renameRefactorings(renames []*renameCandidate) []*Refactoring {
	params1 := stringSet(m.Operation1.ParameterNames())
	params2 := stringSet(m.Operation2.ParameterNames())
	var refs []*Refactoring
	for _, g := range renames {
		kind := RenameVariable
		if params1[g.before] && params2[g.after] {
			kind = RenameParameter
		}
		refs = append(refs, &Refactoring{
			Type:         kind,
			Before:       g.before,
			After:        g.after,
			Operation1:   m.Operation1,
			Operation2:   m.Operation2,
			Mappings:     g.mappings,
			Replacements: g.replacements,
		})
	}
	return refs
}

// typeChangeRefactorings compares annotations of mapped declarations,
// parameters and the return annotation
func (m *BodyMapper) typeChangeRefactorings(renames []*renameCandidate) []*Refactoring {
	renamed := make(map[string]string, len(renames))
	for _, g := range renames {
		renamed[g.before] = g.after
	}
	counterpart := func(name string) string {
		if after, ok := renamed[name]; ok {
			return after
		}
		return name
	}

	var refs []*Refactoring
	for _, mp := range m.AllMappings() {
		for _, d1 := range mp.Fragment1.Declarations {
			d2 := mp.Fragment2.DeclarationNamed(counterpart(d1.Name))
			if d2 == nil || d1.Type == "" || d2.Type == "" || d1.Type == d2.Type {
				continue
			}
			refs = append(refs, &Refactoring{
				Type:       ChangeVariableType,
				Before:     d1.Name + ": " + d1.Type,
				After:      d2.Name + ": " + d2.Type,
				Operation1: m.Operation1,
				Operation2: m.Operation2,
				Mappings:   []*Mapping{mp},
			})
		}
	}

	if m.Operation1.Name == "" || m.Operation2.Name == "" || m.IsNested() {
		return refs
	}
	for _, p1 := range m.Operation1.ExplicitParameters() {
		for _, p2 := range m.Operation2.ExplicitParameters() {
			if p2.Name != counterpart(p1.Name) || p1.Type == "" || p2.Type == "" || p1.Type == p2.Type {
				continue
			}
			refs = append(refs, &Refactoring{
				Type:       ChangeParameterType,
				Before:     p1.Name + ": " + p1.Type,
				After:      p2.Name + ": " + p2.Type,
				Operation1: m.Operation1,
				Operation2: m.Operation2,
			})
		}
	}
	if r1, r2 := m.Operation1.ReturnType, m.Operation2.ReturnType; r1 != "" && r2 != "" && r1 != r2 {
		refs = append(refs, &Refactoring{
			Type:       ChangeReturnType,
			Before:     r1,
			After:      r2,
			Operation1: m.Operation1,
			Operation2: m.Operation2,
		})
	}
	return refs
}

func (m *BodyMapper) mergeSplitRefactorings() []*Refactoring {
	params1 := stringSet(m.Operation1.ParameterNames())
	params2 := stringSet(m.Operation2.ParameterNames())
	var refs []*Refactoring
	for _, mp := range m.AllMappings() {
		for _, r := range mp.Replacements.OfKind(replacement.MergeVariables, replacement.SplitVariable) {
			kind := MergeVariable
			if r.Kind == replacement.MergeVariables {
				if allIn(r.Merged, params1) && params2[r.After] {
					kind = MergeParameter
				}
			} else {
				kind = SplitVariable
				if params1[r.Before] && allIn(r.Split, params2) {
					kind = SplitParameter
				}
			}
			refs = append(refs, &Refactoring{
				Type:         kind,
				Before:       r.Before,
				After:        r.After,
				Operation1:   m.Operation1,
				Operation2:   m.Operation2,
				Mappings:     []*Mapping{mp},
				Replacements: []*replacement.Replacement{r},
			})
		}
	}
	return refs
}

// invocationRenameRefactorings reports calls whose target name changed while
// the receiver and arguments stayed the same
func (m *BodyMapper) invocationRenameRefactorings() []*Refactoring {
	var refs []*Refactoring
	for _, mp := range m.AllMappings() {
		for _, r := range mp.Replacements.OfKind(replacement.MethodInvocationName) {
			if r.InvokedBefore == nil || r.InvokedAfter == nil {
				continue
			}
			refs = append(refs, &Refactoring{
				Type:         RenameInvocation,
				Before:       r.InvokedBefore.Name,
				After:        r.InvokedAfter.Name,
				Operation1:   m.Operation1,
				Operation2:   m.Operation2,
				Mappings:     []*Mapping{mp},
				Replacements: []*replacement.Replacement{r},
			})
		}
	}
	return refs
}

// declaredNames returns the parameters and local declarations of op
func declaredNames(op *fragment.Operation) map[string]bool {
	names := stringSet(op.ParameterNames())
	if op.Body == nil {
		return names
	}
	leaves, inner := bodyFragments(op.Body)
	for _, list := range [][]*fragment.Fragment{leaves, inner} {
		for _, f := range list {
			for _, d := range f.Declarations {
				names[d.Name] = true
			}
		}
	}
	return names
}

func stringSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, s := range items {
		set[s] = true
	}
	return set
}

func allIn(items []string, set map[string]bool) bool {
	if len(items) == 0 {
		return false
	}
	for _, s := range items {
		if !set[s] {
			return false
		}
	}
	return true
}

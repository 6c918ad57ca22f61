package analyzer

import (
	"sort"
	"strings"

	"github.com/ludo-technologies/pyrefminer/internal/replacement"
)

// MergeCandidate records variables merged into one within an operation pair
type MergeCandidate struct {
	Scope        string
	Merged       []string
	After        string
	Parameter    bool
	source       *Refactoring
	Replacements []*replacement.Replacement
}

// SplitCandidate records a variable split into several within an operation pair
type SplitCandidate struct {
	Scope        string
	Before       string
	Split        []string
	Parameter    bool
	source       *Refactoring
	Replacements []*replacement.Replacement
}

type renameObservation struct {
	scope string
	ref   *Refactoring
}

type attributeObservation struct {
	class         string
	before, after string
	mapping       *Mapping
	source        *BodyMapper
}

// CandidateAccumulator gathers rename, merge and split candidates from
// finished mappers and derives the consistent refactorings once. It is not
// safe for concurrent use; feed it mappers in a deterministic order.
type CandidateAccumulator struct {
	renames     []renameObservation
	merges      []*MergeCandidate
	splits      []*SplitCandidate
	attributes  []attributeObservation
	passthrough []*Refactoring

	removedAttributes map[string]map[string]bool
	addedAttributes   map[string]map[string]bool

	finalized bool
	result    []*Refactoring
}

// NewCandidateAccumulator creates an empty accumulator
func NewCandidateAccumulator() *CandidateAccumulator {
	return &CandidateAccumulator{
		removedAttributes: make(map[string]map[string]bool),
		addedAttributes:   make(map[string]map[string]bool),
	}
}

// AddClass registers the attributes a class lost and gained
func (a *CandidateAccumulator) AddClass(class string, removed, added []string) {
	a.removedAttributes[class] = stringSet(removed)
	a.addedAttributes[class] = stringSet(added)
}

// AddMapper collects the variable-level refactorings of m. Refactorings that
// need no cross-mapper consolidation are passed through unchanged.
func (a *CandidateAccumulator) AddMapper(m *BodyMapper) {
	if a.finalized {
		return
	}
	scope := operationKey(m.Operation1) + "->" + operationKey(m.Operation2)
	for _, ref := range m.Refactorings() {
		switch ref.Type {
		case RenameVariable, RenameParameter:
			a.renames = append(a.renames, renameObservation{scope: scope, ref: ref})
		case MergeVariable, MergeParameter:
			r := ref.Replacements[0]
			a.merges = append(a.merges, &MergeCandidate{
				Scope:        scope,
				Merged:       sortedUnique(r.Merged),
				After:        r.After,
				Parameter:    ref.Type == MergeParameter,
				source:       ref,
				Replacements: ref.Replacements,
			})
		case SplitVariable, SplitParameter:
			r := ref.Replacements[0]
			a.splits = append(a.splits, &SplitCandidate{
				Scope:        scope,
				Before:       r.Before,
				Split:        sortedUnique(r.Split),
				Parameter:    ref.Type == SplitParameter,
				source:       ref,
				Replacements: ref.Replacements,
			})
		default:
			a.passthrough = append(a.passthrough, ref)
		}
	}

	class := m.Operation2.ClassName
	if class == "" || m.Operation1.ClassName != class {
		return
	}
	class = m.Operation2.ModulePath + "::" + class
	for _, mp := range m.AllMappings() {
		for _, r := range mp.Replacements.OfKind(replacement.VariableName) {
			if !strings.HasPrefix(r.Before, "self.") || !strings.HasPrefix(r.After, "self.") {
				continue
			}
			a.attributes = append(a.attributes, attributeObservation{
				class:   class,
				before:  strings.TrimPrefix(r.Before, "self."),
				after:   strings.TrimPrefix(r.After, "self."),
				mapping: mp,
				source:  m,
			})
		}
	}
}

// Finalize consolidates the collected candidates. Later calls return the
// same result and further AddMapper calls are ignored.
func (a *CandidateAccumulator) Finalize() []*Refactoring {
	if a.finalized {
		return a.result
	}
	a.finalized = true

	merges := mergeWithCommonAfter(a.merges)
	splits := splitWithCommonBefore(a.splits)
	subsumed := subsumedRenames(a.renames, merges, splits)

	set := newRefactoringSet()
	set.add(a.passthrough...)
	for _, obs := range a.renames {
		if !subsumed[renameKey(obs.scope, obs.ref.Before, obs.ref.After)] {
			set.add(obs.ref)
		}
	}
	for _, c := range merges {
		kind := MergeVariable
		if c.Parameter {
			kind = MergeParameter
		}
		set.add(&Refactoring{
			Type:         kind,
			Before:       strings.Join(c.Merged, ", "),
			After:        c.After,
			Operation1:   c.source.Operation1,
			Operation2:   c.source.Operation2,
			Mappings:     c.source.Mappings,
			Replacements: c.Replacements,
		})
	}
	for _, c := range splits {
		kind := SplitVariable
		if c.Parameter {
			kind = SplitParameter
		}
		set.add(&Refactoring{
			Type:         kind,
			Before:       c.Before,
			After:        strings.Join(c.Split, ", "),
			Operation1:   c.source.Operation1,
			Operation2:   c.source.Operation2,
			Mappings:     c.source.Mappings,
			Replacements: c.Replacements,
		})
	}
	set.add(a.attributeRenames()...)
	a.result = set.items
	return a.result
}

// attributeRenames reports self.x → self.y replacements that are the only
// replacement of x in their class, where x disappeared and y appeared.
func (a *CandidateAccumulator) attributeRenames() []*Refactoring {
	type group struct {
		class, before, after string
		mappings             []*Mapping
		first                *BodyMapper
	}
	var order []string
	groups := make(map[string]*group)
	targets := make(map[string]map[string]bool)
	for _, obs := range a.attributes {
		key := obs.class + "\x00" + obs.before + "\x00" + obs.after
		g, ok := groups[key]
		if !ok {
			g = &group{class: obs.class, before: obs.before, after: obs.after, first: obs.source}
			groups[key] = g
			order = append(order, key)
		}
		g.mappings = append(g.mappings, obs.mapping)
		beforeKey := obs.class + "\x00" + obs.before
		if targets[beforeKey] == nil {
			targets[beforeKey] = make(map[string]bool)
		}
		targets[beforeKey][obs.after] = true
	}

	var refs []*Refactoring
	for _, key := range order {
		g := groups[key]
		if len(targets[g.class+"\x00"+g.before]) != 1 {
			continue
		}
		if !a.removedAttributes[g.class][g.before] || !a.addedAttributes[g.class][g.after] {
			continue
		}
		refs = append(refs, &Refactoring{
			Type:       RenameAttribute,
			Before:     g.before,
			After:      g.after,
			Operation1: g.first.Operation1,
			Operation2: g.first.Operation2,
			Mappings:   g.mappings,
		})
	}
	return refs
}

// mergeWithCommonAfter unites merge candidates of one scope that produce
// the same variable
func mergeWithCommonAfter(cands []*MergeCandidate) []*MergeCandidate {
	var out []*MergeCandidate
	index := make(map[string]int)
	for _, c := range cands {
		key := c.Scope + "\x00" + c.After
		if i, ok := index[key]; ok {
			prev := out[i]
			out[i] = &MergeCandidate{
				Scope:        prev.Scope,
				Merged:       sortedUnique(append(append([]string(nil), prev.Merged...), c.Merged...)),
				After:        prev.After,
				Parameter:    prev.Parameter && c.Parameter,
				source:       prev.source,
				Replacements: append(append([]*replacement.Replacement(nil), prev.Replacements...), c.Replacements...),
			}
			continue
		}
		index[key] = len(out)
		out = append(out, c)
	}
	return out
}

// splitWithCommonBefore unites split candidates of one scope that consume
// the same variable
func splitWithCommonBefore(cands []*SplitCandidate) []*SplitCandidate {
	var out []*SplitCandidate
	index := make(map[string]int)
	for _, c := range cands {
		key := c.Scope + "\x00" + c.Before
		if i, ok := index[key]; ok {
			prev := out[i]
			out[i] = &SplitCandidate{
				Scope:        prev.Scope,
				Before:       prev.Before,
				Split:        sortedUnique(append(append([]string(nil), prev.Split...), c.Split...)),
				Parameter:    prev.Parameter && c.Parameter,
				source:       prev.source,
				Replacements: append(append([]*replacement.Replacement(nil), prev.Replacements...), c.Replacements...),
			}
			continue
		}
		index[key] = len(out)
		out = append(out, c)
	}
	return out
}

// subsumedRenames returns the keys of renames that are part of a merge or a
// split in the same scope
func subsumedRenames(renames []renameObservation, merges []*MergeCandidate, splits []*SplitCandidate) map[string]bool {
	subsumed := make(map[string]bool)
	for _, obs := range renames {
		before, after := obs.ref.Before, obs.ref.After
		for _, m := range merges {
			if m.Scope == obs.scope && m.After == after && containsName(m.Merged, before) {
				subsumed[renameKey(obs.scope, before, after)] = true
			}
		}
		for _, s := range splits {
			if s.Scope == obs.scope && s.Before == before && containsName(s.Split, after) {
				subsumed[renameKey(obs.scope, before, after)] = true
			}
		}
	}
	return subsumed
}

// ConsistentInvocationRenames returns the call renames observed in the
// mappers whose old name is always replaced by the same new name and whose
// new name always replaces the same old name.
func ConsistentInvocationRenames(mappers []*BodyMapper) map[string]string {
	forward := make(map[string]map[string]bool)
	backward := make(map[string]map[string]bool)
	for _, m := range mappers {
		for _, mp := range m.AllMappings() {
			for _, r := range mp.Replacements.OfKind(replacement.MethodInvocationName) {
				if r.InvokedBefore == nil || r.InvokedAfter == nil {
					continue
				}
				before, after := r.InvokedBefore.Name, r.InvokedAfter.Name
				if forward[before] == nil {
					forward[before] = make(map[string]bool)
				}
				forward[before][after] = true
				if backward[after] == nil {
					backward[after] = make(map[string]bool)
				}
				backward[after][before] = true
			}
		}
	}
	consistent := make(map[string]string)
	for before, afters := range forward {
		if len(afters) != 1 {
			continue
		}
		for after := range afters {
			if len(backward[after]) == 1 {
				consistent[before] = after
			}
		}
	}
	return consistent
}

func renameKey(scope, before, after string) string {
	return scope + "\x00" + before + "\x00" + after
}

func sortedUnique(items []string) []string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, s := range items {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func containsName(items []string, name string) bool {
	for _, s := range items {
		if s == name {
			return true
		}
	}
	return false
}

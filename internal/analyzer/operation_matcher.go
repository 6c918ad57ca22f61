package analyzer

import (
	"context"
	"sort"

	"github.com/ludo-technologies/pyrefminer/internal/constants"
	"github.com/ludo-technologies/pyrefminer/internal/fragment"
	"github.com/ludo-technologies/pyrefminer/internal/replacement"
	"github.com/ludo-technologies/pyrefminer/internal/similarity"
)

// ClassDiff pairs the removed and added operations of one class (or of the
// module-level functions of one module) whose names or signatures changed.
type ClassDiff struct {
	// Operations1 and Operations2 are all operations of the scope, in
	// declaration order, before and after
	Operations1 []*fragment.Operation
	Operations2 []*fragment.Operation

	Removed []*fragment.Operation
	Added   []*fragment.Operation

	RemovedAttributes []string
	AddedAttributes   []string

	// ConsistentRenames maps old call names to new ones agreed on by the
	// mappers of unchanged operations
	ConsistentRenames map[string]string

	MaxOperationNameDistance float64
	DiffID                   string

	// MapPair builds the mapper of one pair; nil means NewBodyMapper
	MapPair PairMapper
}

// PairMapper builds the mapper of one operation pair. A nil mapper with a
// nil error means the pair was skipped.
type PairMapper func(ctx context.Context, op1, op2 *fragment.Operation, opts MapperOptions) (*BodyMapper, error)

// MatchResult holds the pairings chosen by ClassDiff
type MatchResult struct {
	Mappers      []*BodyMapper
	Refactorings []*Refactoring
	// Removed and Added are the operations left unpaired
	Removed []*fragment.Operation
	Added   []*fragment.Operation
}

// MatchOperations pairs removed with added operations. The smaller side
// drives the outer loop. Every pairing removes both operations from further
// consideration.
func (d *ClassDiff) MatchOperations(ctx context.Context) (*MatchResult, error) {
	removed := append([]*fragment.Operation(nil), d.Removed...)
	added := append([]*fragment.Operation(nil), d.Added...)
	result := &MatchResult{}

	maxPosition := absInt(len(removed) - len(added))
	if len(removed) <= len(added) {
		for _, op1 := range append([]*fragment.Operation(nil), removed...) {
			var set []*BodyMapper
			for _, op2 := range added {
				if err := d.updateMapperSet(ctx, &set, op1, op2, maxPosition); err != nil {
					return nil, err
				}
			}
			if best := d.findBestMapper(set, removed, added); best != nil {
				result.add(best)
				removed = without(removed, best.Operation1)
				added = without(added, best.Operation2)
			}
		}
	} else {
		for _, op2 := range append([]*fragment.Operation(nil), added...) {
			var set []*BodyMapper
			for _, op1 := range removed {
				if err := d.updateMapperSet(ctx, &set, op1, op2, maxPosition); err != nil {
					return nil, err
				}
			}
			if best := d.findBestMapper(set, removed, added); best != nil {
				result.add(best)
				removed = without(removed, best.Operation1)
				added = without(added, best.Operation2)
			}
		}
	}
	result.Removed = removed
	result.Added = added
	return result, nil
}

func (r *MatchResult) add(m *BodyMapper) {
	r.Mappers = append(r.Mappers, m)
	if m.Operation1.Name != m.Operation2.Name {
		r.Refactorings = append(r.Refactorings, &Refactoring{
			Type:       RenameMethod,
			Before:     m.Operation1.QualifiedName(),
			After:      m.Operation2.QualifiedName(),
			Operation1: m.Operation1,
			Operation2: m.Operation2,
			Mappings:   m.AllMappings(),
		})
	}
}

// MapperOptionsFor returns the mapper options for a removed/added pair,
// with the parameter and attribute differences in the inference environment
func (d *ClassDiff) MapperOptionsFor(op1, op2 *fragment.Operation) MapperOptions {
	params1, params2 := op1.ParameterNames(), op2.ParameterNames()
	return MapperOptions{
		Env: replacement.Env{
			AddedParameters:          missingFrom(params2, params1),
			RemovedParameters:        missingFrom(params1, params2),
			AddedAttributes:          d.AddedAttributes,
			RemovedAttributes:        d.RemovedAttributes,
			MaxOperationNameDistance: d.MaxOperationNameDistance,
		},
		AddedOperations:   d.Added,
		RemovedOperations: d.Removed,
		DiffID:            d.DiffID,
	}
}

// updateMapperSet maps op1 onto op2 and keeps the mapper when one of the
// acceptance rules holds.
func (d *ClassDiff) updateMapperSet(ctx context.Context, set *[]*BodyMapper, op1, op2 *fragment.Operation, maxPosition int) error {
	mapper, err := d.mapPair(ctx, op1, op2)
	if err != nil || mapper == nil {
		return err
	}
	mappings := mapper.MappingsWithoutBlocks()
	position := absInt(op1.Position - op2.Position)

	if mappings == 0 {
		if op1.HasEmptyBody() && op2.HasEmptyBody() &&
			d.compatibleSignatures(op1, op2, position) &&
			similarity.NameDistance(op1.Name, op2.Name) <= d.maxNameDistance() {
			*set = append(*set, mapper)
		}
		return nil
	}

	nonMapped1, nonMapped2 := mapper.NonMappedElementsT1(), mapper.NonMappedElementsT2()
	switch {
	case exactMappings(mapper):
		*set = append(*set, mapper)
	case mappings > nonMapped1 && mappings > nonMapped2 &&
		position <= maxPosition && d.compatibleSignatures(op1, op2, position):
		*set = append(*set, mapper)
	case mappings > nonMapped2 && position <= maxPosition &&
		IsPartOfMethodExtracted(op1, op2, d.Added):
		*set = append(*set, mapper)
	case mappings > nonMapped1 && position <= maxPosition &&
		IsPartOfMethodInlined(op1, op2, d.Removed):
		*set = append(*set, mapper)
	}
	return nil
}

func (d *ClassDiff) mapPair(ctx context.Context, op1, op2 *fragment.Operation) (*BodyMapper, error) {
	if d.MapPair != nil {
		return d.MapPair(ctx, op1, op2, d.MapperOptionsFor(op1, op2))
	}
	return NewBodyMapper(ctx, op1, op2, d.MapperOptionsFor(op1, op2))
}

func (d *ClassDiff) maxNameDistance() float64 {
	if d.MaxOperationNameDistance > 0 {
		return d.MaxOperationNameDistance
	}
	return constants.MaxOperationNameDistance
}

// exactMappings reports whether every mapping is exact and nothing is left
// over, tolerating leftover declarations of a parameter of the other side.
func exactMappings(m *BodyMapper) bool {
	if !allMappingsExact(m) {
		return false
	}
	nonMapped1, nonMapped2 := m.NonMappedElementsT1(), m.NonMappedElementsT2()
	switch {
	case nonMapped1 == 0 && nonMapped2 == 0:
		return true
	case nonMapped1 > 0 && len(m.NonMappedInnerNodesT1()) == 0 && nonMapped2 == 0:
		return onlyParameterDeclarations(m.NonMappedLeavesT1(), m.Operation2)
	case nonMapped2 > 0 && len(m.NonMappedInnerNodesT2()) == 0 && nonMapped1 == 0:
		return onlyParameterDeclarations(m.NonMappedLeavesT2(), m.Operation1)
	}
	return false
}

// allMappingsExact counts mappings whose only replacements are type changes
// as exact, as long as at least one mapping is truly exact
func allMappingsExact(m *BodyMapper) bool {
	mappings := m.MappingsWithoutBlocks()
	exact := m.ExactMatches()
	if mappings == exact {
		return mappings > 0
	}
	typed := 0
	for _, mp := range m.AllMappings() {
		if mp.IsCountable() && !mp.IsExact() && mp.Replacements.HasKind(replacement.Type) {
			typed++
		}
	}
	return mappings == exact+typed && mappings > typed
}

func onlyParameterDeclarations(leaves []*fragment.Fragment, op *fragment.Operation) bool {
	params := op.ParameterNames()
	countableStatements, parameterized := 0, 0
	for _, leaf := range leaves {
		if !leaf.IsCountable() {
			continue
		}
		countableStatements++
		for _, p := range params {
			if leaf.DeclarationNamed(p) != nil {
				parameterized++
				break
			}
		}
	}
	return countableStatements == parameterized
}

// compatibleSignatures accepts equal parameter lists, or a sibling position
// match with either equal parameter types or similar names
func (d *ClassDiff) compatibleSignatures(op1, op2 *fragment.Operation, position int) bool {
	if compatibleSignature(op1, op2) {
		return true
	}
	if position != 0 && !d.neighborsMatch(op1, op2) {
		return false
	}
	if gettersWithDifferentReturnType(op1, op2) {
		return false
	}
	return equalStringSlices(op1.ParameterTypes(), op2.ParameterTypes()) ||
		similarity.NameDistance(op1.Name, op2.Name) <= d.maxNameDistance()
}

func compatibleSignature(op1, op2 *fragment.Operation) bool {
	if op1.EqualParameters(op2) {
		return true
	}
	p1, p2 := op1.ExplicitParameters(), op2.ExplicitParameters()
	return len(p1) > 0 && len(p1) == len(p2) && op1.CommonParameterTypes(op2) == len(p1)
}

func gettersWithDifferentReturnType(op1, op2 *fragment.Operation) bool {
	getter := func(op *fragment.Operation) bool {
		return len(op.ExplicitParameters()) == 0 && len(op.Name) > 3 && op.Name[:3] == "get"
	}
	return getter(op1) && getter(op2) && !op1.EqualReturnParameter(op2)
}

// neighborsMatch reports whether the operations declared right before and
// right after op1 and op2 carry the same names
func (d *ClassDiff) neighborsMatch(op1, op2 *fragment.Operation) bool {
	prev1, next1 := neighbors(d.Operations1, op1)
	prev2, next2 := neighbors(d.Operations2, op2)
	same := func(a, b *fragment.Operation) bool {
		if a == nil || b == nil {
			return a == nil && b == nil
		}
		return a.Name == b.Name
	}
	return same(prev1, prev2) && same(next1, next2)
}

func neighbors(ops []*fragment.Operation, op *fragment.Operation) (prev, next *fragment.Operation) {
	ordered := append([]*fragment.Operation(nil), ops...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Position < ordered[j].Position })
	for i, candidate := range ordered {
		if candidate != op {
			continue
		}
		if i > 0 {
			prev = ordered[i-1]
		}
		if i+1 < len(ordered) {
			next = ordered[i+1]
		}
	}
	return prev, next
}

// sortMappers orders mappers by more mapped statements, more exact matches,
// smaller edit distance, then smaller operation name distance
func sortMappers(mappers []*BodyMapper) {
	sort.SliceStable(mappers, func(i, j int) bool {
		a, b := mappers[i], mappers[j]
		if x, y := a.MappingsWithoutBlocks(), b.MappingsWithoutBlocks(); x != y {
			return x > y
		}
		if x, y := a.ExactMatches(), b.ExactMatches(); x != y {
			return x > y
		}
		if x, y := a.EditDistance(), b.EditDistance(); x != y {
			return x < y
		}
		return similarity.NameEditDistance(a.Operation1.Name, a.Operation2.Name) <
			similarity.NameEditDistance(b.Operation1.Name, b.Operation2.Name)
	})
}

// findBestMapper picks the best mapper from the set, switching to a later
// one when the first is contradicted by call sites, identical bodies or the
// consistent rename consensus. It returns nil when the choice still
// contradicts the consensus.
func (d *ClassDiff) findBestMapper(set []*BodyMapper, removed, added []*fragment.Operation) *BodyMapper {
	if len(set) == 0 {
		return nil
	}
	sortMappers(set)
	best := set[0]
	op1, op2 := best.Operation1, best.Operation2
	if op1.EqualReturnParameter(op2) && op1.Name == op2.Name && op1.CommonParameterTypes(op2) > 0 {
		return best
	}

	identicalWithAnotherAdded := identicalBodyWithAnother(op1, op2, added)
	identicalWithAnotherRemoved := identicalBodyWithAnother(op2, op1, removed)
	for _, next := range set[1:] {
		callsBest2 := callsOnly(next.Operation2, best.Operation2, best.Operation1, removed)
		callsBest1 := callsOnly(next.Operation1, best.Operation1, best.Operation2, added)
		if d.mismatchesConsensus(best) && d.matchesConsensus(next) {
			best = next
			break
		}
		if callsBest1 || callsBest2 {
			best = next
			break
		}
		if identicalWithAnotherAdded || identicalWithAnotherRemoved {
			best = next
			break
		}
	}
	if d.mismatchesConsensus(best) {
		return nil
	}
	return best
}

// callsOnly reports whether caller invokes target but not other, with no
// same-named call found in the pool of changed operations
func callsOnly(caller, target, other *fragment.Operation, pool []*fragment.Operation) bool {
	for _, inv := range caller.AllInvocations() {
		if !inv.MatchesOperation(target) || inv.MatchesOperation(other) {
			continue
		}
		if invokedWithCommonArguments(inv, pool) {
			continue
		}
		return true
	}
	return false
}

func invokedWithCommonArguments(inv *fragment.Invocation, pool []*fragment.Operation) bool {
	for _, op := range pool {
		for _, other := range op.AllInvocations() {
			if other.Name == inv.Name && len(other.CommonArguments(inv)) > 0 {
				return true
			}
		}
	}
	return false
}

// identicalBodyWithAnother reports whether op's body equals the body of an
// operation in pool other than counterpart
func identicalBodyWithAnother(op, counterpart *fragment.Operation, pool []*fragment.Operation) bool {
	body := op.BodyText()
	if body == "" {
		return false
	}
	for _, other := range pool {
		if other != counterpart && other != op && other.BodyText() == body {
			return true
		}
	}
	return false
}

func (d *ClassDiff) mismatchesConsensus(m *BodyMapper) bool {
	for before, after := range d.ConsistentRenames {
		if m.Operation1.Name == before && m.Operation2.Name != after {
			return true
		}
		if m.Operation2.Name == after && m.Operation1.Name != before {
			return true
		}
	}
	return false
}

func (d *ClassDiff) matchesConsensus(m *BodyMapper) bool {
	after, ok := d.ConsistentRenames[m.Operation1.Name]
	return ok && after == m.Operation2.Name
}

func without(ops []*fragment.Operation, op *fragment.Operation) []*fragment.Operation {
	out := make([]*fragment.Operation, 0, len(ops))
	for _, o := range ops {
		if o != op {
			out = append(out, o)
		}
	}
	return out
}

// missingFrom returns the items of a absent from b
func missingFrom(a, b []string) []string {
	set := stringSet(b)
	var out []string
	for _, s := range a {
		if !set[s] {
			out = append(out, s)
		}
	}
	return out
}

func equalStringSlices(a, b []string) bool {
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

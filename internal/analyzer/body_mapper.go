package analyzer

import (
	"context"

	"github.com/ludo-technologies/pyrefminer/domain"
	"github.com/ludo-technologies/pyrefminer/internal/constants"
	"github.com/ludo-technologies/pyrefminer/internal/fragment"
	"github.com/ludo-technologies/pyrefminer/internal/replacement"
	"github.com/ludo-technologies/pyrefminer/internal/similarity"
)

// MapperOptions configures a BodyMapper
type MapperOptions struct {
	Env replacement.Env

	// Nested marks mappers created for call-site extract/inline detection.
	// Only nested mappers unwrap bare blocks.
	Nested bool

	// AddedOperations and RemovedOperations let small composites without
	// mapped children match when their only statements call one of them.
	AddedOperations   []*fragment.Operation
	RemovedOperations []*fragment.Operation

	// DiffID identifies the diff that requested the mapper
	DiffID string
}

// BodyMapper aligns the statements of two operation bodies.
// It is built once by NewBodyMapper and read-only afterwards.
type BodyMapper struct {
	Operation1 *fragment.Operation
	Operation2 *fragment.Operation
	// CallSite is the invocation a nested mapper was created for
	CallSite *fragment.Invocation

	opts   MapperOptions
	engine *replacement.Engine

	mappings []*Mapping
	mapped1  map[*fragment.Fragment]*Mapping
	mapped2  map[*fragment.Fragment]*Mapping

	nonMappedLeaves1 []*fragment.Fragment
	nonMappedLeaves2 []*fragment.Fragment
	nonMappedInner1  []*fragment.Fragment
	nonMappedInner2  []*fragment.Fragment

	postponed     [][]*candidate
	lambdaMappers []*BodyMapper
}

// NewBodyMapper maps the body of op1 (before) onto the body of op2 (after).
// It fails only when ctx is done, with a MATCHING_TIMED_OUT error.
func NewBodyMapper(ctx context.Context, op1, op2 *fragment.Operation, opts MapperOptions) (*BodyMapper, error) {
	leaves1, inner1 := bodyFragments(op1.Body)
	leaves2, inner2 := bodyFragments(op2.Body)
	return newMapper(ctx, op1, op2, leaves1, leaves2, inner1, inner2, opts, nil)
}

// MapBodies maps two statement trees that do not belong to operations
func MapBodies(ctx context.Context, body1, body2 *fragment.Fragment, opts MapperOptions) (*BodyMapper, error) {
	return NewBodyMapper(ctx, fragment.NewOperation("", nil, body1), fragment.NewOperation("", nil, body2), opts)
}

func newMapper(ctx context.Context, op1, op2 *fragment.Operation,
	leaves1, leaves2, inner1, inner2 []*fragment.Fragment,
	opts MapperOptions, engine *replacement.Engine) (*BodyMapper, error) {
	if engine == nil {
		engine = replacement.NewEngine(opts.Env)
	}
	m := &BodyMapper{
		Operation1: op1,
		Operation2: op2,
		opts:       opts,
		engine:     engine,
		mapped1:    make(map[*fragment.Fragment]*Mapping),
		mapped2:    make(map[*fragment.Fragment]*Mapping),
	}
	if err := domain.CheckTimeout(ctx); err != nil {
		return nil, err
	}
	if err := m.processStatements(ctx, leaves1, leaves2); err != nil {
		return nil, err
	}
	if err := m.processStatements(ctx, inner1, inner2); err != nil {
		return nil, err
	}
	if err := m.mapLambdas(ctx); err != nil {
		return nil, err
	}
	m.nonMappedLeaves1 = m.unmapped(leaves1, m.mapped1)
	m.nonMappedLeaves2 = m.unmapped(leaves2, m.mapped2)
	m.nonMappedInner1 = m.unmapped(inner1, m.mapped1)
	m.nonMappedInner2 = m.unmapped(inner2, m.mapped2)
	return m, nil
}

func bodyFragments(body *fragment.Fragment) (leaves, inner []*fragment.Fragment) {
	if body == nil {
		return nil, nil
	}
	if body.IsLeaf() {
		return []*fragment.Fragment{body}, nil
	}
	return body.Leaves(), body.InnerNodes()
}

// processStatements runs the three passes over one pair of statement lists
// (leaves, or inner nodes in post-order), then resolves postponed sets.
func (m *BodyMapper) processStatements(ctx context.Context, list1, list2 []*fragment.Fragment) error {
	if len(list1) == 0 || len(list2) == 0 {
		return nil
	}
	identicalSameDepth := func(f1, f2 *fragment.Fragment) (*candidate, error) {
		if f1.Depth != f2.Depth || !m.identicalText(f1, f2) {
			return nil, nil
		}
		return m.newCandidate(ctx, f1, f2, nil, true)
	}
	identicalAnyDepth := func(f1, f2 *fragment.Fragment) (*candidate, error) {
		if !m.identicalText(f1, f2) {
			return nil, nil
		}
		return m.newCandidate(ctx, f1, f2, nil, true)
	}
	withReplacements := func(f1, f2 *fragment.Fragment) (*candidate, error) {
		result, err := m.engine.Infer(ctx, f1, f2)
		if err != nil || !result.Matched() {
			return nil, err
		}
		return m.newCandidate(ctx, f1, f2, result.Replacements(), m.identicalText(f1, f2))
	}

	if err := m.pass(ctx, list1, list2, identicalSameDepth, false); err != nil {
		return err
	}
	if err := m.pass(ctx, list1, list2, identicalAnyDepth, false); err != nil {
		return err
	}
	if err := m.pass(ctx, list1, list2, withReplacements, true); err != nil {
		return err
	}
	return m.resolvePostponed(ctx)
}

type considerFunc func(f1, f2 *fragment.Fragment) (*candidate, error)

// pass iterates the smaller list in the outer loop. For every unmapped outer
// fragment it collects candidates among the unmapped partners and commits
// the smallest, or postpones an ambiguous set of declarations.
func (m *BodyMapper) pass(ctx context.Context, list1, list2 []*fragment.Fragment, consider considerFunc, postpone bool) error {
	swapped := len(list1) > len(list2)
	outer, inner := list1, list2
	if swapped {
		outer, inner = list2, list1
	}
	for _, o := range outer {
		if err := domain.CheckTimeout(ctx); err != nil {
			return err
		}
		if (!swapped && m.mapped1[o] != nil) || (swapped && m.mapped2[o] != nil) {
			continue
		}
		var cands []*candidate
		for _, in := range inner {
			f1, f2 := o, in
			if swapped {
				f1, f2 = in, o
			}
			if m.mapped1[f1] != nil || m.mapped2[f2] != nil || !compatible(f1, f2) {
				continue
			}
			c, err := consider(f1, f2)
			if err != nil {
				return err
			}
			if c != nil {
				cands = append(cands, c)
			}
		}
		if len(cands) == 0 {
			continue
		}
		sortCandidates(cands)
		if postpone && len(cands) > 1 && ambiguousDeclarations(cands) {
			m.postponed = append(m.postponed, cands)
			continue
		}
		m.commit(cands[0].mapping)
	}
	return nil
}

// compatible reports whether two statements may be paired at all
func compatible(f1, f2 *fragment.Fragment) bool {
	if f1.IsComposite() != f2.IsComposite() {
		return false
	}
	if f1.IsLeaf() || f1.Kind == f2.Kind {
		return true
	}
	switch {
	case (f1.Kind == fragment.KindIf || f1.Kind == fragment.KindElif) &&
		(f2.Kind == fragment.KindIf || f2.Kind == fragment.KindElif):
		return true
	case (f1.Kind == fragment.KindFor || f1.Kind == fragment.KindWhile) &&
		(f2.Kind == fragment.KindFor || f2.Kind == fragment.KindWhile):
		return true
	}
	return false
}

func (m *BodyMapper) identicalText(f1, f2 *fragment.Fragment) bool {
	return f1.Text == f2.Text || m.engine.Argumentized1(f1) == m.engine.Argumentized2(f2)
}

// newCandidate ranks a potential mapping. Composite pairs that are not
// eligible by child matching yield no candidate.
func (m *BodyMapper) newCandidate(ctx context.Context, f1, f2 *fragment.Fragment, set *replacement.Set, identical bool) (*candidate, error) {
	c := &candidate{
		depthDiff: absInt(f1.Depth - f2.Depth),
		indexDiff: absInt(f1.Index - f2.Index),
	}
	if f1.IsComposite() {
		score, eligible := m.compositeScore(f1, f2)
		if !eligible {
			return nil, nil
		}
		c.score = score
	}
	c.mapping = newMapping(f1, f2, set, identical)
	if !identical {
		s1, s2 := m.engine.Argumentized1(f1), m.engine.Argumentized2(f2)
		d, err := similarity.EditDistance(ctx, s1, s2)
		if err != nil {
			return nil, err
		}
		c.distance = similarity.Normalize(d, s1, s2)
		c.mapping.editDistance = d
	}
	return c, nil
}

// ambiguousDeclarations reports whether all candidates pair variable
// declarations with the same replacement kinds
func ambiguousDeclarations(cands []*candidate) bool {
	signature := cands[0].mapping.Replacements.Signature()
	for _, c := range cands {
		if c.mapping.Fragment1.Kind != fragment.KindVariableDeclaration ||
			c.mapping.Fragment2.Kind != fragment.KindVariableDeclaration {
			return false
		}
		if c.mapping.Replacements.Signature() != signature {
			return false
		}
	}
	return true
}

// resolvePostponed commits, per postponed set, the single still-available
// candidate sharing a declared-variable replacement with a committed
// mapping, or else the smallest still-available candidate.
func (m *BodyMapper) resolvePostponed(ctx context.Context) error {
	sets := m.postponed
	m.postponed = nil
	for _, set := range sets {
		if err := domain.CheckTimeout(ctx); err != nil {
			return err
		}
		var available, sharing []*candidate
		for _, c := range set {
			if m.mapped1[c.mapping.Fragment1] != nil || m.mapped2[c.mapping.Fragment2] != nil {
				continue
			}
			available = append(available, c)
			if m.sharesDeclaredReplacement(c.mapping) {
				sharing = append(sharing, c)
			}
		}
		switch {
		case len(sharing) == 1:
			m.commit(sharing[0].mapping)
		case len(available) > 0:
			m.commit(available[0].mapping)
		}
	}
	return nil
}

func (m *BodyMapper) sharesDeclaredReplacement(mp *Mapping) bool {
	for _, r := range mp.Replacements.Items() {
		if !mp.Fragment1.Declares(r.Before) || !mp.Fragment2.Declares(r.After) {
			continue
		}
		for _, accepted := range m.mappings {
			for _, other := range accepted.Replacements.Items() {
				if other.SameSubstitution(r) {
					return true
				}
			}
		}
	}
	return false
}

// compositeScore returns the child matching score of two composites and
// whether the pair is eligible for matching at all.
func (m *BodyMapper) compositeScore(c1, c2 *fragment.Fragment) (float64, bool) {
	children1, children2 := m.pairChildren(c1, c2)
	maxChildren := maxInt(len(children1), len(children2))
	if maxChildren == 0 {
		return 0, true
	}
	mapped := 0
	for _, child := range children1 {
		if mp := m.mapped1[child]; mp != nil && containsFragment(children2, mp.Fragment2) {
			mapped++
		}
	}
	if mapped > 0 {
		return float64(mapped) / float64(maxChildren), true
	}

	leaves1, leaves2 := c1.Leaves(), c2.Leaves()
	mappedLeaves := 0
	for _, leaf := range leaves1 {
		if mp := m.mapped1[leaf]; mp != nil && c2.Contains(mp.Fragment2) {
			mappedLeaves++
		}
	}
	if mappedLeaves > 0 {
		return float64(mappedLeaves) / float64(maxInt(len(leaves1), len(leaves2))), true
	}
	if len(children1) == 0 || len(children2) == 0 {
		return 0, true
	}
	return 0, m.callsChangedOperation(leaves1, leaves2)
}

// pairChildren returns the child statements compared for two composites.
// In nested mappers a lone bare block is unwrapped when the other side's
// lone child is not one.
func (m *BodyMapper) pairChildren(c1, c2 *fragment.Fragment) ([]*fragment.Fragment, []*fragment.Fragment) {
	children1, children2 := c1.Children, c2.Children
	if !m.opts.Nested {
		return children1, children2
	}
	wrapped1 := len(children1) == 1 && children1[0].IsBareBlock()
	wrapped2 := len(children2) == 1 && children2[0].IsBareBlock()
	switch {
	case wrapped1 && !wrapped2:
		children1 = children1[0].Children
	case wrapped2 && !wrapped1:
		children2 = children2[0].Children
	}
	return children1, children2
}

// callsChangedOperation reports whether a small composite only calls an
// added operation (after side) or a removed one (before side)
func (m *BodyMapper) callsChangedOperation(leaves1, leaves2 []*fragment.Fragment) bool {
	if len(leaves2) <= constants.MaxSmallCompositeLeaves && invokesAny(leaves2, m.opts.AddedOperations) {
		return true
	}
	return len(leaves1) <= constants.MaxSmallCompositeLeaves && invokesAny(leaves1, m.opts.RemovedOperations)
}

func invokesAny(leaves []*fragment.Fragment, ops []*fragment.Operation) bool {
	for _, leaf := range leaves {
		inv := leaf.CoveringInvocation()
		if inv == nil {
			continue
		}
		for _, op := range ops {
			if inv.MatchesOperation(op) {
				return true
			}
		}
	}
	return false
}

func (m *BodyMapper) commit(mp *Mapping) {
	m.mappings = append(m.mappings, mp)
	m.mapped1[mp.Fragment1] = mp
	m.mapped2[mp.Fragment2] = mp
}

func (m *BodyMapper) unmapped(list []*fragment.Fragment, mapped map[*fragment.Fragment]*Mapping) []*fragment.Fragment {
	var out []*fragment.Fragment
	for _, f := range list {
		if mapped[f] == nil {
			out = append(out, f)
		}
	}
	return out
}

// mapLambdas maps the bodies of lambdas found in mapped statement pairs.
// Lambda mappings live in child mappers.
func (m *BodyMapper) mapLambdas(ctx context.Context) error {
	for _, mp := range m.mappings {
		lambdas1, lambdas2 := mp.Fragment1.Lambdas, mp.Fragment2.Lambdas
		for i := 0; i < len(lambdas1) && i < len(lambdas2); i++ {
			leaves1, inner1 := bodyFragments(lambdas1[i].Body)
			leaves2, inner2 := bodyFragments(lambdas2[i].Body)
			child, err := newMapper(ctx, m.Operation1, m.Operation2, leaves1, leaves2, inner1, inner2, m.opts, m.engine)
			if err != nil {
				return err
			}
			m.lambdaMappers = append(m.lambdaMappers, child)
		}
	}
	return nil
}

// Mappings returns the statement mappings in commit order
func (m *BodyMapper) Mappings() []*Mapping {
	return append([]*Mapping(nil), m.mappings...)
}

// LambdaMappers returns the child mappers of lambda bodies
func (m *BodyMapper) LambdaMappers() []*BodyMapper {
	return append([]*BodyMapper(nil), m.lambdaMappers...)
}

// AllMappings returns the statement mappings followed by lambda mappings
func (m *BodyMapper) AllMappings() []*Mapping {
	all := m.Mappings()
	for _, child := range m.lambdaMappers {
		all = append(all, child.AllMappings()...)
	}
	return all
}

// MappingOf1 returns the mapping of a before fragment
func (m *BodyMapper) MappingOf1(f *fragment.Fragment) *Mapping {
	return m.mapped1[f]
}

// MappingOf2 returns the mapping of an after fragment
func (m *BodyMapper) MappingOf2(f *fragment.Fragment) *Mapping {
	return m.mapped2[f]
}

// NonMappedLeavesT1 returns the unmatched before leaves
func (m *BodyMapper) NonMappedLeavesT1() []*fragment.Fragment {
	return append([]*fragment.Fragment(nil), m.nonMappedLeaves1...)
}

// NonMappedLeavesT2 returns the unmatched after leaves
func (m *BodyMapper) NonMappedLeavesT2() []*fragment.Fragment {
	return append([]*fragment.Fragment(nil), m.nonMappedLeaves2...)
}

// NonMappedInnerNodesT1 returns the unmatched before composites
func (m *BodyMapper) NonMappedInnerNodesT1() []*fragment.Fragment {
	return append([]*fragment.Fragment(nil), m.nonMappedInner1...)
}

// NonMappedInnerNodesT2 returns the unmatched after composites
func (m *BodyMapper) NonMappedInnerNodesT2() []*fragment.Fragment {
	return append([]*fragment.Fragment(nil), m.nonMappedInner2...)
}

// IsNested reports whether the mapper was created for a call site
func (m *BodyMapper) IsNested() bool {
	return m.opts.Nested
}

// DiffID returns the identifier of the diff that requested the mapper
func (m *BodyMapper) DiffID() string {
	return m.opts.DiffID
}

// MappingsWithoutBlocks counts mappings of countable statements
func (m *BodyMapper) MappingsWithoutBlocks() int {
	n := 0
	for _, mp := range m.AllMappings() {
		if mp.IsCountable() {
			n++
		}
	}
	return n
}

// ExactMatches counts exact mappings of countable statements
func (m *BodyMapper) ExactMatches() int {
	n := 0
	for _, mp := range m.AllMappings() {
		if mp.IsCountable() && mp.IsExact() {
			n++
		}
	}
	return n
}

// NonMappedElementsT1 counts the countable unmatched before statements
func (m *BodyMapper) NonMappedElementsT1() int {
	return countable(m.nonMappedLeaves1) + countable(m.nonMappedInner1)
}

// NonMappedElementsT2 counts the countable unmatched after statements
func (m *BodyMapper) NonMappedElementsT2() int {
	return countable(m.nonMappedLeaves2) + countable(m.nonMappedInner2)
}

// EditDistance sums the edit distances of the non-identical mappings
func (m *BodyMapper) EditDistance() int {
	total := 0
	for _, mp := range m.AllMappings() {
		total += mp.editDistance
	}
	return total
}

// AllMappingsExact reports whether every countable mapping is exact
func (m *BodyMapper) AllMappingsExact() bool {
	return m.MappingsWithoutBlocks() > 0 && m.ExactMatches() == m.MappingsWithoutBlocks()
}

// Replacements returns the replacements of all mappings, deduplicated
func (m *BodyMapper) Replacements() *replacement.Set {
	set := replacement.NewSet()
	for _, mp := range m.AllMappings() {
		set.AddAll(mp.Replacements)
	}
	return set
}

func countable(fragments []*fragment.Fragment) int {
	n := 0
	for _, f := range fragments {
		if f.IsCountable() {
			n++
		}
	}
	return n
}

func containsFragment(list []*fragment.Fragment, f *fragment.Fragment) bool {
	for _, item := range list {
		if item == f {
			return true
		}
	}
	return false
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

package analyzer

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ludo-technologies/pyrefminer/domain"
	"github.com/ludo-technologies/pyrefminer/internal/fragment"
	"github.com/ludo-technologies/pyrefminer/internal/replacement"
)

// DiffOptions configures a ModelDiff
type DiffOptions struct {
	MaxOperationNameDistance float64
	// PairTimeout bounds the mapping of one operation pair; zero disables it
	PairTimeout time.Duration
	// Parallelism limits concurrent mappers; zero means GOMAXPROCS
	Parallelism int
	DiffID      string
}

// OperationPair names two operations compared by the diff
type OperationPair struct {
	Before *fragment.Operation
	After  *fragment.Operation
}

// DiffResult is the outcome of diffing two models
type DiffResult struct {
	Refactorings []*Refactoring
	// Mappers holds the top-level mappers of unchanged, renamed and moved
	// operations in a deterministic order
	Mappers            []*BodyMapper
	TimedOutPairs      []OperationPair
	OperationsCompared int
}

// scope groups the operations of one class or of the module-level
// functions of one module
type scope struct {
	key        string
	ops1, ops2 []*fragment.Operation
	attrs1     []string
	attrs2     []string
}

// ModelDiff compares two versions of a set of modules. Diff calls must not
// overlap.
type ModelDiff struct {
	opts DiffOptions

	mu       sync.Mutex
	timedOut []OperationPair
	compared atomic.Int64
}

// NewModelDiff creates a ModelDiff
func NewModelDiff(opts DiffOptions) *ModelDiff {
	if opts.Parallelism <= 0 {
		opts.Parallelism = runtime.GOMAXPROCS(0)
	}
	return &ModelDiff{opts: opts}
}

// Diff detects refactorings between the before and after modules. Modules
// pair by path, classes by qualified name. Pairs whose mapping times out are
// reported in the result; cancellation of ctx aborts the diff.
func (d *ModelDiff) Diff(ctx context.Context, before, after []*fragment.Module) (*DiffResult, error) {
	d.mu.Lock()
	d.timedOut = nil
	d.mu.Unlock()
	d.compared.Store(0)

	scopes1 := collectScopes(before)
	scopes2 := collectScopes(after)

	var paired []*scope
	var common []OperationPair
	var removed, added, orphanRemoved, orphanAdded []*fragment.Operation
	scopeRemoved := make(map[string][]*fragment.Operation)
	scopeAdded := make(map[string][]*fragment.Operation)
	for _, s1 := range scopes1.list {
		s2, ok := scopes2.byKey[s1.key]
		if !ok {
			orphanRemoved = append(orphanRemoved, s1.ops1...)
			continue
		}
		merged := &scope{key: s1.key, ops1: s1.ops1, ops2: s2.ops1, attrs1: s1.attrs1, attrs2: s2.attrs1}
		paired = append(paired, merged)
		pairs, r, a := commonOperations(merged.ops1, merged.ops2)
		common = append(common, pairs...)
		scopeRemoved[merged.key] = r
		scopeAdded[merged.key] = a
		removed = append(removed, r...)
		added = append(added, a...)
	}
	for _, s2 := range scopes2.list {
		if _, ok := scopes1.byKey[s2.key]; !ok {
			orphanAdded = append(orphanAdded, s2.ops1...)
		}
	}
	removed = append(removed, orphanRemoved...)
	added = append(added, orphanAdded...)

	scopeOf := make(map[*fragment.Operation]*scope)
	for _, s := range paired {
		for _, op := range s.ops1 {
			scopeOf[op] = s
		}
		for _, op := range s.ops2 {
			scopeOf[op] = s
		}
	}

	commonMappers, err := d.mapCommon(ctx, common, scopeOf, removed, added)
	if err != nil {
		return nil, err
	}
	consensus := ConsistentInvocationRenames(commonMappers)

	matches, err := d.matchScopes(ctx, paired, scopeRemoved, scopeAdded, consensus)
	if err != nil {
		return nil, err
	}

	refs := newRefactoringSet()
	mappers := append([]*BodyMapper(nil), commonMappers...)
	var leftRemoved, leftAdded []*fragment.Operation
	for _, match := range matches {
		mappers = append(mappers, match.Mappers...)
		refs.add(match.Refactorings...)
		leftRemoved = append(leftRemoved, match.Removed...)
		leftAdded = append(leftAdded, match.Added...)
	}
	leftRemoved = append(leftRemoved, orphanRemoved...)
	leftAdded = append(leftAdded, orphanAdded...)

	moved, leftRemoved, leftAdded, err := d.detectMoves(ctx, leftRemoved, leftAdded)
	if err != nil {
		return nil, err
	}
	for _, m := range moved {
		mappers = append(mappers, m)
		refs.add(&Refactoring{
			Type:       MoveOperation,
			Before:     m.Operation1.Key(),
			After:      m.Operation2.Key(),
			Operation1: m.Operation1,
			Operation2: m.Operation2,
			Mappings:   m.AllMappings(),
		})
	}

	extracted, err := d.detectExtractInline(ctx, mappers, leftRemoved, leftAdded)
	if err != nil {
		return nil, err
	}
	refs.add(extracted...)

	acc := NewCandidateAccumulator()
	for _, s := range paired {
		acc.AddClass(s.key, missingFrom(s.attrs1, s.attrs2), missingFrom(s.attrs2, s.attrs1))
	}
	for _, m := range mappers {
		acc.AddMapper(m)
	}
	refs.add(acc.Finalize()...)

	d.mu.Lock()
	timedOut := append([]OperationPair(nil), d.timedOut...)
	d.mu.Unlock()
	sort.SliceStable(timedOut, func(i, j int) bool {
		a, b := timedOut[i], timedOut[j]
		if a.Before.Key() != b.Before.Key() {
			return a.Before.Key() < b.Before.Key()
		}
		return a.After.Key() < b.After.Key()
	})
	return &DiffResult{
		Refactorings:       refs.items,
		Mappers:            mappers,
		TimedOutPairs:      timedOut,
		OperationsCompared: int(d.compared.Load()),
	}, nil
}

// mapPair maps one pair under the pair timeout. A timed-out pair is
// recorded and skipped; cancellation of ctx itself is returned.
func (d *ModelDiff) mapPair(ctx context.Context, op1, op2 *fragment.Operation, opts MapperOptions) (*BodyMapper, error) {
	d.compared.Add(1)
	pairCtx := ctx
	if d.opts.PairTimeout > 0 {
		var cancel context.CancelFunc
		pairCtx, cancel = context.WithTimeout(ctx, d.opts.PairTimeout)
		defer cancel()
	}
	mapper, err := NewBodyMapper(pairCtx, op1, op2, opts)
	if err == nil {
		return mapper, nil
	}
	if domain.IsTimeout(err) && ctx.Err() == nil {
		d.mu.Lock()
		d.timedOut = append(d.timedOut, OperationPair{Before: op1, After: op2})
		d.mu.Unlock()
		return nil, nil
	}
	return nil, err
}

// mapCommon maps the unchanged operations concurrently. Results keep the
// order of pairs.
func (d *ModelDiff) mapCommon(ctx context.Context, pairs []OperationPair, scopeOf map[*fragment.Operation]*scope,
	removed, added []*fragment.Operation) ([]*BodyMapper, error) {
	results := make([]*BodyMapper, len(pairs))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(d.opts.Parallelism)
	for i, pair := range pairs {
		i, pair := i, pair
		group.Go(func() error {
			opts := MapperOptions{
				Env: replacement.Env{
					MaxOperationNameDistance: d.opts.MaxOperationNameDistance,
				},
				AddedOperations:   added,
				RemovedOperations: removed,
				DiffID:            d.opts.DiffID,
			}
			if s := scopeOf[pair.Before]; s != nil {
				opts.Env.RemovedAttributes = missingFrom(s.attrs1, s.attrs2)
				opts.Env.AddedAttributes = missingFrom(s.attrs2, s.attrs1)
			}
			m, err := d.mapPair(groupCtx, pair.Before, pair.After, opts)
			if err != nil {
				return err
			}
			results[i] = m
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	var mappers []*BodyMapper
	for _, m := range results {
		if m != nil {
			mappers = append(mappers, m)
		}
	}
	return mappers, nil
}

// matchScopes runs ClassDiff for every scope present on both sides
func (d *ModelDiff) matchScopes(ctx context.Context, scopes []*scope,
	removed, added map[string][]*fragment.Operation, consensus map[string]string) ([]*MatchResult, error) {
	results := make([]*MatchResult, len(scopes))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(d.opts.Parallelism)
	for i, s := range scopes {
		i, s := i, s
		group.Go(func() error {
			diff := &ClassDiff{
				Operations1:              s.ops1,
				Operations2:              s.ops2,
				Removed:                  removed[s.key],
				Added:                    added[s.key],
				RemovedAttributes:        missingFrom(s.attrs1, s.attrs2),
				AddedAttributes:          missingFrom(s.attrs2, s.attrs1),
				ConsistentRenames:        consensus,
				MaxOperationNameDistance: d.opts.MaxOperationNameDistance,
				DiffID:                   d.opts.DiffID,
				MapPair:                  d.mapPair,
			}
			result, err := diff.MatchOperations(groupCtx)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// detectMoves pairs leftover operations that kept name and parameters but
// changed class or module
func (d *ModelDiff) detectMoves(ctx context.Context, removed, added []*fragment.Operation) (
	[]*BodyMapper, []*fragment.Operation, []*fragment.Operation, error) {
	var moved []*BodyMapper
	var leftRemoved []*fragment.Operation
	for _, op1 := range removed {
		var set []*BodyMapper
		for _, op2 := range added {
			if op1.Name != op2.Name || op1.Key() == op2.Key() || !op1.EqualParameters(op2) {
				continue
			}
			opts := MapperOptions{
				Env:               replacement.Env{MaxOperationNameDistance: d.opts.MaxOperationNameDistance},
				AddedOperations:   added,
				RemovedOperations: removed,
				DiffID:            d.opts.DiffID,
			}
			m, err := d.mapPair(ctx, op1, op2, opts)
			if err != nil {
				return nil, nil, nil, err
			}
			if m == nil {
				continue
			}
			if exactMappings(m) || acceptsMove(m) {
				set = append(set, m)
			}
		}
		if len(set) == 0 {
			leftRemoved = append(leftRemoved, op1)
			continue
		}
		sortMappers(set)
		moved = append(moved, set[0])
		added = without(added, set[0].Operation2)
	}
	return moved, leftRemoved, added, nil
}

func acceptsMove(m *BodyMapper) bool {
	mappings := m.MappingsWithoutBlocks()
	if mappings == 0 {
		return m.Operation1.HasEmptyBody() && m.Operation2.HasEmptyBody()
	}
	return mappings > m.NonMappedElementsT1() && mappings > m.NonMappedElementsT2()
}

// detectExtractInline looks for leftover added operations called from the
// after side of a mapper, and leftover removed operations called from the
// before side.
func (d *ModelDiff) detectExtractInline(ctx context.Context, mappers []*BodyMapper, removed, added []*fragment.Operation) ([]*Refactoring, error) {
	detector := NewExtractDetector(MapperOptions{
		Env:               replacement.Env{MaxOperationNameDistance: d.opts.MaxOperationNameDistance},
		AddedOperations:   added,
		RemovedOperations: removed,
		DiffID:            d.opts.DiffID,
	})
	var refs []*Refactoring
	for _, parent := range mappers {
		for _, op := range added {
			ref, err := d.bounded(ctx, parent.Operation1, op, func(c context.Context) (*Refactoring, error) {
				ref, _, err := detector.DetectExtracted(c, parent, op)
				return ref, err
			})
			if err != nil {
				return nil, err
			}
			if ref != nil {
				refs = append(refs, ref)
			}
		}
		for _, op := range removed {
			ref, err := d.bounded(ctx, op, parent.Operation2, func(c context.Context) (*Refactoring, error) {
				ref, _, err := detector.DetectInlined(c, parent, op)
				return ref, err
			})
			if err != nil {
				return nil, err
			}
			if ref != nil {
				refs = append(refs, ref)
			}
		}
	}
	return refs, nil
}

// bounded runs fn under the pair timeout, recording a timed-out pair
func (d *ModelDiff) bounded(ctx context.Context, op1, op2 *fragment.Operation,
	fn func(context.Context) (*Refactoring, error)) (*Refactoring, error) {
	pairCtx := ctx
	if d.opts.PairTimeout > 0 {
		var cancel context.CancelFunc
		pairCtx, cancel = context.WithTimeout(ctx, d.opts.PairTimeout)
		defer cancel()
	}
	ref, err := fn(pairCtx)
	if err != nil && domain.IsTimeout(err) && ctx.Err() == nil {
		d.mu.Lock()
		d.timedOut = append(d.timedOut, OperationPair{Before: op1, After: op2})
		d.mu.Unlock()
		return nil, nil
	}
	return ref, err
}

type scopeIndex struct {
	list  []*scope
	byKey map[string]*scope
}

// collectScopes groups the operations of each module into one scope for the
// module-level functions and one per class. Side-specific operations live
// in ops1.
func collectScopes(modules []*fragment.Module) *scopeIndex {
	idx := &scopeIndex{byKey: make(map[string]*scope)}
	add := func(s *scope) {
		if _, ok := idx.byKey[s.key]; ok {
			return
		}
		idx.byKey[s.key] = s
		idx.list = append(idx.list, s)
	}
	for _, mod := range modules {
		add(&scope{key: mod.Path + "::", ops1: mod.Functions})
		for _, class := range mod.Classes {
			add(&scope{key: class.QualifiedName(), ops1: class.Operations, attrs1: class.Attributes})
		}
	}
	return idx
}

// commonOperations pairs operations with equal name and parameter names.
// The rest are returned as removed and added, in declaration order.
func commonOperations(ops1, ops2 []*fragment.Operation) (pairs []OperationPair, removed, added []*fragment.Operation) {
	used := make(map[*fragment.Operation]bool)
	for _, op1 := range ops1 {
		var match *fragment.Operation
		for _, op2 := range ops2 {
			if !used[op2] && op1.EqualSignature(op2) {
				match = op2
				break
			}
		}
		if match == nil {
			removed = append(removed, op1)
			continue
		}
		used[match] = true
		pairs = append(pairs, OperationPair{Before: op1, After: match})
	}
	for _, op2 := range ops2 {
		if !used[op2] {
			added = append(added, op2)
		}
	}
	return pairs, removed, added
}

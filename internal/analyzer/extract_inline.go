package analyzer

import (
	"context"
	"strings"

	"github.com/ludo-technologies/pyrefminer/internal/constants"
	"github.com/ludo-technologies/pyrefminer/internal/fragment"
	"github.com/ludo-technologies/pyrefminer/internal/replacement"
)

// invocationKey identifies a call by receiver, name and arity
func invocationKey(inv *fragment.Invocation) string {
	return inv.Expression + "|" + inv.Key()
}

// invocationSet is an insertion-ordered set of calls keyed by invocationKey
type invocationSet struct {
	order []string
	items map[string]*fragment.Invocation
}

func newInvocationSet(invs ...*fragment.Invocation) *invocationSet {
	s := &invocationSet{items: make(map[string]*fragment.Invocation)}
	for _, inv := range invs {
		s.add(inv)
	}
	return s
}

func (s *invocationSet) add(inv *fragment.Invocation) {
	key := invocationKey(inv)
	if _, ok := s.items[key]; ok {
		return
	}
	s.items[key] = inv
	s.order = append(s.order, key)
}

func (s *invocationSet) contains(inv *fragment.Invocation) bool {
	_, ok := s.items[invocationKey(inv)]
	return ok
}

func (s *invocationSet) len() int {
	return len(s.order)
}

func (s *invocationSet) list() []*fragment.Invocation {
	out := make([]*fragment.Invocation, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.items[key])
	}
	return out
}

// retain returns the members of s also present in other
func (s *invocationSet) retain(other *invocationSet) *invocationSet {
	out := newInvocationSet()
	for _, inv := range s.list() {
		if other.contains(inv) {
			out.add(inv)
		}
	}
	return out
}

// subtract returns the members of s absent from every set in others
func (s *invocationSet) subtract(others ...*invocationSet) *invocationSet {
	out := newInvocationSet()
	for _, inv := range s.list() {
		found := false
		for _, o := range others {
			if o.contains(inv) {
				found = true
				break
			}
		}
		if !found {
			out.add(inv)
		}
	}
	return out
}

// IsPartOfMethodExtracted reports whether the calls of removed are better
// explained by added together with the other added operations it calls,
// i.e. part of removed was extracted rather than renamed.
func IsPartOfMethodExtracted(removed, added *fragment.Operation, addedOps []*fragment.Operation) bool {
	return isPartOfChangedMethod(removed, added, addedOps)
}

// IsPartOfMethodInlined is the mirror of IsPartOfMethodExtracted: the calls
// of added are found in removed together with the other removed operations
// it called.
func IsPartOfMethodInlined(removed, added *fragment.Operation, removedOps []*fragment.Operation) bool {
	return isPartOfChangedMethod(added, removed, removedOps)
}

// isPartOfChangedMethod compares the calls of source with those of target
// and of the sibling operations target calls.
func isPartOfChangedMethod(source, target *fragment.Operation, siblings []*fragment.Operation) bool {
	sourceCalls := newInvocationSet(source.AllInvocations()...)
	targetCalls := newInvocationSet(target.AllInvocations()...)
	if sourceCalls.len() == 0 {
		return false
	}

	intersection := sourceCalls.retain(targetCalls)
	missing := sourceCalls.len() - intersection.len()

	calledBySiblings := newInvocationSet()
	for _, inv := range targetCalls.list() {
		if intersection.contains(inv) {
			continue
		}
		for _, op := range siblings {
			if op == target || op.Body == nil || !inv.MatchesOperation(op) {
				continue
			}
			for _, nested := range op.AllInvocations() {
				calledBySiblings.add(nested)
			}
		}
	}

	foundInSiblings := sourceCalls.retain(calledBySiblings)
	remaining := 0
	for _, inv := range sourceCalls.subtract(intersection, foundInSiblings).list() {
		if !strings.HasPrefix(inv.Name, "get") {
			remaining++
		}
	}

	found := foundInSiblings.len()
	return found > missing-found || found > remaining
}

// argumentsOf maps the callee's parameters to the texts passed at inv.
// Keyword arguments bind by name, positional ones by position.
func argumentsOf(callee *fragment.Operation, inv *fragment.Invocation) map[string]string {
	params := callee.ExplicitParameters()
	bound := make(map[string]string)
	position := 0
	for _, arg := range inv.Arguments {
		if name, value, ok := keywordArgument(arg); ok {
			bound[name] = value
			continue
		}
		if strings.HasPrefix(arg, "*") {
			position++
			continue
		}
		if position < len(params) && params[position].Kind == fragment.ParameterPositional {
			bound[params[position].Name] = arg
		}
		position++
	}
	for name, value := range bound {
		if name == value {
			delete(bound, name)
		}
	}
	return bound
}

func keywordArgument(arg string) (name, value string, ok bool) {
	idx := strings.Index(arg, "=")
	if idx <= 0 || idx == len(arg)-1 || arg[idx+1] == '=' || strings.ContainsAny(arg[idx-1:idx], "!<>=") {
		return "", "", false
	}
	name = strings.TrimSpace(arg[:idx])
	for _, c := range name {
		if !(c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return "", "", false
		}
	}
	return name, strings.TrimSpace(arg[idx+1:]), true
}

// ExtractDetector finds operations extracted from, or inlined into, the
// operations of finished mappers.
type ExtractDetector struct {
	opts MapperOptions
}

// NewExtractDetector creates a detector whose nested mappers share the
// given options
func NewExtractDetector(opts MapperOptions) *ExtractDetector {
	opts.Nested = true
	return &ExtractDetector{opts: opts}
}

// DetectExtracted aligns the statements parent left unmapped on the before
// side with the body of added, for the first call to added in parent's
// after body. It returns nil when parent does not call added or when too
// few statements align.
func (d *ExtractDetector) DetectExtracted(ctx context.Context, parent *BodyMapper, added *fragment.Operation) (*Refactoring, *BodyMapper, error) {
	calls := parent.Operation2.InvocationsTo(added)
	if len(calls) == 0 || added.Body == nil {
		return nil, nil, nil
	}
	leaves1 := parent.NonMappedLeavesT1()
	inner1 := parent.NonMappedInnerNodesT1()
	if countable(leaves1)+countable(inner1) == 0 {
		return nil, nil, nil
	}
	leaves2, inner2 := bodyFragments(added.Body)

	opts := d.opts
	opts.Env = d.env(parent)
	opts.Env.Argumentize2 = argumentsOf(added, calls[0])
	child, err := newMapper(ctx, parent.Operation1, added, leaves1, leaves2, inner1, inner2, opts, nil)
	if err != nil {
		return nil, nil, err
	}
	child.CallSite = calls[0]
	if !acceptsExtracted(child, child.NonMappedElementsT2()) {
		return nil, nil, nil
	}
	return &Refactoring{
		Type:         ExtractOperation,
		Before:       parent.Operation1.QualifiedName(),
		After:        added.QualifiedName(),
		Operation1:   parent.Operation1,
		Operation2:   added,
		Mappings:     child.AllMappings(),
		Replacements: child.Replacements().Items(),
	}, child, nil
}

// DetectInlined aligns the body of removed with the statements parent left
// unmapped on the after side, for the first call to removed in parent's
// before body.
func (d *ExtractDetector) DetectInlined(ctx context.Context, parent *BodyMapper, removed *fragment.Operation) (*Refactoring, *BodyMapper, error) {
	calls := parent.Operation1.InvocationsTo(removed)
	if len(calls) == 0 || removed.Body == nil {
		return nil, nil, nil
	}
	leaves2 := parent.NonMappedLeavesT2()
	inner2 := parent.NonMappedInnerNodesT2()
	if countable(leaves2)+countable(inner2) == 0 {
		return nil, nil, nil
	}
	leaves1, inner1 := bodyFragments(removed.Body)

	opts := d.opts
	opts.Env = d.env(parent)
	opts.Env.Argumentize1 = argumentsOf(removed, calls[0])
	child, err := newMapper(ctx, removed, parent.Operation2, leaves1, leaves2, inner1, inner2, opts, nil)
	if err != nil {
		return nil, nil, err
	}
	child.CallSite = calls[0]
	if !acceptsExtracted(child, child.NonMappedElementsT1()) {
		return nil, nil, nil
	}
	return &Refactoring{
		Type:         InlineOperation,
		Before:       removed.QualifiedName(),
		After:        parent.Operation2.QualifiedName(),
		Operation1:   removed,
		Operation2:   parent.Operation2,
		Mappings:     child.AllMappings(),
		Replacements: child.Replacements().Items(),
	}, child, nil
}

func (d *ExtractDetector) env(parent *BodyMapper) replacement.Env {
	env := d.opts.Env
	env.AddedParameters = parent.engine.Env().AddedParameters
	env.RemovedParameters = parent.engine.Env().RemovedParameters
	return env
}

// acceptsExtracted requires some aligned statements and that the callee
// side is mostly covered
func acceptsExtracted(child *BodyMapper, nonMappedCallee int) bool {
	mapped := child.MappingsWithoutBlocks()
	if mapped < constants.MinExtractedMappings {
		return false
	}
	return child.ExactMatches() > 0 || mapped >= nonMappedCallee
}

package replacement

import (
	"fmt"
	"strings"

	"github.com/ludo-technologies/pyrefminer/internal/fragment"
)

// Replacement describes one substitution that turns part of a fragment
// before into part of a fragment after. Equality is by (Before, After, Kind).
type Replacement struct {
	Before string
	After  string
	Kind   Kind

	InvokedBefore *fragment.Invocation
	InvokedAfter  *fragment.Invocation
	CreatedBefore *fragment.ObjectCreation
	CreatedAfter  *fragment.ObjectCreation

	// Merged lists the variables folded into After (MergeVariables);
	// Split lists the variables After was split into (SplitVariable).
	Merged []string
	Split  []string
}

// New creates a plain replacement
func New(before, after string, kind Kind) *Replacement {
	return &Replacement{Before: before, After: after, Kind: kind}
}

// NewInvocation creates a replacement carrying both call sites
func NewInvocation(before, after *fragment.Invocation, kind Kind) *Replacement {
	return &Replacement{
		Before:        before.Text,
		After:         after.Text,
		Kind:          kind,
		InvokedBefore: before,
		InvokedAfter:  after,
	}
}

// NewCreation creates a replacement carrying both object creations
func NewCreation(before, after *fragment.ObjectCreation, kind Kind) *Replacement {
	return &Replacement{
		Before:        before.Text,
		After:         after.Text,
		Kind:          kind,
		CreatedBefore: before,
		CreatedAfter:  after,
	}
}

// Key identifies the replacement for equality and set membership
func (r *Replacement) Key() string {
	return r.Before + "\x00" + r.After + "\x00" + r.Kind.String()
}

// Equal reports whether both replacements have the same before, after and kind
func (r *Replacement) Equal(other *Replacement) bool {
	return other != nil && r.Before == other.Before && r.After == other.After && r.Kind == other.Kind
}

// SameSubstitution reports whether both replacements swap the same strings,
// regardless of kind
func (r *Replacement) SameSubstitution(other *Replacement) bool {
	return other != nil && r.Before == other.Before && r.After == other.After
}

// String returns "KIND: before -> after"
func (r *Replacement) String() string {
	return fmt.Sprintf("%s: %s -> %s", r.Kind, strings.TrimSpace(r.Before), strings.TrimSpace(r.After))
}

// Set is an insertion-ordered set of replacements
type Set struct {
	items []*Replacement
	index map[string]int
}

// NewSet creates a set holding the given replacements
func NewSet(rs ...*Replacement) *Set {
	s := &Set{index: make(map[string]int)}
	for _, r := range rs {
		s.Add(r)
	}
	return s
}

// Add inserts r unless an equal replacement is present
func (s *Set) Add(r *Replacement) bool {
	if r == nil {
		return false
	}
	if s.index == nil {
		s.index = make(map[string]int)
	}
	key := r.Key()
	if _, ok := s.index[key]; ok {
		return false
	}
	s.index[key] = len(s.items)
	s.items = append(s.items, r)
	return true
}

// AddAll inserts every replacement of other
func (s *Set) AddAll(other *Set) {
	if other == nil {
		return
	}
	for _, r := range other.items {
		s.Add(r)
	}
}

// Contains reports whether an equal replacement is present
func (s *Set) Contains(r *Replacement) bool {
	if s == nil || r == nil {
		return false
	}
	_, ok := s.index[r.Key()]
	return ok
}

// Len returns the number of replacements
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// IsEmpty reports whether the set has no replacements
func (s *Set) IsEmpty() bool {
	return s.Len() == 0
}

// Items returns the replacements in insertion order
func (s *Set) Items() []*Replacement {
	if s == nil {
		return nil
	}
	return append([]*Replacement(nil), s.items...)
}

// OfKind returns the replacements of the given kinds, in insertion order
func (s *Set) OfKind(kinds ...Kind) []*Replacement {
	var out []*Replacement
	for _, r := range s.Items() {
		for _, k := range kinds {
			if r.Kind == k {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// HasKind reports whether any replacement has one of the given kinds
func (s *Set) HasKind(kinds ...Kind) bool {
	return len(s.OfKind(kinds...)) > 0
}

// Signature returns the kinds of the replacements in insertion order.
// Two sets with equal signatures substitute the same categories.
func (s *Set) Signature() string {
	var sb strings.Builder
	for i, r := range s.Items() {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(r.Kind.String())
	}
	return sb.String()
}

// Clone returns a copy of the set
func (s *Set) Clone() *Set {
	c := NewSet()
	c.AddAll(s)
	return c
}

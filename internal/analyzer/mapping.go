package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ludo-technologies/pyrefminer/internal/fragment"
	"github.com/ludo-technologies/pyrefminer/internal/replacement"
)

// Mapping is a committed pairing of a before fragment with an after fragment
type Mapping struct {
	Fragment1    *fragment.Fragment
	Fragment2    *fragment.Fragment
	Replacements *replacement.Set
	exact        bool
	editDistance int
}

func newMapping(f1, f2 *fragment.Fragment, set *replacement.Set, identical bool) *Mapping {
	if set == nil {
		set = replacement.NewSet()
	}
	return &Mapping{
		Fragment1:    f1,
		Fragment2:    f2,
		Replacements: set,
		exact:        identical && set.IsEmpty(),
	}
}

// IsExact reports whether the fragments are identical without replacements
func (m *Mapping) IsExact() bool {
	return m.exact
}

// IsComposite reports whether the mapping pairs two composite statements
func (m *Mapping) IsComposite() bool {
	return m.Fragment1.IsComposite()
}

// IsCountable reports whether the mapping counts toward mapper statistics
func (m *Mapping) IsCountable() bool {
	return m.Fragment1.IsCountable() && m.Fragment2.IsCountable()
}

// String returns "before ==> after"
func (m *Mapping) String() string {
	return fmt.Sprintf("%s ==> %s", trimmed(m.Fragment1.Text), trimmed(m.Fragment2.Text))
}

// candidate is a potential mapping with its ranking dimensions
type candidate struct {
	mapping *Mapping
	// score is the child matching score of composite pairs, 0 for leaves
	score     float64
	distance  float64
	depthDiff int
	indexDiff int
}

// candidateLess orders candidates: higher child matching score, then lower
// normalized edit distance, then smaller depth difference, then smaller
// sibling index difference. Lexicographic over totally ordered keys, hence a
// strict weak ordering.
func candidateLess(a, b *candidate) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	if a.distance != b.distance {
		return a.distance < b.distance
	}
	if a.depthDiff != b.depthDiff {
		return a.depthDiff < b.depthDiff
	}
	return a.indexDiff < b.indexDiff
}

// sortCandidates sorts in place; ties keep discovery order
func sortCandidates(cands []*candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		return candidateLess(cands[i], cands[j])
	})
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}

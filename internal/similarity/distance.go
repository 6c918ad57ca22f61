package similarity

import (
	"context"
	"unicode/utf8"

	"github.com/agext/levenshtein"

	"github.com/ludo-technologies/pyrefminer/domain"
)

// EditDistance computes the Levenshtein distance between two strings.
// It fails with a timeout error when ctx is done.
func EditDistance(ctx context.Context, s1, s2 string) (int, error) {
	if err := domain.CheckTimeout(ctx); err != nil {
		return 0, err
	}
	if s1 == s2 {
		return 0, nil
	}
	return levenshtein.Distance(s1, s2, nil), nil
}

// BoundedEditDistance computes the Levenshtein distance, giving up once the
// result is known to exceed maxDistance. In that case it returns -1.
// A negative maxDistance means unbounded.
func BoundedEditDistance(ctx context.Context, s1, s2 string, maxDistance int) (int, error) {
	if err := domain.CheckTimeout(ctx); err != nil {
		return 0, err
	}
	if s1 == s2 {
		return 0, nil
	}
	if maxDistance < 0 {
		return levenshtein.Distance(s1, s2, nil), nil
	}
	if maxDistance == 0 {
		return -1, nil
	}
	n1, n2 := utf8.RuneCountInString(s1), utf8.RuneCountInString(s2)
	if absInt(n1-n2) > maxDistance {
		return -1, nil
	}
	// With MaxCost set, a result above the bound proves the distance exceeds
	// it, but a result within the bound may be a lower bound only.
	if levenshtein.Distance(s1, s2, levenshtein.NewParams().MaxCost(maxDistance)) > maxDistance {
		return -1, nil
	}
	d := levenshtein.Distance(s1, s2, nil)
	if d > maxDistance {
		return -1, nil
	}
	return d, nil
}

// Normalize divides a raw distance by the longer string length in runes
func Normalize(distance int, s1, s2 string) float64 {
	maxLen := maxInt(utf8.RuneCountInString(s1), utf8.RuneCountInString(s2))
	if maxLen == 0 {
		return 0.0
	}
	return float64(distance) / float64(maxLen)
}

// NormalizedDistance computes the edit distance divided by the longer length
func NormalizedDistance(ctx context.Context, s1, s2 string) (float64, error) {
	d, err := EditDistance(ctx, s1, s2)
	if err != nil {
		return 0, err
	}
	return Normalize(d, s1, s2), nil
}

// NameDistance is the normalized distance between two identifiers.
// It does not observe cancellation; identifiers are short.
func NameDistance(name1, name2 string) float64 {
	if name1 == name2 {
		return 0.0
	}
	return Normalize(levenshtein.Distance(name1, name2, nil), name1, name2)
}

// NameEditDistance is the raw edit distance between two identifiers
func NameEditDistance(name1, name2 string) int {
	if name1 == name2 {
		return 0
	}
	return levenshtein.Distance(name1, name2, nil)
}

// CommonPrefix returns the longest common prefix of two strings
func CommonPrefix(s1, s2 string) string {
	n := minInt(len(s1), len(s2))
	i := 0
	for i < n && s1[i] == s2[i] {
		i++
	}
	return s1[:i]
}

// CommonSuffix returns the longest common suffix of two strings
func CommonSuffix(s1, s2 string) string {
	n := minInt(len(s1), len(s2))
	i := 0
	for i < n && s1[len(s1)-1-i] == s2[len(s2)-1-i] {
		i++
	}
	return s1[len(s1)-i:]
}

// DiffCore strips the common prefix and suffix and returns the differing
// middles. The suffix is never allowed to overlap the prefix.
func DiffCore(s1, s2 string) (prefix, middle1, middle2, suffix string) {
	prefix = CommonPrefix(s1, s2)
	rest1, rest2 := s1[len(prefix):], s2[len(prefix):]
	suffix = CommonSuffix(rest1, rest2)
	middle1 = rest1[:len(rest1)-len(suffix)]
	middle2 = rest2[:len(rest2)-len(suffix)]
	return prefix, middle1, middle2, suffix
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func absInt(a int) int {
	if a < 0 {
		return -a
	}
	return a
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

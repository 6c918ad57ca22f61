package replacement

import (
	"strings"
	"unicode"
)

// PerformReplacement substitutes every whole-token occurrence of before in s.
// An occurrence starting with an identifier character must not follow an
// identifier character or a dot; one ending with an identifier character must
// not be followed by one. "x" is therefore not replaced inside "xs" or "self.x".
func PerformReplacement(s, before, after string) string {
	if before == "" || before == after || !strings.Contains(s, before) {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	i := 0
	for i < len(s) {
		j := strings.Index(s[i:], before)
		if j < 0 {
			break
		}
		start := i + j
		end := start + len(before)
		if tokenBoundary(s, start, end, before) {
			sb.WriteString(s[i:start])
			sb.WriteString(after)
			i = end
			continue
		}
		sb.WriteString(s[i : start+1])
		i = start + 1
	}
	sb.WriteString(s[i:])
	return sb.String()
}

// Occurrences counts the whole-token occurrences of token in s
func Occurrences(s, token string) int {
	if token == "" {
		return 0
	}
	n := 0
	i := 0
	for i < len(s) {
		j := strings.Index(s[i:], token)
		if j < 0 {
			break
		}
		start := i + j
		end := start + len(token)
		if tokenBoundary(s, start, end, token) {
			n++
			i = end
			continue
		}
		i = start + 1
	}
	return n
}

func tokenBoundary(s string, start, end int, token string) bool {
	if isIdentByte(token[0]) && start > 0 {
		prev := s[start-1]
		if isIdentByte(prev) || prev == '.' {
			return false
		}
	}
	if isIdentByte(token[len(token)-1]) && end < len(s) && isIdentByte(s[end]) {
		return false
	}
	return true
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b >= 0x80
}

// IsConstantName reports whether name looks like a module constant (ALL_CAPS)
func IsConstantName(name string) bool {
	if len(name) < 2 {
		return false
	}
	hasLetter := false
	for _, r := range name {
		switch {
		case unicode.IsUpper(r):
			hasLetter = true
		case r == '_' || unicode.IsDigit(r):
		default:
			return false
		}
	}
	return hasLetter
}

// surroundings returns the characters immediately around the first
// whole-token occurrence of token in s, or ok=false when it does not occur.
func surroundings(s, token string) (before, after byte, ok bool) {
	i := 0
	for i < len(s) {
		j := strings.Index(s[i:], token)
		if j < 0 {
			return 0, 0, false
		}
		start := i + j
		end := start + len(token)
		if tokenBoundary(s, start, end, token) {
			if start > 0 {
				before = s[start-1]
			}
			if end < len(s) {
				after = s[end]
			}
			return before, after, true
		}
		i = start + 1
	}
	return 0, 0, false
}

var invertedOperators = map[string]string{
	"==":  "!=",
	"!=":  "==",
	"<":   ">",
	">":   "<",
	"<=":  ">=",
	">=":  "<=",
	"and": "or",
	"or":  "and",
	"is":  "is not",
	"in":  "not in",
}

// IsInversion reports whether op2 is the inverse of op1
func IsInversion(op1, op2 string) bool {
	op1, op2 = strings.TrimSpace(op1), strings.TrimSpace(op2)
	if inv, ok := invertedOperators[op1]; ok && inv == op2 {
		return true
	}
	if inv, ok := invertedOperators[op2]; ok && inv == op1 {
		return true
	}
	return false
}

func isOperatorByte(b byte) bool {
	return strings.IndexByte("=!<>", b) >= 0
}

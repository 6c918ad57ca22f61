package similarity

import (
	"regexp"
	"strings"
	"unicode"
)

// Precompiled regex for whitespace normalization (avoid recompilation on each call)
var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeStatement removes comments and collapses whitespace of a
// statement rendered from source.
func NormalizeStatement(content string) string {
	if content == "" {
		return ""
	}
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = RemoveLineComment(line)
	}
	return NormalizeWhitespace(strings.Join(lines, " "))
}

// NormalizeWhitespace collapses runs of whitespace and trims the result.
// Spaces directly inside brackets and before commas are dropped so that
// "foo( a , b )" and "foo(a, b)" render the same.
func NormalizeWhitespace(content string) string {
	content = whitespaceRegex.ReplaceAllString(content, " ")
	content = strings.TrimSpace(content)
	if !strings.ContainsAny(content, "([{,") {
		return content
	}

	var sb strings.Builder
	sb.Grow(len(content))
	inString := rune(0)
	runes := []rune(content)
	for i, ch := range runes {
		if inString != 0 {
			sb.WriteRune(ch)
			if ch == inString && (i == 0 || runes[i-1] != '\\') {
				inString = 0
			}
			continue
		}
		if ch == '"' || ch == '\'' {
			inString = ch
			sb.WriteRune(ch)
			continue
		}
		if ch == ' ' {
			prev, next := rune(0), rune(0)
			if i > 0 {
				prev = runes[i-1]
			}
			if i+1 < len(runes) {
				next = runes[i+1]
			}
			if prev == '(' || prev == '[' || prev == '{' ||
				next == ')' || next == ']' || next == '}' || next == ',' {
				continue
			}
		}
		sb.WriteRune(ch)
	}
	return sb.String()
}

// RemoveLineComment removes # comments from a line, respecting strings
func RemoveLineComment(line string) string {
	inString := false
	stringChar := rune(0)
	escaped := false

	for i, ch := range line {
		if escaped {
			escaped = false
			continue
		}

		if ch == '\\' {
			escaped = true
			continue
		}

		if !inString {
			if ch == '"' || ch == '\'' {
				inString = true
				stringChar = ch
			} else if ch == '#' {
				return strings.TrimRightFunc(line[:i], unicode.IsSpace)
			}
		} else if ch == stringChar {
			inString = false
		}
	}

	return line
}

package matcher

import (
	"strings"
	"unicode"
)

// NormalizeCode canonicalizes an account code for comparison: lower-cases,
// strips separator characters (hyphen, underscore, dot, space, slash), and
// removes leading zeros from purely numeric results so that "0001000" and
// "1000" compare equal.
//
// The function is deterministic and idempotent; empty input yields empty
// output.
func NormalizeCode(code string) string {
	var b strings.Builder
	b.Grow(len(code))

	for _, r := range strings.ToLower(code) {
		switch r {
		case '-', '_', '.', ' ', '/':
			continue
		}
		b.WriteRune(r)
	}

	normalized := b.String()
	if normalized == "" {
		return ""
	}

	if isNumeric(normalized) {
		trimmed := strings.TrimLeft(normalized, "0")
		if trimmed == "" {
			// All zeros collapse to a single zero
			return "0"
		}
		return trimmed
	}

	return normalized
}

// foldString prepares a string for fuzzy comparison: lower-case with all
// non-alphanumeric runes removed, so case, punctuation, and whitespace
// differences do not count as edits.
func foldString(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}

	return b.String()
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

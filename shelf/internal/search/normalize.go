package search

import (
	"strings"
	"unicode"
)

// tokens keeps letters, digits, underscore, hyphen and plus; every other
// rune becomes a separator.
func tokens(q string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_', r == '-', r == '+':
			return r
		default:
			return ' '
		}
	}, q)
	return strings.Fields(cleaned)
}

func quote(tok string) string {
	return `"` + tok + `"`
}

// Normalize turns a free-text query into an FTS5 expression: "" when no
// token survives, a prefix term for a single token, a quoted phrase for
// several.
func Normalize(q string) string {
	toks := tokens(q)
	switch len(toks) {
	case 0:
		return ""
	case 1:
		return quote(toks[0]) + "*"
	default:
		return quote(strings.Join(toks, " "))
	}
}

// PrefixOr is the recall-widening form: every token as a prefix term,
// ORed together.
func PrefixOr(q string) string {
	toks := tokens(q)
	terms := make([]string, len(toks))
	for i, t := range toks {
		terms[i] = quote(t) + "*"
	}
	return strings.Join(terms, " OR ")
}

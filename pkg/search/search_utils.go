package search

import (
	"strings"
	"unicode"
)

// matchText scores 2 per occurrence of the whole query and 0.5 per
// occurrence of each query term.
func matchText(text, query string, terms []string) (score float64, exact, partial int) {
	if n := strings.Count(text, query); n > 0 {
		score += float64(n) * 2.0
		exact += n
	}
	for _, term := range terms {
		if n := strings.Count(text, term); n > 0 {
			score += float64(n) * 0.5
			partial += n
		}
	}
	return score, exact, partial
}

// tokenize splits text into word tokens longer than one character.
func tokenize(text string) []string {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	tokens := words[:0]
	for _, w := range words {
		if len([]rune(w)) > 1 {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

func lowerAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	return out
}

func hasAll(set map[string]bool, values []string) bool {
	for _, v := range values {
		if !set[v] {
			return false
		}
	}
	return true
}

func hasAny(set map[string]bool, values []string) bool {
	for _, v := range values {
		if set[v] {
			return true
		}
	}
	return false
}

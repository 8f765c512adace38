package scoring

import (
	"net/url"
	"strings"
	"unicode"
)

// Heuristic scores a pair without a backend: same host and path 0.9, same
// host 0.6, otherwise keyword overlap of the content scaled into [0, 0.5].
// It is deterministic and symmetric.
func Heuristic(a, b Item) float64 {
	ua, ub := parseURL(a.URL), parseURL(b.URL)
	if ua != nil && ub != nil && ua.Host != "" && strings.EqualFold(ua.Host, ub.Host) {
		if ua.Path == ub.Path {
			return 0.9
		}
		return 0.6
	}
	return 0.5 * jaccard(keywords(a.Content), keywords(b.Content))
}

// DomainFallback is used when the backend fails: same host 0.7, else 0.1.
func DomainFallback(a, b Item) float64 {
	if SameHost(a.URL, b.URL) {
		return 0.7
	}
	return 0.1
}

// SameHost reports whether both URLs parse and share a non-empty host.
func SameHost(a, b string) bool {
	ua, ub := parseURL(a), parseURL(b)
	return ua != nil && ub != nil && ua.Host != "" && strings.EqualFold(ua.Host, ub.Host)
}

// Host returns the lower-cased host of raw, or "" when it does not parse.
func Host(raw string) string {
	u := parseURL(raw)
	if u == nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

func parseURL(raw string) *url.URL {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	return u
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true, "not": true,
	"you": true, "all": true, "can": true, "her": true, "was": true, "one": true,
	"our": true, "out": true, "has": true, "have": true, "this": true, "that": true,
	"with": true, "from": true, "they": true, "will": true, "what": true, "when": true,
	"your": true, "which": true, "their": true, "there": true, "been": true, "into": true,
	"more": true, "also": true, "than": true, "then": true, "them": true, "some": true,
}

// keywords extracts the lower-cased content words longer than two letters.
func keywords(text string) map[string]bool {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]bool, len(words))
	for _, w := range words {
		if len([]rune(w)) > 2 && !stopWords[w] {
			set[w] = true
		}
	}
	return set
}

// jaccard calculates |A ∩ B| / |A ∪ B|.
func jaccard(set1, set2 map[string]bool) float64 {
	intersection := 0
	union := len(set2)
	for key := range set1 {
		if set2[key] {
			intersection++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

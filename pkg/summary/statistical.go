package summary

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/dd0wney/cluso-tabgraph/pkg/scoring"
)

// StatisticalSummarizer describes a cluster from its own text, without a
// backend: the most widespread keywords become the title and tags.
type StatisticalSummarizer struct {
	MaxKeywords int
}

// NewStatisticalSummarizer creates a statistical summarizer with default settings
func NewStatisticalSummarizer() *StatisticalSummarizer {
	return &StatisticalSummarizer{MaxKeywords: maxTags}
}

// Summarize implements ClusterSummarizer.
func (s *StatisticalSummarizer) Summarize(ctx context.Context, documents []Document) (*ClusterSummary, error) {
	if len(documents) == 0 {
		return emptyCluster(), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	keywords := topKeywords(documents, max(s.MaxKeywords, minTags))
	hostWords := hostKeywords(documents)

	title := fallbackTitle(hostWords)
	if len(keywords) > 0 {
		words := append([]string(nil), keywords[:min(2, len(keywords))]...)
		for i, w := range words {
			words[i] = capitalize(w)
		}
		title = CleanTitle(strings.Join(words, " "))
	}

	hosts := make([]string, 0, 3)
	seen := make(map[string]bool)
	for _, doc := range documents {
		if h := scoring.Host(doc.URL); h != "" && !seen[h] && len(hosts) < 3 {
			seen[h] = true
			hosts = append(hosts, h)
		}
	}

	text := fmt.Sprintf("%d pages", len(documents))
	if len(documents) == 1 {
		text = "1 page"
	}
	if len(hosts) > 0 {
		text += " from " + strings.Join(hosts, ", ")
	}
	if len(keywords) > 0 {
		text += " about " + strings.Join(keywords[:min(3, len(keywords))], ", ")
	}

	return &ClusterSummary{
		Title:    title,
		Summary:  text + ".",
		Tags:     padTags(append([]string(nil), keywords...), hostWords),
		DocCount: len(documents),
		URLs:     memberURLs(documents),
	}, nil
}

var commonWords = map[string]bool{
	"this": true, "that": true, "with": true, "from": true, "have": true, "your": true,
	"will": true, "what": true, "when": true, "which": true, "their": true, "there": true,
	"about": true, "into": true, "more": true, "also": true, "than": true, "then": true,
	"them": true, "some": true, "they": true, "been": true, "were": true, "page": true,
	"pages": true, "home": true, "https": true, "http": true, "www": true,
}

// topKeywords ranks words by the number of documents mentioning them, then
// by total frequency, then alphabetically.
func topKeywords(documents []Document, limit int) []string {
	docFreq := make(map[string]int)
	termFreq := make(map[string]int)

	for _, doc := range documents {
		inDoc := make(map[string]bool)
		words := strings.FieldsFunc(strings.ToLower(doc.Title+" "+doc.Content), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, w := range words {
			if len([]rune(w)) <= 3 || commonWords[w] || !hasLetter(w) {
				continue
			}
			termFreq[w]++
			if !inDoc[w] {
				inDoc[w] = true
				docFreq[w]++
			}
		}
	}

	words := make([]string, 0, len(docFreq))
	for w := range docFreq {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		a, b := words[i], words[j]
		if docFreq[a] != docFreq[b] {
			return docFreq[a] > docFreq[b]
		}
		if termFreq[a] != termFreq[b] {
			return termFreq[a] > termFreq[b]
		}
		return a < b
	})

	if len(words) > limit {
		words = words[:limit]
	}
	return words
}

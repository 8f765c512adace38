package search

import (
	"sort"
	"strings"

	"github.com/dd0wney/cluso-tabgraph/pkg/summary"
)

// Search scores every cluster against query and returns those scoring at
// least minScore, best first. Equal scores keep input order. A positive
// maxResults caps the result count.
func (s *Searcher) Search(clusters []*summary.ClusterSummary, query string, minScore float64, maxResults int) []Result {
	indexes := make([]int, len(clusters))
	for i := range clusters {
		indexes[i] = i
	}
	return s.search(clusters, indexes, query, minScore, maxResults)
}

// SearchWithFilters applies filters before searching.
func (s *Searcher) SearchWithFilters(clusters []*summary.ClusterSummary, query string, filters Filters, minScore float64, maxResults int) []Result {
	required := lowerAll(filters.RequiredTags)
	excluded := lowerAll(filters.ExcludedTags)

	indexes := make([]int, 0, len(clusters))
	for i, c := range clusters {
		if filters.MinDocCount > 0 && c.DocCount < filters.MinDocCount {
			continue
		}
		if filters.MaxDocCount > 0 && c.DocCount > filters.MaxDocCount {
			continue
		}

		tags := make(map[string]bool, len(c.Tags))
		for _, t := range c.Tags {
			tags[strings.ToLower(t)] = true
		}
		if !hasAll(tags, required) || hasAny(tags, excluded) {
			continue
		}
		indexes = append(indexes, i)
	}

	return s.search(clusters, indexes, query, minScore, maxResults)
}

func (s *Searcher) search(clusters []*summary.ClusterSummary, indexes []int, query string, minScore float64, maxResults int) []Result {
	if query == "" || len(indexes) == 0 {
		return []Result{}
	}

	q := s.fold(query)
	terms := tokenize(q)

	results := make([]Result, 0, len(indexes))
	for _, i := range indexes {
		score, details := s.scoreCluster(clusters[i], q, terms)
		if score >= minScore {
			results = append(results, Result{
				Index:   i,
				Cluster: clusters[i],
				Score:   score,
				Details: details,
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}

func (s *Searcher) scoreCluster(c *summary.ClusterSummary, query string, terms []string) (float64, MatchDetails) {
	var details MatchDetails
	total := 0.0

	// Title
	score, exact, partial := matchText(s.fold(c.Title), query, terms)
	total += score * s.TitleWeight
	details.TitleMatches = exact + partial
	details.ExactMatches += exact
	details.PartialMatches += partial

	// Tags
	tagScore := 0.0
	for _, raw := range c.Tags {
		tag := s.fold(raw)
		switch {
		case tag == query:
			tagScore += 2.0
			details.TagMatches++
			details.ExactMatches++
		case strings.Contains(tag, query):
			tagScore += 1.5
			details.TagMatches++
			details.PartialMatches++
		default:
			for _, term := range terms {
				if strings.Contains(tag, term) {
					tagScore += 0.5
					details.TagMatches++
					details.PartialMatches++
				}
			}
		}
	}
	total += tagScore * s.TagWeight

	// Summary
	score, exact, partial = matchText(s.fold(c.Summary), query, terms)
	total += score * s.SummaryWeight
	details.SummaryMatches = exact + partial
	details.ExactMatches += exact
	details.PartialMatches += partial

	// URLs, averaged so large clusters are not favoured
	if len(c.URLs) > 0 {
		urlScore := 0.0
		for _, u := range c.URLs {
			score, exact, partial = matchText(s.fold(u), query, terms)
			urlScore += score
			details.URLMatches += exact + partial
			details.ExactMatches += exact
			details.PartialMatches += partial
		}
		total += urlScore / float64(len(c.URLs)) * s.URLWeight
	}

	return total, details
}

func (s *Searcher) fold(text string) string {
	if s.CaseSensitive {
		return text
	}
	return strings.ToLower(text)
}

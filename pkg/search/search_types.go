// Package search ranks cluster summaries against a text query. Matches in
// titles count most, then tags, summaries and member URLs.
package search

import (
	"fmt"

	"github.com/dd0wney/cluso-tabgraph/pkg/summary"
)

// Searcher scores clusters with per-field weights.
type Searcher struct {
	TitleWeight   float64
	TagWeight     float64
	SummaryWeight float64
	URLWeight     float64
	CaseSensitive bool
}

// NewSearcher returns a searcher with the default weights.
func NewSearcher() *Searcher {
	return &Searcher{
		TitleWeight:   3.0,
		TagWeight:     2.5,
		SummaryWeight: 1.5,
		URLWeight:     1.0,
	}
}

// MatchDetails counts what matched in a cluster.
type MatchDetails struct {
	TitleMatches   int `json:"title_matches"`
	TagMatches     int `json:"tag_matches"`
	SummaryMatches int `json:"summary_matches"`
	URLMatches     int `json:"url_matches"`
	ExactMatches   int `json:"exact_matches"`
	PartialMatches int `json:"partial_matches"`
}

// Result is one ranked cluster. Index is the cluster's position in the
// slice passed to Search.
type Result struct {
	Index   int
	Cluster *summary.ClusterSummary
	Score   float64
	Details MatchDetails
}

// String implements fmt.Stringer
func (r Result) String() string {
	return fmt.Sprintf("%s (score: %.3f)", r.Cluster.Title, r.Score)
}

// Filters narrows the clusters considered by SearchWithFilters. Zero values
// disable a filter. Tag comparisons ignore case.
type Filters struct {
	RequiredTags []string
	ExcludedTags []string
	MinDocCount  int
	MaxDocCount  int
}

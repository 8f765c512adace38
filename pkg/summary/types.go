// Package summary describes tab clusters with a short title, a paragraph and
// a few tags. Summaries come from a map-reduce over a completion backend, run
// on a worker pool, and are cached by cluster membership.
package summary

import (
	"fmt"
	"sort"
	"strings"
)

// PendingTitle is shown while a cluster's summary is being computed.
const PendingTitle = "Loading…"

// Document is one cluster member.
type Document struct {
	URL     string `json:"url" yaml:"url"`
	Title   string `json:"title" yaml:"title"`
	Content string `json:"content" yaml:"content"`
}

// ClusterSummary describes a cluster of tabs.
type ClusterSummary struct {
	Title    string   `json:"title"`
	Summary  string   `json:"summary"`
	Tags     []string `json:"tags"`
	DocCount int      `json:"doc_count"`
	URLs     []string `json:"urls"`
}

// String implements fmt.Stringer
func (s *ClusterSummary) String() string {
	return fmt.Sprintf("%s: %s", s.Title, s.Summary)
}

// Result is what Describe hands the renderer. Pending results carry a
// placeholder summary.
type Result struct {
	Summary *ClusterSummary
	Pending bool
}

// Completion reports a finished background job. Exactly one of Summary and
// Err is set.
type Completion struct {
	Key     string
	JobID   string
	Summary *ClusterSummary
	Err     error
}

// Key derives the cache key for a member set: the sorted member URLs joined
// by newlines. Any membership change yields a different key.
func Key(members []Document) string {
	urls := memberURLs(members)
	sort.Strings(urls)
	return strings.Join(urls, "\n")
}

func memberURLs(members []Document) []string {
	urls := make([]string, len(members))
	for i, m := range members {
		urls[i] = m.URL
	}
	return urls
}

// Placeholder is the summary shown while a job is in flight.
func Placeholder(members []Document) *ClusterSummary {
	return &ClusterSummary{
		Title:    PendingTitle,
		Tags:     []string{},
		DocCount: len(members),
		URLs:     memberURLs(members),
	}
}

func emptyCluster() *ClusterSummary {
	return &ClusterSummary{
		Title:   "Empty Cluster",
		Summary: "No documents in this cluster.",
		Tags:    []string{},
		URLs:    []string{},
	}
}

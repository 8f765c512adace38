package tabgraph

import (
	"fmt"
	"maps"

	"github.com/dd0wney/cluso-tabgraph/pkg/algorithms"
	"github.com/dd0wney/cluso-tabgraph/pkg/logging"
	"github.com/dd0wney/cluso-tabgraph/pkg/search"
	"github.com/dd0wney/cluso-tabgraph/pkg/summary"
	"github.com/dd0wney/cluso-tabgraph/pkg/visualization"
)

// Selection is the renderer's current focus. Cluster is -1 when no cluster
// is selected.
type Selection struct {
	Node    string
	Cluster int
}

// NodePositions returns a snapshot of every tab's layout position.
func (e *Engine) NodePositions() map[string]visualization.Position {
	return e.layout.Positions()
}

// ClusterFor returns the cluster of a tab as of the last applied pass.
func (e *Engine) ClusterFor(id string) (int, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cid, ok := e.clusters[id]
	return cid, ok
}

// Centrality returns a tab's centrality in [0, 1], or 0 if unknown.
func (e *Engine) Centrality(id string) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.result == nil {
		return 0
	}
	return e.result.NodeCentrality[id]
}

// ClusterSummary describes a cluster. Until its summary is ready the result
// is Pending with a placeholder title.
func (e *Engine) ClusterSummary(clusterID int) summary.Result {
	return e.summaries.Describe(e.clusterDocuments(clusterID))
}

func (e *Engine) clusterDocuments(clusterID int) []summary.Document {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if clusterID < 0 || clusterID >= len(e.members) {
		return nil
	}
	docs := make([]summary.Document, 0, len(e.members[clusterID]))
	for _, id := range e.members[clusterID] {
		if t, ok := e.byID[id]; ok {
			docs = append(docs, t.document())
		}
	}
	return docs
}

// OnNodeClicked selects a tab and its cluster. Unknown ids are ignored.
func (e *Engine) OnNodeClicked(id string) bool {
	e.mu.Lock()
	if _, ok := e.byID[id]; !ok {
		e.mu.Unlock()
		return false
	}
	cid, ok := e.clusters[id]
	if !ok {
		cid = -1
	}
	e.selection = Selection{Node: id, Cluster: cid}
	e.mu.Unlock()

	e.logger.Debug("Node selected", logging.Tab(id), logging.ClusterID(cid))
	if cid >= 0 {
		e.ClusterSummary(cid)
	}
	return true
}

// OnClusterSelected selects a cluster and requests its summary.
func (e *Engine) OnClusterSelected(clusterID int) bool {
	e.mu.Lock()
	if clusterID < 0 || clusterID >= len(e.members) {
		e.mu.Unlock()
		return false
	}
	e.selection = Selection{Cluster: clusterID}
	e.mu.Unlock()

	e.logger.Debug("Cluster selected", logging.ClusterID(clusterID))
	e.ClusterSummary(clusterID)
	return true
}

// Selected returns the current selection.
func (e *Engine) Selected() Selection {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.selection
}

// Tabs returns the current tab snapshot.
func (e *Engine) Tabs() []Tab {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]Tab(nil), e.tabs...)
}

// Tab looks up a tab in the current snapshot.
func (e *Engine) Tab(id string) (Tab, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.byID[id]
	return t, ok
}

// Clusters returns a copy of the cluster assignment.
func (e *Engine) Clusters() algorithms.ClusterAssignment {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return maps.Clone(e.clusters)
}

// NumClusters returns the number of clusters.
func (e *Engine) NumClusters() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.members)
}

// ClusterMembers returns the tab ids of a cluster in snapshot order.
func (e *Engine) ClusterMembers(clusterID int) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if clusterID < 0 || clusterID >= len(e.members) {
		return nil
	}
	return append([]string(nil), e.members[clusterID]...)
}

// MST returns the spanning structure of the last applied pass, or nil.
func (e *Engine) MST() *algorithms.MSTResult {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.result
}

// ClusterHit is a search result mapped back to its cluster.
type ClusterHit struct {
	ClusterID int
	search.Result
}

// Search ranks the clusters whose summaries are ready. Pending clusters are
// skipped; searching also requests their summaries.
func (e *Engine) Search(query string, filters search.Filters, minScore float64, maxResults int) []ClusterHit {
	n := e.NumClusters()
	ready := make([]*summary.ClusterSummary, 0, n)
	ids := make([]int, 0, n)
	for cid := 0; cid < n; cid++ {
		res := e.ClusterSummary(cid)
		if res.Pending {
			continue
		}
		ready = append(ready, res.Summary)
		ids = append(ids, cid)
	}

	results := e.searcher.SearchWithFilters(ready, query, filters, minScore, maxResults)
	hits := make([]ClusterHit, len(results))
	for i, r := range results {
		hits[i] = ClusterHit{ClusterID: ids[r.Index], Result: r}
	}
	return hits
}

// Visualization assembles the current picture for export.
func (e *Engine) Visualization() *visualization.Visualization {
	tabs := e.Tabs()
	nodes := make([]visualization.NodeInfo, len(tabs))
	for i, t := range tabs {
		nodes[i] = visualization.NodeInfo{ID: t.ID, URL: t.URL, Title: t.Title}
	}

	n := e.NumClusters()
	infos := make([]visualization.ClusterInfo, n)
	for cid := 0; cid < n; cid++ {
		res := e.ClusterSummary(cid)
		infos[cid] = visualization.ClusterInfo{
			ID:      cid,
			Title:   res.Summary.Title,
			Summary: res.Summary.Summary,
			Tags:    res.Summary.Tags,
			Pending: res.Pending,
		}
	}

	return &visualization.Visualization{
		Nodes:     nodes,
		Positions: e.NodePositions(),
		Clusters:  e.Clusters(),
		MST:       e.MST(),
		Summaries: infos,
	}
}

// RequestSummaries asks for every cluster's summary and returns how many are
// still pending. Clusters whose job could not be queued are retried here.
func (e *Engine) RequestSummaries() int {
	pending := 0
	for cid := 0; cid < e.NumClusters(); cid++ {
		if e.ClusterSummary(cid).Pending {
			pending++
		}
	}
	return pending
}

// PendingSummaries returns the number of summary jobs still running.
func (e *Engine) PendingSummaries() int {
	return e.summaries.InFlight()
}

// Static layout kinds accepted by StaticLayout.
const (
	LayoutForce    = "force"
	LayoutCircular = "circular"
	LayoutTree     = "tree"
)

// StaticLayout returns positions for kind. The tree layout hangs every
// cluster from its most central tab along the spanning tree; force returns
// the live simulation fitted to the canvas.
func (e *Engine) StaticLayout(kind string) (map[string]visualization.Position, error) {
	cfg := e.layout.Config()
	tabs := e.Tabs()
	ids := make([]string, len(tabs))
	for i, t := range tabs {
		ids[i] = t.ID
	}

	switch kind {
	case LayoutForce, "":
		return visualization.FitToViewport(e.NodePositions(), cfg.Width, cfg.Height, cfg.Padding), nil
	case LayoutCircular:
		return visualization.NewCircularLayout(cfg).ComputeLayout(ids, nil), nil
	case LayoutTree:
		mst := e.MST()
		if mst == nil {
			return visualization.NewCircularLayout(cfg).ComputeLayout(ids, nil), nil
		}
		return visualization.NewHierarchicalLayout(cfg, e.clusterRoots()).ComputeLayout(ids, mst.Edges), nil
	default:
		return nil, fmt.Errorf("unknown layout %q", kind)
	}
}

// clusterRoots picks the most central member of each cluster, first member
// on ties.
func (e *Engine) clusterRoots() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	roots := make([]string, 0, len(e.members))
	for _, members := range e.members {
		best, bestScore := "", -1.0
		for _, id := range members {
			if s := e.result.NodeCentrality[id]; s > bestScore {
				best, bestScore = id, s
			}
		}
		if best != "" {
			roots = append(roots, best)
		}
	}
	return roots
}

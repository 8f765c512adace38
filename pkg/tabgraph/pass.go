package tabgraph

import (
	"context"
	"time"

	"github.com/dd0wney/cluso-tabgraph/pkg/algorithms"
	"github.com/dd0wney/cluso-tabgraph/pkg/config"
	"github.com/dd0wney/cluso-tabgraph/pkg/logging"
	"github.com/dd0wney/cluso-tabgraph/pkg/scoring"
)

// passResult is the output of one recompute pass over a tab snapshot.
type passResult struct {
	generation uint64
	tabs       []Tab
	byID       map[string]Tab
	ids        []string
	clusters   algorithms.ClusterAssignment
	members    [][]string
	result     *algorithms.MSTResult
	weights    []algorithms.Edge // every pair with a positive score
	duration   time.Duration
	err        error
}

// runPass scores every pair of tabs, clusters them and builds the spanning
// structure. It reads no engine state besides the scorer.
func (e *Engine) runPass(ctx context.Context, gen uint64, tabs []Tab, graph config.GraphConfig) *passResult {
	timer := logging.StartTimer(e.logger, "Recompute pass", logging.Count(len(tabs)))

	ids := make([]string, len(tabs))
	items := make([]scoring.Item, len(tabs))
	byID := make(map[string]Tab, len(tabs))
	for i, t := range tabs {
		ids[i] = t.ID
		items[i] = t.item()
		byID[t.ID] = t
	}

	matrix := e.scorer.ScoreAll(ctx, items)
	if err := ctx.Err(); err != nil {
		e.metrics.RecordPass("cancelled", timer.Elapsed(), len(ids), 0, 0, 0)
		return &passResult{generation: gen, err: err}
	}

	clusters := algorithms.ComputeClusters(ids, matrix.At, graph.ClusterThreshold)

	weights := make([]algorithms.Edge, 0)
	edges := make([]algorithms.Edge, 0)
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			w := matrix.At(i, j)
			if w <= 0 {
				continue
			}
			edge := algorithms.Edge{Node1: ids[i], Node2: ids[j], Weight: w}
			weights = append(weights, edge)
			if w >= graph.MinEdgeWeight {
				edges = append(edges, edge)
			}
		}
	}

	calc := algorithms.NewSpanningTreeCalculator(graph.MinEdgeWeight, algorithms.ParseCentralityBasis(graph.CentralityBasis))
	result := calc.CalculateMST(ids, edges, clusters)

	pass := &passResult{
		generation: gen,
		tabs:       tabs,
		byID:       byID,
		ids:        ids,
		clusters:   clusters,
		members:    algorithms.ClusterMembers(clusters, ids),
		result:     result,
		weights:    weights,
		duration:   timer.Elapsed(),
	}

	timer.End(
		logging.Int("clusters", len(pass.members)),
		logging.Int("edges", len(result.Edges)),
		logging.Int("bridges", len(result.BridgeEdges)),
	)
	return pass
}

// apply installs a pass unless a newer one has been requested since. The
// tab records, clusters and spanning tree change together, so readers never
// join one pass's membership with another snapshot's tabs.
func (e *Engine) apply(pass *passResult) bool {
	e.mu.Lock()
	if pass.generation != e.generation {
		e.mu.Unlock()
		e.metrics.RecordPass("stale", pass.duration, len(pass.ids), 0, 0, 0)
		e.logger.Debug("Discarding stale recompute pass")
		return false
	}
	e.tabs = pass.tabs
	e.byID = pass.byID
	e.clusters = pass.clusters
	e.members = pass.members
	e.result = pass.result
	if e.selection.Node != "" {
		if cid, ok := e.clusters[e.selection.Node]; ok {
			e.selection.Cluster = cid
		} else {
			e.selection = Selection{Cluster: -1}
		}
	}
	e.mu.Unlock()

	e.layout.SetWeights(pass.weights)
	e.metrics.RecordPass("ok", pass.duration, len(pass.ids), len(pass.members),
		len(pass.result.Edges), len(pass.result.BridgeEdges))
	return true
}

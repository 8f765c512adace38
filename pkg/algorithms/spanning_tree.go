package algorithms

import (
	"sort"
)

// CentralityBasis selects which edges feed eigenvector centrality.
type CentralityBasis int

const (
	// CentralityMST ranks nodes over the spanning tree edges only.
	CentralityMST CentralityBasis = iota
	// CentralityFullGraph ranks nodes over every input edge.
	CentralityFullGraph
)

// String implements fmt.Stringer
func (b CentralityBasis) String() string {
	if b == CentralityFullGraph {
		return "full"
	}
	return "mst"
}

// ParseCentralityBasis maps "full" to CentralityFullGraph and anything else
// to CentralityMST.
func ParseCentralityBasis(s string) CentralityBasis {
	if s == "full" {
		return CentralityFullGraph
	}
	return CentralityMST
}

// SpanningTreeCalculator computes maximum spanning trees over tab graphs.
type SpanningTreeCalculator struct {
	MinEdgeWeight float64 // edges below this weight are ignored
	Basis         CentralityBasis
	Centrality    CentralityOptions
}

// NewSpanningTreeCalculator returns a calculator with default centrality options.
func NewSpanningTreeCalculator(minEdgeWeight float64, basis CentralityBasis) *SpanningTreeCalculator {
	return &SpanningTreeCalculator{
		MinEdgeWeight: minEdgeWeight,
		Basis:         basis,
		Centrality:    DefaultCentralityOptions(),
	}
}

// CalculateMST computes the spanning structure of the graph.
//
// With nil clusters it returns the classic maximum spanning forest. Otherwise
// it builds one maximum spanning tree per cluster from intra-cluster edges,
// then adds the strongest edge between every pair of clusters that has any
// connecting edge. Result.Edges holds the cluster trees in ascending cluster
// id followed by the bridges ordered by cluster pair.
func (c *SpanningTreeCalculator) CalculateMST(nodes []string, edges []Edge, clusters ClusterAssignment) *MSTResult {
	if len(nodes) == 0 {
		return &MSTResult{
			Edges:          []Edge{},
			ClusterMSTs:    make(map[int][]Edge),
			BridgeEdges:    []Edge{},
			NodeCentrality: make(map[string]float64),
		}
	}

	filtered := make([]Edge, 0, len(edges))
	for _, e := range edges {
		if e.Weight >= c.MinEdgeWeight {
			filtered = append(filtered, e)
		}
	}

	result := &MSTResult{
		ClusterMSTs: make(map[int][]Edge),
		BridgeEdges: []Edge{},
	}

	if clusters == nil {
		result.Edges = kruskalMaximum(nodes, filtered)
	} else {
		result.Edges = c.hybrid(nodes, filtered, clusters, result)
	}

	for _, e := range result.Edges {
		result.TotalWeight += e.Weight
	}

	basis := result.Edges
	if c.Basis == CentralityFullGraph {
		basis = filtered
	}
	opts := c.Centrality
	if opts.MaxIterations == 0 {
		opts = DefaultCentralityOptions()
	}
	result.NodeCentrality = EigenvectorCentrality(nodes, basis, opts).Scores

	return result
}

func (c *SpanningTreeCalculator) hybrid(nodes []string, edges []Edge, clusters ClusterAssignment, result *MSTResult) []Edge {
	members := make(map[int][]string)
	for _, id := range nodes {
		if cid, ok := clusters[id]; ok {
			members[cid] = append(members[cid], id)
		}
	}

	clusterIDs := make([]int, 0, len(members))
	for cid := range members {
		clusterIDs = append(clusterIDs, cid)
	}
	sort.Ints(clusterIDs)

	intra := make(map[int][]Edge)
	for _, e := range edges {
		c1, ok1 := clusters[e.Node1]
		c2, ok2 := clusters[e.Node2]
		if ok1 && ok2 && c1 == c2 {
			intra[c1] = append(intra[c1], e)
		}
	}

	all := make([]Edge, 0, len(nodes))
	for _, cid := range clusterIDs {
		if len(members[cid]) < 2 {
			result.ClusterMSTs[cid] = []Edge{}
			continue
		}
		mst := kruskalMaximum(members[cid], intra[cid])
		result.ClusterMSTs[cid] = mst
		all = append(all, mst...)
	}

	result.BridgeEdges = findBridgeEdges(edges, clusters)
	return append(all, result.BridgeEdges...)
}

// kruskalMaximum greedily adds edges in descending weight without closing a
// cycle. The sort is stable, so equal weights keep input order.
func kruskalMaximum(nodes []string, edges []Edge) []Edge {
	if len(nodes) == 0 || len(edges) == 0 {
		return []Edge{}
	}

	index := make(map[string]int, len(nodes))
	for i, id := range nodes {
		index[id] = i
	}

	sorted := make([]Edge, len(edges))
	copy(sorted, edges)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Weight > sorted[j].Weight
	})

	uf := newUnionFind(len(nodes))
	mst := make([]Edge, 0, len(nodes)-1)
	for _, e := range sorted {
		i, ok1 := index[e.Node1]
		j, ok2 := index[e.Node2]
		if !ok1 || !ok2 {
			continue
		}
		if uf.union(i, j) {
			mst = append(mst, e)
			if len(mst) == len(nodes)-1 {
				break
			}
		}
	}
	return mst
}

type clusterPair struct {
	lo, hi int
}

// findBridgeEdges picks the strongest edge for every pair of clusters. Ties
// go to the edge that comes first in input order.
func findBridgeEdges(edges []Edge, clusters ClusterAssignment) []Edge {
	best := make(map[clusterPair]Edge)
	for _, e := range edges {
		c1, ok1 := clusters[e.Node1]
		c2, ok2 := clusters[e.Node2]
		if !ok1 || !ok2 || c1 == c2 {
			continue
		}
		pair := clusterPair{min(c1, c2), max(c1, c2)}
		if cur, ok := best[pair]; !ok || e.Weight > cur.Weight {
			best[pair] = e
		}
	}

	pairs := make([]clusterPair, 0, len(best))
	for p := range best {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].lo != pairs[j].lo {
			return pairs[i].lo < pairs[j].lo
		}
		return pairs[i].hi < pairs[j].hi
	})

	bridges := make([]Edge, 0, len(pairs))
	for _, p := range pairs {
		bridges = append(bridges, best[p])
	}
	return bridges
}

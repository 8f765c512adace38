// Package algorithms implements the graph passes over a tab similarity
// graph: threshold clustering, the hybrid maximum spanning tree and
// eigenvector centrality. Node ids are opaque strings.
package algorithms

import "fmt"

// Edge is an undirected weighted edge. Weight is a similarity in [0, 1].
type Edge struct {
	Node1  string  `json:"source"`
	Node2  string  `json:"target"`
	Weight float64 `json:"weight"`
}

// String implements fmt.Stringer
func (e Edge) String() string {
	return fmt.Sprintf("Edge(%s <-> %s, weight=%.3f)", e.Node1, e.Node2, e.Weight)
}

// Connects reports whether e joins a and b in either direction.
func (e Edge) Connects(a, b string) bool {
	return (e.Node1 == a && e.Node2 == b) || (e.Node1 == b && e.Node2 == a)
}

// ClusterAssignment maps node id -> cluster id. Ids are compact from 0 and
// only meaningful within the pass that produced them.
type ClusterAssignment map[string]int

// MSTResult is the output of a spanning tree pass.
type MSTResult struct {
	Edges          []Edge             // cluster MST edges in cluster id order, then bridges
	TotalWeight    float64            // sum of Edges weights
	ClusterMSTs    map[int][]Edge     // cluster id -> that cluster's MST edges
	BridgeEdges    []Edge             // strongest edge per cluster pair
	NodeCentrality map[string]float64 // node id -> centrality in [0, 1]
}

// String implements fmt.Stringer
func (r *MSTResult) String() string {
	return fmt.Sprintf("MSTResult(edges=%d, total_weight=%.3f, clusters=%d, bridges=%d)",
		len(r.Edges), r.TotalWeight, len(r.ClusterMSTs), len(r.BridgeEdges))
}

// RankedNode represents a node with its centrality
type RankedNode struct {
	NodeID string
	Score  float64
}

package algorithms

import (
	"math"
	"sort"
)

// CentralityOptions configures eigenvector centrality
type CentralityOptions struct {
	MaxIterations int
	Tolerance     float64 // Convergence threshold on the summed absolute change
}

// DefaultCentralityOptions returns default centrality configuration
func DefaultCentralityOptions() CentralityOptions {
	return CentralityOptions{
		MaxIterations: 100,
		Tolerance:     1e-6,
	}
}

// CentralityResult contains centrality scores for all nodes
type CentralityResult struct {
	Scores     map[string]float64 // Node ID -> score, max rescaled to 1
	Iterations int                // Number of iterations performed
	Converged  bool               // Whether algorithm converged
}

// EigenvectorCentrality computes weighted eigenvector centrality by power
// iteration. Scores start uniform at 1/n and are renormalized to sum 1 each
// round; a round where every score is zero (no edges) resets to uniform.
// Iteration stops when the summed absolute change drops below the tolerance,
// and the final scores are rescaled so the maximum is 1. Edges that name
// unknown nodes are ignored.
func EigenvectorCentrality(nodes []string, edges []Edge, opts CentralityOptions) *CentralityResult {
	n := len(nodes)
	if n == 0 {
		return &CentralityResult{
			Scores:    make(map[string]float64),
			Converged: true,
		}
	}

	index := make(map[string]int, n)
	for i, id := range nodes {
		index[id] = i
	}

	// Symmetric weighted adjacency
	type neighbor struct {
		node   int
		weight float64
	}
	adjacency := make([][]neighbor, n)
	for _, e := range edges {
		i, ok1 := index[e.Node1]
		j, ok2 := index[e.Node2]
		if !ok1 || !ok2 {
			continue
		}
		adjacency[i] = append(adjacency[i], neighbor{j, e.Weight})
		if i != j {
			adjacency[j] = append(adjacency[j], neighbor{i, e.Weight})
		}
	}

	uniform := 1.0 / float64(n)
	scores := make([]float64, n)
	for i := range scores {
		scores[i] = uniform
	}
	next := make([]float64, n)

	iterations := 0
	converged := false

	for iter := 0; iter < opts.MaxIterations; iter++ {
		iterations++

		sum := 0.0
		for i := range next {
			s := 0.0
			for _, nb := range adjacency[i] {
				s += nb.weight * scores[nb.node]
			}
			next[i] = s
			sum += s
		}

		if sum > 0 {
			for i := range next {
				next[i] /= sum
			}
		} else {
			for i := range next {
				next[i] = uniform
			}
		}

		diff := 0.0
		for i := range next {
			diff += math.Abs(next[i] - scores[i])
		}

		scores, next = next, scores

		if diff < opts.Tolerance {
			converged = true
			break
		}
	}

	maxScore := 0.0
	for _, s := range scores {
		maxScore = math.Max(maxScore, s)
	}

	result := make(map[string]float64, n)
	for i, id := range nodes {
		if maxScore > 0 {
			result[id] = scores[i] / maxScore
		} else {
			result[id] = scores[i]
		}
	}

	return &CentralityResult{
		Scores:     result,
		Iterations: iterations,
		Converged:  converged,
	}
}

// MostCentral returns the topN nodes by centrality, highest first. Ties are
// ordered by node id. topN <= 0 returns every node.
func MostCentral(result *MSTResult, topN int) []RankedNode {
	if result == nil {
		return nil
	}
	ranked := make([]RankedNode, 0, len(result.NodeCentrality))
	for id, score := range result.NodeCentrality {
		ranked = append(ranked, RankedNode{NodeID: id, Score: score})
	}
	sortRanked(ranked)
	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}

// ClusterCentral returns the topN most central nodes of each cluster.
func ClusterCentral(result *MSTResult, clusters ClusterAssignment, topN int) map[int][]RankedNode {
	byCluster := make(map[int][]RankedNode)
	for id, cid := range clusters {
		score := 0.0
		if result != nil {
			score = result.NodeCentrality[id]
		}
		byCluster[cid] = append(byCluster[cid], RankedNode{NodeID: id, Score: score})
	}
	for cid, ranked := range byCluster {
		sortRanked(ranked)
		if topN > 0 && len(ranked) > topN {
			byCluster[cid] = ranked[:topN]
		}
	}
	return byCluster
}

func sortRanked(ranked []RankedNode) {
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].NodeID < ranked[j].NodeID
	})
}

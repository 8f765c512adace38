package algorithms

import (
	"container/list"
)

// ComputeClusters groups nodes whose pairwise score reaches threshold, closed
// under transitivity. score(i, j) is called once per unordered pair with
// i < j. Cluster ids are assigned in order of first appearance in nodes, so a
// fixed input order yields fixed ids. Nodes with no qualifying pair become
// singleton clusters.
//
// Every pair is evaluated, which is fine for tens of tabs but grows
// quadratically.
func ComputeClusters(nodes []string, score func(i, j int) float64, threshold float64) ClusterAssignment {
	n := len(nodes)
	uf := newUnionFind(n)

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if score(i, j) >= threshold {
				uf.union(i, j)
			}
		}
	}

	assignment := make(ClusterAssignment, n)
	rootCluster := make(map[int]int)
	for i, id := range nodes {
		root := uf.find(i)
		cid, ok := rootCluster[root]
		if !ok {
			cid = len(rootCluster)
			rootCluster[root] = cid
		}
		assignment[id] = cid
	}
	return assignment
}

// ConnectedComponents finds the connected components of the graph formed by
// edges over nodes, by breadth-first search. Component ids follow the order
// of first appearance in nodes.
func ConnectedComponents(nodes []string, edges []Edge) ClusterAssignment {
	adjacency := make(map[string][]string, len(nodes))
	for _, e := range edges {
		adjacency[e.Node1] = append(adjacency[e.Node1], e.Node2)
		adjacency[e.Node2] = append(adjacency[e.Node2], e.Node1)
	}

	visited := make(map[string]bool, len(nodes))
	assignment := make(ClusterAssignment, len(nodes))
	componentID := 0

	for _, start := range nodes {
		if visited[start] {
			continue
		}

		queue := list.New()
		queue.PushBack(start)
		visited[start] = true

		for queue.Len() > 0 {
			nodeID, ok := queue.Remove(queue.Front()).(string)
			if !ok {
				continue
			}
			assignment[nodeID] = componentID

			for _, neighbor := range adjacency[nodeID] {
				if !visited[neighbor] {
					visited[neighbor] = true
					queue.PushBack(neighbor)
				}
			}
		}

		componentID++
	}

	return assignment
}

// NumClusters returns the number of distinct cluster ids in assignment.
func NumClusters(assignment ClusterAssignment) int {
	seen := make(map[int]struct{}, len(assignment))
	for _, cid := range assignment {
		seen[cid] = struct{}{}
	}
	return len(seen)
}

// ClusterMembers lists the members of each cluster, indexed by cluster id,
// with members in the order they appear in nodes. Nodes missing from
// assignment are skipped.
func ClusterMembers(assignment ClusterAssignment, nodes []string) [][]string {
	maxID := -1
	for _, cid := range assignment {
		maxID = max(maxID, cid)
	}

	members := make([][]string, maxID+1)
	for _, id := range nodes {
		cid, ok := assignment[id]
		if !ok {
			continue
		}
		members[cid] = append(members[cid], id)
	}
	return members
}

// SameClusters reports whether two assignments describe the same partition
// of nodes, regardless of the ids chosen.
func SameClusters(a, b ClusterAssignment) bool {
	if len(a) != len(b) {
		return false
	}
	forward := make(map[int]int)
	backward := make(map[int]int)
	for node, ca := range a {
		cb, ok := b[node]
		if !ok {
			return false
		}
		if prev, ok := forward[ca]; ok && prev != cb {
			return false
		}
		if prev, ok := backward[cb]; ok && prev != ca {
			return false
		}
		forward[ca] = cb
		backward[cb] = ca
	}
	return true
}

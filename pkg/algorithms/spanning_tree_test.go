package algorithms

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func scenarioGraph() ([]string, []Edge, ClusterAssignment) {
	nodes := []string{"0", "1", "2", "3", "4", "5", "6", "7", "8"}
	clusters := ClusterAssignment{
		"0": 0, "1": 0, "2": 0,
		"3": 1, "4": 1, "5": 1,
		"6": 2, "7": 2, "8": 2,
	}
	edges := []Edge{
		{"0", "1", 0.9}, {"1", "2", 0.85}, {"0", "2", 0.8},
		{"3", "4", 0.88}, {"4", "5", 0.92}, {"3", "5", 0.78},
		{"6", "7", 0.87}, {"7", "8", 0.90}, {"6", "8", 0.82},
		{"2", "3", 0.45}, {"1", "4", 0.30},
		{"5", "6", 0.50}, {"4", "7", 0.35},
		{"0", "6", 0.25},
	}
	return nodes, edges, clusters
}

func isAcyclic(nodes []string, edges []Edge) bool {
	index := make(map[string]int, len(nodes))
	for i, id := range nodes {
		index[id] = i
	}
	uf := newUnionFind(len(nodes))
	for _, e := range edges {
		if !uf.union(index[e.Node1], index[e.Node2]) {
			return false
		}
	}
	return true
}

func TestCalculateMST_ThreeClusterScenario(t *testing.T) {
	nodes, edges, clusters := scenarioGraph()
	calc := NewSpanningTreeCalculator(0.2, CentralityMST)

	result := calc.CalculateMST(nodes, edges, clusters)

	wantClusterMSTs := map[int][]Edge{
		0: {{"0", "1", 0.9}, {"1", "2", 0.85}},
		1: {{"4", "5", 0.92}, {"3", "4", 0.88}},
		2: {{"7", "8", 0.90}, {"6", "7", 0.87}},
	}
	for cid, want := range wantClusterMSTs {
		got := result.ClusterMSTs[cid]
		if len(got) != len(want) {
			t.Fatalf("cluster %d MST = %v, want %v", cid, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("cluster %d MST[%d] = %v, want %v", cid, i, got[i], want[i])
			}
		}
	}

	wantBridges := []Edge{{"2", "3", 0.45}, {"0", "6", 0.25}, {"5", "6", 0.50}}
	if len(result.BridgeEdges) != len(wantBridges) {
		t.Fatalf("bridges = %v, want %v", result.BridgeEdges, wantBridges)
	}
	for i := range wantBridges {
		if result.BridgeEdges[i] != wantBridges[i] {
			t.Errorf("bridge[%d] = %v, want %v", i, result.BridgeEdges[i], wantBridges[i])
		}
	}

	if len(result.Edges) != 9 {
		t.Errorf("len(Edges) = %d, want 9", len(result.Edges))
	}
	if math.Abs(result.TotalWeight-6.52) > 1e-9 {
		t.Errorf("TotalWeight = %v, want 6.52", result.TotalWeight)
	}
	for cid, mst := range result.ClusterMSTs {
		if !isAcyclic(nodes, mst) {
			t.Errorf("cluster %d tree has a cycle: %v", cid, mst)
		}
	}

	top := MostCentral(result, 1)
	if len(top) != 1 || top[0].Score != 1.0 {
		t.Errorf("MostCentral = %v, want one node at 1.0", top)
	}
	perCluster := ClusterCentral(result, clusters, 2)
	for cid := 0; cid < 3; cid++ {
		if len(perCluster[cid]) != 2 {
			t.Errorf("ClusterCentral[%d] = %v", cid, perCluster[cid])
		}
	}
}

func TestCalculateMST_MinEdgeWeightDropsBridge(t *testing.T) {
	nodes, edges, clusters := scenarioGraph()
	result := NewSpanningTreeCalculator(0.3, CentralityMST).CalculateMST(nodes, edges, clusters)

	for _, b := range result.BridgeEdges {
		if b.Connects("0", "6") {
			t.Errorf("edge below MinEdgeWeight selected as bridge: %v", b)
		}
	}
	if len(result.BridgeEdges) != 2 {
		t.Errorf("bridges = %v, want 2", result.BridgeEdges)
	}
}

func TestCalculateMST_Classic(t *testing.T) {
	nodes, edges, _ := scenarioGraph()
	result := NewSpanningTreeCalculator(0, CentralityMST).CalculateMST(nodes, edges, nil)

	if len(result.Edges) != len(nodes)-1 {
		t.Errorf("classic MST has %d edges, want %d", len(result.Edges), len(nodes)-1)
	}
	if len(result.BridgeEdges) != 0 || len(result.ClusterMSTs) != 0 {
		t.Error("classic mode must not report clusters or bridges")
	}
	if !isAcyclic(nodes, result.Edges) {
		t.Error("classic MST must be acyclic")
	}
}

func TestCalculateMST_TiesFollowInputOrder(t *testing.T) {
	nodes := []string{"a", "b", "c", "d"}
	clusters := ClusterAssignment{"a": 0, "b": 0, "c": 1, "d": 1}
	edges := []Edge{
		{"a", "b", 0.5},
		{"b", "d", 0.4},
		{"c", "d", 0.5},
		{"a", "c", 0.4},
	}

	result := NewSpanningTreeCalculator(0, CentralityMST).CalculateMST(nodes, edges, clusters)
	if len(result.BridgeEdges) != 1 || result.BridgeEdges[0] != edges[1] {
		t.Errorf("bridge = %v, want first max edge %v", result.BridgeEdges, edges[1])
	}

	tri := []Edge{{"a", "b", 0.7}, {"b", "c", 0.7}, {"a", "c", 0.7}}
	mst := kruskalMaximum([]string{"a", "b", "c"}, tri)
	if len(mst) != 2 || mst[0] != tri[0] || mst[1] != tri[1] {
		t.Errorf("kruskal tie order = %v", mst)
	}
}

func TestCalculateMST_DegenerateInputs(t *testing.T) {
	calc := NewSpanningTreeCalculator(0, CentralityMST)

	t.Run("no nodes", func(t *testing.T) {
		r := calc.CalculateMST(nil, nil, ClusterAssignment{})
		if len(r.Edges) != 0 || r.TotalWeight != 0 || len(r.NodeCentrality) != 0 {
			t.Errorf("empty result expected, got %v", r)
		}
	})

	t.Run("one node", func(t *testing.T) {
		r := calc.CalculateMST([]string{"solo"}, nil, ClusterAssignment{"solo": 0})
		if len(r.Edges) != 0 {
			t.Errorf("one node has no edges, got %v", r.Edges)
		}
		if r.NodeCentrality["solo"] != 1.0 {
			t.Errorf("centrality = %v, want 1.0", r.NodeCentrality["solo"])
		}
		if mst, ok := r.ClusterMSTs[0]; !ok || len(mst) != 0 {
			t.Errorf("singleton cluster should have an empty entry, got %v", r.ClusterMSTs)
		}
	})

	t.Run("no edges", func(t *testing.T) {
		nodes := []string{"a", "b", "c"}
		r := calc.CalculateMST(nodes, nil, ClusterAssignment{"a": 0, "b": 1, "c": 2})
		for _, id := range nodes {
			if r.NodeCentrality[id] != 1.0 {
				t.Errorf("isolated node %s centrality = %v, want 1.0", id, r.NodeCentrality[id])
			}
		}
	})
}

func TestCalculateMST_FullGraphBasis(t *testing.T) {
	nodes, edges, clusters := scenarioGraph()

	mstBased := NewSpanningTreeCalculator(0, CentralityMST).CalculateMST(nodes, edges, clusters)
	fullBased := NewSpanningTreeCalculator(0, CentralityFullGraph).CalculateMST(nodes, edges, clusters)

	want := EigenvectorCentrality(nodes, edges, DefaultCentralityOptions()).Scores
	for id, score := range want {
		if math.Abs(fullBased.NodeCentrality[id]-score) > 1e-12 {
			t.Errorf("full basis centrality[%s] = %v, want %v", id, fullBased.NodeCentrality[id], score)
		}
	}
	if len(mstBased.Edges) != len(fullBased.Edges) {
		t.Error("centrality basis must not change the selected edges")
	}
}

func TestEigenvectorCentrality_Hub(t *testing.T) {
	nodes := []string{"hub", "a", "b", "c"}
	edges := []Edge{{"hub", "a", 1}, {"hub", "b", 1}, {"hub", "c", 1}, {"a", "b", 1}, {"ghost", "a", 1}}

	r := EigenvectorCentrality(nodes, edges, DefaultCentralityOptions())
	if r.Scores["hub"] != 1.0 {
		t.Errorf("hub = %v, want 1.0", r.Scores["hub"])
	}
	for _, leaf := range []string{"a", "b", "c"} {
		if r.Scores[leaf] >= 1.0 || r.Scores[leaf] <= 0 {
			t.Errorf("leaf %s = %v, want in (0, 1)", leaf, r.Scores[leaf])
		}
	}
	if !r.Converged {
		t.Errorf("expected convergence, stopped after %d iterations", r.Iterations)
	}
}

func TestCalculateMST_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	const n = 9
	ids := nodeIDs(n)
	calc := NewSpanningTreeCalculator(0, CentralityMST)

	allEdges := func(s symmetricScores) []Edge {
		return edgesAtOrAbove(ids, s, 0)
	}

	properties.Property("each cluster tree has k-1 edges and no cycle", prop.ForAll(
		func(s symmetricScores, threshold float64) bool {
			clusters := ComputeClusters(ids, s.at, threshold)
			result := calc.CalculateMST(ids, allEdges(s), clusters)
			members := ClusterMembers(clusters, ids)
			for cid, m := range members {
				mst := result.ClusterMSTs[cid]
				if len(mst) != max(len(m)-1, 0) {
					return false
				}
				if !isAcyclic(m, mst) {
					return false
				}
			}
			return true
		},
		genScores(n),
		gen.Float64Range(0.05, 1),
	))

	properties.Property("one maximal bridge per cluster pair", prop.ForAll(
		func(s symmetricScores, threshold float64) bool {
			edges := allEdges(s)
			clusters := ComputeClusters(ids, s.at, threshold)
			result := calc.CalculateMST(ids, edges, clusters)

			seen := map[clusterPair]bool{}
			for _, b := range result.BridgeEdges {
				c1, c2 := clusters[b.Node1], clusters[b.Node2]
				if c1 == c2 {
					return false
				}
				p := clusterPair{min(c1, c2), max(c1, c2)}
				if seen[p] {
					return false
				}
				seen[p] = true
				for _, e := range edges {
					e1, e2 := clusters[e.Node1], clusters[e.Node2]
					if (clusterPair{min(e1, e2), max(e1, e2)}) == p && e.Weight > b.Weight {
						return false
					}
				}
			}
			k := NumClusters(clusters)
			return len(result.BridgeEdges) == k*(k-1)/2
		},
		genScores(n),
		gen.Float64Range(0.05, 1),
	))

	properties.Property("centrality is in [0, 1] with max 1", prop.ForAll(
		func(s symmetricScores, threshold float64, full bool) bool {
			c := *calc
			if full {
				c.Basis = CentralityFullGraph
			}
			clusters := ComputeClusters(ids, s.at, threshold)
			result := c.CalculateMST(ids, allEdges(s), clusters)
			best := 0.0
			for _, v := range result.NodeCentrality {
				if v < 0 || v > 1+1e-12 || math.IsNaN(v) {
					return false
				}
				best = math.Max(best, v)
			}
			return math.Abs(best-1) < 1e-9 && len(result.NodeCentrality) == n
		},
		genScores(n),
		gen.Float64Range(0.05, 1),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

package algorithms

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// symmetricScores is a dense n x n similarity table used by the tests.
type symmetricScores [][]float64

func (s symmetricScores) at(i, j int) float64 { return s[i][j] }

func nodeIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("n%d", i)
	}
	return ids
}

// genScores generates a symmetric n x n table with values in [0, 1].
func genScores(n int) gopter.Gen {
	return gen.SliceOfN(n*n, gen.Float64Range(0, 1)).Map(func(flat []float64) symmetricScores {
		s := make(symmetricScores, n)
		for i := range s {
			s[i] = make([]float64, n)
		}
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				s[i][j] = flat[i*n+j]
				s[j][i] = flat[i*n+j]
			}
		}
		return s
	})
}

func edgesAtOrAbove(ids []string, s symmetricScores, threshold float64) []Edge {
	var edges []Edge
	for i := range ids {
		for j := i + 1; j < len(ids); j++ {
			if s[i][j] >= threshold {
				edges = append(edges, Edge{ids[i], ids[j], s[i][j]})
			}
		}
	}
	return edges
}

func TestComputeClusters_Basic(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}
	s := symmetricScores{
		{0, 0.9, 0.1, 0.0, 0.0},
		{0.9, 0, 0.4, 0.0, 0.0},
		{0.1, 0.4, 0, 0.0, 0.0},
		{0.0, 0.0, 0.0, 0, 0.2},
		{0.0, 0.0, 0.0, 0.2, 0},
	}

	got := ComputeClusters(ids, s.at, 0.3)

	want := ClusterAssignment{"a": 0, "b": 0, "c": 0, "d": 1, "e": 2}
	for id, cid := range want {
		if got[id] != cid {
			t.Errorf("cluster[%s] = %d, want %d", id, got[id], cid)
		}
	}
	if n := NumClusters(got); n != 3 {
		t.Errorf("NumClusters = %d, want 3", n)
	}

	members := ClusterMembers(got, ids)
	if len(members) != 3 || len(members[0]) != 3 || members[0][2] != "c" {
		t.Errorf("ClusterMembers = %v", members)
	}
}

func TestComputeClusters_Edges(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		got := ComputeClusters(nil, func(i, j int) float64 { return 1 }, 0.3)
		if len(got) != 0 {
			t.Errorf("expected empty assignment, got %v", got)
		}
		if m := ClusterMembers(got, nil); len(m) != 0 {
			t.Errorf("expected no members, got %v", m)
		}
	})

	t.Run("single node", func(t *testing.T) {
		got := ComputeClusters([]string{"only"}, func(i, j int) float64 {
			t.Fatal("score must not be called for one node")
			return 0
		}, 0.3)
		if got["only"] != 0 {
			t.Errorf("single node cluster = %d", got["only"])
		}
	})

	t.Run("pairs evaluated once with i < j", func(t *testing.T) {
		calls := map[[2]int]int{}
		ComputeClusters(nodeIDs(6), func(i, j int) float64 {
			if i >= j {
				t.Errorf("score called with i=%d >= j=%d", i, j)
			}
			calls[[2]int{i, j}]++
			return 0
		}, 0.5)
		if len(calls) != 15 {
			t.Errorf("expected 15 pair evaluations, got %d", len(calls))
		}
	})
}

func TestConnectedComponents(t *testing.T) {
	ids := []string{"x", "y", "z", "w"}
	edges := []Edge{{"z", "w", 0.5}, {"x", "z", 0.7}}

	got := ConnectedComponents(ids, edges)
	if got["x"] != 0 || got["z"] != 0 || got["w"] != 0 || got["y"] != 1 {
		t.Errorf("ConnectedComponents = %v", got)
	}
}

func TestSameClusters(t *testing.T) {
	a := ClusterAssignment{"p": 0, "q": 0, "r": 1}
	b := ClusterAssignment{"p": 5, "q": 5, "r": 2}
	c := ClusterAssignment{"p": 0, "q": 1, "r": 1}

	if !SameClusters(a, b) {
		t.Error("relabelled partition should match")
	}
	if SameClusters(a, c) {
		t.Error("different partitions should not match")
	}
}

func TestComputeClusters_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	const n = 8
	ids := nodeIDs(n)

	properties.Property("clusters are the components of edges at or above threshold", prop.ForAll(
		func(s symmetricScores, threshold float64) bool {
			got := ComputeClusters(ids, s.at, threshold)
			want := ConnectedComponents(ids, edgesAtOrAbove(ids, s, threshold))
			return SameClusters(got, want)
		},
		genScores(n),
		gen.Float64Range(0, 1),
	))

	properties.Property("raising the threshold never merges clusters", prop.ForAll(
		func(s symmetricScores, t1, t2 float64) bool {
			lo, hi := min(t1, t2), max(t1, t2)
			loAssign := ComputeClusters(ids, s.at, lo)
			hiAssign := ComputeClusters(ids, s.at, hi)
			for i := range ids {
				for j := range ids {
					if hiAssign[ids[i]] == hiAssign[ids[j]] && loAssign[ids[i]] != loAssign[ids[j]] {
						return false
					}
				}
			}
			return NumClusters(hiAssign) >= NumClusters(loAssign)
		},
		genScores(n),
		gen.Float64Range(0, 1),
		gen.Float64Range(0, 1),
	))

	properties.Property("ids are compact and follow first appearance", prop.ForAll(
		func(s symmetricScores, threshold float64) bool {
			got := ComputeClusters(ids, s.at, threshold)
			next := 0
			for _, id := range ids {
				cid := got[id]
				if cid > next {
					return false
				}
				if cid == next {
					next++
				}
			}
			return next == NumClusters(got)
		},
		genScores(n),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}

package visualization

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/dd0wney/cluso-tabgraph/pkg/algorithms"
	"github.com/dd0wney/cluso-tabgraph/pkg/logging"
	"github.com/dd0wney/cluso-tabgraph/pkg/metrics"
)

func newTestEngine(config LayoutConfig) *LayoutEngine {
	return NewLayoutEngine(config, logging.NewNopLogger(), metrics.NewRegistry())
}

func runTicks(le *LayoutEngine, n int) {
	for i := 0; i < n; i++ {
		le.Tick(1)
	}
}

// TestLayoutEngine_TwoNodeConvergence checks that a similar pair settles at
// the spring rest length when nothing else acts on it.
func TestLayoutEngine_TwoNodeConvergence(t *testing.T) {
	config := DefaultLayoutConfig()
	config.Repulsion = 0

	le := newTestEngine(config)
	le.Sync([]string{"a", "b"})
	le.SetSimilarity(func(x, y string) float64 { return 0.9 })

	if target := config.TargetDistance(0.9); math.Abs(target-60) > 1e-9 {
		t.Fatalf("TargetDistance(0.9) = %f, want 60", target)
	}

	runTicks(le, 500)

	pa, _ := le.Position("a")
	pb, _ := le.Position("b")
	if d := distance(pa, pb); math.Abs(d-60) > 0.01 {
		t.Errorf("Pair settled at %f, want 60", d)
	}

	// Forces are equal and opposite, so the midpoint stays put
	mid := pa.Add(pb).Scale(0.5)
	if math.Abs(mid.X-400) > 1e-6 || math.Abs(mid.Y-300) > 1e-6 {
		t.Errorf("Midpoint drifted to (%f, %f)", mid.X, mid.Y)
	}
}

// TestLayoutEngine_TwoNodeEquilibrium uses the default constants, where the
// spring balances inverse-square repulsion: 0.045*(d-60) = 5000/d^2.
func TestLayoutEngine_TwoNodeEquilibrium(t *testing.T) {
	le := newTestEngine(DefaultLayoutConfig())
	le.Sync([]string{"a", "b"})
	le.SetWeights([]algorithms.Edge{{Node1: "a", Node2: "b", Weight: 0.9}})

	runTicks(le, 500)

	pa, _ := le.Position("a")
	pb, _ := le.Position("b")
	d := distance(pa, pb)
	if math.Abs(d-78.179) > 0.01 {
		t.Errorf("Pair settled at %f, want about 78.179", d)
	}
	if d <= 60 {
		t.Error("Repulsion should hold the pair beyond the rest length")
	}
}

func TestLayoutEngine_BelowThresholdOnlyRepels(t *testing.T) {
	le := newTestEngine(DefaultLayoutConfig())
	le.Sync([]string{"a", "b"})
	le.SetSimilarity(func(x, y string) float64 { return 0.3 })

	pa, _ := le.Position("a")
	pb, _ := le.Position("b")
	before := distance(pa, pb)

	runTicks(le, 50)

	pa, _ = le.Position("a")
	pb, _ = le.Position("b")
	if after := distance(pa, pb); after <= before {
		t.Errorf("Distance shrank from %f to %f with similarity at the threshold", before, after)
	}
}

func TestLayoutEngine_Seed(t *testing.T) {
	config := DefaultLayoutConfig()
	le := newTestEngine(config)

	if !le.Seed("a") {
		t.Fatal("Seed(a) should add a new node")
	}
	if le.Seed("a") {
		t.Error("Seed(a) twice should be a no-op")
	}

	// First node: index 0 of 1, angle 0
	pa, _ := le.Position("a")
	if math.Abs(pa.X-610) > 1e-9 || math.Abs(pa.Y-300) > 1e-9 {
		t.Errorf("a seeded at (%f, %f), want (610, 300)", pa.X, pa.Y)
	}

	// Second node: index 1 of 2, angle pi
	le.Seed("b")
	pb, _ := le.Position("b")
	if math.Abs(pb.X-190) > 1e-9 || math.Abs(pb.Y-300) > 1e-9 {
		t.Errorf("b seeded at (%f, %f), want (190, 300)", pb.X, pb.Y)
	}

	// Existing nodes keep their positions
	if again, _ := le.Position("a"); again != pa {
		t.Errorf("a moved from %v to %v on seeding b", pa, again)
	}

	// Later seeds bisect the widest free arc: c at pi/2, d at 3pi/2
	le.Seed("c")
	le.Seed("d")
	want := map[string]Position{"c": {400, 510}, "d": {400, 90}}
	for id, w := range want {
		if p, _ := le.Position(id); distance(p, w) > 1e-9 {
			t.Errorf("%s seeded at (%f, %f), want (%f, %f)", id, p.X, p.Y, w.X, w.Y)
		}
	}

	// Every seed lies on the seeding circle
	for id, p := range le.Positions() {
		if r := distance(p, Position{400, 300}); math.Abs(r-210) > 1e-9 {
			t.Errorf("%s seeded at radius %f, want 210", id, r)
		}
	}
}

func TestLayoutEngine_SeedSpacing(t *testing.T) {
	le := newTestEngine(DefaultLayoutConfig())
	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, id := range ids {
		le.Seed(id)
	}

	// Eight seeds in a row end up a full eighth of a turn apart
	minChord := 2 * 210 * math.Sin(math.Pi/8)
	positions := le.Positions()
	for i, a := range ids {
		for _, b := range ids[i+1:] {
			if d := distance(positions[a], positions[b]); d < minChord-1e-6 {
				t.Errorf("%s and %s seeded %f apart, want at least %f", a, b, d, minChord)
			}
		}
	}

	// A removed node leaves the widest gap, and the next seed fills it
	pb := positions["b"]
	le.Remove("b")
	le.Seed("i")
	if pi, _ := le.Position("i"); distance(pi, pb) > 1e-9 {
		t.Errorf("i seeded at (%f, %f), want the gap left by b at (%f, %f)", pi.X, pi.Y, pb.X, pb.Y)
	}
}

func TestLayoutEngine_SyncAndRemove(t *testing.T) {
	le := newTestEngine(DefaultLayoutConfig())

	added, removed := le.Sync([]string{"a", "b", "c"})
	if added != 3 || removed != 0 {
		t.Errorf("Sync() = (%d, %d), want (3, 0)", added, removed)
	}

	pa, _ := le.Position("a")
	added, removed = le.Sync([]string{"a", "d"})
	if added != 1 || removed != 2 {
		t.Errorf("Sync() = (%d, %d), want (1, 2)", added, removed)
	}
	if le.Len() != 2 {
		t.Errorf("Len() = %d, want 2", le.Len())
	}
	if _, ok := le.Position("b"); ok {
		t.Error("b should have been removed")
	}
	if again, _ := le.Position("a"); again != pa {
		t.Error("Sync should not move surviving nodes")
	}

	if !le.Remove("d") {
		t.Error("Remove(d) should report true")
	}
	if le.Remove("d") {
		t.Error("Remove(d) twice should report false")
	}
}

func TestLayoutEngine_Drag(t *testing.T) {
	le := newTestEngine(DefaultLayoutConfig())
	le.Sync([]string{"a", "b"})
	le.SetSimilarity(func(x, y string) float64 { return 0.9 })

	if le.BeginDrag("missing") {
		t.Error("BeginDrag on an unknown node should fail")
	}
	if !le.BeginDrag("a") {
		t.Fatal("BeginDrag(a) failed")
	}

	pinned := Position{X: 100, Y: 100}
	le.DragTo("a", pinned)
	pb, _ := le.Position("b")

	runTicks(le, 10)

	if pa, _ := le.Position("a"); pa != pinned {
		t.Errorf("Dragged node moved to %v", pa)
	}
	if moved, _ := le.Position("b"); moved == pb {
		t.Error("Other node should keep simulating while a is dragged")
	}

	le.EndDrag()
	if le.Dragging() != "" {
		t.Error("EndDrag should clear the dragged node")
	}
	runTicks(le, 1)
	if pa, _ := le.Position("a"); pa == pinned {
		t.Error("Released node should move again")
	}
}

func TestLayoutEngine_CoincidentNodes(t *testing.T) {
	le := newTestEngine(DefaultLayoutConfig())
	le.Sync([]string{"a", "b", "c"})

	same := Position{X: 400, Y: 300}
	for _, id := range []string{"a", "b", "c"} {
		le.DragTo(id, same)
	}

	runTicks(le, 5)

	positions := le.Positions()
	for id, p := range positions {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			t.Fatalf("%s has non-finite position %v", id, p)
		}
	}
	if positions["a"] == positions["b"] || positions["b"] == positions["c"] {
		t.Error("Coincident nodes should separate")
	}
}

func TestLayoutEngine_MaxDisplacement(t *testing.T) {
	le := newTestEngine(DefaultLayoutConfig())
	le.Sync([]string{"a", "b"})
	le.DragTo("a", Position{X: 400, Y: 300})
	le.DragTo("b", Position{X: 401, Y: 300})

	before := le.Positions()
	le.Tick(1)
	after := le.Positions()

	for id := range before {
		if step := distance(before[id], after[id]); step > 10+1e-9 {
			t.Errorf("%s moved %f in one tick, want at most 10", id, step)
		}
	}
}

func TestLayoutEngine_NodeAt(t *testing.T) {
	le := newTestEngine(DefaultLayoutConfig())
	le.Sync([]string{"a", "b"})

	if id, ok := le.NodeAt(Position{X: 612, Y: 301}, 5); !ok || id != "a" {
		t.Errorf("NodeAt() = (%q, %v), want a", id, ok)
	}
	if _, ok := le.NodeAt(Position{X: 400, Y: 300}, 5); ok {
		t.Error("NodeAt() should miss empty space")
	}
}

// TestCircularLayout tests circular layout algorithm
func TestCircularLayout(t *testing.T) {
	layout := NewCircularLayout(DefaultLayoutConfig())
	ids := []string{"a", "b", "c", "d"}

	positions := layout.ComputeLayout(ids, nil)
	if len(positions) != 4 {
		t.Fatalf("Expected 4 positions, got %d", len(positions))
	}

	center := Position{X: 400, Y: 300}
	radius := distance(positions["a"], center)
	for id, pos := range positions {
		if r := distance(pos, center); math.Abs(r-radius) > 0.01 {
			t.Errorf("Node %s at radius %f, want %f", id, r, radius)
		}
	}

	if math.Abs(radius-250) > 0.01 {
		t.Errorf("Radius = %f, want 250", radius)
	}
}

// TestHierarchicalLayout tests tree levels from a root
func TestHierarchicalLayout(t *testing.T) {
	edges := []algorithms.Edge{
		{Node1: "root", Node2: "a", Weight: 0.9},
		{Node1: "root", Node2: "b", Weight: 0.8},
		{Node1: "a", Node2: "c", Weight: 0.7},
	}
	layout := NewHierarchicalLayout(DefaultLayoutConfig(), []string{"root"})

	positions := layout.ComputeLayout([]string{"root", "a", "b", "c", "lonely"}, edges)
	if len(positions) != 5 {
		t.Fatalf("Expected 5 positions, got %d", len(positions))
	}

	if positions["root"].Y >= positions["a"].Y {
		t.Error("Root should sit above its children")
	}
	if positions["a"].Y != positions["b"].Y {
		t.Error("Siblings should share a level")
	}
	if positions["c"].Y <= positions["a"].Y {
		t.Error("Grandchild should sit below its parent")
	}
	if positions["lonely"].Y != positions["c"].Y {
		t.Error("Unreachable nodes should join the last level")
	}
}

func TestHierarchicalLayout_UnknownRoot(t *testing.T) {
	layout := NewHierarchicalLayout(DefaultLayoutConfig(), []string{"ghost"})
	positions := layout.ComputeLayout([]string{"a", "b"}, []algorithms.Edge{{Node1: "a", Node2: "b", Weight: 1}})
	if positions["a"].Y >= positions["b"].Y {
		t.Error("First node should become the root")
	}
}

// TestLayoutNormalization tests position normalization
func TestLayoutNormalization(t *testing.T) {
	positions := map[string]Position{
		"a": {X: -1000, Y: -500},
		"b": {X: 3000, Y: 2500},
		"c": {X: 0, Y: 0},
	}

	fitted := FitToViewport(positions, 800, 600, 50)
	for id, pos := range fitted {
		if pos.X < 50-1e-9 || pos.X > 750+1e-9 || pos.Y < 50-1e-9 || pos.Y > 550+1e-9 {
			t.Errorf("%s at (%f, %f) outside the padded viewport", id, pos.X, pos.Y)
		}
	}
	if fitted["a"] != (Position{X: 50, Y: 50}) {
		t.Errorf("Minimum corner mapped to %v", fitted["a"])
	}
	if fitted["b"] != (Position{X: 750, Y: 550}) {
		t.Errorf("Maximum corner mapped to %v", fitted["b"])
	}
}

// TestEmptyGraph tests layouts with no nodes
func TestEmptyGraph(t *testing.T) {
	layouts := []Layout{
		NewCircularLayout(DefaultLayoutConfig()),
		NewHierarchicalLayout(DefaultLayoutConfig(), nil),
	}
	for _, layout := range layouts {
		if positions := layout.ComputeLayout(nil, nil); len(positions) != 0 {
			t.Errorf("Expected no positions, got %d", len(positions))
		}
	}

	le := newTestEngine(DefaultLayoutConfig())
	le.Tick(1)
	if len(le.Positions()) != 0 {
		t.Error("Empty engine should have no positions")
	}
}

// TestVisualizationExport tests exporting the picture to JSON
func TestVisualizationExport(t *testing.T) {
	nodes := []string{"a", "b", "c"}
	edges := []algorithms.Edge{
		{Node1: "a", Node2: "b", Weight: 0.9},
		{Node1: "b", Node2: "c", Weight: 0.4},
	}
	clusters := algorithms.ClusterAssignment{"a": 0, "b": 0, "c": 1}
	mst := algorithms.NewSpanningTreeCalculator(0, algorithms.CentralityMST).CalculateMST(nodes, edges, clusters)

	viz := &Visualization{
		Nodes: []NodeInfo{
			{ID: "a", URL: "https://go.dev/doc", Title: "Go docs"},
			{ID: "b", URL: "https://go.dev/blog"},
			{ID: "c", URL: "https://example.com"},
		},
		Positions: map[string]Position{"a": {X: 1, Y: 2}},
		Clusters:  clusters,
		MST:       mst,
		Summaries: []ClusterInfo{
			{ID: 0, Title: "Go Documentation", Tags: []string{"go"}},
			{ID: 1, Title: "Loading…", Pending: true},
		},
	}

	data, err := viz.ExportJSON()
	if err != nil {
		t.Fatalf("JSON export failed: %v", err)
	}
	if !strings.Contains(string(data), "Go docs") {
		t.Error("JSON export missing node data")
	}

	var decoded struct {
		Nodes []struct {
			ID      string  `json:"id"`
			X       float64 `json:"x"`
			Cluster int     `json:"cluster"`
		} `json:"nodes"`
		Edges []struct {
			Source string `json:"source"`
			Bridge bool   `json:"bridge"`
		} `json:"edges"`
		Clusters []struct {
			ID      int      `json:"id"`
			Pending bool     `json:"pending"`
			Members []string `json:"members"`
		} `json:"clusters"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Export is not valid JSON: %v", err)
	}

	if len(decoded.Nodes) != 3 || decoded.Nodes[0].X != 1 || decoded.Nodes[2].Cluster != 1 {
		t.Errorf("Unexpected nodes: %+v", decoded.Nodes)
	}
	if len(decoded.Edges) != 2 || decoded.Edges[0].Bridge || !decoded.Edges[1].Bridge {
		t.Errorf("Unexpected edges: %+v", decoded.Edges)
	}
	if len(decoded.Clusters) != 2 || !decoded.Clusters[1].Pending || len(decoded.Clusters[0].Members) != 2 {
		t.Errorf("Unexpected clusters: %+v", decoded.Clusters)
	}
}

func distance(p1, p2 Position) float64 {
	return math.Hypot(p1.X-p2.X, p1.Y-p2.Y)
}

package visualization

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/dd0wney/cluso-tabgraph/pkg/algorithms"
	"github.com/dd0wney/cluso-tabgraph/pkg/logging"
	"github.com/dd0wney/cluso-tabgraph/pkg/metrics"
)

// minDistance keeps inverse-square forces finite for nearly coincident nodes.
const minDistance = 0.01

// NodeState is the simulated state of one node.
type NodeState struct {
	Position Position
	Velocity Position
}

// LayoutEngine runs a force-directed simulation over tab nodes. Every pair
// repels; pairs whose similarity exceeds AttractionThreshold are pulled
// toward a rest length that shrinks as similarity grows. Nodes closer than
// MinSeparation get an extra push apart. The simulation advances one Tick at
// a time and never settles into a final answer.
type LayoutEngine struct {
	mu         sync.Mutex
	config     LayoutConfig
	order      []string
	nodes      map[string]*NodeState
	similarity func(a, b string) float64
	dragging   string

	logger  logging.Logger
	metrics *metrics.Registry
}

// NewLayoutEngine creates an engine with no nodes.
func NewLayoutEngine(config LayoutConfig, logger logging.Logger, reg *metrics.Registry) *LayoutEngine {
	return &LayoutEngine{
		config:     config,
		nodes:      make(map[string]*NodeState),
		similarity: func(a, b string) float64 { return 0 },
		logger:     logging.OrDefault(logger).With(logging.Component("layout")),
		metrics:    reg,
	}
}

// Config returns the current configuration.
func (le *LayoutEngine) Config() LayoutConfig {
	le.mu.Lock()
	defer le.mu.Unlock()
	return le.config
}

// SetConfig replaces the physics constants. Node state is kept.
func (le *LayoutEngine) SetConfig(config LayoutConfig) {
	le.mu.Lock()
	le.config = config
	le.mu.Unlock()
}

// Seed adds a node if it is not present, placing it on a circle around the
// viewport centre at the middle of the widest angular gap between the nodes
// already there. Existing nodes keep their positions. Reports whether the
// node was added.
func (le *LayoutEngine) Seed(id string) bool {
	le.mu.Lock()
	defer le.mu.Unlock()
	return le.seedLocked(id)
}

func (le *LayoutEngine) seedLocked(id string) bool {
	if _, ok := le.nodes[id]; ok {
		return false
	}
	center := le.config.center()
	angle := le.freeAngleLocked(center)
	le.order = append(le.order, id)
	le.nodes[id] = &NodeState{
		Position: onCircle(center, le.config.seedRadius(), angle),
	}
	return true
}

// freeAngleLocked returns the bisector of the largest arc around center not
// occupied by a node. Equal arcs resolve to the one starting at the smallest
// angle.
func (le *LayoutEngine) freeAngleLocked(center Position) float64 {
	if len(le.order) == 0 {
		return 0
	}

	angles := make([]float64, 0, len(le.order))
	for _, other := range le.order {
		d := le.nodes[other].Position.Sub(center)
		a := math.Atan2(d.Y, d.X)
		if a < 0 {
			a += 2 * math.Pi
		}
		angles = append(angles, a)
	}
	sort.Float64s(angles)

	bestStart, bestGap := angles[len(angles)-1], angles[0]+2*math.Pi-angles[len(angles)-1]
	for i := 1; i < len(angles); i++ {
		if gap := angles[i] - angles[i-1]; gap > bestGap+1e-9 || (math.Abs(gap-bestGap) <= 1e-9 && angles[i-1] < bestStart) {
			bestStart, bestGap = angles[i-1], gap
		}
	}
	return math.Mod(bestStart+bestGap/2, 2*math.Pi)
}

// Remove drops a node's state. Reports whether it was present.
func (le *LayoutEngine) Remove(id string) bool {
	le.mu.Lock()
	defer le.mu.Unlock()
	return le.removeLocked(id)
}

func (le *LayoutEngine) removeLocked(id string) bool {
	if _, ok := le.nodes[id]; !ok {
		return false
	}
	delete(le.nodes, id)
	for i, other := range le.order {
		if other == id {
			le.order = append(le.order[:i], le.order[i+1:]...)
			break
		}
	}
	if le.dragging == id {
		le.dragging = ""
	}
	return true
}

// Sync seeds ids that are missing and removes nodes not in ids.
func (le *LayoutEngine) Sync(ids []string) (added, removed int) {
	le.mu.Lock()
	defer le.mu.Unlock()

	keep := make(map[string]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}
	for _, id := range append([]string(nil), le.order...) {
		if !keep[id] && le.removeLocked(id) {
			removed++
		}
	}
	for _, id := range ids {
		if le.seedLocked(id) {
			added++
		}
	}
	if added > 0 || removed > 0 {
		le.logger.Debug("Layout synced", logging.Int("added", added), logging.Int("removed", removed), logging.Count(len(le.order)))
	}
	return added, removed
}

// SetSimilarity installs the pair similarity used for attraction.
func (le *LayoutEngine) SetSimilarity(fn func(a, b string) float64) {
	if fn == nil {
		fn = func(a, b string) float64 { return 0 }
	}
	le.mu.Lock()
	le.similarity = fn
	le.mu.Unlock()
}

// SetWeights installs pair similarity from a weighted edge list. Pairs not
// listed have similarity 0.
func (le *LayoutEngine) SetWeights(edges []algorithms.Edge) {
	weights := make(map[[2]string]float64, len(edges))
	for _, e := range edges {
		weights[pairKey(e.Node1, e.Node2)] = e.Weight
	}
	le.SetSimilarity(func(a, b string) float64 {
		return weights[pairKey(a, b)]
	})
}

func pairKey(a, b string) [2]string {
	if b < a {
		a, b = b, a
	}
	return [2]string{a, b}
}

// Tick advances the simulation by dt, measured in nominal frames. Forces on a
// dragged node are computed but it is not moved.
func (le *LayoutEngine) Tick(dt float64) {
	start := time.Now()

	le.mu.Lock()
	defer le.mu.Unlock()

	n := len(le.order)
	if n == 0 || dt <= 0 {
		return
	}

	cfg := le.config
	states := make([]*NodeState, n)
	for i, id := range le.order {
		states[i] = le.nodes[id]
	}
	forces := make([]Position, n)

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			delta := states[j].Position.Sub(states[i].Position)
			d := math.Hypot(delta.X, delta.Y)

			var unit Position
			if d < minDistance {
				unit = tieBreakDirection(i, j)
				d = minDistance
			} else {
				unit = delta.Scale(1 / d)
			}

			// positive magnitude pulls i toward j
			magnitude := -cfg.Repulsion / (d * d)

			if sim := le.similarity(le.order[i], le.order[j]); sim > cfg.AttractionThreshold {
				magnitude += cfg.AttractionStrength * sim * (d - cfg.TargetDistance(sim))
			}

			if d < cfg.MinSeparation {
				magnitude -= cfg.SeparationStrength * (cfg.MinSeparation - d)
			}

			f := unit.Scale(magnitude)
			forces[i] = forces[i].Add(f)
			forces[j] = forces[j].Sub(f)
		}
	}

	for i, st := range states {
		if le.order[i] == le.dragging {
			continue
		}
		st.Velocity = st.Velocity.Add(forces[i].Scale(dt)).Scale(cfg.Damping)

		step := st.Velocity.Scale(dt)
		if dist := math.Hypot(step.X, step.Y); dist > cfg.MaxDisplacement {
			st.Velocity = st.Velocity.Scale(cfg.MaxDisplacement / dist)
			step = st.Velocity.Scale(dt)
		}
		st.Position = st.Position.Add(step)
	}

	if le.metrics != nil {
		le.metrics.RecordTick(time.Since(start), n)
	}
}

// tieBreakDirection gives coincident nodes i < j a fixed unit direction so
// they separate the same way every run.
func tieBreakDirection(i, j int) Position {
	const goldenAngle = 2.399963229728653
	angle := goldenAngle * float64(i*31+j)
	return Position{X: math.Cos(angle), Y: math.Sin(angle)}
}

// BeginDrag pins a node so Tick stops moving it. Reports whether the node exists.
func (le *LayoutEngine) BeginDrag(id string) bool {
	le.mu.Lock()
	defer le.mu.Unlock()
	if _, ok := le.nodes[id]; !ok {
		return false
	}
	le.dragging = id
	return true
}

// DragTo moves a node to p and clears its velocity.
func (le *LayoutEngine) DragTo(id string, p Position) {
	le.mu.Lock()
	defer le.mu.Unlock()
	if st, ok := le.nodes[id]; ok {
		st.Position = p
		st.Velocity = Position{}
	}
}

// EndDrag releases the pinned node.
func (le *LayoutEngine) EndDrag() {
	le.mu.Lock()
	le.dragging = ""
	le.mu.Unlock()
}

// Dragging returns the pinned node id, or "".
func (le *LayoutEngine) Dragging() string {
	le.mu.Lock()
	defer le.mu.Unlock()
	return le.dragging
}

// Positions returns a snapshot of every node position.
func (le *LayoutEngine) Positions() map[string]Position {
	le.mu.Lock()
	defer le.mu.Unlock()
	out := make(map[string]Position, len(le.nodes))
	for id, st := range le.nodes {
		out[id] = st.Position
	}
	return out
}

// Position returns one node's position.
func (le *LayoutEngine) Position(id string) (Position, bool) {
	le.mu.Lock()
	defer le.mu.Unlock()
	st, ok := le.nodes[id]
	if !ok {
		return Position{}, false
	}
	return st.Position, true
}

// State returns a copy of one node's state.
func (le *LayoutEngine) State(id string) (NodeState, bool) {
	le.mu.Lock()
	defer le.mu.Unlock()
	st, ok := le.nodes[id]
	if !ok {
		return NodeState{}, false
	}
	return *st, true
}

// Len returns the number of simulated nodes.
func (le *LayoutEngine) Len() int {
	le.mu.Lock()
	defer le.mu.Unlock()
	return len(le.order)
}

// NodeAt returns the node whose position lies within radius of p, nearest
// first. Renderers use it for hit testing.
func (le *LayoutEngine) NodeAt(p Position, radius float64) (string, bool) {
	le.mu.Lock()
	defer le.mu.Unlock()

	best, bestDist := "", math.Inf(1)
	for _, id := range le.order {
		q := le.nodes[id].Position
		if d := math.Hypot(q.X-p.X, q.Y-p.Y); d <= radius && d < bestDist {
			best, bestDist = id, d
		}
	}
	return best, best != ""
}

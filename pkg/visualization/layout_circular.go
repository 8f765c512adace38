package visualization

import (
	"math"

	"github.com/dd0wney/cluso-tabgraph/pkg/algorithms"
)

// CircularLayout arranges nodes in a circle
type CircularLayout struct {
	config LayoutConfig
}

// NewCircularLayout creates a new circular layout
func NewCircularLayout(config LayoutConfig) *CircularLayout {
	if config.Padding == 0 {
		config.Padding = 50
	}
	return &CircularLayout{config: config}
}

// ComputeLayout arranges nodes in a circle in the given order, starting at
// angle 0.
func (cl *CircularLayout) ComputeLayout(nodeIDs []string, _ []algorithms.Edge) map[string]Position {
	positions := make(map[string]Position, len(nodeIDs))

	if len(nodeIDs) == 0 {
		return positions
	}

	center := cl.config.center()
	radius := math.Min(center.X, center.Y) - cl.config.Padding

	angleStep := 2 * math.Pi / float64(len(nodeIDs))

	for i, nodeID := range nodeIDs {
		positions[nodeID] = onCircle(center, radius, float64(i)*angleStep)
	}

	return positions
}

func onCircle(center Position, radius, angle float64) Position {
	return Position{
		X: center.X + radius*math.Cos(angle),
		Y: center.Y + radius*math.Sin(angle),
	}
}

package visualization

import (
	"github.com/dd0wney/cluso-tabgraph/pkg/algorithms"
)

// HierarchicalLayout arranges a spanning tree in levels by breadth-first
// distance from its roots. Typical roots are the most central node of each
// cluster.
type HierarchicalLayout struct {
	config LayoutConfig
	roots  []string
}

// NewHierarchicalLayout creates a new hierarchical layout
func NewHierarchicalLayout(config LayoutConfig, roots []string) *HierarchicalLayout {
	if config.Padding == 0 {
		config.Padding = 50
	}
	return &HierarchicalLayout{config: config, roots: roots}
}

// ComputeLayout arranges nodes hierarchically. Edges are undirected.
func (hl *HierarchicalLayout) ComputeLayout(nodeIDs []string, edges []algorithms.Edge) map[string]Position {
	positions := make(map[string]Position, len(nodeIDs))

	if len(nodeIDs) == 0 {
		return positions
	}

	known := make(map[string]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		known[id] = true
	}

	adjacency := make(map[string][]string)
	for _, e := range edges {
		adjacency[e.Node1] = append(adjacency[e.Node1], e.Node2)
		adjacency[e.Node2] = append(adjacency[e.Node2], e.Node1)
	}

	roots := make([]string, 0, len(hl.roots))
	for _, r := range hl.roots {
		if known[r] {
			roots = append(roots, r)
		}
	}
	if len(roots) == 0 {
		// No usable root, use first node
		roots = []string{nodeIDs[0]}
	}

	// Build levels using BFS
	levels := make([][]string, 0)
	visited := make(map[string]bool)
	for _, r := range roots {
		visited[r] = true
	}
	currentLevel := roots

	for len(currentLevel) > 0 {
		levels = append(levels, currentLevel)
		nextLevel := make([]string, 0)

		for _, nodeID := range currentLevel {
			for _, neighbor := range adjacency[nodeID] {
				if known[neighbor] && !visited[neighbor] {
					nextLevel = append(nextLevel, neighbor)
					visited[neighbor] = true
				}
			}
		}

		currentLevel = nextLevel
	}

	// Add unvisited nodes to last level
	for _, nodeID := range nodeIDs {
		if !visited[nodeID] {
			levels[len(levels)-1] = append(levels[len(levels)-1], nodeID)
		}
	}

	// Position nodes
	levelHeight := (hl.config.Height - 2*hl.config.Padding) / float64(len(levels))

	for levelIdx, level := range levels {
		y := hl.config.Padding + float64(levelIdx)*levelHeight + levelHeight/2
		levelWidth := hl.config.Width - 2*hl.config.Padding
		spacing := levelWidth / float64(len(level)+1)

		for nodeIdx, nodeID := range level {
			x := hl.config.Padding + spacing*float64(nodeIdx+1)
			positions[nodeID] = Position{X: x, Y: y}
		}
	}

	return positions
}

// Package visualization positions tab graph nodes for a renderer: a
// continuously ticking force simulation plus static circular and tree
// layouts, and a JSON export of the current picture.
package visualization

import (
	"github.com/dd0wney/cluso-tabgraph/pkg/algorithms"
)

// Position represents a 2D coordinate
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p + q.
func (p Position) Add(q Position) Position { return Position{p.X + q.X, p.Y + q.Y} }

// Sub returns p - q.
func (p Position) Sub(q Position) Position { return Position{p.X - q.X, p.Y - q.Y} }

// Scale returns p * s.
func (p Position) Scale(s float64) Position { return Position{p.X * s, p.Y * s} }

// LayoutConfig configures the viewport and the force simulation.
type LayoutConfig struct {
	Width   float64 // Canvas width
	Height  float64 // Canvas height
	Padding float64 // Padding from edges for static layouts

	Repulsion           float64 // inverse-square repulsion constant
	AttractionStrength  float64 // spring constant, scaled by similarity
	AttractionThreshold float64 // springs only act above this similarity
	TargetBase          float64 // rest length at similarity 0
	TargetFloor         float64 // rest length added at every similarity
	SimilarityCap       float64 // similarity is capped here when computing rest length
	MinSeparation       float64 // nodes closer than this are pushed apart
	SeparationStrength  float64
	Damping             float64 // velocity multiplier per tick
	MaxDisplacement     float64 // per-tick movement cap
	SeedRadius          float64 // radius of the seeding circle; 0 = 0.35*min(W, H)
}

// DefaultLayoutConfig returns the default layout configuration
func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{
		Width:               800,
		Height:              600,
		Padding:             50,
		Repulsion:           5000,
		AttractionStrength:  0.05,
		AttractionThreshold: 0.3,
		TargetBase:          200,
		TargetFloor:         40,
		SimilarityCap:       0.9,
		MinSeparation:       30,
		SeparationStrength:  0.5,
		Damping:             0.8,
		MaxDisplacement:     10,
	}
}

func (c LayoutConfig) seedRadius() float64 {
	if c.SeedRadius > 0 {
		return c.SeedRadius
	}
	return 0.35 * min(c.Width, c.Height)
}

func (c LayoutConfig) center() Position {
	return Position{X: c.Width / 2, Y: c.Height / 2}
}

// TargetDistance is the spring rest length for a pair with similarity sim.
func (c LayoutConfig) TargetDistance(sim float64) float64 {
	return c.TargetBase*(1-min(c.SimilarityCap, sim)) + c.TargetFloor
}

// Layout computes static positions for a node set.
type Layout interface {
	ComputeLayout(nodeIDs []string, edges []algorithms.Edge) map[string]Position
}

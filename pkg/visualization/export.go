package visualization

import (
	"encoding/json"

	"github.com/dd0wney/cluso-tabgraph/pkg/algorithms"
)

// NodeInfo describes one tab for export.
type NodeInfo struct {
	ID    string
	URL   string
	Title string
}

// ClusterInfo describes one cluster for export.
type ClusterInfo struct {
	ID      int
	Title   string
	Summary string
	Tags    []string
	Pending bool
}

// Visualization represents a tab graph picture: node positions, the spanning
// structure and the cluster descriptions.
type Visualization struct {
	Nodes     []NodeInfo
	Positions map[string]Position
	Clusters  algorithms.ClusterAssignment
	MST       *algorithms.MSTResult
	Summaries []ClusterInfo
}

// ExportJSON exports the visualization to JSON
func (v *Visualization) ExportJSON() ([]byte, error) {
	type NodeViz struct {
		ID         string  `json:"id"`
		URL        string  `json:"url"`
		Title      string  `json:"title,omitempty"`
		X          float64 `json:"x"`
		Y          float64 `json:"y"`
		Cluster    int     `json:"cluster"`
		Centrality float64 `json:"centrality"`
	}

	type EdgeViz struct {
		Source string  `json:"source"`
		Target string  `json:"target"`
		Weight float64 `json:"weight"`
		Bridge bool    `json:"bridge"`
	}

	type ClusterViz struct {
		ID      int      `json:"id"`
		Title   string   `json:"title"`
		Summary string   `json:"summary,omitempty"`
		Tags    []string `json:"tags,omitempty"`
		Pending bool     `json:"pending,omitempty"`
		Members []string `json:"members"`
	}

	type VizData struct {
		Nodes       []NodeViz    `json:"nodes"`
		Edges       []EdgeViz    `json:"edges"`
		Clusters    []ClusterViz `json:"clusters"`
		TotalWeight float64      `json:"total_weight"`
	}

	data := VizData{
		Nodes:    make([]NodeViz, 0, len(v.Nodes)),
		Edges:    make([]EdgeViz, 0),
		Clusters: make([]ClusterViz, 0, len(v.Summaries)),
	}

	var centrality map[string]float64
	if v.MST != nil {
		centrality = v.MST.NodeCentrality
	}

	// Convert nodes
	for _, node := range v.Nodes {
		pos := v.Positions[node.ID]
		cluster := -1
		if cid, ok := v.Clusters[node.ID]; ok {
			cluster = cid
		}
		data.Nodes = append(data.Nodes, NodeViz{
			ID:         node.ID,
			URL:        node.URL,
			Title:      node.Title,
			X:          pos.X,
			Y:          pos.Y,
			Cluster:    cluster,
			Centrality: centrality[node.ID],
		})
	}

	// Convert edges
	if v.MST != nil {
		bridges := make(map[algorithms.Edge]bool, len(v.MST.BridgeEdges))
		for _, e := range v.MST.BridgeEdges {
			bridges[e] = true
		}
		for _, e := range v.MST.Edges {
			data.Edges = append(data.Edges, EdgeViz{
				Source: e.Node1,
				Target: e.Node2,
				Weight: e.Weight,
				Bridge: bridges[e],
			})
		}
		data.TotalWeight = v.MST.TotalWeight
	}

	// Convert clusters
	ids := make([]string, 0, len(v.Nodes))
	for _, node := range v.Nodes {
		ids = append(ids, node.ID)
	}
	members := algorithms.ClusterMembers(v.Clusters, ids)
	for _, c := range v.Summaries {
		m := []string{}
		if c.ID >= 0 && c.ID < len(members) && members[c.ID] != nil {
			m = members[c.ID]
		}
		data.Clusters = append(data.Clusters, ClusterViz{
			ID:      c.ID,
			Title:   c.Title,
			Summary: c.Summary,
			Tags:    c.Tags,
			Pending: c.Pending,
			Members: m,
		})
	}

	return json.MarshalIndent(data, "", "  ")
}

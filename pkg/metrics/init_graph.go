package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initGraphMetrics() {
	r.PassDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tabgraph_pass_duration_seconds",
			Help:    "Duration of a full scoring, clustering and spanning tree pass",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30, 120},
		},
	)

	r.PassesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabgraph_passes_total",
			Help: "Graph passes by status",
		},
		[]string{"status"},
	)

	r.GraphNodes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "tabgraph_graph_nodes",
			Help: "Tabs in the last computed graph",
		},
	)

	r.GraphClusters = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "tabgraph_graph_clusters",
			Help: "Clusters in the last computed graph",
		},
	)

	r.MSTEdges = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "tabgraph_mst_edges",
			Help: "Edges kept by the last spanning tree computation",
		},
	)

	r.BridgeEdges = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "tabgraph_bridge_edges",
			Help: "Inter-cluster bridge edges in the last spanning tree computation",
		},
	)

	r.PairEvaluation = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "tabgraph_pair_evaluations_total",
			Help: "Pairwise similarity evaluations performed by clustering passes",
		},
	)
}

func (r *Registry) initLayoutMetrics() {
	r.TickDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tabgraph_tick_duration_seconds",
			Help:    "Physics tick duration in seconds",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.004, 0.016, 0.05},
		},
	)

	r.LayoutNodes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "tabgraph_layout_nodes",
			Help: "Nodes currently simulated by the layout engine",
		},
	)
}

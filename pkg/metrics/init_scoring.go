package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initScoringMetrics() {
	r.ScoresTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabgraph_scores_total",
			Help: "Similarity score lookups by result source",
		},
		[]string{"source"},
	)

	r.ScoreDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tabgraph_score_duration_seconds",
			Help:    "Similarity score lookup duration in seconds",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1, 5, 15},
		},
		[]string{"source"},
	)

	r.CacheEntries = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "tabgraph_cache_entries",
			Help: "Number of pair scores held in the similarity cache",
		},
	)

	r.CacheSaveFailuresTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "tabgraph_cache_save_failures_total",
			Help: "Similarity cache snapshot writes that failed",
		},
	)

	r.BackendBreakerState = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "tabgraph_backend_breaker_state",
			Help: "Backend circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	r.BackendCalls = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabgraph_backend_calls_total",
			Help: "Remote backend calls by operation and status",
		},
		[]string{"operation", "status"},
	)
}

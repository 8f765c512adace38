package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSummaryMetrics() {
	r.SummaryJobsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabgraph_summary_jobs_total",
			Help: "Cluster summary jobs by status",
		},
		[]string{"status"},
	)

	r.SummaryInFlight = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "tabgraph_summary_inflight",
			Help: "Cluster summary jobs currently running",
		},
	)

	r.PoolTasksTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabgraph_pool_tasks_total",
			Help: "Worker pool tasks by status",
		},
		[]string{"status"},
	)
}

func (r *Registry) initSystemMetrics() {
	r.UptimeSeconds = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "tabgraph_uptime_seconds",
			Help: "Time since the engine started in seconds",
		},
	)

	r.GoRoutines = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "tabgraph_goroutines",
			Help: "Number of goroutines",
		},
	)
}

package metrics

import (
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),
	}

	r.initScoringMetrics()
	r.initGraphMetrics()
	r.initLayoutMetrics()
	r.initSummaryMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// RecordScore records a similarity score lookup. source is one of
// "cache", "backend", "heuristic", "fallback" or "missing".
func (r *Registry) RecordScore(source string, duration time.Duration) {
	r.ScoresTotal.WithLabelValues(source).Inc()
	r.ScoreDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordBackendCall records one remote backend call by operation and status.
func (r *Registry) RecordBackendCall(operation, status string) {
	r.BackendCalls.WithLabelValues(operation, status).Inc()
}

// SetBreakerState mirrors the circuit breaker state (0 closed, 1 half-open, 2 open).
func (r *Registry) SetBreakerState(state int) {
	r.BackendBreakerState.Set(float64(state))
}

// RecordPass records a completed clustering / spanning tree pass.
func (r *Registry) RecordPass(status string, duration time.Duration, nodes, clusters, mstEdges, bridges int) {
	r.PassesTotal.WithLabelValues(status).Inc()
	r.PassDuration.Observe(duration.Seconds())
	if status != "ok" {
		return
	}
	r.GraphNodes.Set(float64(nodes))
	r.GraphClusters.Set(float64(clusters))
	r.MSTEdges.Set(float64(mstEdges))
	r.BridgeEdges.Set(float64(bridges))
}

// RecordTick records one physics tick.
func (r *Registry) RecordTick(duration time.Duration, nodes int) {
	r.TickDuration.Observe(duration.Seconds())
	r.LayoutNodes.Set(float64(nodes))
}

// RecordSummaryJob records a finished summary job ("ok" or "error").
func (r *Registry) RecordSummaryJob(status string) {
	r.SummaryJobsTotal.WithLabelValues(status).Inc()
}

// RecordPoolTask records a worker pool task outcome.
func (r *Registry) RecordPoolTask(status string) {
	r.PoolTasksTotal.WithLabelValues(status).Inc()
}

// UpdateSystemMetrics refreshes uptime and goroutine gauges.
func (r *Registry) UpdateSystemMetrics() {
	r.mu.RLock()
	start := r.startTime
	r.mu.RUnlock()

	r.UptimeSeconds.Set(time.Since(start).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
}

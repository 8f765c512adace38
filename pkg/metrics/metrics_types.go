package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the tab graph engine
type Registry struct {
	// Scoring Metrics
	ScoresTotal            *prometheus.CounterVec
	ScoreDuration          *prometheus.HistogramVec
	CacheEntries           prometheus.Gauge
	CacheSaveFailuresTotal prometheus.Counter
	BackendBreakerState    prometheus.Gauge

	// Graph Pass Metrics
	PassDuration   prometheus.Histogram
	PassesTotal    *prometheus.CounterVec
	GraphNodes     prometheus.Gauge
	GraphClusters  prometheus.Gauge
	MSTEdges       prometheus.Gauge
	BridgeEdges    prometheus.Gauge
	PairEvaluation prometheus.Counter

	// Layout Metrics
	TickDuration prometheus.Histogram
	LayoutNodes  prometheus.Gauge

	// Summary Metrics
	SummaryJobsTotal *prometheus.CounterVec
	SummaryInFlight  prometheus.Gauge
	BackendCalls     *prometheus.CounterVec

	// Worker Pool Metrics
	PoolTasksTotal *prometheus.CounterVec

	// System Metrics
	UptimeSeconds prometheus.Gauge
	GoRoutines    prometheus.Gauge

	startTime time.Time
	registry  *prometheus.Registry
	mu        sync.RWMutex
}

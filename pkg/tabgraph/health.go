package tabgraph

import (
	"runtime"

	"github.com/dd0wney/cluso-tabgraph/pkg/health"
)

// summaryBacklogLimit is the number of running summary jobs past which the
// engine reports itself degraded.
const summaryBacklogLimit = 32

// RegisterHealthChecks adds the engine's health checks to c.
func (e *Engine) RegisterHealthChecks(c *health.Checker) {
	c.Register("scoring_backend", health.BreakerCheck(e.scorer.BreakerState))
	c.Register("similarity_cache", health.CacheCheck(e.cache.Len, e.scorer.SaveError))
	c.Register("summaries", health.BacklogCheck("summaries", e.PendingSummaries, summaryBacklogLimit))
	c.Register("memory", health.MemoryCheck(func() (uint64, uint64) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		return m.HeapAlloc, m.Sys
	}))
	c.RegisterReadiness("graph", health.GraphReadyCheck(func() bool {
		return e.MST() != nil
	}))
}

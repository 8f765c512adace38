package health

import "fmt"

// BreakerCheck reports the scoring backend's circuit breaker. An open
// breaker degrades scoring to the domain fallback, so it is never fatal.
func BreakerCheck(state func() string) CheckFunc {
	return func() Check {
		check := Check{Name: "scoring_backend", Details: make(map[string]any)}

		s := state()
		check.Details["breaker"] = s
		switch s {
		case "":
			check.Status = StatusHealthy
			check.Message = "Offline scoring"
		case "closed":
			check.Status = StatusHealthy
			check.Message = "Backend reachable"
		case "half-open":
			check.Status = StatusDegraded
			check.Message = "Backend recovering"
		default:
			check.Status = StatusDegraded
			check.Message = "Backend unavailable, using domain fallback"
		}
		return check
	}
}

// CacheCheck reports whether the similarity cache snapshot is being saved.
// The cache keeps working in memory when writes fail.
func CacheCheck(entries func() int, saveErr func() error) CheckFunc {
	return func() Check {
		check := Check{Name: "similarity_cache", Details: make(map[string]any)}
		check.Details["entries"] = entries()

		if err := saveErr(); err != nil {
			check.Status = StatusDegraded
			check.Message = err.Error()
		} else {
			check.Status = StatusHealthy
			check.Message = "Snapshot up to date"
		}
		return check
	}
}

// BacklogCheck reports the number of running summary jobs against limit.
func BacklogCheck(name string, pending func() int, limit int) CheckFunc {
	return func() Check {
		check := Check{Name: name, Details: make(map[string]any)}

		n := pending()
		check.Details["pending"] = n
		check.Details["limit"] = limit
		if limit > 0 && n > limit {
			check.Status = StatusDegraded
			check.Message = fmt.Sprintf("%d jobs pending", n)
		} else {
			check.Status = StatusHealthy
		}
		return check
	}
}

// GraphReadyCheck passes once the first graph pass has been applied.
func GraphReadyCheck(ready func() bool) CheckFunc {
	return func() Check {
		if ready() {
			return Check{Name: "graph", Status: StatusHealthy, Message: "Graph computed"}
		}
		return Check{Name: "graph", Status: StatusUnhealthy, Message: "No graph pass applied yet"}
	}
}

// MemoryCheck reports heap usage against the memory obtained from the OS.
func MemoryCheck(getUsage func() (alloc, sys uint64)) CheckFunc {
	return func() Check {
		check := Check{Name: "memory", Details: make(map[string]any)}

		alloc, sys := getUsage()
		check.Details["alloc_bytes"] = alloc
		check.Details["sys_bytes"] = sys

		if sys > 0 && float64(alloc)/float64(sys) > 0.9 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		} else {
			check.Status = StatusHealthy
			check.Message = "Memory usage normal"
		}
		return check
	}
}

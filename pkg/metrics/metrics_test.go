package metrics

import (
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}

	if r.ScoresTotal == nil {
		t.Error("ScoresTotal not initialized")
	}
	if r.PassDuration == nil {
		t.Error("PassDuration not initialized")
	}
	if r.SummaryJobsTotal == nil {
		t.Error("SummaryJobsTotal not initialized")
	}
	if r.GetPrometheusRegistry() == nil {
		t.Error("Prometheus registry not initialized")
	}
}

func TestDefaultRegistry(t *testing.T) {
	if DefaultRegistry() != DefaultRegistry() {
		t.Error("DefaultRegistry() should return the same instance")
	}
}

func TestRecordScore(t *testing.T) {
	r := NewRegistry()

	r.RecordScore("cache", time.Microsecond)
	r.RecordScore("cache", time.Microsecond)
	r.RecordScore("backend", 200*time.Millisecond)

	counter, err := r.ScoresTotal.GetMetricWithLabelValues("cache")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}

	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 2 {
		t.Errorf("Counter value = %v, want 2", metric.Counter.GetValue())
	}
}

func TestRecordPass(t *testing.T) {
	r := NewRegistry()

	r.RecordPass("ok", 10*time.Millisecond, 9, 3, 6, 3)
	r.RecordPass("error", time.Millisecond, 0, 0, 0, 0)

	var metric dto.Metric
	if err := r.GraphClusters.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Gauge.GetValue() != 3 {
		t.Errorf("clusters gauge = %v, want 3 (error pass must not reset it)", metric.Gauge.GetValue())
	}

	families, err := r.GetPrometheusRegistry().Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "tabgraph_passes_total" {
			found = true
			if len(f.GetMetric()) != 2 {
				t.Errorf("expected 2 status series, got %d", len(f.GetMetric()))
			}
		}
	}
	if !found {
		t.Error("tabgraph_passes_total not gathered")
	}
}

func TestUpdateSystemMetrics(t *testing.T) {
	r := NewRegistry()
	r.UpdateSystemMetrics()

	var metric dto.Metric
	if err := r.GoRoutines.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Gauge.GetValue() < 1 {
		t.Errorf("goroutines = %v, want >= 1", metric.Gauge.GetValue())
	}
}

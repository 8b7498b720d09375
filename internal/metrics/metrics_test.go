package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// getMetric returns the value of a metric by its fully-qualified name from gathered families.
func getMetric(mfs []*dto.MetricFamily, name string) float64 {
	for _, mf := range mfs {
		if mf.GetName() == name {
			// counters/gauges here are unlabelled, take the first
			if len(mf.Metric) > 0 {
				m := mf.Metric[0]
				if mf.GetType() == dto.MetricType_COUNTER {
					return m.GetCounter().GetValue()
				}
				if mf.GetType() == dto.MetricType_GAUGE {
					return m.GetGauge().GetValue()
				}
			}
		}
	}
	return 0
}

func TestRegisterAndCounters(t *testing.T) {
	reg := prometheus.NewRegistry()

	// First registration should succeed
	if err := Register(reg); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	// Second registration should be idempotent (ignore AlreadyRegistered)
	if err := Register(reg); err != nil {
		t.Fatalf("Register (second) failed: %v", err)
	}

	// Capture baseline values (collectors are globals; use deltas for assertions)
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	baseEvents := getMetric(mfs, "taildir_events_total")
	baseBytes := getMetric(mfs, "taildir_bytes_total")
	baseCommits := getMetric(mfs, "taildir_commits_total")
	baseRollbacks := getMetric(mfs, "taildir_rollbacks_total")
	baseTruncations := getMetric(mfs, "taildir_truncations_total")
	baseErrors := getMetric(mfs, "taildir_read_errors_total")
	basePosWrites := getMetric(mfs, "taildir_position_writes_total")

	// Perform updates
	IncEvents(3)
	IncEvents(0) // no-op
	AddBytes(10)
	AddBytes(-5) // no-op
	IncCommits()
	IncRollbacks()
	IncTruncations()
	IncReadErrors()
	IncPositionWrites()
	SetTrackedFiles(4)
	SetOpenFiles(2)

	mfs2, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather 2 failed: %v", err)
	}

	if got := getMetric(mfs2, "taildir_events_total") - baseEvents; got != 3 {
		t.Fatalf("events_total delta = %v, want 3", got)
	}
	if got := getMetric(mfs2, "taildir_bytes_total") - baseBytes; got != 10 {
		t.Fatalf("bytes_total delta = %v, want 10", got)
	}
	if got := getMetric(mfs2, "taildir_commits_total") - baseCommits; got != 1 {
		t.Fatalf("commits_total delta = %v, want 1", got)
	}
	if got := getMetric(mfs2, "taildir_rollbacks_total") - baseRollbacks; got != 1 {
		t.Fatalf("rollbacks_total delta = %v, want 1", got)
	}
	if got := getMetric(mfs2, "taildir_truncations_total") - baseTruncations; got != 1 {
		t.Fatalf("truncations_total delta = %v, want 1", got)
	}
	if got := getMetric(mfs2, "taildir_read_errors_total") - baseErrors; got != 1 {
		t.Fatalf("read_errors_total delta = %v, want 1", got)
	}
	if got := getMetric(mfs2, "taildir_position_writes_total") - basePosWrites; got != 1 {
		t.Fatalf("position_writes_total delta = %v, want 1", got)
	}
	if got := getMetric(mfs2, "taildir_tracked_files"); got != 4 {
		t.Fatalf("tracked_files = %v, want 4", got)
	}
	if got := getMetric(mfs2, "taildir_open_files"); got != 2 {
		t.Fatalf("open_files = %v, want 2", got)
	}
}

package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	eventsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "taildir",
		Name:      "events_total",
		Help:      "Total number of events read from tailed files.",
	})
	bytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "taildir",
		Name:      "bytes_total",
		Help:      "Total number of committed bytes across all tailed files.",
	})
	commitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "taildir",
		Name:      "commits_total",
		Help:      "Total number of committed batches.",
	})
	rollbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "taildir",
		Name:      "rollbacks_total",
		Help:      "Total number of uncommitted batches re-read after a rollback.",
	})
	truncationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "taildir",
		Name:      "truncations_total",
		Help:      "Total number of detected file truncations (position reset to 0).",
	})
	readErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "taildir",
		Name:      "read_errors_total",
		Help:      "Total number of read errors encountered while tailing files.",
	})
	trackedFiles = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "taildir",
		Name:      "tracked_files",
		Help:      "Current number of files in the tail registry.",
	})
	openFiles = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "taildir",
		Name:      "open_files",
		Help:      "Current number of tracked files holding an open handle.",
	})
	positionWritesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "taildir",
		Name:      "position_writes_total",
		Help:      "Total number of position file writes.",
	})
)

// Register registers all taildir metrics to the provided Prometheus
// registerer. It is safe to call multiple times; AlreadyRegisteredError will
// be ignored.
func Register(r prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		eventsTotal, bytesTotal, commitsTotal, rollbacksTotal,
		truncationsTotal, readErrorsTotal, trackedFiles, openFiles,
		positionWritesTotal,
	}
	for _, c := range collectors {
		if err := r.Register(c); err != nil {
			var alreadyRegisteredError prometheus.AlreadyRegisteredError
			if errors.As(err, &alreadyRegisteredError) {
				continue
			}
			return err
		}
	}
	return nil
}

// IncEvents increments the events counter by n.
func IncEvents(n int) {
	if n > 0 {
		eventsTotal.Add(float64(n))
	}
}

// AddBytes adds n committed bytes to the bytes counter.
func AddBytes(n int64) {
	if n > 0 {
		bytesTotal.Add(float64(n))
	}
}

// IncCommits increments the commit counter by 1.
func IncCommits() { commitsTotal.Inc() }

// IncRollbacks increments the rollback counter by 1.
func IncRollbacks() { rollbacksTotal.Inc() }

// IncTruncations increments the truncation counter by 1.
func IncTruncations() { truncationsTotal.Inc() }

// IncReadErrors increments the read errors counter by 1.
func IncReadErrors() { readErrorsTotal.Inc() }

// SetTrackedFiles sets the tracked files gauge.
func SetTrackedFiles(n int) { trackedFiles.Set(float64(n)) }

// SetOpenFiles sets the open files gauge.
func SetOpenFiles(n int) { openFiles.Set(float64(n)) }

// IncPositionWrites increments the position write counter by 1.
func IncPositionWrites() { positionWritesTotal.Inc() }

package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	deliveredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taildir",
			Subsystem: "sink",
			Name:      "delivered_total",
			Help:      "Total number of events delivered per sink.",
		},
		[]string{"sink"},
	)
	filteredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taildir",
			Subsystem: "sink",
			Name:      "filtered_total",
			Help:      "Total number of events dropped by include/exclude filters.",
		},
		[]string{"sink"},
	)
	deliveryFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taildir",
			Subsystem: "sink",
			Name:      "delivery_failures_total",
			Help:      "Total number of failed batch deliveries.",
		},
		[]string{"sink"},
	)
	deliveryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "taildir",
			Subsystem: "sink",
			Name:      "delivery_duration_seconds",
			Help:      "Duration of batch deliveries.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"sink"},
	)
)

// Register registers the sink metrics to the provided Prometheus
// registerer. Safe to call multiple times.
func Register(r prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		deliveredTotal, filteredTotal, deliveryFailuresTotal, deliveryDuration,
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

// DeliveryObserve records the outcome of one batch delivery.
func DeliveryObserve(sink string, delivered int, d time.Duration, ok bool) {
	if delivered > 0 {
		deliveredTotal.WithLabelValues(sink).Add(float64(delivered))
	}
	deliveryDuration.WithLabelValues(sink).Observe(d.Seconds())
	if !ok {
		deliveryFailuresTotal.WithLabelValues(sink).Inc()
	}
}

// IncFiltered counts events dropped by a sink's filters.
func IncFiltered(sink string, n int) {
	if n > 0 {
		filteredTotal.WithLabelValues(sink).Add(float64(n))
	}
}

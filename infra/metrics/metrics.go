// Package metrics holds the Prometheus collectors for the store and the
// change feed.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ordmap"

// Metrics groups every collector. Build it once per registry.
type Metrics struct {
	Ops        *prometheus.CounterVec
	OpDuration *prometheus.HistogramVec
	Size       prometheus.Gauge
	Height     prometheus.Gauge

	FeedPublished prometheus.Counter
	FeedFailed    prometheus.Counter
	FeedQueue     prometheus.Gauge
}

// New registers the collectors on reg. A nil reg leaves them unregistered,
// which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Ops: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Store operations by kind and result.",
		}, []string{"op", "result"}),
		OpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Store operation latency, lock wait included.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}, []string{"op"}),
		Size: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "entries",
			Help:      "Number of entries in the map.",
		}),
		Height: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tree_height",
			Help:      "Height of the red-black tree at the last Stats call.",
		}),
		FeedPublished: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "published_total",
			Help:      "Change events delivered to the broker.",
		}),
		FeedFailed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "publish_failures_total",
			Help:      "Failed publish attempts, retries included.",
		}),
		FeedQueue: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "pending",
			Help:      "Change events in the outbox awaiting broker ack.",
		}),
	}
}

// Observe records one finished operation.
func (m *Metrics) Observe(op, result string, seconds float64) {
	if m == nil {
		return
	}
	m.Ops.WithLabelValues(op, result).Inc()
	m.OpDuration.WithLabelValues(op).Observe(seconds)
}

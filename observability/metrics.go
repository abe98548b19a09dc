package observability

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type outboxMetrics struct {
	dispatches  *prometheus.CounterVec
	bodyBytes   prometheus.Histogram
	checkpoints prometheus.Counter
	leafCount   prometheus.Gauge
	halted      prometheus.Gauge
}

var (
	outboxMetricsOnce sync.Once
	outboxRegistry    *outboxMetrics
)

// Outbox returns the lazily-initialised metrics registry tracking dispatch
// and checkpoint activity.
func Outbox() *outboxMetrics {
	outboxMetricsOnce.Do(func() {
		outboxRegistry = &outboxMetrics{
			dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "outbox",
				Subsystem: "core",
				Name:      "dispatches_total",
				Help:      "Accepted messages segmented by destination domain.",
			}, []string{"destination"}),
			bodyBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "outbox",
				Subsystem: "core",
				Name:      "message_body_bytes",
				Help:      "Size distribution of dispatched message bodies.",
				Buckets:   prometheus.ExponentialBuckets(16, 2, 8),
			}),
			checkpoints: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "outbox",
				Subsystem: "core",
				Name:      "checkpoints_total",
				Help:      "Checkpoint calls that recorded a (root, count) pair.",
			}),
			leafCount: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "outbox",
				Subsystem: "core",
				Name:      "leaf_count",
				Help:      "Number of leaves in the accumulator.",
			}),
			halted: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "outbox",
				Subsystem: "core",
				Name:      "halted",
				Help:      "1 once the outbox has entered the terminal Failed state.",
			}),
		}
		prometheus.MustRegister(
			outboxRegistry.dispatches,
			outboxRegistry.bodyBytes,
			outboxRegistry.checkpoints,
			outboxRegistry.leafCount,
			outboxRegistry.halted,
		)
	})
	return outboxRegistry
}

// RecordDispatch notes one accepted message and the resulting leaf count.
func (m *outboxMetrics) RecordDispatch(destination uint32, bodyBytes int, leafCount uint64) {
	if m == nil {
		return
	}
	m.dispatches.WithLabelValues(strconv.FormatUint(uint64(destination), 10)).Inc()
	m.bodyBytes.Observe(float64(bodyBytes))
	m.leafCount.Set(float64(leafCount))
}

// RecordCheckpoint notes one successful checkpoint call.
func (m *outboxMetrics) RecordCheckpoint() {
	if m == nil {
		return
	}
	m.checkpoints.Inc()
}

// RecordHalt marks the outbox as permanently halted.
func (m *outboxMetrics) RecordHalt() {
	if m == nil {
		return
	}
	m.halted.Set(1)
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"prismgw/prism/pkg/config"
)

// RecorderMetrics tracks the async call log recorder queue.
type RecorderMetrics struct {
	queueDepth   prometheus.Gauge
	droppedTotal prometheus.Counter
}

// NewRecorderMetrics creates and registers the recorder metric family.
func NewRecorderMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RecorderMetrics {
	m := &RecorderMetrics{
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "recorder_queue_depth",
			Help:      "Current number of call logs waiting to be written.",
		}),
		droppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "recorder_dropped_total",
			Help:      "Total call logs dropped because the recorder queue was full.",
		}),
	}

	registry.MustRegister(m.queueDepth, m.droppedTotal)
	return m
}

// UpdateQueueDepth sets the current recorder queue depth.
func (m *RecorderMetrics) UpdateQueueDepth(depth int) {
	m.queueDepth.Set(float64(depth))
}

// RecordDrop counts a dropped call log.
func (m *RecorderMetrics) RecordDrop() {
	m.droppedTotal.Inc()
}

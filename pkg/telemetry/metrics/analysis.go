package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"prismgw/prism/pkg/config"
)

// AnalysisMetrics tracks cost accounting and cache estimation accuracy.
type AnalysisMetrics struct {
	costTotal       *prometheus.CounterVec
	cacheHitRate    *prometheus.HistogramVec
	predictionError *prometheus.HistogramVec
}

// NewAnalysisMetrics creates and registers the analysis metric family.
func NewAnalysisMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *AnalysisMetrics {
	// Rates and errors both live in [0, 1].
	rateBuckets := []float64{0.0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0}

	m := &AnalysisMetrics{
		costTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cost_usd_total",
				Help:      "Accumulated estimated request cost in USD.",
			},
			[]string{"provider", "model"},
		),
		cacheHitRate: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_estimated_hit_rate",
				Help:      "Distribution of estimated prompt cache hit rates.",
				Buckets:   rateBuckets,
			},
			[]string{"model"},
		),
		predictionError: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_prediction_error",
				Help:      "Absolute difference between estimated and actual cache hit rates.",
				Buckets:   rateBuckets,
			},
			[]string{"model"},
		),
	}

	registry.MustRegister(m.costTotal, m.cacheHitRate, m.predictionError)
	return m
}

// RecordCost accumulates estimated request cost.
func (m *AnalysisMetrics) RecordCost(provider, model string, cost float64) {
	if cost > 0 {
		m.costTotal.WithLabelValues(provider, model).Add(cost)
	}
}

// RecordEstimate records an estimated cache hit rate.
func (m *AnalysisMetrics) RecordEstimate(model string, hitRate float64) {
	m.cacheHitRate.WithLabelValues(model).Observe(hitRate)
}

// RecordPredictionError records |actual - estimated| hit rate.
func (m *AnalysisMetrics) RecordPredictionError(model string, predictionError float64) {
	m.predictionError.WithLabelValues(model).Observe(predictionError)
}

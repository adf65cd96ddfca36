package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"prismgw/prism/pkg/config"
)

// ProviderMetrics tracks upstream provider health and errors.
type ProviderMetrics struct {
	healthGauge *prometheus.GaugeVec
	errorsTotal *prometheus.CounterVec
}

// NewProviderMetrics creates and registers the provider metric family.
func NewProviderMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ProviderMetrics {
	m := &ProviderMetrics{
		healthGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_healthy",
				Help:      "Provider health status (1 healthy, 0 unhealthy).",
			},
			[]string{"provider"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_errors_total",
				Help:      "Total upstream provider errors by type.",
			},
			[]string{"provider", "error_type"},
		),
	}

	registry.MustRegister(m.healthGauge, m.errorsTotal)
	return m
}

// UpdateHealth sets the health gauge for a provider.
func (m *ProviderMetrics) UpdateHealth(provider string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1.0
	}
	m.healthGauge.WithLabelValues(provider).Set(v)
}

// RecordError counts an upstream error by type (timeout, auth,
// rate_limit, server, network).
func (m *ProviderMetrics) RecordError(provider, errorType string) {
	m.errorsTotal.WithLabelValues(provider, errorType).Inc()
}

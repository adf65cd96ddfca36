package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"prismgw/prism/pkg/config"
)

// RequestMetrics tracks gateway request counts, latencies, and token
// throughput.
type RequestMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	ttftSeconds     *prometheus.HistogramVec
	tokensTotal     *prometheus.CounterVec
}

// NewRequestMetrics creates and registers the request metric family.
func NewRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	m := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "requests_total",
				Help:      "Total number of gateway requests by provider, model, and status.",
			},
			[]string{"provider", "model", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "request_duration_seconds",
				Help:      "End-to-end request duration in seconds.",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"provider", "model"},
		),
		ttftSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "time_to_first_token_seconds",
				Help:      "Time from dispatch to first streamed token.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
			},
			[]string{"provider", "model"},
		),
		tokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "tokens_total",
				Help:      "Total tokens processed by provider, model, and type.",
			},
			[]string{"provider", "model", "type"},
		),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.ttftSeconds,
		m.tokensTotal,
	)
	return m
}

// RecordRequest records a completed request.
func (m *RequestMetrics) RecordRequest(provider, model, status string, duration time.Duration, tokens int) {
	m.requestsTotal.WithLabelValues(provider, model, status).Inc()
	m.requestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
	if tokens > 0 {
		m.tokensTotal.WithLabelValues(provider, model, "total").Add(float64(tokens))
	}
}

// RecordTokens records prompt and completion token counts separately.
func (m *RequestMetrics) RecordTokens(provider, model string, promptTokens, completionTokens int) {
	if promptTokens > 0 {
		m.tokensTotal.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.tokensTotal.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
	}
}

// RecordTTFT records time to first token for a streamed response.
func (m *RequestMetrics) RecordTTFT(provider, model string, ttft time.Duration) {
	m.ttftSeconds.WithLabelValues(provider, model).Observe(ttft.Seconds())
}

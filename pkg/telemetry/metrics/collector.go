package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"prismgw/prism/pkg/config"
)

// Collector orchestrates all Prometheus metrics for the gateway. Metric
// instances are pre-allocated at construction and label cardinality is
// capped so misbehaving clients cannot blow up the registry.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	requestMetrics  *RequestMetrics
	providerMetrics *ProviderMetrics
	analysisMetrics *AnalysisMetrics
	recorderMetrics *RecorderMetrics

	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a collector registered on the given registry.
// A nil registry gets a fresh one.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = "prism"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "gateway"
	}
	if len(cfg.RequestDurationBuckets) == 0 {
		// LLM request latencies run from sub-second to tens of seconds.
		cfg.RequestDurationBuckets = []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0}
	}

	c := &Collector{
		config:             cfg,
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(10000),
	}

	c.requestMetrics = NewRequestMetrics(cfg, registry)
	c.providerMetrics = NewProviderMetrics(cfg, registry)
	c.analysisMetrics = NewAnalysisMetrics(cfg, registry)
	c.recorderMetrics = NewRecorderMetrics(cfg, registry)

	return c
}

// RecordRequest records a completed gateway request.
func (c *Collector) RecordRequest(provider, model, status string, duration time.Duration, tokens int, cost float64) {
	if !c.config.Enabled {
		return
	}

	labelSet := fmt.Sprintf("request:%s:%s:%s", provider, model, status)
	if !c.cardinalityLimiter.Allow(labelSet) {
		// Fold overflow label sets into "other".
		model = "other"
	}

	c.requestMetrics.RecordRequest(provider, model, status, duration, tokens)
	c.analysisMetrics.RecordCost(provider, model, cost)
}

// RecordTokens records prompt and completion token counts.
func (c *Collector) RecordTokens(provider, model string, promptTokens, completionTokens int) {
	if !c.config.Enabled {
		return
	}
	c.requestMetrics.RecordTokens(provider, model, promptTokens, completionTokens)
}

// RecordTTFT records the time to first token of a streamed response.
func (c *Collector) RecordTTFT(provider, model string, ttft time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.requestMetrics.RecordTTFT(provider, model, ttft)
}

// UpdateProviderHealth sets the provider health gauge (1 healthy, 0 not).
func (c *Collector) UpdateProviderHealth(provider string, healthy bool) {
	if !c.config.Enabled {
		return
	}
	c.providerMetrics.UpdateHealth(provider, healthy)
}

// RecordProviderError counts an upstream error by type.
func (c *Collector) RecordProviderError(provider, errorType string) {
	if !c.config.Enabled {
		return
	}
	c.providerMetrics.RecordError(provider, errorType)
}

// RecordCacheEstimate records an estimated cache hit rate.
func (c *Collector) RecordCacheEstimate(model string, hitRate float64) {
	if !c.config.Enabled {
		return
	}
	c.analysisMetrics.RecordEstimate(model, hitRate)
}

// RecordCachePredictionError records |actual - estimated| hit rate.
func (c *Collector) RecordCachePredictionError(model string, predictionError float64) {
	if !c.config.Enabled {
		return
	}
	c.analysisMetrics.RecordPredictionError(model, predictionError)
}

// UpdateRecorderQueueDepth sets the recorder queue depth gauge.
func (c *Collector) UpdateRecorderQueueDepth(depth int) {
	if !c.config.Enabled {
		return
	}
	c.recorderMetrics.UpdateQueueDepth(depth)
}

// RecordRecorderDrop counts a dropped call log.
func (c *Collector) RecordRecorderDrop() {
	if !c.config.Enabled {
		return
	}
	c.recorderMetrics.RecordDrop()
}

// Registry returns the underlying Prometheus registry for the /metrics
// handler.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter caps the number of unique label sets so dynamic
// model names cannot exhaust memory.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a limiter with the given cap.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether the label set may be used. Known sets always
// pass; new sets pass until the cap is reached.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[labelSet]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}

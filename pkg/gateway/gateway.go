package gateway

import (
	"log/slog"

	"prismgw/prism/pkg/analysis/cache"
	"prismgw/prism/pkg/analysis/tokens"
	"prismgw/prism/pkg/calllog"
	"prismgw/prism/pkg/config"
	"prismgw/prism/pkg/providerfactory"
	"prismgw/prism/pkg/routing"
	"prismgw/prism/pkg/telemetry/metrics"
)

// Recorder accepts call logs for asynchronous persistence.
type Recorder interface {
	Record(log *calllog.CallLog) error
}

// Options wires the gateway's dependencies.
type Options struct {
	// Manager holds the configured upstream providers.
	Manager *providerfactory.Manager

	// Recorder receives one call log per completion request. Nil disables
	// recording.
	Recorder Recorder

	// Storage backs the stats endpoint. Nil disables it.
	Storage calllog.Storage

	// Metrics receives request metrics. Nil disables them.
	Metrics *metrics.Collector

	// Analysis configures token, cost, cache, and timing analysis.
	Analysis config.AnalysisConfig

	// ProxyEnabled is reported by the health endpoint.
	ProxyEnabled bool

	// ProxyUsed names the active outbound proxy, recorded on every call
	// log. Empty means direct connections.
	ProxyUsed string
}

// Gateway holds the request pipeline shared by all completion endpoints.
type Gateway struct {
	selector  *routing.Selector
	manager   *providerfactory.Manager
	recorder  Recorder
	storage   calllog.Storage
	metrics   *metrics.Collector
	counter   *tokens.Counter
	estimator *cache.Estimator
	analysis  config.AnalysisConfig
	proxyOn   bool
	proxyUsed string
	logger    *slog.Logger
}

// New creates a gateway over the given dependencies.
func New(opts Options) *Gateway {
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewCollector(&config.MetricsConfig{Enabled: false}, nil)
	}

	counter := tokens.NewCounter()

	var estimator *cache.Estimator
	if opts.Analysis.EnableCacheEstimation {
		estimator = cache.NewEstimator(counter, cache.Probabilities{
			Base:            opts.Analysis.History.Base,
			System:          opts.Analysis.History.System,
			ShortBonus:      opts.Analysis.History.ShortBonus,
			MediumBonus:     opts.Analysis.History.MediumBonus,
			RepetitionBonus: opts.Analysis.History.RepetitionBonus,
		})
	}

	return &Gateway{
		selector:  routing.NewSelector(opts.Manager),
		manager:   opts.Manager,
		recorder:  opts.Recorder,
		storage:   opts.Storage,
		metrics:   opts.Metrics,
		counter:   counter,
		estimator: estimator,
		analysis:  opts.Analysis,
		proxyOn:   opts.ProxyEnabled,
		proxyUsed: opts.ProxyUsed,
		logger:    slog.Default().With("component", "gateway"),
	}
}

// record hands a call log to the recorder. Recording failures are logged
// and never surface to the client.
func (g *Gateway) record(log *calllog.CallLog) {
	if g.recorder == nil {
		return
	}
	if err := g.recorder.Record(log); err != nil {
		g.logger.Warn("failed to record call log",
			"model", log.Model,
			"provider", log.Provider,
			"error", err,
		)
	}
}

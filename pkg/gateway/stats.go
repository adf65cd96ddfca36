package gateway

import (
	"net/http"
	"strconv"

	"prismgw/prism/pkg/dialect"
)

const (
	defaultStatsDays       = 7
	defaultRecentLogsLimit = 10
)

// StatsHandler serves GET /prism/stats: database totals, aggregated
// streaming performance, cache estimation accuracy, and recent calls.
// Query parameters: days, model, provider, limit.
type StatsHandler struct {
	gw *Gateway
}

// NewStatsHandler creates the stats handler.
func NewStatsHandler(gw *Gateway) *StatsHandler {
	return &StatsHandler{gw: gw}
}

// ServeHTTP implements http.Handler.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeDialectError(w, dialect.OpenAI, http.StatusMethodNotAllowed, "invalid_request_error",
			"method not allowed, use GET")
		return
	}
	if h.gw.storage == nil {
		writeDialectError(w, dialect.OpenAI, http.StatusServiceUnavailable, "api_error",
			"call logging is disabled")
		return
	}

	ctx := r.Context()
	q := r.URL.Query()

	days := intParam(q.Get("days"), defaultStatsDays)
	limit := intParam(q.Get("limit"), defaultRecentLogsLimit)
	model := q.Get("model")
	provider := q.Get("provider")

	dbStats, err := h.gw.storage.DatabaseStats(ctx)
	if err != nil {
		h.gw.logger.Error("failed to read database stats", "error", err)
		writeDialectError(w, dialect.OpenAI, http.StatusInternalServerError, "server_error",
			"failed to read call log store")
		return
	}

	perfStats, err := h.gw.storage.PerformanceStats(ctx, model, provider, days)
	if err != nil {
		h.gw.logger.Error("failed to read performance stats", "error", err)
		writeDialectError(w, dialect.OpenAI, http.StatusInternalServerError, "server_error",
			"failed to read performance stats")
		return
	}

	threshold := h.gw.analysis.CacheAccuracyThreshold
	if threshold <= 0 {
		threshold = 0.1
	}
	cacheSummary, err := h.gw.storage.CacheAnalysisSummary(ctx, days, threshold)
	if err != nil {
		h.gw.logger.Error("failed to read cache analysis summary", "error", err)
		writeDialectError(w, dialect.OpenAI, http.StatusInternalServerError, "server_error",
			"failed to read cache analysis")
		return
	}

	recent, err := h.gw.storage.RecentLogs(ctx, limit)
	if err != nil {
		h.gw.logger.Error("failed to read recent logs", "error", err)
		writeDialectError(w, dialect.OpenAI, http.StatusInternalServerError, "server_error",
			"failed to read recent logs")
		return
	}

	_ = writeJSON(w, http.StatusOK, map[string]any{
		"database":       dbStats,
		"performance":    perfStats,
		"cache_analysis": cacheSummary,
		"recent_logs":    recent,
	})
}

func intParam(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

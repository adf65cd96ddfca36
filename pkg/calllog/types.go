package calllog

import (
	"context"
	"time"
)

// CallLog is one recorded gateway request.
type CallLog struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`

	// Routing metadata.
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Endpoint string `json:"endpoint"`
	Method   string `json:"method"`

	// Client metadata. UserID and SessionID come from optional request
	// headers; ProxyUsed names the outbound proxy the call went through.
	ClientIP  string `json:"client_ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	ProxyUsed string `json:"proxy_used,omitempty"`

	// Outcome. A client cancel mid-stream still counts as success with
	// whatever output arrived before the cancel.
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	Streaming bool   `json:"streaming"`

	// Estimated track, computed before dispatch. Completion tokens are
	// assumed from the request's max_tokens for the cost estimate.
	EstimatedPromptTokens     int     `json:"estimated_prompt_tokens"`
	EstimatedCompletionTokens int     `json:"estimated_completion_tokens"`
	EstimatedCost             float64 `json:"estimated_cost"`
	EstimatedCachedTokens     int     `json:"estimated_cached_tokens"`
	EstimatedFreshTokens      int     `json:"estimated_fresh_tokens"`
	EstimatedCacheHitRate     float64 `json:"estimated_cache_hit_rate"`

	// Actual track, extracted from the raw upstream response. Cache hit
	// rate is nil when the upstream reported no cache usage details.
	ActualPromptTokens     int      `json:"actual_prompt_tokens"`
	ActualCompletionTokens int      `json:"actual_completion_tokens"`
	ActualTotalTokens      int      `json:"actual_total_tokens"`
	ActualCost             float64  `json:"actual_cost"`
	ActualCacheHitRate     *float64 `json:"actual_cache_hit_rate,omitempty"`

	// Performance. TTFT and TPOT are nil for calls where they could not
	// be measured.
	TTFTMs          *int64   `json:"ttft_ms,omitempty"`
	TPOTMs          *float64 `json:"tpot_ms,omitempty"`
	TokensPerSecond *float64 `json:"tokens_per_second,omitempty"`
	TotalLatencyMs  int64    `json:"total_latency_ms"`

	// Raw wire data, exactly as exchanged with the upstream.
	RequestBody  string `json:"request_body,omitempty"`
	ResponseBody string `json:"response_body,omitempty"`
	StatusCode   int    `json:"status_code"`
	ResponseSize int    `json:"response_size"`
}

// Query filters call log lookups. Nil or zero-valued fields are ignored.
type Query struct {
	StartTime *time.Time
	EndTime   *time.Time
	Model     string
	Provider  string
	Success   *bool
	Streaming *bool

	SortBy    string // column name, default "timestamp"
	SortOrder string // "ASC" or "DESC", default "DESC"
	Limit     int    // default 100
	Offset    int
}

// PerformanceStatsRow is one aggregated row of streaming performance,
// grouped by model, provider, and day.
type PerformanceStatsRow struct {
	Model    string  `json:"model"`
	Provider string  `json:"provider"`
	Date     string  `json:"date"`
	Calls    int64   `json:"calls"`
	AvgTTFT  float64 `json:"avg_ttft_ms"`
	MinTTFT  float64 `json:"min_ttft_ms"`
	MaxTTFT  float64 `json:"max_ttft_ms"`
	AvgTPOT  float64 `json:"avg_tpot_ms"`
	AvgTPS   float64 `json:"avg_tokens_per_second"`
	AvgTotal float64 `json:"avg_total_latency_ms"`

	TotalTokens int64   `json:"total_tokens"`
	TotalCost   float64 `json:"total_cost"`
}

// CacheAnalysisSummary aggregates how well cache-reuse estimates matched
// the actual cache usage reported by upstreams.
type CacheAnalysisSummary struct {
	Days                int     `json:"days"`
	TotalPredictions    int64   `json:"total_predictions"`
	AccuratePredictions int64   `json:"accurate_predictions"`
	AccuracyPercentage  float64 `json:"accuracy_percentage"`
	AvgEstimatedHitRate float64 `json:"avg_estimated_hit_rate"`
	AvgActualHitRate    float64 `json:"avg_actual_hit_rate"`
	AvgPredictionError  float64 `json:"avg_prediction_error"`
}

// ModelCount pairs a model name with its call count.
type ModelCount struct {
	Model string `json:"model"`
	Calls int64  `json:"calls"`
}

// DatabaseStats summarizes the call log store.
type DatabaseStats struct {
	TotalCalls      int64            `json:"total_calls"`
	CallsByProvider map[string]int64 `json:"calls_by_provider"`
	TopModels       []ModelCount     `json:"top_models"`
	SizeBytes       int64            `json:"size_bytes"`
}

// Storage is the call log persistence contract.
type Storage interface {
	// Store persists one call log.
	Store(ctx context.Context, log *CallLog) error

	// Query returns logs matching the filters.
	Query(ctx context.Context, q *Query) ([]*CallLog, error)

	// QueryStream streams matching logs through a channel for large
	// result sets. Both channels close when the query finishes.
	QueryStream(ctx context.Context, q *Query) (<-chan *CallLog, <-chan error, error)

	// Count returns the number of logs matching the filters.
	Count(ctx context.Context, q *Query) (int64, error)

	// Delete removes matching logs and returns how many were deleted.
	Delete(ctx context.Context, q *Query) (int64, error)

	// PerformanceStats aggregates streaming performance over the last
	// days, optionally filtered by model and provider.
	PerformanceStats(ctx context.Context, model, provider string, days int) ([]*PerformanceStatsRow, error)

	// CacheAnalysisSummary compares estimated and actual cache usage over
	// the last days. A prediction counts as accurate when its absolute
	// error is below threshold.
	CacheAnalysisSummary(ctx context.Context, days int, threshold float64) (*CacheAnalysisSummary, error)

	// RecentLogs returns the most recent logs, newest first.
	RecentLogs(ctx context.Context, limit int) ([]*CallLog, error)

	// DatabaseStats summarizes the store contents.
	DatabaseStats(ctx context.Context) (*DatabaseStats, error)

	// Close releases backend resources.
	Close() error
}

package config

import (
	"time"
)

// Config is the root configuration for the Prism gateway.
type Config struct {
	// Server configures the inbound HTTP listener.
	Server ServerConfig `yaml:"server"`

	// Proxy configures the outbound network proxy for upstream calls.
	Proxy ProxyConfig `yaml:"proxy"`

	// Providers maps provider names to their upstream settings.
	Providers map[string]ProviderConfig `yaml:"providers"`

	// Logging configures structured logging and call-log persistence.
	Logging LoggingConfig `yaml:"logging"`

	// Analysis configures request analysis (tokens, cost, cache, timing).
	Analysis AnalysisConfig `yaml:"analysis"`

	// Retention configures automatic pruning of old call logs.
	Retention RetentionConfig `yaml:"retention"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Host is the bind address. Default: "0.0.0.0".
	Host string `yaml:"host"`

	// Port is the listen port. Default: 8000.
	Port int `yaml:"port"`

	// ReadTimeout bounds reading request headers and body. Default: 60s.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds writing the response. Streaming responses can
	// run long, so this defaults to 0 (disabled).
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// ShutdownTimeout bounds graceful shutdown. Default: 30s.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ProxyConfig configures the outbound proxy used for upstream provider
// calls. When both HTTPProxy and SOCKSProxy are set, SOCKS takes precedence.
type ProxyConfig struct {
	// HTTPProxy is an http:// or https:// proxy URL.
	HTTPProxy string `yaml:"http_proxy"`

	// SOCKSProxy is a socks4:// or socks5:// proxy URL.
	SOCKSProxy string `yaml:"socks_proxy"`

	// Auth holds optional proxy credentials.
	Auth ProxyAuth `yaml:"auth"`

	// Timeout is the outbound connection timeout. Default: 30s.
	Timeout time.Duration `yaml:"timeout"`
}

// ProxyAuth holds proxy credentials.
type ProxyAuth struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// ProviderConfig configures a single upstream provider.
type ProviderConfig struct {
	// Type is the provider dialect: "openai" or "anthropic".
	// Defaults to the provider's map key.
	Type string `yaml:"type"`

	// APIKey authenticates against the upstream API. Supports ${VAR}
	// environment expansion.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Timeout is the per-request timeout. Default: 120s.
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the number of retry attempts for transient failures.
	// Default: 3.
	MaxRetries int `yaml:"max_retries"`
}

// LoggingConfig configures structured logging and call-log storage.
type LoggingConfig struct {
	// Enabled turns call-log recording on. Default: true.
	Enabled bool `yaml:"enabled"`

	// Level is the slog level: debug, info, warn, error. Default: "info".
	Level string `yaml:"level"`

	// Format is the log output format: "json" or "text". Default: "json".
	Format string `yaml:"format"`

	// DBPath is the SQLite database file for call logs.
	// Default: "./prism_logs.db".
	DBPath string `yaml:"db_path"`

	// AsyncBuffer is the recorder queue size. Default: 1000.
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout bounds a single call-log write. Default: 5s.
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// AnalysisConfig configures request/response analysis.
type AnalysisConfig struct {
	// EnableCacheEstimation turns on cache-reuse estimation. Default: true.
	EnableCacheEstimation bool `yaml:"enable_cache_estimation"`

	// EnablePerformanceTracking turns on streaming timing analysis.
	// Default: true.
	EnablePerformanceTracking bool `yaml:"enable_performance_tracking"`

	// CacheAccuracyThreshold is the prediction-error bound below which an
	// estimate counts as accurate in summaries. Default: 0.1.
	CacheAccuracyThreshold float64 `yaml:"cache_estimation_accuracy_threshold"`

	// History tunes the conversation-history cache probabilities.
	History HistoryProbabilities `yaml:"history"`
}

// HistoryProbabilities tunes per-message cache probability scoring for
// conversation history. Zero values fall back to defaults.
type HistoryProbabilities struct {
	// Base probability for any history message. Default: 0.3.
	Base float64 `yaml:"base"`

	// System is the probability for system-role messages. Default: 0.8.
	System float64 `yaml:"system"`

	// ShortBonus is added for messages under 100 characters. Default: 0.2.
	ShortBonus float64 `yaml:"short_bonus"`

	// MediumBonus is added for messages under 500 characters. Default: 0.1.
	MediumBonus float64 `yaml:"medium_bonus"`

	// RepetitionBonus is added for messages with repeated phrases.
	// Default: 0.2.
	RepetitionBonus float64 `yaml:"repetition_bonus"`
}

// RetentionConfig configures automatic call-log pruning.
type RetentionConfig struct {
	// Days is the retention period; 0 keeps logs forever. Default: 90.
	Days int `yaml:"days"`

	// PruneSchedule is a cron expression; empty disables scheduling.
	// Default: "0 3 * * *".
	PruneSchedule string `yaml:"prune_schedule"`

	// MaxRecords caps the total record count; 0 means unlimited.
	MaxRecords int64 `yaml:"max_records"`

	// ArchiveBeforeDelete exports pruned records to JSON first.
	ArchiveBeforeDelete bool `yaml:"archive_before_delete"`

	// ArchivePath is the archive directory. Default: "data/archives/".
	ArchivePath string `yaml:"archive_path"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	// Enabled turns the /metrics endpoint on. Default: true.
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric namespace. Default: "prism".
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem. Default: "gateway".
	Subsystem string `yaml:"subsystem"`

	// RequestDurationBuckets overrides the latency histogram buckets.
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`
}

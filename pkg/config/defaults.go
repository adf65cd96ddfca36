package config

import "time"

// ApplyDefaults fills in zero values with sensible defaults.
// Called after unmarshalling and before validation.
func (c *Config) ApplyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 60 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}

	if c.Proxy.Timeout == 0 {
		c.Proxy.Timeout = 30 * time.Second
	}

	for name, p := range c.Providers {
		if p.Type == "" {
			p.Type = name
		}
		if p.Timeout == 0 {
			p.Timeout = 120 * time.Second
		}
		if p.MaxRetries == 0 {
			p.MaxRetries = 3
		}
		c.Providers[name] = p
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.DBPath == "" {
		c.Logging.DBPath = "./prism_logs.db"
	}
	if c.Logging.AsyncBuffer == 0 {
		c.Logging.AsyncBuffer = 1000
	}
	if c.Logging.WriteTimeout == 0 {
		c.Logging.WriteTimeout = 5 * time.Second
	}

	if c.Analysis.CacheAccuracyThreshold == 0 {
		c.Analysis.CacheAccuracyThreshold = 0.1
	}
	c.Analysis.History.applyDefaults()

	if c.Retention.Days == 0 {
		c.Retention.Days = 90
	}
	if c.Retention.PruneSchedule == "" {
		c.Retention.PruneSchedule = "0 3 * * *"
	}
	if c.Retention.ArchivePath == "" {
		c.Retention.ArchivePath = "data/archives/"
	}

	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "prism"
	}
	if c.Metrics.Subsystem == "" {
		c.Metrics.Subsystem = "gateway"
	}
}

func (h *HistoryProbabilities) applyDefaults() {
	if h.Base == 0 {
		h.Base = 0.3
	}
	if h.System == 0 {
		h.System = 0.8
	}
	if h.ShortBonus == 0 {
		h.ShortBonus = 0.2
	}
	if h.MediumBonus == 0 {
		h.MediumBonus = 0.1
	}
	if h.RepetitionBonus == 0 {
		h.RepetitionBonus = 0.2
	}
}

// DefaultConfig returns a configuration with all defaults applied and
// logging, analysis, and metrics enabled. Used when no config file exists.
func DefaultConfig() *Config {
	cfg := &Config{
		Logging: LoggingConfig{Enabled: true},
		Analysis: AnalysisConfig{
			EnableCacheEstimation:     true,
			EnablePerformanceTracking: true,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
	cfg.ApplyDefaults()
	return cfg
}

package config

import (
	"fmt"
	"strings"
)

// ValidationError describes an invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Message)
}

// Validate checks the configuration for consistency. Defaults must be
// applied first.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return &ValidationError{Field: "server.port", Message: fmt.Sprintf("port %d out of range", c.Server.Port)}
	}

	if c.Proxy.SOCKSProxy != "" &&
		!strings.HasPrefix(c.Proxy.SOCKSProxy, "socks4://") &&
		!strings.HasPrefix(c.Proxy.SOCKSProxy, "socks5://") {
		return &ValidationError{Field: "proxy.socks_proxy", Message: fmt.Sprintf("invalid SOCKS proxy format: %s", c.Proxy.SOCKSProxy)}
	}
	if c.Proxy.HTTPProxy != "" &&
		!strings.HasPrefix(c.Proxy.HTTPProxy, "http://") &&
		!strings.HasPrefix(c.Proxy.HTTPProxy, "https://") {
		return &ValidationError{Field: "proxy.http_proxy", Message: fmt.Sprintf("invalid HTTP proxy format: %s", c.Proxy.HTTPProxy)}
	}

	for name, p := range c.Providers {
		switch p.Type {
		case "openai", "anthropic":
		default:
			return &ValidationError{
				Field:   fmt.Sprintf("providers.%s.type", name),
				Message: fmt.Sprintf("unknown provider type %q (want openai or anthropic)", p.Type),
			}
		}
		if p.MaxRetries < 0 {
			return &ValidationError{
				Field:   fmt.Sprintf("providers.%s.max_retries", name),
				Message: "must not be negative",
			}
		}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Field: "logging.level", Message: fmt.Sprintf("unknown level %q", c.Logging.Level)}
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return &ValidationError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q", c.Logging.Format)}
	}

	if c.Analysis.CacheAccuracyThreshold <= 0 || c.Analysis.CacheAccuracyThreshold > 1 {
		return &ValidationError{Field: "analysis.cache_estimation_accuracy_threshold", Message: "must be in (0, 1]"}
	}

	if c.Retention.Days < 0 {
		return &ValidationError{Field: "retention.days", Message: "must not be negative"}
	}
	if c.Retention.MaxRecords < 0 {
		return &ValidationError{Field: "retention.max_records", Message: "must not be negative"}
	}

	return nil
}

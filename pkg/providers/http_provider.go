package providers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"prismgw/prism/pkg/netproxy"
)

// unhealthyThreshold is the number of consecutive failures after which a
// provider is marked unhealthy.
const unhealthyThreshold = 3

// HTTPProvider is the shared HTTP client base for provider
// implementations. It handles pooling, retries with exponential backoff,
// status-to-error mapping, and health tracking.
type HTTPProvider struct {
	config ProviderConfig
	client *http.Client
	logger *slog.Logger
	health *healthTracker
}

// NewHTTPProvider creates the HTTP base for a provider. The outbound
// proxy manager supplies the transport; nil means direct connections.
func NewHTTPProvider(config ProviderConfig, pm *netproxy.Manager) (*HTTPProvider, error) {
	var transport *http.Transport
	if pm != nil {
		t, err := pm.Transport()
		if err != nil {
			return nil, &ConfigError{Provider: config.Name, Field: "proxy", Message: err.Error()}
		}
		transport = t
	} else {
		transport = &http.Transport{
			ForceAttemptHTTP2: true,
			IdleConnTimeout:   90 * time.Second,
		}
	}

	if config.MaxIdleConns > 0 {
		transport.MaxIdleConns = config.MaxIdleConns
	}
	if config.MaxIdleConnsPerHost > 0 {
		transport.MaxIdleConnsPerHost = config.MaxIdleConnsPerHost
	}
	if config.IdleConnTimeout > 0 {
		transport.IdleConnTimeout = config.IdleConnTimeout
	}

	return &HTTPProvider{
		config: config,
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
		logger: slog.Default().With("component", "provider", "provider", config.Name),
		health: newHealthTracker(),
	}, nil
}

// DoRequest performs an HTTP request with retries. Responses with
// non-success status are mapped to typed errors; the response is returned
// with its body unread for success so streaming callers can consume it.
func (p *HTTPProvider) DoRequest(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			p.logger.Debug("retrying upstream request",
				"attempt", attempt,
				"backoff", backoff,
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
		if err != nil {
			return nil, &ProviderError{Provider: p.config.Name, Message: "failed to build request", Cause: err}
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := p.client.Do(req)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				lastErr = &TimeoutError{Provider: p.config.Name, Timeout: p.config.Timeout}
			} else if errors.Is(err, context.Canceled) {
				return nil, ctx.Err()
			} else {
				lastErr = &ProviderError{Provider: p.config.Name, Message: "request failed", Cause: err}
			}
			p.health.markFailure(lastErr)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			p.health.markSuccess()
			return resp, nil
		}

		// Read the error body for diagnostics, then decide on retry.
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			p.health.markFailure(nil)
			return nil, &AuthError{Provider: p.config.Name, Message: string(errBody)}

		case resp.StatusCode == http.StatusTooManyRequests:
			retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
			lastErr = &RateLimitError{Provider: p.config.Name, RetryAfter: retryAfter, Message: string(errBody)}
			p.health.markFailure(lastErr)

		case resp.StatusCode >= 500:
			lastErr = &ProviderError{Provider: p.config.Name, StatusCode: resp.StatusCode, Message: string(errBody)}
			p.health.markFailure(lastErr)

		default:
			// 4xx other than auth/rate-limit is a caller problem; do not retry.
			p.health.markSuccess()
			return nil, &ProviderError{Provider: p.config.Name, StatusCode: resp.StatusCode, Message: string(errBody)}
		}
	}

	if lastErr == nil {
		lastErr = &ProviderError{Provider: p.config.Name, Message: "request failed after retries"}
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", p.config.MaxRetries+1, lastErr)
}

// DoCall performs a non-streaming request and packages it as a RawCall.
func (p *HTTPProvider) DoCall(ctx context.Context, method, url string, body []byte, headers map[string]string) (*RawCall, error) {
	start := time.Now()
	resp, err := p.DoRequest(ctx, method, url, body, headers)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Provider: p.config.Name, Message: "failed to read response body", Cause: err}
	}

	return &RawCall{
		Provider:        p.config.Name,
		URL:             url,
		Method:          method,
		RequestBody:     body,
		StatusCode:      resp.StatusCode,
		ResponseBody:    respBody,
		ResponseHeaders: flattenHeaders(resp.Header),
		ResponseSize:    len(respBody),
		Duration:        time.Since(start),
	}, nil
}

// GetName returns the provider name.
func (p *HTTPProvider) GetName() string {
	return p.config.Name
}

// GetConfig returns the provider configuration.
func (p *HTTPProvider) GetConfig() ProviderConfig {
	return p.config
}

// IsHealthy reports whether the provider is below the failure threshold.
func (p *HTTPProvider) IsHealthy() bool {
	return p.health.isHealthy()
}

// GetHealth returns a snapshot of the provider's health.
func (p *HTTPProvider) GetHealth() ProviderHealth {
	return p.health.snapshot()
}

// Close releases idle connections.
func (p *HTTPProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}

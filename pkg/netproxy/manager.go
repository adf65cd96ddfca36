package netproxy

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	xproxy "golang.org/x/net/proxy"

	"prismgw/prism/pkg/config"
)

// Manager builds proxied transports from the outbound proxy
// configuration. When both an HTTP and a SOCKS proxy are configured,
// SOCKS takes precedence.
type Manager struct {
	cfg    config.ProxyConfig
	logger *slog.Logger
}

// NewManager creates a proxy manager. The configuration is assumed
// validated; conflicting settings are warned about here.
func NewManager(cfg config.ProxyConfig) *Manager {
	m := &Manager{
		cfg:    cfg,
		logger: slog.Default().With("component", "netproxy"),
	}
	if cfg.HTTPProxy != "" && cfg.SOCKSProxy != "" {
		m.logger.Warn("both HTTP and SOCKS proxy configured, SOCKS proxy takes precedence")
	}
	return m
}

// Transport returns an http.Transport honoring the proxy settings.
// Direct connections get a plain pooled transport.
func (m *Manager) Transport() (*http.Transport, error) {
	transport := &http.Transport{
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   m.cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	switch {
	case m.cfg.SOCKSProxy != "":
		u, err := url.Parse(m.cfg.SOCKSProxy)
		if err != nil {
			return nil, fmt.Errorf("invalid SOCKS proxy URL: %w", err)
		}
		if m.cfg.Auth.Username != "" {
			u.User = url.UserPassword(m.cfg.Auth.Username, m.cfg.Auth.Password)
		}
		dialer, err := xproxy.FromURL(u, xproxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to build SOCKS dialer: %w", err)
		}
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cd, ok := dialer.(xproxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		}

	case m.cfg.HTTPProxy != "":
		u, err := url.Parse(m.cfg.HTTPProxy)
		if err != nil {
			return nil, fmt.Errorf("invalid HTTP proxy URL: %w", err)
		}
		if m.cfg.Auth.Username != "" {
			u.User = url.UserPassword(m.cfg.Auth.Username, m.cfg.Auth.Password)
		}
		transport.Proxy = http.ProxyURL(u)
	}

	return transport, nil
}

// TestResult reports the outcome of a proxy connectivity test.
type TestResult struct {
	Success        bool    `json:"success"`
	StatusCode     int     `json:"status_code,omitempty"`
	ResponseTimeMs float64 `json:"response_time_ms,omitempty"`
	ProxyUsed      string  `json:"proxy_used"`
	Error          string  `json:"error,omitempty"`
	Message        string  `json:"message"`
}

// DefaultTestURL is the endpoint used for connectivity tests.
const DefaultTestURL = "https://api.openai.com/v1/models"

// TestConnectivity issues a GET through the configured proxy and reports
// reachability. Any HTTP status counts as success; only transport-level
// failures fail the test.
func (m *Manager) TestConnectivity(ctx context.Context, testURL string) *TestResult {
	if testURL == "" {
		testURL = DefaultTestURL
	}

	result := &TestResult{ProxyUsed: m.activeProxy()}

	transport, err := m.Transport()
	if err != nil {
		result.Error = "configuration error"
		result.Message = err.Error()
		return result
	}

	client := &http.Client{Transport: transport, Timeout: m.cfg.Timeout}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, testURL, nil)
	if err != nil {
		result.Error = "invalid test URL"
		result.Message = err.Error()
		return result
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		result.Error = "connection failed"
		result.Message = fmt.Sprintf("proxy connection failed: %v", err)
		return result
	}
	defer resp.Body.Close()

	result.Success = true
	result.StatusCode = resp.StatusCode
	result.ResponseTimeMs = float64(time.Since(start).Microseconds()) / 1000
	result.Message = "proxy connection successful"
	return result
}

// Info describes the active proxy configuration for health reporting.
type Info struct {
	HTTPProxy   string `json:"http_proxy,omitempty"`
	SOCKSProxy  string `json:"socks_proxy,omitempty"`
	HasAuth     bool   `json:"has_auth"`
	TimeoutSecs int    `json:"timeout"`
	ActiveProxy string `json:"active_proxy"`
}

// Info returns the proxy configuration summary.
func (m *Manager) Info() Info {
	return Info{
		HTTPProxy:   m.cfg.HTTPProxy,
		SOCKSProxy:  m.cfg.SOCKSProxy,
		HasAuth:     m.cfg.Auth.Username != "",
		TimeoutSecs: int(m.cfg.Timeout.Seconds()),
		ActiveProxy: m.activeProxy(),
	}
}

func (m *Manager) activeProxy() string {
	switch {
	case m.cfg.SOCKSProxy != "":
		return m.cfg.SOCKSProxy
	case m.cfg.HTTPProxy != "":
		return m.cfg.HTTPProxy
	default:
		return "direct"
	}
}

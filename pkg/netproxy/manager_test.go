package netproxy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"prismgw/prism/pkg/config"
)

func TestActiveProxyPrecedence(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.ProxyConfig
		want string
	}{
		{"direct", config.ProxyConfig{}, "direct"},
		{"http only", config.ProxyConfig{HTTPProxy: "http://p:8080"}, "http://p:8080"},
		{"socks wins", config.ProxyConfig{HTTPProxy: "http://p:8080", SOCKSProxy: "socks5://s:1080"}, "socks5://s:1080"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(tt.cfg)
			if got := m.Info().ActiveProxy; got != tt.want {
				t.Errorf("active proxy = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTransportDirect(t *testing.T) {
	m := NewManager(config.ProxyConfig{Timeout: 5 * time.Second})
	transport, err := m.Transport()
	if err != nil {
		t.Fatalf("Transport failed: %v", err)
	}
	if transport.Proxy != nil {
		t.Error("direct transport should have no proxy func")
	}
	if !transport.ForceAttemptHTTP2 {
		t.Error("transport should attempt HTTP/2")
	}
}

func TestTransportHTTPProxy(t *testing.T) {
	m := NewManager(config.ProxyConfig{
		HTTPProxy: "http://proxy.internal:8080",
		Auth:      config.ProxyAuth{Username: "u", Password: "p"},
		Timeout:   5 * time.Second,
	})
	transport, err := m.Transport()
	if err != nil {
		t.Fatalf("Transport failed: %v", err)
	}
	if transport.Proxy == nil {
		t.Fatal("HTTP proxy transport should have a proxy func")
	}

	req, _ := http.NewRequest(http.MethodGet, "https://example.com", nil)
	u, err := transport.Proxy(req)
	if err != nil {
		t.Fatalf("proxy func failed: %v", err)
	}
	if u.Host != "proxy.internal:8080" {
		t.Errorf("proxy host = %q, want proxy.internal:8080", u.Host)
	}
	if u.User == nil || u.User.Username() != "u" {
		t.Error("proxy credentials not applied")
	}
}

func TestTransportSOCKS(t *testing.T) {
	m := NewManager(config.ProxyConfig{SOCKSProxy: "socks5://127.0.0.1:1080", Timeout: time.Second})
	if _, err := m.Transport(); err != nil {
		t.Fatalf("SOCKS5 transport failed: %v", err)
	}
}

func TestConnectivityDirect(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	m := NewManager(config.ProxyConfig{Timeout: 5 * time.Second})
	result := m.TestConnectivity(context.Background(), upstream.URL)

	if !result.Success {
		t.Fatalf("connectivity test failed: %s", result.Message)
	}
	if result.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", result.StatusCode)
	}
	if result.ProxyUsed != "direct" {
		t.Errorf("proxy used = %q, want direct", result.ProxyUsed)
	}
}

func TestConnectivityFailure(t *testing.T) {
	m := NewManager(config.ProxyConfig{Timeout: 500 * time.Millisecond})
	// Reserved TEST-NET address, nothing listens there.
	result := m.TestConnectivity(context.Background(), "http://192.0.2.1:9/")

	if result.Success {
		t.Error("connectivity test should fail for unreachable host")
	}
	if result.Error == "" {
		t.Error("failure should carry an error label")
	}
}

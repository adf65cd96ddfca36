// Package routing holds test doubles for routing and gateway tests.
package routing

import (
	"context"
	"fmt"
	"io"
	"time"

	"prismgw/prism/pkg/dialect"
	"prismgw/prism/pkg/providers"
)

// MockProvider is an in-memory Provider for routing and gateway tests.
// It replies with a fixed body and records the raw requests it receives.
type MockProvider struct {
	name      string
	dialect   dialect.Dialect
	healthy   bool
	response  []byte
	stream    []string
	streamErr error
	config    providers.ProviderConfig
	health    providers.ProviderHealth

	// Calls records the bodies passed to Send and OpenStream.
	Calls [][]byte
}

// NewMockProvider creates a healthy mock provider speaking the given dialect.
func NewMockProvider(name string, d dialect.Dialect) *MockProvider {
	return &MockProvider{
		name:     name,
		dialect:  d,
		healthy:  true,
		response: []byte(`{}`),
		config:   providers.ProviderConfig{Name: name},
		health:   providers.ProviderHealth{Healthy: true},
	}
}

// SetHealthy sets the health status.
func (m *MockProvider) SetHealthy(healthy bool) {
	m.healthy = healthy
	m.health.Healthy = healthy
}

// SetResponse sets the body returned by Send.
func (m *MockProvider) SetResponse(body []byte) {
	m.response = body
}

// SetStream sets the SSE data payloads returned by OpenStream, in order.
func (m *MockProvider) SetStream(chunks []string) {
	m.stream = chunks
}

// SetStreamError makes the stream fail with err after the configured
// chunks, instead of ending cleanly.
func (m *MockProvider) SetStreamError(err error) {
	m.streamErr = err
}

// Send replies with the configured response body.
func (m *MockProvider) Send(ctx context.Context, body []byte) (*providers.RawCall, error) {
	if !m.healthy {
		return nil, fmt.Errorf("provider %s is unhealthy", m.name)
	}
	m.Calls = append(m.Calls, body)
	return &providers.RawCall{
		Provider:     m.name,
		URL:          "mock://" + m.name,
		Method:       "POST",
		RequestBody:  body,
		StatusCode:   200,
		ResponseBody: m.response,
		ResponseSize: len(m.response),
		Duration:     time.Millisecond,
	}, nil
}

// OpenStream replies with the configured stream chunks.
func (m *MockProvider) OpenStream(ctx context.Context, body []byte) (providers.StreamReader, error) {
	if !m.healthy {
		return nil, fmt.Errorf("provider %s is unhealthy", m.name)
	}
	m.Calls = append(m.Calls, body)
	return &mockStream{
		chunks: m.stream,
		err:    m.streamErr,
		meta: &providers.RawCall{
			Provider:    m.name,
			URL:         "mock://" + m.name,
			Method:      "POST",
			RequestBody: body,
			StatusCode:  200,
		},
	}, nil
}

// HealthCheck reports the configured health status.
func (m *MockProvider) HealthCheck(ctx context.Context) error {
	if !m.healthy {
		return fmt.Errorf("provider %s is unhealthy", m.name)
	}
	return nil
}

// TestBody returns a minimal request body.
func (m *MockProvider) TestBody() []byte {
	return []byte(`{"model":"mock","messages":[]}`)
}

// GetName returns the provider name.
func (m *MockProvider) GetName() string {
	return m.name
}

// Dialect returns the configured wire format.
func (m *MockProvider) Dialect() dialect.Dialect {
	return m.dialect
}

// GetConfig returns the provider configuration.
func (m *MockProvider) GetConfig() providers.ProviderConfig {
	return m.config
}

// IsHealthy returns the current health status.
func (m *MockProvider) IsHealthy() bool {
	return m.healthy
}

// GetHealth returns detailed health information.
func (m *MockProvider) GetHealth() providers.ProviderHealth {
	return m.health
}

// Close is a no-op.
func (m *MockProvider) Close() error {
	return nil
}

type mockStream struct {
	chunks []string
	pos    int
	err    error
	meta   *providers.RawCall
}

func (s *mockStream) Read(ctx context.Context) (*providers.StreamEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.chunks) {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	ev := &providers.StreamEvent{Data: s.chunks[s.pos], At: time.Now()}
	s.pos++
	return ev, nil
}

func (s *mockStream) Meta() *providers.RawCall {
	return s.meta
}

func (s *mockStream) Close() error {
	return nil
}

package providers

import (
	"context"

	"prismgw/prism/pkg/dialect"
)

// Provider is an upstream LLM API endpoint speaking one dialect.
// Implementations must be safe for concurrent use.
type Provider interface {
	// Send forwards a raw request body and returns the raw upstream
	// response. The body must already be in the provider's dialect.
	Send(ctx context.Context, body []byte) (*RawCall, error)

	// OpenStream forwards a raw request body with streaming enabled and
	// returns a reader over the upstream SSE events.
	OpenStream(ctx context.Context, body []byte) (StreamReader, error)

	// HealthCheck probes the upstream API.
	HealthCheck(ctx context.Context) error

	// TestBody returns a minimal valid request body for connectivity
	// testing.
	TestBody() []byte

	// GetName returns the configured provider name.
	GetName() string

	// Dialect returns the wire format this provider speaks.
	Dialect() dialect.Dialect

	// GetConfig returns the provider configuration.
	GetConfig() ProviderConfig

	// IsHealthy reports the current health state.
	IsHealthy() bool

	// GetHealth returns a health snapshot.
	GetHealth() ProviderHealth

	// Close releases client resources.
	Close() error
}

// StreamReader reads SSE events from an open upstream stream.
type StreamReader interface {
	// Read returns the next event. It returns io.EOF when the upstream
	// closes the stream, and ctx.Err() on cancellation.
	Read(ctx context.Context) (*StreamEvent, error)

	// Meta returns the call metadata known at stream open: URL, method,
	// request body, status code, and response headers. The response body
	// and duration are not populated; the caller accumulates frames.
	Meta() *RawCall

	// Close terminates the stream and releases the connection.
	Close() error
}

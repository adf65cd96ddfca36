package providers

import (
	"time"
)

// ProviderConfig holds the settings for one upstream provider.
type ProviderConfig struct {
	// Name is the provider's configured name.
	Name string

	// Type is the provider dialect: "openai" or "anthropic".
	Type string

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string

	// APIKey authenticates against the upstream API.
	APIKey string

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// MaxRetries is the number of retry attempts for transient failures.
	MaxRetries int

	// Connection pool tuning. Zero values use transport defaults.
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// RawCall captures one upstream exchange exactly as it went over the
// wire, before any dialect translation. For streamed calls ResponseBody
// holds the concatenated SSE data payloads, one per line.
type RawCall struct {
	// Provider and Model identify who served the call.
	Provider string
	Model    string

	// Request side.
	URL         string
	Method      string
	RequestBody []byte

	// Response side.
	StatusCode      int
	ResponseBody    []byte
	ResponseHeaders map[string]string
	ResponseSize    int

	// Duration is the upstream round-trip time. For streams it covers
	// connection establishment through the final chunk.
	Duration time.Duration
}

// StreamEvent is one SSE data payload with its arrival time.
type StreamEvent struct {
	// Data is the payload after the "data: " prefix, which may be a JSON
	// frame or the literal [DONE] marker.
	Data string

	// At is when the event arrived, used for timing analysis.
	At time.Time
}

// ProviderHealth is a snapshot of a provider's health state.
type ProviderHealth struct {
	Healthy             bool      `json:"healthy"`
	LastChecked         time.Time `json:"last_checked"`
	LastError           string    `json:"last_error,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
}

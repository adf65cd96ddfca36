// Package dialect translates chat requests and responses between the
// OpenAI and Anthropic wire formats.
//
// The gateway is transparent: bodies pass through untouched when the
// client and upstream speak the same dialect, and are translated at the
// JSON level otherwise. Streaming translation operates frame by frame on
// SSE data payloads, including mid-stream error envelopes.
package dialect

// Package providers defines the upstream LLM provider abstraction and a
// shared HTTP client base with retries, connection pooling, and health
// tracking.
//
// Providers operate at the wire level: they forward raw JSON bodies and
// return the upstream-native response untouched, so the gateway stays
// transparent. Dialect translation happens before and after the provider
// call, never inside it.
package providers

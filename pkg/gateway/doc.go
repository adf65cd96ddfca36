// Package gateway implements the HTTP surface of the proxy: the OpenAI
// and Anthropic completion endpoints, dialect translation between them,
// streaming passthrough with per-chunk timing, and the health, models,
// and stats endpoints.
//
// Every completion request produces exactly one call log carrying both
// the pre-dispatch estimates (tokens, cost, cache reuse) and the actual
// usage the upstream reported, so the two tracks can be compared later.
package gateway

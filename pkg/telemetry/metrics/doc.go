// Package metrics exposes Prometheus metrics for the gateway: request
// counts and latencies, token and cost totals, provider health, cache
// estimation accuracy, and recorder queue pressure.
package metrics

// Package perf derives streaming performance metrics from per-chunk
// arrival timestamps: time to first token, time per output token, and
// overall throughput.
package perf

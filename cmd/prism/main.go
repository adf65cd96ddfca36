// Prism is a transparent gateway for LLM completion APIs.
//
// It sits between clients and upstream providers, translating between
// the OpenAI and Anthropic request dialects, streaming responses
// through with per-token timing, and recording a dual-track call log
// (estimated vs actual tokens, cost, and cache usage) for analysis.
//
// Usage:
//
//	# Start the gateway with default configuration
//	prism run
//
//	# Start with a custom configuration file
//	prism run --config /etc/prism/config.yaml
//
//	# Write a starter configuration file
//	prism init
//
//	# Test proxy and provider connectivity
//	prism test
//
//	# Show call log statistics
//	prism stats --days 7
//
//	# Export call logs for offline analysis
//	prism export --format parquet --output calls.parquet
package main

func main() {
	Execute()
}

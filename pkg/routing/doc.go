// Package routing selects the upstream provider for a request based on
// the requested model name.
package routing

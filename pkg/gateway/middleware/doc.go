// Package middleware provides the HTTP middleware chain for the gateway:
// panic recovery, request logging, request IDs, CORS, and per-request
// timeouts.
package middleware

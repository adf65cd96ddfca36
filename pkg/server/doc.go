// Package server runs the gateway's HTTP listener: route registration,
// the middleware chain, and graceful shutdown.
package server

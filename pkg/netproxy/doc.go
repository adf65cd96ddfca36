// Package netproxy configures outbound HTTP and SOCKS proxying for
// upstream provider calls, and provides a connectivity self-test used by
// the CLI.
package netproxy

// Package cli provides shared helpers for the prism command line:
// error types, output formatting, and signal handling.
package cli

// Package anthropic implements the Anthropic-dialect upstream provider.
package anthropic

package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextWindowExactMatch(t *testing.T) {
	assert.Equal(t, 8192, ContextWindow("gpt-4"))
	assert.Equal(t, 128000, ContextWindow("gpt-4-turbo"))
}

func TestContextWindowPrefixMatch(t *testing.T) {
	// Longest matching prefix wins.
	assert.Equal(t, 128000, ContextWindow("gpt-4-turbo-2024-04-09"))
	assert.Equal(t, 200000, ContextWindow("claude-3-haiku-20240307"))
}

func TestContextWindowUnknownModel(t *testing.T) {
	assert.Equal(t, defaultContextWindow, ContextWindow("some-future-model"))
}

func TestContextUsage(t *testing.T) {
	assert.InDelta(t, 0.5, ContextUsage("gpt-4", 4096), 1e-9)
	assert.Equal(t, 1.0, ContextUsage("gpt-4", 100000), "usage clamps at 1")
	assert.Equal(t, 0.0, ContextUsage("gpt-4", -5), "usage clamps at 0")
}

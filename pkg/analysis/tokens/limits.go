package tokens

import "strings"

// contextWindows maps model names to their context window sizes.
var contextWindows = map[string]int{
	"gpt-4":             8192,
	"gpt-4-32k":         32768,
	"gpt-4-turbo":       128000,
	"gpt-3.5-turbo":     4096,
	"gpt-3.5-turbo-16k": 16385,
	"claude-3-opus":     200000,
	"claude-3-sonnet":   200000,
	"claude-3-haiku":    200000,
	"claude-2":          100000,
}

// defaultContextWindow is used for unknown models.
const defaultContextWindow = 4096

// ContextWindow returns the context window size for a model.
// Exact match first, then longest matching prefix.
func ContextWindow(model string) int {
	if w, ok := contextWindows[model]; ok {
		return w
	}

	best := ""
	for name := range contextWindows {
		if strings.HasPrefix(model, name) && len(name) > len(best) {
			best = name
		}
	}
	if best != "" {
		return contextWindows[best]
	}
	return defaultContextWindow
}

// ContextUsage returns the fraction of the model's context window the
// given token count occupies, clamped to [0, 1].
func ContextUsage(model string, totalTokens int) float64 {
	window := ContextWindow(model)
	usage := float64(totalTokens) / float64(window)
	if usage > 1 {
		return 1
	}
	if usage < 0 {
		return 0
	}
	return usage
}

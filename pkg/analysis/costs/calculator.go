package costs

import (
	"math"
	"strings"
)

// Pricing holds USD costs per 1000 tokens.
type Pricing struct {
	PromptPer1K     float64
	CompletionPer1K float64
}

// modelPricing is the static price table, USD per 1K tokens.
var modelPricing = map[string]Pricing{
	"gpt-4":             {0.03, 0.06},
	"gpt-4-32k":         {0.06, 0.12},
	"gpt-4-turbo":       {0.01, 0.03},
	"gpt-3.5-turbo":     {0.0015, 0.002},
	"gpt-3.5-turbo-16k": {0.003, 0.004},
	"claude-3-opus":     {0.015, 0.075},
	"claude-3-sonnet":   {0.003, 0.015},
	"claude-3-haiku":    {0.00025, 0.00125},
	"claude-2":          {0.008, 0.024},
}

// Cost is the USD cost breakdown for a request.
type Cost struct {
	Prompt     float64 `json:"prompt_cost"`
	Completion float64 `json:"completion_cost"`
	Total      float64 `json:"total_cost"`
}

// Calculate computes the cost for a model and token counts. Unknown
// models cost zero rather than guessing. All values are rounded to six
// decimal places.
func Calculate(model string, promptTokens, completionTokens int) Cost {
	pricing, ok := lookupPricing(model)
	if !ok {
		return Cost{}
	}

	prompt := round6(float64(promptTokens) / 1000 * pricing.PromptPer1K)
	completion := round6(float64(completionTokens) / 1000 * pricing.CompletionPer1K)
	return Cost{
		Prompt:     prompt,
		Completion: completion,
		Total:      round6(prompt + completion),
	}
}

// lookupPricing finds pricing by exact match, then by longest prefix.
// Versioned model names like claude-3-haiku-20240307 resolve to their
// base entry.
func lookupPricing(model string) (Pricing, bool) {
	if p, ok := modelPricing[model]; ok {
		return p, true
	}

	best := ""
	for name := range modelPricing {
		if strings.HasPrefix(model, name) && len(name) > len(best) {
			best = name
		}
	}
	if best != "" {
		return modelPricing[best], true
	}
	return Pricing{}, false
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

package calllog

import (
	"github.com/tidwall/gjson"

	"prismgw/prism/pkg/dialect"
)

// Actuals is the usage an upstream reported in its response body.
type Actuals struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int

	// CacheReadTokens is how many prompt tokens the upstream served from
	// its prompt cache. CacheHitRate is nil when the response carried no
	// cache details.
	CacheReadTokens int
	CacheHitRate    *float64

	// Model is the model the upstream reported serving the call with.
	Model string
}

// ExtractActuals pulls actual usage out of a raw upstream response body.
// OpenAI reports usage.prompt_tokens/completion_tokens while Anthropic
// reports usage.input_tokens/output_tokens; both normalize into the same
// fields. Missing usage leaves zero values.
func ExtractActuals(d dialect.Dialect, body []byte) Actuals {
	var a Actuals
	if len(body) == 0 {
		return a
	}

	a.Model = gjson.GetBytes(body, "model").String()

	switch d {
	case dialect.Anthropic:
		usage := gjson.GetBytes(body, "usage")
		if !usage.Exists() {
			return a
		}
		input := int(usage.Get("input_tokens").Int())
		output := int(usage.Get("output_tokens").Int())
		cacheRead := int(usage.Get("cache_read_input_tokens").Int())
		cacheCreate := int(usage.Get("cache_creation_input_tokens").Int())

		// input_tokens excludes cached reads, so the full prompt is the
		// sum of fresh, cache-read, and cache-creation tokens.
		a.PromptTokens = input + cacheRead + cacheCreate
		a.CompletionTokens = output
		a.TotalTokens = a.PromptTokens + output
		a.CacheReadTokens = cacheRead
		if usage.Get("cache_read_input_tokens").Exists() && a.PromptTokens > 0 {
			rate := float64(cacheRead) / float64(a.PromptTokens)
			a.CacheHitRate = &rate
		}

	default:
		usage := gjson.GetBytes(body, "usage")
		if !usage.Exists() {
			return a
		}
		a.PromptTokens = int(usage.Get("prompt_tokens").Int())
		a.CompletionTokens = int(usage.Get("completion_tokens").Int())
		a.TotalTokens = int(usage.Get("total_tokens").Int())
		if a.TotalTokens == 0 {
			a.TotalTokens = a.PromptTokens + a.CompletionTokens
		}

		cached := usage.Get("prompt_tokens_details.cached_tokens")
		a.CacheReadTokens = int(cached.Int())
		if cached.Exists() && a.PromptTokens > 0 {
			rate := float64(a.CacheReadTokens) / float64(a.PromptTokens)
			a.CacheHitRate = &rate
		}
	}

	return a
}

// ExtractStreamActuals pulls actual usage out of accumulated SSE frames.
// Anthropic streams report input tokens in message_start and output tokens
// in message_delta; OpenAI streams carry usage on the final chunk when the
// client opted in. Frames without usage contribute nothing.
func ExtractStreamActuals(d dialect.Dialect, frames []string) Actuals {
	var a Actuals

	switch d {
	case dialect.Anthropic:
		for _, f := range frames {
			if m := gjson.Get(f, "message.model"); m.Exists() {
				a.Model = m.String()
			}
			// message_start nests usage under message; message_delta
			// carries it at the top level.
			for _, path := range []string{"message.usage", "usage"} {
				usage := gjson.Get(f, path)
				if !usage.Exists() {
					continue
				}
				if v := usage.Get("input_tokens"); v.Exists() {
					a.PromptTokens = int(v.Int())
				}
				if v := usage.Get("output_tokens"); v.Exists() {
					a.CompletionTokens = int(v.Int())
				}
				if v := usage.Get("cache_read_input_tokens"); v.Exists() {
					a.CacheReadTokens = int(v.Int())
				}
				if v := usage.Get("cache_creation_input_tokens"); v.Exists() {
					a.PromptTokens += int(v.Int())
				}
			}
		}
		a.PromptTokens += a.CacheReadTokens
		if a.CacheReadTokens > 0 && a.PromptTokens > 0 {
			rate := float64(a.CacheReadTokens) / float64(a.PromptTokens)
			a.CacheHitRate = &rate
		}

	default:
		for _, f := range frames {
			if m := gjson.Get(f, "model"); m.Exists() && m.String() != "" {
				a.Model = m.String()
			}
			usage := gjson.Get(f, "usage")
			if !usage.Exists() || usage.Type == gjson.Null {
				continue
			}
			a.PromptTokens = int(usage.Get("prompt_tokens").Int())
			a.CompletionTokens = int(usage.Get("completion_tokens").Int())
			a.TotalTokens = int(usage.Get("total_tokens").Int())

			cached := usage.Get("prompt_tokens_details.cached_tokens")
			a.CacheReadTokens = int(cached.Int())
			if cached.Exists() && a.PromptTokens > 0 {
				rate := float64(a.CacheReadTokens) / float64(a.PromptTokens)
				a.CacheHitRate = &rate
			}
		}
	}

	if a.TotalTokens == 0 {
		a.TotalTokens = a.PromptTokens + a.CompletionTokens
	}
	return a
}

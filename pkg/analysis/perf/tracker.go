package perf

import (
	"time"
)

// Analysis holds derived timing metrics for one request. Pointer fields
// are nil when the metric is not measurable (non-streaming requests,
// single-chunk streams, unknown output size).
type Analysis struct {
	// TTFTMs is time to first token in milliseconds.
	TTFTMs *int64 `json:"ttft_ms,omitempty"`

	// TPOTMs is the average time per output token in milliseconds,
	// measured between the first and last chunk.
	TPOTMs *float64 `json:"tpot_ms,omitempty"`

	// TotalLatencyMs is the full request latency in milliseconds.
	TotalLatencyMs int64 `json:"total_latency_ms"`

	// TokensPerSecond is the output generation rate.
	TokensPerSecond *float64 `json:"tokens_per_second,omitempty"`
}

// Tracker collects chunk arrival times for one streamed response.
// Not safe for concurrent use; each request owns its tracker.
type Tracker struct {
	start  time.Time
	chunks []time.Time
}

// NewTracker starts tracking at the given request start time.
func NewTracker(start time.Time) *Tracker {
	return &Tracker{start: start}
}

// Observe records the arrival of one stream chunk.
func (t *Tracker) Observe(at time.Time) {
	t.chunks = append(t.chunks, at)
}

// ChunkCount returns the number of observed chunks.
func (t *Tracker) ChunkCount() int {
	return len(t.chunks)
}

// Analyze computes timing metrics for a streamed response given the
// number of output tokens generated.
func (t *Tracker) Analyze(outputTokens int) Analysis {
	if len(t.chunks) == 0 {
		return Analysis{}
	}

	first := t.chunks[0]
	last := t.chunks[len(t.chunks)-1]

	ttft := first.Sub(t.start).Milliseconds()
	a := Analysis{
		TTFTMs:         &ttft,
		TotalLatencyMs: last.Sub(t.start).Milliseconds(),
	}

	if len(t.chunks) > 1 && outputTokens > 0 {
		generation := last.Sub(first)
		tpot := float64(generation.Milliseconds()) / float64(outputTokens)
		a.TPOTMs = &tpot

		if secs := generation.Seconds(); secs > 0 {
			tps := float64(outputTokens) / secs
			a.TokensPerSecond = &tps
		}
	}

	return a
}

// NonStreaming returns the analysis for a non-streamed response, where
// the whole body arrives at once: TTFT equals total latency and there is
// no per-token timing.
func NonStreaming(start, end time.Time) Analysis {
	total := end.Sub(start).Milliseconds()
	ttft := total
	return Analysis{
		TTFTMs:         &ttft,
		TotalLatencyMs: total,
	}
}

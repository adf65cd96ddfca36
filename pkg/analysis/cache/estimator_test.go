package cache

import (
	"strings"
	"testing"

	"prismgw/prism/pkg/dialect"
)

// wordCounter counts whitespace-separated words, which keeps the
// arithmetic in tests easy to follow.
type wordCounter struct{}

func (wordCounter) Count(text, model string) int {
	return len(strings.Fields(text))
}

func newTestEstimator() *Estimator {
	return NewEstimator(wordCounter{}, DefaultProbabilities())
}

func TestEstimateEmpty(t *testing.T) {
	e := newTestEstimator()
	got := e.Estimate(nil, "gpt-4")
	if got.CachedTokens != 0 || got.FreshTokens != 0 || got.HitRate != 0 {
		t.Errorf("empty estimate = %+v, want zeros", got)
	}
}

func TestSystemMessageCachedOnRepeat(t *testing.T) {
	e := newTestEstimator()
	msgs := []dialect.Message{
		{Role: "system", Content: "always answer in french"},
		{Role: "user", Content: "bonjour"},
	}

	first := e.Estimate(msgs, "gpt-4")
	if first.SystemCached {
		t.Error("first sight of a system message should not count as cached")
	}

	second := e.Estimate(msgs, "gpt-4")
	if !second.SystemCached {
		t.Error("repeated system message should count as cached")
	}
	if second.CachedTokens < 4 {
		t.Errorf("cached tokens = %d, want at least the system message", second.CachedTokens)
	}
}

func TestTemplateDetection(t *testing.T) {
	e := newTestEstimator()
	msgs := []dialect.Message{
		{Role: "user", Content: "You are a helpful assistant that writes poems about the sea and ships"},
	}

	got := e.Estimate(msgs, "gpt-4")
	if !got.TemplateCached {
		t.Error("template opening not detected")
	}
	// Credit is capped at a quarter of the message.
	total := wordCounter{}.Count(msgs[0].Content, "")
	if got.CachedTokens > total/4 {
		t.Errorf("template credit %d exceeds quarter cap %d", got.CachedTokens, total/4)
	}
}

func TestTemplateFirstMatchOnly(t *testing.T) {
	e := newTestEstimator()
	// Opens with one template; a second template phrase mid-message
	// must not add more credit.
	oneMatch := e.Estimate([]dialect.Message{
		{Role: "user", Content: "Please analyze this text and then tell me more about it in detail please"},
	}, "gpt-4")
	if !oneMatch.TemplateCached {
		t.Fatal("template not detected")
	}
}

func TestHistoryRequiresThreeMessages(t *testing.T) {
	e := newTestEstimator()

	two := e.Estimate([]dialect.Message{
		{Role: "user", Content: "first question here"},
		{Role: "assistant", Content: "first answer here"},
	}, "gpt-4")
	if two.HistoryCached {
		t.Error("two-message conversation should carry no history credit")
	}

	three := e.Estimate([]dialect.Message{
		{Role: "user", Content: "first question here"},
		{Role: "assistant", Content: "first answer here"},
		{Role: "user", Content: "follow up question"},
	}, "gpt-4")
	if !three.HistoryCached {
		t.Error("multi-turn conversation should credit history")
	}
	// The last message is never part of history.
	if three.CachedTokens >= three.CachedTokens+three.FreshTokens {
		t.Error("cached tokens must stay below total")
	}
}

func TestCachedNeverExceedsTotal(t *testing.T) {
	e := newTestEstimator()
	msgs := []dialect.Message{
		{Role: "system", Content: "You are a helpful assistant"},
		{Role: "system", Content: "You are a helpful assistant"},
		{Role: "user", Content: "hi"},
	}
	// Prime the system hash, then estimate again with overlapping buckets.
	e.Estimate(msgs, "gpt-4")
	got := e.Estimate(msgs, "gpt-4")

	total := got.CachedTokens + got.FreshTokens
	if got.CachedTokens > total {
		t.Errorf("cached %d exceeds total %d", got.CachedTokens, total)
	}
	if got.HitRate < 0 || got.HitRate > 1 {
		t.Errorf("hit rate %v out of range", got.HitRate)
	}
}

func TestIsRepetitive(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"short text never repetitive", "the cat sat on the mat", false},
		{"repeated trigram", "the quick brown fox and then the quick brown fox jumped again", true},
		{"long but varied", "one two three four five six seven eight nine ten eleven twelve", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRepetitive(tt.text); got != tt.want {
				t.Errorf("isRepetitive(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestHistoryProbabilityConfigurable(t *testing.T) {
	low := NewEstimator(wordCounter{}, Probabilities{Base: 0.01, System: 0.01, ShortBonus: 0.01, MediumBonus: 0.01, RepetitionBonus: 0.01})
	high := NewEstimator(wordCounter{}, Probabilities{Base: 0.9, System: 0.9, ShortBonus: 0.05, MediumBonus: 0.05, RepetitionBonus: 0.05})

	msgs := []dialect.Message{
		{Role: "user", Content: "a long enough first question about many different things here"},
		{Role: "assistant", Content: "a long enough first answer about many different things here"},
		{Role: "user", Content: "next"},
	}
	if low.Estimate(msgs, "gpt-4").CachedTokens >= high.Estimate(msgs, "gpt-4").CachedTokens {
		t.Error("higher probabilities should credit more cached tokens")
	}
}

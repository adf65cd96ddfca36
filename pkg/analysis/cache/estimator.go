package cache

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"sync"

	"prismgw/prism/pkg/dialect"
)

// TokenCounter counts tokens in text for a model.
type TokenCounter interface {
	Count(text, model string) int
}

// Probabilities tunes the conversation-history scoring.
type Probabilities struct {
	Base            float64
	System          float64
	ShortBonus      float64
	MediumBonus     float64
	RepetitionBonus float64
}

// DefaultProbabilities returns the standard history scoring weights.
func DefaultProbabilities() Probabilities {
	return Probabilities{
		Base:            0.3,
		System:          0.8,
		ShortBonus:      0.2,
		MediumBonus:     0.1,
		RepetitionBonus: 0.2,
	}
}

// Estimate is the outcome of cache-reuse estimation for one request.
type Estimate struct {
	// CachedTokens is the estimated number of prompt tokens served from
	// cache, never exceeding the total prompt size.
	CachedTokens int `json:"estimated_cached_tokens"`

	// FreshTokens is the estimated number of tokens processed fresh.
	FreshTokens int `json:"estimated_fresh_tokens"`

	// HitRate is CachedTokens / total, 0 when the prompt is empty.
	HitRate float64 `json:"estimated_cache_hit_rate"`

	// Per-signal participation flags.
	SystemCached   bool `json:"system_message_cached"`
	TemplateCached bool `json:"template_cached"`
	HistoryCached  bool `json:"conversation_history_cached"`
}

// Estimator scores requests for likely prompt-cache reuse. It is safe
// for concurrent use; seen system-message hashes are shared across
// requests for the lifetime of the process.
type Estimator struct {
	counter TokenCounter
	probs   Probabilities

	mu          sync.Mutex
	seenSystems map[string]struct{}
}

// NewEstimator creates an estimator. Zero-valued probabilities fall back
// to the defaults.
func NewEstimator(counter TokenCounter, probs Probabilities) *Estimator {
	def := DefaultProbabilities()
	if probs.Base == 0 {
		probs.Base = def.Base
	}
	if probs.System == 0 {
		probs.System = def.System
	}
	if probs.ShortBonus == 0 {
		probs.ShortBonus = def.ShortBonus
	}
	if probs.MediumBonus == 0 {
		probs.MediumBonus = def.MediumBonus
	}
	if probs.RepetitionBonus == 0 {
		probs.RepetitionBonus = def.RepetitionBonus
	}

	return &Estimator{
		counter:     counter,
		probs:       probs,
		seenSystems: make(map[string]struct{}),
	}
}

// Estimate scores a conversation for likely cache reuse.
func (e *Estimator) Estimate(messages []dialect.Message, model string) Estimate {
	total := 0
	for _, m := range messages {
		total += e.counter.Count(m.Content, model)
	}

	var est Estimate
	if total == 0 {
		return est
	}

	cached := 0
	if n := e.systemTokens(messages, model); n > 0 {
		cached += n
		est.SystemCached = true
	}
	if n := e.templateTokens(messages, model); n > 0 {
		cached += n
		est.TemplateCached = true
	}
	if n := e.historyTokens(messages, model); n > 0 {
		cached += n
		est.HistoryCached = true
	}

	if cached > total {
		cached = total
	}
	est.CachedTokens = cached
	est.FreshTokens = total - cached
	est.HitRate = float64(cached) / float64(total)
	return est
}

// systemTokens credits system messages whose exact content has been seen
// before. First sight registers the hash and credits nothing.
func (e *Estimator) systemTokens(messages []dialect.Message, model string) int {
	tokens := 0

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, m := range messages {
		if m.Role != "system" || m.Content == "" {
			continue
		}
		sum := md5.Sum([]byte(m.Content))
		key := hex.EncodeToString(sum[:])
		if _, seen := e.seenSystems[key]; seen {
			tokens += e.counter.Count(m.Content, model)
		} else {
			e.seenSystems[key] = struct{}{}
		}
	}
	return tokens
}

// templateTokens credits the first template pattern matching each
// message, capped at a quarter of the message.
func (e *Estimator) templateTokens(messages []dialect.Message, model string) int {
	tokens := 0
	for _, m := range messages {
		for _, p := range templatePatterns {
			match := p.FindString(m.Content)
			if match == "" {
				continue
			}
			credit := e.counter.Count(match, model)
			if limit := e.counter.Count(m.Content, model) / 4; credit > limit {
				credit = limit
			}
			tokens += credit
			break
		}
	}
	return tokens
}

// historyTokens credits prior turns of a multi-turn conversation by
// per-message cache probability. Conversations of two or fewer messages
// carry no reusable history.
func (e *Estimator) historyTokens(messages []dialect.Message, model string) int {
	if len(messages) <= 2 {
		return 0
	}

	credit := 0.0
	for _, m := range messages[:len(messages)-1] {
		p := e.probs.Base
		if m.Role == "system" {
			p = e.probs.System
		}
		switch {
		case len(m.Content) < 100:
			p += e.probs.ShortBonus
		case len(m.Content) < 500:
			p += e.probs.MediumBonus
		}
		if isRepetitive(m.Content) {
			p += e.probs.RepetitionBonus
		}
		if p > 1 {
			p = 1
		}
		credit += float64(e.counter.Count(m.Content, model)) * p
	}
	return int(credit)
}

// isRepetitive reports whether a message of at least ten words repeats
// any three-word phrase.
func isRepetitive(text string) bool {
	words := strings.Fields(text)
	if len(words) < 10 {
		return false
	}

	seen := make(map[string]struct{}, len(words))
	for i := 0; i+3 <= len(words); i++ {
		gram := strings.Join(words[i:i+3], " ")
		if _, ok := seen[gram]; ok {
			return true
		}
		seen[gram] = struct{}{}
	}
	return false
}

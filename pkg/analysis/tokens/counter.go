package tokens

import (
	"regexp"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"prismgw/prism/pkg/dialect"
)

// tokenPattern splits text into word and punctuation tokens, the same way
// most BPE vocabularies do at a coarse level. Unicode classes keep CJK
// runs as single words; countCJK then adds their per-character cost.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]+|[^\p{L}\p{N}_\s]`)

const (
	// claudeScale adjusts heuristic counts for Claude models, whose
	// tokenizer packs slightly more text per token.
	claudeScale = 0.95

	// imageTokens is the flat cost charged per image content part.
	imageTokens = 85

	// Per-message and per-conversation overhead, matching the chat
	// format's hidden tokens.
	messageOverhead      = 4
	conversationOverhead = 2
)

// Counter estimates token counts. Exact encodings are cached per model.
type Counter struct {
	mu        sync.Mutex
	encodings map[string]*tiktoken.Tiktoken
}

// NewCounter creates a token counter.
func NewCounter() *Counter {
	return &Counter{encodings: make(map[string]*tiktoken.Tiktoken)}
}

// Count estimates the tokens in a piece of text for the given model.
func (c *Counter) Count(text, model string) int {
	if text == "" {
		return 0
	}

	if enc := c.encodingFor(model); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}

	count := len(tokenPattern.FindAllString(text, -1))
	count += countCJK(text)

	if strings.HasPrefix(model, "claude") {
		count = int(float64(count) * claudeScale)
	}
	if count == 0 {
		count = 1
	}
	return count
}

// CountMessages estimates the prompt tokens for a full conversation,
// including role names, per-message framing, and image parts.
func (c *Counter) CountMessages(messages []dialect.Message, model string) int {
	if len(messages) == 0 {
		return 0
	}

	total := conversationOverhead
	for _, m := range messages {
		total += c.Count(m.Role, model)
		total += c.Count(m.Content, model)
		total += m.Images * imageTokens
		total += messageOverhead
	}
	return total
}

// encodingFor returns a cached tiktoken encoding for the model, or nil
// when no exact encoding exists (Claude models, unknown names).
func (c *Counter) encodingFor(model string) *tiktoken.Tiktoken {
	if !strings.HasPrefix(model, "gpt-") && !strings.HasPrefix(model, "o1") && !strings.HasPrefix(model, "text-") {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.encodings[model]; ok {
		return enc
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// Unknown OpenAI model variant; remember the miss so we do
		// not retry the registry lookup per request.
		c.encodings[model] = nil
		return nil
	}
	c.encodings[model] = enc
	return enc
}

// countCJK counts CJK ideographs, which tokenize one-per-character
// rather than by word boundary.
func countCJK(text string) int {
	n := 0
	for _, r := range text {
		if r >= 0x4E00 && r <= 0x9FFF {
			n++
		}
	}
	return n
}

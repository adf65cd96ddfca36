package dialect

import (
	"encoding/json"
)

// Anthropic wire types.

type anthropicRequest struct {
	Model         string             `json:"model"`
	Messages      []anthropicMessage `json:"messages"`
	System        anthropicSystem    `json:"system,omitempty"`
	MaxTokens     int                `json:"max_tokens,omitempty"`
	Temperature   *float64           `json:"temperature,omitempty"`
	TopP          *float64           `json:"top_p,omitempty"`
	Stream        bool               `json:"stream,omitempty"`
	StopSequences []string           `json:"stop_sequences,omitempty"`
}

type anthropicMessage struct {
	Role    string           `json:"role"`
	Content anthropicContent `json:"content"`
}

// anthropicSystem accepts both the string form and the content-block list.
type anthropicSystem struct {
	text   string
	blocks []anthropicContentBlock
	isStr  bool
	set    bool
}

func (s *anthropicSystem) UnmarshalJSON(data []byte) error {
	s.set = true
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		s.text = str
		s.isStr = true
		return nil
	}
	s.isStr = false
	return json.Unmarshal(data, &s.blocks)
}

func (s anthropicSystem) MarshalJSON() ([]byte, error) {
	if s.isStr {
		return json.Marshal(s.text)
	}
	return json.Marshal(s.blocks)
}

func (s anthropicSystem) Text() string {
	if !s.set {
		return ""
	}
	if s.isStr {
		return s.text
	}
	var parts []string
	for _, b := range s.blocks {
		if b.Type == "text" && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return joinTextParts(parts)
}

// anthropicContent accepts both string content and content-block lists.
type anthropicContent struct {
	text   string
	blocks []anthropicContentBlock
	isStr  bool
}

type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

func (c *anthropicContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.text = s
		c.isStr = true
		return nil
	}
	c.isStr = false
	return json.Unmarshal(data, &c.blocks)
}

func (c anthropicContent) MarshalJSON() ([]byte, error) {
	if c.isStr {
		return json.Marshal(c.text)
	}
	return json.Marshal(c.blocks)
}

func (c anthropicContent) Text() string {
	if c.isStr {
		return c.text
	}
	var parts []string
	for _, b := range c.blocks {
		if b.Type == "text" && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return joinTextParts(parts)
}

type anthropicResponse struct {
	ID         string                  `json:"id"`
	Type       string                  `json:"type"`
	Role       string                  `json:"role"`
	Model      string                  `json:"model"`
	Content    []anthropicContentBlock `json:"content"`
	StopReason string                  `json:"stop_reason"`
	Usage      anthropicUsage          `json:"usage"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// anthropicStreamEvent covers every event type in the messages stream.
type anthropicStreamEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index,omitempty"`
	Delta *struct {
		Type       string `json:"type,omitempty"`
		Text       string `json:"text,omitempty"`
		StopReason string `json:"stop_reason,omitempty"`
	} `json:"delta,omitempty"`
	Message *anthropicResponse `json:"message,omitempty"`
	Usage   *anthropicUsage    `json:"usage,omitempty"`
}

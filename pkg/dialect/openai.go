package dialect

import (
	"encoding/json"
)

// OpenAI wire types. Only the fields the gateway needs are modelled;
// unknown fields survive passthrough because the raw body is forwarded.

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
	TopP        *float64        `json:"top_p,omitempty"`
	Stream      bool            `json:"stream,omitempty"`
	Stop        []string        `json:"stop,omitempty"`
	User        string          `json:"user,omitempty"`
}

type openAIMessage struct {
	Role    string        `json:"role"`
	Content openAIContent `json:"content"`
	Name    string        `json:"name,omitempty"`
}

// openAIContent accepts both string content and the multi-part list form.
type openAIContent struct {
	text  string
	parts []openAIContentPart
	isStr bool
}

type openAIContentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL *struct {
		URL string `json:"url"`
	} `json:"image_url,omitempty"`
}

func (c *openAIContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.text = s
		c.isStr = true
		return nil
	}
	c.isStr = false
	return json.Unmarshal(data, &c.parts)
}

func (c openAIContent) MarshalJSON() ([]byte, error) {
	if c.isStr {
		return json.Marshal(c.text)
	}
	return json.Marshal(c.parts)
}

// Text flattens the content to plain text. Text parts are joined with
// spaces; image parts are dropped.
func (c openAIContent) Text() string {
	if c.isStr {
		return c.text
	}
	var parts []string
	for _, p := range c.parts {
		if p.Type == "text" && p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	return joinTextParts(parts)
}

// ImageParts counts image_url parts, used by token estimation.
func (c openAIContent) ImageParts() int {
	n := 0
	for _, p := range c.parts {
		if p.Type == "image_url" {
			n++
		}
	}
	return n
}

func stringContent(s string) openAIContent {
	return openAIContent{text: s, isStr: true}
}

type openAIResponse struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []openAIChoice `json:"choices"`
	Usage   openAIUsage    `json:"usage"`
}

type openAIChoice struct {
	Index        int           `json:"index"`
	Message      openAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type openAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type openAIStreamChunk struct {
	ID      string               `json:"id"`
	Object  string               `json:"object"`
	Created int64                `json:"created"`
	Model   string               `json:"model"`
	Choices []openAIStreamChoice `json:"choices"`
	Usage   *openAIUsage         `json:"usage,omitempty"`
}

type openAIStreamChoice struct {
	Index        int               `json:"index"`
	Delta        openAIStreamDelta `json:"delta"`
	FinishReason *string           `json:"finish_reason,omitempty"`
}

type openAIStreamDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

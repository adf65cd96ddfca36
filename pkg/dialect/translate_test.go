package dialect

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseRequestOpenAI(t *testing.T) {
	body := `{
		"model": "gpt-4",
		"messages": [
			{"role": "system", "content": "You are helpful."},
			{"role": "user", "content": [{"type": "text", "text": "Hi"}, {"type": "text", "text": "there"}]}
		],
		"stream": true
	}`

	req, err := ParseRequest(OpenAI, []byte(body))
	if err != nil {
		t.Fatalf("ParseRequest failed: %v", err)
	}
	if req.Model != "gpt-4" {
		t.Errorf("model = %q, want gpt-4", req.Model)
	}
	if !req.Stream {
		t.Error("stream flag not parsed")
	}
	if len(req.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(req.Messages))
	}
	if req.Messages[1].Content != "Hi there" {
		t.Errorf("flattened content = %q, want %q", req.Messages[1].Content, "Hi there")
	}
}

func TestParseRequestAnthropicSurfacesSystem(t *testing.T) {
	body := `{
		"model": "claude-3-haiku-20240307",
		"system": "Be brief.",
		"messages": [{"role": "user", "content": "Hello"}],
		"max_tokens": 100
	}`

	req, err := ParseRequest(Anthropic, []byte(body))
	if err != nil {
		t.Fatalf("ParseRequest failed: %v", err)
	}
	if len(req.Messages) != 2 {
		t.Fatalf("got %d messages, want system + user", len(req.Messages))
	}
	if req.Messages[0].Role != "system" || req.Messages[0].Content != "Be brief." {
		t.Errorf("system message not surfaced: %+v", req.Messages[0])
	}
}

func TestModeFor(t *testing.T) {
	tests := []struct {
		client, upstream Dialect
		want             Mode
	}{
		{OpenAI, OpenAI, ModePassthrough},
		{Anthropic, Anthropic, ModePassthrough},
		{OpenAI, Anthropic, ModeOpenAIToAnthropic},
		{Anthropic, OpenAI, ModeAnthropicToOpenAI},
	}
	for _, tt := range tests {
		if got := ModeFor(tt.client, tt.upstream); got != tt.want {
			t.Errorf("ModeFor(%s, %s) = %s, want %s", tt.client, tt.upstream, got, tt.want)
		}
	}
}

func TestTranslateRequestOpenAIToAnthropic(t *testing.T) {
	body := `{
		"model": "claude-3-sonnet",
		"messages": [
			{"role": "system", "content": "You are helpful."},
			{"role": "user", "content": "Hello"}
		]
	}`

	out, err := TranslateRequest(ModeOpenAIToAnthropic, []byte(body))
	if err != nil {
		t.Fatalf("TranslateRequest failed: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got["system"] != "You are helpful." {
		t.Errorf("system = %v, want extracted system message", got["system"])
	}
	if got["max_tokens"] != float64(4096) {
		t.Errorf("max_tokens = %v, want default 4096", got["max_tokens"])
	}
	msgs := got["messages"].([]any)
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1 (system removed)", len(msgs))
	}
	if msgs[0].(map[string]any)["role"] != "user" {
		t.Errorf("remaining message role = %v, want user", msgs[0].(map[string]any)["role"])
	}
}

func TestTranslateRequestAnthropicToOpenAI(t *testing.T) {
	body := `{
		"model": "gpt-4",
		"system": "Be brief.",
		"messages": [{"role": "user", "content": [{"type": "text", "text": "Hello"}]}]
	}`

	out, err := TranslateRequest(ModeAnthropicToOpenAI, []byte(body))
	if err != nil {
		t.Fatalf("TranslateRequest failed: %v", err)
	}

	var got struct {
		MaxTokens   int      `json:"max_tokens"`
		Temperature *float64 `json:"temperature"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got.MaxTokens != 1000 {
		t.Errorf("max_tokens = %d, want default 1000", got.MaxTokens)
	}
	if got.Temperature == nil || *got.Temperature != 1.0 {
		t.Errorf("temperature = %v, want default 1.0", got.Temperature)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Fatalf("messages = %+v, want leading system message", got.Messages)
	}
	if got.Messages[1].Content != "Hello" {
		t.Errorf("user content = %q, want flattened text", got.Messages[1].Content)
	}
}

func TestTranslateRequestPassthroughUnchanged(t *testing.T) {
	body := []byte(`{"model":"gpt-4","messages":[],"vendor_extension":{"x":1}}`)
	out, err := TranslateRequest(ModePassthrough, body)
	if err != nil {
		t.Fatalf("passthrough failed: %v", err)
	}
	if string(out) != string(body) {
		t.Error("passthrough modified the body")
	}
}

func TestTranslateResponseAnthropicToOpenAIClient(t *testing.T) {
	// Client spoke OpenAI, upstream replied in Anthropic format.
	body := `{
		"id": "abc123",
		"type": "message",
		"role": "assistant",
		"model": "claude-3-sonnet",
		"content": [{"type": "text", "text": "Hi!"}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 10, "output_tokens": 5}
	}`

	out, err := TranslateResponse(ModeOpenAIToAnthropic, []byte(body))
	if err != nil {
		t.Fatalf("TranslateResponse failed: %v", err)
	}

	var got openAIResponse
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got.Object != "chat.completion" {
		t.Errorf("object = %q, want chat.completion", got.Object)
	}
	if !strings.HasPrefix(got.ID, "chatcmpl-") {
		t.Errorf("id = %q, want chatcmpl- prefix", got.ID)
	}
	if got.Choices[0].FinishReason != "stop" {
		t.Errorf("finish_reason = %q, want stop (from end_turn)", got.Choices[0].FinishReason)
	}
	if got.Usage.PromptTokens != 10 || got.Usage.CompletionTokens != 5 || got.Usage.TotalTokens != 15 {
		t.Errorf("usage = %+v, want 10/5/15", got.Usage)
	}
}

func TestTranslateResponseOpenAIToAnthropicClient(t *testing.T) {
	body := `{
		"id": "xyz",
		"object": "chat.completion",
		"model": "gpt-4",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "Hi!"}, "finish_reason": "length"}],
		"usage": {"prompt_tokens": 7, "completion_tokens": 3, "total_tokens": 10}
	}`

	out, err := TranslateResponse(ModeAnthropicToOpenAI, []byte(body))
	if err != nil {
		t.Fatalf("TranslateResponse failed: %v", err)
	}

	var got anthropicResponse
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got.Type != "message" || got.Role != "assistant" {
		t.Errorf("envelope = %s/%s, want message/assistant", got.Type, got.Role)
	}
	if got.StopReason != "max_tokens" {
		t.Errorf("stop_reason = %q, want max_tokens (from length)", got.StopReason)
	}
	if got.Usage.InputTokens != 7 || got.Usage.OutputTokens != 3 {
		t.Errorf("usage = %+v, want 7/3", got.Usage)
	}
	if len(got.Content) != 1 || got.Content[0].Text != "Hi!" {
		t.Errorf("content = %+v, want single text block", got.Content)
	}
}

func TestStopReasonNormalization(t *testing.T) {
	tests := []struct {
		anthropic, openai string
	}{
		{"end_turn", "stop"},
		{"max_tokens", "length"},
		{"tool_use", "tool_calls"},
		{"stop_sequence", "stop"},
	}
	for _, tt := range tests {
		if got := normalizeStopToOpenAI(tt.anthropic); got != tt.openai {
			t.Errorf("normalizeStopToOpenAI(%q) = %q, want %q", tt.anthropic, got, tt.openai)
		}
	}
	if got := normalizeFinishToAnthropic("stop"); got != "end_turn" {
		t.Errorf("normalizeFinishToAnthropic(stop) = %q, want end_turn", got)
	}
}

package dialect

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	// defaultAnthropicMaxTokens is used when an OpenAI request without
	// max_tokens is sent to Anthropic, which requires the field.
	defaultAnthropicMaxTokens = 4096

	// Defaults applied when an Anthropic request is sent to OpenAI.
	defaultOpenAIMaxTokens   = 1000
	defaultOpenAITemperature = 1.0
)

// TranslateRequest converts a request body between dialects. Passthrough
// returns the body unchanged.
func TranslateRequest(mode Mode, body []byte) ([]byte, error) {
	switch mode {
	case ModePassthrough:
		return body, nil
	case ModeOpenAIToAnthropic:
		return openAIRequestToAnthropic(body)
	case ModeAnthropicToOpenAI:
		return anthropicRequestToOpenAI(body)
	default:
		return nil, fmt.Errorf("unknown translate mode %q", mode)
	}
}

// TranslateResponse converts a non-streaming response body back to the
// client's dialect. The mode is the request's mode, so the response moves
// in the opposite direction.
func TranslateResponse(mode Mode, body []byte) ([]byte, error) {
	switch mode {
	case ModePassthrough:
		return body, nil
	case ModeOpenAIToAnthropic:
		return anthropicResponseToOpenAI(body)
	case ModeAnthropicToOpenAI:
		return openAIResponseToAnthropic(body)
	default:
		return nil, fmt.Errorf("unknown translate mode %q", mode)
	}
}

// openAIRequestToAnthropic rewrites an OpenAI chat request as an Anthropic
// messages request. System messages are pulled out into the system field
// and max_tokens is defaulted because Anthropic requires it.
func openAIRequestToAnthropic(body []byte) ([]byte, error) {
	var req openAIRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, &ParseError{Dialect: OpenAI, Cause: err}
	}

	out := anthropicRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stream:      req.Stream,
	}
	if out.MaxTokens == 0 {
		out.MaxTokens = defaultAnthropicMaxTokens
	}
	if len(req.Stop) > 0 {
		out.StopSequences = req.Stop
	}

	var systemParts []string
	for _, m := range req.Messages {
		if m.Role == "system" {
			if t := m.Content.Text(); t != "" {
				systemParts = append(systemParts, t)
			}
			continue
		}
		out.Messages = append(out.Messages, anthropicMessage{
			Role:    m.Role,
			Content: anthropicContent{text: m.Content.Text(), isStr: true},
		})
	}
	if len(systemParts) > 0 {
		out.System = anthropicSystem{text: joinTextParts(systemParts), isStr: true, set: true}
	}

	return json.Marshal(out)
}

// anthropicRequestToOpenAI rewrites an Anthropic messages request as an
// OpenAI chat request. The system field becomes a leading system message.
func anthropicRequestToOpenAI(body []byte) ([]byte, error) {
	var req anthropicRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, &ParseError{Dialect: Anthropic, Cause: err}
	}

	out := openAIRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stream:      req.Stream,
		Stop:        req.StopSequences,
	}
	if out.MaxTokens == 0 {
		out.MaxTokens = defaultOpenAIMaxTokens
	}
	if out.Temperature == nil {
		t := defaultOpenAITemperature
		out.Temperature = &t
	}

	if sys := req.System.Text(); sys != "" {
		out.Messages = append(out.Messages, openAIMessage{
			Role:    "system",
			Content: stringContent(sys),
		})
	}
	for _, m := range req.Messages {
		out.Messages = append(out.Messages, openAIMessage{
			Role:    m.Role,
			Content: stringContent(m.Content.Text()),
		})
	}

	return json.Marshal(out)
}

// anthropicResponseToOpenAI rewrites an Anthropic messages response as an
// OpenAI chat completion.
func anthropicResponseToOpenAI(body []byte) ([]byte, error) {
	var resp anthropicResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ParseError{Dialect: Anthropic, Cause: err}
	}

	var text []string
	for _, b := range resp.Content {
		if b.Type == "text" && b.Text != "" {
			text = append(text, b.Text)
		}
	}

	out := openAIResponse{
		ID:      "chatcmpl-" + resp.ID,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   resp.Model,
		Choices: []openAIChoice{{
			Index: 0,
			Message: openAIMessage{
				Role:    "assistant",
				Content: stringContent(joinTextParts(text)),
			},
			FinishReason: normalizeStopToOpenAI(resp.StopReason),
		}},
		Usage: openAIUsage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}

	return json.Marshal(out)
}

// openAIResponseToAnthropic rewrites an OpenAI chat completion as an
// Anthropic messages response.
func openAIResponseToAnthropic(body []byte) ([]byte, error) {
	var resp openAIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ParseError{Dialect: OpenAI, Cause: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &ParseError{Dialect: OpenAI, Cause: fmt.Errorf("no choices in response")}
	}
	choice := resp.Choices[0]

	out := anthropicResponse{
		ID:    "msg_" + resp.ID,
		Type:  "message",
		Role:  "assistant",
		Model: resp.Model,
		Content: []anthropicContentBlock{{
			Type: "text",
			Text: choice.Message.Content.Text(),
		}},
		StopReason: normalizeFinishToAnthropic(choice.FinishReason),
		Usage: anthropicUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}

	return json.Marshal(out)
}

package dialect

import (
	"encoding/json"
	"fmt"
)

// DoneFrame is the terminal SSE payload for OpenAI-dialect streams.
const DoneFrame = "[DONE]"

// TranslateStreamFrame converts a single SSE data payload from the
// upstream dialect into zero or more frames in the client dialect.
// A nil slice means the frame carries nothing the client dialect expresses
// (for example Anthropic message_start when the client speaks OpenAI).
// Passthrough returns the frame unchanged.
func TranslateStreamFrame(mode Mode, data string) ([]string, error) {
	switch mode {
	case ModePassthrough:
		return []string{data}, nil
	case ModeOpenAIToAnthropic:
		// Client speaks OpenAI, upstream is Anthropic.
		return anthropicFrameToOpenAI(data)
	case ModeAnthropicToOpenAI:
		// Client speaks Anthropic, upstream is OpenAI.
		return openAIFrameToAnthropic(data)
	default:
		return nil, fmt.Errorf("unknown translate mode %q", mode)
	}
}

// anthropicFrameToOpenAI maps Anthropic stream events onto OpenAI chunk
// frames. Text deltas become content deltas; message_delta carries the
// finish reason; everything else (message_start, content_block_start,
// ping, message_stop) is suppressed.
func anthropicFrameToOpenAI(data string) ([]string, error) {
	var event anthropicStreamEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return nil, &ParseError{Dialect: Anthropic, Cause: err}
	}

	switch event.Type {
	case "content_block_delta":
		if event.Delta == nil || event.Delta.Type != "text_delta" || event.Delta.Text == "" {
			return nil, nil
		}
		chunk := openAIStreamChunk{
			Object: "chat.completion.chunk",
			Choices: []openAIStreamChoice{{
				Index: 0,
				Delta: openAIStreamDelta{Content: event.Delta.Text},
			}},
		}
		out, err := json.Marshal(chunk)
		if err != nil {
			return nil, err
		}
		return []string{string(out)}, nil

	case "message_delta":
		if event.Delta == nil || event.Delta.StopReason == "" {
			return nil, nil
		}
		finish := normalizeStopToOpenAI(event.Delta.StopReason)
		chunk := openAIStreamChunk{
			Object: "chat.completion.chunk",
			Choices: []openAIStreamChoice{{
				Index:        0,
				Delta:        openAIStreamDelta{},
				FinishReason: &finish,
			}},
		}
		if event.Usage != nil {
			chunk.Usage = &openAIUsage{
				PromptTokens:     event.Usage.InputTokens,
				CompletionTokens: event.Usage.OutputTokens,
				TotalTokens:      event.Usage.InputTokens + event.Usage.OutputTokens,
			}
		}
		out, err := json.Marshal(chunk)
		if err != nil {
			return nil, err
		}
		return []string{string(out)}, nil

	default:
		return nil, nil
	}
}

// openAIFrameToAnthropic maps OpenAI chunk frames onto Anthropic stream
// events. Content deltas become content_block_delta events; frames without
// content become pings so the client sees liveness.
func openAIFrameToAnthropic(data string) ([]string, error) {
	if data == DoneFrame {
		return []string{`{"type":"message_stop"}`}, nil
	}

	var chunk openAIStreamChunk
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return nil, &ParseError{Dialect: OpenAI, Cause: err}
	}

	if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
		event := map[string]any{
			"type":  "content_block_delta",
			"index": 0,
			"delta": map[string]any{
				"type": "text_delta",
				"text": chunk.Choices[0].Delta.Content,
			},
		}
		out, err := json.Marshal(event)
		if err != nil {
			return nil, err
		}
		return []string{string(out)}, nil
	}

	return []string{`{"type":"ping"}`}, nil
}

// ErrorFrame builds a mid-stream error payload in the client's dialect.
// Streams that already delivered frames cannot change their HTTP status,
// so the failure is reported in-band before the stream terminates.
func ErrorFrame(client Dialect, message string) string {
	switch client {
	case Anthropic:
		frame, _ := json.Marshal(map[string]any{
			"type": "error",
			"error": map[string]any{
				"type":    "api_error",
				"message": message,
			},
		})
		return string(frame)
	default:
		frame, _ := json.Marshal(map[string]any{"error": message})
		return string(frame)
	}
}

// DeltaText extracts the incremental text from a raw frame in the given
// dialect. Used to accumulate streamed output for token counting when the
// upstream reports no usage.
func DeltaText(d Dialect, data string) string {
	if data == DoneFrame {
		return ""
	}
	switch d {
	case OpenAI:
		var chunk openAIStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return ""
		}
		if len(chunk.Choices) == 0 {
			return ""
		}
		return chunk.Choices[0].Delta.Content
	case Anthropic:
		var event anthropicStreamEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			return ""
		}
		if event.Type == "content_block_delta" && event.Delta != nil && event.Delta.Type == "text_delta" {
			return event.Delta.Text
		}
		return ""
	default:
		return ""
	}
}

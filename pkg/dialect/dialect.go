package dialect

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Dialect identifies an LLM API wire format.
type Dialect string

const (
	// OpenAI is the OpenAI chat completions format (/v1/chat/completions).
	OpenAI Dialect = "openai"
	// Anthropic is the Anthropic messages format (/v1/messages).
	Anthropic Dialect = "anthropic"
)

// Mode describes how a request is translated between client and upstream.
type Mode string

const (
	ModePassthrough       Mode = "passthrough"
	ModeOpenAIToAnthropic Mode = "openai_to_anthropic"
	ModeAnthropicToOpenAI Mode = "anthropic_to_openai"
)

// ModeFor returns the translation mode between a client dialect and an
// upstream dialect.
func ModeFor(client, upstream Dialect) Mode {
	switch {
	case client == upstream:
		return ModePassthrough
	case client == OpenAI && upstream == Anthropic:
		return ModeOpenAIToAnthropic
	default:
		return ModeAnthropicToOpenAI
	}
}

// Message is a dialect-neutral chat message used for analysis. Multi-part
// content is flattened to text; Images counts image parts that were
// dropped in flattening so token estimation can account for them.
type Message struct {
	Role    string
	Content string
	Images  int
}

// Request is the dialect-neutral view of a parsed chat request. It carries
// only what routing and analysis need; the raw body remains authoritative
// for the upstream call.
type Request struct {
	Dialect   Dialect
	Model     string
	Messages  []Message
	Stream    bool
	MaxTokens int
}

// ParseRequest parses a raw request body in the given dialect.
// For Anthropic requests the system field is surfaced as a leading
// system-role message so analysis sees one message shape.
func ParseRequest(d Dialect, body []byte) (*Request, error) {
	switch d {
	case OpenAI:
		var req openAIRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, &ParseError{Dialect: d, Cause: err}
		}
		out := &Request{
			Dialect:   d,
			Model:     req.Model,
			Stream:    req.Stream,
			MaxTokens: req.MaxTokens,
		}
		for _, m := range req.Messages {
			out.Messages = append(out.Messages, Message{
				Role:    m.Role,
				Content: m.Content.Text(),
				Images:  m.Content.ImageParts(),
			})
		}
		return out, nil

	case Anthropic:
		var req anthropicRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, &ParseError{Dialect: d, Cause: err}
		}
		out := &Request{
			Dialect:   d,
			Model:     req.Model,
			Stream:    req.Stream,
			MaxTokens: req.MaxTokens,
		}
		if sys := req.System.Text(); sys != "" {
			out.Messages = append(out.Messages, Message{Role: "system", Content: sys})
		}
		for _, m := range req.Messages {
			out.Messages = append(out.Messages, Message{Role: m.Role, Content: m.Content.Text()})
		}
		return out, nil

	default:
		return nil, &ParseError{Dialect: d, Cause: fmt.Errorf("unknown dialect %q", d)}
	}
}

// ParseError reports a body that could not be parsed in its dialect.
type ParseError struct {
	Dialect Dialect
	Cause   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s request: %v", e.Dialect, e.Cause)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// normalizeStopToOpenAI maps Anthropic stop reasons to OpenAI finish reasons.
func normalizeStopToOpenAI(reason string) string {
	switch reason {
	case "end_turn", "stop_sequence":
		return "stop"
	case "max_tokens":
		return "length"
	case "tool_use":
		return "tool_calls"
	default:
		return reason
	}
}

// normalizeFinishToAnthropic maps OpenAI finish reasons to Anthropic stop reasons.
func normalizeFinishToAnthropic(reason string) string {
	switch reason {
	case "stop":
		return "end_turn"
	case "length":
		return "max_tokens"
	case "tool_calls", "function_call":
		return "tool_use"
	default:
		return reason
	}
}

// joinTextParts flattens multi-part content to a single string, matching
// how mixed-content requests are normalized before translation.
func joinTextParts(parts []string) string {
	return strings.Join(parts, " ")
}

package gateway_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	mockrouting "prismgw/prism/internal/routing"
	"prismgw/prism/pkg/calllog"
	"prismgw/prism/pkg/config"
	"prismgw/prism/pkg/dialect"
	"prismgw/prism/pkg/gateway"
	"prismgw/prism/pkg/providerfactory"
	"prismgw/prism/pkg/providers"
)

type captureRecorder struct {
	logs []*calllog.CallLog
}

func (c *captureRecorder) Record(log *calllog.CallLog) error {
	c.logs = append(c.logs, log)
	return nil
}

func newTestGateway(t *testing.T, provs ...providers.Provider) (*gateway.Gateway, *captureRecorder) {
	t.Helper()

	manager := providerfactory.NewManager()
	for _, p := range provs {
		manager.Register(p)
	}

	rec := &captureRecorder{}
	gw := gateway.New(gateway.Options{
		Manager:  manager,
		Recorder: rec,
		Analysis: config.AnalysisConfig{
			EnableCacheEstimation:     true,
			EnablePerformanceTracking: true,
		},
	})
	return gw, rec
}

func TestChatCompletionPassthrough(t *testing.T) {
	upstream := mockrouting.NewMockProvider("openai", dialect.OpenAI)
	upstream.SetResponse([]byte(`{
		"id": "chatcmpl-123",
		"object": "chat.completion",
		"model": "gpt-4",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "Hello!"}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 100, "completion_tokens": 50, "total_tokens": 150}
	}`))
	gw, rec := newTestGateway(t, upstream)

	body := `{"model":"gpt-4","messages":[{"role":"user","content":"Say hello"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	w := httptest.NewRecorder()
	gateway.NewChatHandler(gw).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := gjson.Get(w.Body.String(), "choices.0.message.content").String(); got != "Hello!" {
		t.Errorf("content = %q", got)
	}

	if len(rec.logs) != 1 {
		t.Fatalf("recorded %d logs, want 1", len(rec.logs))
	}
	log := rec.logs[0]
	if !log.Success || log.Streaming {
		t.Errorf("success=%v streaming=%v", log.Success, log.Streaming)
	}
	if log.Provider != "openai" || log.Model != "gpt-4" {
		t.Errorf("provider=%q model=%q", log.Provider, log.Model)
	}
	if log.EstimatedPromptTokens == 0 {
		t.Error("estimated prompt tokens should be computed")
	}
	if log.ActualPromptTokens != 100 || log.ActualCompletionTokens != 50 {
		t.Errorf("actuals = %d/%d", log.ActualPromptTokens, log.ActualCompletionTokens)
	}
	if log.TTFTMs == nil {
		t.Error("non-streaming TTFT should equal total latency, not be nil")
	}
	if log.ActualCost == 0 {
		t.Error("actual cost should be computed for gpt-4")
	}
}

func TestChatCompletionTranslatedToAnthropic(t *testing.T) {
	upstream := mockrouting.NewMockProvider("anthropic", dialect.Anthropic)
	upstream.SetResponse([]byte(`{
		"id": "msg_abc",
		"type": "message",
		"role": "assistant",
		"model": "claude-3-haiku-20240307",
		"content": [{"type": "text", "text": "Bonjour"}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 30, "output_tokens": 8}
	}`))
	gw, rec := newTestGateway(t, upstream)

	body := `{"model":"claude-3-haiku-20240307","messages":[{"role":"user","content":"Say hello in French"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	w := httptest.NewRecorder()
	gateway.NewChatHandler(gw).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	// The client spoke OpenAI, so the Anthropic response comes back as a
	// chat completion.
	out := w.Body.String()
	if got := gjson.Get(out, "object").String(); got != "chat.completion" {
		t.Errorf("object = %q", got)
	}
	if got := gjson.Get(out, "choices.0.message.content").String(); got != "Bonjour" {
		t.Errorf("content = %q", got)
	}
	if got := gjson.Get(out, "choices.0.finish_reason").String(); got != "stop" {
		t.Errorf("finish_reason = %q", got)
	}

	// The upstream saw an Anthropic messages request.
	if len(upstream.Calls) != 1 {
		t.Fatalf("upstream calls = %d", len(upstream.Calls))
	}
	sent := string(upstream.Calls[0])
	if got := gjson.Get(sent, "max_tokens").Int(); got != 4096 {
		t.Errorf("max_tokens = %d, want default 4096", got)
	}

	log := rec.logs[0]
	if log.ActualPromptTokens != 30 || log.ActualCompletionTokens != 8 {
		t.Errorf("actuals = %d/%d", log.ActualPromptTokens, log.ActualCompletionTokens)
	}
}

func TestStreamingPassthrough(t *testing.T) {
	upstream := mockrouting.NewMockProvider("openai", dialect.OpenAI)
	upstream.SetStream([]string{
		`{"object":"chat.completion.chunk","model":"gpt-4","choices":[{"index":0,"delta":{"content":"Hel"}}]}`,
		`{"object":"chat.completion.chunk","model":"gpt-4","choices":[{"index":0,"delta":{"content":"lo"}}]}`,
		`{"object":"chat.completion.chunk","model":"gpt-4","choices":[{"index":0,"delta":{},"finish_reason":"stop"}],"usage":{"prompt_tokens":12,"completion_tokens":2,"total_tokens":14}}`,
		`[DONE]`,
	})
	gw, rec := newTestGateway(t, upstream)

	body := `{"model":"gpt-4","stream":true,"messages":[{"role":"user","content":"Say hello"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	w := httptest.NewRecorder()
	gateway.NewChatHandler(gw).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

	out := w.Body.String()
	if !strings.Contains(out, `"content":"Hel"`) || !strings.Contains(out, `"content":"lo"`) {
		t.Errorf("missing content deltas in %q", out)
	}
	if !strings.HasSuffix(strings.TrimSpace(out), "data: [DONE]") {
		t.Errorf("stream should end with [DONE], got %q", out)
	}

	log := rec.logs[0]
	if !log.Success || !log.Streaming {
		t.Errorf("success=%v streaming=%v", log.Success, log.Streaming)
	}
	if log.ActualPromptTokens != 12 || log.ActualCompletionTokens != 2 {
		t.Errorf("actuals = %d/%d", log.ActualPromptTokens, log.ActualCompletionTokens)
	}
	if log.TTFTMs == nil {
		t.Error("streaming TTFT should be measured")
	}
	if !strings.Contains(log.ResponseBody, `"content":"Hel"`) {
		t.Error("raw frames should be captured in the call log")
	}
}

func TestStreamingAnthropicUpstreamToOpenAIClient(t *testing.T) {
	upstream := mockrouting.NewMockProvider("anthropic", dialect.Anthropic)
	upstream.SetStream([]string{
		`{"type":"message_start","message":{"model":"claude-3-haiku-20240307","usage":{"input_tokens":15}}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hi"}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":" there"}}`,
		`{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":3}}`,
		`{"type":"message_stop"}`,
	})
	gw, rec := newTestGateway(t, upstream)

	body := `{"model":"claude-3-haiku-20240307","stream":true,"messages":[{"role":"user","content":"hi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	w := httptest.NewRecorder()
	gateway.NewChatHandler(gw).ServeHTTP(w, req)

	out := w.Body.String()
	if !strings.Contains(out, `"content":"Hi"`) {
		t.Errorf("missing translated delta in %q", out)
	}
	if !strings.Contains(out, `"finish_reason":"stop"`) {
		t.Errorf("missing finish reason in %q", out)
	}
	if !strings.HasSuffix(strings.TrimSpace(out), "data: [DONE]") {
		t.Errorf("OpenAI client should get a terminal [DONE], got %q", out)
	}

	log := rec.logs[0]
	if log.ActualPromptTokens != 15 || log.ActualCompletionTokens != 3 {
		t.Errorf("actuals = %d/%d", log.ActualPromptTokens, log.ActualCompletionTokens)
	}
}

func TestMessagesEndpointPassthrough(t *testing.T) {
	upstream := mockrouting.NewMockProvider("anthropic", dialect.Anthropic)
	upstream.SetResponse([]byte(`{
		"id": "msg_1",
		"type": "message",
		"role": "assistant",
		"model": "claude-3-haiku-20240307",
		"content": [{"type": "text", "text": "ok"}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 9, "output_tokens": 1}
	}`))
	gw, rec := newTestGateway(t, upstream)

	body := `{"model":"claude-3-haiku-20240307","max_tokens":100,"messages":[{"role":"user","content":"hi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(body))
	w := httptest.NewRecorder()
	gateway.NewMessagesHandler(gw).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := gjson.Get(w.Body.String(), "type").String(); got != "message" {
		t.Errorf("type = %q", got)
	}
	if rec.logs[0].Endpoint != "/v1/messages" {
		t.Errorf("endpoint = %q", rec.logs[0].Endpoint)
	}
}

func TestCompletionUpstreamError(t *testing.T) {
	upstream := mockrouting.NewMockProvider("openai", dialect.OpenAI)
	upstream.SetHealthy(false)
	gw, rec := newTestGateway(t, upstream)

	body := `{"model":"gpt-4","messages":[{"role":"user","content":"hi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	w := httptest.NewRecorder()
	gateway.NewChatHandler(gw).ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	if got := gjson.Get(w.Body.String(), "error.type").String(); got != "api_error" {
		t.Errorf("error type = %q", got)
	}

	log := rec.logs[0]
	if log.Success {
		t.Error("failed upstream call should record success=false")
	}
	if log.Error == "" {
		t.Error("error message should be recorded")
	}
}

func TestCompletionErrorInAnthropicShape(t *testing.T) {
	gw, rec := newTestGateway(t)

	body := `{"model":"claude-3-haiku-20240307","max_tokens":10,"messages":[{"role":"user","content":"hi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(body))
	w := httptest.NewRecorder()
	gateway.NewMessagesHandler(gw).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 with no providers", w.Code)
	}
	out := w.Body.String()
	if got := gjson.Get(out, "type").String(); got != "error" {
		t.Errorf("anthropic error shape expected, got %q", out)
	}
	if len(rec.logs) != 0 {
		t.Error("unroutable requests should not be recorded")
	}
}

func TestCompletionInvalidBody(t *testing.T) {
	upstream := mockrouting.NewMockProvider("openai", dialect.OpenAI)
	gw, rec := newTestGateway(t, upstream)

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	gateway.NewChatHandler(gw).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if len(rec.logs) != 0 {
		t.Error("unparseable requests should not be recorded")
	}
}

func TestCompletionMethodNotAllowed(t *testing.T) {
	upstream := mockrouting.NewMockProvider("openai", dialect.OpenAI)
	gw, _ := newTestGateway(t, upstream)

	req := httptest.NewRequest(http.MethodGet, "/v1/chat/completions", nil)
	w := httptest.NewRecorder()
	gateway.NewChatHandler(gw).ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", w.Code)
	}
}

func TestProviderHeaderOverride(t *testing.T) {
	primary := mockrouting.NewMockProvider("openai", dialect.OpenAI)
	secondary := mockrouting.NewMockProvider("openai-eu", dialect.OpenAI)
	secondary.SetResponse([]byte(`{
		"id": "chatcmpl-eu",
		"object": "chat.completion",
		"model": "gpt-4",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "Hallo"}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 10, "completion_tokens": 2, "total_tokens": 12}
	}`))
	gw, rec := newTestGateway(t, primary, secondary)

	body := `{"model":"gpt-4","messages":[{"role":"user","content":"hi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	req.Header.Set(gateway.ProviderHeader, "openai-eu")
	w := httptest.NewRecorder()
	gateway.NewChatHandler(gw).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if len(primary.Calls) != 0 {
		t.Error("model-prefix provider should be bypassed by the override")
	}
	if len(secondary.Calls) != 1 {
		t.Fatalf("override provider received %d calls, want 1", len(secondary.Calls))
	}
	if rec.logs[0].Provider != "openai-eu" {
		t.Errorf("recorded provider = %q", rec.logs[0].Provider)
	}
}

func TestProviderHeaderOverrideUnknown(t *testing.T) {
	gw, rec := newTestGateway(t, mockrouting.NewMockProvider("openai", dialect.OpenAI))

	body := `{"model":"gpt-4","messages":[{"role":"user","content":"hi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	req.Header.Set(gateway.ProviderHeader, "nope")
	w := httptest.NewRecorder()
	gateway.NewChatHandler(gw).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if got := gjson.Get(w.Body.String(), "error.type").String(); got != "invalid_request_error" {
		t.Errorf("error type = %q", got)
	}
	if len(rec.logs) != 0 {
		t.Error("routing failures should not be recorded, nothing ran upstream")
	}
}

func TestStreamingUpstreamFailureStillTerminates(t *testing.T) {
	upstream := mockrouting.NewMockProvider("openai", dialect.OpenAI)
	upstream.SetStream([]string{
		`{"object":"chat.completion.chunk","model":"gpt-4","choices":[{"index":0,"delta":{"content":"Hel"}}]}`,
	})
	upstream.SetStreamError(errors.New("connection reset by peer"))
	gw, rec := newTestGateway(t, upstream)

	body := `{"model":"gpt-4","stream":true,"messages":[{"role":"user","content":"hi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	w := httptest.NewRecorder()
	gateway.NewChatHandler(gw).ServeHTTP(w, req)

	out := w.Body.String()
	if !strings.Contains(out, `"content":"Hel"`) {
		t.Errorf("delta before the failure should reach the client, got %q", out)
	}
	if !strings.Contains(out, "upstream stream failed") {
		t.Errorf("missing in-band error frame in %q", out)
	}
	if !strings.HasSuffix(strings.TrimSpace(out), "data: [DONE]") {
		t.Errorf("stream must still end with [DONE] after an error frame, got %q", out)
	}

	log := rec.logs[0]
	if log.Success {
		t.Error("upstream failure should record success=false")
	}
	if log.Error == "" {
		t.Error("error message should be recorded")
	}
}

func TestCallLogCarriesCallerContext(t *testing.T) {
	upstream := mockrouting.NewMockProvider("openai", dialect.OpenAI)
	upstream.SetResponse([]byte(`{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"model": "gpt-4",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "ok"}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 5, "completion_tokens": 1, "total_tokens": 6}
	}`))
	gw, rec := newTestGateway(t, upstream)

	body := `{"model":"gpt-4","messages":[{"role":"user","content":"hi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	req.Header.Set(gateway.UserIDHeader, "user-42")
	req.Header.Set(gateway.SessionIDHeader, "sess-7")
	w := httptest.NewRecorder()
	gateway.NewChatHandler(gw).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	log := rec.logs[0]
	if log.UserID != "user-42" || log.SessionID != "sess-7" {
		t.Errorf("user_id=%q session_id=%q", log.UserID, log.SessionID)
	}
}

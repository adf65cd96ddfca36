package providers_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	testhelpers "prismgw/prism/internal/providers"
	"prismgw/prism/pkg/providers"
)

func newTestProvider(t *testing.T, baseURL string, maxRetries int) *providers.HTTPProvider {
	t.Helper()

	config := testhelpers.TestConfigWithURL("test", "openai", baseURL)
	config.MaxRetries = maxRetries

	p, err := providers.NewHTTPProvider(config, nil)
	if err != nil {
		t.Fatalf("NewHTTPProvider: %v", err)
	}
	return p
}

func TestDoCallSuccess(t *testing.T) {
	ms := testhelpers.NewMockServer()
	defer ms.Close()
	ms.SetResponse("/chat/completions", testhelpers.MockResponse{
		StatusCode: http.StatusOK,
		Body:       testhelpers.MockOpenAIResponse("hello", "gpt-4"),
	})

	p := newTestProvider(t, ms.URL(), 0)
	defer p.Close()

	call, err := p.DoCall(context.Background(), "POST", ms.URL()+"/chat/completions", []byte(`{"model":"gpt-4"}`), nil)
	if err != nil {
		t.Fatalf("DoCall: %v", err)
	}

	if call.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", call.StatusCode)
	}
	if len(call.ResponseBody) == 0 {
		t.Error("expected non-empty response body")
	}
	if call.ResponseSize != len(call.ResponseBody) {
		t.Errorf("response size = %d, body length = %d", call.ResponseSize, len(call.ResponseBody))
	}
	if call.Duration <= 0 {
		t.Error("expected positive duration")
	}
	if !p.IsHealthy() {
		t.Error("provider should be healthy after success")
	}
}

func TestDoRequestAuthErrorNoRetry(t *testing.T) {
	ms := testhelpers.NewMockServer()
	defer ms.Close()
	ms.SetResponse("/chat/completions", testhelpers.MockAuthError())

	p := newTestProvider(t, ms.URL(), 3)
	defer p.Close()

	_, err := p.DoRequest(context.Background(), "POST", ms.URL()+"/chat/completions", []byte(`{}`), nil)
	testhelpers.AssertError(t, err)

	var authErr *providers.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %T: %v", err, err)
	}
	if ms.RequestCount() != 1 {
		t.Errorf("auth errors must not be retried, got %d requests", ms.RequestCount())
	}
}

func TestDoRequestServerErrorRetries(t *testing.T) {
	ms := testhelpers.NewMockServer()
	defer ms.Close()
	ms.SetResponse("/chat/completions", testhelpers.MockServerError())

	p := newTestProvider(t, ms.URL(), 1)
	defer p.Close()

	_, err := p.DoRequest(context.Background(), "POST", ms.URL()+"/chat/completions", []byte(`{}`), nil)
	testhelpers.AssertError(t, err)

	var provErr *providers.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected ProviderError, got %T: %v", err, err)
	}
	if provErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", provErr.StatusCode)
	}
	if got := ms.RequestCount(); got != 2 {
		t.Errorf("expected 2 attempts (initial + 1 retry), got %d", got)
	}
}

func TestDoRequestRateLimit(t *testing.T) {
	ms := testhelpers.NewMockServer()
	defer ms.Close()
	ms.SetResponse("/chat/completions", testhelpers.MockRateLimitError(7))

	p := newTestProvider(t, ms.URL(), 0)
	defer p.Close()

	_, err := p.DoRequest(context.Background(), "POST", ms.URL()+"/chat/completions", []byte(`{}`), nil)
	testhelpers.AssertError(t, err)

	var rlErr *providers.RateLimitError
	if !errors.As(err, &rlErr) {
		t.Fatalf("expected RateLimitError, got %T: %v", err, err)
	}
	if rlErr.RetryAfter != 7*time.Second {
		t.Errorf("retry-after = %s, want 7s", rlErr.RetryAfter)
	}
}

func TestDoRequestBadRequestNoRetry(t *testing.T) {
	ms := testhelpers.NewMockServer()
	defer ms.Close()
	ms.SetResponse("/chat/completions", testhelpers.MockErrorResponse(http.StatusBadRequest, "bad request"))

	p := newTestProvider(t, ms.URL(), 3)
	defer p.Close()

	_, err := p.DoRequest(context.Background(), "POST", ms.URL()+"/chat/completions", []byte(`{}`), nil)
	testhelpers.AssertError(t, err)

	if ms.RequestCount() != 1 {
		t.Errorf("client errors must not be retried, got %d requests", ms.RequestCount())
	}
	// A 4xx is the caller's fault and must not count against provider health.
	if !p.IsHealthy() {
		t.Error("provider should stay healthy after a 4xx")
	}
}

func TestHealthTransitions(t *testing.T) {
	ms := testhelpers.NewMockServer()
	defer ms.Close()
	ms.SetResponse("/chat/completions", testhelpers.MockServerError())

	p := newTestProvider(t, ms.URL(), 0)
	defer p.Close()

	ctx := context.Background()
	url := ms.URL() + "/chat/completions"

	// Three consecutive failures flip the provider unhealthy.
	for i := 0; i < 3; i++ {
		_, _ = p.DoRequest(ctx, "POST", url, []byte(`{}`), nil)
	}
	if p.IsHealthy() {
		t.Fatal("provider should be unhealthy after 3 consecutive failures")
	}

	health := p.GetHealth()
	if health.ConsecutiveFailures < 3 {
		t.Errorf("consecutive failures = %d, want >= 3", health.ConsecutiveFailures)
	}

	// A single success restores health.
	ms.SetResponse("/chat/completions", testhelpers.MockResponse{
		StatusCode: http.StatusOK,
		Body:       testhelpers.MockOpenAIResponse("ok", "gpt-4"),
	})
	if _, err := p.DoRequest(ctx, "POST", url, []byte(`{}`), nil); err != nil {
		t.Fatalf("DoRequest: %v", err)
	}
	if !p.IsHealthy() {
		t.Error("provider should recover after a success")
	}
}

package gateway_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	mockrouting "prismgw/prism/internal/routing"
	"prismgw/prism/pkg/calllog"
	"prismgw/prism/pkg/calllog/storage"
	"prismgw/prism/pkg/config"
	"prismgw/prism/pkg/dialect"
	"prismgw/prism/pkg/gateway"
	"prismgw/prism/pkg/providerfactory"
)

func TestHealthHandler(t *testing.T) {
	gw, _ := newTestGateway(t,
		mockrouting.NewMockProvider("openai", dialect.OpenAI),
		mockrouting.NewMockProvider("anthropic", dialect.Anthropic),
	)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	gateway.NewHealthHandler(gw).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	out := w.Body.String()
	if got := gjson.Get(out, "status").String(); got != "ok" {
		t.Errorf("status = %q", got)
	}
	if !gjson.Get(out, "providers.openai.healthy").Bool() {
		t.Error("openai provider should report healthy")
	}
	if !gjson.Get(out, "cache_analysis_enabled").Bool() {
		t.Error("cache analysis should report enabled")
	}
}

func TestHealthHandlerDegraded(t *testing.T) {
	p := mockrouting.NewMockProvider("openai", dialect.OpenAI)
	p.SetHealthy(false)
	gw, _ := newTestGateway(t, p)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	gateway.NewHealthHandler(gw).ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	if got := gjson.Get(w.Body.String(), "status").String(); got != "degraded" {
		t.Errorf("status = %q", got)
	}
}

func TestModelsHandler(t *testing.T) {
	gw, _ := newTestGateway(t,
		mockrouting.NewMockProvider("openai", dialect.OpenAI),
		mockrouting.NewMockProvider("anthropic", dialect.Anthropic),
	)

	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	w := httptest.NewRecorder()
	gateway.NewModelsHandler(gw).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	out := w.Body.String()
	if got := gjson.Get(out, "object").String(); got != "list" {
		t.Errorf("object = %q", got)
	}

	ids := map[string]bool{}
	for _, m := range gjson.Get(out, "data.#.id").Array() {
		ids[m.String()] = true
	}
	if !ids["gpt-4"] || !ids["claude-3-haiku-20240307"] {
		t.Errorf("model list missing expected entries: %v", ids)
	}
}

func TestStatsHandler(t *testing.T) {
	store := storage.NewMemoryStorage()
	ttft := int64(150)
	hit := 0.4
	err := store.Store(context.Background(), &calllog.CallLog{
		ID:                    "s1",
		Timestamp:             time.Now(),
		Provider:              "openai",
		Model:                 "gpt-4",
		Success:               true,
		Streaming:             true,
		TTFTMs:                &ttft,
		EstimatedCacheHitRate: 0.3,
		ActualCacheHitRate:    &hit,
		TotalLatencyMs:        900,
	})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	manager := providerfactory.NewManager()
	manager.Register(mockrouting.NewMockProvider("openai", dialect.OpenAI))
	gw := gateway.New(gateway.Options{
		Manager: manager,
		Storage: store,
		Analysis: config.AnalysisConfig{
			EnableCacheEstimation:  true,
			CacheAccuracyThreshold: 0.15,
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/prism/stats?days=7&limit=5", nil)
	w := httptest.NewRecorder()
	gateway.NewStatsHandler(gw).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	out := w.Body.String()
	if got := gjson.Get(out, "database.total_calls").Int(); got != 1 {
		t.Errorf("total_calls = %d", got)
	}
	if got := gjson.Get(out, "recent_logs.#").Int(); got != 1 {
		t.Errorf("recent_logs = %d entries", got)
	}
	if got := gjson.Get(out, "cache_analysis.total_predictions").Int(); got != 1 {
		t.Errorf("total_predictions = %d", got)
	}
	if got := gjson.Get(out, "performance.#").Int(); got != 1 {
		t.Errorf("performance rows = %d", got)
	}
}

func TestStatsHandlerWithoutStorage(t *testing.T) {
	gw, _ := newTestGateway(t, mockrouting.NewMockProvider("openai", dialect.OpenAI))

	req := httptest.NewRequest(http.MethodGet, "/prism/stats", nil)
	w := httptest.NewRecorder()
	gateway.NewStatsHandler(gw).ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

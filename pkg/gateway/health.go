package gateway

import (
	"net/http"
	"time"

	"prismgw/prism/pkg/dialect"
)

// HealthHandler serves GET /health with per-provider health and the
// enabled feature set.
type HealthHandler struct {
	gw *Gateway
}

// NewHealthHandler creates the health handler.
func NewHealthHandler(gw *Gateway) *HealthHandler {
	return &HealthHandler{gw: gw}
}

// ServeHTTP implements http.Handler.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeDialectError(w, dialect.OpenAI, http.StatusMethodNotAllowed, "invalid_request_error",
			"method not allowed, use GET")
		return
	}

	snapshot := h.gw.manager.HealthSnapshot()

	status := "ok"
	if len(snapshot) == 0 {
		status = "degraded"
	} else {
		healthy := 0
		for _, ph := range snapshot {
			if ph.Healthy {
				healthy++
			}
		}
		if healthy == 0 {
			status = "degraded"
		}
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}

	_ = writeJSON(w, code, map[string]any{
		"status":                 status,
		"timestamp":              time.Now().UTC().Format(time.RFC3339),
		"providers":              snapshot,
		"proxy_enabled":          h.gw.proxyOn,
		"logging_enabled":        h.gw.recorder != nil,
		"cache_analysis_enabled": h.gw.estimator != nil,
	})
}

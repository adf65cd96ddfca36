package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"prismgw/prism/pkg/dialect"
	"prismgw/prism/pkg/providers"
	"prismgw/prism/pkg/routing"
)

// maxRequestBody caps inbound request bodies at 10 MB.
const maxRequestBody = 10 << 20

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// writeRaw writes a pre-encoded JSON body with the given status.
func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

// writeDialectError writes an error response in the client's dialect, so
// OpenAI SDKs and Anthropic SDKs each see the error shape they parse.
func writeDialectError(w http.ResponseWriter, client dialect.Dialect, status int, errType, message string) {
	var body any
	switch client {
	case dialect.Anthropic:
		body = map[string]any{
			"type": "error",
			"error": map[string]any{
				"type":    errType,
				"message": message,
			},
		}
	default:
		body = map[string]any{
			"error": map[string]any{
				"message": message,
				"type":    errType,
			},
		}
	}
	_ = writeJSON(w, status, body)
}

// mapUpstreamError maps a provider-layer error to an HTTP status and an
// error type string usable in both dialects' error shapes.
func mapUpstreamError(err error) (int, string) {
	var authErr *providers.AuthError
	var rateErr *providers.RateLimitError
	var timeoutErr *providers.TimeoutError
	var provErr *providers.ProviderError
	var noProvider *routing.NoProviderError

	switch {
	case errors.As(err, &authErr):
		return http.StatusUnauthorized, "authentication_error"
	case errors.As(err, &rateErr):
		return http.StatusTooManyRequests, "rate_limit_error"
	case errors.As(err, &timeoutErr):
		return http.StatusGatewayTimeout, "timeout_error"
	case errors.As(err, &noProvider):
		// A routing failure is the caller's problem: the model (or an
		// explicit provider override) names something not configured.
		return http.StatusBadRequest, "invalid_request_error"
	case errors.As(err, &provErr):
		if provErr.StatusCode >= 400 && provErr.StatusCode < 500 {
			return provErr.StatusCode, "invalid_request_error"
		}
		return http.StatusBadGateway, "api_error"
	default:
		return http.StatusBadGateway, "api_error"
	}
}

// setSSEHeaders prepares the response for server-sent events.
func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// writeSSEFrame writes one SSE data frame and flushes it to the client.
func writeSSEFrame(w http.ResponseWriter, flusher http.Flusher, data string) error {
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

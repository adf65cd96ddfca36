package gateway

import (
	"net/http"

	"prismgw/prism/pkg/dialect"
)

// ChatHandler serves /v1/chat/completions, the OpenAI-dialect entrypoint.
type ChatHandler struct {
	gw *Gateway
}

// NewChatHandler creates the chat completions handler.
func NewChatHandler(gw *Gateway) *ChatHandler {
	return &ChatHandler{gw: gw}
}

// ServeHTTP implements http.Handler.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.gw.completion(dialect.OpenAI, "/v1/chat/completions", w, r)
}

package gateway

import (
	"net/http"

	"prismgw/prism/pkg/dialect"
)

// MessagesHandler serves /v1/messages, the Anthropic-dialect entrypoint.
type MessagesHandler struct {
	gw *Gateway
}

// NewMessagesHandler creates the messages handler.
func NewMessagesHandler(gw *Gateway) *MessagesHandler {
	return &MessagesHandler{gw: gw}
}

// ServeHTTP implements http.Handler.
func (h *MessagesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.gw.completion(dialect.Anthropic, "/v1/messages", w, r)
}

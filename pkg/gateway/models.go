package gateway

import (
	"net/http"
	"time"

	"prismgw/prism/pkg/dialect"
)

// dialectModels lists the well-known models served by each dialect, used
// to synthesize /v1/models from the configured providers.
var dialectModels = map[dialect.Dialect][]string{
	dialect.OpenAI: {
		"gpt-4o",
		"gpt-4o-mini",
		"gpt-4-turbo",
		"gpt-4",
		"gpt-3.5-turbo",
	},
	dialect.Anthropic: {
		"claude-3-5-sonnet-20241022",
		"claude-3-5-haiku-20241022",
		"claude-3-opus-20240229",
		"claude-3-haiku-20240307",
	},
}

type modelEntry struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

type modelList struct {
	Object string       `json:"object"`
	Data   []modelEntry `json:"data"`
}

// ModelsHandler serves GET /v1/models, synthesizing the model list from
// the dialects of the configured providers.
type ModelsHandler struct {
	gw *Gateway
}

// NewModelsHandler creates the models handler.
func NewModelsHandler(gw *Gateway) *ModelsHandler {
	return &ModelsHandler{gw: gw}
}

// ServeHTTP implements http.Handler.
func (h *ModelsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeDialectError(w, dialect.OpenAI, http.StatusMethodNotAllowed, "invalid_request_error",
			"method not allowed, use GET")
		return
	}

	now := time.Now().Unix()
	list := modelList{Object: "list"}

	seen := make(map[string]struct{})
	for _, p := range h.gw.manager.All() {
		for _, id := range dialectModels[p.Dialect()] {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			list.Data = append(list.Data, modelEntry{
				ID:      id,
				Object:  "model",
				Created: now,
				OwnedBy: p.GetName(),
			})
		}
	}

	_ = writeJSON(w, http.StatusOK, list)
}

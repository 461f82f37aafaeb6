package handlers

import (
	"net/http"
	"time"

	"github.com/igamenovoer/my-litellm-proxy/pkg/proxy"
	"github.com/igamenovoer/my-litellm-proxy/pkg/proxy/types"
	"github.com/igamenovoer/my-litellm-proxy/pkg/security/auth"
)

// ModelLister lists the model names clients may request.
type ModelLister interface {
	ModelNames() []string
}

// ModelsHandler serves GET /v1/models. Keys restricted to some models only
// see those.
type ModelsHandler struct {
	Models  ModelLister
	created int64
}

// NewModelsHandler creates the model list handler.
func NewModelsHandler(models ModelLister) *ModelsHandler {
	return &ModelsHandler{Models: models, created: time.Now().Unix()}
}

// ServeHTTP implements http.Handler.
func (h *ModelsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	info, _ := auth.GetKeyInfo(r.Context())

	list := types.ModelList{Object: "list", Data: []types.Model{}}
	for _, name := range h.Models.ModelNames() {
		if !info.AllowsModel(name) {
			continue
		}
		list.Data = append(list.Data, types.Model{
			ID:      name,
			Object:  "model",
			Created: h.created,
			OwnedBy: "llmproxy",
		})
	}

	_ = proxy.WriteJSONResponse(w, http.StatusOK, list)
}

package persona

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/expert-panel/backend/internal/model/persona"
	"github.com/zhouzirui/expert-panel/backend/pkg/utils"
)

// Handler lists the expert registry.
type Handler struct {
	personas persona.Store
}

func New(personas persona.Store) *Handler {
	return &Handler{personas: personas}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/experts", h.handleListExperts)
}

// handleListExperts returns every persona; prompt templates are never serialised.
func (h *Handler) handleListExperts(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{"experts": h.personas.List()})
}

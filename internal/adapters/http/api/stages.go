package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// StageDependencies defines the dependencies needed by stage handlers.
type StageDependencies interface {
	SelectStage(ctx context.Context, stageID string) error
}

// StagesHandler handles stage selection.
type StagesHandler struct {
	deps StageDependencies
}

// NewStagesHandler creates a new stages handler.
func NewStagesHandler(deps StageDependencies) *StagesHandler {
	return &StagesHandler{deps: deps}
}

// HandleSelect handles POST /stages/{id}/select requests.
func (h *StagesHandler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.SelectStage(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeFailure(w, r, "select stage", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/domain/types"
)

// ScoreDependencies defines the dependencies needed by score handlers.
type ScoreDependencies interface {
	Records() []types.Record
	Record(id string) (types.Record, error)
	ValidationErrors() []types.ValidationIssue
	Create(ctx context.Context, raw model.RawScore) (types.Record, error)
	Update(ctx context.Context, id string, raw model.RawScore) (types.Record, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context)
	Load(ctx context.Context) (types.LoadSummary, error)
	Save(ctx context.Context) error
}

// mutationResponse is returned when a local change was applied. SyncError is
// set when the change could not be forwarded to the sync channel.
type mutationResponse struct {
	Record    *types.Record `json:"record,omitempty"`
	SyncError string        `json:"syncError,omitempty"`
}

// ScoresHandler handles score CRUD and persistence requests.
type ScoresHandler struct {
	deps ScoreDependencies
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(deps ScoreDependencies) *ScoresHandler {
	return &ScoresHandler{deps: deps}
}

// HandleList handles GET /scores requests.
func (h *ScoresHandler) HandleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Records())
}

// HandleGet handles GET /scores/{id} requests.
func (h *ScoresHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := h.deps.Record(chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, r, "get score", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// HandleCreate handles POST /scores requests.
func (h *ScoresHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	raw, err := decodeScore(r)
	if err != nil {
		writeFailure(w, r, "create score", err)
		return
	}
	rec, err := h.deps.Create(r.Context(), raw)
	writeMutation(w, http.StatusCreated, &rec, err)
}

// HandleUpdate handles PUT /scores/{id} requests.
func (h *ScoresHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	raw, err := decodeScore(r)
	if err != nil {
		writeFailure(w, r, "update score", err)
		return
	}
	rec, err := h.deps.Update(r.Context(), chi.URLParam(r, "id"), raw)
	writeMutation(w, http.StatusOK, &rec, err)
}

// HandleDelete handles DELETE /scores/{id} requests.
func (h *ScoresHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	err := h.deps.Delete(r.Context(), chi.URLParam(r, "id"))
	writeMutation(w, http.StatusOK, nil, err)
}

// HandleClear handles DELETE /scores requests.
func (h *ScoresHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	h.deps.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// HandleLoad handles POST /scores/load requests.
func (h *ScoresHandler) HandleLoad(w http.ResponseWriter, r *http.Request) {
	summary, err := h.deps.Load(r.Context())
	if err != nil {
		writeFailure(w, r, "load scores", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// HandleSave handles POST /scores/save requests.
func (h *ScoresHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Save(r.Context()); err != nil {
		writeFailure(w, r, "save scores", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleValidationErrors handles GET /validation-errors requests.
func (h *ScoresHandler) HandleValidationErrors(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.ValidationErrors())
}

// writeMutation reports a local change. The change is applied even when
// forwarding failed, so that case answers 202 with the sync error attached.
func writeMutation(w http.ResponseWriter, status int, rec *types.Record, err error) {
	resp := mutationResponse{Record: rec}
	if err != nil {
		resp.SyncError = err.Error()
		status = http.StatusAccepted
	}
	writeJSON(w, status, resp)
}

// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/scoreboard/internal/adapters/mq/intent"
	"github.com/okian/scoreboard/internal/adapters/repository"
	"github.com/okian/scoreboard/internal/adapters/storage"
	service "github.com/okian/scoreboard/internal/app"
	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/domain/types"
	"github.com/okian/scoreboard/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ScoreboardDependencies
	ScoreDependencies
	StageDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	scoreboardHandler *ScoreboardHandler
	scoresHandler     *ScoresHandler
	stagesHandler     *StagesHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
		scoreboardHandler: NewScoreboardHandler(deps),
		scoresHandler:     NewScoresHandler(deps),
		stagesHandler:     NewStagesHandler(deps),
	}
}

// Register attaches all HTTP routes to r. Middlewares are scoped to an
// inline group so r may already carry other routes.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(MetricsMiddleware)

		r.Get("/healthz", s.healthHandler.HandleHealth)
		r.Get("/stats", s.statsHandler.HandleStats)

		r.Get("/scoreboard", s.scoreboardHandler.HandleGetScoreboard)
		r.Get("/validation-errors", s.scoresHandler.HandleValidationErrors)

		r.Route("/scores", func(r chi.Router) {
			r.Get("/", s.scoresHandler.HandleList)
			r.Post("/", s.scoresHandler.HandleCreate)
			r.Delete("/", s.scoresHandler.HandleClear)
			r.Post("/load", s.scoresHandler.HandleLoad)
			r.Post("/save", s.scoresHandler.HandleSave)
			r.Get("/{id}", s.scoresHandler.HandleGet)
			r.Put("/{id}", s.scoresHandler.HandleUpdate)
			r.Delete("/{id}", s.scoresHandler.HandleDelete)
		})

		r.Post("/stages/{id}/select", s.stagesHandler.HandleSelect)
	})

	r.Handle("/metrics", s.healthHandler.MetricsHandler())
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps an upstream error to its HTTP status.
func writeFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Get().Error(r.Context(), "request failed",
			logger.String("op", op),
			logger.String("request_id", middleware.GetReqID(r.Context())),
			logger.Error(err))
	}
	writeError(w, status, code, fmt.Errorf("%s: %w", op, err))
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, repository.ErrInvalidFilter), errors.Is(err, service.ErrNoScoreFile):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, service.ErrUnknownStage):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, intent.ErrRejected):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "not_started"
	case errors.Is(err, storage.ErrLoad), errors.Is(err, storage.ErrSave):
		return http.StatusInternalServerError, "storage_error"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusBadGateway, "sync_error"
	}
}

// decodeScore reads a score from the request body. Keys of the wrong type
// are classified by validation; only malformed JSON is a bad request.
func decodeScore(r *http.Request) (model.RawScore, error) {
	b, err := io.ReadAll(r.Body)
	if err != nil {
		return model.RawScore{}, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	s, err := types.DecodeScore(b)
	if err != nil {
		return model.RawScore{}, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return s.Raw(), nil
}

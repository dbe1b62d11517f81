package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/scoreboard/internal/domain/types"
)

// roundParamPrefix marks query parameters limiting a stage to its first
// rounds, e.g. ?round.final=2.
const roundParamPrefix = "round."

// ScoreboardDependencies defines the dependencies needed by scoreboard handlers.
type ScoreboardDependencies interface {
	Scoreboard() types.Scoreboard
	Rankings(filter map[string]int) (types.Scoreboard, error)
}

// ScoreboardHandler serves leaderboards.
type ScoreboardHandler struct {
	deps ScoreboardDependencies
}

// NewScoreboardHandler creates a new scoreboard handler.
func NewScoreboardHandler(deps ScoreboardDependencies) *ScoreboardHandler {
	return &ScoreboardHandler{deps: deps}
}

// HandleGetScoreboard handles GET /scoreboard requests.
func (h *ScoreboardHandler) HandleGetScoreboard(w http.ResponseWriter, r *http.Request) {
	filter, err := parseRoundFilter(r)
	if err != nil {
		writeFailure(w, r, "scoreboard", err)
		return
	}
	if len(filter) == 0 {
		writeJSON(w, http.StatusOK, h.deps.Scoreboard())
		return
	}
	board, err := h.deps.Rankings(filter)
	if err != nil {
		writeFailure(w, r, "scoreboard", err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func parseRoundFilter(r *http.Request) (map[string]int, error) {
	filter := map[string]int{}
	for key, values := range r.URL.Query() {
		stageID, ok := strings.CutPrefix(key, roundParamPrefix)
		if !ok {
			continue
		}
		if stageID == "" || len(values) != 1 {
			return nil, fmt.Errorf("%w: invalid parameter %q", ErrBadRequest, key)
		}
		n, err := strconv.Atoi(values[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be an integer", ErrBadRequest, key)
		}
		filter[stageID] = n
	}
	return filter, nil
}

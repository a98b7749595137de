package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mcoot/pongarena/internal/api/response"
	"github.com/mcoot/pongarena/internal/model"
	"github.com/mcoot/pongarena/internal/services/results"
)

// ResultsHandler serves the leaderboard and match history
type ResultsHandler struct {
	results *results.Service
}

// NewResultsHandler creates a new results handler
func NewResultsHandler(rs *results.Service) *ResultsHandler {
	return &ResultsHandler{
		results: rs,
	}
}

// Leaderboard handles GET /api/v1/leaderboard
func (h *ResultsHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	entries, err := h.results.Leaderboard(r.Context(), limit)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.OK(w, response.LeaderboardResponse{Entries: entries})
}

// History handles GET /api/v1/players/{id}/matches
func (h *ResultsHandler) History(w http.ResponseWriter, r *http.Request) {
	playerID := model.PlayerID(mux.Vars(r)["id"])

	limit, err := parseLimit(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	history, err := h.results.History(r.Context(), playerID, limit)
	if err != nil {
		WriteError(w, err)
		return
	}

	matches := make([]response.MatchResult, 0, len(history))
	for _, result := range history {
		matches = append(matches, response.MatchResultFromModel(result, playerID))
	}

	response.OK(w, response.MatchHistoryResponse{
		PlayerID: string(playerID),
		Matches:  matches,
	})
}

// parseLimit reads the optional ?limit= query parameter. Zero means the service default.
func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, NewInvalidRequestError("limit must be a non-negative integer")
	}
	return limit, nil
}

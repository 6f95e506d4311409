package handler

import (
	"net/http"

	"github.com/chessarena/platform/internal/domain"
	"github.com/chessarena/platform/internal/rating"
)

// LeaderboardHandler serves the cached agent rating leaderboard.
type LeaderboardHandler struct {
	leaderboard *rating.Leaderboard
}

// NewLeaderboardHandler creates a new LeaderboardHandler.
func NewLeaderboardHandler(lb *rating.Leaderboard) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboard: lb}
}

// Get handles GET /leaderboard.
func (h *LeaderboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	ratings, err := h.leaderboard.Top(r.Context(), queryLimit(r, 20))
	if err != nil {
		RespondError(w, domain.ErrInternal("leaderboard", err))
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{"leaderboard": ratings})
}

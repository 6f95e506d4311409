package handler

import (
	"net/http"
	"time"

	"github.com/chessarena/platform/internal/domain"
	"github.com/chessarena/platform/internal/orchestrator"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// TournamentHandler handles tournament creation and progress queries.
type TournamentHandler struct {
	manager *orchestrator.TournamentManager
}

// NewTournamentHandler creates a new TournamentHandler.
func NewTournamentHandler(m *orchestrator.TournamentManager) *TournamentHandler {
	return &TournamentHandler{manager: m}
}

// createTournamentRequest is the shape of POST /tournaments.
type createTournamentRequest struct {
	Agents      []string `json:"agents"`
	MoveDelayMs int      `json:"move_delay_ms"`
}

// Create handles POST /tournaments: starts a round-robin run.
func (h *TournamentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTournamentRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}

	id, err := h.manager.Start(r.Context(), req.Agents,
		time.Duration(req.MoveDelayMs)*time.Millisecond)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, map[string]string{"tournament_id": id.String()})
}

// Get handles GET /tournaments/{tournamentID}: standings and progress.
func (h *TournamentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "tournamentID"))
	if err != nil {
		RespondError(w, domain.ErrValidation("malformed tournament id"))
		return
	}

	t, err := h.manager.Get(id)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, t)
}

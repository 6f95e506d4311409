package handler

import (
	"net/http"
	"time"

	"github.com/chessarena/platform/internal/domain"
	"github.com/chessarena/platform/internal/engine"
	"github.com/chessarena/platform/internal/orchestrator"
	"github.com/chessarena/platform/internal/repository"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// MatchHandler handles match lifecycle and engine passthrough endpoints.
type MatchHandler struct {
	orch     *orchestrator.Orchestrator
	registry orchestrator.Registry
	matches  repository.MatchRepository
	engine   *engine.Client
	db       repository.DBTX
}

// NewMatchHandler creates a new MatchHandler.
func NewMatchHandler(
	orch *orchestrator.Orchestrator,
	registry orchestrator.Registry,
	matches repository.MatchRepository,
	eng *engine.Client,
	db repository.DBTX,
) *MatchHandler {
	return &MatchHandler{orch: orch, registry: registry, matches: matches, engine: eng, db: db}
}

// createMatchRequest is the shape of POST /matches.
type createMatchRequest struct {
	White       string `json:"white"`
	Black       string `json:"black"`
	MoveDelayMs int    `json:"move_delay_ms"`
}

// Create handles POST /matches: starts a new agent-vs-agent match.
func (h *MatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createMatchRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}

	matchID, err := h.orch.Start(r.Context(), req.White, req.Black,
		time.Duration(req.MoveDelayMs)*time.Millisecond)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusCreated, map[string]string{"match_id": matchID.String()})
}

// List handles GET /matches: completed matches, newest first.
func (h *MatchHandler) List(w http.ResponseWriter, r *http.Request) {
	matches, err := h.matches.ListCompleted(r.Context(), h.db, queryLimit(r, 20))
	if err != nil {
		RespondError(w, domain.ErrInternal("list matches", err))
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{"matches": matches})
}

// Get handles GET /matches/{matchID}: live or historical match state.
func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	matchID, err := matchIDParam(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	match, err := h.matches.FindByID(r.Context(), h.db, matchID)
	if err != nil {
		RespondError(w, domain.ErrInternal("find match", err))
		return
	}
	if match == nil {
		RespondError(w, domain.ErrNotFound("match", matchID.String()))
		return
	}

	_, live := h.registry.Get(matchID)
	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"match": match,
		"live":  live,
	})
}

// validateMoveRequest is the shape of POST /matches/{matchID}/validate.
type validateMoveRequest struct {
	Move string `json:"move"`
}

// ValidateMove handles POST /matches/{matchID}/validate: a what-if legality
// check against the live position, passed through to the engine.
func (h *MatchHandler) ValidateMove(w http.ResponseWriter, r *http.Request) {
	entry, err := h.liveEntry(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var req validateMoveRequest
	if err := DecodeJSON(r, &req); err != nil || req.Move == "" {
		RespondError(w, domain.ErrValidation("move is required"))
		return
	}

	v, err := h.engine.ValidateMove(r.Context(), entry.GameID, req.Move)
	if err != nil {
		RespondError(w, domain.ErrEngineFailure("validate move", err))
		return
	}
	RespondJSON(w, http.StatusOK, v)
}

// Analysis handles GET /matches/{matchID}/analysis: the engine's evaluation
// of the live position.
func (h *MatchHandler) Analysis(w http.ResponseWriter, r *http.Request) {
	entry, err := h.liveEntry(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	blob, err := h.engine.Analyze(r.Context(), entry.GameID)
	if err != nil {
		RespondError(w, domain.ErrEngineFailure("analyze", err))
		return
	}
	RespondJSON(w, http.StatusOK, blob)
}

// Agents handles GET /agents: the engine's registered agent roster.
func (h *MatchHandler) Agents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.engine.Agents(r.Context())
	if err != nil {
		RespondError(w, domain.ErrEngineFailure("list agents", err))
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{"agents": agents})
}

// liveEntry resolves the {matchID} route param to a live registry entry.
func (h *MatchHandler) liveEntry(r *http.Request) (*orchestrator.Entry, error) {
	matchID, err := matchIDParam(r)
	if err != nil {
		return nil, err
	}
	entry, ok := h.registry.Get(matchID)
	if !ok {
		return nil, domain.ErrConflict("match is not live")
	}
	return entry, nil
}

// matchIDParam parses the {matchID} chi route parameter.
func matchIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "matchID"))
	if err != nil {
		return uuid.Nil, domain.ErrValidation("malformed match id")
	}
	return id, nil
}

package handler

import (
	"net/http"

	"github.com/chessarena/platform/internal/betting"
	"github.com/chessarena/platform/internal/domain"
	"github.com/chessarena/platform/internal/guard"
	"github.com/google/uuid"
)

// IdempotencyKeyHeader deduplicates retried bet placements.
const IdempotencyKeyHeader = "Idempotency-Key"

// BettingHandler handles market quotes and bet placement.
type BettingHandler struct {
	engine  *betting.Engine
	limiter *guard.RateLimiter
	idem    *guard.IdempotencyGuard
}

// NewBettingHandler creates a new BettingHandler.
func NewBettingHandler(engine *betting.Engine, limiter *guard.RateLimiter, idem *guard.IdempotencyGuard) *BettingHandler {
	return &BettingHandler{engine: engine, limiter: limiter, idem: idem}
}

// GetOdds handles GET /matches/{matchID}/odds: the three-market quote.
func (h *BettingHandler) GetOdds(w http.ResponseWriter, r *http.Request) {
	matchID, err := matchIDParam(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	quotes, err := h.engine.Quote(r.Context(), matchID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, quotes)
}

// placeBetRequest is the shape of POST /bets.
type placeBetRequest struct {
	MatchID   string `json:"match_id"`
	Market    string `json:"market"`
	Selection string `json:"selection"`
	Stake     int64  `json:"stake"`
}

// PlaceBet handles POST /bets.
func (h *BettingHandler) PlaceBet(w http.ResponseWriter, r *http.Request) {
	walletID, err := walletIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	if res := h.limiter.Check(r.Context(), walletID.String()); !res.Allowed {
		RespondError(w, domain.ErrRateLimited(res.Reason))
		return
	}

	idemKey := r.Header.Get(IdempotencyKeyHeader)
	if res := h.idem.Check(r.Context(), idemKey); !res.Allowed {
		RespondError(w, domain.ErrConflict(res.Reason))
		return
	}

	var req placeBetRequest
	if err := DecodeJSON(r, &req); err != nil {
		h.idem.Remove(idemKey)
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	matchID, err := uuid.Parse(req.MatchID)
	if err != nil {
		h.idem.Remove(idemKey)
		RespondError(w, domain.ErrValidation("malformed match id"))
		return
	}

	bet, err := h.engine.Place(r.Context(), walletID, matchID,
		domain.MarketType(req.Market), req.Selection, req.Stake)
	if err != nil {
		// A failed placement staked nothing, so the key may be retried.
		h.idem.Remove(idemKey)
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, bet)
}

// betListResponse wraps a list of bets.
type betListResponse struct {
	Bets []domain.Bet `json:"bets"`
}

// MyBets handles GET /bets for the session wallet, newest first.
func (h *BettingHandler) MyBets(w http.ResponseWriter, r *http.Request) {
	walletID, err := walletIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	bets, err := h.engine.ListByWallet(r.Context(), walletID, queryLimit(r, 50))
	if err != nil {
		RespondError(w, domain.ErrInternal("list bets", err))
		return
	}
	RespondJSON(w, http.StatusOK, betListResponse{Bets: bets})
}

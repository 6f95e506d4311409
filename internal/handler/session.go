package handler

import (
	"context"
	"net/http"

	"github.com/chessarena/platform/internal/domain"
	"github.com/chessarena/platform/internal/ledger"
	"github.com/chessarena/platform/internal/repository"
	"github.com/google/uuid"
)

// SessionTokenHeader carries the opaque session token, which is the wallet ID.
const SessionTokenHeader = "X-Session-Token"

const walletIDKey contextKeyType = "wallet_id"

// SessionHandler creates spectator sessions.
type SessionHandler struct {
	ledger *ledger.Engine
	db     repository.DBTX
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(ldg *ledger.Engine, db repository.DBTX) *SessionHandler {
	return &SessionHandler{ledger: ldg, db: db}
}

// sessionResponse is the shape of POST /session.
type sessionResponse struct {
	Token   string `json:"token"`
	Balance int64  `json:"balance"`
}

// Create handles POST /session: a new wallet carrying the initial grant. The
// wallet ID is the session token; there are no user accounts.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	wallet, err := h.ledger.CreateWallet(r.Context(), h.db)
	if err != nil {
		RespondError(w, domain.ErrInternal("create wallet", err))
		return
	}
	RespondJSON(w, http.StatusCreated, sessionResponse{
		Token:   wallet.ID.String(),
		Balance: wallet.Balance,
	})
}

// RequireSession resolves the X-Session-Token header to an existing wallet
// and stores its ID in the request context.
func RequireSession(wallets repository.WalletRepository, db repository.DBTX) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(SessionTokenHeader)
			if token == "" {
				RespondError(w, domain.ErrValidation("missing "+SessionTokenHeader+" header"))
				return
			}
			id, err := uuid.Parse(token)
			if err != nil {
				RespondError(w, domain.ErrValidation("malformed session token"))
				return
			}
			wallet, err := wallets.FindByID(r.Context(), db, id)
			if err != nil {
				RespondError(w, domain.ErrInternal("find wallet", err))
				return
			}
			if wallet == nil {
				RespondError(w, domain.ErrNotFound("session", token))
				return
			}
			ctx := context.WithValue(r.Context(), walletIDKey, wallet.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// walletIDFromContext extracts the session wallet ID set by RequireSession.
func walletIDFromContext(r *http.Request) (uuid.UUID, error) {
	id, ok := r.Context().Value(walletIDKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, domain.ErrValidation("no session in context")
	}
	return id, nil
}

package handler

import (
	"net/http"
	"strconv"

	"github.com/chessarena/platform/internal/domain"
	"github.com/chessarena/platform/internal/repository"
)

// WalletHandler handles wallet balance and transaction endpoints.
type WalletHandler struct {
	wallets      repository.WalletRepository
	transactions repository.TransactionRepository
	db           repository.DBTX
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(wallets repository.WalletRepository, transactions repository.TransactionRepository, db repository.DBTX) *WalletHandler {
	return &WalletHandler{wallets: wallets, transactions: transactions, db: db}
}

// balanceResponse is the shape of GET /wallet/balance.
type balanceResponse struct {
	WalletID string `json:"wallet_id"`
	Balance  int64  `json:"balance"`
}

// GetBalance handles GET /wallet/balance.
func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	walletID, err := walletIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	wallet, err := h.wallets.FindByID(r.Context(), h.db, walletID)
	if err != nil {
		RespondError(w, domain.ErrInternal("find wallet", err))
		return
	}
	if wallet == nil {
		RespondError(w, domain.ErrNotFound("wallet", walletID.String()))
		return
	}

	RespondJSON(w, http.StatusOK, balanceResponse{
		WalletID: wallet.ID.String(),
		Balance:  wallet.Balance,
	})
}

// txListResponse wraps a list of transactions.
type txListResponse struct {
	Transactions []domain.Transaction `json:"transactions"`
}

// GetTransactions handles GET /wallet/transactions, newest first.
func (h *WalletHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	walletID, err := walletIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	txs, err := h.transactions.ListByWallet(r.Context(), h.db, walletID, queryLimit(r, 50))
	if err != nil {
		RespondError(w, domain.ErrInternal("list transactions", err))
		return
	}

	RespondJSON(w, http.StatusOK, txListResponse{Transactions: txs})
}

// queryLimit parses ?limit= with a default, capped at 100.
func queryLimit(r *http.Request, def int) int {
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 100 {
			return n
		}
	}
	return def
}

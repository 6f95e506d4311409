package domain

import (
	"time"

	"github.com/google/uuid"
)

// InitialGrant is the virtual-currency balance every new wallet starts with.
// The ledger invariant is: balance == InitialGrant + sum of all transaction
// amounts for the wallet.
const InitialGrant int64 = 1000

// Wallet is a per-session virtual-currency account. The wallet ID doubles as
// the opaque session token.
type Wallet struct {
	ID        uuid.UUID `json:"id"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TransactionType enumerates all wallet transaction types.
type TransactionType string

const (
	TxBetStake  TransactionType = "bet_stake"  // debit at bet placement
	TxBetPayout TransactionType = "bet_payout" // credit at settlement
	TxBetRefund TransactionType = "bet_refund" // credit when a match is voided
)

// Transaction is an append-only ledger entry. Amount is signed: negative for
// debits, positive for credits.
type Transaction struct {
	ID           uuid.UUID       `json:"id"`
	WalletID     uuid.UUID       `json:"wallet_id"`
	Type         TransactionType `json:"type"`
	Amount       int64           `json:"amount"`
	BalanceAfter int64           `json:"balance_after"`
	BetID        *uuid.UUID      `json:"bet_id,omitempty"`
	MatchID      *uuid.UUID      `json:"match_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

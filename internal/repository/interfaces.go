package repository

import (
	"context"

	"github.com/chessarena/platform/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// WalletRepository provides access to wallets.
type WalletRepository interface {
	// Create inserts a new wallet carrying the initial grant.
	Create(ctx context.Context, db DBTX, wallet *domain.Wallet) error

	// FindByID returns a wallet by ID, or nil if absent.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Wallet, error)

	// LockForUpdate acquires a row-level lock (SELECT FOR UPDATE) and returns the wallet.
	LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error)

	// ApplyDelta atomically adjusts the balance using server-side arithmetic
	// and returns the updated wallet. Must run under LockForUpdate.
	ApplyDelta(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int64) (*domain.Wallet, error)
}

// TransactionRepository provides access to the append-only wallet ledger.
type TransactionRepository interface {
	// Insert creates a new ledger entry. Returns the inserted row.
	Insert(ctx context.Context, db DBTX, tx *domain.Transaction) (*domain.Transaction, error)

	// ListByWallet returns transactions for a wallet, newest first.
	ListByWallet(ctx context.Context, db DBTX, walletID uuid.UUID, limit int) ([]domain.Transaction, error)

	// SumByWallet returns the sum of signed amounts for a wallet. Used to
	// audit the balance invariant.
	SumByWallet(ctx context.Context, db DBTX, walletID uuid.UUID) (int64, error)
}

// MatchRepository provides access to match records.
type MatchRepository interface {
	// Insert durably records a new match before its loop starts.
	Insert(ctx context.Context, db DBTX, match *domain.Match) error

	// FindByID returns a match by ID, or nil if absent.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Match, error)

	// AppendMove appends one move and updates the stored position.
	AppendMove(ctx context.Context, db DBTX, id uuid.UUID, move domain.Move, position string) error

	// SetResult finalizes the match. The guard `WHERE result IS NULL` makes
	// finalization a one-shot transition.
	SetResult(ctx context.Context, db DBTX, id uuid.UUID, result domain.MatchResult, position string) error

	// LockOpen re-reads the match's result under a share lock. Returns false
	// when the match is absent or already finalized.
	LockOpen(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error)

	// ListCompleted returns finished matches, newest first.
	ListCompleted(ctx context.Context, db DBTX, limit int) ([]domain.Match, error)
}

// BetRepository provides access to bets.
type BetRepository interface {
	// Insert creates a new active bet.
	Insert(ctx context.Context, db DBTX, bet *domain.Bet) error

	// FindByID returns a bet by ID, or nil if absent.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Bet, error)

	// ListByWallet returns a wallet's bets, newest first.
	ListByWallet(ctx context.Context, db DBTX, walletID uuid.UUID, limit int) ([]domain.Bet, error)

	// ListActive returns the active bets on a match for the given markets.
	ListActive(ctx context.Context, db DBTX, matchID uuid.UUID, markets []domain.MarketType) ([]domain.Bet, error)

	// LockForUpdate locks a bet row within a transaction.
	LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Bet, error)

	// Settle transitions an active bet to a terminal status with its payout.
	// Returns false when the bet was no longer active (already settled).
	Settle(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.BetStatus, payout int64) (bool, error)
}

// RatingRepository provides access to agent_ratings.
type RatingRepository interface {
	// GetOrInit returns the agent's rating row, creating it at the default
	// rating on first sight.
	GetOrInit(ctx context.Context, db DBTX, agent string) (*domain.Rating, error)

	// Update persists a recomputed rating and counters.
	Update(ctx context.Context, db DBTX, rating *domain.Rating) error

	// ListTop returns ratings ordered by rating descending.
	ListTop(ctx context.Context, db DBTX, limit int) ([]domain.Rating, error)
}

// OutboxRepository provides access to the event_outbox table.
type OutboxRepository interface {
	// Insert writes an outbox event (within the same transaction as the ledger entry).
	Insert(ctx context.Context, db DBTX, draft domain.OutboxDraft) error
}

// Package ledger implements the wallet ledger: strictly-ordered, atomic
// credit/debit postings with one append-only transaction row per posting.
// It is the only component allowed to change a wallet balance.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/chessarena/platform/internal/domain"
	"github.com/chessarena/platform/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// EntryParams describes one posting. Amount is the positive magnitude; the
// sign is determined by the operation (Debit/Credit).
type EntryParams struct {
	WalletID uuid.UUID
	Amount   int64
	Type     domain.TransactionType
	BetID    *uuid.UUID
	MatchID  *uuid.UUID
}

// Engine provides the atomic wallet operations all settlement depends on.
// Every posting runs under a caller-supplied pgx.Tx and serializes on the
// wallet row lock, so two concurrent debits can never both pass the balance
// check.
type Engine struct {
	wallets      repository.WalletRepository
	transactions repository.TransactionRepository
	outbox       repository.OutboxRepository
}

// NewEngine creates a ledger engine with the given repositories.
func NewEngine(
	wallets repository.WalletRepository,
	transactions repository.TransactionRepository,
	outbox repository.OutboxRepository,
) *Engine {
	return &Engine{
		wallets:      wallets,
		transactions: transactions,
		outbox:       outbox,
	}
}

// CreateWallet inserts a new wallet carrying the initial grant. The grant is
// the wallet's starting balance, not a transaction: the ledger invariant is
// balance == grant + sum(transactions).
func (e *Engine) CreateWallet(ctx context.Context, db repository.DBTX) (*domain.Wallet, error) {
	now := time.Now().UTC()
	w := &domain.Wallet{
		ID:        uuid.New(),
		Balance:   domain.InitialGrant,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.wallets.Create(ctx, db, w); err != nil {
		return nil, fmt.Errorf("create wallet: %w", err)
	}
	return w, nil
}

// Debit removes amount from the wallet. Steps, all within the caller's tx:
//  1. Lock the wallet row (SELECT FOR UPDATE).
//  2. Reject with ErrInsufficientBalance if balance < amount.
//  3. Apply the delta with server-side arithmetic.
//  4. Insert exactly one transaction row with the signed amount.
//  5. Insert the outbox event.
func (e *Engine) Debit(ctx context.Context, tx pgx.Tx, params EntryParams) (*domain.Transaction, *domain.Wallet, error) {
	if err := domain.ValidatePositiveAmount(params.Amount); err != nil {
		return nil, nil, domain.ErrValidation(err.Error())
	}

	wallet, err := e.lockWallet(ctx, tx, params.WalletID)
	if err != nil {
		return nil, nil, err
	}
	if wallet.Balance < params.Amount {
		return nil, nil, domain.ErrInsufficientBalance()
	}

	return e.post(ctx, tx, params, -params.Amount)
}

// Credit adds amount to the wallet. Same atomic unit as Debit, without the
// balance check.
func (e *Engine) Credit(ctx context.Context, tx pgx.Tx, params EntryParams) (*domain.Transaction, *domain.Wallet, error) {
	if err := domain.ValidatePositiveAmount(params.Amount); err != nil {
		return nil, nil, domain.ErrValidation(err.Error())
	}

	if _, err := e.lockWallet(ctx, tx, params.WalletID); err != nil {
		return nil, nil, err
	}

	return e.post(ctx, tx, params, params.Amount)
}

func (e *Engine) lockWallet(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := e.wallets.LockForUpdate(ctx, tx, walletID)
	if err != nil {
		return nil, fmt.Errorf("lock wallet: %w", err)
	}
	if wallet == nil {
		return nil, domain.ErrNotFound("wallet", walletID.String())
	}
	return wallet, nil
}

// post applies the signed delta and writes the ledger entry + outbox event.
func (e *Engine) post(ctx context.Context, tx pgx.Tx, params EntryParams, signed int64) (*domain.Transaction, *domain.Wallet, error) {
	updated, err := e.wallets.ApplyDelta(ctx, tx, params.WalletID, signed)
	if err != nil {
		return nil, nil, fmt.Errorf("apply delta: %w", err)
	}

	entry, err := e.transactions.Insert(ctx, tx, &domain.Transaction{
		ID:           uuid.New(),
		WalletID:     params.WalletID,
		Type:         params.Type,
		Amount:       signed,
		BalanceAfter: updated.Balance,
		BetID:        params.BetID,
		MatchID:      params.MatchID,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("insert transaction: %w", err)
	}

	if err := e.outbox.Insert(ctx, tx, domain.NewTransactionPostedEvent(entry)); err != nil {
		return nil, nil, fmt.Errorf("insert outbox event: %w", err)
	}

	return entry, updated, nil
}

package repository

import (
	"context"
	"fmt"

	"github.com/chessarena/platform/internal/domain"
	"github.com/chessarena/platform/internal/infra"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type walletRepo struct{}

// NewWalletRepository returns a pgx-backed WalletRepository.
func NewWalletRepository() WalletRepository {
	return &walletRepo{}
}

func (r *walletRepo) Create(ctx context.Context, db DBTX, wallet *domain.Wallet) error {
	_, err := db.Exec(ctx, `
		INSERT INTO wallets (id, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4)`,
		wallet.ID,
		infra.Int64ToNumeric(wallet.Balance),
		wallet.CreatedAt,
		wallet.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

func (r *walletRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Wallet, error) {
	row := db.QueryRow(ctx, `
		SELECT id, balance, created_at, updated_at
		FROM wallets WHERE id = $1`, id)
	return scanWallet(row)
}

func (r *walletRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, balance, created_at, updated_at
		FROM wallets WHERE id = $1 FOR UPDATE`, id)
	return scanWallet(row)
}

// ApplyDelta uses server-side arithmetic so the balance update and the prior
// lock hold within one statement sequence.
func (r *walletRepo) ApplyDelta(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int64) (*domain.Wallet, error) {
	row := tx.QueryRow(ctx, `
		UPDATE wallets
		SET balance = balance + $1, updated_at = now()
		WHERE id = $2
		RETURNING id, balance, created_at, updated_at`,
		infra.Int64ToNumeric(delta), id)
	return scanWallet(row)
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var w domain.Wallet
	var balNum pgtype.Numeric
	err := row.Scan(&w.ID, &balNum, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan wallet: %w", err)
	}

	w.Balance, err = infra.NumericToInt64(balNum)
	if err != nil {
		return nil, fmt.Errorf("convert balance: %w", err)
	}
	return &w, nil
}

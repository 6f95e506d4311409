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

type transactionRepo struct{}

// NewTransactionRepository returns a pgx-backed TransactionRepository.
func NewTransactionRepository() TransactionRepository {
	return &transactionRepo{}
}

func (r *transactionRepo) Insert(ctx context.Context, db DBTX, t *domain.Transaction) (*domain.Transaction, error) {
	row := db.QueryRow(ctx, `
		INSERT INTO wallet_transactions
		  (id, wallet_id, type, amount, balance_after, bet_id, match_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, wallet_id, type, amount, balance_after, bet_id, match_id, created_at`,
		t.ID,
		t.WalletID,
		string(t.Type),
		infra.Int64ToNumeric(t.Amount),
		infra.Int64ToNumeric(t.BalanceAfter),
		t.BetID,
		t.MatchID,
	)
	return scanTransaction(row)
}

func (r *transactionRepo) ListByWallet(ctx context.Context, db DBTX, walletID uuid.UUID, limit int) ([]domain.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := db.Query(ctx, `
		SELECT id, wallet_id, type, amount, balance_after, bet_id, match_id, created_at
		FROM wallet_transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, walletID, limit)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		t, err := scanTransactionRows(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}

func (r *transactionRepo) SumByWallet(ctx context.Context, db DBTX, walletID uuid.UUID) (int64, error) {
	var sumNum pgtype.Numeric
	err := db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM wallet_transactions
		WHERE wallet_id = $1`, walletID).Scan(&sumNum)
	if err != nil {
		return 0, fmt.Errorf("sum transactions: %w", err)
	}
	return infra.NumericToInt64(sumNum)
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	var amountNum, balNum pgtype.Numeric
	err := row.Scan(&t.ID, &t.WalletID, &t.Type, &amountNum, &balNum, &t.BetID, &t.MatchID, &t.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}

	var convErr error
	t.Amount, convErr = infra.NumericToInt64(amountNum)
	if convErr != nil {
		return nil, fmt.Errorf("convert amount: %w", convErr)
	}
	t.BalanceAfter, convErr = infra.NumericToInt64(balNum)
	if convErr != nil {
		return nil, fmt.Errorf("convert balance_after: %w", convErr)
	}
	return &t, nil
}

func scanTransactionRows(rows pgx.Rows) (*domain.Transaction, error) {
	var t domain.Transaction
	var amountNum, balNum pgtype.Numeric
	err := rows.Scan(&t.ID, &t.WalletID, &t.Type, &amountNum, &balNum, &t.BetID, &t.MatchID, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan transaction row: %w", err)
	}

	var convErr error
	t.Amount, convErr = infra.NumericToInt64(amountNum)
	if convErr != nil {
		return nil, convErr
	}
	t.BalanceAfter, convErr = infra.NumericToInt64(balNum)
	if convErr != nil {
		return nil, convErr
	}
	return &t, nil
}

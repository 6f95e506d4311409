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

type betRepo struct{}

// NewBetRepository returns a pgx-backed BetRepository.
func NewBetRepository() BetRepository {
	return &betRepo{}
}

const betColumns = `id, wallet_id, match_id, market, selection, stake, odds, status, payout, created_at, settled_at`

func (r *betRepo) Insert(ctx context.Context, db DBTX, b *domain.Bet) error {
	_, err := db.Exec(ctx, `
		INSERT INTO bets (id, wallet_id, match_id, market, selection, stake, odds, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		b.ID, b.WalletID, b.MatchID, string(b.Market), b.Selection,
		infra.Int64ToNumeric(b.Stake), b.Odds, string(b.Status), b.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert bet: %w", err)
	}
	return nil
}

func (r *betRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Bet, error) {
	row := db.QueryRow(ctx, `SELECT `+betColumns+` FROM bets WHERE id = $1`, id)
	return scanBet(row)
}

func (r *betRepo) ListByWallet(ctx context.Context, db DBTX, walletID uuid.UUID, limit int) ([]domain.Bet, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := db.Query(ctx, `
		SELECT `+betColumns+` FROM bets
		WHERE wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, walletID, limit)
	if err != nil {
		return nil, fmt.Errorf("query wallet bets: %w", err)
	}
	defer rows.Close()
	return collectBets(rows)
}

func (r *betRepo) ListActive(ctx context.Context, db DBTX, matchID uuid.UUID, markets []domain.MarketType) ([]domain.Bet, error) {
	names := make([]string, len(markets))
	for i, m := range markets {
		names[i] = string(m)
	}
	rows, err := db.Query(ctx, `
		SELECT `+betColumns+` FROM bets
		WHERE match_id = $1 AND status = 'active' AND market = ANY($2)
		ORDER BY created_at ASC`, matchID, names)
	if err != nil {
		return nil, fmt.Errorf("query active bets: %w", err)
	}
	defer rows.Close()
	return collectBets(rows)
}

func (r *betRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Bet, error) {
	row := tx.QueryRow(ctx, `SELECT `+betColumns+` FROM bets WHERE id = $1 FOR UPDATE`, id)
	return scanBet(row)
}

// Settle guards on status so a repeated settlement call is a no-op.
func (r *betRepo) Settle(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.BetStatus, payout int64) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE bets
		SET status = $1, payout = $2, settled_at = now()
		WHERE id = $3 AND status = 'active'`,
		string(status), infra.Int64ToNumeric(payout), id)
	if err != nil {
		return false, fmt.Errorf("settle bet: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanBet(row pgx.Row) (*domain.Bet, error) {
	var b domain.Bet
	var stakeNum, payoutNum pgtype.Numeric
	err := row.Scan(&b.ID, &b.WalletID, &b.MatchID, &b.Market, &b.Selection,
		&stakeNum, &b.Odds, &b.Status, &payoutNum, &b.CreatedAt, &b.SettledAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan bet: %w", err)
	}

	var convErr error
	b.Stake, convErr = infra.NumericToInt64(stakeNum)
	if convErr != nil {
		return nil, fmt.Errorf("convert stake: %w", convErr)
	}
	b.Payout, convErr = infra.NumericToInt64(payoutNum)
	if convErr != nil {
		return nil, fmt.Errorf("convert payout: %w", convErr)
	}
	return &b, nil
}

func collectBets(rows pgx.Rows) ([]domain.Bet, error) {
	var bets []domain.Bet
	for rows.Next() {
		var b domain.Bet
		var stakeNum, payoutNum pgtype.Numeric
		err := rows.Scan(&b.ID, &b.WalletID, &b.MatchID, &b.Market, &b.Selection,
			&stakeNum, &b.Odds, &b.Status, &payoutNum, &b.CreatedAt, &b.SettledAt)
		if err != nil {
			return nil, fmt.Errorf("scan bet row: %w", err)
		}
		var convErr error
		b.Stake, convErr = infra.NumericToInt64(stakeNum)
		if convErr != nil {
			return nil, convErr
		}
		b.Payout, convErr = infra.NumericToInt64(payoutNum)
		if convErr != nil {
			return nil, convErr
		}
		bets = append(bets, b)
	}
	return bets, rows.Err()
}

package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chessarena/platform/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type matchRepo struct{}

// NewMatchRepository returns a pgx-backed MatchRepository.
func NewMatchRepository() MatchRepository {
	return &matchRepo{}
}

func (r *matchRepo) Insert(ctx context.Context, db DBTX, m *domain.Match) error {
	moves, err := json.Marshal(m.Moves)
	if err != nil {
		return fmt.Errorf("marshal moves: %w", err)
	}
	if m.Moves == nil {
		moves = []byte(`[]`)
	}
	_, err = db.Exec(ctx, `
		INSERT INTO matches (id, white_agent, black_agent, moves, position, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.WhiteAgent, m.BlackAgent, moves, m.Position, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	return nil
}

func (r *matchRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Match, error) {
	row := db.QueryRow(ctx, `
		SELECT id, white_agent, black_agent, moves, position, result, created_at, completed_at
		FROM matches WHERE id = $1`, id)
	return scanMatch(row)
}

// AppendMove appends server-side so the moves array never round-trips
// through the application.
func (r *matchRepo) AppendMove(ctx context.Context, db DBTX, id uuid.UUID, move domain.Move, position string) error {
	entry, err := json.Marshal(move)
	if err != nil {
		return fmt.Errorf("marshal move: %w", err)
	}
	tag, err := db.Exec(ctx, `
		UPDATE matches
		SET moves = moves || $1::jsonb, position = $2
		WHERE id = $3 AND result IS NULL`,
		entry, position, id)
	if err != nil {
		return fmt.Errorf("append move: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("match %s not open for moves", id)
	}
	return nil
}

func (r *matchRepo) SetResult(ctx context.Context, db DBTX, id uuid.UUID, result domain.MatchResult, position string) error {
	tag, err := db.Exec(ctx, `
		UPDATE matches
		SET result = $1, position = $2, completed_at = now()
		WHERE id = $3 AND result IS NULL`,
		string(result), position, id)
	if err != nil {
		return fmt.Errorf("set result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("match %s already finalized", id)
	}
	return nil
}

// LockOpen holds a share lock on the match row so SetResult cannot commit
// concurrently while the caller's transaction is in flight.
func (r *matchRepo) LockOpen(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	var result *string
	err := tx.QueryRow(ctx, `
		SELECT result FROM matches WHERE id = $1 FOR SHARE`, id).Scan(&result)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("lock match: %w", err)
	}
	return result == nil, nil
}

func (r *matchRepo) ListCompleted(ctx context.Context, db DBTX, limit int) ([]domain.Match, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := db.Query(ctx, `
		SELECT id, white_agent, black_agent, moves, position, result, created_at, completed_at
		FROM matches
		WHERE result IS NOT NULL
		ORDER BY completed_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	var matches []domain.Match
	for rows.Next() {
		m, err := scanMatchRows(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, *m)
	}
	return matches, rows.Err()
}

func scanMatch(row pgx.Row) (*domain.Match, error) {
	var m domain.Match
	var moves []byte
	var result *string
	err := row.Scan(&m.ID, &m.WhiteAgent, &m.BlackAgent, &moves, &m.Position, &result, &m.CreatedAt, &m.CompletedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan match: %w", err)
	}
	return assembleMatch(&m, moves, result)
}

func scanMatchRows(rows pgx.Rows) (*domain.Match, error) {
	var m domain.Match
	var moves []byte
	var result *string
	err := rows.Scan(&m.ID, &m.WhiteAgent, &m.BlackAgent, &moves, &m.Position, &result, &m.CreatedAt, &m.CompletedAt)
	if err != nil {
		return nil, fmt.Errorf("scan match row: %w", err)
	}
	return assembleMatch(&m, moves, result)
}

func assembleMatch(m *domain.Match, moves []byte, result *string) (*domain.Match, error) {
	if len(moves) > 0 {
		if err := json.Unmarshal(moves, &m.Moves); err != nil {
			return nil, fmt.Errorf("unmarshal moves: %w", err)
		}
	}
	if result != nil {
		m.Result = domain.MatchResult(*result)
	}
	return m, nil
}

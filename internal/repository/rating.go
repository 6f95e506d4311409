package repository

import (
	"context"
	"fmt"

	"github.com/chessarena/platform/internal/domain"
	"github.com/jackc/pgx/v5"
)

type ratingRepo struct{}

// NewRatingRepository returns a pgx-backed RatingRepository.
func NewRatingRepository() RatingRepository {
	return &ratingRepo{}
}

// GetOrInit follows the upsert-then-read shape: a no-op insert guarantees the
// row exists before the read.
func (r *ratingRepo) GetOrInit(ctx context.Context, db DBTX, agent string) (*domain.Rating, error) {
	_, err := db.Exec(ctx, `
		INSERT INTO agent_ratings (agent) VALUES ($1)
		ON CONFLICT (agent) DO NOTHING`, agent)
	if err != nil {
		return nil, fmt.Errorf("init rating: %w", err)
	}

	row := db.QueryRow(ctx, `
		SELECT agent, rating, wins, losses, draws, games, updated_at
		FROM agent_ratings WHERE agent = $1`, agent)
	return scanRating(row)
}

func (r *ratingRepo) Update(ctx context.Context, db DBTX, rating *domain.Rating) error {
	_, err := db.Exec(ctx, `
		UPDATE agent_ratings
		SET rating = $2, wins = $3, losses = $4, draws = $5, games = $6, updated_at = now()
		WHERE agent = $1`,
		rating.Agent, rating.Rating, rating.Wins, rating.Losses, rating.Draws, rating.Games)
	if err != nil {
		return fmt.Errorf("update rating: %w", err)
	}
	return nil
}

func (r *ratingRepo) ListTop(ctx context.Context, db DBTX, limit int) ([]domain.Rating, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := db.Query(ctx, `
		SELECT agent, rating, wins, losses, draws, games, updated_at
		FROM agent_ratings
		ORDER BY rating DESC, agent ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query ratings: %w", err)
	}
	defer rows.Close()

	var ratings []domain.Rating
	for rows.Next() {
		var rt domain.Rating
		if err := rows.Scan(&rt.Agent, &rt.Rating, &rt.Wins, &rt.Losses, &rt.Draws, &rt.Games, &rt.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan rating row: %w", err)
		}
		ratings = append(ratings, rt)
	}
	return ratings, rows.Err()
}

func scanRating(row pgx.Row) (*domain.Rating, error) {
	var rt domain.Rating
	err := row.Scan(&rt.Agent, &rt.Rating, &rt.Wins, &rt.Losses, &rt.Draws, &rt.Games, &rt.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan rating: %w", err)
	}
	return &rt, nil
}

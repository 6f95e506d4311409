// Package rating maintains agent ELO ratings and the leaderboard projection.
package rating

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/chessarena/platform/internal/domain"
	"github.com/chessarena/platform/internal/repository"
)

// Service applies rating updates and serves the leaderboard. Update must be
// called exactly once per completed match; idempotency is the caller's
// responsibility.
type Service struct {
	db      repository.DBTX
	ratings repository.RatingRepository
	logger  *slog.Logger
}

// NewService creates a rating service.
func NewService(db repository.DBTX, ratings repository.RatingRepository, logger *slog.Logger) *Service {
	return &Service{db: db, ratings: ratings, logger: logger}
}

// Update recomputes both agents' ratings from a completed match result using
// standard ELO with K=32. Counters move consistently with the result.
func (s *Service) Update(ctx context.Context, white, black string, result domain.MatchResult) error {
	w, err := s.ratings.GetOrInit(ctx, s.db, white)
	if err != nil {
		return fmt.Errorf("load white rating: %w", err)
	}
	b, err := s.ratings.GetOrInit(ctx, s.db, black)
	if err != nil {
		return fmt.Errorf("load black rating: %w", err)
	}

	ew := domain.ExpectedScore(w.Rating, b.Rating)
	eb := 1.0 - ew
	aw, ab := domain.ActualScores(result)

	newWhite := w.Rating + int(math.Round(domain.EloK*(aw-ew)))
	newBlack := b.Rating + int(math.Round(domain.EloK*(ab-eb)))

	s.logger.Info("rating update",
		"white", white, "black", black, "result", result,
		"white_delta", newWhite-w.Rating, "black_delta", newBlack-b.Rating)

	applyResult(w, aw, newWhite)
	applyResult(b, ab, newBlack)

	if err := s.ratings.Update(ctx, s.db, w); err != nil {
		return fmt.Errorf("persist white rating: %w", err)
	}
	if err := s.ratings.Update(ctx, s.db, b); err != nil {
		return fmt.Errorf("persist black rating: %w", err)
	}
	return nil
}

// Get returns an agent's current rating, creating the default row on first
// sight.
func (s *Service) Get(ctx context.Context, agent string) (*domain.Rating, error) {
	r, err := s.ratings.GetOrInit(ctx, s.db, agent)
	if err != nil {
		return nil, fmt.Errorf("get rating: %w", err)
	}
	return r, nil
}

func applyResult(r *domain.Rating, actual float64, newRating int) {
	r.Rating = newRating
	r.Games++
	switch actual {
	case 1:
		r.Wins++
	case 0:
		r.Losses++
	default:
		r.Draws++
	}
}

package rating

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chessarena/platform/internal/domain"
)

// Leaderboard is a TTL-cached projection over agent_ratings. Staleness within
// the TTL is intentional: the read path favors throughput over real-time
// accuracy.
type Leaderboard struct {
	svc *Service
	ttl time.Duration

	mu        sync.Mutex
	cached    []domain.Rating
	fetchedAt time.Time
}

// NewLeaderboard creates a leaderboard projection with the given TTL.
func NewLeaderboard(svc *Service, ttl time.Duration) *Leaderboard {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Leaderboard{svc: svc, ttl: ttl}
}

// Top returns up to limit ratings, refreshing the cache when stale.
func (l *Leaderboard) Top(ctx context.Context, limit int) ([]domain.Rating, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if time.Since(l.fetchedAt) > l.ttl || l.cached == nil {
		ratings, err := l.svc.ratings.ListTop(ctx, l.svc.db, 100)
		if err != nil {
			return nil, fmt.Errorf("refresh leaderboard: %w", err)
		}
		l.cached = ratings
		l.fetchedAt = time.Now()
	}

	if limit <= 0 || limit > len(l.cached) {
		limit = len(l.cached)
	}
	out := make([]domain.Rating, limit)
	copy(out, l.cached[:limit])
	return out, nil
}

// Invalidate drops the cache; the next read refetches.
func (l *Leaderboard) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cached = nil
	l.fetchedAt = time.Time{}
}

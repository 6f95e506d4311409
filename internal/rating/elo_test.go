package rating

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/chessarena/platform/internal/domain"
	"github.com/chessarena/platform/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRatingRepo is an in-memory RatingRepository.
type fakeRatingRepo struct {
	byAgent map[string]*domain.Rating
	lists   int
}

func newFakeRatingRepo() *fakeRatingRepo {
	return &fakeRatingRepo{byAgent: make(map[string]*domain.Rating)}
}

func (f *fakeRatingRepo) GetOrInit(_ context.Context, _ repository.DBTX, agent string) (*domain.Rating, error) {
	if r, ok := f.byAgent[agent]; ok {
		cp := *r
		return &cp, nil
	}
	f.byAgent[agent] = &domain.Rating{Agent: agent, Rating: domain.DefaultRating}
	cp := *f.byAgent[agent]
	return &cp, nil
}

func (f *fakeRatingRepo) Update(_ context.Context, _ repository.DBTX, rating *domain.Rating) error {
	cp := *rating
	cp.UpdatedAt = time.Now()
	f.byAgent[rating.Agent] = &cp
	return nil
}

func (f *fakeRatingRepo) ListTop(_ context.Context, _ repository.DBTX, limit int) ([]domain.Rating, error) {
	f.lists++
	var out []domain.Rating
	for _, r := range f.byAgent {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].Agent < out[j].Agent
	})
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Service.Update Tests ---

func TestUpdateEqualRatings(t *testing.T) {
	repo := newFakeRatingRepo()
	svc := NewService(nil, repo, testLogger())

	require.NoError(t, svc.Update(context.Background(), "alpha", "beta", domain.ResultWhite))

	w := repo.byAgent["alpha"]
	b := repo.byAgent["beta"]
	// Equal ratings, K=32: winner gains 16, loser drops 16.
	assert.Equal(t, 1516, w.Rating)
	assert.Equal(t, 1484, b.Rating)
	assert.Equal(t, 1, w.Wins)
	assert.Equal(t, 1, w.Games)
	assert.Equal(t, 0, w.Losses)
	assert.Equal(t, 1, b.Losses)
	assert.Equal(t, 1, b.Games)
}

func TestUpdateDraw(t *testing.T) {
	repo := newFakeRatingRepo()
	svc := NewService(nil, repo, testLogger())

	require.NoError(t, svc.Update(context.Background(), "alpha", "beta", domain.ResultDraw))

	// Equal ratings drawing changes nothing but the counters.
	assert.Equal(t, 1500, repo.byAgent["alpha"].Rating)
	assert.Equal(t, 1500, repo.byAgent["beta"].Rating)
	assert.Equal(t, 1, repo.byAgent["alpha"].Draws)
	assert.Equal(t, 1, repo.byAgent["beta"].Draws)
}

func TestUpdateUpset(t *testing.T) {
	repo := newFakeRatingRepo()
	repo.byAgent["goliath"] = &domain.Rating{Agent: "goliath", Rating: 1800}
	repo.byAgent["david"] = &domain.Rating{Agent: "david", Rating: 1400}
	svc := NewService(nil, repo, testLogger())

	require.NoError(t, svc.Update(context.Background(), "goliath", "david", domain.ResultBlack))

	// The favourite losing moves far more than 16 points.
	goliathLoss := 1800 - repo.byAgent["goliath"].Rating
	davidGain := repo.byAgent["david"].Rating - 1400
	assert.Equal(t, goliathLoss, davidGain, "zero-sum update")
	assert.Greater(t, davidGain, 16)
}

func TestUpdateAccumulates(t *testing.T) {
	repo := newFakeRatingRepo()
	svc := NewService(nil, repo, testLogger())
	ctx := context.Background()

	require.NoError(t, svc.Update(ctx, "alpha", "beta", domain.ResultWhite))
	require.NoError(t, svc.Update(ctx, "alpha", "beta", domain.ResultBlack))

	a := repo.byAgent["alpha"]
	assert.Equal(t, 2, a.Games)
	assert.Equal(t, 1, a.Wins)
	assert.Equal(t, 1, a.Losses)
}

// --- Leaderboard Tests ---

func TestLeaderboardCaching(t *testing.T) {
	repo := newFakeRatingRepo()
	repo.byAgent["alpha"] = &domain.Rating{Agent: "alpha", Rating: 1600}
	repo.byAgent["beta"] = &domain.Rating{Agent: "beta", Rating: 1500}
	svc := NewService(nil, repo, testLogger())
	lb := NewLeaderboard(svc, time.Minute)
	ctx := context.Background()

	top, err := lb.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "alpha", top[0].Agent)

	// A second read within the TTL hits the cache.
	_, err = lb.Top(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.lists)

	lb.Invalidate()
	_, err = lb.Top(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.lists)
}

func TestLeaderboardLimit(t *testing.T) {
	repo := newFakeRatingRepo()
	for _, a := range []string{"a", "b", "c"} {
		repo.byAgent[a] = &domain.Rating{Agent: a, Rating: 1500}
	}
	lb := NewLeaderboard(NewService(nil, repo, testLogger()), time.Minute)

	top, err := lb.Top(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, top, 2)
}

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/chessarena/platform/internal/bus"
	"github.com/chessarena/platform/internal/chessutil"
	"github.com/chessarena/platform/internal/domain"
	"github.com/chessarena/platform/internal/engine"
	"github.com/chessarena/platform/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Fakes ---

// scriptedStep is one engine response; Err aborts the game at that move.
type scriptedStep struct {
	result engine.MoveResult
	err    error
}

// fakeEngine replays the same script for every game it creates.
type fakeEngine struct {
	mu         sync.Mutex
	script     []scriptedStep
	firstDelay time.Duration
	games      int
	cursor     map[string]int
}

func newFakeEngine(script []scriptedStep) *fakeEngine {
	return &fakeEngine{script: script, cursor: make(map[string]int)}
}

func (f *fakeEngine) CreateGame(_ context.Context, white, black string) (*engine.GameRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.games++
	id := fmt.Sprintf("game-%d", f.games)
	f.cursor[id] = 0
	return &engine.GameRef{GameID: id, White: white, Black: black, FEN: chessutil.StartingFEN}, nil
}

func (f *fakeEngine) ApplyNextMove(_ context.Context, gameID string) (*engine.MoveResult, error) {
	f.mu.Lock()
	i := f.cursor[gameID]
	f.cursor[gameID]++
	delay := time.Duration(0)
	if i == 0 {
		delay = f.firstDelay
	}
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if i >= len(f.script) {
		return nil, errors.New("script exhausted")
	}
	step := f.script[i]
	if step.err != nil {
		return nil, step.err
	}
	res := step.result
	return &res, nil
}

func (f *fakeEngine) State(_ context.Context, gameID string) (*engine.GameState, error) {
	return &engine.GameState{LegalMoves: []string{"e2e4", "g1f3"}}, nil
}

type fakeMatchRepo struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*domain.Match
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{byID: make(map[uuid.UUID]*domain.Match)}
}

func (f *fakeMatchRepo) Insert(_ context.Context, _ repository.DBTX, m *domain.Match) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *m
	f.byID[m.ID] = &cp
	return nil
}

func (f *fakeMatchRepo) FindByID(_ context.Context, _ repository.DBTX, id uuid.UUID) (*domain.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMatchRepo) AppendMove(_ context.Context, _ repository.DBTX, id uuid.UUID, move domain.Move, position string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.byID[id]
	if !ok || !m.InProgress() {
		return errors.New("match not open")
	}
	m.Moves = append(m.Moves, move)
	m.Position = position
	return nil
}

func (f *fakeMatchRepo) SetResult(_ context.Context, _ repository.DBTX, id uuid.UUID, result domain.MatchResult, position string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.byID[id]
	if !ok || !m.InProgress() {
		return errors.New("match not open")
	}
	now := time.Now()
	m.Result = result
	m.Position = position
	m.CompletedAt = &now
	return nil
}

func (f *fakeMatchRepo) LockOpen(_ context.Context, _ pgx.Tx, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.byID[id]
	return ok && m.InProgress(), nil
}

func (f *fakeMatchRepo) ListCompleted(_ context.Context, _ repository.DBTX, _ int) ([]domain.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Match
	for _, m := range f.byID {
		if !m.InProgress() {
			out = append(out, *m)
		}
	}
	return out, nil
}

type settleCall struct {
	matchID    uuid.UUID
	preMoveFEN string
	move       string
}

type fakeSettler struct {
	mu     sync.Mutex
	moves  []settleCall
	finals []uuid.UUID
	voided []uuid.UUID
}

func (f *fakeSettler) SettleMove(_ context.Context, matchID uuid.UUID, preMoveFEN, move string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves = append(f.moves, settleCall{matchID: matchID, preMoveFEN: preMoveFEN, move: move})
	return nil
}

func (f *fakeSettler) SettleFinal(_ context.Context, matchID uuid.UUID, _ domain.MatchResult, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finals = append(f.finals, matchID)
	return nil
}

func (f *fakeSettler) VoidMatch(_ context.Context, matchID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.voided = append(f.voided, matchID)
	return nil
}

type ratingCall struct {
	white, black string
	result       domain.MatchResult
}

type fakeRatings struct {
	mu    sync.Mutex
	calls []ratingCall
}

func (f *fakeRatings) Update(_ context.Context, white, black string, result domain.MatchResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ratingCall{white: white, black: black, result: result})
	return nil
}

// --- Harness ---

func moveStep(move, fen string) scriptedStep {
	return scriptedStep{result: engine.MoveResult{Move: move, FEN: fen, Elapsed: 0.1}}
}

func finalStep(move, fen, result string) scriptedStep {
	return scriptedStep{result: engine.MoveResult{Move: move, FEN: fen, IsOver: true, Result: result, Elapsed: 0.1}}
}

type orchHarness struct {
	orch      *Orchestrator
	eng       *fakeEngine
	matches   *fakeMatchRepo
	settler   *fakeSettler
	ratings   *fakeRatings
	broker    *bus.Broker
	snapshots *bus.SnapshotStore
	registry  Registry
}

func newOrchHarness(t *testing.T, eng *fakeEngine) *orchHarness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &orchHarness{
		eng:       eng,
		matches:   newFakeMatchRepo(),
		settler:   &fakeSettler{},
		ratings:   &fakeRatings{},
		broker:    bus.NewBroker(logger),
		snapshots: bus.NewSnapshotStore(),
		registry:  NewRegistry(),
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h.orch = NewOrchestrator(ctx, nil, h.matches, eng, h.settler, h.ratings,
		h.broker, h.snapshots, h.registry, time.Millisecond, 10*time.Millisecond, logger)
	return h
}

// startAndWait runs a match to completion.
func (h *orchHarness) startAndWait(t *testing.T) uuid.UUID {
	t.Helper()
	matchID, err := h.orch.Start(context.Background(), "alpha", "beta", time.Millisecond)
	require.NoError(t, err)

	entry, ok := h.registry.Get(matchID)
	if ok {
		select {
		case <-entry.Done:
		case <-time.After(5 * time.Second):
			t.Fatal("match did not finish")
		}
	}
	return matchID
}

// --- Tests ---

const (
	fenAfterE4   = "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"
	fenAfterE5   = "rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq e6 0 2"
	fenCheckmate = "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3"
)

func TestStartValidation(t *testing.T) {
	h := newOrchHarness(t, newFakeEngine(nil))
	ctx := context.Background()

	_, err := h.orch.Start(ctx, "", "beta", 0)
	assert.Error(t, err)
	_, err = h.orch.Start(ctx, "alpha", "bad name", 0)
	assert.Error(t, err)
}

func TestMatchRunsToCompletion(t *testing.T) {
	eng := newFakeEngine([]scriptedStep{
		moveStep("e2e4", fenAfterE4),
		moveStep("e7e5", fenAfterE5),
		finalStep("d1h5", fenCheckmate, "1-0"),
	})
	h := newOrchHarness(t, eng)

	matchID := h.startAndWait(t)

	match, err := h.matches.FindByID(context.Background(), nil, matchID)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, domain.ResultWhite, match.Result)
	assert.Len(t, match.Moves, 3)
	assert.Equal(t, "e2e4", match.Moves[0].Move)
	assert.Equal(t, fenCheckmate, match.Position)
	assert.NotNil(t, match.CompletedAt)

	// One rating update, for the final result.
	require.Len(t, h.ratings.calls, 1)
	assert.Equal(t, ratingCall{white: "alpha", black: "beta", result: domain.ResultWhite}, h.ratings.calls[0])

	// Final settlement ran once; nothing was voided.
	assert.Equal(t, []uuid.UUID{matchID}, h.settler.finals)
	assert.Empty(t, h.settler.voided)

	// Live state is torn down.
	_, live := h.registry.Get(matchID)
	assert.False(t, live)
	_, ok := h.snapshots.Get(matchID)
	assert.False(t, ok)
}

func TestSettlementUsesPreMovePositions(t *testing.T) {
	eng := newFakeEngine([]scriptedStep{
		moveStep("e2e4", fenAfterE4),
		finalStep("e7e5", fenAfterE5, "1/2-1/2"),
	})
	h := newOrchHarness(t, eng)

	matchID := h.startAndWait(t)

	require.Len(t, h.settler.moves, 2)
	// Move 1 settles against the starting position, move 2 against the
	// position after move 1.
	assert.Equal(t, settleCall{matchID: matchID, preMoveFEN: chessutil.StartingFEN, move: "e2e4"}, h.settler.moves[0])
	assert.Equal(t, settleCall{matchID: matchID, preMoveFEN: fenAfterE4, move: "e7e5"}, h.settler.moves[1])
}

func TestEngineFailureVoidsMatch(t *testing.T) {
	eng := newFakeEngine([]scriptedStep{
		moveStep("e2e4", fenAfterE4),
		{err: errors.New("agent timeout")},
	})
	h := newOrchHarness(t, eng)

	matchID := h.startAndWait(t)

	// Committed moves survive; the result stays unset.
	match, err := h.matches.FindByID(context.Background(), nil, matchID)
	require.NoError(t, err)
	assert.True(t, match.InProgress())
	assert.Len(t, match.Moves, 1)

	assert.Equal(t, []uuid.UUID{matchID}, h.settler.voided)
	assert.Empty(t, h.settler.finals)
	assert.Empty(t, h.ratings.calls)

	_, live := h.registry.Get(matchID)
	assert.False(t, live)
}

func TestStreamedEvents(t *testing.T) {
	eng := newFakeEngine([]scriptedStep{
		moveStep("e2e4", fenAfterE4),
		finalStep("e7e5", fenAfterE5, "1/2-1/2"),
	})
	// Hold the first move back long enough to subscribe.
	eng.firstDelay = 100 * time.Millisecond
	h := newOrchHarness(t, eng)

	matchID, err := h.orch.Start(context.Background(), "alpha", "beta", time.Millisecond)
	require.NoError(t, err)

	events, cancel := h.broker.Subscribe(matchID)
	defer cancel()

	var received []domain.Event
	for evt := range events {
		received = append(received, evt)
	}

	require.Len(t, received, 3)
	assert.Equal(t, domain.EventMovePlayed, received[0].Type)
	assert.Equal(t, 1, received[0].Seq)
	assert.Equal(t, domain.EventMovePlayed, received[1].Type)
	assert.Equal(t, 2, received[1].Seq)
	assert.Equal(t, domain.EventMatchEnded, received[2].Type)
}

func TestSnapshotTracksLiveMatch(t *testing.T) {
	eng := newFakeEngine([]scriptedStep{
		moveStep("e2e4", fenAfterE4),
		finalStep("e7e5", fenAfterE5, "1/2-1/2"),
	})
	eng.firstDelay = 100 * time.Millisecond
	h := newOrchHarness(t, eng)

	matchID, err := h.orch.Start(context.Background(), "alpha", "beta", time.Millisecond)
	require.NoError(t, err)

	// Before the first move the snapshot holds the starting position.
	snap, ok := h.snapshots.Get(matchID)
	require.True(t, ok)
	assert.Equal(t, chessutil.StartingFEN, snap.Position)
	assert.Equal(t, "white", snap.Turn)
	assert.Equal(t, 0, snap.MoveCount)
}

// --- Tournament Tests ---

func TestRoundRobinPairings(t *testing.T) {
	pairings := roundRobinPairings([]string{"a", "b", "c"})
	assert.Len(t, pairings, 6, "each pair plays both colors")

	seen := make(map[pairing]bool)
	for _, p := range pairings {
		assert.NotEqual(t, p.white, p.black)
		assert.False(t, seen[p], "no duplicate pairing")
		seen[p] = true
	}
}

func TestTournamentValidation(t *testing.T) {
	h := newOrchHarness(t, newFakeEngine(nil))
	m := NewTournamentManager(h.orch)
	ctx := context.Background()

	_, err := m.Start(ctx, []string{"solo"}, 0)
	assert.Error(t, err)
	_, err = m.Start(ctx, []string{"a", "a"}, 0)
	assert.Error(t, err)
	_, err = m.Start(ctx, []string{"a", "bad name"}, 0)
	assert.Error(t, err)

	_, err = m.Get(uuid.New())
	assert.Error(t, err)
}

func TestTournamentRunsAllPairings(t *testing.T) {
	// Every game: one move, white wins.
	eng := newFakeEngine([]scriptedStep{
		finalStep("e2e4", fenAfterE4, "1-0"),
	})
	h := newOrchHarness(t, eng)
	m := NewTournamentManager(h.orch)

	id, err := m.Start(context.Background(), []string{"a", "b", "c"}, time.Millisecond)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		tr, err := m.Get(id)
		return err == nil && tr.Status == domain.TournamentComplete
	}, 10*time.Second, 10*time.Millisecond)

	tr, err := m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 6, tr.TotalMatches)
	assert.Len(t, tr.Played, 6)
	require.Len(t, tr.Standings, 3)

	// Everyone wins as white and loses as black: 2 points each, 4 games.
	for _, s := range tr.Standings {
		assert.Equal(t, 4, s.Played, s.Agent)
		assert.Equal(t, 2, s.Wins, s.Agent)
		assert.Equal(t, 2, s.Losses, s.Agent)
		assert.Equal(t, 2.0, s.Score, s.Agent)
	}
}

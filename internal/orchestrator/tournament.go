package orchestrator

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/chessarena/platform/internal/domain"
	"github.com/google/uuid"
)

// pairing is one scheduled game with fixed colors.
type pairing struct {
	white, black string
}

// roundRobinPairings yields every ordered pair of agents, so each pairing is
// played twice with colors swapped.
func roundRobinPairings(agents []string) []pairing {
	var out []pairing
	for _, w := range agents {
		for _, b := range agents {
			if w != b {
				out = append(out, pairing{white: w, black: b})
			}
		}
	}
	return out
}

// TournamentManager runs round-robin tournaments over the orchestrator.
// Matches execute strictly one at a time; the whole tournament is in-memory
// state over durably persisted matches.
type TournamentManager struct {
	orch *Orchestrator

	mu          sync.RWMutex
	tournaments map[uuid.UUID]*domain.Tournament
}

// NewTournamentManager creates a tournament manager.
func NewTournamentManager(orch *Orchestrator) *TournamentManager {
	return &TournamentManager{
		orch:        orch,
		tournaments: make(map[uuid.UUID]*domain.Tournament),
	}
}

// Start validates the field and launches the tournament runner. Returns the
// tournament id immediately.
func (m *TournamentManager) Start(ctx context.Context, agents []string, delay time.Duration) (uuid.UUID, error) {
	if len(agents) < 2 {
		return uuid.Nil, domain.ErrValidation("a tournament needs at least two agents")
	}
	seen := make(map[string]bool, len(agents))
	for _, a := range agents {
		if err := domain.ValidateAgentName(a); err != nil {
			return uuid.Nil, domain.ErrValidation(err.Error())
		}
		if seen[a] {
			return uuid.Nil, domain.ErrValidation("duplicate agent: " + a)
		}
		seen[a] = true
	}

	pairings := roundRobinPairings(agents)
	t := &domain.Tournament{
		ID:           uuid.New(),
		Agents:       append([]string(nil), agents...),
		Status:       domain.TournamentRunning,
		TotalMatches: len(pairings),
		CreatedAt:    time.Now().UTC(),
	}

	m.mu.Lock()
	m.tournaments[t.ID] = t
	m.mu.Unlock()

	go m.run(t.ID, pairings, delay)

	m.orch.logger.Info("tournament started",
		"tournament_id", t.ID, "agents", len(agents), "matches", len(pairings))
	return t.ID, nil
}

// Get returns a copy of the tournament's current state.
func (m *TournamentManager) Get(id uuid.UUID) (*domain.Tournament, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tournaments[id]
	if !ok {
		return nil, domain.ErrNotFound("tournament", id.String())
	}
	cp := *t
	cp.Played = append([]uuid.UUID(nil), t.Played...)
	cp.Standings = append([]domain.Standing(nil), t.Standings...)
	return &cp, nil
}

func (m *TournamentManager) run(id uuid.UUID, pairings []pairing, delay time.Duration) {
	ctx := m.orch.rootCtx
	tally := make(map[string]*domain.Standing)

	for _, p := range pairings {
		if ctx.Err() != nil {
			break
		}

		matchID, err := m.orch.Start(ctx, p.white, p.black, delay)
		if err != nil {
			m.orch.logger.Error("tournament match start failed",
				"tournament_id", id, "white", p.white, "black", p.black, "error", err)
			continue
		}
		if entry, ok := m.orch.registry.Get(matchID); ok {
			<-entry.Done
		}

		match, err := m.orch.matches.FindByID(ctx, m.orch.db, matchID)
		if err != nil || match == nil {
			m.orch.logger.Error("tournament match lookup failed",
				"tournament_id", id, "match_id", matchID, "error", err)
			continue
		}
		if match.InProgress() {
			// Aborted match; no result to score.
			continue
		}
		score(tally, p, match.Result)

		m.record(id, matchID, tally)
	}

	m.finish(id, tally)
}

func score(tally map[string]*domain.Standing, p pairing, result domain.MatchResult) {
	for _, agent := range [2]string{p.white, p.black} {
		if tally[agent] == nil {
			tally[agent] = &domain.Standing{Agent: agent}
		}
		tally[agent].Played++
	}
	switch result {
	case domain.ResultWhite:
		tally[p.white].Wins++
		tally[p.white].Score++
		tally[p.black].Losses++
	case domain.ResultBlack:
		tally[p.black].Wins++
		tally[p.black].Score++
		tally[p.white].Losses++
	case domain.ResultDraw:
		tally[p.white].Draws++
		tally[p.black].Draws++
		tally[p.white].Score += 0.5
		tally[p.black].Score += 0.5
	}
}

func (m *TournamentManager) record(id, matchID uuid.UUID, tally map[string]*domain.Standing) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tournaments[id]
	if !ok {
		return
	}
	t.Played = append(t.Played, matchID)
	t.Standings = standings(tally)
}

func (m *TournamentManager) finish(id uuid.UUID, tally map[string]*domain.Standing) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tournaments[id]
	if !ok {
		return
	}
	t.Status = domain.TournamentComplete
	t.Standings = standings(tally)

	m.orch.logger.Info("tournament complete",
		"tournament_id", id, "matches", len(t.Played))
}

// standings flattens the tally, ordered by score descending then name.
func standings(tally map[string]*domain.Standing) []domain.Standing {
	out := make([]domain.Standing, 0, len(tally))
	for _, s := range tally {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Agent < out[j].Agent
	})
	return out
}

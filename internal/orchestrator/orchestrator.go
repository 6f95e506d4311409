// Package orchestrator runs matches end to end: it drives the external move
// engine, persists every move, feeds the realtime bus, and triggers settlement
// and rating updates. One goroutine per match; everything inside a match is
// strictly sequential.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/chessarena/platform/internal/bus"
	"github.com/chessarena/platform/internal/domain"
	"github.com/chessarena/platform/internal/engine"
	"github.com/chessarena/platform/internal/repository"
	"github.com/google/uuid"
)

// Settler is the slice of the betting engine the match loop needs.
type Settler interface {
	SettleMove(ctx context.Context, matchID uuid.UUID, preMoveFEN, move string) error
	SettleFinal(ctx context.Context, matchID uuid.UUID, result domain.MatchResult, moveCount int) error
	VoidMatch(ctx context.Context, matchID uuid.UUID) error
}

// RatingUpdater applies one rating update per completed match.
type RatingUpdater interface {
	Update(ctx context.Context, white, black string, result domain.MatchResult) error
}

// Orchestrator starts and runs matches.
type Orchestrator struct {
	db        repository.DBTX
	matches   repository.MatchRepository
	engine    engine.MoveEngine
	settler   Settler
	ratings   RatingUpdater
	broker    *bus.Broker
	snapshots *bus.SnapshotStore
	registry  Registry

	// rootCtx outlives the HTTP request that started a match; loops stop on
	// process shutdown, not on client disconnect.
	rootCtx      context.Context
	defaultDelay time.Duration
	maxDelay     time.Duration
	logger       *slog.Logger
}

// NewOrchestrator wires an orchestrator. rootCtx should be the process
// lifetime context.
func NewOrchestrator(
	rootCtx context.Context,
	db repository.DBTX,
	matches repository.MatchRepository,
	eng engine.MoveEngine,
	settler Settler,
	ratings RatingUpdater,
	broker *bus.Broker,
	snapshots *bus.SnapshotStore,
	registry Registry,
	defaultDelay, maxDelay time.Duration,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		db:           db,
		matches:      matches,
		engine:       eng,
		settler:      settler,
		ratings:      ratings,
		broker:       broker,
		snapshots:    snapshots,
		registry:     registry,
		rootCtx:      rootCtx,
		defaultDelay: defaultDelay,
		maxDelay:     maxDelay,
		logger:       logger,
	}
}

// Start creates a match and spawns its loop. It returns after the match row
// is durably inserted; moves arrive asynchronously on the bus.
func (o *Orchestrator) Start(ctx context.Context, white, black string, delay time.Duration) (uuid.UUID, error) {
	if err := domain.ValidateAgentName(white); err != nil {
		return uuid.Nil, domain.ErrValidation("white: " + err.Error())
	}
	if err := domain.ValidateAgentName(black); err != nil {
		return uuid.Nil, domain.ErrValidation("black: " + err.Error())
	}
	if delay <= 0 {
		delay = o.defaultDelay
	}
	if o.maxDelay > 0 && delay > o.maxDelay {
		delay = o.maxDelay
	}

	ref, err := o.engine.CreateGame(ctx, white, black)
	if err != nil {
		return uuid.Nil, domain.ErrEngineFailure("create game", err)
	}

	match := &domain.Match{
		ID:         uuid.New(),
		WhiteAgent: white,
		BlackAgent: black,
		Moves:      []domain.Move{},
		Position:   ref.FEN,
		CreatedAt:  time.Now().UTC(),
	}
	if err := o.matches.Insert(ctx, o.db, match); err != nil {
		return uuid.Nil, fmt.Errorf("insert match: %w", err)
	}

	entry := &Entry{
		MatchID:    match.ID,
		GameID:     ref.GameID,
		WhiteAgent: white,
		BlackAgent: black,
		StartedAt:  match.CreatedAt,
		Done:       make(chan struct{}),
	}
	o.registry.Register(entry)

	o.snapshots.Set(domain.Snapshot{
		MatchID:    match.ID,
		WhiteAgent: white,
		BlackAgent: black,
		Position:   ref.FEN,
		Turn:       "white",
	})
	o.publish(match.ID, domain.EventMatchStarted, 0, domain.MatchStartedPayload{
		WhiteAgent: white,
		BlackAgent: black,
		Position:   ref.FEN,
	})

	go o.run(entry, ref.FEN, delay)

	o.logger.Info("match started",
		"match_id", match.ID, "game_id", ref.GameID,
		"white", white, "black", black, "delay", delay)
	return match.ID, nil
}

// run is the per-match loop. Strictly sequential: the next engine call never
// starts before the previous move's persistence, fan-out, and settlement have
// finished.
func (o *Orchestrator) run(entry *Entry, startFEN string, delay time.Duration) {
	ctx := o.rootCtx
	defer close(entry.Done)

	fen := startFEN
	seq := 0
	for {
		if ctx.Err() != nil {
			o.abort(entry, "shutting down")
			return
		}

		preMove := fen
		res, err := o.engine.ApplyNextMove(ctx, entry.GameID)
		if err != nil {
			o.logger.Error("engine move failed",
				"match_id", entry.MatchID, "game_id", entry.GameID, "error", err)
			o.abort(entry, "move engine failure")
			return
		}
		seq++
		fen = res.FEN

		move := domain.Move{Move: res.Move, Elapsed: res.Elapsed}
		if err := o.matches.AppendMove(ctx, o.db, entry.MatchID, move, fen); err != nil {
			o.logger.Error("append move failed",
				"match_id", entry.MatchID, "move", res.Move, "error", err)
			o.abort(entry, "persistence failure")
			return
		}

		agent := entry.WhiteAgent
		turn := "black"
		if seq%2 == 0 {
			agent = entry.BlackAgent
			turn = "white"
		}

		snap := domain.Snapshot{
			MatchID:    entry.MatchID,
			WhiteAgent: entry.WhiteAgent,
			BlackAgent: entry.BlackAgent,
			Position:   fen,
			Turn:       turn,
			MoveCount:  seq,
		}
		if !res.IsOver {
			if st, err := o.engine.State(ctx, entry.GameID); err == nil {
				snap.LegalMoves = st.LegalMoves
			} else {
				o.logger.Warn("state fetch failed",
					"match_id", entry.MatchID, "error", err)
			}
		}
		o.snapshots.Set(snap)

		o.publish(entry.MatchID, domain.EventMovePlayed, seq, domain.MovePlayedPayload{
			Move:     res.Move,
			Position: fen,
			Seq:      seq,
			Elapsed:  res.Elapsed,
			Agent:    agent,
		})

		// Settlement is awaited so move N+1 odds never race move N payouts.
		// A failure here is logged and the match plays on; the status guard
		// keeps a later retry harmless.
		if err := o.settler.SettleMove(ctx, entry.MatchID, preMove, res.Move); err != nil {
			o.logger.Error("move settlement failed",
				"match_id", entry.MatchID, "seq", seq, "error", err)
		}

		if res.IsOver {
			o.finish(ctx, entry, res.Result, fen, seq)
			return
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
		}
	}
}

// finish finalizes a completed match: result persisted first, then ratings,
// then final settlement, then the terminal bus event.
func (o *Orchestrator) finish(ctx context.Context, entry *Entry, engineResult, fen string, moveCount int) {
	result, ok := domain.ResultFromEngine(engineResult)
	if !ok {
		o.logger.Error("unknown engine result",
			"match_id", entry.MatchID, "result", engineResult)
		o.abort(entry, "unknown result from engine")
		return
	}

	if err := o.matches.SetResult(ctx, o.db, entry.MatchID, result, fen); err != nil {
		o.logger.Error("persist result failed",
			"match_id", entry.MatchID, "result", result, "error", err)
	}
	if err := o.ratings.Update(ctx, entry.WhiteAgent, entry.BlackAgent, result); err != nil {
		o.logger.Error("rating update failed",
			"match_id", entry.MatchID, "error", err)
	}
	if err := o.settler.SettleFinal(ctx, entry.MatchID, result, moveCount); err != nil {
		o.logger.Error("final settlement failed",
			"match_id", entry.MatchID, "error", err)
	}

	o.publish(entry.MatchID, domain.EventMatchEnded, moveCount+1, domain.MatchEndedPayload{
		Result:    result,
		MoveCount: moveCount,
		Position:  fen,
	})
	o.teardown(entry)

	o.logger.Info("match ended",
		"match_id", entry.MatchID, "result", result, "moves", moveCount)
}

// abort ends a match without a result: spectators get match_error, active
// bets are voided with refunds, and committed moves stay inspectable.
func (o *Orchestrator) abort(entry *Entry, reason string) {
	// Settlement must survive root context cancellation during shutdown.
	ctx := context.WithoutCancel(o.rootCtx)

	o.publish(entry.MatchID, domain.EventMatchError, -1, domain.MatchErrorPayload{Message: reason})
	if err := o.settler.VoidMatch(ctx, entry.MatchID); err != nil {
		o.logger.Error("void failed", "match_id", entry.MatchID, "error", err)
	}
	o.teardown(entry)

	o.logger.Warn("match aborted", "match_id", entry.MatchID, "reason", reason)
}

func (o *Orchestrator) teardown(entry *Entry) {
	o.registry.Deregister(entry.MatchID)
	o.broker.CloseTopic(entry.MatchID)
	o.snapshots.Delete(entry.MatchID)
}

func (o *Orchestrator) publish(matchID uuid.UUID, typ domain.EventType, seq int, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		o.logger.Error("marshal event payload", "type", typ, "error", err)
		return
	}
	o.broker.Publish(domain.Event{
		Type:       typ,
		MatchID:    matchID,
		Seq:        seq,
		Payload:    raw,
		OccurredAt: time.Now().UTC(),
	})
}

// Package betting implements the three per-match prediction markets: quoting,
// placement, and settlement. Settlement never recomputes odds; every bet pays
// at the odds locked when it was placed.
package betting

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chessarena/platform/internal/bus"
	"github.com/chessarena/platform/internal/chessutil"
	"github.com/chessarena/platform/internal/domain"
	"github.com/chessarena/platform/internal/ledger"
	"github.com/chessarena/platform/internal/odds"
	"github.com/chessarena/platform/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TxBeginner opens database transactions. Satisfied by pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Engine is the betting engine. It owns the bet lifecycle; wallet balances
// move only through the ledger engine it wraps.
type Engine struct {
	db      repository.DBTX
	txer    TxBeginner
	bets    repository.BetRepository
	matches repository.MatchRepository
	ratings repository.RatingRepository
	outbox  repository.OutboxRepository
	ledger  *ledger.Engine

	snapshots     *bus.SnapshotStore
	expectedMoves float64
	logger        *slog.Logger
}

// NewEngine wires a betting engine.
func NewEngine(
	db repository.DBTX,
	txer TxBeginner,
	bets repository.BetRepository,
	matches repository.MatchRepository,
	ratings repository.RatingRepository,
	outbox repository.OutboxRepository,
	ldg *ledger.Engine,
	snapshots *bus.SnapshotStore,
	expectedMoves float64,
	logger *slog.Logger,
) *Engine {
	if expectedMoves <= 0 {
		expectedMoves = odds.DefaultExpectedMoves
	}
	return &Engine{
		db:            db,
		txer:          txer,
		bets:          bets,
		matches:       matches,
		ratings:       ratings,
		outbox:        outbox,
		ledger:        ldg,
		snapshots:     snapshots,
		expectedMoves: expectedMoves,
		logger:        logger,
	}
}

// Quote prices all three markets for a match. The next-move market is omitted
// when no live snapshot exists (match finished or not yet registered).
func (e *Engine) Quote(ctx context.Context, matchID uuid.UUID) (*domain.Quotes, error) {
	match, err := e.matches.FindByID(ctx, e.db, matchID)
	if err != nil {
		return nil, fmt.Errorf("find match: %w", err)
	}
	if match == nil {
		return nil, domain.ErrNotFound("match", matchID.String())
	}

	white, err := e.ratings.GetOrInit(ctx, e.db, match.WhiteAgent)
	if err != nil {
		return nil, fmt.Errorf("white rating: %w", err)
	}
	black, err := e.ratings.GetOrInit(ctx, e.db, match.BlackAgent)
	if err != nil {
		return nil, fmt.Errorf("black rating: %w", err)
	}

	quotes := &domain.Quotes{
		MatchID:   matchID,
		Outcome:   odds.Outcome(white.Rating, black.Rating),
		MoveCount: odds.MoveCount(e.expectedMoves),
	}
	if snap, ok := e.snapshots.Get(matchID); ok {
		quotes.NextMove = odds.NextMove(snap.Position, snap.LegalMoves)
	}
	return quotes, nil
}

// Place validates and records a bet, debiting the stake atomically with the
// bet insert. Odds for the selection are computed now and locked on the row.
func (e *Engine) Place(ctx context.Context, walletID, matchID uuid.UUID, market domain.MarketType, selection string, stake int64) (*domain.Bet, error) {
	if err := domain.ValidateSelection(market, selection); err != nil {
		return nil, err
	}
	if err := domain.ValidatePositiveAmount(stake); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	match, err := e.matches.FindByID(ctx, e.db, matchID)
	if err != nil {
		return nil, fmt.Errorf("find match: %w", err)
	}
	if match == nil {
		return nil, domain.ErrNotFound("match", matchID.String())
	}
	if !match.InProgress() {
		return nil, domain.ErrConflict("match is already finalized")
	}

	locked, err := e.lockOdds(ctx, match, market, selection)
	if err != nil {
		return nil, err
	}

	bet := &domain.Bet{
		ID:        uuid.New(),
		WalletID:  walletID,
		MatchID:   matchID,
		Market:    market,
		Selection: selection,
		Stake:     stake,
		Odds:      locked,
		Status:    domain.BetActive,
		CreatedAt: time.Now().UTC(),
	}

	tx, err := e.txer.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// The in-progress check above races match finalization: the orchestrator
	// could finalize and sweep active bets between it and our commit, leaving
	// this bet active forever. Re-verify under the transaction's lock.
	open, err := e.matches.LockOpen(ctx, tx, matchID)
	if err != nil {
		return nil, fmt.Errorf("lock match: %w", err)
	}
	if !open {
		return nil, domain.ErrConflict("match is already finalized")
	}

	// The bet row must exist before the stake transaction references it.
	if err := e.bets.Insert(ctx, tx, bet); err != nil {
		return nil, fmt.Errorf("insert bet: %w", err)
	}
	if _, _, err := e.ledger.Debit(ctx, tx, ledger.EntryParams{
		WalletID: walletID,
		Amount:   stake,
		Type:     domain.TxBetStake,
		BetID:    &bet.ID,
		MatchID:  &matchID,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	e.logger.Info("bet placed",
		"bet_id", bet.ID, "match_id", matchID, "market", market,
		"selection", selection, "stake", stake, "odds", locked)
	return bet, nil
}

// lockOdds computes the current decimal odds for one selection.
func (e *Engine) lockOdds(ctx context.Context, match *domain.Match, market domain.MarketType, selection string) (float64, error) {
	switch market {
	case domain.MarketOutcome:
		white, err := e.ratings.GetOrInit(ctx, e.db, match.WhiteAgent)
		if err != nil {
			return 0, fmt.Errorf("white rating: %w", err)
		}
		black, err := e.ratings.GetOrInit(ctx, e.db, match.BlackAgent)
		if err != nil {
			return 0, fmt.Errorf("black rating: %w", err)
		}
		return odds.Outcome(white.Rating, black.Rating)[selection], nil

	case domain.MarketMoveCount:
		return odds.MoveCount(e.expectedMoves)[selection], nil

	case domain.MarketNextMove:
		snap, ok := e.snapshots.Get(match.ID)
		if !ok {
			return 0, domain.ErrMarketUnavailable("no live position for next-move market")
		}
		quote := odds.NextMove(snap.Position, snap.LegalMoves)
		o, ok := quote[selection]
		if !ok {
			return 0, domain.ErrMarketUnavailable("no legal moves for selection " + selection)
		}
		return o, nil
	}
	return 0, domain.ErrValidation("unknown market type: " + string(market))
}

// SettleMove resolves the active next-move bets after one move is applied.
// The winning piece type is read from the pre-move position: it is the piece
// standing on the move's origin square before the move was made.
func (e *Engine) SettleMove(ctx context.Context, matchID uuid.UUID, preMoveFEN, move string) error {
	pieceType, err := chessutil.MovingPieceType(preMoveFEN, move)
	if err != nil {
		return fmt.Errorf("resolve moving piece for %q: %w", move, err)
	}

	active, err := e.bets.ListActive(ctx, e.db, matchID, []domain.MarketType{domain.MarketNextMove})
	if err != nil {
		return fmt.Errorf("list active next-move bets: %w", err)
	}

	for i := range active {
		bet := &active[i]
		status := domain.BetLost
		if bet.Selection == pieceType {
			status = domain.BetWon
		}
		if err := e.settleOne(ctx, bet, status); err != nil {
			e.logger.Error("next-move settlement failed",
				"bet_id", bet.ID, "match_id", matchID, "error", err)
		}
	}
	return nil
}

// SettleFinal resolves the remaining active bets when a match completes:
// outcome bets against the result, move-count bets against the total bracket.
// Any next-move bet still active has no further move to settle against and is
// voided with a refund.
func (e *Engine) SettleFinal(ctx context.Context, matchID uuid.UUID, result domain.MatchResult, moveCount int) error {
	active, err := e.bets.ListActive(ctx, e.db, matchID, []domain.MarketType{
		domain.MarketOutcome, domain.MarketMoveCount, domain.MarketNextMove,
	})
	if err != nil {
		return fmt.Errorf("list active bets: %w", err)
	}

	bracket := odds.BracketFor(moveCount)
	for i := range active {
		bet := &active[i]
		var status domain.BetStatus
		switch bet.Market {
		case domain.MarketOutcome:
			status = domain.BetLost
			if bet.Selection == string(result) {
				status = domain.BetWon
			}
		case domain.MarketMoveCount:
			status = domain.BetLost
			if bet.Selection == bracket {
				status = domain.BetWon
			}
		case domain.MarketNextMove:
			status = domain.BetVoid
		}
		if err := e.settleOne(ctx, bet, status); err != nil {
			e.logger.Error("final settlement failed",
				"bet_id", bet.ID, "match_id", matchID, "error", err)
		}
	}
	return nil
}

// VoidMatch voids every active bet on an aborted match and refunds the stakes.
func (e *Engine) VoidMatch(ctx context.Context, matchID uuid.UUID) error {
	active, err := e.bets.ListActive(ctx, e.db, matchID, []domain.MarketType{
		domain.MarketOutcome, domain.MarketMoveCount, domain.MarketNextMove,
	})
	if err != nil {
		return fmt.Errorf("list active bets: %w", err)
	}

	for i := range active {
		if err := e.settleOne(ctx, &active[i], domain.BetVoid); err != nil {
			e.logger.Error("void failed",
				"bet_id", active[i].ID, "match_id", matchID, "error", err)
		}
	}
	return nil
}

// settleOne moves one bet to a terminal status in its own transaction. The
// status-guarded UPDATE makes the transition idempotent: a bet that lost the
// race to another settler is skipped without error.
func (e *Engine) settleOne(ctx context.Context, bet *domain.Bet, status domain.BetStatus) error {
	var payout int64
	switch status {
	case domain.BetWon:
		payout = odds.Payout(bet.Stake, bet.Odds)
	case domain.BetVoid:
		payout = bet.Stake
	}

	tx, err := e.txer.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	settled, err := e.bets.Settle(ctx, tx, bet.ID, status, payout)
	if err != nil {
		return fmt.Errorf("settle bet: %w", err)
	}
	if !settled {
		// Already settled by a concurrent path; nothing to do.
		return nil
	}

	if payout > 0 {
		txType := domain.TxBetPayout
		if status == domain.BetVoid {
			txType = domain.TxBetRefund
		}
		if _, _, err := e.ledger.Credit(ctx, tx, ledger.EntryParams{
			WalletID: bet.WalletID,
			Amount:   payout,
			Type:     txType,
			BetID:    &bet.ID,
			MatchID:  &bet.MatchID,
		}); err != nil {
			return err
		}
	}

	settledCopy := *bet
	settledCopy.Status = status
	settledCopy.Payout = payout
	now := time.Now().UTC()
	settledCopy.SettledAt = &now
	if err := e.outbox.Insert(ctx, tx, domain.NewBetSettledEvent(&settledCopy)); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	e.logger.Info("bet settled",
		"bet_id", bet.ID, "match_id", bet.MatchID, "status", status, "payout", payout)
	return nil
}

// ListByWallet returns a wallet's bets, newest first.
func (e *Engine) ListByWallet(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.Bet, error) {
	return e.bets.ListByWallet(ctx, e.db, walletID, limit)
}

// Package app assembles the repositories, services, and HTTP routes.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/chessarena/platform/internal/betting"
	"github.com/chessarena/platform/internal/bus"
	"github.com/chessarena/platform/internal/engine"
	"github.com/chessarena/platform/internal/guard"
	"github.com/chessarena/platform/internal/handler"
	"github.com/chessarena/platform/internal/infra"
	"github.com/chessarena/platform/internal/ledger"
	"github.com/chessarena/platform/internal/orchestrator"
	"github.com/chessarena/platform/internal/rating"
	"github.com/chessarena/platform/internal/repository"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RouterDeps holds all dependencies needed by NewRouter.
type RouterDeps struct {
	// RootCtx bounds the match loops; it should outlive individual requests.
	RootCtx context.Context
	Pool    *pgxpool.Pool
	Config  *infra.Config
	Logger  *slog.Logger
}

// NewRouter assembles the chi.Router with all routes and middleware.
func NewRouter(deps RouterDeps) chi.Router {
	pool := deps.Pool
	cfg := deps.Config
	logger := deps.Logger

	// Repositories
	walletRepo := repository.NewWalletRepository()
	txRepo := repository.NewTransactionRepository()
	matchRepo := repository.NewMatchRepository()
	betRepo := repository.NewBetRepository()
	ratingRepo := repository.NewRatingRepository()
	outboxRepo := repository.NewOutboxRepository()

	// Ledger engine
	ledgerEngine := ledger.NewEngine(walletRepo, txRepo, outboxRepo)

	// Realtime plumbing
	broker := bus.NewBroker(logger)
	snapshots := bus.NewSnapshotStore()

	// External move engine
	engineClient := engine.NewClient(cfg.EngineURL, cfg.EngineTimeout, logger)

	// Services
	bettingEngine := betting.NewEngine(pool, pool, betRepo, matchRepo, ratingRepo,
		outboxRepo, ledgerEngine, snapshots, cfg.ExpectedMoveCount, logger)
	ratingSvc := rating.NewService(pool, ratingRepo, logger)
	leaderboard := rating.NewLeaderboard(ratingSvc, cfg.LeaderboardTTL)

	registry := orchestrator.NewRegistry()
	orch := orchestrator.NewOrchestrator(deps.RootCtx, pool, matchRepo, engineClient,
		bettingEngine, ratingSvc, broker, snapshots, registry,
		cfg.DefaultMoveDelay, cfg.MaxMoveDelay, logger)
	tournaments := orchestrator.NewTournamentManager(orch)

	// Handlers
	sessionHandler := handler.NewSessionHandler(ledgerEngine, pool)
	walletHandler := handler.NewWalletHandler(walletRepo, txRepo, pool)
	matchHandler := handler.NewMatchHandler(orch, registry, matchRepo, engineClient, pool)
	betLimiter := guard.NewRateLimiter(cfg.BetRateLimit, cfg.BetRateWindow)
	betIdem := guard.NewIdempotencyGuard(cfg.IdempotencyTTL)
	bettingHandler := handler.NewBettingHandler(bettingEngine, betLimiter, betIdem)
	leaderboardHandler := handler.NewLeaderboardHandler(leaderboard)
	tournamentHandler := handler.NewTournamentHandler(tournaments)
	streamHandler := handler.NewStreamHandler(broker, snapshots)

	// Router
	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(handler.Recovery(logger))
	r.Use(handler.RequestID)
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.CORS)

	// Health (no session)
	r.Get("/health", handler.HealthHandler(pool))

	r.Route("/api", func(r chi.Router) {
		// SSE must not inherit the JSON content type.
		r.Get("/matches/{matchID}/stream", streamHandler.Stream)

		r.Group(func(r chi.Router) {
			r.Use(handler.JSONContentType)

			// Session bootstrap (no token yet)
			r.Post("/session", sessionHandler.Create)

			// Public match and market data
			r.Get("/agents", matchHandler.Agents)
			r.Get("/leaderboard", leaderboardHandler.Get)
			r.Post("/matches", matchHandler.Create)
			r.Get("/matches", matchHandler.List)
			r.Get("/matches/{matchID}", matchHandler.Get)
			r.Get("/matches/{matchID}/odds", bettingHandler.GetOdds)
			r.Post("/matches/{matchID}/validate", matchHandler.ValidateMove)
			r.Get("/matches/{matchID}/analysis", matchHandler.Analysis)
			r.Post("/tournaments", tournamentHandler.Create)
			r.Get("/tournaments/{tournamentID}", tournamentHandler.Get)

			// Session-scoped routes
			r.Group(func(r chi.Router) {
				r.Use(handler.RequireSession(walletRepo, pool))

				r.Route("/wallet", func(r chi.Router) {
					r.Get("/balance", walletHandler.GetBalance)
					r.Get("/transactions", walletHandler.GetTransactions)
				})

				r.Post("/bets", bettingHandler.PlaceBet)
				r.Get("/bets", bettingHandler.MyBets)
			})
		})
	})

	return r
}

// ServerTimeouts are the HTTP server timeouts. WriteTimeout is zero because
// the SSE stream holds response writers open indefinitely.
type ServerTimeouts struct {
	Read  time.Duration
	Write time.Duration
	Idle  time.Duration
}

// DefaultServerTimeouts returns the production timeout set.
func DefaultServerTimeouts() ServerTimeouts {
	return ServerTimeouts{
		Read:  15 * time.Second,
		Write: 0,
		Idle:  60 * time.Second,
	}
}

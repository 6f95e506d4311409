// Command outbox-consumer tails the Kafka topics fed by the outbox poller and
// writes an audit log of every posted transaction and settled bet. It is the
// downstream half of the outbox pipeline; the API process never depends on it.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chessarena/platform/internal/domain"
	"github.com/chessarena/platform/internal/infra"
	"github.com/segmentio/kafka-go"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("outbox consumer failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.KafkaEnabled {
		return fmt.Errorf("KAFKA_ENABLED must be true for the outbox consumer")
	}

	groupID := "arena-outbox-consumer"
	if s := os.Getenv("KAFKA_GROUP_ID"); s != "" {
		groupID = s
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: strings.Split(cfg.KafkaBrokers, ","),
		GroupID: groupID,
		GroupTopics: []string{
			string(domain.EventTransactionPosted),
			string(domain.EventBetSettled),
		},
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})
	defer reader.Close()

	logger.Info("outbox-consumer starting", "brokers", cfg.KafkaBrokers, "group", groupID)

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Info("outbox-consumer shutting down")
				return nil
			}
			logger.Error("read message", "error", err)
			continue
		}
		logEvent(logger, msg)
	}
}

// envelope matches what the outbox poller publishes.
type envelope struct {
	EventID       string          `json:"event_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

func logEvent(logger *slog.Logger, msg kafka.Message) {
	var env envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		logger.Error("malformed event", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		return
	}

	switch domain.EventType(env.EventType) {
	case domain.EventTransactionPosted:
		var tx domain.Transaction
		if err := json.Unmarshal(env.Payload, &tx); err != nil {
			logger.Error("malformed transaction payload", "event_id", env.EventID, "error", err)
			return
		}
		logger.Info("transaction posted",
			"event_id", env.EventID,
			"wallet_id", tx.WalletID,
			"type", tx.Type,
			"amount", tx.Amount,
			"balance_after", tx.BalanceAfter,
		)
	case domain.EventBetSettled:
		var bet domain.Bet
		if err := json.Unmarshal(env.Payload, &bet); err != nil {
			logger.Error("malformed bet payload", "event_id", env.EventID, "error", err)
			return
		}
		logger.Info("bet settled",
			"event_id", env.EventID,
			"bet_id", bet.ID,
			"match_id", bet.MatchID,
			"market", bet.Market,
			"status", bet.Status,
			"stake", bet.Stake,
			"payout", bet.Payout,
		)
	default:
		logger.Info("event", "event_type", env.EventType, "event_id", env.EventID)
	}
}

package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates all domain event types, both on the realtime bus and
// in the Kafka outbox.
type EventType string

const (
	EventMatchStarted      EventType = "arena.match.started"
	EventMovePlayed        EventType = "arena.match.move"
	EventMatchEnded        EventType = "arena.match.ended"
	EventMatchError        EventType = "arena.match.error"
	EventTransactionPosted EventType = "arena.wallet.transaction.posted"
	EventBetSettled        EventType = "arena.bet.settled"
)

// Event is a realtime bus message scoped to one match. Seq is the per-match
// sequence number; subscribers observe strictly increasing values.
type Event struct {
	Type       EventType       `json:"type"`
	MatchID    uuid.UUID       `json:"match_id"`
	Seq        int             `json:"seq"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// MatchStartedPayload announces a new match on the bus.
type MatchStartedPayload struct {
	WhiteAgent string `json:"white_agent"`
	BlackAgent string `json:"black_agent"`
	Position   string `json:"position"`
}

// MovePlayedPayload carries one applied move.
type MovePlayedPayload struct {
	Move     string  `json:"move"`
	Position string  `json:"position"`
	Seq      int     `json:"seq"`
	Elapsed  float64 `json:"elapsed"`
	Agent    string  `json:"agent"`
}

// MatchEndedPayload carries the final result.
type MatchEndedPayload struct {
	Result    MatchResult `json:"result"`
	MoveCount int         `json:"move_count"`
	Position  string      `json:"position"`
}

// MatchErrorPayload tells spectators to stop waiting for further moves.
type MatchErrorPayload struct {
	Message string `json:"message"`
}

// Snapshot is the latest-known state of a live match, overwritten on every
// move and replayed once to late-joining subscribers.
type Snapshot struct {
	MatchID    uuid.UUID `json:"match_id"`
	WhiteAgent string    `json:"white_agent"`
	BlackAgent string    `json:"black_agent"`
	Position   string    `json:"position"` // FEN
	LegalMoves []string  `json:"legal_moves"`
	Turn       string    `json:"turn"` // "white" or "black"
	MoveCount  int       `json:"move_count"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// AggregateType enumerates the aggregate root types for outbox events.
type AggregateType string

const (
	AggregateMatch  AggregateType = "match"
	AggregateWallet AggregateType = "wallet"
)

// OutboxDraft is the payload written to the event_outbox table and later
// published to Kafka by the poller.
type OutboxDraft struct {
	EventID       uuid.UUID       `json:"event_id"`
	AggregateType AggregateType   `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     EventType       `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// NewTransactionPostedEvent creates the standard wallet event for a ledger entry.
func NewTransactionPostedEvent(tx *Transaction) OutboxDraft {
	payload, _ := json.Marshal(tx)
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateWallet,
		AggregateID:   tx.WalletID.String(),
		EventType:     EventTransactionPosted,
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewBetSettledEvent records a terminal bet status transition.
func NewBetSettledEvent(bet *Bet) OutboxDraft {
	payload, _ := json.Marshal(bet)
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateMatch,
		AggregateID:   bet.MatchID.String(),
		EventType:     EventBetSettled,
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

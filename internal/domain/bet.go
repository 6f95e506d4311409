package domain

import (
	"time"

	"github.com/google/uuid"
)

// MarketType enumerates the three prediction markets open on every match.
type MarketType string

const (
	MarketOutcome   MarketType = "outcome"    // white | black | draw
	MarketMoveCount MarketType = "move_count" // total-move bracket
	MarketNextMove  MarketType = "next_move"  // piece type of the next move
)

// BetStatus is the lifecycle state of a bet. Transitions exactly once,
// from active to one of the terminal states.
type BetStatus string

const (
	BetActive BetStatus = "active"
	BetWon    BetStatus = "won"
	BetLost   BetStatus = "lost"
	BetVoid   BetStatus = "void" // match aborted; stake refunded
)

// Move-count bracket labels, in ascending order.
var MoveCountBrackets = []string{"1-20", "21-40", "41-60", "61-80", "80+"}

// Piece type selections for the next-move market.
var PieceTypes = []string{"pawn", "knight", "bishop", "rook", "queen", "king"}

// Bet is a wager on one market of one match. Odds are locked at placement
// and used verbatim at settlement.
type Bet struct {
	ID        uuid.UUID  `json:"id"`
	WalletID  uuid.UUID  `json:"wallet_id"`
	MatchID   uuid.UUID  `json:"match_id"`
	Market    MarketType `json:"market"`
	Selection string     `json:"selection"`
	Stake     int64      `json:"stake"`
	Odds      float64    `json:"odds"`
	Status    BetStatus  `json:"status"`
	Payout    int64      `json:"payout"`
	CreatedAt time.Time  `json:"created_at"`
	SettledAt *time.Time `json:"settled_at,omitempty"`
}

// MarketQuote is an ephemeral snapshot of decimal odds per selection for one
// market type. Never authoritative for settlement.
type MarketQuote map[string]float64

// Quotes bundles the three markets for a match. NextMove is empty when the
// live position is unavailable.
type Quotes struct {
	MatchID   uuid.UUID   `json:"match_id"`
	Outcome   MarketQuote `json:"outcome"`
	MoveCount MarketQuote `json:"move_count"`
	NextMove  MarketQuote `json:"next_move,omitempty"`
}

// ValidateSelection checks that a selection string is legal for the market.
func ValidateSelection(market MarketType, selection string) error {
	switch market {
	case MarketOutcome:
		switch MatchResult(selection) {
		case ResultWhite, ResultBlack, ResultDraw:
			return nil
		}
		return ErrValidation("outcome selection must be one of white, black, draw")
	case MarketMoveCount:
		for _, b := range MoveCountBrackets {
			if selection == b {
				return nil
			}
		}
		return ErrValidation("unknown move-count bracket: " + selection)
	case MarketNextMove:
		for _, p := range PieceTypes {
			if selection == p {
				return nil
			}
		}
		return ErrValidation("unknown piece type: " + selection)
	}
	return ErrValidation("unknown market type: " + string(market))
}

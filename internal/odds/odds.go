// Package odds computes decimal odds for the three per-match markets. All
// functions are pure: quotes are derived on demand from ratings and position
// and are never authoritative for settlement.
package odds

import (
	"math"

	"github.com/chessarena/platform/internal/chessutil"
	"github.com/chessarena/platform/internal/domain"
)

// Margin is the fixed book margin, distributed proportionally across the
// outcomes of each market.
const Margin = 0.05

// minOdds is the floor applied after margin so no selection pays below 1.01.
const minOdds = 1.01

// DefaultExpectedMoves is the move-count market's default distribution center.
const DefaultExpectedMoves = 40.0

// bracketMidpoints pairs each move-count bracket with the midpoint its
// Gaussian weight is evaluated at. The open-ended 80+ bracket uses 90.
var bracketMidpoints = map[string]float64{
	"1-20":  10,
	"21-40": 30,
	"41-60": 50,
	"61-80": 70,
	"80+":   90,
}

// price converts a probability into decimal odds with the book margin baked
// in: implied probabilities across a market sum to 1+Margin.
func price(p float64) float64 {
	o := 1.0 / (p * (1.0 + Margin))
	if o < minOdds {
		return minOdds
	}
	return o
}

// Outcome prices the win/draw market from the two agents' ratings. Expected
// scores come from the logistic ELO formula; the draw mass grows as the two
// expectations converge.
func Outcome(whiteRating, blackRating int) domain.MarketQuote {
	ew := domain.ExpectedScore(whiteRating, blackRating)
	eb := 1.0 - ew

	draw := math.Max(0.05, 1.0-math.Abs(ew-eb)) * 0.35

	total := ew + eb + draw
	return domain.MarketQuote{
		string(domain.ResultWhite): round(price(ew / total)),
		string(domain.ResultBlack): round(price(eb / total)),
		string(domain.ResultDraw):  round(price(draw / total)),
	}
}

// MoveCount prices the five total-move brackets with a Gaussian-shaped
// density centered on the expected move count (spread 0.4 x expected),
// evaluated at each bracket's midpoint.
func MoveCount(expected float64) domain.MarketQuote {
	if expected <= 0 {
		expected = DefaultExpectedMoves
	}
	sigma := 0.4 * expected

	weights := make(map[string]float64, len(bracketMidpoints))
	var total float64
	for bracket, mid := range bracketMidpoints {
		d := mid - expected
		w := math.Exp(-(d * d) / (2 * sigma * sigma))
		weights[bracket] = w
		total += w
	}

	quote := make(domain.MarketQuote, len(weights))
	for bracket, w := range weights {
		quote[bracket] = round(price(w / total))
	}
	return quote
}

// NextMove prices piece types by their share of the position's legal moves.
// Returns nil when the position is unknown or has no legal moves: the market
// reports unavailable rather than fabricating odds.
func NextMove(fen string, legalMoves []string) domain.MarketQuote {
	if fen == "" || len(legalMoves) == 0 {
		return nil
	}

	counts := chessutil.CountByPieceType(fen, legalMoves)
	var total int
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		return nil
	}

	quote := make(domain.MarketQuote, len(counts))
	for piece, n := range counts {
		quote[piece] = round(price(float64(n) / float64(total)))
	}
	return quote
}

// BracketFor assigns a total move count to its bracket. Pure and total.
func BracketFor(moveCount int) string {
	switch {
	case moveCount <= 20:
		return "1-20"
	case moveCount <= 40:
		return "21-40"
	case moveCount <= 60:
		return "41-60"
	case moveCount <= 80:
		return "61-80"
	default:
		return "80+"
	}
}

// Payout computes the credit for a winning bet at its locked odds.
func Payout(stake int64, odds float64) int64 {
	return int64(math.Round(float64(stake) * odds))
}

// round keeps quotes at two decimals, matching how they are displayed.
func round(o float64) float64 {
	return math.Round(o*100) / 100
}

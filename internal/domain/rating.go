package domain

import (
	"math"
	"time"
)

// DefaultRating is assigned to an agent on first sight.
const DefaultRating = 1500

// EloK is the K-factor applied to every rating update.
const EloK = 32.0

// Rating is an agent's skill record. Agents are pure labels keyed by name.
type Rating struct {
	Agent     string    `json:"agent"`
	Rating    int       `json:"rating"`
	Wins      int       `json:"wins"`
	Losses    int       `json:"losses"`
	Draws     int       `json:"draws"`
	Games     int       `json:"games"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ExpectedScore is the standard logistic ELO expectation of self against
// other: 1 / (1 + 10^((other-self)/400)).
func ExpectedScore(self, other int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(other-self)/400.0))
}

// ActualScores returns the (white, black) actual scores for a result.
func ActualScores(result MatchResult) (float64, float64) {
	switch result {
	case ResultWhite:
		return 1, 0
	case ResultBlack:
		return 0, 1
	default:
		return 0.5, 0.5
	}
}

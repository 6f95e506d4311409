package domain

import (
	"time"

	"github.com/google/uuid"
)

// MatchResult is the final outcome of a match.
type MatchResult string

const (
	ResultWhite MatchResult = "white"
	ResultBlack MatchResult = "black"
	ResultDraw  MatchResult = "draw"
)

// ResultFromEngine maps the engine's PGN-style result strings to a MatchResult.
// Unknown strings map to ("", false).
func ResultFromEngine(s string) (MatchResult, bool) {
	switch s {
	case "1-0":
		return ResultWhite, true
	case "0-1":
		return ResultBlack, true
	case "1/2-1/2":
		return ResultDraw, true
	}
	return "", false
}

// Move is one half-move as recorded in the match history.
type Move struct {
	Move    string  `json:"move"`    // UCI notation, e.g. "e2e4"
	Elapsed float64 `json:"elapsed"` // agent thinking time in seconds
}

// Match is the persistent record of one game between two agents.
// Mutated only by the owning orchestrator loop; immutable once Result is set.
type Match struct {
	ID          uuid.UUID   `json:"id"`
	WhiteAgent  string      `json:"white_agent"`
	BlackAgent  string      `json:"black_agent"`
	Moves       []Move      `json:"moves"`
	Position    string      `json:"position"` // FEN after the last move
	Result      MatchResult `json:"result,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

// InProgress reports whether the match has no final result yet.
func (m *Match) InProgress() bool { return m.Result == "" }

// MoveCount returns the number of half-moves played.
func (m *Match) MoveCount() int { return len(m.Moves) }

package domain

import (
	"time"

	"github.com/google/uuid"
)

// TournamentStatus tracks a round-robin tournament's progress.
type TournamentStatus string

const (
	TournamentRunning  TournamentStatus = "running"
	TournamentComplete TournamentStatus = "complete"
)

// Standing is one agent's aggregate over a tournament. Score counts 1 per
// win and 0.5 per draw.
type Standing struct {
	Agent  string  `json:"agent"`
	Played int     `json:"played"`
	Wins   int     `json:"wins"`
	Losses int     `json:"losses"`
	Draws  int     `json:"draws"`
	Score  float64 `json:"score"`
}

// Tournament is the in-memory state of a round-robin run. Matches execute
// one at a time to bound load on the move engine.
type Tournament struct {
	ID           uuid.UUID        `json:"id"`
	Agents       []string         `json:"agents"`
	Status       TournamentStatus `json:"status"`
	TotalMatches int              `json:"total_matches"`
	Played       []uuid.UUID      `json:"played_matches"`
	Standings    []Standing       `json:"standings"`
	CreatedAt    time.Time        `json:"created_at"`
}

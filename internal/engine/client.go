// Package engine is the HTTP client for the external move engine. The engine
// owns all chess rules: it registers agents, selects and applies moves, and
// reports game state. This package only speaks its wire protocol.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/chessarena/platform/internal/guard"
)

// GameRef identifies a game on the engine side.
type GameRef struct {
	GameID string `json:"game_id"`
	White  string `json:"white"`
	Black  string `json:"black"`
	FEN    string `json:"fen"`
}

// MoveResult is the engine's response to a move request: it picks and applies
// a move for whichever agent is to act.
type MoveResult struct {
	Move    string  `json:"move"` // UCI
	FEN     string  `json:"fen"`
	IsOver  bool    `json:"is_over"`
	Result  string  `json:"result"` // "1-0" | "0-1" | "1/2-1/2" | null
	Elapsed float64 `json:"elapsed"`
}

// GameState is the engine's full public game state.
type GameState struct {
	FEN            string   `json:"fen"`
	LegalMoves     []string `json:"legal_moves"`
	Moves          []string `json:"moves"`
	Turn           string   `json:"turn"`
	IsOver         bool     `json:"is_over"`
	Result         string   `json:"result"`
	FullmoveNumber int      `json:"fullmove_number"`
	White          string   `json:"white"`
	Black          string   `json:"black"`
}

// MoveValidation is the engine's answer to a what-if move check.
type MoveValidation struct {
	Valid        bool    `json:"valid"`
	ResultingFEN *string `json:"resulting_fen"`
}

// AgentInfo is the engine's metadata for one registered agent.
type AgentInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// MoveEngine is the orchestrator's view of the external engine. Satisfied by
// Client; faked in tests.
type MoveEngine interface {
	CreateGame(ctx context.Context, white, black string) (*GameRef, error)
	ApplyNextMove(ctx context.Context, gameID string) (*MoveResult, error)
	State(ctx context.Context, gameID string) (*GameState, error)
}

// Client talks to the move engine over HTTP. A per-endpoint circuit breaker
// sheds calls after repeated failures instead of queueing on a dead engine.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *guard.CircuitBreaker
	logger  *slog.Logger
}

// NewClient creates an engine client.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		breaker: guard.NewCircuitBreaker(5, 30*time.Second),
		logger:  logger,
	}
}

// CreateGame registers a new game between two named agents.
func (c *Client) CreateGame(ctx context.Context, white, black string) (*GameRef, error) {
	var ref GameRef
	err := c.post(ctx, "create", "/game/new", map[string]string{"white": white, "black": black}, &ref)
	if err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	return &ref, nil
}

// ApplyNextMove asks the engine to let the acting agent choose and apply one move.
func (c *Client) ApplyNextMove(ctx context.Context, gameID string) (*MoveResult, error) {
	var res MoveResult
	err := c.post(ctx, "move", "/game/"+gameID+"/move", nil, &res)
	if err != nil {
		return nil, fmt.Errorf("apply move: %w", err)
	}
	return &res, nil
}

// State fetches the full public state of a game.
func (c *Client) State(ctx context.Context, gameID string) (*GameState, error) {
	var st GameState
	err := c.get(ctx, "state", "/game/"+gameID+"/state", &st)
	if err != nil {
		return nil, fmt.Errorf("game state: %w", err)
	}
	return &st, nil
}

// ValidateMove checks a UCI move against the current position without playing it.
func (c *Client) ValidateMove(ctx context.Context, gameID, move string) (*MoveValidation, error) {
	var v MoveValidation
	err := c.post(ctx, "validate", "/game/"+gameID+"/validate", map[string]string{"move": move}, &v)
	if err != nil {
		return nil, fmt.Errorf("validate move: %w", err)
	}
	return &v, nil
}

// Analyze returns the engine's position analysis blob for the current board.
func (c *Client) Analyze(ctx context.Context, gameID string) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.post(ctx, "analyze", "/game/"+gameID+"/analyze", nil, &raw)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	return raw, nil
}

// Agents lists the engine's registered agents.
func (c *Client) Agents(ctx context.Context) ([]AgentInfo, error) {
	var agents []AgentInfo
	err := c.get(ctx, "agents", "/agents", &agents)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	return agents, nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, endpoint, dst)
}

func (c *Client) post(ctx context.Context, endpoint, path string, body interface{}, dst interface{}) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, endpoint, dst)
}

func (c *Client) do(req *http.Request, endpoint string, dst interface{}) error {
	if res := c.breaker.Check(req.Context(), endpoint); !res.Allowed {
		return fmt.Errorf("engine %s: %s", endpoint, res.Reason)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.breaker.RecordFailure(endpoint)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		// 4xx means the engine rejected this request, not that it is down.
		if resp.StatusCode >= 500 {
			c.breaker.RecordFailure(endpoint)
		} else {
			c.breaker.RecordSuccess(endpoint)
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error("engine request failed",
			"method", req.Method, "path", req.URL.Path,
			"status", resp.StatusCode, "body", string(body))
		return fmt.Errorf("engine returned %d: %s", resp.StatusCode, string(body))
	}

	c.breaker.RecordSuccess(endpoint)
	c.logger.Debug("engine request",
		"method", req.Method, "path", req.URL.Path,
		"status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())

	if dst == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

//go:build integration

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// CreateSession opens a new spectator session and returns the token and
// starting balance.
func (env *TestEnv) CreateSession() (token string, balance int64) {
	env.t.Helper()
	resp := env.POST("/api/session", nil, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		env.t.Fatalf("CreateSession: expected 201, got %d", resp.StatusCode)
	}

	var result struct {
		Token   string `json:"token"`
		Balance int64  `json:"balance"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		env.t.Fatalf("CreateSession: decode: %v", err)
	}
	return result.Token, result.Balance
}

// GET performs an unauthenticated GET request.
func (env *TestEnv) GET(path string) *http.Response {
	env.t.Helper()
	resp, err := http.Get(env.Server.URL + path)
	if err != nil {
		env.t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

// POST performs a POST request with an optional session token.
func (env *TestEnv) POST(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			env.t.Fatalf("POST %s: encode: %v", path, err)
		}
	}
	req, err := http.NewRequest("POST", env.Server.URL+path, &buf)
	if err != nil {
		env.t.Fatalf("POST %s: new request: %v", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("X-Session-Token", token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

// POSTWithHeaders performs a POST request with a session token and extra headers.
func (env *TestEnv) POSTWithHeaders(path string, body interface{}, token string, headers map[string]string) *http.Response {
	env.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			env.t.Fatalf("POSTWithHeaders %s: encode: %v", path, err)
		}
	}
	req, err := http.NewRequest("POST", env.Server.URL+path, &buf)
	if err != nil {
		env.t.Fatalf("POSTWithHeaders %s: new request: %v", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("X-Session-Token", token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("POSTWithHeaders %s: %v", path, err)
	}
	return resp
}

// SessionGET performs a GET request carrying a session token.
func (env *TestEnv) SessionGET(path, token string) *http.Response {
	env.t.Helper()
	req, err := http.NewRequest("GET", env.Server.URL+path, nil)
	if err != nil {
		env.t.Fatalf("SessionGET %s: new request: %v", path, err)
	}
	req.Header.Set("X-Session-Token", token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("SessionGET %s: %v", path, err)
	}
	return resp
}

// OPTIONS performs an OPTIONS request.
func (env *TestEnv) OPTIONS(path string) *http.Response {
	env.t.Helper()
	req, err := http.NewRequest("OPTIONS", env.Server.URL+path, nil)
	if err != nil {
		env.t.Fatalf("OPTIONS %s: new request: %v", path, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("OPTIONS %s: %v", path, err)
	}
	return resp
}

// SeedMatch inserts an in-progress match directly, so betting routes can be
// exercised without a live move engine.
func (env *TestEnv) SeedMatch(white, black string) uuid.UUID {
	env.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	matchID := uuid.New()
	const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
	_, err := env.Pool.Exec(ctx, `
		INSERT INTO matches (id, white_agent, black_agent, moves, position)
		VALUES ($1, $2, $3, '[]'::jsonb, $4)`,
		matchID, white, black, startFEN)
	if err != nil {
		env.t.Fatalf("SeedMatch: %v", err)
	}
	return matchID
}

// FinalizeMatch sets a seeded match's result directly.
func (env *TestEnv) FinalizeMatch(matchID uuid.UUID, result string) {
	env.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := env.Pool.Exec(ctx, `
		UPDATE matches SET result = $2, completed_at = now() WHERE id = $1`,
		matchID, result)
	if err != nil {
		env.t.Fatalf("FinalizeMatch: %v", err)
	}
}

// WalletBalance reads a wallet's stored balance directly.
func (env *TestEnv) WalletBalance(token string) int64 {
	env.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var balance int64
	err := env.Pool.QueryRow(ctx,
		"SELECT balance FROM wallets WHERE id = $1", uuid.MustParse(token)).Scan(&balance)
	if err != nil {
		env.t.Fatalf("WalletBalance: %v", err)
	}
	return balance
}

// FakeUUID returns a random UUID string for test placeholders.
func FakeUUID() string {
	return uuid.New().String()
}

package engine

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Client Tests ---

func TestCreateGame(t *testing.T) {
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/game/new", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(GameRef{
			GameID: "g-1",
			White:  gotBody["white"],
			Black:  gotBody["black"],
			FEN:    "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, testLogger())
	ref, err := c.CreateGame(context.Background(), "alpha", "beta")
	require.NoError(t, err)
	assert.Equal(t, "g-1", ref.GameID)
	assert.Equal(t, "alpha", gotBody["white"])
	assert.Equal(t, "beta", gotBody["black"])
	assert.NotEmpty(t, ref.FEN)
}

func TestApplyNextMove(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/game/g-1/move", r.URL.Path)
		json.NewEncoder(w).Encode(MoveResult{
			Move:    "e2e4",
			FEN:     "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1",
			Elapsed: 0.42,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, testLogger())
	res, err := c.ApplyNextMove(context.Background(), "g-1")
	require.NoError(t, err)
	assert.Equal(t, "e2e4", res.Move)
	assert.False(t, res.IsOver)
}

func TestState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/game/g-1/state", r.URL.Path)
		require.Equal(t, http.MethodGet, r.Method)
		json.NewEncoder(w).Encode(GameState{
			FEN:        "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
			LegalMoves: []string{"e2e4", "g1f3"},
			Turn:       "white",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, testLogger())
	st, err := c.State(context.Background(), "g-1")
	require.NoError(t, err)
	assert.Len(t, st.LegalMoves, 2)
	assert.Equal(t, "white", st.Turn)
}

func TestEngineErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"game not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, testLogger())
	_, err := c.State(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "game not found")
}

func TestCircuitOpensOnRepeatedFailures(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, testLogger())
	ctx := context.Background()

	// Five consecutive 500s trip the breaker for the move endpoint.
	for i := 0; i < 5; i++ {
		_, err := c.ApplyNextMove(ctx, "g-1")
		require.Error(t, err)
	}
	require.Equal(t, 5, hits)

	_, err := c.ApplyNextMove(ctx, "g-1")
	require.Error(t, err)
	assert.Equal(t, 5, hits, "open circuit must not reach the engine")
	assert.Contains(t, err.Error(), "circuit open")

	// Other endpoints keep their own circuit.
	_, err = c.State(ctx, "g-1")
	require.Error(t, err)
	assert.Equal(t, 6, hits)
}

func TestClientRejectionsDoNotTripCircuit(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, `{"detail":"illegal move"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, testLogger())
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := c.ValidateMove(ctx, "g-1", "e2e5")
		require.Error(t, err)
	}
	assert.Equal(t, 10, hits, "4xx responses must keep the circuit closed")
}

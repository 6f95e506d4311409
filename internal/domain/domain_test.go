package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- ResultFromEngine Tests ---

func TestResultFromEngine(t *testing.T) {
	t.Run("white win", func(t *testing.T) {
		r, ok := ResultFromEngine("1-0")
		require.True(t, ok)
		assert.Equal(t, ResultWhite, r)
	})

	t.Run("black win", func(t *testing.T) {
		r, ok := ResultFromEngine("0-1")
		require.True(t, ok)
		assert.Equal(t, ResultBlack, r)
	})

	t.Run("draw", func(t *testing.T) {
		r, ok := ResultFromEngine("1/2-1/2")
		require.True(t, ok)
		assert.Equal(t, ResultDraw, r)
	})

	t.Run("unknown string", func(t *testing.T) {
		_, ok := ResultFromEngine("*")
		assert.False(t, ok)
	})
}

// --- ValidateSelection Tests ---

func TestValidateSelection(t *testing.T) {
	t.Run("valid outcome selections", func(t *testing.T) {
		for _, sel := range []string{"white", "black", "draw"} {
			assert.NoError(t, ValidateSelection(MarketOutcome, sel), sel)
		}
	})

	t.Run("invalid outcome selection", func(t *testing.T) {
		assert.Error(t, ValidateSelection(MarketOutcome, "stalemate"))
	})

	t.Run("valid move count brackets", func(t *testing.T) {
		for _, b := range MoveCountBrackets {
			assert.NoError(t, ValidateSelection(MarketMoveCount, b), b)
		}
	})

	t.Run("invalid bracket", func(t *testing.T) {
		assert.Error(t, ValidateSelection(MarketMoveCount, "100+"))
	})

	t.Run("valid piece types", func(t *testing.T) {
		for _, p := range PieceTypes {
			assert.NoError(t, ValidateSelection(MarketNextMove, p), p)
		}
	})

	t.Run("invalid piece type", func(t *testing.T) {
		assert.Error(t, ValidateSelection(MarketNextMove, "archbishop"))
	})

	t.Run("unknown market", func(t *testing.T) {
		assert.Error(t, ValidateSelection(MarketType("parlay"), "white"))
	})
}

// --- ExpectedScore Tests ---

func TestExpectedScore(t *testing.T) {
	t.Run("equal ratings", func(t *testing.T) {
		assert.InDelta(t, 0.5, ExpectedScore(1500, 1500), 1e-9)
	})

	t.Run("complementary", func(t *testing.T) {
		e := ExpectedScore(1700, 1500)
		assert.InDelta(t, 1.0, e+ExpectedScore(1500, 1700), 1e-9)
		assert.Greater(t, e, 0.5)
	})

	t.Run("400 point gap", func(t *testing.T) {
		// 1 / (1 + 10^1) for the weaker side.
		assert.InDelta(t, 1.0/11.0, ExpectedScore(1100, 1500), 1e-9)
	})
}

// --- ActualScores Tests ---

func TestActualScores(t *testing.T) {
	w, b := ActualScores(ResultWhite)
	assert.Equal(t, 1.0, w)
	assert.Equal(t, 0.0, b)

	w, b = ActualScores(ResultBlack)
	assert.Equal(t, 0.0, w)
	assert.Equal(t, 1.0, b)

	w, b = ActualScores(ResultDraw)
	assert.Equal(t, 0.5, w)
	assert.Equal(t, 0.5, b)
}

// --- Validator Tests ---

func TestValidateAgentName(t *testing.T) {
	t.Run("accepts typical names", func(t *testing.T) {
		for _, name := range []string{"gpt-4o", "stockfish_16", "maia.1900", "a"} {
			assert.NoError(t, ValidateAgentName(name), name)
		}
	})

	t.Run("rejects bad names", func(t *testing.T) {
		long := make([]byte, 70)
		for i := range long {
			long[i] = 'a'
		}
		for _, name := range []string{"", "has space", "semi;colon", string(long)} {
			assert.Error(t, ValidateAgentName(name))
		}
	})
}

func TestValidatePositiveAmount(t *testing.T) {
	assert.NoError(t, ValidatePositiveAmount(1))
	assert.Error(t, ValidatePositiveAmount(0))
	assert.Error(t, ValidatePositiveAmount(-50))
}

// --- Match Tests ---

func TestMatchInProgress(t *testing.T) {
	m := &Match{}
	assert.True(t, m.InProgress())
	m.Result = ResultDraw
	assert.False(t, m.InProgress())
}

// --- AppError Tests ---

func TestAppErrorStatusCodes(t *testing.T) {
	assert.Equal(t, 404, ErrNotFound("match", "x").Status)
	assert.Equal(t, 409, ErrConflict("done").Status)
	assert.Equal(t, 400, ErrValidation("bad").Status)
	assert.Equal(t, 400, ErrInsufficientBalance().Status)
	assert.Equal(t, 409, ErrMarketUnavailable("no position").Status)
	assert.Equal(t, 502, ErrEngineFailure("boom", nil).Status)
	assert.Equal(t, 500, ErrInternal("oops", nil).Status)
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := ErrValidation("inner")
	err := ErrInternal("outer", cause)
	assert.Equal(t, cause, err.Unwrap())
	assert.Contains(t, err.Error(), "INTERNAL_ERROR")
	assert.Contains(t, err.Error(), "inner")
}

package chessutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPieceTypeAt(t *testing.T) {
	t.Run("starting position", func(t *testing.T) {
		cases := map[string]string{
			"a1": "rook",
			"b1": "knight",
			"c1": "bishop",
			"d1": "queen",
			"e1": "king",
			"e2": "pawn",
			"e8": "king",
			"h8": "rook",
			"g7": "pawn",
		}
		for square, want := range cases {
			got, err := PieceTypeAt(StartingFEN, square)
			require.NoError(t, err, square)
			assert.Equal(t, want, got, square)
		}
	})

	t.Run("empty square", func(t *testing.T) {
		_, err := PieceTypeAt(StartingFEN, "e4")
		assert.Error(t, err)
	})

	t.Run("digit runs inside a rank", func(t *testing.T) {
		// After 1. e4: the e-pawn sits on e4, e2 is empty.
		fen := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"
		got, err := PieceTypeAt(fen, "e4")
		require.NoError(t, err)
		assert.Equal(t, "pawn", got)

		_, err = PieceTypeAt(fen, "e2")
		assert.Error(t, err)

		got, err = PieceTypeAt(fen, "f2")
		require.NoError(t, err)
		assert.Equal(t, "pawn", got)
	})

	t.Run("invalid square", func(t *testing.T) {
		for _, sq := range []string{"", "e", "i1", "a9", "e2e4"} {
			_, err := PieceTypeAt(StartingFEN, sq)
			assert.Error(t, err, sq)
		}
	})

	t.Run("malformed FEN", func(t *testing.T) {
		_, err := PieceTypeAt("not/a/fen", "e2")
		assert.Error(t, err)
	})
}

func TestMovingPieceType(t *testing.T) {
	t.Run("pawn push", func(t *testing.T) {
		got, err := MovingPieceType(StartingFEN, "e2e4")
		require.NoError(t, err)
		assert.Equal(t, "pawn", got)
	})

	t.Run("knight jump", func(t *testing.T) {
		got, err := MovingPieceType(StartingFEN, "g1f3")
		require.NoError(t, err)
		assert.Equal(t, "knight", got)
	})

	t.Run("promotion suffix is ignored", func(t *testing.T) {
		fen := "8/4P3/8/8/8/8/8/K6k w - - 0 1"
		got, err := MovingPieceType(fen, "e7e8q")
		require.NoError(t, err)
		assert.Equal(t, "pawn", got)
	})

	t.Run("short move string", func(t *testing.T) {
		_, err := MovingPieceType(StartingFEN, "e2")
		assert.Error(t, err)
	})
}

func TestCountByPieceType(t *testing.T) {
	t.Run("mixed origins", func(t *testing.T) {
		counts := CountByPieceType(StartingFEN, []string{"e2e4", "d2d4", "g1f3", "b1c3"})
		assert.Equal(t, map[string]int{"pawn": 2, "knight": 2}, counts)
	})

	t.Run("unparseable moves are skipped", func(t *testing.T) {
		counts := CountByPieceType(StartingFEN, []string{"e2e4", "zz", "e4e5"})
		assert.Equal(t, map[string]int{"pawn": 1}, counts)
	})

	t.Run("no moves", func(t *testing.T) {
		assert.Empty(t, CountByPieceType(StartingFEN, nil))
	})
}

// Package chessutil provides the minimal FEN inspection the betting markets
// need: mapping a move's origin square to the piece type standing on it.
// All rules validation is owned by the external move engine.
package chessutil

import (
	"fmt"
	"strings"
)

// StartingFEN is the standard initial position.
const StartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var pieceNames = map[byte]string{
	'p': "pawn",
	'n': "knight",
	'b': "bishop",
	'r': "rook",
	'q': "queen",
	'k': "king",
}

// PieceTypeAt returns the piece type ("pawn", "knight", ...) occupying the
// given algebraic square ("e2") in the FEN position, ignoring color.
func PieceTypeAt(fen, square string) (string, error) {
	if len(square) != 2 {
		return "", fmt.Errorf("invalid square %q", square)
	}
	file := int(square[0] - 'a')
	rank := int(square[1] - '1')
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return "", fmt.Errorf("invalid square %q", square)
	}

	placement := fen
	if i := strings.IndexByte(fen, ' '); i >= 0 {
		placement = fen[:i]
	}
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return "", fmt.Errorf("malformed FEN %q", fen)
	}

	// FEN lists rank 8 first.
	row := ranks[7-rank]
	col := 0
	for i := 0; i < len(row); i++ {
		c := row[i]
		if c >= '1' && c <= '8' {
			col += int(c - '0')
			continue
		}
		if col == file {
			name, ok := pieceNames[lower(c)]
			if !ok {
				return "", fmt.Errorf("unexpected piece %q in FEN %q", c, fen)
			}
			return name, nil
		}
		col++
	}
	return "", fmt.Errorf("no piece on %s", square)
}

// OriginSquare extracts the origin square of a UCI move ("e2e4" -> "e2").
func OriginSquare(uci string) (string, error) {
	if len(uci) < 4 {
		return "", fmt.Errorf("invalid UCI move %q", uci)
	}
	return uci[:2], nil
}

// MovingPieceType resolves the piece type that a UCI move would displace in
// the given position.
func MovingPieceType(fen, uci string) (string, error) {
	from, err := OriginSquare(uci)
	if err != nil {
		return "", err
	}
	return PieceTypeAt(fen, from)
}

// CountByPieceType tallies how many of the legal moves originate from each
// piece type. Moves with unparseable origins are skipped.
func CountByPieceType(fen string, legalMoves []string) map[string]int {
	counts := make(map[string]int)
	for _, mv := range legalMoves {
		piece, err := MovingPieceType(fen, mv)
		if err != nil {
			continue
		}
		counts[piece]++
	}
	return counts
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

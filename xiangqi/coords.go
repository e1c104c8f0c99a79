package xiangqi

import "fmt"

// Engine coordinate system (ICCS):
// - Files: a-i (left to right from red's point of view)
// - Ranks: 0-9 from red's back rank upwards
// - Example: h2e2, b0c2
//
// Board coordinate system:
// - File: 0-8 (left to right)
// - Rank: 0-9 (top to bottom, rank 0 is black's back rank)
// - Example: h2 is file 7, rank 7

// Move is a (from, to) square pair in board coordinates.
type Move struct {
	FromFile, FromRank int8
	ToFile, ToRank     int8
}

// NewMove builds a move from board coordinates.
func NewMove(fromFile, fromRank, toFile, toRank int) Move {
	return Move{int8(fromFile), int8(fromRank), int8(toFile), int8(toRank)}
}

// String returns the 4-character engine notation, e.g. "h2e2".
func (m Move) String() string {
	return squareName(int(m.FromFile), int(m.FromRank)) + squareName(int(m.ToFile), int(m.ToRank))
}

// squareName converts board coordinates to engine notation.
// (0, 9) -> a0, (7, 7) -> h2, (4, 0) -> e9
func squareName(file, rank int) string {
	return string([]byte{byte('a' + file), byte('0' + (Ranks - 1 - rank))})
}

// parseSquare converts engine notation to board coordinates.
func parseSquare(s string) (int, int, error) {
	if len(s) != 2 {
		return 0, 0, fmt.Errorf("%w: square %q", ErrInvalidMove, s)
	}
	file := int(s[0] | 0x20 - 'a')
	digit := int(s[1]) - '0'
	if file < 0 || file >= Files || digit < 0 || digit >= Ranks {
		return 0, 0, fmt.Errorf("%w: square %q", ErrInvalidMove, s)
	}
	return file, Ranks - 1 - digit, nil
}

// ParseMove converts engine notation such as "h2e2" to a board Move.
func ParseMove(s string) (Move, error) {
	if len(s) != 4 {
		return Move{}, fmt.Errorf("%w: %q", ErrInvalidMove, s)
	}
	ff, fr, err := parseSquare(s[:2])
	if err != nil {
		return Move{}, err
	}
	tf, tr, err := parseSquare(s[2:])
	if err != nil {
		return Move{}, err
	}
	return NewMove(ff, fr, tf, tr), nil
}

// ParseMoves converts a principal variation, stopping at the first token
// that is not a move.
func ParseMoves(tokens []string) []Move {
	moves := make([]Move, 0, len(tokens))
	for _, tok := range tokens {
		m, err := ParseMove(tok)
		if err != nil {
			break
		}
		moves = append(moves, m)
	}
	return moves
}

// MoveStrings converts moves to engine notation.
func MoveStrings(moves []Move) []string {
	out := make([]string, len(moves))
	for i, m := range moves {
		out[i] = m.String()
	}
	return out
}

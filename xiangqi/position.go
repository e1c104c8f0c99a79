// Package xiangqi holds the board model, move notation, and the rules used to
// validate moves and detect check, checkmate and stalemate.
package xiangqi

import (
	"errors"
	"strings"
)

// Board dimensions.
const (
	Files = 9
	Ranks = 10
)

// StartFEN is the standard opening position, red to move.
const StartFEN = "rnbakabnr/9/1c5c1/p1p1p1p1p/9/9/P1P1P1P1P/1C5C1/9/RNBAKABNR w"

var (
	ErrInvalidEncoding = errors.New("invalid position encoding")
	ErrInvalidMove     = errors.New("invalid move notation")
	ErrIllegalMove     = errors.New("illegal move")
)

// Side is one of the two players.
type Side int8

const (
	NoSide Side = iota
	Red
	Black
)

// Opponent returns the other side.
func (s Side) Opponent() Side {
	switch s {
	case Red:
		return Black
	case Black:
		return Red
	}
	return NoSide
}

func (s Side) String() string {
	switch s {
	case Red:
		return "red"
	case Black:
		return "black"
	}
	return "none"
}

// Kind is a piece type.
type Kind int8

const (
	NoKind Kind = iota
	Chariot
	Horse
	Elephant
	Advisor
	King
	Cannon
	Pawn
)

// Piece packs a kind and a side. The zero value is an empty square.
type Piece int8

// MakePiece builds a piece of the given side and kind.
func MakePiece(side Side, kind Kind) Piece {
	if side == NoSide || kind == NoKind {
		return 0
	}
	if side == Black {
		return -Piece(kind)
	}
	return Piece(kind)
}

func (p Piece) Kind() Kind {
	if p < 0 {
		return Kind(-p)
	}
	return Kind(p)
}

func (p Piece) Side() Side {
	switch {
	case p > 0:
		return Red
	case p < 0:
		return Black
	}
	return NoSide
}

// Empty reports whether the square holds no piece.
func (p Piece) Empty() bool { return p == 0 }

var kindLetters = [...]byte{NoKind: ' ', Chariot: 'r', Horse: 'n', Elephant: 'b', Advisor: 'a', King: 'k', Cannon: 'c', Pawn: 'p'}

// Letter returns the FEN letter: upper case for red, lower case for black.
func (p Piece) Letter() byte {
	l := kindLetters[p.Kind()]
	if p.Side() == Red {
		return l - 'a' + 'A'
	}
	return l
}

func kindFromLetter(c byte) Kind {
	switch c | 0x20 {
	case 'r':
		return Chariot
	case 'n', 'h':
		return Horse
	case 'b', 'e':
		return Elephant
	case 'a':
		return Advisor
	case 'k':
		return King
	case 'c':
		return Cannon
	case 'p':
		return Pawn
	}
	return NoKind
}

// Position is a board snapshot plus the side to move. It is a value type:
// Apply and FlipSide return a new Position and never touch the receiver,
// so snapshots kept in history stay valid.
type Position struct {
	Board [Ranks][Files]Piece
	Side  Side
}

// At returns the piece on (file, rank). Off-board squares are empty.
func (p *Position) At(file, rank int) Piece {
	if !OnBoard(file, rank) {
		return 0
	}
	return p.Board[rank][file]
}

// OnBoard reports whether (file, rank) is a board square.
func OnBoard(file, rank int) bool {
	return file >= 0 && file < Files && rank >= 0 && rank < Ranks
}

// Start returns the standard opening position.
func Start() Position {
	p, err := Decode(StartFEN)
	if err != nil {
		panic(err)
	}
	return p
}

// Decode parses "<board> <side>" where board is ten '/'-separated rank
// groups, black's back rank first. Trailing FEN fields are ignored.
func Decode(text string) (Position, error) {
	var pos Position
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return pos, ErrInvalidEncoding
	}
	groups := strings.Split(fields[0], "/")
	if len(groups) != Ranks {
		return pos, ErrInvalidEncoding
	}
	for rank, group := range groups {
		file := 0
		for i := 0; i < len(group); i++ {
			c := group[i]
			if c >= '1' && c <= '9' {
				file += int(c - '0')
				if file > Files {
					return pos, ErrInvalidEncoding
				}
				continue
			}
			kind := kindFromLetter(c)
			if kind == NoKind || file >= Files {
				return pos, ErrInvalidEncoding
			}
			side := Black
			if c >= 'A' && c <= 'Z' {
				side = Red
			}
			pos.Board[rank][file] = MakePiece(side, kind)
			file++
		}
		if file != Files {
			return pos, ErrInvalidEncoding
		}
	}
	switch fields[1] {
	case "w":
		pos.Side = Red
	case "b":
		pos.Side = Black
	default:
		return pos, ErrInvalidEncoding
	}
	return pos, nil
}

// Encode renders the position in the form accepted by Decode.
func Encode(p Position) string {
	var b strings.Builder
	b.Grow(64)
	for rank := 0; rank < Ranks; rank++ {
		if rank > 0 {
			b.WriteByte('/')
		}
		gap := 0
		for file := 0; file < Files; file++ {
			pc := p.Board[rank][file]
			if pc.Empty() {
				gap++
				continue
			}
			if gap > 0 {
				b.WriteByte(byte('0' + gap))
				gap = 0
			}
			b.WriteByte(pc.Letter())
		}
		if gap > 0 {
			b.WriteByte(byte('0' + gap))
		}
	}
	if p.Side == Black {
		b.WriteString(" b")
	} else {
		b.WriteString(" w")
	}
	return b.String()
}

// Apply moves the piece at m's origin to its destination and flips the side
// to move. It does not validate the move.
func Apply(p Position, m Move) Position {
	pc := p.Board[m.FromRank][m.FromFile]
	p.Board[m.FromRank][m.FromFile] = 0
	p.Board[m.ToRank][m.ToFile] = pc
	p.Side = p.Side.Opponent()
	return p
}

// SideToMove returns the side whose turn it is.
func SideToMove(p Position) Side { return p.Side }

// FlipSide returns p with the other side to move.
func FlipSide(p Position) Position {
	p.Side = p.Side.Opponent()
	return p
}

// WithSide returns p with side to move set to s.
func WithSide(p Position, s Side) Position {
	p.Side = s
	return p
}

package xiangqi

// Outcome is the result of a game as seen from a single position.
type Outcome int8

const (
	OutcomeNone Outcome = iota
	OutcomeRed
	OutcomeBlack
	OutcomeDraw
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRed:
		return "red wins"
	case OutcomeBlack:
		return "black wins"
	case OutcomeDraw:
		return "draw"
	}
	return "in progress"
}

func outcomeFor(s Side) Outcome {
	switch s {
	case Red:
		return OutcomeRed
	case Black:
		return OutcomeBlack
	}
	return OutcomeNone
}

// Status summarises the terminal state of a position.
type Status struct {
	Check     bool
	Checkmate bool
	Stalemate bool
	Winner    Outcome
}

// findKing locates side's king, looking in the palace first and then over the
// whole board in case the position was set up by hand.
func findKing(p *Position, side Side) (int, int, bool) {
	king := MakePiece(side, King)
	lo, hi := 0, 2
	if side == Red {
		lo, hi = Ranks-3, Ranks-1
	}
	for r := lo; r <= hi; r++ {
		for f := palaceLeft; f <= palaceRight; f++ {
			if p.Board[r][f] == king {
				return f, r, true
			}
		}
	}
	for r := 0; r < Ranks; r++ {
		for f := 0; f < Files; f++ {
			if p.Board[r][f] == king {
				return f, r, true
			}
		}
	}
	return 0, 0, false
}

// sideInCheck reports whether side's king is attacked in p, regardless of
// whose turn it is.
func sideInCheck(p *Position, side Side) bool {
	kf, kr, ok := findKing(p, side)
	if !ok {
		return false
	}
	enemy := side.Opponent()
	probe := *p
	probe.Side = enemy
	for r := 0; r < Ranks; r++ {
		for f := 0; f < Files; f++ {
			pc := probe.Board[r][f]
			if pc.Side() != enemy {
				continue
			}
			if pc.Kind() == King {
				// Kings may not face each other on an open file.
				if f == kf && between(&probe, f, r, kf, kr) == 0 {
					return true
				}
				continue
			}
			if isLegal(&probe, NewMove(f, r, kf, kr)) {
				return true
			}
		}
	}
	return false
}

// IsInCheck reports whether the side to move is in check.
func IsInCheck(p Position) bool {
	return sideInCheck(&p, p.Side)
}

func hasEscape(p *Position) bool {
	found := false
	forEachMove(p, func(Move) bool {
		found = true
		return false
	})
	return found
}

// IsCheckmate reports whether the side to move is in check with no move that
// gets out of it.
func IsCheckmate(p Position) bool {
	return sideInCheck(&p, p.Side) && !hasEscape(&p)
}

// IsStalemate reports whether the side to move is not in check but has no
// legal move.
func IsStalemate(p Position) bool {
	return !sideInCheck(&p, p.Side) && !hasEscape(&p)
}

// Winner decides the game from p. A missing king loses even without a
// recorded mate, which covers positions reached by editing or engine play.
func Winner(p Position) Outcome {
	return Evaluate(p).Winner
}

// Evaluate computes check, checkmate, stalemate and winner in one pass.
func Evaluate(p Position) Status {
	var st Status
	_, _, redKing := findKing(&p, Red)
	_, _, blackKing := findKing(&p, Black)

	st.Check = sideInCheck(&p, p.Side)
	escape := hasEscape(&p)
	st.Checkmate = st.Check && !escape
	st.Stalemate = !st.Check && !escape

	switch {
	case st.Checkmate:
		st.Winner = outcomeFor(p.Side.Opponent())
	case redKing && !blackKing:
		st.Winner = OutcomeRed
	case blackKing && !redKing:
		st.Winner = OutcomeBlack
	case st.Stalemate:
		st.Winner = OutcomeDraw
	}
	return st
}

package xiangqi

// River and palace geometry in board coordinates. Black owns ranks 0-4,
// red owns ranks 5-9.
const (
	blackRiverEdge = 4
	redRiverEdge   = 5

	palaceLeft  = 3
	palaceRight = 5
)

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// inPalace reports whether (file, rank) lies in side's 3x3 palace.
func inPalace(side Side, file, rank int) bool {
	if file < palaceLeft || file > palaceRight {
		return false
	}
	if side == Red {
		return rank >= Ranks-3
	}
	return rank <= 2
}

// ownHalf reports whether rank is on side's half of the river.
func ownHalf(side Side, rank int) bool {
	if side == Red {
		return rank >= redRiverEdge
	}
	return rank <= blackRiverEdge
}

// forward returns the rank delta of a pawn advance for side.
func forward(side Side) int {
	if side == Red {
		return -1
	}
	return 1
}

// between counts pieces strictly between two squares on a shared file or
// rank. Callers must ensure the squares are aligned.
func between(p *Position, ff, fr, tf, tr int) int {
	n := 0
	if ff == tf {
		lo, hi := fr, tr
		if lo > hi {
			lo, hi = hi, lo
		}
		for r := lo + 1; r < hi; r++ {
			if !p.Board[r][ff].Empty() {
				n++
			}
		}
		return n
	}
	lo, hi := ff, tf
	if lo > hi {
		lo, hi = hi, lo
	}
	for f := lo + 1; f < hi; f++ {
		if !p.Board[fr][f].Empty() {
			n++
		}
	}
	return n
}

// IsLegal checks the shape and obstruction rules for m: both squares on the
// board, a piece of the side to move on the origin, no friendly piece on the
// destination, and the piece's own movement rule. It does not check whether
// the move exposes the mover's king; see IsLegalMove.
func IsLegal(p Position, m Move) bool {
	return isLegal(&p, m)
}

func isLegal(p *Position, m Move) bool {
	ff, fr, tf, tr := int(m.FromFile), int(m.FromRank), int(m.ToFile), int(m.ToRank)
	if !OnBoard(ff, fr) || !OnBoard(tf, tr) {
		return false
	}
	pc := p.Board[fr][ff]
	if pc.Empty() {
		return false
	}
	side := pc.Side()
	if side != p.Side {
		return false
	}
	dst := p.Board[tr][tf]
	if dst.Side() == side {
		return false
	}

	df, dr := tf-ff, tr-fr
	switch pc.Kind() {
	case Chariot:
		if df != 0 && dr != 0 {
			return false
		}
		return between(p, ff, fr, tf, tr) == 0
	case Horse:
		switch {
		case abs(df) == 2 && abs(dr) == 1:
			return p.Board[fr][ff+df/2].Empty()
		case abs(df) == 1 && abs(dr) == 2:
			return p.Board[fr+dr/2][ff].Empty()
		}
		return false
	case Elephant:
		if abs(df) != 2 || abs(dr) != 2 {
			return false
		}
		if !ownHalf(side, tr) {
			return false
		}
		return p.Board[fr+dr/2][ff+df/2].Empty()
	case Advisor:
		if abs(df) != 1 || abs(dr) != 1 {
			return false
		}
		return inPalace(side, tf, tr)
	case King:
		if abs(df)+abs(dr) != 1 {
			return false
		}
		return inPalace(side, tf, tr)
	case Cannon:
		if df != 0 && dr != 0 {
			return false
		}
		screens := between(p, ff, fr, tf, tr)
		if dst.Empty() {
			return screens == 0
		}
		return screens == 1
	case Pawn:
		fwd := forward(side)
		if df == 0 && dr == fwd {
			return true
		}
		crossed := !ownHalf(side, fr)
		return crossed && dr == 0 && abs(df) == 1
	}
	return false
}

// IsLegalMove is IsLegal plus the requirement that the mover's own king is
// not left in check (flying general included).
func IsLegalMove(p Position, m Move) bool {
	if !isLegal(&p, m) {
		return false
	}
	next := Apply(p, m)
	return !sideInCheck(&next, p.Side)
}

// LegalMoves lists every move for the side to move that passes IsLegalMove.
func LegalMoves(p Position) []Move {
	var moves []Move
	forEachMove(&p, func(m Move) bool {
		moves = append(moves, m)
		return true
	})
	return moves
}

// forEachMove calls fn for each fully legal move of the side to move until
// fn returns false.
func forEachMove(p *Position, fn func(Move) bool) {
	side := p.Side
	for fr := 0; fr < Ranks; fr++ {
		for ff := 0; ff < Files; ff++ {
			if p.Board[fr][ff].Side() != side {
				continue
			}
			for tr := 0; tr < Ranks; tr++ {
				for tf := 0; tf < Files; tf++ {
					m := NewMove(ff, fr, tf, tr)
					if !isLegal(p, m) {
						continue
					}
					next := Apply(*p, m)
					if sideInCheck(&next, side) {
						continue
					}
					if !fn(m) {
						return
					}
				}
			}
		}
	}
}

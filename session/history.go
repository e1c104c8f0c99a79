package session

import "xiangqi-local/xiangqi"

// History is a linear move list with a pointer. Moves after the pointer form
// the redo tail.
type History struct {
	moves   []xiangqi.Move
	pointer int
}

// Push drops the redo tail, appends m and advances past it.
func (h *History) Push(m xiangqi.Move) {
	h.moves = append(h.moves[:h.pointer], m)
	h.pointer++
}

// Back moves the pointer back one move. Returns false if already at the start.
func (h *History) Back() bool {
	if h.pointer == 0 {
		return false
	}
	h.pointer--
	return true
}

// Next moves the pointer forward one move. Returns false if there is no redo tail.
func (h *History) Next() bool {
	if h.pointer >= len(h.moves) {
		return false
	}
	h.pointer++
	return true
}

// Reset clears all moves.
func (h *History) Reset() {
	h.moves = nil
	h.pointer = 0
}

// Load replaces the history with moves and points past the last one.
func (h *History) Load(moves []xiangqi.Move) {
	h.moves = append([]xiangqi.Move(nil), moves...)
	h.pointer = len(h.moves)
}

// Played returns the moves up to the pointer.
func (h *History) Played() []xiangqi.Move {
	return append([]xiangqi.Move(nil), h.moves[:h.pointer]...)
}

// All returns every move, including the redo tail.
func (h *History) All() []xiangqi.Move {
	return append([]xiangqi.Move(nil), h.moves...)
}

func (h *History) Pointer() int { return h.pointer }
func (h *History) Len() int     { return len(h.moves) }

// Replay recomputes the position at the pointer from start.
func (h *History) Replay(start xiangqi.Position) xiangqi.Position {
	p := start
	for _, m := range h.moves[:h.pointer] {
		p = xiangqi.Apply(p, m)
	}
	return p
}

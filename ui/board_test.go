package ui

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"

	"xiangqi-local/config"
	"xiangqi-local/types"
	"xiangqi-local/xiangqi"
)

func newTestBoard(t *testing.T) *BoardUI {
	t.Helper()
	cfg := config.DefaultConfig
	b := NewBoard(&cfg, nil)
	b.SetSnapshot(types.Snapshot{Start: xiangqi.Start(), Position: xiangqi.Start()})
	return b
}

func TestActivatePicksAndDrops(t *testing.T) {
	b := newTestBoard(t)
	if _, ok := b.Activate(); ok {
		t.Fatal("first activate should only place the cursor")
	}
	if f, r, ok := b.Cursor(); !ok || f != 4 || r != 7 {
		t.Fatalf("cursor at %d,%d", f, r)
	}

	// h2 is the red cannon at file 7, rank 7.
	b.MoveCursor(3, 0)
	if _, ok := b.Activate(); ok {
		t.Fatal("picking up a piece returned a move")
	}
	if f, r, ok := b.Selected(); !ok || f != 7 || r != 7 {
		t.Fatalf("selected %d,%d,%v", f, r, ok)
	}
	b.MoveCursor(-3, 0)
	m, ok := b.Activate()
	if !ok || m.String() != "h2e2" {
		t.Fatalf("Activate = %v, %v; want h2e2", m, ok)
	}
	if _, _, ok := b.Selected(); ok {
		t.Fatal("selection kept after the move")
	}
}

func TestActivateIgnoresOpponentPieces(t *testing.T) {
	b := newTestBoard(t)
	b.MoveCursor(0, 0)
	b.MoveCursor(0, -5) // e9 area, black's side
	b.MoveCursor(0, -2)
	if _, ok := b.Activate(); ok {
		t.Fatal("move without a selection")
	}
	if _, _, ok := b.Selected(); ok {
		t.Fatal("picked up a black piece on red's turn")
	}
}

func TestSnapshotDropsStaleSelection(t *testing.T) {
	b := newTestBoard(t)
	b.MoveCursor(0, 0)
	b.MoveCursor(3, 0)
	b.Activate()
	b.SetSnapshot(types.Snapshot{Position: xiangqi.FlipSide(xiangqi.Start())})
	if _, _, ok := b.Selected(); ok {
		t.Fatal("selection survived a change of side")
	}
}

func TestResetSelectionOrder(t *testing.T) {
	b := newTestBoard(t)
	b.MoveCursor(0, 0)
	b.MoveCursor(3, 0)
	b.Activate()
	if !b.ResetSelection() {
		t.Fatal("nothing cleared")
	}
	if _, _, ok := b.Cursor(); !ok {
		t.Fatal("cursor cleared with the selection")
	}
	if !b.ResetSelection() || b.ResetSelection() {
		t.Fatal("second reset should clear the cursor, third nothing")
	}
}

func TestMoveCursorStaysOnBoard(t *testing.T) {
	b := newTestBoard(t)
	b.MoveCursor(0, 0)
	for i := 0; i < 20; i++ {
		b.MoveCursor(1, 0)
		b.MoveCursor(0, 1)
	}
	if f, r, _ := b.Cursor(); f != xiangqi.Files-1 || r != xiangqi.Ranks-1 {
		t.Fatalf("cursor at %d,%d", f, r)
	}
}

func TestPieceGlyphWidth(t *testing.T) {
	for _, side := range []xiangqi.Side{xiangqi.Red, xiangqi.Black} {
		for k := xiangqi.Chariot; k <= xiangqi.Pawn; k++ {
			p := xiangqi.MakePiece(side, k)
			if w := runewidth.StringWidth(pieceGlyph(p, true)); w != 2 {
				t.Errorf("%c glyph width %d", p.Letter(), w)
			}
			if g := pieceGlyph(p, false); g != string(p.Letter()) {
				t.Errorf("letter glyph %q", g)
			}
		}
	}
}

func TestGridRuneRiverBanks(t *testing.T) {
	if r := gridRune(3, 4); r != '┴' {
		t.Errorf("black bank = %c", r)
	}
	if r := gridRune(3, 5); r != '┬' {
		t.Errorf("red bank = %c", r)
	}
	if r := gridRune(0, 0); r != '┌' {
		t.Errorf("corner = %c", r)
	}
}

func TestRenderMovesMarksPointer(t *testing.T) {
	moves := xiangqi.ParseMoves([]string{"h2e2", "h9g7", "h0g2"})
	out := renderMoves(types.Snapshot{Start: xiangqi.Start(), Moves: moves, Pointer: 2})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d rows:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[1], "[white]>[-]") || !strings.Contains(lines[1], "h9g7") {
		t.Errorf("pointer row = %q", lines[1])
	}
	if !strings.Contains(lines[2], "[dimgray]h0g2[-]") {
		t.Errorf("redo row = %q", lines[2])
	}
}

// Package ui specifies custom controls for tview to analyse xiangqi positions in the terminal.
package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/tview"

	"xiangqi-local/config"
	"xiangqi-local/types"
	"xiangqi-local/xiangqi"
)

const (
	cellWidth  = 4 // glyph (2 columns) + connector
	rankLabelW = 3
)

type palette struct {
	board, river, red, black, pieceBG, line tcell.Color
	cursorFG, cursorBG, selected, lastMove  tcell.Color
	check                                   tcell.Color
}

// BoardUI draws the position and turns cursor selections into moves.
type BoardUI struct {
	Box   *tview.Box
	snap  types.Snapshot
	hint  *tview.TextView
	cfg   *config.Config
	pal   palette
	focus bool

	curFile, curRank int
	selFile, selRank int
}

func NewBoard(c *config.Config, hint *tview.TextView) *BoardUI {
	b := &BoardUI{
		Box:     tview.NewBox(),
		hint:    hint,
		curFile: -1, curRank: -1,
		selFile: -1, selRank: -1,
	}
	b.snap.Position = xiangqi.Start()
	b.SetConfig(c)
	b.Box.SetDrawFunc(b.draw)
	return b
}

func (b *BoardUI) SetConfig(c *config.Config) {
	col := c.Theme.Colors
	b.pal = palette{
		board:    tcell.PaletteColor(col.BoardColor),
		river:    tcell.PaletteColor(col.RiverColor),
		red:      tcell.PaletteColor(col.RedColor),
		black:    tcell.PaletteColor(col.BlackColor),
		pieceBG:  tcell.PaletteColor(col.PieceBG),
		line:     tcell.PaletteColor(col.LineColor),
		cursorFG: tcell.PaletteColor(col.CursorColorFG),
		cursorBG: tcell.PaletteColor(col.CursorColorBG),
		selected: tcell.PaletteColor(col.SelectedBG),
		lastMove: tcell.PaletteColor(col.LastMoveBG),
		check:    tcell.PaletteColor(col.CheckBG),
	}
	b.cfg = c
}

// SetSnapshot replaces the displayed state.
func (b *BoardUI) SetSnapshot(s types.Snapshot) {
	b.snap = s
	if b.selFile >= 0 {
		p := s.Position.At(b.selFile, b.selRank)
		if p.Side() != s.Position.Side {
			b.clearSelection()
		}
	}
	b.refreshHint()
}

// ToggleFocusMode toggles focus mode and returns the new state.
func (b *BoardUI) ToggleFocusMode() bool {
	b.focus = !b.focus
	b.refreshHint()
	return b.focus
}

func (b *BoardUI) SetFocusMode(enabled bool) {
	b.focus = enabled
	b.refreshHint()
}

// Cursor returns the cursor square, if shown.
func (b *BoardUI) Cursor() (file, rank int, ok bool) {
	return b.curFile, b.curRank, b.curFile >= 0
}

// Selected returns the square holding the piece picked up for a move.
func (b *BoardUI) Selected() (file, rank int, ok bool) {
	return b.selFile, b.selRank, b.selFile >= 0
}

// MoveCursor shifts the cursor. The first call places it on the last move's
// destination, or on the red cannon file when nothing was played.
func (b *BoardUI) MoveCursor(df, dr int) {
	if b.curFile < 0 {
		if m, ok := b.snap.LastMove(); ok {
			b.curFile, b.curRank = int(m.ToFile), int(m.ToRank)
		} else {
			b.curFile, b.curRank = xiangqi.Files/2, xiangqi.Ranks-3
		}
		return
	}
	if !xiangqi.OnBoard(b.curFile+df, b.curRank+dr) {
		return
	}
	b.curFile += df
	b.curRank += dr
}

// Activate acts on the cursor square. It picks up a piece of the side to
// move, or returns the move from the picked-up piece to the cursor.
func (b *BoardUI) Activate() (xiangqi.Move, bool) {
	if b.curFile < 0 {
		b.MoveCursor(0, 0)
		return xiangqi.Move{}, false
	}
	pos := b.snap.Position
	p := pos.At(b.curFile, b.curRank)
	switch {
	case b.selFile == b.curFile && b.selRank == b.curRank:
		b.clearSelection()
	case !p.Empty() && p.Side() == pos.Side:
		b.selFile, b.selRank = b.curFile, b.curRank
	case b.selFile >= 0:
		m := xiangqi.NewMove(b.selFile, b.selRank, b.curFile, b.curRank)
		b.clearSelection()
		return m, true
	}
	b.refreshHint()
	return xiangqi.Move{}, false
}

// ResetSelection drops the picked-up piece, then the cursor. It reports
// whether anything was cleared.
func (b *BoardUI) ResetSelection() bool {
	if b.selFile >= 0 {
		b.clearSelection()
		b.refreshHint()
		return true
	}
	if b.curFile >= 0 {
		b.curFile, b.curRank = -1, -1
		return true
	}
	return false
}

func (b *BoardUI) clearSelection() {
	b.selFile, b.selRank = -1, -1
}

// Size returns the drawn width and height including coordinates.
func (b *BoardUI) Size() (int, int) {
	return rankLabelW + (xiangqi.Files-1)*cellWidth + 2, xiangqi.Ranks + 2
}

// screenRow maps a board rank to a row offset, leaving a row for the river.
func screenRow(rank int) int {
	if rank >= xiangqi.Ranks/2 {
		return rank + 1
	}
	return rank
}

func (b *BoardUI) draw(screen tcell.Screen, x, y, width, height int) (int, int, int, int) {
	pos := &b.snap.Position
	left := x + rankLabelW
	lineStyle := tcell.StyleDefault.Background(b.pal.board).Foreground(b.pal.line)

	var lastFrom, lastTo [2]int
	last, hasLast := b.snap.LastMove()
	if hasLast {
		lastFrom = [2]int{int(last.FromFile), int(last.FromRank)}
		lastTo = [2]int{int(last.ToFile), int(last.ToRank)}
	}
	checkFile, checkRank := -1, -1
	if b.snap.Status.Check {
		checkFile, checkRank = kingSquare(pos, pos.Side)
	}

	for rank := 0; rank < xiangqi.Ranks; rank++ {
		row := y + screenRow(rank)
		for file := 0; file < xiangqi.Files; file++ {
			col := left + file*cellWidth
			sq := [2]int{file, rank}
			bg := b.pal.board
			switch {
			case file == b.curFile && rank == b.curRank && b.cfg.Theme.DrawCursorBackground:
				bg = b.pal.cursorBG
			case file == b.selFile && rank == b.selRank:
				bg = b.pal.selected
			case file == checkFile && rank == checkRank:
				bg = b.pal.check
			case hasLast && (sq == lastFrom || sq == lastTo):
				bg = b.pal.lastMove
			}

			piece := pos.At(file, rank)
			if piece.Empty() {
				r := b.cfg.Theme.Symbols.Point
				if b.cfg.Theme.UseGridLines {
					r = gridRune(file, rank)
				}
				if file == b.curFile && rank == b.curRank && !b.cfg.Theme.DrawCursorBackground {
					r = b.cfg.Theme.Symbols.Cursor
				}
				style := lineStyle.Background(bg)
				screen.SetContent(col, row, r, nil, style)
				connector := '─'
				if file == xiangqi.Files-1 {
					connector = ' '
				}
				screen.SetContent(col+1, row, connector, nil, lineStyle)
			} else {
				fg := b.pal.red
				if piece.Side() == xiangqi.Black {
					fg = b.pal.black
				}
				if bg == b.pal.board {
					bg = b.pal.pieceBG
				}
				drawGlyph(screen, col, row, pieceGlyph(piece, b.cfg.Theme.FullWidthGlyphs), tcell.StyleDefault.Background(bg).Foreground(fg).Bold(true))
			}
			if file < xiangqi.Files-1 {
				screen.SetContent(col+2, row, '─', nil, lineStyle)
				screen.SetContent(col+3, row, '─', nil, lineStyle)
			}
		}
	}
	b.drawRiver(screen, left, y+xiangqi.Ranks/2)
	b.drawCoordinates(screen, x, y)
	w, h := b.Size()
	return x, y, w, h
}

func (b *BoardUI) drawRiver(screen tcell.Screen, left, row int) {
	style := tcell.StyleDefault.Background(b.pal.river).Foreground(b.pal.line)
	span := (xiangqi.Files-1)*cellWidth + 1
	for i := 0; i < span; i++ {
		screen.SetContent(left+i, row, b.cfg.Theme.Symbols.River, nil, style)
	}
	label := " river "
	if b.cfg.Theme.FullWidthGlyphs {
		label = " 楚河  漢界 "
	}
	drawString(screen, left+(span-runewidth.StringWidth(label))/2, row, label, style)
}

func (b *BoardUI) drawCoordinates(s tcell.Screen, x, y int) {
	style := tcell.StyleDefault
	highlight := tcell.StyleDefault.Background(b.pal.cursorBG).Foreground(b.pal.cursorFG)
	left := x + rankLabelW
	for file := 0; file < xiangqi.Files; file++ {
		st := style
		if file == b.curFile {
			st = highlight
		}
		s.SetContent(left+file*cellWidth, y+xiangqi.Ranks+1, rune('a'+file), nil, st)
	}
	for rank := 0; rank < xiangqi.Ranks; rank++ {
		st := style
		if rank == b.curRank {
			st = highlight
		}
		// ranks are labelled from red's side, 0 at the bottom
		s.SetContent(x+1, y+screenRow(rank), rune('0'+xiangqi.Ranks-1-rank), nil, st)
	}
}

func (b *BoardUI) refreshHint() {
	if b.hint == nil {
		return
	}
	if b.focus {
		b.hint.SetText("  f to toggle")
		return
	}
	st := b.snap.Status
	var status string
	switch {
	case st.Checkmate:
		status = fmt.Sprintf("  Checkmate · %s", st.Winner)
	case st.Winner != xiangqi.OutcomeNone:
		status = fmt.Sprintf("  Game over · %s", st.Winner)
	case st.Stalemate:
		status = "  Stalemate"
	default:
		status = fmt.Sprintf("  %s to move", sideGlyph(b.snap.Position.Side))
		if st.Check {
			status += " · check"
		}
	}
	if f, r, ok := b.Selected(); ok {
		status += fmt.Sprintf("   picked %c%d", 'a'+f, xiangqi.Ranks-1-r)
	}
	controls := `
  hjkl/↑↓←→ move  ⏎ pick/drop  [ ] back/next  +/- lines  s side  e engine
  n new  w save  f focus  q menu`
	b.hint.SetText(status + controls)
}

var (
	redGlyphs   = [...]string{xiangqi.Chariot: "俥", xiangqi.Horse: "傌", xiangqi.Elephant: "相", xiangqi.Advisor: "仕", xiangqi.King: "帥", xiangqi.Cannon: "炮", xiangqi.Pawn: "兵"}
	blackGlyphs = [...]string{xiangqi.Chariot: "車", xiangqi.Horse: "馬", xiangqi.Elephant: "象", xiangqi.Advisor: "士", xiangqi.King: "將", xiangqi.Cannon: "砲", xiangqi.Pawn: "卒"}
)

// pieceGlyph returns the Chinese character for p, or its FEN letter.
func pieceGlyph(p xiangqi.Piece, fullWidth bool) string {
	if p.Empty() {
		return " "
	}
	if !fullWidth {
		return string(p.Letter())
	}
	if p.Side() == xiangqi.Red {
		return redGlyphs[p.Kind()]
	}
	return blackGlyphs[p.Kind()]
}

func sideGlyph(s xiangqi.Side) string {
	switch s {
	case xiangqi.Red:
		return "● Red"
	case xiangqi.Black:
		return "○ Black"
	}
	return "?"
}

// drawGlyph fills a two column cell, padding narrow glyphs.
func drawGlyph(s tcell.Screen, col, row int, glyph string, style tcell.Style) {
	w := drawString(s, col, row, glyph, style)
	for ; w < 2; w++ {
		s.SetContent(col+w, row, ' ', nil, style)
	}
}

// drawString writes text and returns the columns it took.
func drawString(s tcell.Screen, x, y int, text string, style tcell.Style) int {
	col := 0
	for _, r := range text {
		s.SetContent(x+col, y, r, nil, style)
		col += runewidth.RuneWidth(r)
	}
	return col
}

// gridRune returns the box-drawing character for an empty point.
func gridRune(file, rank int) rune {
	top := rank == 0 || rank == xiangqi.Ranks/2
	bottom := rank == xiangqi.Ranks-1 || rank == xiangqi.Ranks/2-1
	left := file == 0
	right := file == xiangqi.Files-1

	switch {
	case top && left:
		return '┌'
	case top && right:
		return '┐'
	case bottom && left:
		return '└'
	case bottom && right:
		return '┘'
	case top:
		return '┬'
	case bottom:
		return '┴'
	case left:
		return '├'
	case right:
		return '┤'
	case isPalaceCenter(file, rank):
		return '╳'
	}
	return '┼'
}

func isPalaceCenter(file, rank int) bool {
	return file == 4 && (rank == 1 || rank == 8)
}

func kingSquare(p *xiangqi.Position, side xiangqi.Side) (int, int) {
	king := xiangqi.MakePiece(side, xiangqi.King)
	for rank := 0; rank < xiangqi.Ranks; rank++ {
		for file := 0; file < xiangqi.Files; file++ {
			if p.At(file, rank) == king {
				return file, rank
			}
		}
	}
	return -1, -1
}

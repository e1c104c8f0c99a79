package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"

	"xiangqi-local/types"
	"xiangqi-local/xiangqi"
)

// maxLineMoves bounds how much of each ranked line is shown.
const maxLineMoves = 8

// GameInfoPanel displays the engine lines and move history alongside the board.
type GameInfoPanel struct {
	box *tview.TextView
}

func NewGameInfoPanel() *GameInfoPanel {
	panel := &GameInfoPanel{box: tview.NewTextView()}
	panel.box.SetDynamicColors(true)
	panel.box.SetBorder(false)
	panel.box.SetTextAlign(tview.AlignLeft)
	return panel
}

// Box returns the underlying tview component.
func (p *GameInfoPanel) Box() *tview.TextView {
	return p.box
}

func (p *GameInfoPanel) SetSnapshot(s types.Snapshot) {
	p.box.SetText(renderPanel(s))
}

func renderPanel(s types.Snapshot) string {
	var b strings.Builder

	b.WriteString("[white::b]Engine[-:-:-]\n")
	b.WriteString("[dimgray]──────────────────────────[-:-:-]\n")
	if s.Engine == "" {
		b.WriteString("[dimgray]none[-]\n")
	} else {
		fmt.Fprintf(&b, "[white]%s[-] [dimgray]%s[-]", tview.Escape(s.Engine), s.Dialect)
		if s.Thinking {
			b.WriteString(" [yellow]◌[-]")
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "[white]Lines:[-:-:-] %d\n", s.LineCount)
	if s.LastError != "" {
		fmt.Fprintf(&b, "[red]%s[-]\n", tview.Escape(s.LastError))
	}

	if len(s.Lines) > 0 {
		b.WriteString("\n[white::b]Best lines[-:-:-]\n")
		b.WriteString("[dimgray]──────────────────────────[-:-:-]\n")
		for _, l := range s.Lines {
			moves := l.Moves
			more := ""
			if len(moves) > maxLineMoves {
				moves, more = moves[:maxLineMoves], " …"
			}
			fmt.Fprintf(&b, "[yellow]%d.[-] %-6s [dimgray]d%d[-]\n    %s%s\n",
				l.Rank, l.ScoreString(), l.Depth, strings.Join(xiangqi.MoveStrings(moves), " "), more)
		}
	}

	if len(s.Moves) > 0 {
		b.WriteString("\n[white::b]Moves[-:-:-]\n")
		b.WriteString("[dimgray]──────────────────────────[-:-:-]\n")
		b.WriteString(renderMoves(s))
	}
	return b.String()
}

// renderMoves lists the history one ply per row, marking the pointer and
// dimming the redo tail.
func renderMoves(s types.Snapshot) string {
	const maxVisible = 12
	start := 0
	if s.Pointer > maxVisible {
		start = s.Pointer - maxVisible
	}
	end := start + maxVisible
	if end > len(s.Moves) {
		end = len(s.Moves)
	}

	side := s.Start.Side
	if start%2 == 1 {
		side = side.Opponent()
	}
	var b strings.Builder
	if start > 0 {
		fmt.Fprintf(&b, "[dimgray]  ··· %d earlier[-]\n", start)
	}
	for i := start; i < end; i++ {
		marker := " "
		if i == s.Pointer-1 {
			marker = "[white]>[-]"
		}
		color := "[red]R[-]"
		if side == xiangqi.Black {
			color = "[white]B[-]"
		}
		move := s.Moves[i].String()
		if i >= s.Pointer {
			move = "[dimgray]" + move + "[-]"
		}
		fmt.Fprintf(&b, "%s[dimgray]%3d.[-] %s %s\n", marker, i+1, color, move)
		side = side.Opponent()
	}
	if end < len(s.Moves) {
		fmt.Fprintf(&b, "[dimgray]  ··· %d later[-]\n", len(s.Moves)-end)
	}
	return b.String()
}

// CreateGameLayout creates the main game layout with board and side panel.
func CreateGameLayout(board *BoardUI, panel *GameInfoPanel, notes *Notifier, hint *tview.TextView) *tview.Flex {
	gameFrame := tview.NewFlex()
	RebuildNormalLayout(gameFrame, board, panel, notes, hint)
	return gameFrame
}

// CreateCenteredForm creates a centered form container for setup screens.
func CreateCenteredForm(form tview.Primitive, maxWidth int) *tview.Flex {
	centered := tview.NewFlex().SetDirection(tview.FlexColumn)
	centered.AddItem(nil, 0, 1, false)
	centered.AddItem(form, maxWidth, 0, true)
	centered.AddItem(nil, 0, 1, false)
	return centered
}

// RebuildNormalLayout restores the board, info panel, notifications and hint.
func RebuildNormalLayout(gameFrame *tview.Flex, board *BoardUI, panel *GameInfoPanel, notes *Notifier, hint *tview.TextView) {
	gameFrame.Clear()

	boardRow := tview.NewFlex().SetDirection(tview.FlexColumn)
	boardRow.AddItem(board.Box, 0, 1, true)
	boardRow.AddItem(panel.Box(), 32, 0, false)

	gameFrame.SetDirection(tview.FlexRow)
	gameFrame.AddItem(boardRow, 0, 1, true)
	gameFrame.AddItem(notes.View(), maxShownNotes, 0, false)
	gameFrame.AddItem(hint, 5, 0, false)
}

// BuildFocusLayout builds the focus mode layout with just the centered board.
func BuildFocusLayout(gameFrame *tview.Flex, board *BoardUI) {
	gameFrame.Clear()
	boardWidth, boardHeight := board.Size()

	gameFrame.SetDirection(tview.FlexRow)
	gameFrame.AddItem(nil, 0, 1, false)

	centerRow := tview.NewFlex().SetDirection(tview.FlexColumn)
	centerRow.AddItem(nil, 0, 1, false)
	centerRow.AddItem(board.Box, boardWidth, 0, true)
	centerRow.AddItem(nil, 0, 1, false)

	gameFrame.AddItem(centerRow, boardHeight, 0, true)
	gameFrame.AddItem(nil, 0, 1, false)
}

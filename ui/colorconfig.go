package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"xiangqi-local/config"
	"xiangqi-local/xiangqi"
)

type swatch struct {
	code int
	name string
}

// Warm wood tones for the board.
var boardColors = []swatch{
	{230, "Light Cream"},
	{229, "Pale Yellow"},
	{223, "Peach"},
	{222, "Gold"},
	{216, "Salmon"},
	{214, "Orange Gold"},
	{180, "Tan"},
	{179, "Light Brown"},
	{172, "Brown"},
	{137, "Walnut"},
	{136, "Dark Brown"},
	{252, "Light Gray"},
	{248, "Medium Gray"},
}

// Darker tones that stand out on the board.
var lineColors = []swatch{
	{94, "Saddle Brown"},
	{130, "Dark Orange"},
	{88, "Dark Red"},
	{52, "Dark Maroon"},
	{22, "Dark Green"},
	{24, "Dark Cyan"},
	{17, "Navy Blue"},
	{232, "Black"},
	{240, "Gray"},
}

// ColorConfigUI picks the board and line colors with a live preview.
type ColorConfigUI struct {
	flex      *tview.Flex
	colorList *tview.List
	preview   *tview.Box
	cfg       *config.Config
	onDone    func()

	board, line int
	editingLine bool
}

func NewColorConfig(cfg *config.Config, onDone func()) *ColorConfigUI {
	cc := &ColorConfigUI{
		cfg:    cfg,
		onDone: onDone,
		board:  cfg.Theme.Colors.BoardColor,
		line:   cfg.Theme.Colors.LineColor,
	}

	cc.colorList = tview.NewList()
	cc.colorList.SetBorder(true)
	cc.colorList.ShowSecondaryText(false)
	cc.populateColorList()

	cc.colorList.SetChangedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
		if index < 0 || index >= len(cc.swatches()) {
			return
		}
		if cc.editingLine {
			cc.line = lineColors[index].code
		} else {
			cc.board = boardColors[index].code
		}
	})
	cc.colorList.SetSelectedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
		if cc.editingLine {
			cc.cfg.Theme.Colors.LineColor = cc.line
			cc.editingLine = false
			cc.populateColorList()
		} else {
			cc.cfg.Theme.Colors.BoardColor = cc.board
			onDone()
		}
		cc.cfg.Save()
	})

	cc.preview = tview.NewBox()
	cc.preview.SetBorder(true)
	cc.preview.SetTitle(" Board Preview ")
	cc.preview.SetDrawFunc(cc.drawPreview)

	cc.flex = tview.NewFlex().
		AddItem(cc.colorList, 30, 0, true).
		AddItem(cc.preview, 0, 1, false)
	return cc
}

func (cc *ColorConfigUI) swatches() []swatch {
	if cc.editingLine {
		return lineColors
	}
	return boardColors
}

func (cc *ColorConfigUI) populateColorList() {
	cc.colorList.Clear()
	current := cc.board
	cc.colorList.SetTitle(" Board Color (Tab: lines) ")
	if cc.editingLine {
		current = cc.line
		cc.colorList.SetTitle(" Line Color (Tab: board) ")
	}
	for i, c := range cc.swatches() {
		cc.colorList.AddItem(fmt.Sprintf("[#%06x]████[-] %s (%d)",
			tcell.PaletteColor(c.code).Hex(), c.name, c.code), "", rune('a'+i), nil)
		if c.code == current {
			cc.colorList.SetCurrentItem(i)
		}
	}
	// adding items fires the changed callback; keep the configured value
	if cc.editingLine {
		cc.line = current
	} else {
		cc.board = current
	}
}

// previewFEN is a corner of the opening with a cannon already centred.
const previewFEN = "rnbakabnr/9/1c2c4/p1p1p1p1p/9/9/P1P1P1P1P/1C2C4/9/RNBAKABNR w"

func (cc *ColorConfigUI) drawPreview(screen tcell.Screen, x, y, width, height int) (int, int, int, int) {
	const files, ranks = 5, 4
	if width < files*cellWidth+4 || height < ranks+4 {
		return x, y, width, height
	}
	pos, _ := xiangqi.Decode(previewFEN)
	bg := tcell.PaletteColor(cc.board)
	lineStyle := tcell.StyleDefault.Background(bg).Foreground(tcell.PaletteColor(cc.line))
	left, top := x+2, y+1
	for rank := 0; rank < ranks; rank++ {
		for file := 0; file < files; file++ {
			col := left + file*cellWidth
			p := pos.At(file, rank)
			if p.Empty() {
				screen.SetContent(col, top+rank, gridRune(file, rank), nil, lineStyle)
				screen.SetContent(col+1, top+rank, '─', nil, lineStyle)
			} else {
				fg := cc.cfg.Theme.Colors.RedColor
				if p.Side() == xiangqi.Black {
					fg = cc.cfg.Theme.Colors.BlackColor
				}
				style := tcell.StyleDefault.Background(tcell.PaletteColor(cc.cfg.Theme.Colors.PieceBG)).Foreground(tcell.PaletteColor(fg))
				drawGlyph(screen, col, top+rank, pieceGlyph(p, cc.cfg.Theme.FullWidthGlyphs), style)
			}
			if file < files-1 {
				screen.SetContent(col+2, top+rank, '─', nil, lineStyle)
				screen.SetContent(col+3, top+rank, '─', nil, lineStyle)
			}
		}
	}
	info := fmt.Sprintf("Board: %d  Line: %d", cc.board, cc.line)
	drawString(screen, left, top+ranks+1, info, tcell.StyleDefault)
	return x, y, width, height
}

// Flex returns the flex container for this UI.
func (cc *ColorConfigUI) Flex() *tview.Flex {
	return cc.flex
}

func (cc *ColorConfigUI) SetInputCapture(capture func(event *tcell.EventKey) *tcell.EventKey) {
	cc.colorList.SetInputCapture(capture)
}

// ToggleMode switches between board and line color editing.
func (cc *ColorConfigUI) ToggleMode() {
	cc.editingLine = !cc.editingLine
	cc.populateColorList()
}

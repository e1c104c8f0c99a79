package ui

import (
	"fmt"
	"os"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"xiangqi-local/record"
	"xiangqi-local/xiangqi"
)

// HistoryBrowserUI lists saved games with a preview of their final position.
type HistoryBrowserUI struct {
	flex     *tview.Flex
	gameList *tview.List
	preview  *tview.Box
	hint     *tview.TextView
	dir      string
	games    []record.GameInfo
	finals   map[int]xiangqi.Position
	selected int
	onLoad   func(record.Record)
	onDone   func()
}

func NewHistoryBrowser(dir string, onLoad func(record.Record), onDone func()) *HistoryBrowserUI {
	hb := &HistoryBrowserUI{
		dir:    dir,
		onLoad: onLoad,
		onDone: onDone,
		finals: make(map[int]xiangqi.Position),
	}

	hb.gameList = tview.NewList()
	hb.gameList.SetBorder(true)
	hb.gameList.SetTitle(" Saved Games ")
	hb.gameList.ShowSecondaryText(false)
	hb.gameList.SetHighlightFullLine(true)
	hb.gameList.SetMainTextStyle(tcell.StyleDefault.Foreground(MenuColors.Label))
	hb.gameList.SetSelectedStyle(tcell.StyleDefault.
		Foreground(MenuColors.ButtonText).
		Background(MenuColors.ButtonFocus))

	hb.preview = tview.NewBox()
	hb.preview.SetBorder(true)
	hb.preview.SetTitle(" Preview ")
	hb.preview.SetDrawFunc(hb.drawPreview)

	hb.hint = tview.NewTextView()
	hb.hint.SetDynamicColors(true)
	hb.hint.SetText("  [dimgray]⏎[-] open  [dimgray]d[-] delete  [dimgray]q[-] back")

	hb.gameList.SetChangedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
		hb.selected = index
	})
	hb.gameList.SetSelectedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
		hb.open(index)
	})
	hb.gameList.SetInputCapture(hb.handleInput)

	topRow := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(hb.gameList, 40, 0, true).
		AddItem(hb.preview, 0, 1, false)
	hb.flex = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(topRow, 0, 1, true).
		AddItem(hb.hint, 1, 0, false)

	hb.loadGames()
	return hb
}

func (hb *HistoryBrowserUI) Flex() *tview.Flex {
	return hb.flex
}

// Refresh reloads the list from disk.
func (hb *HistoryBrowserUI) Refresh() {
	hb.finals = make(map[int]xiangqi.Position)
	hb.loadGames()
}

func (hb *HistoryBrowserUI) loadGames() {
	hb.gameList.Clear()
	hb.games = nil
	hb.selected = 0

	games, err := record.ListGames(hb.dir)
	if err != nil || len(games) == 0 {
		hb.gameList.AddItem("[dimgray]No games found[-]", "", 0, nil)
		return
	}
	hb.games = games
	for _, g := range games {
		label := fmt.Sprintf("%s  %-10s %3d  %s", g.Date, g.Engine, g.MoveCount, resultLabel(g.Result))
		hb.gameList.AddItem(tview.Escape(label), "", 0, nil)
	}
}

func resultLabel(r string) string {
	if r == "" || r == "*" {
		return "..."
	}
	return r
}

func (hb *HistoryBrowserUI) open(index int) {
	if index < 0 || index >= len(hb.games) || hb.onLoad == nil {
		return
	}
	rec, err := record.Load(hb.games[index].FilePath)
	if err != nil {
		hb.hint.SetText(fmt.Sprintf("  [red]%s[-]", tview.Escape(err.Error())))
		return
	}
	hb.onLoad(rec)
}

func (hb *HistoryBrowserUI) handleInput(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyEscape:
		if hb.onDone != nil {
			hb.onDone()
		}
		return nil
	case tcell.KeyRune:
		switch event.Rune() {
		case 'q':
			if hb.onDone != nil {
				hb.onDone()
			}
			return nil
		case 'd':
			hb.deleteSelected()
			return nil
		}
	}
	return event
}

func (hb *HistoryBrowserUI) deleteSelected() {
	if hb.selected < 0 || hb.selected >= len(hb.games) {
		return
	}
	os.Remove(hb.games[hb.selected].FilePath)
	hb.Refresh()
}

// finalPosition replays a saved game, caching the result per list entry.
func (hb *HistoryBrowserUI) finalPosition(index int) (xiangqi.Position, bool) {
	if pos, ok := hb.finals[index]; ok {
		return pos, true
	}
	rec, err := record.Load(hb.games[index].FilePath)
	if err != nil {
		return xiangqi.Position{}, false
	}
	pos := xiangqi.Start()
	if rec.FEN != "" {
		if pos, err = xiangqi.Decode(rec.FEN); err != nil {
			return xiangqi.Position{}, false
		}
	}
	for _, m := range rec.Moves {
		pos = xiangqi.Apply(pos, m)
	}
	hb.finals[index] = pos
	return pos, true
}

// drawPreview renders a mini board, one column per file, and the metadata.
func (hb *HistoryBrowserUI) drawPreview(screen tcell.Screen, x, y, width, height int) (int, int, int, int) {
	if hb.selected < 0 || hb.selected >= len(hb.games) {
		return x, y, width, height
	}
	if width < xiangqi.Files*2+4 || height < xiangqi.Ranks+7 {
		return x, y, width, height
	}
	game := hb.games[hb.selected]
	pos, ok := hb.finalPosition(hb.selected)
	if !ok {
		return x, y, width, height
	}

	startX, startY := x+2, y+1
	empty := tcell.StyleDefault.Foreground(tcell.PaletteColor(240))
	red := tcell.StyleDefault.Foreground(tcell.PaletteColor(160)).Bold(true)
	black := tcell.StyleDefault.Foreground(tcell.PaletteColor(250)).Bold(true)
	for rank := 0; rank < xiangqi.Ranks; rank++ {
		for file := 0; file < xiangqi.Files; file++ {
			p := pos.At(file, rank)
			switch p.Side() {
			case xiangqi.Red:
				screen.SetContent(startX+file*2, startY+rank, rune(p.Letter()), nil, red)
			case xiangqi.Black:
				screen.SetContent(startX+file*2, startY+rank, rune(p.Letter()), nil, black)
			default:
				screen.SetContent(startX+file*2, startY+rank, '·', nil, empty)
			}
		}
	}

	info := tcell.StyleDefault.Foreground(tcell.PaletteColor(250))
	dim := tcell.StyleDefault.Foreground(tcell.PaletteColor(245))
	row := startY + xiangqi.Ranks + 1
	drawString(screen, startX, row, fmt.Sprintf("%d moves · %s", game.MoveCount, game.Engine), info)
	drawString(screen, startX, row+1, "Red:   "+game.Red, dim)
	drawString(screen, startX, row+2, "Black: "+game.Black, dim)
	result := game.Result
	if result == "" || result == "*" {
		result = "Unfinished"
	}
	drawString(screen, startX, row+3, "Result: "+result, tcell.StyleDefault.Foreground(tcell.PaletteColor(109)))
	return x, y, width, height
}

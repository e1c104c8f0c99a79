package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/tview"
)

// MenuCard is a card with rounded borders, a centered title and a divider
// under it. Content starts at ContentTop.
type MenuCard struct {
	*tview.Box
	title   string
	focused bool
}

func NewMenuCard(title string) *MenuCard {
	return &MenuCard{Box: tview.NewBox(), title: title}
}

// ContentTop is the first row below the title divider.
func (c *MenuCard) ContentTop() int {
	_, y, _, _ := c.GetInnerRect()
	return y + 6
}

// Draw renders the card frame. Callers draw their content afterwards.
func (c *MenuCard) Draw(screen tcell.Screen) {
	c.Box.DrawForSubclass(screen, c)
	x, y, width, height := c.GetInnerRect()
	if width < 10 || height < 6 {
		return
	}
	border := menuStyle(c.borderColor())
	bg := menuStyle(MenuColors.Label)
	for row := y; row < y+height; row++ {
		for col := x; col < x+width; col++ {
			screen.SetContent(col, row, ' ', nil, bg)
		}
	}

	right, bottom := x+width-1, y+height-1
	hline := func(row int, l, r rune) {
		screen.SetContent(x, row, l, nil, border)
		for col := x + 1; col < right; col++ {
			screen.SetContent(col, row, '─', nil, border)
		}
		screen.SetContent(right, row, r, nil, border)
	}
	hline(y, '╭', '╮')
	hline(bottom, '╰', '╯')
	for row := y + 1; row < bottom; row++ {
		screen.SetContent(x, row, '│', nil, border)
		screen.SetContent(right, row, '│', nil, border)
	}

	if c.title == "" {
		return
	}
	full := "帥 " + c.title
	tx := x + (width-runewidth.StringWidth(full))/2
	n := drawString(screen, tx, y+2, "帥 ", menuStyle(MenuColors.TitleAccent))
	drawString(screen, tx+n, y+2, c.title, menuStyle(MenuColors.Title).Bold(true))
	hline(y+4, '├', '┤')
}

// DrawDivider draws a horizontal divider at row divY.
func (c *MenuCard) DrawDivider(screen tcell.Screen, divY int) {
	x, _, width, _ := c.GetInnerRect()
	border := menuStyle(c.borderColor())
	screen.SetContent(x, divY, '├', nil, border)
	for col := x + 1; col < x+width-1; col++ {
		screen.SetContent(col, divY, '─', nil, border)
	}
	screen.SetContent(x+width-1, divY, '┤', nil, border)
}

func (c *MenuCard) SetFocused(focused bool) {
	c.focused = focused
}

func (c *MenuCard) borderColor() tcell.Color {
	if c.focused {
		return MenuColors.BorderFocus
	}
	return MenuColors.Border
}

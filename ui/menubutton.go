package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

// MenuButton is a one-line button. The primary button gets an arrow.
type MenuButton struct {
	label    string
	primary  bool
	focused  bool
	onSelect func()
}

func NewMenuButton(label string, primary bool, onSelect func()) *MenuButton {
	return &MenuButton{label: label, primary: primary, onSelect: onSelect}
}

func (b *MenuButton) SetFocused(focused bool) {
	b.focused = focused
}

// HandleKey runs the button on Enter.
func (b *MenuButton) HandleKey(event *tcell.EventKey) bool {
	if event.Key() != tcell.KeyEnter {
		return false
	}
	if b.onSelect != nil {
		b.onSelect()
	}
	return true
}

func (b *MenuButton) text() string {
	if b.primary {
		return "▶ " + b.label
	}
	return b.label
}

// Draw renders the button at (x, y) and returns its width.
func (b *MenuButton) Draw(screen tcell.Screen, x, y int) int {
	w := b.Width()
	if b.focused {
		fill := tcell.StyleDefault.Foreground(MenuColors.ButtonText).Background(MenuColors.ButtonFocus)
		for i := 0; i < w; i++ {
			screen.SetContent(x+i, y, ' ', nil, fill)
		}
		drawString(screen, x+1, y, b.text(), fill)
		return w
	}
	bracket := menuStyle(MenuColors.Border)
	screen.SetContent(x, y, '[', nil, bracket)
	n := drawString(screen, x+1, y, b.text(), menuStyle(MenuColors.Hint))
	screen.SetContent(x+1+n, y, ']', nil, bracket)
	return w
}

// Width is the label plus one column either side.
func (b *MenuButton) Width() int {
	return runewidth.StringWidth(b.text()) + 2
}

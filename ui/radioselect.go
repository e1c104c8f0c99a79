package ui

import (
	"github.com/gdamore/tcell/v2"
)

// RadioOption is one choice; Description is drawn dimmed after the label.
type RadioOption struct {
	Label       string
	Description string
}

// RadioSelect is a vertical radio group, used to pick the engine.
type RadioSelect struct {
	label    string
	options  []RadioOption
	selected int
	focused  bool
	onChange func(int)
}

func NewRadioSelect(label string, options []RadioOption, initial int, onChange func(int)) *RadioSelect {
	r := &RadioSelect{label: label, onChange: onChange}
	r.SetOptions(options, initial)
	return r
}

// SetOptions replaces the choices, keeping selected in range.
func (r *RadioSelect) SetOptions(options []RadioOption, selected int) {
	r.options = options
	if selected < 0 || selected >= len(options) {
		selected = 0
	}
	r.selected = selected
}

func (r *RadioSelect) SetFocused(focused bool) {
	r.focused = focused
}

// HandleKey moves the selection with the up and down keys.
func (r *RadioSelect) HandleKey(event *tcell.EventKey) bool {
	next := r.selected
	switch event.Key() {
	case tcell.KeyUp:
		next--
	case tcell.KeyDown:
		next++
	default:
		return false
	}
	if next >= 0 && next < len(r.options) && next != r.selected {
		r.selected = next
		if r.onChange != nil {
			r.onChange(next)
		}
	}
	return true
}

// Rows is the height Draw will use.
func (r *RadioSelect) Rows() int {
	if len(r.options) == 0 {
		return 2
	}
	return len(r.options) + 1
}

// Draw renders the group and returns the rows used.
func (r *RadioSelect) Draw(screen tcell.Screen, x, y, width int) int {
	drawFieldLabel(screen, x, y, r.label, false)
	if len(r.options) == 0 {
		drawString(screen, x+4, y+1, "(none configured)", menuStyle(MenuColors.Error))
		return 2
	}
	for i, opt := range r.options {
		row := y + 1 + i
		style := menuStyle(MenuColors.Unselected)
		bullet := "○ "
		if i == r.selected {
			style = menuStyle(MenuColors.Selected)
			bullet = "● "
		}
		cursor := "  "
		if r.focused && i == r.selected {
			cursor = "▸ "
		}
		col := x + 2
		col += drawString(screen, col, row, cursor, menuStyle(MenuColors.Selected))
		col += drawString(screen, col, row, bullet, style)
		col += drawString(screen, col, row, opt.Label, style)
		if opt.Description != "" && col+1 < x+width {
			drawString(screen, col+1, row, opt.Description, menuStyle(MenuColors.Hint))
		}
	}
	return r.Rows()
}

func (r *RadioSelect) Selected() int {
	return r.selected
}

// drawFieldLabel draws "▸ ◈ label" and returns the columns used.
func drawFieldLabel(screen tcell.Screen, x, y int, label string, focused bool) int {
	cursor := "  "
	if focused {
		cursor = "▸ "
	}
	col := x + drawString(screen, x, y, cursor, menuStyle(MenuColors.Selected))
	col += drawString(screen, col, y, "◈ ", menuStyle(MenuColors.TitleAccent))
	col += drawString(screen, col, y, label, menuStyle(MenuColors.Label))
	return col - x
}

package ui

import (
	"strconv"
	"time"

	"github.com/gdamore/tcell/v2"
)

// MoveTimeInput edits the per-search think time in milliseconds.
type MoveTimeInput struct {
	label    string
	text     string
	cursor   int
	focused  bool
	onChange func(time.Duration)
}

func NewMoveTimeInput(label string, initial time.Duration, onChange func(time.Duration)) *MoveTimeInput {
	in := &MoveTimeInput{label: label, onChange: onChange}
	in.SetValue(initial)
	return in
}

func (in *MoveTimeInput) SetFocused(focused bool) {
	in.focused = focused
}

// HandleKey edits the digits. Anything but digits is ignored.
func (in *MoveTimeInput) HandleKey(event *tcell.EventKey) bool {
	switch event.Key() {
	case tcell.KeyLeft:
		if in.cursor > 0 {
			in.cursor--
		}
	case tcell.KeyRight:
		if in.cursor < len(in.text) {
			in.cursor++
		}
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if in.cursor > 0 {
			in.text = in.text[:in.cursor-1] + in.text[in.cursor:]
			in.cursor--
			in.changed()
		}
	case tcell.KeyDelete:
		if in.cursor < len(in.text) {
			in.text = in.text[:in.cursor] + in.text[in.cursor+1:]
			in.changed()
		}
	case tcell.KeyRune:
		ch := event.Rune()
		if ch < '0' || ch > '9' || len(in.text) >= 6 {
			return true
		}
		in.text = in.text[:in.cursor] + string(ch) + in.text[in.cursor:]
		in.cursor++
		in.changed()
	default:
		return false
	}
	return true
}

func (in *MoveTimeInput) changed() {
	if in.onChange == nil {
		return
	}
	if d := in.Value(); d > 0 {
		in.onChange(d)
	}
}

// Draw renders "◈ label   [ 1000 ] ms" and returns the rows used.
func (in *MoveTimeInput) Draw(screen tcell.Screen, x, y, width int) int {
	col := x + drawFieldLabel(screen, x, y, in.label, in.focused) + 3
	field := tcell.StyleDefault.Foreground(MenuColors.Label).Background(MenuColors.InputBG)
	caret := tcell.StyleDefault.Foreground(MenuColors.CardBG).Background(MenuColors.Selected)

	col += drawString(screen, col, y, "[ ", menuStyle(MenuColors.Label))
	const fieldWidth = 7
	for i := 0; i < fieldWidth; i++ {
		ch, style := ' ', field
		if i < len(in.text) {
			ch = rune(in.text[i])
		}
		if in.focused && i == in.cursor {
			style = caret
		}
		screen.SetContent(col+i, y, ch, nil, style)
	}
	col += fieldWidth
	drawString(screen, col, y, " ] ms", menuStyle(MenuColors.Label))
	return 1
}

// Value returns the entered time, zero when the field is empty.
func (in *MoveTimeInput) Value() time.Duration {
	n, err := strconv.Atoi(in.text)
	if err != nil {
		return 0
	}
	return time.Duration(n) * time.Millisecond
}

func (in *MoveTimeInput) SetValue(d time.Duration) {
	in.text = strconv.FormatInt(d.Milliseconds(), 10)
	in.cursor = len(in.text)
}

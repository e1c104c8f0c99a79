package ui

import (
	"strconv"

	"github.com/gdamore/tcell/v2"
)

// LevelSlider picks an integer in [min, max] with the left and right keys.
// The setup card uses it for the ranked line count.
type LevelSlider struct {
	label    string
	min, max int
	value    int
	focused  bool
	onChange func(int)
}

func NewLevelSlider(label string, min, max, initial int, onChange func(int)) *LevelSlider {
	s := &LevelSlider{label: label, min: min, max: max, value: min, onChange: onChange}
	s.SetValue(initial)
	return s
}

func (s *LevelSlider) SetFocused(focused bool) {
	s.focused = focused
}

func (s *LevelSlider) HandleKey(event *tcell.EventKey) bool {
	switch event.Key() {
	case tcell.KeyLeft:
		s.SetValue(s.value - 1)
	case tcell.KeyRight:
		s.SetValue(s.value + 1)
	default:
		return false
	}
	return true
}

// Draw renders "◈ label   ◀ ███░░ 3 ▶" and returns the rows used.
func (s *LevelSlider) Draw(screen tcell.Screen, x, y, width int) int {
	col := x + drawFieldLabel(screen, x, y, s.label, s.focused) + 3

	on, off := menuStyle(MenuColors.Selected), menuStyle(MenuColors.Unselected)
	arrows := off
	if s.focused {
		arrows = on
	}
	col += drawString(screen, col, y, "◀ ", arrows)
	for v := s.min; v <= s.max; v++ {
		if v <= s.value {
			screen.SetContent(col, y, '█', nil, on)
		} else {
			screen.SetContent(col, y, '░', nil, off)
		}
		col++
	}
	col++
	col += drawString(screen, col, y, strconv.Itoa(s.value), menuStyle(MenuColors.Label))
	drawString(screen, col+1, y, "▶", arrows)
	return 1
}

func (s *LevelSlider) Value() int {
	return s.value
}

// SetValue clamps v to the range and reports changes.
func (s *LevelSlider) SetValue(v int) {
	if v < s.min {
		v = s.min
	}
	if v > s.max {
		v = s.max
	}
	if v == s.value {
		return
	}
	s.value = v
	if s.onChange != nil {
		s.onChange(v)
	}
}

package ui

import (
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"xiangqi-local/config"
)

// SetupChoice is what the setup card starts an analysis with.
type SetupChoice struct {
	Engine   string
	Lines    int
	MoveTime time.Duration
}

type menuField interface {
	SetFocused(bool)
	HandleKey(*tcell.EventKey) bool
}

// SetupMenu is the start screen: engine, line count and think time, then
// the buttons to start or open the other screens.
type SetupMenu struct {
	*MenuCard
	cfg      *config.Config
	engines  *RadioSelect
	lines    *LevelSlider
	moveTime *MoveTimeInput
	buttons  []*MenuButton
	fields   []menuField
	focus    int
	choice   SetupChoice
}

// SetupActions are the callbacks behind the setup buttons.
type SetupActions struct {
	Start   func(SetupChoice)
	Engines func()
	History func()
	Colors  func()
	Quit    func()
}

func NewSetupMenu(cfg *config.Config, maxLines int, act SetupActions) *SetupMenu {
	m := &SetupMenu{
		MenuCard: NewMenuCard("XIANGQI  ANALYSIS"),
		cfg:      cfg,
		choice: SetupChoice{
			Engine:   cfg.DefaultEngine,
			Lines:    cfg.Search.Lines,
			MoveTime: time.Duration(cfg.Search.MoveTimeMs) * time.Millisecond,
		},
	}
	m.engines = NewRadioSelect("Engine", nil, 0, func(i int) {
		if i < len(m.cfg.Engines) {
			m.choice.Engine = m.cfg.Engines[i].Name
		}
	})
	m.RefreshEngines()
	m.lines = NewLevelSlider("Lines", 1, maxLines, m.choice.Lines, func(v int) { m.choice.Lines = v })
	m.moveTime = NewMoveTimeInput("Think", m.choice.MoveTime, func(d time.Duration) { m.choice.MoveTime = d })

	m.buttons = []*MenuButton{
		NewMenuButton("Analyse", true, func() {
			if act.Start != nil {
				act.Start(m.choice)
			}
		}),
		NewMenuButton("Engines", false, act.Engines),
		NewMenuButton("History", false, act.History),
		NewMenuButton("Colors", false, act.Colors),
		NewMenuButton("Quit", false, act.Quit),
	}
	m.fields = []menuField{m.engines, m.lines, m.moveTime}
	for _, b := range m.buttons {
		m.fields = append(m.fields, b)
	}
	m.setFocus(len(m.fields) - len(m.buttons))
	return m
}

// RefreshEngines reloads the engine list from the configuration.
func (m *SetupMenu) RefreshEngines() {
	opts := make([]RadioOption, len(m.cfg.Engines))
	selected := 0
	for i, e := range m.cfg.Engines {
		proto := e.Protocol
		if proto == "" {
			proto = "uci"
		}
		opts[i] = RadioOption{Label: e.Name, Description: proto}
		if e.Name == m.choice.Engine {
			selected = i
		}
	}
	m.engines.SetOptions(opts, selected)
	if len(m.cfg.Engines) > 0 {
		m.choice.Engine = m.cfg.Engines[m.engines.Selected()].Name
	}
}

// Choice returns the current selections.
func (m *SetupMenu) Choice() SetupChoice {
	return m.choice
}

func (m *SetupMenu) setFocus(i int) {
	n := len(m.fields)
	i = (i%n + n) % n
	m.fields[m.focus].SetFocused(false)
	m.focus = i
	m.fields[i].SetFocused(true)
}

func (m *SetupMenu) Draw(screen tcell.Screen) {
	m.MenuCard.Draw(screen)
	x, _, width, height := m.GetInnerRect()
	if width < 30 || height < 16 {
		return
	}
	left := x + 3
	row := m.ContentTop()
	row += m.engines.Draw(screen, left, row, width-6) + 1
	row += m.lines.Draw(screen, left, row, width-6) + 1
	row += m.moveTime.Draw(screen, left, row, width-6) + 1
	m.DrawDivider(screen, row)
	row += 2

	col := left
	for _, b := range m.buttons {
		if col+b.Width() > x+width-2 {
			col = left
			row++
		}
		col += b.Draw(screen, col, row) + 1
	}
	drawString(screen, left, row+2, "Tab/Shift+Tab move · ⏎ choose", menuStyle(MenuColors.Hint))
}

func (m *SetupMenu) InputHandler() func(event *tcell.EventKey, setFocus func(p tview.Primitive)) {
	return m.WrapInputHandler(func(event *tcell.EventKey, setFocus func(p tview.Primitive)) {
		switch event.Key() {
		case tcell.KeyTab:
			m.setFocus(m.focus + 1)
			return
		case tcell.KeyBacktab:
			m.setFocus(m.focus - 1)
			return
		case tcell.KeyEnter:
			if _, ok := m.fields[m.focus].(*MenuButton); !ok {
				m.setFocus(m.focus + 1)
				return
			}
		}
		m.fields[m.focus].HandleKey(event)
	})
}

func (m *SetupMenu) Focus(delegate func(p tview.Primitive)) {
	m.SetFocused(true)
	m.Box.Focus(delegate)
}

func (m *SetupMenu) Blur() {
	m.SetFocused(false)
	m.Box.Blur()
}

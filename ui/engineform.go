package ui

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"xiangqi-local/config"
)

var protocols = []string{"uci", "ucci"}

// EngineFormUI edits one engine entry of the configuration.
type EngineFormUI struct {
	form   *tview.Form
	flex   *tview.Flex
	status *tview.TextView
	entry  config.EngineConfig
	onSave func(config.EngineConfig) error
}

// NewEngineForm creates the engine editor. onSave returns an error to keep
// the form open.
func NewEngineForm(onSave func(config.EngineConfig) error, onCancel func()) *EngineFormUI {
	ef := &EngineFormUI{
		form:   tview.NewForm(),
		status: tview.NewTextView(),
		onSave: onSave,
	}
	ef.form.SetBorder(true)
	ef.form.SetTitleAlign(tview.AlignCenter)
	ef.form.SetButtonBackgroundColor(MenuColors.ButtonFocus)
	ef.form.SetButtonTextColor(tcell.ColorWhite)
	ef.form.SetCancelFunc(onCancel)

	ef.status.SetDynamicColors(true)
	ef.status.SetTextAlign(tview.AlignCenter)

	help := tview.NewTextView().
		SetText("Tab/Shift+Tab: navigate fields  |  Enter: confirm  |  Esc: back").
		SetTextAlign(tview.AlignCenter)
	help.SetTextColor(tcell.ColorGray)

	ef.flex = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(ef.form, 0, 1, true).
		AddItem(ef.status, 1, 0, false).
		AddItem(help, 1, 0, false)

	ef.Edit(config.EngineConfig{Protocol: "uci"}, onCancel)
	return ef
}

// Edit loads e into the form. An empty name starts a new entry.
func (ef *EngineFormUI) Edit(e config.EngineConfig, onCancel func()) {
	ef.entry = e
	ef.status.SetText("")
	ef.form.Clear(true)

	title := " Add Engine "
	if e.Name != "" {
		title = " Edit " + e.Name + " "
	}
	ef.form.SetTitle(title)

	proto := 0
	if e.Protocol == "ucci" {
		proto = 1
	}
	ef.form.AddInputField("Name", e.Name, 24, nil, func(text string) {
		ef.entry.Name = strings.TrimSpace(text)
	})
	ef.form.AddInputField("Executable", e.Path, 40, nil, func(text string) {
		ef.entry.Path = strings.TrimSpace(text)
	})
	ef.form.AddDropDown("Protocol", protocols, proto, func(option string, index int) {
		ef.entry.Protocol = option
	})
	ef.form.AddInputField("Arguments", strings.Join(e.Args, " "), 40, nil, func(text string) {
		ef.entry.Args = strings.Fields(text)
	})
	ef.form.AddInputField("Variant", e.Variant, 16, nil, func(text string) {
		ef.entry.Variant = strings.TrimSpace(text)
	})

	ef.form.AddButton("Save", func() {
		if err := ef.onSave(ef.entry); err != nil {
			ef.status.SetText("[red]" + tview.Escape(err.Error()) + "[-]")
		}
	})
	ef.form.AddButton("Back", onCancel)
}

// Flex returns the form with its status and help rows.
func (ef *EngineFormUI) Flex() *tview.Flex {
	return ef.flex
}

func (ef *EngineFormUI) SetInputCapture(capture func(event *tcell.EventKey) *tcell.EventKey) {
	ef.form.SetInputCapture(capture)
}

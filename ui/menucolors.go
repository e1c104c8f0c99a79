package ui

import "github.com/gdamore/tcell/v2"

// MenuColors is the palette shared by the setup screens.
var MenuColors = struct {
	Border      tcell.Color
	BorderFocus tcell.Color
	CardBG      tcell.Color
	Title       tcell.Color
	TitleAccent tcell.Color // the 帥 mark and field bullets
	Label       tcell.Color
	Hint        tcell.Color
	Selected    tcell.Color
	Unselected  tcell.Color
	ButtonFocus tcell.Color
	ButtonText  tcell.Color
	InputBG     tcell.Color
	Error       tcell.Color
}{
	Border:      tcell.PaletteColor(95),
	BorderFocus: tcell.PaletteColor(173),
	CardBG:      tcell.PaletteColor(236),
	Title:       tcell.PaletteColor(255),
	TitleAccent: tcell.PaletteColor(160),
	Label:       tcell.PaletteColor(250),
	Hint:        tcell.PaletteColor(245),
	Selected:    tcell.PaletteColor(173),
	Unselected:  tcell.PaletteColor(245),
	ButtonFocus: tcell.PaletteColor(131),
	ButtonText:  tcell.PaletteColor(255),
	InputBG:     tcell.PaletteColor(238),
	Error:       tcell.PaletteColor(167),
}

func menuStyle(fg tcell.Color) tcell.Style {
	return tcell.StyleDefault.Foreground(fg).Background(MenuColors.CardBG)
}

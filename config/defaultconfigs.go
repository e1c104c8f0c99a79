package config

var DefaultConfig Config
var DefaultTheme Theme

func init() {
	DefaultTheme = Theme{
		FullWidthGlyphs:      true,
		DrawCursorBackground: true,
		UseGridLines:         true,
		Colors: ConfigColors{
			BoardColor:    180,
			RiverColor:    110,
			RedColor:      160,
			BlackColor:    232,
			PieceBG:       230,
			LineColor:     94,
			CursorColorFG: 2,
			CursorColorBG: 4,
			SelectedBG:    3,
			LastMoveBG:    2,
			CheckBG:       1,
		},
		Symbols: ConfigSymbols{
			Point:    '┼',
			River:    '─',
			Cursor:   '┼',
			LastMove: '┼',
		},
	}

	DefaultConfig = Config{
		Theme: DefaultTheme,
		Engines: []EngineConfig{
			{Name: "pikafish", Path: "pikafish", Protocol: "uci", Options: map[string]string{"Threads": "1", "Hash": "64"}},
			{Name: "eleeye", Path: "eleeye", Protocol: "ucci"},
		},
		DefaultEngine: "pikafish",
		Search: SearchConfig{
			MoveTimeMs: 1000,
			Lines:      1,
		},
		Timeouts: TimeoutConfig{
			HandshakeMs: 5000,
			ReadyMs:     5000,
			SearchMs:    10000,
			QuitMs:      3000,
		},
		DebounceMs: 300,
		LogLevel:   "info",
	}
}

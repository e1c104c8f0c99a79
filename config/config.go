package config

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"

	"xiangqi-local/engine"
)

var (
	appName = "xiangqi-local"
	cfgFile = appName + "/config.json"
)

type InvalidConfig struct {
	err string
}

func (e *InvalidConfig) Error() string {
	return fmt.Sprintf("Config error: %s", e.err)
}

type ConfigColors struct {
	BoardColor    int `json:"board"`
	RiverColor    int `json:"river"`
	RedColor      int `json:"red"`
	BlackColor    int `json:"black"`
	PieceBG       int `json:"piece_bg"`
	LineColor     int `json:"line"`
	CursorColorFG int `json:"cursor_fg"`
	CursorColorBG int `json:"cursor_bg"`
	SelectedBG    int `json:"selected_bg"`
	LastMoveBG    int `json:"last_move_bg"`
	CheckBG       int `json:"check_bg"`
}

type ConfigSymbols struct {
	Point    rune `json:"point"`
	River    rune `json:"river"`
	Cursor   rune `json:"cursor"`
	LastMove rune `json:"last_move"`
}

type Theme struct {
	// FullWidthGlyphs draws pieces as Chinese characters instead of letters.
	FullWidthGlyphs      bool          `json:"fullwidth_glyphs"`
	DrawCursorBackground bool          `json:"draw_cursor_bg"`
	UseGridLines         bool          `json:"use_grid_lines"`
	Colors               ConfigColors  `json:"colors"`
	Symbols              ConfigSymbols `json:"symbols"`
}

// EngineConfig describes one external engine.
type EngineConfig struct {
	Name     string            `json:"name"`
	Path     string            `json:"path"`
	Protocol string            `json:"protocol"` // "uci" or "ucci"
	Args     []string          `json:"args,omitempty"`
	Variant  string            `json:"variant,omitempty"`
	Options  map[string]string `json:"options,omitempty"`
}

// SearchConfig holds the per-search limits.
type SearchConfig struct {
	MoveTimeMs int `json:"movetime_ms"`
	Depth      int `json:"depth"` // overrides MoveTimeMs when set
	Lines      int `json:"lines"`
}

// TimeoutConfig bounds every wait on an engine.
type TimeoutConfig struct {
	HandshakeMs int `json:"handshake_ms"`
	ReadyMs     int `json:"ready_ms"`
	SearchMs    int `json:"search_ms"` // per emulated multi-line round
	QuitMs      int `json:"quit_ms"`
}

type Config struct {
	Theme         Theme          `json:"theme"`
	Engines       []EngineConfig `json:"engines"`
	DefaultEngine string         `json:"default_engine"`
	Search        SearchConfig   `json:"search"`
	Timeouts      TimeoutConfig  `json:"timeouts"`
	DebounceMs    int            `json:"debounce_ms"`
	LogLevel      string         `json:"log_level"`
}

func InitConfig() (*Config, error) {
	config := DefaultConfig
	config.Engines = cloneEngines(DefaultConfig.Engines)
	absPath, err := xdg.SearchConfigFile(cfgFile)
	if err == nil {
		if err := readCfgFile(absPath, &config); err != nil {
			return nil, &InvalidConfig{fmt.Sprintf("%s: %v", absPath, err)}
		}
	}
	if err = config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	for _, r := range []rune{c.Theme.Symbols.Point, c.Theme.Symbols.River, c.Theme.Symbols.Cursor} {
		if r < 32 || (r >= 127 && r <= 159) {
			return &InvalidConfig{"Unicode characters 1-31 and 127-159 are not allowed"}
		}
	}
	seen := map[string]bool{}
	for _, e := range c.Engines {
		if e.Name == "" || e.Path == "" {
			return &InvalidConfig{"every engine needs a name and a path"}
		}
		if seen[e.Name] {
			return &InvalidConfig{fmt.Sprintf("engine %q is defined twice", e.Name)}
		}
		seen[e.Name] = true
		switch e.Protocol {
		case "", "uci", "ucci":
		default:
			return &InvalidConfig{fmt.Sprintf("engine %q: protocol must be uci or ucci, not %q", e.Name, e.Protocol)}
		}
	}
	if c.DefaultEngine != "" && !seen[c.DefaultEngine] {
		return &InvalidConfig{fmt.Sprintf("default engine %q is not defined", c.DefaultEngine)}
	}
	if c.Search.Lines < 1 || c.Search.Lines > 5 {
		return &InvalidConfig{"search lines must be between 1 and 5"}
	}
	if c.Search.MoveTimeMs <= 0 && c.Search.Depth <= 0 {
		return &InvalidConfig{"search needs a move time or a depth"}
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return &InvalidConfig{fmt.Sprintf("log level %q: %v", c.LogLevel, err)}
	}
	return nil
}

// cloneEngines copies engines deeply enough that decoding into the copy
// leaves the original untouched.
func cloneEngines(engines []EngineConfig) []EngineConfig {
	out := make([]EngineConfig, len(engines))
	for i, e := range engines {
		e.Args = append([]string(nil), e.Args...)
		if e.Options != nil {
			opts := make(map[string]string, len(e.Options))
			for k, v := range e.Options {
				opts[k] = v
			}
			e.Options = opts
		}
		out[i] = e
	}
	return out
}

// Engine returns the engine configured as name.
func (c *Config) Engine(name string) (EngineConfig, bool) {
	for _, e := range c.Engines {
		if e.Name == name {
			return e, true
		}
	}
	return EngineConfig{}, false
}

// EngineNames lists the configured engines in order.
func (c *Config) EngineNames() []string {
	names := make([]string, len(c.Engines))
	for i, e := range c.Engines {
		names[i] = e.Name
	}
	return names
}

// SetEngine adds or replaces the engine with e's name.
func (c *Config) SetEngine(e EngineConfig) {
	for i := range c.Engines {
		if c.Engines[i].Name == e.Name {
			c.Engines[i] = e
			return
		}
	}
	c.Engines = append(c.Engines, e)
}

// EngineProcess builds the process configuration for the named engine.
func (c *Config) EngineProcess(name string, log zerolog.Logger) (engine.Config, bool) {
	e, ok := c.Engine(name)
	if !ok {
		return engine.Config{}, false
	}
	return engine.Config{
		Name:             e.Name,
		Path:             e.Path,
		Args:             e.Args,
		Dialect:          e.Protocol,
		Variant:          e.Variant,
		Options:          e.Options,
		HandshakeTimeout: ms(c.Timeouts.HandshakeMs),
		ReadyTimeout:     ms(c.Timeouts.ReadyMs),
		QuitTimeout:      ms(c.Timeouts.QuitMs),
		Logger:           log,
	}, true
}

// Limit returns the configured search limit.
func (c *Config) Limit() engine.Limit {
	return engine.Limit{Depth: c.Search.Depth, MoveTime: ms(c.Search.MoveTimeMs)}
}

func (c *Config) SearchTimeout() time.Duration { return ms(c.Timeouts.SearchMs) }
func (c *Config) Debounce() time.Duration      { return ms(c.DebounceMs) }

// Level returns the configured log level.
func (c *Config) Level() zerolog.Level {
	l, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return l
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func (c *Config) Save() error {
	absPath, err := xdg.ConfigFile(cfgFile)
	if err != nil {
		return err
	}
	return saveCfgFile(absPath, c, 0664)
}

// HistoryDir is where saved game records go.
func HistoryDir() string {
	return filepath.Join(xdg.DataHome, appName, "games")
}

// LogPath is the debug log file.
func LogPath() string {
	return filepath.Join(xdg.StateHome, appName, "debug.log")
}

func saveCfgFile(filePath string, a interface{}, perm fs.FileMode) error {
	jsonData, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, jsonData, perm)
}

func readCfgFile(filePath string, a interface{}) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, a)
}

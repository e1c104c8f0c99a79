package config

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func validConfig() Config {
	c := DefaultConfig
	c.Engines = cloneEngines(DefaultConfig.Engines)
	return c
}

func TestDefaultConfigIsValid(t *testing.T) {
	c := validConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Config)
	}{
		{"control symbol", func(c *Config) { c.Theme.Symbols.Point = 7 }},
		{"missing path", func(c *Config) { c.Engines[0].Path = "" }},
		{"duplicate engine", func(c *Config) { c.Engines = append(c.Engines, c.Engines[0]) }},
		{"bad protocol", func(c *Config) { c.Engines[1].Protocol = "gtp" }},
		{"unknown default", func(c *Config) { c.DefaultEngine = "stockfish" }},
		{"zero lines", func(c *Config) { c.Search.Lines = 0 }},
		{"too many lines", func(c *Config) { c.Search.Lines = 6 }},
		{"no limit", func(c *Config) { c.Search.MoveTimeMs, c.Search.Depth = 0, 0 }},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.edit(&c)
			err := c.Validate()
			var invalid *InvalidConfig
			if !errors.As(err, &invalid) {
				t.Fatalf("Validate() = %v, want *InvalidConfig", err)
			}
		})
	}
}

func TestEngineProcess(t *testing.T) {
	c := validConfig()
	c.Timeouts.HandshakeMs = 1500
	p, ok := c.EngineProcess("eleeye", zerolog.Nop())
	if !ok {
		t.Fatal("eleeye not found")
	}
	if p.Dialect != "ucci" || p.Path != "eleeye" || p.HandshakeTimeout != 1500*time.Millisecond {
		t.Fatalf("process config = %+v", p)
	}
	if _, ok := c.EngineProcess("missing", zerolog.Nop()); ok {
		t.Fatal("unknown engine resolved")
	}
}

func TestSetEngineReplacesByName(t *testing.T) {
	c := validConfig()
	n := len(c.Engines)
	c.SetEngine(EngineConfig{Name: "eleeye", Path: "/opt/eleeye", Protocol: "ucci"})
	c.SetEngine(EngineConfig{Name: "cyclone", Path: "cyclone", Protocol: "ucci"})
	if len(c.Engines) != n+1 {
		t.Fatalf("engines = %v", c.EngineNames())
	}
	if e, _ := c.Engine("eleeye"); e.Path != "/opt/eleeye" {
		t.Fatalf("eleeye path = %q", e.Path)
	}
	if len(DefaultConfig.Engines) != n {
		t.Fatal("SetEngine modified the defaults")
	}
}

func TestLimitPrefersDepth(t *testing.T) {
	c := validConfig()
	c.Search.Depth = 12
	l := c.Limit()
	if l.Depth != 12 || l.MoveTime != time.Second {
		t.Fatalf("limit = %+v", l)
	}
}

func TestSaveAndReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	c := validConfig()
	c.DefaultEngine = "eleeye"
	c.Theme.FullWidthGlyphs = false
	if err := saveCfgFile(path, &c, 0644); err != nil {
		t.Fatalf("saveCfgFile: %v", err)
	}
	got := validConfig()
	if err := readCfgFile(path, &got); err != nil {
		t.Fatalf("readCfgFile: %v", err)
	}
	if got.DefaultEngine != "eleeye" || got.Theme.FullWidthGlyphs {
		t.Fatalf("read back %+v", got)
	}
	if got.Engines[0].Options["Hash"] != "64" {
		t.Fatalf("engine options = %v", got.Engines[0].Options)
	}
}

func TestCloneEnginesIsDeep(t *testing.T) {
	c := cloneEngines(DefaultConfig.Engines)
	c[0].Options["Hash"] = "1024"
	if DefaultConfig.Engines[0].Options["Hash"] != "64" {
		t.Fatal("clone shares option maps with the defaults")
	}
}

// Package engine defines the interface for external search engines.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrHandshakeTimeout = errors.New("engine handshake timed out")
	ErrNotReady         = errors.New("engine not ready")
	ErrSearchTimeout    = errors.New("engine search timed out")
	ErrTimeout          = errors.New("timed out waiting for engine")
	ErrClosed           = errors.New("engine is closed")
	ErrProcess          = errors.New("engine process error")
	ErrUnsupported      = errors.New("not supported by this protocol")
)

// Engine is the capability contract shared by the protocol dialects.
// Commands are written to the engine in the order issued and are not
// acknowledged; responses arrive as Events and are matched by kind.
type Engine interface {
	// Start launches the engine process and runs the handshake.
	Start(ctx context.Context) error

	// Stop quits the engine and waits for it to exit. Safe to call twice.
	Stop() error

	// Send writes a raw command line.
	Send(cmd string) error

	// SetMultiLineCount asks the engine to report n ranked lines.
	SetMultiLineCount(ctx context.Context, n int) error

	// NewGame tells the engine a new game starts.
	NewGame() error

	// SetPosition sets the root position: a FEN plus the moves played from it.
	SetPosition(fen string, moves []string) error

	// BanMoves forbids the given root moves for the next search.
	BanMoves(moves []string) error

	// Search starts a bounded search. The result arrives as EventBestMove.
	Search(limit Limit) error

	// StopSearch ends the running search early. The engine still answers it
	// with EventBestMove; an idle engine ignores it.
	StopSearch() error

	// Expect registers interest in the next event of the given kind. Call
	// it before issuing the command that provokes the event.
	Expect(kind EventKind) *Pending

	// Subscribe registers fn for every classified event. fn runs on the
	// output reader and must not block.
	Subscribe(fn func(Event)) (cancel func())

	// Info describes the running engine.
	Info() Info
}

// Info holds what is known about an engine session.
type Info struct {
	Name            string // reported by the engine, or the configured name
	Path            string
	Dialect         string // "uci" or "ucci"
	NativeMultiLine bool
}

// Limit bounds a search. Depth wins when both are set.
type Limit struct {
	Depth    int
	MoveTime time.Duration
}

// Config holds configuration for starting an engine process.
type Config struct {
	Name    string            // display name
	Path    string            // engine executable
	Args    []string          // extra command-line arguments
	Env     []string          // extra environment, KEY=VALUE
	Dialect string            // "uci" or "ucci"
	Variant string            // UCI_Variant for multi-variant engines
	Options map[string]string // pushed after the handshake

	HandshakeTimeout time.Duration
	ReadyTimeout     time.Duration
	QuitTimeout      time.Duration

	Logger zerolog.Logger
}

// WithDefaults fills zero timeouts.
func (c Config) WithDefaults() Config {
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = 5 * time.Second
	}
	if c.ReadyTimeout == 0 {
		c.ReadyTimeout = 5 * time.Second
	}
	if c.QuitTimeout == 0 {
		c.QuitTimeout = 3 * time.Second
	}
	if c.Dialect == "" {
		c.Dialect = "uci"
	}
	return c
}

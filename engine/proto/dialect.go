package proto

import (
	"fmt"
	"strconv"
	"strings"

	"xiangqi-local/engine"
)

// Dialect captures the ways the two supported line protocols differ.
type Dialect struct {
	Name        string
	Handshake   string // command that starts the session
	HandshakeOK string // token that ends the handshake
	NewGameCmd  string
	TimeKeyword string // "go <keyword> <ms>"

	// NativeMultiLine is set when the engine reports several ranked lines
	// itself. Otherwise callers emulate them with BanMoves.
	NativeMultiLine bool

	// StrictMultiLineReady makes a missing readiness reply after a
	// multi-line change an error. Some engines stay silent there.
	StrictMultiLineReady bool

	// CanBanMoves is set when the dialect has a banmoves command.
	CanBanMoves bool

	multiPVOption string
	namedOptions  bool // "setoption name X value Y" vs "setoption X Y"
}

// UCI is the dialect with native multi-line support.
var UCI = Dialect{
	Name:                 "uci",
	Handshake:            "uci",
	HandshakeOK:          "uciok",
	NewGameCmd:           "ucinewgame",
	TimeKeyword:          "movetime",
	NativeMultiLine:      true,
	StrictMultiLineReady: true,
	multiPVOption:        "MultiPV",
	namedOptions:         true,
}

// UCCI is the dialect that supports banned root moves.
var UCCI = Dialect{
	Name:        "ucci",
	Handshake:   "ucci",
	HandshakeOK: "ucciok",
	NewGameCmd:  "setoption newgame",
	TimeKeyword: "time",
	CanBanMoves: true,

	multiPVOption: "multipv",
}

// DialectByName returns the dialect with the given name.
func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "", "uci":
		return UCI, nil
	case "ucci":
		return UCCI, nil
	}
	return Dialect{}, fmt.Errorf("unknown protocol %q", name)
}

// SetOption formats an option command.
func (d Dialect) SetOption(name, value string) string {
	if d.namedOptions {
		if value == "" {
			return "setoption name " + name
		}
		return "setoption name " + name + " value " + value
	}
	if value == "" {
		return "setoption " + name
	}
	return "setoption " + name + " " + value
}

// MultiLineOption formats the command that sets the ranked line count.
func (d Dialect) MultiLineOption(n int) string {
	return d.SetOption(d.multiPVOption, strconv.Itoa(n))
}

// VariantOption formats the variant selection, or "" when the dialect has none.
func (d Dialect) VariantOption(variant string) string {
	if variant == "" || !d.namedOptions {
		return ""
	}
	return d.SetOption("UCI_Variant", variant)
}

// PositionCommand formats a position command. Board-and-side FENs are padded
// with the counters both protocols expect.
func (d Dialect) PositionCommand(fen string, moves []string) string {
	fen = strings.TrimSpace(fen)
	if len(strings.Fields(fen)) == 2 {
		fen += " - - 0 1"
	}
	var b strings.Builder
	b.WriteString("position fen ")
	b.WriteString(fen)
	if len(moves) > 0 {
		b.WriteString(" moves ")
		b.WriteString(strings.Join(moves, " "))
	}
	return b.String()
}

// SearchCommand formats a go command. A zero limit searches for one second.
func (d Dialect) SearchCommand(limit engine.Limit) string {
	if limit.Depth > 0 {
		return "go depth " + strconv.Itoa(limit.Depth)
	}
	ms := limit.MoveTime.Milliseconds()
	if ms <= 0 {
		ms = 1000
	}
	return "go " + d.TimeKeyword + " " + strconv.FormatInt(ms, 10)
}

// BanCommand formats a banmoves command.
func (d Dialect) BanCommand(moves []string) string {
	return "banmoves " + strings.Join(moves, " ")
}

package proto

import (
	"strconv"
	"strings"

	"xiangqi-local/engine"
)

// classify turns one line of engine stdout into an event. Lines that carry
// nothing a caller waits on are dropped.
func (d Dialect) classify(line string) (engine.Event, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return engine.Event{}, false
	}
	ev := engine.Event{Line: line}
	switch fields[0] {
	case "info":
		ev.Kind = engine.EventProgress
		ev.Progress = parseInfo(fields[1:])
	case "bestmove":
		ev.Kind = engine.EventBestMove
		if len(fields) > 1 && fields[1] != "(none)" {
			ev.BestMove = fields[1]
		}
		if len(fields) > 3 && fields[2] == "ponder" {
			ev.Ponder = fields[3]
		}
	case "nobestmove":
		ev.Kind = engine.EventBestMove
	case "readyok":
		ev.Kind = engine.EventReady
	case d.HandshakeOK:
		ev.Kind = engine.EventHandshake
	default:
		return engine.Event{}, false
	}
	return ev, true
}

// parseInfo reads the tokens after "info". Unknown tokens are skipped;
// "pv" and "string" consume the rest of the line.
func parseInfo(tokens []string) *engine.Progress {
	p := &engine.Progress{MultiPV: 1}
	for i := 0; i < len(tokens); i++ {
		switch tokens[i] {
		case "depth":
			if i+1 < len(tokens) {
				p.Depth = atoi(tokens[i+1])
				i++
			}
		case "multipv":
			if i+1 < len(tokens) {
				if n := atoi(tokens[i+1]); n > 0 {
					p.MultiPV = n
				}
				i++
			}
		case "nodes":
			if i+1 < len(tokens) {
				p.Nodes, _ = strconv.ParseInt(tokens[i+1], 10, 64)
				i++
			}
		case "score":
			if i+1 >= len(tokens) {
				continue
			}
			switch tokens[i+1] {
			case "cp":
				if i+2 < len(tokens) {
					p.Score = atoi(tokens[i+2])
				}
				i += 2
			case "mate":
				p.Mate = true
				if i+2 < len(tokens) {
					p.Score = atoi(tokens[i+2])
				}
				i += 2
			default:
				// UCCI reports a bare value.
				p.Score = atoi(tokens[i+1])
				i++
			}
		case "pv":
			p.PV = append([]string(nil), tokens[i+1:]...)
			return p
		case "string":
			return p
		}
	}
	return p
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// parseIDName extracts the engine name from an "id name ..." line.
func parseIDName(line string) (string, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), "id name ")
	if !ok {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

// Package record reads and writes Xiangqi game records: PGN-style tag lines
// followed by a numbered move list in ICCS coordinates.
package record

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"xiangqi-local/xiangqi"
)

// Extension of saved record files.
const Extension = ".pgn"

// Record is one game.
type Record struct {
	Event  string
	Date   string
	Red    string
	Black  string
	Engine string
	FEN    string // start position; empty for the standard opening
	Result string // "1-0", "0-1", "1/2-1/2" or "*"
	Moves  []xiangqi.Move
}

// ResultString converts a game outcome to a result tag value.
func ResultString(o xiangqi.Outcome) string {
	switch o {
	case xiangqi.OutcomeRed:
		return "1-0"
	case xiangqi.OutcomeBlack:
		return "0-1"
	case xiangqi.OutcomeDraw:
		return "1/2-1/2"
	}
	return "*"
}

// ParseResult is the inverse of ResultString. Unknown values give OutcomeNone.
func ParseResult(s string) xiangqi.Outcome {
	switch strings.TrimSpace(s) {
	case "1-0":
		return xiangqi.OutcomeRed
	case "0-1":
		return xiangqi.OutcomeBlack
	case "1/2-1/2":
		return xiangqi.OutcomeDraw
	}
	return xiangqi.OutcomeNone
}

func escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// Write writes rec in record format.
func Write(w io.Writer, rec Record) error {
	bw := bufio.NewWriter(w)
	tag := func(key, value string) {
		fmt.Fprintf(bw, "[%s \"%s\"]\n", key, escape(value))
	}
	tag("Game", "Chinese Chess")
	if rec.Event != "" {
		tag("Event", rec.Event)
	}
	if rec.Date != "" {
		tag("Date", rec.Date)
	}
	if rec.Red != "" {
		tag("Red", rec.Red)
	}
	if rec.Black != "" {
		tag("Black", rec.Black)
	}
	if rec.Engine != "" {
		tag("Engine", rec.Engine)
	}
	result := rec.Result
	if result == "" {
		result = "*"
	}
	tag("Result", result)
	if rec.FEN != "" && rec.FEN != xiangqi.StartFEN {
		tag("FEN", rec.FEN)
	}
	bw.WriteString("\n")

	black := false
	if rec.FEN != "" {
		if p, err := xiangqi.Decode(rec.FEN); err == nil {
			black = p.Side == xiangqi.Black
		}
	}
	n := 1
	col := 0
	word := func(s string) {
		if col > 0 && col+len(s)+1 > 78 {
			bw.WriteString("\n")
			col = 0
		} else if col > 0 {
			bw.WriteString(" ")
			col++
		}
		bw.WriteString(s)
		col += len(s)
	}
	for i, m := range rec.Moves {
		switch {
		case i == 0 && black:
			word(fmt.Sprintf("%d.", n))
			word("...")
		case !black:
			word(fmt.Sprintf("%d.", n))
		}
		word(m.String())
		if black {
			n++
		}
		black = !black
	}
	word(result)
	bw.WriteString("\n")
	return bw.Flush()
}

// Save writes rec to a new timestamped file in dir and returns its path.
func Save(dir string, rec Record) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create history dir: %w", err)
	}
	now := time.Now()
	if rec.Date == "" {
		rec.Date = now.Format("2006.01.02")
	}
	path := filepath.Join(dir, now.Format("2006-01-02_150405")+Extension)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create record file: %w", err)
	}
	if err := Write(f, rec); err != nil {
		f.Close()
		return "", fmt.Errorf("write record: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close record: %w", err)
	}
	return path, nil
}

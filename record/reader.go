package record

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"xiangqi-local/xiangqi"
)

// GameInfo holds metadata parsed from a record file.
type GameInfo struct {
	FilePath  string
	FileName  string
	Date      string
	Red       string
	Black     string
	Engine    string
	Result    string
	MoveCount int
}

// parseTag parses a line like [Key "Value"].
func parseTag(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(line)
	if len(line) < 2 || line[0] != '[' || line[len(line)-1] != ']' {
		return "", "", false
	}
	body := line[1 : len(line)-1]
	key, rest, found := strings.Cut(body, " ")
	if !found {
		return "", "", false
	}
	rest = strings.TrimSpace(rest)
	if len(rest) < 2 || rest[0] != '"' || rest[len(rest)-1] != '"' {
		return "", "", false
	}
	var b strings.Builder
	raw := rest[1 : len(rest)-1]
	for i := 0; i < len(raw); i++ {
		if raw[i] == '\\' && i+1 < len(raw) {
			i++
		}
		b.WriteByte(raw[i])
	}
	return key, b.String(), true
}

// Read parses a record. Move numbers, comments in braces and the trailing
// result token are skipped.
func Read(r io.Reader) (Record, error) {
	var rec Record
	sc := bufio.NewScanner(r)
	inComment := false
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !inComment {
			if key, value, ok := parseTag(line); ok {
				switch key {
				case "Event":
					rec.Event = value
				case "Date":
					rec.Date = value
				case "Red":
					rec.Red = value
				case "Black":
					rec.Black = value
				case "Engine":
					rec.Engine = value
				case "Result":
					rec.Result = value
				case "FEN":
					rec.FEN = value
				}
				continue
			}
		}
		for _, tok := range strings.Fields(line) {
			if inComment {
				if strings.HasSuffix(tok, "}") {
					inComment = false
				}
				continue
			}
			if strings.HasPrefix(tok, "{") {
				inComment = !strings.HasSuffix(tok, "}")
				continue
			}
			switch {
			case strings.HasSuffix(tok, "."), tok == "...":
				continue
			case tok == "*", ParseResult(tok) != xiangqi.OutcomeNone:
				if rec.Result == "" {
					rec.Result = tok
				}
				continue
			}
			m, err := xiangqi.ParseMove(tok)
			if err != nil {
				return rec, fmt.Errorf("move %d: %w", len(rec.Moves)+1, err)
			}
			rec.Moves = append(rec.Moves, m)
		}
	}
	if err := sc.Err(); err != nil {
		return rec, err
	}
	if rec.FEN != "" {
		if _, err := xiangqi.Decode(rec.FEN); err != nil {
			return rec, fmt.Errorf("FEN tag: %w", err)
		}
	}
	return rec, nil
}

// Load reads the record at path.
func Load(path string) (Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return Record{}, err
	}
	defer f.Close()
	rec, err := Read(f)
	if err != nil {
		return rec, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return rec, nil
}

// ParseHeader reads a record file and summarizes it.
func ParseHeader(path string) (*GameInfo, error) {
	rec, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &GameInfo{
		FilePath:  path,
		FileName:  filepath.Base(path),
		Date:      rec.Date,
		Red:       rec.Red,
		Black:     rec.Black,
		Engine:    rec.Engine,
		Result:    rec.Result,
		MoveCount: len(rec.Moves),
	}, nil
}

// ListGames scans a directory for record files and returns their headers,
// newest first (file names carry timestamps).
func ListGames(dir string) ([]GameInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read history dir: %w", err)
	}

	var games []GameInfo
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.IsDir() || !strings.HasSuffix(e.Name(), Extension) {
			continue
		}
		info, err := ParseHeader(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		games = append(games, *info)
	}
	return games, nil
}

package record

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"xiangqi-local/xiangqi"
)

func moves(t *testing.T, ss ...string) []xiangqi.Move {
	t.Helper()
	var ms []xiangqi.Move
	for _, s := range ss {
		m, err := xiangqi.ParseMove(s)
		if err != nil {
			t.Fatalf("ParseMove(%q): %v", s, err)
		}
		ms = append(ms, m)
	}
	return ms
}

func TestResultString(t *testing.T) {
	tests := []struct {
		o    xiangqi.Outcome
		want string
	}{
		{xiangqi.OutcomeRed, "1-0"},
		{xiangqi.OutcomeBlack, "0-1"},
		{xiangqi.OutcomeDraw, "1/2-1/2"},
		{xiangqi.OutcomeNone, "*"},
	}
	for _, tt := range tests {
		if got := ResultString(tt.o); got != tt.want {
			t.Errorf("ResultString(%v) = %q, want %q", tt.o, got, tt.want)
		}
		if tt.o != xiangqi.OutcomeNone && ParseResult(tt.want) != tt.o {
			t.Errorf("ParseResult(%q) = %v", tt.want, ParseResult(tt.want))
		}
	}
}

func TestWriteNumbersMoves(t *testing.T) {
	var b strings.Builder
	err := Write(&b, Record{
		Date:   "2024.05.01",
		Engine: "Pikafish",
		Result: "*",
		Moves:  moves(t, "h2e2", "h9g7", "h0g2"),
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := b.String()
	for _, want := range []string{
		`[Game "Chinese Chess"]`,
		`[Date "2024.05.01"]`,
		`[Engine "Pikafish"]`,
		"1. h2e2 h9g7 2. h0g2 *",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "[FEN") {
		t.Error("standard opening should not write a FEN tag")
	}
}

func TestWriteBlackToMove(t *testing.T) {
	fen := "R3k4/R8/1r7/9/9/9/9/9/9/3K5 b"
	var b strings.Builder
	if err := Write(&b, Record{FEN: fen, Moves: moves(t, "b7b9", "a8a7")}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.Contains(b.String(), "1. ... b7b9 2. a8a7 *") {
		t.Fatalf("unexpected move text:\n%s", b.String())
	}
}

func TestReadRoundTrip(t *testing.T) {
	in := Record{
		Event:  "Analysis",
		Date:   "2024.05.01",
		Red:    "Player",
		Black:  `Engine "X"`,
		Engine: "Pikafish",
		FEN:    "R3k4/R8/1r7/9/9/9/9/9/9/3K5 b",
		Result: "1-0",
		Moves:  moves(t, "b7b9", "a8a7"),
	}
	var b strings.Builder
	if err := Write(&b, in); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out, err := Read(strings.NewReader(b.String()))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if out.Event != in.Event || out.Black != in.Black || out.FEN != in.FEN || out.Result != in.Result {
		t.Fatalf("headers = %+v", out)
	}
	if len(out.Moves) != 2 || out.Moves[1] != in.Moves[1] {
		t.Fatalf("moves = %v", out.Moves)
	}
}

func TestReadSkipsCommentsAndRejectsBadMoves(t *testing.T) {
	text := "[Game \"Chinese Chess\"]\n\n1. h2e2 {central cannon} h9g7\n2. h0g2 1-0\n"
	rec, err := Read(strings.NewReader(text))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(rec.Moves) != 3 || rec.Result != "1-0" {
		t.Fatalf("got %d moves, result %q", len(rec.Moves), rec.Result)
	}

	if _, err := Read(strings.NewReader("1. h2e2 zz99\n")); err == nil {
		t.Fatal("bad move accepted")
	}
	if _, err := Read(strings.NewReader("[FEN \"nonsense w\"]\n")); err == nil {
		t.Fatal("bad FEN accepted")
	}
}

func TestSaveAndListGames(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "games")
	path, err := Save(dir, Record{Engine: "Fake", Result: "0-1", Moves: moves(t, "c3c4", "c6c5")})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if filepath.Ext(path) != Extension {
		t.Fatalf("saved as %q", path)
	}
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644)

	games, err := ListGames(dir)
	if err != nil {
		t.Fatalf("ListGames: %v", err)
	}
	if len(games) != 1 {
		t.Fatalf("ListGames found %d games, want 1", len(games))
	}
	g := games[0]
	if g.Engine != "Fake" || g.Result != "0-1" || g.MoveCount != 2 || g.Date == "" {
		t.Fatalf("game info = %+v", g)
	}
}

func TestListGamesMissingDir(t *testing.T) {
	games, err := ListGames(filepath.Join(t.TempDir(), "missing"))
	if err != nil || games != nil {
		t.Fatalf("ListGames = %v, %v; want nil, nil", games, err)
	}
}

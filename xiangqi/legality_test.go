package xiangqi

import "testing"

func mustDecode(t *testing.T, fen string) Position {
	t.Helper()
	p, err := Decode(fen)
	if err != nil {
		t.Fatalf("Decode(%q): %v", fen, err)
	}
	return p
}

func mustMove(t *testing.T, s string) Move {
	t.Helper()
	m, err := ParseMove(s)
	if err != nil {
		t.Fatalf("ParseMove(%q): %v", s, err)
	}
	return m
}

func TestIsLegalFromStart(t *testing.T) {
	tests := []struct {
		move string
		want bool
		why  string
	}{
		{"c3c4", true, "pawn advance"},
		{"c3c2", false, "pawn backwards"},
		{"c3d3", false, "pawn sideways before river"},
		{"a0a1", true, "chariot one step"},
		{"a0a5", false, "chariot jumps own pawn"},
		{"a0a9", false, "chariot jumps to capture"},
		{"b0c2", true, "horse"},
		{"b0d1", false, "horse leg blocked by elephant"},
		{"b2e2", true, "cannon slide"},
		{"b2b9", true, "cannon capture over screen"},
		{"b2b7", false, "cannon capture without screen"},
		{"c0e2", true, "elephant"},
		{"c0d1", false, "elephant wrong shape"},
		{"d0e1", true, "advisor"},
		{"d0c1", false, "advisor leaves palace"},
		{"e0e1", true, "king"},
		{"e0f0", false, "king onto own advisor"},
		{"h7h6", false, "black piece on red's turn"},
		{"e4e5", false, "empty origin"},
	}
	p := Start()
	for _, tt := range tests {
		if got := IsLegal(p, mustMove(t, tt.move)); got != tt.want {
			t.Errorf("IsLegal(%s) = %v, want %v (%s)", tt.move, got, tt.want, tt.why)
		}
	}
}

func TestIsLegalOffBoard(t *testing.T) {
	p := Start()
	if IsLegal(p, NewMove(0, 9, -1, 9)) {
		t.Fatal("off-board destination accepted")
	}
	if IsLegal(p, NewMove(9, 9, 8, 9)) {
		t.Fatal("off-board origin accepted")
	}
}

func TestChariotBlockedRegardlessOfDestination(t *testing.T) {
	// Red chariot on a0, own pawn on a4, black pawn on a6.
	p := mustDecode(t, "4k4/9/9/p8/9/P8/9/9/9/R3K4 w")
	for _, to := range []string{"a6", "a7", "a8"} {
		if IsLegal(p, mustMove(t, "a0"+to)) {
			t.Errorf("chariot a0%s jumped an occupied square", to)
		}
	}
	if !IsLegal(p, mustMove(t, "a0a3")) {
		t.Error("chariot a0a3 should be legal")
	}
}

func TestPawnAfterRiver(t *testing.T) {
	// Red pawn on c5 (crossed), black pawn on g4 (crossed).
	p := mustDecode(t, "4k4/9/9/9/2P6/6p2/9/9/9/4K4 w")
	for move, want := range map[string]bool{
		"c5c6": true,
		"c5b5": true,
		"c5d5": true,
		"c5c4": false,
		"c5e5": false,
	} {
		if got := IsLegal(p, mustMove(t, move)); got != want {
			t.Errorf("red IsLegal(%s) = %v, want %v", move, got, want)
		}
	}
	p = FlipSide(p)
	for move, want := range map[string]bool{
		"g4g3": true,
		"g4f4": true,
		"g4g5": false,
	} {
		if got := IsLegal(p, mustMove(t, move)); got != want {
			t.Errorf("black IsLegal(%s) = %v, want %v", move, got, want)
		}
	}
}

func TestElephantCannotCrossRiver(t *testing.T) {
	// Red elephant on c4 at the river bank.
	p := mustDecode(t, "4k4/9/9/9/9/2B6/9/9/9/4K4 w")
	if IsLegal(p, mustMove(t, "c4e6")) {
		t.Fatal("elephant crossed the river")
	}
	if !IsLegal(p, mustMove(t, "c4e2")) {
		t.Fatal("elephant retreat should be legal")
	}
	// Blocked eye.
	p = mustDecode(t, "4k4/9/9/9/9/2B6/3P5/9/9/4K4 w")
	if IsLegal(p, mustMove(t, "c4e2")) {
		t.Fatal("elephant moved through a blocked eye")
	}
}

func TestKingAndAdvisorStayInPalace(t *testing.T) {
	p := mustDecode(t, "4k4/9/9/9/9/9/9/5K3/4A4/9 w")
	cases := map[string]bool{
		"f2g2": false, // king leaves palace
		"f2f3": false,
		"f2e2": true,
		"f2f1": true,
		"e1d0": true,
		"e1f0": true,
		"e1d2": true,
	}
	for move, want := range cases {
		if got := IsLegal(p, mustMove(t, move)); got != want {
			t.Errorf("IsLegal(%s) = %v, want %v", move, got, want)
		}
	}
	p = mustDecode(t, "4k4/9/9/9/9/9/9/3A5/9/4K4 w")
	if IsLegal(p, mustMove(t, "d2c3")) {
		t.Error("advisor left the palace")
	}
}

func TestIsLegalMoveRejectsSelfCheck(t *testing.T) {
	// Red chariot on e1 shields its king from the black chariot on e9.
	p := mustDecode(t, "3kr4/9/9/9/9/9/9/9/4R4/4K4 w")
	sideways := mustMove(t, "e1a1")
	if !IsLegal(p, sideways) {
		t.Fatal("shape check should accept e1a1")
	}
	if IsLegalMove(p, sideways) {
		t.Fatal("e1a1 exposes the king and must be rejected")
	}
	if !IsLegalMove(p, mustMove(t, "e1e8")) {
		t.Fatal("e1e8 keeps the file closed and should be legal")
	}
}

func TestLegalMovesFromStart(t *testing.T) {
	if n := len(LegalMoves(Start())); n != 44 {
		t.Fatalf("legal moves from start = %d, want 44", n)
	}
	if n := len(LegalMoves(FlipSide(Start()))); n != 44 {
		t.Fatalf("black legal moves from start = %d, want 44", n)
	}
}

func BenchmarkLegalMoves(b *testing.B) {
	p := Start()
	for i := 0; i < b.N; i++ {
		LegalMoves(p)
	}
}

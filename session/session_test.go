package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"xiangqi-local/engine"
	"xiangqi-local/engine/enginetest"
	"xiangqi-local/record"
	"xiangqi-local/types"
	"xiangqi-local/xiangqi"
)

// fakeMoves are all legal for red in the opening.
var fakeMoves = []string{"h2e2", "b2e2", "c3c4", "g3g4", "b0c2"}

type notes struct {
	mu      sync.Mutex
	pushed  []types.Notification
	removed []uuid.UUID
}

func (n *notes) Push(x types.Notification) {
	n.mu.Lock()
	n.pushed = append(n.pushed, x)
	n.mu.Unlock()
}

func (n *notes) Remove(id uuid.UUID) {
	n.mu.Lock()
	n.removed = append(n.removed, id)
	n.mu.Unlock()
}

func (n *notes) all() []types.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]types.Notification(nil), n.pushed...)
}

func (n *notes) wasRemoved(id uuid.UUID) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, r := range n.removed {
		if r == id {
			return true
		}
	}
	return false
}

type harness struct {
	s     *Session
	notes *notes
	clock time.Time
	delay time.Duration // before fake engines answer

	mu      sync.Mutex
	engines map[string][]*enginetest.Fake
}

func newHarness(t *testing.T, lines int) *harness {
	t.Helper()
	h := &harness{
		notes:   &notes{},
		clock:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		engines: map[string][]*enginetest.Fake{},
	}
	s, err := New(Config{
		Lines:         lines,
		Limit:         engine.Limit{Depth: 5},
		SearchTimeout: time.Second,
		Debounce:      500 * time.Millisecond,
		Factory:       h.factory,
		Notifier:      h.notes,
		Logger:        zerolog.Nop(),
		Now:           func() time.Time { return h.now() },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.s = s
	t.Cleanup(s.Close)
	return h
}

func (h *harness) now() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clock
}

func (h *harness) advance(d time.Duration) {
	h.mu.Lock()
	h.clock = h.clock.Add(d)
	h.mu.Unlock()
}

func (h *harness) factory(name string) (engine.Engine, error) {
	var f *enginetest.Fake
	switch name {
	case "uci":
		f = enginetest.New(name, true, fakeMoves...)
	case "ucci":
		f = enginetest.New(name, false, fakeMoves...)
	case "broken":
		f = enginetest.New(name, true)
		f.StartErr = engine.ErrHandshakeTimeout
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEngine, name)
	}
	f.Delay = h.delay
	h.mu.Lock()
	h.engines[name] = append(h.engines[name], f)
	h.mu.Unlock()
	return f, nil
}

// last returns the most recently built engine called name.
func (h *harness) last(name string) *enginetest.Fake {
	h.mu.Lock()
	defer h.mu.Unlock()
	fs := h.engines[name]
	if len(fs) == 0 {
		return nil
	}
	return fs[len(fs)-1]
}

func (h *harness) play(t *testing.T, moves ...string) {
	t.Helper()
	for _, s := range moves {
		if err := h.s.ApplyUserMove(mustMove(t, s)); err != nil {
			t.Fatalf("ApplyUserMove(%s): %v", s, err)
		}
		h.advance(time.Second)
	}
}

func mustMove(t *testing.T, s string) xiangqi.Move {
	t.Helper()
	m, err := xiangqi.ParseMove(s)
	if err != nil {
		t.Fatalf("ParseMove(%q): %v", s, err)
	}
	return m
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestApplyUserMoveFlipsSide(t *testing.T) {
	h := newHarness(t, 1)
	h.play(t, "c3c4")
	snap := h.s.Snapshot()
	if snap.Position.Side != xiangqi.Black {
		t.Fatalf("side = %v, want black", snap.Position.Side)
	}
	if snap.Pointer != 1 || len(snap.Moves) != 1 {
		t.Fatalf("pointer %d, %d moves", snap.Pointer, len(snap.Moves))
	}
	if m, ok := snap.LastMove(); !ok || m.String() != "c3c4" {
		t.Fatalf("LastMove = %v, %v", m, ok)
	}
}

func TestIllegalMoveChangesNothing(t *testing.T) {
	h := newHarness(t, 1)
	before := h.s.Snapshot()
	err := h.s.ApplyUserMove(mustMove(t, "c3c2"))
	if !errors.Is(err, xiangqi.ErrIllegalMove) {
		t.Fatalf("err = %v, want ErrIllegalMove", err)
	}
	after := h.s.Snapshot()
	if xiangqi.Encode(after.Position) != xiangqi.Encode(before.Position) || after.Pointer != 0 {
		t.Fatal("illegal move changed the session")
	}
}

func TestRedoTailIsTruncated(t *testing.T) {
	h := newHarness(t, 1)
	h.play(t, "c3c4", "h9g7")
	if !h.s.Back() || !h.s.Back() {
		t.Fatal("Back failed")
	}
	if snap := h.s.Snapshot(); !snap.CanNext() || snap.Pointer != 0 {
		t.Fatalf("after two Backs pointer = %d", snap.Pointer)
	}
	h.play(t, "g3g4")
	snap := h.s.Snapshot()
	if len(snap.Moves) != 1 || snap.Moves[0].String() != "g3g4" {
		t.Fatalf("history = %v", xiangqi.MoveStrings(snap.Moves))
	}
	if snap.CanNext() || h.s.Next() {
		t.Fatal("redo tail survived a new move")
	}
}

func TestBackNextReplay(t *testing.T) {
	h := newHarness(t, 1)
	if h.s.Back() {
		t.Fatal("Back at the start should fail")
	}
	h.play(t, "h2e2", "h9g7", "h0g2", "i9h9")
	end := xiangqi.Encode(h.s.Snapshot().Position)

	for h.s.Back() {
	}
	if got := xiangqi.Encode(h.s.Snapshot().Position); got != xiangqi.StartFEN {
		t.Fatalf("after rewinding position = %q", got)
	}
	for h.s.Next() {
	}
	if got := xiangqi.Encode(h.s.Snapshot().Position); got != end {
		t.Fatalf("after replaying position = %q, want %q", got, end)
	}
}

func TestHistoryReplayIsIdempotent(t *testing.T) {
	var hist History
	p := xiangqi.Start()
	for _, s := range []string{"c3c4", "c6c5", "b0c2", "b9c7"} {
		m := mustMove(t, s)
		hist.Push(m)
		p = xiangqi.Apply(p, m)
	}
	hist.Back()
	first := xiangqi.Encode(hist.Replay(xiangqi.Start()))
	second := xiangqi.Encode(hist.Replay(xiangqi.Start()))
	if first != second {
		t.Fatalf("replays differ: %q vs %q", first, second)
	}
	hist.Next()
	if got := xiangqi.Encode(hist.Replay(xiangqi.Start())); got != xiangqi.Encode(p) {
		t.Fatalf("replay = %q, want %q", got, xiangqi.Encode(p))
	}
}

func TestDuplicateMoveIsDebounced(t *testing.T) {
	h := newHarness(t, 1)
	m := mustMove(t, "c3c4")
	if err := h.s.ApplyUserMove(m); err != nil {
		t.Fatalf("ApplyUserMove: %v", err)
	}
	h.advance(100 * time.Millisecond)
	if err := h.s.ApplyUserMove(m); err != nil {
		t.Fatalf("duplicate inside window: %v", err)
	}
	if p := h.s.Snapshot().Pointer; p != 1 {
		t.Fatalf("pointer = %d after duplicate", p)
	}
	h.advance(time.Second)
	if err := h.s.ApplyUserMove(m); !errors.Is(err, xiangqi.ErrIllegalMove) {
		t.Fatalf("repeat after window err = %v, want ErrIllegalMove", err)
	}
}

func TestSwitchEngineSearches(t *testing.T) {
	h := newHarness(t, 1)
	if err := h.s.SwitchEngine(context.Background(), "uci"); err != nil {
		t.Fatalf("SwitchEngine: %v", err)
	}
	waitFor(t, "best line", func() bool {
		snap := h.s.Snapshot()
		return len(snap.Lines) == 1 && !snap.Thinking
	})
	snap := h.s.Snapshot()
	if snap.Engine != "uci" || snap.Lines[0].Moves[0].String() != "h2e2" {
		t.Fatalf("snapshot = %+v", snap)
	}
	f := h.last("uci")
	sent := strings.Join(f.Sent(), "\n")
	if !strings.Contains(sent, "newgame") || !strings.Contains(sent, "position "+xiangqi.StartFEN) {
		t.Fatalf("engine commands:\n%s", sent)
	}
}

func TestMoveRestartsSearch(t *testing.T) {
	h := newHarness(t, 1)
	if err := h.s.SwitchEngine(context.Background(), "uci"); err != nil {
		t.Fatalf("SwitchEngine: %v", err)
	}
	f := h.last("uci")
	before := f.Searches()
	h.play(t, "c3c4")
	if f.Searches() != before+1 {
		t.Fatalf("searches = %d, want %d", f.Searches(), before+1)
	}
	want := "position " + xiangqi.StartFEN + " moves c3c4"
	found := false
	for _, cmd := range f.Sent() {
		if cmd == want {
			found = true
		}
	}
	if !found {
		t.Fatalf("engine never got %q", want)
	}
	// Red moves from the fake are not legal for black, so no lines appear.
	time.Sleep(50 * time.Millisecond)
	if n := len(h.s.Snapshot().Lines); n != 0 {
		t.Fatalf("%d stale lines shown", n)
	}
}

func TestNativeRankedLines(t *testing.T) {
	h := newHarness(t, 3)
	if err := h.s.SwitchEngine(context.Background(), "uci"); err != nil {
		t.Fatalf("SwitchEngine: %v", err)
	}
	waitFor(t, "three lines", func() bool { return len(h.s.Snapshot().Lines) == 3 })
	found := false
	for _, cmd := range h.last("uci").Sent() {
		if cmd == "multipv 3" {
			found = true
		}
	}
	if !found {
		t.Fatal("line count was not sent to a native engine")
	}
}

func TestEmulatedRankedLines(t *testing.T) {
	h := newHarness(t, 3)
	if err := h.s.SwitchEngine(context.Background(), "ucci"); err != nil {
		t.Fatalf("SwitchEngine: %v", err)
	}
	waitFor(t, "three lines", func() bool {
		snap := h.s.Snapshot()
		return len(snap.Lines) == 3 && !snap.Thinking
	})
	seen := map[xiangqi.Move]bool{}
	for i, l := range h.s.Snapshot().Lines {
		if l.Rank != i+1 {
			t.Errorf("line %d has rank %d", i, l.Rank)
		}
		if seen[l.Moves[0]] {
			t.Errorf("first move %s repeated", l.Moves[0])
		}
		seen[l.Moves[0]] = true
	}
	for _, cmd := range h.last("ucci").Sent() {
		if strings.HasPrefix(cmd, "multipv") {
			t.Fatalf("emulating session sent %q", cmd)
		}
	}
}

func TestSetRankedLineCount(t *testing.T) {
	h := newHarness(t, 1)
	if err := h.s.SwitchEngine(context.Background(), "ucci"); err != nil {
		t.Fatalf("SwitchEngine: %v", err)
	}
	h.s.SetRankedLineCount(2)
	waitFor(t, "two lines", func() bool { return len(h.s.Snapshot().Lines) == 2 })
	h.s.SetRankedLineCount(99)
	if c := h.s.Snapshot().LineCount; c != MaxLines {
		t.Fatalf("LineCount = %d, want %d", c, MaxLines)
	}
}

func TestSwitchEngineFailureReverts(t *testing.T) {
	h := newHarness(t, 1)
	ctx := context.Background()
	if err := h.s.SwitchEngine(ctx, "uci"); err != nil {
		t.Fatalf("SwitchEngine(uci): %v", err)
	}
	first := h.last("uci")

	err := h.s.SwitchEngine(ctx, "broken")
	if !errors.Is(err, engine.ErrHandshakeTimeout) {
		t.Fatalf("SwitchEngine(broken) err = %v, want ErrHandshakeTimeout", err)
	}
	snap := h.s.Snapshot()
	if snap.Engine != "uci" || snap.LastError == "" {
		t.Fatalf("after failed switch engine = %q, error = %q", snap.Engine, snap.LastError)
	}
	if !first.Stopped() {
		t.Fatal("old engine was not stopped")
	}
	if again := h.last("uci"); again == first || !again.Started() {
		t.Fatal("previous engine was not restarted")
	}

	var note types.Notification
	for _, n := range h.notes.all() {
		if n.Severity == types.SeverityError {
			note = n
		}
	}
	if note.Duration != 0 || !strings.Contains(note.Message, "broken") || !strings.Contains(note.Message, "/fake/broken") {
		t.Fatalf("error notification = %+v", note)
	}

	if err := h.s.SwitchEngine(ctx, "ucci"); err != nil {
		t.Fatalf("SwitchEngine(ucci) after failure: %v", err)
	}
	snap = h.s.Snapshot()
	if snap.Engine != "ucci" || snap.LastError != "" {
		t.Fatalf("after recovery engine = %q, error = %q", snap.Engine, snap.LastError)
	}
	if !h.notes.wasRemoved(note.ID) {
		t.Fatal("engine error notification was not removed")
	}
}

func TestSwitchToUnknownEngine(t *testing.T) {
	h := newHarness(t, 1)
	err := h.s.SwitchEngine(context.Background(), "nope")
	if !errors.Is(err, ErrUnknownEngine) {
		t.Fatalf("err = %v, want ErrUnknownEngine", err)
	}
	if _, err := h.s.Engine(); !errors.Is(err, ErrNoEngine) {
		t.Fatalf("Engine() err = %v, want ErrNoEngine", err)
	}
}

func TestCheckNotification(t *testing.T) {
	h := newHarness(t, 1)
	if err := h.s.NewGame("4k4/9/9/9/9/9/9/9/R8/3K5 w"); err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	h.play(t, "a1a9")
	got := h.notes.all()
	if len(got) != 1 || got[0].Message != "Check" {
		t.Fatalf("notifications = %+v", got)
	}
	if !h.s.Snapshot().Status.Check {
		t.Fatal("status should show check")
	}
}

func TestCheckmateGivesOneNotification(t *testing.T) {
	h := newHarness(t, 1)
	if err := h.s.NewGame("4k4/R8/1R7/9/9/9/9/9/9/3K5 w"); err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	h.play(t, "b7b9")
	got := h.notes.all()
	if len(got) != 1 || !strings.HasPrefix(got[0].Message, "Checkmate") {
		t.Fatalf("notifications = %+v", got)
	}
	if w := h.s.Snapshot().Status.Winner; w != xiangqi.OutcomeRed {
		t.Fatalf("winner = %v", w)
	}

	// Taking the move back clears the stale notification.
	h.s.Back()
	if !h.notes.wasRemoved(got[0].ID) {
		t.Fatal("status notification survived Back")
	}
}

func TestSetSideToMove(t *testing.T) {
	h := newHarness(t, 1)
	h.play(t, "c3c4")
	h.s.SetSideToMove(xiangqi.Red)
	snap := h.s.Snapshot()
	if snap.Position.Side != xiangqi.Red || snap.Pointer != 0 || len(snap.Moves) != 0 {
		t.Fatalf("after side change: side %v, pointer %d, %d moves", snap.Position.Side, snap.Pointer, len(snap.Moves))
	}
	if snap.Position.At(2, 5) != xiangqi.MakePiece(xiangqi.Red, xiangqi.Pawn) {
		t.Fatal("board was not kept")
	}
	h.s.SetSideToMove(xiangqi.Red)
	if xiangqi.Encode(h.s.Snapshot().Start) != xiangqi.Encode(snap.Start) {
		t.Fatal("same side should not re-root")
	}
}

func TestNewGameRejectsBadEncoding(t *testing.T) {
	h := newHarness(t, 1)
	h.play(t, "c3c4")
	if err := h.s.NewGame("bogus"); !errors.Is(err, xiangqi.ErrInvalidEncoding) {
		t.Fatalf("err = %v, want ErrInvalidEncoding", err)
	}
	if h.s.Snapshot().Pointer != 1 {
		t.Fatal("bad encoding changed the session")
	}
}

func TestLoadRecordAndRecord(t *testing.T) {
	h := newHarness(t, 1)
	moves := []xiangqi.Move{mustMove(t, "h2e2"), mustMove(t, "h9g7"), mustMove(t, "h0g2")}
	if err := h.s.LoadRecord(record.Record{Moves: moves}); err != nil {
		t.Fatalf("LoadRecord: %v", err)
	}
	snap := h.s.Snapshot()
	if snap.Pointer != 3 || snap.Position.Side != xiangqi.Black {
		t.Fatalf("pointer %d side %v", snap.Pointer, snap.Position.Side)
	}
	h.s.Back()
	rec := h.s.Record()
	if len(rec.Moves) != 3 || rec.FEN != "" || rec.Result != "*" {
		t.Fatalf("record = %+v", rec)
	}

	bad := record.Record{Moves: []xiangqi.Move{mustMove(t, "h2e2"), mustMove(t, "h2e2")}}
	if err := h.s.LoadRecord(bad); !errors.Is(err, xiangqi.ErrIllegalMove) {
		t.Fatalf("err = %v, want ErrIllegalMove", err)
	}
	if h.s.Snapshot().Pointer != 2 {
		t.Fatal("bad record changed the session")
	}
}

func TestEngineErrorOutputIsAdvisory(t *testing.T) {
	h := newHarness(t, 1)
	if err := h.s.SwitchEngine(context.Background(), "uci"); err != nil {
		t.Fatalf("SwitchEngine: %v", err)
	}
	h.last("uci").Emit(engine.Event{Kind: engine.EventError, Line: "bad option"})
	found := false
	for _, n := range h.notes.all() {
		if n.Severity == types.SeverityWarning && strings.Contains(n.Message, "bad option") {
			found = true
		}
	}
	if !found {
		t.Fatal("stderr line was not surfaced")
	}
	if _, err := h.s.Engine(); err != nil {
		t.Fatalf("engine lost after advisory: %v", err)
	}
}

func TestOnChangeAndClose(t *testing.T) {
	h := newHarness(t, 1)
	var mu sync.Mutex
	calls := 0
	h.s.OnChange(func(types.Snapshot) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	h.play(t, "c3c4")
	mu.Lock()
	if calls == 0 {
		t.Fatal("OnChange not called")
	}
	mu.Unlock()

	if err := h.s.SwitchEngine(context.Background(), "uci"); err != nil {
		t.Fatalf("SwitchEngine: %v", err)
	}
	h.s.Close()
	if !h.last("uci").Stopped() {
		t.Fatal("Close did not stop the engine")
	}
}

func TestSetLimitRestartsSearch(t *testing.T) {
	h := newHarness(t, 1)
	if err := h.s.SwitchEngine(context.Background(), "uci"); err != nil {
		t.Fatalf("SwitchEngine: %v", err)
	}
	f := h.last("uci")
	before := f.Searches()
	h.s.SetLimit(engine.Limit{MoveTime: 200 * time.Millisecond})
	if f.Searches() != before+1 {
		t.Fatalf("searches = %d, want %d", f.Searches(), before+1)
	}
	h.s.SetLimit(engine.Limit{MoveTime: 200 * time.Millisecond})
	if f.Searches() != before+1 {
		t.Fatal("an unchanged limit restarted the search")
	}
}

func distinctFirstMoves(t *testing.T, lines []types.BestLine) {
	t.Helper()
	seen := map[xiangqi.Move]bool{}
	for _, l := range lines {
		if seen[l.Moves[0]] {
			t.Fatalf("first move %s repeated in %v", l.Moves[0], lines)
		}
		seen[l.Moves[0]] = true
	}
}

func TestRestartDuringEmulatedRound(t *testing.T) {
	h := newHarness(t, 3)
	h.delay = 40 * time.Millisecond
	if err := h.s.SwitchEngine(context.Background(), "ucci"); err != nil {
		t.Fatalf("SwitchEngine: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	h.s.SetLimit(engine.Limit{Depth: 7})

	waitFor(t, "three lines", func() bool {
		snap := h.s.Snapshot()
		return len(snap.Lines) == 3 && !snap.Thinking
	})
	lines := h.s.Snapshot().Lines
	distinctFirstMoves(t, lines)
	for _, l := range lines {
		if l.Depth != 7 {
			t.Fatalf("line %d from the superseded search: %+v", l.Rank, l)
		}
	}
	stopped := false
	for _, cmd := range h.last("ucci").Sent() {
		if cmd == "stop" {
			stopped = true
		}
	}
	if !stopped {
		t.Fatal("the superseded search was not stopped")
	}
}

func TestMoveDuringEmulatedRound(t *testing.T) {
	h := newHarness(t, 3)
	h.delay = 40 * time.Millisecond
	if err := h.s.SwitchEngine(context.Background(), "ucci"); err != nil {
		t.Fatalf("SwitchEngine: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	h.play(t, "h2e2")
	h.s.Back()
	h.s.SetRankedLineCount(2)

	waitFor(t, "two lines", func() bool {
		snap := h.s.Snapshot()
		return len(snap.Lines) == 2 && !snap.Thinking
	})
	distinctFirstMoves(t, h.s.Snapshot().Lines)
}

func TestNativeRestartIgnoresOldSearch(t *testing.T) {
	h := newHarness(t, 1)
	h.delay = 40 * time.Millisecond
	if err := h.s.SwitchEngine(context.Background(), "uci"); err != nil {
		t.Fatalf("SwitchEngine: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	h.s.SetLimit(engine.Limit{Depth: 9})

	// The first search answers when stopped; only the second may show.
	waitFor(t, "a line", func() bool {
		snap := h.s.Snapshot()
		return len(snap.Lines) == 1 && !snap.Thinking
	})
	if l := h.s.Snapshot().Lines[0]; l.Depth != 9 {
		t.Fatalf("line from the superseded search: %+v", l)
	}
}

package engine

import (
	"context"
	"errors"
	"sync"
	"time"
)

// EventKind classifies an engine output line.
type EventKind int

const (
	EventProgress  EventKind = iota // "info ..."
	EventBestMove                   // "bestmove ..." or "nobestmove"
	EventReady                      // "readyok"
	EventHandshake                  // "uciok" / "ucciok"
	EventError                      // a line on the engine's stderr
)

func (k EventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventBestMove:
		return "bestmove"
	case EventReady:
		return "ready"
	case EventHandshake:
		return "handshake"
	case EventError:
		return "error"
	}
	return "unknown"
}

// Progress is a parsed "info" line.
type Progress struct {
	Depth   int
	MultiPV int // 1-based slot; 1 when the engine did not say
	Score   int // centipawns, or moves to mate when Mate is set
	Mate    bool
	Nodes   int64
	PV      []string
}

// Event is one classified line of engine output.
type Event struct {
	Kind     EventKind
	Line     string
	Progress *Progress // EventProgress only
	BestMove string    // EventBestMove only; empty for "nobestmove"
	Ponder   string
}

// Line is one ranked principal variation.
type Line struct {
	Rank  int
	Depth int
	Score int
	Mate  bool
	Moves []string
}

// LineFromProgress builds a ranked line from a progress report.
func LineFromProgress(rank int, p *Progress) Line {
	moves := make([]string, len(p.PV))
	copy(moves, p.PV)
	return Line{Rank: rank, Depth: p.Depth, Score: p.Score, Mate: p.Mate, Moves: moves}
}

// Pending is a one-shot wait for the next event of a kind. It is resolved by
// the output dispatcher, so it must be registered before the command that
// provokes the event is sent.
type Pending struct {
	kind    EventKind
	ch      chan Event
	closed  <-chan struct{}
	nudge   func()
	release func(*Pending)
	once    sync.Once
}

// NewPending creates a wait for kind. closed aborts the wait when the event
// stream ends; nudge, if set, is called once when Wait starts; release, if
// set, is called once when the wait is over.
func NewPending(kind EventKind, closed <-chan struct{}, nudge func(), release func(*Pending)) *Pending {
	return &Pending{
		kind:    kind,
		ch:      make(chan Event, 1),
		closed:  closed,
		nudge:   nudge,
		release: release,
	}
}

// Kind returns the event kind being waited for.
func (p *Pending) Kind() EventKind { return p.kind }

// Resolve delivers ev if it matches and the wait is still open. It reports
// whether ev was consumed.
func (p *Pending) Resolve(ev Event) bool {
	if ev.Kind != p.kind {
		return false
	}
	select {
	case p.ch <- ev:
		return true
	default:
		return false
	}
}

// Wait blocks until the event arrives, timeout elapses, ctx is done or the
// event stream closes.
func (p *Pending) Wait(ctx context.Context, timeout time.Duration) (Event, error) {
	defer p.Cancel()
	return p.wait(ctx, timeout)
}

// WaitOrHalt waits like Wait for the answer to a search. If ctx is done or
// timeout elapses first, halt is called and the wait stays open for up to
// grace more, so the stopped search's answer is consumed here and not by a
// later wait. The error is the one that ended the first wait.
func (p *Pending) WaitOrHalt(ctx context.Context, timeout time.Duration, halt func() error, grace time.Duration) (Event, error) {
	defer p.Cancel()
	ev, err := p.wait(ctx, timeout)
	if err == nil || errors.Is(err, ErrClosed) {
		return ev, err
	}
	if halt() == nil {
		p.wait(context.Background(), grace)
	}
	return Event{}, err
}

func (p *Pending) wait(ctx context.Context, timeout time.Duration) (Event, error) {
	if p.nudge != nil {
		p.nudge()
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case ev := <-p.ch:
		return ev, nil
	case <-timer.C:
		return p.late(ErrTimeout)
	case <-ctx.Done():
		return p.late(ctx.Err())
	case <-p.closed:
		return p.late(ErrClosed)
	}
}

// late prefers an event that arrived together with the reason to give up.
func (p *Pending) late(err error) (Event, error) {
	select {
	case ev := <-p.ch:
		return ev, nil
	default:
	}
	return Event{}, err
}

// Cancel abandons the wait.
func (p *Pending) Cancel() {
	p.once.Do(func() {
		if p.release != nil {
			p.release(p)
		}
	})
}

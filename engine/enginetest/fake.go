// Package enginetest provides a scripted engine for tests.
package enginetest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"xiangqi-local/engine"
)

// Fake is an in-memory engine.Engine. Every search answers with the first
// entries of Moves that are not banned, in order.
type Fake struct {
	Name     string
	Native   bool          // report native multi-line support
	Moves    []string      // preference order
	StartErr error         // returned by Start
	Silent   bool          // searches never answer
	Answers  int           // searches after this many never answer; 0 for no limit
	Delay    time.Duration // before a search answers, unless stopped

	mu       sync.Mutex
	sent     []string
	lines    int
	banned   map[string]bool
	subs     map[int]func(engine.Event)
	nextSub  int
	waiters  []*engine.Pending
	done     chan struct{}
	halt     chan struct{}
	started  bool
	stopped  bool
	searches int
	wg       sync.WaitGroup
}

// New returns a fake that prefers moves in the given order.
func New(name string, native bool, moves ...string) *Fake {
	return &Fake{
		Name:   name,
		Native: native,
		Moves:  moves,
		lines:  1,
		banned: map[string]bool{},
		subs:   map[int]func(engine.Event){},
		done:   make(chan struct{}),
		halt:   make(chan struct{}),
	}
}

func (f *Fake) record(cmd string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return engine.ErrClosed
	}
	f.sent = append(f.sent, cmd)
	return nil
}

func (f *Fake) Start(ctx context.Context) error {
	if f.StartErr != nil {
		f.mu.Lock()
		f.stopped = true
		f.mu.Unlock()
		return fmt.Errorf("start %s: %w", f.Name, f.StartErr)
	}
	f.mu.Lock()
	f.started = true
	f.mu.Unlock()
	return f.record("start")
}

func (f *Fake) Stop() error {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return nil
	}
	f.stopped = true
	f.subs = map[int]func(engine.Event){}
	close(f.done)
	f.mu.Unlock()
	f.wg.Wait()
	return nil
}

func (f *Fake) Send(cmd string) error { return f.record(cmd) }

func (f *Fake) SetMultiLineCount(ctx context.Context, n int) error {
	if err := f.record("multipv " + strconv.Itoa(n)); err != nil {
		return err
	}
	f.mu.Lock()
	f.lines = n
	f.mu.Unlock()
	return nil
}

func (f *Fake) NewGame() error { return f.record("newgame") }

func (f *Fake) SetPosition(fen string, moves []string) error {
	cmd := "position " + fen
	if len(moves) > 0 {
		cmd += " moves " + strings.Join(moves, " ")
	}
	if err := f.record(cmd); err != nil {
		return err
	}
	f.mu.Lock()
	f.banned = map[string]bool{}
	f.mu.Unlock()
	return nil
}

func (f *Fake) BanMoves(moves []string) error {
	if f.Native {
		return fmt.Errorf("banmoves: %w", engine.ErrUnsupported)
	}
	if err := f.record("banmoves " + strings.Join(moves, " ")); err != nil {
		return err
	}
	f.mu.Lock()
	for _, m := range moves {
		f.banned[m] = true
	}
	f.mu.Unlock()
	return nil
}

// Search answers asynchronously, like a real engine.
func (f *Fake) Search(limit engine.Limit) error {
	if err := f.record("go"); err != nil {
		return err
	}
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return engine.ErrClosed
	}
	f.searches++
	var avail []string
	for _, m := range f.Moves {
		if !f.banned[m] {
			avail = append(avail, m)
		}
	}
	lines := 1
	if f.Native {
		lines = f.lines
	}
	depth := limit.Depth
	if depth == 0 {
		depth = 10
	}
	if f.Silent || (f.Answers > 0 && f.searches > f.Answers) {
		f.mu.Unlock()
		return nil
	}
	halt := f.halt
	f.wg.Add(1)
	f.mu.Unlock()

	go func() {
		defer f.wg.Done()
		if f.Delay > 0 {
			select {
			case <-time.After(f.Delay):
			case <-halt:
			case <-f.done:
				return
			}
		}
		if len(avail) == 0 {
			f.emit(engine.Event{Kind: engine.EventBestMove, Line: "nobestmove"})
			return
		}
		for i := 0; i < lines && i < len(avail); i++ {
			p := &engine.Progress{
				Depth:   depth,
				MultiPV: i + 1,
				Score:   100 - 10*i,
				PV:      []string{avail[i]},
			}
			f.emit(engine.Event{Kind: engine.EventProgress, Progress: p, Line: "info pv " + avail[i]})
		}
		f.emit(engine.Event{Kind: engine.EventBestMove, BestMove: avail[0], Line: "bestmove " + avail[0]})
	}()
	return nil
}

// StopSearch makes delayed searches answer at once.
func (f *Fake) StopSearch() error {
	if err := f.record("stop"); err != nil {
		return err
	}
	f.mu.Lock()
	close(f.halt)
	f.halt = make(chan struct{})
	f.mu.Unlock()
	return nil
}

// Emit delivers ev as if the engine had printed it.
func (f *Fake) Emit(ev engine.Event) { f.emit(ev) }

func (f *Fake) emit(ev engine.Event) {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return
	}
	for i, w := range f.waiters {
		if w.Resolve(ev) {
			f.waiters = append(f.waiters[:i:i], f.waiters[i+1:]...)
			break
		}
	}
	subs := make([]func(engine.Event), 0, len(f.subs))
	for id := 0; id < f.nextSub; id++ {
		if fn, ok := f.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	f.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}

func (f *Fake) Expect(kind engine.EventKind) *engine.Pending {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := engine.NewPending(kind, f.done, nil, f.removeWaiter)
	f.waiters = append(f.waiters, p)
	return p
}

func (f *Fake) removeWaiter(p *engine.Pending) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, w := range f.waiters {
		if w == p {
			f.waiters = append(f.waiters[:i:i], f.waiters[i+1:]...)
			return
		}
	}
}

func (f *Fake) Subscribe(fn func(engine.Event)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = fn
	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

func (f *Fake) Info() engine.Info {
	dialect := "ucci"
	if f.Native {
		dialect = "uci"
	}
	return engine.Info{Name: f.Name, Path: "/fake/" + f.Name, Dialect: dialect, NativeMultiLine: f.Native}
}

// Sent returns the commands received so far.
func (f *Fake) Sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

// Searches returns how many searches were started.
func (f *Fake) Searches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searches
}

// Started reports whether Start succeeded.
func (f *Fake) Started() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}

// Stopped reports whether Stop was called.
func (f *Fake) Stopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

var _ engine.Engine = (*Fake)(nil)

// Package multiline reports several ranked lines from an engine that only
// reports its best one. Each round bans the first moves found so far and
// searches again.
package multiline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"xiangqi-local/engine"
	"xiangqi-local/xiangqi"
)

// ErrStrayAnswer means the engine kept answering a round with moves from
// some other search.
var ErrStrayAnswer = errors.New("engine answered with a move from another search")

const (
	maxAttempts  = 2
	maxHaltGrace = 2 * time.Second
)

// State is the controller's phase.
type State int

const (
	Idle State = iota
	Iterating
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Iterating:
		return "iterating"
	case Done:
		return "done"
	}
	return "unknown"
}

// Request describes one multi-line search.
type Request struct {
	FEN     string
	Moves   []string
	Count   int
	Limit   engine.Limit
	Timeout time.Duration // per round; derived from Limit when zero
}

// Controller runs ban-and-research rounds against one engine. A controller
// runs one request at a time.
type Controller struct {
	eng engine.Engine
	log zerolog.Logger

	mu    sync.Mutex
	state State
	round int
}

func New(eng engine.Engine, log zerolog.Logger) *Controller {
	return &Controller{eng: eng, log: log}
}

// State returns the current phase and, while iterating, the zero-based round.
func (c *Controller) State() (State, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.round
}

func (c *Controller) setState(s State, round int) {
	c.mu.Lock()
	c.state, c.round = s, round
	c.mu.Unlock()
}

// Run collects up to req.Count lines, calling onLine as each is found. A
// round that times out or yields nothing ends the run; the lines found so far
// are returned with the error, if any. An abandoned round's search is stopped
// and its answer drained before Run returns.
func (c *Controller) Run(ctx context.Context, req Request, onLine func(engine.Line)) ([]engine.Line, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = roundTimeout(req.Limit)
	}
	root, err := rootPosition(req)
	if err != nil {
		return nil, err
	}

	var lines []engine.Line
	var banned []string
	defer func() { c.setState(Done, len(lines)) }()

	for k := 0; k < req.Count; k++ {
		if err := ctx.Err(); err != nil {
			return lines, err
		}
		c.setState(Iterating, k)
		line, err := c.searchValid(ctx, req, root, banned, k+1, timeout)
		if err != nil {
			c.log.Warn().Err(err).Int("rank", k+1).Int("found", len(lines)).Msg("multi-line search stopped")
			return lines, err
		}
		if len(line.Moves) == 0 {
			c.log.Debug().Int("rank", k+1).Msg("no further lines")
			break
		}
		lines = append(lines, line)
		if onLine != nil {
			onLine(line)
		}
		banned = append(banned, line.Moves[0])
	}
	return lines, nil
}

// searchValid runs a round and checks its first move. An answer that opens
// with a banned or illegal move belongs to some other search; it is dropped,
// whatever is still running is stopped, and the round is searched again.
func (c *Controller) searchValid(ctx context.Context, req Request, root xiangqi.Position, banned []string, rank int, timeout time.Duration) (engine.Line, error) {
	for attempt := 1; ; attempt++ {
		line, err := c.searchRound(ctx, req, banned, rank, timeout)
		if err != nil || len(line.Moves) == 0 {
			return line, err
		}
		reason := rejectFirst(root, banned, line.Moves[0])
		if reason == "" {
			return line, nil
		}
		c.log.Warn().Str("move", line.Moves[0]).Str("reason", reason).Int("rank", rank).Int("attempt", attempt).
			Msg("discarding answer from another search")
		if attempt == maxAttempts {
			return engine.Line{Rank: rank}, fmt.Errorf("%w: rank %d", ErrStrayAnswer, rank)
		}
		c.drain(timeout)
	}
}

// drain stops any search still running and consumes its answer.
func (c *Controller) drain(timeout time.Duration) {
	p := c.eng.Expect(engine.EventBestMove)
	if err := c.eng.StopSearch(); err != nil {
		p.Cancel()
		return
	}
	if _, err := p.Wait(context.Background(), haltGrace(timeout)); err != nil {
		c.log.Debug().Err(err).Msg("nothing to drain")
	}
}

// searchRound runs one search with the given first moves banned and returns the
// deepest line reported for it.
func (c *Controller) searchRound(ctx context.Context, req Request, banned []string, rank int, timeout time.Duration) (engine.Line, error) {
	var mu sync.Mutex
	var top *engine.Progress
	cancel := c.eng.Subscribe(func(ev engine.Event) {
		if ev.Kind != engine.EventProgress || ev.Progress == nil || len(ev.Progress.PV) == 0 || ev.Progress.MultiPV > 1 {
			return
		}
		mu.Lock()
		if top == nil || ev.Progress.Depth >= top.Depth {
			top = ev.Progress
		}
		mu.Unlock()
	})
	defer cancel()

	if err := c.eng.SetPosition(req.FEN, req.Moves); err != nil {
		return engine.Line{}, err
	}
	if len(banned) > 0 {
		if err := c.eng.BanMoves(banned); err != nil {
			return engine.Line{}, err
		}
	}
	best := c.eng.Expect(engine.EventBestMove)
	if err := c.eng.Search(req.Limit); err != nil {
		best.Cancel()
		return engine.Line{}, err
	}
	ev, err := best.WaitOrHalt(ctx, timeout, c.eng.StopSearch, haltGrace(timeout))
	if err != nil {
		if ctx.Err() != nil {
			return engine.Line{}, ctx.Err()
		}
		if errors.Is(err, engine.ErrTimeout) {
			return engine.Line{}, fmt.Errorf("%w: rank %d after %v", engine.ErrSearchTimeout, rank, timeout)
		}
		return engine.Line{}, err
	}

	mu.Lock()
	p := top
	mu.Unlock()
	if p == nil || (ev.BestMove != "" && p.PV[0] != ev.BestMove) {
		if ev.BestMove == "" {
			return engine.Line{Rank: rank}, nil
		}
		return engine.Line{Rank: rank, Moves: []string{ev.BestMove}}, nil
	}
	return engine.LineFromProgress(rank, p), nil
}

// rootPosition is the position the request searches.
func rootPosition(req Request) (xiangqi.Position, error) {
	p, err := xiangqi.Decode(req.FEN)
	if err != nil {
		return p, err
	}
	for _, s := range req.Moves {
		m, err := xiangqi.ParseMove(s)
		if err != nil {
			return p, err
		}
		p = xiangqi.Apply(p, m)
	}
	return p, nil
}

// rejectFirst explains why move cannot open a line at root, or returns "".
func rejectFirst(root xiangqi.Position, banned []string, move string) string {
	for _, b := range banned {
		if b == move {
			return "already banned"
		}
	}
	m, err := xiangqi.ParseMove(move)
	if err != nil {
		return "unreadable"
	}
	if !xiangqi.IsLegalMove(root, m) {
		return "illegal here"
	}
	return ""
}

func haltGrace(timeout time.Duration) time.Duration {
	if timeout < maxHaltGrace {
		return timeout
	}
	return maxHaltGrace
}

func roundTimeout(l engine.Limit) time.Duration {
	if l.MoveTime > 0 {
		return l.MoveTime + 5*time.Second
	}
	return 30 * time.Second
}

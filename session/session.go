// Package session owns the game being analysed: the move history, the
// current position and the engine searching it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"xiangqi-local/engine"
	"xiangqi-local/engine/multiline"
	"xiangqi-local/record"
	"xiangqi-local/types"
	"xiangqi-local/xiangqi"
)

var (
	ErrNoEngine      = errors.New("no engine running")
	ErrUnknownEngine = errors.New("unknown engine")
)

// MaxLines caps the ranked line count.
const MaxLines = 5

// stopGrace bounds the wait for a stopped search's answer.
const stopGrace = 2 * time.Second

// expired is a done context, for waits that should only collect what has
// already arrived.
var expired = func() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}()

// Notifier displays transient messages. Implementations expire entries on
// their own after the notification's duration.
type Notifier interface {
	Push(n types.Notification)
	Remove(id uuid.UUID)
}

// Factory builds an unstarted engine by configured name.
type Factory func(name string) (engine.Engine, error)

// Config holds the session's collaborators and search settings.
type Config struct {
	FEN           string        // start position; the standard opening when empty
	Lines         int           // ranked lines requested
	Limit         engine.Limit  // per search
	SearchTimeout time.Duration // per emulated round
	Debounce      time.Duration // repeated identical moves inside this window are dropped

	Factory  Factory
	Notifier Notifier
	Logger   zerolog.Logger

	Now func() time.Time
}

// Session is safe for concurrent use. User operations are serialized by op;
// mu guards the state and is also taken by engine event handlers, which run
// on the engine's reader.
type Session struct {
	cfg     Config
	log     zerolog.Logger
	factory Factory
	notify  Notifier
	now     func() time.Time

	op sync.Mutex

	mu         sync.Mutex
	start      xiangqi.Position
	hist       History
	pos        xiangqi.Position
	status     xiangqi.Status
	eng        engine.Engine
	engName    string
	unsub      func()
	lines      []types.BestLine // indexed by rank-1
	count      int
	thinking   bool
	lastErr    error
	statusNote uuid.UUID
	engineNote uuid.UUID
	lastMove   xiangqi.Move
	lastAt     time.Time
	hasLast    bool
	gen        int
	cancel     context.CancelFunc
	cycleDone  chan struct{}
	cycleUnsub func()
	cycleBest  *engine.Pending
	cycleEng   engine.Engine
	listeners  []func(types.Snapshot)
}

// New creates a session at cfg.FEN with no engine.
func New(cfg Config) (*Session, error) {
	fen := cfg.FEN
	if fen == "" {
		fen = xiangqi.StartFEN
	}
	start, err := xiangqi.Decode(fen)
	if err != nil {
		return nil, err
	}
	if cfg.Notifier == nil {
		cfg.Notifier = nopNotifier{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	s := &Session{
		cfg:     cfg,
		log:     cfg.Logger.With().Str("component", "session").Logger(),
		factory: cfg.Factory,
		notify:  cfg.Notifier,
		now:     cfg.Now,
		start:   start,
		pos:     start,
		count:   clampLines(cfg.Lines),
	}
	s.status = s.evaluate(start)
	return s, nil
}

type nopNotifier struct{}

func (nopNotifier) Push(types.Notification) {}
func (nopNotifier) Remove(uuid.UUID)        {}

func clampLines(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxLines {
		return MaxLines
	}
	return n
}

// OnChange registers fn to receive a snapshot after every state change. fn
// may run on an engine reader goroutine.
func (s *Session) OnChange(fn func(types.Snapshot)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Session) changed() {
	s.mu.Lock()
	snap := s.snapshotLocked()
	listeners := append([]func(types.Snapshot){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(snap)
	}
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() types.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() types.Snapshot {
	snap := types.Snapshot{
		Start:     s.start,
		Position:  s.pos,
		Moves:     s.hist.All(),
		Pointer:   s.hist.Pointer(),
		Status:    s.status,
		Engine:    s.engName,
		LineCount: s.count,
		Thinking:  s.thinking,
	}
	if s.eng != nil {
		snap.Dialect = s.eng.Info().Dialect
	}
	for _, l := range s.lines {
		if l.Rank > 0 {
			snap.Lines = append(snap.Lines, l)
		}
	}
	if s.lastErr != nil {
		snap.LastError = s.lastErr.Error()
	}
	return snap
}

// evaluate runs the status checks. A failure there must not take the
// session down, so it degrades to an empty status.
func (s *Session) evaluate(p xiangqi.Position) (st xiangqi.Status) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("fen", xiangqi.Encode(p)).Msg("status evaluation failed")
			st = xiangqi.Status{}
		}
	}()
	return xiangqi.Evaluate(p)
}

// ApplyUserMove plays m at the pointer. An illegal move changes nothing and
// returns an error wrapping xiangqi.ErrIllegalMove. Repeating the last move
// within the debounce window is ignored.
func (s *Session) ApplyUserMove(m xiangqi.Move) error {
	s.op.Lock()
	defer s.op.Unlock()

	s.mu.Lock()
	now := s.now()
	if s.hasLast && m == s.lastMove && now.Sub(s.lastAt) < s.cfg.Debounce {
		s.mu.Unlock()
		s.log.Debug().Stringer("move", m).Msg("duplicate move ignored")
		return nil
	}
	if !xiangqi.IsLegalMove(s.pos, m) {
		fen := xiangqi.Encode(s.pos)
		s.mu.Unlock()
		s.log.Info().Stringer("move", m).Str("fen", fen).Msg("illegal move rejected")
		return fmt.Errorf("%w: %s", xiangqi.ErrIllegalMove, m)
	}
	s.hist.Push(m)
	s.pos = xiangqi.Apply(s.pos, m)
	s.lastMove, s.lastAt, s.hasLast = m, now, true
	s.clearLinesLocked()
	ply := s.hist.Pointer()
	s.mu.Unlock()

	s.log.Debug().Stringer("move", m).Int("ply", ply).Msg("move applied")
	s.restartSearch()
	s.updateStatus(true)
	s.changed()
	return nil
}

// Back takes back one move. It reports false at the start of the game.
func (s *Session) Back() bool {
	return s.step((*History).Back)
}

// Next replays one move of the redo tail. It reports false at its end.
func (s *Session) Next() bool {
	return s.step((*History).Next)
}

func (s *Session) step(move func(*History) bool) bool {
	s.op.Lock()
	defer s.op.Unlock()

	s.mu.Lock()
	if !move(&s.hist) {
		s.mu.Unlock()
		return false
	}
	s.pos = s.hist.Replay(s.start)
	s.hasLast = false
	s.clearLinesLocked()
	s.mu.Unlock()

	s.restartSearch()
	s.updateStatus(false)
	s.changed()
	return true
}

// SetRankedLineCount changes how many ranked lines are searched for.
func (s *Session) SetRankedLineCount(n int) {
	s.op.Lock()
	defer s.op.Unlock()

	n = clampLines(n)
	s.mu.Lock()
	s.count = n
	s.clearLinesLocked()
	eng := s.eng
	s.mu.Unlock()

	s.stopCycle()
	if eng != nil && eng.Info().NativeMultiLine {
		s.configureLines(eng, n)
	}
	s.restartSearch()
	s.changed()
}

// SetLimit changes the per-search limit and restarts the search.
func (s *Session) SetLimit(l engine.Limit) {
	s.op.Lock()
	defer s.op.Unlock()
	s.mu.Lock()
	if s.cfg.Limit == l {
		s.mu.Unlock()
		return
	}
	s.cfg.Limit = l
	s.clearLinesLocked()
	s.mu.Unlock()
	s.restartSearch()
	s.changed()
}

// SetSideToMove gives the move to side. Changing the side starts a new
// game from the current board, clearing the history.
func (s *Session) SetSideToMove(side xiangqi.Side) {
	s.op.Lock()
	defer s.op.Unlock()

	s.mu.Lock()
	if side != s.pos.Side {
		s.start = xiangqi.WithSide(s.pos, side)
		s.pos = s.start
		s.hist.Reset()
		s.hasLast = false
	}
	s.clearLinesLocked()
	s.mu.Unlock()

	s.restartSearch()
	s.updateStatus(false)
	s.changed()
}

// NewGame restarts from fen, or from the standard opening when fen is empty.
func (s *Session) NewGame(fen string) error {
	if fen == "" {
		fen = xiangqi.StartFEN
	}
	p, err := xiangqi.Decode(fen)
	if err != nil {
		return err
	}
	s.op.Lock()
	defer s.op.Unlock()
	s.reset(p, nil)
	return nil
}

// LoadRecord replaces the game with rec. Every move must be legal.
func (s *Session) LoadRecord(rec record.Record) error {
	fen := rec.FEN
	if fen == "" {
		fen = xiangqi.StartFEN
	}
	start, err := xiangqi.Decode(fen)
	if err != nil {
		return err
	}
	p := start
	for i, m := range rec.Moves {
		if !xiangqi.IsLegalMove(p, m) {
			return fmt.Errorf("move %d %s: %w", i+1, m, xiangqi.ErrIllegalMove)
		}
		p = xiangqi.Apply(p, m)
	}
	s.op.Lock()
	defer s.op.Unlock()
	s.reset(start, rec.Moves)
	return nil
}

func (s *Session) reset(start xiangqi.Position, moves []xiangqi.Move) {
	s.mu.Lock()
	s.start = start
	s.hist.Load(moves)
	s.pos = s.hist.Replay(start)
	s.hasLast = false
	s.clearLinesLocked()
	eng := s.eng
	s.mu.Unlock()

	s.stopCycle()
	if eng != nil {
		if err := eng.NewGame(); err != nil {
			s.log.Warn().Err(err).Msg("new game")
		}
	}
	s.restartSearch()
	s.updateStatus(false)
	s.changed()
}

// Record returns the game as a record.
func (s *Session) Record() record.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := record.Record{
		Date:   s.now().Format("2006.01.02"),
		Engine: s.engName,
		Moves:  s.hist.All(),
	}
	if fen := xiangqi.Encode(s.start); fen != xiangqi.StartFEN {
		rec.FEN = fen
	}
	end := s.start
	for _, m := range rec.Moves {
		end = xiangqi.Apply(end, m)
	}
	rec.Result = record.ResultString(s.evaluate(end).Winner)
	return rec
}

func (s *Session) clearLinesLocked() {
	s.lines = make([]types.BestLine, s.count)
}

// updateStatus re-evaluates the position. With announce set it pushes at most
// one notification: check (including mate) first, then a missing king, then
// stalemate.
func (s *Session) updateStatus(announce bool) {
	s.mu.Lock()
	st := s.evaluate(s.pos)
	s.status = st
	old := s.statusNote
	s.statusNote = uuid.Nil
	s.mu.Unlock()

	if old != uuid.Nil {
		s.notify.Remove(old)
	}
	if !announce {
		return
	}

	var n types.Notification
	switch {
	case st.Checkmate:
		n = types.NewNotification(fmt.Sprintf("Checkmate: %s", st.Winner), types.SeverityWarning, 10*time.Second)
	case st.Check:
		n = types.NewNotification("Check", types.SeverityInfo, 3*time.Second)
	case st.Winner == xiangqi.OutcomeRed || st.Winner == xiangqi.OutcomeBlack:
		n = types.NewNotification(fmt.Sprintf("Game over: %s", st.Winner), types.SeverityWarning, 10*time.Second)
	case st.Stalemate:
		n = types.NewNotification("Stalemate", types.SeverityWarning, 10*time.Second)
	default:
		return
	}
	s.mu.Lock()
	s.statusNote = n.ID
	s.mu.Unlock()
	s.notify.Push(n)
}

// stopCycle ends the running search cycle. The engine is told to stop and
// its answer is consumed before this returns, so the next search cannot be
// answered by the old one.
func (s *Session) stopCycle() {
	s.mu.Lock()
	cancel, done := s.cancel, s.cycleDone
	unsub, best, eng := s.cycleUnsub, s.cycleBest, s.cycleEng
	s.cancel, s.cycleDone = nil, nil
	s.cycleUnsub, s.cycleBest, s.cycleEng = nil, nil, nil
	s.gen++
	s.thinking = false
	s.mu.Unlock()

	// An emulated cycle stops and drains its own round.
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	if unsub != nil {
		unsub()
	}
	if best != nil {
		if _, err := best.WaitOrHalt(expired, 0, eng.StopSearch, stopGrace); err != nil {
			s.log.Debug().Msg("stopped superseded search")
		}
	}
}

// restartSearch pushes the position to the engine and starts a new search
// cycle. Results of earlier cycles are discarded.
func (s *Session) restartSearch() {
	s.stopCycle()

	s.mu.Lock()
	eng := s.eng
	if eng == nil {
		s.mu.Unlock()
		return
	}
	gen := s.gen
	fen := xiangqi.Encode(s.start)
	moves := xiangqi.MoveStrings(s.hist.Played())
	count := s.count
	limit := s.cfg.Limit
	native := eng.Info().NativeMultiLine
	s.thinking = true
	if native || count == 1 {
		s.mu.Unlock()
		s.searchDirect(eng, gen, fen, moves, limit)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel, s.cycleDone = cancel, done
	s.mu.Unlock()

	go func() {
		defer close(done)
		ctrl := multiline.New(eng, s.log)
		_, err := ctrl.Run(ctx, multiline.Request{
			FEN:     fen,
			Moves:   moves,
			Count:   count,
			Limit:   limit,
			Timeout: s.cfg.SearchTimeout,
		}, func(l engine.Line) { s.applyLine(eng, gen, l) })

		s.mu.Lock()
		current := s.gen == gen
		if current {
			s.thinking = false
		}
		s.mu.Unlock()
		switch {
		case err == nil, errors.Is(err, context.Canceled):
		case errors.Is(err, engine.ErrSearchTimeout), errors.Is(err, multiline.ErrStrayAnswer):
			s.log.Warn().Err(err).Msg("emulated search cut short")
		case current:
			s.engineFailed(eng, err)
			return
		}
		if current {
			s.changed()
		}
	}()
}

// searchDirect runs one engine search for cycle gen. Its output is read by a
// subscription that belongs to the cycle.
func (s *Session) searchDirect(eng engine.Engine, gen int, fen string, moves []string, limit engine.Limit) {
	unsub := eng.Subscribe(func(ev engine.Event) { s.onSearchEvent(eng, gen, ev) })
	best := eng.Expect(engine.EventBestMove)
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		unsub()
		best.Cancel()
		return
	}
	s.cycleUnsub, s.cycleBest, s.cycleEng = unsub, best, eng
	s.mu.Unlock()

	if err := eng.SetPosition(fen, moves); err != nil {
		s.engineFailed(eng, err)
		return
	}
	if err := eng.Search(limit); err != nil {
		s.engineFailed(eng, err)
	}
}

func (s *Session) applyLine(eng engine.Engine, gen int, l engine.Line) {
	s.mu.Lock()
	if s.eng != eng || s.gen != gen || l.Rank < 1 || l.Rank > len(s.lines) {
		s.mu.Unlock()
		return
	}
	moves := xiangqi.ParseMoves(l.Moves)
	if len(moves) == 0 || !xiangqi.IsLegalMove(s.pos, moves[0]) {
		// Left over from a search of another position.
		s.mu.Unlock()
		return
	}
	s.lines[l.Rank-1] = types.BestLine{
		Rank:  l.Rank,
		Depth: l.Depth,
		Score: l.Score,
		Mate:  l.Mate,
		Moves: moves,
	}
	s.mu.Unlock()
	s.changed()
}

// onSearchEvent handles the output of the direct search of cycle gen.
func (s *Session) onSearchEvent(eng engine.Engine, gen int, ev engine.Event) {
	switch ev.Kind {
	case engine.EventProgress:
		if ev.Progress != nil && len(ev.Progress.PV) > 0 {
			s.applyLine(eng, gen, engine.LineFromProgress(ev.Progress.MultiPV, ev.Progress))
		}
	case engine.EventBestMove:
		s.mu.Lock()
		current := s.eng == eng && s.gen == gen
		if current {
			s.thinking = false
		}
		s.mu.Unlock()
		if current {
			s.changed()
		}
	}
}

// onEvent handles engine output that is not tied to a search.
func (s *Session) onEvent(eng engine.Engine, ev engine.Event) {
	if ev.Kind != engine.EventError {
		return
	}
	s.mu.Lock()
	stale := s.eng != eng
	s.mu.Unlock()
	if stale {
		return
	}
	s.log.Warn().Str("line", ev.Line).Msg("engine error output")
	s.notify.Push(types.NewNotification("Engine: "+ev.Line, types.SeverityWarning, 5*time.Second))
}

// engineFailed records a lost engine. The engine stays selected so that a
// later switch can replace it.
func (s *Session) engineFailed(eng engine.Engine, err error) {
	s.mu.Lock()
	if s.eng != eng {
		s.mu.Unlock()
		return
	}
	s.thinking = false
	s.lastErr = err
	s.mu.Unlock()
	s.log.Error().Err(err).Str("engine", eng.Info().Name).Msg("engine command failed")
	s.setEngineNote(fmt.Sprintf("Engine %s failed: %v", eng.Info().Name, err))
	s.changed()
}

func (s *Session) setEngineNote(msg string) {
	n := types.NewNotification(msg, types.SeverityError, 0)
	s.mu.Lock()
	old := s.engineNote
	s.engineNote = n.ID
	s.mu.Unlock()
	if old != uuid.Nil {
		s.notify.Remove(old)
	}
	s.notify.Push(n)
}

func (s *Session) clearEngineNote() {
	s.mu.Lock()
	old := s.engineNote
	s.engineNote = uuid.Nil
	s.mu.Unlock()
	if old != uuid.Nil {
		s.notify.Remove(old)
	}
}

func (s *Session) configureLines(eng engine.Engine, n int) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := eng.SetMultiLineCount(ctx, n); err != nil {
		s.log.Warn().Err(err).Int("lines", n).Msg("set line count")
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
	}
}

// SwitchEngine replaces the running engine with the one configured as name.
// If the new engine cannot be started the previous one is restarted and the
// error is returned and kept as the last error.
func (s *Session) SwitchEngine(ctx context.Context, name string) error {
	s.op.Lock()
	defer s.op.Unlock()

	s.mu.Lock()
	prev := s.engName
	s.mu.Unlock()

	s.detach()
	eng, err := s.launch(ctx, name)
	if err != nil {
		path := ""
		if eng != nil {
			path = eng.Info().Path
		}
		s.log.Error().Err(err).Str("engine", name).Str("path", path).Msg("engine switch failed")
		if prev != "" && prev != name {
			if old, perr := s.launch(ctx, prev); perr == nil {
				s.attach(old, prev)
			} else {
				s.log.Error().Err(perr).Str("engine", prev).Msg("could not restart previous engine")
			}
		}
		s.mu.Lock()
		s.engName = prev
		s.lastErr = fmt.Errorf("switch to %s: %w", name, err)
		s.thinking = false
		s.mu.Unlock()
		msg := fmt.Sprintf("Engine %s unavailable: %v", name, err)
		if path != "" {
			msg = fmt.Sprintf("Engine %s unavailable (%s): %v", name, path, err)
		}
		s.setEngineNote(msg)
		s.restartSearch()
		s.changed()
		return fmt.Errorf("switch to %s: %w", name, err)
	}

	s.attach(eng, name)
	s.mu.Lock()
	s.lastErr = nil
	s.mu.Unlock()
	s.clearEngineNote()
	s.log.Info().Str("engine", name).Str("dialect", eng.Info().Dialect).Msg("engine switched")
	s.restartSearch()
	s.changed()
	return nil
}

// launch builds and starts an engine. On failure the engine, if one was
// built, is returned stopped alongside the error.
func (s *Session) launch(ctx context.Context, name string) (engine.Engine, error) {
	if s.factory == nil {
		return nil, ErrUnknownEngine
	}
	eng, err := s.factory(name)
	if err != nil {
		return nil, err
	}
	if err := eng.Start(ctx); err != nil {
		eng.Stop()
		return eng, err
	}
	return eng, nil
}

// attach makes eng the session engine and brings it to the current game.
func (s *Session) attach(eng engine.Engine, name string) {
	unsub := eng.Subscribe(func(ev engine.Event) { s.onEvent(eng, ev) })
	s.mu.Lock()
	s.eng = eng
	s.engName = name
	s.unsub = unsub
	count := s.count
	s.clearLinesLocked()
	s.mu.Unlock()

	if err := eng.NewGame(); err != nil {
		s.log.Warn().Err(err).Msg("new game")
	}
	if eng.Info().NativeMultiLine {
		s.configureLines(eng, count)
	}
}

// detach stops and forgets the current engine. Stop failures are logged.
func (s *Session) detach() {
	s.stopCycle()
	s.mu.Lock()
	eng, unsub := s.eng, s.unsub
	s.eng, s.unsub = nil, nil
	s.clearLinesLocked()
	s.mu.Unlock()
	if eng == nil {
		return
	}
	if unsub != nil {
		unsub()
	}
	if err := eng.Stop(); err != nil {
		s.log.Warn().Err(err).Msg("stop engine")
	}
}

// Engine returns the running engine's info.
func (s *Session) Engine() (engine.Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.eng == nil {
		return engine.Info{}, ErrNoEngine
	}
	return s.eng.Info(), nil
}

// Close stops the engine.
func (s *Session) Close() {
	s.op.Lock()
	defer s.op.Unlock()
	s.detach()
}

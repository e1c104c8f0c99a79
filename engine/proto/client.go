// Package proto drives UCI and UCCI engines running as subprocesses.
package proto

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"xiangqi-local/engine"
)

// Client implements engine.Engine over an engine's standard streams.
type Client struct {
	cfg     engine.Config
	dialect Dialect
	log     zerolog.Logger

	cmd   *exec.Cmd
	stdin io.WriteCloser
	done  chan struct{} // closed once both output readers have finished

	wmu sync.Mutex // serializes writes to stdin

	mu      sync.Mutex
	waiters []*engine.Pending
	subs    map[int]func(engine.Event)
	nextSub int
	name    string
	started bool
	stopped bool
}

// New creates a client for cfg. The process is not started until Start.
func New(cfg engine.Config) (*Client, error) {
	cfg = cfg.WithDefaults()
	d, err := DialectByName(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("engine %q: no executable path", cfg.Name)
	}
	return &Client{
		cfg:     cfg,
		dialect: d,
		log:     cfg.Logger.With().Str("engine", cfg.Name).Str("proto", d.Name).Logger(),
		subs:    make(map[int]func(engine.Event)),
		name:    cfg.Name,
	}, nil
}

// Start launches the process with its working directory set to the folder of
// the executable, then runs the handshake. On failure the process is killed.
func (c *Client) Start(ctx context.Context) error {
	path, err := exec.LookPath(c.cfg.Path)
	if err != nil {
		return fmt.Errorf("%w: %w", engine.ErrProcess, err)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	cmd := exec.Command(path, c.cfg.Args...)
	cmd.Dir = filepath.Dir(path)
	if len(c.cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), c.cfg.Env...)
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("%w: stdin pipe: %w", engine.ErrProcess, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: stdout pipe: %w", engine.ErrProcess, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("%w: stderr pipe: %w", engine.ErrProcess, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: start %s: %w", engine.ErrProcess, path, err)
	}
	c.cmd = cmd
	c.log.Info().Str("path", path).Str("dir", cmd.Dir).Int("pid", cmd.Process.Pid).Msg("engine started")

	c.attach(stdin, stdout, stderr)
	if err := c.handshake(ctx); err != nil {
		c.abort()
		return err
	}
	return nil
}

// attach wires the client to the engine's streams and starts the readers.
// stderr may be nil.
func (c *Client) attach(stdin io.WriteCloser, stdout, stderr io.Reader) {
	c.mu.Lock()
	c.stdin = stdin
	c.done = make(chan struct{})
	c.started = true
	c.mu.Unlock()

	var g errgroup.Group
	g.Go(func() error { return c.readLoop(stdout, c.handleLine) })
	if stderr != nil {
		g.Go(func() error { return c.readLoop(stderr, c.handleErrLine) })
	}
	go func() {
		if err := g.Wait(); err != nil {
			c.log.Warn().Err(err).Msg("engine output")
		}
		if c.cmd != nil {
			if err := c.cmd.Wait(); err != nil {
				c.log.Debug().Err(err).Msg("engine exited")
			}
		}
		close(c.done)
	}()
}

func (c *Client) readLoop(r io.Reader, handle func(string)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		handle(sc.Text())
	}
	return sc.Err()
}

func (c *Client) handleLine(line string) {
	c.log.Trace().Str("line", line).Msg("recv")
	if name, ok := parseIDName(line); ok {
		c.mu.Lock()
		c.name = name
		c.mu.Unlock()
		return
	}
	if ev, ok := c.dialect.classify(line); ok {
		c.dispatch(ev)
	}
}

func (c *Client) handleErrLine(line string) {
	if line == "" {
		return
	}
	c.log.Warn().Str("line", line).Msg("engine stderr")
	c.dispatch(engine.Event{Kind: engine.EventError, Line: line})
}

// dispatch resolves the oldest matching waiter and fans the event out to
// subscribers. Subscribers run outside the lock.
func (c *Client) dispatch(ev engine.Event) {
	c.mu.Lock()
	for i, w := range c.waiters {
		if w.Resolve(ev) {
			c.waiters = append(c.waiters[:i:i], c.waiters[i+1:]...)
			break
		}
	}
	ids := make([]int, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	subs := make([]func(engine.Event), 0, len(ids))
	for _, id := range ids {
		subs = append(subs, c.subs[id])
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

func (c *Client) handshake(ctx context.Context) error {
	hs := c.Expect(engine.EventHandshake)
	if err := c.write(c.dialect.Handshake); err != nil {
		hs.Cancel()
		return err
	}
	if _, err := hs.Wait(ctx, c.cfg.HandshakeTimeout); err != nil {
		return fmt.Errorf("%w: %s did not answer %q: %w",
			engine.ErrHandshakeTimeout, c.cfg.Path, c.dialect.Handshake, err)
	}

	if cmd := c.dialect.VariantOption(c.cfg.Variant); cmd != "" {
		if err := c.write(cmd); err != nil {
			return err
		}
	}
	names := make([]string, 0, len(c.cfg.Options))
	for name := range c.cfg.Options {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := c.write(c.dialect.SetOption(name, c.cfg.Options[name])); err != nil {
			return err
		}
	}
	if err := c.waitReady(ctx); err != nil {
		return err
	}
	c.log.Info().Str("name", c.Info().Name).Msg("handshake complete")
	return nil
}

func (c *Client) waitReady(ctx context.Context) error {
	p := c.Expect(engine.EventReady)
	if err := c.write("isready"); err != nil {
		p.Cancel()
		return err
	}
	if _, err := p.Wait(ctx, c.cfg.ReadyTimeout); err != nil {
		return fmt.Errorf("%w: %w", engine.ErrNotReady, err)
	}
	return nil
}

// Expect registers a one-shot wait. Waiting on it nudges the engine with an
// empty line, which some engines need before they flush output.
func (c *Client) Expect(kind engine.EventKind) *engine.Pending {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := engine.NewPending(kind, c.done, c.nudge, c.removeWaiter)
	c.waiters = append(c.waiters, p)
	return p
}

func (c *Client) removeWaiter(p *engine.Pending) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, w := range c.waiters {
		if w == p {
			c.waiters = append(c.waiters[:i:i], c.waiters[i+1:]...)
			return
		}
	}
}

func (c *Client) nudge() {
	if err := c.write(""); err != nil {
		c.log.Debug().Err(err).Msg("nudge")
	}
}

// Subscribe registers fn for every event until cancel is called or the
// client stops.
func (c *Client) Subscribe(fn func(engine.Event)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func (c *Client) write(line string) error {
	c.mu.Lock()
	stdin, stopped := c.stdin, c.stopped
	c.mu.Unlock()
	if stdin == nil || stopped {
		return engine.ErrClosed
	}
	return c.writeTo(stdin, line)
}

func (c *Client) writeTo(w io.Writer, line string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if line != "" {
		c.log.Debug().Str("cmd", line).Msg("send")
	}
	if _, err := io.WriteString(w, line+"\n"); err != nil {
		return fmt.Errorf("%w: write %q: %w", engine.ErrProcess, line, err)
	}
	return nil
}

// Send writes a raw command.
func (c *Client) Send(cmd string) error {
	return c.write(cmd)
}

// SetMultiLineCount sets the ranked line count and waits for readiness. The
// UCI dialect treats a missing reply as an error; UCCI only logs it.
func (c *Client) SetMultiLineCount(ctx context.Context, n int) error {
	if n < 1 {
		n = 1
	}
	if err := c.write(c.dialect.MultiLineOption(n)); err != nil {
		return err
	}
	err := c.waitReady(ctx)
	if err != nil && !c.dialect.StrictMultiLineReady {
		c.log.Warn().Err(err).Int("lines", n).Msg("no readiness reply after line count change")
		return nil
	}
	return err
}

func (c *Client) NewGame() error {
	return c.write(c.dialect.NewGameCmd)
}

func (c *Client) SetPosition(fen string, moves []string) error {
	return c.write(c.dialect.PositionCommand(fen, moves))
}

// BanMoves excludes root moves from the next search. UCI has no equivalent.
func (c *Client) BanMoves(moves []string) error {
	if !c.dialect.CanBanMoves {
		return fmt.Errorf("banmoves: %w", engine.ErrUnsupported)
	}
	if len(moves) == 0 {
		return nil
	}
	return c.write(c.dialect.BanCommand(moves))
}

func (c *Client) Search(limit engine.Limit) error {
	return c.write(c.dialect.SearchCommand(limit))
}

// StopSearch sends stop. Both dialects spell it the same way.
func (c *Client) StopSearch() error {
	return c.write("stop")
}

func (c *Client) Info() engine.Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	return engine.Info{
		Name:            c.name,
		Path:            c.cfg.Path,
		Dialect:         c.dialect.Name,
		NativeMultiLine: c.dialect.NativeMultiLine,
	}
}

// Stop sends quit, closes stdin and waits for the process to exit, killing
// it after the quit timeout. Later calls do nothing.
func (c *Client) Stop() error {
	c.mu.Lock()
	if !c.started || c.stopped {
		c.stopped = true
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	stdin := c.stdin
	c.subs = make(map[int]func(engine.Event))
	c.mu.Unlock()

	if err := c.writeTo(stdin, "quit"); err != nil {
		c.log.Debug().Err(err).Msg("quit")
	}
	stdin.Close()

	select {
	case <-c.done:
	case <-time.After(c.cfg.QuitTimeout):
		c.log.Warn().Dur("timeout", c.cfg.QuitTimeout).Msg("engine did not quit, killing")
		c.kill()
		<-c.done
	}
	c.log.Info().Msg("engine stopped")
	return nil
}

// abort tears down a half-started client.
func (c *Client) abort() {
	c.mu.Lock()
	c.stopped = true
	stdin := c.stdin
	c.subs = make(map[int]func(engine.Event))
	c.mu.Unlock()

	c.kill()
	if stdin != nil {
		stdin.Close()
	}
	select {
	case <-c.done:
	case <-time.After(c.cfg.QuitTimeout):
		c.log.Error().Msg("engine output did not close after kill")
	}
}

func (c *Client) kill() {
	if c.cmd == nil || c.cmd.Process == nil {
		return
	}
	if err := c.cmd.Process.Kill(); err != nil {
		c.log.Debug().Err(err).Msg("kill")
	}
}

var _ engine.Engine = (*Client)(nil)

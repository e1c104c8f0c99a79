// xiangqi-local is a terminal application to analyse xiangqi positions with
// a local UCI or UCCI engine.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/rs/zerolog"

	"xiangqi-local/config"
	"xiangqi-local/engine"
	"xiangqi-local/engine/proto"
	"xiangqi-local/logx"
	"xiangqi-local/record"
	"xiangqi-local/session"
	"xiangqi-local/types"
	"xiangqi-local/ui"
	"xiangqi-local/xiangqi"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	flagEngine   = flag.String("engine", "", "Engine to start with (a name from the config)")
	flagFEN      = flag.String("fen", "", "Start position")
	flagLines    = flag.Int("lines", 0, "Ranked lines to show (1-5)")
	flagMoveTime = flag.Int("movetime", 0, "Think time per search in milliseconds")
	flagDepth    = flag.Int("depth", 0, "Search depth, overrides -movetime")
	flagLoad     = flag.String("load", "", "Open a saved game record")
	flagPlay     = flag.Bool("play", false, "Start analysing immediately with defaults")
	flagFocus    = flag.Bool("focus", false, "Start in focus mode (fullscreen board)")
	flagVersion  = flag.Bool("version", false, "Print version and exit")
)

var (
	app        *tview.Application
	rootPage   *tview.Pages
	board      *ui.BoardUI
	infoPanel  *ui.GameInfoPanel
	notes      *ui.Notifier
	gameFrame  *tview.Flex
	gameHint   *tview.TextView
	setupMenu  *ui.SetupMenu
	engineForm *ui.EngineFormUI
	history    *ui.HistoryBrowserUI
	sess       *session.Session
	jobs       *serial
	cfg        *config.Config
	log        zerolog.Logger
)

func main() {
	flag.Parse()

	if *flagVersion {
		fmt.Printf("xiangqi-local %s\n", Version)
		return
	}

	var err error
	cfg, err = config.InitConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := applyFlags(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	var closeLog func()
	log, closeLog = logx.Open(config.LogPath(), cfg.Level())
	defer closeLog()
	log.Info().Str("version", Version).Msg("starting")

	var rec *record.Record
	if *flagLoad != "" {
		r, err := record.Load(*flagLoad)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Cannot open %s: %v\n", *flagLoad, err)
			os.Exit(1)
		}
		rec = &r
	}

	app = tview.NewApplication()
	notes = ui.NewNotifier(func(f func()) {
		go app.QueueUpdateDraw(f)
	})
	defer notes.Stop()

	sess, err = session.New(session.Config{
		FEN:           *flagFEN,
		Lines:         cfg.Search.Lines,
		Limit:         cfg.Limit(),
		SearchTimeout: cfg.SearchTimeout(),
		Debounce:      cfg.Debounce(),
		Factory:       newFactory(cfg, log),
		Notifier:      notes,
		Logger:        log,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Bad start position: %v\n", err)
		os.Exit(2)
	}
	defer sess.Close()
	jobs = newSerial(64)
	defer jobs.Close()
	if rec != nil {
		if err := sess.LoadRecord(*rec); err != nil {
			fmt.Fprintf(os.Stderr, "Cannot replay %s: %v\n", *flagLoad, err)
			os.Exit(1)
		}
	}

	quickStart := *flagPlay || *flagEngine != "" || *flagFEN != "" || *flagLoad != "" || *flagFocus

	rootPage = tview.NewPages()
	rootPage.SetBorder(true).SetTitle(" 帥 xiangqi ")

	gameHint = tview.NewTextView()
	gameHint.SetBorder(true)
	gameHint.SetBorderPadding(0, 0, 1, 1)
	gameHint.SetTitle(" Status ")
	gameHint.SetTitleAlign(tview.AlignLeft)
	board = ui.NewBoard(cfg, gameHint)
	infoPanel = ui.NewGameInfoPanel()
	gameFrame = ui.CreateGameLayout(board, infoPanel, notes, gameHint)

	sess.OnChange(func(snap types.Snapshot) {
		go app.QueueUpdateDraw(func() {
			board.SetSnapshot(snap)
			infoPanel.SetSnapshot(snap)
		})
	})
	snap := sess.Snapshot()
	board.SetSnapshot(snap)
	infoPanel.SetSnapshot(snap)

	board.Box.SetInputCapture(handleBoardKey)

	setupMenu = ui.NewSetupMenu(cfg, session.MaxLines, ui.SetupActions{
		Start:   startAnalysis,
		Engines: func() { editEngine(setupMenu.Choice().Engine) },
		History: func() {
			history.Refresh()
			rootPage.SwitchToPage("history")
		},
		Colors: func() { rootPage.SwitchToPage("colors") },
		Quit:   func() { app.Stop() },
	})

	engineForm = ui.NewEngineForm(saveEngine, func() { rootPage.SwitchToPage("setup") })

	history = ui.NewHistoryBrowser(config.HistoryDir(), func(r record.Record) {
		jobs.Do(func() {
			if err := sess.LoadRecord(r); err != nil {
				notify(fmt.Sprintf("Cannot replay game: %v", err), types.SeverityError)
				return
			}
			go app.QueueUpdateDraw(func() { startAnalysis(setupMenu.Choice()) })
		})
	}, func() { rootPage.SwitchToPage("setup") })

	colorConfig := ui.NewColorConfig(cfg, func() {
		board.SetConfig(cfg)
		rootPage.SwitchToPage("setup")
	})
	colorConfig.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEsc || (event.Key() == tcell.KeyRune && event.Rune() == 'q') {
			rootPage.SwitchToPage("setup")
			return nil
		}
		if event.Key() == tcell.KeyTab {
			colorConfig.ToggleMode()
			return nil
		}
		return event
	})

	rootPage.AddPage("setup", ui.CreateCenteredForm(setupMenu, 56), true, !quickStart)
	rootPage.AddPage("gameview", gameFrame, true, quickStart)
	rootPage.AddPage("engines", ui.CreateCenteredForm(engineForm.Flex(), 64), true, false)
	rootPage.AddPage("history", history.Flex(), true, false)
	rootPage.AddPage("colors", colorConfig.Flex(), true, false)

	if quickStart {
		startAnalysis(setupMenu.Choice())
		if *flagFocus {
			board.SetFocusMode(true)
			ui.BuildFocusLayout(gameFrame, board)
		}
	}

	if err := app.SetRoot(rootPage, true).Run(); err != nil {
		log.Error().Err(err).Msg("ui stopped")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// applyFlags overrides the configuration from the command line.
func applyFlags(c *config.Config) error {
	if *flagEngine != "" {
		if _, ok := c.Engine(*flagEngine); !ok {
			return fmt.Errorf("unknown engine %q, configured: %v", *flagEngine, c.EngineNames())
		}
		c.DefaultEngine = *flagEngine
	}
	if *flagLines != 0 {
		c.Search.Lines = *flagLines
	}
	if *flagMoveTime > 0 {
		c.Search.MoveTimeMs = *flagMoveTime
	}
	if *flagDepth > 0 {
		c.Search.Depth = *flagDepth
	}
	return c.Validate()
}

// newFactory builds engine clients from the configured engines.
func newFactory(c *config.Config, log zerolog.Logger) session.Factory {
	return func(name string) (engine.Engine, error) {
		pc, ok := c.EngineProcess(name, log)
		if !ok {
			return nil, fmt.Errorf("%w: %s", session.ErrUnknownEngine, name)
		}
		client, err := proto.New(pc)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// serial runs session operations one at a time, in the order they were
// asked for, off the UI goroutine.
type serial struct {
	jobs chan func()
}

func newSerial(n int) *serial {
	q := &serial{jobs: make(chan func(), n)}
	go func() {
		for job := range q.jobs {
			job()
		}
	}()
	return q
}

// Do queues job behind the operations already asked for.
func (q *serial) Do(job func()) {
	q.jobs <- job
}

func (q *serial) Close() {
	close(q.jobs)
}

// startAnalysis applies the setup choices and switches to the board. The
// engine starts in the background so the UI stays responsive.
func startAnalysis(choice ui.SetupChoice) {
	rootPage.SwitchToPage("gameview")
	if choice.Engine == "" {
		notify("No engine configured; add one under Engines", types.SeverityWarning)
		return
	}
	jobs.Do(func() {
		limit := cfg.Limit()
		if choice.MoveTime > 0 {
			limit.MoveTime = choice.MoveTime
		}
		sess.SetLimit(limit)
		sess.SetRankedLineCount(choice.Lines)
		if _, err := sess.Engine(); err == nil && sess.Snapshot().Engine == choice.Engine {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := sess.SwitchEngine(ctx, choice.Engine); err != nil {
			log.Warn().Err(err).Str("engine", choice.Engine).Msg("start analysis")
		}
	})
}

// cycleEngine switches to the configured engine after the running one.
func cycleEngine() {
	names := cfg.EngineNames()
	if len(names) == 0 {
		return
	}
	current := sess.Snapshot().Engine
	next := names[0]
	for i, n := range names {
		if n == current {
			next = names[(i+1)%len(names)]
		}
	}
	notify("Starting "+next+"…", types.SeverityInfo)
	jobs.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := sess.SwitchEngine(ctx, next); err != nil {
			log.Warn().Err(err).Str("engine", next).Msg("cycle engine")
		}
	})
}

func editEngine(name string) {
	e, _ := cfg.Engine(name)
	engineForm.Edit(e, func() { rootPage.SwitchToPage("setup") })
	rootPage.SwitchToPage("engines")
}

func saveEngine(e config.EngineConfig) error {
	next := *cfg
	next.Engines = append([]config.EngineConfig(nil), cfg.Engines...)
	next.SetEngine(e)
	if err := next.Validate(); err != nil {
		return err
	}
	*cfg = next
	if err := cfg.Save(); err != nil {
		log.Warn().Err(err).Msg("save config")
		return err
	}
	setupMenu.RefreshEngines()
	rootPage.SwitchToPage("setup")
	return nil
}

func saveRecord() {
	jobs.Do(func() {
		path, err := record.Save(config.HistoryDir(), sess.Record())
		if err != nil {
			log.Error().Err(err).Msg("save record")
			notify(fmt.Sprintf("Save failed: %v", err), types.SeverityError)
			return
		}
		log.Info().Str("path", path).Msg("record saved")
		notify("Saved "+path, types.SeverityInfo)
	})
}

func notify(msg string, sev types.Severity) {
	notes.Push(types.NewNotification(msg, sev, 4*time.Second))
}

func handleBoardKey(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyUp:
		board.MoveCursor(0, -1)
	case tcell.KeyDown:
		board.MoveCursor(0, 1)
	case tcell.KeyLeft:
		board.MoveCursor(-1, 0)
	case tcell.KeyRight:
		board.MoveCursor(1, 0)
	case tcell.KeyEsc:
		board.ResetSelection()
	case tcell.KeyEnter:
		if m, ok := board.Activate(); ok {
			jobs.Do(func() { playMove(m) })
		}
	case tcell.KeyRune:
		switch event.Rune() {
		case 'h':
			board.MoveCursor(-1, 0)
		case 'j':
			board.MoveCursor(0, 1)
		case 'k':
			board.MoveCursor(0, -1)
		case 'l':
			board.MoveCursor(1, 0)
		case '[':
			jobs.Do(func() { sess.Back() })
		case ']':
			jobs.Do(func() { sess.Next() })
		case '+', '=':
			jobs.Do(func() { sess.SetRankedLineCount(sess.Snapshot().LineCount + 1) })
		case '-':
			jobs.Do(func() { sess.SetRankedLineCount(sess.Snapshot().LineCount - 1) })
		case 's':
			jobs.Do(func() { sess.SetSideToMove(sess.Snapshot().Position.Side.Opponent()) })
		case 'e':
			cycleEngine()
		case 'n':
			jobs.Do(func() {
				if err := sess.NewGame(""); err != nil {
					notify(err.Error(), types.SeverityError)
				}
			})
		case 'w':
			saveRecord()
		case 'f':
			if board.ToggleFocusMode() {
				ui.BuildFocusLayout(gameFrame, board)
			} else {
				ui.RebuildNormalLayout(gameFrame, board, infoPanel, notes, gameHint)
			}
		case 'q':
			if !board.ResetSelection() {
				jobs.Do(sess.Close)
				rootPage.SwitchToPage("setup")
			}
			return nil
		}
	}
	return event
}

func playMove(m xiangqi.Move) {
	err := sess.ApplyUserMove(m)
	if errors.Is(err, xiangqi.ErrIllegalMove) {
		notify("Illegal move "+m.String(), types.SeverityWarning)
	} else if err != nil {
		notify(err.Error(), types.SeverityError)
	}
}

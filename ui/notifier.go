package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rivo/tview"

	"xiangqi-local/types"
)

// maxShownNotes is how many notifications fit under the board.
const maxShownNotes = 3

// Notifier shows transient messages under the board and removes each one
// when its duration runs out. It is safe for concurrent use.
type Notifier struct {
	view   *tview.TextView
	redraw func(func())

	mu     sync.Mutex
	notes  []types.Notification
	timers map[uuid.UUID]*time.Timer
}

// NewNotifier creates a notifier. redraw runs a view update on the UI
// goroutine; tests pass a func that calls its argument directly.
func NewNotifier(redraw func(func())) *Notifier {
	n := &Notifier{
		view:   tview.NewTextView(),
		redraw: redraw,
		timers: make(map[uuid.UUID]*time.Timer),
	}
	n.view.SetDynamicColors(true)
	return n
}

// View returns the text view the notifications are drawn in.
func (n *Notifier) View() *tview.TextView {
	return n.view
}

// Push shows note. Pushing an ID that is already shown replaces it.
func (n *Notifier) Push(note types.Notification) {
	n.mu.Lock()
	n.dropLocked(note.ID)
	n.notes = append(n.notes, note)
	if note.Duration > 0 {
		id := note.ID
		n.timers[id] = time.AfterFunc(note.Duration, func() { n.Remove(id) })
	}
	text := n.renderLocked()
	n.mu.Unlock()
	n.show(text)
}

// Remove hides the notification with id. Unknown ids are ignored.
func (n *Notifier) Remove(id uuid.UUID) {
	n.mu.Lock()
	if !n.dropLocked(id) {
		n.mu.Unlock()
		return
	}
	text := n.renderLocked()
	n.mu.Unlock()
	n.show(text)
}

// Active returns the notifications currently shown, oldest first.
func (n *Notifier) Active() []types.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]types.Notification(nil), n.notes...)
}

// Stop cancels pending expiries.
func (n *Notifier) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for id, t := range n.timers {
		t.Stop()
		delete(n.timers, id)
	}
}

func (n *Notifier) dropLocked(id uuid.UUID) bool {
	if t, ok := n.timers[id]; ok {
		t.Stop()
		delete(n.timers, id)
	}
	for i, note := range n.notes {
		if note.ID == id {
			n.notes = append(n.notes[:i], n.notes[i+1:]...)
			return true
		}
	}
	return false
}

func (n *Notifier) renderLocked() string {
	notes := n.notes
	if len(notes) > maxShownNotes {
		notes = notes[len(notes)-maxShownNotes:]
	}
	var b strings.Builder
	for _, note := range notes {
		color := "white"
		switch note.Severity {
		case types.SeverityWarning:
			color = "yellow"
		case types.SeverityError:
			color = "red"
		}
		fmt.Fprintf(&b, "  [%s]%s[-]\n", color, tview.Escape(note.Message))
	}
	return b.String()
}

func (n *Notifier) show(text string) {
	if n.redraw == nil {
		return
	}
	n.redraw(func() { n.view.SetText(text) })
}

// Package types contains shared data structures for xiangqi-local.
package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"xiangqi-local/xiangqi"
)

// BestLine is one ranked engine variation, converted to board moves.
type BestLine struct {
	Rank  int
	Depth int
	Score int // centipawns from the side to move, or moves to mate
	Mate  bool
	Moves []xiangqi.Move
}

// ScoreString formats the score as "+0.35" or "M3".
func (l BestLine) ScoreString() string {
	if l.Mate {
		if l.Score < 0 {
			return fmt.Sprintf("-M%d", -l.Score)
		}
		return fmt.Sprintf("M%d", l.Score)
	}
	return fmt.Sprintf("%+.2f", float64(l.Score)/100)
}

// Severity of a notification.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return "info"
}

// Notification is a transient message for the user. A zero Duration keeps it
// until it is removed.
type Notification struct {
	ID       uuid.UUID
	Message  string
	Severity Severity
	Duration time.Duration
}

// NewNotification creates a notification with a fresh identity.
func NewNotification(msg string, sev Severity, d time.Duration) Notification {
	return Notification{ID: uuid.New(), Message: msg, Severity: sev, Duration: d}
}

// Snapshot is a consistent copy of the session state for display.
type Snapshot struct {
	Start    xiangqi.Position
	Position xiangqi.Position
	Moves    []xiangqi.Move // whole history, including the redo tail
	Pointer  int            // number of moves applied
	Status   xiangqi.Status

	Engine    string
	Dialect   string
	Lines     []BestLine // by rank
	LineCount int
	Thinking  bool
	LastError string
}

// LastMove returns the most recently applied move.
func (s Snapshot) LastMove() (xiangqi.Move, bool) {
	if s.Pointer == 0 || s.Pointer > len(s.Moves) {
		return xiangqi.Move{}, false
	}
	return s.Moves[s.Pointer-1], true
}

// CanBack reports whether there is a move to take back.
func (s Snapshot) CanBack() bool { return s.Pointer > 0 }

// CanNext reports whether there is a move to replay.
func (s Snapshot) CanNext() bool { return s.Pointer < len(s.Moves) }

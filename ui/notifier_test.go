package ui

import (
	"strings"
	"testing"
	"time"

	"xiangqi-local/types"
)

func direct(f func()) { f() }

func TestNotifierPushAndRemove(t *testing.T) {
	n := NewNotifier(direct)
	defer n.Stop()
	a := types.NewNotification("Check", types.SeverityInfo, 0)
	b := types.NewNotification("Engine gone", types.SeverityError, 0)
	n.Push(a)
	n.Push(b)
	if got := n.Active(); len(got) != 2 {
		t.Fatalf("active = %v", got)
	}
	if text := n.View().GetText(false); !strings.Contains(text, "Engine gone") {
		t.Fatalf("view = %q", text)
	}
	n.Remove(a.ID)
	if got := n.Active(); len(got) != 1 || got[0].ID != b.ID {
		t.Fatalf("active = %v", got)
	}
	n.Remove(a.ID)
}

func TestNotifierReplacesSameID(t *testing.T) {
	n := NewNotifier(direct)
	defer n.Stop()
	note := types.NewNotification("first", types.SeverityInfo, 0)
	n.Push(note)
	note.Message = "second"
	n.Push(note)
	got := n.Active()
	if len(got) != 1 || got[0].Message != "second" {
		t.Fatalf("active = %v", got)
	}
}

func TestNotifierExpires(t *testing.T) {
	n := NewNotifier(direct)
	defer n.Stop()
	n.Push(types.NewNotification("Check", types.SeverityInfo, 20*time.Millisecond))
	n.Push(types.NewNotification("stays", types.SeverityWarning, 0))
	deadline := time.Now().Add(2 * time.Second)
	for len(n.Active()) != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("still active: %v", n.Active())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if n.Active()[0].Message != "stays" {
		t.Fatalf("wrong note expired: %v", n.Active())
	}
}

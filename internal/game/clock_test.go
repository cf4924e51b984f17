package game

import (
	"testing"
	"time"
)

func TestClockFiresAndForgets(t *testing.T) {
	cm := NewClockManager()
	fired := make(chan string, 1)

	cm.Start("g1", 10*time.Millisecond, func(id string) { fired <- id })

	select {
	case id := <-fired:
		if id != "g1" {
			t.Fatalf("expected g1, got %s", id)
		}
	case <-time.After(time.Second):
		t.Fatalf("timer never fired")
	}
	if cm.Active("g1") {
		t.Fatalf("expected handle removed after expiry")
	}
}

func TestClockCancelIsIdempotent(t *testing.T) {
	cm := NewClockManager()
	fired := make(chan string, 1)

	cm.Start("g1", 20*time.Millisecond, func(id string) { fired <- id })
	cm.Cancel("g1")
	cm.Cancel("g1")
	cm.Cancel("never-started")

	select {
	case <-fired:
		t.Fatalf("canceled timer fired")
	case <-time.After(60 * time.Millisecond):
	}
	if cm.Len() != 0 {
		t.Fatalf("expected no handles, len=%d", cm.Len())
	}
}

func TestClockStartReplacesHandle(t *testing.T) {
	cm := NewClockManager()
	fired := make(chan string, 2)

	cm.Start("g1", time.Hour, func(id string) { fired <- "long" })
	cm.Start("g1", 10*time.Millisecond, func(id string) { fired <- "short" })

	select {
	case which := <-fired:
		if which != "short" {
			t.Fatalf("expected replacement timer, got %s", which)
		}
	case <-time.After(time.Second):
		t.Fatalf("replacement timer never fired")
	}
	if cm.Len() != 0 {
		t.Fatalf("stale handle left behind, len=%d", cm.Len())
	}
}

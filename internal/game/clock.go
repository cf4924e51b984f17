package game

import (
	"sync"
	"time"
)

// ClockManager owns one deferred timeout per timed in-progress game. The
// handle exists iff the game is timed and in progress; Cancel is idempotent.
// Cancellation is best effort: a timer may fire concurrently with a cancel,
// the controller's in-progress check is what prevents a double terminal
// transition.
type ClockManager struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewClockManager() *ClockManager {
	return &ClockManager{timers: make(map[string]*time.Timer)}
}

// Start schedules expire(gameID) after d, replacing any previous handle for
// the same game.
func (c *ClockManager) Start(gameID string, d time.Duration, expire func(gameID string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.timers[gameID]; ok {
		prev.Stop()
	}
	c.timers[gameID] = time.AfterFunc(d, func() {
		c.mu.Lock()
		delete(c.timers, gameID)
		c.mu.Unlock()
		expire(gameID)
	})
}

// Cancel stops and forgets the handle. Safe on a missing handle and safe to
// call more than once.
func (c *ClockManager) Cancel(gameID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.timers[gameID]; ok {
		t.Stop()
		delete(c.timers, gameID)
	}
}

// Active reports whether a handle currently exists for the game.
func (c *ClockManager) Active(gameID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.timers[gameID]
	return ok
}

func (c *ClockManager) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

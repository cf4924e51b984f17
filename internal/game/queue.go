package game

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"sync"
	"time"
)

var ErrQueueFull = errors.New("matchmaking queue full")

// Preferences are the stated matchmaking constraints of a ticket.
type Preferences struct {
	Difficulty       *int
	TimeLimitMinutes float64
	Side             ColorChoice
}

// Ticket is one pending matchmaking request. At most one ticket exists per
// user; re-submission supersedes the previous one.
type Ticket struct {
	UserID     string
	Prefs      Preferences
	EnqueuedAt time.Time
}

// Pairing is the outcome of a successful match with colors already assigned.
type Pairing struct {
	White            *Ticket
	Black            *Ticket
	Difficulty       *int
	TimeLimitMinutes float64
}

// Queue pairs compatible tickets in arrival order (first fit). It is owned by
// a single engine instance and guarded by its own mutex; it does not
// coordinate across instances.
type Queue struct {
	mu      sync.Mutex
	tickets []*Ticket
	limit   int
}

func NewQueue(limit int) *Queue {
	if limit <= 0 {
		limit = 500
	}
	return &Queue{limit: limit}
}

// Submit removes any prior ticket for the same user, then scans queued
// tickets in arrival order for the first compatible one. It returns a Pairing
// when matched, nil when the ticket was queued.
func (q *Queue) Submit(userID string, prefs Preferences) (*Pairing, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("invalid user")
	}
	ticket := &Ticket{UserID: userID, Prefs: prefs, EnqueuedAt: time.Now()}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.removeLocked(userID)

	for i, other := range q.tickets {
		if !compatible(ticket, other) {
			continue
		}
		q.tickets = append(q.tickets[:i], q.tickets[i+1:]...)
		white, black := assignColors(ticket, other)
		return &Pairing{
			White:            white,
			Black:            black,
			Difficulty:       prefs.Difficulty,
			TimeLimitMinutes: prefs.TimeLimitMinutes,
		}, nil
	}

	if len(q.tickets) >= q.limit {
		return nil, ErrQueueFull
	}
	q.tickets = append(q.tickets, ticket)
	return nil, nil
}

// Remove cancels a pending ticket, typically on disconnect.
func (q *Queue) Remove(userID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.removeLocked(userID)
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tickets)
}

func (q *Queue) removeLocked(userID string) bool {
	for i, t := range q.tickets {
		if t.UserID == userID {
			q.tickets = append(q.tickets[:i], q.tickets[i+1:]...)
			return true
		}
	}
	return false
}

// compatible requires equal difficulty, equal time limit, and side
// preferences that do not collide; "random" matches anything.
func compatible(a, b *Ticket) bool {
	if a.UserID == b.UserID {
		return false
	}
	if !difficultyEqual(a.Prefs.Difficulty, b.Prefs.Difficulty) {
		return false
	}
	if a.Prefs.TimeLimitMinutes != b.Prefs.TimeLimitMinutes {
		return false
	}
	if a.Prefs.Side == ChoiceWhite && b.Prefs.Side == ChoiceWhite {
		return false
	}
	if a.Prefs.Side == ChoiceBlack && b.Prefs.Side == ChoiceBlack {
		return false
	}
	return true
}

func difficultyEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// assignColors honors an explicit preference on either side; two randoms get
// an unbiased coin flip. Conflicting explicit preferences never reach here,
// the compatibility predicate excludes them.
func assignColors(requester, opponent *Ticket) (white, black *Ticket) {
	switch {
	case requester.Prefs.Side == ChoiceWhite, opponent.Prefs.Side == ChoiceBlack:
		return requester, opponent
	case requester.Prefs.Side == ChoiceBlack, opponent.Prefs.Side == ChoiceWhite:
		return opponent, requester
	}
	if n, err := rand.Int(rand.Reader, big.NewInt(2)); err == nil && n.Int64() == 0 {
		return opponent, requester
	}
	return requester, opponent
}

package game

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

type fakeNotifier struct {
	mu       sync.Mutex
	started  []*Session
	updated  []*Session
	invalid  map[string][]string
	resigned []string
	offers   []string
	rejects  []string
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{invalid: make(map[string][]string)}
}

func (f *fakeNotifier) GameStarted(s *Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, s)
}

func (f *fakeNotifier) GameUpdated(s *Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, s)
}

func (f *fakeNotifier) InvalidMove(userID, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalid[userID] = append(f.invalid[userID], reason)
}

func (f *fakeNotifier) PlayerResigned(s *Session, resignedID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resigned = append(f.resigned, resignedID)
}

func (f *fakeNotifier) DrawOffered(s *Session, requesterID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offers = append(f.offers, requesterID)
}

func (f *fakeNotifier) DrawRejected(s *Session, responderID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejects = append(f.rejects, responderID)
}

func (f *fakeNotifier) lastUpdate(t *testing.T) *Session {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.updated) == 0 {
		t.Fatalf("no updates recorded")
	}
	return f.updated[len(f.updated)-1]
}

func (f *fakeNotifier) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updated)
}

type fakeScheduler struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeScheduler) Schedule(gameID, level string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, gameID+":"+level)
}

func (f *fakeScheduler) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestController(t *testing.T) (*Controller, *Store, *fakeNotifier) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	store, err := OpenStore(fmt.Sprintf("redis://%s/0", mr.Addr()), time.Hour)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	notif := newFakeNotifier()
	return NewController(store, NewClockManager(), notif), store, notif
}

func pairingFor(white, black string, timeLimit float64) *Pairing {
	return &Pairing{
		White:            &Ticket{UserID: white},
		Black:            &Ticket{UserID: black},
		TimeLimitMinutes: timeLimit,
	}
}

func TestCreateMatch(t *testing.T) {
	c, store, notif := newTestController(t)
	ctx := context.Background()

	sess, err := c.CreateMatch(ctx, pairingFor("u1", "u2", 10))
	if err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}
	if sess.Status != StatusInProgress {
		t.Fatalf("expected in-progress, got %s", sess.Status)
	}
	if sess.SideToMove() != White {
		t.Fatalf("expected white to move first")
	}
	if !c.clock.Active(sess.GameID) {
		t.Fatalf("expected clock armed for timed game")
	}
	for _, u := range []string{"u1", "u2"} {
		id, err := store.ActiveGame(ctx, u)
		if err != nil || id != sess.GameID {
			t.Fatalf("active game index for %s: id=%q err=%v", u, id, err)
		}
	}
	if len(notif.started) != 1 {
		t.Fatalf("expected one start notification, got %d", len(notif.started))
	}
}

func TestMoveToCheckmate(t *testing.T) {
	c, store, notif := newTestController(t)
	ctx := context.Background()

	sess, err := c.CreateMatch(ctx, pairingFor("u1", "u2", 0))
	if err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}

	c.Move(ctx, "u1", "f3")
	c.Move(ctx, "u2", "e5")
	c.Move(ctx, "u1", "g4")
	c.Move(ctx, "u2", "Qh4#")

	last := notif.lastUpdate(t)
	if last.Status != StatusCompleted || last.Result != ResultCheckmate {
		t.Fatalf("expected checkmate completion, got status=%s result=%s", last.Status, last.Result)
	}
	if last.Winner == nil || !last.Winner.Is("u2") {
		t.Fatalf("expected u2 as winner, got %+v", last.Winner)
	}
	if len(last.Moves) != 4 {
		t.Fatalf("expected 4 recorded moves, got %d", len(last.Moves))
	}

	// Terminal cleanup: record and indexes gone.
	if got, _ := store.Session(ctx, sess.GameID); got != nil {
		t.Fatalf("expected session deleted after completion")
	}
	for _, u := range []string{"u1", "u2"} {
		if id, _ := store.ActiveGame(ctx, u); id != "" {
			t.Fatalf("expected index cleared for %s, got %q", u, id)
		}
	}

	// Further frames from either player are dropped without notification.
	before := notif.updateCount()
	c.Move(ctx, "u1", "e4")
	if notif.updateCount() != before {
		t.Fatalf("move after completion produced an update")
	}
}

func TestMoveRejections(t *testing.T) {
	c, _, notif := newTestController(t)
	ctx := context.Background()

	if _, err := c.CreateMatch(ctx, pairingFor("u1", "u2", 0)); err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}

	c.Move(ctx, "u2", "e5")
	if got := notif.invalid["u2"]; len(got) != 1 || got[0] != reasonNotYourTurn {
		t.Fatalf("expected not-your-turn rejection, got %v", got)
	}

	c.Move(ctx, "u1", "e9x9")
	if got := notif.invalid["u1"]; len(got) != 1 || got[0] != reasonInvalidMove {
		t.Fatalf("expected invalid-move rejection, got %v", got)
	}

	// Unknown user has no active game: dropped silently.
	c.Move(ctx, "stranger", "e4")
	if got := notif.invalid["stranger"]; len(got) != 0 {
		t.Fatalf("expected silent drop for stranger, got %v", got)
	}

	if notif.updateCount() != 0 {
		t.Fatalf("rejections must not broadcast updates")
	}
}

func TestResignViaMoveToken(t *testing.T) {
	c, _, notif := newTestController(t)
	ctx := context.Background()

	if _, err := c.CreateMatch(ctx, pairingFor("u1", "u2", 0)); err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}

	c.Move(ctx, "u2", "resign")

	last := notif.lastUpdate(t)
	if last.Result != ResultResignation {
		t.Fatalf("expected resignation, got %s", last.Result)
	}
	if last.Winner == nil || !last.Winner.Is("u1") {
		t.Fatalf("expected u1 as winner, got %+v", last.Winner)
	}
	if len(notif.resigned) != 1 || notif.resigned[0] != "u2" {
		t.Fatalf("expected resignation notice for u2, got %v", notif.resigned)
	}
}

func TestDrawNegotiation(t *testing.T) {
	c, _, notif := newTestController(t)
	ctx := context.Background()

	if _, err := c.CreateMatch(ctx, pairingFor("u1", "u2", 0)); err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}

	c.OfferDraw(ctx, "u1")
	if len(notif.offers) != 1 || notif.offers[0] != "u1" {
		t.Fatalf("expected draw offer from u1, got %v", notif.offers)
	}

	c.AnswerDraw(ctx, "u2", false)
	if len(notif.rejects) != 1 || notif.rejects[0] != "u2" {
		t.Fatalf("expected rejection notice, got %v", notif.rejects)
	}
	if notif.updateCount() != 0 {
		t.Fatalf("rejected draw must not complete the game")
	}

	c.AnswerDraw(ctx, "u2", true)
	last := notif.lastUpdate(t)
	if last.Status != StatusCompleted || last.Result != ResultDraw {
		t.Fatalf("expected draw completion, got status=%s result=%s", last.Status, last.Result)
	}
	if last.Winner != nil {
		t.Fatalf("draw must have no winner, got %+v", last.Winner)
	}
}

func TestTimerExpiryForfeitsSideToMove(t *testing.T) {
	c, _, notif := newTestController(t)
	ctx := context.Background()

	sess, err := c.CreateMatch(ctx, pairingFor("u1", "u2", 10))
	if err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}
	c.Move(ctx, "u1", "e4")

	// Black to move when the clock runs out, so white wins.
	c.TimerExpiry(sess.GameID)

	last := notif.lastUpdate(t)
	if last.Result != ResultTimeout {
		t.Fatalf("expected timeout, got %s", last.Result)
	}
	if last.Winner == nil || !last.Winner.Is("u1") {
		t.Fatalf("expected u1 as winner, got %+v", last.Winner)
	}

	// A late duplicate expiry finds nothing to do.
	before := notif.updateCount()
	c.TimerExpiry(sess.GameID)
	if notif.updateCount() != before {
		t.Fatalf("duplicate expiry produced an update")
	}
}

func TestDisconnectConfirmed(t *testing.T) {
	c, _, notif := newTestController(t)
	ctx := context.Background()

	if _, err := c.CreateMatch(ctx, pairingFor("u1", "u2", 0)); err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}

	c.DisconnectConfirmed(ctx, "u2")

	last := notif.lastUpdate(t)
	if last.Result != ResultDisconnection {
		t.Fatalf("expected disconnection result, got %s", last.Result)
	}
	if last.Winner == nil || !last.Winner.Is("u1") {
		t.Fatalf("expected u1 as winner, got %+v", last.Winner)
	}
}

func TestEngineMatchFlow(t *testing.T) {
	c, _, notif := newTestController(t)
	sched := &fakeScheduler{}
	c.SetEngineScheduler(sched)
	ctx := context.Background()

	sess, err := c.CreateEngineMatch(ctx, "u1", "hard")
	if err != nil {
		t.Fatalf("CreateEngineMatch: %v", err)
	}
	if !sess.IsAI || !sess.Black.Engine || !sess.White.Is("u1") {
		t.Fatalf("unexpected seating: white=%+v black=%+v", sess.White, sess.Black)
	}
	if sess.Timed() {
		t.Fatalf("engine games must not be timed")
	}

	c.Move(ctx, "u1", "e4")
	if sched.count() != 1 {
		t.Fatalf("expected one scheduled engine reply, got %d", sched.count())
	}

	if err := c.EngineMove(ctx, sess.GameID, "e7e5"); err != nil {
		t.Fatalf("EngineMove: %v", err)
	}
	last := notif.lastUpdate(t)
	if len(last.Moves) != 2 {
		t.Fatalf("expected 2 moves after engine reply, got %d", len(last.Moves))
	}
	if last.SideToMove() != White {
		t.Fatalf("expected white to move after engine reply")
	}
	// The engine reply must not schedule another engine reply.
	if sched.count() != 1 {
		t.Fatalf("engine reply rescheduled itself")
	}

	// Offers against the engine seat are dropped.
	c.OfferDraw(ctx, "u1")
	if len(notif.offers) != 0 {
		t.Fatalf("draw offer against engine seat must be dropped, got %v", notif.offers)
	}

	// An engine move when it is the human's turn is ignored.
	before := notif.updateCount()
	if err := c.EngineMove(ctx, sess.GameID, "d7d5"); err != nil {
		t.Fatalf("EngineMove out of turn: %v", err)
	}
	if notif.updateCount() != before {
		t.Fatalf("out-of-turn engine move was applied")
	}
}

func TestResume(t *testing.T) {
	c, _, _ := newTestController(t)
	ctx := context.Background()

	if _, err := c.Resume(ctx, "u1"); err != ErrNoActiveGame {
		t.Fatalf("expected ErrNoActiveGame, got %v", err)
	}

	sess, err := c.CreateMatch(ctx, pairingFor("u1", "u2", 0))
	if err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}
	got, err := c.Resume(ctx, "u1")
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if got.GameID != sess.GameID {
		t.Fatalf("resumed wrong game: %s != %s", got.GameID, sess.GameID)
	}
}

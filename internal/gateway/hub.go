// Package gateway is the websocket edge: it authenticates users, decodes
// tagged frames, routes them to matchmaking and the lifecycle controller,
// and delivers outbound notifications to connected participants.
package gateway

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/chessmaster/arena/internal/game"
	"github.com/chessmaster/arena/internal/identity"
	"github.com/chessmaster/arena/internal/obslog"
	"github.com/chessmaster/arena/pkg/wire"
)

const queuedMessage = "Waiting for opponent with same preferences"

// client is one authenticated websocket connection. Writes are serialized by
// the mutex; wsjson writes from multiple goroutines would interleave frames.
type client struct {
	userID string
	conn   *websocket.Conn

	mu sync.Mutex
}

func (c *client) send(ctx context.Context, msg wire.Outbound) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return wsjson.Write(wctx, c.conn, msg)
}

// Hub owns the connection registry and implements the controller's Notifier.
type Hub struct {
	verifier   *identity.Verifier
	queue      *game.Queue
	store      *game.Store
	controller *game.Controller

	disconnectGrace time.Duration
	defaultAILevel  string

	mu     sync.RWMutex
	byUser map[string]*client

	rootCtx context.Context
	cancel  context.CancelFunc
}

func NewHub(verifier *identity.Verifier, queue *game.Queue, store *game.Store, controller *game.Controller, disconnectGrace time.Duration, defaultAILevel string) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		verifier:        verifier,
		queue:           queue,
		store:           store,
		controller:      controller,
		disconnectGrace: disconnectGrace,
		defaultAILevel:  defaultAILevel,
		byUser:          make(map[string]*client),
		rootCtx:         ctx,
		cancel:          cancel,
	}
}

func (h *Hub) Close() { h.cancel() }

// ServeHTTP upgrades the connection and runs its read loop until it drops.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode:    websocket.CompressionNoContextTakeover,
		InsecureSkipVerify: true,
	})
	if err != nil {
		obslog.L().Warn("ws_accept_error", zap.Error(err))
		return
	}

	c := &client{conn: conn}
	defer h.dropClient(c)
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	for {
		var msg wire.Inbound
		if err := wsjson.Read(h.rootCtx, conn, &msg); err != nil {
			return
		}
		h.dispatch(c, &msg)
	}
}

func (h *Hub) dispatch(c *client, msg *wire.Inbound) {
	ctx := h.rootCtx

	switch msg.Type {
	case wire.TypeCreateGame, wire.TypeCreateGameAI:
		if !h.authenticate(ctx, c, msg.Token) {
			return
		}
	default:
		// Only creation frames carry credentials; everything else needs a
		// connection that already authenticated.
		if c.userID == "" {
			obslog.L().Debug("ws_frame_before_auth", zap.String("type", msg.Type))
			return
		}
	}

	switch msg.Type {
	case wire.TypeCreateGame:
		h.handleCreateGame(ctx, c, msg)
	case wire.TypeCreateGameAI:
		h.handleCreateGameAI(ctx, c, msg)
	case wire.TypeMove:
		h.controller.Move(ctx, c.userID, msg.Move)
	case wire.TypeDrawRequest:
		h.controller.OfferDraw(ctx, c.userID)
	case wire.TypeDrawResponse:
		accepted := msg.Accepted != nil && *msg.Accepted
		h.controller.AnswerDraw(ctx, c.userID, accepted)
	case wire.TypeReact:
		h.handleReact(ctx, c, msg.Reaction)
	default:
		obslog.L().Debug("ws_unknown_frame", zap.String("type", msg.Type))
	}
}

// authenticate binds the connection to a user on first success. A replaced
// connection for the same user is closed.
func (h *Hub) authenticate(ctx context.Context, c *client, token string) bool {
	userID, err := h.verifier.Verify(token)
	if err != nil {
		obslog.L().Warn("ws_auth_failed", zap.Error(err))
		return false
	}
	if c.userID == userID {
		return true
	}
	// A bound connection never re-binds to another user; the old binding
	// and presence marker would be orphaned.
	if c.userID != "" {
		obslog.L().Warn("ws_rebind_rejected",
			zap.String("bound_user", c.userID),
			zap.String("token_user", userID),
		)
		return false
	}
	c.userID = userID

	h.mu.Lock()
	prev := h.byUser[userID]
	h.byUser[userID] = c
	h.mu.Unlock()
	if prev != nil && prev != c {
		prev.conn.Close(websocket.StatusPolicyViolation, "superseded")
	}

	if err := h.store.PresenceAdd(ctx, userID); err != nil {
		obslog.L().Error("presence_add_error", zap.String("user_id", userID), zap.Error(err))
	}
	obslog.L().Info("ws_authenticated", zap.String("user_id", userID))
	return true
}

// handleCreateGame resumes an in-flight game when one exists, otherwise runs
// the matchmaking queue.
func (h *Hub) handleCreateGame(ctx context.Context, c *client, msg *wire.Inbound) {
	if sess, err := h.controller.Resume(ctx, c.userID); err == nil {
		h.sendTo(c.userID, wire.GameStart(sess))
		obslog.L().Info("session_resume", zap.String("user_id", c.userID), zap.String("game_id", sess.GameID))
		return
	}

	prefs := game.Preferences{
		Difficulty:       msg.Difficulty,
		TimeLimitMinutes: msg.TimeLimitMinutes,
		Side:             game.ParseColorChoice(msg.Side),
	}
	pairing, err := h.queue.Submit(c.userID, prefs)
	if err != nil {
		obslog.L().Warn("queue_submit_error", zap.String("user_id", c.userID), zap.Error(err))
		return
	}
	if pairing == nil {
		h.sendTo(c.userID, wire.Queued(queuedMessage))
		return
	}
	if _, err := h.controller.CreateMatch(ctx, pairing); err != nil {
		obslog.L().Error("match_create_error", zap.String("user_id", c.userID), zap.Error(err))
	}
}

func (h *Hub) handleCreateGameAI(ctx context.Context, c *client, msg *wire.Inbound) {
	if sess, err := h.controller.Resume(ctx, c.userID); err == nil {
		h.sendTo(c.userID, wire.GameStart(sess))
		return
	}
	level := msg.AILevel
	if strings.TrimSpace(level) == "" {
		level = h.defaultAILevel
	}
	if _, err := h.controller.CreateEngineMatch(ctx, c.userID, level); err != nil {
		obslog.L().Error("ai_match_create_error", zap.String("user_id", c.userID), zap.Error(err))
	}
}

// handleReact broadcasts a reaction to every human seat in the game, the
// sender included. No game state is touched.
func (h *Hub) handleReact(ctx context.Context, c *client, reaction string) {
	if strings.TrimSpace(reaction) == "" {
		return
	}
	sess, err := h.controller.Resume(ctx, c.userID)
	if err != nil {
		return
	}
	h.sendToSeats(sess, wire.React(c.userID, reaction))
}

// dropClient runs when a connection's read loop ends: presence is cleared,
// any queued ticket is withdrawn, and a grace timer is armed before the
// disconnect counts as a forfeit. A superseded connection skips all of that;
// the replacement connection owns the user's presence and tickets now.
func (h *Hub) dropClient(c *client) {
	if c.userID == "" {
		return
	}
	userID := c.userID

	h.mu.Lock()
	owned := h.byUser[userID] == c
	if owned {
		delete(h.byUser, userID)
	}
	h.mu.Unlock()
	if !owned {
		obslog.L().Debug("ws_superseded_drop", zap.String("user_id", userID))
		return
	}

	ctx := h.rootCtx
	if err := h.store.PresenceRemove(ctx, userID); err != nil {
		obslog.L().Error("presence_remove_error", zap.String("user_id", userID), zap.Error(err))
	}
	h.queue.Remove(userID)
	obslog.L().Info("ws_disconnected", zap.String("user_id", userID))

	time.AfterFunc(h.disconnectGrace, func() {
		online, err := h.store.Online(h.rootCtx, userID)
		if err != nil {
			obslog.L().Error("presence_check_error", zap.String("user_id", userID), zap.Error(err))
			return
		}
		if online {
			return
		}
		h.controller.DisconnectConfirmed(h.rootCtx, userID)
	})
}

func (h *Hub) sendTo(userID string, msg wire.Outbound) {
	h.mu.RLock()
	c := h.byUser[userID]
	h.mu.RUnlock()
	if c == nil {
		return
	}
	if err := c.send(h.rootCtx, msg); err != nil {
		obslog.L().Debug("ws_send_error", zap.String("user_id", userID), zap.Error(err))
	}
}

func (h *Hub) sendToSeats(s *game.Session, msg wire.Outbound) {
	for _, p := range []game.Participant{s.White, s.Black} {
		if !p.Engine {
			h.sendTo(p.UserID, msg)
		}
	}
}

// Notifier implementation.

func (h *Hub) GameStarted(s *game.Session) { h.sendToSeats(s, wire.GameStart(s)) }

func (h *Hub) GameUpdated(s *game.Session) { h.sendToSeats(s, wire.GameUpdate(s)) }

func (h *Hub) InvalidMove(userID, reason string) { h.sendTo(userID, wire.InvalidMove(reason)) }

func (h *Hub) PlayerResigned(s *game.Session, resignedID string) {
	winner := s.Opponent(resignedID)
	label := wire.EngineSeatLabel
	if !winner.Engine {
		label = winner.UserID
	}
	h.sendToSeats(s, wire.PlayerResigned(resignedID, label))
}

func (h *Hub) DrawOffered(s *game.Session, requesterID string) {
	opp := s.Opponent(requesterID)
	if opp.Engine {
		return
	}
	h.sendTo(opp.UserID, wire.DrawOffer(requesterID))
}

func (h *Hub) DrawRejected(s *game.Session, responderID string) {
	requester := s.Opponent(responderID)
	if requester.Engine {
		return
	}
	h.sendTo(requester.UserID, wire.DrawRejected(responderID))
}

// ConnectedUsers reports how many authenticated connections are registered.
func (h *Hub) ConnectedUsers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byUser)
}

package game

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chessmaster/arena/internal/obslog"
	"github.com/chessmaster/arena/internal/rules"
)

// Rejection texts sent back to the originator only. Everything else is
// silently dropped per the gateway error policy.
const (
	reasonCompleted   = "Game already completed"
	reasonNotYourTurn = "Not your turn"
	reasonInvalidMove = "Invalid move"
)

// ResignToken is accepted in place of a move token.
const ResignToken = "resign"

var ErrNoActiveGame = errors.New("no active game")

// Notifier delivers outbound notifications to connected participants. The
// controller never talks to the transport directly.
type Notifier interface {
	GameStarted(s *Session)
	GameUpdated(s *Session)
	InvalidMove(userID, reason string)
	PlayerResigned(s *Session, resignedID string)
	DrawOffered(s *Session, requesterID string)
	DrawRejected(s *Session, responderID string)
}

// EngineScheduler requests an engine reply for an AI-seated game.
type EngineScheduler interface {
	Schedule(gameID, level string)
}

// Controller is the game lifecycle state machine. It owns every transition of
// a Session: creation, moves, resignation, draw negotiation, timeout and
// disconnection, delegating legality and terminal detection to the rules
// adapter and state storage to the ephemeral store.
type Controller struct {
	store  *Store
	clock  *ClockManager
	notif  Notifier
	engine EngineScheduler
}

func NewController(store *Store, clock *ClockManager, notif Notifier) *Controller {
	return &Controller{store: store, clock: clock, notif: notif}
}

// SetNotifier attaches the transport after construction. The gateway and the
// controller reference each other, so one of them is wired late.
func (c *Controller) SetNotifier(n Notifier) { c.notif = n }

// SetEngineScheduler wires the AI orchestrator. Without one, AI games are
// never created by the gateway, so a nil scheduler is fine.
func (c *Controller) SetEngineScheduler(es EngineScheduler) { c.engine = es }

// CreateMatch starts a session from a matchmaking pairing, storing the record,
// indexing both seats, and arming the clock when the game is timed.
func (c *Controller) CreateMatch(ctx context.Context, p *Pairing) (*Session, error) {
	now := time.Now()
	sess := &Session{
		GameID:           uuid.NewString(),
		White:            HumanSeat(p.White.UserID),
		Black:            HumanSeat(p.Black.UserID),
		BoardState:       rules.StartFEN(),
		Moves:            []string{},
		Status:           StatusInProgress,
		Difficulty:       p.Difficulty,
		TimeLimitMinutes: p.TimeLimitMinutes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	return c.startSession(ctx, sess)
}

// CreateEngineMatch starts an AI game: the requester takes white, the engine
// black. AI games carry no clock.
func (c *Controller) CreateEngineMatch(ctx context.Context, userID, level string) (*Session, error) {
	now := time.Now()
	sess := &Session{
		GameID:     uuid.NewString(),
		White:      HumanSeat(userID),
		Black:      EngineSeat(),
		BoardState: rules.StartFEN(),
		Moves:      []string{},
		Status:     StatusInProgress,
		IsAI:       true,
		AILevel:    strings.ToLower(strings.TrimSpace(level)),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return c.startSession(ctx, sess)
}

func (c *Controller) startSession(ctx context.Context, sess *Session) (*Session, error) {
	if err := c.store.SaveSession(ctx, sess); err != nil {
		return nil, err
	}
	for _, p := range []Participant{sess.White, sess.Black} {
		if !p.Engine {
			if err := c.store.SetActiveGame(ctx, p.UserID, sess.GameID); err != nil {
				return nil, err
			}
		}
	}
	if sess.Timed() {
		c.clock.Start(sess.GameID, sess.ClockDuration(), c.TimerExpiry)
	}
	obslog.L().Info("session_start",
		zap.String("game_id", sess.GameID),
		zap.String("white", sess.White.UserID),
		zap.String("black", sess.Black.UserID),
		zap.Bool("is_ai", sess.IsAI),
		zap.Float64("time_limit_min", sess.TimeLimitMinutes),
	)
	c.notif.GameStarted(sess)
	if err := c.store.PublishStarted(ctx, sess); err != nil {
		obslog.L().Error("session_start_publish_error", zap.String("game_id", sess.GameID), zap.Error(err))
	}
	return sess, nil
}

// Resume returns the user's in-progress session, or ErrNoActiveGame.
func (c *Controller) Resume(ctx context.Context, userID string) (*Session, error) {
	gameID, err := c.store.ActiveGame(ctx, userID)
	if err != nil {
		return nil, err
	}
	if gameID == "" {
		return nil, ErrNoActiveGame
	}
	sess, err := c.store.Session(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNoActiveGame
	}
	return sess, nil
}

// Move applies a move token for a human user. The literal token "resign" is
// routed to resignation. Rejections either notify the originator only or are
// dropped; nothing here reaches other games or connections.
func (c *Controller) Move(ctx context.Context, userID, token string) {
	if strings.EqualFold(strings.TrimSpace(token), ResignToken) {
		c.Resign(ctx, userID)
		return
	}

	sess, ok := c.sessionForUser(ctx, userID)
	if !ok {
		return
	}
	if sess.Status == StatusCompleted {
		c.notif.InvalidMove(userID, reasonCompleted)
		return
	}
	seat, seated := sess.SeatOf(userID)
	if !seated {
		obslog.L().Warn("move_not_participant", zap.String("game_id", sess.GameID), zap.String("user_id", userID))
		return
	}
	if seat != sess.SideToMove() {
		c.notif.InvalidMove(userID, reasonNotYourTurn)
		return
	}

	c.applyMove(ctx, sess, seat, token, userID)
}

// EngineMove feeds a search-engine move through the same pipeline as a human
// move: legality re-validated, terminal detection re-run.
func (c *Controller) EngineMove(ctx context.Context, gameID, token string) error {
	sess, err := c.store.Session(ctx, gameID)
	if err != nil {
		return err
	}
	if sess == nil || sess.Status == StatusCompleted {
		return nil
	}
	seat := sess.SideToMove()
	if !sess.Seat(seat).Engine {
		obslog.L().Warn("engine_move_out_of_turn", zap.String("game_id", gameID))
		return nil
	}
	c.applyMove(ctx, sess, seat, token, "")
	return nil
}

// applyMove mutates the session for one accepted or rejected move. notifyID
// receives targeted rejections; empty means no one to notify (engine mover).
func (c *Controller) applyMove(ctx context.Context, sess *Session, seat Color, token, notifyID string) {
	board, err := rules.Load(sess.BoardState)
	if err != nil {
		obslog.L().Error("board_load_error", zap.String("game_id", sess.GameID), zap.Error(err))
		return
	}
	san, err := board.ApplyMove(token)
	if err != nil {
		if notifyID != "" {
			c.notif.InvalidMove(notifyID, reasonInvalidMove)
		}
		return
	}

	sess.BoardState = board.FEN()
	sess.Moves = append(sess.Moves, san)
	sess.UpdatedAt = time.Now()

	// Terminal predicates in fixed order: checkmate wins for the mover,
	// stalemate and other draws have no winner.
	switch {
	case board.IsCheckmate():
		winner := sess.Seat(seat)
		c.finalize(ctx, sess, ResultCheckmate, &winner)
	case board.IsStalemate():
		c.finalize(ctx, sess, ResultStalemate, nil)
	case board.IsOtherDraw():
		c.finalize(ctx, sess, ResultDraw, nil)
	default:
		if err := c.store.SaveSession(ctx, sess); err != nil {
			obslog.L().Error("session_save_error", zap.String("game_id", sess.GameID), zap.Error(err))
			return
		}
		c.broadcast(ctx, sess)
	}

	obslog.L().Info("move_applied",
		zap.String("game_id", sess.GameID),
		zap.String("seat", string(seat)),
		zap.String("san", san),
		zap.String("status", string(sess.Status)),
	)

	if sess.IsAI && sess.Status == StatusInProgress && !sess.Seat(seat).Engine && c.engine != nil {
		c.engine.Schedule(sess.GameID, sess.AILevel)
	}
}

// Resign completes the game in the opponent's favor and emits the
// distinguished resignation notice alongside the generic state broadcast.
func (c *Controller) Resign(ctx context.Context, userID string) {
	sess, ok := c.sessionForUser(ctx, userID)
	if !ok {
		return
	}
	if sess.Status == StatusCompleted {
		return
	}
	if _, seated := sess.SeatOf(userID); !seated {
		obslog.L().Warn("resign_not_participant", zap.String("game_id", sess.GameID), zap.String("user_id", userID))
		return
	}
	winner := sess.Opponent(userID)
	sess.UpdatedAt = time.Now()
	c.notif.PlayerResigned(sess, userID)
	c.finalize(ctx, sess, ResultResignation, &winner)
	obslog.L().Info("session_resign", zap.String("game_id", sess.GameID), zap.String("user_id", userID))
}

// OfferDraw forwards a draw offer to the opponent seat. Offers against the
// engine are dropped outright.
func (c *Controller) OfferDraw(ctx context.Context, userID string) {
	sess, ok := c.sessionForUser(ctx, userID)
	if !ok {
		return
	}
	if sess.Status == StatusCompleted {
		return
	}
	if _, seated := sess.SeatOf(userID); !seated {
		return
	}
	if sess.Opponent(userID).Engine {
		obslog.L().Debug("draw_offer_vs_engine_dropped", zap.String("game_id", sess.GameID))
		return
	}
	c.notif.DrawOffered(sess, userID)
	obslog.L().Info("draw_offered", zap.String("game_id", sess.GameID), zap.String("user_id", userID))
}

// AnswerDraw completes the game as a draw on acceptance; a rejection notifies
// only the original requester.
func (c *Controller) AnswerDraw(ctx context.Context, userID string, accepted bool) {
	sess, ok := c.sessionForUser(ctx, userID)
	if !ok {
		return
	}
	if sess.Status == StatusCompleted {
		return
	}
	if _, seated := sess.SeatOf(userID); !seated {
		return
	}
	if !accepted {
		c.notif.DrawRejected(sess, userID)
		obslog.L().Info("draw_rejected", zap.String("game_id", sess.GameID), zap.String("user_id", userID))
		return
	}
	sess.UpdatedAt = time.Now()
	c.finalize(ctx, sess, ResultDraw, nil)
	obslog.L().Info("draw_accepted", zap.String("game_id", sess.GameID), zap.String("user_id", userID))
}

// TimerExpiry fires when a game clock runs out. The side to move loses. The
// in-progress check here, not timer cancellation, is what prevents a double
// terminal transition when a timer races a cancel.
func (c *Controller) TimerExpiry(gameID string) {
	ctx := context.Background()
	sess, err := c.store.Session(ctx, gameID)
	if err != nil {
		obslog.L().Error("timer_session_load_error", zap.String("game_id", gameID), zap.Error(err))
		return
	}
	if sess == nil || sess.Status == StatusCompleted {
		return
	}
	loser := sess.SideToMove()
	var winner Participant
	if loser == White {
		winner = sess.Black
	} else {
		winner = sess.White
	}
	sess.UpdatedAt = time.Now()
	c.finalize(ctx, sess, ResultTimeout, &winner)
	obslog.L().Info("session_timeout", zap.String("game_id", gameID), zap.String("loser_seat", string(loser)))
}

// DisconnectConfirmed finalizes a game after the grace window elapsed without
// the user reappearing.
func (c *Controller) DisconnectConfirmed(ctx context.Context, userID string) {
	gameID, err := c.store.ActiveGame(ctx, userID)
	if err != nil || gameID == "" {
		return
	}
	sess, err := c.store.Session(ctx, gameID)
	if err != nil || sess == nil || sess.Status == StatusCompleted {
		return
	}
	if _, seated := sess.SeatOf(userID); !seated {
		return
	}
	winner := sess.Opponent(userID)
	sess.UpdatedAt = time.Now()
	c.finalize(ctx, sess, ResultDisconnection, &winner)
	obslog.L().Info("session_disconnect_forfeit", zap.String("game_id", gameID), zap.String("user_id", userID))
}

// finalize performs the single terminal transition: status, result, winner,
// then cleanup in fixed order (cancel clock, clear seat index, delete the
// ephemeral record), then broadcast and publish.
func (c *Controller) finalize(ctx context.Context, sess *Session, result Result, winner *Participant) {
	sess.Status = StatusCompleted
	sess.Result = result
	sess.Winner = winner

	c.clock.Cancel(sess.GameID)
	for _, p := range []Participant{sess.White, sess.Black} {
		if !p.Engine {
			if err := c.store.ClearActiveGame(ctx, p.UserID); err != nil {
				obslog.L().Error("index_clear_error", zap.String("game_id", sess.GameID), zap.Error(err))
			}
		}
	}
	if err := c.store.DeleteSession(ctx, sess.GameID); err != nil {
		obslog.L().Error("session_delete_error", zap.String("game_id", sess.GameID), zap.Error(err))
	}
	c.broadcast(ctx, sess)
}

func (c *Controller) broadcast(ctx context.Context, sess *Session) {
	c.notif.GameUpdated(sess)
	if err := c.store.PublishUpdated(ctx, sess); err != nil {
		obslog.L().Error("session_update_publish_error", zap.String("game_id", sess.GameID), zap.Error(err))
	}
}

// sessionForUser resolves the user's active session; misses are logged and
// dropped, never surfaced to the transport.
func (c *Controller) sessionForUser(ctx context.Context, userID string) (*Session, bool) {
	gameID, err := c.store.ActiveGame(ctx, userID)
	if err != nil {
		obslog.L().Error("index_load_error", zap.String("user_id", userID), zap.Error(err))
		return nil, false
	}
	if gameID == "" {
		obslog.L().Debug("event_without_game", zap.String("user_id", userID))
		return nil, false
	}
	sess, err := c.store.Session(ctx, gameID)
	if err != nil {
		obslog.L().Error("session_load_error", zap.String("game_id", gameID), zap.Error(err))
		return nil, false
	}
	if sess == nil {
		return nil, false
	}
	return sess, true
}

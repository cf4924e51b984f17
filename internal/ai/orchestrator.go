// Package ai turns a scheduled engine reply into an applied move: it loads
// the session, runs a bounded search, and feeds the result back through the
// lifecycle controller.
package ai

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/chessmaster/arena/internal/game"
	"github.com/chessmaster/arena/internal/obslog"
)

// SearchEngine produces a move for a position at the given strength.
type SearchEngine interface {
	BestMove(ctx context.Context, fen string, depth, skill int) (string, error)
}

// MoveSink accepts an engine move for a game. Implemented by the lifecycle
// controller.
type MoveSink interface {
	EngineMove(ctx context.Context, gameID, token string) error
}

// Orchestrator schedules one engine reply per request. A failed or timed-out
// search stalls the game rather than forfeiting it; the position stays valid
// and a later reply can still land.
type Orchestrator struct {
	store   *game.Store
	engine  SearchEngine
	sink    MoveSink
	delay   time.Duration
	timeout time.Duration
}

func NewOrchestrator(store *game.Store, engine SearchEngine, sink MoveSink, delay, timeout time.Duration) *Orchestrator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Orchestrator{store: store, engine: engine, sink: sink, delay: delay, timeout: timeout}
}

// Schedule queues an engine reply for the game. Returns immediately; the
// search runs on its own goroutine.
func (o *Orchestrator) Schedule(gameID, level string) {
	go o.respond(gameID, level)
}

func (o *Orchestrator) respond(gameID, level string) {
	if o.delay > 0 {
		time.Sleep(o.delay)
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	sess, err := o.store.Session(ctx, gameID)
	if err != nil {
		obslog.L().Error("ai_session_load_error", zap.String("game_id", gameID), zap.Error(err))
		return
	}
	if sess == nil || sess.Status == game.StatusCompleted {
		return
	}

	preset := PresetFor(level)
	move, err := o.engine.BestMove(ctx, sess.BoardState, preset.Depth, preset.Skill)
	if err != nil {
		obslog.L().Error("ai_search_error",
			zap.String("game_id", gameID),
			zap.String("level", level),
			zap.Error(err),
		)
		return
	}

	obslog.L().Info("ai_move_selected",
		zap.String("game_id", gameID),
		zap.String("level", level),
		zap.String("move", move),
		zap.Int("depth", preset.Depth),
	)
	if err := o.sink.EngineMove(context.Background(), gameID, move); err != nil {
		obslog.L().Error("ai_move_apply_error", zap.String("game_id", gameID), zap.Error(err))
	}
}

// Package engine adapts the pooled UCI subprocess layer to the single call
// the AI orchestrator needs.
package engine

import (
	"context"

	"github.com/chessmaster/arena/internal/engine/uci"
)

type Engine struct {
	pool *uci.Pool
}

func New(binaryPath string) (*Engine, error) {
	pool, err := uci.NewPool(uci.PoolConfig{BinaryPath: binaryPath})
	if err != nil {
		return nil, err
	}
	return &Engine{pool: pool}, nil
}

// BestMove searches the position at the given depth and skill level and
// returns a coordinate-notation move.
func (e *Engine) BestMove(ctx context.Context, fen string, depth, skill int) (string, error) {
	session, err := e.pool.Acquire(ctx, skill)
	if err != nil {
		return "", err
	}
	move, err := session.BestMove(ctx, fen, depth)
	e.pool.Release(skill, session, err)
	return move, err
}

func (e *Engine) Close() error {
	return e.pool.Close()
}

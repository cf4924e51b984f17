// Package archive mirrors completed and in-flight session snapshots into a
// durable Postgres table. It is a read-model feed: nothing in the live game
// path depends on it.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/chessmaster/arena/internal/game"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// EnsureSchema creates the archive table when it does not exist yet.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	q := `CREATE TABLE IF NOT EXISTS game_sessions (
        game_id        TEXT PRIMARY KEY,
        white_user     TEXT,
        black_user     TEXT,
        board_state    TEXT NOT NULL,
        moves          JSONB NOT NULL DEFAULT '[]',
        status         TEXT NOT NULL,
        result         TEXT,
        winner_user    TEXT,
        difficulty     INTEGER,
        time_limit_min DOUBLE PRECISION,
        is_ai          BOOLEAN NOT NULL DEFAULT FALSE,
        ai_level       TEXT,
        created_at     TIMESTAMPTZ NOT NULL,
        updated_at     TIMESTAMPTZ NOT NULL
    )`
	_, err := r.db.ExecContext(ctx, q)
	return err
}

// Upsert writes one session snapshot keyed by game id. An engine seat or an
// engine winner is stored as NULL; the row only carries human identities.
func (r *Repository) Upsert(ctx context.Context, sess *game.Session) error {
	if r == nil || r.db == nil || sess == nil {
		return nil
	}

	movesRaw, err := json.Marshal(sess.Moves)
	if err != nil {
		return err
	}

	q := `INSERT INTO game_sessions (
        game_id, white_user, black_user, board_state, moves,
        status, result, winner_user, difficulty, time_limit_min,
        is_ai, ai_level, created_at, updated_at
      ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
      ) ON CONFLICT (game_id) DO UPDATE SET
        board_state=EXCLUDED.board_state,
        moves=EXCLUDED.moves,
        status=EXCLUDED.status,
        result=EXCLUDED.result,
        winner_user=EXCLUDED.winner_user,
        updated_at=EXCLUDED.updated_at`

	_, err = r.db.ExecContext(ctx, q,
		sess.GameID,
		humanOrNull(&sess.White),
		humanOrNull(&sess.Black),
		sess.BoardState,
		string(movesRaw),
		string(sess.Status),
		nullIfEmpty(string(sess.Result)),
		humanOrNull(sess.Winner),
		sess.Difficulty,
		sess.TimeLimitMinutes,
		sess.IsAI,
		nullIfEmpty(sess.AILevel),
		sess.CreatedAt,
		sess.UpdatedAt,
	)
	return err
}

func humanOrNull(p *game.Participant) sql.NullString {
	if p == nil || p.Engine || p.UserID == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: p.UserID, Valid: true}
}

func nullIfEmpty(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

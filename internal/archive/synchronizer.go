package archive

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/chessmaster/arena/internal/game"
	"github.com/chessmaster/arena/internal/obslog"
)

// Synchronizer consumes lifecycle events from the ephemeral store's pub/sub
// channels and upserts each snapshot durably. Failures are logged and
// dropped; the live game never waits on the archive.
type Synchronizer struct {
	store *game.Store
	repo  *Repository
}

func NewSynchronizer(store *game.Store, repo *Repository) *Synchronizer {
	return &Synchronizer{store: store, repo: repo}
}

// Run blocks consuming lifecycle events until the context is canceled.
func (s *Synchronizer) Run(ctx context.Context) {
	sub := s.store.SubscribeLifecycle(ctx)
	defer sub.Close()

	ch := sub.Channel()
	obslog.L().Info("archive_sync_start")

	for {
		select {
		case <-ctx.Done():
			obslog.L().Info("archive_sync_stop")
			return
		case msg, ok := <-ch:
			if !ok {
				obslog.L().Warn("archive_sync_channel_closed")
				return
			}
			var ev game.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				obslog.L().Error("archive_event_decode_error",
					zap.String("channel", msg.Channel),
					zap.Error(err),
				)
				continue
			}
			if ev.Session == nil {
				continue
			}
			if err := s.repo.Upsert(ctx, ev.Session); err != nil {
				obslog.L().Error("archive_upsert_error",
					zap.String("game_id", ev.GameID),
					zap.String("channel", msg.Channel),
					zap.Error(err),
				)
				continue
			}
			obslog.L().Debug("archive_upsert",
				zap.String("game_id", ev.GameID),
				zap.String("channel", msg.Channel),
			)
		}
	}
}

package game

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lifecycle event channels consumed by the persistence synchronizer.
const (
	ChannelStarted = "session-started"
	ChannelUpdated = "session-updated"
)

// Event is the payload published on lifecycle channels: the full snapshot at
// the moment of the transition.
type Event struct {
	GameID  string   `json:"game_id"`
	Session *Session `json:"session"`
}

// Store is the ephemeral single source of truth for in-flight sessions:
// per-game JSON records, a user->game index, an online-presence list, and the
// lifecycle pub/sub channels. Records are read-then-written without
// concurrency control; callers serialize per game where they need more.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{rdb: rdb, ttl: ttl}
}

// OpenStore connects to Redis by URL and pings it.
func OpenStore(redisURL string, ttl time.Duration) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return NewStore(rdb, ttl), nil
}

func (s *Store) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func gameKey(id string) string    { return "game:" + strings.TrimSpace(id) }
func userIdxKey(id string) string { return "game:index:user:" + strings.TrimSpace(id) }

const presenceKey = "online-users"

func (s *Store) SaveSession(ctx context.Context, sess *Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, gameKey(sess.GameID), raw, s.ttl).Err()
}

// Session returns the record for a game id, or nil when absent.
func (s *Store) Session(ctx context.Context, gameID string) (*Session, error) {
	raw, err := s.rdb.Get(ctx, gameKey(gameID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *Store) DeleteSession(ctx context.Context, gameID string) error {
	return s.rdb.Del(ctx, gameKey(gameID)).Err()
}

func (s *Store) SetActiveGame(ctx context.Context, userID, gameID string) error {
	if strings.TrimSpace(userID) == "" {
		return nil
	}
	return s.rdb.Set(ctx, userIdxKey(userID), gameID, s.ttl).Err()
}

// ActiveGame returns the game id a user is seated in, or "" when none.
func (s *Store) ActiveGame(ctx context.Context, userID string) (string, error) {
	id, err := s.rdb.Get(ctx, userIdxKey(userID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) ClearActiveGame(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return nil
	}
	return s.rdb.Del(ctx, userIdxKey(userID)).Err()
}

// Presence tracking distinguishes transient disconnects from final ones.

func (s *Store) PresenceAdd(ctx context.Context, userID string) error {
	return s.rdb.LPush(ctx, presenceKey, userID).Err()
}

func (s *Store) PresenceRemove(ctx context.Context, userID string) error {
	return s.rdb.LRem(ctx, presenceKey, 0, userID).Err()
}

// Online reports whether a presence marker for the user exists.
func (s *Store) Online(ctx context.Context, userID string) (bool, error) {
	_, err := s.rdb.LPos(ctx, presenceKey, userID, redis.LPosArgs{}).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) publish(ctx context.Context, channel string, sess *Session) error {
	raw, err := json.Marshal(Event{GameID: sess.GameID, Session: sess})
	if err != nil {
		return err
	}
	return s.rdb.Publish(ctx, channel, raw).Err()
}

func (s *Store) PublishStarted(ctx context.Context, sess *Session) error {
	return s.publish(ctx, ChannelStarted, sess)
}

func (s *Store) PublishUpdated(ctx context.Context, sess *Session) error {
	return s.publish(ctx, ChannelUpdated, sess)
}

// SubscribeLifecycle subscribes to both lifecycle channels.
func (s *Store) SubscribeLifecycle(ctx context.Context) *redis.PubSub {
	return s.rdb.Subscribe(ctx, ChannelStarted, ChannelUpdated)
}

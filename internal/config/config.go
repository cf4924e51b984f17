package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	WSAddr   string
	HTTPAddr string

	JWTSecret string

	RedisURL    string
	DatabaseURL string

	StockfishPath    string
	AIMoveDelay      time.Duration
	AIMoveTimeout    time.Duration
	DisconnectGrace  time.Duration
	SessionTTL       time.Duration
	DefaultAILevel   string
	MaxQueuedTickets int
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		WSAddr:           ":4100",
		HTTPAddr:         ":3100",
		AIMoveDelay:      500 * time.Millisecond,
		AIMoveTimeout:    10 * time.Second,
		DisconnectGrace:  60 * time.Second,
		SessionTTL:       24 * time.Hour,
		DefaultAILevel:   "medium",
		MaxQueuedTickets: 500,
	}

	if v := strings.TrimSpace(os.Getenv("WS_ADDR")); v != "" {
		cfg.WSAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}

	cfg.JWTSecret = strings.TrimSpace(os.Getenv("SECRET_KEY"))
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.StockfishPath = strings.TrimSpace(os.Getenv("STOCKFISH_PATH"))

	if v := strings.TrimSpace(os.Getenv("AI_MOVE_DELAY_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.AIMoveDelay = time.Duration(n) * time.Millisecond
		}
	}
	if v := strings.TrimSpace(os.Getenv("AI_MOVE_TIMEOUT_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AIMoveTimeout = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("DISCONNECT_GRACE_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.DisconnectGrace = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("SESSION_TTL_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SessionTTL = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("AI_DEFAULT_LEVEL")); v != "" {
		cfg.DefaultAILevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("MAX_QUEUED_TICKETS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxQueuedTickets = n
		}
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("SECRET_KEY is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	return cfg, nil
}

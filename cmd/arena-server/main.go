package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/chessmaster/arena/internal/ai"
	"github.com/chessmaster/arena/internal/archive"
	appcfg "github.com/chessmaster/arena/internal/config"
	"github.com/chessmaster/arena/internal/engine"
	"github.com/chessmaster/arena/internal/game"
	"github.com/chessmaster/arena/internal/gateway"
	"github.com/chessmaster/arena/internal/httpapi"
	"github.com/chessmaster/arena/internal/identity"
	"github.com/chessmaster/arena/internal/obslog"
)

func main() {
	_ = godotenv.Load()
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	store, err := game.OpenStore(cfg.RedisURL, cfg.SessionTTL)
	if err != nil {
		log.Fatalf("redis init error: %v", err)
	}

	queue := game.NewQueue(cfg.MaxQueuedTickets)
	clock := game.NewClockManager()
	verifier, err := identity.NewVerifier(cfg.JWTSecret)
	if err != nil {
		log.Fatalf("identity init error: %v", err)
	}

	// Hub and controller reference each other; the hub is the controller's
	// notifier, the controller handles frames the hub routes to it.
	controller := game.NewController(store, clock, nil)
	hub := gateway.NewHub(verifier, queue, store, controller, cfg.DisconnectGrace, cfg.DefaultAILevel)
	controller.SetNotifier(hub)

	var searchEngine *engine.Engine
	if cfg.StockfishPath != "" {
		searchEngine, err = engine.New(cfg.StockfishPath)
		if err != nil {
			log.Fatalf("engine init error: %v", err)
		}
		orch := ai.NewOrchestrator(store, searchEngine, controller, cfg.AIMoveDelay, cfg.AIMoveTimeout)
		controller.SetEngineScheduler(orch)
	} else {
		obslog.L().Warn("engine_disabled", zap.String("reason", "STOCKFISH_PATH not set"))
	}

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	var repo *archive.Repository
	if cfg.DatabaseURL != "" {
		repo, err = archive.NewRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("archive init error: %v", err)
		}
		if err := repo.EnsureSchema(rootCtx); err != nil {
			log.Fatalf("archive schema error: %v", err)
		}
		sync := archive.NewSynchronizer(store, repo)
		go sync.Run(rootCtx)
	} else {
		obslog.L().Warn("archive_disabled", zap.String("reason", "DATABASE_URL not set"))
	}

	statsSrv := httpapi.NewServer(cfg.HTTPAddr, func() httpapi.Stats {
		return httpapi.Stats{
			QueueDepth:     queue.Len(),
			ConnectedUsers: hub.ConnectedUsers(),
			ActiveClocks:   clock.Len(),
		}
	})
	go func() {
		if err := statsSrv.ListenAndServe(); err != nil {
			obslog.L().Error("http_serve_error", zap.Error(err))
		}
	}()

	wsSrv := &http.Server{
		Addr:              cfg.WSAddr,
		Handler:           hub,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		obslog.L().Info("ws_listen", zap.String("addr", cfg.WSAddr))
		if err := wsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ws serve error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	obslog.L().Info("shutdown_begin")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	_ = wsSrv.Shutdown(shutCtx)
	_ = statsSrv.Shutdown()
	hub.Close()
	rootCancel()
	if searchEngine != nil {
		_ = searchEngine.Close()
	}
	if repo != nil {
		_ = repo.Close()
	}
	_ = store.Close()
	obslog.L().Info("shutdown_complete")
}

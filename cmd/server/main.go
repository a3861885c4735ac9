package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rekew/web-dev-project/internal/auth"
	"github.com/rekew/web-dev-project/internal/cache"
	"github.com/rekew/web-dev-project/internal/config"
	"github.com/rekew/web-dev-project/internal/handler"
	"github.com/rekew/web-dev-project/internal/registry"
	"github.com/rekew/web-dev-project/internal/repository"
	"github.com/rekew/web-dev-project/internal/service"
	"github.com/rekew/web-dev-project/pkg/database"
	"github.com/rekew/web-dev-project/pkg/log"
	"github.com/rekew/web-dev-project/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.Log)
	logger := log.L()

	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	store := repository.NewGormStore(db)
	if err := store.Migrate(); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	st, err := newStorage(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}

	reg := registry.New()
	presence := service.NewBroadcaster(store, reg)
	tokens := auth.NewManager(cfg.JWT.Secret, cfg.JWT.AccessDuration, cfg.JWT.RefreshDuration, cfg.JWT.Issuer, store)

	var searchCache service.SearchCache
	if cfg.Redis.Enabled {
		rc, err := cache.NewRedisSearchCache(cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rc.Close()
		searchCache = rc
	}

	svc := service.NewChatService(store, reg, tokens, presence, searchCache, cfg.Chat.EchoCreator)

	reaper := service.NewReaper(reg, presence, cfg.Reaper.TickInterval, cfg.Reaper.StalenessThreshold)
	reaper.Start(context.Background())

	router := &handler.Router{
		Auth:     handler.NewAuthHandler(store, tokens),
		Users:    handler.NewUserHandler(store, st),
		Chats:    handler.NewChatHandler(store, st),
		WS:       handler.NewWSHandler(svc, cfg.WebSocket),
		Verifier: tokens,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	router.Register(engine)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: engine,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	reaper.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
	}

	logger.Info().Msg("server stopped")
}

// newStorage selects the media backend from config.
func newStorage(cfg *config.Config) (storage.Storage, error) {
	switch cfg.Storage.Backend {
	case "s3":
		return storage.NewS3Storage(context.Background(), cfg.Storage.S3)
	default:
		return storage.NewLocalStorage(cfg.Storage.Local)
	}
}

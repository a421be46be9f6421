package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"sudohumans/api/internal/cache"
	"sudohumans/api/internal/config"
	"sudohumans/api/internal/docstore"
	"sudohumans/api/internal/handlers"
	"sudohumans/api/internal/jobs"
	"sudohumans/api/internal/log"
	"sudohumans/api/internal/repository"
	"sudohumans/api/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	store, err := docstore.Connect(ctx, cfg.Mongo)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect document store")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	// Bootstrap runs sequentially before the server accepts connections so
	// first requests never race collection creation.
	collectives, err := repository.BootstrapCollectives(ctx, store, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to bootstrap collectives")
	}
	users, err := repository.BootstrapUsers(ctx, store, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to bootstrap users")
	}

	handlerSet := handlers.NewHandlerSet(logger, cfg, users, collectives, store, redisClient)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(redisClient, users, collectives, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, store, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, store *docstore.Client, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("forced shutdown failed")
		}
	}

	if scheduler != nil {
		scheduler.Stop()
	}

	if err := store.Close(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("document store close error")
	}
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}

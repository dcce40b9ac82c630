package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coderr-service/internal/api"
	"coderr-service/internal/api/middleware"
	"coderr-service/internal/cache"
	"coderr-service/internal/config"
	"coderr-service/internal/database"
	"coderr-service/internal/logging"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(cfg.DB.URL(), logger); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}

	pool, err := database.ConnectDB(ctx, cfg.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()

	var store cache.Store
	if cfg.Redis.Enabled() {
		rdb, err := cache.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
		defer rdb.Close()
		store = rdb
		logger.Info().Str("addr", cfg.Redis.URL).Msg("offer detail cache enabled")
	}

	limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst, logger)
	limiter.StartCleanup(ctx, 10*time.Minute)

	router := api.NewRouter(api.NewServices(pool, cfg, store, logger), api.RouterConfig{
		HTTP:    cfg.HTTP,
		Limiter: limiter,
		DB:      pool,
		Logger:  logger,
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

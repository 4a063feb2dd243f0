package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-decor/internal/cart"
	"github.com/noah-isme/backend-decor/internal/catalog"
	"github.com/noah-isme/backend-decor/internal/config"
	"github.com/noah-isme/backend-decor/internal/db"
	"github.com/noah-isme/backend-decor/internal/obs"
	"github.com/noah-isme/backend-decor/internal/pricing"
	"github.com/noah-isme/backend-decor/internal/queue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "reprice-worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := db.NewPool(connectCtx, cfg.DatabaseURL, "decor-worker")
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(connectCtx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	obs.MustRegisterDomainMetrics("decor", nil)

	store := &catalog.PGStore{Pool: pool}
	engine := &pricing.Engine{Store: store, Mode: pricing.Mode(cfg.EngineMode)}
	cartSvc := &cart.Service{
		Repo:     &cart.PGRepo{Pool: pool},
		Engine:   engine,
		Currency: cfg.CurrencyCode,
		TTL:      cfg.CartTTL,
	}

	worker := queue.Worker{
		R:            redisClient,
		Prefix:       cfg.QueueRedisPrefix,
		PollInterval: cfg.QueuePollInterval,
		Handler: func(taskCtx context.Context, task queue.RepriceTask) error {
			_, err := cartSvc.RepriceCart(taskCtx, task.CartID)
			if errors.Is(err, cart.ErrCartNotFound) {
				// cart expired between enqueue and processing
				logger.Warn().Str("cart_id", task.CartID).Msg("skipping vanished cart")
				err = nil
			}
			if obs.RepriceTasksTotal != nil {
				result := "ok"
				if err != nil {
					result = "error"
				}
				obs.RepriceTasksTotal.WithLabelValues(result).Inc()
			}
			if err != nil {
				logger.Error().Err(err).Str("cart_id", task.CartID).Str("reason", task.Reason).Msg("reprice cart")
				return err
			}
			logger.Info().Str("cart_id", task.CartID).Str("reason", task.Reason).Msg("cart repriced")
			return nil
		},
	}

	logger.Info().Str("mode", cfg.EngineMode).Msg("worker starting")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("worker stopped with error")
		return
	}
	logger.Info().Msg("worker shutdown complete")
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

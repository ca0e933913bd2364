package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	discoveryservice "campus_marketplace/internal/discovery/service"
	listingsrepo "campus_marketplace/internal/listings/repository"
	"campus_marketplace/internal/scheduler"
	searchhistoryrepo "campus_marketplace/internal/searchhistory/repository"
	searchhistoryservice "campus_marketplace/internal/searchhistory/service"
	viewsrepo "campus_marketplace/internal/views/repository"
	viewsservice "campus_marketplace/internal/views/service"
	"campus_marketplace/platform/cache"
	"campus_marketplace/platform/config"
	"campus_marketplace/platform/db"
	"campus_marketplace/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "trendingWarmSchedule", cfg.GetTrendingWarmSchedule())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	var redisClient *redis.Client
	if err := withRetry(ctx, log, "redis connection", 5, time.Second, func() error {
		c, err := cache.NewRedisClient(ctx, cfg)
		if err != nil {
			return err
		}
		redisClient = c
		return nil
	}); err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}
	defer func() { _ = redisClient.Close() }()

	resultCache := cache.New(cache.NewRedisStore(redisClient), cfg, log)

	// Worker-side wiring only applies tasks; nothing is dispatched from here.
	viewTracker := viewsservice.New(viewsrepo.New(pool), nil, log)
	history := searchhistoryservice.New(searchhistoryrepo.New(pool), nil, log)
	discovery := discoveryservice.New(listingsrepo.New(pool), viewTracker, resultCache, log)

	worker, err := scheduler.NewWorker(cfg, viewTracker, history, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}
	warmer := scheduler.NewTrendingWarmer(discovery, cfg.GetTrendingWarmSchedule(), log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		worker.Run(gctx)
		if gctx.Err() == nil {
			return errors.New("worker exited")
		}
		return nil
	})
	g.Go(func() error {
		return warmer.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		log.Error("scheduler stopped", "error", err)
		stop()
		os.Exit(1)
	}
	log.Info("scheduler stopped")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}

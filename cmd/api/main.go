package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campus_marketplace/internal/discovery"
	apphttp "campus_marketplace/internal/http"
	"campus_marketplace/internal/http/router"
	"campus_marketplace/internal/listings"
	"campus_marketplace/internal/scheduler"
	"campus_marketplace/internal/search"
	searchhistoryrepo "campus_marketplace/internal/searchhistory/repository"
	searchhistoryservice "campus_marketplace/internal/searchhistory/service"
	viewsrepo "campus_marketplace/internal/views/repository"
	viewsservice "campus_marketplace/internal/views/service"
	"campus_marketplace/platform/cache"
	"campus_marketplace/platform/config"
	"campus_marketplace/platform/db"
	"campus_marketplace/platform/logger"
	"campus_marketplace/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

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

	dispatcher, closeDispatcher := initDispatcher(cfg, log)
	defer closeDispatcher()

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	viewTracker := viewsservice.New(viewsrepo.New(pool), dispatcher, log)
	history := searchhistoryservice.New(searchhistoryrepo.New(pool), dispatcher, log)

	listingsModule := listings.NewModule(pool, viewTracker)
	discoveryModule := discovery.NewModule(listingsModule.Repository(), viewTracker, resultCache, log)
	searchModule, err := search.NewModule(listingsModule.Repository(), history, resultCache, val, cfg, log)
	if err != nil {
		log.Error("failed to initialize search module", "error", err)
		panic("failed to initialize search module: " + err.Error())
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: pool,
		Modules: []apphttp.Module{
			listingsModule,
			searchModule,
			discoveryModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}

	// Let in-flight view and search recordings reach the queue.
	dispatcher.Wait()
}

// initDispatcher connects the task queue. Without it views and search history
// are not recorded but reads keep working.
func initDispatcher(cfg *config.Config, log *logger.Logger) (*scheduler.Dispatcher, func()) {
	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Warn("task queue unavailable; view and search history recording disabled", "error", err)
		return nil, func() {}
	}

	return scheduler.NewDispatcher(client, cfg.GetDispatchMaxInFlight(), log), func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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

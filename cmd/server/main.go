package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/neexbeast/destination-search/internal/api"
	"github.com/neexbeast/destination-search/internal/cache"
	"github.com/neexbeast/destination-search/internal/config"
	"github.com/neexbeast/destination-search/internal/destination"
	"github.com/neexbeast/destination-search/internal/search"
	"github.com/neexbeast/destination-search/internal/session"
	"github.com/neexbeast/destination-search/internal/storage"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(log); err != nil {
		log.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]api.Pinger{}

	var store search.Store
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := storage.Connect(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer pool.Close()

		if err := storage.RunMigrations(ctx, pool, os.DirFS(cfg.MigrationsDir)); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		log.Info("migrations applied", "dir", cfg.MigrationsDir)

		repo := storage.NewRepository(pool)
		if cfg.SeedFile != "" {
			n, err := repo.SeedFromJSON(ctx, cfg.SeedFile)
			if err != nil {
				return fmt.Errorf("seeding destinations: %w", err)
			}
			log.Info("destinations seeded", "file", cfg.SeedFile, "count", n)
		}

		store = repo
		checks["db"] = pool
	default:
		store = destination.NewClientWithTimeout(cfg.StoreURL, cfg.LookupTimeout)
		log.Info("using HTTP destination store", "url", cfg.StoreURL)
	}

	newCache := func(string) session.ResultCache { return cache.NewMemory() }
	if cfg.RedisURL != "" {
		redisClient, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer func() { _ = redisClient.Close() }()

		if cfg.PurgeRedisOnStart {
			n, err := cache.PurgeSessions(ctx, redisClient)
			if err != nil {
				return fmt.Errorf("purging stale session caches: %w", err)
			}
			log.Info("stale session caches purged", "count", n)
		}

		newCache = func(id string) session.ResultCache { return cache.NewRedis(redisClient, id) }
		checks["redis"] = &redisPingerAdapter{client: redisClient}
	}

	manager, err := session.NewManager(store, newCache, cfg.MaxSessions, session.Settings{
		DebounceWait:  cfg.DebounceWait,
		LookupTimeout: cfg.LookupTimeout,
	}, log)
	if err != nil {
		return fmt.Errorf("creating session manager: %w", err)
	}

	handlers := api.NewHandlers(manager, log)
	router := api.NewRouter(handlers, checks, cfg.RateLimitPerMinute, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listening: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		log.Info("closing sessions", "live", manager.Len())
		manager.CloseAll()
		if err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("server shut down cleanly")
	return nil
}

// redisPingerAdapter adapts redis.Client to the api.Pinger interface.
type redisPingerAdapter struct {
	client *redis.Client
}

func (r *redisPingerAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

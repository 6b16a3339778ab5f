package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/mkusaka/hinichi/internal/ai"
	"github.com/mkusaka/hinichi/internal/cache"
	"github.com/mkusaka/hinichi/internal/config"
	"github.com/mkusaka/hinichi/internal/feed"
	"github.com/mkusaka/hinichi/internal/publisher"
	"github.com/mkusaka/hinichi/internal/scheduler"
	"github.com/mkusaka/hinichi/internal/service"
	"github.com/mkusaka/hinichi/internal/source/article"
	"github.com/mkusaka/hinichi/internal/source/hatena"
	"github.com/mkusaka/hinichi/internal/storage/postgres"
	"github.com/mkusaka/hinichi/internal/storage/redis"
	"github.com/mkusaka/hinichi/internal/web"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// Setup logger
	logger := setupLogger("info")

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Durable cache backend, optional.
	var durable cache.DataStore
	if cfg.Database.Host != "" {
		db, err := sqlx.Connect("postgres", cfg.Database.DSN())
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		cacheStore := postgres.NewCacheStore(db, cfg.Cache.Version)
		if err := cacheStore.Init(ctx); err != nil {
			logger.Error("failed to init cache schema", "error", err)
			os.Exit(1)
		}
		logger.Info("connected to database")

		go sweepExpired(ctx, cacheStore, logger)
		durable = cacheStore
	}

	// Edge response cache, optional.
	var responses cache.ResponseCache
	if cfg.Redis.URL != "" {
		redisCache, err := redis.New(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisCache.Close()
		logger.Info("connected to redis")
		responses = redisCache
	}

	store := cache.Select(durable, responses, cfg.Cache.Version)

	// Resolution event publisher, optional.
	var events service.Publisher
	if cfg.RabbitMQ.URL != "" {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rabbitMQ.Close()
		events = rabbitMQ
	}

	// AI summarizer, optional.
	var summarizer service.Summarizer
	if apiKey := os.Getenv(cfg.AI.APIKeyEnv); apiKey != "" {
		client, err := ai.NewClient(ai.Config{
			BaseURL: cfg.AI.BaseURL,
			Model:   cfg.AI.Model,
			APIKey:  apiKey,
			Timeout: cfg.AI.Timeout,
		})
		if err != nil {
			logger.Error("failed to build ai client", "error", err)
			os.Exit(1)
		}
		summarizer = client
	} else {
		logger.Warn("no ai api key configured, summaries use the deterministic fallback", "env", cfg.AI.APIKeyEnv)
	}

	source := hatena.New(hatena.Config{
		BaseURL:   cfg.Upstream.BaseURL,
		Timeout:   cfg.Upstream.Timeout,
		UserAgent: cfg.Upstream.UserAgent,
	}, logger)

	articles := article.NewFetcher(article.Config{
		Timeout:      cfg.Articles.Timeout,
		MaxBodyChars: cfg.Articles.MaxBodyChars,
		UserAgent:    cfg.Upstream.UserAgent,
	}, logger)

	resolver := service.NewResolveService(
		source,
		articles,
		summarizer,
		feed.NewRenderer(cfg.Server.BaseURL),
		store,
		responses,
		events,
		logger,
		cfg.Cache,
		cfg.Articles.MaxCount,
	)

	if cfg.Prewarm.Interval > 0 && len(cfg.Prewarm.Categories) > 0 {
		sched := scheduler.NewScheduler(resolver, cfg.Prewarm.Categories, cfg.Prewarm.Interval, logger)
		go func() {
			if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("scheduler error", "error", err)
			}
		}()
	}

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: web.NewServer(resolver, logger).Handler(),
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("starting hinichi",
		"addr", cfg.Server.Addr,
		"upstream", cfg.Upstream.BaseURL,
		"cache_version", cfg.Cache.Version,
	)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func sweepExpired(ctx context.Context, store *postgres.CacheStore, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.Sweep(ctx)
			if err != nil {
				logger.Warn("cache sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				logger.Info("swept expired cache records", "removed", removed)
			}
		}
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}

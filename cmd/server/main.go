// Command server starts the document search service.
//
// A single process hosts the inverted index (trie + hash index over
// postings lists), the splay-tree chat history cache, and the HTTP API.
// Redis query caching and Kafka analytics are optional and degrade to
// disabled when unreachable or turned off in config.
//
// Usage:
//
//	go run ./cmd/server [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/docsearch-labs/document-search-platform/internal/analytics"
	"github.com/docsearch-labs/document-search-platform/internal/engine"
	"github.com/docsearch-labs/document-search-platform/internal/history"
	"github.com/docsearch-labs/document-search-platform/internal/history/store"
	"github.com/docsearch-labs/document-search-platform/internal/searchcache"
	"github.com/docsearch-labs/document-search-platform/internal/server"
	"github.com/docsearch-labs/document-search-platform/pkg/config"
	"github.com/docsearch-labs/document-search-platform/pkg/health"
	"github.com/docsearch-labs/document-search-platform/pkg/kafka"
	"github.com/docsearch-labs/document-search-platform/pkg/logger"
	"github.com/docsearch-labs/document-search-platform/pkg/metrics"
	"github.com/docsearch-labs/document-search-platform/pkg/middleware"
	"github.com/docsearch-labs/document-search-platform/pkg/postgres"
	pkgredis "github.com/docsearch-labs/document-search-platform/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting document search service",
		"port", cfg.Server.Port,
		"history_backend", cfg.History.Backend,
		"cache_enabled", cfg.Redis.Enabled,
		"analytics_enabled", cfg.Kafka.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checker := health.NewChecker()

	var m *metrics.Metrics
	var metricsShutdown func(context.Context) error
	if cfg.Metrics.Enabled {
		m = metrics.New()
		metricsShutdown = metrics.StartServer(cfg.Metrics.Port)
		slog.Info("metrics server started", "port", cfg.Metrics.Port)
	}

	// Chat history snapshot backend.
	var snapshotStore history.SnapshotStore
	switch cfg.History.Backend {
	case "postgres":
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		pgStore, err := store.NewPostgresStore(ctx, db)
		if err != nil {
			slog.Error("failed to initialise postgres chat store", "error", err)
			os.Exit(1)
		}
		snapshotStore = pgStore
		checker.Register("postgres", func(checkCtx context.Context) health.ComponentHealth {
			if err := db.DB.PingContext(checkCtx); err != nil {
				return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
		slog.Info("connected to postgres")
	case "file":
		snapshotStore = store.NewFileStore(cfg.History.SnapshotPath)
		slog.Info("using file snapshot store", "path", cfg.History.SnapshotPath)
	}

	if m != nil {
		snapshotStore = store.NewInstrumented(snapshotStore, m)
	}

	// A corrupt or inconsistent snapshot refuses to load; starting with an
	// empty tree would silently discard history.
	historyService := history.NewService(snapshotStore)
	if err := historyService.Load(ctx); err != nil {
		slog.Error("failed to load chat history snapshot", "error", err)
		os.Exit(1)
	}
	slog.Info("chat history loaded", "chats", historyService.Len())

	eng := engine.New()
	checker.Register("engine", func(context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusUp, Message: "in-memory index ready"}
	})

	// Optional Redis query cache.
	var cache *searchcache.Cache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, query caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			cache = searchcache.New(redisClient, cfg.Redis.CacheTTL)
			// The cache is best-effort: a dead Redis degrades readiness
			// instead of failing it.
			checker.Register("redis", func(checkCtx context.Context) health.ComponentHealth {
				if err := redisClient.Ping(checkCtx); err != nil {
					return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
				}
				return health.ComponentHealth{Status: health.StatusUp}
			})
			slog.Info("connected to redis", "addr", cfg.Redis.Addr)
		}
	}

	// Optional Kafka analytics pipeline.
	var collector *analytics.Collector
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		collector = analytics.NewCollector(producer, 10000)
		collector.Start(ctx)
		defer collector.Close()
		slog.Info("analytics collector started", "topic", cfg.Kafka.Topics.AnalyticsEvents)
	}

	handler := server.New(eng, historyService, cache, collector, m, cfg.Engine)
	mux := handler.Routes()
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var root http.Handler = mux
	root = middleware.Timeout(cfg.Server.WriteTimeout)(root)
	if m != nil {
		root = middleware.Metrics(m)(root)
	}
	root = middleware.RequestID(root)
	root = middleware.CORS(middleware.DefaultCORSConfig())(root)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      root,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		if metricsShutdown != nil {
			if err := metricsShutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}
	}()

	slog.Info("document search service listening", "addr", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("document search service stopped")
}

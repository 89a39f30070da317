package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hirelocal/trust-server/internal/config"
	httpserver "github.com/hirelocal/trust-server/internal/http"
	"github.com/hirelocal/trust-server/internal/repository"
	"github.com/hirelocal/trust-server/internal/service"
	"github.com/hirelocal/trust-server/pkg/cache"
	dbbuilder "github.com/hirelocal/trust-server/pkg/database"
	"github.com/hirelocal/trust-server/pkg/metrics"
)

type App struct {
	logger *zap.Logger
	dbPool *sql.DB
	cache  *cache.Cache
	server *httpserver.Server
}

func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	dbPool, err := dbbuilder.New(
		dbbuilder.WithDriver(cfg.DBDriver),
		dbbuilder.WithDataSource(cfg.DBPath),
	)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}
	logger.Info("database pool initialized", zap.String("path", cfg.DBPath))

	if err := repository.EnsureSchema(ctx, dbPool); err != nil {
		return nil, fmt.Errorf("schema init failed: %w", err)
	}

	cacheClient, err := cache.New(ctx,
		cache.WithAddress(cfg.RedisAddr),
	)
	if err != nil {
		return nil, fmt.Errorf("cache init failed: %w", err)
	}
	logger.Info("cache client initialized", zap.String("addr", cfg.RedisAddr))

	ratingRepo := repository.NewRatingRepository(dbPool)
	jobRepo := repository.NewJobRepository(dbPool)
	providerRepo := repository.NewProviderRepository(dbPool)

	trustService := service.NewTrustService(ratingRepo, jobRepo, providerRepo, logger)

	registry := metrics.NewRegistry()

	server, err := httpserver.New(
		httpserver.Deps{
			Trust:     trustService,
			Ratings:   ratingRepo,
			Jobs:      jobRepo,
			Providers: providerRepo,
			Cache:     cacheClient,
			Metrics:   registry,
			DB:        dbPool,
		},
		httpserver.WithPort(cfg.HTTPPort),
		httpserver.WithLogger(logger),
		httpserver.WithCacheTTL(time.Duration(cfg.CacheTTLMinutes)*time.Minute),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http server: %w", err)
	}

	return &App{
		logger: logger,
		dbPool: dbPool,
		cache:  cacheClient,
		server: server,
	}, nil
}

// Run starts the application and blocks until a shutdown signal is received.
func (a *App) Run() error {
	a.logger.Info("application starting")

	a.server.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	a.logger.Info("application shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error("http server shutdown error", zap.Error(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("cache shutdown error", zap.Error(err))
	}
	if err := a.dbPool.Close(); err != nil {
		a.logger.Error("database shutdown error", zap.Error(err))
	}

	a.logger.Info("graceful shutdown completed")

	_ = a.logger.Sync()
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/Likith-04/Tibl.ai/api/swagger"
	"github.com/Likith-04/Tibl.ai/internal/handler"
	"github.com/Likith-04/Tibl.ai/internal/repository"
	"github.com/Likith-04/Tibl.ai/internal/service"
	"github.com/Likith-04/Tibl.ai/pkg/cache"
	"github.com/Likith-04/Tibl.ai/pkg/config"
	"github.com/Likith-04/Tibl.ai/pkg/database"
	"github.com/Likith-04/Tibl.ai/pkg/logger"
	"github.com/Likith-04/Tibl.ai/pkg/storage"
)

// @title Tibl.ai Timetable API
// @version 1.0.0
// @description Generates conflict-free weekly timetables for every configured section.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()
	checks := map[string]handler.ReadinessCheck{}

	var db *sqlx.DB
	if cfg.Database.Enabled {
		conn, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer conn.Close() //nolint:errcheck
		if cfg.Database.AutoMigrate {
			if err := database.RunMigrations(conn.DB, logr); err != nil {
				return err
			}
		}
		db = conn
		checks["postgres"] = db.PingContext
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, continuing without cache", zap.Error(err))
		} else {
			defer client.Close() //nolint:errcheck
			redisClient = client
			checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		}
	}

	catalog, err := catalogSource(cfg, db)
	if err != nil {
		return err
	}

	var cacheService *service.CacheService
	if redisClient != nil {
		cacheService = service.NewCacheService(repository.NewCacheRepository(redisClient), metrics, cfg.Redis.CacheTTL, logr, true)
	}

	files, err := storage.NewLocalStorage(cfg.Artifacts.Dir)
	if err != nil {
		return err
	}
	artifacts := service.NewArtifactService(
		files,
		storage.NewSignedURLSigner(cfg.JWT.Secret, cfg.Artifacts.LinkTTL),
		metrics,
		logr.Named("artifacts"),
		service.ArtifactConfig{
			APIPrefix:  cfg.APIPrefix,
			Workers:    cfg.Artifacts.WorkerConcurrency,
			MaxRetries: cfg.Artifacts.WorkerRetries,
			Retention:  cfg.Artifacts.Retention,
		},
	)
	// Workers outlive the signal context so queued renders can drain during shutdown.
	artifacts.Start(context.Background())
	defer artifacts.Stop()
	go pruneArtifacts(ctx, artifacts, logr)

	var store service.TimetableStore
	if db != nil {
		store = service.NewInstrumentedStore(repository.NewTimetableRepository(db), metrics)
	}
	timetables := service.NewTimetableService(
		catalog,
		store,
		cacheService,
		artifacts,
		metrics,
		validator.New(),
		logr.Named("timetables"),
		service.TimetableServiceConfig{
			Settings:  service.SettingsFromConfig(cfg.Scheduler),
			RunTTL:    cfg.Scheduler.RunTTL,
			CacheTTL:  cfg.Redis.CacheTTL,
			APIPrefix: cfg.APIPrefix,
		},
	)

	router := newRouter(cfg, logr, routerDeps{
		timetables: handler.NewTimetableHandler(timetables, artifacts),
		ops:        handler.NewMetricsHandler(metrics, checks),
		tokens:     service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Expiration),
		metrics:    metrics,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := artifacts.Wait(shutdownCtx); err != nil {
		logr.Warn("artifact renders still pending at shutdown", zap.Error(err))
	}
	return nil
}

func catalogSource(cfg *config.Config, db *sqlx.DB) (service.CatalogLoader, error) {
	switch cfg.Catalog.Source {
	case config.CatalogSourcePostgres:
		if db == nil {
			return nil, errors.New("CATALOG_SOURCE=postgres requires DB_ENABLED=true")
		}
		return repository.NewCatalogRepository(db), nil
	default:
		return repository.NewCSVCatalogSource(cfg.Catalog.SubjectsPath, cfg.Catalog.TeachersPath), nil
	}
}

func pruneArtifacts(ctx context.Context, artifacts *service.ArtifactService, logr *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		if _, err := artifacts.Prune(); err != nil {
			logr.Warn("artifact prune failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

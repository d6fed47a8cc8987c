// Command server runs the tour builder HTTP API.
//
// @title                       Tour Builder API
// @version                     1.0
// @description                 Authoring and playback API for interactive product demo tours.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
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

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/demotours/tour-builder/internal/api"
	"github.com/demotours/tour-builder/internal/api/handler"
	"github.com/demotours/tour-builder/internal/core/ports"
	"github.com/demotours/tour-builder/internal/core/service"
	"github.com/demotours/tour-builder/internal/infrastructure/config"
	"github.com/demotours/tour-builder/internal/infrastructure/db/mongo"
	"github.com/demotours/tour-builder/internal/infrastructure/db/redis"
	"github.com/demotours/tour-builder/internal/infrastructure/queue"
	"github.com/demotours/tour-builder/internal/infrastructure/storage"
	"github.com/demotours/tour-builder/pkg/logger"
)

const (
	connectAttempts = 5
	shutdownTimeout = 15 * time.Second
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: !cfg.IsProduction(), Service: "tour-api"})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// --- MongoDB ---
	mongoCfg := mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database}
	backoff := retry.WithMaxRetries(connectAttempts-1, retry.NewExponential(500*time.Millisecond))

	client, db, err := connectMongo(ctx, mongoCfg, backoff, log)
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(dctx)
	}()
	log.Info().Str("database", cfg.Mongo.Database).Msg("mongo connected")

	if err := mongo.EnsureIndexes(ctx, db); err != nil {
		return err
	}

	// --- Redis (view dedup only; the API runs without it) ---
	var dedup queue.ViewDeduper
	checks := map[string]handler.Check{
		"mongo": func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) },
	}
	rdb, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, view dedup disabled")
	} else {
		defer rdb.Close()
		dedup = redis.NewViewDedup(rdb, cfg.Views.DedupTTL)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis connected")
	}

	// --- Asset storage ---
	store, uploadDir, err := newAssetStore(ctx, cfg)
	if err != nil {
		return err
	}

	// --- View counting ---
	tourRepo := mongo.NewTourRepository(db)
	dispatcher := queue.NewDispatcher(cfg.Views.Workers, tourRepo, dedup, logger.Component("views"))
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	dispatcher.Start(workerCtx)

	// --- HTTP ---
	e := api.NewRouter(api.Deps{
		Log:           log,
		AuthService:   service.NewAuthService(mongo.NewAuthRepository(db), cfg.JWTSecret, cfg.TokenTTL),
		TourService:   service.NewTourService(tourRepo, dispatcher, logger.Component("tours")),
		UploadService: service.NewUploadService(store, logger.Component("uploads")),
		HealthChecks:  checks,
		CORSOrigins:   cfg.CORSOrigins,
		AuthRateLimit: cfg.AuthRateLimit,
		UploadMaxSize: cfg.Upload.MaxBytes,
		UploadDir:     uploadDir,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			stopWorkers()
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	// Workers drain pending views before the Mongo client closes.
	stopWorkers()
	dispatcher.Wait()
	log.Info().Msg("server stopped cleanly")
	return nil
}

func connectMongo(ctx context.Context, cfg mongo.Config, backoff retry.Backoff, log zerolog.Logger) (*mongodriver.Client, *mongodriver.Database, error) {
	var (
		client *mongodriver.Client
		db     *mongodriver.Database
	)
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		c, d, err := mongo.Connect(ctx, cfg)
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Msg("mongo not reachable yet")
			return retry.RetryableError(err)
		}
		client, db = c, d
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo after %d attempts: %w", attempt, err)
	}
	return client, db, nil
}

func newAssetStore(ctx context.Context, cfg *config.Config) (ports.AssetStore, string, error) {
	if cfg.Upload.Backend == config.BackendS3 {
		s3cfg := cfg.Upload.S3
		store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:    s3cfg.Bucket,
			Region:    s3cfg.Region,
			Endpoint:  s3cfg.Endpoint,
			AccessKey: s3cfg.AccessKey,
			SecretKey: s3cfg.SecretKey,
			PublicURL: s3cfg.PublicURL,
		})
		return store, "", err
	}
	store, err := storage.NewLocalStore(cfg.Upload.Dir, cfg.Upload.PublicBaseURL)
	if err != nil {
		return nil, "", err
	}
	return store, store.Dir(), nil
}

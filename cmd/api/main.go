package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/pack-progress-api/api/swagger"
	"github.com/noah-isme/pack-progress-api/internal/catalog"
	"github.com/noah-isme/pack-progress-api/internal/handler"
	"github.com/noah-isme/pack-progress-api/internal/models"
	"github.com/noah-isme/pack-progress-api/internal/repository"
	"github.com/noah-isme/pack-progress-api/internal/service"
	"github.com/noah-isme/pack-progress-api/pkg/cache"
	"github.com/noah-isme/pack-progress-api/pkg/config"
	"github.com/noah-isme/pack-progress-api/pkg/database"
	"github.com/noah-isme/pack-progress-api/pkg/devicecache"
	"github.com/noah-isme/pack-progress-api/pkg/export"
	"github.com/noah-isme/pack-progress-api/pkg/logger"
)

// @title Pack Progress API
// @version 1.0.0
// @description Video catalog, pack progress and note tracking for a class.
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := catalog.Load(cfg.Catalog.VideosPath, cfg.Catalog.StudentsPath)
	if err != nil {
		logr.Fatal("failed to load catalog", zap.Error(err))
	}
	logr.Info("catalog loaded", zap.Int("videos", store.Len()), zap.Ints("packs", store.Packs()))

	db, err := database.NewPostgres(context.Background(), cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	device, redisClient := newDeviceCache(cfg, logr)
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	validate := validator.New()
	metrics := service.NewMetricsService()
	engine := catalog.NewEngine(cfg.Catalog.Language)

	noteRepo := repository.NewNoteRepository(db)
	profileRepo := repository.NewProfileRepository(db)

	identities := service.NewIdentityService(profileRepo, logr, service.IdentityConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
	})
	statuses := service.NewStatusService(noteRepo, device, store, metrics, logr)
	progress := service.NewProgressService(store, statuses, logr)
	packs := service.NewPackService(store, engine, statuses, logr)
	notes := service.NewNoteService(noteRepo, store, device, validate, metrics, logr, service.NoteConfig{
		Language:        cfg.Catalog.Language,
		AutoSaveDelay:   cfg.Notes.AutoSaveDelay,
		ClassNotesLimit: cfg.Notes.ClassNotesLimit,
		WriteWorkers:    cfg.Notes.WriteWorkers,
		WriteBuffer:     cfg.Notes.WriteBuffer,
	})
	if redisClient != nil {
		feedCache := repository.NewCacheRepository(redisClient, "feed")
		notes.UseClassFeedCache(service.NewCacheService(feedCache, metrics, cfg.Notes.ClassFeedTTL, logr))
	}
	videos := service.NewVideoService(store, engine, statuses, notes, service.VideoConfig{
		PerPage:    cfg.Catalog.PerPage,
		MaxPerPage: cfg.Catalog.MaxPerPage,
	}, logr)
	profiles := service.NewProfileService(profileRepo, validate, logr)

	progressHandler := handler.NewProgressHandler(progress, nil)
	if cfg.Exports.Enabled {
		progressHandler = handler.NewProgressHandler(progress, service.NewExportService(packs, export.NewRenderer(), logr))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notes.Start(ctx)

	checks := map[string]handler.ReadinessCheck{
		"postgres": func(ctx context.Context) error { return db.PingContext(ctx) },
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	router := newRouter(cfg, logr, routerDeps{
		identities: identities,
		metrics:    metrics,
		videos:     handler.NewVideoHandler(videos),
		packs:      handler.NewPackHandler(packs),
		progress:   progressHandler,
		notes:      handler.NewNoteHandler(notes),
		device:     handler.NewDeviceHandler(statuses),
		admin:      handler.NewAdminHandler(profiles),
		ops:        handler.NewMetricsHandler(metrics, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	notes.Stop()
}

type deviceStore interface {
	GetStatus(ctx context.Context, deviceID, videoID string) (models.NoteStatus, bool, error)
	SetStatus(ctx context.Context, deviceID, videoID string, status models.NoteStatus) error
	ListStatuses(ctx context.Context, deviceID string) (map[string]models.NoteStatus, error)
	GetNote(ctx context.Context, deviceID, videoID string) (*models.LocalNote, error)
	SetNote(ctx context.Context, deviceID, videoID, content string) error
	ListNotes(ctx context.Context, deviceID string) (map[string]models.LocalNote, error)
}

// newDeviceCache returns the configured device cache. An unreachable Redis falls back to memory.
func newDeviceCache(cfg *config.Config, logr *zap.Logger) (deviceStore, *redis.Client) {
	if cfg.DeviceCache.Backend != config.DeviceCacheRedis {
		return devicecache.NewMemory(), nil
	}
	client, err := cache.NewRedis(context.Background(), cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, device cache kept in memory", zap.Error(err))
		return devicecache.NewMemory(), nil
	}
	return repository.NewDeviceCacheRepository(client, cfg.DeviceCache.KeyPrefix, logr), client
}

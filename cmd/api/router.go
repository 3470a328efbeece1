package main

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/pack-progress-api/internal/handler"
	"github.com/noah-isme/pack-progress-api/internal/middleware"
	"github.com/noah-isme/pack-progress-api/internal/models"
	"github.com/noah-isme/pack-progress-api/internal/service"
	"github.com/noah-isme/pack-progress-api/pkg/config"
	"github.com/noah-isme/pack-progress-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/pack-progress-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/pack-progress-api/pkg/middleware/requestid"
)

type identityResolver interface {
	ValidateToken(token string) (*models.JWTClaims, error)
	Identify(ctx context.Context, claims *models.JWTClaims) (*models.Identity, error)
}

type routerDeps struct {
	identities identityResolver
	metrics    *service.MetricsService
	videos     *handler.VideoHandler
	packs      *handler.PackHandler
	progress   *handler.ProgressHandler
	notes      *handler.NoteHandler
	device     *handler.DeviceHandler
	admin      *handler.AdminHandler
	ops        *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics))

	r.GET("/health", deps.ops.Health)
	r.GET("/ready", deps.ops.Ready)
	r.GET("/metrics", deps.ops.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.DeviceID(), middleware.OptionalJWT(deps.identities, logr))

	api.GET("/videos", deps.videos.List)
	api.GET("/videos/:id", deps.videos.Get)
	api.PUT("/videos/:id/note", middleware.RequireEditor(), deps.notes.Upsert)
	api.POST("/videos/:id/note/draft", middleware.RequireEditor(), deps.notes.SaveDraft)

	api.GET("/packs", deps.packs.List)
	api.GET("/packs/overview", deps.packs.Overview)
	api.GET("/packs/:pack/progress", deps.progress.Pack)
	api.GET("/packs/:pack/progress/export", middleware.RequireEditor(), deps.progress.Export)
	api.GET("/progress", deps.progress.Global)

	api.GET("/notes/class", deps.notes.ClassNotes)
	api.GET("/notes/statuses", middleware.JWT(deps.identities), deps.notes.MyStatuses)

	api.PUT("/device/statuses/:id", deps.device.SetStatus)
	api.GET("/device/statuses/:id", deps.device.GetStatus)
	api.GET("/device/statuses", deps.device.List)
	api.GET("/device/notes", deps.device.Drafts)

	admin := api.Group("/admin", middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/profiles", deps.admin.ListProfiles)
	admin.PUT("/profiles/:id", middleware.Audit(logr, "profile.update"), deps.admin.UpdateProfile)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "route not found"}})
	})

	return r
}

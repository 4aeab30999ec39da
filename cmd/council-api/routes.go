package main

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/council-portal-api/internal/handler"
	internalmiddleware "github.com/noah-isme/council-portal-api/internal/middleware"
	"github.com/noah-isme/council-portal-api/internal/models"
	"github.com/noah-isme/council-portal-api/internal/repository"
	"github.com/noah-isme/council-portal-api/internal/service"
	"github.com/noah-isme/council-portal-api/pkg/config"
	appErrors "github.com/noah-isme/council-portal-api/pkg/errors"
	"github.com/noah-isme/council-portal-api/pkg/jobs"
	"github.com/noah-isme/council-portal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/council-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/council-portal-api/pkg/middleware/requestid"
	"github.com/noah-isme/council-portal-api/pkg/realtime"
	"github.com/noah-isme/council-portal-api/pkg/response"
)

type routeDeps struct {
	cfg      *config.Config
	logger   *zap.Logger
	metrics  *service.MetricsService
	userRepo *repository.UserRepository
	auth     *service.AuthService
	portal   *service.PortalService
	contact  *service.ContactService
	notices  *service.NoticeService
	events   *service.EventService
	members  *service.MemberService
	media    *service.MediaService
	drafts   *service.DraftService
	exports  *service.ExportService
	hub      *realtime.Hub
	queue    *jobs.Queue
	checks   map[string]handler.HealthCheck
}

func newRouter(d routeDeps) *gin.Engine {
	cfg := d.cfg

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(d.logger, "/health", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(d.metrics, "/metrics", "/health"))
	r.Use(internalmiddleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(d.metrics, d.checks, d.queue)
	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	if cfg.Media.Driver == "" || cfg.Media.Driver == config.MediaDriverLocal {
		r.Static("/media", cfg.Media.BaseDir)
	}

	api := r.Group(strings.TrimRight(cfg.APIPrefix, "/"))

	portalHandler := handler.NewPortalHandler(d.portal, d.contact, cfg.Cache.TTL)
	liveHandler := handler.NewLiveHandler(d.hub, d.metrics, cfg.CORS.AllowedOrigins, d.logger)
	api.GET("/home", portalHandler.Home)
	api.GET("/notices", portalHandler.Notices)
	api.GET("/events", portalHandler.Events)
	api.GET("/team", portalHandler.Team)
	api.GET("/gallery", portalHandler.Gallery)
	api.POST("/contact", portalHandler.Contact)
	api.GET("/live", liveHandler.Stream)

	authHandler := handler.NewAuthHandler(d.auth)
	authGroup := api.Group("/auth")
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/refresh", authHandler.Refresh)
	authed := authGroup.Group("", internalmiddleware.JWT(d.auth))
	authed.POST("/logout", authHandler.Logout)
	authed.POST("/change-password", authHandler.ChangePassword)
	authed.GET("/me", authHandler.Me)

	admin := api.Group("/admin", internalmiddleware.JWT(d.auth), internalmiddleware.RequireRoles(models.AdminRoles...))
	confirm := internalmiddleware.RequireConfirmation()

	contentHandler := handler.NewContentHandler(d.notices, d.events, d.members)
	admin.GET("/notices", contentHandler.ListNotices)
	admin.POST("/notices", contentHandler.CreateNotice)
	admin.DELETE("/notices/:id", confirm, contentHandler.DeleteNotice)
	admin.GET("/events", contentHandler.ListEvents)
	admin.POST("/events", contentHandler.CreateEvent)
	admin.DELETE("/events/:id", confirm, contentHandler.DeleteEvent)
	admin.GET("/members", contentHandler.ListMembers)
	admin.POST("/members", contentHandler.CreateMember)
	admin.DELETE("/members/:id", confirm, contentHandler.DeleteMember)

	exportHandler := handler.NewExportHandler(d.exports)
	admin.GET("/members/export", internalmiddleware.Audit(d.userRepo, models.AuditActionRosterExport, "members"), exportHandler.Roster)

	uploadLimit := cfg.Media.MaxFileSizeBytes * 4
	mediaHandler := handler.NewMediaHandler(d.media, uploadLimit)
	admin.POST("/media/:kind", mediaHandler.Upload)
	admin.GET("/media/:kind", mediaHandler.List)
	admin.DELETE("/media/gallery/:name", confirm, mediaHandler.DeleteGallery)

	maintenanceHandler := handler.NewMaintenanceHandler(d.queue, service.MediaSweepJobType)
	admin.POST("/maintenance/media-sweep", maintenanceHandler.TriggerSweep)

	draftHandler := handler.NewDraftHandler(d.drafts, cfg.Media.MaxFileSizeBytes+(1<<20))
	admin.GET("/drafts/:table", draftHandler.Get)
	admin.PATCH("/drafts/:table", draftHandler.Patch)
	admin.POST("/drafts/:table/image", draftHandler.Image)
	admin.POST("/drafts/:table/submit", draftHandler.Submit)
	admin.DELETE("/drafts/:table", draftHandler.Reset)

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "route not found"))
	})

	return r
}

func healthChecks(db *sqlx.DB, redisClient *redis.Client) map[string]handler.HealthCheck {
	checks := map[string]handler.HealthCheck{
		"database": func(ctx context.Context) error { return db.PingContext(ctx) },
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	return checks
}

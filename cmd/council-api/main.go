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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/council-portal-api/api/swagger"
	"github.com/noah-isme/council-portal-api/internal/models"
	"github.com/noah-isme/council-portal-api/internal/repository"
	"github.com/noah-isme/council-portal-api/internal/service"
	"github.com/noah-isme/council-portal-api/pkg/cache"
	"github.com/noah-isme/council-portal-api/pkg/config"
	"github.com/noah-isme/council-portal-api/pkg/database"
	"github.com/noah-isme/council-portal-api/pkg/export"
	"github.com/noah-isme/council-portal-api/pkg/jobs"
	"github.com/noah-isme/council-portal-api/pkg/logger"
	"github.com/noah-isme/council-portal-api/pkg/mailer"
	"github.com/noah-isme/council-portal-api/pkg/realtime"
	"github.com/noah-isme/council-portal-api/pkg/storage"
)

// @title Council Portal API
// @version 1.0.0
// @description Public portal and admin console backend for the technical council
// @BasePath /api/v1
// @schemes http https
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled and drafts kept in memory", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close() //nolint:errcheck
		}
	}

	store, err := newObjectStore(cfg.Media)
	if err != nil {
		logr.Fatal("media storage init failed", zap.Error(err))
	}

	app, err := build(ctx, cfg, db, redisClient, store, logr)
	if err != nil {
		logr.Fatal("bootstrap failed", zap.Error(err))
	}
	defer app.shutdown()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "media_driver", cfg.Media.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}

func newObjectStore(cfg config.MediaConfig) (storage.ObjectStore, error) {
	switch cfg.Driver {
	case config.MediaDriverS3:
		return storage.NewS3Store(cfg.S3, cfg.PublicBaseURL)
	case "", config.MediaDriverLocal:
		return storage.NewLocalStorage(cfg.BaseDir, cfg.PublicBaseURL)
	default:
		return nil, fmt.Errorf("unknown media driver %q", cfg.Driver)
	}
}

type application struct {
	router   *gin.Engine
	hub      *realtime.Hub
	queue    *jobs.Queue
	shutdown func()
}

func build(ctx context.Context, cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, store storage.ObjectStore, logr *zap.Logger) (*application, error) {
	validate := validator.New()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	noticeRepo := repository.NewNoticeRepository(db)
	eventRepo := repository.NewEventRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	orphanRepo := repository.NewMediaOrphanRepository(db)
	draftRepo := repository.NewDraftRepository(redisClient, cfg.Cache.DraftTTL)
	cacheRepo := repository.NewCacheRepository(redisClient, repository.DefaultCacheNamespace)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled && redisClient != nil)

	hub := realtime.NewHub(cfg.Live.Buffer, logr)
	var publisher interface {
		Publish(ctx context.Context, change realtime.Change) error
	} = hub
	if cfg.Live.UsePostgres {
		publisher = realtime.NewPGNotifier(db, realtime.DefaultChannel)
		listener := realtime.NewListener(database.DSN(cfg.Database), realtime.DefaultChannel, hub, logr)
		go func() {
			if err := listener.Run(ctx); err != nil {
				logr.Error("change listener stopped", zap.Error(err))
			}
		}()
	}

	hooks := service.NewContentHooks(publisher, userRepo, cacheSvc, metrics, logr)

	mediaSvc := service.NewMediaService(service.MediaServiceParams{
		Store:   store,
		Orphans: orphanRepo,
		Hooks:   hooks,
		Metrics: metrics,
		Logger:  logr,
		Config: service.MediaServiceConfig{
			Bucket:       cfg.Media.Bucket,
			MaxFileSize:  cfg.Media.MaxFileSizeBytes,
			AllowedMIMEs: cfg.Media.AllowedMIMEs,
		},
	})

	noticeSvc := service.NewNoticeService(noticeRepo, validate, hooks, logr)
	eventSvc := service.NewEventService(eventRepo, mediaSvc, validate, hooks, logr)
	memberSvc := service.NewMemberService(memberRepo, mediaSvc, validate, hooks, logr)

	draftSvc := service.NewDraftService(service.DraftServiceParams{
		Store:   draftRepo,
		Media:   mediaSvc,
		Notices: noticeSvc,
		Events:  eventSvc,
		Members: memberSvc,
		Logger:  logr,
	})

	policy := models.ParseTeamAdminPolicy(cfg.Portal.TeamAdminPolicy)
	portalSvc := service.NewPortalService(service.PortalServiceParams{
		Notices: noticeRepo,
		Events:  eventRepo,
		Members: memberRepo,
		Media:   mediaSvc,
		Cache:   cacheSvc,
		Metrics: metrics,
		Logger:  logr,
		Config: service.PortalServiceConfig{
			CacheTTL:    cfg.Cache.TTL,
			Location:    cfg.Portal.Location(),
			AdminPolicy: policy,
		},
	})
	go portalSvc.WatchChanges(ctx, hub)

	var sender interface {
		Send(ctx context.Context, msg mailer.Message) (string, error)
	} = mailer.NewLogSender(logr)
	if cfg.Contact.ResendAPIKey != "" {
		sender = mailer.NewResendSender(cfg.Contact.ResendAPIKey, cfg.Contact.From, logr)
	}
	contactSvc := service.NewContactService(sender, cfg.Contact.Inbox, validate, logr)

	exportSvc := service.NewExportService(memberRepo, policy, logr, export.NewCSVExporter(export.WithBOM()), export.NewPDFExporter(export.WithFooter("Student Council team roster")))

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		SingleSession:      cfg.JWT.SingleSession,
	})

	sweepSvc := service.NewMediaSweepService(orphanRepo, mediaSvc, metrics, cfg.Sweep.BatchSize, logr)
	queue := jobs.NewQueue("media-sweep", sweepSvc.Handle, jobs.QueueConfig{
		Workers:  1,
		Coalesce: true,
		Logger:   logr,
	})
	queue.Start(ctx)
	if cfg.Sweep.Enabled {
		if err := queue.Schedule(cfg.Sweep.Interval, service.MediaSweepJobType, nil); err != nil {
			return nil, err
		}
	}

	router := newRouter(routeDeps{
		cfg:      cfg,
		logger:   logr,
		metrics:  metrics,
		userRepo: userRepo,
		auth:     authSvc,
		portal:   portalSvc,
		contact:  contactSvc,
		notices:  noticeSvc,
		events:   eventSvc,
		members:  memberSvc,
		media:    mediaSvc,
		drafts:   draftSvc,
		exports:  exportSvc,
		hub:      hub,
		queue:    queue,
		checks:   healthChecks(db, redisClient),
	})

	return &application{
		router: router,
		hub:    hub,
		queue:  queue,
		shutdown: func() {
			queue.Stop()
			hub.Close()
		},
	}, nil
}

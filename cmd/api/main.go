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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/handover-api/api/swagger"
	"github.com/noah-isme/handover-api/internal/handler"
	"github.com/noah-isme/handover-api/internal/middleware"
	"github.com/noah-isme/handover-api/internal/models"
	"github.com/noah-isme/handover-api/internal/repository"
	"github.com/noah-isme/handover-api/internal/service"
	"github.com/noah-isme/handover-api/pkg/cache"
	"github.com/noah-isme/handover-api/pkg/config"
	"github.com/noah-isme/handover-api/pkg/database"
	"github.com/noah-isme/handover-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/handover-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/handover-api/pkg/middleware/requestid"
	"github.com/noah-isme/handover-api/pkg/storage"
)

// @title Handover API
// @version 1.0.0
// @description Token-gated anonymous knowledge handoff pipeline
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, stats cache disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	store, err := storage.NewLocalStorage(cfg.Storage.BaseDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init blob storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)

	codeRepo := repository.NewCodeRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	validate := validator.New()
	metrics := service.NewMetricsService()

	authService := service.NewAuthService(userRepo, auditRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	codeService := service.NewCodeService(codeRepo, auditRepo, metrics, logr, service.CodeServiceConfig{
		TTL:        cfg.Codes.TTL,
		CodeLength: cfg.Codes.CodeLength,
	})
	enrichmentService := service.NewEnrichmentService(submissionRepo, metrics, validate, logr, service.EnrichmentServiceConfig{
		Enabled:        cfg.Enrichment.Enabled,
		EndpointURL:    cfg.Enrichment.EndpointURL,
		RequestTimeout: cfg.Enrichment.RequestTimeout,
		Workers:        cfg.Enrichment.Workers,
	})
	submissionService := service.NewSubmissionService(submissionRepo, codeService, store, enrichmentService, metrics, validate, logr, service.SubmissionServiceConfig{
		MaxFileSize:  cfg.Storage.MaxFileSizeBytes,
		AllowedMIMEs: cfg.Storage.AllowedMIMEs,
	})
	moderationService := service.NewModerationService(submissionRepo, auditRepo, metrics, signer, logr, cfg.APIPrefix)
	resourceService := service.NewResourceService(submissionRepo, store, signer, logr, cfg.APIPrefix)
	exportService := service.NewExportService(submissionRepo, nil, nil, logr)

	var statsService *service.StatsService
	if redisClient != nil {
		statsService = service.NewStatsService(submissionRepo, codeRepo, userRepo, service.NewRedisStatsCache(redisClient), metrics, logr, cfg.Stats.CacheTTL)
	} else {
		statsService = service.NewStatsService(submissionRepo, codeRepo, userRepo, nil, metrics, logr, cfg.Stats.CacheTTL)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	enrichmentService.Start(ctx)
	defer enrichmentService.Stop()

	authHandler := handler.NewAuthHandler(authService)
	codeHandler := handler.NewCodeHandler(codeService)
	submissionHandler := handler.NewSubmissionHandler(submissionService)
	moderationHandler := handler.NewModerationHandler(moderationService, exportService)
	resourceHandler := handler.NewResourceHandler(resourceService)
	enrichmentHandler := handler.NewEnrichmentHandler(enrichmentService, cfg.Enrichment.CallbackSecret)
	statsHandler := handler.NewStatsHandler(statsService)
	metricsHandler := handler.NewMetricsHandler(metrics)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.MaxMultipartMemory = cfg.Storage.MaxFileSizeBytes

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	// Public surface. Uploaders are anonymous; their gate is the upload
	// code, and file downloads are gated by the signed token itself.
	api.POST("/auth/login", authHandler.Login)
	api.POST("/codes/redeem", codeHandler.Redeem)
	api.POST("/submissions", submissionHandler.Submit)
	api.POST("/enrichment/callback", enrichmentHandler.Callback)
	api.GET("/files/download", resourceHandler.Download)

	admin := api.Group("", middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin))
	admin.POST("/codes", codeHandler.Issue)
	admin.GET("/codes", codeHandler.List)
	admin.GET("/submissions", moderationHandler.List)
	admin.GET("/submissions/export", moderationHandler.ExportCSV)
	admin.GET("/submissions/:id", moderationHandler.Get)
	admin.POST("/submissions/:id/approve", moderationHandler.Approve)
	admin.POST("/submissions/:id/reject", moderationHandler.Reject)
	admin.GET("/submissions/:id/export", moderationHandler.Export)
	admin.POST("/seekers", authHandler.CreateSeeker)
	admin.GET("/seekers", authHandler.ListSeekers)
	admin.GET("/stats", statsHandler.Dashboard)

	authed := api.Group("", middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin, models.RoleSeeker))
	authed.GET("/resources", resourceHandler.List)
	authed.GET("/resources/:id", resourceHandler.Get)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

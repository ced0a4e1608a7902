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

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-results-api/api/swagger"
	"github.com/noah-isme/sma-results-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-results-api/internal/middleware"
	"github.com/noah-isme/sma-results-api/internal/models"
	"github.com/noah-isme/sma-results-api/internal/repository"
	"github.com/noah-isme/sma-results-api/internal/service"
	"github.com/noah-isme/sma-results-api/pkg/cache"
	"github.com/noah-isme/sma-results-api/pkg/config"
	"github.com/noah-isme/sma-results-api/pkg/database"
	"github.com/noah-isme/sma-results-api/pkg/grading"
	"github.com/noah-isme/sma-results-api/pkg/jobs"
	"github.com/noah-isme/sma-results-api/pkg/logger"
	"github.com/noah-isme/sma-results-api/pkg/mailer"
	corsmiddleware "github.com/noah-isme/sma-results-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-results-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-results-api/pkg/storage"
)

// @title SMA Results API
// @version 1.0.0
// @description Result submission, approval and GPA aggregation service.
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
			redisClient = nil
		}
	}

	store, err := newObjectStore(cfg.Uploads)
	if err != nil {
		logr.Fatal("failed to init upload storage", zap.Error(err))
	}

	scale, err := grading.LoadScale(cfg.Grading.ScaleFile)
	if err != nil {
		logr.Fatal("failed to load grading scale", zap.Error(err))
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	var cacheRepo *repository.CacheRepository
	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, true)
		defer cacheRepo.Close()
	}

	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	resultRepo := repository.NewResultRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	ingestionSvc := service.NewIngestionService(db, courseRepo, enrollmentRepo, resultRepo, submissionRepo,
		grading.NewResolver(scale), store, metricsSvc, validate, logr, cfg.Uploads.MaxFileSizeBytes)
	submissionSvc := service.NewSubmissionService(submissionRepo, metricsSvc, validate, logr)
	aggregationSvc := service.NewAggregationService(db, resultRepo, studentRepo, cacheSvc, metricsSvc, logr)
	transcriptSvc := service.NewTranscriptService(aggregationSvc, resultRepo, courseRepo, resultRepo, cacheSvc, logr)
	courseSvc := service.NewCourseService(courseRepo, validate, logr)
	templateSvc := service.NewTemplateService(courseRepo, enrollmentRepo, logr)
	notificationSvc := service.NewNotificationService(notificationRepo, logr)
	archiveSvc := service.NewArchiveService(submissionSvc, store,
		storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL), cfg.APIPrefix+"/files", logr)

	dispatcher := newDispatcher(cfg, notificationRepo, metricsSvc, logr)
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	approvals := service.NewApprovalOrchestrator(submissionSvc, resultRepo, aggregationSvc, dispatcher, cacheSvc, logr, service.ApprovalConfig{
		Workers: cfg.Approval.RecomputeWorkers,
		Timeout: cfg.Approval.RecomputeTimeout,
	})

	checks := map[string]handler.Pinger{"postgres": db}
	if cacheRepo != nil {
		checks["redis"] = handler.PingFunc(cacheRepo.Ping)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r.Group(cfg.APIPrefix), service.NewTokenVerifier(cfg.JWT.Secret),
		handler.NewSubmissionHandler(ingestionSvc, submissionSvc, approvals).WithUploadLimit(cfg.Uploads.MaxFileSizeBytes),
		handler.NewArchiveHandler(archiveSvc),
		handler.NewCourseHandler(courseSvc, templateSvc, transcriptSvc),
		handler.NewStudentHandler(aggregationSvc, transcriptSvc),
		handler.NewNotificationHandler(notificationSvc),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func registerRoutes(api *gin.RouterGroup, verifier internalmiddleware.TokenValidator,
	submissions *handler.SubmissionHandler, archive *handler.ArchiveHandler,
	courses *handler.CourseHandler, students *handler.StudentHandler, notifications *handler.NotificationHandler) {
	// Signed tokens authorize file downloads on their own.
	api.GET("/files/:token", archive.Download)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(verifier))

	staff := internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleLecturer)
	adminOnly := internalmiddleware.RequireRoles(models.RoleAdmin)

	subs := secured.Group("/submissions")
	subs.POST("", internalmiddleware.RequireRoles(models.RoleLecturer), submissions.Upload)
	subs.GET("", staff, submissions.List)
	subs.GET("/:id", staff, submissions.Get)
	subs.GET("/:id/file-link", staff, archive.Link)
	subs.POST("/:id/approve", adminOnly, submissions.Approve)
	subs.POST("/:id/reject", adminOnly, submissions.Reject)

	courseGroup := secured.Group("/courses", staff)
	courseGroup.POST("", courses.Create)
	courseGroup.GET("/:id/template", courses.Template)
	courseGroup.GET("/:id/statistics", courses.Statistics)

	anyRole := internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleLecturer, models.RoleStudent)

	inbox := secured.Group("/notifications", anyRole)
	inbox.GET("", notifications.List)
	inbox.PUT("/read-all", notifications.MarkAllRead)
	inbox.PUT("/:id/read", notifications.MarkRead)

	studentGroup := secured.Group("/students", anyRole)
	studentGroup.GET("/:id/gpa", students.SemesterGPA)
	studentGroup.GET("/:id/cgpa", students.CGPA)
	studentGroup.GET("/:id/gpa-trend", students.Trend)
	studentGroup.GET("/:id/transcript", students.Transcript)
}

func newObjectStore(cfg config.UploadsConfig) (storage.ObjectStore, error) {
	if cfg.Storage == config.StorageS3 {
		s3Store, err := storage.NewS3Storage(cfg.S3)
		if err != nil {
			return nil, err
		}
		return s3Store, nil
	}
	local, err := storage.NewLocalStorage(cfg.Dir)
	if err != nil {
		return nil, err
	}
	return local, nil
}

func newDispatcher(cfg *config.Config, sink *repository.NotificationRepository, metrics *service.MetricsService, logr *zap.Logger) *service.NotificationDispatcher {
	var mail service.Mailer
	smtpMailer, err := mailer.NewSMTPMailer(cfg.SMTP)
	switch {
	case err != nil:
		logr.Warn("smtp misconfigured, email disabled", zap.Error(err))
	case smtpMailer != nil:
		mail = smtpMailer
	}
	return service.NewNotificationDispatcher(sink, mail, metrics, logr, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	})
}

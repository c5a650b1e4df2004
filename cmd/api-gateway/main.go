package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/edupulse/wellness-api/internal/handler"
	"github.com/edupulse/wellness-api/internal/middleware"
	"github.com/edupulse/wellness-api/internal/models"
	"github.com/edupulse/wellness-api/internal/realtime"
	"github.com/edupulse/wellness-api/internal/repository"
	"github.com/edupulse/wellness-api/internal/service"
	"github.com/edupulse/wellness-api/pkg/cache"
	"github.com/edupulse/wellness-api/pkg/config"
	"github.com/edupulse/wellness-api/pkg/database"
	"github.com/edupulse/wellness-api/pkg/jobs"
	"github.com/edupulse/wellness-api/pkg/logger"
	corsmiddleware "github.com/edupulse/wellness-api/pkg/middleware/cors"
	reqidmiddleware "github.com/edupulse/wellness-api/pkg/middleware/requestid"
	"github.com/edupulse/wellness-api/pkg/storage"
)

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
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	var cacheRepo *repository.CacheRepository
	if redisClient, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Sugar().Warnw("redis unavailable, analytics cache disabled", "error", err)
	} else {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close()
	}

	store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("export storage init failed", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

	// Repositories.
	teacherRepo := repository.NewTeacherRepository(db, logr)
	schoolRepo := repository.NewSchoolRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	wellnessRepo := repository.NewWellnessRepository(db)
	alertRepo := repository.NewAlertRepository(db)

	// Services.
	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(cfg.JWT.Secret)
	cacheSvc := service.NewCacheService(cacheRepo, cfg.Analytics.CacheTTL, logr)
	calculator := service.NewWorkloadCalculator(cfg.Wellness, logr)
	wellnessSvc := service.NewWellnessService(teacherRepo, scheduleRepo, wellnessRepo, calculator, logr)
	reportSvc := service.NewReportService(store, signer, logr)
	analyticsSvc := service.NewAnalyticsService(wellnessRepo, teacherRepo, alertRepo, cacheSvc, metricsSvc, cfg.Wellness.TrendDeadBand, logr)

	hub := realtime.NewHub(cfg.Realtime, authSvc, metricsSvc.ConnectionsGauge(), logr)

	router := service.NewJobRouter(&service.LogMailer{Logger: logr}, reportSvc, hub, logr)
	queue := jobs.NewQueue("wellness", router.Handle, jobs.QueueConfig{
		Workers:    2,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
	})
	queue.Start(ctx)
	defer queue.Stop()

	alertSvc := service.NewAlertService(alertRepo, teacherRepo, hub, queue, validate, metricsSvc, logr)

	monitorSvc := service.NewMonitorService(cfg.Wellness, cfg.Monitor, service.MonitorDeps{
		Wellness:   wellnessSvc,
		Alerts:     alertSvc,
		AlertStore: alertRepo,
		Schools:    schoolRepo,
		Teachers:   teacherRepo,
		Schedules:  scheduleRepo,
		Snapshots:  wellnessRepo,
		Trends:     analyticsSvc,
		Notifier:   hub,
		Cache:      cacheSvc,
		Queue:      queue,
		Metrics:    metricsSvc,
		Logger:     logr,
	})
	go monitorSvc.Start(ctx)

	// Handlers.
	wellnessHandler := handler.NewWellnessHandler(wellnessSvc)
	alertHandler := handler.NewAlertHandler(alertSvc)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsSvc)
	monitorHandler := handler.NewMonitorHandler(monitorSvc)
	exportHandler := handler.NewExportHandler(reportSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "connections": hub.Count()})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	r.GET("/ws", func(c *gin.Context) {
		hub.HandleConnection(c.Writer, c.Request)
	})

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))
	api.Use(middleware.ResolveTeacher(teacherRepo))
	{
		wellness := api.Group("/wellness")
		{
			wellness.POST("/teachers/:teacherId/calculate", middleware.RBAC(append(models.AdminRoles, "SELF")...), wellnessHandler.Calculate)
			wellness.GET("/teachers/:teacherId/history", middleware.RBAC(append(models.AdminRoles, "SELF")...), wellnessHandler.History)
		}

		alerts := api.Group("/alerts")
		{
			alerts.GET("", alertHandler.List)
			alerts.GET("/statistics", middleware.AdminOnly(), alertHandler.Statistics)
			alerts.GET("/trends", middleware.AdminOnly(), alertHandler.Trends)
			alerts.GET("/:id", alertHandler.Get)
			alerts.POST("/:id/acknowledge", alertHandler.Acknowledge)
			alerts.POST("/:id/resolve", middleware.AdminOnly(), alertHandler.Resolve)
		}

		analytics := api.Group("/analytics")
		{
			analytics.GET("/teachers/:teacherId/report", middleware.RBAC(append(models.AdminRoles, "SELF")...), analyticsHandler.TeacherReport)
			analytics.GET("/departments", middleware.AdminOnly(), analyticsHandler.DepartmentOverview)
			analytics.GET("/dashboard", middleware.AdminOnly(), analyticsHandler.SchoolDashboard)
		}

		monitor := api.Group("/monitor", middleware.AdminOnly())
		{
			monitor.POST("/run/:cadence", monitorHandler.Run)
			monitor.POST("/run-school", monitorHandler.RunSchool)
		}

		api.GET("/exports/download", exportHandler.Download)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("server shutdown failed", "error", err)
	}
	hub.CloseAll()
}

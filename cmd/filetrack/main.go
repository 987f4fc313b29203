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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/filetrackhq/filetrack-api/api/swagger"
	"github.com/filetrackhq/filetrack-api/internal/handler"
	"github.com/filetrackhq/filetrack-api/internal/middleware"
	"github.com/filetrackhq/filetrack-api/internal/models"
	"github.com/filetrackhq/filetrack-api/internal/repository"
	"github.com/filetrackhq/filetrack-api/internal/scheduler"
	"github.com/filetrackhq/filetrack-api/internal/service"
	"github.com/filetrackhq/filetrack-api/pkg/cache"
	"github.com/filetrackhq/filetrack-api/pkg/config"
	"github.com/filetrackhq/filetrack-api/pkg/database"
	"github.com/filetrackhq/filetrack-api/pkg/logger"
	corsmiddleware "github.com/filetrackhq/filetrack-api/pkg/middleware/cors"
	reqidmiddleware "github.com/filetrackhq/filetrack-api/pkg/middleware/requestid"
)

// @title FileTrack API
// @version 1.0.0
// @description File lifecycle and time-based escalation engine
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
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// Redis only backs the job leases; the database guards keep the jobs
		// idempotent without it, so a missing redis degrades rather than kills.
		logr.Warn("redis unavailable, job leases disabled", zap.Error(err))
		redisClient = nil
	}

	fileRepo := repository.NewFileRepository(db)
	routingRepo := repository.NewRoutingRepository(db)
	deskRepo := repository.NewDeskRepository(db)
	holidayRepo := repository.NewHolidayRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	extensionRepo := repository.NewExtensionRepository(db)
	pointsRepo := repository.NewPointsRepository(db)
	coinRepo := repository.NewCoinRepository(db)
	userRepo := repository.NewUserRepository(db)

	notifier := service.NewNotificationService(deliveryLogSink(logr), logr, service.NotificationServiceConfig{
		Workers:    cfg.Notify.Workers,
		BufferSize: cfg.Notify.BufferSize,
		MaxRetries: cfg.Notify.MaxRetries,
	})

	settingsSvc := service.NewSettingsService(settingRepo, logr, service.SettingsServiceConfig{
		Defaults: map[string]int{
			service.SettingRedListPenalty:     cfg.Incentive.RedListPenalty,
			service.SettingMonthlyBonus:       cfg.Incentive.MonthlyBonus,
			service.SettingLowPointsThreshold: cfg.Incentive.LowPointsThreshold,
			service.SettingRedFlagWarnCount:   cfg.Incentive.RedFlagWarnCount,
			service.SettingRedFlagSevereCount: cfg.Incentive.RedFlagSevereCount,
			service.SettingOptimumHours:       cfg.Incentive.OptimumHours,
			service.SettingCoinOptimalReward:  cfg.Incentive.CoinOptimalReward,
			service.SettingCoinExcessReward:   cfg.Incentive.CoinExcessReward,
		},
	})

	calendarSvc := service.NewCalendarService(holidayRepo, logr, service.CalendarServiceConfig{
		WeekendDays:     cfg.Calendar.WeekendDays,
		HolidayCacheTTL: cfg.Calendar.HolidayCacheTTL,
	})

	timingSvc := service.NewTimingService(fileRepo, calendarSvc, logr)

	pointsLedger := service.NewPointsLedger(pointsRepo, settingsSvc, notifier, logr, int64(cfg.Incentive.BasePoints))
	coinLedger := service.NewCoinLedger(coinRepo, settingsSvc, notifier, logr)
	incentiveSvc := service.NewIncentiveService(pointsRepo, coinRepo, logr, pointsLedger, coinLedger)

	fileSvc := service.NewFileService(
		fileRepo, deskRepo, routingRepo, userRepo,
		calendarSvc, timingSvc, incentiveSvc, settingsSvc,
		notifier, logr,
		service.FileServiceConfig{
			MaxFilesPerDay:    cfg.Desks.MaxFilesPerDay,
			AutoCreateEnabled: cfg.Desks.AutoCreateEnabled,
		},
	)

	extensionSvc := service.NewExtensionService(extensionRepo, fileRepo, routingRepo, userRepo, timingSvc, notifier, logr)
	sweeperSvc := service.NewSweeperService(fileRepo, timingSvc, incentiveSvc, userRepo, notifier, logr)

	authSvc := service.NewAuthService(logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     "filetrack-api",
	})

	metricsSvc := service.NewMetricsService()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifier.Start(ctx)
	defer notifier.Stop()

	jobs := scheduler.New(sweeperSvc, timingSvc, incentiveSvc, metricsSvc, redisClient, logr, scheduler.Config{
		SweepEnabled:    cfg.Sweeper.Enabled,
		SweepInterval:   cfg.Sweeper.Interval,
		SweepLease:      cfg.Sweeper.LeaseDuration,
		RefreshInterval: cfg.Timing.RefreshInterval,
	})
	jobs.Start(ctx)
	defer jobs.Stop()

	fileHandler := handler.NewFileHandler(fileSvc, metricsSvc)
	extensionHandler := handler.NewExtensionHandler(extensionSvc, metricsSvc)
	incentiveHandler := handler.NewIncentiveHandler(incentiveSvc, pointsRepo, coinRepo, fileRepo)
	adminHandler := handler.NewAdminHandler(holidayRepo, deskRepo, settingsSvc, sweeperSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r, cfg, authSvc, metricsSvc, fileHandler, extensionHandler, incentiveHandler, adminHandler)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("server shutdown incomplete", zap.Error(err))
	}
}

func registerRoutes(
	r *gin.Engine,
	cfg *config.Config,
	authSvc *service.AuthService,
	metricsSvc *service.MetricsService,
	files *handler.FileHandler,
	extensions *handler.ExtensionHandler,
	incentives *handler.IncentiveHandler,
	admin *handler.AdminHandler,
) {
	adminOnly := middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.Metrics(metricsSvc))
	api.Use(middleware.JWT(authSvc))

	fileRoutes := api.Group("/files")
	{
		fileRoutes.GET("", files.List)
		fileRoutes.POST("", files.Create)
		fileRoutes.GET("/:id", files.Get)
		fileRoutes.GET("/:id/history", files.History)
		fileRoutes.POST("/:id/forward", files.Forward)
		fileRoutes.POST("/:id/action", files.Action)
		fileRoutes.POST("/:id/recall", middleware.RequireRoles(models.RoleSuperAdmin), files.Recall)
		fileRoutes.POST("/:id/dispatch", middleware.RequireRoles(models.RoleDispatcher, models.RoleAdmin, models.RoleSuperAdmin), files.Dispatch)
		fileRoutes.GET("/:id/extensions", extensions.ListByFile)
		fileRoutes.POST("/:id/extensions", extensions.Request)
	}

	extensionRoutes := api.Group("/extensions")
	{
		extensionRoutes.GET("/pending", extensions.Pending)
		extensionRoutes.POST("/:id/resolve", extensions.Resolve)
	}

	incentiveRoutes := api.Group("/incentives")
	{
		incentiveRoutes.GET("/me", incentives.MyBalance)
		incentiveRoutes.GET("/me/transactions", incentives.MyTransactions)
		incentiveRoutes.GET("/leaderboard", incentives.Leaderboard)
		incentiveRoutes.GET("/users/:id", adminOnly, incentives.UserBalance)
	}

	api.GET("/reports/redlist", adminOnly, incentives.RedListReport)

	adminRoutes := api.Group("/admin", adminOnly)
	{
		adminRoutes.GET("/holidays", admin.ListHolidays)
		adminRoutes.POST("/holidays", admin.CreateHoliday)
		adminRoutes.DELETE("/holidays/:id", admin.DeleteHoliday)
		adminRoutes.GET("/desks", admin.ListDesks)
		adminRoutes.POST("/desks", admin.CreateDesk)
		adminRoutes.GET("/settings", admin.ListSettings)
		adminRoutes.PUT("/settings/:key", admin.UpdateSetting)
		adminRoutes.POST("/sweep", admin.TriggerSweep)
	}
}

// deliveryLogSink stands in for the push channel until one is configured.
// Notifications stay observable in the logs either way.
func deliveryLogSink(logr *zap.Logger) service.DeliverySink {
	return service.DeliverySinkFunc(func(_ context.Context, event models.NotificationEvent) error {
		logr.Info("notification",
			zap.String("type", string(event.Type)),
			zap.String("user_id", event.UserID),
			zap.String("priority", string(event.Priority)),
			zap.String("title", event.Title))
		return nil
	})
}

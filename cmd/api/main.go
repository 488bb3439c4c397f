package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sacrapods/nutrivet-api/internal/clinictime"
	"github.com/sacrapods/nutrivet-api/internal/config"
	"github.com/sacrapods/nutrivet-api/internal/handler"
	adminHandler "github.com/sacrapods/nutrivet-api/internal/handler/admin"
	bookingHandler "github.com/sacrapods/nutrivet-api/internal/handler/booking"
	"github.com/sacrapods/nutrivet-api/internal/middleware"
	"github.com/sacrapods/nutrivet-api/internal/repository/postgres"
	"github.com/sacrapods/nutrivet-api/internal/router"
	auditService "github.com/sacrapods/nutrivet-api/internal/service/audit"
	bookingService "github.com/sacrapods/nutrivet-api/internal/service/booking"
	capacityService "github.com/sacrapods/nutrivet-api/internal/service/capacity"
	notificationService "github.com/sacrapods/nutrivet-api/internal/service/notification"
	settingsService "github.com/sacrapods/nutrivet-api/internal/service/settings"
	"github.com/sacrapods/nutrivet-api/internal/worker"
	"github.com/sacrapods/nutrivet-api/pkg/logger"
	"github.com/sacrapods/nutrivet-api/pkg/messaging/redis"
	"github.com/sacrapods/nutrivet-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(&logger.Config{Level: logger.InfoLevel})

	clinic, err := clinictime.New(cfg.Clinic.Zone)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load clinic timezone")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, appLogger.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	// Repositories
	store := postgres.NewStore(db)
	settingsRepo := postgres.NewSettingsRepository(store)
	appointmentRepo := postgres.NewAppointmentRepository(store)
	slotLockRepo := postgres.NewSlotLockRepository(store)
	blockedRepo := postgres.NewBlockedRepository(store)
	rescheduleRepo := postgres.NewRescheduleRequestRepository(store)
	capacityRepo := postgres.NewProviderCapacityRepository(store)
	directoryRepo := postgres.NewDirectoryRepository(store)
	auditRepo := postgres.NewAuditRepository(store)

	// Services
	m := metrics.NewMetrics(cfg.Metrics.Namespace)
	settingsSvc := settingsService.NewService(settingsRepo, appLogger)
	notifier := notificationService.NewService(directoryRepo, broker, cfg.SMTP, clinic, appLogger)
	capacitySvc := capacityService.NewService(store, appointmentRepo, capacityRepo, settingsSvc, clinic, appLogger)
	bookingSvc := bookingService.NewService(
		store, appointmentRepo, slotLockRepo, blockedRepo, rescheduleRepo,
		directoryRepo, capacitySvc, settingsSvc, clinic, notifier, m, appLogger,
	)
	auditSvc := auditService.NewService(auditRepo, appLogger)
	reminderWorker := worker.NewReminderWorker(appointmentRepo, notifier, m, appLogger, 0)

	// HTTP surface
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	bookingH := bookingHandler.NewHandler(bookingSvc)
	adminH := adminHandler.NewHandler(bookingSvc, capacitySvc, settingsSvc, auditSvc, reminderWorker)
	healthH := handler.NewHealthHandler(db)

	r := router.NewRouter(authMiddleware, bookingH, adminH, healthH, router.Config{
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
		CORSConfig:     middleware.DefaultCORSConfig(),
		MetricsPrefix:  cfg.Metrics.Namespace,
	})
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	appLogger.Info("booking API started", "port", cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}

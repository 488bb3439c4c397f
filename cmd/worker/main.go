package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sacrapods/nutrivet-api/internal/clinictime"
	"github.com/sacrapods/nutrivet-api/internal/config"
	"github.com/sacrapods/nutrivet-api/internal/repository/postgres"
	notificationService "github.com/sacrapods/nutrivet-api/internal/service/notification"
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

	store := postgres.NewStore(db)
	appointmentRepo := postgres.NewAppointmentRepository(store)
	directoryRepo := postgres.NewDirectoryRepository(store)

	m := metrics.NewMetrics(cfg.Metrics.Namespace + "_worker")
	notifier := notificationService.NewService(directoryRepo, broker, cfg.SMTP, clinic, appLogger)
	reminders := worker.NewReminderWorker(appointmentRepo, notifier, m, appLogger, 5*time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go reminders.Run(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down worker...")
	cancel()
}

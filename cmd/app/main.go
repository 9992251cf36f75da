package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mkrylov/tablebook/config"
	"github.com/mkrylov/tablebook/internal/bootstrap"
	"github.com/mkrylov/tablebook/internal/cache"
	"github.com/mkrylov/tablebook/internal/email"
	"github.com/mkrylov/tablebook/internal/kafka"
	"github.com/mkrylov/tablebook/internal/repository"
	"github.com/mkrylov/tablebook/internal/service/reservation"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := repository.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate schema: %v", err)
	}

	lock := cache.NewAdmissionLock(
		cfg.Redis,
		time.Duration(cfg.Admission.LockWaitSeconds)*time.Second,
		time.Duration(cfg.Admission.LockTTLSeconds)*time.Second,
	)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	sender := email.NewSMTPSender(cfg.SMTP)

	activeStore := repository.NewRecordRepository(pool, repository.ActiveTable)
	archiveStore := repository.NewRecordRepository(pool, repository.ArchiveTable)
	settingsRepo := repository.NewSettingsRepository(pool)

	svc := reservation.NewService(
		activeStore,
		archiveStore,
		settingsRepo,
		lock,
		sender,
		producer,
		reservation.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)

	if err := bootstrap.Run(ctx, cfg, svc); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mkrylov/tablebook/config"
	"github.com/mkrylov/tablebook/internal/cache"
	"github.com/mkrylov/tablebook/internal/email"
	"github.com/mkrylov/tablebook/internal/kafka"
	"github.com/mkrylov/tablebook/internal/repository"
	"github.com/mkrylov/tablebook/internal/schedule"
	"github.com/mkrylov/tablebook/internal/service/reservation"
	kafkaGo "github.com/segmentio/kafka-go"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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
	sender := email.NewSMTPSender(cfg.SMTP)

	activeStore := repository.NewRecordRepository(pool, repository.ActiveTable)
	archiveStore := repository.NewRecordRepository(pool, repository.ArchiveTable)
	settingsRepo := repository.NewSettingsRepository(pool)

	svc := reservation.NewService(activeStore, archiveStore, settingsRepo, lock, sender, nil)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	go func() {
		if err := consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
			var event kafka.ReservationEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				log.Printf("decode event error: %v", err)
				return nil
			}
			handleEvent(ctx, event, settingsRepo, sender)
			return nil
		}); err != nil {
			log.Printf("consumer stopped: %v", err)
		}
	}()

	sweepMinutes := cfg.Worker.ArchiveSweepMinutes
	if sweepMinutes <= 0 {
		sweepMinutes = 60
	}
	sweepTicker := time.NewTicker(time.Duration(sweepMinutes) * time.Minute)
	defer sweepTicker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-sweepTicker.C:
			sweep(ctx, svc, lock)
		case s := <-sig:
			log.Printf("received signal %v, shutting down", s)
			return
		}
	}
}

// sweep rotates settled rows under the admission lock so the rewrite cannot
// race a concurrent submission.
func sweep(ctx context.Context, svc *reservation.Service, lock *cache.AdmissionLock) {
	ok, err := lock.Acquire(ctx)
	if err != nil {
		log.Printf("acquire lock for sweep: %v", err)
		return
	}
	if !ok {
		log.Printf("archive sweep skipped: lock busy")
		return
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			log.Printf("release lock after sweep: %v", err)
		}
	}()

	moved, err := svc.Rotate(ctx)
	if err != nil {
		log.Printf("archive sweep error: %v", err)
		return
	}
	if moved > 0 {
		log.Printf("archived %d settled reservations", moved)
	}
}

// handleEvent emails warning events to the operator contact. Accepted
// reservations are only logged; the customer already got a confirmation
// from the admission path.
func handleEvent(ctx context.Context, event kafka.ReservationEvent, settingsRepo repository.SettingsSource, sender *email.SMTPSender) {
	switch event.Type {
	case kafka.EventAnomalyDetected, kafka.EventDeliveryFailed:
		raw, err := settingsRepo.ReadAll(ctx)
		if err != nil {
			log.Printf("read settings for alert: %v", err)
			return
		}
		settings, err := schedule.Resolve(raw)
		if err != nil {
			log.Printf("resolve settings for alert: %v", err)
			return
		}
		if settings.ContactEmail == "" {
			log.Printf("no contact email configured, dropping %s alert", event.Type)
			return
		}
		body := alertBody(event)
		if err := sender.Send(ctx, email.Message{
			To:      settings.ContactEmail,
			Cc:      settings.NotificationRecipients,
			Subject: "tablebook: Warning",
			Body:    body,
		}); err != nil {
			log.Printf("send %s alert: %v", event.Type, err)
		}
	case kafka.EventReservationAccepted:
		log.Printf("reservation accepted: %s %s for %d (%s)", event.Date, event.StartTime, event.PartySize, event.Email)
	default:
		log.Printf("unknown event type %q", event.Type)
	}
}

func alertBody(event kafka.ReservationEvent) string {
	if event.Type == kafka.EventAnomalyDetected {
		return fmt.Sprintf("Warning: holiday or operator-block entries overlap customer reservations. Please confirm the active store.\n\n%s", event.Detail)
	}
	return fmt.Sprintf("An error occurred delivering the confirmation email to %q for %s %s-%s.\n\n%s",
		event.Email, event.Date, event.StartTime, event.EndTime, event.Detail)
}

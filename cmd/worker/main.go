package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/medlaw-booking/config"
	"github.com/Domenick1991/medlaw-booking/internal/calendar"
	"github.com/Domenick1991/medlaw-booking/internal/email"
	"github.com/Domenick1991/medlaw-booking/internal/kafka"
	"github.com/Domenick1991/medlaw-booking/internal/logger"
	"github.com/Domenick1991/medlaw-booking/internal/repository"
	"github.com/Domenick1991/medlaw-booking/internal/service/booking"
	"github.com/jackc/pgx/v5/pgxpool"
	kafkaGo "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"google.golang.org/api/option"
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

	lg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer lg.Sync() //nolint:errcheck
	lg = lg.With(zap.String("component", "worker"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		lg.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers, lg)
	defer producer.Close()

	var creator calendar.Creator = calendar.Disabled{}
	if cfg.Calendar.Enabled {
		gc, err := calendar.NewGoogleCalendar(ctx, cfg.Calendar.CalendarID, cfg.Calendar.CreateMeet,
			option.WithCredentialsFile(cfg.Calendar.CredentialsFile))
		if err != nil {
			lg.Fatal("google calendar", zap.Error(err))
		}
		creator = gc
	}

	var sender email.Sender = email.NewLogSender(lg)
	if cfg.Email.Enabled {
		sender = email.NewSMTPSender(cfg.Email)
	}
	composer := email.NewComposer(cfg.Email.From, cfg.Email.StaffEmail, cfg.Email.FirmName)

	// The worker never creates bookings, so it needs no event type resolver.
	bookingService, err := booking.NewBookingService(
		repository.NewBookingRepository(pool),
		repository.NewSlotRepository(pool),
		nil,
		cfg.Booking,
		lg,
		booking.WithCalendar(creator),
		booking.WithMailer(sender, composer),
		booking.WithProducer(producer, cfg.Kafka.BookingTopic, cfg.Kafka.SideEffectsTopic),
	)
	if err != nil {
		lg.Fatal("booking service", zap.Error(err))
	}

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.SideEffectsTopic, lg)
	defer consumer.Close()

	go func() {
		err := consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
			failure, err := kafka.DecodeSideEffectFailure(msg.Value)
			if err != nil {
				lg.Warn("skipping malformed side effect", zap.ByteString("key", msg.Key), zap.Error(err))
				return nil
			}
			if err := bookingService.HandleSideEffectFailure(ctx, failure, cfg.Worker.MaxSideEffectAttempts); err != nil {
				lg.Error("requeue side effect", zap.String("key", failure.Key()), zap.Error(err))
			}
			return nil
		})
		if err != nil {
			lg.Error("consumer stopped", zap.Error(err))
		}
	}()

	sweepTicker := time.NewTicker(time.Duration(cfg.Worker.LeaseSweepMinutes) * time.Minute)
	defer sweepTicker.Stop()

	lg.Info("worker started",
		zap.String("topic", cfg.Kafka.SideEffectsTopic),
		zap.Int("lease_sweep_minutes", cfg.Worker.LeaseSweepMinutes),
	)

	for {
		select {
		case <-sweepTicker.C:
			released, err := bookingService.ReleaseStaleClaims(ctx)
			if err != nil {
				lg.Error("release stale claims", zap.Error(err))
				continue
			}
			if len(released) > 0 {
				lg.Info("released stale claims", zap.Int("count", len(released)))
			}
		case <-ctx.Done():
			lg.Info("shutting down")
			return
		}
	}
}

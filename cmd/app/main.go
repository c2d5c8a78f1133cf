package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/medlaw-booking/api"
	"github.com/Domenick1991/medlaw-booking/config"
	"github.com/Domenick1991/medlaw-booking/internal/bootstrap"
	"github.com/Domenick1991/medlaw-booking/internal/cache"
	"github.com/Domenick1991/medlaw-booking/internal/calendar"
	"github.com/Domenick1991/medlaw-booking/internal/email"
	"github.com/Domenick1991/medlaw-booking/internal/kafka"
	"github.com/Domenick1991/medlaw-booking/internal/logger"
	"github.com/Domenick1991/medlaw-booking/internal/ratelimit"
	"github.com/Domenick1991/medlaw-booking/internal/repository"
	"github.com/Domenick1991/medlaw-booking/internal/service/booking"
	"github.com/Domenick1991/medlaw-booking/internal/service/eventtypes"
	"github.com/Domenick1991/medlaw-booking/internal/service/slots"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
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

	if cfg.Log.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		lg.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	if cfg.Database.Migrate {
		if err := repository.Migrate(ctx, pool); err != nil {
			lg.Fatal("migrate", zap.Error(err))
		}
	}

	redisClient := cache.NewRedisClient(cfg.Redis)
	defer redisClient.Close()
	redisCache := cache.NewRedisCache(redisClient, time.Duration(cfg.Booking.EventTypesCacheSeconds)*time.Second)

	producer := kafka.NewProducer(cfg.Kafka.Brokers, lg)
	defer producer.Close()
	if err := producer.CheckConnection(ctx); err != nil {
		lg.Warn("kafka unreachable, events will be dropped", zap.Error(err))
	}

	registry, err := ratelimit.NewRegistry(cfg.RateLimit)
	if err != nil {
		lg.Fatal("rate limit policies", zap.Error(err))
	}
	policy, _ := registry.Get(ratelimit.BookingPolicy)

	var limiter ratelimit.Limiter = ratelimit.NewMemoryLimiter()
	if cfg.RateLimit.Backend == "redis" {
		limiter = ratelimit.NewRedisLimiter(redisClient, cfg.RateLimit.Prefix)
	}

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

	slotRepo := repository.NewSlotRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	eventTypeRepo := repository.NewEventTypeRepository(pool)

	eventTypeService := eventtypes.NewEventTypeService(eventTypeRepo, redisCache, lg)
	slotService := slots.NewSlotService(slotRepo, cfg.Booking.SlotSearchMaxDays)
	bookingService, err := booking.NewBookingService(
		bookingRepo,
		slotRepo,
		eventTypeService,
		cfg.Booking,
		lg,
		booking.WithRateLimit(limiter, policy),
		booking.WithCalendar(creator),
		booking.WithMailer(sender, composer),
		booking.WithProducer(producer, cfg.Kafka.BookingTopic, cfg.Kafka.SideEffectsTopic),
	)
	if err != nil {
		lg.Fatal("booking service", zap.Error(err))
	}

	loc, err := time.LoadLocation(cfg.Booking.Timezone)
	if err != nil {
		lg.Fatal("load timezone", zap.Error(err))
	}

	routes := bootstrap.Routes{
		Health: api.NewHealthHandler(map[string]api.Checker{
			"postgres": pool.Ping,
			"redis":    redisCache.Ping,
		}),
		Booking: []bootstrap.Registrar{
			api.NewBookingHandler(bookingService, lg),
			api.NewSlotHandler(slotService, loc, lg),
		},
		EventTypes: api.NewEventTypeHandler(eventTypeService, lg),
	}

	if err := bootstrap.Run(ctx, cfg, lg, routes); err != nil {
		lg.Fatal("server error", zap.Error(err))
	}
}

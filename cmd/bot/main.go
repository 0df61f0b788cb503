package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"barberbot/internal/api"
	"barberbot/internal/booking"
	"barberbot/internal/bot"
	"barberbot/internal/config"
	"barberbot/internal/database"
	"barberbot/internal/events"
	"barberbot/internal/logging"
	"barberbot/internal/metrics"
	"barberbot/internal/repository"
	"barberbot/internal/service"
	"barberbot/internal/worker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := prepareDirectories(cfg, logger); err != nil {
		return err
	}

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize database")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, stateService := initStateService(ctx, cfg, logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}

	universe, err := booking.NewUniverse(cfg.Slots.Start, cfg.Slots.End, cfg.Slots.Step)
	if err != nil {
		return err
	}

	eventBus := events.NewEventBus()
	m := metrics.New(prometheus.DefaultRegisterer)
	m.Subscribe(eventBus)

	bookingService := service.NewBookingService(db, eventBus, universe, cfg.Bot.BookingDays, cfg.Bot.Location(), logger)
	catalogService := service.NewCatalogService(db, bookingService.Today, logger)
	userService := service.NewUserService(db, cfg, logger)
	notificationService := service.NewNotificationService(db, cfg.Admins, logger)
	notificationService.Subscribe(eventBus)

	if cfg.Monitoring.PrometheusEnabled {
		srv := metrics.NewServer(cfg.Monitoring.PrometheusPort, prometheus.DefaultGatherer, db.PingContext, logger)
		go srv.Start(ctx)
	}

	if cfg.API.Enabled {
		apiServer := api.NewServer(cfg.API, bookingService, catalogService, logger)
		go apiServer.Start(ctx)
	}

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(db, cfg.Backup, logger)
		go backupService.Start(ctx)
	}

	tgAPI, err := bot.NewAPI(cfg.Telegram.BotToken, cfg.Telegram.Debug)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create Telegram client")
		return err
	}
	tgService := service.NewTelegramService(tgAPI)

	inbox := worker.NewInboxWorker(db, tgService, stateService, worker.Options{
		PollInterval: cfg.Notifications.PollInterval,
		BatchSize:    cfg.Notifications.BatchSize,
		Retry: worker.RetryPolicy{
			MaxRetries:    cfg.Notifications.MaxAttempts,
			InitialDelay:  cfg.Notifications.InitialDelay,
			MaxDelay:      cfg.Notifications.MaxDelay,
			BackoffFactor: cfg.Notifications.BackoffFactor,
		},
		Redis:    redisClient,
		Observer: m,
	}, logger)
	notificationService.SetWaker(inbox)
	go inbox.Start(ctx)

	telegramBot := bot.NewBot(tgService, cfg, bot.Services{
		Booking:      bookingService,
		Catalog:      catalogService,
		Users:        userService,
		State:        stateService,
		Notification: notificationService,
		Broadcast:    service.NewBroadcastService(db, tgService, cfg.Bot.BroadcastRPS, logger),
		Inbox:        inbox,
	}, m, logger)

	go func() {
		<-ctx.Done()
		telegramBot.Stop()
	}()

	logger.Info().Str("timezone", bookingService.Location().String()).Int("slots", len(universe)).Msg("Bot started")
	telegramBot.StartReminders(ctx)
	telegramBot.Start(ctx)

	logger.Info().Msg("Shutdown complete.")
	return nil
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := baseLogger.With().Str("component", "bot-main").Logger()
	return cfg, &logger, closer, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("Failed to create database directory")
		return err
	}
	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("Failed to create export directory")
		return err
	}
	return nil
}

// initStateService keeps sessions in Redis when it is configured, with an
// in-memory store taking over while Redis is down.
func initStateService(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, *service.StateService) {
	sessionTTL := time.Duration(cfg.Bot.SessionTTL) * time.Second
	presenceTTL := time.Duration(cfg.Bot.PresenceTTL) * time.Second
	fallback := repository.NewMemoryStateRepository(sessionTTL)

	if cfg.Redis.Address == "" {
		logger.Info().Msg("Redis not configured, using in-memory state")
		return nil, service.NewStateService(fallback, presenceTTL, logger)
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable, falling back to memory until it recovers")
	}

	primary := repository.NewRedisStateRepository(redisClient, sessionTTL)
	stateRepo := repository.NewFailoverStateRepository(primary, fallback, logger)
	return redisClient, service.NewStateService(stateRepo, presenceTTL, logger)
}

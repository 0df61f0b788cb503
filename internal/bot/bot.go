package bot

import (
	"context"
	"os"
	"sync"
	"time"

	"barberbot/internal/config"
	"barberbot/internal/domain"
	"barberbot/internal/metrics"
	"barberbot/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Inbox delivers a barber's queued notifications on demand.
type Inbox interface {
	FlushBarber(ctx context.Context, barberID int64) (int, error)
}

// Services groups what the handlers call into.
type Services struct {
	Booking      *service.BookingService
	Catalog      *service.CatalogService
	Users        *service.UserService
	State        *service.StateService
	Notification *service.NotificationService
	Broadcast    *service.BroadcastService
	Inbox        Inbox
}

type Bot struct {
	tgService domain.TelegramService
	config    *config.Config
	booking   *service.BookingService
	catalog   *service.CatalogService
	users     *service.UserService
	state     *service.StateService
	notify    *service.NotificationService
	broadcast *service.BroadcastService
	inbox     Inbox
	metrics   *metrics.Metrics
	workers   int
	wg        sync.WaitGroup
	logger    *zerolog.Logger
}

func NewBot(
	tgService domain.TelegramService,
	config *config.Config,
	services Services,
	metrics *metrics.Metrics,
	logger *zerolog.Logger,
) *Bot {
	if logger == nil {
		l := zerolog.New(os.Stdout).With().Timestamp().Logger()
		logger = &l
	}

	workers := config.Bot.Workers
	if workers <= 0 {
		workers = 16
	}

	return &Bot{
		tgService: tgService,
		config:    config,
		booking:   services.Booking,
		catalog:   services.Catalog,
		users:     services.Users,
		state:     services.State,
		notify:    services.Notification,
		broadcast: services.Broadcast,
		inbox:     services.Inbox,
		metrics:   metrics,
		workers:   workers,
		logger:    logger,
	}
}

// shardBuffer is how many updates may wait for one worker before the
// receive loop blocks.
const shardBuffer = 32

// Start consumes updates until ctx is done. Updates are spread over workers
// goroutines by user, so one user's updates run one at a time and in the
// order Telegram sent them while different users proceed in parallel.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.tgService.GetUpdatesChan(u)

	b.logger.Info().Str("username", b.tgService.GetSelf().UserName).Int("workers", b.workers).Msg("Authorized on account")

	shards := make([]chan tgbotapi.Update, b.workers)
	for i := range shards {
		shards[i] = make(chan tgbotapi.Update, shardBuffer)
		b.wg.Add(1)
		go func(in <-chan tgbotapi.Update) {
			defer b.wg.Done()
			for update := range in {
				if ctx.Err() != nil {
					continue
				}
				b.processUpdate(ctx, update)
			}
		}(shards[i])
	}
	defer func() {
		for _, shard := range shards {
			close(shard)
		}
		b.wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Bot stopping...")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			select {
			case shards[shardFor(update, len(shards))] <- update:
			case <-ctx.Done():
				return
			}
		}
	}
}

// updateUserID returns the Telegram user behind an update, 0 when there is
// none.
func updateUserID(update tgbotapi.Update) int64 {
	switch {
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		return update.CallbackQuery.From.ID
	}
	return 0
}

func shardFor(update tgbotapi.Update, shards int) int {
	id := updateUserID(update)
	if id < 0 {
		id = -id
	}
	return int(id % int64(shards))
}

// Stop stops receiving Telegram updates.
func (b *Bot) Stop() {
	if b == nil || b.tgService == nil {
		return
	}
	b.tgService.StopReceivingUpdates()
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	start := time.Now()
	defer func() {
		if b.metrics != nil {
			b.metrics.UpdateProcessingTime.Observe(time.Since(start).Seconds())
		}
	}()

	updateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	requestID := uuid.New().String()
	l := b.logger.With().Str("request_id", requestID).Logger()
	updateCtx = l.WithContext(updateCtx)

	b.withRecovery(func() {
		userID := updateUserID(update)
		if userID == 0 {
			return
		}
		kind := "message"
		if update.CallbackQuery != nil {
			kind = "callback"
		}
		if b.metrics != nil {
			b.metrics.UpdatesProcessed.WithLabelValues(kind).Inc()
		}

		if b.users.IsBlacklisted(userID) {
			return
		}

		b.trackActivity(userID)

		if !b.users.IsAdmin(userID) && !b.allow(updateCtx, update, userID) {
			return
		}

		if update.CallbackQuery != nil {
			b.handleCallbackQuery(updateCtx, update.CallbackQuery)
			return
		}
		b.handleMessage(updateCtx, update.Message)
	})
}

func (b *Bot) allow(ctx context.Context, update tgbotapi.Update, userID int64) bool {
	limit := b.config.Bot.RateLimitMessages
	window := time.Duration(b.config.Bot.RateLimitWindow) * time.Second
	if limit <= 0 || window <= 0 {
		return true
	}

	allowed, err := b.state.CheckRateLimit(ctx, userID, limit, window)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("Rate limit check failed")
		return true
	}
	if allowed {
		return true
	}

	zerolog.Ctx(ctx).Warn().Int64("user_id", userID).Msg("Rate limit exceeded")
	if b.metrics != nil {
		b.metrics.RateLimited.Inc()
	}
	switch {
	case update.Message != nil:
		b.send(update.Message.Chat.ID, textRateLimited)
	case update.CallbackQuery != nil:
		_ = b.tgService.AnswerCallback(update.CallbackQuery.ID, textRateLimited)
	}
	return false
}

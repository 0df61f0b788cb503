package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"barberbot/internal/domain"
	"barberbot/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Store is the outbox the worker drains.
type Store interface {
	DueClientNotifications(ctx context.Context, now time.Time, limit int) ([]models.Notification, error)
	BarbersWithDueNotifications(ctx context.Context, now time.Time) ([]int64, error)
	DueBarberNotifications(ctx context.Context, barberID int64, now time.Time, limit int) ([]models.Notification, error)
	PendingForBarber(ctx context.Context, barberID int64) ([]models.Notification, error)
	MarkNotificationSent(ctx context.Context, id int64) error
	MarkNotificationRetry(ctx context.Context, id int64, attempts int, next time.Time, lastErr string) error
	MarkNotificationFailed(ctx context.Context, id int64, attempts int, lastErr string) error
}

// Presence tells whether a barber currently has the panel open.
type Presence interface {
	IsPresent(ctx context.Context, barberID int64) (bool, error)
}

// Observer receives delivery outcomes, normally the bot metrics.
type Observer interface {
	NotificationDelivered(kind string)
	NotificationFailed(kind string)
}

// InboxWorker delivers queued notifications. Customer and admin rows go out
// as soon as they are due; barber rows wait until the barber is present.
type InboxWorker struct {
	store         Store
	sender        domain.MessageSender
	presence      Presence
	observer      Observer
	redis         *redis.Client
	retryPolicy   RetryPolicy
	deadLetterKey string
	pollInterval  time.Duration
	batchSize     int
	wake          chan struct{}
	now           func() time.Time
	mu            sync.Mutex
	logger        *zerolog.Logger
}

type Options struct {
	PollInterval time.Duration
	BatchSize    int
	Retry        RetryPolicy
	Redis        *redis.Client
	Observer     Observer
}

func NewInboxWorker(store Store, sender domain.MessageSender, presence Presence, opts Options, logger *zerolog.Logger) *InboxWorker {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}

	return &InboxWorker{
		store:         store,
		sender:        sender,
		presence:      presence,
		observer:      opts.Observer,
		redis:         opts.Redis,
		retryPolicy:   opts.Retry.withDefaults(),
		deadLetterKey: "notifications:deadletter",
		pollInterval:  opts.PollInterval,
		batchSize:     opts.BatchSize,
		wake:          make(chan struct{}, 1),
		now:           time.Now,
		logger:        logger,
	}
}

// Wake asks the loop to run a pass now. It never blocks.
func (w *InboxWorker) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Start runs delivery passes until ctx is done.
func (w *InboxWorker) Start(ctx context.Context) {
	w.logger.Info().Dur("poll_interval", w.pollInterval).Msg("Inbox worker started")
	defer w.logger.Info().Msg("Inbox worker stopped")

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		if _, err := w.ProcessDue(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error().Err(err).Msg("Inbox pass failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-w.wake:
		}
	}
}

// ProcessDue delivers due rows and returns how many were sent. Customer and
// admin rows are taken first, up to the batch size. Each present barber then
// gets up to a batch of their own; rows of absent barbers stay pending and
// are not fetched.
func (w *InboxWorker) ProcessDue(ctx context.Context) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	due, err := w.store.DueClientNotifications(ctx, now, w.batchSize)
	if err != nil {
		return 0, err
	}
	sent := w.deliverAll(ctx, due)

	barbers, err := w.store.BarbersWithDueNotifications(ctx, now)
	if err != nil {
		return sent, err
	}
	for _, barberID := range barbers {
		here, err := w.presence.IsPresent(ctx, barberID)
		if err != nil {
			w.logger.Warn().Err(err).Int64("barber_id", barberID).Msg("Presence check failed")
			continue
		}
		if !here {
			continue
		}
		inbox, err := w.store.DueBarberNotifications(ctx, barberID, now, w.batchSize)
		if err != nil {
			return sent, err
		}
		sent += w.deliverAll(ctx, inbox)
	}
	return sent, nil
}

func (w *InboxWorker) deliverAll(ctx context.Context, rows []models.Notification) int {
	sent := 0
	for i := range rows {
		if w.deliver(ctx, &rows[i]) {
			sent++
		}
	}
	return sent
}

// FlushBarber delivers the barber's whole inbox regardless of the retry
// schedule. Called when the barber opens the panel.
func (w *InboxWorker) FlushBarber(ctx context.Context, barberID int64) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	pending, err := w.store.PendingForBarber(ctx, barberID)
	if err != nil {
		return 0, err
	}
	return w.deliverAll(ctx, pending), nil
}

func (w *InboxWorker) deliver(ctx context.Context, n *models.Notification) bool {
	if _, err := w.sender.SendHTML(n.ChatID, n.Text); err != nil {
		w.retryOrFail(ctx, n, err)
		return false
	}
	if err := w.store.MarkNotificationSent(ctx, n.ID); err != nil {
		w.logger.Error().Err(err).Int64("notification_id", n.ID).Msg("Failed to mark notification sent")
	}
	if w.observer != nil {
		w.observer.NotificationDelivered(n.Kind)
	}
	return true
}

func (w *InboxWorker) retryOrFail(ctx context.Context, n *models.Notification, cause error) {
	exhausted := w.retryPolicy.RecordFailure(n, w.now(), cause)
	log := w.logger.Warn().Err(cause).Int64("notification_id", n.ID).Int64("chat_id", n.ChatID).Int("attempt", n.Attempts)

	if exhausted {
		log.Msg("Notification delivery failed permanently")
		if err := w.store.MarkNotificationFailed(ctx, n.ID, n.Attempts, cause.Error()); err != nil {
			w.logger.Error().Err(err).Int64("notification_id", n.ID).Msg("Failed to mark notification failed")
		}
		if w.observer != nil {
			w.observer.NotificationFailed(n.Kind)
		}
		w.pushDeadLetter(ctx, n)
		return
	}

	log.Time("next_attempt_at", n.NextAttemptAt).Msg("Notification delivery failed, will retry")
	if err := w.store.MarkNotificationRetry(ctx, n.ID, n.Attempts, n.NextAttemptAt, cause.Error()); err != nil {
		w.logger.Error().Err(err).Int64("notification_id", n.ID).Msg("Failed to reschedule notification")
	}
}

func (w *InboxWorker) pushDeadLetter(ctx context.Context, n *models.Notification) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(n)
	if err != nil {
		w.logger.Error().Err(err).Int64("notification_id", n.ID).Msg("Failed to encode dead letter")
		return
	}
	if err := w.redis.LPush(ctx, w.deadLetterKey, data).Err(); err != nil && !errors.Is(err, context.Canceled) {
		w.logger.Warn().Err(err).Int64("notification_id", n.ID).Msg("Dead letter push failed")
	}
}

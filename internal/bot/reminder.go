package bot

import (
	"context"
	"fmt"
	"time"

	"barberbot/internal/models"
)

// StartReminders queues reminders for the next day's orders once a day at
// bot.reminder_time in the shop's timezone.
func (b *Bot) StartReminders(ctx context.Context) {
	if b == nil || b.notify == nil {
		return
	}

	hour, minute, err := parseClock(b.config.Bot.ReminderTime)
	if err != nil {
		b.logger.Error().Err(err).Str("reminder_time", b.config.Bot.ReminderTime).Msg("Invalid reminder time format")
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		timer := time.NewTimer(untilNext(b.booking.Now(), hour, minute))
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				b.enqueueTomorrowReminders(ctx)
				timer.Reset(untilNext(b.booking.Now(), hour, minute))
			}
		}
	}()
}

func (b *Bot) enqueueTomorrowReminders(ctx context.Context) {
	tomorrow := b.booking.Now().AddDate(0, 0, 1).Format(models.DateLayout)
	n, err := b.notify.EnqueueReminders(ctx, tomorrow)
	if err != nil {
		b.logger.Error().Err(err).Str("date", tomorrow).Msg("reminder: enqueue failed")
		return
	}
	b.logger.Info().Str("date", tomorrow).Int("reminders", n).Msg("Reminders queued")
}

func parseClock(raw string) (int, int, error) {
	if raw == "" {
		return 9, 0, nil
	}
	t, err := time.Parse(models.TimeLayout, raw)
	if err != nil {
		return 0, 0, fmt.Errorf("reminder time %q: %w", raw, err)
	}
	return t.Hour(), t.Minute(), nil
}

// untilNext returns the wait from now to the next hour:minute in now's
// location.
func untilNext(now time.Time, hour, minute int) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

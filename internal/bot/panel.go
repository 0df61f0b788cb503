package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"barberbot/internal/database"
	"barberbot/internal/models"
	"barberbot/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// barberFor resolves the barber behind a Telegram account. A nil barber with
// a nil error means the account is not a barber.
func (b *Bot) barberFor(ctx context.Context, userID int64) (*models.Barber, error) {
	barber, err := b.catalog.BarberByTelegramID(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	return barber, err
}

// showPanel renders today's schedule for the barber and hands over any
// notifications that were waiting for them.
func (b *Bot) showPanel(ctx context.Context, chatID int64, messageID int, userID int64) {
	b.renderPanel(ctx, chatID, messageID, userID, "")
}

func (b *Bot) renderPanel(ctx context.Context, chatID int64, messageID int, userID int64, notice string) {
	barber, err := b.barberFor(ctx, userID)
	if err != nil {
		b.show(chatID, messageID, b.userMessage(err), nil)
		return
	}
	if barber == nil {
		b.show(chatID, messageID, textNotBarber, nil)
		return
	}

	if err := b.state.MarkPresent(ctx, barber.ID); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("barber_id", barber.ID).Msg("Failed to mark barber present")
	}
	if b.inbox != nil {
		if n, err := b.inbox.FlushBarber(ctx, barber.ID); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Int64("barber_id", barber.ID).Msg("Failed to flush barber inbox")
		} else if n > 0 {
			zerolog.Ctx(ctx).Info().Int64("barber_id", barber.ID).Int("delivered", n).Msg("Barber inbox flushed")
		}
	}

	today := b.booking.Today()
	orders, err := b.booking.BarberSchedule(ctx, barber.ID, today)
	if err != nil {
		b.show(chatID, messageID, b.userMessage(err), nil)
		return
	}

	kb := panelKeyboard(barber.PausedOn(today))
	b.show(chatID, messageID, panelText(barber, today, orders, notice), &kb)
}

func panelText(barber *models.Barber, today string, orders []models.Order, notice string) string {
	var sb strings.Builder
	if notice != "" {
		sb.WriteString(notice + "\n\n")
	}
	fmt.Fprintf(&sb, "✂️ <b>%s</b> · 📅 %s\n", html.EscapeString(barber.Name), service.DisplayDate(today))
	if barber.PausedOn(today) {
		sb.WriteString("⏸ Bugun yozilish yopiq.\n")
	}

	if len(orders) == 0 {
		sb.WriteString("\nBugun buyurtmalar yo'q.")
		return sb.String()
	}
	for _, o := range orders {
		fmt.Fprintf(&sb, "\n⏰ <b>%s</b> · %s\n👤 %s 📞 %s\n",
			o.Time, html.EscapeString(o.ServiceName),
			html.EscapeString(o.FullName), html.EscapeString(o.Phone))
	}
	return sb.String()
}

func (b *Bot) handlePanelCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) string {
	chatID, messageID := cq.Message.Chat.ID, cq.Message.MessageID

	barber, err := b.barberFor(ctx, cq.From.ID)
	if err != nil {
		return b.userMessage(err)
	}
	if barber == nil {
		return textNotBarber
	}

	switch cq.Data {
	case callbackPanelPause:
		removed, err := b.booking.PauseToday(ctx, barber.ID)
		if err != nil {
			return b.userMessage(err)
		}
		notice := fmt.Sprintf("⏸ Bugun yozilish yopildi. Bekor qilingan buyurtmalar: %d", len(removed))
		b.renderPanel(ctx, chatID, messageID, cq.From.ID, notice)
		return "⏸"

	case callbackPanelResume:
		if err := b.booking.Resume(ctx, barber.ID); err != nil {
			return b.userMessage(err)
		}
		b.renderPanel(ctx, chatID, messageID, cq.From.ID, "▶️ Yozilish yana ochiq.")
		return "▶️"
	}

	b.renderPanel(ctx, chatID, messageID, cq.From.ID, "")
	return ""
}

// handleBarberNotify sends a barber's message to every client booked with
// them today.
func (b *Bot) handleBarberNotify(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	barber, err := b.barberFor(ctx, msg.From.ID)
	if err != nil {
		b.send(chatID, b.userMessage(err))
		return
	}
	if barber == nil {
		b.send(chatID, textNotBarber)
		return
	}

	text := strings.TrimSpace(msg.CommandArguments())
	if text == "" {
		b.send(chatID, b.userMessage(service.ErrTextTooShort))
		return
	}

	n, err := b.notify.NotifyClients(ctx, barber, b.booking.Today(), text)
	if err != nil {
		b.send(chatID, b.userMessage(err))
		return
	}
	b.send(chatID, fmt.Sprintf("📨 Xabar %d ta mijozga yuboriladi.", n))
}

package bot

import (
	"context"
	"fmt"
	"html"
	"strings"

	"barberbot/internal/booking"
	"barberbot/internal/models"
	"barberbot/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

func (b *Bot) handleCallbackQuery(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	var answer string
	defer func() {
		if err := b.tgService.AnswerCallback(cq.ID, answer); err != nil {
			zerolog.Ctx(ctx).Debug().Err(err).Msg("Failed to answer callback")
		}
	}()

	if cq.Message == nil {
		return
	}
	data := cq.Data
	chatID, messageID := cq.Message.Chat.ID, cq.Message.MessageID

	zerolog.Ctx(ctx).Debug().Int64("user_id", cq.From.ID).Str("data", data).Msg("Handling callback")

	switch {
	case strings.HasPrefix(data, booking.PrefixConfirm):
		answer = b.handleConfirm(ctx, cq)

	case data == booking.CallbackBack:
		answer = b.handleBack(ctx, cq)

	case data == booking.CallbackCancel:
		b.cancelBooking(ctx, chatID, messageID, cq.From.ID)

	case strings.HasPrefix(data, prefixBookService):
		id, err := service.ParseID(strings.TrimPrefix(data, prefixBookService))
		if err != nil {
			answer = textStaleButton
			return
		}
		b.startBooking(ctx, chatID, cq.From.ID, messageID, id)

	case strings.HasPrefix(data, booking.PrefixService),
		strings.HasPrefix(data, booking.PrefixBarber),
		strings.HasPrefix(data, booking.PrefixDate),
		strings.HasPrefix(data, booking.PrefixTime):
		answer = b.handleStep(ctx, cq)

	case strings.HasPrefix(data, prefixOrderCancel):
		answer = b.handleOrderCancel(ctx, cq)

	case strings.HasPrefix(data, prefixOrders):
		scope := strings.TrimPrefix(data, prefixOrders)
		if !models.ValidScope(scope) {
			answer = textStaleButton
			return
		}
		b.showOrders(ctx, chatID, messageID, cq.From.ID, scope, "")

	case data == callbackPanelPause, data == callbackPanelResume, data == callbackPanelRefresh:
		answer = b.handlePanelCallback(ctx, cq)

	default:
		answer = textStaleButton
	}
}

func (b *Bot) showOrders(ctx context.Context, chatID int64, messageID int, userID int64, scope, notice string) {
	orders, err := b.booking.UserOrders(ctx, userID, scope)
	if err != nil {
		b.show(chatID, messageID, b.userMessage(err), nil)
		return
	}

	var sb strings.Builder
	if notice != "" {
		sb.WriteString(notice + "\n\n")
	}
	if len(orders) == 0 {
		sb.WriteString(textNoOrders)
		kb := scopeKeyboard()
		b.show(chatID, messageID, sb.String(), &kb)
		return
	}

	sb.WriteString("📋 <b>Buyurtmalaringiz</b>\n")
	for _, o := range orders {
		fmt.Fprintf(&sb, "\n#%d · 📅 %s ⏰ %s\n💈 %s · ✂️ %s\n",
			o.ID, service.DisplayDate(o.Date), o.Time,
			html.EscapeString(o.ServiceName), html.EscapeString(o.BarberName))
	}
	sb.WriteString("\nBekor qilish uchun buyurtmani bosing.")
	kb := ordersKeyboard(orders, scope)
	b.show(chatID, messageID, sb.String(), &kb)
}

func (b *Bot) handleOrderCancel(ctx context.Context, cq *tgbotapi.CallbackQuery) string {
	scope, orderID, err := parseOrderCancel(cq.Data)
	if err != nil {
		return textStaleButton
	}

	if _, err := b.booking.Cancel(ctx, cq.From.ID, orderID, scope); err != nil {
		zerolog.Ctx(ctx).Info().Err(err).Int64("order_id", orderID).Msg("Cancel rejected")
		b.showOrders(ctx, cq.Message.Chat.ID, cq.Message.MessageID, cq.From.ID, scope, b.userMessage(err))
		return ""
	}

	b.showOrders(ctx, cq.Message.Chat.ID, cq.Message.MessageID, cq.From.ID, scope, textOrderCancelled)
	return textOrderCancelled
}

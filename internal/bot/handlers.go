package bot

import (
	"context"
	"fmt"
	"html"
	"strings"

	"barberbot/internal/booking"
	"barberbot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg == nil {
		return
	}
	userID := msg.From.ID
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	zerolog.Ctx(ctx).Debug().
		Int64("user_id", userID).
		Str("username", msg.From.UserName).
		Str("text", text).
		Msg("Handling message")

	if msg.Contact != nil {
		b.handleContact(ctx, msg)
		return
	}

	if msg.IsCommand() {
		if b.handleAdminCommand(ctx, msg) {
			return
		}
		switch msg.Command() {
		case "start":
			b.handleStart(ctx, msg)
		case "book":
			b.startBooking(ctx, chatID, userID, 0, 0)
		case "cancel":
			b.cancelBooking(ctx, chatID, 0, userID)
		case "orders":
			b.sendInline(chatID, textChooseScope, scopeKeyboard())
		case "panel":
			b.showPanel(ctx, chatID, 0, userID)
		case "notify":
			b.handleBarberNotify(ctx, msg)
		default:
			b.send(chatID, textUnknown)
		}
		return
	}

	switch text {
	case btnBook:
		b.startBooking(ctx, chatID, userID, 0, 0)
		return
	case btnServices:
		b.showServices(ctx, chatID)
		return
	case btnBarbers:
		b.showBarbers(ctx, chatID)
		return
	case btnOrders:
		b.sendInline(chatID, textChooseScope, scopeKeyboard())
		return
	case btnContact:
		b.showContact(chatID)
		return
	case btnCancel:
		b.cancelBooking(ctx, chatID, 0, userID)
		return
	}

	session, err := b.state.Session(ctx, userID)
	if err != nil {
		b.send(chatID, b.userMessage(err))
		return
	}
	if session != nil && session.State == booking.StateCollectingIdentity {
		b.handleIdentityText(ctx, msg, session)
		return
	}

	b.sendWithMenu(chatID, textUnknown)
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	if err := b.state.ClearSession(ctx, userID); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("user_id", userID).Msg("Failed to clear session")
	}

	user := &models.User{
		TelegramID:   userID,
		Username:     msg.From.UserName,
		LanguageCode: msg.From.LanguageCode,
	}
	if err := b.users.SaveUser(ctx, user); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("Failed to save user")
	}

	b.sendWithMenu(msg.Chat.ID, fmt.Sprintf(textWelcome, html.EscapeString(b.shopName())))
}

func (b *Bot) showServices(ctx context.Context, chatID int64) {
	services, err := b.catalog.Services(ctx)
	if err != nil {
		b.send(chatID, b.userMessage(err))
		return
	}
	if len(services) == 0 {
		b.send(chatID, textNoServices)
		return
	}

	var sb strings.Builder
	sb.WriteString("💈 <b>Xizmatlar</b>\n\n")
	for _, s := range services {
		fmt.Fprintf(&sb, "• <b>%s</b> · %s · %s\n", html.EscapeString(s.Name), formatPrice(s.Price), html.EscapeString(s.Duration))
	}
	sb.WriteString("\nYozilish uchun xizmatni tanlang:")
	b.sendInline(chatID, sb.String(), servicesKeyboard(services, bookServiceData))
}

func (b *Bot) showBarbers(ctx context.Context, chatID int64) {
	barbers, err := b.catalog.Barbers(ctx)
	if err != nil {
		b.send(chatID, b.userMessage(err))
		return
	}
	if len(barbers) == 0 {
		b.send(chatID, "Hozircha sartaroshlar yo'q.")
		return
	}

	today := b.booking.Today()
	var sb strings.Builder
	sb.WriteString("👨‍🦱 <b>Sartaroshlar</b>\n")
	for _, br := range barbers {
		fmt.Fprintf(&sb, "\n<b>%s</b>", html.EscapeString(br.Name))
		if br.PausedOn(today) {
			sb.WriteString(" ⏸")
		}
		fmt.Fprintf(&sb, "\n🎓 Tajriba: %s\n📅 %s ⏰ %s\n📞 %s\n",
			html.EscapeString(br.Experience), html.EscapeString(br.WorkDays),
			html.EscapeString(br.WorkTime), html.EscapeString(br.Phone))
	}
	b.send(chatID, sb.String())
}

func (b *Bot) showContact(chatID int64) {
	shop := b.config.Shop
	text := fmt.Sprintf("📍 <b>%s</b>\n\n🏠 %s\n📞 %s",
		html.EscapeString(b.shopName()), html.EscapeString(shop.Address), html.EscapeString(shop.Phone))
	b.send(chatID, text)

	if shop.Latitude != 0 || shop.Longitude != 0 {
		if _, err := b.tgService.SendLocation(chatID, shop.Latitude, shop.Longitude); err != nil {
			b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send location")
		}
	}
}

func (b *Bot) shopName() string {
	if b.config.Shop.Name != "" {
		return b.config.Shop.Name
	}
	return b.config.App.Name
}

func (b *Bot) send(chatID int64, text string) {
	if _, err := b.tgService.SendHTML(chatID, text); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}

func (b *Bot) sendWithKeyboard(chatID int64, text string, keyboard interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = models.ParseModeHTML
	msg.ReplyMarkup = keyboard
	if _, err := b.tgService.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}

func (b *Bot) sendWithMenu(chatID int64, text string) {
	b.sendWithKeyboard(chatID, text, mainMenuKeyboard())
}

func (b *Bot) sendInline(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	if _, err := b.tgService.SendWithInlineKeyboard(chatID, text, keyboard); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}

// show edits the message behind a button press, or sends a new one when
// there is none.
func (b *Bot) show(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	if messageID == 0 {
		if keyboard == nil {
			b.send(chatID, text)
			return
		}
		b.sendInline(chatID, text, *keyboard)
		return
	}
	if _, err := b.tgService.EditMessage(chatID, messageID, text, keyboard); err != nil {
		b.logger.Debug().Err(err).Int64("chat_id", chatID).Int("message_id", messageID).Msg("Edit failed, sending new message")
		b.show(chatID, 0, text, keyboard)
	}
}

package bot

import (
	"context"
	"fmt"
	"html"
	"os"
	"strings"
	"time"

	"barberbot/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const broadcastTimeout = 30 * time.Minute

var adminCommands = map[string]bool{
	"admin":        true,
	"addservice":   true,
	"delservice":   true,
	"addbarber":    true,
	"delbarber":    true,
	"pausebarber":  true,
	"resumebarber": true,
	"link":         true,
	"delorder":     true,
	"broadcast":    true,
	"export":       true,
}

const adminHelp = `<b>Administrator buyruqlari</b>

/addservice nomi | narxi | davomiyligi
/delservice id
/addbarber ism | telefon | tajriba | kunlar | soatlar [| telegram_id]
/delbarber id
/pausebarber id, /resumebarber id
/link barber_id service_id
/orders - bugungi buyurtmalar
/delorder id
/broadcast matn
/export - kelgusi buyurtmalar (Excel)`

// handleAdminCommand runs administrator commands. It reports whether the
// command was consumed; non-admins get a fixed refusal.
func (b *Bot) handleAdminCommand(ctx context.Context, msg *tgbotapi.Message) bool {
	cmd := msg.Command()
	isAdmin := b.users.IsAdmin(msg.From.ID)

	if cmd == "orders" {
		if !isAdmin {
			return false
		}
		b.adminTodayOrders(ctx, msg.Chat.ID)
		return true
	}
	if !adminCommands[cmd] {
		return false
	}
	if !isAdmin {
		zerolog.Ctx(ctx).Warn().Int64("user_id", msg.From.ID).Str("command", cmd).Msg("Admin command refused")
		b.send(msg.Chat.ID, textNoPermission)
		return true
	}

	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())
	zerolog.Ctx(ctx).Info().Int64("admin_id", msg.From.ID).Str("command", cmd).Msg("Admin command")

	switch cmd {
	case "admin":
		b.send(chatID, adminHelp)

	case "addservice":
		s, err := b.catalog.AddService(ctx, args)
		if err != nil {
			b.send(chatID, b.userMessage(err))
			return true
		}
		b.send(chatID, fmt.Sprintf("✅ Xizmat qo'shildi: #%d %s", s.ID, html.EscapeString(s.Name)))

	case "delservice":
		b.withID(chatID, args, func(id int64) error { return b.catalog.DeleteService(ctx, id) }, "✅ Xizmat o'chirildi.")

	case "addbarber":
		br, err := b.catalog.AddBarber(ctx, args)
		if err != nil {
			b.send(chatID, b.userMessage(err))
			return true
		}
		b.send(chatID, fmt.Sprintf("✅ Sartarosh qo'shildi: #%d %s", br.ID, html.EscapeString(br.Name)))

	case "delbarber":
		b.withID(chatID, args, func(id int64) error { return b.catalog.DeleteBarber(ctx, id) }, "✅ Sartarosh o'chirildi.")

	case "pausebarber":
		b.withID(chatID, args, func(id int64) error { return b.booking.Pause(ctx, id) }, "⏸ Sartarosh to'xtatildi.")

	case "resumebarber":
		b.withID(chatID, args, func(id int64) error { return b.booking.Resume(ctx, id) }, "▶️ Sartarosh yana ishlayapti.")

	case "link":
		fields := strings.Fields(args)
		if len(fields) != 2 {
			b.send(chatID, b.userMessage(fmt.Errorf("%w: /link barber_id service_id", service.ErrInvalidInput)))
			return true
		}
		barberID, err := service.ParseID(fields[0])
		if err != nil {
			b.send(chatID, b.userMessage(err))
			return true
		}
		serviceID, err := service.ParseID(fields[1])
		if err != nil {
			b.send(chatID, b.userMessage(err))
			return true
		}
		if err := b.catalog.LinkBarberService(ctx, barberID, serviceID); err != nil {
			b.send(chatID, b.userMessage(err))
			return true
		}
		b.send(chatID, "✅ Bog'landi.")

	case "delorder":
		b.withID(chatID, args, func(id int64) error {
			_, err := b.booking.DeleteOrder(ctx, id)
			return err
		}, "✅ Buyurtma o'chirildi, mijozga xabar yuboriladi.")

	case "broadcast":
		b.startBroadcast(ctx, chatID, args)

	case "export":
		b.sendExport(ctx, chatID)
	}
	return true
}

func (b *Bot) withID(chatID int64, args string, fn func(id int64) error, okText string) {
	id, err := service.ParseID(args)
	if err != nil {
		b.send(chatID, b.userMessage(err))
		return
	}
	if err := fn(id); err != nil {
		b.send(chatID, b.userMessage(err))
		return
	}
	b.send(chatID, okText)
}

func (b *Bot) adminTodayOrders(ctx context.Context, chatID int64) {
	today := b.booking.Today()
	orders, err := b.booking.OrdersOn(ctx, today)
	if err != nil {
		b.send(chatID, b.userMessage(err))
		return
	}
	if len(orders) == 0 {
		b.send(chatID, fmt.Sprintf("📅 %s: buyurtmalar yo'q.", service.DisplayDate(today)))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📅 <b>%s</b> buyurtmalari (%d):\n", service.DisplayDate(today), len(orders))
	for _, o := range orders {
		fmt.Fprintf(&sb, "\n#%d ⏰ %s · ✂️ %s\n👤 %s 📞 %s\n💈 %s\n",
			o.ID, o.Time, html.EscapeString(o.BarberName),
			html.EscapeString(o.FullName), html.EscapeString(o.Phone),
			html.EscapeString(o.ServiceName))
	}
	b.send(chatID, sb.String())
}

// startBroadcast runs the fan-out detached from the update deadline and
// reports the counts when done.
func (b *Bot) startBroadcast(ctx context.Context, chatID int64, text string) {
	if b.broadcast == nil {
		b.send(chatID, textGenericError)
		return
	}

	bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), broadcastTimeout)
	b.send(chatID, "📣 Xabar yuborilmoqda...")

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer cancel()

		res, err := b.broadcast.Broadcast(bctx, text)
		if err != nil {
			b.send(chatID, b.userMessage(err))
			return
		}
		if b.metrics != nil {
			b.metrics.BroadcastResult(res.Sent, res.Failed)
		}
		b.send(chatID, fmt.Sprintf("📣 Yuborildi: %d, xato: %d", res.Sent, res.Failed))
	}()
}

func (b *Bot) sendExport(ctx context.Context, chatID int64) {
	path, err := b.exportOrders(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Export failed")
		b.send(chatID, textGenericError)
		return
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			b.logger.Debug().Err(err).Str("path", path).Msg("Failed to remove export file")
		}
	}()

	if _, err := b.tgService.SendDocument(chatID, path, "📊 Kelgusi buyurtmalar"); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("path", path).Msg("Failed to send export")
		b.send(chatID, textGenericError)
	}
}

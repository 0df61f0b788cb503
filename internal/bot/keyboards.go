package bot

import (
	"fmt"
	"strconv"
	"strings"

	"barberbot/internal/booking"
	"barberbot/internal/models"
	"barberbot/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback data outside the booking steps.
const (
	prefixBookService = "book_"
	prefixOrders      = "orders_"
	prefixOrderCancel = "ocancel_"

	callbackPanelPause   = "panel_pause"
	callbackPanelResume  = "panel_resume"
	callbackPanelRefresh = "panel_refresh"
)

const timesPerRow = 4

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnBook),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnServices),
			tgbotapi.NewKeyboardButton(btnBarbers),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnOrders),
			tgbotapi.NewKeyboardButton(btnContact),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func phoneKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonContact(btnSharePhone)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancel)),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func navRow(withBack bool) []tgbotapi.InlineKeyboardButton {
	row := tgbotapi.NewInlineKeyboardRow()
	if withBack {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(btnBack, booking.CallbackBack))
	}
	return append(row, tgbotapi.NewInlineKeyboardButtonData(btnCancel, booking.CallbackCancel))
}

func servicesKeyboard(services []models.Service, encode func(int64) string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(services)+1)
	for _, s := range services {
		label := fmt.Sprintf("%s · %s", s.Name, formatPrice(s.Price))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, encode(s.ID)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func bookServiceData(id int64) string {
	return prefixBookService + strconv.FormatInt(id, 10)
}

func barbersKeyboard(barbers []models.Barber, today string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(barbers)+1)
	for _, br := range barbers {
		label := br.Name
		if br.PausedOn(today) {
			label = "⏸ " + label
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, booking.EncodeBarber(br.ID)),
		))
	}
	rows = append(rows, navRow(false))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func datesKeyboard(dates []string, selected string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(dates)+1)
	for _, d := range dates {
		label := service.DisplayDate(d)
		if d == selected {
			label = "• " + label
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, booking.EncodeDate(d)),
		))
	}
	rows = append(rows, navRow(true))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func timesKeyboard(slots []string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 0; i < len(slots); i += timesPerRow {
		end := i + timesPerRow
		if end > len(slots) {
			end = len(slots)
		}
		row := tgbotapi.NewInlineKeyboardRow()
		for _, t := range slots[i:end] {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(t, booking.EncodeTime(t)))
		}
		rows = append(rows, row)
	}
	rows = append(rows, navRow(true))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func confirmKeyboard(c booking.Confirmation) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnConfirm, c.Encode())),
		navRow(false),
	)
}

func scopeKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(btnToday, prefixOrders+models.ScopeToday),
		tgbotapi.NewInlineKeyboardButtonData(btnFuture, prefixOrders+models.ScopeFuture),
		tgbotapi.NewInlineKeyboardButtonData(btnAll, prefixOrders+models.ScopeAll),
	))
}

func ordersKeyboard(orders []models.Order, scope string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(orders)+1)
	for _, o := range orders {
		label := fmt.Sprintf("❌ %s %s · %s", service.DisplayDate(o.Date), o.Time, o.BarberName)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, orderCancelData(scope, o.ID)),
		))
	}
	rows = append(rows, scopeKeyboard().InlineKeyboard...)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func orderCancelData(scope string, id int64) string {
	return fmt.Sprintf("%s%s_%d", prefixOrderCancel, scope, id)
}

// parseOrderCancel decodes ocancel_<scope>_<id>.
func parseOrderCancel(data string) (string, int64, error) {
	rest := strings.TrimPrefix(data, prefixOrderCancel)
	scope, rawID, ok := strings.Cut(rest, "_")
	if !ok || !models.ValidScope(scope) {
		return "", 0, fmt.Errorf("%w: %q", booking.ErrMalformedPayload, data)
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return "", 0, fmt.Errorf("%w: %q", booking.ErrMalformedPayload, data)
	}
	return scope, id, nil
}

func panelKeyboard(paused bool) tgbotapi.InlineKeyboardMarkup {
	toggle := tgbotapi.NewInlineKeyboardButtonData(btnPausePanel, callbackPanelPause)
	if paused {
		toggle = tgbotapi.NewInlineKeyboardButtonData(btnResumePanel, callbackPanelResume)
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(toggle),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnRefresh, callbackPanelRefresh)),
	)
}

// formatPrice renders 50000 as "50 000 so'm".
func formatPrice(price int64) string {
	s := strconv.FormatInt(price, 10)
	var out strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out.WriteByte(' ')
		}
		out.WriteRune(r)
	}
	return out.String() + " so'm"
}

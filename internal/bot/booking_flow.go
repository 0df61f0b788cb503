package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"barberbot/internal/booking"
	"barberbot/internal/database"
	"barberbot/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// startBooking opens a fresh session. Known users skip identity collection;
// serviceID > 0 means the service was already picked from the catalog.
func (b *Bot) startBooking(ctx context.Context, chatID, userID int64, messageID int, serviceID int64) {
	var fullName, phone string
	user, err := b.users.FindUser(ctx, userID)
	if err != nil {
		b.send(chatID, b.userMessage(err))
		return
	}
	if user != nil {
		fullName, phone = user.FullName, user.Phone
	}

	if serviceID > 0 {
		if _, err := b.catalog.Service(ctx, serviceID); err != nil {
			b.show(chatID, messageID, b.userMessage(err), nil)
			return
		}
	}

	session := booking.NewSession(userID, fullName, phone, serviceID)
	if err := b.state.SaveSession(ctx, session); err != nil {
		b.send(chatID, b.userMessage(err))
		return
	}
	zerolog.Ctx(ctx).Info().Int64("user_id", userID).Str("state", string(session.State)).Msg("Booking session started")

	b.renderStep(ctx, chatID, messageID, session, "")
}

func (b *Bot) handleIdentityText(ctx context.Context, msg *tgbotapi.Message, session *booking.Session) {
	chatID := msg.Chat.ID
	if session.FullName == "" {
		name, err := service.ValidateName(msg.Text)
		if err != nil {
			b.send(chatID, textBadName)
			return
		}
		if err := session.SetFullName(name); err != nil {
			b.send(chatID, b.userMessage(err))
			return
		}
		if err := b.state.SaveSession(ctx, session); err != nil {
			b.send(chatID, b.userMessage(err))
			return
		}
		b.sendWithKeyboard(chatID, textAskPhone, phoneKeyboard())
		return
	}

	b.completeIdentity(ctx, msg, session, msg.Text)
}

func (b *Bot) handleContact(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	session, err := b.state.Session(ctx, msg.From.ID)
	if err != nil {
		b.send(chatID, b.userMessage(err))
		return
	}
	if session == nil || session.State != booking.StateCollectingIdentity || session.FullName == "" {
		b.sendWithMenu(chatID, textUnknown)
		return
	}
	if msg.Contact.UserID != 0 && msg.Contact.UserID != msg.From.ID {
		b.send(chatID, textBadPhone)
		return
	}
	b.completeIdentity(ctx, msg, session, msg.Contact.PhoneNumber)
}

func (b *Bot) completeIdentity(ctx context.Context, msg *tgbotapi.Message, session *booking.Session, rawPhone string) {
	chatID := msg.Chat.ID
	phone, err := service.NormalizePhone(rawPhone)
	if err != nil {
		b.send(chatID, textBadPhone)
		return
	}
	if err := session.SetPhone(phone); err != nil {
		b.send(chatID, b.userMessage(err))
		return
	}
	if err := b.users.SaveIdentity(ctx, msg.From.ID, msg.From.UserName, session.FullName, phone); err != nil {
		b.send(chatID, b.userMessage(err))
		return
	}
	if err := b.state.SaveSession(ctx, session); err != nil {
		b.send(chatID, b.userMessage(err))
		return
	}

	b.sendWithMenu(chatID, fmt.Sprintf("✅ Rahmat, %s!", html.EscapeString(session.FullName)))
	b.renderStep(ctx, chatID, 0, session, "")
}

// renderStep shows the screen for the session's current state. notice, when
// set, is printed above it.
func (b *Bot) renderStep(ctx context.Context, chatID int64, messageID int, session *booking.Session, notice string) {
	text, keyboard, err := b.stepScreen(ctx, session)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("state", string(session.State)).Msg("Failed to render booking step")
		b.show(chatID, messageID, b.userMessage(err), nil)
		return
	}
	if notice != "" {
		text = notice + "\n\n" + text
	}

	if session.State == booking.StateCollectingIdentity {
		if session.FullName == "" {
			b.sendWithKeyboard(chatID, text, tgbotapi.NewRemoveKeyboard(false))
			return
		}
		b.sendWithKeyboard(chatID, text, phoneKeyboard())
		return
	}
	b.show(chatID, messageID, text, keyboard)
}

func (b *Bot) stepScreen(ctx context.Context, session *booking.Session) (string, *tgbotapi.InlineKeyboardMarkup, error) {
	switch session.State {
	case booking.StateCollectingIdentity:
		if session.FullName == "" {
			return textAskName, nil, nil
		}
		return textAskPhone, nil, nil

	case booking.StateAwaitingService:
		services, err := b.catalog.Services(ctx)
		if err != nil {
			return "", nil, err
		}
		if len(services) == 0 {
			kb := tgbotapi.NewInlineKeyboardMarkup(navRow(false))
			return textNoServices, &kb, nil
		}
		kb := servicesKeyboard(services, booking.EncodeService)
		kb.InlineKeyboard = append(kb.InlineKeyboard, navRow(false))
		return textChooseService, &kb, nil

	case booking.StateAwaitingBarber:
		svc, err := b.catalog.Service(ctx, session.ServiceID)
		if err != nil {
			return "", nil, err
		}
		barbers, err := b.catalog.BarbersFor(ctx, session.ServiceID)
		if err != nil {
			return "", nil, err
		}
		kb := barbersKeyboard(barbers, b.booking.Today())
		if len(barbers) == 0 {
			return textNoBarbers, &kb, nil
		}
		return fmt.Sprintf(textChooseBarber, html.EscapeString(svc.Name)), &kb, nil

	case booking.StateAwaitingDate:
		barber, err := b.catalog.Barber(ctx, session.BarberID)
		if err != nil {
			return "", nil, err
		}
		kb := datesKeyboard(b.booking.BookingDates(), session.Date)
		return fmt.Sprintf(textChooseDate, html.EscapeString(barber.Name)), &kb, nil

	case booking.StateAwaitingTime:
		slots, err := b.booking.AvailableSlots(ctx, session.BarberID, session.Date)
		if err != nil {
			return "", nil, err
		}
		if len(slots) == 0 {
			kb := tgbotapi.NewInlineKeyboardMarkup(navRow(true))
			return fmt.Sprintf(textFullyBooked, service.DisplayDate(session.Date)), &kb, nil
		}
		kb := timesKeyboard(slots)
		return fmt.Sprintf(textChooseTime, service.DisplayDate(session.Date)), &kb, nil

	case booking.StateAwaitingConfirmation:
		svc, err := b.catalog.Service(ctx, session.ServiceID)
		if err != nil {
			return "", nil, err
		}
		barber, err := b.catalog.Barber(ctx, session.BarberID)
		if err != nil {
			return "", nil, err
		}
		text := fmt.Sprintf(textConfirm,
			html.EscapeString(session.FullName), html.EscapeString(session.Phone),
			html.EscapeString(svc.Name), html.EscapeString(barber.Name),
			service.DisplayDate(session.Date), session.Time)
		kb := confirmKeyboard(booking.Confirmation{
			ServiceID: session.ServiceID,
			BarberID:  session.BarberID,
			Date:      session.Date,
			Time:      session.Time,
		})
		return text, &kb, nil
	}

	return "", nil, fmt.Errorf("%w: no screen for %s", booking.ErrIllegalTransition, session.State)
}

// handleStep applies a service_, barber_, date_ or time_ selection and
// returns the text for the callback answer.
func (b *Bot) handleStep(ctx context.Context, cq *tgbotapi.CallbackQuery) string {
	chatID, messageID := cq.Message.Chat.ID, cq.Message.MessageID
	session, err := b.state.Session(ctx, cq.From.ID)
	if err != nil {
		return b.userMessage(err)
	}
	if session == nil {
		b.show(chatID, messageID, textSessionExpired, nil)
		return ""
	}

	notice, err := b.applyStep(ctx, session, cq.Data)
	switch {
	case errors.Is(err, booking.ErrMalformedPayload):
		zerolog.Ctx(ctx).Warn().Err(err).Msg("Malformed step payload")
		b.show(chatID, messageID, textReselect, nil)
		b.clearSession(ctx, session.UserID)
		return ""
	case errors.Is(err, booking.ErrIllegalTransition):
		b.renderStep(ctx, chatID, messageID, session, "")
		return textStaleButton
	case err != nil:
		return b.userMessage(err)
	}

	if err := b.state.SaveSession(ctx, session); err != nil {
		return b.userMessage(err)
	}
	b.renderStep(ctx, chatID, messageID, session, notice)
	return ""
}

func (b *Bot) applyStep(ctx context.Context, session *booking.Session, data string) (string, error) {
	switch {
	case strings.HasPrefix(data, booking.PrefixService):
		id, err := booking.ParseID(data, booking.PrefixService)
		if err != nil {
			return "", err
		}
		if _, err := b.catalog.Service(ctx, id); err != nil {
			return "", err
		}
		return "", session.SelectService(id)

	case strings.HasPrefix(data, booking.PrefixBarber):
		id, err := booking.ParseID(data, booking.PrefixBarber)
		if err != nil {
			return "", err
		}
		if _, err := b.catalog.Barber(ctx, id); err != nil {
			return "", err
		}
		return "", session.SelectBarber(id)

	case strings.HasPrefix(data, booking.PrefixDate):
		date, err := booking.ParseDate(data)
		if err != nil {
			return "", err
		}
		if !containsString(b.booking.BookingDates(), date) {
			return "", fmt.Errorf("%w: date %s outside the booking window", booking.ErrIllegalTransition, date)
		}
		return "", session.SelectDate(date)

	case strings.HasPrefix(data, booking.PrefixTime):
		t, err := booking.ParseTime(data)
		if err != nil {
			return "", err
		}
		if err := session.SelectTime(t); err != nil {
			return "", err
		}
		// Taken while the list was on screen: stay on the time step.
		slots, err := b.booking.AvailableSlots(ctx, session.BarberID, session.Date)
		if err != nil {
			return "", err
		}
		if !containsString(slots, t) {
			if err := session.SlotLost(); err != nil {
				return "", err
			}
			return textSlotTaken, nil
		}
		return "", nil
	}
	return "", fmt.Errorf("%w: %q", booking.ErrMalformedPayload, data)
}

func (b *Bot) handleBack(ctx context.Context, cq *tgbotapi.CallbackQuery) string {
	chatID, messageID := cq.Message.Chat.ID, cq.Message.MessageID
	session, err := b.state.Session(ctx, cq.From.ID)
	if err != nil {
		return b.userMessage(err)
	}
	if session == nil {
		b.show(chatID, messageID, textSessionExpired, nil)
		return ""
	}
	if err := session.Back(); err != nil {
		b.renderStep(ctx, chatID, messageID, session, "")
		return textStaleButton
	}
	if err := b.state.SaveSession(ctx, session); err != nil {
		return b.userMessage(err)
	}
	b.renderStep(ctx, chatID, messageID, session, "")
	return ""
}

// handleConfirm commits the order described by the confirm_ payload. The
// payload is authoritative for the slot; the session only supplies identity.
func (b *Bot) handleConfirm(ctx context.Context, cq *tgbotapi.CallbackQuery) string {
	l := zerolog.Ctx(ctx)
	chatID, messageID := cq.Message.Chat.ID, cq.Message.MessageID
	userID := cq.From.ID

	conf, err := booking.ParseConfirmation(cq.Data)
	if err != nil {
		l.Warn().Err(err).Int64("user_id", userID).Msg("Malformed confirmation payload")
		b.clearSession(ctx, userID)
		b.show(chatID, messageID, textReselect, nil)
		return ""
	}

	session, err := b.state.Session(ctx, userID)
	if err != nil {
		l.Warn().Err(err).Int64("user_id", userID).Msg("Session unavailable at confirmation")
		session = nil
	}

	req := service.CommitRequest{
		UserID:    userID,
		ServiceID: conf.ServiceID,
		BarberID:  conf.BarberID,
		Date:      conf.Date,
		Time:      conf.Time,
	}
	if session != nil {
		req.FullName, req.Phone = session.FullName, session.Phone
	}

	order, err := b.booking.Commit(ctx, req)
	if err != nil {
		return b.commitFailed(ctx, cq, session, conf, err)
	}

	if session != nil {
		if err := session.Commit(); err != nil {
			l.Debug().Err(err).Int64("user_id", userID).Msg("Session was not awaiting confirmation")
		}
	}
	b.clearSession(ctx, userID)

	b.show(chatID, messageID, fmt.Sprintf(textBooked,
		html.EscapeString(order.ServiceName), html.EscapeString(order.BarberName),
		service.DisplayDate(order.Date), order.Time), nil)
	return "✅"
}

func (b *Bot) commitFailed(ctx context.Context, cq *tgbotapi.CallbackQuery, session *booking.Session, conf booking.Confirmation, err error) string {
	chatID, messageID := cq.Message.Chat.ID, cq.Message.MessageID
	zerolog.Ctx(ctx).Info().Err(err).Int64("user_id", cq.From.ID).
		Int64("barber_id", conf.BarberID).Str("date", conf.Date).Str("time", conf.Time).
		Msg("Commit rejected")

	retime := errors.Is(err, database.ErrSlotTaken) || errors.Is(err, service.ErrPastSlot) || errors.Is(err, service.ErrInvalidSlot)
	if errors.Is(err, database.ErrSlotTaken) && b.metrics != nil {
		b.metrics.SlotConflicts.Inc()
	}

	if retime && session != nil && session.State == booking.StateAwaitingConfirmation &&
		session.BarberID == conf.BarberID && session.Date == conf.Date {
		if slErr := session.SlotLost(); slErr == nil {
			if saveErr := b.state.SaveSession(ctx, session); saveErr == nil {
				b.renderStep(ctx, chatID, messageID, session, b.userMessage(err))
				return ""
			}
		}
	}

	if errors.Is(err, service.ErrIdentityMissing) {
		b.clearSession(ctx, cq.From.ID)
	}
	b.show(chatID, messageID, b.userMessage(err), nil)
	return ""
}

func (b *Bot) clearSession(ctx context.Context, userID int64) {
	if err := b.state.ClearSession(ctx, userID); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("user_id", userID).Msg("Failed to clear session")
	}
}

// cancelBooking discards the session without side effects.
func (b *Bot) cancelBooking(ctx context.Context, chatID int64, messageID int, userID int64) {
	session, err := b.state.Session(ctx, userID)
	switch {
	case err != nil:
		zerolog.Ctx(ctx).Warn().Err(err).Int64("user_id", userID).Msg("Session unavailable at cancel")
	case session != nil:
		if err := session.Cancel(); err != nil {
			zerolog.Ctx(ctx).Debug().Err(err).Int64("user_id", userID).Msg("Session already finished")
		}
	}
	b.clearSession(ctx, userID)

	if messageID != 0 {
		b.show(chatID, messageID, textBookingCancelled, nil)
		return
	}
	b.sendWithMenu(chatID, textBookingCancelled)
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

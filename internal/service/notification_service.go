package service

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"time"

	"barberbot/internal/domain"
	"barberbot/internal/events"
	"barberbot/internal/models"

	"github.com/rs/zerolog"
)

// Waker is poked after new rows land in the outbox so delivery does not wait
// for the next poll.
type Waker interface {
	Wake()
}

type NotificationRepository interface {
	domain.NotificationRepository
	GetBarber(ctx context.Context, id int64) (*models.Barber, error)
	ListOrdersByDate(ctx context.Context, date string) ([]models.Order, error)
	ListBarberOrders(ctx context.Context, barberID int64, date string) ([]models.Order, error)
}

// NotificationService turns domain events into outbox rows. Delivery is the
// inbox worker's job.
type NotificationService struct {
	repo   NotificationRepository
	admins []int64
	waker  Waker
	logger *zerolog.Logger
}

func NewNotificationService(repo NotificationRepository, admins []int64, logger *zerolog.Logger) *NotificationService {
	return &NotificationService{
		repo:   repo,
		admins: admins,
		logger: logger,
	}
}

func (s *NotificationService) SetWaker(w Waker) {
	s.waker = w
}

// Subscribe hooks the service to order events.
func (s *NotificationService) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventOrderCreated, s.onOrderCreated)
	bus.Subscribe(events.EventOrderCancelled, s.onOrderCancelled)
}

func (s *NotificationService) onOrderCreated(event *events.Event) error {
	var p events.OrderEventPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		return fmt.Errorf("decode %s: %w", event.Type, err)
	}
	ctx := context.Background()

	text := fmt.Sprintf("🆕 <b>Yangi buyurtma</b>\n\n👤 %s\n📞 %s\n💈 %s\n📅 %s ⏰ %s",
		html.EscapeString(p.FullName), html.EscapeString(p.Phone), html.EscapeString(p.ServiceName),
		DisplayDate(p.Date), p.Time)

	s.toBarber(ctx, p.BarberID, models.KindOrderCreated, text)
	s.toAdmins(ctx, models.KindOrderCreated,
		fmt.Sprintf("%s\n✂️ Sartarosh: %s", text, html.EscapeString(p.BarberName)))
	s.wake()
	return nil
}

func (s *NotificationService) onOrderCancelled(event *events.Event) error {
	var p events.OrderEventPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		return fmt.Errorf("decode %s: %w", event.Type, err)
	}
	ctx := context.Background()
	when := fmt.Sprintf("%s ⏰ %s", DisplayDate(p.Date), p.Time)

	switch p.CancelledBy {
	case CancelledByUser:
		s.toBarber(ctx, p.BarberID, models.KindOrderCancelled,
			fmt.Sprintf("❌ Mijoz buyurtmani bekor qildi\n\n👤 %s\n📅 %s", html.EscapeString(p.FullName), when))
	case CancelledByAdmin:
		s.enqueue(ctx, &models.Notification{
			ChatID: p.UserID,
			Kind:   models.KindOrderCancelled,
			Text:   fmt.Sprintf("❌ Sizning 📅 %s dagi buyurtmangiz administrator tomonidan bekor qilindi.", when),
		})
		s.toBarber(ctx, p.BarberID, models.KindOrderCancelled,
			fmt.Sprintf("❌ Administrator buyurtmani bekor qildi\n\n👤 %s\n📅 %s", html.EscapeString(p.FullName), when))
	case CancelledByBarber:
		s.enqueue(ctx, &models.Notification{
			ChatID: p.UserID,
			Kind:   models.KindDayCancelled,
			Text: fmt.Sprintf("⚠️ Uzr, sartarosh %s bugun mijoz qabul qilmaydi.\n"+
				"Sizning 📅 %s dagi buyurtmangiz bekor qilindi. Iltimos, boshqa vaqtni tanlang.",
				html.EscapeString(p.BarberName), when),
		})
	}
	s.wake()
	return nil
}

// EnqueueReminders queues a reminder for every order on date and returns how
// many were queued.
func (s *NotificationService) EnqueueReminders(ctx context.Context, date string) (int, error) {
	orders, err := s.repo.ListOrdersByDate(ctx, date)
	if err != nil {
		return 0, err
	}
	for _, o := range orders {
		s.enqueue(ctx, &models.Notification{
			ChatID: o.UserID,
			Kind:   models.KindReminder,
			Text: fmt.Sprintf("⏰ Eslatma: 📅 %s soat %s da sizni %s kutadi (%s).",
				DisplayDate(o.Date), o.Time, html.EscapeString(o.BarberName), html.EscapeString(o.ServiceName)),
		})
	}
	s.wake()
	return len(orders), nil
}

// NotifyClients sends the barber's text to every client booked with them on
// date, once per client.
func (s *NotificationService) NotifyClients(ctx context.Context, barber *models.Barber, date, text string) (int, error) {
	orders, err := s.repo.ListBarberOrders(ctx, barber.ID, date)
	if err != nil {
		return 0, err
	}

	seen := make(map[int64]bool)
	for _, o := range orders {
		if seen[o.UserID] {
			continue
		}
		seen[o.UserID] = true
		s.enqueue(ctx, &models.Notification{
			ChatID: o.UserID,
			Kind:   models.KindBarberMessage,
			Text:   fmt.Sprintf("💈 Sartarosh %s xabari:\n\n%s", html.EscapeString(barber.Name), html.EscapeString(text)),
		})
	}
	s.wake()
	return len(seen), nil
}

// toBarber drops a row into the barber's inbox. Barbers without a linked
// Telegram account have no inbox.
func (s *NotificationService) toBarber(ctx context.Context, barberID int64, kind, text string) {
	barber, err := s.repo.GetBarber(ctx, barberID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("barber_id", barberID).Msg("Barber lookup for notification failed")
		return
	}
	if barber.TelegramID == 0 {
		return
	}
	s.enqueue(ctx, &models.Notification{ChatID: barber.TelegramID, BarberID: barber.ID, Kind: kind, Text: text})
}

func (s *NotificationService) toAdmins(ctx context.Context, kind, text string) {
	for _, id := range s.admins {
		s.enqueue(ctx, &models.Notification{ChatID: id, Kind: kind, Text: text})
	}
}

func (s *NotificationService) enqueue(ctx context.Context, n *models.Notification) {
	if err := s.repo.EnqueueNotification(ctx, n); err != nil {
		s.logger.Error().Err(err).Int64("chat_id", n.ChatID).Str("kind", n.Kind).Msg("Failed to enqueue notification")
	}
}

func (s *NotificationService) wake() {
	if s.waker != nil {
		s.waker.Wake()
	}
}

// DisplayDate renders 2025-01-10 as 10.01.2025. Unparsable input is returned
// unchanged.
func DisplayDate(date string) string {
	t, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format(models.DisplayDateLayout)
}

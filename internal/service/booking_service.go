package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"barberbot/internal/booking"
	"barberbot/internal/database"
	"barberbot/internal/domain"
	"barberbot/internal/events"
	"barberbot/internal/models"

	"github.com/rs/zerolog"
)

// Who removed an order, carried on order_cancelled events.
const (
	CancelledByUser   = "user"
	CancelledByAdmin  = "admin"
	CancelledByBarber = "barber"
)

type BookingRepository interface {
	domain.CatalogRepository
	domain.OrderRepository
	domain.UserRepository
}

// BookingService computes availability and owns every write to orders.
type BookingService struct {
	repo        BookingRepository
	eventBus    domain.EventPublisher
	universe    booking.Universe
	bookingDays int
	loc         *time.Location
	now         func() time.Time
	logger      *zerolog.Logger
}

func NewBookingService(
	repo BookingRepository,
	eventBus domain.EventPublisher,
	universe booking.Universe,
	bookingDays int,
	loc *time.Location,
	logger *zerolog.Logger,
) *BookingService {
	if bookingDays <= 0 {
		bookingDays = 3
	}
	if loc == nil {
		loc = time.Local
	}
	return &BookingService{
		repo:        repo,
		eventBus:    eventBus,
		universe:    universe,
		bookingDays: bookingDays,
		loc:         loc,
		now:         time.Now,
		logger:      logger,
	}
}

// SetClock replaces the wall clock.
func (s *BookingService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *BookingService) Now() time.Time {
	return s.now().In(s.loc)
}

func (s *BookingService) Today() string {
	return s.Now().Format(models.DateLayout)
}

func (s *BookingService) Location() *time.Location {
	return s.loc
}

// BookingDates lists the calendar days offered for booking, today first.
func (s *BookingService) BookingDates() []string {
	return booking.UpcomingDates(s.Now(), s.bookingDays)
}

func (s *BookingService) Universe() booking.Universe {
	return s.universe
}

// FreeSlots returns the slot universe minus the times already booked with the
// barber on date. A barber paused on that date has no free slots.
func (s *BookingService) FreeSlots(ctx context.Context, barberID int64, date string) ([]string, error) {
	barber, err := s.repo.GetBarber(ctx, barberID)
	if err != nil {
		return nil, err
	}
	if barber.PausedOn(date) {
		return []string{}, nil
	}

	booked, err := s.repo.BookedTimes(ctx, barberID, date)
	if err != nil {
		return nil, err
	}
	return s.universe.Free(booked, false), nil
}

// AvailableSlots is FreeSlots without the times of today that already passed.
func (s *BookingService) AvailableSlots(ctx context.Context, barberID int64, date string) ([]string, error) {
	free, err := s.FreeSlots(ctx, barberID, date)
	if err != nil {
		return nil, err
	}
	return booking.DropPast(free, date, s.Now()), nil
}

// CommitRequest carries everything gathered by a booking session.
type CommitRequest struct {
	UserID    int64
	ServiceID int64
	BarberID  int64
	Date      string
	Time      string
	FullName  string
	Phone     string
}

// Commit re-validates the slot and stores the order. A slot booked by someone
// else since it was listed yields database.ErrSlotTaken.
func (s *BookingService) Commit(ctx context.Context, req CommitRequest) (*models.Order, error) {
	l := zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		l = s.logger
	}

	if err := s.validateSlot(req.Date, req.Time); err != nil {
		return nil, err
	}

	fullName, phone, err := s.resolveIdentity(ctx, req)
	if err != nil {
		return nil, err
	}

	service, err := s.repo.GetService(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}
	barber, err := s.repo.GetBarber(ctx, req.BarberID)
	if err != nil {
		return nil, err
	}
	if barber.PausedOn(req.Date) {
		return nil, fmt.Errorf("barber %d on %s: %w", barber.ID, req.Date, database.ErrBarberPaused)
	}

	free, err := s.FreeSlots(ctx, req.BarberID, req.Date)
	if err != nil {
		return nil, err
	}
	if !contains(free, req.Time) {
		return nil, fmt.Errorf("%s %s: %w", req.Date, req.Time, database.ErrSlotTaken)
	}

	now := s.Now()
	order := &models.Order{
		UserID:     req.UserID,
		FullName:   fullName,
		Phone:      phone,
		ServiceID:  service.ID,
		BarberID:   barber.ID,
		Date:       req.Date,
		Time:       req.Time,
		BookedDate: now.Format(models.DateLayout),
		BookedTime: now.Format(models.TimeLayout),
	}
	if err := s.repo.CreateOrder(ctx, order); err != nil {
		return nil, err
	}
	order.ServiceName = service.Name
	order.BarberName = barber.Name

	l.Info().
		Int64("order_id", order.ID).
		Int64("user_id", order.UserID).
		Int64("barber_id", order.BarberID).
		Str("date", order.Date).
		Str("time", order.Time).
		Msg("Order created")

	s.publishOrder(events.EventOrderCreated, order, "")
	return order, nil
}

func (s *BookingService) validateSlot(date, tm string) error {
	day, err := time.ParseInLocation(models.DateLayout, date, s.loc)
	if err != nil {
		return fmt.Errorf("%w: date %q", ErrInvalidSlot, date)
	}
	if !s.universe.Contains(tm) {
		return fmt.Errorf("%w: time %q", ErrInvalidSlot, tm)
	}

	now := s.Now()
	today, _ := time.ParseInLocation(models.DateLayout, now.Format(models.DateLayout), s.loc)
	if day.Before(today) {
		return fmt.Errorf("%w: %s", ErrPastSlot, date)
	}
	if !day.Before(today.AddDate(0, 0, s.bookingDays)) {
		return fmt.Errorf("%w: %s is beyond the booking window", ErrInvalidSlot, date)
	}
	if date == now.Format(models.DateLayout) && tm <= now.Format(models.TimeLayout) {
		return fmt.Errorf("%w: %s %s", ErrPastSlot, date, tm)
	}
	return nil
}

// resolveIdentity prefers the identity collected in the session and falls
// back to the stored profile. There is no placeholder name.
func (s *BookingService) resolveIdentity(ctx context.Context, req CommitRequest) (string, string, error) {
	if req.FullName != "" && req.Phone != "" {
		return req.FullName, req.Phone, nil
	}

	user, err := s.repo.GetUserByTelegramID(ctx, req.UserID)
	if errors.Is(err, database.ErrNotFound) {
		return "", "", ErrIdentityMissing
	}
	if err != nil {
		return "", "", err
	}

	fullName, phone := req.FullName, req.Phone
	if fullName == "" {
		fullName = user.FullName
	}
	if phone == "" {
		phone = user.Phone
	}
	if fullName == "" || phone == "" {
		return "", "", ErrIdentityMissing
	}
	return fullName, phone, nil
}

// scopeRange maps a cancellation scope to an inclusive date range. An empty
// upper bound is open.
func (s *BookingService) scopeRange(scope string) (string, string, error) {
	today := s.Now()
	switch scope {
	case models.ScopeToday:
		d := today.Format(models.DateLayout)
		return d, d, nil
	case models.ScopeFuture:
		return today.AddDate(0, 0, 1).Format(models.DateLayout), "", nil
	case models.ScopeAll:
		return today.Format(models.DateLayout), "", nil
	}
	return "", "", fmt.Errorf("%w: %q", ErrInvalidScope, scope)
}

// UserOrders lists the user's orders that fall in scope.
func (s *BookingService) UserOrders(ctx context.Context, userID int64, scope string) ([]models.Order, error) {
	from, to, err := s.scopeRange(scope)
	if err != nil {
		return nil, err
	}
	return s.repo.ListUserOrders(ctx, userID, from, to)
}

// Cancel removes the user's own order if its date is in scope. Cancelling an
// order that no longer exists returns database.ErrNotFound.
func (s *BookingService) Cancel(ctx context.Context, userID, orderID int64, scope string) (*models.Order, error) {
	from, to, err := s.scopeRange(scope)
	if err != nil {
		return nil, err
	}

	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, fmt.Errorf("order %d: %w", orderID, ErrForbidden)
	}
	if order.Date < from || (to != "" && order.Date > to) {
		return nil, fmt.Errorf("order %d on %s, scope %s: %w", orderID, order.Date, scope, ErrOutOfScope)
	}

	if err := s.repo.DeleteOrder(ctx, orderID); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("order_id", orderID).Int64("user_id", userID).Str("scope", scope).Msg("Order cancelled by user")
	s.publishOrder(events.EventOrderCancelled, order, CancelledByUser)
	return order, nil
}

// DeleteOrder is the administrator's cancel: no ownership or scope checks.
func (s *BookingService) DeleteOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteOrder(ctx, orderID); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("order_id", orderID).Msg("Order deleted by admin")
	s.publishOrder(events.EventOrderCancelled, order, CancelledByAdmin)
	return order, nil
}

func (s *BookingService) OrdersOn(ctx context.Context, date string) ([]models.Order, error) {
	return s.repo.ListOrdersByDate(ctx, date)
}

func (s *BookingService) UpcomingOrders(ctx context.Context) ([]models.Order, error) {
	return s.repo.ListUpcomingOrders(ctx, s.Today())
}

func (s *BookingService) BarberSchedule(ctx context.Context, barberID int64, date string) ([]models.Order, error) {
	return s.repo.ListBarberOrders(ctx, barberID, date)
}

// PauseToday cancels every order the barber has today, marks the day paused
// and publishes one order_cancelled event per removed order.
func (s *BookingService) PauseToday(ctx context.Context, barberID int64) ([]models.Order, error) {
	today := s.Today()
	removed, err := s.repo.PauseBarberDay(ctx, barberID, today)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("barber_id", barberID).Str("date", today).Int("cancelled", len(removed)).Msg("Barber paused for the day")
	for i := range removed {
		s.publishOrder(events.EventOrderCancelled, &removed[i], CancelledByBarber)
	}
	s.publish(events.EventBarberPaused, events.BarberPausePayload{BarberID: barberID, Date: today, Cancelled: len(removed)})
	return removed, nil
}

// Pause stops bookings with the barber until Resume. Existing orders stay.
func (s *BookingService) Pause(ctx context.Context, barberID int64) error {
	if err := s.repo.SetBarberPaused(ctx, barberID, true, ""); err != nil {
		return err
	}
	s.publish(events.EventBarberPaused, events.BarberPausePayload{BarberID: barberID})
	return nil
}

func (s *BookingService) Resume(ctx context.Context, barberID int64) error {
	if err := s.repo.SetBarberPaused(ctx, barberID, false, ""); err != nil {
		return err
	}
	s.publish(events.EventBarberResumed, events.BarberPausePayload{BarberID: barberID})
	return nil
}

func (s *BookingService) publishOrder(eventType string, order *models.Order, cancelledBy string) {
	s.publish(eventType, events.OrderEventPayload{
		OrderID:     order.ID,
		UserID:      order.UserID,
		FullName:    order.FullName,
		Phone:       order.Phone,
		ServiceID:   order.ServiceID,
		ServiceName: order.ServiceName,
		BarberID:    order.BarberID,
		BarberName:  order.BarberName,
		Date:        order.Date,
		Time:        order.Time,
		CancelledBy: cancelledBy,
	})
}

func (s *BookingService) publish(eventType string, payload interface{}) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("publish event error")
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

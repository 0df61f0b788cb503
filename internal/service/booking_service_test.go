package service

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"barberbot/internal/booking"
	"barberbot/internal/database"
	"barberbot/internal/events"
	"barberbot/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = zerolog.New(io.Discard)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewDB(":memory:", &testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testUniverse(t *testing.T) booking.Universe {
	t.Helper()
	u, err := booking.NewUniverse("10:00", "17:00", time.Hour)
	require.NoError(t, err)
	return u
}

func fixedClock(year int, month time.Month, day, hour int) func() time.Time {
	return func() time.Time { return time.Date(year, month, day, hour, 0, 0, 0, time.UTC) }
}

type fixture struct {
	db      *database.DB
	bus     *events.EventBus
	svc     *BookingService
	notify  *NotificationService
	service *models.Service
	barber  *models.Barber
}

// newFixture opens a store with one service and one barber and a booking
// service whose clock reads 2025-01-09 12:00 UTC.
func newFixture(t *testing.T, db *database.DB) *fixture {
	t.Helper()
	ctx := context.Background()

	haircut := &models.Service{Name: "Haircut", Price: 50000, Duration: "40 daqiqa"}
	require.NoError(t, db.CreateService(ctx, haircut))
	aliyev := &models.Barber{Name: "Aliyev", Phone: "+998901112233", TelegramID: 500}
	require.NoError(t, db.CreateBarber(ctx, aliyev))

	bus := events.NewEventBus()
	svc := NewBookingService(db, bus, testUniverse(t), 3, time.UTC, &testLogger)
	svc.SetClock(fixedClock(2025, 1, 9, 12))

	notify := NewNotificationService(db, []int64{900}, &testLogger)
	notify.Subscribe(bus)

	return &fixture{db: db, bus: bus, svc: svc, notify: notify, service: haircut, barber: aliyev}
}

func (f *fixture) request(userID int64, date, tm string) CommitRequest {
	return CommitRequest{
		UserID:    userID,
		ServiceID: f.service.ID,
		BarberID:  f.barber.ID,
		Date:      date,
		Time:      tm,
		FullName:  "Vali Aliyev",
		Phone:     "+998901234567",
	}
}

func countOrders(t *testing.T, db *database.DB) int {
	t.Helper()
	n, err := db.CountOrders(context.Background())
	require.NoError(t, err)
	return n
}

func TestFreeSlotsWithoutOrdersIsTheUniverse(t *testing.T) {
	f := newFixture(t, newTestDB(t))

	free, err := f.svc.FreeSlots(context.Background(), f.barber.ID, "2025-01-10")
	require.NoError(t, err)
	assert.Equal(t, []string(testUniverse(t)), free)

	_, err = f.svc.FreeSlots(context.Background(), 999, "2025-01-10")
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestCommitScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, newTestDB(t))

	order, err := f.svc.Commit(ctx, f.request(1, "2025-01-10", "14:00"))
	require.NoError(t, err)
	assert.Equal(t, "Haircut", order.ServiceName)
	assert.Equal(t, "Aliyev", order.BarberName)
	assert.Equal(t, "2025-01-09", order.BookedDate)
	assert.Equal(t, "12:00", order.BookedTime)

	free, err := f.svc.FreeSlots(ctx, f.barber.ID, "2025-01-10")
	require.NoError(t, err)
	assert.NotContains(t, free, "14:00")
	assert.Len(t, free, len(testUniverse(t))-1)

	_, err = f.svc.Commit(ctx, f.request(2, "2025-01-10", "14:00"))
	assert.ErrorIs(t, err, database.ErrSlotTaken)
	assert.Equal(t, 1, countOrders(t, f.db))
}

func TestCommitQueuesBarberAndAdminNotifications(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, newTestDB(t))

	_, err := f.svc.Commit(ctx, f.request(1, "2025-01-10", "14:00"))
	require.NoError(t, err)

	inbox, err := f.db.PendingForBarber(ctx, f.barber.ID)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, int64(500), inbox[0].ChatID)
	assert.Equal(t, models.KindOrderCreated, inbox[0].Kind)
	assert.Contains(t, inbox[0].Text, "10.01.2025")

	due, err := f.db.DueNotifications(ctx, time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	assert.Len(t, due, 2, "barber inbox row and admin row")
}

func TestConcurrentCommitsOneWinner(t *testing.T) {
	ctx := context.Background()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "race.db"), &testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	f := newFixture(t, db)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Commit(ctx, f.request(int64(i+1), "2025-01-10", "14:00"))
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, database.ErrSlotTaken)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, countOrders(t, db))
}

func TestCommitIdentityResolution(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, newTestDB(t))

	req := f.request(7, "2025-01-10", "11:00")
	req.FullName, req.Phone = "", ""

	_, err := f.svc.Commit(ctx, req)
	assert.ErrorIs(t, err, ErrIdentityMissing)
	assert.Zero(t, countOrders(t, f.db))

	require.NoError(t, f.db.UpsertUser(ctx, &models.User{TelegramID: 7, FullName: "Karim", Phone: "+998907654321"}))
	order, err := f.svc.Commit(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "Karim", order.FullName)
	assert.Equal(t, "+998907654321", order.Phone)

	require.NoError(t, f.db.UpsertUser(ctx, &models.User{TelegramID: 8, FullName: "No Phone"}))
	req = f.request(8, "2025-01-10", "12:00")
	req.FullName, req.Phone = "", ""
	_, err = f.svc.Commit(ctx, req)
	assert.ErrorIs(t, err, ErrIdentityMissing)
}

func TestCommitRejectsUnbookableSlots(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, newTestDB(t))

	tests := []struct {
		name string
		date string
		time string
		want error
	}{
		{"yesterday", "2025-01-08", "14:00", ErrPastSlot},
		{"earlier today", "2025-01-09", "11:00", ErrPastSlot},
		{"current hour", "2025-01-09", "12:00", ErrPastSlot},
		{"off grid", "2025-01-10", "14:30", ErrInvalidSlot},
		{"after closing", "2025-01-10", "18:00", ErrInvalidSlot},
		{"beyond window", "2025-01-12", "14:00", ErrInvalidSlot},
		{"bad date", "10.01.2025", "14:00", ErrInvalidSlot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Commit(ctx, f.request(1, tt.date, tt.time))
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Zero(t, countOrders(t, f.db))

	_, err := f.svc.Commit(ctx, f.request(1, "2025-01-09", "13:00"))
	assert.NoError(t, err, "later today is fine")
}

func TestCommitMissingReferences(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, newTestDB(t))

	req := f.request(1, "2025-01-10", "14:00")
	req.ServiceID = 999
	_, err := f.svc.Commit(ctx, req)
	assert.ErrorIs(t, err, database.ErrNotFound)

	req = f.request(1, "2025-01-10", "14:00")
	req.BarberID = 999
	_, err = f.svc.Commit(ctx, req)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestCommitPausedBarber(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, newTestDB(t))
	require.NoError(t, f.svc.Pause(ctx, f.barber.ID))

	free, err := f.svc.FreeSlots(ctx, f.barber.ID, "2025-01-10")
	require.NoError(t, err)
	assert.Empty(t, free)

	_, err = f.svc.Commit(ctx, f.request(1, "2025-01-10", "14:00"))
	assert.ErrorIs(t, err, database.ErrBarberPaused)

	require.NoError(t, f.svc.Resume(ctx, f.barber.ID))
	_, err = f.svc.Commit(ctx, f.request(1, "2025-01-10", "14:00"))
	assert.NoError(t, err)
}

func TestAvailableSlotsHidesPastTimesToday(t *testing.T) {
	f := newFixture(t, newTestDB(t))

	slots, err := f.svc.AvailableSlots(context.Background(), f.barber.ID, "2025-01-09")
	require.NoError(t, err)
	assert.Equal(t, []string{"13:00", "14:00", "15:00", "16:00", "17:00"}, slots)
}

func TestBookingDates(t *testing.T) {
	f := newFixture(t, newTestDB(t))
	assert.Equal(t, []string{"2025-01-09", "2025-01-10", "2025-01-11"}, f.svc.BookingDates())
}

func TestCancelTwiceIsNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, newTestDB(t))

	order, err := f.svc.Commit(ctx, f.request(1, "2025-01-10", "14:00"))
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, 1, order.ID, models.ScopeAll)
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, 1, order.ID, models.ScopeAll)
	assert.ErrorIs(t, err, database.ErrNotFound)

	free, err := f.svc.FreeSlots(ctx, f.barber.ID, "2025-01-10")
	require.NoError(t, err)
	assert.Equal(t, []string(testUniverse(t)), free, "cancel frees the slot again")
}

func TestCancelChecksOwnerAndScope(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, newTestDB(t))

	today, err := f.svc.Commit(ctx, f.request(1, "2025-01-09", "15:00"))
	require.NoError(t, err)
	tomorrow, err := f.svc.Commit(ctx, f.request(1, "2025-01-10", "15:00"))
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, 2, today.ID, models.ScopeAll)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Cancel(ctx, 1, tomorrow.ID, models.ScopeToday)
	assert.ErrorIs(t, err, ErrOutOfScope)
	_, err = f.svc.Cancel(ctx, 1, today.ID, models.ScopeFuture)
	assert.ErrorIs(t, err, ErrOutOfScope)
	_, err = f.svc.Cancel(ctx, 1, today.ID, "yesterday")
	assert.ErrorIs(t, err, ErrInvalidScope)
	assert.Equal(t, 2, countOrders(t, f.db))

	list, err := f.svc.UserOrders(ctx, 1, models.ScopeFuture)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, tomorrow.ID, list[0].ID)

	_, err = f.svc.Cancel(ctx, 1, today.ID, models.ScopeToday)
	assert.NoError(t, err)
	_, err = f.svc.Cancel(ctx, 1, tomorrow.ID, models.ScopeFuture)
	assert.NoError(t, err)
	assert.Zero(t, countOrders(t, f.db))
}

func TestAdminDeleteOrderNotifiesCustomer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, newTestDB(t))

	order, err := f.svc.Commit(ctx, f.request(42, "2025-01-10", "14:00"))
	require.NoError(t, err)

	_, err = f.svc.DeleteOrder(ctx, order.ID)
	require.NoError(t, err)
	_, err = f.svc.DeleteOrder(ctx, order.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)

	var n int
	require.NoError(t, f.db.QueryRow(
		`SELECT COUNT(*) FROM notifications WHERE chat_id = 42 AND kind = ?`, models.KindOrderCancelled,
	).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestAbandonedSessionLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, newTestDB(t))

	before, err := f.svc.FreeSlots(ctx, f.barber.ID, "2025-01-10")
	require.NoError(t, err)

	s := booking.NewSession(1, "Vali", "+998901234567", f.service.ID)
	require.NoError(t, s.SelectBarber(f.barber.ID))
	require.NoError(t, s.SelectDate("2025-01-10"))
	require.NoError(t, s.SelectTime("14:00"))
	require.Equal(t, booking.StateAwaitingConfirmation, s.State)
	require.NoError(t, s.Cancel())

	assert.Zero(t, countOrders(t, f.db))
	after, err := f.svc.FreeSlots(ctx, f.barber.ID, "2025-01-10")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestPauseTodayCancelsAndNotifies(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, newTestDB(t))
	f.svc.SetClock(fixedClock(2025, 1, 10, 9))

	_, err := f.svc.Commit(ctx, f.request(11, "2025-01-10", "11:00"))
	require.NoError(t, err)
	_, err = f.svc.Commit(ctx, f.request(12, "2025-01-10", "15:00"))
	require.NoError(t, err)
	tomorrow, err := f.svc.Commit(ctx, f.request(13, "2025-01-11", "15:00"))
	require.NoError(t, err)

	removed, err := f.svc.PauseToday(ctx, f.barber.ID)
	require.NoError(t, err)
	assert.Len(t, removed, 2)

	orders, err := f.svc.OrdersOn(ctx, "2025-01-10")
	require.NoError(t, err)
	assert.Empty(t, orders)
	_, err = f.db.GetOrder(ctx, tomorrow.ID)
	assert.NoError(t, err, "other days are untouched")

	barber, err := f.db.GetBarber(ctx, f.barber.ID)
	require.NoError(t, err)
	assert.True(t, barber.IsPaused)

	free, err := f.svc.FreeSlots(ctx, f.barber.ID, "2025-01-10")
	require.NoError(t, err)
	assert.Empty(t, free)
	free, err = f.svc.FreeSlots(ctx, f.barber.ID, "2025-01-11")
	require.NoError(t, err)
	assert.NotEmpty(t, free)

	for _, userID := range []int64{11, 12} {
		var n int
		require.NoError(t, f.db.QueryRow(
			`SELECT COUNT(*) FROM notifications WHERE chat_id = ? AND kind = ?`, userID, models.KindDayCancelled,
		).Scan(&n))
		assert.Equal(t, 1, n, "user %d notified", userID)
	}
}

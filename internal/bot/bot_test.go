package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"barberbot/internal/booking"
	"barberbot/internal/config"
	"barberbot/internal/database"
	"barberbot/internal/domain"
	"barberbot/internal/events"
	"barberbot/internal/metrics"
	"barberbot/internal/models"
	"barberbot/internal/repository"
	"barberbot/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const (
	adminID  = int64(900)
	barberTG = int64(500)
)

type sentMessage struct {
	chatID int64
	text   string
}

type mockTelegramService struct {
	domain.TelegramService
	updatesChan chan tgbotapi.Update

	mu        sync.Mutex
	sent      []sentMessage
	answers   []string
	documents []string
}

func (m *mockTelegramService) record(chatID int64, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{chatID: chatID, text: text})
}

func (m *mockTelegramService) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return m.updatesChan
}

func (m *mockTelegramService) GetSelf() tgbotapi.User {
	return tgbotapi.User{UserName: "test_bot"}
}

func (m *mockTelegramService) StopReceivingUpdates() {}

func (m *mockTelegramService) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		m.record(msg.ChatID, msg.Text)
	}
	return tgbotapi.Message{}, nil
}

func (m *mockTelegramService) SendHTML(chatID int64, text string) (tgbotapi.Message, error) {
	m.record(chatID, text)
	return tgbotapi.Message{}, nil
}

func (m *mockTelegramService) SendWithInlineKeyboard(chatID int64, text string, _ tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	m.record(chatID, text)
	return tgbotapi.Message{}, nil
}

func (m *mockTelegramService) EditMessage(chatID int64, _ int, text string, _ *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	m.record(chatID, text)
	return tgbotapi.Message{}, nil
}

func (m *mockTelegramService) SendLocation(int64, float64, float64) (tgbotapi.Message, error) {
	return tgbotapi.Message{}, nil
}

func (m *mockTelegramService) SendDocument(_ int64, path, _ string) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents = append(m.documents, path)
	return tgbotapi.Message{}, nil
}

func (m *mockTelegramService) AnswerCallback(_ string, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answers = append(m.answers, text)
	return nil
}

func (m *mockTelegramService) lastText(chatID int64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].chatID == chatID {
			return m.sent[i].text
		}
	}
	return ""
}

func (m *mockTelegramService) texts(chatID int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.sent {
		if s.chatID == chatID {
			out = append(out, s.text)
		}
	}
	return out
}

type fakeInbox struct {
	mu      sync.Mutex
	flushed []int64
}

func (f *fakeInbox) FlushBarber(_ context.Context, barberID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushed = append(f.flushed, barberID)
	return 0, nil
}

type harness struct {
	bot     *Bot
	tg      *mockTelegramService
	db      *database.DB
	booking *service.BookingService
	state   *service.StateService
	inbox   *fakeInbox
	service *models.Service
	barber  *models.Barber
}

func newHarness(t *testing.T, mutate func(cfg *config.Config)) *harness {
	t.Helper()
	ctx := context.Background()
	logger := zerolog.New(io.Discard)

	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	haircut := &models.Service{Name: "Haircut", Price: 50000, Duration: "40 daqiqa"}
	require.NoError(t, db.CreateService(ctx, haircut))
	aliyev := &models.Barber{Name: "Aliyev", Phone: "+998901112233", TelegramID: barberTG}
	require.NoError(t, db.CreateBarber(ctx, aliyev))
	require.NoError(t, db.LinkBarberService(ctx, aliyev.ID, haircut.ID))

	cfg := &config.Config{Admins: []int64{adminID}}
	cfg.App.Name = "Test Barber"
	cfg.Exports.Path = t.TempDir()
	cfg.Exports.Days = 7
	if mutate != nil {
		mutate(cfg)
	}

	universe, err := booking.NewUniverse("10:00", "17:00", time.Hour)
	require.NoError(t, err)

	bus := events.NewEventBus()
	bookingSvc := service.NewBookingService(db, bus, universe, 3, time.UTC, &logger)
	bookingSvc.SetClock(func() time.Time { return time.Date(2025, 1, 9, 12, 0, 0, 0, time.UTC) })

	notify := service.NewNotificationService(db, cfg.Admins, &logger)
	notify.Subscribe(bus)

	tg := &mockTelegramService{updatesChan: make(chan tgbotapi.Update, 4)}
	state := service.NewStateService(repository.NewMemoryStateRepository(time.Hour), time.Minute, &logger)
	inbox := &fakeInbox{}

	b := NewBot(tg, cfg, Services{
		Booking:      bookingSvc,
		Catalog:      service.NewCatalogService(db, bookingSvc.Today, &logger),
		Users:        service.NewUserService(db, cfg, &logger),
		State:        state,
		Notification: notify,
		Broadcast:    service.NewBroadcastService(db, tg, 1000, &logger),
		Inbox:        inbox,
	}, metrics.New(prometheus.NewRegistry()), &logger)
	t.Cleanup(b.wg.Wait)

	return &harness{
		bot: b, tg: tg, db: db, booking: bookingSvc, state: state, inbox: inbox,
		service: haircut, barber: aliyev,
	}
}

func commandUpdate(userID int64, text string) tgbotapi.Update {
	cmd, _, _ := strings.Cut(text, " ")
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: userID},
		Chat:     &tgbotapi.Chat{ID: userID},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}}
}

func callbackUpdate(userID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{MessageID: 10, Chat: &tgbotapi.Chat{ID: userID}},
		Data:    data,
	}}
}

func (h *harness) send(u tgbotapi.Update) {
	h.bot.processUpdate(context.Background(), u)
}

// toConfirmation walks userID through the booking steps up to the confirm
// screen for date/tm.
func (h *harness) toConfirmation(t *testing.T, userID int64, date, tm string) {
	t.Helper()
	require.NoError(t, h.bot.users.SaveIdentity(context.Background(), userID, "", "Vali Aliyev", "+998901234567"))

	h.send(commandUpdate(userID, "/book"))
	h.send(callbackUpdate(userID, booking.EncodeService(h.service.ID)))
	h.send(callbackUpdate(userID, booking.EncodeBarber(h.barber.ID)))
	h.send(callbackUpdate(userID, booking.EncodeDate(date)))
	h.send(callbackUpdate(userID, booking.EncodeTime(tm)))

	session, err := h.state.Session(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, session)
	require.Equal(t, booking.StateAwaitingConfirmation, session.State)
}

func (h *harness) confirmData(date, tm string) string {
	return booking.Confirmation{ServiceID: h.service.ID, BarberID: h.barber.ID, Date: date, Time: tm}.Encode()
}

func (h *harness) orderCount(t *testing.T) int {
	t.Helper()
	n, err := h.db.CountOrders(context.Background())
	require.NoError(t, err)
	return n
}

func TestBookingFlowCommitsOrder(t *testing.T) {
	h := newHarness(t, nil)

	h.toConfirmation(t, 1, "2025-01-10", "14:00")
	assert.Contains(t, h.tg.lastText(1), "Vali Aliyev")

	h.send(callbackUpdate(1, h.confirmData("2025-01-10", "14:00")))

	assert.Equal(t, 1, h.orderCount(t))
	last := h.tg.lastText(1)
	assert.Contains(t, last, "Haircut")
	assert.Contains(t, last, "14:00")

	session, err := h.state.Session(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, session, "session is gone after commit")
}

func TestMalformedConfirmationStoresNothing(t *testing.T) {
	h := newHarness(t, nil)

	h.send(callbackUpdate(1, "confirm_1_2"))

	assert.Equal(t, textReselect, h.tg.lastText(1))
	assert.Equal(t, 0, h.orderCount(t))
}

func TestSlotTakenWhileConfirming(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	h.toConfirmation(t, 2, "2025-01-10", "14:00")
	_, err := h.booking.Commit(ctx, service.CommitRequest{
		UserID: 3, ServiceID: h.service.ID, BarberID: h.barber.ID,
		Date: "2025-01-10", Time: "14:00", FullName: "Ali Valiyev", Phone: "+998907654321",
	})
	require.NoError(t, err)

	h.send(callbackUpdate(2, h.confirmData("2025-01-10", "14:00")))

	assert.Equal(t, 1, h.orderCount(t))
	assert.True(t, strings.HasPrefix(h.tg.lastText(2), textSlotTaken))

	session, err := h.state.Session(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, booking.StateAwaitingTime, session.State)
}

func TestTakenTimeStaysOnTimeStep(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.bot.users.SaveIdentity(ctx, 4, "", "Vali Aliyev", "+998901234567"))

	h.send(commandUpdate(4, "/book"))
	h.send(callbackUpdate(4, booking.EncodeService(h.service.ID)))
	h.send(callbackUpdate(4, booking.EncodeBarber(h.barber.ID)))
	h.send(callbackUpdate(4, booking.EncodeDate("2025-01-10")))

	_, err := h.booking.Commit(ctx, service.CommitRequest{
		UserID: 3, ServiceID: h.service.ID, BarberID: h.barber.ID,
		Date: "2025-01-10", Time: "15:00", FullName: "Ali Valiyev", Phone: "+998907654321",
	})
	require.NoError(t, err)

	h.send(callbackUpdate(4, booking.EncodeTime("15:00")))

	session, err := h.state.Session(ctx, 4)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, booking.StateAwaitingTime, session.State)
	assert.True(t, strings.HasPrefix(h.tg.lastText(4), textSlotTaken))
}

func TestStaleStepButtonRerendersCurrentStep(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.bot.users.SaveIdentity(context.Background(), 5, "", "Vali Aliyev", "+998901234567"))

	h.send(commandUpdate(5, "/book"))
	h.send(callbackUpdate(5, booking.EncodeDate("2025-01-10")))

	session, err := h.state.Session(context.Background(), 5)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, booking.StateAwaitingService, session.State)
	assert.Equal(t, textChooseService, h.tg.lastText(5))
	assert.Contains(t, h.tg.answers, textStaleButton)
}

func TestIdentityCollection(t *testing.T) {
	h := newHarness(t, nil)

	h.send(commandUpdate(6, "/book"))
	assert.Equal(t, textAskName, h.tg.lastText(6))

	h.send(tgbotapi.Update{Message: &tgbotapi.Message{From: &tgbotapi.User{ID: 6}, Chat: &tgbotapi.Chat{ID: 6}, Text: "Vali Aliyev"}})
	assert.Equal(t, textAskPhone, h.tg.lastText(6))

	h.send(tgbotapi.Update{Message: &tgbotapi.Message{From: &tgbotapi.User{ID: 6}, Chat: &tgbotapi.Chat{ID: 6}, Text: "12345"}})
	assert.Equal(t, textBadPhone, h.tg.lastText(6))

	h.send(tgbotapi.Update{Message: &tgbotapi.Message{
		From:    &tgbotapi.User{ID: 6},
		Chat:    &tgbotapi.Chat{ID: 6},
		Contact: &tgbotapi.Contact{PhoneNumber: "998 90 123 45 67", UserID: 6},
	}})
	assert.Equal(t, textChooseService, h.tg.lastText(6))

	user, err := h.bot.users.FindUser(context.Background(), 6)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "+998901234567", user.Phone)
}

func TestPanelPauseCancelsTodaysOrders(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.booking.SetClock(func() time.Time { return time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC) })

	for i, tm := range []string{"10:00", "11:00"} {
		_, err := h.booking.Commit(ctx, service.CommitRequest{
			UserID: int64(i + 1), ServiceID: h.service.ID, BarberID: h.barber.ID,
			Date: "2025-01-10", Time: tm, FullName: "Vali Aliyev", Phone: "+998901234567",
		})
		require.NoError(t, err)
	}

	h.send(commandUpdate(barberTG, "/panel"))
	assert.Contains(t, h.tg.lastText(barberTG), "10:00")
	assert.Equal(t, []int64{h.barber.ID}, h.inbox.flushed)

	h.send(callbackUpdate(barberTG, callbackPanelPause))

	assert.Equal(t, 0, h.orderCount(t))
	barber, err := h.db.GetBarber(ctx, h.barber.ID)
	require.NoError(t, err)
	assert.True(t, barber.PausedOn("2025-01-10"))

	due, err := h.db.DueNotifications(ctx, time.Now().Add(time.Minute), 50)
	require.NoError(t, err)
	notified := map[int64]bool{}
	for _, n := range due {
		if n.Kind == models.KindDayCancelled {
			notified[n.ChatID] = true
		}
	}
	assert.Equal(t, map[int64]bool{1: true, 2: true}, notified)

	h.send(callbackUpdate(barberTG, callbackPanelResume))
	barber, err = h.db.GetBarber(ctx, h.barber.ID)
	require.NoError(t, err)
	assert.False(t, barber.PausedOn("2025-01-10"))
}

func TestPanelRefusesNonBarber(t *testing.T) {
	h := newHarness(t, nil)

	h.send(commandUpdate(1, "/panel"))
	assert.Equal(t, textNotBarber, h.tg.lastText(1))

	h.send(commandUpdate(1, "/notify hello everyone"))
	assert.Equal(t, textNotBarber, h.tg.lastText(1))
}

func TestBarberNotifyQueuesClientMessages(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	_, err := h.booking.Commit(ctx, service.CommitRequest{
		UserID: 1, ServiceID: h.service.ID, BarberID: h.barber.ID,
		Date: "2025-01-09", Time: "15:00", FullName: "Vali Aliyev", Phone: "+998901234567",
	})
	require.NoError(t, err)

	h.send(commandUpdate(barberTG, "/notify 15 daqiqa kechikaman"))
	assert.Contains(t, h.tg.lastText(barberTG), "1")

	due, err := h.db.DueNotifications(ctx, time.Now().Add(time.Minute), 50)
	require.NoError(t, err)
	var found bool
	for _, n := range due {
		if n.Kind == models.KindBarberMessage && n.ChatID == 1 {
			found = true
		}
	}
	assert.True(t, found)
}

func TestAdminCommandsRequireAdmin(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	h.send(commandUpdate(1, "/addservice Shave | 30000 | 20 daqiqa"))
	assert.Equal(t, textNoPermission, h.tg.lastText(1))
	services, err := h.db.ListServices(ctx)
	require.NoError(t, err)
	assert.Len(t, services, 1)

	h.send(commandUpdate(adminID, "/addservice Shave | 30000 | 20 daqiqa"))
	assert.Contains(t, h.tg.lastText(adminID), "Shave")
	services, err = h.db.ListServices(ctx)
	require.NoError(t, err)
	assert.Len(t, services, 2)

	h.send(commandUpdate(adminID, "/link 1"))
	assert.Contains(t, h.tg.lastText(adminID), "/link")
}

func TestOrdersCommandDependsOnRole(t *testing.T) {
	h := newHarness(t, nil)

	h.send(commandUpdate(1, "/orders"))
	assert.Equal(t, textChooseScope, h.tg.lastText(1))

	h.send(commandUpdate(adminID, "/orders"))
	assert.Contains(t, h.tg.lastText(adminID), "09.01.2025")
}

func TestUserCancelsOwnOrder(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	order, err := h.booking.Commit(ctx, service.CommitRequest{
		UserID: 1, ServiceID: h.service.ID, BarberID: h.barber.ID,
		Date: "2025-01-10", Time: "10:00", FullName: "Vali Aliyev", Phone: "+998901234567",
	})
	require.NoError(t, err)

	h.send(callbackUpdate(2, orderCancelData(models.ScopeAll, order.ID)))
	assert.Equal(t, 1, h.orderCount(t), "someone else's order stays")

	h.send(callbackUpdate(1, orderCancelData(models.ScopeAll, order.ID)))
	assert.Equal(t, 0, h.orderCount(t))
	assert.True(t, strings.HasPrefix(h.tg.lastText(1), textOrderCancelled))
}

func TestExportSendsWorkbook(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.booking.Commit(context.Background(), service.CommitRequest{
		UserID: 1, ServiceID: h.service.ID, BarberID: h.barber.ID,
		Date: "2025-01-10", Time: "10:00", FullName: "Vali Aliyev", Phone: "+998901234567",
	})
	require.NoError(t, err)

	h.send(commandUpdate(adminID, "/export"))

	require.Len(t, h.tg.documents, 1)
	assert.NoFileExists(t, h.tg.documents[0], "export file is removed after sending")
}

func TestWriteOrdersWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.xlsx")
	orders := []models.Order{
		{ID: 1, Date: "2025-01-10", Time: "10:00", ServiceName: "Haircut", BarberName: "Aliyev", FullName: "Vali", Phone: "+998901234567"},
		{ID: 2, Date: "2025-01-10", Time: "11:00", ServiceName: "Haircut", BarberName: "Aliyev", FullName: "Ali", Phone: "+998907654321"},
		{ID: 3, Date: "2025-01-11", Time: "10:00", ServiceName: "Shave", BarberName: "Karimov", FullName: "Vali", Phone: "+998901234567"},
	}
	require.NoError(t, writeOrdersWorkbook(path, orders, 8))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(ordersSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "10.01.2025", rows[1][1])
	assert.Equal(t, "11:00", rows[2][2])

	v, err := f.GetCellValue(scheduleSheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "2/8", v)
	v, err = f.GetCellValue(scheduleSheet, "C3")
	require.NoError(t, err)
	assert.Equal(t, "1/8", v)
}

func TestRateLimitSparesAdmins(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) {
		cfg.Bot.RateLimitMessages = 1
		cfg.Bot.RateLimitWindow = 60
	})

	h.send(commandUpdate(1, "/orders"))
	h.send(commandUpdate(1, "/orders"))
	assert.Equal(t, textRateLimited, h.tg.lastText(1))

	h.send(commandUpdate(adminID, "/admin"))
	h.send(commandUpdate(adminID, "/admin"))
	assert.NotContains(t, h.tg.texts(adminID), textRateLimited)
}

func TestBlacklistedUserIsIgnored(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) { cfg.Blacklist = []int64{13} })

	h.send(commandUpdate(13, "/start"))
	assert.Empty(t, h.tg.texts(13))
}

type clearFailingRepo struct {
	*repository.MemoryStateRepository
}

func (r clearFailingRepo) ClearSession(context.Context, int64) error {
	return errors.New("redis: connection refused")
}

func TestCancelLogsSessionClearFailure(t *testing.T) {
	h := newHarness(t, nil)
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	h.bot.logger = &logger
	h.bot.state = service.NewStateService(clearFailingRepo{repository.NewMemoryStateRepository(time.Hour)}, time.Minute, &logger)

	h.send(commandUpdate(1, "/book"))
	h.send(callbackUpdate(1, booking.CallbackCancel))

	assert.Equal(t, textBookingCancelled, h.tg.lastText(1))
	assert.Contains(t, buf.String(), "Failed to clear session")
	assert.Contains(t, buf.String(), "connection refused")
}

func TestWithRecovery(t *testing.T) {
	h := newHarness(t, nil)
	assert.NotPanics(t, func() {
		h.bot.withRecovery(func() { panic("boom") })
	})
}

func TestStartHandlesUpdatesUntilCancelled(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.bot.Start(ctx)
		close(done)
	}()

	h.tg.updatesChan <- commandUpdate(1, "/start")
	assert.Eventually(t, func() bool {
		return strings.Contains(h.tg.lastText(1), "Test Barber")
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func textUpdate(userID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: userID},
		Text: text,
	}}
}

func TestStartKeepsOneUsersUpdatesInOrder(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) { cfg.Bot.Workers = 4 })
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.bot.Start(ctx)
		close(done)
	}()

	h.tg.updatesChan <- commandUpdate(6, "/book")
	h.tg.updatesChan <- textUpdate(6, "Vali Aliyev")
	h.tg.updatesChan <- textUpdate(6, "+998901234567")

	assert.Eventually(t, func() bool {
		return h.tg.lastText(6) == textChooseService
	}, 2*time.Second, 10*time.Millisecond)

	user, err := h.bot.users.FindUser(context.Background(), 6)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "Vali Aliyev", user.FullName)
	assert.Equal(t, "+998901234567", user.Phone)
	texts := h.tg.texts(6)
	require.GreaterOrEqual(t, len(texts), 2)
	assert.Equal(t, []string{textAskName, textAskPhone}, texts[:2])
	assert.NotContains(t, texts, textBadName)

	cancel()
	<-done
}

func TestShardForIsStablePerUser(t *testing.T) {
	msg := commandUpdate(13, "/start")
	cb := callbackUpdate(13, "back")
	assert.Equal(t, shardFor(msg, 4), shardFor(cb, 4), "messages and callbacks of one user share a worker")
	assert.Equal(t, 1, shardFor(msg, 4))
	assert.NotEqual(t, shardFor(commandUpdate(14, "/start"), 4), shardFor(msg, 4))
	assert.Equal(t, 0, shardFor(tgbotapi.Update{}, 4))
}

func TestOrderCancelData(t *testing.T) {
	scope, id, err := parseOrderCancel(orderCancelData(models.ScopeFuture, 42))
	require.NoError(t, err)
	assert.Equal(t, models.ScopeFuture, scope)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"ocancel_", "ocancel_future", "ocancel_future_x", "ocancel_never_1"} {
		_, _, err := parseOrderCancel(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatPrice(t *testing.T) {
	tests := map[int64]string{
		0:       "0 so'm",
		500:     "500 so'm",
		50000:   "50 000 so'm",
		1250000: "1 250 000 so'm",
	}
	for price, want := range tests {
		assert.Equal(t, want, formatPrice(price), fmt.Sprint(price))
	}
}

func TestUntilNext(t *testing.T) {
	now := time.Date(2025, 1, 9, 8, 30, 0, 0, time.UTC)
	assert.Equal(t, 30*time.Minute, untilNext(now, 9, 0))
	assert.Equal(t, 23*time.Hour+30*time.Minute, untilNext(now, 8, 0))

	h, m, err := parseClock("18:45")
	require.NoError(t, err)
	assert.Equal(t, 18, h)
	assert.Equal(t, 45, m)

	_, _, err = parseClock("25:00")
	assert.Error(t, err)
}

func TestLastExportDate(t *testing.T) {
	assert.Equal(t, "2025-01-15", lastExportDate("2025-01-09", 7))
	assert.Equal(t, "2025-01-09", lastExportDate("2025-01-09", 0))
}

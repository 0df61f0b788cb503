package domain

import (
	"context"
	"time"

	"barberbot/internal/booking"
	"barberbot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type CatalogRepository interface {
	CreateService(ctx context.Context, service *models.Service) error
	UpdateService(ctx context.Context, service *models.Service) error
	GetService(ctx context.Context, id int64) (*models.Service, error)
	ListServices(ctx context.Context) ([]models.Service, error)
	DeleteService(ctx context.Context, id int64, fromDate string) error

	CreateBarber(ctx context.Context, barber *models.Barber) error
	UpdateBarber(ctx context.Context, barber *models.Barber) error
	GetBarber(ctx context.Context, id int64) (*models.Barber, error)
	GetBarberByTelegramID(ctx context.Context, telegramID int64) (*models.Barber, error)
	ListBarbers(ctx context.Context) ([]models.Barber, error)
	ListBarbersForService(ctx context.Context, serviceID int64) ([]models.Barber, error)
	DeleteBarber(ctx context.Context, id int64, fromDate string) error
	SetBarberPaused(ctx context.Context, id int64, paused bool, date string) error
	LinkBarberService(ctx context.Context, barberID, serviceID int64) error
}

type OrderRepository interface {
	BookedTimes(ctx context.Context, barberID int64, date string) ([]string, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	DeleteOrder(ctx context.Context, id int64) error
	ListUserOrders(ctx context.Context, userID int64, from, to string) ([]models.Order, error)
	ListOrdersByDate(ctx context.Context, date string) ([]models.Order, error)
	ListBarberOrders(ctx context.Context, barberID int64, date string) ([]models.Order, error)
	ListUpcomingOrders(ctx context.Context, from string) ([]models.Order, error)
	PauseBarberDay(ctx context.Context, barberID int64, date string) ([]models.Order, error)
}

type UserRepository interface {
	UpsertUser(ctx context.Context, user *models.User) error
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	UpdateUserActivity(ctx context.Context, telegramID int64) error
	ListUserTelegramIDs(ctx context.Context) ([]int64, error)
}

type NotificationRepository interface {
	EnqueueNotification(ctx context.Context, n *models.Notification) error
	DueNotifications(ctx context.Context, now time.Time, limit int) ([]models.Notification, error)
	DueClientNotifications(ctx context.Context, now time.Time, limit int) ([]models.Notification, error)
	BarbersWithDueNotifications(ctx context.Context, now time.Time) ([]int64, error)
	DueBarberNotifications(ctx context.Context, barberID int64, now time.Time, limit int) ([]models.Notification, error)
	PendingForBarber(ctx context.Context, barberID int64) ([]models.Notification, error)
	MarkNotificationSent(ctx context.Context, id int64) error
	MarkNotificationRetry(ctx context.Context, id int64, attempts int, next time.Time, lastErr string) error
	MarkNotificationFailed(ctx context.Context, id int64, attempts int, lastErr string) error
}

// Repository is the whole relational store.
type Repository interface {
	CatalogRepository
	OrderRepository
	UserRepository
	NotificationRepository
}

// StateRepository keeps the short-lived per-user and per-barber state:
// booking sessions, rate limit windows and barber panel presence.
type StateRepository interface {
	GetSession(ctx context.Context, userID int64) (*booking.Session, error)
	SetSession(ctx context.Context, session *booking.Session) error
	ClearSession(ctx context.Context, userID int64) error
	CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error)
	TouchPresence(ctx context.Context, barberID int64, ttl time.Duration) error
	IsPresent(ctx context.Context, barberID int64) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}

// MessageSender is the outbound part of the chat platform used by workers.
type MessageSender interface {
	SendHTML(chatID int64, text string) (tgbotapi.Message, error)
}

type TelegramService interface {
	MessageSender
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	SendMessage(chatID int64, text string) (tgbotapi.Message, error)
	SendWithKeyboard(chatID int64, text string, keyboard tgbotapi.ReplyKeyboardMarkup) (tgbotapi.Message, error)
	SendWithInlineKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error)
	EditMessage(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error)
	SendDocument(chatID int64, path, caption string) (tgbotapi.Message, error)
	SendLocation(chatID int64, latitude, longitude float64) (tgbotapi.Message, error)
	AnswerCallback(callbackID string, text string) error
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}

package models

import "time"

const (
	NotificationPending = "pending"
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
)

const (
	KindOrderCreated   = "order_created"
	KindOrderCancelled = "order_cancelled"
	KindDayCancelled   = "day_cancelled"
	KindReminder       = "reminder"
	KindBarberMessage  = "barber_message"
)

// Notification is an outbox row. Rows with BarberID set belong to the
// barber's inbox and are only delivered while the barber is present.
type Notification struct {
	ID            int64      `json:"id"`
	ChatID        int64      `json:"chat_id"`
	BarberID      int64      `json:"barber_id"`
	Kind          string     `json:"kind"`
	Text          string     `json:"text"`
	Status        string     `json:"status"`
	Attempts      int        `json:"attempts"`
	LastError     *string    `json:"last_error"`
	NextAttemptAt time.Time  `json:"next_attempt_at"`
	CreatedAt     time.Time  `json:"created_at"`
	SentAt        *time.Time `json:"sent_at"`
}

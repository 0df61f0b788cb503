package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventOrderCreated   = "order_created"
	EventOrderCancelled = "order_cancelled"
	EventBarberPaused   = "barber_paused"
	EventBarberResumed  = "barber_resumed"
)

// OrderEventPayload is the order snapshot handed to event consumers.
type OrderEventPayload struct {
	OrderID     int64  `json:"order_id"`
	UserID      int64  `json:"user_id"`
	FullName    string `json:"fullname"`
	Phone       string `json:"phone"`
	ServiceID   int64  `json:"service_id"`
	ServiceName string `json:"service_name"`
	BarberID    int64  `json:"barber_id"`
	BarberName  string `json:"barber_name"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	// CancelledBy is "user", "admin" or "barber" on order_cancelled.
	CancelledBy string `json:"cancelled_by,omitempty"`
}

// BarberPausePayload describes a barber pause or resume.
type BarberPausePayload struct {
	BarberID  int64  `json:"barber_id"`
	Date      string `json:"date,omitempty"`
	Cancelled int    `json:"cancelled"`
}

// Event represents a lightweight domain event.
type Event struct {
	ID        int64
	Type      string
	Payload   []byte
	CreatedAt time.Time
	Processed bool
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; a failing handler does not stop the rest.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{Type: eventType, Payload: raw, CreatedAt: time.Now()}, nil
}

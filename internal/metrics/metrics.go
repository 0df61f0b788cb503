package metrics

import (
	"encoding/json"

	"barberbot/internal/events"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "barberbot"

// Metrics holds the bot's Prometheus collectors.
type Metrics struct {
	UpdatesProcessed       *prometheus.CounterVec
	UpdateProcessingTime   prometheus.Histogram
	ErrorsTotal            prometheus.Counter
	RateLimited            prometheus.Counter
	OrdersCreated          *prometheus.CounterVec
	OrdersCancelled        *prometheus.CounterVec
	SlotConflicts          prometheus.Counter
	BarberPauses           prometheus.Counter
	NotificationsDelivered *prometheus.CounterVec
	NotificationsFailed    *prometheus.CounterVec
	BroadcastMessages      *prometheus.CounterVec
}

// New registers the collectors with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UpdatesProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_processed_total",
			Help:      "Telegram updates handled, by kind.",
		}, []string{"kind"}),
		UpdateProcessingTime: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "update_processing_seconds",
			Help:      "Time spent processing one update.",
			Buckets:   prometheus.DefBuckets,
		}),
		ErrorsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Handler failures and recovered panics.",
		}),
		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Updates dropped by the per-user rate limit.",
		}),
		OrdersCreated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Committed orders, by service.",
		}, []string{"service"}),
		OrdersCancelled: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_cancelled_total",
			Help:      "Cancelled orders, by who cancelled them.",
		}, []string{"by"}),
		SlotConflicts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_conflicts_total",
			Help:      "Commits rejected because the slot was already taken.",
		}),
		BarberPauses: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "barber_pauses_total",
			Help:      "Times a barber stopped taking bookings.",
		}),
		NotificationsDelivered: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_delivered_total",
			Help:      "Outbox rows delivered, by kind.",
		}, []string{"kind"}),
		NotificationsFailed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_failed_total",
			Help:      "Outbox rows that ran out of attempts, by kind.",
		}, []string{"kind"}),
		BroadcastMessages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_messages_total",
			Help:      "Broadcast deliveries, by result.",
		}, []string{"result"}),
	}
}

// Subscribe counts order and pause events from the bus.
func (m *Metrics) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventOrderCreated, func(ev *events.Event) error {
		var p events.OrderEventPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		m.OrdersCreated.WithLabelValues(p.ServiceName).Inc()
		return nil
	})
	bus.Subscribe(events.EventOrderCancelled, func(ev *events.Event) error {
		var p events.OrderEventPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		m.OrdersCancelled.WithLabelValues(p.CancelledBy).Inc()
		return nil
	})
	bus.Subscribe(events.EventBarberPaused, func(*events.Event) error {
		m.BarberPauses.Inc()
		return nil
	})
}

func (m *Metrics) NotificationDelivered(kind string) {
	m.NotificationsDelivered.WithLabelValues(kind).Inc()
}

func (m *Metrics) NotificationFailed(kind string) {
	m.NotificationsFailed.WithLabelValues(kind).Inc()
}

func (m *Metrics) BroadcastResult(sent, failed int) {
	m.BroadcastMessages.WithLabelValues("sent").Add(float64(sent))
	m.BroadcastMessages.WithLabelValues("failed").Add(float64(failed))
}

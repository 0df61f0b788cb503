package worker

import (
	"time"

	"barberbot/internal/models"
)

// RetryPolicy spaces out delivery attempts of an outbox row. The wait starts
// at InitialDelay and grows by BackoffFactor per failure up to MaxDelay. A
// row that failed MaxRetries times is given up.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

func (r RetryPolicy) withDefaults() RetryPolicy {
	if r.MaxRetries <= 0 {
		r.MaxRetries = 5
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = 2 * time.Second
	}
	if r.MaxDelay <= 0 {
		r.MaxDelay = 5 * time.Minute
	}
	if r.BackoffFactor < 1 {
		r.BackoffFactor = 2
	}
	return r
}

// NextDelay is the wait after the given failure (1-based).
func (r RetryPolicy) NextDelay(failures int) time.Duration {
	delay := r.InitialDelay
	if delay <= 0 {
		delay = time.Second
	}
	factor := r.BackoffFactor
	if factor < 1 {
		factor = 2
	}

	for i := 1; i < failures; i++ {
		delay = time.Duration(float64(delay) * factor)
		if r.MaxDelay > 0 && delay >= r.MaxDelay {
			return r.MaxDelay
		}
	}
	if r.MaxDelay > 0 && delay > r.MaxDelay {
		delay = r.MaxDelay
	}
	return delay
}

// Exhausted reports whether a row with this many failed attempts is given up.
func (r RetryPolicy) Exhausted(attempts int) bool {
	return r.MaxRetries > 0 && attempts >= r.MaxRetries
}

// RecordFailure counts a failed delivery on n and either schedules the next
// attempt from failedAt or reports that the row is exhausted.
func (r RetryPolicy) RecordFailure(n *models.Notification, failedAt time.Time, cause error) (exhausted bool) {
	n.Attempts++
	msg := cause.Error()
	n.LastError = &msg

	if r.Exhausted(n.Attempts) {
		n.Status = models.NotificationFailed
		return true
	}
	n.NextAttemptAt = failedAt.Add(r.NextDelay(n.Attempts)).UTC()
	return false
}

package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"barberbot/internal/booking"
	"barberbot/internal/domain"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverStateRepository serves from primary (Redis) and switches to the
// fallback (memory) on the first error. The primary is retried once a
// minute.
type FailoverStateRepository struct {
	primary   domain.StateRepository
	fallback  domain.StateRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverStateRepository(primary, fallback domain.StateRepository, logger *zerolog.Logger) *FailoverStateRepository {
	return &FailoverStateRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverStateRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary state repository failed, falling back to memory")
	r.isDown.Store(true)
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
}

// usePrimary reports whether the call should go to the primary: it is up,
// or it is down long enough to deserve another try.
func (r *FailoverStateRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.lastCheck) > recoveryInterval {
		r.lastCheck = time.Now()
		return true
	}
	return false
}

func (r *FailoverStateRepository) primarySucceeded() {
	if r.isDown.CompareAndSwap(true, false) {
		r.logger.Info().Msg("Primary state repository recovered")
	}
}

func (r *FailoverStateRepository) GetSession(ctx context.Context, userID int64) (*booking.Session, error) {
	if r.usePrimary() {
		session, err := r.primary.GetSession(ctx, userID)
		if err == nil {
			r.primarySucceeded()
			return session, nil
		}
		r.markDown(err)
	}
	return r.fallback.GetSession(ctx, userID)
}

func (r *FailoverStateRepository) SetSession(ctx context.Context, session *booking.Session) error {
	if r.usePrimary() {
		err := r.primary.SetSession(ctx, session)
		if err == nil {
			r.primarySucceeded()
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.SetSession(ctx, session)
}

func (r *FailoverStateRepository) ClearSession(ctx context.Context, userID int64) error {
	if r.usePrimary() {
		err := r.primary.ClearSession(ctx, userID)
		if err == nil {
			r.primarySucceeded()
			// the fallback may still hold a copy written while primary was down
			return r.fallback.ClearSession(ctx, userID)
		}
		r.markDown(err)
	}
	return r.fallback.ClearSession(ctx, userID)
}

func (r *FailoverStateRepository) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, userID, limit, window)
		if err == nil {
			r.primarySucceeded()
			return allowed, nil
		}
		r.markDown(err)
	}
	return r.fallback.CheckRateLimit(ctx, userID, limit, window)
}

func (r *FailoverStateRepository) TouchPresence(ctx context.Context, barberID int64, ttl time.Duration) error {
	if r.usePrimary() {
		err := r.primary.TouchPresence(ctx, barberID, ttl)
		if err == nil {
			r.primarySucceeded()
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.TouchPresence(ctx, barberID, ttl)
}

func (r *FailoverStateRepository) IsPresent(ctx context.Context, barberID int64) (bool, error) {
	if r.usePrimary() {
		present, err := r.primary.IsPresent(ctx, barberID)
		if err == nil {
			r.primarySucceeded()
			return present, nil
		}
		r.markDown(err)
	}
	return r.fallback.IsPresent(ctx, barberID)
}

package repository

import (
	"context"
	"sync"
	"time"

	"barberbot/internal/booking"
)

// MemoryStateRepository is the in-process state store. Entries expire like
// their Redis counterparts; the clock can be replaced in tests.
type MemoryStateRepository struct {
	mu         sync.Mutex
	sessions   map[int64]sessionEntry
	rateLimits map[int64]*rateLimitEntry
	presence   map[int64]time.Time
	ttl        time.Duration
	now        func() time.Time
}

type sessionEntry struct {
	session   booking.Session
	expiresAt time.Time
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func NewMemoryStateRepository(ttl time.Duration) *MemoryStateRepository {
	return &MemoryStateRepository{
		sessions:   make(map[int64]sessionEntry),
		rateLimits: make(map[int64]*rateLimitEntry),
		presence:   make(map[int64]time.Time),
		ttl:        ttl,
		now:        time.Now,
	}
}

func (r *MemoryStateRepository) GetSession(_ context.Context, userID int64) (*booking.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[userID]
	if !ok {
		return nil, nil
	}
	if r.ttl > 0 && !r.now().Before(entry.expiresAt) {
		delete(r.sessions, userID)
		return nil, nil
	}
	s := entry.session
	return &s, nil
}

func (r *MemoryStateRepository) SetSession(_ context.Context, session *booking.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[session.UserID] = sessionEntry{session: *session, expiresAt: r.now().Add(r.ttl)}
	return nil
}

func (r *MemoryStateRepository) ClearSession(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, userID)
	return nil
}

func (r *MemoryStateRepository) CheckRateLimit(_ context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry, ok := r.rateLimits[userID]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		r.rateLimits[userID] = entry
	}
	entry.count++
	return entry.count <= limit, nil
}

func (r *MemoryStateRepository) TouchPresence(_ context.Context, barberID int64, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.presence[barberID] = r.now().Add(ttl)
	return nil
}

func (r *MemoryStateRepository) IsPresent(_ context.Context, barberID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	until, ok := r.presence[barberID]
	if !ok {
		return false, nil
	}
	if !r.now().Before(until) {
		delete(r.presence, barberID)
		return false, nil
	}
	return true, nil
}

package repository

import (
	"context"
	"testing"
	"time"

	"barberbot/internal/booking"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestMemoryStateRepository(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)}
	repo := NewMemoryStateRepository(time.Hour)
	repo.now = clock.Now
	ctx := context.Background()

	t.Run("SetAndGetSession", func(t *testing.T) {
		session := booking.NewSession(123, "Ali", "+998901234567", 0)
		require.NoError(t, repo.SetSession(ctx, session))

		got, err := repo.GetSession(ctx, 123)
		require.NoError(t, err)
		assert.Equal(t, session.State, got.State)

		// the stored copy is independent of the caller's value
		got.State = booking.StateCancelled
		again, err := repo.GetSession(ctx, 123)
		require.NoError(t, err)
		assert.Equal(t, booking.StateAwaitingService, again.State)
	})

	t.Run("SessionExpires", func(t *testing.T) {
		clock.Advance(time.Hour)
		got, err := repo.GetSession(ctx, 123)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("ClearSession", func(t *testing.T) {
		require.NoError(t, repo.SetSession(ctx, booking.NewSession(7, "", "", 0)))
		require.NoError(t, repo.ClearSession(ctx, 7))
		got, _ := repo.GetSession(ctx, 7)
		assert.Nil(t, got)
	})

	t.Run("RateLimit", func(t *testing.T) {
		userID := int64(456)
		allowed, _ := repo.CheckRateLimit(ctx, userID, 2, time.Second)
		assert.True(t, allowed)
		allowed, _ = repo.CheckRateLimit(ctx, userID, 2, time.Second)
		assert.True(t, allowed)
		allowed, _ = repo.CheckRateLimit(ctx, userID, 2, time.Second)
		assert.False(t, allowed)

		clock.Advance(time.Second + time.Millisecond)
		allowed, _ = repo.CheckRateLimit(ctx, userID, 2, time.Second)
		assert.True(t, allowed)
	})

	t.Run("Presence", func(t *testing.T) {
		present, _ := repo.IsPresent(ctx, 9)
		assert.False(t, present)

		require.NoError(t, repo.TouchPresence(ctx, 9, 10*time.Minute))
		clock.Advance(9 * time.Minute)
		present, _ = repo.IsPresent(ctx, 9)
		assert.True(t, present)

		clock.Advance(time.Minute)
		present, _ = repo.IsPresent(ctx, 9)
		assert.False(t, present)
	})
}

package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"barberbot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu     sync.Mutex
	sent   map[int64]string
	failOn map[int64]bool
}

func (r *recordingSender) SendHTML(chatID int64, text string) (tgbotapi.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failOn[chatID] {
		return tgbotapi.Message{}, errors.New("bot was blocked by the user")
	}
	if r.sent == nil {
		r.sent = make(map[int64]string)
	}
	r.sent[chatID] = text
	return tgbotapi.Message{MessageID: len(r.sent)}, nil
}

func TestBroadcast(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	for _, id := range []int64{1, 2, 3} {
		require.NoError(t, db.UpsertUser(ctx, &models.User{TelegramID: id}))
	}

	sender := &recordingSender{failOn: map[int64]bool{2: true}}
	svc := NewBroadcastService(db, sender, 1000, &testLogger)

	res, err := svc.Broadcast(ctx, "  Ertaga sartaroshxona yopiq  ")
	require.NoError(t, err)
	assert.Equal(t, BroadcastResult{Sent: 2, Failed: 1}, res)
	assert.Equal(t, "Ertaga sartaroshxona yopiq", sender.sent[1])
	assert.NotContains(t, sender.sent, int64(2))
}

func TestBroadcastRejectsShortText(t *testing.T) {
	sender := &recordingSender{}
	svc := NewBroadcastService(newTestDB(t), sender, 0, &testLogger)

	_, err := svc.Broadcast(context.Background(), " hi ")
	assert.ErrorIs(t, err, ErrTextTooShort)
	assert.Empty(t, sender.sent)
}

func TestBroadcastStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	db := newTestDB(t)
	require.NoError(t, db.UpsertUser(ctx, &models.User{TelegramID: 1}))
	cancel()

	svc := NewBroadcastService(db, &recordingSender{}, 1, &testLogger)
	_, err := svc.Broadcast(ctx, "Hello everyone")
	assert.ErrorIs(t, err, context.Canceled)
}

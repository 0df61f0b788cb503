package service

import (
	"context"
	"fmt"
	"strings"

	"barberbot/internal/domain"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const minBroadcastLength = 5

type BroadcastResult struct {
	Sent   int
	Failed int
}

// BroadcastService fans a message out to every known user, throttled below
// Telegram's global flood limit.
type BroadcastService struct {
	users   domain.UserRepository
	sender  domain.MessageSender
	limiter *rate.Limiter
	logger  *zerolog.Logger
}

func NewBroadcastService(users domain.UserRepository, sender domain.MessageSender, perSecond int, logger *zerolog.Logger) *BroadcastService {
	if perSecond <= 0 {
		perSecond = 25
	}
	return &BroadcastService{
		users:   users,
		sender:  sender,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		logger:  logger,
	}
}

// Broadcast sends text to every user. A failed send is counted and the fan-out
// continues; only a cancelled context stops it early.
func (s *BroadcastService) Broadcast(ctx context.Context, text string) (BroadcastResult, error) {
	var res BroadcastResult
	text = strings.TrimSpace(text)
	if len([]rune(text)) < minBroadcastLength {
		return res, fmt.Errorf("%w: broadcast needs at least %d characters", ErrTextTooShort, minBroadcastLength)
	}

	ids, err := s.users.ListUserTelegramIDs(ctx)
	if err != nil {
		return res, err
	}

	for _, id := range ids {
		if err := s.limiter.Wait(ctx); err != nil {
			return res, err
		}
		if _, err := s.sender.SendHTML(id, text); err != nil {
			res.Failed++
			s.logger.Warn().Err(err).Int64("chat_id", id).Msg("Broadcast delivery failed")
			continue
		}
		res.Sent++
	}

	s.logger.Info().Int("sent", res.Sent).Int("failed", res.Failed).Msg("Broadcast finished")
	return res, nil
}

package service

import (
	"context"
	"time"

	"barberbot/internal/booking"
	"barberbot/internal/domain"

	"github.com/rs/zerolog"
)

type StateService struct {
	stateRepo   domain.StateRepository
	presenceTTL time.Duration
	logger      *zerolog.Logger
}

func NewStateService(stateRepo domain.StateRepository, presenceTTL time.Duration, logger *zerolog.Logger) *StateService {
	if presenceTTL <= 0 {
		presenceTTL = 10 * time.Minute
	}
	return &StateService{
		stateRepo:   stateRepo,
		presenceTTL: presenceTTL,
		logger:      logger,
	}
}

// Session returns the live booking session or nil. Finished sessions are
// treated as absent.
func (s *StateService) Session(ctx context.Context, userID int64) (*booking.Session, error) {
	session, err := s.stateRepo.GetSession(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to get booking session")
		return nil, err
	}
	if session != nil && (session.State.Terminal() || !session.State.Valid()) {
		return nil, nil
	}
	return session, nil
}

func (s *StateService) SaveSession(ctx context.Context, session *booking.Session) error {
	return s.stateRepo.SetSession(ctx, session)
}

func (s *StateService) ClearSession(ctx context.Context, userID int64) error {
	return s.stateRepo.ClearSession(ctx, userID)
}

func (s *StateService) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	return s.stateRepo.CheckRateLimit(ctx, userID, limit, window)
}

// MarkPresent records a barber panel heartbeat.
func (s *StateService) MarkPresent(ctx context.Context, barberID int64) error {
	return s.stateRepo.TouchPresence(ctx, barberID, s.presenceTTL)
}

func (s *StateService) IsPresent(ctx context.Context, barberID int64) (bool, error) {
	return s.stateRepo.IsPresent(ctx, barberID)
}

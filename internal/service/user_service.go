package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"barberbot/internal/config"
	"barberbot/internal/database"
	"barberbot/internal/domain"
	"barberbot/internal/models"

	"github.com/rs/zerolog"
)

type UserService struct {
	repo         domain.UserRepository
	logger       *zerolog.Logger
	adminsMap    map[int64]bool
	blacklistMap map[int64]bool
}

func NewUserService(repo domain.UserRepository, cfg *config.Config, logger *zerolog.Logger) *UserService {
	adminsMap := make(map[int64]bool)
	for _, id := range cfg.Admins {
		adminsMap[id] = true
	}

	blacklistMap := make(map[int64]bool)
	for _, id := range cfg.Blacklist {
		blacklistMap[id] = true
	}

	return &UserService{
		repo:         repo,
		logger:       logger,
		adminsMap:    adminsMap,
		blacklistMap: blacklistMap,
	}
}

func (s *UserService) IsAdmin(userID int64) bool {
	return s.adminsMap[userID]
}

func (s *UserService) IsBlacklisted(userID int64) bool {
	return s.blacklistMap[userID]
}

func (s *UserService) SaveUser(ctx context.Context, user *models.User) error {
	return s.repo.UpsertUser(ctx, user)
}

// FindUser returns nil without error for an unknown user.
func (s *UserService) FindUser(ctx context.Context, telegramID int64) (*models.User, error) {
	user, err := s.repo.GetUserByTelegramID(ctx, telegramID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// SaveIdentity stores the name and phone collected during booking.
func (s *UserService) SaveIdentity(ctx context.Context, telegramID int64, username, fullName, phone string) error {
	return s.repo.UpsertUser(ctx, &models.User{
		TelegramID: telegramID,
		Username:   username,
		FullName:   fullName,
		Phone:      phone,
	})
}

func (s *UserService) UpdateUserActivity(ctx context.Context, telegramID int64) error {
	return s.repo.UpdateUserActivity(ctx, telegramID)
}

// ValidateName trims the name and requires at least two letters.
func ValidateName(raw string) (string, error) {
	name := strings.Join(strings.Fields(raw), " ")
	letters := 0
	for _, r := range name {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if letters < 2 || len([]rune(name)) > 64 {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, raw)
	}
	return name, nil
}

// NormalizePhone accepts Uzbek numbers written as +998 90 123 45 67,
// 998901234567, 90-123-45-67 and similar, and returns +998XXXXXXXXX.
func NormalizePhone(raw string) (string, error) {
	var digits strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == '+' || r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return "", fmt.Errorf("%w: %q", ErrInvalidPhone, raw)
		}
	}

	d := digits.String()
	switch {
	case len(d) == 12 && strings.HasPrefix(d, "998"):
	case len(d) == 9:
		d = "998" + d
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPhone, raw)
	}
	return "+" + d, nil
}

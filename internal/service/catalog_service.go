package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"barberbot/internal/domain"
	"barberbot/internal/models"

	"github.com/rs/zerolog"
)

// CatalogService serves the service and barber listings and the admin edits
// to them.
type CatalogService struct {
	repo   domain.CatalogRepository
	today  func() string
	logger *zerolog.Logger
}

func NewCatalogService(repo domain.CatalogRepository, today func() string, logger *zerolog.Logger) *CatalogService {
	return &CatalogService{
		repo:   repo,
		today:  today,
		logger: logger,
	}
}

func (s *CatalogService) Services(ctx context.Context) ([]models.Service, error) {
	return s.repo.ListServices(ctx)
}

func (s *CatalogService) Service(ctx context.Context, id int64) (*models.Service, error) {
	return s.repo.GetService(ctx, id)
}

func (s *CatalogService) Barbers(ctx context.Context) ([]models.Barber, error) {
	return s.repo.ListBarbers(ctx)
}

func (s *CatalogService) Barber(ctx context.Context, id int64) (*models.Barber, error) {
	return s.repo.GetBarber(ctx, id)
}

// BarbersFor lists the barbers that offer the service.
func (s *CatalogService) BarbersFor(ctx context.Context, serviceID int64) ([]models.Barber, error) {
	return s.repo.ListBarbersForService(ctx, serviceID)
}

func (s *CatalogService) BarberByTelegramID(ctx context.Context, telegramID int64) (*models.Barber, error) {
	return s.repo.GetBarberByTelegramID(ctx, telegramID)
}

// AddService parses "name | price | duration".
func (s *CatalogService) AddService(ctx context.Context, args string) (*models.Service, error) {
	parts := splitArgs(args)
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected name | price | duration", ErrInvalidInput)
	}
	price, err := parsePrice(parts[1])
	if err != nil {
		return nil, err
	}
	if parts[0] == "" {
		return nil, fmt.Errorf("%w: empty service name", ErrInvalidInput)
	}

	service := &models.Service{Name: parts[0], Price: price, Duration: parts[2]}
	if err := s.repo.CreateService(ctx, service); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("service_id", service.ID).Str("name", service.Name).Msg("Service added")
	return service, nil
}

func (s *CatalogService) DeleteService(ctx context.Context, id int64) error {
	if err := s.repo.DeleteService(ctx, id, s.today()); err != nil {
		return err
	}
	s.logger.Info().Int64("service_id", id).Msg("Service deleted")
	return nil
}

// AddBarber parses "name | phone | experience | days | hours [| telegram_id]".
func (s *CatalogService) AddBarber(ctx context.Context, args string) (*models.Barber, error) {
	parts := splitArgs(args)
	if len(parts) != 5 && len(parts) != 6 {
		return nil, fmt.Errorf("%w: expected name | phone | experience | days | hours [| telegram_id]", ErrInvalidInput)
	}
	if parts[0] == "" {
		return nil, fmt.Errorf("%w: empty barber name", ErrInvalidInput)
	}
	phone, err := NormalizePhone(parts[1])
	if err != nil {
		return nil, err
	}

	barber := &models.Barber{
		Name:       parts[0],
		Phone:      phone,
		Experience: parts[2],
		WorkDays:   parts[3],
		WorkTime:   parts[4],
	}
	if len(parts) == 6 && parts[5] != "" {
		tgID, err := strconv.ParseInt(parts[5], 10, 64)
		if err != nil || tgID <= 0 {
			return nil, fmt.Errorf("%w: telegram id %q", ErrInvalidInput, parts[5])
		}
		barber.TelegramID = tgID
	}

	if err := s.repo.CreateBarber(ctx, barber); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("barber_id", barber.ID).Str("name", barber.Name).Msg("Barber added")
	return barber, nil
}

func (s *CatalogService) DeleteBarber(ctx context.Context, id int64) error {
	if err := s.repo.DeleteBarber(ctx, id, s.today()); err != nil {
		return err
	}
	s.logger.Info().Int64("barber_id", id).Msg("Barber deleted")
	return nil
}

func (s *CatalogService) LinkBarberService(ctx context.Context, barberID, serviceID int64) error {
	return s.repo.LinkBarberService(ctx, barberID, serviceID)
}

func splitArgs(args string) []string {
	if strings.TrimSpace(args) == "" {
		return nil
	}
	parts := strings.Split(args, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// parsePrice accepts "50000", "50 000" and "50,000".
func parsePrice(raw string) (int64, error) {
	clean := strings.NewReplacer(" ", "", ",", "", "_", "").Replace(raw)
	price, err := strconv.ParseInt(clean, 10, 64)
	if err != nil || price <= 0 {
		return 0, fmt.Errorf("%w: price %q", ErrInvalidInput, raw)
	}
	return price, nil
}

// ParseID reads a positive numeric id from command arguments.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id %q", ErrInvalidInput, raw)
	}
	return id, nil
}

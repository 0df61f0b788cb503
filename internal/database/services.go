package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"barberbot/internal/models"
)

func (db *DB) CreateService(ctx context.Context, service *models.Service) error {
	now := time.Now()
	result, err := db.ExecContext(ctx,
		`INSERT INTO services (name, price, duration, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		service.Name, service.Price, service.Duration, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("service %q: %w", service.Name, ErrDuplicate)
		}
		return fmt.Errorf("failed to create service: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get service id: %w", err)
	}
	service.ID = id
	service.CreatedAt = now
	service.UpdatedAt = now
	return nil
}

func (db *DB) UpdateService(ctx context.Context, service *models.Service) error {
	result, err := db.ExecContext(ctx,
		`UPDATE services SET name = ?, price = ?, duration = ?, updated_at = ? WHERE id = ?`,
		service.Name, service.Price, service.Duration, time.Now(), service.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("service %q: %w", service.Name, ErrDuplicate)
		}
		return fmt.Errorf("failed to update service: %w", err)
	}
	return expectAffected(result, "service", service.ID)
}

func (db *DB) GetService(ctx context.Context, id int64) (*models.Service, error) {
	var s models.Service
	err := db.QueryRowContext(ctx,
		`SELECT id, name, price, duration, created_at, updated_at FROM services WHERE id = ?`, id,
	).Scan(&s.ID, &s.Name, &s.Price, &s.Duration, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("service %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service: %w", err)
	}
	return &s, nil
}

func (db *DB) ListServices(ctx context.Context) ([]models.Service, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, price, duration, created_at, updated_at FROM services ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer rows.Close()

	var services []models.Service
	for rows.Next() {
		var s models.Service
		if err := rows.Scan(&s.ID, &s.Name, &s.Price, &s.Duration, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		services = append(services, s)
	}
	return services, rows.Err()
}

// DeleteService removes a service unless it still has orders on or after
// fromDate. Past orders and barber links go with it.
func (db *DB) DeleteService(ctx context.Context, id int64, fromDate string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		var upcoming int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM orders WHERE service_id = ? AND date >= ?`, id, fromDate,
		).Scan(&upcoming); err != nil {
			return fmt.Errorf("failed to count service orders: %w", err)
		}
		if upcoming > 0 {
			return fmt.Errorf("service %d has %d upcoming orders: %w", id, upcoming, ErrConflict)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM services WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete service: %w", err)
		}
		return expectAffected(result, "service", id)
	})
}

// LinkBarberService records that the barber offers the service. Linking twice
// is a no-op.
func (db *DB) LinkBarberService(ctx context.Context, barberID, serviceID int64) error {
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO barber_services (barber_id, service_id) VALUES (?, ?)`,
		barberID, serviceID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("barber %d or service %d: %w", barberID, serviceID, ErrNotFound)
		}
		return fmt.Errorf("failed to link barber service: %w", err)
	}
	return nil
}

func (db *DB) UnlinkBarberService(ctx context.Context, barberID, serviceID int64) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM barber_services WHERE barber_id = ? AND service_id = ?`, barberID, serviceID)
	if err != nil {
		return fmt.Errorf("failed to unlink barber service: %w", err)
	}
	return nil
}

func expectAffected(result sql.Result, what string, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return nil
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"barberbot/internal/models"
)

const barberColumns = `b.id, b.telegram_id, b.name, b.phone, b.experience, b.work_days, b.work_time,
	b.is_paused, b.paused_date, b.created_at, b.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBarber(row rowScanner) (*models.Barber, error) {
	var b models.Barber
	err := row.Scan(&b.ID, &b.TelegramID, &b.Name, &b.Phone, &b.Experience, &b.WorkDays, &b.WorkTime,
		&b.IsPaused, &b.PausedDate, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (db *DB) CreateBarber(ctx context.Context, barber *models.Barber) error {
	now := time.Now()
	result, err := db.ExecContext(ctx, `INSERT INTO barbers (
				telegram_id, name, phone, experience, work_days, work_time,
				is_paused, paused_date, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		barber.TelegramID, barber.Name, barber.Phone, barber.Experience, barber.WorkDays, barber.WorkTime,
		barber.IsPaused, barber.PausedDate, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create barber: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get barber id: %w", err)
	}
	barber.ID = id
	barber.CreatedAt = now
	barber.UpdatedAt = now
	return nil
}

func (db *DB) UpdateBarber(ctx context.Context, barber *models.Barber) error {
	result, err := db.ExecContext(ctx, `UPDATE barbers SET
				telegram_id = ?, name = ?, phone = ?, experience = ?, work_days = ?, work_time = ?, updated_at = ?
			WHERE id = ?`,
		barber.TelegramID, barber.Name, barber.Phone, barber.Experience, barber.WorkDays, barber.WorkTime,
		time.Now(), barber.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update barber: %w", err)
	}
	return expectAffected(result, "barber", barber.ID)
}

func (db *DB) GetBarber(ctx context.Context, id int64) (*models.Barber, error) {
	b, err := scanBarber(db.QueryRowContext(ctx, `SELECT `+barberColumns+` FROM barbers b WHERE b.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("barber %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get barber: %w", err)
	}
	return b, nil
}

// GetBarberByTelegramID finds the barber whose panel is bound to the given
// Telegram account.
func (db *DB) GetBarberByTelegramID(ctx context.Context, telegramID int64) (*models.Barber, error) {
	if telegramID == 0 {
		return nil, fmt.Errorf("barber for telegram id 0: %w", ErrNotFound)
	}
	b, err := scanBarber(db.QueryRowContext(ctx,
		`SELECT `+barberColumns+` FROM barbers b WHERE b.telegram_id = ? ORDER BY b.id LIMIT 1`, telegramID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("barber for telegram id %d: %w", telegramID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get barber: %w", err)
	}
	return b, nil
}

func (db *DB) ListBarbers(ctx context.Context) ([]models.Barber, error) {
	return db.queryBarbers(ctx, `SELECT `+barberColumns+` FROM barbers b ORDER BY b.id`)
}

// ListBarbersForService returns the barbers linked to the service plus every
// barber that has no links at all, who is taken to offer the whole catalog.
func (db *DB) ListBarbersForService(ctx context.Context, serviceID int64) ([]models.Barber, error) {
	return db.queryBarbers(ctx, `SELECT `+barberColumns+` FROM barbers b
		WHERE EXISTS (SELECT 1 FROM barber_services bs WHERE bs.barber_id = b.id AND bs.service_id = ?)
		   OR NOT EXISTS (SELECT 1 FROM barber_services bs WHERE bs.barber_id = b.id)
		ORDER BY b.id`, serviceID)
}

func (db *DB) queryBarbers(ctx context.Context, query string, args ...any) ([]models.Barber, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list barbers: %w", err)
	}
	defer rows.Close()

	var barbers []models.Barber
	for rows.Next() {
		b, err := scanBarber(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan barber: %w", err)
		}
		barbers = append(barbers, *b)
	}
	return barbers, rows.Err()
}

// DeleteBarber removes a barber unless orders on or after fromDate remain.
func (db *DB) DeleteBarber(ctx context.Context, id int64, fromDate string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		var upcoming int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM orders WHERE barber_id = ? AND date >= ?`, id, fromDate,
		).Scan(&upcoming); err != nil {
			return fmt.Errorf("failed to count barber orders: %w", err)
		}
		if upcoming > 0 {
			return fmt.Errorf("barber %d has %d upcoming orders: %w", id, upcoming, ErrConflict)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM barbers WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete barber: %w", err)
		}
		return expectAffected(result, "barber", id)
	})
}

// SetBarberPaused flips the pause flag without touching orders. An empty date
// pauses until resumed.
func (db *DB) SetBarberPaused(ctx context.Context, id int64, paused bool, date string) error {
	if !paused {
		date = ""
	}
	result, err := db.ExecContext(ctx,
		`UPDATE barbers SET is_paused = ?, paused_date = ?, updated_at = ? WHERE id = ?`,
		paused, date, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set barber pause: %w", err)
	}
	return expectAffected(result, "barber", id)
}

// PauseBarberDay cancels every order the barber has on date and marks the
// barber paused for that date, atomically. A barber already paused until
// resumed stays paused indefinitely. The removed orders are returned so their
// owners can be told.
func (db *DB) PauseBarberDay(ctx context.Context, barberID int64, date string) ([]models.Order, error) {
	var removed []models.Order
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE barbers SET
				paused_date = CASE WHEN is_paused = 1 AND paused_date = '' THEN '' ELSE ? END,
				is_paused = 1, updated_at = ?
			WHERE id = ?`,
			date, time.Now(), barberID,
		)
		if err != nil {
			return fmt.Errorf("failed to pause barber: %w", err)
		}
		if err := expectAffected(result, "barber", barberID); err != nil {
			return err
		}

		removed, err = queryOrders(ctx, tx, `WHERE o.barber_id = ? AND o.date = ? ORDER BY o.time`, barberID, date)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM orders WHERE barber_id = ? AND date = ?`, barberID, date,
		); err != nil {
			return fmt.Errorf("failed to delete day orders: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"barberbot/internal/models"
)

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

const orderSelect = `SELECT o.id, o.user_id, o.fullname, o.phone, o.service_id, o.barber_id,
		o.date, o.time, o.booked_date, o.booked_time, o.created_at,
		COALESCE(s.name, ''), COALESCE(b.name, '')
	FROM orders o
	LEFT JOIN services s ON s.id = o.service_id
	LEFT JOIN barbers b ON b.id = o.barber_id `

func scanOrder(row rowScanner) (*models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.UserID, &o.FullName, &o.Phone, &o.ServiceID, &o.BarberID,
		&o.Date, &o.Time, &o.BookedDate, &o.BookedTime, &o.CreatedAt,
		&o.ServiceName, &o.BarberName)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func queryOrders(ctx context.Context, q querier, where string, args ...any) ([]models.Order, error) {
	rows, err := q.QueryContext(ctx, orderSelect+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// BookedTimes returns the reserved times of a barber on date.
func (db *DB) BookedTimes(ctx context.Context, barberID int64, date string) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT time FROM orders WHERE barber_id = ? AND date = ? ORDER BY time`, barberID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to get booked times: %w", err)
	}
	defer rows.Close()

	var times []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan booked time: %w", err)
		}
		times = append(times, t)
	}
	return times, rows.Err()
}

// CreateOrder inserts the order in one transaction after checking that the
// service and barber exist, the barber is not paused on that date and the
// slot is still free. The unique slot index turns a lost race into
// ErrSlotTaken as well.
func (db *DB) CreateOrder(ctx context.Context, order *models.Order) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		var serviceExists int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM services WHERE id = ?`, order.ServiceID,
		).Scan(&serviceExists); err != nil {
			return fmt.Errorf("failed to check service: %w", err)
		}
		if serviceExists == 0 {
			return fmt.Errorf("service %d: %w", order.ServiceID, ErrNotFound)
		}

		var paused bool
		var pausedDate string
		err := tx.QueryRowContext(ctx,
			`SELECT is_paused, paused_date FROM barbers WHERE id = ?`, order.BarberID,
		).Scan(&paused, &pausedDate)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("barber %d: %w", order.BarberID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to check barber: %w", err)
		}
		if paused && (pausedDate == "" || pausedDate == order.Date) {
			return fmt.Errorf("barber %d on %s: %w", order.BarberID, order.Date, ErrBarberPaused)
		}

		var taken int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM orders WHERE barber_id = ? AND date = ? AND time = ?`,
			order.BarberID, order.Date, order.Time,
		).Scan(&taken); err != nil {
			return fmt.Errorf("failed to check slot: %w", err)
		}
		if taken > 0 {
			return fmt.Errorf("%s %s: %w", order.Date, order.Time, ErrSlotTaken)
		}

		now := time.Now()
		result, err := tx.ExecContext(ctx, `INSERT INTO orders (
					user_id, fullname, phone, service_id, barber_id,
					date, time, booked_date, booked_time, created_at
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			order.UserID, order.FullName, order.Phone, order.ServiceID, order.BarberID,
			order.Date, order.Time, order.BookedDate, order.BookedTime, now,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%s %s: %w", order.Date, order.Time, ErrSlotTaken)
			}
			return fmt.Errorf("failed to create order: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get order id: %w", err)
		}
		order.ID = id
		order.CreatedAt = now
		return nil
	})
}

func (db *DB) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	o, err := scanOrder(db.QueryRowContext(ctx, orderSelect+`WHERE o.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return o, nil
}

// DeleteOrder removes an order. A missing order yields ErrNotFound so a
// repeated cancel is reported, not applied twice.
func (db *DB) DeleteOrder(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	return expectAffected(result, "order", id)
}

// ListUserOrders returns a user's orders dated between from and to inclusive.
// An empty to means no upper bound.
func (db *DB) ListUserOrders(ctx context.Context, userID int64, from, to string) ([]models.Order, error) {
	if to == "" {
		return queryOrders(ctx, db, `WHERE o.user_id = ? AND o.date >= ? ORDER BY o.date, o.time`, userID, from)
	}
	return queryOrders(ctx, db,
		`WHERE o.user_id = ? AND o.date >= ? AND o.date <= ? ORDER BY o.date, o.time`, userID, from, to)
}

func (db *DB) ListOrdersByDate(ctx context.Context, date string) ([]models.Order, error) {
	return queryOrders(ctx, db, `WHERE o.date = ? ORDER BY o.barber_id, o.time`, date)
}

func (db *DB) ListBarberOrders(ctx context.Context, barberID int64, date string) ([]models.Order, error) {
	return queryOrders(ctx, db, `WHERE o.barber_id = ? AND o.date = ? ORDER BY o.time`, barberID, date)
}

// ListUpcomingOrders returns every order dated on or after from.
func (db *DB) ListUpcomingOrders(ctx context.Context, from string) ([]models.Order, error) {
	return queryOrders(ctx, db, `WHERE o.date >= ? ORDER BY o.date, o.time, o.barber_id`, from)
}

func (db *DB) CountOrders(ctx context.Context) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return n, nil
}

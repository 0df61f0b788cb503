package database

import (
	"context"
	"fmt"
	"time"

	"barberbot/internal/models"
)

// Times in this table are stored in UTC so that text comparison of
// next_attempt_at stays chronological.

func (db *DB) EnqueueNotification(ctx context.Context, n *models.Notification) error {
	now := time.Now().UTC()
	next := n.NextAttemptAt
	if next.IsZero() {
		next = now
	}
	if n.Status == "" {
		n.Status = models.NotificationPending
	}

	result, err := db.ExecContext(ctx, `INSERT INTO notifications (
				chat_id, barber_id, kind, text, status, attempts, next_attempt_at, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ChatID, n.BarberID, n.Kind, n.Text, n.Status, n.Attempts, next.UTC(), now,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get notification id: %w", err)
	}
	n.ID = id
	n.NextAttemptAt = next.UTC()
	n.CreatedAt = now
	return nil
}

const notificationColumns = `id, chat_id, barber_id, kind, text, status, attempts, last_error,
	next_attempt_at, created_at, sent_at`

func (db *DB) queryNotifications(ctx context.Context, query string, args ...any) ([]models.Notification, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var list []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.ChatID, &n.BarberID, &n.Kind, &n.Text, &n.Status, &n.Attempts,
			&n.LastError, &n.NextAttemptAt, &n.CreatedAt, &n.SentAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

// DueNotifications returns pending rows whose next attempt is not after now,
// oldest first.
func (db *DB) DueNotifications(ctx context.Context, now time.Time, limit int) ([]models.Notification, error) {
	return db.queryNotifications(ctx, `SELECT `+notificationColumns+` FROM notifications
		WHERE status = ? AND next_attempt_at <= ?
		ORDER BY next_attempt_at, id LIMIT ?`,
		models.NotificationPending, now.UTC(), limit)
}

// DueClientNotifications is DueNotifications restricted to rows addressed to
// customers and admins. Barber inbox rows never count against its limit.
func (db *DB) DueClientNotifications(ctx context.Context, now time.Time, limit int) ([]models.Notification, error) {
	return db.queryNotifications(ctx, `SELECT `+notificationColumns+` FROM notifications
		WHERE status = ? AND barber_id = 0 AND next_attempt_at <= ?
		ORDER BY next_attempt_at, id LIMIT ?`,
		models.NotificationPending, now.UTC(), limit)
}

// BarbersWithDueNotifications lists barbers whose inbox has due rows.
func (db *DB) BarbersWithDueNotifications(ctx context.Context, now time.Time) ([]int64, error) {
	rows, err := db.QueryContext(ctx, `SELECT DISTINCT barber_id FROM notifications
		WHERE status = ? AND barber_id <> 0 AND next_attempt_at <= ?
		ORDER BY barber_id`,
		models.NotificationPending, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query barber inboxes: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan barber id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DueBarberNotifications returns the barber's due inbox rows, oldest first.
func (db *DB) DueBarberNotifications(ctx context.Context, barberID int64, now time.Time, limit int) ([]models.Notification, error) {
	return db.queryNotifications(ctx, `SELECT `+notificationColumns+` FROM notifications
		WHERE status = ? AND barber_id = ? AND next_attempt_at <= ?
		ORDER BY next_attempt_at, id LIMIT ?`,
		models.NotificationPending, barberID, now.UTC(), limit)
}

// PendingForBarber returns the barber's undelivered inbox regardless of the
// retry schedule.
func (db *DB) PendingForBarber(ctx context.Context, barberID int64) ([]models.Notification, error) {
	return db.queryNotifications(ctx, `SELECT `+notificationColumns+` FROM notifications
		WHERE status = ? AND barber_id = ?
		ORDER BY id`,
		models.NotificationPending, barberID)
}

func (db *DB) MarkNotificationSent(ctx context.Context, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE notifications SET status = ?, sent_at = ?, attempts = attempts + 1 WHERE id = ?`,
		models.NotificationSent, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	return nil
}

// MarkNotificationRetry records a failed attempt and schedules the next one.
func (db *DB) MarkNotificationRetry(ctx context.Context, id int64, attempts int, next time.Time, lastErr string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE notifications SET attempts = ?, next_attempt_at = ?, last_error = ? WHERE id = ?`,
		attempts, next.UTC(), lastErr, id)
	if err != nil {
		return fmt.Errorf("failed to reschedule notification: %w", err)
	}
	return nil
}

func (db *DB) MarkNotificationFailed(ctx context.Context, id int64, attempts int, lastErr string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE notifications SET status = ?, attempts = ?, last_error = ? WHERE id = ?`,
		models.NotificationFailed, attempts, lastErr, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}
	return nil
}

func (db *DB) CountNotifications(ctx context.Context, status string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE status = ?`, status).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return n, nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/carelog/daycare-bot/internal/entities"
)

// SaveNotification appends a push outcome and sets n.ID
func (r *SQLiteRepository) SaveNotification(ctx context.Context, n *entities.NotificationLog) error {
	if n.SentAt.IsZero() {
		n.SentAt = time.Now()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO notification_log(elder_name, target, action, success, error, sent_at)
		VALUES(?, ?, ?, ?, ?, ?)`,
		n.ElderName, n.Target, n.Action, n.Success, n.Error, formatTime(n.SentAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save notification for %s: %w", n.ElderName, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read notification id: %w", err)
	}
	n.ID = id
	return nil
}

// ListNotifications returns the newest entries first. An empty elderName lists all.
func (r *SQLiteRepository) ListNotifications(ctx context.Context, elderName string, limit int) ([]entities.NotificationLog, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, elder_name, target, action, success, error, sent_at FROM notification_log`
	args := []any{}
	if elderName != "" {
		query += ` WHERE elder_name = ?`
		args = append(args, elderName)
	}
	query += ` ORDER BY sent_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	result := []entities.NotificationLog{}
	for rows.Next() {
		var (
			n      entities.NotificationLog
			sentAt string
		)
		if err := rows.Scan(&n.ID, &n.ElderName, &n.Target, &n.Action, &n.Success, &n.Error, &sentAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if n.SentAt, err = parseTime(sentAt); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return result, nil
}

// HasSuccessfulNotificationSince reports whether the elder's family was
// reached at or after since
func (r *SQLiteRepository) HasSuccessfulNotificationSince(ctx context.Context, elderName string, since time.Time) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notification_log
		WHERE elder_name = ? AND success = 1 AND sent_at >= ?`,
		elderName, formatTime(since),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check notifications for %s: %w", elderName, err)
	}
	return count > 0, nil
}

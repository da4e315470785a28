package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/health-triage-server/internal/domain"
)

// NotificationRepository handles notification persistence. Broadcast rows
// carry a NULL user_id and are visible to every user.
type NotificationRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *pgxpool.Pool, logger *logrus.Logger) *NotificationRepository {
	return &NotificationRepository{
		db:  db,
		log: logger,
	}
}

// Create inserts a new notification and fills in its generated ID and
// creation time.
func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO notifications (user_id, title, message, type)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		n.UserID,
		n.Title,
		n.Message,
		string(n.Type),
	).Scan(&n.ID, &n.CreatedAt)

	if err != nil {
		r.log.WithFields(logrus.Fields{
			"type":  n.Type,
			"error": err,
		}).Error("Failed to create notification")
		return fmt.Errorf("creating notification: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"notification_id": n.ID,
		"type":            n.Type,
		"broadcast":       n.IsBroadcast(),
	}).Info("Notification created")

	return nil
}

// ListVisible retrieves the notifications a user can see: their own rows
// plus broadcasts, newest first.
func (r *NotificationRepository) ListVisible(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	query := `
		SELECT id, user_id, title, message, type, is_read, created_at
		FROM notifications
		WHERE (user_id = $1 OR user_id IS NULL)`
	if unreadOnly {
		query += ` AND is_read = FALSE`
	}
	query += `
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"user_id": userID,
			"error":   err,
		}).Error("Failed to list notifications")
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*domain.Notification
	for rows.Next() {
		var n domain.Notification
		err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.IsRead, &n.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning notification row: %w", err)
		}
		notifications = append(notifications, &n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notification rows: %w", err)
	}

	return notifications, nil
}

// UnreadCount returns the number of unread notifications visible to a user.
func (r *NotificationRepository) UnreadCount(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE (user_id = $1 OR user_id IS NULL) AND is_read = FALSE`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks one visible notification as read.
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id int64) error {
	query := `
		UPDATE notifications
		SET is_read = TRUE
		WHERE id = $1 AND (user_id = $2 OR user_id IS NULL)`

	result, err := r.db.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("notification not found: %w", domain.ErrNotFound)
	}
	return nil
}

// MarkAllRead marks every unread notification visible to the user as read
// and returns the number updated.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	result, err := r.db.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE (user_id = $1 OR user_id IS NULL) AND is_read = FALSE`,
		userID,
	)
	if err != nil {
		return 0, fmt.Errorf("marking all notifications read: %w", err)
	}
	return result.RowsAffected(), nil
}

// DeleteOwned removes a notification owned by the user. Broadcast rows are
// shared and cannot be deleted through this path.
func (r *NotificationRepository) DeleteOwned(ctx context.Context, userID, id int64) error {
	result, err := r.db.Exec(ctx,
		`DELETE FROM notifications WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("deleting notification: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("notification not found: %w", domain.ErrNotFound)
	}

	r.log.WithFields(logrus.Fields{
		"notification_id": id,
		"user_id":         userID,
	}).Info("Notification deleted")

	return nil
}

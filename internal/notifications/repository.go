package notifications

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ecopool/carpool/pkg/common"
	"github.com/ecopool/carpool/pkg/database"
	"github.com/ecopool/carpool/pkg/models"
)

const notificationColumns = `id, user_id, sender_id, type, title, message,
	ride_id, transaction_id, is_read, read_at, created_at`

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateNotification creates a new notification record
func (r *Repository) CreateNotification(ctx context.Context, notification *models.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, sender_id, type, title, message,
			ride_id, transaction_id, is_read)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`

	err := r.db.QueryRow(ctx, query,
		notification.ID,
		notification.UserID,
		notification.SenderID,
		notification.Type,
		notification.Title,
		notification.Message,
		notification.RideID,
		notification.TransactionID,
		notification.IsRead,
	).Scan(&notification.CreatedAt)

	if err != nil {
		return common.NewInternalError("failed to create notification", err)
	}
	return nil
}

// GetNotificationByID retrieves a notification by ID
func (r *Repository) GetNotificationByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	notification := &models.Notification{}
	err := r.db.QueryRow(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications WHERE id = $1`, id,
	).Scan(
		&notification.ID,
		&notification.UserID,
		&notification.SenderID,
		&notification.Type,
		&notification.Title,
		&notification.Message,
		&notification.RideID,
		&notification.TransactionID,
		&notification.IsRead,
		&notification.ReadAt,
		&notification.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("notification not found")
		}
		return nil, common.NewInternalError("failed to get notification", err)
	}
	return notification, nil
}

// ListNotifications retrieves a user's notifications, newest first.
func (r *Repository) ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*models.Notification, int64, error) {
	filter := `WHERE user_id = $1`
	if unreadOnly {
		filter += ` AND is_read = false`
	}

	var total int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM notifications `+filter, userID).Scan(&total)
	if err != nil {
		return nil, 0, common.NewInternalError("failed to count notifications", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications `+filter+`
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset,
	)
	if err != nil {
		return nil, 0, common.NewInternalError("failed to list notifications", err)
	}
	defer rows.Close()

	notifications := make([]*models.Notification, 0)
	for rows.Next() {
		notification := &models.Notification{}
		if err := rows.Scan(
			&notification.ID,
			&notification.UserID,
			&notification.SenderID,
			&notification.Type,
			&notification.Title,
			&notification.Message,
			&notification.RideID,
			&notification.TransactionID,
			&notification.IsRead,
			&notification.ReadAt,
			&notification.CreatedAt,
		); err != nil {
			return nil, 0, common.NewInternalError("failed to scan notification", err)
		}
		notifications = append(notifications, notification)
	}
	return notifications, total, rows.Err()
}

// MarkAsRead marks a notification as read. Marking twice is a no-op.
func (r *Repository) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	_, err := database.RetryableExec(ctx, r.db, `
		UPDATE notifications
		SET is_read = true, read_at = NOW()
		WHERE id = $1 AND is_read = false`, id,
	)
	if err != nil {
		return common.NewInternalError("failed to mark notification as read", err)
	}
	return nil
}

// MarkAllAsRead marks all of a user's unread notifications as read.
func (r *Repository) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := database.RetryableExec(ctx, r.db, `
		UPDATE notifications
		SET is_read = true, read_at = NOW()
		WHERE user_id = $1 AND is_read = false`, userID,
	)
	if err != nil {
		return 0, common.NewInternalError("failed to mark notifications as read", err)
	}
	return tag.RowsAffected(), nil
}

// GetUnreadCount gets count of unread notifications
func (r *Repository) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE user_id = $1 AND is_read = false`, userID,
	).Scan(&count)
	if err != nil {
		return 0, common.NewInternalError("failed to get unread count", err)
	}
	return count, nil
}

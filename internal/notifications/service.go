package notifications

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecopool/carpool/pkg/common"
	"github.com/ecopool/carpool/pkg/logger"
	"github.com/ecopool/carpool/pkg/models"
)

// Service handles notifications business logic
type Service struct {
	repo RepositoryInterface
}

// NewService creates a new notifications service
func NewService(repo RepositoryInterface) *Service {
	return &Service{repo: repo}
}

// Record durably stores one notification for one recipient.
func (s *Service) Record(ctx context.Context, notification *models.Notification) (*models.Notification, error) {
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}

	if err := s.repo.CreateNotification(ctx, notification); err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Debug("notification recorded",
		zap.String("notification_id", notification.ID.String()),
		zap.String("user_id", notification.UserID.String()),
		zap.String("type", string(notification.Type)))

	return notification, nil
}

// List returns the caller's notifications, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*models.Notification, int64, error) {
	return s.repo.ListNotifications(ctx, userID, unreadOnly, limit, offset)
}

// UnreadCount returns how many of the caller's notifications are unread.
func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.GetUnreadCount(ctx, userID)
}

// MarkAsRead marks one of the caller's notifications as read.
func (s *Service) MarkAsRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	notification, err := s.repo.GetNotificationByID(ctx, notificationID)
	if err != nil {
		return err
	}
	if notification.UserID != userID {
		return common.NewForbiddenError("notification belongs to another user")
	}
	return s.repo.MarkAsRead(ctx, notificationID)
}

// MarkAllAsRead marks every unread notification of the caller as read.
func (s *Service) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.MarkAllAsRead(ctx, userID)
}

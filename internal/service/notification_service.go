package service

import (
	"context"

	"confide/internal/models"
	"confide/internal/repository"
)

const defaultNotificationLimit = 50

// NotificationService handles reading and acknowledging notifications.
type NotificationService struct {
	notifications repository.NotificationRepository
	checkpoints   Checkpointer
}

// NewNotificationService creates a new notification service.
func NewNotificationService(notifications repository.NotificationRepository, cp Checkpointer) *NotificationService {
	if cp == nil {
		cp = noopCheckpointer{}
	}
	return &NotificationService{notifications: notifications, checkpoints: cp}
}

// CreateNotification records a typed notification for a recipient.
// Self-directed notifications are dropped silently.
func (s *NotificationService) CreateNotification(ctx context.Context, senderID, recipientID uint, kind string, postID *uint) error {
	if senderID == recipientID {
		return nil
	}
	n := &models.Notification{
		SenderID:    senderID,
		RecipientID: recipientID,
		Type:        kind,
		PostID:      postID,
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		return models.NewInternalError(err)
	}
	s.checkpoints.Checkpoint(ctx)
	return nil
}

// GetNotifications lists the user's most recent notifications.
func (s *NotificationService) GetNotifications(ctx context.Context, userID uint) ([]models.Notification, error) {
	list, err := s.notifications.ListForUser(ctx, userID, defaultNotificationLimit)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return list, nil
}

// MarkAllRead acknowledges every unread notification for the user.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) error {
	if err := s.notifications.MarkAllRead(ctx, userID); err != nil {
		return models.NewInternalError(err)
	}
	s.checkpoints.Checkpoint(ctx)
	return nil
}

// UnreadCount returns the number of unread notifications for the user.
func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	count, err := s.notifications.UnreadCount(ctx, userID)
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

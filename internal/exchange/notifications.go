package exchange

import (
	"context"
	"fmt"

	"server/internal/domain"
)

// ListNotifications returns the user's inbox, newest first.
func (s *Service) ListNotifications(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.notifications.ListByRecipient(ctx, userID, limit)
}

// UnreadCount returns the number of unread notifications for the user.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.notifications.UnreadCount(ctx, userID)
}

// MarkNotificationRead acknowledges an unread informational notification.
// Pending requests are not acknowledged this way; they terminate through
// Accept or Decline.
func (s *Service) MarkNotificationRead(ctx context.Context, userID, notificationID string) error {
	notification, err := s.notifications.GetByID(ctx, notificationID)
	if err != nil {
		return fmt.Errorf("load notification: %w", err)
	}
	if notification.ToUser != userID {
		return domain.ErrNotAuthorized
	}
	if notification.Status != domain.NotificationStatusUnread {
		return fmt.Errorf("%w: notification is %s", domain.ErrInvalidState, notification.Status)
	}
	ok, err := s.notifications.Transition(ctx, notificationID, domain.NotificationStatusUnread, domain.NotificationStatusRead)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if !ok {
		return domain.ErrInvalidState
	}
	return nil
}

package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

const notificationColumns = `id, from_user, to_user, type, donation_id, message, status, created_at`

// NotificationRepositoryPG implements domain.NotificationRepository using PostgreSQL.
type NotificationRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository creates a new notification repo.
func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepositoryPG {
	return &NotificationRepositoryPG{pool: pool}
}

// Create inserts a new notification. A partial unique index over pending
// request_donation rows turns concurrent duplicate submissions into
// domain.ErrDuplicateRequest.
func (r *NotificationRepositoryPG) Create(ctx context.Context, n *domain.Notification) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO notifications (id, from_user, to_user, type, donation_id, message, status)
VALUES ($1, $2, $3, $4, $5, $6, $7);
`, n.ID, n.FromUser, n.ToUser, n.Type, n.DonationID, n.Message, n.Status)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateRequest
	}
	return err
}

// GetByID fetches a notification by id.
func (r *NotificationRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	return scanNotification(row)
}

// ListByRecipient returns the recipient's notifications, newest first.
func (r *NotificationRepositoryPG) ListByRecipient(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+notificationColumns+`
FROM notifications
WHERE to_user = $1
ORDER BY created_at DESC
LIMIT $2;
`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// UnreadCount counts pending and unread notifications for the inbox badge.
func (r *NotificationRepositoryPG) UnreadCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
SELECT COUNT(*) FROM notifications WHERE to_user = $1 AND status IN ('pending', 'unread');
`, userID).Scan(&count)
	return count, err
}

// Transition conditionally moves a notification between statuses and reports
// whether the update applied. A notification already past its terminal status
// matches no row.
func (r *NotificationRepositoryPG) Transition(ctx context.Context, id string, from, to domain.NotificationStatus) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
UPDATE notifications SET status = $3 WHERE id = $1 AND status = $2;
`, id, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// HasPendingRequest reports whether the user already has a pending request
// for the donation.
func (r *NotificationRepositoryPG) HasPendingRequest(ctx context.Context, fromUser, donationID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
SELECT EXISTS (
  SELECT 1 FROM notifications
  WHERE from_user = $1 AND donation_id = $2 AND type = 'request_donation' AND status = 'pending'
);
`, fromUser, donationID).Scan(&exists)
	return exists, err
}

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var n domain.Notification
	if err := row.Scan(&n.ID, &n.FromUser, &n.ToUser, &n.Type, &n.DonationID, &n.Message, &n.Status, &n.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"inventory-service/internal/apperr"
	"inventory-service/internal/models"
)

// CreateNotification appends a new unread notification
func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Status == "" {
		n.Status = models.NotificationStatusUnread
	}

	return s.db.GetContext(ctx, n, `
		INSERT INTO notifications (id, receiver, text, type, product_id, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		n.ID, n.Receiver, n.Text, n.Type, n.ProductID, n.Status)
}

// GetNotificationByID retrieves a notification addressed to receiverID
func (s *Store) GetNotificationByID(ctx context.Context, receiverID, id uuid.UUID) (*models.Notification, error) {
	var n models.Notification
	err := s.db.GetContext(ctx, &n,
		"SELECT * FROM notifications WHERE id = $1 AND receiver = $2", id, receiverID)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("notification not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkNotificationRead transitions a notification to READ. Marking an
// already read notification is a no-op.
func (s *Store) MarkNotificationRead(ctx context.Context, receiverID, id uuid.UUID) (*models.Notification, error) {
	var n models.Notification
	err := s.db.GetContext(ctx, &n, `
		UPDATE notifications
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND receiver = $3
		RETURNING *`, models.NotificationStatusRead, id, receiverID)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("notification not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ListNotifications retrieves the receiver's notifications, newest first
func (s *Store) ListNotifications(ctx context.Context, receiverID uuid.UUID) ([]models.Notification, error) {
	var notifications []models.Notification
	err := s.db.SelectContext(ctx, &notifications,
		"SELECT * FROM notifications WHERE receiver = $1 ORDER BY created_at DESC", receiverID)
	return notifications, err
}

// ListUnreadNotifications retrieves the receiver's unread notifications
func (s *Store) ListUnreadNotifications(ctx context.Context, receiverID uuid.UUID) ([]models.Notification, error) {
	var notifications []models.Notification
	err := s.db.SelectContext(ctx, &notifications,
		"SELECT * FROM notifications WHERE receiver = $1 AND status = $2 ORDER BY created_at DESC",
		receiverID, models.NotificationStatusUnread)
	return notifications, err
}

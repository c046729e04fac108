package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"inventory-service/internal/models"
	"inventory-service/internal/util"
)

// notificationStore is the persistence surface the notification store needs.
type notificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	MarkNotificationRead(ctx context.Context, receiverID, id uuid.UUID) (*models.Notification, error)
	ListNotifications(ctx context.Context, receiverID uuid.UUID) ([]models.Notification, error)
	ListUnreadNotifications(ctx context.Context, receiverID uuid.UUID) ([]models.Notification, error)
	RestockCandidates(ctx context.Context, ownerID uuid.UUID) ([]models.Product, error)
}

// NotificationService owns the alert lifecycle: unread on creation, done
// once marked read.
type NotificationService struct {
	store  notificationStore
	logger *zap.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(store notificationStore) *NotificationService {
	return &NotificationService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// Create appends a new unread notification for the receiver.
func (s *NotificationService) Create(ctx context.Context, receiverID uuid.UUID, productID *uuid.UUID, kind, text string) (*models.Notification, error) {
	notification := &models.Notification{
		Receiver:  receiverID,
		Text:      text,
		Type:      kind,
		ProductID: productID,
	}
	if err := s.store.CreateNotification(ctx, notification); err != nil {
		return nil, err
	}
	util.NotificationsCreatedTotal.Inc()
	return notification, nil
}

// MarkRead transitions a notification to READ. Marking twice is a no-op.
func (s *NotificationService) MarkRead(ctx context.Context, receiverID, notificationID uuid.UUID) (*models.Notification, error) {
	notification, err := s.store.MarkNotificationRead(ctx, receiverID, notificationID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Notification marked read",
		zap.String("notification_id", notificationID.String()))
	return notification, nil
}

// List retrieves the receiver's notifications
func (s *NotificationService) List(ctx context.Context, receiverID uuid.UUID) ([]models.Notification, error) {
	return s.store.ListNotifications(ctx, receiverID)
}

// ListUnread retrieves the receiver's unread notifications
func (s *NotificationService) ListUnread(ctx context.Context, receiverID uuid.UUID) ([]models.Notification, error) {
	return s.store.ListUnreadNotifications(ctx, receiverID)
}

// RestockCandidates lists the owner's products flagged low on stock.
func (s *NotificationService) RestockCandidates(ctx context.Context, ownerID uuid.UUID) ([]models.Product, error) {
	return s.store.RestockCandidates(ctx, ownerID)
}

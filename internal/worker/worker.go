package worker

import (
	"context"
	"fmt"
	"log"

	"go.uber.org/zap"

	"inventory-service/internal/broker"
	"inventory-service/internal/models"
	"inventory-service/internal/util"
)

// alertStore is the persistence surface the alert worker needs.
type alertStore interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// AlertWorker consumes stock alert events and persists them as
// notifications for the product owner.
type AlertWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        alertStore
	logger       *zap.Logger
}

// NewAlertWorker creates a new alert worker
func NewAlertWorker(consumer *broker.Consumer, store alertStore) *AlertWorker {
	w := &AlertWorker{
		consumer: consumer,
		store:    store,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnStockAlert(w.HandleStockAlert)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *AlertWorker) Start(ctx context.Context) error {
	log.Println("Starting alert worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *AlertWorker) Stop() error {
	log.Println("Stopping alert worker...")
	return w.consumer.Close()
}

// HandleStockAlert turns one stock alert event into a notification row.
// Events are deduplicated by id so redelivery cannot double-notify.
func (w *AlertWorker) HandleStockAlert(ctx context.Context, event *models.StockAlertEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		w.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	text := fmt.Sprintf("%s is due for a restock", event.ProductName)
	if event.AlertType == models.NotificationTypeOutOfStock {
		text = fmt.Sprintf("%s is out of stock", event.ProductName)
	}

	productID := event.ProductID
	notification := &models.Notification{
		Receiver:  event.OwnerID,
		Text:      text,
		Type:      event.AlertType,
		ProductID: &productID,
	}
	if err := w.store.CreateNotification(ctx, notification); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	util.NotificationsCreatedTotal.Inc()

	if err := w.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		w.logger.Error("Failed to mark event processed", zap.Error(err))
	}

	w.logger.Info("Stock alert recorded",
		zap.String("product_id", event.ProductID.String()),
		zap.String("type", event.AlertType),
		zap.Int("current_quantity", event.CurrentQuantity))
	return nil
}

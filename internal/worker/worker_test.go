package worker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-service/internal/models"
	"inventory-service/internal/storetest"
)

func stockAlertEvent(alertType string) *models.StockAlertEvent {
	return &models.StockAlertEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeStockAlert,
			Timestamp: time.Now(),
		},
		OwnerID:         uuid.New(),
		ProductID:       uuid.New(),
		ProductName:     "Beans 1kg",
		AlertType:       alertType,
		CurrentQuantity: 1,
	}
}

func TestHandleStockAlertCreatesNotification(t *testing.T) {
	st := storetest.New()
	w := NewAlertWorker(nil, st)
	ctx := context.Background()

	event := stockAlertEvent(models.NotificationTypeLowStock)
	require.NoError(t, w.HandleStockAlert(ctx, event))

	notifications, err := st.ListNotifications(ctx, event.OwnerID)
	require.NoError(t, err)
	require.Len(t, notifications, 1)

	assert.Equal(t, "Beans 1kg is due for a restock", notifications[0].Text)
	assert.Equal(t, models.NotificationTypeLowStock, notifications[0].Type)
	assert.Equal(t, models.NotificationStatusUnread, notifications[0].Status)
	require.NotNil(t, notifications[0].ProductID)
	assert.Equal(t, event.ProductID, *notifications[0].ProductID)

	processed, err := st.IsEventProcessed(ctx, event.EventID)
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestHandleStockAlertOutOfStockText(t *testing.T) {
	st := storetest.New()
	w := NewAlertWorker(nil, st)
	ctx := context.Background()

	event := stockAlertEvent(models.NotificationTypeOutOfStock)
	require.NoError(t, w.HandleStockAlert(ctx, event))

	notifications, err := st.ListNotifications(ctx, event.OwnerID)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, "Beans 1kg is out of stock", notifications[0].Text)
}

func TestHandleStockAlertRedeliveryIsIdempotent(t *testing.T) {
	st := storetest.New()
	w := NewAlertWorker(nil, st)
	ctx := context.Background()

	event := stockAlertEvent(models.NotificationTypeLowStock)
	require.NoError(t, w.HandleStockAlert(ctx, event))
	require.NoError(t, w.HandleStockAlert(ctx, event))

	notifications, err := st.ListNotifications(ctx, event.OwnerID)
	require.NoError(t, err)
	assert.Len(t, notifications, 1)
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeCheckoutCompleted = "CHECKOUT_COMPLETED"
	EventTypeStockAlert        = "STOCK_ALERT"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// CheckoutCompletedEvent published after a cart is converted into an order
type CheckoutCompletedEvent struct {
	BaseEvent
	OrderID    uuid.UUID       `json:"order_id"`
	OwnerID    uuid.UUID       `json:"owner_id"`
	CustomerID *uuid.UUID      `json:"customer_id,omitempty"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Items      []SoldItemData  `json:"items"`
}

// StockAlertEvent published when a sold product crosses its restock threshold
type StockAlertEvent struct {
	BaseEvent
	OwnerID         uuid.UUID `json:"owner_id"`
	ProductID       uuid.UUID `json:"product_id"`
	ProductName     string    `json:"product_name"`
	AlertType       string    `json:"alert_type"`
	CurrentQuantity int       `json:"current_quantity"`
}

// SoldItemData represents item data in checkout events
type SoldItemData struct {
	ProductID    uuid.UUID       `json:"product_id"`
	Quantity     int             `json:"quantity"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	TotalPrice   decimal.Decimal `json:"total_price"`
}

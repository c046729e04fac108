package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents one inventory item owned by a retailer.
// LowQuantity is derived: it must equal CurrentQuantity <= MinimumStockQuantity
// after every stock-affecting mutation.
type Product struct {
	ID                   uuid.UUID       `db:"id" json:"id"`
	Name                 string          `db:"name" json:"name"`
	Category             string          `db:"category" json:"category"`
	CostPrice            decimal.Decimal `db:"cost_price" json:"cost_price"`
	SellingPrice         decimal.Decimal `db:"selling_price" json:"selling_price"`
	DefaultQuantity      int             `db:"default_quantity" json:"default_quantity"`
	CurrentQuantity      int             `db:"current_quantity" json:"current_quantity"`
	MinimumStockQuantity int             `db:"minimum_stock_quantity" json:"minimum_stock_quantity"`
	LowQuantity          bool            `db:"low_quantity" json:"low_quantity"`
	CreatedBy            uuid.UUID       `db:"created_by" json:"created_by"`
	CreatedAt            time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time       `db:"updated_at" json:"updated_at"`
}

// BelowThreshold reports whether the product's live quantity is at or
// below its restock threshold.
func (p *Product) BelowThreshold() bool {
	return p.CurrentQuantity <= p.MinimumStockQuantity
}

// CartLine is one reserved product in a user's cart. There is exactly one
// line per (product, owner); adding an already-carted product increments
// Quantity. SellingPrice and TotalPrice are snapshots taken at add time.
type CartLine struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	ProductID    uuid.UUID       `db:"product_id" json:"product_id"`
	Quantity     int             `db:"quantity" json:"quantity"`
	SellingPrice decimal.Decimal `db:"selling_price" json:"selling_price"`
	TotalPrice   decimal.Decimal `db:"total_price" json:"total_price"`
	CreatedBy    uuid.UUID       `db:"created_by" json:"created_by"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// Customer is a retailer-scoped contact record.
type Customer struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"customer_name" json:"customer_name"`
	Phone       string    `db:"customer_phone" json:"customer_phone"`
	Email       string    `db:"customer_email" json:"customer_email"`
	Description string    `db:"description" json:"description"`
	CreatedBy   uuid.UUID `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Order is one checkout event. Line totals are immutable once created.
type Order struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	CustomerID     *uuid.UUID      `db:"customer_id" json:"customer_id,omitempty"`
	AmountPayment  decimal.Decimal `db:"amount_payment" json:"amount_payment"`
	Balance        decimal.Decimal `db:"balance" json:"balance"`
	TotalPrice     decimal.Decimal `db:"total_price" json:"total_price"`
	GrandTotal     decimal.Decimal `db:"grand_total" json:"grand_total"`
	PaymentDate    time.Time       `db:"payment_date" json:"payment_date"`
	IdempotencyKey string          `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedBy      uuid.UUID       `db:"created_by" json:"created_by"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// OrderItem is an immutable snapshot of one cart line at the moment of
// sale. Prices are the cart-line snapshots, never re-read from the product.
type OrderItem struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	OrderID      uuid.UUID       `db:"order_id" json:"order_id"`
	ProductID    uuid.UUID       `db:"product_id" json:"product_id"`
	Quantity     int             `db:"quantity" json:"quantity"`
	CostPrice    decimal.Decimal `db:"cost_price" json:"cost_price"`
	SellingPrice decimal.Decimal `db:"selling_price" json:"selling_price"`
	TotalPrice   decimal.Decimal `db:"total_price" json:"total_price"`
	CreatedBy    uuid.UUID       `db:"created_by" json:"created_by"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// Notification is a stock alert delivered to a retailer.
type Notification struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	Receiver  uuid.UUID  `db:"receiver" json:"receiver"`
	Text      string     `db:"text" json:"text"`
	Type      string     `db:"type" json:"type"`
	ProductID *uuid.UUID `db:"product_id" json:"product_id,omitempty"`
	Status    string     `db:"status" json:"status"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// Notification types
const (
	NotificationTypeLowStock   = "LOW_STOCK"
	NotificationTypeOutOfStock = "OUT_OF_STOCK"
)

// Notification statuses
const (
	NotificationStatusUnread = "UNREAD"
	NotificationStatusRead   = "READ"
)

// CartSummary aggregates a user's cart lines.
type CartSummary struct {
	TotalValue decimal.Decimal `db:"total_value" json:"total_value"`
	TotalItems int             `db:"total_items" json:"total_items"`
}

// StockSummary aggregates a retailer's inventory.
type StockSummary struct {
	TotalItems int             `db:"total_items" json:"total_items"`
	TotalValue decimal.Decimal `db:"total_value" json:"total_value"`
}

// ProductSales is the per-product sales projection over order items.
type ProductSales struct {
	ProductID    uuid.UUID       `db:"product_id" json:"product_id"`
	SellingPrice decimal.Decimal `db:"selling_price" json:"selling_price"`
	QuantitySold int             `db:"quantity_sold" json:"quantity_sold"`
	TotalAmount  decimal.Decimal `db:"total_amount" json:"total_amount"`
}

// CustomerSales is the per-customer sales projection over order items.
type CustomerSales struct {
	CustomerID      *uuid.UUID      `db:"customer_id" json:"customer_id"`
	OrderCount      int             `db:"order_count" json:"order_count"`
	ProductQuantity int             `db:"product_quantity" json:"product_quantity"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"total_amount"`
}

// ProcessedEvent records a consumed event id for worker idempotency.
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}

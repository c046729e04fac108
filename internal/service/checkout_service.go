package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"inventory-service/internal/apperr"
	"inventory-service/internal/models"
	"inventory-service/internal/redisclient"
	"inventory-service/internal/util"
)

// checkoutStore is the persistence surface the checkout engine needs.
type checkoutStore interface {
	CheckoutTx(ctx context.Context, ownerID uuid.UUID, buildOrder func(total decimal.Decimal) (*models.Order, error)) (*models.Order, []models.OrderItem, []models.Product, error)
	GetOrderByID(ctx context.Context, ownerID, id uuid.UUID) (*models.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, ownerID uuid.UUID, key string) (*models.Order, error)
	ListOrders(ctx context.Context, ownerID uuid.UUID) ([]models.Order, error)
	GetOrderItemsByOrderID(ctx context.Context, ownerID, orderID uuid.UUID) ([]models.OrderItem, error)
	GetCustomerByID(ctx context.Context, ownerID, id uuid.UUID) (*models.Customer, error)
	ProductSalesReport(ctx context.Context, ownerID uuid.UUID) ([]models.ProductSales, error)
	CustomerSalesReport(ctx context.Context, ownerID uuid.UUID, productID *uuid.UUID) ([]models.CustomerSales, error)
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// EventSink publishes domain events after a checkout commits.
type EventSink interface {
	PublishCheckoutCompleted(ctx context.Context, event *models.CheckoutCompletedEvent) error
	PublishStockAlert(ctx context.Context, event *models.StockAlertEvent) error
}

// CheckoutService converts carts into immutable orders.
type CheckoutService struct {
	store          checkoutStore
	cache          *redisclient.Client
	events         EventSink
	idempotencyTTL time.Duration
	logger         *zap.Logger
}

// NewCheckoutService creates a new checkout service. cache and events may
// be nil; without an event sink stock alerts are written to the
// notification table directly.
func NewCheckoutService(store checkoutStore, cache *redisclient.Client, events EventSink, idempotencyTTL time.Duration) *CheckoutService {
	return &CheckoutService{
		store:          store,
		cache:          cache,
		events:         events,
		idempotencyTTL: idempotencyTTL,
		logger:         util.GetLogger(),
	}
}

// CheckoutRequest carries the payment details for converting the cart.
type CheckoutRequest struct {
	CustomerID     *uuid.UUID      `json:"customer_id"`
	AmountPayment  decimal.Decimal `json:"amount_payment"`
	PaymentDate    *time.Time      `json:"payment_date"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
}

// validatePayment enforces the payment preconditions against the cart
// total. Payment equal to the total is rejected: full settlement goes
// through a separate paid-in-full flow.
func validatePayment(amount, total decimal.Decimal) error {
	if amount.IsNegative() {
		return apperr.InvalidPayment("enter a valid amount")
	}
	if amount.GreaterThan(total) {
		return apperr.InvalidPayment("amount paid higher than total price")
	}
	if amount.Equal(total) {
		return apperr.InvalidPayment("amount paid equal to total price")
	}
	return nil
}

// Checkout atomically converts the owner's cart lines into one order with
// immutable order-item snapshots, then emits stock alerts for every sold
// product at or below its restock threshold.
func (s *CheckoutService) Checkout(ctx context.Context, ownerID uuid.UUID, req *CheckoutRequest) (*models.Order, []models.OrderItem, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.Checkout")
	defer span.End()

	start := time.Now()
	defer func() {
		util.CheckoutLatency.Observe(time.Since(start).Seconds())
	}()

	if req.IdempotencyKey != "" {
		existing, err := s.claimIdempotency(ctx, ownerID, req.IdempotencyKey)
		if err != nil {
			return nil, nil, err
		}
		if existing != nil {
			items, err := s.store.GetOrderItemsByOrderID(ctx, ownerID, existing.ID)
			if err != nil {
				return nil, nil, err
			}
			s.logger.Info("Duplicate checkout request detected",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.String("order_id", existing.ID.String()))
			return existing, items, nil
		}
	}

	if req.CustomerID != nil {
		if _, err := s.store.GetCustomerByID(ctx, ownerID, *req.CustomerID); err != nil {
			s.releaseIdempotency(ctx, ownerID, req.IdempotencyKey)
			return nil, nil, err
		}
	}

	order, items, products, err := s.store.CheckoutTx(ctx, ownerID, func(total decimal.Decimal) (*models.Order, error) {
		if err := validatePayment(req.AmountPayment, total); err != nil {
			return nil, err
		}

		paymentDate := time.Now()
		if req.PaymentDate != nil {
			paymentDate = *req.PaymentDate
		}

		return &models.Order{
			CustomerID:     req.CustomerID,
			AmountPayment:  req.AmountPayment,
			Balance:        total.Sub(req.AmountPayment),
			TotalPrice:     total,
			GrandTotal:     total,
			PaymentDate:    paymentDate,
			IdempotencyKey: req.IdempotencyKey,
		}, nil
	})
	if err != nil {
		s.releaseIdempotency(ctx, ownerID, req.IdempotencyKey)
		util.CheckoutsFailedTotal.WithLabelValues(string(apperr.KindOf(err))).Inc()
		return nil, nil, err
	}

	util.CheckoutsTotal.Inc()
	s.invalidateSummaries(ctx, ownerID)
	s.logger.Info("Checkout completed",
		zap.String("order_id", order.ID.String()),
		zap.Int("items", len(items)),
		zap.String("total_price", order.TotalPrice.String()))

	s.publishCheckoutCompleted(ctx, order, items)
	s.emitStockAlerts(ctx, ownerID, products)

	return order, items, nil
}

// claimIdempotency returns the already completed order for the key, if
// any, and otherwise claims the key in redis so concurrent duplicates are
// rejected while this checkout is in flight.
func (s *CheckoutService) claimIdempotency(ctx context.Context, ownerID uuid.UUID, key string) (*models.Order, error) {
	existing, err := s.store.GetOrderByIdempotencyKey(ctx, ownerID, key)
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	if s.cache == nil {
		return nil, nil
	}
	claimed, err := s.cache.ClaimIdempotencyKey(ctx, ownerID, key, s.idempotencyTTL)
	if err != nil {
		s.logger.Warn("Idempotency claim failed, relying on database constraint", zap.Error(err))
		return nil, nil
	}
	if !claimed {
		existing, err := s.store.GetOrderByIdempotencyKey(ctx, ownerID, key)
		if err != nil {
			return nil, fmt.Errorf("failed to check idempotency: %w", err)
		}
		if existing != nil {
			return existing, nil
		}
		return nil, apperr.Validation("checkout with idempotency key %q is already in progress", key)
	}
	return nil, nil
}

func (s *CheckoutService) releaseIdempotency(ctx context.Context, ownerID uuid.UUID, key string) {
	if s.cache == nil || key == "" {
		return
	}
	if err := s.cache.ReleaseIdempotencyKey(ctx, ownerID, key); err != nil {
		s.logger.Warn("Failed to release idempotency key", zap.Error(err))
	}
}

func (s *CheckoutService) publishCheckoutCompleted(ctx context.Context, order *models.Order, items []models.OrderItem) {
	if s.events == nil {
		return
	}

	sold := make([]models.SoldItemData, 0, len(items))
	for _, item := range items {
		sold = append(sold, models.SoldItemData{
			ProductID:    item.ProductID,
			Quantity:     item.Quantity,
			SellingPrice: item.SellingPrice,
			TotalPrice:   item.TotalPrice,
		})
	}

	event := &models.CheckoutCompletedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeCheckoutCompleted,
			Timestamp: time.Now(),
		},
		OrderID:    order.ID,
		OwnerID:    order.CreatedBy,
		CustomerID: order.CustomerID,
		TotalPrice: order.TotalPrice,
		Items:      sold,
	}

	if err := s.events.PublishCheckoutCompleted(ctx, event); err != nil {
		s.logger.Error("Failed to publish CheckoutCompleted event", zap.Error(err))
	}
}

// emitStockAlerts checks every sold product against its threshold: one
// low-stock alert per qualifying product, plus an out-of-stock alert when
// the quantity hit zero.
func (s *CheckoutService) emitStockAlerts(ctx context.Context, ownerID uuid.UUID, products []models.Product) {
	for i := range products {
		product := &products[i]
		if !product.BelowThreshold() {
			continue
		}

		s.emitAlert(ctx, ownerID, product, models.NotificationTypeLowStock,
			fmt.Sprintf("%s is due for a restock", product.Name))

		if product.CurrentQuantity == 0 {
			s.emitAlert(ctx, ownerID, product, models.NotificationTypeOutOfStock,
				fmt.Sprintf("%s is out of stock", product.Name))
		}
	}
}

func (s *CheckoutService) emitAlert(ctx context.Context, ownerID uuid.UUID, product *models.Product, alertType, text string) {
	util.StockAlertsTotal.WithLabelValues(alertType).Inc()

	if s.events != nil {
		event := &models.StockAlertEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeStockAlert,
				Timestamp: time.Now(),
			},
			OwnerID:         ownerID,
			ProductID:       product.ID,
			ProductName:     product.Name,
			AlertType:       alertType,
			CurrentQuantity: product.CurrentQuantity,
		}
		if err := s.events.PublishStockAlert(ctx, event); err != nil {
			s.logger.Error("Failed to publish StockAlert event",
				zap.String("product_id", product.ID.String()),
				zap.Error(err))
		}
		return
	}

	productID := product.ID
	notification := &models.Notification{
		Receiver:  ownerID,
		Text:      text,
		Type:      alertType,
		ProductID: &productID,
	}
	if err := s.store.CreateNotification(ctx, notification); err != nil {
		s.logger.Error("Failed to create stock notification",
			zap.String("product_id", product.ID.String()),
			zap.Error(err))
		return
	}
	util.NotificationsCreatedTotal.Inc()
}

// GetOrder retrieves an order with its items
func (s *CheckoutService) GetOrder(ctx context.Context, ownerID, orderID uuid.UUID) (*models.Order, []models.OrderItem, error) {
	order, err := s.store.GetOrderByID(ctx, ownerID, orderID)
	if err != nil {
		return nil, nil, err
	}

	items, err := s.store.GetOrderItemsByOrderID(ctx, ownerID, orderID)
	if err != nil {
		return nil, nil, err
	}

	return order, items, nil
}

// ListOrders retrieves the owner's orders
func (s *CheckoutService) ListOrders(ctx context.Context, ownerID uuid.UUID) ([]models.Order, error) {
	return s.store.ListOrders(ctx, ownerID)
}

// ProductSales reports sold quantity and revenue per product
func (s *CheckoutService) ProductSales(ctx context.Context, ownerID uuid.UUID) ([]models.ProductSales, error) {
	return s.store.ProductSalesReport(ctx, ownerID)
}

// CustomerSales reports order count, quantity and revenue per customer.
// A non-nil productID narrows the report to buyers of that product.
func (s *CheckoutService) CustomerSales(ctx context.Context, ownerID uuid.UUID, productID *uuid.UUID) ([]models.CustomerSales, error) {
	return s.store.CustomerSalesReport(ctx, ownerID, productID)
}

func (s *CheckoutService) invalidateSummaries(ctx context.Context, ownerID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateSummaries(ctx, ownerID); err != nil {
		s.logger.Warn("Summary cache invalidation failed", zap.Error(err))
	}
}

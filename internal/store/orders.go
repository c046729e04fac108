package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"inventory-service/internal/apperr"
	"inventory-service/internal/models"
)

// CheckoutTx atomically converts the owner's cart into one order. It locks
// the cart lines and their products, computes the cart total, asks
// buildOrder to validate the payment and produce the order row, snapshots
// every cart line into an order item and deletes the lines. Stock was
// already deducted when the lines were reserved, so quantities are not
// touched. Any error rolls the whole transaction back.
//
// The returned products carry the post-sale quantities for threshold
// alerting.
func (s *Store) CheckoutTx(
	ctx context.Context,
	ownerID uuid.UUID,
	buildOrder func(total decimal.Decimal) (*models.Order, error),
) (*models.Order, []models.OrderItem, []models.Product, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, nil, err
	}
	defer tx.Rollback()

	var lines []models.CartLine
	err = tx.SelectContext(ctx, &lines,
		"SELECT * FROM cart_lines WHERE created_by = $1 ORDER BY product_id FOR UPDATE", ownerID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to lock cart lines: %w", err)
	}
	if len(lines) == 0 {
		return nil, nil, nil, apperr.EmptyCart("cart is empty")
	}

	productIDs := make([]uuid.UUID, len(lines))
	total := decimal.Zero
	for i, line := range lines {
		productIDs[i] = line.ProductID
		total = total.Add(line.TotalPrice)
	}

	query, args, err := sqlx.In(
		"SELECT * FROM products WHERE id IN (?) ORDER BY id FOR UPDATE", productIDs)
	if err != nil {
		return nil, nil, nil, err
	}
	var products []models.Product
	if err := tx.SelectContext(ctx, &products, tx.Rebind(query), args...); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to lock products: %w", err)
	}
	productsByID := make(map[uuid.UUID]*models.Product, len(products))
	for i := range products {
		productsByID[products[i].ID] = &products[i]
	}

	order, err := buildOrder(total)
	if err != nil {
		return nil, nil, nil, err
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	order.CreatedBy = ownerID

	err = tx.GetContext(ctx, order, `
		INSERT INTO orders (id, customer_id, amount_payment, balance, total_price,
			grand_total, payment_date, idempotency_key, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9)
		RETURNING created_at, updated_at`,
		order.ID, order.CustomerID, order.AmountPayment, order.Balance, order.TotalPrice,
		order.GrandTotal, order.PaymentDate, order.IdempotencyKey, order.CreatedBy)
	if err != nil {
		if isUniqueViolation(err, "") {
			return nil, nil, nil, apperr.Validation("duplicate checkout submission")
		}
		return nil, nil, nil, fmt.Errorf("failed to create order: %w", err)
	}

	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		product := productsByID[line.ProductID]
		item := models.OrderItem{
			ID:           uuid.New(),
			OrderID:      order.ID,
			ProductID:    line.ProductID,
			Quantity:     line.Quantity,
			CostPrice:    product.CostPrice,
			SellingPrice: line.SellingPrice,
			TotalPrice:   line.TotalPrice,
			CreatedBy:    ownerID,
		}
		err = tx.GetContext(ctx, &item, `
			INSERT INTO order_items (id, order_id, product_id, quantity, cost_price,
				selling_price, total_price, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING created_at`,
			item.ID, item.OrderID, item.ProductID, item.Quantity, item.CostPrice,
			item.SellingPrice, item.TotalPrice, item.CreatedBy)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create order item: %w", err)
		}
		items = append(items, item)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM cart_lines WHERE created_by = $1", ownerID); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to clear cart: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, nil, err
	}
	return order, items, products, nil
}

// GetOrderByID retrieves an order owned by ownerID
func (s *Store) GetOrderByID(ctx context.Context, ownerID, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		"SELECT * FROM orders WHERE id = $1 AND created_by = $2", id, ownerID)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("order not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByIdempotencyKey retrieves an order by idempotency key, or nil
// when no order carries the key.
func (s *Store) GetOrderByIdempotencyKey(ctx context.Context, ownerID uuid.UUID, key string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		"SELECT * FROM orders WHERE idempotency_key = $1 AND created_by = $2", key, ownerID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders retrieves the owner's orders
func (s *Store) ListOrders(ctx context.Context, ownerID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE created_by = $1 ORDER BY created_at DESC", ownerID)
	return orders, err
}

// GetOrderItemsByOrderID retrieves all items for an order
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, ownerID, orderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 AND created_by = $2", orderID, ownerID)
	return items, err
}

// ProductSalesReport aggregates sold quantity and revenue per product over
// the owner's order items.
func (s *Store) ProductSalesReport(ctx context.Context, ownerID uuid.UUID) ([]models.ProductSales, error) {
	var sales []models.ProductSales
	err := s.db.SelectContext(ctx, &sales, `
		SELECT product_id, selling_price,
			COALESCE(SUM(quantity), 0) AS quantity_sold,
			COALESCE(SUM(total_price), 0) AS total_amount
		FROM order_items
		WHERE created_by = $1
		GROUP BY product_id, selling_price
		ORDER BY total_amount DESC`, ownerID)
	return sales, err
}

// CustomerSalesReport aggregates order count, sold quantity and revenue per
// customer over the owner's order items. A non-nil productID narrows the
// report to buyers of that product.
func (s *Store) CustomerSalesReport(ctx context.Context, ownerID uuid.UUID, productID *uuid.UUID) ([]models.CustomerSales, error) {
	query := `
		SELECT o.customer_id,
			COUNT(DISTINCT oi.order_id) AS order_count,
			COALESCE(SUM(oi.quantity), 0) AS product_quantity,
			COALESCE(SUM(oi.total_price), 0) AS total_amount
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE oi.created_by = $1`
	args := []interface{}{ownerID}
	if productID != nil {
		query += " AND oi.product_id = $2"
		args = append(args, *productID)
	}
	query += " GROUP BY o.customer_id ORDER BY total_amount DESC"

	var sales []models.CustomerSales
	err := s.db.SelectContext(ctx, &sales, query, args...)
	return sales, err
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"inventory-service/internal/apperr"
	"inventory-service/internal/models"
)

// AddToCartTx adds one unit of a product to the owner's cart: it creates
// the (product, owner) cart line with quantity 1 and a selling-price
// snapshot, or increments the existing line. The unit is deducted from the
// product's current_quantity under a row lock, so concurrent adds cannot
// both take the last unit. Fails with OutOfStock when no unit is left and
// nothing persists.
func (s *Store) AddToCartTx(ctx context.Context, ownerID, productID uuid.UUID) (*models.CartLine, *models.Product, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	var product models.Product
	err = tx.GetContext(ctx, &product,
		"SELECT * FROM products WHERE id = $1 AND created_by = $2 FOR UPDATE", productID, ownerID)
	if err == sql.ErrNoRows {
		return nil, nil, apperr.NotFound("product not found: %s", productID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock product: %w", err)
	}

	if product.CurrentQuantity < 1 {
		return nil, nil, apperr.OutOfStock("product %q is out of stock", product.Name)
	}

	var line models.CartLine
	err = tx.GetContext(ctx, &line,
		"SELECT * FROM cart_lines WHERE product_id = $1 AND created_by = $2 FOR UPDATE",
		productID, ownerID)
	switch {
	case err == sql.ErrNoRows:
		err = tx.GetContext(ctx, &line, `
			INSERT INTO cart_lines (id, product_id, quantity, selling_price, total_price, created_by)
			VALUES ($1, $2, 1, $3, $3, $4)
			RETURNING *`,
			uuid.New(), productID, product.SellingPrice, ownerID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create cart line: %w", err)
		}
	case err != nil:
		return nil, nil, fmt.Errorf("failed to lock cart line: %w", err)
	default:
		err = tx.GetContext(ctx, &line, `
			UPDATE cart_lines
			SET quantity = quantity + 1,
				total_price = selling_price * (quantity + 1),
				updated_at = NOW()
			WHERE id = $1
			RETURNING *`, line.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to increment cart line: %w", err)
		}
	}

	err = tx.GetContext(ctx, &product, `
		UPDATE products
		SET current_quantity = current_quantity - 1,
			low_quantity = (current_quantity - 1 <= minimum_stock_quantity),
			updated_at = NOW()
		WHERE id = $1
		RETURNING *`, productID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to reserve stock: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return &line, &product, nil
}

// SetCartQuantityTx changes a cart line to newQuantity. The difference is
// applied to the product's current_quantity (a positive diff reserves
// further stock, a negative diff returns it). Fails with
// QuantityUnavailable when the diff exceeds available stock or the new
// quantity exceeds the product's default quantity; the line is untouched.
func (s *Store) SetCartQuantityTx(ctx context.Context, ownerID, lineID uuid.UUID, newQuantity int) (*models.CartLine, *models.Product, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	var line models.CartLine
	err = tx.GetContext(ctx, &line,
		"SELECT * FROM cart_lines WHERE id = $1 AND created_by = $2", lineID, ownerID)
	if err == sql.ErrNoRows {
		return nil, nil, apperr.NotFound("cart line not found: %s", lineID)
	}
	if err != nil {
		return nil, nil, err
	}

	// Product before line keeps the lock order consistent with AddToCartTx.
	var product models.Product
	err = tx.GetContext(ctx, &product,
		"SELECT * FROM products WHERE id = $1 FOR UPDATE", line.ProductID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock product: %w", err)
	}
	err = tx.GetContext(ctx, &line,
		"SELECT * FROM cart_lines WHERE id = $1 AND created_by = $2 FOR UPDATE", lineID, ownerID)
	if err == sql.ErrNoRows {
		return nil, nil, apperr.NotFound("cart line not found: %s", lineID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock cart line: %w", err)
	}

	diff := newQuantity - line.Quantity
	if diff > product.CurrentQuantity || newQuantity > product.DefaultQuantity {
		return nil, nil, apperr.QuantityUnavailable(
			"requested quantity %d unavailable for product %q", newQuantity, product.Name)
	}

	err = tx.GetContext(ctx, &line, `
		UPDATE cart_lines
		SET quantity = $1, total_price = selling_price * $1, updated_at = NOW()
		WHERE id = $2
		RETURNING *`, newQuantity, lineID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to update cart line: %w", err)
	}

	err = tx.GetContext(ctx, &product, `
		UPDATE products
		SET current_quantity = current_quantity - $1,
			low_quantity = (current_quantity - $1 <= minimum_stock_quantity),
			updated_at = NOW()
		WHERE id = $2
		RETURNING *`, diff, line.ProductID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to adjust stock: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return &line, &product, nil
}

// RemoveCartLineTx deletes a cart line and returns its full reserved
// quantity to the product.
func (s *Store) RemoveCartLineTx(ctx context.Context, ownerID, lineID uuid.UUID) (*models.Product, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var line models.CartLine
	err = tx.GetContext(ctx, &line,
		"SELECT * FROM cart_lines WHERE id = $1 AND created_by = $2", lineID, ownerID)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("cart line not found: %s", lineID)
	}
	if err != nil {
		return nil, err
	}

	var product models.Product
	err = tx.GetContext(ctx, &product,
		"SELECT * FROM products WHERE id = $1 FOR UPDATE", line.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock product: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM cart_lines WHERE id = $1", lineID); err != nil {
		return nil, fmt.Errorf("failed to delete cart line: %w", err)
	}

	err = tx.GetContext(ctx, &product, `
		UPDATE products
		SET current_quantity = current_quantity + $1,
			low_quantity = (current_quantity + $1 <= minimum_stock_quantity),
			updated_at = NOW()
		WHERE id = $2
		RETURNING *`, line.Quantity, line.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to return stock: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &product, nil
}

// GetCartLine retrieves one cart line owned by ownerID
func (s *Store) GetCartLine(ctx context.Context, ownerID, lineID uuid.UUID) (*models.CartLine, error) {
	var line models.CartLine
	err := s.db.GetContext(ctx, &line,
		"SELECT * FROM cart_lines WHERE id = $1 AND created_by = $2", lineID, ownerID)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("cart line not found: %s", lineID)
	}
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// ListCartLines retrieves the owner's cart
func (s *Store) ListCartLines(ctx context.Context, ownerID uuid.UUID) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := s.db.SelectContext(ctx, &lines,
		"SELECT * FROM cart_lines WHERE created_by = $1 ORDER BY created_at DESC", ownerID)
	return lines, err
}

// CartSummary aggregates the owner's cart lines
func (s *Store) CartSummary(ctx context.Context, ownerID uuid.UUID) (*models.CartSummary, error) {
	var summary models.CartSummary
	err := s.db.GetContext(ctx, &summary, `
		SELECT COALESCE(SUM(total_price), 0) AS total_value,
			COALESCE(SUM(quantity), 0) AS total_items
		FROM cart_lines WHERE created_by = $1`, ownerID)
	return &summary, err
}

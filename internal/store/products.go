package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"inventory-service/internal/apperr"
	"inventory-service/internal/models"
)

// CreateProduct inserts a new product for the owner. Name collisions per
// owner surface as Validation errors.
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (id, name, category, cost_price, selling_price,
			default_quantity, current_quantity, minimum_stock_quantity, low_quantity, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`

	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	product.LowQuantity = product.CurrentQuantity <= product.MinimumStockQuantity

	err := s.db.GetContext(ctx, product, query,
		product.ID, product.Name, product.Category, product.CostPrice, product.SellingPrice,
		product.DefaultQuantity, product.CurrentQuantity, product.MinimumStockQuantity,
		product.LowQuantity, product.CreatedBy)
	if isUniqueViolation(err, "") {
		return apperr.Validation("product with name %q already exists", product.Name)
	}
	return err
}

// GetProductByID retrieves a product owned by ownerID
func (s *Store) GetProductByID(ctx context.Context, ownerID, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product,
		"SELECT * FROM products WHERE id = $1 AND created_by = $2", id, ownerID)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("product not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ListProducts retrieves all products owned by ownerID
func (s *Store) ListProducts(ctx context.Context, ownerID uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM products WHERE created_by = $1 ORDER BY created_at DESC", ownerID)
	return products, err
}

// UpdateProduct updates mutable product fields and recomputes the
// low-quantity flag against the possibly changed threshold.
func (s *Store) UpdateProduct(ctx context.Context, product *models.Product) error {
	query := `
		UPDATE products
		SET name = $1, category = $2, cost_price = $3, selling_price = $4,
			minimum_stock_quantity = $5,
			low_quantity = (current_quantity <= $5),
			updated_at = NOW()
		WHERE id = $6 AND created_by = $7
		RETURNING *`

	err := s.db.GetContext(ctx, product, query,
		product.Name, product.Category, product.CostPrice, product.SellingPrice,
		product.MinimumStockQuantity, product.ID, product.CreatedBy)
	if err == sql.ErrNoRows {
		return apperr.NotFound("product not found: %s", product.ID)
	}
	if isUniqueViolation(err, "") {
		return apperr.Validation("product with name %q already exists", product.Name)
	}
	return err
}

// DeleteProduct removes a product. Products referenced by order items are
// protected by the foreign key and surface as Validation errors.
func (s *Store) DeleteProduct(ctx context.Context, ownerID, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM products WHERE id = $1 AND created_by = $2", id, ownerID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperr.Validation("product %s has recorded sales and cannot be deleted", id)
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("product not found: %s", id)
	}
	return nil
}

// RestockTx replaces both default_quantity and current_quantity with
// quantity under a row lock and recomputes the low-quantity flag.
func (s *Store) RestockTx(ctx context.Context, ownerID, productID uuid.UUID, quantity int) (*models.Product, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var product models.Product
	err = tx.GetContext(ctx, &product,
		"SELECT * FROM products WHERE id = $1 AND created_by = $2 FOR UPDATE", productID, ownerID)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("product not found: %s", productID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock product: %w", err)
	}

	err = tx.GetContext(ctx, &product, `
		UPDATE products
		SET default_quantity = $1, current_quantity = $1,
			low_quantity = ($1 <= minimum_stock_quantity),
			updated_at = NOW()
		WHERE id = $2
		RETURNING *`, quantity, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to restock product: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &product, nil
}

// EvaluateThresholdTx recomputes and persists the low-quantity flag for a
// product under a row lock.
func (s *Store) EvaluateThresholdTx(ctx context.Context, ownerID, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, `
		UPDATE products
		SET low_quantity = (current_quantity <= minimum_stock_quantity), updated_at = NOW()
		WHERE id = $1 AND created_by = $2
		RETURNING *`, productID, ownerID)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("product not found: %s", productID)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// StockSummary aggregates the owner's inventory
func (s *Store) StockSummary(ctx context.Context, ownerID uuid.UUID) (*models.StockSummary, error) {
	var summary models.StockSummary
	err := s.db.GetContext(ctx, &summary, `
		SELECT COALESCE(SUM(current_quantity), 0) AS total_items,
			COALESCE(SUM(selling_price), 0) AS total_value
		FROM products WHERE created_by = $1`, ownerID)
	return &summary, err
}

// RestockCandidates lists the owner's products flagged low on stock
func (s *Store) RestockCandidates(ctx context.Context, ownerID uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM products WHERE created_by = $1 AND low_quantity = TRUE ORDER BY created_at DESC",
		ownerID)
	return products, err
}

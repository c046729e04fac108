package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"inventory-service/internal/apperr"
	"inventory-service/internal/models"
	"inventory-service/internal/redisclient"
	"inventory-service/internal/util"
)

// stockStore is the persistence surface the stock ledger needs.
type stockStore interface {
	CreateProduct(ctx context.Context, product *models.Product) error
	GetProductByID(ctx context.Context, ownerID, id uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context, ownerID uuid.UUID) ([]models.Product, error)
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, ownerID, id uuid.UUID) error
	RestockTx(ctx context.Context, ownerID, productID uuid.UUID, quantity int) (*models.Product, error)
	EvaluateThresholdTx(ctx context.Context, ownerID, productID uuid.UUID) (*models.Product, error)
	StockSummary(ctx context.Context, ownerID uuid.UUID) (*models.StockSummary, error)
	RestockCandidates(ctx context.Context, ownerID uuid.UUID) ([]models.Product, error)
}

// StockService owns product records and the stock ledger rules.
type StockService struct {
	store    stockStore
	cache    *redisclient.Client
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewStockService creates a new stock service. cache may be nil.
func NewStockService(store stockStore, cache *redisclient.Client, cacheTTL time.Duration) *StockService {
	return &StockService{
		store:    store,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   util.GetLogger(),
	}
}

// CreateProductRequest carries the fields a retailer supplies for a new
// product.
type CreateProductRequest struct {
	Name                 string          `json:"name" binding:"required"`
	Category             string          `json:"category"`
	CostPrice            decimal.Decimal `json:"cost_price"`
	SellingPrice         decimal.Decimal `json:"selling_price"`
	Quantity             int             `json:"quantity"`
	MinimumStockQuantity int             `json:"minimum_stock_quantity"`
}

// CreateProduct registers a new product with its opening stock level.
func (s *StockService) CreateProduct(ctx context.Context, ownerID uuid.UUID, req *CreateProductRequest) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "StockService.CreateProduct")
	defer span.End()

	if req.Quantity < 0 {
		return nil, apperr.Validation("quantity must not be negative")
	}
	if req.MinimumStockQuantity < 0 {
		return nil, apperr.Validation("minimum stock quantity must not be negative")
	}
	if req.CostPrice.IsNegative() || req.SellingPrice.IsNegative() {
		return nil, apperr.Validation("prices must not be negative")
	}

	product := &models.Product{
		Name:                 req.Name,
		Category:             req.Category,
		CostPrice:            req.CostPrice,
		SellingPrice:         req.SellingPrice,
		DefaultQuantity:      req.Quantity,
		CurrentQuantity:      req.Quantity,
		MinimumStockQuantity: req.MinimumStockQuantity,
		CreatedBy:            ownerID,
	}

	if err := s.store.CreateProduct(ctx, product); err != nil {
		return nil, err
	}

	s.invalidateSummaries(ctx, ownerID)
	s.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("owner_id", ownerID.String()))
	return product, nil
}

// GetProduct retrieves one product owned by ownerID
func (s *StockService) GetProduct(ctx context.Context, ownerID, productID uuid.UUID) (*models.Product, error) {
	return s.store.GetProductByID(ctx, ownerID, productID)
}

// ListProducts retrieves the owner's products
func (s *StockService) ListProducts(ctx context.Context, ownerID uuid.UUID) ([]models.Product, error) {
	return s.store.ListProducts(ctx, ownerID)
}

// UpdateProductRequest carries partial product updates.
type UpdateProductRequest struct {
	Name                 *string          `json:"name"`
	Category             *string          `json:"category"`
	CostPrice            *decimal.Decimal `json:"cost_price"`
	SellingPrice         *decimal.Decimal `json:"selling_price"`
	MinimumStockQuantity *int             `json:"minimum_stock_quantity"`
}

// UpdateProduct applies the supplied fields and re-evaluates the
// low-quantity flag against the possibly changed threshold.
func (s *StockService) UpdateProduct(ctx context.Context, ownerID, productID uuid.UUID, req *UpdateProductRequest) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "StockService.UpdateProduct")
	defer span.End()

	product, err := s.store.GetProductByID(ctx, ownerID, productID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Category != nil {
		product.Category = *req.Category
	}
	if req.CostPrice != nil {
		if req.CostPrice.IsNegative() {
			return nil, apperr.Validation("cost price must not be negative")
		}
		product.CostPrice = *req.CostPrice
	}
	if req.SellingPrice != nil {
		if req.SellingPrice.IsNegative() {
			return nil, apperr.Validation("selling price must not be negative")
		}
		product.SellingPrice = *req.SellingPrice
	}
	if req.MinimumStockQuantity != nil {
		if *req.MinimumStockQuantity < 0 {
			return nil, apperr.Validation("minimum stock quantity must not be negative")
		}
		product.MinimumStockQuantity = *req.MinimumStockQuantity
	}

	if err := s.store.UpdateProduct(ctx, product); err != nil {
		return nil, err
	}
	s.invalidateSummaries(ctx, ownerID)
	return product, nil
}

// DeleteProduct removes a product from the owner's catalog
func (s *StockService) DeleteProduct(ctx context.Context, ownerID, productID uuid.UUID) error {
	if err := s.store.DeleteProduct(ctx, ownerID, productID); err != nil {
		return err
	}
	s.invalidateSummaries(ctx, ownerID)
	return nil
}

// Restock replaces both the baseline and the live quantity with quantity
// and recomputes the low-quantity flag.
func (s *StockService) Restock(ctx context.Context, ownerID, productID uuid.UUID, quantity int) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "StockService.Restock")
	defer span.End()

	if quantity < 0 {
		return nil, apperr.Validation("restock quantity must not be negative")
	}

	product, err := s.store.RestockTx(ctx, ownerID, productID, quantity)
	if err != nil {
		return nil, err
	}

	util.RestocksTotal.Inc()
	s.invalidateSummaries(ctx, ownerID)
	s.logger.Info("Product restocked",
		zap.String("product_id", productID.String()),
		zap.Int("quantity", quantity))
	return product, nil
}

// EvaluateThreshold recomputes and persists the low-quantity flag.
func (s *StockService) EvaluateThreshold(ctx context.Context, ownerID, productID uuid.UUID) (*models.Product, error) {
	return s.store.EvaluateThresholdTx(ctx, ownerID, productID)
}

// Summary aggregates the owner's inventory, served from cache when fresh.
func (s *StockService) Summary(ctx context.Context, ownerID uuid.UUID) (*models.StockSummary, error) {
	if s.cache != nil {
		var cached models.StockSummary
		hit, err := s.cache.GetSummary(ctx, "stock", ownerID, &cached)
		if err != nil {
			s.logger.Warn("Stock summary cache read failed", zap.Error(err))
		} else if hit {
			return &cached, nil
		}
	}

	summary, err := s.store.StockSummary(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.CacheSummary(ctx, "stock", ownerID, summary, s.cacheTTL); err != nil {
			s.logger.Warn("Stock summary cache write failed", zap.Error(err))
		}
	}
	return summary, nil
}

// RestockCandidates lists the owner's products flagged low on stock.
func (s *StockService) RestockCandidates(ctx context.Context, ownerID uuid.UUID) ([]models.Product, error) {
	return s.store.RestockCandidates(ctx, ownerID)
}

func (s *StockService) invalidateSummaries(ctx context.Context, ownerID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateSummaries(ctx, ownerID); err != nil {
		s.logger.Warn("Summary cache invalidation failed", zap.Error(err))
	}
}

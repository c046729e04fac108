package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"inventory-service/internal/apperr"
	"inventory-service/internal/models"
	"inventory-service/internal/redisclient"
	"inventory-service/internal/util"
)

// cartStore is the persistence surface the cart manager needs.
type cartStore interface {
	AddToCartTx(ctx context.Context, ownerID, productID uuid.UUID) (*models.CartLine, *models.Product, error)
	SetCartQuantityTx(ctx context.Context, ownerID, lineID uuid.UUID, newQuantity int) (*models.CartLine, *models.Product, error)
	RemoveCartLineTx(ctx context.Context, ownerID, lineID uuid.UUID) (*models.Product, error)
	ListCartLines(ctx context.Context, ownerID uuid.UUID) ([]models.CartLine, error)
	CartSummary(ctx context.Context, ownerID uuid.UUID) (*models.CartSummary, error)
}

// CartService mutates the stock ledger as items move in and out of
// per-user carts.
type CartService struct {
	store    cartStore
	cache    *redisclient.Client
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewCartService creates a new cart service. cache may be nil.
func NewCartService(store cartStore, cache *redisclient.Client, cacheTTL time.Duration) *CartService {
	return &CartService{
		store:    store,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   util.GetLogger(),
	}
}

// AddToCartRequest lists products to add, one unit each.
type AddToCartRequest struct {
	Products []uuid.UUID `json:"products" binding:"required,min=1"`
}

// AddToCart reserves one unit of every listed product into the owner's
// cart. Each unit is deducted from the product's live stock at reservation
// time. The first failing product aborts the remaining adds.
func (s *CartService) AddToCart(ctx context.Context, ownerID uuid.UUID, req *AddToCartRequest) ([]models.CartLine, error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddToCart")
	defer span.End()

	lines := make([]models.CartLine, 0, len(req.Products))
	for _, productID := range req.Products {
		line, product, err := s.store.AddToCartTx(ctx, ownerID, productID)
		if err != nil {
			util.CartAddsFailedTotal.WithLabelValues(string(apperr.KindOf(err))).Inc()
			return nil, err
		}

		util.CartAddsTotal.Inc()
		lines = append(lines, *line)
		s.logger.Info("Added to cart",
			zap.String("product_id", productID.String()),
			zap.Int("cart_quantity", line.Quantity),
			zap.Int("stock_remaining", product.CurrentQuantity))
	}

	s.invalidateSummaries(ctx, ownerID)
	return lines, nil
}

// SetQuantity changes a cart line to newQuantity, reserving or returning
// the stock difference.
func (s *CartService) SetQuantity(ctx context.Context, ownerID, lineID uuid.UUID, newQuantity int) (*models.CartLine, error) {
	ctx, span := util.StartSpan(ctx, "CartService.SetQuantity")
	defer span.End()

	if newQuantity < 1 {
		return nil, apperr.Validation("quantity must be at least 1")
	}

	line, product, err := s.store.SetCartQuantityTx(ctx, ownerID, lineID, newQuantity)
	if err != nil {
		return nil, err
	}

	s.invalidateSummaries(ctx, ownerID)
	s.logger.Info("Cart quantity updated",
		zap.String("cart_line_id", lineID.String()),
		zap.Int("quantity", newQuantity),
		zap.Int("stock_remaining", product.CurrentQuantity))
	return line, nil
}

// Remove deletes a cart line and returns its reserved quantity to stock.
func (s *CartService) Remove(ctx context.Context, ownerID, lineID uuid.UUID) error {
	ctx, span := util.StartSpan(ctx, "CartService.Remove")
	defer span.End()

	product, err := s.store.RemoveCartLineTx(ctx, ownerID, lineID)
	if err != nil {
		return err
	}

	util.CartRemovalsTotal.Inc()
	s.invalidateSummaries(ctx, ownerID)
	s.logger.Info("Cart line removed",
		zap.String("cart_line_id", lineID.String()),
		zap.Int("stock_restored_to", product.CurrentQuantity))
	return nil
}

// List retrieves the owner's cart lines
func (s *CartService) List(ctx context.Context, ownerID uuid.UUID) ([]models.CartLine, error) {
	return s.store.ListCartLines(ctx, ownerID)
}

// Summarize aggregates the owner's cart, served from cache when fresh.
func (s *CartService) Summarize(ctx context.Context, ownerID uuid.UUID) (*models.CartSummary, error) {
	if s.cache != nil {
		var cached models.CartSummary
		hit, err := s.cache.GetSummary(ctx, "cart", ownerID, &cached)
		if err != nil {
			s.logger.Warn("Cart summary cache read failed", zap.Error(err))
		} else if hit {
			return &cached, nil
		}
	}

	summary, err := s.store.CartSummary(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.CacheSummary(ctx, "cart", ownerID, summary, s.cacheTTL); err != nil {
			s.logger.Warn("Cart summary cache write failed", zap.Error(err))
		}
	}
	return summary, nil
}

func (s *CartService) invalidateSummaries(ctx context.Context, ownerID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateSummaries(ctx, ownerID); err != nil {
		s.logger.Warn("Summary cache invalidation failed", zap.Error(err))
	}
}

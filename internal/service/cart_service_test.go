package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-service/internal/apperr"
	"inventory-service/internal/models"
	"inventory-service/internal/storetest"
)

func seedCartFixture(t *testing.T) (*storetest.Store, *CartService, uuid.UUID, models.Product) {
	t.Helper()
	st := storetest.New()
	svc := NewCartService(st, nil, 0)
	owner := uuid.New()
	product := st.SeedProduct(models.Product{
		Name:                 "Beans 1kg",
		SellingPrice:         decimal.NewFromInt(500),
		DefaultQuantity:      5,
		CurrentQuantity:      5,
		MinimumStockQuantity: 2,
		CreatedBy:            owner,
	})
	return st, svc, owner, product
}

func TestAddToCartReservesStock(t *testing.T) {
	st, svc, owner, product := seedCartFixture(t)

	lines, err := svc.AddToCart(context.Background(), owner, &AddToCartRequest{
		Products: []uuid.UUID{product.ID},
	})
	require.NoError(t, err)
	require.Len(t, lines, 1)

	assert.Equal(t, 1, lines[0].Quantity)
	assert.True(t, lines[0].SellingPrice.Equal(decimal.NewFromInt(500)))
	assert.True(t, lines[0].TotalPrice.Equal(decimal.NewFromInt(500)))

	stored, err := st.GetProductByID(context.Background(), owner, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.CurrentQuantity)
	assert.False(t, stored.LowQuantity)
}

func TestAddToCartTwiceKeepsOneLine(t *testing.T) {
	st, svc, owner, product := seedCartFixture(t)

	_, err := svc.AddToCart(context.Background(), owner, &AddToCartRequest{Products: []uuid.UUID{product.ID}})
	require.NoError(t, err)
	lines, err := svc.AddToCart(context.Background(), owner, &AddToCartRequest{Products: []uuid.UUID{product.ID}})
	require.NoError(t, err)

	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.True(t, lines[0].TotalPrice.Equal(decimal.NewFromInt(1000)))

	all, err := svc.List(context.Background(), owner)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	stored, err := st.GetProductByID(context.Background(), owner, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.CurrentQuantity)
}

func TestAddToCartDrainsStockThenRejects(t *testing.T) {
	st, svc, owner, product := seedCartFixture(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := svc.AddToCart(ctx, owner, &AddToCartRequest{Products: []uuid.UUID{product.ID}})
		require.NoError(t, err)
	}

	stored, err := st.GetProductByID(ctx, owner, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.CurrentQuantity)
	assert.True(t, stored.LowQuantity)

	// Fifth add takes the last unit.
	_, err = svc.AddToCart(ctx, owner, &AddToCartRequest{Products: []uuid.UUID{product.ID}})
	require.NoError(t, err)

	stored, err = st.GetProductByID(ctx, owner, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.CurrentQuantity)

	// Sixth add must fail without touching the ledger.
	_, err = svc.AddToCart(ctx, owner, &AddToCartRequest{Products: []uuid.UUID{product.ID}})
	require.Error(t, err)
	assert.Equal(t, apperr.KindOutOfStock, apperr.KindOf(err))

	stored, err = st.GetProductByID(ctx, owner, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.CurrentQuantity)

	lines, err := svc.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)
}

func TestAddToCartUnknownProduct(t *testing.T) {
	_, svc, owner, _ := seedCartFixture(t)

	_, err := svc.AddToCart(context.Background(), owner, &AddToCartRequest{
		Products: []uuid.UUID{uuid.New()},
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestSetQuantityReservesDifference(t *testing.T) {
	st, svc, owner, product := seedCartFixture(t)
	ctx := context.Background()

	lines, err := svc.AddToCart(ctx, owner, &AddToCartRequest{Products: []uuid.UUID{product.ID}})
	require.NoError(t, err)

	line, err := svc.SetQuantity(ctx, owner, lines[0].ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, line.Quantity)
	assert.True(t, line.TotalPrice.Equal(decimal.NewFromInt(1500)))

	stored, err := st.GetProductByID(ctx, owner, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.CurrentQuantity)
	assert.True(t, stored.LowQuantity)
}

func TestSetQuantityReturnsDifference(t *testing.T) {
	st, svc, owner, product := seedCartFixture(t)
	ctx := context.Background()

	lines, err := svc.AddToCart(ctx, owner, &AddToCartRequest{Products: []uuid.UUID{product.ID}})
	require.NoError(t, err)
	_, err = svc.SetQuantity(ctx, owner, lines[0].ID, 4)
	require.NoError(t, err)

	_, err = svc.SetQuantity(ctx, owner, lines[0].ID, 1)
	require.NoError(t, err)

	stored, err := st.GetProductByID(ctx, owner, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.CurrentQuantity)
	assert.False(t, stored.LowQuantity)
}

func TestSetQuantityUnavailable(t *testing.T) {
	st := storetest.New()
	svc := NewCartService(st, nil, 0)
	owner := uuid.New()
	ctx := context.Background()

	product := st.SeedProduct(models.Product{
		Name:                 "Garri",
		SellingPrice:         decimal.NewFromInt(300),
		DefaultQuantity:      4,
		CurrentQuantity:      4,
		MinimumStockQuantity: 1,
		CreatedBy:            owner,
	})

	var lineID uuid.UUID
	for i := 0; i < 2; i++ {
		lines, err := svc.AddToCart(ctx, owner, &AddToCartRequest{Products: []uuid.UUID{product.ID}})
		require.NoError(t, err)
		lineID = lines[0].ID
	}

	// Asking for 5 exceeds the product's baseline of 4.
	_, err := svc.SetQuantity(ctx, owner, lineID, 5)
	require.Error(t, err)
	assert.Equal(t, apperr.KindQuantityUnavailable, apperr.KindOf(err))

	// Ledger and line untouched by the failed update.
	stored, err := st.GetProductByID(ctx, owner, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.CurrentQuantity)

	lines, err := svc.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestSetQuantityRejectsZero(t *testing.T) {
	_, svc, owner, _ := seedCartFixture(t)

	_, err := svc.SetQuantity(context.Background(), owner, uuid.New(), 0)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestRemoveReturnsReservedStock(t *testing.T) {
	st, svc, owner, product := seedCartFixture(t)
	ctx := context.Background()

	lines, err := svc.AddToCart(ctx, owner, &AddToCartRequest{Products: []uuid.UUID{product.ID}})
	require.NoError(t, err)
	_, err = svc.SetQuantity(ctx, owner, lines[0].ID, 3)
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, owner, lines[0].ID))

	stored, err := st.GetProductByID(ctx, owner, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.CurrentQuantity)
	assert.False(t, stored.LowQuantity)

	remaining, err := svc.List(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestRemoveUnknownLine(t *testing.T) {
	_, svc, owner, _ := seedCartFixture(t)

	err := svc.Remove(context.Background(), owner, uuid.New())
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCartSummary(t *testing.T) {
	st := storetest.New()
	svc := NewCartService(st, nil, 0)
	owner := uuid.New()
	ctx := context.Background()

	a := st.SeedProduct(models.Product{
		Name: "A", SellingPrice: decimal.NewFromInt(100),
		DefaultQuantity: 10, CurrentQuantity: 10, CreatedBy: owner,
	})
	b := st.SeedProduct(models.Product{
		Name: "B", SellingPrice: decimal.NewFromInt(40),
		DefaultQuantity: 10, CurrentQuantity: 10, CreatedBy: owner,
	})

	_, err := svc.AddToCart(ctx, owner, &AddToCartRequest{Products: []uuid.UUID{a.ID, a.ID, b.ID}})
	require.NoError(t, err)

	summary, err := svc.Summarize(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalItems)
	assert.True(t, summary.TotalValue.Equal(decimal.NewFromInt(240)), "got %s", summary.TotalValue)
}

func TestCartsAreScopedPerUser(t *testing.T) {
	st := storetest.New()
	svc := NewCartService(st, nil, 0)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	product := st.SeedProduct(models.Product{
		Name: "Shared", SellingPrice: decimal.NewFromInt(100),
		DefaultQuantity: 10, CurrentQuantity: 10, CreatedBy: alice,
	})

	_, err := svc.AddToCart(ctx, alice, &AddToCartRequest{Products: []uuid.UUID{product.ID}})
	require.NoError(t, err)

	bobLines, err := svc.List(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, bobLines)
}

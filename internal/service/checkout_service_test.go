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

type captureSink struct {
	checkouts []*models.CheckoutCompletedEvent
	alerts    []*models.StockAlertEvent
}

func (c *captureSink) PublishCheckoutCompleted(ctx context.Context, event *models.CheckoutCompletedEvent) error {
	c.checkouts = append(c.checkouts, event)
	return nil
}

func (c *captureSink) PublishStockAlert(ctx context.Context, event *models.StockAlertEvent) error {
	c.alerts = append(c.alerts, event)
	return nil
}

func seedCheckoutFixture(t *testing.T) (*storetest.Store, *CartService, uuid.UUID, models.Product) {
	t.Helper()
	st := storetest.New()
	cart := NewCartService(st, nil, 0)
	owner := uuid.New()
	product := st.SeedProduct(models.Product{
		Name:                 "Yam Flour",
		CostPrice:            decimal.NewFromInt(700),
		SellingPrice:         decimal.NewFromInt(1000),
		DefaultQuantity:      10,
		CurrentQuantity:      10,
		MinimumStockQuantity: 2,
		CreatedBy:            owner,
	})
	return st, cart, owner, product
}

func fillCart(t *testing.T, cart *CartService, owner uuid.UUID, productID uuid.UUID, units int) {
	t.Helper()
	for i := 0; i < units; i++ {
		_, err := cart.AddToCart(context.Background(), owner, &AddToCartRequest{Products: []uuid.UUID{productID}})
		require.NoError(t, err)
	}
}

func TestValidatePayment(t *testing.T) {
	total := decimal.NewFromInt(1000)

	tests := []struct {
		name    string
		amount  decimal.Decimal
		wantErr bool
	}{
		{"partial payment accepted", decimal.NewFromInt(400), false},
		{"zero payment accepted", decimal.Zero, false},
		{"negative rejected", decimal.NewFromInt(-1), true},
		{"overpayment rejected", decimal.NewFromInt(1001), true},
		{"exact payment rejected", decimal.NewFromInt(1000), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePayment(tt.amount, total)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperr.KindInvalidPayment, apperr.KindOf(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	st, _, owner, _ := seedCheckoutFixture(t)
	svc := NewCheckoutService(st, nil, nil, 0)

	_, _, err := svc.Checkout(context.Background(), owner, &CheckoutRequest{
		AmountPayment: decimal.NewFromInt(100),
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindEmptyCart, apperr.KindOf(err))

	orders, err := svc.ListOrders(context.Background(), owner)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCheckoutCreatesOrderWithSnapshots(t *testing.T) {
	st, cart, owner, product := seedCheckoutFixture(t)
	svc := NewCheckoutService(st, nil, nil, 0)
	ctx := context.Background()

	fillCart(t, cart, owner, product.ID, 3)

	order, items, err := svc.Checkout(ctx, owner, &CheckoutRequest{
		AmountPayment: decimal.NewFromInt(2500),
	})
	require.NoError(t, err)

	assert.True(t, order.TotalPrice.Equal(decimal.NewFromInt(3000)), "got %s", order.TotalPrice)
	assert.True(t, order.GrandTotal.Equal(decimal.NewFromInt(3000)))
	assert.True(t, order.Balance.Equal(decimal.NewFromInt(500)), "got %s", order.Balance)
	assert.Equal(t, owner, order.CreatedBy)
	assert.False(t, order.PaymentDate.IsZero())

	require.Len(t, items, 1)
	assert.Equal(t, product.ID, items[0].ProductID)
	assert.Equal(t, 3, items[0].Quantity)
	assert.True(t, items[0].CostPrice.Equal(decimal.NewFromInt(700)))
	assert.True(t, items[0].SellingPrice.Equal(decimal.NewFromInt(1000)))
	assert.True(t, items[0].TotalPrice.Equal(decimal.NewFromInt(3000)))

	// Cart is cleared; stock stays where the reservations left it.
	lines, err := cart.List(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, lines)

	stored, err := st.GetProductByID(ctx, owner, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, stored.CurrentQuantity)
}

func TestCheckoutRejectsExactPayment(t *testing.T) {
	st, cart, owner, product := seedCheckoutFixture(t)
	svc := NewCheckoutService(st, nil, nil, 0)
	ctx := context.Background()

	fillCart(t, cart, owner, product.ID, 2)

	_, _, err := svc.Checkout(ctx, owner, &CheckoutRequest{
		AmountPayment: decimal.NewFromInt(2000),
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidPayment, apperr.KindOf(err))

	// The failed checkout must not consume the cart.
	lines, err := cart.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)

	orders, err := svc.ListOrders(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCheckoutUnknownCustomer(t *testing.T) {
	st, cart, owner, product := seedCheckoutFixture(t)
	svc := NewCheckoutService(st, nil, nil, 0)

	fillCart(t, cart, owner, product.ID, 1)

	missing := uuid.New()
	_, _, err := svc.Checkout(context.Background(), owner, &CheckoutRequest{
		CustomerID:    &missing,
		AmountPayment: decimal.NewFromInt(100),
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCheckoutWritesLowStockNotification(t *testing.T) {
	st, cart, owner, product := seedCheckoutFixture(t)
	// No event sink: alerts land in the notification table directly.
	svc := NewCheckoutService(st, nil, nil, 0)
	ctx := context.Background()

	// Drain to 1 unit left, below the threshold of 2.
	fillCart(t, cart, owner, product.ID, 9)

	_, _, err := svc.Checkout(ctx, owner, &CheckoutRequest{AmountPayment: decimal.NewFromInt(100)})
	require.NoError(t, err)

	notifications, err := st.ListNotifications(ctx, owner)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, models.NotificationTypeLowStock, notifications[0].Type)
	assert.Equal(t, models.NotificationStatusUnread, notifications[0].Status)
	assert.Contains(t, notifications[0].Text, product.Name)
	require.NotNil(t, notifications[0].ProductID)
	assert.Equal(t, product.ID, *notifications[0].ProductID)
}

func TestCheckoutWritesOutOfStockNotification(t *testing.T) {
	st, cart, owner, product := seedCheckoutFixture(t)
	svc := NewCheckoutService(st, nil, nil, 0)
	ctx := context.Background()

	fillCart(t, cart, owner, product.ID, 10)

	_, _, err := svc.Checkout(ctx, owner, &CheckoutRequest{AmountPayment: decimal.NewFromInt(100)})
	require.NoError(t, err)

	notifications, err := st.ListNotifications(ctx, owner)
	require.NoError(t, err)
	require.Len(t, notifications, 2)

	types := []string{notifications[0].Type, notifications[1].Type}
	assert.Contains(t, types, models.NotificationTypeLowStock)
	assert.Contains(t, types, models.NotificationTypeOutOfStock)
}

func TestCheckoutNoAlertAboveThreshold(t *testing.T) {
	st, cart, owner, product := seedCheckoutFixture(t)
	svc := NewCheckoutService(st, nil, nil, 0)
	ctx := context.Background()

	fillCart(t, cart, owner, product.ID, 2)

	_, _, err := svc.Checkout(ctx, owner, &CheckoutRequest{AmountPayment: decimal.NewFromInt(100)})
	require.NoError(t, err)

	notifications, err := st.ListNotifications(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, notifications)
}

func TestCheckoutAlertsEverySoldProductBelowThreshold(t *testing.T) {
	st := storetest.New()
	cart := NewCartService(st, nil, 0)
	svc := NewCheckoutService(st, nil, nil, 0)
	owner := uuid.New()
	ctx := context.Background()

	first := st.SeedProduct(models.Product{
		Name: "First", SellingPrice: decimal.NewFromInt(100),
		DefaultQuantity: 3, CurrentQuantity: 3, MinimumStockQuantity: 2, CreatedBy: owner,
	})
	second := st.SeedProduct(models.Product{
		Name: "Second", SellingPrice: decimal.NewFromInt(100),
		DefaultQuantity: 3, CurrentQuantity: 3, MinimumStockQuantity: 2, CreatedBy: owner,
	})

	// Both drop to 2, at the threshold, regardless of add order.
	fillCart(t, cart, owner, first.ID, 1)
	fillCart(t, cart, owner, second.ID, 1)

	_, _, err := svc.Checkout(ctx, owner, &CheckoutRequest{AmountPayment: decimal.NewFromInt(50)})
	require.NoError(t, err)

	notifications, err := st.ListNotifications(ctx, owner)
	require.NoError(t, err)
	require.Len(t, notifications, 2)

	var alerted []uuid.UUID
	for _, n := range notifications {
		require.NotNil(t, n.ProductID)
		alerted = append(alerted, *n.ProductID)
	}
	assert.Contains(t, alerted, first.ID)
	assert.Contains(t, alerted, second.ID)
}

func TestCheckoutPublishesEventsWhenSinkPresent(t *testing.T) {
	st, cart, owner, product := seedCheckoutFixture(t)
	sink := &captureSink{}
	svc := NewCheckoutService(st, nil, sink, 0)
	ctx := context.Background()

	fillCart(t, cart, owner, product.ID, 10)

	order, _, err := svc.Checkout(ctx, owner, &CheckoutRequest{AmountPayment: decimal.NewFromInt(100)})
	require.NoError(t, err)

	require.Len(t, sink.checkouts, 1)
	assert.Equal(t, order.ID, sink.checkouts[0].OrderID)
	assert.Equal(t, models.EventTypeCheckoutCompleted, sink.checkouts[0].EventType)
	require.Len(t, sink.checkouts[0].Items, 1)
	assert.Equal(t, 10, sink.checkouts[0].Items[0].Quantity)

	// Low stock and out of stock both fire through the sink.
	require.Len(t, sink.alerts, 2)
	assert.Equal(t, models.EventTypeStockAlert, sink.alerts[0].EventType)
	assert.Equal(t, product.ID, sink.alerts[0].ProductID)

	// With a sink wired, nothing is written synchronously.
	notifications, err := st.ListNotifications(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, notifications)
}

func TestCheckoutIdempotencyKeyReturnsExistingOrder(t *testing.T) {
	st, cart, owner, product := seedCheckoutFixture(t)
	svc := NewCheckoutService(st, nil, nil, 0)
	ctx := context.Background()

	fillCart(t, cart, owner, product.ID, 2)

	first, firstItems, err := svc.Checkout(ctx, owner, &CheckoutRequest{
		AmountPayment:  decimal.NewFromInt(500),
		IdempotencyKey: "req-abc123",
	})
	require.NoError(t, err)
	require.Len(t, firstItems, 1)

	// The retry must not create a second order even with items in the cart.
	fillCart(t, cart, owner, product.ID, 1)

	second, secondItems, err := svc.Checkout(ctx, owner, &CheckoutRequest{
		AmountPayment:  decimal.NewFromInt(500),
		IdempotencyKey: "req-abc123",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, secondItems, 1)

	orders, err := svc.ListOrders(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestCheckoutWithCustomer(t *testing.T) {
	st, cart, owner, product := seedCheckoutFixture(t)
	svc := NewCheckoutService(st, nil, nil, 0)
	ctx := context.Background()

	customer := st.SeedCustomer(models.Customer{Name: "Ada", CreatedBy: owner})
	fillCart(t, cart, owner, product.ID, 1)

	order, _, err := svc.Checkout(ctx, owner, &CheckoutRequest{
		CustomerID:    &customer.ID,
		AmountPayment: decimal.NewFromInt(200),
	})
	require.NoError(t, err)
	require.NotNil(t, order.CustomerID)
	assert.Equal(t, customer.ID, *order.CustomerID)
}

func TestGetOrderWithItems(t *testing.T) {
	st, cart, owner, product := seedCheckoutFixture(t)
	svc := NewCheckoutService(st, nil, nil, 0)
	ctx := context.Background()

	fillCart(t, cart, owner, product.ID, 2)
	order, _, err := svc.Checkout(ctx, owner, &CheckoutRequest{AmountPayment: decimal.NewFromInt(100)})
	require.NoError(t, err)

	got, items, err := svc.GetOrder(ctx, owner, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)

	// Another owner cannot see the order.
	_, _, err = svc.GetOrder(ctx, uuid.New(), order.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestProductSales(t *testing.T) {
	st, cart, owner, product := seedCheckoutFixture(t)
	svc := NewCheckoutService(st, nil, nil, 0)
	ctx := context.Background()

	fillCart(t, cart, owner, product.ID, 2)
	_, _, err := svc.Checkout(ctx, owner, &CheckoutRequest{AmountPayment: decimal.NewFromInt(100)})
	require.NoError(t, err)

	fillCart(t, cart, owner, product.ID, 3)
	_, _, err = svc.Checkout(ctx, owner, &CheckoutRequest{AmountPayment: decimal.NewFromInt(100)})
	require.NoError(t, err)

	report, err := svc.ProductSales(ctx, owner)
	require.NoError(t, err)
	require.Len(t, report, 1)
	assert.Equal(t, product.ID, report[0].ProductID)
	assert.Equal(t, 5, report[0].QuantitySold)
	assert.True(t, report[0].TotalAmount.Equal(decimal.NewFromInt(5000)), "got %s", report[0].TotalAmount)
}

func TestCustomerSales(t *testing.T) {
	st, cart, owner, product := seedCheckoutFixture(t)
	svc := NewCheckoutService(st, nil, nil, 0)
	ctx := context.Background()

	customer := st.SeedCustomer(models.Customer{Name: "Ada", CreatedBy: owner})

	fillCart(t, cart, owner, product.ID, 2)
	_, _, err := svc.Checkout(ctx, owner, &CheckoutRequest{
		CustomerID:    &customer.ID,
		AmountPayment: decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	fillCart(t, cart, owner, product.ID, 1)
	_, _, err = svc.Checkout(ctx, owner, &CheckoutRequest{
		CustomerID:    &customer.ID,
		AmountPayment: decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	report, err := svc.CustomerSales(ctx, owner, nil)
	require.NoError(t, err)
	require.Len(t, report, 1)
	assert.Equal(t, 2, report[0].OrderCount)
	assert.Equal(t, 3, report[0].ProductQuantity)
	assert.True(t, report[0].TotalAmount.Equal(decimal.NewFromInt(3000)))

	// Filtering on a product nobody bought yields nothing.
	other := uuid.New()
	report, err = svc.CustomerSales(ctx, owner, &other)
	require.NoError(t, err)
	assert.Empty(t, report)
}

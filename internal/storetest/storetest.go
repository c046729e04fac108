// Package storetest provides an in-memory store with the same command
// semantics as the Postgres store, for service and handler tests.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"inventory-service/internal/apperr"
	"inventory-service/internal/models"
)

type Store struct {
	mu sync.Mutex

	products        map[uuid.UUID]models.Product
	cartLines       map[uuid.UUID]models.CartLine
	customers       map[uuid.UUID]models.Customer
	orders          map[uuid.UUID]models.Order
	orderItems      map[uuid.UUID][]models.OrderItem
	notifications   map[uuid.UUID]models.Notification
	processedEvents map[string]string
}

func New() *Store {
	return &Store{
		products:        make(map[uuid.UUID]models.Product),
		cartLines:       make(map[uuid.UUID]models.CartLine),
		customers:       make(map[uuid.UUID]models.Customer),
		orders:          make(map[uuid.UUID]models.Order),
		orderItems:      make(map[uuid.UUID][]models.OrderItem),
		notifications:   make(map[uuid.UUID]models.Notification),
		processedEvents: make(map[string]string),
	}
}

// SeedProduct inserts a product directly, bypassing validation.
func (s *Store) SeedProduct(p models.Product) models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.LowQuantity = p.CurrentQuantity <= p.MinimumStockQuantity
	s.products[p.ID] = p
	return p
}

// SeedCustomer inserts a customer directly.
func (s *Store) SeedCustomer(c models.Customer) models.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	s.customers[c.ID] = c
	return c
}

func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.products {
		if existing.CreatedBy == product.CreatedBy && existing.Name == product.Name {
			return apperr.Validation("product with name %q already exists", product.Name)
		}
	}
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	product.LowQuantity = product.CurrentQuantity <= product.MinimumStockQuantity
	product.CreatedAt = time.Now()
	product.UpdatedAt = product.CreatedAt
	s.products[product.ID] = *product
	return nil
}

func (s *Store) GetProductByID(ctx context.Context, ownerID, id uuid.UUID) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getProduct(ownerID, id)
}

func (s *Store) getProduct(ownerID, id uuid.UUID) (*models.Product, error) {
	product, ok := s.products[id]
	if !ok || product.CreatedBy != ownerID {
		return nil, apperr.NotFound("product not found: %s", id)
	}
	copied := product
	return &copied, nil
}

func (s *Store) ListProducts(ctx context.Context, ownerID uuid.UUID) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var products []models.Product
	for _, p := range s.products {
		if p.CreatedBy == ownerID {
			products = append(products, p)
		}
	}
	sort.Slice(products, func(i, j int) bool {
		return products[i].CreatedAt.After(products[j].CreatedAt)
	})
	return products, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[product.ID]
	if !ok || existing.CreatedBy != product.CreatedBy {
		return apperr.NotFound("product not found: %s", product.ID)
	}
	product.CurrentQuantity = existing.CurrentQuantity
	product.DefaultQuantity = existing.DefaultQuantity
	product.LowQuantity = product.CurrentQuantity <= product.MinimumStockQuantity
	product.UpdatedAt = time.Now()
	s.products[product.ID] = *product
	return nil
}

func (s *Store) DeleteProduct(ctx context.Context, ownerID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[id]
	if !ok || product.CreatedBy != ownerID {
		return apperr.NotFound("product not found: %s", id)
	}
	for _, items := range s.orderItems {
		for _, item := range items {
			if item.ProductID == id {
				return apperr.Validation("product %s has recorded sales and cannot be deleted", id)
			}
		}
	}
	delete(s.products, id)
	return nil
}

func (s *Store) RestockTx(ctx context.Context, ownerID, productID uuid.UUID, quantity int) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, err := s.getProduct(ownerID, productID)
	if err != nil {
		return nil, err
	}
	product.DefaultQuantity = quantity
	product.CurrentQuantity = quantity
	product.LowQuantity = quantity <= product.MinimumStockQuantity
	product.UpdatedAt = time.Now()
	s.products[productID] = *product
	return product, nil
}

func (s *Store) EvaluateThresholdTx(ctx context.Context, ownerID, productID uuid.UUID) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, err := s.getProduct(ownerID, productID)
	if err != nil {
		return nil, err
	}
	product.LowQuantity = product.CurrentQuantity <= product.MinimumStockQuantity
	product.UpdatedAt = time.Now()
	s.products[productID] = *product
	return product, nil
}

func (s *Store) StockSummary(ctx context.Context, ownerID uuid.UUID) (*models.StockSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := &models.StockSummary{TotalValue: decimal.Zero}
	for _, p := range s.products {
		if p.CreatedBy == ownerID {
			summary.TotalItems += p.CurrentQuantity
			summary.TotalValue = summary.TotalValue.Add(p.SellingPrice)
		}
	}
	return summary, nil
}

func (s *Store) RestockCandidates(ctx context.Context, ownerID uuid.UUID) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var products []models.Product
	for _, p := range s.products {
		if p.CreatedBy == ownerID && p.LowQuantity {
			products = append(products, p)
		}
	}
	return products, nil
}

func (s *Store) AddToCartTx(ctx context.Context, ownerID, productID uuid.UUID) (*models.CartLine, *models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, err := s.getProduct(ownerID, productID)
	if err != nil {
		return nil, nil, err
	}
	if product.CurrentQuantity < 1 {
		return nil, nil, apperr.OutOfStock("product %q is out of stock", product.Name)
	}

	var line *models.CartLine
	for id, l := range s.cartLines {
		if l.ProductID == productID && l.CreatedBy == ownerID {
			l.Quantity++
			l.TotalPrice = l.SellingPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
			l.UpdatedAt = time.Now()
			s.cartLines[id] = l
			copied := l
			line = &copied
			break
		}
	}
	if line == nil {
		newLine := models.CartLine{
			ID:           uuid.New(),
			ProductID:    productID,
			Quantity:     1,
			SellingPrice: product.SellingPrice,
			TotalPrice:   product.SellingPrice,
			CreatedBy:    ownerID,
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		}
		s.cartLines[newLine.ID] = newLine
		line = &newLine
	}

	product.CurrentQuantity--
	product.LowQuantity = product.CurrentQuantity <= product.MinimumStockQuantity
	s.products[productID] = *product
	return line, product, nil
}

func (s *Store) SetCartQuantityTx(ctx context.Context, ownerID, lineID uuid.UUID, newQuantity int) (*models.CartLine, *models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, ok := s.cartLines[lineID]
	if !ok || line.CreatedBy != ownerID {
		return nil, nil, apperr.NotFound("cart line not found: %s", lineID)
	}
	product := s.products[line.ProductID]

	diff := newQuantity - line.Quantity
	if diff > product.CurrentQuantity || newQuantity > product.DefaultQuantity {
		return nil, nil, apperr.QuantityUnavailable(
			"requested quantity %d unavailable for product %q", newQuantity, product.Name)
	}

	line.Quantity = newQuantity
	line.TotalPrice = line.SellingPrice.Mul(decimal.NewFromInt(int64(newQuantity)))
	line.UpdatedAt = time.Now()
	s.cartLines[lineID] = line

	product.CurrentQuantity -= diff
	product.LowQuantity = product.CurrentQuantity <= product.MinimumStockQuantity
	s.products[product.ID] = product

	lineCopy, productCopy := line, product
	return &lineCopy, &productCopy, nil
}

func (s *Store) RemoveCartLineTx(ctx context.Context, ownerID, lineID uuid.UUID) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, ok := s.cartLines[lineID]
	if !ok || line.CreatedBy != ownerID {
		return nil, apperr.NotFound("cart line not found: %s", lineID)
	}
	delete(s.cartLines, lineID)

	product := s.products[line.ProductID]
	product.CurrentQuantity += line.Quantity
	product.LowQuantity = product.CurrentQuantity <= product.MinimumStockQuantity
	s.products[product.ID] = product

	copied := product
	return &copied, nil
}

func (s *Store) ListCartLines(ctx context.Context, ownerID uuid.UUID) ([]models.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lines []models.CartLine
	for _, l := range s.cartLines {
		if l.CreatedBy == ownerID {
			lines = append(lines, l)
		}
	}
	return lines, nil
}

func (s *Store) CartSummary(ctx context.Context, ownerID uuid.UUID) (*models.CartSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := &models.CartSummary{TotalValue: decimal.Zero}
	for _, l := range s.cartLines {
		if l.CreatedBy == ownerID {
			summary.TotalItems += l.Quantity
			summary.TotalValue = summary.TotalValue.Add(l.TotalPrice)
		}
	}
	return summary, nil
}

func (s *Store) CheckoutTx(
	ctx context.Context,
	ownerID uuid.UUID,
	buildOrder func(total decimal.Decimal) (*models.Order, error),
) (*models.Order, []models.OrderItem, []models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lines []models.CartLine
	for _, l := range s.cartLines {
		if l.CreatedBy == ownerID {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return nil, nil, nil, apperr.EmptyCart("cart is empty")
	}
	sort.Slice(lines, func(i, j int) bool {
		return lines[i].ProductID.String() < lines[j].ProductID.String()
	})

	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.TotalPrice)
	}

	order, err := buildOrder(total)
	if err != nil {
		return nil, nil, nil, err
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	order.CreatedBy = ownerID
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt

	if order.IdempotencyKey != "" {
		for _, existing := range s.orders {
			if existing.IdempotencyKey == order.IdempotencyKey {
				return nil, nil, nil, apperr.Validation("duplicate checkout submission")
			}
		}
	}

	var items []models.OrderItem
	var products []models.Product
	for _, l := range lines {
		product := s.products[l.ProductID]
		items = append(items, models.OrderItem{
			ID:           uuid.New(),
			OrderID:      order.ID,
			ProductID:    l.ProductID,
			Quantity:     l.Quantity,
			CostPrice:    product.CostPrice,
			SellingPrice: l.SellingPrice,
			TotalPrice:   l.TotalPrice,
			CreatedBy:    ownerID,
			CreatedAt:    time.Now(),
		})
		products = append(products, product)
		delete(s.cartLines, l.ID)
	}

	s.orders[order.ID] = *order
	s.orderItems[order.ID] = items
	return order, items, products, nil
}

func (s *Store) GetOrderByID(ctx context.Context, ownerID, id uuid.UUID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok || order.CreatedBy != ownerID {
		return nil, apperr.NotFound("order not found: %s", id)
	}
	copied := order
	return &copied, nil
}

func (s *Store) GetOrderByIdempotencyKey(ctx context.Context, ownerID uuid.UUID, key string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, order := range s.orders {
		if order.CreatedBy == ownerID && order.IdempotencyKey == key {
			copied := order
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *Store) ListOrders(ctx context.Context, ownerID uuid.UUID) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var orders []models.Order
	for _, o := range s.orders {
		if o.CreatedBy == ownerID {
			orders = append(orders, o)
		}
	}
	return orders, nil
}

func (s *Store) GetOrderItemsByOrderID(ctx context.Context, ownerID, orderID uuid.UUID) ([]models.OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []models.OrderItem
	for _, item := range s.orderItems[orderID] {
		if item.CreatedBy == ownerID {
			items = append(items, item)
		}
	}
	return items, nil
}

func (s *Store) ProductSalesReport(ctx context.Context, ownerID uuid.UUID) ([]models.ProductSales, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byProduct := make(map[uuid.UUID]*models.ProductSales)
	for _, items := range s.orderItems {
		for _, item := range items {
			if item.CreatedBy != ownerID {
				continue
			}
			sales, ok := byProduct[item.ProductID]
			if !ok {
				sales = &models.ProductSales{
					ProductID:    item.ProductID,
					SellingPrice: item.SellingPrice,
					TotalAmount:  decimal.Zero,
				}
				byProduct[item.ProductID] = sales
			}
			sales.QuantitySold += item.Quantity
			sales.TotalAmount = sales.TotalAmount.Add(item.TotalPrice)
		}
	}

	var report []models.ProductSales
	for _, sales := range byProduct {
		report = append(report, *sales)
	}
	return report, nil
}

func (s *Store) CustomerSalesReport(ctx context.Context, ownerID uuid.UUID, productID *uuid.UUID) ([]models.CustomerSales, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type key struct{ customer uuid.UUID }
	byCustomer := make(map[key]*models.CustomerSales)
	orderSeen := make(map[key]map[uuid.UUID]bool)

	for orderID, items := range s.orderItems {
		order := s.orders[orderID]
		for _, item := range items {
			if item.CreatedBy != ownerID {
				continue
			}
			if productID != nil && item.ProductID != *productID {
				continue
			}
			var customer uuid.UUID
			if order.CustomerID != nil {
				customer = *order.CustomerID
			}
			k := key{customer}
			sales, ok := byCustomer[k]
			if !ok {
				id := customer
				sales = &models.CustomerSales{CustomerID: &id, TotalAmount: decimal.Zero}
				byCustomer[k] = sales
				orderSeen[k] = make(map[uuid.UUID]bool)
			}
			if !orderSeen[k][orderID] {
				orderSeen[k][orderID] = true
				sales.OrderCount++
			}
			sales.ProductQuantity += item.Quantity
			sales.TotalAmount = sales.TotalAmount.Add(item.TotalPrice)
		}
	}

	var report []models.CustomerSales
	for _, sales := range byCustomer {
		report = append(report, *sales)
	}
	return report, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	customer.CreatedAt = time.Now()
	customer.UpdatedAt = customer.CreatedAt
	s.customers[customer.ID] = *customer
	return nil
}

func (s *Store) GetCustomerByID(ctx context.Context, ownerID, id uuid.UUID) (*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer, ok := s.customers[id]
	if !ok || customer.CreatedBy != ownerID {
		return nil, apperr.NotFound("customer not found: %s", id)
	}
	copied := customer
	return &copied, nil
}

func (s *Store) ListCustomers(ctx context.Context, ownerID uuid.UUID) ([]models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var customers []models.Customer
	for _, c := range s.customers {
		if c.CreatedBy == ownerID {
			customers = append(customers, c)
		}
	}
	sort.Slice(customers, func(i, j int) bool {
		return customers[i].Name < customers[j].Name
	})
	return customers, nil
}

func (s *Store) CustomerFieldTaken(ctx context.Context, ownerID uuid.UUID, field, value string, excludeID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.customers {
		if c.CreatedBy != ownerID || c.ID == excludeID {
			continue
		}
		switch field {
		case "customer_name":
			if c.Name == value {
				return true, nil
			}
		case "customer_phone":
			if c.Phone == value {
				return true, nil
			}
		case "customer_email":
			if c.Email == value {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, customer *models.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.customers[customer.ID]
	if !ok || existing.CreatedBy != customer.CreatedBy {
		return apperr.NotFound("customer not found: %s", customer.ID)
	}
	customer.UpdatedAt = time.Now()
	s.customers[customer.ID] = *customer
	return nil
}

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Status == "" {
		n.Status = models.NotificationStatusUnread
	}
	n.CreatedAt = time.Now()
	n.UpdatedAt = n.CreatedAt
	s.notifications[n.ID] = *n
	return nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, receiverID, id uuid.UUID) (*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok || n.Receiver != receiverID {
		return nil, apperr.NotFound("notification not found: %s", id)
	}
	n.Status = models.NotificationStatusRead
	n.UpdatedAt = time.Now()
	s.notifications[id] = n
	copied := n
	return &copied, nil
}

func (s *Store) ListNotifications(ctx context.Context, receiverID uuid.UUID) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var notifications []models.Notification
	for _, n := range s.notifications {
		if n.Receiver == receiverID {
			notifications = append(notifications, n)
		}
	}
	return notifications, nil
}

func (s *Store) ListUnreadNotifications(ctx context.Context, receiverID uuid.UUID) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var notifications []models.Notification
	for _, n := range s.notifications {
		if n.Receiver == receiverID && n.Status == models.NotificationStatusUnread {
			notifications = append(notifications, n)
		}
	}
	return notifications, nil
}

func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.processedEvents[eventID]
	return ok, nil
}

func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processedEvents[eventID] = eventType
	return nil
}

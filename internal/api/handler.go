package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"inventory-service/internal/apperr"
	"inventory-service/internal/service"
	"inventory-service/internal/util"
)

// Handler contains HTTP handlers
type Handler struct {
	stock         *service.StockService
	cart          *service.CartService
	checkout      *service.CheckoutService
	customers     *service.CustomerService
	notifications *service.NotificationService
}

// NewHandler creates a new HTTP handler
func NewHandler(
	stock *service.StockService,
	cart *service.CartService,
	checkout *service.CheckoutService,
	customers *service.CustomerService,
	notifications *service.NotificationService,
) *Handler {
	return &Handler{
		stock:         stock,
		cart:          cart,
		checkout:      checkout,
		customers:     customers,
		notifications: notifications,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(identityMiddleware())
	{
		v1.POST("/products", h.createProduct)
		v1.GET("/products", h.listProducts)
		v1.GET("/products/summary", h.stockSummary)
		v1.GET("/products/:id", h.getProduct)
		v1.PATCH("/products/:id", h.updateProduct)
		v1.DELETE("/products/:id", h.deleteProduct)
		v1.PATCH("/products/:id/restock", h.restockProduct)
		v1.GET("/products/:id/customers", h.productCustomers)

		v1.POST("/cart", h.addToCart)
		v1.GET("/cart", h.listCart)
		v1.GET("/cart/summary", h.cartSummary)
		v1.PATCH("/cart/:id", h.updateCartLine)
		v1.DELETE("/cart/:id", h.removeCartLine)

		v1.POST("/customers", h.createCustomer)
		v1.GET("/customers", h.listCustomers)
		v1.GET("/customers/:id", h.getCustomer)
		v1.PATCH("/customers/:id", h.updateCustomer)

		v1.POST("/orders", h.checkoutOrder)
		v1.GET("/orders", h.listOrders)
		v1.GET("/orders/products", h.productSales)
		v1.GET("/orders/customers", h.customerSales)
		v1.GET("/orders/:id", h.getOrder)

		v1.GET("/notifications", h.listNotifications)
		v1.GET("/notifications/restock-notice", h.restockNotice)
		v1.POST("/notifications/:id/mark-read", h.markNotificationRead)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) createProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	product, err := h.stock.CreateProduct(c.Request.Context(), currentUser(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, product)
}

func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.stock.ListProducts(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, products)
}

func (h *Handler) getProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	product, err := h.stock.GetProduct(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, product)
}

func (h *Handler) updateProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	product, err := h.stock.UpdateProduct(c.Request.Context(), currentUser(c), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, product)
}

func (h *Handler) deleteProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.stock.DeleteProduct(c.Request.Context(), currentUser(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, "Product deleted successfully")
}

func (h *Handler) restockProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	product, err := h.stock.Restock(c.Request.Context(), currentUser(c), id, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, product)
}

func (h *Handler) stockSummary(c *gin.Context) {
	summary, err := h.stock.Summary(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, summary)
}

func (h *Handler) productCustomers(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	sales, err := h.checkout.CustomerSales(c.Request.Context(), currentUser(c), &id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, sales)
}

func (h *Handler) addToCart(c *gin.Context) {
	var req service.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	lines, err := h.cart.AddToCart(c.Request.Context(), currentUser(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, lines)
}

func (h *Handler) listCart(c *gin.Context) {
	lines, err := h.cart.List(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, lines)
}

func (h *Handler) cartSummary(c *gin.Context) {
	summary, err := h.cart.Summarize(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, summary)
}

func (h *Handler) updateCartLine(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		Quantity int `json:"quantity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	line, err := h.cart.SetQuantity(c.Request.Context(), currentUser(c), id, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, line)
}

func (h *Handler) removeCartLine(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.cart.Remove(c.Request.Context(), currentUser(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, "Item successfully removed")
}

func (h *Handler) createCustomer(c *gin.Context) {
	var req service.CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	customer, err := h.customers.Create(c.Request.Context(), currentUser(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, customer)
}

func (h *Handler) listCustomers(c *gin.Context) {
	customers, err := h.customers.List(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, customers)
}

func (h *Handler) getCustomer(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	customer, err := h.customers.Get(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, customer)
}

func (h *Handler) updateCustomer(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	customer, err := h.customers.Update(c.Request.Context(), currentUser(c), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, customer)
}

func (h *Handler) checkoutOrder(c *gin.Context) {
	var req service.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	order, items, err := h.checkout.Checkout(c.Request.Context(), currentUser(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, gin.H{"order": order, "items": items})
}

func (h *Handler) listOrders(c *gin.Context) {
	orders, err := h.checkout.ListOrders(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, orders)
}

func (h *Handler) getOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	order, items, err := h.checkout.GetOrder(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"order": order, "items": items})
}

func (h *Handler) productSales(c *gin.Context) {
	sales, err := h.checkout.ProductSales(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, sales)
}

func (h *Handler) customerSales(c *gin.Context) {
	sales, err := h.checkout.CustomerSales(c.Request.Context(), currentUser(c), nil)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, sales)
}

func (h *Handler) listNotifications(c *gin.Context) {
	var (
		err           error
		notifications interface{}
	)
	if c.Query("status") == "unread" {
		notifications, err = h.notifications.ListUnread(c.Request.Context(), currentUser(c))
	} else {
		notifications, err = h.notifications.List(c.Request.Context(), currentUser(c))
	}
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, notifications)
}

func (h *Handler) restockNotice(c *gin.Context) {
	products, err := h.notifications.RestockCandidates(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, products)
}

func (h *Handler) markNotificationRead(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	notification, err := h.notifications.MarkRead(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, notification)
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}

const userIDKey = "userID"

// identityMiddleware reads the authenticated user id installed by the
// upstream auth gateway.
func identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := uuid.Parse(c.GetHeader("X-User-ID"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Missing or invalid user identity",
			})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

func currentUser(c *gin.Context) uuid.UUID {
	return c.MustGet(userIDKey).(uuid.UUID)
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid id",
		})
		return uuid.Nil, false
	}
	return id, true
}

func respondOK(c *gin.Context, result interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

func respondCreated(c *gin.Context, result interface{}) {
	c.JSON(http.StatusCreated, gin.H{"success": true, "result": result})
}

func respondMessage(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message})
}

func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"message": "Invalid request body",
		"errors":  gin.H{"kind": apperr.KindValidation, "message": err.Error()},
	})
}

// respondError maps a classified error to its HTTP status and envelope.
// Unclassified errors are logged and surfaced as a generic failure.
func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)

	var status int
	message := err.Error()
	switch kind {
	case apperr.KindValidation, apperr.KindEmptyCart, apperr.KindInvalidPayment:
		status = http.StatusBadRequest
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindOutOfStock, apperr.KindInsufficientStock, apperr.KindQuantityUnavailable:
		status = http.StatusConflict
	default:
		status = http.StatusInternalServerError
		message = "Something went wrong"
		util.GetLogger().Error("Unhandled request error",
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}

	c.JSON(status, gin.H{
		"success": false,
		"message": message,
		"errors":  gin.H{"kind": kind, "message": message},
	})
}

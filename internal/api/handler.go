package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"checkout-service/internal/gateway"
	"checkout-service/internal/service"
	"checkout-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buyerIDKey is the gin context key under which the auth middleware
// installs the authenticated buyer identity.
const buyerIDKey = "buyer_id"

// Handler contains HTTP handlers
type Handler struct {
	checkoutService *service.CheckoutService
}

// NewHandler creates a new HTTP handler
func NewHandler(checkoutService *service.CheckoutService) *Handler {
	return &Handler{
		checkoutService: checkoutService,
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

	v1 := router.Group("/api/v1", requireBuyer())
	{
		v1.POST("/checkout/begin", h.beginCheckout)
		v1.POST("/checkout/confirm", h.confirmPayment)
		v1.GET("/orders", h.listOrders)
		v1.GET("/orders/:id", h.getOrder)
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

// beginCheckout validates the cart, creates the remote gateway order
// and returns the handle the payment widget needs.
func (h *Handler) beginCheckout(c *gin.Context) {
	var req service.BeginCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "InvalidRequestBody",
			"details": err.Error(),
		})
		return
	}
	req.BuyerID = c.GetInt64(buyerIDKey)

	resp, err := h.checkoutService.Begin(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// confirmPayment relays the gateway confirmation into verification and
// commit.
func (h *Handler) confirmPayment(c *gin.Context) {
	var req service.ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "InvalidRequestBody",
			"details": err.Error(),
		})
		return
	}
	req.BuyerID = c.GetInt64(buyerIDKey)

	resp, err := h.checkoutService.Confirm(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// listOrders handles listing the authenticated buyer's orders
func (h *Handler) listOrders(c *gin.Context) {
	orders, err := h.checkoutService.ListOrders(c.Request.Context(), c.GetInt64(buyerIDKey))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
	})
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	idStr := c.Param("id")
	orderID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "InvalidOrderID",
		})
		return
	}

	order, items, err := h.checkoutService.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "OrderNotFound",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
		"items": items,
	})
}

// respondError maps domain errors onto the API error contract.
func respondError(c *gin.Context, err error) {
	var invalidCart *service.InvalidCartError
	var rejected *gateway.RejectedError

	switch {
	case errors.As(err, &invalidCart):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "InvalidCartError",
			"details": invalidCart.Error(),
		})
	case errors.Is(err, service.ErrBelowMinimumAmount):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "BelowMinimumAmountError",
			"details": err.Error(),
		})
	case errors.Is(err, gateway.ErrUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "GatewayUnavailableError",
		})
	case errors.As(err, &rejected):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "GatewayRejectedError",
			"details": rejected.Message,
		})
	case errors.Is(err, service.ErrPaymentVerificationFailed):
		// Generic on purpose: never explain why verification failed.
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "PaymentVerificationFailed",
		})
	case errors.Is(err, service.ErrAttemptClosed):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "AttemptClosedError",
		})
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Unauthorized",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "InternalError",
		})
	}
}

// requireBuyer reads the authenticated buyer identity installed by the
// upstream session layer. The checkout core never authenticates; it
// only refuses to run without an identity.
func requireBuyer() gin.HandlerFunc {
	return func(c *gin.Context) {
		buyerID, err := strconv.ParseInt(c.GetHeader("X-Buyer-ID"), 10, 64)
		if err != nil || buyerID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Unauthorized",
			})
			return
		}
		c.Set(buyerIDKey, buyerID)
		c.Next()
	}
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

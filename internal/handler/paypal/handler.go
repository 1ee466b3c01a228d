package paypal

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roamsim/storefront-api/internal/gateway/paypal"
	"github.com/roamsim/storefront-api/internal/middleware"
	"github.com/roamsim/storefront-api/internal/service/checkout"
	apperrors "github.com/roamsim/storefront-api/pkg/errors"
	"github.com/roamsim/storefront-api/pkg/logger"
	"github.com/roamsim/storefront-api/pkg/metrics"
)

// Gateway is the slice of the payment client the handler needs.
type Gateway interface {
	CreateOrder(ctx context.Context, amount float64, currency string) (*paypal.Order, error)
	CaptureOrder(ctx context.Context, orderID string) (*paypal.CaptureResult, error)
}

// Handler wraps the payment gateway's order lifecycle. Gateway failures
// map to generic 5xx messages; internals are only exposed in development
// mode.
type Handler struct {
	gateway     Gateway
	checkout    *checkout.Service
	logger      *logger.Logger
	metrics     *metrics.Metrics
	development bool
}

func NewHandler(gateway Gateway, checkoutSvc *checkout.Service, log *logger.Logger, m *metrics.Metrics, development bool) *Handler {
	return &Handler{
		gateway:     gateway,
		checkout:    checkoutSvc,
		logger:      log,
		metrics:     m,
		development: development,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	pp := r.Group("/paypal")
	{
		pp.POST("/create-order", h.CreateOrder)
		pp.POST("/capture-order", h.CaptureOrder)
		pp.GET("/capture-order", h.CaptureOrderByQuery)
	}
}

type createOrderRequest struct {
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	SessionID string  `json:"session_id"`
}

func (h *Handler) CreateOrder(c *gin.Context) {
	if h.gateway == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Payments are not configured"})
		return
	}

	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
		return
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}

	order, err := h.gateway.CreateOrder(c.Request.Context(), req.Amount, req.Currency)
	if err != nil {
		h.metrics.OrdersFailed.Inc()
		h.respondGatewayError(c, err)
		return
	}
	h.metrics.OrdersCreated.Inc()

	if req.SessionID != "" {
		// Session linkage is best-effort; the gateway order is already
		// authoritative. A failure here still needs a trace, it is the
		// only record tying the payment to the session.
		if _, err := h.checkout.AttachOrder(c.Request.Context(), req.SessionID, order.ID, middleware.ClaimsFromContext(c)); err != nil {
			h.logger.Warn("order linkage failed",
				"session_id", req.SessionID,
				"order_id", order.ID,
				"error", err.Error())
		}
	}

	c.JSON(http.StatusCreated, gin.H{"id": order.ID, "status": order.Status})
}

type captureOrderRequest struct {
	OrderID   string `json:"orderID"`
	SessionID string `json:"session_id"`
}

func (h *Handler) CaptureOrder(c *gin.Context) {
	var req captureOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.OrderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing order ID"})
		return
	}
	h.capture(c, req.OrderID, req.SessionID)
}

func (h *Handler) CaptureOrderByQuery(c *gin.Context) {
	orderID := c.Query("orderID")
	if orderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing order ID"})
		return
	}
	h.capture(c, orderID, c.Query("session_id"))
}

func (h *Handler) capture(c *gin.Context, orderID, sessionID string) {
	if h.gateway == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Payments are not configured"})
		return
	}

	result, err := h.gateway.CaptureOrder(c.Request.Context(), orderID)
	if err != nil {
		h.metrics.OrdersFailed.Inc()
		h.respondGatewayError(c, err)
		return
	}

	response := gin.H{"id": result.ID, "status": result.Status}
	if sessionID != "" {
		session, delay, err := h.checkout.CompleteCapture(
			c.Request.Context(), sessionID, result.Payer.Email, middleware.ClaimsFromContext(c))
		if err != nil {
			// The capture already succeeded at the gateway. Losing the
			// session update silently leaves a paid but unactivated
			// session with nothing to diagnose it by.
			h.logger.Warn("session activation failed after capture",
				"session_id", sessionID,
				"order_id", orderID,
				"error", err.Error())
		} else {
			response["step"] = session.Step
			response["redirect_after_ms"] = delay.Milliseconds()
		}
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) respondGatewayError(c *gin.Context, err error) {
	status := http.StatusBadGateway
	switch apperrors.Code(err) {
	case apperrors.ErrConfiguration:
		status = http.StatusServiceUnavailable
	case apperrors.ErrTimeout, apperrors.ErrNetwork:
		status = http.StatusServiceUnavailable
	case apperrors.ErrInternal:
		status = http.StatusInternalServerError
	}

	body := gin.H{"error": "Payment processing failed"}
	if h.development {
		body["detail"] = err.Error()
	}
	c.JSON(status, body)
}

package checkout

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/roamsim/storefront-api/internal/handler"
	"github.com/roamsim/storefront-api/internal/middleware"
	"github.com/roamsim/storefront-api/internal/model"
	"github.com/roamsim/storefront-api/internal/service/checkout"
	apperrors "github.com/roamsim/storefront-api/pkg/errors"
)

var couponShape = regexp.MustCompile(`^[A-Z0-9_-]{3,32}$`)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("couponcode", func(fl validator.FieldLevel) bool {
			return couponShape.MatchString(fl.Field().String())
		})
	}
}

type Handler struct {
	service *checkout.Service
}

func NewHandler(service *checkout.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	sessions := r.Group("/checkout")
	{
		sessions.POST("", h.StartSession)
		sessions.GET("/:id", h.GetSession)
		sessions.POST("/:id/advance", h.AdvanceSession)
		sessions.POST("/:id/coupon", h.ApplyCoupon)
	}
}

type startSessionRequest struct {
	CountrySlug string `json:"country_slug" binding:"required"`
	BundleName  string `json:"bundle_name" binding:"required"`
}

type sessionResponse struct {
	*model.CheckoutSession
	// RedirectAfterMS is only set once payment completed; the client
	// waits this long before sending the buyer to the dashboard.
	RedirectAfterMS int64 `json:"redirect_after_ms,omitempty"`
}

// StartSession begins a checkout for one bundle. A bundle that cannot be
// fetched renders the terminal error state on the client; there is no
// automatic retry.
func (h *Handler) StartSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	session, err := h.service.Start(c.Request.Context(), req.CountrySlug, req.BundleName, middleware.ClaimsFromContext(c))
	if err != nil {
		// A bundle missing from a healthy catalogue and a catalogue that
		// could not be fetched are different failures for the client.
		switch apperrors.Code(err) {
		case apperrors.ErrNotFound:
			c.JSON(http.StatusNotFound, handler.NewErrorResponse("bundle not found"))
		case apperrors.ErrTimeout, apperrors.ErrNetwork, apperrors.ErrUpstream, apperrors.ErrMalformed:
			c.JSON(http.StatusBadGateway, handler.NewErrorResponse("catalogue unavailable"))
		default:
			c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to start checkout"))
		}
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(sessionResponse{CheckoutSession: session}))
}

func (h *Handler) GetSession(c *gin.Context) {
	session, err := h.service.Get(c.Request.Context(), c.Param("id"), middleware.ClaimsFromContext(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(sessionResponse{CheckoutSession: session}))
}

func (h *Handler) AdvanceSession(c *gin.Context) {
	session, err := h.service.Advance(c.Request.Context(), c.Param("id"), middleware.ClaimsFromContext(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(sessionResponse{CheckoutSession: session}))
}

type applyCouponRequest struct {
	Code string `json:"code" binding:"required,couponcode"`
}

func (h *Handler) ApplyCoupon(c *gin.Context) {
	var req applyCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	session, err := h.service.ApplyCoupon(c.Request.Context(), c.Param("id"), req.Code, middleware.ClaimsFromContext(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(sessionResponse{CheckoutSession: session}))
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch apperrors.Code(err) {
	case apperrors.ErrNotFound:
		c.JSON(http.StatusNotFound, handler.NewErrorResponse("checkout session not found"))
	case apperrors.ErrValidation, apperrors.ErrBadRequest:
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
	case apperrors.ErrUnauthorized:
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
	default:
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("checkout unavailable"))
	}
}

package currency

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/roamsim/storefront-api/internal/handler"
	"github.com/roamsim/storefront-api/internal/middleware"
	"github.com/roamsim/storefront-api/internal/service/currency"
	apperrors "github.com/roamsim/storefront-api/pkg/errors"
)

type Handler struct {
	service *currency.Service
}

func NewHandler(service *currency.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/currencies", h.ListCurrencies)
	r.GET("/currency", h.GetSelection)
	r.PUT("/currency", h.SetSelection)
}

// clientID identifies a browser/device for preference storage: the user
// id when authenticated, the X-Client-ID header otherwise. An anonymous
// request without a client id gets a throwaway identity; the selection
// still works within the request.
func clientID(c *gin.Context) string {
	if claims := middleware.ClaimsFromContext(c); claims != nil {
		return "user:" + claims.UserID
	}
	if id := c.GetHeader("X-Client-ID"); id != "" {
		return "anon:" + id
	}
	return "anon:" + uuid.New().String()
}

func (h *Handler) ListCurrencies(c *gin.Context) {
	c.JSON(http.StatusOK, handler.NewSuccessResponse(h.service.Currencies()))
}

func (h *Handler) GetSelection(c *gin.Context) {
	selected := h.service.Selection(c.Request.Context(), clientID(c))
	c.JSON(http.StatusOK, handler.NewSuccessResponse(selected))
}

type setSelectionRequest struct {
	Code string `json:"code" binding:"required,len=3"`
}

func (h *Handler) SetSelection(c *gin.Context) {
	var req setSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	selected, err := h.service.SetSelection(c.Request.Context(), clientID(c), req.Code)
	if err != nil {
		if apperrors.Code(err) == apperrors.ErrValidation {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("unsupported currency code"))
			return
		}
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to save selection"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(selected))
}

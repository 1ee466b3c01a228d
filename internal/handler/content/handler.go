package content

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roamsim/storefront-api/internal/content"
	"github.com/roamsim/storefront-api/internal/handler"
	"github.com/roamsim/storefront-api/internal/middleware"
	"github.com/roamsim/storefront-api/internal/model"
	"github.com/roamsim/storefront-api/internal/service/catalog"
	apperrors "github.com/roamsim/storefront-api/pkg/errors"
)

type Handler struct {
	reader *content.Reader
}

func NewHandler(reader *content.Reader) *Handler {
	return &Handler{reader: reader}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	noStore := middleware.Cache(middleware.NoStoreCacheConfig())
	r.GET("/country-content/:slug", noStore, h.GetCountryContent)
	r.GET("/pages/:name", noStore, h.GetPage)
}

// GetCountryContent returns the static content payload for a slug. A slug
// without a content file is not an error: the response carries the four
// default FAQs and hasCountrySpecificContent=false.
func (h *Handler) GetCountryContent(c *gin.Context) {
	slug := c.Param("slug")

	pageContent, err := h.reader.CountryContent(slug)
	if err != nil {
		switch apperrors.Code(err) {
		case apperrors.ErrNotFound:
			cfg := catalog.CountryConfig(slug)
			c.JSON(http.StatusOK, model.ContentResponse{
				Slug:                      slug,
				Title:                     cfg.Name + " eSIM",
				SEOMetaTitle:              cfg.Name + " eSIM plans",
				MetaDescription:           cfg.Description,
				FAQs:                      content.DefaultFAQs(cfg.Name),
				HasCountrySpecificContent: false,
			})
		case apperrors.ErrValidation:
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid slug"))
		default:
			c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to read content"))
		}
		return
	}

	c.JSON(http.StatusOK, model.ContentResponse{
		Slug:                      pageContent.Slug,
		Title:                     pageContent.Title,
		SEOMetaTitle:              pageContent.SEOMetaTitle,
		MetaDescription:           pageContent.MetaDescription,
		FAQs:                      pageContent.FAQs,
		Schema:                    pageContent.Schema,
		HasCountrySpecificContent: true,
	})
}

// GetPage serves a static page document verbatim.
func (h *Handler) GetPage(c *gin.Context) {
	raw, err := h.reader.Page(c.Param("name"))
	if err != nil {
		if apperrors.Code(err) == apperrors.ErrNotFound {
			c.JSON(http.StatusNotFound, handler.NewErrorResponse("page not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to read page"))
		return
	}
	c.Data(http.StatusOK, "application/json", raw)
}

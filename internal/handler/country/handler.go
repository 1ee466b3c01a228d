package country

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roamsim/storefront-api/internal/cache"
	"github.com/roamsim/storefront-api/internal/handler"
	"github.com/roamsim/storefront-api/internal/middleware"
	"github.com/roamsim/storefront-api/internal/model"
	"github.com/roamsim/storefront-api/internal/service/catalog"
	"github.com/roamsim/storefront-api/internal/service/compose"
	apperrors "github.com/roamsim/storefront-api/pkg/errors"
)

type Handler struct {
	catalog   *catalog.Service
	composer  *compose.Service
	listCache *cache.SWRCache
}

func NewHandler(catalogSvc *catalog.Service, composer *compose.Service, listCache *cache.SWRCache) *Handler {
	return &Handler{
		catalog:   catalogSvc,
		composer:  composer,
		listCache: listCache,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/countries", middleware.Cache(middleware.CountryListCacheConfig()), h.ListCountries)
	r.GET("/countries/:slug", h.ProxyBundles)
	r.GET("/country-page/:slug", h.GetCountryPage)
}

type listResponse struct {
	Countries        []model.CountryListing `json:"countries"`
	PopularCountries []model.CountryListing `json:"popularCountries"`
	Metadata         listMetadata           `json:"metadata"`
}

type listMetadata struct {
	Total  int  `json:"total"`
	Priced int  `json:"priced"`
	Stale  bool `json:"stale"`
}

// ListCountries serves the country index. The enriched listing is
// expensive to build, so it sits behind the stale-while-revalidate
// cache; the HTTP cache headers mirror the same policy for the CDN.
func (h *Handler) ListCountries(c *gin.Context) {
	value, stale, err := h.listCache.GetOrLoad(c.Request.Context(), "countries", func(ctx context.Context) (interface{}, error) {
		return h.catalog.EnrichCountries(ctx, catalog.Countries()), nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to build country list"))
		return
	}

	listings := value.([]model.CountryListing)
	popular := make([]model.CountryListing, 0, 8)
	priced := 0
	for _, l := range listings {
		if l.FromPrice != nil {
			priced++
		}
		if cfg := catalog.CountryConfig(l.Slug); cfg.Popular {
			popular = append(popular, l)
		}
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(listResponse{
		Countries:        listings,
		PopularCountries: popular,
		Metadata: listMetadata{
			Total:  len(listings),
			Priced: priced,
			Stale:  stale,
		},
	}))
}

// ProxyBundles proxies the upstream bundle-by-country query verbatim.
// Timeout maps to 408, everything else to 500; the cached flag tells the
// client a CDN-cached copy may still be usable.
func (h *Handler) ProxyBundles(c *gin.Context) {
	offers, err := h.catalog.BundlesForCountry(c.Request.Context(), c.Param("slug"))
	if err != nil {
		if apperrors.IsTimeout(err) {
			c.JSON(http.StatusRequestTimeout, gin.H{
				"error":  "Request timeout",
				"cached": true,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch bundles"})
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"bundles": offers}))
}

// GetCountryPage returns the composed view model. The composer never
// fails; degraded sources produce a page with defaults.
func (h *Handler) GetCountryPage(c *gin.Context) {
	page := h.composer.ComposeCountryPage(c.Request.Context(), c.Param("slug"))
	c.JSON(http.StatusOK, handler.NewSuccessResponse(page))
}

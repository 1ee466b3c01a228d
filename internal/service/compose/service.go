package compose

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/roamsim/storefront-api/internal/content"
	"github.com/roamsim/storefront-api/internal/model"
	"github.com/roamsim/storefront-api/internal/service/catalog"
	apperrors "github.com/roamsim/storefront-api/pkg/errors"
	"github.com/roamsim/storefront-api/pkg/logger"
)

// Service assembles the view model for a country page from the static
// config table, live bundle pricing and the JSON content store. Every
// external source is best-effort: the composer never returns an error,
// each failure branch degrades to a documented default.
type Service struct {
	catalog *catalog.Service
	content *content.Reader
	logger  *logger.Logger
}

func NewService(catalogSvc *catalog.Service, reader *content.Reader, log *logger.Logger) *Service {
	return &Service{
		catalog: catalogSvc,
		content: reader,
		logger:  log,
	}
}

// ComposeCountryPage builds the page for a slug. The three best-effort
// sources (country info, bundles, content file) are fetched concurrently;
// total latency is bounded by the slowest single call.
func (s *Service) ComposeCountryPage(ctx context.Context, slug string) *model.ComposedCountryPage {
	cfg := catalog.CountryConfig(slug)

	var (
		info        *model.CountryInfo
		offers      []model.BundleOffer
		pageContent *model.CountryContent
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		info, err = s.catalog.CountryInfo(gctx, cfg.ISOCode)
		if err != nil {
			info = nil
		}
		return nil
	})
	g.Go(func() error {
		offers = s.catalog.FetchBundlesForCountry(gctx, slug)
		return nil
	})
	g.Go(func() error {
		var err error
		pageContent, err = s.content.CountryContent(slug)
		if err != nil {
			if apperrors.Code(err) != apperrors.ErrNotFound {
				s.logger.Warn("country content unreadable", "slug", slug, "error", err.Error())
			}
			pageContent = nil
		}
		return nil
	})
	g.Wait()

	return s.merge(cfg, info, offers, pageContent)
}

// merge applies the field-level fallback chains. Priority per field:
//
//	region:      country info > config > omitted
//	hero image:  content override > config
//	description: content meta description > config
//	FAQs:        content file > default set of four
func (s *Service) merge(
	cfg model.CountryConfig,
	info *model.CountryInfo,
	offers []model.BundleOffer,
	pageContent *model.CountryContent,
) *model.ComposedCountryPage {
	page := &model.ComposedCountryPage{
		Slug:         cfg.Slug,
		CountryName:  cfg.Name,
		FlagURL:      cfg.FlagURL,
		HeroImageURL: cfg.HeroImageURL,
		Description:  cfg.Description,
		Region:       cfg.Region,
		Plans:        offers,
		CheapestPlan: catalog.CheapestPlan(offers),
		TrustRating:  cfg.TrustRating,
		ReviewCount:  cfg.ReviewCount,
	}
	if page.Plans == nil {
		page.Plans = []model.BundleOffer{}
	}

	if info != nil && info.Region != "" {
		page.Region = info.Region
	}

	networks := map[string]struct{}{}
	for _, offer := range offers {
		for _, n := range offer.Networks {
			if _, seen := networks[n]; !seen {
				networks[n] = struct{}{}
				page.Networks = append(page.Networks, n)
			}
		}
	}

	if pageContent != nil {
		page.HasCountrySpecificContent = true
		if pageContent.HeroImageURL != "" {
			page.HeroImageURL = pageContent.HeroImageURL
		}
		if pageContent.MetaDescription != "" {
			page.Description = pageContent.MetaDescription
		}
		page.Schema = pageContent.Schema
		if len(pageContent.FAQs) > 0 {
			page.FAQs = pageContent.FAQs
		}
	}
	if len(page.FAQs) == 0 {
		page.FAQs = content.DefaultFAQs(cfg.Name)
	}

	return page
}

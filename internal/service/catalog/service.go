package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/roamsim/storefront-api/internal/config"
	"github.com/roamsim/storefront-api/internal/model"
	"github.com/roamsim/storefront-api/internal/upstream"
	apperrors "github.com/roamsim/storefront-api/pkg/errors"
	"github.com/roamsim/storefront-api/pkg/logger"
)

// Service aggregates bundle pricing from the upstream catalogue API.
type Service struct {
	client *upstream.Client
	cfg    config.UpstreamConfig
	logger *logger.Logger
}

func NewService(client *upstream.Client, cfg config.UpstreamConfig, log *logger.Logger) *Service {
	return &Service{
		client: client,
		cfg:    cfg,
		logger: log,
	}
}

// catalogueResponse is the upstream wire shape. Decoding validates at the
// boundary so malformed payloads surface as Malformed instead of leaking
// undefined fields into the view model.
type catalogueResponse struct {
	Bundles []bundlePayload `json:"bundles"`
}

type bundlePayload struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	DataAmount   int64    `json:"dataAmount"`
	Duration     int      `json:"duration"`
	Price        float64  `json:"price"`
	SalePrice    *float64 `json:"salePrice"`
	Unlimited    bool     `json:"unlimited"`
	Speed        []string `json:"speed"`
	Networks     []string `json:"networks"`
	CountryCodes []string `json:"countries"`
}

func (p *bundlePayload) toOffer() (model.BundleOffer, error) {
	if p.Name == "" {
		return model.BundleOffer{}, fmt.Errorf("bundle without name")
	}
	if p.Price < 0 {
		return model.BundleOffer{}, fmt.Errorf("bundle %s has negative price", p.Name)
	}
	return model.BundleOffer{
		Name:         p.Name,
		Description:  p.Description,
		DataAmountMB: p.DataAmount,
		DurationDays: p.Duration,
		Price:        p.Price,
		SalePrice:    p.SalePrice,
		Unlimited:    p.Unlimited,
		Speeds:       p.Speed,
		Networks:     p.Networks,
		Countries:    p.CountryCodes,
	}, nil
}

// endpointFor picks the catalogue URL for a country. A config that names
// its own endpoint with a bundle-group qualifier is used verbatim;
// otherwise the default endpoint is built from the lowercased slug and
// the configured default group.
func (s *Service) endpointFor(cfg model.CountryConfig) string {
	base := strings.TrimRight(s.cfg.BaseURL, "/")
	if cfg.Endpoint != "" && strings.Contains(cfg.Endpoint, "group=") {
		return base + cfg.Endpoint
	}
	return fmt.Sprintf("%s/catalogue?countries=%s&group=%s",
		base,
		url.QueryEscape(strings.ToLower(cfg.Slug)),
		url.QueryEscape(s.cfg.BundleGroup),
	)
}

// FetchBundlesForCountry returns the purchasable bundles for a slug. Any
// failure, timeouts included, degrades to an empty list; the country page
// renders a "plans unavailable" state instead of erroring.
func (s *Service) FetchBundlesForCountry(ctx context.Context, slug string) []model.BundleOffer {
	offers, err := s.BundlesForCountry(ctx, slug)
	if err != nil {
		return []model.BundleOffer{}
	}
	return offers
}

// BundlesForCountry is the error-returning variant used by the raw proxy
// route and by checkout, which map timeouts and upstream failures to
// distinct statuses.
func (s *Service) BundlesForCountry(ctx context.Context, slug string) ([]model.BundleOffer, error) {
	return s.fetchBundles(ctx, CountryConfig(slug))
}

func (s *Service) fetchBundles(ctx context.Context, cfg model.CountryConfig) ([]model.BundleOffer, error) {
	var resp catalogueResponse
	if err := s.client.GetJSONRetry(ctx, "catalogue", s.endpointFor(cfg), s.cfg.Timeout, &resp); err != nil {
		return nil, err
	}

	offers := make([]model.BundleOffer, 0, len(resp.Bundles))
	for i := range resp.Bundles {
		offer, err := resp.Bundles[i].toOffer()
		if err != nil {
			return nil, apperrors.Malformed("catalogue", err)
		}
		offers = append(offers, offer)
	}
	return offers, nil
}

// CountryInfo fetches generic country metadata. Best-effort; callers
// treat nil as "no info".
func (s *Service) CountryInfo(ctx context.Context, isoCode string) (*model.CountryInfo, error) {
	if isoCode == "" {
		return nil, apperrors.Validation("missing ISO code")
	}
	endpoint := fmt.Sprintf("%s/countries/%s",
		strings.TrimRight(s.cfg.BaseURL, "/"), url.PathEscape(strings.ToLower(isoCode)))

	var info model.CountryInfo
	if err := s.client.GetJSON(ctx, "country-info", endpoint, s.cfg.Timeout, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// CheapestPlan returns the offer with the minimum effective price, first
// minimum winning on ties. Nil for an empty list.
func CheapestPlan(offers []model.BundleOffer) *model.BundleOffer {
	if len(offers) == 0 {
		return nil
	}
	cheapest := &offers[0]
	for i := 1; i < len(offers); i++ {
		if offers[i].EffectivePrice() < cheapest.EffectivePrice() {
			cheapest = &offers[i]
		}
	}
	return cheapest
}

// EnrichCountries builds the listing rows for the index page, fetching
// live pricing for at most the first EnrichLimit entries to bound the
// fan-out against the upstream. Remaining rows render without a price.
func (s *Service) EnrichCountries(ctx context.Context, configs []model.CountryConfig) []model.CountryListing {
	listings := make([]model.CountryListing, len(configs))
	for i, cfg := range configs {
		listings[i] = model.CountryListing{
			Slug:    cfg.Slug,
			Name:    cfg.Name,
			FlagURL: cfg.FlagURL,
			Region:  cfg.Region,
		}
	}

	limit := s.cfg.EnrichLimit
	if limit <= 0 || limit > len(configs) {
		limit = len(configs)
	}

	g, gctx := errgroup.WithContext(ctx)
	parallelism := s.cfg.EnrichParallelism
	if parallelism <= 0 {
		parallelism = 5
	}
	g.SetLimit(parallelism)

	var mu sync.Mutex
	for i := 0; i < limit; i++ {
		i := i
		g.Go(func() error {
			// Pricing enrichment is best-effort per row; a failed row
			// never fails the listing.
			offers := s.FetchBundlesForCountry(gctx, configs[i].Slug)
			if cheapest := CheapestPlan(offers); cheapest != nil {
				price := cheapest.EffectivePrice()
				mu.Lock()
				listings[i].FromPrice = &price
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()

	return listings
}

package model

// CountryConfig is the static descriptor for a country or region landing
// page. Configs are defined at build time and looked up by slug; unknown
// slugs get a deterministic fallback derived from the slug string.
type CountryConfig struct {
	Slug         string  `json:"slug"`
	Name         string  `json:"name"`
	FlagURL      string  `json:"flag_url"`
	HeroImageURL string  `json:"hero_image_url"`
	Description  string  `json:"description"`
	Region       string  `json:"region"`
	ISOCode      string  `json:"iso_code"`
	NetworkGroup string  `json:"network_group"`
	TrustRating  float64 `json:"trust_rating"`
	ReviewCount  int     `json:"review_count"`
	// Endpoint overrides the default catalogue endpoint when it already
	// carries a bundle-group qualifier.
	Endpoint string `json:"endpoint,omitempty"`
	Popular  bool   `json:"popular"`
}

// BundleOffer is one purchasable data plan as returned by the upstream
// pricing API. Offers are fetched per request and never persisted.
type BundleOffer struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	DataAmountMB int64    `json:"data_amount_mb"`
	DurationDays int      `json:"duration_days"`
	Price        float64  `json:"price"`
	SalePrice    *float64 `json:"sale_price,omitempty"`
	Unlimited    bool     `json:"unlimited"`
	Speeds       []string `json:"speeds,omitempty"`
	Networks     []string `json:"networks,omitempty"`
	Countries    []string `json:"countries,omitempty"`
}

// EffectivePrice is the price a buyer pays: sale price when present,
// list price otherwise.
func (b *BundleOffer) EffectivePrice() float64 {
	if b.SalePrice != nil {
		return *b.SalePrice
	}
	return b.Price
}

// CountryInfo is generic country metadata fetched best-effort from the
// upstream API; any field may be empty.
type CountryInfo struct {
	Name    string `json:"name"`
	Region  string `json:"region"`
	ISOCode string `json:"iso_code"`
}

// CountryListing is one row of the country index page, optionally enriched
// with a from-price when bundle pricing was fetched for it.
type CountryListing struct {
	Slug      string   `json:"slug"`
	Name      string   `json:"name"`
	FlagURL   string   `json:"flag_url"`
	Region    string   `json:"region,omitempty"`
	FromPrice *float64 `json:"from_price,omitempty"`
}

// ComposedCountryPage is the merged view model for one country page.
// It is assembled per request from CountryConfig, live bundle pricing and
// static JSON content, and must be renderable even when every best-effort
// source failed.
type ComposedCountryPage struct {
	Slug                      string        `json:"slug"`
	CountryName               string        `json:"country_name"`
	FlagURL                   string        `json:"flag_url"`
	HeroImageURL              string        `json:"hero_image_url"`
	Description               string        `json:"description"`
	Region                    string        `json:"region,omitempty"`
	Plans                     []BundleOffer `json:"plans"`
	CheapestPlan              *BundleOffer  `json:"cheapest_plan,omitempty"`
	Networks                  []string      `json:"networks,omitempty"`
	TrustRating               float64       `json:"trust_rating"`
	ReviewCount               int           `json:"review_count"`
	FAQs                      []FAQ         `json:"faqs"`
	Schema                    *SchemaBlocks `json:"schema,omitempty"`
	HasCountrySpecificContent bool          `json:"has_country_specific_content"`
}

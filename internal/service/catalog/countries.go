package catalog

import (
	"sort"
	"strings"

	"github.com/roamsim/storefront-api/internal/model"
)

// countryConfigs is the build-time table of country/region descriptors.
// Slugs not present here resolve through fallbackConfig.
var countryConfigs = map[string]model.CountryConfig{
	"belgium": {
		Slug:         "belgium",
		Name:         "Belgium",
		FlagURL:      "/flags/be.svg",
		HeroImageURL: "/images/hero/belgium.webp",
		Description:  "Unlimited data eSIM plans for Belgium with instant activation.",
		Region:       "Europe",
		ISOCode:      "BE",
		NetworkGroup: "eu-west",
		TrustRating:  4.7,
		ReviewCount:  1320,
		Popular:      true,
	},
	"france": {
		Slug:         "france",
		Name:         "France",
		FlagURL:      "/flags/fr.svg",
		HeroImageURL: "/images/hero/france.webp",
		Description:  "Prepaid eSIM data plans for France, 4G/5G on local networks.",
		Region:       "Europe",
		ISOCode:      "FR",
		NetworkGroup: "eu-west",
		TrustRating:  4.8,
		ReviewCount:  2841,
		Popular:      true,
	},
	"germany": {
		Slug:         "germany",
		Name:         "Germany",
		FlagURL:      "/flags/de.svg",
		HeroImageURL: "/images/hero/germany.webp",
		Description:  "eSIM data plans for Germany with unlimited options.",
		Region:       "Europe",
		ISOCode:      "DE",
		NetworkGroup: "eu-west",
		TrustRating:  4.8,
		ReviewCount:  2210,
		Popular:      true,
	},
	"united-states": {
		Slug:         "united-states",
		Name:         "United States",
		FlagURL:      "/flags/us.svg",
		HeroImageURL: "/images/hero/united-states.webp",
		Description:  "Travel eSIM plans for the USA on nationwide 5G networks.",
		Region:       "North America",
		ISOCode:      "US",
		NetworkGroup: "na",
		TrustRating:  4.6,
		ReviewCount:  3874,
		Popular:      true,
	},
	"japan": {
		Slug:         "japan",
		Name:         "Japan",
		FlagURL:      "/flags/jp.svg",
		HeroImageURL: "/images/hero/japan.webp",
		Description:  "Fast eSIM data for Japan, ideal for short and long trips.",
		Region:       "Asia",
		ISOCode:      "JP",
		NetworkGroup: "apac",
		TrustRating:  4.9,
		ReviewCount:  1954,
		Popular:      true,
	},
	"turkey": {
		Slug:         "turkey",
		Name:         "Turkey",
		FlagURL:      "/flags/tr.svg",
		HeroImageURL: "/images/hero/turkey.webp",
		Description:  "Prepaid data eSIMs for Turkey with instant QR delivery.",
		Region:       "Europe",
		ISOCode:      "TR",
		NetworkGroup: "eu-east",
		TrustRating:  4.5,
		ReviewCount:  1102,
		// Endpoint carries its own bundle group; used verbatim.
		Endpoint: "/catalogue?countries=turkey&group=Standard%20Fixed%20Essential",
	},
	"europe": {
		Slug:         "europe",
		Name:         "Europe",
		FlagURL:      "/flags/eu.svg",
		HeroImageURL: "/images/hero/europe.webp",
		Description:  "One eSIM for 30+ European countries.",
		Region:       "Europe",
		ISOCode:      "EU",
		NetworkGroup: "eu-regional",
		TrustRating:  4.7,
		ReviewCount:  4420,
		Popular:      true,
	},
}

// CountryConfig resolves a slug to its descriptor. Unknown slugs never
// fail: the fallback derives a usable config from the slug itself, so a
// page can always render.
func CountryConfig(slug string) model.CountryConfig {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if cfg, ok := countryConfigs[slug]; ok {
		return cfg
	}
	return fallbackConfig(slug)
}

// Countries returns every configured country in a stable order, popular
// entries first.
func Countries() []model.CountryConfig {
	popular := make([]model.CountryConfig, 0, len(countryConfigs))
	rest := make([]model.CountryConfig, 0, len(countryConfigs))
	for _, slug := range sortedSlugs() {
		cfg := countryConfigs[slug]
		if cfg.Popular {
			popular = append(popular, cfg)
		} else {
			rest = append(rest, cfg)
		}
	}
	return append(popular, rest...)
}

func sortedSlugs() []string {
	slugs := make([]string, 0, len(countryConfigs))
	for slug := range countryConfigs {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}

func fallbackConfig(slug string) model.CountryConfig {
	name := titleCase(slug)
	return model.CountryConfig{
		Slug:         slug,
		Name:         name,
		FlagURL:      "/flags/placeholder.svg",
		HeroImageURL: "/images/hero/default.webp",
		Description:  "Prepaid eSIM data plans for " + name + " with instant activation.",
		NetworkGroup: "default",
		TrustRating:  4.5,
		ReviewCount:  0,
	}
}

// titleCase converts a slug to a display name: hyphens become spaces and
// each word is capitalized.
func titleCase(slug string) string {
	words := strings.Split(slug, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

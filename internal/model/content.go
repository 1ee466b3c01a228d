package model

import "encoding/json"

// FAQ is a single question/answer entry rendered on a country page.
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// SchemaBlocks holds the structured-data (schema.org) fragments for a page.
// The blocks are opaque to the server; they are authored in the content
// files and passed through to the render layer.
type SchemaBlocks struct {
	Product       json.RawMessage `json:"product,omitempty"`
	LocalBusiness json.RawMessage `json:"localBusiness,omitempty"`
	Service       json.RawMessage `json:"service,omitempty"`
	FAQ           json.RawMessage `json:"faq,omitempty"`
}

// CountryContent is the static per-country content file payload.
type CountryContent struct {
	Slug            string        `json:"slug"`
	Title           string        `json:"title"`
	SEOMetaTitle    string        `json:"seo_meta_title"`
	MetaDescription string        `json:"meta_description"`
	HeroImageURL    string        `json:"hero_image_url,omitempty"`
	FAQs            []FAQ         `json:"faqs"`
	Schema          *SchemaBlocks `json:"schema,omitempty"`
}

// ContentResponse is the wire shape of GET /country-content/:slug.
type ContentResponse struct {
	Slug                      string        `json:"slug"`
	Title                     string        `json:"title"`
	SEOMetaTitle              string        `json:"seo_meta_title"`
	MetaDescription           string        `json:"meta_description"`
	FAQs                      []FAQ         `json:"faqs"`
	Schema                    *SchemaBlocks `json:"schema,omitempty"`
	HasCountrySpecificContent bool          `json:"hasCountrySpecificContent"`
}

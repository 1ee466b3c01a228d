package content

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/roamsim/storefront-api/internal/model"
	apperrors "github.com/roamsim/storefront-api/pkg/errors"
	"github.com/roamsim/storefront-api/pkg/logger"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// Reader loads static page content from the local JSON content store.
// Files are authored at build time and never written by the service.
type Reader struct {
	dir    string
	cache  *gocache.Cache
	logger *logger.Logger
}

func NewReader(dir string, ttl time.Duration, log *logger.Logger) *Reader {
	return &Reader{
		dir:    dir,
		cache:  gocache.New(ttl, 2*ttl),
		logger: log,
	}
}

// CountryContent reads countryData/{slug}.json. Returns NotFound when no
// file exists for the slug and Malformed when the file is not valid JSON.
func (r *Reader) CountryContent(slug string) (*model.CountryContent, error) {
	if !slugPattern.MatchString(slug) {
		return nil, apperrors.Validation("invalid slug")
	}

	cacheKey := "countryData/" + slug
	if cached, ok := r.cache.Get(cacheKey); ok {
		return cached.(*model.CountryContent), nil
	}

	path := filepath.Join(r.dir, "countryData", slug+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NotFound("country content", err)
		}
		return nil, apperrors.Internal(fmt.Errorf("read content file: %w", err))
	}

	var content model.CountryContent
	if err := json.Unmarshal(data, &content); err != nil {
		return nil, apperrors.Malformed("content file "+slug, err)
	}
	if content.Slug == "" {
		content.Slug = slug
	}

	r.cache.SetDefault(cacheKey, &content)
	return &content, nil
}

// Page reads pages/{name}.json as an opaque document.
func (r *Reader) Page(name string) (json.RawMessage, error) {
	return r.readRaw("pages", name)
}

// Metadata reads metadata/{name}.json as an opaque document.
func (r *Reader) Metadata(name string) (json.RawMessage, error) {
	return r.readRaw("metadata", name)
}

func (r *Reader) readRaw(kind, name string) (json.RawMessage, error) {
	if !slugPattern.MatchString(name) {
		return nil, apperrors.Validation("invalid content name")
	}

	cacheKey := kind + "/" + name
	if cached, ok := r.cache.Get(cacheKey); ok {
		return cached.(json.RawMessage), nil
	}

	data, err := os.ReadFile(filepath.Join(r.dir, kind, name+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NotFound(kind+" content", err)
		}
		return nil, apperrors.Internal(fmt.Errorf("read content file: %w", err))
	}
	if !json.Valid(data) {
		return nil, apperrors.Malformed("content file "+name, nil)
	}

	raw := json.RawMessage(data)
	r.cache.SetDefault(cacheKey, raw)
	return raw, nil
}

// DefaultFAQs is the fallback FAQ set used when a country has no content
// file. Always exactly four entries.
func DefaultFAQs(countryName string) []model.FAQ {
	return []model.FAQ{
		{
			Question: fmt.Sprintf("How does an eSIM for %s work?", countryName),
			Answer:   "An eSIM is a digital SIM built into your device. Scan the QR code we send you after purchase, and your data plan activates as soon as you arrive. No physical SIM card or store visit needed.",
		},
		{
			Question: "When does my plan start?",
			Answer:   "Your plan starts the first time your device connects to a supported network, not at purchase. You can buy ahead of your trip and install the eSIM whenever it suits you.",
		},
		{
			Question: "Can I keep my regular number?",
			Answer:   "Yes. The eSIM only carries data, so your physical SIM stays active for calls and texts. Keep data roaming off on your regular SIM to avoid charges.",
		},
		{
			Question: "What happens if I run out of data?",
			Answer:   "You can top up or buy another plan at any time from your dashboard. Unused plans never expire until activated.",
		},
	}
}

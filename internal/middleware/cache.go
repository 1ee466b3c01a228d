package middleware

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// CacheConfig represents cache control configuration
type CacheConfig struct {
	SMaxAge              int
	Public               bool
	NoStore              bool
	StaleWhileRevalidate int
	Vary                 []string
}

// CountryListCacheConfig is the policy for the country index:
// one hour fresh at the edge, a day of stale-while-revalidate.
func CountryListCacheConfig() CacheConfig {
	return CacheConfig{
		SMaxAge:              3600,
		Public:               true,
		StaleWhileRevalidate: 86400,
	}
}

// NoStoreCacheConfig disables caching entirely; used for content routes
// whose output depends on files editors may replace at any time.
func NoStoreCacheConfig() CacheConfig {
	return CacheConfig{NoStore: true}
}

// Cache adds cache control headers to responses
func Cache(config CacheConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != "GET" {
			c.Header("Cache-Control", "no-store")
			c.Next()
			return
		}

		if config.NoStore {
			c.Header("Cache-Control", "no-store")
			c.Next()
			return
		}

		directives := make([]string, 0, 4)
		if config.Public {
			directives = append(directives, "public")
		} else {
			directives = append(directives, "private")
		}
		if config.SMaxAge > 0 {
			directives = append(directives, "s-maxage="+strconv.Itoa(config.SMaxAge))
		}
		if config.StaleWhileRevalidate > 0 {
			directives = append(directives, "stale-while-revalidate="+strconv.Itoa(config.StaleWhileRevalidate))
		}

		c.Header("Cache-Control", strings.Join(directives, ", "))
		if len(config.Vary) > 0 {
			c.Header("Vary", strings.Join(config.Vary, ", "))
		}

		c.Next()
	}
}

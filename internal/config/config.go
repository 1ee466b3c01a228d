package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Upstream   UpstreamConfig   `mapstructure:"upstream"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Content    ContentConfig    `mapstructure:"content"`
	Checkout   CheckoutConfig   `mapstructure:"checkout"`
	ImageProxy ImageProxyConfig `mapstructure:"image_proxy"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Secrets    Secrets          `mapstructure:"-"`
	// Environment is "development" or "production"; development mode
	// exposes gateway error detail in responses.
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type UpstreamConfig struct {
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the per-request budget for catalogue calls.
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	// BundleGroup is the default catalogue group used when a country
	// config does not name its own endpoint.
	BundleGroup string `mapstructure:"bundle_group"`
	// EnrichLimit bounds how many countries of a listing get live
	// pricing; the rest render without it.
	EnrichLimit int `mapstructure:"enrich_limit"`
	// EnrichParallelism bounds concurrent catalogue calls during listing
	// enrichment.
	EnrichParallelism int `mapstructure:"enrich_parallelism"`
}

type CacheConfig struct {
	FreshTTL        time.Duration `mapstructure:"fresh_ttl"`
	StaleTTL        time.Duration `mapstructure:"stale_ttl"`
	ContentTTL      time.Duration `mapstructure:"content_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type ContentConfig struct {
	Dir string `mapstructure:"dir"`
}

type CheckoutConfig struct {
	SessionTTL time.Duration `mapstructure:"session_ttl"`
	// RedirectDelay is the post-payment dashboard redirect hint. Tunable
	// UX constant, not a correctness requirement.
	RedirectDelay time.Duration `mapstructure:"redirect_delay"`
}

type ImageProxyConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	SlowTimeout time.Duration `mapstructure:"slow_timeout"`
	MaxBytes    int64         `mapstructure:"max_bytes"`
	SlowDomains []string      `mapstructure:"slow_domains"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// Secrets are credentials read from the environment only, never from the
// config file.
type Secrets struct {
	PayPalClientID     string `envconfig:"PAYPAL_CLIENT_ID"`
	PayPalClientSecret string `envconfig:"PAYPAL_CLIENT_SECRET"`
	PayPalEnvironment  string `envconfig:"PAYPAL_ENVIRONMENT" default:"sandbox"`
	RedisURL           string `envconfig:"REDIS_URL"`
	JWTSecret          string `envconfig:"JWT_SECRET"`
	SMTPHost           string `envconfig:"SMTP_HOST"`
	SMTPPort           int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername       string `envconfig:"SMTP_USERNAME"`
	SMTPPassword       string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom           string `envconfig:"SMTP_FROM"`
}

func setDefaults() {
	viper.SetDefault("environment", "production")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 10*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)
	viper.SetDefault("upstream.timeout", 10*time.Second)
	viper.SetDefault("upstream.max_retries", 2)
	viper.SetDefault("upstream.bundle_group", "Standard Fixed Unlimited Essential")
	viper.SetDefault("upstream.enrich_limit", 20)
	viper.SetDefault("upstream.enrich_parallelism", 5)
	viper.SetDefault("cache.fresh_ttl", time.Hour)
	viper.SetDefault("cache.stale_ttl", 24*time.Hour)
	viper.SetDefault("cache.content_ttl", 15*time.Minute)
	viper.SetDefault("cache.cleanup_interval", time.Hour)
	viper.SetDefault("content.dir", "./content")
	viper.SetDefault("checkout.session_ttl", 2*time.Hour)
	viper.SetDefault("checkout.redirect_delay", 1500*time.Millisecond)
	viper.SetDefault("image_proxy.timeout", 3*time.Second)
	viper.SetDefault("image_proxy.slow_timeout", 6*time.Second)
	viper.SetDefault("image_proxy.max_bytes", 10<<20)
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests_per_second", 50.0)
	viper.SetDefault("rate_limit.burst", 100)
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()
	viper.AutomaticEnv()

	// The config file is optional; defaults plus environment cover a
	// complete deployment.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process("", &config.Secrets); err != nil {
		return nil, fmt.Errorf("failed to read secrets from environment: %w", err)
	}

	if config.Upstream.BaseURL == "" {
		config.Upstream.BaseURL = viper.GetString("UPSTREAM_API_BASE_URL")
	}

	return &config, nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

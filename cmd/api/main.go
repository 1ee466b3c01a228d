package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/roamsim/storefront-api/internal/cache"
	"github.com/roamsim/storefront-api/internal/config"
	"github.com/roamsim/storefront-api/internal/content"
	"github.com/roamsim/storefront-api/internal/email"
	paypalGateway "github.com/roamsim/storefront-api/internal/gateway/paypal"
	"github.com/roamsim/storefront-api/internal/handler"
	checkoutHandler "github.com/roamsim/storefront-api/internal/handler/checkout"
	contentHandler "github.com/roamsim/storefront-api/internal/handler/content"
	countryHandler "github.com/roamsim/storefront-api/internal/handler/country"
	currencyHandler "github.com/roamsim/storefront-api/internal/handler/currency"
	"github.com/roamsim/storefront-api/internal/handler/imageproxy"
	paypalHandler "github.com/roamsim/storefront-api/internal/handler/paypal"
	prometheusHandler "github.com/roamsim/storefront-api/internal/handler/prometheus"
	"github.com/roamsim/storefront-api/internal/middleware"
	"github.com/roamsim/storefront-api/internal/router"
	"github.com/roamsim/storefront-api/internal/service/catalog"
	checkoutService "github.com/roamsim/storefront-api/internal/service/checkout"
	"github.com/roamsim/storefront-api/internal/service/compose"
	currencyService "github.com/roamsim/storefront-api/internal/service/currency"
	"github.com/roamsim/storefront-api/internal/upstream"
	"github.com/roamsim/storefront-api/pkg/auth"
	"github.com/roamsim/storefront-api/pkg/logger"
	"github.com/roamsim/storefront-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(&logger.Config{
		Level:      logger.InfoLevel,
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Pretty:     cfg.IsDevelopment(),
	})

	m := metrics.NewMetrics("storefront")

	// Upstream fetch layer
	upstreamClient := upstream.NewClient(upstream.Config{
		Timeout:    cfg.Upstream.Timeout,
		MaxRetries: cfg.Upstream.MaxRetries,
	}, appLogger, m)

	// Content store
	reader := content.NewReader(cfg.Content.Dir, cfg.Cache.ContentTTL, appLogger)

	// Services
	catalogSvc := catalog.NewService(upstreamClient, cfg.Upstream, appLogger)
	composer := compose.NewService(catalogSvc, reader, appLogger)

	currencyStore, sessionStore := buildStores(cfg, appLogger)
	currencySvc := currencyService.NewService(currencyStore, appLogger)

	mailer := email.NewService(email.Config{
		Host:     cfg.Secrets.SMTPHost,
		Port:     cfg.Secrets.SMTPPort,
		Username: cfg.Secrets.SMTPUsername,
		Password: cfg.Secrets.SMTPPassword,
		From:     cfg.Secrets.SMTPFrom,
	}, appLogger)

	checkoutSvc := checkoutService.NewService(sessionStore, catalogSvc, mailer, cfg.Checkout, appLogger, m)

	// Payment gateway; the storefront still serves pages without it.
	var gateway *paypalGateway.Client
	gateway, err = paypalGateway.NewClient(paypalGateway.Config{
		ClientID:     cfg.Secrets.PayPalClientID,
		ClientSecret: cfg.Secrets.PayPalClientSecret,
		Environment:  cfg.Secrets.PayPalEnvironment,
	}, appLogger)
	if err != nil {
		appLogger.Warn("payment gateway disabled", "error", err.Error())
		gateway = nil
	}

	listCache := cache.NewSWRCache("countries",
		cfg.Cache.FreshTTL, cfg.Cache.StaleTTL, cfg.Cache.CleanupInterval, appLogger, m)

	// Handlers
	authMiddleware := middleware.NewAuthMiddleware(auth.NewVerifier(cfg.Secrets.JWTSecret))
	r := router.NewRouter(
		authMiddleware,
		router.Config{
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:        cfg.RateLimit.Burst,
			CORSConfig:       middleware.DefaultCORSConfig(),
			MetricsPrefix:    "storefront",
		},
		handler.NewHandler(),
		countryHandler.NewHandler(catalogSvc, composer, listCache),
		contentHandler.NewHandler(reader),
		currencyHandler.NewHandler(currencySvc),
		checkoutHandler.NewHandler(checkoutSvc),
		paypalHandlerFor(gateway, checkoutSvc, appLogger, m, cfg),
		imageproxy.NewHandler(cfg.ImageProxy, appLogger),
	)
	r.Setup()
	prometheusHandler.NewHandler().RegisterRoutes(r.Engine().Group(""))

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 16,
	}

	go func() {
		appLogger.Info("starting server", "port", cfg.Server.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}

// buildStores prefers redis for durable client state and falls back to
// in-process stores when no redis URL is configured.
func buildStores(cfg *config.Config, appLogger *logger.Logger) (currencyService.SelectionStore, checkoutService.SessionStore) {
	if cfg.Secrets.RedisURL == "" {
		appLogger.Warn("redis not configured, using in-memory stores")
		return currencyService.NewMemoryStore(), checkoutService.NewMemorySessionStore(cfg.Checkout.SessionTTL)
	}

	currencyStore, err := currencyService.NewRedisStore(cfg.Secrets.RedisURL)
	if err != nil {
		appLogger.Warn("redis unavailable, using in-memory stores", "error", err.Error())
		return currencyService.NewMemoryStore(), checkoutService.NewMemorySessionStore(cfg.Checkout.SessionTTL)
	}
	sessionStore, err := checkoutService.NewRedisSessionStore(cfg.Secrets.RedisURL, cfg.Checkout.SessionTTL)
	if err != nil {
		appLogger.Warn("redis unavailable for sessions, using in-memory store", "error", err.Error())
		return currencyStore, checkoutService.NewMemorySessionStore(cfg.Checkout.SessionTTL)
	}
	return currencyStore, sessionStore
}

func paypalHandlerFor(gateway *paypalGateway.Client, checkoutSvc *checkoutService.Service, log *logger.Logger, m *metrics.Metrics, cfg *config.Config) router.Handler {
	// A nil *Client must stay a nil interface so the handler's
	// unconfigured check keeps working.
	var gw paypalHandler.Gateway
	if gateway != nil {
		gw = gateway
	}
	return paypalHandler.NewHandler(gw, checkoutSvc, log, m, cfg.IsDevelopment())
}

package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/roamsim/storefront-api/pkg/circuitbreaker"
	apperrors "github.com/roamsim/storefront-api/pkg/errors"
	"github.com/roamsim/storefront-api/pkg/logger"
	"github.com/roamsim/storefront-api/pkg/metrics"
)

// Client issues HTTP GETs against the upstream bundle API with a bounded
// timeout per call and normalizes failures into the application error
// taxonomy: Timeout, Network, Upstream (non-2xx) and Malformed (bad JSON).
type Client struct {
	http       *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	logger     *logger.Logger
	metrics    *metrics.Metrics
	maxRetries int
}

type Config struct {
	// Timeout bounds a single request; callers may tighten it per call
	// via context.
	Timeout    time.Duration
	MaxRetries int
}

func NewClient(cfg Config, log *logger.Logger, m *metrics.Metrics) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		http: &http.Client{
			// The transport-level timeout is a hard backstop; the
			// per-call context carries the real budget.
			Timeout: cfg.Timeout + 5*time.Second,
		},
		breaker: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "upstream-api",
			MaxFailures: 10,
			Timeout:     15 * time.Second,
		}),
		logger:     log,
		metrics:    m,
		maxRetries: cfg.MaxRetries,
	}
}

// GetJSON performs one GET with the given timeout budget and decodes the
// 2xx body into out. On timer expiry the in-flight request is aborted and
// a Timeout error returned; partial data is never decoded.
func (c *Client) GetJSON(ctx context.Context, endpoint, url string, timeout time.Duration, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := c.breaker.Execute(func() error {
		return c.doGet(ctx, url, out)
	})
	c.metrics.UpstreamLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if err == nil {
		c.metrics.UpstreamRequests.WithLabelValues(endpoint, "success").Inc()
		return nil
	}
	if errors.Is(err, circuitbreaker.ErrOpen) {
		err = apperrors.Network("upstream request", err)
	}

	// Timeouts are expected under load and stay out of the error log.
	if apperrors.IsTimeout(err) {
		c.metrics.UpstreamTimeouts.WithLabelValues(endpoint).Inc()
		c.metrics.UpstreamRequests.WithLabelValues(endpoint, "timeout").Inc()
		c.logger.Debug("upstream request timed out", "endpoint", endpoint, "url", url, "budget", timeout.String())
	} else {
		c.metrics.UpstreamRequests.WithLabelValues(endpoint, "error").Inc()
		c.logger.Error(err, "upstream request failed", "endpoint", endpoint, "url", url)
	}
	return err
}

// GetJSONRetry is GetJSON plus bounded retries with exponential backoff
// (2^attempt seconds) on timeouts, network failures and 5xx responses.
// Client errors and malformed payloads are never retried.
func (c *Client) GetJSONRetry(ctx context.Context, endpoint, url string, timeout time.Duration, out interface{}) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = c.GetJSON(ctx, endpoint, url, timeout, out)
		if err == nil || !apperrors.IsRetryable(err) || attempt >= c.maxRetries {
			return err
		}

		c.metrics.UpstreamRetries.WithLabelValues(endpoint).Inc()
		delay := time.Duration(1<<uint(attempt)) * time.Second
		c.logger.Debug("retrying upstream request",
			"endpoint", endpoint, "url", url, "attempt", attempt+1, "delay", delay.String())

		select {
		case <-ctx.Done():
			return apperrors.Timeout("upstream request", ctx.Err())
		case <-time.After(delay):
		}
	}
}

func (c *Client) doGet(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return apperrors.BadRequest("invalid upstream URL", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return apperrors.Upstream("upstream request", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyTransportError(err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.Malformed("upstream request", err)
	}
	return nil
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Timeout("upstream request", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperrors.Timeout("upstream request", err)
	}
	if errors.Is(err, context.Canceled) {
		return apperrors.Network("upstream request", err)
	}
	return apperrors.Network("upstream request", fmt.Errorf("transport: %w", err))
}

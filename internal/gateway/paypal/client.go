package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/roamsim/storefront-api/pkg/circuitbreaker"
	apperrors "github.com/roamsim/storefront-api/pkg/errors"
	"github.com/roamsim/storefront-api/pkg/logger"
)

const (
	sandboxBase = "https://api-m.sandbox.paypal.com"
	liveBase    = "https://api-m.paypal.com"
)

type Config struct {
	ClientID     string
	ClientSecret string
	// Environment is "sandbox" or "live".
	Environment string
	Timeout     time.Duration
}

// Client wraps the PayPal REST API: client-credentials OAuth plus the
// order create/capture lifecycle. Tokens are cached until shortly before
// expiry.
type Client struct {
	http    *http.Client
	base    string
	id      string
	secret  string
	breaker *circuitbreaker.CircuitBreaker
	logger  *logger.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewClient(cfg Config, log *logger.Logger) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, apperrors.Configuration("paypal credentials are not configured")
	}
	base := sandboxBase
	if strings.EqualFold(cfg.Environment, "live") {
		base = liveBase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		http:   &http.Client{Timeout: cfg.Timeout},
		base:   base,
		id:     cfg.ClientID,
		secret: cfg.ClientSecret,
		breaker: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "paypal",
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		}),
		logger: log,
	}, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.base+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", apperrors.Internal(err)
	}
	req.SetBasicAuth(c.id, c.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var tok tokenResponse
	if err := c.do(req, &tok); err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", apperrors.Malformed("paypal token", nil)
	}

	c.token = tok.AccessToken
	// Renew a minute early to avoid racing expiry mid-request.
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	return c.token, nil
}

// Order is the subset of the gateway order payload the storefront uses.
type Order struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []Link `json:"links,omitempty"`
}

type Link struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

// CaptureResult is the capture response subset.
type CaptureResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Payer  struct {
		Email string `json:"email_address"`
	} `json:"payer"`
}

// CreateOrder creates a gateway order for the given amount in the given
// currency. Amount validation happens at the handler boundary.
func (c *Client) CreateOrder(ctx context.Context, amount float64, currency string) (*Order, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{
			{
				"amount": map[string]string{
					"currency_code": strings.ToUpper(currency),
					"value":         fmt.Sprintf("%.2f", amount),
				},
			},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.base+"/v2/checkout/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	var order Order
	if err := c.do(req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// CaptureOrder captures an approved order.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*CaptureResult, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.base+"/v2/checkout/orders/"+url.PathEscape(orderID)+"/capture", bytes.NewReader([]byte("{}")))
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	var result CaptureResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	return c.breaker.Execute(func() error {
		resp, err := c.http.Do(req)
		if err != nil {
			if ctxErr := req.Context().Err(); ctxErr != nil {
				return apperrors.Timeout("paypal request", ctxErr)
			}
			return apperrors.Network("paypal request", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return apperrors.Network("paypal request", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			c.logger.Error(nil, "paypal request failed",
				"path", req.URL.Path, "status", resp.StatusCode, "body", string(body))
			return apperrors.Upstream("paypal request", resp.StatusCode)
		}
		if err := json.Unmarshal(body, out); err != nil {
			return apperrors.Malformed("paypal request", err)
		}
		return nil
	})
}

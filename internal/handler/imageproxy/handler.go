package imageproxy

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roamsim/storefront-api/internal/config"
	"github.com/roamsim/storefront-api/pkg/logger"
)

// Handler streams remote images through the API so the storefront can
// serve third-party hero/flag assets from its own origin. Sources are
// restricted to https and image content types, with a hard byte cap.
type Handler struct {
	http        *http.Client
	cfg         config.ImageProxyConfig
	logger      *logger.Logger
	slowDomains map[string]struct{}
}

func NewHandler(cfg config.ImageProxyConfig, log *logger.Logger) *Handler {
	slow := make(map[string]struct{}, len(cfg.SlowDomains))
	for _, d := range cfg.SlowDomains {
		slow[strings.ToLower(d)] = struct{}{}
	}
	return &Handler{
		// Redirect targets must satisfy the same https restriction.
		http: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if req.URL.Scheme != "https" {
					return errors.New("redirect to non-https source")
				}
				if len(via) >= 3 {
					return errors.New("too many redirects")
				}
				return nil
			},
		},
		cfg:    cfg,
		logger: log,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/image-proxy", h.Proxy)
}

func (h *Handler) timeoutFor(host string) time.Duration {
	if _, ok := h.slowDomains[strings.ToLower(host)]; ok {
		return h.cfg.SlowTimeout
	}
	return h.cfg.Timeout
}

func (h *Handler) Proxy(c *gin.Context) {
	rawURL := c.Query("url")
	if rawURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing url parameter"})
		return
	}

	src, err := url.Parse(rawURL)
	if err != nil || src.Scheme != "https" || src.Host == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only https image sources are allowed"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeoutFor(src.Hostname()))
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.String(), nil)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image URL"})
		return
	}
	req.Header.Set("Accept", "image/*")

	resp, err := h.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			c.JSON(http.StatusRequestTimeout, gin.H{"error": "Image fetch timed out"})
			return
		}
		h.logger.Debug("image fetch failed", "url", src.String(), "error", err.Error())
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch image"})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Image source returned an error"})
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "Source is not an image"})
		return
	}
	if resp.ContentLength > h.cfg.MaxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Image exceeds size limit"})
		return
	}

	// Buffer before writing any response. Chunked sources carry no
	// Content-Length, and a truncated image under a long-lived
	// Cache-Control header would be served broken by every CDN in front
	// of us. One extra byte past the cap proves the source is oversize.
	body, err := io.ReadAll(io.LimitReader(resp.Body, h.cfg.MaxBytes+1))
	if err != nil {
		if isTimeout(err) {
			c.JSON(http.StatusRequestTimeout, gin.H{"error": "Image fetch timed out"})
			return
		}
		h.logger.Debug("image read failed", "url", src.String(), "error", err.Error())
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch image"})
		return
	}
	if int64(len(body)) > h.cfg.MaxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Image exceeds size limit"})
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, contentType, body)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

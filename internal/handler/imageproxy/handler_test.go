package imageproxy

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamsim/storefront-api/internal/config"
	"github.com/roamsim/storefront-api/pkg/logger"
)

func newTestHandler(t *testing.T, cfg config.ImageProxyConfig) *Handler {
	t.Helper()
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}
	if cfg.SlowTimeout == 0 {
		cfg.SlowTimeout = 2 * time.Second
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = 10 << 20
	}
	return NewHandler(cfg, logger.NewLogger(nil))
}

func newTestRouter(t *testing.T, h *Handler) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"))
	return r
}

// newImageOrigin serves the given handler over TLS and points the proxy's
// client at the origin's self-signed cert.
func newImageOrigin(t *testing.T, h *Handler, origin http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewTLSServer(origin)
	t.Cleanup(srv.Close)
	h.http.Transport = srv.Client().Transport
	return srv
}

func proxyRequest(r *gin.Engine, imageURL string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	path := "/api/v1/image-proxy"
	if imageURL != "" {
		path += "?url=" + url.QueryEscape(imageURL)
	}
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestProxyMissingURL(t *testing.T) {
	r := newTestRouter(t, newTestHandler(t, config.ImageProxyConfig{}))
	w := proxyRequest(r, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error": "Missing url parameter"}`, w.Body.String())
}

func TestProxyRejectsNonHTTPSSources(t *testing.T) {
	r := newTestRouter(t, newTestHandler(t, config.ImageProxyConfig{}))
	for _, src := range []string{
		"http://example.com/flag.png",
		"ftp://example.com/flag.png",
		"not-a-url",
		"https://",
	} {
		w := proxyRequest(r, src)
		assert.Equal(t, http.StatusBadRequest, w.Code, "url %q", src)
		assert.JSONEq(t, `{"error": "Only https image sources are allowed"}`, w.Body.String(), "url %q", src)
	}
}

func TestProxyUnreachableSourceIsBadGateway(t *testing.T) {
	r := newTestRouter(t, newTestHandler(t, config.ImageProxyConfig{}))
	w := proxyRequest(r, "https://127.0.0.1:1/hero.jpg")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestProxyServesImage(t *testing.T) {
	h := newTestHandler(t, config.ImageProxyConfig{})
	srv := newImageOrigin(t, h, func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-bytes"))
	})

	w := proxyRequest(newTestRouter(t, h), srv.URL+"/flag.png")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=86400", w.Header().Get("Cache-Control"))
	assert.Equal(t, "png-bytes", w.Body.String())
}

func TestProxyRejectsOversizeDeclaredLength(t *testing.T) {
	h := newTestHandler(t, config.ImageProxyConfig{MaxBytes: 1024})
	payload := strings.Repeat("x", 4096)
	srv := newImageOrigin(t, h, func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte(payload))
	})

	w := proxyRequest(newTestRouter(t, h), srv.URL+"/hero.png")
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestProxyRejectsOversizeChunkedBody(t *testing.T) {
	h := newTestHandler(t, config.ImageProxyConfig{MaxBytes: 1024})
	srv := newImageOrigin(t, h, func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		flusher, ok := w.(http.Flusher)
		require.True(t, ok)
		// Flushing before the body completes drops Content-Length and
		// switches the response to chunked encoding.
		for i := 0; i < 4; i++ {
			w.Write([]byte(strings.Repeat("x", 1024)))
			flusher.Flush()
		}
	})

	w := proxyRequest(newTestRouter(t, h), srv.URL+"/hero.png")
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Empty(t, w.Header().Get("Cache-Control"))
}

func TestProxyRejectsNonImageContent(t *testing.T) {
	h := newTestHandler(t, config.ImageProxyConfig{})
	srv := newImageOrigin(t, h, func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	})

	w := proxyRequest(newTestRouter(t, h), srv.URL+"/hero.png")
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestProxySlowDomainBudgetIgnoresPort(t *testing.T) {
	h := newTestHandler(t, config.ImageProxyConfig{
		Timeout:     50 * time.Millisecond,
		SlowTimeout: 3 * time.Second,
		SlowDomains: []string{"127.0.0.1"},
	})
	srv := newImageOrigin(t, h, func(w http.ResponseWriter, req *http.Request) {
		// Slower than the default budget, within the slow one. A test
		// origin always carries an explicit port in its URL.
		time.Sleep(200 * time.Millisecond)
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg-bytes"))
	})

	w := proxyRequest(newTestRouter(t, h), srv.URL+"/hero.jpg")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jpeg-bytes", w.Body.String())
}

func TestTimeoutForSlowDomains(t *testing.T) {
	h := NewHandler(config.ImageProxyConfig{
		Timeout:     3 * time.Second,
		SlowTimeout: 6 * time.Second,
		SlowDomains: []string{"cdn.slowhost.com"},
	}, logger.NewLogger(nil))

	assert.Equal(t, 6*time.Second, h.timeoutFor("cdn.slowhost.com"))
	assert.Equal(t, 6*time.Second, h.timeoutFor("CDN.SlowHost.com"))
	assert.Equal(t, 3*time.Second, h.timeoutFor("images.fasthost.com"))
}

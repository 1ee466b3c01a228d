package content

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamsim/storefront-api/internal/content"
	"github.com/roamsim/storefront-api/internal/model"
	"github.com/roamsim/storefront-api/pkg/logger"
)

func newTestRouter(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	r := gin.New()
	reader := content.NewReader(dir, time.Minute, logger.NewLogger(nil))
	NewHandler(reader).RegisterRoutes(r.Group("/api/v1"))
	return r, dir
}

func writeContentFile(t *testing.T, dir, kind, name, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, kind), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, kind, name+".json"), []byte(body), 0o644))
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestGetCountryContentWithFile(t *testing.T) {
	r, dir := newTestRouter(t)
	writeContentFile(t, dir, "countryData", "belgium", `{
		"title": "eSIM Belgium",
		"seo_meta_title": "Belgium eSIM plans from EUR 4",
		"meta_description": "Stay connected across Belgium.",
		"faqs": [{"question": "q1", "answer": "a1"}]
	}`)

	w := get(r, "/api/v1/country-content/belgium")
	require.Equal(t, http.StatusOK, w.Code)

	var resp model.ContentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.HasCountrySpecificContent)
	assert.Equal(t, "eSIM Belgium", resp.Title)
	assert.Len(t, resp.FAQs, 1)
}

func TestGetCountryContentUnknownSlugServesDefaults(t *testing.T) {
	r, _ := newTestRouter(t)

	w := get(r, "/api/v1/country-content/atlantis")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"hasCountrySpecificContent":false`)

	var resp model.ContentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.HasCountrySpecificContent)
	assert.Equal(t, "Atlantis eSIM", resp.Title)
	assert.Len(t, resp.FAQs, 4)
}

func TestGetCountryContentInvalidSlug(t *testing.T) {
	r, _ := newTestRouter(t)

	w := get(r, "/api/v1/country-content/Not%20A%20Slug")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetCountryContentNoStoreHeaders(t *testing.T) {
	r, _ := newTestRouter(t)

	w := get(r, "/api/v1/country-content/atlantis")
	assert.Contains(t, w.Header().Get("Cache-Control"), "no-store")
}

func TestGetPageServesRawDocument(t *testing.T) {
	r, dir := newTestRouter(t)
	writeContentFile(t, dir, "pages", "home", `{"hero": "Travel data, instantly."}`)

	w := get(r, "/api/v1/pages/home")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"hero": "Travel data, instantly."}`, w.Body.String())
}

func TestGetPageMissingIs404(t *testing.T) {
	r, _ := newTestRouter(t)

	w := get(r, "/api/v1/pages/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

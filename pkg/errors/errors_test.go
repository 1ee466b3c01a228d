package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCodeMapping(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, NotFound("bundle", nil).StatusCode())
	assert.Equal(t, http.StatusBadRequest, Validation("bad input").StatusCode())
	assert.Equal(t, http.StatusRequestTimeout, Timeout("fetch", nil).StatusCode())
	assert.Equal(t, http.StatusServiceUnavailable, Network("fetch", nil).StatusCode())
	assert.Equal(t, http.StatusBadGateway, Upstream("fetch", 502).StatusCode())
	assert.Equal(t, http.StatusBadGateway, Malformed("fetch", nil).StatusCode())
	assert.Equal(t, http.StatusInternalServerError, Internal(nil).StatusCode())
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(Timeout("fetch", nil)))
	assert.True(t, IsRetryable(Network("fetch", nil)))
	assert.True(t, IsRetryable(Upstream("fetch", 500)))
	assert.True(t, IsRetryable(Upstream("fetch", 503)))

	assert.False(t, IsRetryable(Upstream("fetch", 404)))
	assert.False(t, IsRetryable(Upstream("fetch", 400)))
	assert.False(t, IsRetryable(Malformed("fetch", nil)))
	assert.False(t, IsRetryable(Validation("bad input")))
	assert.False(t, IsRetryable(fmt.Errorf("plain error")))
}

func TestCodeExtraction(t *testing.T) {
	wrapped := fmt.Errorf("context: %w", Timeout("fetch", nil))
	assert.Equal(t, ErrTimeout, Code(wrapped))
	assert.True(t, IsTimeout(wrapped))

	assert.Equal(t, ErrInternal, Code(fmt.Errorf("plain")))
}

func TestErrorFormatting(t *testing.T) {
	err := Upstream("catalogue request", 502)
	assert.Equal(t, "catalogue request failed: upstream returned 502", err.Error())
	assert.Equal(t, 502, err.Status)

	inner := fmt.Errorf("connection refused")
	assert.Contains(t, Network("fetch", inner).Error(), "connection refused")
}

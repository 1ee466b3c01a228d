package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamsim/storefront-api/pkg/auth"
)

func signTestToken(t *testing.T, secret, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func newAuthRouter(optional bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	m := NewAuthMiddleware(auth.NewVerifier("test-secret"))
	r := gin.New()
	mw := m.Required()
	if optional {
		mw = m.Optional()
	}
	r.GET("/whoami", mw, func(c *gin.Context) {
		if claims := ClaimsFromContext(c); claims != nil {
			c.JSON(http.StatusOK, gin.H{"user_id": claims.UserID})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": nil})
	})
	return r
}

func requestWithToken(r *gin.Engine, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestOptionalAttachesClaims(t *testing.T) {
	r := newAuthRouter(true)

	w := requestWithToken(r, signTestToken(t, "test-secret", "u1"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":"u1"`)
}

func TestOptionalContinuesAnonymously(t *testing.T) {
	r := newAuthRouter(true)

	for _, token := range []string{"", "garbage", signTestToken(t, "wrong-secret", "u1")} {
		w := requestWithToken(r, token)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"user_id":null`)
	}
}

func TestRequiredRejectsMissingToken(t *testing.T) {
	r := newAuthRouter(false)

	w := requestWithToken(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequiredAcceptsValidToken(t *testing.T) {
	r := newAuthRouter(false)

	w := requestWithToken(r, signTestToken(t, "test-secret", "u2"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":"u2"`)
}

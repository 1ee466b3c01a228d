package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/roamsim/storefront-api/pkg/auth"
)

const ContextClaims = "auth_claims"

// AuthMiddleware verifies bearer tokens issued by the external identity
// provider. The storefront never issues tokens itself.
type AuthMiddleware struct {
	verifier auth.Verifier
}

func NewAuthMiddleware(verifier auth.Verifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// Optional attaches claims when a valid bearer token is present and
// continues anonymously otherwise. Checkout uses the presence of claims
// to derive its initial step.
func (m *AuthMiddleware) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims := m.claimsFrom(c); claims != nil {
			c.Set(ContextClaims, claims)
		}
		c.Next()
	}
}

// Required rejects requests without a valid bearer token.
func (m *AuthMiddleware) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := m.claimsFrom(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}
		c.Set(ContextClaims, claims)
		c.Next()
	}
}

func (m *AuthMiddleware) claimsFrom(c *gin.Context) *auth.Claims {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil
	}
	claims, err := m.verifier.Verify(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		return nil
	}
	return claims
}

// ClaimsFromContext returns the verified claims for the request, or nil.
func ClaimsFromContext(c *gin.Context) *auth.Claims {
	if v, exists := c.Get(ContextClaims); exists {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

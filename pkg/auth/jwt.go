package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/roamsim/storefront-api/pkg/errors"
)

// Claims is the subset of identity-provider token claims the storefront
// cares about. Tokens are issued externally; this package only verifies.
type Claims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

type Verifier interface {
	Verify(token string) (*Claims, error)
}

type hmacVerifier struct {
	secret []byte
}

func NewVerifier(secret string) Verifier {
	return &hmacVerifier{secret: []byte(secret)}
}

func (v *hmacVerifier) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}
	if !token.Valid {
		return nil, apperrors.Unauthorized(fmt.Errorf("invalid token"))
	}
	return claims, nil
}

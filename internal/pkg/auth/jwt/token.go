package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
)

const (
	// SessionExpiration is the lifetime of tokens minted by GenerateToken.
	SessionExpiration = 7 * 24 * time.Hour

	// TokenIssuer is the iss claim of minted tokens.
	TokenIssuer = "duochat"
)

var errSigningMethod = errors.New("unexpected signing method")

// GenerateToken signs payload with HS256 after stamping iat, exp and iss.
func GenerateToken(payload *Payload, secretKey string, ttl time.Duration) (string, error) {
	now := time.Now()
	payload.IssuedAt = now.Unix()
	payload.ExpiresAt = now.Add(ttl).Unix()
	payload.Issuer = TokenIssuer

	return jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString([]byte(secretKey))
}

// ParseToken verifies tokenString against secretKey and returns its claims.
// Expired tokens fail validation.
func ParseToken(tokenString string, secretKey string) (*Payload, error) {
	claims := &Payload{}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errSigningMethod
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, err
	}

	return claims, nil
}

// ExpiresAt reads the exp claim of tokenString without checking the signature.
// A token without exp yields the zero time.
func ExpiresAt(tokenString string) (time.Time, error) {
	claims := &Payload{}

	if _, _, err := new(jwt.Parser).ParseUnverified(tokenString, claims); err != nil {
		return time.Time{}, err
	}

	if claims.ExpiresAt == 0 {
		return time.Time{}, nil
	}
	return time.Unix(claims.ExpiresAt, 0), nil
}

// Expired reports whether tokenString is unreadable or past its expiry at now.
func Expired(tokenString string, now time.Time) bool {
	exp, err := ExpiresAt(tokenString)
	if err != nil {
		return true
	}
	return !exp.IsZero() && !now.Before(exp)
}

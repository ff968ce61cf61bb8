package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims is the signed payload carried by bearer tokens. The subject is
// the user id; the remaining fields mirror the public projection so
// transports can render an identity without a store round trip.
type JWTClaims struct {
	jwt.RegisteredClaims
	Email     string `json:"email,omitempty"`
	UserRole  string `json:"role,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// UserID returns the subject claim
func (c *JWTClaims) UserID() string {
	return c.RegisteredClaims.Subject
}

// Role returns the role claim
func (c *JWTClaims) Role() string {
	return c.UserRole
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedTime returns the issued-at time
func (c *JWTClaims) IssuedTime() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// ensureTokenID assigns a jti when the claims carry none
func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = newTokenID()
	}
}

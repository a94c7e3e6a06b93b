package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is what the client can read from a credential without verifying
// its signature.
type Claims struct {
	Subject   string
	Role      string
	ExpiresAt time.Time
}

// ParseCredential decodes the JWT payload of token. The signature is not
// checked; the result must never be used for authorization decisions.
func ParseCredential(token string) (Claims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Claims{}, fmt.Errorf("parsing credential: %w", err)
	}

	var out Claims
	if sub, err := claims.GetSubject(); err == nil {
		out.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	if role, ok := claims["role"].(string); ok {
		out.Role = role
	}
	return out, nil
}

func credentialExpiry(token string) time.Time {
	c, err := ParseCredential(token)
	if err != nil {
		return time.Time{}
	}
	return c.ExpiresAt
}

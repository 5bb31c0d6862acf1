package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/managedsolutions7/k2weighingfe-sub000/internal/models"
)

// Claims are the token fields the client cares about.
type Claims struct {
	UserID    string
	Email     string
	Role      models.Role
	ExpiresAt time.Time // zero when the token has no exp
}

// ParseClaims reads the token payload without checking the signature.
// The entries service verifies tokens; the client only needs exp and role.
func ParseClaims(token string) (Claims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Claims{}, fmt.Errorf("parse token: %w", err)
	}

	var c Claims
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	if id, ok := claims["id"].(string); ok {
		c.UserID = id
	} else if sub, err := claims.GetSubject(); err == nil {
		c.UserID = sub
	}
	if email, ok := claims["email"].(string); ok {
		c.Email = email
	}
	if role, ok := claims["role"].(string); ok {
		c.Role = models.Role(role)
	}
	return c, nil
}

// Package pagetoken mints and verifies the signed continuation tokens the
// paginator hands to clients between pages.
package pagetoken

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Manager signs and verifies page tokens with a shared HMAC secret.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// NewManager returns a Manager signing with secret. Tokens expire after
// ttl; a non-positive ttl disables expiry.
func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl}
}

type claims struct {
	LastID string `json:"lastId"`
	Offset int    `json:"offset"`
	jwt.RegisteredClaims
}

// Sign mints a token carrying the cursor position.
func (m *Manager) Sign(lastID string, offset int) (string, error) {
	c := claims{
		LastID: lastID,
		Offset: offset,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	if m.ttl > 0 {
		c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(m.ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
}

// Verify parses a token and returns the cursor it carries. ok is false
// for malformed, tampered, or expired tokens; callers treat that as a
// first-page request.
func (m *Manager) Verify(token string) (lastID string, offset int, ok bool) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return "", 0, false
	}
	return c.LastID, c.Offset, true
}

// Package auth issues and verifies the bearer tokens actors present on
// HTTP, websocket, and event-driven entry points.
package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"service-dispatch-go/internal/apperr"
	"service-dispatch-go/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the authenticated caller attached to a request context.
type Identity struct {
	UserID string
	Role   domain.Role
}

type ctxKey struct{}

// FromContext extracts the authenticated identity from the context.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// WithIdentity returns a context carrying the identity. Exposed for tests
// and the websocket upgrade path.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Service signs and verifies actor tokens.
type Service struct {
	secret []byte
	ttl    time.Duration
}

// NewService returns a token service signing with secret, tokens valid
// for ttl.
func NewService(secret string, ttl time.Duration) *Service {
	return &Service{secret: []byte(secret), ttl: ttl}
}

// Sign mints a token for the given actor.
func (s *Service) Sign(userID string, role domain.Role) (string, error) {
	c := claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}

// Verify parses a raw token into an identity.
func (s *Service) Verify(token string) (Identity, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return Identity{}, apperr.ErrForbidden
	}

	id := Identity{UserID: c.Subject, Role: domain.Role(c.Role)}
	if id.UserID == "" || !id.Role.Valid() {
		return Identity{}, apperr.ErrForbidden
	}
	return id, nil
}

// Middleware rejects requests without a valid bearer token and attaches
// the identity to the request context.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearer(r)
		if raw == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		id, err := s.Verify(raw)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// bearer pulls the token from the Authorization header, falling back to
// the token query parameter for websocket clients.
func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

package identity

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

type ctxKey int

const identityKey ctxKey = 0

// ExtractBearer extracts the token from an Authorization header.
func ExtractBearer(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("missing Authorization header")
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errors.New("invalid Authorization header format, expected 'Bearer <token>'")
	}
	return parts[1], nil
}

// FromContext returns the authenticated identity, or nil when absent.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}

// WithIdentity returns a context carrying the identity. Exposed for tests
// and for the middleware below.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// Middleware verifies the bearer token and injects the identity into the
// request context. Requests without a valid token pass through with no
// identity; handlers that require one decide what to do about absence.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := ExtractBearer(r)
		if err == nil {
			if id, verr := s.Verify(token); verr == nil {
				r = r.WithContext(WithIdentity(r.Context(), id))
			}
		}
		next.ServeHTTP(w, r)
	})
}

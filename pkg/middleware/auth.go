package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/platinummonkey/agora/pkg/auth"
	"github.com/platinummonkey/agora/pkg/contextkeys"
	"github.com/platinummonkey/agora/pkg/httputil"
	"github.com/platinummonkey/agora/pkg/models"
	"github.com/platinummonkey/agora/pkg/observability"
)

// Authenticator resolves a raw bearer token to its user
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// AuthMiddleware provides authentication middleware
type AuthMiddleware struct {
	tokens Authenticator
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokens Authenticator) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handler wraps an HTTP handler with authentication. Requests without
// credentials continue anonymously; the access engine decides whether that is
// enough. Credentials that do not resolve to a user are rejected.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.BearerToken(r)
		if !ok {
			if r.Header.Get("Authorization") != "" {
				httputil.WriteUnauthorized(w, "invalid authorization header format")
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.tokens.Authenticate(r.Context(), token)
		if errors.Is(err, auth.ErrInvalidToken) {
			httputil.WriteUnauthorized(w, "invalid or expired token")
			return
		}
		if err != nil {
			observability.FromContext(r.Context()).WithError(err).Error("token lookup failed")
			httputil.WriteInternalError(w)
			return
		}

		ctx := contextkeys.WithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

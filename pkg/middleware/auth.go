// Package middleware provides HTTP middleware for bearer-token
// authentication and role gating.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/tapecert/tapecert/pkg/auth"
	"github.com/tapecert/tapecert/pkg/contextkeys"
	"github.com/tapecert/tapecert/pkg/httputil"
	"github.com/tapecert/tapecert/pkg/store"
)

// AuthMiddleware resolves the Authorization header into an *auth.Identity
// on the request context. A verified token whose subject no longer exists
// is rejected the same way as a bad token.
type AuthMiddleware struct {
	tokens   *auth.TokenIssuer
	users    store.UserStore
	optional bool // if true, requests without a header pass through anonymous
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokens *auth.TokenIssuer, users store.UserStore, optional bool) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users, optional: optional}
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			httputil.WriteUnauthorized(w, "missing authorization header")
			return
		}

		// Format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			httputil.WriteUnauthorized(w, "invalid authorization header format")
			return
		}

		ident, err := m.resolve(r.Context(), parts[1])
		if err != nil {
			httputil.WriteUnauthorized(w, "invalid or expired token")
			return
		}

		ctx := contextkeys.WithIdentity(r.Context(), ident)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) resolve(ctx context.Context, token string) (*auth.Identity, error) {
	username, err := m.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	cred, err := m.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return &cred.Identity, nil
}

// RequireRoles gates a route to the given roles. It assumes an
// AuthMiddleware earlier in the chain has populated the identity.
func RequireRoles(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident := contextkeys.IdentityFrom(r.Context())
			if ident == nil {
				httputil.WriteUnauthorized(w, "authentication required")
				return
			}
			for _, role := range roles {
				if ident.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			httputil.WriteForbidden(w, "insufficient role")
		})
	}
}

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/senecabooks/bookstore-services/internal/clients"
	"github.com/senecabooks/bookstore-services/internal/httpx"
)

type contextKey struct{ name string }

var identityKey = &contextKey{"identity"}

// IdentityResolver turns a bearer token into a user identity. In production
// this is *clients.UserClient; tests substitute their own.
type IdentityResolver interface {
	Me(ctx context.Context, token string) (*clients.Identity, error)
}

// Authenticator resolves the Authorization header through the user service
// and stores the identity in the request context. The resolved identity is
// trusted as-is; no local re-validation happens here.
func Authenticator(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				w.Header().Set("WWW-Authenticate", "Bearer")
				httpx.RespondError(w, http.StatusUnauthorized, "Not authenticated")
				return
			}

			identity, err := resolver.Me(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, clients.ErrUnauthenticated):
					w.Header().Set("WWW-Authenticate", "Bearer")
					httpx.RespondError(w, http.StatusUnauthorized, "Invalid authentication credentials")
				default:
					httpx.RespondError(w, http.StatusServiceUnavailable, "User service unavailable")
				}
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin gates a route on the is_admin flag of the resolved identity.
// It must run after Authenticator.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFrom(r.Context())
		if !ok {
			httpx.RespondError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		if !identity.IsAdmin {
			httpx.RespondError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IdentityFrom returns the identity stored by Authenticator.
func IdentityFrom(ctx context.Context) (*clients.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(*clients.Identity)
	return identity, ok
}

// WithIdentity injects an identity into a context. Handler tests use it to
// bypass the middleware.
func WithIdentity(ctx context.Context, identity *clients.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

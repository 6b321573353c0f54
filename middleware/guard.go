package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	shipauth "github.com/harborline/shipauth"
)

type authContextKey struct{}

// AuthFromContext returns the identity injected by [Guard] or [RequireRole].
func AuthFromContext(ctx context.Context) (*shipauth.AuthContext, bool) {
	auth, ok := ctx.Value(authContextKey{}).(*shipauth.AuthContext)
	return auth, ok
}

// Guard returns middleware that authenticates the bearer token and injects
// the caller identity into the request context. Every failure mode is a
// plain 401.
func Guard(engine *shipauth.Engine) func(http.Handler) http.Handler {
	return guard(engine)
}

// RequireRole returns middleware that authenticates the bearer token and
// additionally requires the caller's role to be in allowed. A valid token
// with the wrong role is a 403, not a 401.
func RequireRole(engine *shipauth.Engine, allowed ...shipauth.Role) func(http.Handler) http.Handler {
	return guard(engine, allowed...)
}

func guard(engine *shipauth.Engine, allowed ...shipauth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := shipauth.WithClientIP(r.Context(), clientIP(r))
			ctx = shipauth.WithUserAgent(ctx, r.UserAgent())

			auth, err := engine.Authorize(ctx, token, allowed...)
			if err != nil {
				if errors.Is(err, shipauth.ErrForbidden) {
					http.Error(w, "forbidden", http.StatusForbidden)
					return
				}
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx = context.WithValue(ctx, authContextKey{}, auth)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

func clientIP(r *http.Request) string {
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return strings.Trim(host, "[]")
}

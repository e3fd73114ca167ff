// Package middleware gates HTTP routes behind access tokens and the authorization policy
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/fybs47/Library/internal/auth/policy"
	"github.com/fybs47/Library/internal/auth/service"
)

type contextKey string

const claimsKey contextKey = "claims"

// AuthMiddleware validates the JWT access token of every request whose path
// is not public and stores its claims in the request context.
//
// A public path matches itself and everything below it ("/images" matches "/images/a.png",
// but not "/imagesx").
func AuthMiddleware(tokenGenerator *service.TokenGenerator, publicPaths ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path, publicPaths) {
				next.ServeHTTP(w, r)
				return
			}

			token := extractToken(r)

			// If no token found, return 401
			if token == "" {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			// Any validation failure is terminal; clients use the refresh flow
			claims, err := tokenGenerator.ValidateAccessToken(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequirePermission rejects requests whose role lacks the permission.
// It must run after AuthMiddleware.
func RequirePermission(table policy.Table, perm policy.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetClaims(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			if !table.Allowed(claims.Role, perm) {
				writeError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetClaims retrieves the access token claims from context
func GetClaims(ctx context.Context) (*service.AccessClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(*service.AccessClaims)
	return claims, ok
}

// WithClaims returns a copy of ctx carrying the claims
func WithClaims(ctx context.Context, claims *service.AccessClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// extractToken reads the token from the Authorization header, then from the access_token cookie
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		// Expected format: "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
	}

	cookie, err := r.Cookie("access_token")
	if err == nil {
		return cookie.Value
	}

	return ""
}

func isPublicPath(path string, publicPaths []string) bool {
	for _, p := range publicPaths {
		p = strings.TrimSuffix(p, "/")
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + message + `"}`))
}

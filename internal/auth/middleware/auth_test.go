package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fybs47/Library/internal/auth/policy"
	"github.com/fybs47/Library/internal/auth/service"
	"github.com/fybs47/Library/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGenerator(accessExpiry time.Duration) *service.TokenGenerator {
	return service.NewTokenGenerator(service.JWTOptions{
		Secret:             "b8a3c2267dc85f855dea9b46b452bf20",
		Issuer:             "library-api",
		Audience:           "library-clients",
		AccessTokenExpiry:  accessExpiry,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
	})
}

func TestAuthMiddleware(t *testing.T) {
	tg := newTestGenerator(time.Hour)
	validToken, err := tg.GenerateAccessToken("user-1", "alice", models.RoleUser)
	require.NoError(t, err)
	expiredToken, err := newTestGenerator(-time.Minute).GenerateAccessToken("user-1", "alice", models.RoleUser)
	require.NoError(t, err)

	tests := []struct {
		name           string
		path           string
		authHeader     string
		cookie         string
		expectedStatus int
		expectClaims   bool
	}{
		{name: "register is public", path: "/api/auth/register", expectedStatus: http.StatusOK},
		{name: "login is public", path: "/api/auth/login", expectedStatus: http.StatusOK},
		{name: "refresh is public", path: "/api/auth/refresh", expectedStatus: http.StatusOK},
		{name: "images are public", path: "/images/cover.png", expectedStatus: http.StatusOK},
		{name: "prefix is segment aware", path: "/api/auth/registerx", expectedStatus: http.StatusUnauthorized},
		{name: "missing token", path: "/api/books", expectedStatus: http.StatusUnauthorized},
		{name: "bearer token", path: "/api/books", authHeader: "Bearer " + validToken, expectedStatus: http.StatusOK, expectClaims: true},
		{name: "lowercase bearer", path: "/api/books", authHeader: "bearer " + validToken, expectedStatus: http.StatusOK, expectClaims: true},
		{name: "cookie token", path: "/api/books", cookie: validToken, expectedStatus: http.StatusOK, expectClaims: true},
		{name: "malformed header falls back to cookie", path: "/api/books", authHeader: "Token " + validToken, cookie: validToken, expectedStatus: http.StatusOK, expectClaims: true},
		{name: "tampered token", path: "/api/books", authHeader: "Bearer " + validToken + "x", expectedStatus: http.StatusUnauthorized},
		{name: "expired token", path: "/api/books", authHeader: "Bearer " + expiredToken, expectedStatus: http.StatusUnauthorized},
		{name: "expired token on public path", path: "/api/auth/login", authHeader: "Bearer " + expiredToken, expectedStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotClaims *service.AccessClaims
			handler := AuthMiddleware(tg, "/api/auth/register", "/api/auth/login", "/api/auth/refresh", "/images/")(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					gotClaims, _ = GetClaims(r.Context())
					w.WriteHeader(http.StatusOK)
				}),
			)

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "access_token", Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusUnauthorized {
				assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
				assert.Contains(t, w.Body.String(), `"error"`)
			}
			if tt.expectClaims {
				require.NotNil(t, gotClaims)
				assert.Equal(t, "user-1", gotClaims.UserID)
				assert.Equal(t, "alice", gotClaims.Subject)
				assert.Equal(t, models.RoleUser, gotClaims.Role)
			} else {
				assert.Nil(t, gotClaims)
			}
		})
	}
}

func TestRequirePermission(t *testing.T) {
	table := policy.DefaultTable()

	tests := []struct {
		name           string
		claims         *service.AccessClaims
		perm           policy.Permission
		expectedStatus int
	}{
		{name: "no claims", claims: nil, perm: policy.BooksRead, expectedStatus: http.StatusUnauthorized},
		{name: "user reads", claims: &service.AccessClaims{UserID: "u1", Role: models.RoleUser}, perm: policy.BooksRead, expectedStatus: http.StatusOK},
		{name: "user cannot write", claims: &service.AccessClaims{UserID: "u1", Role: models.RoleUser}, perm: policy.BooksWrite, expectedStatus: http.StatusForbidden},
		{name: "admin writes", claims: &service.AccessClaims{UserID: "u2", Role: models.RoleAdmin}, perm: policy.BooksWrite, expectedStatus: http.StatusOK},
		{name: "unknown role", claims: &service.AccessClaims{UserID: "u3", Role: "guest"}, perm: policy.BooksRead, expectedStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequirePermission(table, tt.perm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/books", nil)
			if tt.claims != nil {
				req = req.WithContext(WithClaims(req.Context(), tt.claims))
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/fybs47/Library/internal/apperrors"
	"github.com/fybs47/Library/internal/auth/middleware"
	"github.com/fybs47/Library/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
)

// AuthService is the interface that wraps methods for authentication business logic.
type AuthService interface {
	// Method Register validates the credentials and creates a user with the "user" role.
	//
	// "req" parameter contains username, email and password.
	//
	// If credentials are invalid a BadRequest error is returned; if username or email is taken, a Conflict error.
	Register(ctx context.Context, req *models.RegisterRequest) error
	// Method Login authenticates a user and issues a new token pair.
	//
	// "req" parameter contains username and password.
	//
	// If credentials are wrong, an Unauthorized error will be returned together with "nil" value.
	Login(ctx context.Context, req *models.LoginRequest) (*models.TokenResponse, error)
	// Method Refresh exchanges a refresh token for a new access token and a rotated refresh token.
	//
	// "refreshToken" parameter is the token previously issued to the client.
	//
	// If the token is missing, unknown, expired or already rotated, an Unauthorized error will be returned together with "nil" value.
	Refresh(ctx context.Context, refreshToken string) (*models.TokenResponse, error)
	// Method Logout revokes the refresh token of a user.
	Logout(ctx context.Context, userID string) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	BaseHandler
	authService   AuthService
	refreshExpiry time.Duration
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService AuthService, refreshExpiry time.Duration, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler:   BaseHandler{Logger: logger},
		authService:   authService,
		refreshExpiry: refreshExpiry,
	}
}

// RegisterRoutes registers all auth handler routes
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
		r.Post("/logout", h.Logout)
	})
}

// Register handles POST /api/auth/register.
// The new user is logged in right away.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	if err := h.authService.Register(r.Context(), &req); err != nil {
		h.Logger.Info("registration rejected", zap.Error(err))
		h.RespondServiceError(w, r, err)
		return
	}

	tokens, err := h.authService.Login(r.Context(), &models.LoginRequest{Username: req.Username, Password: req.Password})
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.setTokenCookies(w, tokens)
	h.RespondJSON(w, http.StatusOK, tokens)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	tokens, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		h.Logger.Info("login rejected", zap.Error(err))
		h.RespondServiceError(w, r, err)
		return
	}

	h.setTokenCookies(w, tokens)
	h.RespondJSON(w, http.StatusOK, tokens)
}

// Refresh handles POST /api/auth/refresh.
// The refresh token is read from the refresh_token cookie only.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshTokenCookie)
	if err != nil || cookie.Value == "" {
		h.RespondError(w, http.StatusUnauthorized, "refresh token is required")
		return
	}

	tokens, err := h.authService.Refresh(r.Context(), cookie.Value)
	if err != nil {
		h.Logger.Info("refresh rejected", zap.Error(err))
		h.RespondServiceError(w, r, err)
		return
	}

	h.setTokenCookies(w, tokens)
	h.RespondJSON(w, http.StatusOK, tokens)
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		h.RespondServiceError(w, r, apperrors.New(apperrors.ErrUnauthorized, "authentication required"))
		return
	}

	if err := h.authService.Logout(r.Context(), claims.UserID); err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.clearTokenCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

// setTokenCookies sets access and refresh tokens as HTTP-only cookies.
// The access token cookie lives for the browser session.
func (h *AuthHandler) setTokenCookies(w http.ResponseWriter, tokens *models.TokenResponse) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    tokens.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    tokens.RefreshToken,
		Path:     "/",
		Expires:  time.Now().UTC().Add(h.refreshExpiry),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

func (h *AuthHandler) clearTokenCookies(w http.ResponseWriter) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteNoneMode,
		})
	}
}

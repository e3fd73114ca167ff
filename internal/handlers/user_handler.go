package handlers

import (
	"context"
	"net/http"

	"github.com/fybs47/Library/internal/apperrors"
	"github.com/fybs47/Library/internal/auth/middleware"
	"github.com/fybs47/Library/internal/auth/policy"
	"github.com/fybs47/Library/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// UserService is the interface that wraps methods for user administration.
type UserService interface {
	// Method GetAll retrieves all users without their credentials.
	GetAll(ctx context.Context) ([]models.UserResponse, error)
	// Method UpdateRole changes the role of a user.
	//
	// "actorID" parameter is the ID of the admin performing the change; admins can't change their own role.
	//
	// If the role is unknown, a BadRequest error will be returned together with "nil" value.
	UpdateRole(ctx context.Context, actorID, userID string, role models.Role) (*models.UserResponse, error)
	// Method Delete removes a user.
	//
	// "actorID" parameter is the ID of the admin performing the deletion; admins can't delete themselves.
	Delete(ctx context.Context, actorID, userID string) error
}

// UserHandler handles user administration HTTP requests
type UserHandler struct {
	BaseHandler
	userService UserService
	policy      policy.Table
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService UserService, table policy.Table, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		BaseHandler: BaseHandler{Logger: logger},
		userService: userService,
		policy:      table,
	}
}

// RegisterRoutes registers all user handler routes
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/users", func(r chi.Router) {
		r.Use(middleware.RequirePermission(h.policy, policy.UsersManage))
		r.Get("/", h.GetAll)
		r.Patch("/{id}/role", h.UpdateRole)
		r.Delete("/{id}", h.Delete)
	})
}

// GetAll handles GET /api/users
func (h *UserHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.GetAll(r.Context())
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, users)
}

// UpdateRole handles PATCH /api/users/{id}/role
func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actorID(w, r)
	if !ok {
		return
	}

	var req models.UpdateRoleRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	user, err := h.userService.UpdateRole(r.Context(), actorID, chi.URLParam(r, "id"), req.Role)
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, user)
}

// Delete handles DELETE /api/users/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actorID(w, r)
	if !ok {
		return
	}

	if err := h.userService.Delete(r.Context(), actorID, chi.URLParam(r, "id")); err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) actorID(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		h.RespondServiceError(w, r, apperrors.New(apperrors.ErrUnauthorized, "authentication required"))
		return "", false
	}
	return claims.UserID, true
}

package handlers

import (
	"context"
	"net/http"

	"github.com/fybs47/Library/internal/auth/middleware"
	"github.com/fybs47/Library/internal/auth/policy"
	"github.com/fybs47/Library/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AuthorService is the interface that wraps methods for author business logic.
type AuthorService interface {
	// Method GetAll retrieves all authors.
	GetAll(ctx context.Context) ([]models.Author, error)
	// Method GetByID retrieves an author by ID.
	//
	// If author does not exist, a NotFound error will be returned together with "nil" value.
	GetByID(ctx context.Context, id string) (*models.Author, error)
	// Method Create validates and adds an author.
	Create(ctx context.Context, req *models.CreateAuthorRequest) (*models.Author, error)
	// Method Update validates and replaces all fields of an author.
	Update(ctx context.Context, id string, req *models.UpdateAuthorRequest) (*models.Author, error)
	// Method Delete removes an author.
	//
	// If the author still has books, a Conflict error will be returned.
	Delete(ctx context.Context, id string) error
	// Method GetBooksByAuthor retrieves the books of an author.
	//
	// If author does not exist, a NotFound error will be returned together with "nil" value.
	GetBooksByAuthor(ctx context.Context, id string) ([]models.Book, error)
}

// AuthorHandler handles author-related HTTP requests
type AuthorHandler struct {
	BaseHandler
	authorService AuthorService
	policy        policy.Table
}

// NewAuthorHandler creates a new author handler
func NewAuthorHandler(authorService AuthorService, table policy.Table, logger *zap.Logger) *AuthorHandler {
	return &AuthorHandler{
		BaseHandler:   BaseHandler{Logger: logger},
		authorService: authorService,
		policy:        table,
	}
}

// RegisterRoutes registers all author handler routes
func (h *AuthorHandler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(h.policy, policy.AuthorsRead)

	r.Route("/api/authors", func(r chi.Router) {
		r.With(read).Get("/", h.GetAll)
		r.With(read).Get("/{id}", h.GetByID)
		r.With(read, middleware.RequirePermission(h.policy, policy.BooksRead)).Get("/{id}/books", h.GetBooks)
		r.With(middleware.RequirePermission(h.policy, policy.AuthorsWrite)).Post("/", h.Create)
		r.With(middleware.RequirePermission(h.policy, policy.AuthorsUpdate)).Put("/{id}", h.Update)
		r.With(middleware.RequirePermission(h.policy, policy.AuthorsDelete)).Delete("/{id}", h.Delete)
	})
}

// GetAll handles GET /api/authors
func (h *AuthorHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	authors, err := h.authorService.GetAll(r.Context())
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, authors)
}

// GetByID handles GET /api/authors/{id}
func (h *AuthorHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	author, err := h.authorService.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, author)
}

// GetBooks handles GET /api/authors/{id}/books
func (h *AuthorHandler) GetBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.authorService.GetBooksByAuthor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, books)
}

// Create handles POST /api/authors
func (h *AuthorHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAuthorRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	author, err := h.authorService.Create(r.Context(), &req)
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusCreated, author)
}

// Update handles PUT /api/authors/{id}
func (h *AuthorHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateAuthorRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	author, err := h.authorService.Update(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, author)
}

// Delete handles DELETE /api/authors/{id}
func (h *AuthorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.authorService.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

package handlers

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/fybs47/Library/internal/apperrors"
	"github.com/fybs47/Library/internal/auth/middleware"
	"github.com/fybs47/Library/internal/auth/policy"
	"github.com/fybs47/Library/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	defaultPage  = 1
	defaultCount = 10
	// multipart parts above this size are spooled to disk
	multipartMemory = 1 << 20
)

// BookService is the interface that wraps methods for book catalog business logic.
type BookService interface {
	// Method GetPage retrieves one page of books.
	//
	// "page" parameter is 1-based; "count" parameter is the page size (1..100).
	//
	// If the paging parameters are out of range, a BadRequest error will be returned together with "nil" value.
	GetPage(ctx context.Context, page, count int) (*models.BookPage, error)
	// Method GetByID retrieves a book by ID.
	//
	// If book does not exist, a NotFound error will be returned together with "nil" value.
	GetByID(ctx context.Context, id string) (*models.Book, error)
	// Method GetByISBN retrieves a book by ISBN.
	//
	// If book does not exist, a NotFound error will be returned together with "nil" value.
	GetByISBN(ctx context.Context, isbn string) (*models.Book, error)
	// Method Create validates and adds a book.
	//
	// If fields are invalid or the author does not exist, a BadRequest error will be returned together with "nil" value.
	Create(ctx context.Context, req *models.CreateBookRequest) (*models.Book, error)
	// Method Update validates and replaces the catalog fields of a book.
	Update(ctx context.Context, id string, req *models.UpdateBookRequest) (*models.Book, error)
	// Method Delete removes a book together with its cover.
	Delete(ctx context.Context, id string) error
	// Method Borrow lends an available book until "dueDate".
	//
	// If the book is already borrowed, a Conflict error will be returned together with "nil" value.
	Borrow(ctx context.Context, id string, dueDate time.Time) (*models.Book, error)
	// Method Return makes a borrowed book available.
	//
	// If the book is not borrowed, a Conflict error will be returned together with "nil" value.
	Return(ctx context.Context, id string) (*models.Book, error)
	// Method UploadCover stores a new cover image for a book.
	//
	// "reader" parameter is the image content.
	// "filename" parameter is the client file name.
	// "contentType" parameter is the declared content type of the image.
	//
	// If the image type is not supported or the file is empty or too large, a BadRequest error will be returned together with "nil" value.
	UploadCover(ctx context.Context, id string, reader io.Reader, filename, contentType string) (*models.Book, error)
}

// BookHandler handles book-related HTTP requests
type BookHandler struct {
	BaseHandler
	bookService BookService
	policy      policy.Table
}

// NewBookHandler creates a new book handler
func NewBookHandler(bookService BookService, table policy.Table, logger *zap.Logger) *BookHandler {
	return &BookHandler{
		BaseHandler: BaseHandler{Logger: logger},
		bookService: bookService,
		policy:      table,
	}
}

// RegisterRoutes registers all book handler routes
func (h *BookHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/books", func(r chi.Router) {
		r.With(h.require(policy.BooksRead)).Get("/", h.GetPage)
		r.With(h.require(policy.BooksRead)).Get("/isbn/{isbn}", h.GetByISBN)
		r.With(h.require(policy.BooksRead)).Get("/{id}", h.GetByID)
		r.With(h.require(policy.BooksWrite)).Post("/", h.Create)
		r.With(h.require(policy.BooksUpdate)).Put("/{id}", h.Update)
		r.With(h.require(policy.BooksDelete)).Delete("/{id}", h.Delete)
		r.With(h.require(policy.BooksBorrow)).Post("/{id}/borrow", h.Borrow)
		r.With(h.require(policy.BooksBorrow)).Post("/{id}/return", h.Return)
		r.With(h.require(policy.BooksUpdate)).Post("/{id}/image", h.UploadCover)
	})
}

func (h *BookHandler) require(perm policy.Permission) func(http.Handler) http.Handler {
	return middleware.RequirePermission(h.policy, perm)
}

// GetPage handles GET /api/books?page=&count=
func (h *BookHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", defaultPage)
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}
	count, err := queryInt(r, "count", defaultCount)
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	result, err := h.bookService.GetPage(r.Context(), page, count)
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, result)
}

// GetByID handles GET /api/books/{id}
func (h *BookHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	book, err := h.bookService.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, book)
}

// GetByISBN handles GET /api/books/isbn/{isbn}
func (h *BookHandler) GetByISBN(w http.ResponseWriter, r *http.Request) {
	book, err := h.bookService.GetByISBN(r.Context(), chi.URLParam(r, "isbn"))
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, book)
}

// Create handles POST /api/books
func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateBookRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	book, err := h.bookService.Create(r.Context(), &req)
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusCreated, book)
}

// Update handles PUT /api/books/{id}
func (h *BookHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateBookRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	book, err := h.bookService.Update(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, book)
}

// Delete handles DELETE /api/books/{id}
func (h *BookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.bookService.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Borrow handles POST /api/books/{id}/borrow
func (h *BookHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	var req models.BorrowBookRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	book, err := h.bookService.Borrow(r.Context(), chi.URLParam(r, "id"), req.DueDate)
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, book)
}

// Return handles POST /api/books/{id}/return
func (h *BookHandler) Return(w http.ResponseWriter, r *http.Request) {
	book, err := h.bookService.Return(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, book)
}

// UploadCover handles POST /api/books/{id}/image with a multipart "file" field
func (h *BookHandler) UploadCover(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		h.Logger.Info("failed to parse multipart form", zap.Error(err))
		h.RespondError(w, http.StatusBadRequest, "failed to parse request")
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	book, err := h.bookService.UploadCover(
		r.Context(),
		chi.URLParam(r, "id"),
		file,
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
	)
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, book)
}

// queryInt parses an optional integer query parameter
func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.Newf(apperrors.ErrBadRequest, "%s must be an integer", key)
	}
	return value, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fybs47/Library/internal/apperrors"
	"github.com/fybs47/Library/internal/models"
	"github.com/fybs47/Library/internal/storage"
	"go.uber.org/zap"
)

const (
	maxPageSize = 100

	minISBNLength  = 10
	maxISBNLength  = 13
	maxTitleLength = 200
	maxGenreLength = 100
)

// BookRepository is the interface that wraps methods for Book table data access
type BookRepository interface {
	// Method GetPage retrieves one page of books and the total number of books.
	//
	// "page" parameter is the 1-based page number.
	// "count" parameter is the page size.
	//
	// If some error occurs during data retrieval, the error will be returned together with "nil" value.
	GetPage(ctx context.Context, page, count int) ([]models.Book, int, error)
	// Method GetByID retrieves a book by ID.
	//
	// If book with such ID does not exist, a NotFound error will be returned together with "nil" value.
	GetByID(ctx context.Context, id string) (*models.Book, error)
	// Method GetByISBN retrieves a book by ISBN.
	//
	// If book with such ISBN does not exist, a NotFound error will be returned together with "nil" value.
	GetByISBN(ctx context.Context, isbn string) (*models.Book, error)
	// Method Create inserts a new book. Its ID is filled in.
	//
	// If the ISBN is already taken, a Conflict error will be returned.
	Create(ctx context.Context, book *models.Book) error
	// Method Update replaces the catalog fields of a book.
	//
	// If book with such ID does not exist, a NotFound error will be returned.
	Update(ctx context.Context, book *models.Book) error
	// Method Delete deletes a book.
	//
	// If book with such ID does not exist, a NotFound error will be returned.
	Delete(ctx context.Context, id string) error
	// Method Borrow marks an available book as borrowed.
	//
	// "borrowedAt" parameter is the UTC time of borrowing.
	// "dueDate" parameter is the UTC time the book must be returned by.
	//
	// If the book is already borrowed, a Conflict error will be returned.
	Borrow(ctx context.Context, id string, borrowedAt, dueDate time.Time) error
	// Method Return marks a borrowed book as available.
	//
	// If the book is not borrowed, a Conflict error will be returned.
	Return(ctx context.Context, id string) error
	// Method SetImagePath stores the cover file name of a book.
	//
	// If book with such ID does not exist, a NotFound error will be returned.
	SetImagePath(ctx context.Context, id, imagePath string) error
}

// AuthorChecker is the interface that wraps author existence checks
type AuthorChecker interface {
	// Method Exists checks if an author with such ID exists.
	//
	// If some error occurs during check, the error will be returned together with "false" value.
	Exists(ctx context.Context, id string) (bool, error)
}

// BookCache is the interface that wraps the book read cache.
// Implementations never fail; errors are treated as misses.
type BookCache interface {
	Get(ctx context.Context, id string) (*models.Book, bool)
	Set(ctx context.Context, book *models.Book)
	Invalidate(ctx context.Context, id string)
}

// CoverStorage is the interface that wraps cover image file storage
type CoverStorage interface {
	// Method Create creates a new file and returns a writer for it.
	Create(name string) (io.WriteCloser, error)
	// Method Delete removes a file.
	Delete(name string) error
}

// bookService implements the catalog operations on books
type bookService struct {
	repo          BookRepository
	authors       AuthorChecker
	cache         BookCache
	covers        CoverStorage
	logger        *zap.Logger
	mediaBaseURL  string
	maxUploadSize int64
	now           func() time.Time
}

// NewBookService creates a new book service
func NewBookService(
	repo BookRepository,
	authors AuthorChecker,
	cache BookCache,
	covers CoverStorage,
	logger *zap.Logger,
	mediaBaseURL string,
	maxUploadSize int64,
) *bookService {
	return &bookService{
		repo:          repo,
		authors:       authors,
		cache:         cache,
		covers:        covers,
		logger:        logger,
		mediaBaseURL:  mediaBaseURL,
		maxUploadSize: maxUploadSize,
		now:           time.Now,
	}
}

// GetPage returns one page of the catalog
func (s *bookService) GetPage(ctx context.Context, page, count int) (*models.BookPage, error) {
	if page < 1 {
		return nil, apperrors.New(apperrors.ErrBadRequest, "page must be positive")
	}
	if count < 1 || count > maxPageSize {
		return nil, apperrors.Newf(apperrors.ErrBadRequest, "count must be between 1 and %d", maxPageSize)
	}
	// the row offset (page-1)*count must fit in an int
	if page > math.MaxInt/count {
		return nil, apperrors.New(apperrors.ErrBadRequest, "page is too large")
	}

	books, total, err := s.repo.GetPage(ctx, page, count)
	if err != nil {
		return nil, err
	}

	return &models.BookPage{
		Books:      presentBooks(s.mediaBaseURL, books),
		TotalCount: total,
		Page:       page,
		Count:      count,
	}, nil
}

// GetByID returns a book, served from the cache when possible
func (s *bookService) GetByID(ctx context.Context, id string) (*models.Book, error) {
	book, err := s.getStored(ctx, id)
	if err != nil {
		return nil, err
	}
	return presentBook(s.mediaBaseURL, book), nil
}

// GetByISBN returns a book by ISBN
func (s *bookService) GetByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	isbn = strings.TrimSpace(isbn)
	if isbn == "" {
		return nil, apperrors.New(apperrors.ErrBadRequest, "ISBN is required")
	}

	book, err := s.repo.GetByISBN(ctx, isbn)
	if err != nil {
		return nil, err
	}
	return presentBook(s.mediaBaseURL, book), nil
}

// Create adds a book to the catalog. The author must exist.
func (s *bookService) Create(ctx context.Context, req *models.CreateBookRequest) (*models.Book, error) {
	book := &models.Book{
		ISBN:        strings.TrimSpace(req.ISBN),
		Title:       strings.TrimSpace(req.Title),
		Genre:       strings.TrimSpace(req.Genre),
		Description: strings.TrimSpace(req.Description),
		AuthorID:    strings.TrimSpace(req.AuthorID),
	}
	if err := s.validate(ctx, book); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, book); err != nil {
		return nil, err
	}

	s.logger.Info("book created", zap.String("bookId", book.ID), zap.String("isbn", book.ISBN))
	return presentBook(s.mediaBaseURL, book), nil
}

// Update replaces the catalog fields of a book
func (s *bookService) Update(ctx context.Context, id string, req *models.UpdateBookRequest) (*models.Book, error) {
	book := &models.Book{
		ID:          id,
		ISBN:        strings.TrimSpace(req.ISBN),
		Title:       strings.TrimSpace(req.Title),
		Genre:       strings.TrimSpace(req.Genre),
		Description: strings.TrimSpace(req.Description),
		AuthorID:    strings.TrimSpace(req.AuthorID),
	}
	if err := s.validate(ctx, book); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, book); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, id)

	return s.GetByID(ctx, id)
}

// Delete removes a book and its cover image
func (s *bookService) Delete(ctx context.Context, id string) error {
	book, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, id)
	s.removeCover(book.ImagePath)

	return nil
}

// Borrow lends an available book until dueDate, which must lie in the future
func (s *bookService) Borrow(ctx context.Context, id string, dueDate time.Time) (*models.Book, error) {
	now := s.now().UTC()
	if !dueDate.After(now) {
		return nil, apperrors.New(apperrors.ErrBadRequest, "due date must be in the future")
	}

	if err := s.repo.Borrow(ctx, id, now, dueDate.UTC()); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, id)

	return s.GetByID(ctx, id)
}

// Return makes a borrowed book available again
func (s *bookService) Return(ctx context.Context, id string) (*models.Book, error) {
	if err := s.repo.Return(ctx, id); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, id)

	return s.GetByID(ctx, id)
}

// UploadCover stores a new cover image for the book and removes the previous one.
//
// "filename" parameter is the client file name; it is only used to infer the content type when none is given.
func (s *bookService) UploadCover(ctx context.Context, id string, reader io.Reader, filename, contentType string) (*models.Book, error) {
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	}
	mediaType, _, _ := mime.ParseMediaType(contentType)
	ext, ok := storage.ImageExtension(mediaType)
	if !ok {
		return nil, apperrors.New(apperrors.ErrBadRequest, "unsupported image type")
	}

	book, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name := storage.GenerateFileName(ext)
	if err := s.writeCover(name, reader); err != nil {
		return nil, err
	}

	if err := s.repo.SetImagePath(ctx, id, name); err != nil {
		s.removeCover(name)
		return nil, err
	}
	s.cache.Invalidate(ctx, id)
	s.removeCover(book.ImagePath)

	book.ImagePath = name
	s.logger.Info("book cover uploaded", zap.String("bookId", id), zap.String("file", name))
	return presentBook(s.mediaBaseURL, book), nil
}

// writeCover copies the image into storage, enforcing the upload size limit.
// Nothing is left behind on failure.
func (s *bookService) writeCover(name string, reader io.Reader) error {
	sizeWriter := storage.NewSizeWriter()
	limited := io.LimitReader(reader, s.maxUploadSize+1)
	teeReader := io.TeeReader(limited, sizeWriter)

	writeCloser, err := s.covers.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	_, copyErr := io.Copy(writeCloser, teeReader)
	closeErr := writeCloser.Close()

	switch {
	case copyErr != nil:
		err = fmt.Errorf("failed to write file: %w", copyErr)
	case closeErr != nil:
		err = fmt.Errorf("failed to write file: %w", closeErr)
	case sizeWriter.Size() == 0:
		err = apperrors.New(apperrors.ErrBadRequest, "file is empty")
	case sizeWriter.Size() > s.maxUploadSize:
		err = apperrors.Newf(apperrors.ErrBadRequest, "file can't be larger than %d bytes", s.maxUploadSize)
	}

	if err != nil {
		s.removeCover(name)
		return err
	}
	return nil
}

func (s *bookService) removeCover(name string) {
	if name == "" {
		return
	}
	if err := s.covers.Delete(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("failed to delete cover image", zap.String("file", name), zap.Error(err))
	}
}

// getStored returns the stored book, consulting the cache first
func (s *bookService) getStored(ctx context.Context, id string) (*models.Book, error) {
	if book, ok := s.cache.Get(ctx, id); ok {
		return book, nil
	}

	book, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, book)

	return book, nil
}

// validate checks the catalog fields of a book and that its author exists
func (s *bookService) validate(ctx context.Context, book *models.Book) error {
	isbnLength := len([]rune(book.ISBN))
	switch {
	case book.ISBN == "":
		return apperrors.New(apperrors.ErrBadRequest, "ISBN is required")
	case isbnLength < minISBNLength || isbnLength > maxISBNLength:
		return apperrors.Newf(apperrors.ErrBadRequest, "ISBN must be between %d and %d characters", minISBNLength, maxISBNLength)
	case book.Title == "":
		return apperrors.New(apperrors.ErrBadRequest, "title is required")
	case len([]rune(book.Title)) > maxTitleLength:
		return apperrors.Newf(apperrors.ErrBadRequest, "title can't be longer than %d characters", maxTitleLength)
	case book.Genre == "":
		return apperrors.New(apperrors.ErrBadRequest, "genre is required")
	case len([]rune(book.Genre)) > maxGenreLength:
		return apperrors.Newf(apperrors.ErrBadRequest, "genre can't be longer than %d characters", maxGenreLength)
	case book.Description == "":
		return apperrors.New(apperrors.ErrBadRequest, "description is required")
	case book.AuthorID == "":
		return apperrors.New(apperrors.ErrBadRequest, "author id is required")
	}

	exists, err := s.authors.Exists(ctx, book.AuthorID)
	if err != nil {
		return err
	}
	if !exists {
		return apperrors.New(apperrors.ErrBadRequest, "author does not exist")
	}

	return nil
}

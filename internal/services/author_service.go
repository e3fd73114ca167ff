package services

import (
	"context"
	"strings"
	"time"

	"github.com/fybs47/Library/internal/apperrors"
	"github.com/fybs47/Library/internal/models"
	"go.uber.org/zap"
)

const maxAuthorFieldLength = 100

// AuthorRepository is the interface that wraps methods for Author table data access
type AuthorRepository interface {
	// Method GetAll retrieves all authors.
	//
	// If some error occurs during data retrieval, the error will be returned together with "nil" value.
	GetAll(ctx context.Context) ([]models.Author, error)
	// Method GetByID retrieves an author by ID.
	//
	// If author with such ID does not exist, a NotFound error will be returned together with "nil" value.
	GetByID(ctx context.Context, id string) (*models.Author, error)
	// Method Create inserts a new author. Its ID is filled in.
	Create(ctx context.Context, author *models.Author) error
	// Method Update replaces all fields of an author.
	//
	// If author with such ID does not exist, a NotFound error will be returned.
	Update(ctx context.Context, author *models.Author) error
	// Method Delete deletes an author.
	//
	// If the author still has books, a Conflict error will be returned.
	Delete(ctx context.Context, id string) error
}

// AuthorBooksRepository is the interface that wraps the lookup of books by author
type AuthorBooksRepository interface {
	GetByAuthor(ctx context.Context, authorID string) ([]models.Book, error)
}

type authorService struct {
	repo         AuthorRepository
	books        AuthorBooksRepository
	logger       *zap.Logger
	mediaBaseURL string
	now          func() time.Time
}

// NewAuthorService creates a new author service
func NewAuthorService(repo AuthorRepository, books AuthorBooksRepository, logger *zap.Logger, mediaBaseURL string) *authorService {
	return &authorService{
		repo:         repo,
		books:        books,
		logger:       logger,
		mediaBaseURL: mediaBaseURL,
		now:          time.Now,
	}
}

// GetAll returns all authors
func (s *authorService) GetAll(ctx context.Context) ([]models.Author, error) {
	return s.repo.GetAll(ctx)
}

// GetByID returns an author
func (s *authorService) GetByID(ctx context.Context, id string) (*models.Author, error) {
	return s.repo.GetByID(ctx, id)
}

// Create adds an author
func (s *authorService) Create(ctx context.Context, req *models.CreateAuthorRequest) (*models.Author, error) {
	author := &models.Author{
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		DateOfBirth: req.DateOfBirth.UTC(),
		Country:     strings.TrimSpace(req.Country),
	}
	if err := s.validate(author); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, author); err != nil {
		return nil, err
	}

	s.logger.Info("author created", zap.String("authorId", author.ID))
	return author, nil
}

// Update replaces all fields of an author
func (s *authorService) Update(ctx context.Context, id string, req *models.UpdateAuthorRequest) (*models.Author, error) {
	author := &models.Author{
		ID:          id,
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		DateOfBirth: req.DateOfBirth.UTC(),
		Country:     strings.TrimSpace(req.Country),
	}
	if err := s.validate(author); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, author); err != nil {
		return nil, err
	}

	return author, nil
}

// Delete removes an author that has no books
func (s *authorService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// GetBooksByAuthor returns the books written by an existing author
func (s *authorService) GetBooksByAuthor(ctx context.Context, id string) ([]models.Book, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	books, err := s.books.GetByAuthor(ctx, id)
	if err != nil {
		return nil, err
	}

	return presentBooks(s.mediaBaseURL, books), nil
}

func (s *authorService) validate(author *models.Author) error {
	fields := []struct {
		name  string
		value string
	}{
		{"first name", author.FirstName},
		{"last name", author.LastName},
		{"country", author.Country},
	}
	for _, field := range fields {
		if field.value == "" {
			return apperrors.Newf(apperrors.ErrBadRequest, "%s is required", field.name)
		}
		if len([]rune(field.value)) > maxAuthorFieldLength {
			return apperrors.Newf(apperrors.ErrBadRequest, "%s can't be longer than %d characters", field.name, maxAuthorFieldLength)
		}
	}

	if author.DateOfBirth.IsZero() {
		return apperrors.New(apperrors.ErrBadRequest, "date of birth is required")
	}
	if author.DateOfBirth.After(s.now().UTC()) {
		return apperrors.New(apperrors.ErrBadRequest, "date of birth can't be in the future")
	}

	return nil
}

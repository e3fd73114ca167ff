package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fybs47/Library/internal/apperrors"
	"github.com/fybs47/Library/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// authorRepository implements AuthorRepository
type authorRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAuthorRepository creates a new author repository
func NewAuthorRepository(db *sql.DB, logger *zap.Logger) *authorRepository {
	return &authorRepository{
		db:     db,
		logger: logger,
	}
}

// GetAll retrieves all authors ordered by last and first name
func (r *authorRepository) GetAll(ctx context.Context) ([]models.Author, error) {
	query := `
		SELECT id, first_name, last_name, date_of_birth, country
		FROM authors
		ORDER BY last_name, first_name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("failed to query authors", zap.Error(err))
		return nil, fmt.Errorf("failed to query authors: %w", err)
	}
	defer rows.Close()

	authors := []models.Author{}
	for rows.Next() {
		var author models.Author
		if err := rows.Scan(&author.ID, &author.FirstName, &author.LastName, &author.DateOfBirth, &author.Country); err != nil {
			return nil, fmt.Errorf("failed to scan author: %w", err)
		}
		authors = append(authors, author)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating authors: %w", err)
	}

	return authors, nil
}

// GetByID retrieves an author by ID
func (r *authorRepository) GetByID(ctx context.Context, id string) (*models.Author, error) {
	query := `
		SELECT id, first_name, last_name, date_of_birth, country
		FROM authors
		WHERE id = ?
		LIMIT 1
	`

	author := &models.Author{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&author.ID,
		&author.FirstName,
		&author.LastName,
		&author.DateOfBirth,
		&author.Country,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.New(apperrors.ErrNotFound, "author not found")
	}
	if err != nil {
		r.logger.Error("failed to get author by id", zap.Error(err), zap.String("authorId", id))
		return nil, fmt.Errorf("failed to get author by id: %w", err)
	}

	return author, nil
}

// Exists checks if an author with the given ID exists
func (r *authorRepository) Exists(ctx context.Context, id string) (bool, error) {
	query := `SELECT EXISTS(SELECT * FROM authors WHERE id = ?)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		r.logger.Error("failed to check author existence", zap.Error(err), zap.String("authorId", id))
		return false, fmt.Errorf("failed to check author existence: %w", err)
	}

	return exists, nil
}

// Create inserts a new author and assigns its ID
func (r *authorRepository) Create(ctx context.Context, author *models.Author) error {
	if author.ID == "" {
		author.ID = uuid.New().String()
	}

	query := `
		INSERT INTO authors (id, first_name, last_name, date_of_birth, country)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query, author.ID, author.FirstName, author.LastName, author.DateOfBirth.UTC(), author.Country)
	if err != nil {
		r.logger.Error("failed to create author", zap.Error(err))
		return fmt.Errorf("failed to create author: %w", err)
	}

	return nil
}

// Update replaces the fields of an existing author
func (r *authorRepository) Update(ctx context.Context, author *models.Author) error {
	query := `
		UPDATE authors
		SET first_name = ?, last_name = ?, date_of_birth = ?, country = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, author.FirstName, author.LastName, author.DateOfBirth.UTC(), author.Country, author.ID)
	if err != nil {
		r.logger.Error("failed to update author", zap.Error(err), zap.String("authorId", author.ID))
		return fmt.Errorf("failed to update author: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return apperrors.New(apperrors.ErrNotFound, "author not found")
	}

	return nil
}

// Delete deletes an author. Authors that still have books cannot be deleted.
func (r *authorRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM authors WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		if mysqlErrorNumber(err) == errRowIsReferenced {
			return apperrors.New(apperrors.ErrConflict, "author still has books")
		}
		r.logger.Error("failed to delete author", zap.Error(err), zap.String("authorId", id))
		return fmt.Errorf("failed to delete author: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return apperrors.New(apperrors.ErrNotFound, "author not found")
	}

	return nil
}

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fybs47/Library/internal/apperrors"
	"github.com/fybs47/Library/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const bookColumns = `id, isbn, title, genre, description, author_id, borrowed_time, due_date, image_path, is_borrowed`

// bookRepository implements BookRepository
type bookRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewBookRepository creates a new book repository
func NewBookRepository(db *sql.DB, logger *zap.Logger) *bookRepository {
	return &bookRepository{
		db:     db,
		logger: logger,
	}
}

// GetPage retrieves one page of books ordered by title together with the total number of books.
// Pages start at 1.
func (r *bookRepository) GetPage(ctx context.Context, page, count int) ([]models.Book, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&total); err != nil {
		r.logger.Error("failed to count books", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to count books: %w", err)
	}

	query := `
		SELECT ` + bookColumns + `
		FROM books
		ORDER BY title, id
		LIMIT ? OFFSET ?
	`

	books, err := r.queryBooks(ctx, query, count, (page-1)*count)
	if err != nil {
		return nil, 0, err
	}

	return books, total, nil
}

// GetByID retrieves a book by ID
func (r *bookRepository) GetByID(ctx context.Context, id string) (*models.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE id = ? LIMIT 1`

	book, err := scanBook(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.New(apperrors.ErrNotFound, "book not found")
	}
	if err != nil {
		r.logger.Error("failed to get book by id", zap.Error(err), zap.String("bookId", id))
		return nil, fmt.Errorf("failed to get book by id: %w", err)
	}

	return book, nil
}

// GetByISBN retrieves a book by ISBN
func (r *bookRepository) GetByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE isbn = ? LIMIT 1`

	book, err := scanBook(r.db.QueryRowContext(ctx, query, isbn))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.New(apperrors.ErrNotFound, "book not found")
	}
	if err != nil {
		r.logger.Error("failed to get book by isbn", zap.Error(err), zap.String("isbn", isbn))
		return nil, fmt.Errorf("failed to get book by isbn: %w", err)
	}

	return book, nil
}

// GetByAuthor retrieves all books of an author ordered by title
func (r *bookRepository) GetByAuthor(ctx context.Context, authorID string) ([]models.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE author_id = ? ORDER BY title`

	return r.queryBooks(ctx, query, authorID)
}

// Create inserts a new book and assigns its ID
func (r *bookRepository) Create(ctx context.Context, book *models.Book) error {
	if book.ID == "" {
		book.ID = uuid.New().String()
	}

	query := `
		INSERT INTO books (id, isbn, title, genre, description, author_id, image_path, is_borrowed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		book.ID, book.ISBN, book.Title, book.Genre, book.Description, book.AuthorID, book.ImagePath, book.IsBorrowed)
	if err != nil {
		if mappedErr := mapBookWriteError(err); mappedErr != nil {
			return mappedErr
		}
		r.logger.Error("failed to create book", zap.Error(err))
		return fmt.Errorf("failed to create book: %w", err)
	}

	return nil
}

// Update replaces the catalog fields of a book. Borrowing state and image are left untouched.
func (r *bookRepository) Update(ctx context.Context, book *models.Book) error {
	query := `
		UPDATE books
		SET isbn = ?, title = ?, genre = ?, description = ?, author_id = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, book.ISBN, book.Title, book.Genre, book.Description, book.AuthorID, book.ID)
	if err != nil {
		if mappedErr := mapBookWriteError(err); mappedErr != nil {
			return mappedErr
		}
		r.logger.Error("failed to update book", zap.Error(err), zap.String("bookId", book.ID))
		return fmt.Errorf("failed to update book: %w", err)
	}

	return requireRow(result, "book not found")
}

// Delete deletes a book
func (r *bookRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("failed to delete book", zap.Error(err), zap.String("bookId", id))
		return fmt.Errorf("failed to delete book: %w", err)
	}

	return requireRow(result, "book not found")
}

// Borrow marks an available book as borrowed.
// The row is locked for the duration of the check so two borrowers cannot both succeed.
func (r *bookRepository) Borrow(ctx context.Context, id string, borrowedAt, dueDate time.Time) error {
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		borrowed, err := lockBorrowState(ctx, tx, id)
		if err != nil {
			return err
		}
		if borrowed {
			return apperrors.New(apperrors.ErrConflict, "book is already borrowed")
		}

		query := `
			UPDATE books
			SET is_borrowed = TRUE, borrowed_time = ?, due_date = ?
			WHERE id = ?
		`
		if _, err := tx.ExecContext(ctx, query, borrowedAt.UTC(), dueDate.UTC(), id); err != nil {
			return fmt.Errorf("failed to borrow book: %w", err)
		}
		return nil
	})
	if err != nil {
		var appErr *apperrors.Error
		if !errors.As(err, &appErr) {
			r.logger.Error("failed to borrow book", zap.Error(err), zap.String("bookId", id))
		}
		return err
	}

	return nil
}

// Return marks a borrowed book as available again
func (r *bookRepository) Return(ctx context.Context, id string) error {
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		borrowed, err := lockBorrowState(ctx, tx, id)
		if err != nil {
			return err
		}
		if !borrowed {
			return apperrors.New(apperrors.ErrConflict, "book is not borrowed")
		}

		query := `
			UPDATE books
			SET is_borrowed = FALSE, borrowed_time = NULL, due_date = NULL
			WHERE id = ?
		`
		if _, err := tx.ExecContext(ctx, query, id); err != nil {
			return fmt.Errorf("failed to return book: %w", err)
		}
		return nil
	})
	if err != nil {
		var appErr *apperrors.Error
		if !errors.As(err, &appErr) {
			r.logger.Error("failed to return book", zap.Error(err), zap.String("bookId", id))
		}
		return err
	}

	return nil
}

// SetImagePath stores the cover file name of a book
func (r *bookRepository) SetImagePath(ctx context.Context, id, imagePath string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE books SET image_path = ? WHERE id = ?`, imagePath, id)
	if err != nil {
		r.logger.Error("failed to set book image", zap.Error(err), zap.String("bookId", id))
		return fmt.Errorf("failed to set book image: %w", err)
	}

	return requireRow(result, "book not found")
}

func (r *bookRepository) queryBooks(ctx context.Context, query string, args ...any) ([]models.Book, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to query books", zap.Error(err))
		return nil, fmt.Errorf("failed to query books: %w", err)
	}
	defer rows.Close()

	books := []models.Book{}
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, *book)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating books: %w", err)
	}

	return books, nil
}

func lockBorrowState(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	var borrowed bool
	err := tx.QueryRowContext(ctx, `SELECT is_borrowed FROM books WHERE id = ? FOR UPDATE`, id).Scan(&borrowed)
	if errors.Is(err, sql.ErrNoRows) {
		return false, apperrors.New(apperrors.ErrNotFound, "book not found")
	}
	if err != nil {
		return false, fmt.Errorf("failed to lock book: %w", err)
	}
	return borrowed, nil
}

func mapBookWriteError(err error) error {
	switch mysqlErrorNumber(err) {
	case errDuplicateEntry:
		return apperrors.New(apperrors.ErrConflict, "book with this ISBN already exists")
	case errNoReferencedRow:
		return apperrors.New(apperrors.ErrBadRequest, "author does not exist")
	}
	return nil
}

// requireRow turns an update that matched nothing into a NotFound error
func requireRow(result sql.Result, notFoundMessage string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return apperrors.New(apperrors.ErrNotFound, notFoundMessage)
	}

	return nil
}

func scanBook(row rowScanner) (*models.Book, error) {
	book := &models.Book{}
	var borrowedTime, dueDate sql.NullTime
	var imagePath sql.NullString

	err := row.Scan(
		&book.ID,
		&book.ISBN,
		&book.Title,
		&book.Genre,
		&book.Description,
		&book.AuthorID,
		&borrowedTime,
		&dueDate,
		&imagePath,
		&book.IsBorrowed,
	)
	if err != nil {
		return nil, err
	}

	if borrowedTime.Valid {
		t := borrowedTime.Time.UTC()
		book.BorrowedTime = &t
	}
	if dueDate.Valid {
		t := dueDate.Time.UTC()
		book.DueDate = &t
	}
	book.ImagePath = imagePath.String

	return book, nil
}

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fybs47/Library/internal/apperrors"
	"github.com/fybs47/Library/internal/models"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var authorRowColumns = []string{"id", "first_name", "last_name", "date_of_birth", "country"}

// setupAuthorTestRepository creates an author repository with a mock database
func setupAuthorTestRepository(t *testing.T) (*authorRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	logger, _ := zap.NewDevelopment()
	repo := NewAuthorRepository(db, logger)

	return repo, mock, func() { db.Close() }
}

func TestAuthorRepository_GetAll(t *testing.T) {
	born := time.Date(1828, 9, 9, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		setupMock     func(sqlmock.Sqlmock)
		expectedCount int
		expectError   bool
	}{
		{
			name: "success",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(authorRowColumns).
					AddRow("a1", "Fyodor", "Dostoevsky", born, "Russia").
					AddRow("a2", "Leo", "Tolstoy", born, "Russia")
				mock.ExpectQuery(`SELECT id, first_name, last_name, date_of_birth, country FROM authors ORDER BY last_name, first_name`).
					WillReturnRows(rows)
			},
			expectedCount: 2,
		},
		{
			name: "empty",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT .+ FROM authors`).
					WillReturnRows(sqlmock.NewRows(authorRowColumns))
			},
			expectedCount: 0,
		},
		{
			name: "database error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT .+ FROM authors`).
					WillReturnError(errors.New("database error"))
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupAuthorTestRepository(t)
			defer cleanup()

			tt.setupMock(mock)

			authors, err := repo.GetAll(context.Background())

			if tt.expectError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Len(t, authors, tt.expectedCount)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAuthorRepository_GetByID(t *testing.T) {
	born := time.Date(1828, 9, 9, 0, 0, 0, 0, time.UTC)

	repo, mock, cleanup := setupAuthorTestRepository(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT .+ FROM authors WHERE id = \? LIMIT 1`).
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows(authorRowColumns).AddRow("a1", "Leo", "Tolstoy", born, "Russia"))
	mock.ExpectQuery(`SELECT .+ FROM authors WHERE id = \? LIMIT 1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	author, err := repo.GetByID(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, &models.Author{ID: "a1", FirstName: "Leo", LastName: "Tolstoy", DateOfBirth: born, Country: "Russia"}, author)

	_, err = repo.GetByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthorRepository_CreateUpdateExists(t *testing.T) {
	born := time.Date(1828, 9, 9, 0, 0, 0, 0, time.UTC)

	repo, mock, cleanup := setupAuthorTestRepository(t)
	defer cleanup()

	mock.ExpectExec(`INSERT INTO authors`).
		WithArgs(sqlmock.AnyArg(), "Leo", "Tolstoy", born, "Russia").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE authors SET first_name = \?, last_name = \?, date_of_birth = \?, country = \? WHERE id = \?`).
		WithArgs("Lev", "Tolstoy", born, "Russia", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE authors`).
		WithArgs("Lev", "Tolstoy", born, "Russia", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS\(SELECT \* FROM authors WHERE id = \?\)`).
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	author := &models.Author{FirstName: "Leo", LastName: "Tolstoy", DateOfBirth: born, Country: "Russia"}
	require.NoError(t, repo.Create(context.Background(), author))
	assert.NotEmpty(t, author.ID)

	author.FirstName = "Lev"
	require.NoError(t, repo.Update(context.Background(), author))

	missing := *author
	missing.ID = "missing"
	assert.True(t, errors.Is(repo.Update(context.Background(), &missing), apperrors.ErrNotFound))

	exists, err := repo.Exists(context.Background(), "a1")
	require.NoError(t, err)
	assert.True(t, exists)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthorRepository_Delete(t *testing.T) {
	tests := []struct {
		name          string
		setupMock     func(sqlmock.Sqlmock)
		expectedError error
		expectError   bool
	}{
		{
			name: "success",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`DELETE FROM authors WHERE id = \?`).
					WithArgs("a1").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "not found",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`DELETE FROM authors WHERE id = \?`).
					WithArgs("a1").
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			expectError:   true,
			expectedError: apperrors.ErrNotFound,
		},
		{
			name: "author has books",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`DELETE FROM authors WHERE id = \?`).
					WithArgs("a1").
					WillReturnError(&mysql.MySQLError{Number: 1451, Message: "Cannot delete or update a parent row"})
			},
			expectError:   true,
			expectedError: apperrors.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupAuthorTestRepository(t)
			defer cleanup()

			tt.setupMock(mock)

			err := repo.Delete(context.Background(), "a1")

			if tt.expectError {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.expectedError))
			} else {
				assert.NoError(t, err)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

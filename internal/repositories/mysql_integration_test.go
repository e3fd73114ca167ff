package repositories

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fybs47/Library/internal/apperrors"
	"github.com/fybs47/Library/internal/config"
	"github.com/fybs47/Library/internal/models"
	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// openTestDB connects to the MySQL database named by TEST_DB_* and applies the schema.
// The test is skipped when no database is configured.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping MySQL integration test in short mode")
	}

	cfg, ok, err := config.LoadTestConfig()
	require.NoError(t, err)
	if !ok {
		t.Skip("TEST_DB_HOST is not set")
	}

	db, err := sql.Open("mysql", cfg.DSN())
	require.NoError(t, err)
	require.NoError(t, db.Ping(), "failed to connect to test database")

	schema, err := os.ReadFile("../../schema/library.sql")
	require.NoError(t, err)
	for _, statement := range strings.Split(string(schema), ";") {
		if !strings.Contains(statement, "CREATE") {
			continue
		}
		_, err := db.Exec(statement)
		require.NoError(t, err)
	}

	cleanup := func() {
		for _, table := range []string{"books", "authors", "users"} {
			_, err := db.Exec("DELETE FROM " + table)
			require.NoError(t, err)
		}
	}
	cleanup()
	t.Cleanup(func() {
		cleanup()
		db.Close()
	})

	return db
}

func TestMySQL_RefreshTokenRotation(t *testing.T) {
	db := openTestDB(t)
	logger, _ := zap.NewDevelopment()
	repo := NewUserRepository(db, logger)
	ctx := context.Background()

	user := &models.User{Username: "alice", Email: "a@x.io", PasswordHash: "hash", Role: models.RoleUser}
	require.NoError(t, repo.Create(ctx, user))

	err := repo.Create(ctx, &models.User{Username: "alice", Email: "other@x.io", PasswordHash: "hash", Role: models.RoleUser})
	assert.True(t, errors.Is(err, apperrors.ErrConflict))

	now := time.Now().UTC()
	require.NoError(t, repo.SetRefreshToken(ctx, user.ID, "token-0", now.Add(time.Hour)))

	found, err := repo.GetByRefreshToken(ctx, "token-0", now)
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = repo.GetByRefreshToken(ctx, "token-0", now.Add(2*time.Hour))
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	const attempts = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			newToken := "token-" + string(rune('a'+i))
			err := repo.RotateRefreshToken(ctx, user.ID, "token-0", newToken, now.Add(time.Hour), now)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	_, err = repo.GetByRefreshToken(ctx, "token-0", now)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestMySQL_BorrowAndAuthorDeletion(t *testing.T) {
	db := openTestDB(t)
	logger, _ := zap.NewDevelopment()
	authors := NewAuthorRepository(db, logger)
	books := NewBookRepository(db, logger)
	ctx := context.Background()

	author := &models.Author{FirstName: "Frank", LastName: "Herbert", DateOfBirth: time.Date(1920, 10, 8, 0, 0, 0, 0, time.UTC), Country: "USA"}
	require.NoError(t, authors.Create(ctx, author))

	book := &models.Book{ISBN: "9780441172719", Title: "Dune", Genre: "Science fiction", Description: "Desert planet", AuthorID: author.ID}
	require.NoError(t, books.Create(ctx, book))

	orphan := &models.Book{ISBN: "9780441013593", Title: "Orphan", Genre: "None", Description: "None", AuthorID: "missing"}
	err := books.Create(ctx, orphan)
	assert.True(t, errors.Is(err, apperrors.ErrBadRequest))

	borrowedAt := time.Now().UTC().Truncate(time.Second)
	dueDate := borrowedAt.Add(14 * 24 * time.Hour)

	var wg sync.WaitGroup
	results := make([]error, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = books.Borrow(ctx, book.ID, borrowedAt, dueDate)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, apperrors.ErrConflict))
	}
	assert.Equal(t, 1, succeeded)

	stored, err := books.GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsBorrowed)
	require.NotNil(t, stored.DueDate)
	assert.True(t, dueDate.Equal(*stored.DueDate))

	require.NoError(t, books.Return(ctx, book.ID))
	assert.True(t, errors.Is(books.Return(ctx, book.ID), apperrors.ErrConflict))

	err = authors.Delete(ctx, author.ID)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))

	require.NoError(t, books.Delete(ctx, book.ID))
	require.NoError(t, authors.Delete(ctx, author.ID))
}

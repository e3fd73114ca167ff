package services

import (
	"context"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fybs47/Library/internal/apperrors"
	"github.com/fybs47/Library/internal/models"
	"github.com/google/uuid"
)

// memoryUserStore is an in-memory users table with the same refresh token semantics as MySQL
type memoryUserStore struct {
	mu    sync.Mutex
	users map[string]*models.User
	err   error
}

func newMemoryUserStore() *memoryUserStore {
	return &memoryUserStore{users: map[string]*models.User{}}
}

func (m *memoryUserStore) add(user models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = &user
}

func (m *memoryUserStore) get(id string) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.users[id]
}

func (m *memoryUserStore) Create(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, u := range m.users {
		if u.Username == user.Username || u.Email == user.Email {
			return apperrors.New(apperrors.ErrConflict, "username or email already exists")
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *memoryUserStore) GetByID(_ context.Context, userID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[userID]
	if !ok {
		return nil, apperrors.New(apperrors.ErrNotFound, "user not found")
	}
	user := *u
	return &user, nil
}

func (m *memoryUserStore) GetByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.Username == username {
			user := *u
			return &user, nil
		}
	}
	return nil, apperrors.New(apperrors.ErrNotFound, "user not found")
}

func (m *memoryUserStore) ExistsByEmail(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	for _, u := range m.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryUserStore) ExistsByUsername(_ context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	for _, u := range m.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryUserStore) GetByRefreshToken(_ context.Context, token string, now time.Time) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.RefreshToken != nil && *u.RefreshToken == token && u.RefreshTokenExpiryTime.After(now) {
			user := *u
			return &user, nil
		}
	}
	return nil, apperrors.New(apperrors.ErrNotFound, "user not found")
}

func (m *memoryUserStore) SetRefreshToken(_ context.Context, userID, token string, expiry time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	u, ok := m.users[userID]
	if !ok {
		return apperrors.New(apperrors.ErrNotFound, "user not found")
	}
	u.RefreshToken = &token
	u.RefreshTokenExpiryTime = &expiry
	return nil
}

func (m *memoryUserStore) RotateRefreshToken(_ context.Context, userID, oldToken, newToken string, expiry, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	u, ok := m.users[userID]
	if !ok || u.RefreshToken == nil || *u.RefreshToken != oldToken || !u.RefreshTokenExpiryTime.After(now) {
		return apperrors.New(apperrors.ErrUnauthorized, "refresh token is invalid or expired")
	}
	u.RefreshToken = &newToken
	u.RefreshTokenExpiryTime = &expiry
	return nil
}

func (m *memoryUserStore) ClearRefreshToken(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if u, ok := m.users[userID]; ok {
		u.RefreshToken = nil
		u.RefreshTokenExpiryTime = nil
	}
	return nil
}

func (m *memoryUserStore) GetAll(_ context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	users := []models.User{}
	for _, u := range m.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (m *memoryUserStore) UpdateRole(_ context.Context, userID string, role models.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	u, ok := m.users[userID]
	if !ok {
		return apperrors.New(apperrors.ErrNotFound, "user not found")
	}
	u.Role = role
	return nil
}

func (m *memoryUserStore) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.users[userID]; !ok {
		return apperrors.New(apperrors.ErrNotFound, "user not found")
	}
	delete(m.users, userID)
	return nil
}

// mockBookRepository is an in-memory books table
type mockBookRepository struct {
	books       map[string]*models.Book
	err         error
	getByIDHits int
}

func newMockBookRepository(books ...models.Book) *mockBookRepository {
	m := &mockBookRepository{books: map[string]*models.Book{}}
	for i := range books {
		book := books[i]
		m.books[book.ID] = &book
	}
	return m
}

func (m *mockBookRepository) GetPage(_ context.Context, page, count int) ([]models.Book, int, error) {
	if m.err != nil {
		return nil, 0, m.err
	}
	all := []models.Book{}
	for _, b := range m.books {
		all = append(all, *b)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Title < all[j].Title })
	start := (page - 1) * count
	if start >= len(all) {
		return []models.Book{}, len(all), nil
	}
	end := start + count
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

func (m *mockBookRepository) GetByID(_ context.Context, id string) (*models.Book, error) {
	m.getByIDHits++
	if m.err != nil {
		return nil, m.err
	}
	b, ok := m.books[id]
	if !ok {
		return nil, apperrors.New(apperrors.ErrNotFound, "book not found")
	}
	book := *b
	return &book, nil
}

func (m *mockBookRepository) GetByISBN(_ context.Context, isbn string) (*models.Book, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, b := range m.books {
		if b.ISBN == isbn {
			book := *b
			return &book, nil
		}
	}
	return nil, apperrors.New(apperrors.ErrNotFound, "book not found")
}

func (m *mockBookRepository) GetByAuthor(_ context.Context, authorID string) ([]models.Book, error) {
	if m.err != nil {
		return nil, m.err
	}
	books := []models.Book{}
	for _, b := range m.books {
		if b.AuthorID == authorID {
			books = append(books, *b)
		}
	}
	sort.Slice(books, func(i, j int) bool { return books[i].Title < books[j].Title })
	return books, nil
}

func (m *mockBookRepository) Create(_ context.Context, book *models.Book) error {
	if m.err != nil {
		return m.err
	}
	for _, b := range m.books {
		if b.ISBN == book.ISBN {
			return apperrors.New(apperrors.ErrConflict, "book with this ISBN already exists")
		}
	}
	book.ID = uuid.New().String()
	stored := *book
	m.books[book.ID] = &stored
	return nil
}

func (m *mockBookRepository) Update(_ context.Context, book *models.Book) error {
	if m.err != nil {
		return m.err
	}
	b, ok := m.books[book.ID]
	if !ok {
		return apperrors.New(apperrors.ErrNotFound, "book not found")
	}
	b.ISBN = book.ISBN
	b.Title = book.Title
	b.Genre = book.Genre
	b.Description = book.Description
	b.AuthorID = book.AuthorID
	return nil
}

func (m *mockBookRepository) Delete(_ context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.books[id]; !ok {
		return apperrors.New(apperrors.ErrNotFound, "book not found")
	}
	delete(m.books, id)
	return nil
}

func (m *mockBookRepository) Borrow(_ context.Context, id string, borrowedAt, dueDate time.Time) error {
	if m.err != nil {
		return m.err
	}
	b, ok := m.books[id]
	if !ok {
		return apperrors.New(apperrors.ErrNotFound, "book not found")
	}
	if b.IsBorrowed {
		return apperrors.New(apperrors.ErrConflict, "book is already borrowed")
	}
	b.IsBorrowed = true
	b.BorrowedTime = &borrowedAt
	b.DueDate = &dueDate
	return nil
}

func (m *mockBookRepository) Return(_ context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	b, ok := m.books[id]
	if !ok {
		return apperrors.New(apperrors.ErrNotFound, "book not found")
	}
	if !b.IsBorrowed {
		return apperrors.New(apperrors.ErrConflict, "book is not borrowed")
	}
	b.IsBorrowed = false
	b.BorrowedTime = nil
	b.DueDate = nil
	return nil
}

func (m *mockBookRepository) SetImagePath(_ context.Context, id, imagePath string) error {
	if m.err != nil {
		return m.err
	}
	b, ok := m.books[id]
	if !ok {
		return apperrors.New(apperrors.ErrNotFound, "book not found")
	}
	b.ImagePath = imagePath
	return nil
}

// mockAuthorRepository is an in-memory authors table
type mockAuthorRepository struct {
	authors map[string]*models.Author
	err     error
}

func newMockAuthorRepository(authors ...models.Author) *mockAuthorRepository {
	m := &mockAuthorRepository{authors: map[string]*models.Author{}}
	for i := range authors {
		author := authors[i]
		m.authors[author.ID] = &author
	}
	return m
}

func (m *mockAuthorRepository) GetAll(_ context.Context) ([]models.Author, error) {
	if m.err != nil {
		return nil, m.err
	}
	authors := []models.Author{}
	for _, a := range m.authors {
		authors = append(authors, *a)
	}
	sort.Slice(authors, func(i, j int) bool { return authors[i].LastName < authors[j].LastName })
	return authors, nil
}

func (m *mockAuthorRepository) GetByID(_ context.Context, id string) (*models.Author, error) {
	if m.err != nil {
		return nil, m.err
	}
	a, ok := m.authors[id]
	if !ok {
		return nil, apperrors.New(apperrors.ErrNotFound, "author not found")
	}
	author := *a
	return &author, nil
}

func (m *mockAuthorRepository) Exists(_ context.Context, id string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.authors[id]
	return ok, nil
}

func (m *mockAuthorRepository) Create(_ context.Context, author *models.Author) error {
	if m.err != nil {
		return m.err
	}
	author.ID = uuid.New().String()
	stored := *author
	m.authors[author.ID] = &stored
	return nil
}

func (m *mockAuthorRepository) Update(_ context.Context, author *models.Author) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.authors[author.ID]; !ok {
		return apperrors.New(apperrors.ErrNotFound, "author not found")
	}
	stored := *author
	m.authors[author.ID] = &stored
	return nil
}

func (m *mockAuthorRepository) Delete(_ context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.authors[id]; !ok {
		return apperrors.New(apperrors.ErrNotFound, "author not found")
	}
	delete(m.authors, id)
	return nil
}

// mockBookCache is a map based BookCache that counts invalidations
type mockBookCache struct {
	books         map[string]*models.Book
	invalidations int
}

func newMockBookCache() *mockBookCache {
	return &mockBookCache{books: map[string]*models.Book{}}
}

func (m *mockBookCache) Get(_ context.Context, id string) (*models.Book, bool) {
	b, ok := m.books[id]
	if !ok {
		return nil, false
	}
	book := *b
	return &book, true
}

func (m *mockBookCache) Set(_ context.Context, book *models.Book) {
	stored := *book
	m.books[book.ID] = &stored
}

func (m *mockBookCache) Invalidate(_ context.Context, id string) {
	m.invalidations++
	delete(m.books, id)
}

// mockCoverStorage keeps written files in memory
type mockCoverStorage struct {
	files     map[string][]byte
	createErr error
}

func newMockCoverStorage() *mockCoverStorage {
	return &mockCoverStorage{files: map[string][]byte{}}
}

type memoryFile struct {
	name    string
	storage *mockCoverStorage
	buf     strings.Builder
}

func (f *memoryFile) Write(p []byte) (int, error) {
	return f.buf.Write(p)
}

func (f *memoryFile) Close() error {
	f.storage.files[f.name] = []byte(f.buf.String())
	return nil
}

func (m *mockCoverStorage) Create(name string) (io.WriteCloser, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &memoryFile{name: name, storage: m}, nil
}

func (m *mockCoverStorage) Delete(name string) error {
	if _, ok := m.files[name]; !ok {
		return os.ErrNotExist
	}
	delete(m.files, name)
	return nil
}

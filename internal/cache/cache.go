// Package cache provides read-through caches for catalog books.
//
// Both implementations are best effort: failures are logged and reported as
// cache misses so a broken cache never fails a request.
package cache

import "github.com/fybs47/Library/internal/models"

// bookKey returns the cache key of a book
func bookKey(id string) string {
	return "book:" + id
}

// copyBook returns a shallow copy so callers cannot modify cached values
func copyBook(book *models.Book) *models.Book {
	c := *book
	return &c
}

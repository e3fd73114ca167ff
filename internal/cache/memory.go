package cache

import (
	"context"
	"time"

	"github.com/fybs47/Library/internal/models"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryBookCache is an in-process LRU cache with per-entry expiry.
// It is used when no Redis server is configured.
type MemoryBookCache struct {
	cache *lru.LRU[string, *models.Book]
}

// NewMemoryBookCache creates a cache holding at most size books for ttl each
func NewMemoryBookCache(size int, ttl time.Duration) *MemoryBookCache {
	if size <= 0 {
		size = 1
	}

	return &MemoryBookCache{
		cache: lru.NewLRU[string, *models.Book](size, nil, ttl),
	}
}

// Get returns a copy of the cached book, if any
func (c *MemoryBookCache) Get(_ context.Context, id string) (*models.Book, bool) {
	book, ok := c.cache.Get(bookKey(id))
	if !ok {
		return nil, false
	}
	return copyBook(book), true
}

// Set caches a copy of the book
func (c *MemoryBookCache) Set(_ context.Context, book *models.Book) {
	c.cache.Add(bookKey(book.ID), copyBook(book))
}

// Invalidate removes the book from the cache
func (c *MemoryBookCache) Invalidate(_ context.Context, id string) {
	c.cache.Remove(bookKey(id))
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/fybs47/Library/internal/models"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisBookCache stores books as JSON values in Redis
type RedisBookCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisBookCache creates a new Redis backed book cache
func NewRedisBookCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisBookCache {
	return &RedisBookCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Get returns the cached book, if any
func (c *RedisBookCache) Get(ctx context.Context, id string) (*models.Book, bool) {
	data, err := c.client.Get(ctx, bookKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("failed to read book from cache", zap.String("bookId", id), zap.Error(err))
		}
		return nil, false
	}

	var book models.Book
	if err := json.Unmarshal(data, &book); err != nil {
		c.logger.Warn("failed to decode cached book", zap.String("bookId", id), zap.Error(err))
		return nil, false
	}

	return &book, true
}

// Set caches the book for the configured TTL
func (c *RedisBookCache) Set(ctx context.Context, book *models.Book) {
	data, err := json.Marshal(book)
	if err != nil {
		c.logger.Warn("failed to encode book for cache", zap.String("bookId", book.ID), zap.Error(err))
		return
	}

	if err := c.client.Set(ctx, bookKey(book.ID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("failed to write book to cache", zap.String("bookId", book.ID), zap.Error(err))
	}
}

// Invalidate removes the book from the cache
func (c *RedisBookCache) Invalidate(ctx context.Context, id string) {
	if err := c.client.Del(ctx, bookKey(id)).Err(); err != nil {
		c.logger.Warn("failed to invalidate cached book", zap.String("bookId", id), zap.Error(err))
	}
}

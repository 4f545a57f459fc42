// Package cache holds the optional Redis-backed scrape cache. Scrape
// responses are large and job pages change slowly, so re-submissions within
// the TTL skip the provider call entirely.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jobtrackr/jobtrackr-api/internal/models"
)

var ErrNotFound = errors.New("key not found in cache")

// ScrapeCache caches ContentEnvelopes keyed by URL. A nil *ScrapeCache is
// valid and disables caching, the same way the app degrades when optional
// collaborators are unconfigured.
type ScrapeCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// New connects to Redis at addr. Returns nil (caching disabled) when addr is
// empty.
func New(addr, password string, db int, ttl time.Duration, logger *zap.Logger) *ScrapeCache {
	if addr == "" {
		logger.Info("scrape cache disabled (REDIS_ADDR not set)")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &ScrapeCache{client: client, ttl: ttl, logger: logger}
}

func cacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return "scrape:" + hex.EncodeToString(sum[:])
}

// Get returns the cached envelope for url, or ErrNotFound.
func (c *ScrapeCache) Get(ctx context.Context, url string) (*models.ContentEnvelope, error) {
	if c == nil {
		return nil, ErrNotFound
	}

	raw, err := c.client.Get(ctx, cacheKey(url)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var envelope models.ContentEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, err
	}
	return &envelope, nil
}

// Set stores the envelope for url. Failures are logged, not returned; a
// cache write must never fail a request.
func (c *ScrapeCache) Set(ctx context.Context, url string, envelope *models.ContentEnvelope) {
	if c == nil {
		return
	}

	raw, err := json.Marshal(envelope)
	if err != nil {
		c.logger.Warn("scrape cache marshal failed", zap.Error(err))
		return
	}

	if err := c.client.Set(ctx, cacheKey(url), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("scrape cache write failed", zap.String("url", url), zap.Error(err))
	}
}

// Close releases the Redis connection.
func (c *ScrapeCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

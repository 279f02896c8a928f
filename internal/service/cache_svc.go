package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mathieu-neron/postrate/internal/model"
)

const RatingCacheTTL = 5 * time.Minute

// CacheService is a Redis cache-aside layer for post aggregates. A nil
// client turns every operation into a no-op.
type CacheService struct {
	rdb *redis.Client
}

// NewCacheService connects to Redis. An empty URL or a failed connection
// yields a disabled cache rather than an error.
func NewCacheService(ctx context.Context, redisURL string, logger zerolog.Logger) *CacheService {
	if redisURL == "" {
		logger.Info().Msg("redis: no URL configured, caching disabled")
		return &CacheService{}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("redis: invalid URL, caching disabled")
		return &CacheService{}
	}

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis: connection failed, caching disabled")
		_ = rdb.Close()
		return &CacheService{}
	}

	logger.Info().Msg("redis: connected, caching enabled")
	return &CacheService{rdb: rdb}
}

// NewCacheServiceWithClient wraps an existing client.
func NewCacheServiceWithClient(rdb *redis.Client) *CacheService {
	return &CacheService{rdb: rdb}
}

// Client returns the underlying Redis client (for health checks). May be nil.
func (c *CacheService) Client() *redis.Client {
	return c.rdb
}

// GetRating returns the cached aggregate of a post, or nil on a miss.
func (c *CacheService) GetRating(ctx context.Context, postID string) (*model.RatingResponse, error) {
	if c.rdb == nil {
		return nil, nil
	}
	data, err := c.rdb.Get(ctx, ratingKey(postID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var resp model.RatingResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetRating stores a post aggregate.
func (c *CacheService) SetRating(ctx context.Context, resp *model.RatingResponse) error {
	if c.rdb == nil {
		return nil
	}
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, ratingKey(resp.PostID), b, RatingCacheTTL).Err()
}

// InvalidatePost drops the cached aggregate of a post.
func (c *CacheService) InvalidatePost(ctx context.Context, postID string) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, ratingKey(postID)).Err()
}

// Close shuts down the Redis connection.
func (c *CacheService) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func ratingKey(postID string) string {
	return fmt.Sprintf("post:%s:rating", postID)
}

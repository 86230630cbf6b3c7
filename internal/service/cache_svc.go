package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// PollCacheTTL bounds staleness on single-poll reads; vote and pin
	// changes invalidate eagerly anyway.
	PollCacheTTL = 5 * time.Minute
	// FeedCacheTTL is short: the feed order shifts with every vote.
	FeedCacheTTL = 30 * time.Second
)

const feedKey = "feed:all"

// CacheService provides a Redis cache-aside layer for poll reads.
type CacheService struct {
	rdb *redis.Client
}

// NewCacheService creates a CacheService. If redisURL is empty or connection
// fails, cache operations become no-ops and the service runs straight off
// the database.
func NewCacheService(redisURL string) *CacheService {
	if redisURL == "" {
		log.Println("redis: no URL configured, caching disabled")
		return &CacheService{}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Printf("redis: invalid URL %q, caching disabled: %v", redisURL, err)
		return &CacheService{}
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("redis: connection failed, caching disabled: %v", err)
		return &CacheService{}
	}

	log.Println("redis: connected, caching enabled")
	return &CacheService{rdb: rdb}
}

// Client returns the underlying Redis client for health checks and the vote
// ledger. May be nil when caching is disabled.
func (c *CacheService) Client() *redis.Client {
	return c.rdb
}

// GetPoll retrieves a cached poll response. Nil when absent or disabled.
func (c *CacheService) GetPoll(ctx context.Context, pollID string) ([]byte, error) {
	if c.rdb == nil {
		return nil, nil
	}
	data, err := c.rdb.Get(ctx, pollKey(pollID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return data, err
}

// SetPoll stores a poll response.
func (c *CacheService) SetPoll(ctx context.Context, pollID string, data interface{}) error {
	if c.rdb == nil {
		return nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, pollKey(pollID), b, PollCacheTTL).Err()
}

// InvalidatePoll drops a poll from cache after a vote or pin change.
func (c *CacheService) InvalidatePoll(ctx context.Context, pollID string) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, pollKey(pollID)).Err()
}

// GetFeed retrieves the cached feed. Nil when absent or disabled.
func (c *CacheService) GetFeed(ctx context.Context) ([]byte, error) {
	if c.rdb == nil {
		return nil, nil
	}
	data, err := c.rdb.Get(ctx, feedKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return data, err
}

// SetFeed stores the feed response.
func (c *CacheService) SetFeed(ctx context.Context, data interface{}) error {
	if c.rdb == nil {
		return nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, feedKey, b, FeedCacheTTL).Err()
}

// InvalidateFeed drops the cached feed.
func (c *CacheService) InvalidateFeed(ctx context.Context) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, feedKey).Err()
}

// Close shuts down the Redis connection.
func (c *CacheService) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func pollKey(pollID string) string {
	return fmt.Sprintf("poll:%s", pollID)
}

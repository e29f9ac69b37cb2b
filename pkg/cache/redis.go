package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/youssef3092004/Spacefy/pkg/observability"
)

// scanCount is the COUNT hint used for SCAN-based pattern deletes
const scanCount = 100

// ErrMiss is returned by Get when the key is absent
var ErrMiss = errors.New("cache miss")

// Client wraps the redis client with the small surface the response
// cache and invalidator need.
type Client struct {
	rdb     *redis.Client
	metrics *observability.Metrics
}

// Options configure the redis connection
type Options struct {
	Addr     string
	Password string
	DB       int
	Metrics  *observability.Metrics
}

// NewClient connects to redis and verifies the connection
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}
	return &Client{rdb: rdb, metrics: opts.Metrics}, nil
}

// NewClientFromRedis wraps an existing redis client, used by tests
func NewClientFromRedis(rdb *redis.Client, metrics *observability.Metrics) *Client {
	return &Client{rdb: rdb, metrics: metrics}
}

// Get returns the cached value or ErrMiss
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrMiss
	}
	if err != nil {
		c.countError("get")
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

// Set stores a value with a TTL
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		c.countError("set")
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Del deletes keys and returns how many existed
func (c *Client) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := c.rdb.Del(ctx, keys...).Result()
	if err != nil {
		c.countError("del")
		return 0, fmt.Errorf("redis del: %w", err)
	}
	return n, nil
}

// SAdd adds members to a set and refreshes its TTL
func (c *Client) SAdd(ctx context.Context, key string, ttl time.Duration, members ...interface{}) error {
	pipe := c.rdb.TxPipeline()
	pipe.SAdd(ctx, key, members...)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.countError("sadd")
		return fmt.Errorf("redis sadd %s: %w", key, err)
	}
	return nil
}

// SMembers returns all members of a set
func (c *Client) SMembers(ctx context.Context, key string) ([]string, error) {
	members, err := c.rdb.SMembers(ctx, key).Result()
	if err != nil {
		c.countError("smembers")
		return nil, fmt.Errorf("redis smembers %s: %w", key, err)
	}
	return members, nil
}

// ScanDelete deletes every key matching the pattern using SCAN, never
// KEYS, and returns how many were removed.
func (c *Client) ScanDelete(ctx context.Context, pattern string) (int64, error) {
	var deleted int64
	iter := c.rdb.Scan(ctx, 0, pattern, scanCount).Iterator()
	batch := make([]string, 0, scanCount)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := c.rdb.Del(ctx, batch...).Result()
		if err != nil {
			return err
		}
		deleted += n
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= scanCount {
			if err := flush(); err != nil {
				c.countError("scan_delete")
				return deleted, fmt.Errorf("redis scan delete %s: %w", pattern, err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		c.countError("scan_delete")
		return deleted, fmt.Errorf("redis scan %s: %w", pattern, err)
	}
	if err := flush(); err != nil {
		c.countError("scan_delete")
		return deleted, fmt.Errorf("redis scan delete %s: %w", pattern, err)
	}
	return deleted, nil
}

// Close closes the underlying connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) countError(op string) {
	if c.metrics != nil {
		c.metrics.CacheErrorsTotal.WithLabelValues(op).Inc()
	}
}

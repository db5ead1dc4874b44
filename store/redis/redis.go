// Package redis provides a loader.Cache shared between server instances.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/warp/pos-analytics/loader"
)

var _ loader.Cache = (*Cache)(nil)

const (
	defaultKeyPrefix     = "pos:doc:"
	defaultScanBatchSize = 100
)

// Config configures the Redis connection.
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration // 0 keeps documents until cleared
}

// Cache implements loader.Cache on Redis.
type Cache struct {
	client     *goredis.Client
	ownsClient bool
	prefix     string
	ttl        time.Duration
	logger     *zap.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

// WithKeyPrefix namespaces the keys (default "pos:doc:").
func WithKeyPrefix(prefix string) Option {
	return func(c *Cache) { c.prefix = prefix }
}

// WithTTL expires documents after ttl.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config, opts ...Option) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c := NewWithClient(client, append([]Option{WithTTL(cfg.TTL)}, opts...)...)
	c.ownsClient = true
	return c, nil
}

// NewWithClient wraps an existing client. The caller keeps ownership of it.
func NewWithClient(client *goredis.Client, opts ...Option) *Cache {
	c := &Cache{
		client: client,
		prefix: defaultKeyPrefix,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) key(k string) string {
	return c.prefix + k
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		c.logger.Debug("Cache miss", zap.String("key", key))
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get document from cache: %w", err)
	}
	return data, true, nil
}

func (c *Cache) Put(ctx context.Context, key string, data []byte) error {
	if err := c.client.Set(ctx, c.key(key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set document in cache: %w", err)
	}
	return nil
}

// Clear removes every key under the prefix.
func (c *Cache) Clear(ctx context.Context) error {
	var cursor uint64
	deleted := 0
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+"*", defaultScanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("failed to scan cache keys: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete cache keys: %w", err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	c.logger.Info("Cleared document cache", zap.Int("keys", deleted))
	return nil
}

// Close closes the client when this cache created it.
func (c *Cache) Close() error {
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}

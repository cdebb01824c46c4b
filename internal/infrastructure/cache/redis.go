package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/garyjia/invoice-insights/internal/application/port"
)

// Config holds Redis connection settings
type Config struct {
	Address  string
	Password string
	DB       int
	PoolSize int
	Prefix   string
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, cfg Config, logger *zap.Logger) (*redis.Client, error) {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: poolSize,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Address, err)
	}

	logger.Info("Connected to Redis", zap.String("address", cfg.Address))
	return rdb, nil
}

// RedisReportCache implements port.ReportCache. Each user has an index set
// listing their cached keys so Invalidate can drop them in one call.
type RedisReportCache struct {
	rdb    *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisReportCache creates a report cache on rdb
func NewRedisReportCache(rdb *redis.Client, prefix string, logger *zap.Logger) *RedisReportCache {
	if prefix == "" {
		prefix = "invoice-insights"
	}
	return &RedisReportCache{rdb: rdb, prefix: prefix, logger: logger}
}

// Get returns the cached value for the user's key
func (c *RedisReportCache) Get(ctx context.Context, userID, key string) ([]byte, bool, error) {
	val, err := c.rdb.Get(ctx, entryKey(c.prefix, userID, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache: %w", err)
	}
	return val, true, nil
}

// Set stores value for ttl and records the key in the user's index
func (c *RedisReportCache) Set(ctx context.Context, userID, key string, value []byte, ttl time.Duration) error {
	k := entryKey(c.prefix, userID, key)
	idx := indexKey(c.prefix, userID)

	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, k, value, ttl)
	pipe.SAdd(ctx, idx, k)
	pipe.Expire(ctx, idx, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

// Invalidate drops every cached entry of the user
func (c *RedisReportCache) Invalidate(ctx context.Context, userID string) error {
	idx := indexKey(c.prefix, userID)

	keys, err := c.rdb.SMembers(ctx, idx).Result()
	if err != nil {
		return fmt.Errorf("failed to read cache index: %w", err)
	}

	if err := c.rdb.Del(ctx, append(keys, idx)...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}

	c.logger.Debug("Report cache invalidated",
		zap.String("user_id", userID),
		zap.Int("entries", len(keys)))
	return nil
}

func entryKey(prefix, userID, key string) string {
	return fmt.Sprintf("%s:report:%s:%s", prefix, userID, key)
}

func indexKey(prefix, userID string) string {
	return fmt.Sprintf("%s:report-index:%s", prefix, userID)
}

// RedisLocker implements port.Locker with redislock
type RedisLocker struct {
	client *redislock.Client
	prefix string
}

// NewRedisLocker creates a locker on rdb
func NewRedisLocker(rdb *redis.Client, prefix string) *RedisLocker {
	if prefix == "" {
		prefix = "invoice-insights"
	}
	return &RedisLocker{client: redislock.New(rdb), prefix: prefix}
}

// Obtain tries once to take the lock on key for ttl
func (l *RedisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (port.Lock, error) {
	lock, err := l.client.Obtain(ctx, fmt.Sprintf("%s:lock:%s", l.prefix, key), ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, port.ErrLockNotObtained
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock: %w", err)
	}
	return lock, nil
}

var (
	_ port.ReportCache = (*RedisReportCache)(nil)
	_ port.Locker      = (*RedisLocker)(nil)
)

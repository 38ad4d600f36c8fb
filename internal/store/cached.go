package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pool-ledger/internal/config"
	"github.com/pool-ledger/internal/errors"
	"github.com/pool-ledger/internal/logging"
	"github.com/pool-ledger/internal/models"
)

// DefaultEntityTTL bounds how long a cached entity can serve reads
const DefaultEntityTTL = 5 * time.Minute

// Cached is a Redis read-through wrapper around another Store. Saves write
// through to the backing store and refresh the cache entry; cache failures
// degrade to direct backing-store access.
type Cached struct {
	backing Store
	client  *redis.Client
	ttl     time.Duration
	logger  *logging.Logger
}

// NewRedisClient creates a Redis client from config and verifies connectivity
func NewRedisClient(cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.MaxConnections,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// NewCached wraps backing with a Redis read-through cache
func NewCached(backing Store, client *redis.Client, ttl time.Duration, logger *logging.Logger) *Cached {
	if ttl <= 0 {
		ttl = DefaultEntityTTL
	}
	return &Cached{backing: backing, client: client, ttl: ttl, logger: logger}
}

// EntityCacheKey builds the cache key for an entity
func EntityCacheKey(kind, id string) string {
	return fmt.Sprintf("entity:%s:%s", kind, id)
}

// Load tries the cache first, falling back to the backing store and
// populating the cache on a hit there
func (c *Cached) Load(ctx context.Context, e models.Entity) (bool, error) {
	key := EntityCacheKey(e.EntityKind(), e.EntityID())

	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		if err := json.Unmarshal(data, e); err != nil {
			return false, errors.NewDecodeError("failed to decode cached entity", err)
		}
		return true, nil
	}
	if err != redis.Nil {
		c.logger.WithError(err).WithField("key", key).Warn("cache read failed, falling back to store")
	}

	found, err := c.backing.Load(ctx, e)
	if err != nil || !found {
		return found, err
	}
	c.refresh(ctx, key, e)
	return true, nil
}

// Save writes through to the backing store, then refreshes the cache
func (c *Cached) Save(ctx context.Context, e models.Entity) error {
	if err := c.backing.Save(ctx, e); err != nil {
		return err
	}
	c.refresh(ctx, EntityCacheKey(e.EntityKind(), e.EntityID()), e)
	return nil
}

func (c *Cached) refresh(ctx context.Context, key string, e models.Entity) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("cache write failed")
	}
}

// Close releases the Redis client
func (c *Cached) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

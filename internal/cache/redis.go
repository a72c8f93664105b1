package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Catalog cache keys
const (
	ProductsKeyPrefix   = "catalog:productos:"
	CategoriesKeyPrefix = "catalog:categorias:"
	PlansKeyPrefix      = "catalog:planes:"
	SalonsKeyPrefix     = "catalog:salones:"

	CatalogTTL = 10 * time.Minute
)

// ErrUnavailable is returned by operations that need redis when it is down
var ErrUnavailable = errors.New("redis no disponible")

var client *redis.Client

// Init initializes the Redis connection. On failure the package degrades to
// cache misses and ErrUnavailable.
func Init(host string, port int, password string, db int) error {
	if host == "" {
		host = "redis"
	}
	if port == 0 {
		port = 6379
	}

	c := redis.NewClient(&redis.Options{
		Addr:     host + ":" + strconv.Itoa(port),
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		c.Close()
		client = nil
		return err
	}
	client = c
	return nil
}

// SetClient swaps the package client; tests point it at a throwaway server
func SetClient(c *redis.Client) {
	client = c
}

// GetClient returns the Redis client
func GetClient() *redis.Client {
	return client
}

// Close releases the connection pool
func Close() error {
	if client == nil {
		return nil
	}
	err := client.Close()
	client = nil
	return err
}

// ============================================
// Generic Cache Functions
// ============================================

// GetCached returns cached data for a key
func GetCached(ctx context.Context, key string) ([]byte, bool) {
	if client == nil {
		return nil, false
	}
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetCached stores data with a TTL
func SetCached(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if client == nil {
		return
	}
	client.Set(ctx, key, data, ttl)
}

// InvalidatePattern removes all keys matching a glob pattern
func InvalidatePattern(ctx context.Context, pattern string) {
	if client == nil {
		return
	}
	keys, err := client.Keys(ctx, pattern).Result()
	if err == nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidateKeys removes specific cache keys
func InvalidateKeys(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	client.Del(ctx, keys...)
}

// ============================================
// Entity-Based Cache Invalidators
// ============================================

// InvalidateProductCaches clears product listings
// Called when: product CRUD, stock adjust, any stock commit or release
func InvalidateProductCaches(ctx context.Context) {
	InvalidatePattern(ctx, ProductsKeyPrefix+"*")
}

// InvalidateCategoryCaches also clears products, which carry the category name
func InvalidateCategoryCaches(ctx context.Context) {
	InvalidatePattern(ctx, CategoriesKeyPrefix+"*")
	InvalidateProductCaches(ctx)
}

func InvalidatePlanCaches(ctx context.Context) {
	InvalidatePattern(ctx, PlansKeyPrefix+"*")
}

func InvalidateSalonCaches(ctx context.Context) {
	InvalidatePattern(ctx, SalonsKeyPrefix+"*")
}

// ============================================
// Payment duplicate guard
// ============================================

// PaymentGuard marks a payment key as taken for a short window with SETNX
type PaymentGuard struct{}

// AcquireOnce returns false when key was already taken inside ttl
func (PaymentGuard) AcquireOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if client == nil {
		return false, ErrUnavailable
	}
	return client.SetNX(ctx, "guard:"+key, 1, ttl).Result()
}

// Release frees key so a failed registration can be retried at once
func (PaymentGuard) Release(ctx context.Context, key string) error {
	if client == nil {
		return ErrUnavailable
	}
	return client.Del(ctx, "guard:"+key).Err()
}

// IsHealthy returns true if Redis connection is working
func IsHealthy() bool {
	if client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err() == nil
}

// Attempts counts failed attempts per key; a counter expires window after its first failure
type Attempts struct{}

// Failures returns the current count. Returns ErrUnavailable without redis.
func (Attempts) Failures(ctx context.Context, key string) (int64, error) {
	if client == nil {
		return 0, ErrUnavailable
	}
	n, err := client.Get(ctx, "attempts:"+key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (Attempts) Fail(ctx context.Context, key string, window time.Duration) error {
	if client == nil {
		return ErrUnavailable
	}
	n, err := client.Incr(ctx, "attempts:"+key).Result()
	if err != nil {
		return err
	}
	if n == 1 {
		return client.Expire(ctx, "attempts:"+key, window).Err()
	}
	return nil
}

// Reset clears a counter after a successful attempt
func (Attempts) Reset(ctx context.Context, key string) {
	if client == nil {
		return
	}
	client.Del(ctx, "attempts:"+key)
}

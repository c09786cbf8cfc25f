package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/Mohaabaprint/Teetot-Print/internal/domain"
	"github.com/redis/go-redis/v9"
)

// keyPrefix carries the payload version; bump it when domain.Cart's JSON
// shape changes so old entries are simply never read again.
const keyPrefix = "teetot:cart:v1:"

const (
	defaultTTL    = 15 * time.Minute
	defaultJitter = 5 * time.Minute
)

type RedisOption func(*RedisCache)

// WithTTL sets the base lifetime of an entry and the random extra added to it.
func WithTTL(base, jitter time.Duration) RedisOption {
	return func(r *RedisCache) {
		r.baseTTL = base
		r.jitter = jitter
	}
}

// RedisCache stores carts as JSON under one key per session. It accepts any
// go-redis client so a cluster or sentinel setup works unchanged.
type RedisCache struct {
	client  redis.UniversalClient
	baseTTL time.Duration
	jitter  time.Duration
}

func NewRedisCache(client redis.UniversalClient, opts ...RedisOption) *RedisCache {
	r := &RedisCache{client: client, baseTTL: defaultTTL, jitter: defaultJitter}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns ErrCacheMiss for absent keys and for entries that no longer
// decode; the latter are evicted.
func (r *RedisCache) Get(ctx context.Context, sessionID string) (*domain.Cart, error) {
	key := cacheKey(sessionID)
	data, err := r.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, ErrCacheMiss
	case err != nil:
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil || cart.SessionID != sessionID {
		_ = r.client.Del(ctx, key).Err()
		return nil, ErrCacheMiss
	}
	return &cart, nil
}

func (r *RedisCache) Set(ctx context.Context, sessionID string, cart *domain.Cart) error {
	payload, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart %s: %w", sessionID, err)
	}

	if err := r.client.Set(ctx, cacheKey(sessionID), payload, r.ttl()).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", cacheKey(sessionID), err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, cacheKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", cacheKey(sessionID), err)
	}
	return nil
}

// ttl spreads expiry so carts cached together do not all reload together.
func (r *RedisCache) ttl() time.Duration {
	if r.jitter <= 0 {
		return r.baseTTL
	}
	return r.baseTTL + time.Duration(rand.Int63n(int64(r.jitter)))
}

func cacheKey(sessionID string) string {
	return keyPrefix + sessionID
}

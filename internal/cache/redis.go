// Package cache provides Redis caching utilities for the application.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"snapgram/internal/observability"

	"github.com/redis/go-redis/v9"
)

type metricsHook struct{}

func (h metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrors.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (h metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrors.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

// Connect builds a Redis client for addr ("host:port" or a redis:// URL) and
// pings it. A nil client is returned when Redis is unreachable; every Cache
// method treats a nil client as a cache miss.
func Connect(addr string) *redis.Client {
	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			log.Printf("Redis connection warning: invalid REDIS_URL %q: %v (continuing without cache)", addr, err)
			return nil
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)
	client.AddHook(metricsHook{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Redis connection warning: %v (continuing without cache)", err)
		_ = client.Close()
		return nil
	}
	log.Println("Redis connected successfully")
	return client
}

// Cache is a nil-safe JSON cache over Redis.
type Cache struct {
	client *redis.Client
}

// New wraps client. client may be nil, which disables caching.
func New(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Client returns the underlying Redis client, which may be nil.
func (c *Cache) Client() *redis.Client {
	if c == nil {
		return nil
	}
	return c.client
}

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if c.Client() == nil {
		return false, nil
	}
	s, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if c.Client() == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, b, ttl).Err()
}

// Aside tries Redis first; on a miss it calls fetch (which must populate dest)
// and stores the result with ttl. Redis failures degrade to calling fetch.
func (c *Cache) Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	found, err := c.GetJSON(ctx, key, dest)
	if err == nil && found {
		return nil
	}

	if err := fetch(); err != nil {
		return err
	}

	_ = c.SetJSON(ctx, key, dest, ttl)
	return nil
}

// Invalidate deletes key. Errors are ignored; a stale entry expires with its TTL.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if c.Client() == nil || len(keys) == 0 {
		return
	}
	c.client.Del(ctx, keys...)
}

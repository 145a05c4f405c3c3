// Package query caches the results of read operations by key, collapses
// concurrent identical reads into one call, and drops cached results when a
// mutation invalidates their entity.
package query

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"snapgram/internal/observability"

	"golang.org/x/sync/singleflight"
)

// Key identifies a query. The first element is the entity ("posts", "users").
type Key []string

// Entity returns the entity the key belongs to.
func (k Key) Entity() string {
	if len(k) == 0 {
		return ""
	}
	return k[0]
}

func (k Key) String() string {
	return strings.Join(k, "/")
}

type entry struct {
	value     any
	fetchedAt time.Time
}

// Client is a keyed query cache.
type Client struct {
	mu       sync.Mutex
	entries  map[string]*entry
	gens     map[string]uint64
	inflight map[string]int
	group    singleflight.Group

	staleTime time.Duration
	now       func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithStaleTime expires cached entries after d. The default keeps entries
// until they are invalidated.
func WithStaleTime(d time.Duration) Option {
	return func(c *Client) { c.staleTime = d }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient returns an empty Client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		entries:  make(map[string]*entry),
		gens:     make(map[string]uint64),
		inflight: make(map[string]int),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the cached value for key, or runs fn and caches its result.
// Concurrent Fetch calls for the same key share one fn call. A result whose
// entity was invalidated while fn ran is returned but not cached.
func Fetch[T any](ctx context.Context, c *Client, key Key, fn func(ctx context.Context) (T, error)) (T, error) {
	if v, ok := Peek[T](c, key); ok {
		observability.QueryCacheEvents.WithLabelValues(key.Entity(), "hit").Inc()
		return v, nil
	}
	observability.QueryCacheEvents.WithLabelValues(key.Entity(), "miss").Inc()

	v, err := run(ctx, c, key, "fetch", func(ctx context.Context, gen uint64) (any, error) {
		out, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		c.store(key, gen, out)
		return out, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// run executes fn once per (key, purpose, generation) across concurrent callers.
func run(ctx context.Context, c *Client, key Key, purpose string, fn func(ctx context.Context, gen uint64) (any, error)) (any, error) {
	ks := key.String()
	c.mu.Lock()
	gen := c.gens[key.Entity()]
	c.mu.Unlock()

	flight := ks + "#" + purpose + "#" + strconv.FormatUint(gen, 10)
	v, err, shared := c.group.Do(flight, func() (any, error) {
		c.mu.Lock()
		c.inflight[ks]++
		c.mu.Unlock()
		defer func() {
			c.mu.Lock()
			if c.inflight[ks]--; c.inflight[ks] <= 0 {
				delete(c.inflight, ks)
			}
			c.mu.Unlock()
		}()
		return fn(ctx, gen)
	})
	if shared {
		observability.QueryCacheEvents.WithLabelValues(key.Entity(), "shared").Inc()
	}
	return v, err
}

// store caches value under key unless the entity was invalidated after gen.
func (c *Client) store(key Key, gen uint64, value any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[key.Entity()] != gen {
		return false
	}
	c.entries[key.String()] = &entry{value: value, fetchedAt: c.now()}
	return true
}

// Peek returns the cached value for key without fetching.
func Peek[T any](c *Client, key Key) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	e, ok := c.entries[key.String()]
	if !ok {
		return zero, false
	}
	if c.staleTime > 0 && c.now().Sub(e.fetchedAt) > c.staleTime {
		delete(c.entries, key.String())
		return zero, false
	}
	v, ok := e.value.(T)
	return v, ok
}

// SetData replaces the cached value for key.
func SetData[T any](c *Client, key Key, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key.String()] = &entry{value: value, fetchedAt: c.now()}
}

// IsFetching reports whether a call for key is in flight.
func (c *Client) IsFetching(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight[key.String()] > 0
}

// Invalidate drops every cached entry of the given entities. Calls already in
// flight for them will not populate the cache.
func (c *Client) Invalidate(entities ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, entity := range entities {
		c.gens[entity]++
		prefix := entity + "/"
		for k := range c.entries {
			if k == entity || strings.HasPrefix(k, prefix) {
				delete(c.entries, k)
			}
		}
		observability.QueryCacheEvents.WithLabelValues(entity, "invalidated").Inc()
	}
}

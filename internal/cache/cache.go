// Package cache memoizes remote lookups for a fixed time-to-live.
//
// A Cache is an explicit object injected into the components that need it;
// there is no package-level state. Entries expire lazily on access, and an
// optional janitor (Run) sweeps expired entries in the background. Misses for
// the same key can be coalesced so that concurrent identical queries trigger
// a single remote call. An optional Store (see RedisStore) adds a shared
// second tier so several replicas reuse each other's results.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"streetcrime/internal/types"

	"golang.org/x/sync/singleflight"
)

// Store is a shared second-tier cache. Values are opaque JSON documents.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Recorder receives hit/miss observations per key namespace.
type Recorder interface {
	RecordCacheLookup(namespace string, hit bool)
}

type entry struct {
	value    any
	storedAt time.Time
}

// Options configures a Cache.
type Options struct {
	TTL      time.Duration
	Coalesce bool
	// ComputeTimeout bounds a coalesced compute. Zero means
	// DefaultComputeTimeout.
	ComputeTimeout time.Duration
	Clock          types.Clock
	Store          Store
	Recorder       Recorder
	Logger         *slog.Logger
}

// DefaultComputeTimeout applies when Options.ComputeTimeout is unset.
const DefaultComputeTimeout = 30 * time.Second

// Cache is a TTL-bounded in-memory map guarded by a single mutex. It is safe
// for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry

	ttl            time.Duration
	coalesce       bool
	computeTimeout time.Duration
	flight         singleflight.Group
	clock          types.Clock
	store          Store
	recorder       Recorder
	logger         *slog.Logger
}

// New creates a Cache. A non-positive TTL disables memoization: every lookup
// recomputes.
func New(opts Options) *Cache {
	clock := opts.Clock
	if clock == nil {
		clock = types.RealClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	computeTimeout := opts.ComputeTimeout
	if computeTimeout <= 0 {
		computeTimeout = DefaultComputeTimeout
	}
	return &Cache{
		entries:        make(map[string]entry),
		ttl:            opts.TTL,
		coalesce:       opts.Coalesce,
		computeTimeout: computeTimeout,
		clock:          clock,
		store:          opts.Store,
		recorder:       opts.Recorder,
		logger:         logger,
	}
}

// TTL returns the configured entry lifetime.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns the live value for key. Expired entries are removed and
// reported as absent.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.expired(e) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key, stamped with the current time.
func (c *Cache) Set(key string, value any) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = entry{value: value, storedAt: c.clock.Now()}
	c.mu.Unlock()
}

// Delete removes key if present.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len returns the number of stored entries, including expired ones not yet
// swept.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Sweep removes every expired entry and returns how many were dropped.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		if c.expired(e) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Run sweeps expired entries every interval until ctx is cancelled.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				c.logger.Debug("cache sweep", "removed", n)
			}
		}
	}
}

func (c *Cache) expired(e entry) bool {
	return c.clock.Now().Sub(e.storedAt) >= c.ttl
}

func (c *Cache) record(key string, hit bool) {
	if c.recorder == nil {
		return
	}
	ns, _, _ := strings.Cut(key, ":")
	c.recorder.RecordCacheLookup(ns, hit)
}

// GetOrCompute returns the live value cached under key, or calls compute,
// stores its result and returns it. Errors from compute are returned and
// never cached.
//
// With coalescing enabled, concurrent misses for the same key share one
// compute call. That call runs on a context detached from every caller and
// bounded by the compute timeout, so cancelling one caller never fails the
// others. A cancelled caller stops waiting and gets its own ctx.Err().
func GetOrCompute[V any](ctx context.Context, c *Cache, key string, compute func(context.Context) (V, error)) (V, error) {
	var zero V
	if v, ok := c.Get(key); ok {
		if typed, ok := v.(V); ok {
			c.record(key, true)
			return typed, nil
		}
	}
	c.record(key, false)

	load := func(ctx context.Context) (any, error) {
		// Another caller may have filled the entry while we waited.
		if v, ok := c.Get(key); ok {
			if typed, ok := v.(V); ok {
				return typed, nil
			}
		}

		if v, ok := loadFromStore[V](ctx, c, key); ok {
			c.Set(key, v)
			return v, nil
		}

		v, err := compute(ctx)
		if err != nil {
			return v, err
		}
		c.Set(key, v)
		saveToStore(ctx, c, key, v)
		return v, nil
	}

	if !c.coalesce {
		res, err := load(ctx)
		if err != nil {
			return zero, err
		}
		return res.(V), nil
	}

	ch := c.flight.DoChan(key, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.computeTimeout)
		defer cancel()
		return load(shared)
	})
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(V), nil
	}
}

func loadFromStore[V any](ctx context.Context, c *Cache, key string) (V, bool) {
	var v V
	if c.store == nil || c.ttl <= 0 {
		return v, false
	}
	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.WarnContext(ctx, "shared cache read failed", "key", key, "error", err)
		return v, false
	}
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		c.logger.WarnContext(ctx, "shared cache entry undecodable", "key", key, "error", err)
		return v, false
	}
	return v, true
}

func saveToStore[V any](ctx context.Context, c *Cache, key string, v V) {
	if c.store == nil || c.ttl <= 0 {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.WarnContext(ctx, "shared cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.WarnContext(ctx, "shared cache write failed", "key", key, "error", err)
	}
}

// Key builds a cache key "namespace:part:part". Parts are query-escaped so a
// ':' inside a neighbourhood name cannot collide with the separator.
func Key(namespace string, parts ...string) string {
	var b strings.Builder
	b.WriteString(namespace)
	for _, p := range parts {
		b.WriteByte(':')
		b.WriteString(url.QueryEscape(p))
	}
	return b.String()
}

// PolygonDigest returns a short stable digest of a boundary for use as a key
// part.
func PolygonDigest(p types.Polygon) string {
	h := sha256.New()
	for _, c := range p {
		h.Write(strconv.AppendFloat(nil, c.Lat, 'f', -1, 64))
		h.Write([]byte{','})
		h.Write(strconv.AppendFloat(nil, c.Lon, 'f', -1, 64))
		h.Write([]byte{';'})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

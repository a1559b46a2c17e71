// Package cache implements the Response/Failure Cache (spec §4.2, C2): a
// small-value cache keyed by (fingerprint, source) recording both
// successful API responses and negative (failed-lookup) results, so
// downstream pipelines never repeat the same external-service query
// within its TTL window. Grounded on the teacher's pkg/history/cache
// (L1Cache/L2Cache two-tier split, redis.Nil handling, gzip-optional
// wire format) generalized from one hardcoded response type to any
// JSON-marshalable payload.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cmdarr/cmdarr/internal/store"
)

// ErrNotFound is returned by Get when there is no live entry. IsFailed
// reports a missing or expired failure row as failed=false with a nil error.
var ErrNotFound = errors.New("cache: not found")

// Cache is the Response/Failure Cache contract.
type Cache interface {
	// Get fetches a cached response payload for (fingerprint, source),
	// unmarshaling it into out. Returns ErrNotFound on a miss.
	Get(ctx context.Context, fingerprint, source string, out any) error
	// Set stores value under (fingerprint, source) with the given TTL.
	Set(ctx context.Context, fingerprint, source string, value any, ttl time.Duration) error
	// IsFailed reports whether (fingerprint, source) was recently recorded
	// as a failed lookup, and if so, why.
	IsFailed(ctx context.Context, fingerprint, source string) (reason string, failed bool, err error)
	// MarkFailed records a negative lookup result for ttl.
	MarkFailed(ctx context.Context, fingerprint, source, reason string, ttl time.Duration) error
	// CleanupExpired purges expired entries from the persistent tier and
	// returns the number removed.
	CleanupExpired(ctx context.Context) (int, error)
	// ClearSource drops every entry (response and failure) for source.
	ClearSource(ctx context.Context, source string) (int, error)
	// Stats reports in-process hit/miss counters for source, for
	// GET /api/status/cache (spec §6). Counters are not persisted and
	// reset on restart, matching the original "per-process" semantics.
	Stats(source string) CacheStats
	// ResetStats zeroes every source's hit/miss counters (spec §6
	// POST /api/status/cache/reset).
	ResetStats()
	Close() error
}

// CacheStats is one service's hit/miss tally since the last reset.
type CacheStats struct {
	Hits   int64
	Misses int64
}

// statsTracker records per-source hit/miss counts in memory. Embedded by
// both backends so the counters stay meaningful regardless of which
// storage tier actually served the lookup.
type statsTracker struct {
	counters sync.Map // string -> *[2]atomic.Int64 (hits, misses)
}

func (t *statsTracker) countersFor(source string) *[2]atomic.Int64 {
	v, _ := t.counters.LoadOrStore(source, &[2]atomic.Int64{})
	return v.(*[2]atomic.Int64)
}

func (t *statsTracker) recordHit(source string)  { t.countersFor(source)[0].Add(1) }
func (t *statsTracker) recordMiss(source string) { t.countersFor(source)[1].Add(1) }

func (t *statsTracker) Stats(source string) CacheStats {
	c := t.countersFor(source)
	return CacheStats{Hits: c[0].Load(), Misses: c[1].Load()}
}

func (t *statsTracker) ResetStats() {
	t.counters.Range(func(key, _ any) bool {
		t.counters.Delete(key)
		return true
	})
}

// key joins a fingerprint and source the way every backend namespaces
// entries, e.g. "lastfm:a1b2c3".
func key(source, fingerprint string) string {
	return source + ":" + fingerprint
}

func failKey(source, fingerprint string) string {
	return source + ":fail:" + fingerprint
}

// New selects a backend by deployment profile: Redis for "standard",
// the shared SQL store for "lite" (spec §4.2: "Lite profile MAY use the
// embedded store instead of requiring Redis").
func New(profile, redisAddr string, db store.Store, logger *slog.Logger) (Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if profile == "standard" && redisAddr != "" {
		return newRedisCache(redisAddr, logger)
	}
	return newSQLCache(db, logger), nil
}

type redisCache struct {
	client *redis.Client
	logger *slog.Logger
	statsTracker
}

func newRedisCache(addr string, logger *slog.Logger) (*redisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		MaxRetries:   3,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	logger.Info("response cache initialized", "backend", "redis", "addr", addr)
	return &redisCache{client: client, logger: logger}, nil
}

func (c *redisCache) Get(ctx context.Context, fingerprint, source string, out any) error {
	data, err := c.client.Get(ctx, key(source, fingerprint)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.recordMiss(source)
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("redis get: %w", err)
	}
	c.recordHit(source)
	return json.Unmarshal(data, out)
}

func (c *redisCache) Set(ctx context.Context, fingerprint, source string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	return c.client.Set(ctx, key(source, fingerprint), data, ttl).Err()
}

func (c *redisCache) IsFailed(ctx context.Context, fingerprint, source string) (string, bool, error) {
	reason, err := c.client.Get(ctx, failKey(source, fingerprint)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return reason, true, nil
}

func (c *redisCache) MarkFailed(ctx context.Context, fingerprint, source, reason string, ttl time.Duration) error {
	return c.client.Set(ctx, failKey(source, fingerprint), reason, ttl).Err()
}

func (c *redisCache) CleanupExpired(ctx context.Context) (int, error) {
	// Redis expires keys natively via TTL; nothing to sweep.
	return 0, nil
}

func (c *redisCache) ClearSource(ctx context.Context, source string) (int, error) {
	var cursor uint64
	var deleted int
	for _, pattern := range []string{source + ":*", source + ":fail:*"} {
		cursor = 0
		for {
			keys, next, err := c.client.Scan(ctx, cursor, pattern, 200).Result()
			if err != nil {
				return deleted, fmt.Errorf("redis scan: %w", err)
			}
			if len(keys) > 0 {
				if err := c.client.Del(ctx, keys...).Err(); err != nil {
					return deleted, fmt.Errorf("redis del: %w", err)
				}
				deleted += len(keys)
			}
			cursor = next
			if cursor == 0 {
				break
			}
		}
	}
	return deleted, nil
}

func (c *redisCache) Close() error { return c.client.Close() }

// sqlCache is the Lite-profile fallback: entries persisted through the
// shared store.Store rather than Redis.
type sqlCache struct {
	db     store.Store
	logger *slog.Logger
	statsTracker
}

func newSQLCache(db store.Store, logger *slog.Logger) *sqlCache {
	logger.Info("response cache initialized", "backend", "sqlite")
	return &sqlCache{db: db, logger: logger}
}

func (c *sqlCache) Get(ctx context.Context, fingerprint, source string, out any) error {
	row, err := c.db.GetCacheEntry(ctx, fingerprint, source)
	if errors.Is(err, sql.ErrNoRows) {
		c.recordMiss(source)
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get cache entry: %w", err)
	}
	if !time.Now().UTC().Before(row.ExpiresAt) {
		c.recordMiss(source)
		return ErrNotFound
	}
	c.recordHit(source)
	return json.Unmarshal(row.Payload, out)
}

func (c *sqlCache) Set(ctx context.Context, fingerprint, source string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	now := time.Now().UTC()
	return c.db.SetCacheEntry(ctx, store.CacheEntryRow{
		Fingerprint: fingerprint,
		Source:      source,
		Payload:     data,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	})
}

func (c *sqlCache) IsFailed(ctx context.Context, fingerprint, source string) (string, bool, error) {
	row, err := c.db.GetFailedLookup(ctx, fingerprint, source)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get failed lookup: %w", err)
	}
	if !time.Now().UTC().Before(row.ExpiresAt) {
		return "", false, nil
	}
	return row.ErrorReason, true, nil
}

func (c *sqlCache) MarkFailed(ctx context.Context, fingerprint, source, reason string, ttl time.Duration) error {
	now := time.Now().UTC()
	return c.db.SetFailedLookup(ctx, store.FailedLookupRow{
		Fingerprint: fingerprint,
		Source:      source,
		ErrorReason: reason,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	})
}

func (c *sqlCache) CleanupExpired(ctx context.Context) (int, error) {
	return c.db.CleanupExpiredCache(ctx, time.Now().UTC())
}

func (c *sqlCache) ClearSource(ctx context.Context, source string) (int, error) {
	return c.db.ClearCacheSource(ctx, source)
}

func (c *sqlCache) Close() error { return nil }

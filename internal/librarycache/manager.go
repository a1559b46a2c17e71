// Package librarycache implements the Library Cache (spec §4.3, C3): a
// persisted, optionally memory-tiered materialised catalogue per
// (service, library) key, plus the ranked multi-strategy track matcher
// used by the playlist-sync pipeline. Grounded structurally on the
// teacher's internal/storage persist+memory-tier split and
// pkg/history/cache/l1_cache.go's byte-budget-gated memoization;
// the snapshot/index/matcher algorithm itself is prescribed by spec §4.3.
package librarycache

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

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cmdarr/cmdarr/internal/store"
)

const schemaVersion = 1

// bytesPerByteEstimateFactor approximates in-memory overhead over the
// JSON-encoded snapshot size (struct overhead, map buckets, string headers).
const bytesPerByteEstimateFactor = 1.5

// BuildFunc fetches a fresh snapshot from the owning media-server client.
type BuildFunc func(ctx context.Context, service, libraryKey string) (*Snapshot, error)

// IncrementalFunc fetches tracks added/changed since `since`, for
// SmartRefresh. Returns an empty slice when the client has nothing new.
type IncrementalFunc func(ctx context.Context, service, libraryKey string, since time.Time) ([]Track, error)

// VerifyFunc reports whether each sampled track id still exists upstream.
type VerifyFunc func(ctx context.Context, service, libraryKey string, ids []string) (map[string]bool, error)

type cacheKey struct {
	service    string
	libraryKey string
}

// Manager is the Library Cache contract (C3).
type Manager struct {
	db     store.Store
	ttl    time.Duration
	policy MatchingPolicy
	maxMem int64
	logger *slog.Logger

	mu        sync.RWMutex
	batch     bool
	memory    *lru.Cache[cacheKey, *Snapshot]
	memoryLen int64 // running estimate of memory-tier byte usage

	stats sync.Map // cacheKey.service -> *serviceStats
}

type serviceStats struct {
	hits   atomic.Int64
	misses atomic.Int64
}

// New constructs a Manager. maxMemoryBytes bounds the estimated size of
// everything held in the memory tier during BatchMode.
func New(db store.Store, ttl time.Duration, maxMemoryBytes int64, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	// capacity is a belt-and-suspenders entry-count cap alongside the byte
	// estimator; 256 libraries resident at once comfortably covers any
	// realistic deployment's BatchMode window.
	memCache, _ := lru.New[cacheKey, *Snapshot](256)
	return &Manager{
		db:     db,
		ttl:    ttl,
		policy: DefaultMatchingPolicy(),
		maxMem: maxMemoryBytes,
		logger: logger,
		memory: memCache,
	}
}

// BatchMode brackets a multi-command run, keeping snapshots resident in
// memory for its duration.
func (m *Manager) BatchMode() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batch = true
}

// EndBatch ends the batch window and drops the memory tier.
func (m *Manager) EndBatch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batch = false
	m.memory.Purge()
	m.memoryLen = 0
}

// Get returns the cached snapshot for (service, libraryKey), checking the
// memory tier first when BatchMode is active, else the persistent tier.
// An expired persistent row is treated as a miss.
func (m *Manager) Get(ctx context.Context, service, libraryKey string) (*Snapshot, error) {
	key := cacheKey{service, libraryKey}

	m.mu.RLock()
	inBatch := m.batch
	m.mu.RUnlock()

	if inBatch {
		if snap, ok := m.memory.Get(key); ok {
			m.recordHit(service)
			return snap, nil
		}
	}

	row, err := m.db.GetLibraryCache(ctx, service, libraryKey)
	if errors.Is(err, sql.ErrNoRows) {
		m.recordMiss(service)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get library cache for %s/%s: %w", service, libraryKey, err)
	}
	if !time.Now().UTC().Before(row.ExpiresAt) {
		m.recordMiss(service)
		return nil, nil
	}

	var snap Snapshot
	if err := json.Unmarshal(row.Payload, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal library snapshot: %w", err)
	}
	m.recordHit(service)

	if inBatch {
		m.maybeMemoize(key, &snap, len(row.Payload))
	}
	return &snap, nil
}

// Set upserts a snapshot into both tiers.
func (m *Manager) Set(ctx context.Context, service, libraryKey string, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal library snapshot: %w", err)
	}
	now := time.Now().UTC()
	if err := m.db.UpsertLibraryCache(ctx, store.LibraryCacheRow{
		Service:       service,
		LibraryKey:    libraryKey,
		SchemaVersion: schemaVersion,
		Payload:       data,
		TrackCount:    snap.TotalTracks,
		CreatedAt:     now,
		ExpiresAt:     now.Add(m.ttl),
	}); err != nil {
		return err
	}

	m.mu.RLock()
	inBatch := m.batch
	m.mu.RUnlock()
	if inBatch {
		m.maybeMemoize(cacheKey{service, libraryKey}, snap, len(data))
	}
	return nil
}

func (m *Manager) maybeMemoize(key cacheKey, snap *Snapshot, payloadBytes int) {
	estimate := int64(float64(payloadBytes) * bytesPerByteEstimateFactor)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.memoryLen+estimate > m.maxMem {
		m.logger.Debug("library cache memory ceiling would be breached, skipping memoization",
			"service", key.service, "library_key", key.libraryKey, "estimate_bytes", estimate)
		return
	}
	m.memory.Add(key, snap)
	m.memoryLen += estimate
}

// Build calls build for (service, libraryKey) and persists the result.
func (m *Manager) Build(ctx context.Context, service, libraryKey string, build BuildFunc) (*Snapshot, error) {
	snap, err := build(ctx, service, libraryKey)
	if err != nil {
		return nil, fmt.Errorf("building library cache for %s/%s: %w", service, libraryKey, err)
	}
	if err := m.Set(ctx, service, libraryKey, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// SmartRefresh does an incremental update when a snapshot already exists,
// or a full Build otherwise.
func (m *Manager) SmartRefresh(ctx context.Context, service, libraryKey string, build BuildFunc, incremental IncrementalFunc) (*Snapshot, error) {
	existing, err := m.Get(ctx, service, libraryKey)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return m.Build(ctx, service, libraryKey, build)
	}

	since := time.Now().UTC().Add(-36 * time.Hour)
	changed, err := incremental(ctx, service, libraryKey, since)
	if err != nil {
		return nil, fmt.Errorf("incremental refresh for %s/%s: %w", service, libraryKey, err)
	}

	for _, t := range changed {
		if prior := existing.ByID(t.ID); prior == nil || ChangedFields(*prior, t) {
			existing.Upsert(t)
		}
	}
	existing.BuiltAt = time.Now().UTC()

	if err := m.Set(ctx, service, libraryKey, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// VerifyAndRefresh samples the snapshot's ids through verify; if more than
// 20% no longer exist upstream, invalidates and rebuilds via build.
func (m *Manager) VerifyAndRefresh(ctx context.Context, service, libraryKey string, sampleIDs []string, verify VerifyFunc, build BuildFunc) (*Snapshot, bool, error) {
	if len(sampleIDs) == 0 {
		snap, err := m.Get(ctx, service, libraryKey)
		return snap, false, err
	}

	exists, err := verify(ctx, service, libraryKey, sampleIDs)
	if err != nil {
		return nil, false, fmt.Errorf("verifying tracks for %s/%s: %w", service, libraryKey, err)
	}

	missing := 0
	for _, id := range sampleIDs {
		if !exists[id] {
			missing++
		}
	}
	if float64(missing)/float64(len(sampleIDs)) <= 0.2 {
		snap, err := m.Get(ctx, service, libraryKey)
		return snap, false, err
	}

	m.logger.Info("library cache verification failed threshold, rebuilding",
		"service", service, "library_key", libraryKey, "missing", missing, "sampled", len(sampleIDs))
	snap, err := m.Build(ctx, service, libraryKey, build)
	return snap, true, err
}

// Cleanup deletes expired snapshots from the persistent tier.
func (m *Manager) Cleanup(ctx context.Context) (int, error) {
	return m.db.DeleteExpiredLibraryCache(ctx, time.Now().UTC())
}

// Stats returns hit/miss counters for service.
func (m *Manager) Stats(service string) Stats {
	v, ok := m.stats.Load(service)
	if !ok {
		return Stats{Service: service}
	}
	s := v.(*serviceStats)
	return Stats{Service: service, Hits: s.hits.Load(), Misses: s.misses.Load()}
}

func (m *Manager) recordHit(service string) { m.statsFor(service).hits.Add(1) }
func (m *Manager) recordMiss(service string) { m.statsFor(service).misses.Add(1) }

func (m *Manager) statsFor(service string) *serviceStats {
	v, _ := m.stats.LoadOrStore(service, &serviceStats{})
	return v.(*serviceStats)
}

// Policy exposes the matching policy in effect, for lookup callers.
func (m *Manager) Policy() MatchingPolicy { return m.policy }

// SetPolicy overrides the matching policy. No C1 configuration key is read
// into it and nothing in this module calls it, so DefaultMatchingPolicy
// applies.
func (m *Manager) SetPolicy(p MatchingPolicy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policy = p
}

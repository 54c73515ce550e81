// Package cache implements the content-addressed, TTL-bound decision cache.
//
// Entries are keyed by context fingerprint and survive process restarts in
// sqlite. Expiry is lazy: a get past expiresAt is a miss, but the row stays
// until an explicit Sweep or the next overwrite of the key. hitCount is
// monotonically non-decreasing and carries over when a key is overwritten.
package cache

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"verdict/internal/logging"
	"verdict/internal/storage"
)

// DefaultHotEntries is the default size of the in-memory hot layer
const DefaultHotEntries = 1024

// Entry is one cached decision
type Entry struct {
	Key        string    `json:"key"`
	Decision   string    `json:"decision"`
	Rationale  string    `json:"rationale"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"createdAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
	HitCount   int64     `json:"hitCount"`
}

// Cache is a durable decision cache with an LRU hot layer in front of sqlite.
// sqlite is the source of truth; warm reads are served from the hot layer
// once a counting UPDATE has proven the row live.
type Cache struct {
	db     *storage.DB
	logger *logging.Logger
	hot    *lru.Cache[string, Entry]

	// mu serializes writes so a Put and the hit-count bump of a concurrent
	// Get on the same key cannot interleave destructively. Reads that miss
	// the write path run lock-free against sqlite.
	mu  sync.Mutex
	now func() time.Time
}

// New creates a decision cache backed by db. hotEntries <= 0 uses the default.
func New(db *storage.DB, logger *logging.Logger, hotEntries int) (*Cache, error) {
	if hotEntries <= 0 {
		hotEntries = DefaultHotEntries
	}
	hot, err := lru.New[string, Entry](hotEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create hot layer: %w", err)
	}
	return &Cache{
		db:     db,
		logger: logger,
		hot:    hot,
		now:    time.Now,
	}, nil
}

// SetClock overrides the cache's time source. Used by tests to simulate
// TTL expiry without sleeping.
func (c *Cache) SetClock(now func() time.Time) {
	c.now = now
}

// Put stores a decision under key with expiresAt = now + ttl.
// If the key already exists, the new entry inherits the old hitCount;
// otherwise hitCount starts at zero.
func (c *Cache) Put(key, decision, rationale string, confidence float64, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive, got %v", ttl)
	}
	if confidence < 0 || confidence > 1 {
		return fmt.Errorf("confidence must be in [0,1], got %v", confidence)
	}
	// Stored timestamps have second granularity; a sub-second ttl would
	// truncate to expires_at == created_at. One second is the floor.
	if ttl < time.Second {
		ttl = time.Second
	}

	now := c.now().UTC()
	expires := now.Add(ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	// Upsert leaves hit_count untouched on conflict, so it carries over
	// across overwrites of the same key; fresh rows default to zero.
	_, err := c.db.Exec(`
		INSERT INTO decision_cache (key, decision, rationale, confidence, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			decision = excluded.decision,
			rationale = excluded.rationale,
			confidence = excluded.confidence,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`, key, decision, rationale, confidence, now.Format(time.RFC3339), expires.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}

	c.hot.Remove(key) // next Peek re-reads the authoritative row
	return nil
}

// Get returns the entry for key if present and not expired, incrementing and
// persisting hitCount. An expired or absent key is a miss; expired rows are
// NOT removed here — eviction is explicit.
func (c *Cache) Get(key string) (*Entry, bool, error) {
	now := c.now().UTC().Format(time.RFC3339)

	c.mu.Lock()
	defer c.mu.Unlock()

	// Single in-place UPDATE so concurrent gets never lose increments.
	res, err := c.db.Exec(`
		UPDATE decision_cache
		SET hit_count = hit_count + 1
		WHERE key = ? AND expires_at > ?
	`, key, now)
	if err != nil {
		return nil, false, fmt.Errorf("cache lookup failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("cache lookup failed: %w", err)
	}
	if affected == 0 {
		return nil, false, nil
	}

	// The row exists and is unexpired, so a hot entry for this key mirrors
	// it apart from the hit count. All mutations run under mu, so bumping
	// the hot copy keeps it in step with the UPDATE above.
	if entry, ok := c.hot.Get(key); ok {
		entry.HitCount++
		c.hot.Add(key, entry)
		return &entry, true, nil
	}

	entry, err := c.readEntry(key)
	if err != nil {
		return nil, false, err
	}
	c.hot.Add(key, *entry)
	return entry, true, nil
}

// Peek returns the entry for key without counting a hit and without the
// expiry check applied to the row's presence: callers get whatever is
// stored, expired or not. Served from the hot layer when possible.
func (c *Cache) Peek(key string) (*Entry, bool, error) {
	if entry, ok := c.hot.Get(key); ok {
		return &entry, true, nil
	}

	entry, err := c.readEntry(key)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	c.hot.Add(key, *entry)
	return entry, true, nil
}

// readEntry fetches one row. Returns sql.ErrNoRows when absent.
func (c *Cache) readEntry(key string) (*Entry, error) {
	var entry Entry
	var createdAt, expiresAt string

	err := c.db.QueryRow(`
		SELECT key, decision, rationale, confidence, created_at, expires_at, hit_count
		FROM decision_cache
		WHERE key = ?
	`, key).Scan(&entry.Key, &entry.Decision, &entry.Rationale, &entry.Confidence,
		&createdAt, &expiresAt, &entry.HitCount)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	entry.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at format: %w", err)
	}
	entry.ExpiresAt, err = time.Parse(time.RFC3339, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("invalid expires_at format: %w", err)
	}

	return &entry, nil
}

// Sweep removes all expired entries. This is the explicit eviction path;
// misses never delete.
func (c *Cache) Sweep() (int64, error) {
	now := c.now().UTC().Format(time.RFC3339)

	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.db.Exec(`DELETE FROM decision_cache WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep cache: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to sweep cache: %w", err)
	}

	c.hot.Purge()

	if removed > 0 {
		c.logger.Debug("Swept expired cache entries", map[string]interface{}{
			"removed": removed,
		})
	}

	return removed, nil
}

// Stats summarizes cache usage
type Stats struct {
	Entries    int64 `json:"entries"`
	Expired    int64 `json:"expired"`
	TotalHits  int64 `json:"totalHits"`
	SizeBytes  int64 `json:"sizeBytes"`
	HotEntries int   `json:"hotEntries"`
}

// GetStats returns statistics about cache usage
func (c *Cache) GetStats() (*Stats, error) {
	now := c.now().UTC().Format(time.RFC3339)

	stats := &Stats{HotEntries: c.hot.Len()}
	err := c.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN expires_at <= ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(hit_count), 0),
			COALESCE(SUM(LENGTH(decision) + LENGTH(rationale)), 0)
		FROM decision_cache
	`, now).Scan(&stats.Entries, &stats.Expired, &stats.TotalHits, &stats.SizeBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to get cache stats: %w", err)
	}

	return stats, nil
}

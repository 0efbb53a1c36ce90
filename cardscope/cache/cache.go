package cache

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

type entry struct {
	value    any
	storedAt time.Time
	ttl      time.Duration
}

func (e entry) expired(now time.Time) bool {
	return now.Sub(e.storedAt) > e.ttl
}

// Stats reports cache effectiveness for the usage endpoint.
type Stats struct {
	QueryEntries int   `json:"query_entries"`
	TextEntries  int   `json:"text_entries"`
	Hits         int64 `json:"hits"`
	Misses       int64 `json:"misses"`
}

// Cache holds two TTL stores: query results keyed by search query, and text
// fingerprints keyed by normalized scan text. Entries carry their own TTL and
// are evicted lazily on read plus periodically by the sweeper. LRU backing
// bounds memory if the sweep falls behind.
type Cache struct {
	mu       sync.Mutex
	queries  *lru.Cache
	texts    *lru.Cache
	queryTTL time.Duration
	textTTL  time.Duration
	now      func() time.Time
	hits     int64
	misses   int64
}

func New(size int, queryTTL, textTTL time.Duration) *Cache {
	return NewWithClock(size, queryTTL, textTTL, time.Now)
}

// NewWithClock injects the clock for deterministic expiry tests.
func NewWithClock(size int, queryTTL, textTTL time.Duration, now func() time.Time) *Cache {
	if size <= 0 {
		size = 1024
	}
	queries, _ := lru.New(size)
	texts, _ := lru.New(size)
	return &Cache{
		queries:  queries,
		texts:    texts,
		queryTTL: queryTTL,
		textTTL:  textTTL,
		now:      now,
	}
}

// Get returns the cached value for a query, evicting it when expired.
func (c *Cache) Get(query string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, ok := c.queries.Get(query)
	if !ok {
		c.misses++
		return nil, false
	}
	e := raw.(entry)
	if e.expired(c.now()) {
		c.queries.Remove(query)
		c.misses++
		return nil, false
	}
	c.hits++
	return e.value, true
}

// Set stores a query result under the configured query TTL.
func (c *Cache) Set(query string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries.Add(query, entry{value: value, storedAt: c.now(), ttl: c.queryTTL})
}

// Contains reports whether a fresh entry exists without counting toward hit
// or miss statistics.
func (c *Cache) Contains(query string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, ok := c.queries.Peek(query)
	if !ok {
		return false
	}
	return !raw.(entry).expired(c.now())
}

// Fingerprint derives a stable key from scan text: lowercase, collapse
// whitespace, then a rolling polynomial hash over the runes.
func Fingerprint(text string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	var h int32
	for _, r := range normalized {
		h = (h << 5) - h + r
	}
	return strconv.FormatInt(int64(h), 10)
}

// SeenText reports whether this text fingerprint was recorded inside the text
// TTL.
func (c *Cache) SeenText(fingerprint string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, ok := c.texts.Get(fingerprint)
	if !ok {
		return false
	}
	if raw.(entry).expired(c.now()) {
		c.texts.Remove(fingerprint)
		return false
	}
	return true
}

// MarkText records a text fingerprint under the text TTL.
func (c *Cache) MarkText(fingerprint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts.Add(fingerprint, entry{value: struct{}{}, storedAt: c.now(), ttl: c.textTTL})
}

// Sweep removes expired entries from both stores and reports how many were
// dropped.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for _, store := range []*lru.Cache{c.queries, c.texts} {
		for _, key := range store.Keys() {
			raw, ok := store.Peek(key)
			if !ok {
				continue
			}
			if raw.(entry).expired(now) {
				store.Remove(key)
				removed++
			}
		}
	}
	return removed
}

// StartSweep runs Sweep on a ticker until the context ends.
func (c *Cache) StartSweep(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Sweep()
			}
		}
	}()
}

// Statistics snapshots entry counts and hit ratios.
func (c *Cache) Statistics() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		QueryEntries: c.queries.Len(),
		TextEntries:  c.texts.Len(),
		Hits:         c.hits,
		Misses:       c.misses,
	}
}

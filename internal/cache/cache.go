// Package cache memoises query results per drive. Entries live in an
// ordered map keyed "<driveTag>/<hash>" so every entry of one drive sits in
// a single key range that a write can drop in one sweep.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/driveindex/internal/timex"
	"github.com/google/uuid"
	"github.com/tidwall/btree"
	"golang.org/x/crypto/blake2b"
)

const (
	DefaultTTL        = 30 * time.Second
	DefaultMaxEntries = 1024
)

type Options struct {
	TTL        time.Duration
	MaxEntries int
	Clock      timex.Clock
}

type entry struct {
	value   any
	expires int64
}

// Cache is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries *btree.Map[string, entry]
	gens    map[string]uint64

	ttl   time.Duration
	max   int
	clock timex.Clock
}

func New(o Options) *Cache {
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.MaxEntries <= 0 {
		o.MaxEntries = DefaultMaxEntries
	}
	return &Cache{
		entries: btree.NewMap[string, entry](0),
		gens:    make(map[string]uint64),
		ttl:     o.TTL,
		max:     o.MaxEntries,
		clock:   o.Clock,
	}
}

// DriveTag identifies one drive of one identity inside the key space.
func DriveTag(identity, drive uuid.UUID) string {
	return hex.EncodeToString(identity[:]) + hex.EncodeToString(drive[:])
}

// Key hashes the JSON form of params under the drive's tag.
func Key(identity, drive uuid.UUID, kind string, params any) (string, error) {
	b, err := json.Marshal(struct {
		Kind   string `json:"kind"`
		Params any    `json:"params"`
	}{kind, params})
	if err != nil {
		return "", fmt.Errorf("cache key: %w", err)
	}
	sum := blake2b.Sum256(b)
	return DriveTag(identity, drive) + "/" + hex.EncodeToString(sum[:]), nil
}

// Generation reports the drive's invalidation counter. Read it before
// running the query whose result is later passed to Put.
func (c *Cache) Generation(driveTag string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[driveTag]
}

// Get returns the live value stored under key.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	if e.expires <= c.clock.UnixMilli() {
		c.entries.Delete(key)
		return nil, false
	}
	return e.value, true
}

// Put stores value unless the drive was invalidated after gen was read.
// It reports whether the value was stored.
func (c *Cache) Put(driveTag, key string, gen uint64, value any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gens[driveTag] != gen {
		return false
	}
	now := c.clock.UnixMilli()
	if _, exists := c.entries.Get(key); !exists && c.entries.Len() >= c.max {
		c.evict(now)
	}
	c.entries.Set(key, entry{value: value, expires: now + c.ttl.Milliseconds()})
	return true
}

// InvalidateDrive drops every entry of the drive and bumps its generation.
func (c *Cache) InvalidateDrive(identity, drive uuid.UUID) int {
	tag := DriveTag(identity, drive)
	prefix := tag + "/"

	c.mu.Lock()
	defer c.mu.Unlock()

	c.gens[tag]++

	var doomed []string
	c.entries.Ascend(prefix, func(k string, _ entry) bool {
		if len(k) < len(prefix) || k[:len(prefix)] != prefix {
			return false
		}
		doomed = append(doomed, k)
		return true
	})
	for _, k := range doomed {
		c.entries.Delete(k)
	}
	return len(doomed)
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// evict drops expired entries, then the one closest to expiry if the map
// is still full. Callers hold mu.
func (c *Cache) evict(now int64) {
	var (
		expired []string
		oldest  string
		oldExp  int64
	)
	c.entries.Scan(func(k string, e entry) bool {
		if e.expires <= now {
			expired = append(expired, k)
		} else if oldest == "" || e.expires < oldExp {
			oldest, oldExp = k, e.expires
		}
		return true
	})
	for _, k := range expired {
		c.entries.Delete(k)
	}
	if c.entries.Len() >= c.max && oldest != "" {
		c.entries.Delete(oldest)
	}
}

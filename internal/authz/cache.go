package authz

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultTTL is how long a built hierarchy table stays fresh.
const DefaultTTL = 5 * time.Minute

// RoleSource supplies the raw role snapshot for a tenant. The cache's rebuild
// step is its only caller.
type RoleSource interface {
	RoleSnapshot(ctx context.Context, tenant string) ([]Role, error)
}

type cacheEntry struct {
	table   HierarchyTable
	builtAt time.Time
}

// Cache memoizes one hierarchy table per tenant with a TTL. A stale entry is
// still served when a rebuild fails; with no prior entry an empty table is
// returned, which makes every authority check deny.
type Cache struct {
	source RoleSource
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewCache constructs a Cache over the given role source. A non-positive ttl
// falls back to DefaultTTL.
func NewCache(source RoleSource, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		source:  source,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the current hierarchy table for a tenant, rebuilding it from
// the role source when the cached entry is missing or expired.
func (c *Cache) Get(ctx context.Context, tenant string) HierarchyTable {
	c.mu.Lock()
	entry, ok := c.entries[tenant]
	c.mu.Unlock()

	if ok && c.now().Sub(entry.builtAt) < c.ttl {
		return entry.table
	}

	roles, err := c.source.RoleSnapshot(ctx, tenant)
	if err != nil {
		if ok {
			c.logger.Warn("hierarchy rebuild failed, serving stale table",
				slog.String("tenant", tenant), slog.Any("error", err))
			return entry.table
		}
		c.logger.Error("hierarchy rebuild failed with no prior table",
			slog.String("tenant", tenant), slog.Any("error", err))
		return HierarchyTable{}
	}

	table := BuildTable(roles)
	c.mu.Lock()
	c.entries[tenant] = cacheEntry{table: table, builtAt: c.now()}
	c.mu.Unlock()
	return table
}

// Clear drops one tenant's entry so the next Get rebuilds it. Used after
// role edits.
func (c *Cache) Clear(tenant string) {
	c.mu.Lock()
	delete(c.entries, tenant)
	c.mu.Unlock()
}

// ClearAll drops every tenant entry.
func (c *Cache) ClearAll() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// SetClock overrides the cache's time source. Tests only.
func (c *Cache) SetClock(now func() time.Time) {
	if now != nil {
		c.now = now
	}
}

package shop

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bhonepyisone/cliick-assistant/internal/domain"
)

const defaultCacheTTL = 5 * time.Minute

// Cache wraps a Source with per-shop TTL caching. A stale entry is served
// when a reload fails so a transient disk error does not take a shop's
// assistant down mid-conversation.
type Cache struct {
	source *Source
	ttl    time.Duration
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	snap     *domain.ShopSnapshot
	loadedAt time.Time
}

func NewCache(source *Source, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		source:  source,
		ttl:     ttl,
		logger:  logger,
		entries: make(map[string]cacheEntry),
	}
}

// Snapshot implements domain.ShopSource.
func (c *Cache) Snapshot(ctx context.Context, shopID string) (*domain.ShopSnapshot, error) {
	c.mu.RLock()
	entry, ok := c.entries[shopID]
	c.mu.RUnlock()
	if ok && time.Since(entry.loadedAt) < c.ttl {
		return entry.snap, nil
	}

	snap, err := c.source.Load(ctx, shopID)
	if err != nil {
		if ok {
			c.logger.Warn("shop snapshot reload failed, serving stale copy",
				"shop_id", shopID, "age", time.Since(entry.loadedAt), "error", err)
			return entry.snap, nil
		}
		return nil, fmt.Errorf("load shop %s: %w", shopID, err)
	}

	c.mu.Lock()
	c.entries[shopID] = cacheEntry{snap: snap, loadedAt: time.Now()}
	c.mu.Unlock()
	return snap, nil
}

// Invalidate drops a shop's cached snapshot so the next turn reloads it.
func (c *Cache) Invalidate(shopID string) {
	c.mu.Lock()
	delete(c.entries, shopID)
	c.mu.Unlock()
}

// StartRefresh reloads every cached shop on the given interval until ctx is
// cancelled. This keeps long-lived deployments current without waiting for
// a TTL miss on a live conversation.
func (c *Cache) StartRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = c.ttl
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.refreshAll(ctx)
			}
		}
	}()
}

func (c *Cache) refreshAll(ctx context.Context) {
	c.mu.RLock()
	ids := make([]string, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	c.mu.RUnlock()

	for _, id := range ids {
		snap, err := c.source.Load(ctx, id)
		if err != nil {
			c.logger.Warn("background shop refresh failed", "shop_id", id, "error", err)
			continue
		}
		c.mu.Lock()
		c.entries[id] = cacheEntry{snap: snap, loadedAt: time.Now()}
		c.mu.Unlock()
	}
}

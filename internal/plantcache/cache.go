// Package plantcache caches per-user plant lists between backend fetches.
// Entries go stale after the TTL; stale entries are invisible to the fresh
// accessor but survive as a last-resort fallback for the warm-up path.
package plantcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/verdantlabs/gardenwatch/internal/types"
	"go.uber.org/zap"
)

// DefaultTTL is how long an entry counts as fresh.
const DefaultTTL = 24 * time.Hour

// PlantFetcher is the backend operation the cache refreshes from.
type PlantFetcher interface {
	FetchUserPlants(ctx context.Context, userID int) ([]types.Plant, error)
}

type entry struct {
	plants        []types.Plant
	lastRefreshed time.Time
}

// Cache maps userId to a plant list with a refresh timestamp. All methods
// are safe for concurrent use; the scheduled refresh and the evaluation
// paths share one instance.
type Cache struct {
	mu      sync.RWMutex
	entries map[int]entry

	fetcher PlantFetcher
	ttl     time.Duration
	logger  *zap.SugaredLogger
	now     func() time.Time

	refreshMu   sync.Mutex
	refreshStop chan struct{}
	refreshWG   sync.WaitGroup
}

// New creates a cache backed by the given fetcher with the default TTL.
func New(fetcher PlantFetcher, logger *zap.SugaredLogger) *Cache {
	return &Cache{
		entries: make(map[int]entry),
		fetcher: fetcher,
		ttl:     DefaultTTL,
		logger:  logger,
		now:     time.Now,
	}
}

// Get returns the cached plants for the user, or nil when there is no entry
// or the entry has gone stale. Stale entries are never served here.
func (c *Cache) Get(userID int) []types.Plant {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[userID]
	if !ok {
		return nil
	}
	if c.now().Sub(e.lastRefreshed) > c.ttl {
		return nil
	}
	return e.plants
}

// Set replaces the user's entry and stamps it as freshly refreshed.
func (c *Cache) Set(userID int, plants []types.Plant) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = entry{plants: plants, lastRefreshed: c.now()}
}

// Refresh fetches the user's plants from the backend and replaces the
// entry. On fetch failure the existing entry, fresh or stale, is left
// intact.
func (c *Cache) Refresh(ctx context.Context, userID int) error {
	plants, err := c.fetcher.FetchUserPlants(ctx, userID)
	if err != nil {
		return fmt.Errorf("refreshing plants for user %d: %w", userID, err)
	}
	c.Set(userID, plants)
	return nil
}

// FetchPlantsWithFallback fetches fresh plants, updating the cache on
// success. When the fetch fails but a prior entry exists — even a stale
// one — the prior plants are returned instead of the error. The alert
// engine never calls this; it is the warm-up path's accessor.
func (c *Cache) FetchPlantsWithFallback(ctx context.Context, userID int) ([]types.Plant, error) {
	plants, err := c.fetcher.FetchUserPlants(ctx, userID)
	if err == nil {
		c.Set(userID, plants)
		return plants, nil
	}

	c.mu.RLock()
	e, ok := c.entries[userID]
	c.mu.RUnlock()
	if ok {
		c.logger.Warnf("plant fetch failed for user %d, serving cached entry from %s: %v",
			userID, e.lastRefreshed.Format(time.RFC3339), err)
		return e.plants, nil
	}
	return nil, err
}

// WarmUp refreshes all users in parallel. Individual failures are logged
// and swallowed so one unreachable user does not block the others.
func (c *Cache) WarmUp(ctx context.Context, userIDs []int) {
	var wg sync.WaitGroup
	for _, id := range userIDs {
		wg.Add(1)
		go func(userID int) {
			defer wg.Done()
			if _, err := c.FetchPlantsWithFallback(ctx, userID); err != nil {
				c.logger.Warnf("warm-up failed for user %d: %v", userID, err)
			}
		}(id)
	}
	wg.Wait()
}

// StartPeriodicRefresh runs WarmUp on the given interval until Stop is
// called or the context ends. At most one schedule is active; starting a
// second one is a no-op.
func (c *Cache) StartPeriodicRefresh(ctx context.Context, userIDs []int, interval time.Duration) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	if c.refreshStop != nil {
		c.logger.Warn("periodic plant refresh already running")
		return
	}

	stop := make(chan struct{})
	c.refreshStop = stop

	c.refreshWG.Add(1)
	go func() {
		defer c.refreshWG.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.logger.Infof("running scheduled plant cache refresh for %d users", len(userIDs))
				c.WarmUp(ctx, userIDs)
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop terminates the periodic refresh schedule, if one is running, and
// waits for it to wind down.
func (c *Cache) Stop() {
	c.refreshMu.Lock()
	if c.refreshStop != nil {
		close(c.refreshStop)
		c.refreshStop = nil
	}
	c.refreshMu.Unlock()
	c.refreshWG.Wait()
}

package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	catalogrepo "github.com/yungbote/estrella-backend/internal/data/repos/catalog"
	types "github.com/yungbote/estrella-backend/internal/domain/catalog"
	"github.com/yungbote/estrella-backend/internal/observability"
	"github.com/yungbote/estrella-backend/internal/pkg/logger"
	"github.com/yungbote/estrella-backend/internal/realtime"
)

// ErrCatalogUnavailable is what readers see when the last list load failed.
// Loads are never retried automatically; the next CatalogChanged or an
// explicit Refresh tries again.
var ErrCatalogUnavailable = errors.New("could not load restaurants")

// errStaleList marks a load that started before the last invalidation.
var errStaleList = errors.New("catalog list superseded")

// CatalogCache holds the result of the last full list. Readers filter in
// memory so category and search never hit the database.
type CatalogCache struct {
	log  *logger.Logger
	repo catalogrepo.RestaurantRepo

	group singleflight.Group

	mu sync.RWMutex
	// gen moves on every invalidation; a load that began under an older gen
	// is discarded.
	gen      uint64
	items    []*types.Restaurant
	loaded   bool
	lastErr  error
	loadedAt time.Time
}

func NewCatalogCache(log *logger.Logger, repo catalogrepo.RestaurantRepo) *CatalogCache {
	return &CatalogCache{
		log:  log.With("service", "CatalogCache"),
		repo: repo,
	}
}

// Refresh reloads the full list. Concurrent callers share one repo call; a
// call overtaken by an invalidation is dropped and the list is read again.
func (c *CatalogCache) Refresh(ctx context.Context) error {
	for {
		_, err, _ := c.group.Do("list", func() (any, error) {
			return nil, c.load(ctx)
		})
		if errors.Is(err, errStaleList) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fmt.Errorf("%w: %v", ErrCatalogUnavailable, ctxErr)
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
		}
		return nil
	}
}

func (c *CatalogCache) load(ctx context.Context) error {
	c.mu.RLock()
	gen := c.gen
	c.mu.RUnlock()

	items, err := c.repo.List(context.WithoutCancel(ctx), nil, catalogrepo.Filter{})
	observability.Current().IncCatalogRefresh(err)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		c.log.Debug("Discarding superseded catalog load", "gen", gen, "current", c.gen)
		return errStaleList
	}
	if err != nil {
		c.lastErr = err
		c.log.Warn("Catalog refresh failed", "error", err)
		return err
	}
	c.items = items
	c.loaded = true
	c.lastErr = nil
	c.loadedAt = time.Now()
	c.log.Debug("Catalog refreshed", "restaurants", len(items))
	return nil
}

func (c *CatalogCache) snapshot(ctx context.Context) ([]*types.Restaurant, error) {
	for {
		c.mu.RLock()
		loaded, items, lastErr := c.loaded, c.items, c.lastErr
		c.mu.RUnlock()
		if lastErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, lastErr)
		}
		if loaded {
			return items, nil
		}
		if err := c.Refresh(ctx); err != nil {
			return nil, err
		}
	}
}

// List returns restaurants matching filter in id order.
func (c *CatalogCache) List(ctx context.Context, filter catalogrepo.Filter) ([]*types.Restaurant, error) {
	items, err := c.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*types.Restaurant, 0, len(items))
	for _, r := range items {
		if filter.Match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (c *CatalogCache) Get(ctx context.Context, id int64) (*types.Restaurant, bool, error) {
	items, err := c.snapshot(ctx)
	if err != nil {
		return nil, false, err
	}
	for _, r := range items {
		if r.ID == id {
			return r, true, nil
		}
	}
	return nil, false, nil
}

// Invalidate drops the cached list so the next read reloads it. Loads
// already running are discarded when they finish.
func (c *CatalogCache) Invalidate() {
	c.mu.Lock()
	c.gen++
	c.items = nil
	c.loaded = false
	c.lastErr = nil
	c.mu.Unlock()
	c.group.Forget("list")
}

// HandleMessage is hooked onto the bus forwarder. A CatalogChanged from any
// instance triggers a fresh reload; readers keep the old list until it lands.
func (c *CatalogCache) HandleMessage(ctx context.Context, m realtime.SSEMessage) {
	if m.Event != realtime.SSEEventCatalogChanged {
		return
	}
	c.mu.Lock()
	c.gen++
	c.lastErr = nil
	c.mu.Unlock()
	c.group.Forget("list")
	_ = c.Refresh(ctx)
}

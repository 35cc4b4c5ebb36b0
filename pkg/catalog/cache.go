// Package catalog holds the process-wide exercise reference cache.
package catalog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/fitsocial/fitsocial-server/pkg/types"
)

// DefaultTTL is how long a loaded catalog is served before a reload.
const DefaultTTL = 30 * time.Minute

const flightKey = "exercise-catalog"

// Loader reads the full exercise reference set.
type Loader interface {
	ListExercises(ctx context.Context) ([]*types.ExerciseDefinition, error)
}

// Catalog is an immutable snapshot of the exercise reference data.
// Items keeps load order so that scans are deterministic.
type Catalog struct {
	byKey map[string]*types.ExerciseDefinition
	items []*types.ExerciseDefinition
}

// NewCatalog indexes defs by key. Later duplicates overwrite earlier ones in
// the index but every definition stays in Items.
func NewCatalog(defs []*types.ExerciseDefinition) *Catalog {
	c := &Catalog{
		byKey: make(map[string]*types.ExerciseDefinition, len(defs)),
		items: make([]*types.ExerciseDefinition, 0, len(defs)),
	}
	for _, d := range defs {
		if d == nil {
			continue
		}
		c.items = append(c.items, d)
		if d.Key != "" {
			c.byKey[d.Key] = d
		}
	}
	return c
}

func (c *Catalog) Lookup(key string) (*types.ExerciseDefinition, bool) {
	d, ok := c.byKey[key]
	return d, ok
}

func (c *Catalog) Items() []*types.ExerciseDefinition {
	return c.items
}

func (c *Catalog) Len() int {
	return len(c.items)
}

var emptyCatalog = NewCatalog(nil)

// Cache is a TTL read-through cache over Loader. Concurrent reloads collapse
// into a single Loader call. Get never fails: load errors and empty loads keep
// the last good snapshot, or yield an empty catalog when there is none.
type Cache struct {
	loader Loader
	ttl    time.Duration
	logger *slog.Logger

	// Now is the clock; overridable in tests.
	Now func() time.Time

	mu       sync.RWMutex
	current  *Catalog
	loadedAt time.Time

	group singleflight.Group
}

func NewCache(loader Loader, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		loader: loader,
		ttl:    ttl,
		logger: logger.With("component", "catalog"),
		Now:    time.Now,
	}
}

// Get returns the current catalog, reloading it when cold or expired.
func (c *Cache) Get(ctx context.Context) *Catalog {
	if cat, ok := c.fresh(); ok {
		return cat
	}

	// The shared load must not die with whichever caller started it.
	loadCtx := context.WithoutCancel(ctx)
	v, _, _ := c.group.Do(flightKey, func() (interface{}, error) {
		// Another flight may have finished between fresh() and Do.
		if cat, ok := c.fresh(); ok {
			return cat, nil
		}
		return c.reload(loadCtx), nil
	})
	return v.(*Catalog)
}

func (c *Cache) fresh() (*Catalog, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return nil, false
	}
	if c.Now().Sub(c.loadedAt) >= c.ttl {
		return nil, false
	}
	return c.current, true
}

func (c *Cache) reload(ctx context.Context) *Catalog {
	start := c.Now()
	defs, err := c.loader.ListExercises(ctx)
	if err != nil {
		c.logger.Warn("Exercise catalog reload failed, serving previous snapshot", "error", err)
		return c.previous()
	}
	if len(defs) == 0 {
		c.logger.Warn("Exercise catalog reload returned no items, serving previous snapshot")
		return c.previous()
	}

	cat := NewCatalog(defs)
	c.mu.Lock()
	c.current = cat
	c.loadedAt = c.Now()
	c.mu.Unlock()

	c.logger.Info("Exercise catalog loaded", "items", cat.Len(), "duration_ms", c.Now().Sub(start).Milliseconds())
	return cat
}

func (c *Cache) previous() *Catalog {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current != nil {
		return c.current
	}
	return emptyCatalog
}

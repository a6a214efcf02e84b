package cache

import (
	"context"
	"errors"
	"sync"

	"github.com/Mjnllee/kidfromanila/internal/store"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CachedGateway is a read-through cache in front of a store.Gateway. Only
// single-document reads of the configured collections are cached; every
// write or delete drops the cached copy after the store call succeeds.
// A read that overlapped any invalidation does not fill the cache.
// Cache failures are logged and never fail the operation.
type CachedGateway struct {
	next        store.Gateway
	cache       DocumentCache
	log         *zap.Logger
	collections map[string]bool
	sfg         singleflight.Group // Prevents cache stampede

	mu  sync.Mutex
	gen uint64 // bumped by every invalidation
}

var _ store.Gateway = (*CachedGateway)(nil)

// DefaultCachedCollections are read far more often than they are written.
// Carts are left out: they are written on every edit and must never be
// served stale across instances.
var DefaultCachedCollections = []string{
	store.ProductsCollection,
	store.ServicesCollection,
}

func NewCachedGateway(next store.Gateway, cache DocumentCache, log *zap.Logger, collections ...string) *CachedGateway {
	if len(collections) == 0 {
		collections = DefaultCachedCollections
	}
	set := make(map[string]bool, len(collections))
	for _, c := range collections {
		set[c] = true
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedGateway{next: next, cache: cache, log: log, collections: set}
}

func (g *CachedGateway) GetDocument(ctx context.Context, collection, id string) (*store.Snapshot, error) {
	if !g.collections[collection] {
		return g.next.GetDocument(ctx, collection, id)
	}

	v, err, _ := g.sfg.Do(collection+"/"+id, func() (interface{}, error) {
		snap, err := g.cache.Get(ctx, collection, id)
		if err == nil {
			return snap, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			g.log.Warn("cache get failed", zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		}

		gen := g.generation()
		snap, err = g.next.GetDocument(ctx, collection, id)
		if err != nil || snap == nil {
			return snap, err
		}

		g.fill(ctx, collection, snap, gen)
		return snap, nil
	})
	if err != nil {
		return nil, err
	}

	snap, _ := v.(*store.Snapshot)
	if snap == nil {
		return nil, nil
	}
	// callers may mutate the returned document
	return &store.Snapshot{ID: snap.ID, Data: copyDocument(snap.Data)}, nil
}

func (g *CachedGateway) SetDocument(ctx context.Context, collection, id string, data store.Document, merge bool) error {
	if err := g.next.SetDocument(ctx, collection, id, data, merge); err != nil {
		return err
	}
	g.invalidate(ctx, collection, id)
	return nil
}

func (g *CachedGateway) DeleteDocument(ctx context.Context, collection, id string) error {
	if err := g.next.DeleteDocument(ctx, collection, id); err != nil {
		return err
	}
	g.invalidate(ctx, collection, id)
	return nil
}

func (g *CachedGateway) QueryEquals(ctx context.Context, collection, field string, value any) ([]store.Snapshot, error) {
	return g.next.QueryEquals(ctx, collection, field, value)
}

func (g *CachedGateway) generation() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gen
}

// fill caches snap unless something was invalidated since gen was taken.
func (g *CachedGateway) fill(ctx context.Context, collection string, snap *store.Snapshot, gen uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gen != gen {
		return
	}
	if err := g.cache.Set(ctx, collection, snap); err != nil {
		g.log.Warn("cache set failed", zap.String("collection", collection), zap.String("id", snap.ID), zap.Error(err))
	}
}

func (g *CachedGateway) invalidate(ctx context.Context, collection, id string) {
	if !g.collections[collection] {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gen++
	if err := g.cache.Delete(ctx, collection, id); err != nil {
		g.log.Warn("cache invalidation failed", zap.String("collection", collection), zap.String("id", id), zap.Error(err))
	}
}

func copyDocument(doc store.Document) store.Document {
	if doc == nil {
		return nil
	}
	out, err := store.Encode(doc)
	if err != nil {
		return doc
	}
	return out
}

package cache

import (
	"context"
	"errors"

	"github.com/Mjnllee/kidfromanila/internal/store"
)

// DocumentCache holds recently read documents keyed by collection and id.
type DocumentCache interface {
	Get(ctx context.Context, collection, id string) (*store.Snapshot, error)
	Set(ctx context.Context, collection string, snap *store.Snapshot) error
	Delete(ctx context.Context, collection, id string) error
}

var ErrCacheMiss = errors.New("cache miss")

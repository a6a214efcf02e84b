// Package storetest provides gateway doubles for service tests.
package storetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/Mjnllee/kidfromanila/internal/store"
)

// Op names a gateway operation.
type Op string

const (
	OpGet    Op = "get"
	OpSet    Op = "set"
	OpDelete Op = "delete"
	OpQuery  Op = "query"
)

// Call records one gateway call.
type Call struct {
	Op         Op
	Collection string
	ID         string
	Merge      bool
	Data       store.Document
}

// FlakyGateway wraps a Gateway, records every call and fails selected
// operations with store.ErrStorageUnavailable.
type FlakyGateway struct {
	store.Gateway

	mu    sync.Mutex
	fail  map[Op]map[string]bool // op -> collection ("" = any)
	calls []Call
}

func NewFlakyGateway(next store.Gateway) *FlakyGateway {
	return &FlakyGateway{Gateway: next, fail: make(map[Op]map[string]bool)}
}

// FailOn makes op fail for collection. An empty collection fails op everywhere.
func (f *FlakyGateway) FailOn(op Op, collection string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[op] == nil {
		f.fail[op] = make(map[string]bool)
	}
	f.fail[op][collection] = true
}

// Heal clears every configured failure.
func (f *FlakyGateway) Heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = make(map[Op]map[string]bool)
}

// Calls returns the recorded calls of op.
func (f *FlakyGateway) Calls(op Op) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (f *FlakyGateway) record(c Call) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	if f.fail[c.Op][""] || f.fail[c.Op][c.Collection] {
		return fmt.Errorf("%w: %s %s: injected failure", store.ErrStorageUnavailable, c.Op, c.Collection)
	}
	return nil
}

func (f *FlakyGateway) GetDocument(ctx context.Context, collection, id string) (*store.Snapshot, error) {
	if err := f.record(Call{Op: OpGet, Collection: collection, ID: id}); err != nil {
		return nil, err
	}
	return f.Gateway.GetDocument(ctx, collection, id)
}

func (f *FlakyGateway) SetDocument(ctx context.Context, collection, id string, data store.Document, merge bool) error {
	if err := f.record(Call{Op: OpSet, Collection: collection, ID: id, Merge: merge, Data: data}); err != nil {
		return err
	}
	return f.Gateway.SetDocument(ctx, collection, id, data, merge)
}

func (f *FlakyGateway) DeleteDocument(ctx context.Context, collection, id string) error {
	if err := f.record(Call{Op: OpDelete, Collection: collection, ID: id}); err != nil {
		return err
	}
	return f.Gateway.DeleteDocument(ctx, collection, id)
}

func (f *FlakyGateway) QueryEquals(ctx context.Context, collection, field string, value any) ([]store.Snapshot, error) {
	if err := f.record(Call{Op: OpQuery, Collection: collection}); err != nil {
		return nil, err
	}
	return f.Gateway.QueryEquals(ctx, collection, field, value)
}

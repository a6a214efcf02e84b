package store

import (
	"context"
	"sync"
)

// MemoryStore implements Gateway with in-memory storage. It backs local runs
// and the service tests.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Document // collection path -> id -> document
}

// NewMemoryStore creates an empty in-memory document store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]Document),
	}
}

func (s *MemoryStore) GetDocument(ctx context.Context, collection, id string) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("get", err)
	}
	if err := checkKey(collection, id); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, exists := s.collections[collection][id]
	if !exists {
		return nil, nil
	}
	return &Snapshot{ID: id, Data: cloneDocument(doc)}, nil
}

func (s *MemoryStore) SetDocument(ctx context.Context, collection, id string, data Document, merge bool) error {
	if err := ctx.Err(); err != nil {
		return unavailable("set", err)
	}
	if err := checkKey(collection, id); err != nil {
		return err
	}
	normalized, err := normalize(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs, exists := s.collections[collection]
	if !exists {
		docs = make(map[string]Document)
		s.collections[collection] = docs
	}

	if merge {
		docs[id] = mergeDocument(docs[id], normalized)
		return nil
	}
	docs[id] = normalized
	return nil
}

func (s *MemoryStore) DeleteDocument(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return unavailable("delete", err)
	}
	if err := checkKey(collection, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.collections[collection], id)
	return nil
}

func (s *MemoryStore) QueryEquals(ctx context.Context, collection, field string, value any) ([]Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("query", err)
	}
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	want, err := queryValue(value)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Snapshot, 0)
	for id, doc := range s.collections[collection] {
		if matchesEquals(doc, field, want) {
			result = append(result, Snapshot{ID: id, Data: cloneDocument(doc)})
		}
	}
	sortSnapshots(result)
	return result, nil
}

// Len reports how many documents a collection holds.
func (s *MemoryStore) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

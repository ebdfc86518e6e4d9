package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process DocumentStore, used by tests and the "memory"
// storage driver. Documents are normalized on the way in and copied on the way
// out, so callers never share maps with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]Document)}
}

func (s *MemoryStore) CreateDocument(ctx context.Context, collection string, data Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	if err := checkKey(collection, id); err != nil {
		return "", err
	}
	doc, err := normalize(data)
	if err != nil {
		return "", err
	}
	delete(doc, "id")

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data[collection] == nil {
		s.data[collection] = make(map[string]Document)
	}
	s.data[collection][id] = doc
	return id, nil
}

func (s *MemoryStore) UpdateDocument(ctx context.Context, collection, id string, partial Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkKey(collection, id); err != nil {
		return err
	}
	patch, err := normalize(partial)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.data[collection][id]
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	s.data[collection][id] = merge(cur, patch)
	return nil
}

func (s *MemoryStore) DeleteDocument(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkKey(collection, id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data[collection], id)
	return nil
}

func (s *MemoryStore) GetDocument(ctx context.Context, collection, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkKey(collection, id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	doc, ok := s.data[collection][id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	// Deep copy so nested maps are not shared with the caller.
	out, err := normalize(doc)
	if err != nil {
		return nil, err
	}
	return withID(out, id), nil
}

// QueryDocuments returns matches ordered by id.
func (s *MemoryStore) QueryDocuments(ctx context.Context, collection, field string, value any) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data[collection]))
	for id, doc := range s.data[collection] {
		if matches(doc, field, value) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	out := make([]Document, 0, len(ids))
	for _, id := range ids {
		doc, err := normalize(s.data[collection][id])
		if err != nil {
			return nil, err
		}
		out = append(out, withID(doc, id))
	}
	return out, nil
}

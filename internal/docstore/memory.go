package docstore

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
)

type memCollection struct {
	docs  map[string]Document
	order []string
}

// MemoryStore keeps documents in process memory.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: map[string]*memCollection{}}
}

func (m *MemoryStore) coll(name string) *memCollection {
	c, ok := m.collections[name]
	if !ok {
		c = &memCollection{docs: map[string]Document{}}
		m.collections[name] = c
	}
	return c
}

func (m *MemoryStore) Create(ctx context.Context, collection string, fields Document) (string, error) {
	id := uuid.NewString()
	if err := m.Set(ctx, collection, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

func (m *MemoryStore) Set(_ context.Context, collection, id string, fields Document) error {
	if err := CheckKey(collection, id); err != nil {
		return err
	}
	doc, err := Normalize(fields)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.coll(collection)
	if _, exists := c.docs[id]; !exists {
		c.order = append(c.order, id)
	}
	c.docs[id] = doc
	return nil
}

func (m *MemoryStore) Read(_ context.Context, collection, id string) (Document, error) {
	if err := CheckKey(collection, id); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.collections[collection]
	if !ok {
		return nil, ErrNotFound
	}
	doc, ok := c.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return Clone(doc), nil
}

func (m *MemoryStore) Update(_ context.Context, collection, id string, partial Document) error {
	if err := CheckKey(collection, id); err != nil {
		return err
	}
	patch, err := Normalize(partial)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.collections[collection]
	if !ok {
		return ErrNotFound
	}
	doc, ok := c.docs[id]
	if !ok {
		return ErrNotFound
	}
	Merge(doc, patch)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, collection, id string) error {
	if err := CheckKey(collection, id); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.collections[collection]
	if !ok {
		return nil
	}
	if _, ok := c.docs[id]; !ok {
		return nil
	}
	delete(c.docs, id)
	c.order = slices.DeleteFunc(c.order, func(s string) bool { return s == id })
	return nil
}

func (m *MemoryStore) Scan(_ context.Context, collection string, f *Filter) ([]Record, error) {
	if collection == "" {
		return nil, fmt.Errorf("%w: empty collection", ErrInvalidArgument)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.collections[collection]
	if !ok {
		return []Record{}, nil
	}
	out := make([]Record, 0, len(c.order))
	for _, id := range c.order {
		doc := c.docs[id]
		if Matches(doc, f) {
			out = append(out, Record{ID: id, Data: Clone(doc)})
		}
	}
	return out, nil
}

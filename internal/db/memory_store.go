package db

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process document store with the same semantics as
// PgStore. It backs tests and local dry runs.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string][]*Document
	now         func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string][]*Document),
		now:         time.Now,
	}
}

// Put stores a document under a caller-chosen id, replacing any previous body.
func (m *MemoryStore) Put(collection, id string, data Fields) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for _, d := range m.collections[collection] {
		if d.ID == id {
			d.Data = data.Clone()
			d.Version++
			d.UpdatedAt = now
			return
		}
	}
	m.collections[collection] = append(m.collections[collection], &Document{
		ID:        id,
		Version:   1,
		Data:      data.Clone(),
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (m *MemoryStore) FetchAll(ctx context.Context, collection string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	docs := m.collections[collection]
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		out = append(out, copyDocument(d))
	}
	return out, nil
}

func (m *MemoryStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	d := m.find(collection, id)
	if d == nil {
		return nil, ErrDocumentNotFound
	}
	c := copyDocument(d)
	return &c, nil
}

func (m *MemoryStore) Insert(ctx context.Context, collection string, data Fields) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	m.Put(collection, id, data)
	return id, nil
}

func (m *MemoryStore) UpdateFields(ctx context.Context, collection, id string, patch Fields, expectedVersion int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	d := m.find(collection, id)
	if d == nil {
		return ErrDocumentNotFound
	}
	if expectedVersion > 0 && d.Version != expectedVersion {
		return ErrVersionConflict
	}
	d.Data = d.Data.Merge(patch)
	d.Version++
	d.UpdatedAt = m.now()
	return nil
}

func (m *MemoryStore) find(collection, id string) *Document {
	for _, d := range m.collections[collection] {
		if d.ID == id {
			return d
		}
	}
	return nil
}

func copyDocument(d *Document) Document {
	c := *d
	c.Data = d.Data.Clone()
	return c
}

package store

import (
	"context"
	"sort"
	"sync"

	"caregiver-compass/models"
)

// MemoryStore is an in-memory SemanticStore using brute-force cosine
// distance. Used in tests and for single-node development setups.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]models.Document
}

var _ SemanticStore = (*MemoryStore)(nil)

func NewMemoryStore(collections ...string) *MemoryStore {
	m := &MemoryStore{collections: make(map[string][]models.Document)}
	for _, name := range collections {
		m.collections[name] = nil
	}
	return m
}

func (m *MemoryStore) Search(ctx context.Context, collection string, vector []float32, k int) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	docs, ok := m.collections[collection]
	if !ok {
		return nil, ErrCollectionNotFound
	}
	if k <= 0 {
		k = 5
	}

	hits := make([]Hit, 0, len(docs))
	for _, doc := range docs {
		hits = append(hits, Hit{Document: doc, Distance: CosineDistance(vector, doc.Vector)})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Document.ID < hits[j].Document.ID
	})

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

func (m *MemoryStore) Upsert(ctx context.Context, collection string, docs []models.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.collections[collection]
	for _, doc := range docs {
		replaced := false
		for i := range existing {
			if existing[i].ID == doc.ID {
				existing[i] = doc
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, doc)
		}
	}
	m.collections[collection] = existing
	return nil
}

func (m *MemoryStore) Reset(ctx context.Context, collection string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.collections[collection]; !ok {
		return ErrCollectionNotFound
	}
	m.collections[collection] = nil
	return nil
}

func (m *MemoryStore) Collections(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.collections))
	for name := range m.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemoryStore) Count(ctx context.Context, collection string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs, ok := m.collections[collection]
	if !ok {
		return 0, ErrCollectionNotFound
	}
	return int64(len(docs)), nil
}

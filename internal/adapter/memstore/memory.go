package memstore

import (
	"fmt"
	"sync"

	"sgt/internal/adapter/retriever"
	"sgt/internal/domain"
	"sgt/internal/port"
)

// MemoryStore keeps the model, statistics and embeddings in process memory.
// It satisfies both port.ModelStore and port.VectorStore.
type MemoryStore struct {
	mu        sync.RWMutex
	model     *domain.Model
	stats     domain.Stats
	vectors   map[string]port.VectorItem
	dimension int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		vectors: make(map[string]port.VectorItem),
	}
}

func (s *MemoryStore) SaveModel(model domain.Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	model.Alphabet = append([]string(nil), model.Alphabet...)
	s.model = &model
	return nil
}

func (s *MemoryStore) LoadModel() (domain.Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.model == nil {
		return domain.Model{}, domain.ErrNotFitted
	}
	return *s.model, nil
}

func (s *MemoryStore) GetStats() (domain.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats, nil
}

func (s *MemoryStore) UpdateStats(stats domain.Stats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = stats
	return nil
}

// Upsert stores copies of items. The first vector fixes the dimension until
// the store is emptied.
func (s *MemoryStore) Upsert(items []port.VectorItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dim := s.dimension
	for _, item := range items {
		if dim == 0 {
			dim = len(item.Vector)
		}
		if len(item.Vector) != dim {
			return fmt.Errorf("vector dimension mismatch for %s: expected %d, got %d", item.ID, dim, len(item.Vector))
		}
	}
	s.dimension = dim

	for _, item := range items {
		item.Vector = append([]float64(nil), item.Vector...)
		s.vectors[item.ID] = item
	}
	return nil
}

func (s *MemoryStore) Get(id string) (port.VectorItem, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.vectors[id]
	return item, ok, nil
}

func (s *MemoryStore) Search(query []float64, k int) ([]domain.ScoredEmbedding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dimension != 0 && len(query) != s.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", s.dimension, len(query))
	}
	return retriever.Rank(query, s.vectors, k), nil
}

func (s *MemoryStore) Delete(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.vectors, id)
	}
	if len(s.vectors) == 0 {
		s.dimension = 0
	}
	return nil
}

func (s *MemoryStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors), nil
}

// Clear drops everything, including the model.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = nil
	s.stats = domain.Stats{}
	s.vectors = make(map[string]port.VectorItem)
	s.dimension = 0
}

func (s *MemoryStore) Close() error {
	return nil
}

var (
	_ port.ModelStore  = (*MemoryStore)(nil)
	_ port.VectorStore = (*MemoryStore)(nil)
)

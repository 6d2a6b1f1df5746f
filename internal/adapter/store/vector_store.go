package store

import (
	"encoding/json"
	"fmt"
	"sync"

	"go.etcd.io/bbolt"

	"sgt/internal/adapter/retriever"
	"sgt/internal/domain"
	"sgt/internal/port"
)

var (
	bucketVectors = []byte("vectors")
)

// BoltVectorStore implements VectorStore using BoltDB for persistence.
// Search is brute force over an in-memory copy of every vector.
type BoltVectorStore struct {
	db        *bbolt.DB
	dimension int
	mu        sync.RWMutex
	vectors   map[string]port.VectorItem
}

type storedVector struct {
	Vector   []float64         `json:"v"`
	Length   int               `json:"l"`
	Metadata map[string]string `json:"m,omitempty"`
}

// NewBoltVectorStore creates a vector store for embeddings of the given
// dimension (m² for an alphabet of m symbols).
func NewBoltVectorStore(db *bbolt.DB, dimension int) (*BoltVectorStore, error) {
	if dimension <= 0 {
		return nil, &domain.InvalidParameterError{Name: "dimension", Value: dimension, Reason: "must be positive"}
	}
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketVectors)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create vectors bucket: %w", err)
	}

	store := &BoltVectorStore{
		db:        db,
		dimension: dimension,
		vectors:   make(map[string]port.VectorItem),
	}

	if err := store.loadVectors(); err != nil {
		return nil, fmt.Errorf("failed to load vectors: %w", err)
	}

	return store, nil
}

func (s *BoltVectorStore) loadVectors() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketVectors).ForEach(func(k, v []byte) error {
			var stored storedVector
			if err := json.Unmarshal(v, &stored); err != nil {
				return fmt.Errorf("corrupt vector %q: %w", k, err)
			}
			if len(stored.Vector) != s.dimension {
				return fmt.Errorf("vector %q has dimension %d, expected %d", k, len(stored.Vector), s.dimension)
			}
			s.vectors[string(k)] = port.VectorItem{
				ID:       string(k),
				Vector:   stored.Vector,
				Length:   stored.Length,
				Metadata: stored.Metadata,
			}
			return nil
		})
	})
}

// Upsert adds or updates vectors in the store.
func (s *BoltVectorStore) Upsert(items []port.VectorItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := make(map[string]port.VectorItem, len(items))
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		for _, item := range items {
			if len(item.Vector) != s.dimension {
				return fmt.Errorf("vector dimension mismatch for %s: expected %d, got %d", item.ID, s.dimension, len(item.Vector))
			}

			data, err := json.Marshal(storedVector{
				Vector:   item.Vector,
				Length:   item.Length,
				Metadata: item.Metadata,
			})
			if err != nil {
				return err
			}
			if err := b.Put([]byte(item.ID), data); err != nil {
				return err
			}
			item.Vector = append([]float64(nil), item.Vector...)
			staged[item.ID] = item
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Only committed vectors become searchable.
	for id, item := range staged {
		s.vectors[id] = item
	}
	return nil
}

func (s *BoltVectorStore) Get(id string) (port.VectorItem, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.vectors[id]
	return item, ok, nil
}

// Search finds the k nearest vectors to the query using cosine similarity.
func (s *BoltVectorStore) Search(query []float64, k int) ([]domain.ScoredEmbedding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(query) != s.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", s.dimension, len(query))
	}
	return retriever.Rank(query, s.vectors, k), nil
}

// Delete removes vectors by their IDs.
func (s *BoltVectorStore) Delete(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		for _, id := range ids {
			if err := b.Delete([]byte(id)); err != nil {
				return err
			}
			delete(s.vectors, id)
		}
		return nil
	})
}

// Count returns the number of vectors in the store.
func (s *BoltVectorStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors), nil
}

var (
	_ port.ModelStore  = (*BoltStore)(nil)
	_ port.VectorStore = (*BoltVectorStore)(nil)
)

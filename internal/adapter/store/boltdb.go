package store

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"sgt/internal/domain"
)

var (
	bucketModel = []byte("model")
	bucketStats = []byte("stats")
	keyModel    = []byte("fitted")
	keyStats    = []byte("corpus_stats")
)

// BoltStore persists the fitted model and corpus statistics. Embeddings live
// in the same database under a BoltVectorStore.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketModel, bucketStats} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) DB() *bbolt.DB {
	return s.db
}

func (s *BoltStore) SaveModel(model domain.Model) error {
	data, err := json.Marshal(model)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketModel).Put(keyModel, data)
	})
}

// LoadModel returns domain.ErrNotFitted when nothing has been saved yet.
func (s *BoltStore) LoadModel() (domain.Model, error) {
	var model domain.Model
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketModel).Get(keyModel)
		if data == nil {
			return domain.ErrNotFitted
		}
		return json.Unmarshal(data, &model)
	})
	return model, err
}

func (s *BoltStore) GetStats() (domain.Stats, error) {
	var stats domain.Stats
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketStats).Get(keyStats)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &stats)
	})
	return stats, err
}

func (s *BoltStore) UpdateStats(stats domain.Stats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketStats).Put(keyStats, data)
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

package memstore

import (
	"errors"
	"testing"

	"sgt/internal/domain"
	"sgt/internal/port"
)

func TestMemoryStore_Model(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.LoadModel(); !errors.Is(err, domain.ErrNotFitted) {
		t.Fatalf("expected ErrNotFitted, got %v", err)
	}

	alpha := []string{"A", "B"}
	if err := s.SaveModel(domain.Model{Alphabet: alpha, Kappa: 3}); err != nil {
		t.Fatal(err)
	}
	alpha[0] = "mutated"

	got, err := s.LoadModel()
	if err != nil {
		t.Fatal(err)
	}
	if got.Alphabet[0] != "A" || got.Kappa != 3 {
		t.Errorf("unexpected model %+v", got)
	}
}

func TestMemoryStore_Vectors(t *testing.T) {
	s := NewMemoryStore()
	vec := []float64{1, 0, 0, 1}
	err := s.Upsert([]port.VectorItem{
		{ID: "a", Vector: vec, Length: 3},
		{ID: "b", Vector: []float64{0, 1, 1, 0}, Length: 4},
	})
	if err != nil {
		t.Fatal(err)
	}
	vec[0] = 42

	item, ok, _ := s.Get("a")
	if !ok || item.Vector[0] != 1 {
		t.Errorf("stored vector should be a copy: %+v", item)
	}

	results, err := s.Search([]float64{1, 0, 0, 0.5}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[0].SequenceID != "a" || results[0].Length != 3 {
		t.Errorf("unexpected results %+v", results)
	}
	if results[1].Score != 0 {
		t.Errorf("orthogonal vector should score 0, got %v", results[1].Score)
	}

	if err := s.Upsert([]port.VectorItem{{ID: "c", Vector: []float64{1}}}); err == nil {
		t.Error("expected dimension mismatch")
	}
	if _, err := s.Search([]float64{1}, 1); err == nil {
		t.Error("expected query dimension mismatch")
	}

	if err := s.Delete([]string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
	// An empty store accepts a new dimension.
	if err := s.Upsert([]port.VectorItem{{ID: "c", Vector: []float64{1}}}); err != nil {
		t.Errorf("expected new dimension to be accepted: %v", err)
	}
}

func TestMemoryStore_ClearAndStats(t *testing.T) {
	s := NewMemoryStore()
	_ = s.UpdateStats(domain.Stats{Embeddings: 2})
	_ = s.SaveModel(domain.Model{Alphabet: []string{"x"}})
	_ = s.Upsert([]port.VectorItem{{ID: "a", Vector: []float64{1}}})

	s.Clear()

	if n, _ := s.Count(); n != 0 {
		t.Errorf("expected 0 vectors, got %d", n)
	}
	if stats, _ := s.GetStats(); stats.Embeddings != 0 {
		t.Errorf("expected zero stats, got %+v", stats)
	}
	if _, err := s.LoadModel(); !errors.Is(err, domain.ErrNotFitted) {
		t.Errorf("expected model cleared, got %v", err)
	}
}

package cache

import (
	"context"
	"testing"
	"time"

	"gonum.org/v1/gonum/mat"

	"sgt/internal/domain"
)

func testEmbedding(v float64) *domain.Embedding {
	return &domain.Embedding{SequenceID: "orig", Alphabet: []string{"A"}, Length: 2, Vector: []float64{v}}
}

func TestEmbeddingCache_HitRelabels(t *testing.T) {
	c := NewEmbeddingCache(10, time.Minute)
	seq := domain.Sequence{ID: "a", Symbols: []string{"A", "A"}}
	c.Put("k1", seq, testEmbedding(1.5))

	got, ok := c.Get("k1", domain.Sequence{ID: "b", Symbols: []string{"A", "A"}})
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.SequenceID != "b" {
		t.Errorf("expected relabelled id b, got %s", got.SequenceID)
	}
	if got.Vector[0] != 1.5 {
		t.Errorf("expected 1.5, got %v", got.Vector[0])
	}

	// Callers own their copy.
	got.Vector[0] = 99
	again, _ := c.Get("k1", seq)
	if again.Vector[0] != 1.5 {
		t.Errorf("cached vector was mutated through a returned copy")
	}
}

func TestEmbeddingCache_FingerprintAndSymbolsDistinguish(t *testing.T) {
	c := NewEmbeddingCache(10, time.Minute)
	c.Put("k1", domain.Sequence{Symbols: []string{"AB"}}, testEmbedding(1))

	if _, ok := c.Get("k2", domain.Sequence{Symbols: []string{"AB"}}); ok {
		t.Error("different fingerprint must miss")
	}
	if _, ok := c.Get("k1", domain.Sequence{Symbols: []string{"A", "B"}}); ok {
		t.Error("different symbol boundaries must miss")
	}
}

func TestEmbeddingCache_Eviction(t *testing.T) {
	c := NewEmbeddingCache(2, time.Minute)
	s1 := domain.Sequence{Symbols: []string{"1"}}
	s2 := domain.Sequence{Symbols: []string{"2"}}
	s3 := domain.Sequence{Symbols: []string{"3"}}

	c.Put("k", s1, testEmbedding(1))
	c.Put("k", s2, testEmbedding(2))
	c.Get("k", s1) // s1 becomes most recent
	c.Put("k", s3, testEmbedding(3))

	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}
	if _, ok := c.Get("k", s2); ok {
		t.Error("expected s2 to be evicted")
	}
	if _, ok := c.Get("k", s1); !ok {
		t.Error("expected s1 to survive")
	}
}

func TestEmbeddingCache_TTL(t *testing.T) {
	c := NewEmbeddingCache(10, time.Millisecond)
	seq := domain.Sequence{Symbols: []string{"A"}}
	c.Put("k", seq, testEmbedding(1))
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("k", seq); ok {
		t.Error("expected expired entry to miss")
	}
	if c.Size() != 0 {
		t.Errorf("expected expired entry to be removed, size %d", c.Size())
	}
}

func TestEmbeddingCache_Invalidate(t *testing.T) {
	c := NewEmbeddingCache(10, time.Minute)
	seq := domain.Sequence{Symbols: []string{"A"}}
	c.Put("k", seq, testEmbedding(1))
	c.Invalidate()

	if _, ok := c.Get("k", seq); ok {
		t.Error("expected miss after invalidate")
	}
}

func TestEmbeddingCache_MatrixCopied(t *testing.T) {
	c := NewEmbeddingCache(10, time.Minute)
	seq := domain.Sequence{Symbols: []string{"A"}}
	c.Put("k", seq, &domain.Embedding{Alphabet: []string{"A"}, Matrix: mat.NewDense(1, 1, []float64{4})})

	got, ok := c.Get("k", seq)
	if !ok {
		t.Fatal("expected hit")
	}
	got.Matrix.Set(0, 0, 0)
	again, _ := c.Get("k", seq)
	if again.Matrix.At(0, 0) != 4 {
		t.Error("cached matrix was mutated through a returned copy")
	}
}

func TestCachedEmbedder(t *testing.T) {
	calls := 0
	fn := func(ctx context.Context, seq domain.Sequence) (*domain.Embedding, error) {
		calls++
		return testEmbedding(float64(len(seq.Symbols))), nil
	}
	hits := 0
	e := NewCachedEmbedder(fn, NewEmbeddingCache(10, time.Minute), "fp", func(context.Context) { hits++ })

	ctx := context.Background()
	for _, id := range []string{"x", "y", "z"} {
		emb, err := e.Embed(ctx, domain.Sequence{ID: id, Symbols: []string{"A", "B"}})
		if err != nil {
			t.Fatal(err)
		}
		if emb.Vector[0] != 2 {
			t.Errorf("unexpected value %v", emb.Vector[0])
		}
	}

	if calls != 1 {
		t.Errorf("expected 1 underlying call, got %d", calls)
	}
	if hits != 2 {
		t.Errorf("expected 2 hits, got %d", hits)
	}
}

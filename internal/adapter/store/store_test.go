package store

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"sgt/internal/domain"
	"sgt/internal/port"
)

func openTestStore(t *testing.T) (*BoltStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "embeddings.db")
	s, err := NewBoltStore(path)
	if err != nil {
		t.Fatalf("NewBoltStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func testModel() domain.Model {
	return domain.Model{
		Alphabet:  []string{"A", "B"},
		Kappa:     1,
		Flatten:   true,
		Statistic: "root-mean-gap",
	}
}

func TestBoltStore_ModelRoundTrip(t *testing.T) {
	s, path := openTestStore(t)

	if _, err := s.LoadModel(); !errors.Is(err, domain.ErrNotFitted) {
		t.Fatalf("expected ErrNotFitted, got %v", err)
	}

	if err := s.SaveModel(testModel()); err != nil {
		t.Fatalf("SaveModel: %v", err)
	}
	s.Close()

	reopened, err := NewBoltStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.LoadModel()
	if err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	if len(got.Alphabet) != 2 || got.Alphabet[1] != "B" || got.Kappa != 1 || !got.Flatten {
		t.Errorf("unexpected model: %+v", got)
	}
}

func TestBoltStore_Stats(t *testing.T) {
	s, _ := openTestStore(t)

	stats, err := s.GetStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Embeddings != 0 {
		t.Errorf("expected empty stats, got %+v", stats)
	}

	want := domain.Stats{Embeddings: 3, AlphabetSize: 2, AvgLength: 4.5}
	if err := s.UpdateStats(want); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetStats()
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestCheckModel(t *testing.T) {
	s, _ := openTestStore(t)
	model := testModel()

	result, err := s.CheckModel(model)
	if err != nil {
		t.Fatal(err)
	}
	if !result.NeedsMigration || result.NeedsRebuild {
		t.Errorf("fresh db should need migration only: %+v", result)
	}

	if err := s.Migrate(model); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	result, err = s.CheckModel(model)
	if err != nil {
		t.Fatal(err)
	}
	if result.NeedsMigration || result.NeedsRebuild {
		t.Errorf("expected up to date, got %+v", result)
	}

	changed := model
	changed.Kappa = 2
	rebuild, reason, err := s.NeedsRebuild(changed)
	if err != nil {
		t.Fatal(err)
	}
	if !rebuild || reason == "" {
		t.Errorf("kappa change should require rebuild")
	}

	changed = model
	changed.Alphabet = []string{"A", "B", "C"}
	if rebuild, _, _ := s.NeedsRebuild(changed); !rebuild {
		t.Errorf("alphabet change should require rebuild")
	}
}

func TestCheckModel_NewerSchema(t *testing.T) {
	s, _ := openTestStore(t)
	if err := s.SetSchemaInfo(&SchemaInfo{Version: CurrentSchemaVersion + 1}); err != nil {
		t.Fatal(err)
	}
	result, err := s.CheckModel(testModel())
	if err != nil {
		t.Fatal(err)
	}
	if !result.NeedsRebuild {
		t.Errorf("expected rebuild for newer schema")
	}
}

func TestComputeModelHash(t *testing.T) {
	a := ComputeModelHash(testModel())
	b := ComputeModelHash(testModel())
	if a != b {
		t.Errorf("hash not deterministic: %s vs %s", a, b)
	}
	if len(a) != 16 {
		t.Errorf("expected 16 hex chars, got %q", a)
	}

	m := testModel()
	m.LengthSensitive = true
	if ComputeModelHash(m) == a {
		t.Errorf("length policy must change the hash")
	}
}

func TestClear(t *testing.T) {
	s, _ := openTestStore(t)
	model := testModel()
	if err := s.Migrate(model); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveModel(model); err != nil {
		t.Fatal(err)
	}
	vs, err := NewBoltVectorStore(s.DB(), 4)
	if err != nil {
		t.Fatal(err)
	}
	if err := vs.Upsert([]port.VectorItem{{ID: "x", Vector: []float64{1, 0, 0, 0}}}); err != nil {
		t.Fatal(err)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	if _, err := s.LoadModel(); !errors.Is(err, domain.ErrNotFitted) {
		t.Errorf("model should be gone, got %v", err)
	}
	info, err := s.GetSchemaInfo()
	if err != nil {
		t.Fatal(err)
	}
	if info.Version != CurrentSchemaVersion || info.ModelHash != "" {
		t.Errorf("expected version kept and hash cleared, got %+v", info)
	}

	reopened, err := NewBoltVectorStore(s.DB(), 4)
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := reopened.Count(); n != 0 {
		t.Errorf("expected no vectors after clear, got %d", n)
	}
}

func TestBoltVectorStore(t *testing.T) {
	s, path := openTestStore(t)
	vs, err := NewBoltVectorStore(s.DB(), 3)
	if err != nil {
		t.Fatal(err)
	}

	items := []port.VectorItem{
		{ID: "same", Vector: []float64{1, 2, 3}, Length: 5, Metadata: map[string]string{"source": "a.txt:1"}},
		{ID: "close", Vector: []float64{1, 2, 2.5}, Length: 7},
		{ID: "far", Vector: []float64{-3, 0, 1}, Length: 2},
	}
	if err := vs.Upsert(items); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	results, err := vs.Search([]float64{2, 4, 6}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].SequenceID != "same" || math.Abs(results[0].Score-1) > 1e-12 {
		t.Errorf("unexpected top hit: %+v", results[0])
	}
	if results[1].SequenceID != "close" || results[1].Length != 7 {
		t.Errorf("unexpected second hit: %+v", results[1])
	}

	if err := vs.Upsert([]port.VectorItem{{ID: "bad", Vector: []float64{1}}}); err == nil {
		t.Error("expected dimension mismatch")
	}
	if _, err := vs.Search([]float64{1}, 1); err == nil {
		t.Error("expected query dimension mismatch")
	}

	if err := vs.Delete([]string{"far"}); err != nil {
		t.Fatal(err)
	}
	if n, _ := vs.Count(); n != 2 {
		t.Errorf("expected 2 vectors, got %d", n)
	}

	// Vectors survive a reopen.
	s.Close()
	reopened, err := NewBoltStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	vs2, err := NewBoltVectorStore(reopened.DB(), 3)
	if err != nil {
		t.Fatal(err)
	}
	item, ok, err := vs2.Get("same")
	if err != nil || !ok {
		t.Fatalf("expected stored vector, ok=%v err=%v", ok, err)
	}
	if item.Length != 5 || item.Metadata["source"] != "a.txt:1" || item.Vector[2] != 3 {
		t.Errorf("unexpected item: %+v", item)
	}
	if _, ok, _ := vs2.Get("far"); ok {
		t.Error("deleted vector came back")
	}
}

func TestMigrate_FromV1DropsVectors(t *testing.T) {
	s, _ := openTestStore(t)
	vs, err := NewBoltVectorStore(s.DB(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := vs.Upsert([]port.VectorItem{{ID: "old", Vector: []float64{1}}}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetSchemaInfo(&SchemaInfo{Version: 1}); err != nil {
		t.Fatal(err)
	}

	if err := s.Migrate(testModel()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	fresh, err := NewBoltVectorStore(s.DB(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := fresh.Count(); n != 0 {
		t.Errorf("v1 vectors should be dropped, found %d", n)
	}
	info, _ := s.GetSchemaInfo()
	if info.Version != CurrentSchemaVersion {
		t.Errorf("expected version %d, got %d", CurrentSchemaVersion, info.Version)
	}
}

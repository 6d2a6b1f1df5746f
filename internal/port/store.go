package port

import "sgt/internal/domain"

// ModelStore persists the fitted alphabet and parameters between runs.
type ModelStore interface {
	SaveModel(model domain.Model) error

	// LoadModel returns domain.ErrNotFitted when no model has been saved.
	LoadModel() (domain.Model, error)

	GetStats() (domain.Stats, error)

	UpdateStats(stats domain.Stats) error

	Close() error
}

// VectorStore stores and searches flattened embeddings.
type VectorStore interface {
	// Upsert adds or updates embeddings in the store.
	Upsert(items []VectorItem) error

	// Get returns a stored embedding by sequence ID.
	Get(id string) (VectorItem, bool, error)

	// Search finds the k most similar embeddings to the query.
	Search(query []float64, k int) ([]domain.ScoredEmbedding, error)

	// Delete removes embeddings by sequence ID.
	Delete(ids []string) error

	// Count returns the number of stored embeddings.
	Count() (int, error)
}

// VectorItem represents an embedding to be stored.
type VectorItem struct {
	ID       string            // Sequence ID
	Vector   []float64         // Row-major m×m statistic
	Length   int               // Sequence length
	Metadata map[string]string // Optional metadata, e.g. source file
}

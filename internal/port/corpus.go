package port

import "sgt/internal/domain"

// CorpusSource loads sequences from somewhere outside the process.
type CorpusSource interface {
	Load(root string) ([]domain.Sequence, error)
}

// ProgressFunc is called once per finished sequence. Implementations must be
// safe for concurrent use.
type ProgressFunc func(done, total int)

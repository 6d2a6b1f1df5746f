package port

import (
	"context"

	"sgt/internal/domain"
)

// EmbedFunc computes the embedding of one sequence. It must be pure with
// respect to other sequences so executors may call it concurrently.
type EmbedFunc func(ctx context.Context, seq domain.Sequence) (*domain.Embedding, error)

// CorpusExecutor applies an EmbedFunc to every sequence of a corpus.
type CorpusExecutor interface {
	// Execute fills result.Items[i] for every corpus position i. Items are
	// addressed by original index, never by completion order. Per-item
	// failures are recorded on the item; the returned error is reserved for
	// batch-level problems such as cancellation.
	Execute(ctx context.Context, corpus []domain.Sequence, fn EmbedFunc, result *domain.BatchResult) error

	// Name returns the execution mode name.
	Name() string
}

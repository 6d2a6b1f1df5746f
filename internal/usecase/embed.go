package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"sgt/internal/adapter/store"
	"sgt/internal/domain"
	"sgt/internal/port"
)

// EmbedUseCase loads a corpus, embeds it and persists the model and vectors.
type EmbedUseCase struct {
	store  *store.BoltStore
	source port.CorpusSource
	logger *slog.Logger
}

// NewEmbedUseCase creates a new embed use case.
func NewEmbedUseCase(s *store.BoltStore, source port.CorpusSource, logger *slog.Logger) *EmbedUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmbedUseCase{
		store:  s,
		source: source,
		logger: logger,
	}
}

// EmbedResult summarizes one embed or transform run.
type EmbedResult struct {
	Sequences    int
	Embedded     int
	Failures     []domain.ItemError
	AlphabetSize int
	Mode         string
	Rebuilt      bool
	Reason       string
	Elapsed      time.Duration
}

// Fit loads the corpus under root, fits a new model on it and replaces
// everything previously stored.
func (u *EmbedUseCase) Fit(ctx context.Context, root string, opts Options) (*EmbedResult, error) {
	start := time.Now()

	corpus, err := u.source.Load(root)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}

	tr, err := NewTransformer(opts)
	if err != nil {
		return nil, err
	}
	batch, err := tr.FitTransform(ctx, corpus)
	if err := batchOnly(err); err != nil {
		return nil, err
	}

	model, err := tr.Model()
	if err != nil {
		return nil, err
	}

	result := &EmbedResult{
		Sequences:    len(corpus),
		AlphabetSize: len(model.Alphabet),
		Mode:         tr.ExecutionMode(),
	}
	if rebuild, reason, err := u.store.NeedsRebuild(model); err != nil {
		return nil, fmt.Errorf("failed to check stored model: %w", err)
	} else if rebuild {
		result.Rebuilt = true
		result.Reason = reason
	}

	// A refit always starts from an empty store; previous vectors may have
	// a different dimension or be on a different scale.
	if err := u.store.Clear(); err != nil {
		return nil, fmt.Errorf("failed to clear store: %w", err)
	}
	if err := u.store.Migrate(model); err != nil {
		return nil, fmt.Errorf("failed to migrate store: %w", err)
	}
	if err := u.store.SaveModel(model); err != nil {
		return nil, fmt.Errorf("failed to save model: %w", err)
	}

	if err := u.persist(model, batch, result); err != nil {
		return nil, err
	}
	result.Elapsed = time.Since(start)

	u.logger.Info("corpus fitted",
		"sequences", result.Sequences,
		"embedded", result.Embedded,
		"failed", len(result.Failures),
		"alphabet_size", result.AlphabetSize,
	)
	return result, nil
}

// Transform embeds the corpus under root with the stored model and adds the
// vectors to the store. Sequences with symbols outside the stored alphabet
// are reported as failures.
func (u *EmbedUseCase) Transform(ctx context.Context, root string, opts Options) (*EmbedResult, error) {
	start := time.Now()

	model, err := u.store.LoadModel()
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	if rebuild, reason, err := u.store.NeedsRebuild(model); err != nil {
		return nil, err
	} else if rebuild {
		return nil, fmt.Errorf("stored embeddings are incompatible with the stored model (%s); run fit again", reason)
	}

	corpus, err := u.source.Load(root)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}

	tr, err := NewTransformerFromModel(model, opts)
	if err != nil {
		return nil, err
	}
	batch, err := tr.Transform(ctx, corpus)
	if err := batchOnly(err); err != nil {
		return nil, err
	}

	result := &EmbedResult{
		Sequences:    len(corpus),
		AlphabetSize: len(model.Alphabet),
		Mode:         tr.ExecutionMode(),
	}
	if err := u.persist(model, batch, result); err != nil {
		return nil, err
	}
	result.Elapsed = time.Since(start)

	u.logger.Info("corpus transformed",
		"sequences", result.Sequences,
		"embedded", result.Embedded,
		"failed", len(result.Failures),
	)
	return result, nil
}

// persist writes successful embeddings and refreshes the stats.
func (u *EmbedUseCase) persist(model domain.Model, batch *domain.BatchResult, result *EmbedResult) error {
	m := len(model.Alphabet)
	vectors, err := store.NewBoltVectorStore(u.store.DB(), m*m)
	if err != nil {
		return fmt.Errorf("failed to open vector store: %w", err)
	}

	stats, err := u.store.GetStats()
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}
	totalLen := stats.AvgLength * float64(stats.Embeddings)
	count := stats.Embeddings

	items := make([]port.VectorItem, 0, len(batch.Items))
	staged := make(map[string]int, len(batch.Items))
	for _, it := range batch.Items {
		if it.Err != nil {
			result.Failures = append(result.Failures, domain.ItemError{Index: it.Index, SequenceID: it.SequenceID, Err: it.Err})
			continue
		}
		// Later duplicates of an ID replace earlier ones.
		if prev, ok := staged[it.SequenceID]; ok {
			totalLen -= float64(prev)
			count--
		} else if old, ok, err := vectors.Get(it.SequenceID); err != nil {
			return err
		} else if ok {
			totalLen -= float64(old.Length)
			count--
		}
		staged[it.SequenceID] = it.Embedding.Length
		items = append(items, port.VectorItem{
			ID:     it.SequenceID,
			Vector: it.Embedding.Values(),
			Length: it.Embedding.Length,
		})
		totalLen += float64(it.Embedding.Length)
		count++
	}

	if err := vectors.Upsert(items); err != nil {
		return fmt.Errorf("failed to store embeddings: %w", err)
	}
	result.Embedded = len(items)

	avg := 0.0
	if count > 0 {
		avg = totalLen / float64(count)
	}
	if err := u.store.UpdateStats(domain.Stats{
		Embeddings:   count,
		AlphabetSize: m,
		AvgLength:    avg,
	}); err != nil {
		return fmt.Errorf("failed to update stats: %w", err)
	}
	return nil
}

// batchOnly drops per-item failures, which are reported on the result,
// and keeps batch-level errors.
func batchOnly(err error) error {
	var batchErr *domain.BatchError
	if errors.As(err, &batchErr) {
		return nil
	}
	return err
}

package usecase

import (
	"context"
	"fmt"

	"sgt/internal/adapter/retriever"
	"sgt/internal/domain"
	"sgt/internal/port"
)

// SimilarUseCase finds stored sequences whose embeddings are closest to a
// query sequence.
type SimilarUseCase struct {
	vectors     port.VectorStore
	transformer *Transformer
	mmr         *retriever.MMRReranker
}

// NewSimilarUseCase creates the use case. mmr may be nil to rank by cosine
// similarity alone.
func NewSimilarUseCase(vectors port.VectorStore, transformer *Transformer, mmr *retriever.MMRReranker) *SimilarUseCase {
	return &SimilarUseCase{
		vectors:     vectors,
		transformer: transformer,
		mmr:         mmr,
	}
}

// Search embeds symbols with the fitted transformer and returns the k most
// similar stored sequences.
func (u *SimilarUseCase) Search(ctx context.Context, symbols []string, k int) ([]domain.ScoredEmbedding, error) {
	if u.vectors == nil || u.transformer == nil {
		return nil, fmt.Errorf("similarity search not available: no fitted model")
	}

	result, err := u.transformer.Transform(ctx, []domain.Sequence{{ID: "query", Symbols: symbols}})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	return u.search(result.Items[0].Embedding.Values(), k, "")
}

// SearchByID returns the k stored sequences most similar to a stored one,
// excluding itself.
func (u *SimilarUseCase) SearchByID(id string, k int) ([]domain.ScoredEmbedding, error) {
	if u.vectors == nil {
		return nil, fmt.Errorf("similarity search not available: no vector store")
	}

	item, ok, err := u.vectors.Get(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("sequence not found: %s", id)
	}

	return u.search(item.Vector, k, id)
}

// search ranks stored vectors against query, skipping exclude. With a
// reranker the candidate pool is twice the requested size.
func (u *SimilarUseCase) search(query []float64, k int, exclude string) ([]domain.ScoredEmbedding, error) {
	if k <= 0 {
		return nil, nil
	}
	pool := k
	if u.mmr != nil {
		pool = k * 2
	}
	if exclude != "" {
		pool++
	}

	hits, err := u.vectors.Search(query, pool)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	candidates := make([]retriever.Candidate, 0, len(hits))
	for _, h := range hits {
		if h.SequenceID == exclude {
			continue
		}
		c := retriever.Candidate{ScoredEmbedding: h}
		if u.mmr != nil {
			item, ok, err := u.vectors.Get(h.SequenceID)
			if err != nil {
				return nil, err
			}
			if ok {
				c.Vector = item.Vector
			}
		}
		candidates = append(candidates, c)
	}

	if u.mmr != nil {
		return u.mmr.Rerank(candidates, k), nil
	}

	out := make([]domain.ScoredEmbedding, 0, k)
	for _, c := range candidates {
		if len(out) == k {
			break
		}
		out = append(out, c.ScoredEmbedding)
	}
	return out, nil
}

// VectorItems converts the successful items of a batch to storable vectors.
func VectorItems(batch *domain.BatchResult) []port.VectorItem {
	items := make([]port.VectorItem, 0, len(batch.Items))
	for _, it := range batch.Items {
		if it.Err != nil || it.Embedding == nil {
			continue
		}
		items = append(items, port.VectorItem{
			ID:     it.SequenceID,
			Vector: it.Embedding.Values(),
			Length: it.Embedding.Length,
		})
	}
	return items
}

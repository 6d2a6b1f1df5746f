// Package retriever ranks stored embeddings against a query vector.
package retriever

import (
	"sort"

	"gonum.org/v1/gonum/floats"

	"sgt/internal/domain"
	"sgt/internal/port"
)

// Rank scores every vector against query and returns the top k by cosine
// similarity, ties broken by ID.
func Rank(query []float64, vectors map[string]port.VectorItem, k int) []domain.ScoredEmbedding {
	if len(vectors) == 0 || k <= 0 {
		return nil
	}

	scores := make([]domain.ScoredEmbedding, 0, len(vectors))
	for id, item := range vectors {
		scores = append(scores, domain.ScoredEmbedding{
			SequenceID: id,
			Score:      Cosine(query, item.Vector),
			Length:     item.Length,
		})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].SequenceID < scores[j].SequenceID
	})

	if k > len(scores) {
		k = len(scores)
	}
	return scores[:k]
}

// Cosine returns the cosine similarity of a and b, 0 if either is all zeros
// or the lengths differ.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 0
	}
	return floats.Dot(a, b) / (normA * normB)
}

package retriever

import (
	"sgt/internal/domain"
)

// Candidate is a scored hit together with its stored vector.
type Candidate struct {
	domain.ScoredEmbedding
	Vector []float64
}

// MMRReranker implements Maximal Marginal Relevance over embedding vectors,
// so near-identical stored sequences do not crowd out the result list.
type MMRReranker struct {
	lambda   float64
	dedupSim float64
}

// NewMMRReranker creates a new MMR reranker. Candidates whose cosine
// similarity to an already selected one exceeds dedupSim are dropped.
func NewMMRReranker(lambda, dedupSim float64) *MMRReranker {
	return &MMRReranker{
		lambda:   lambda,
		dedupSim: dedupSim,
	}
}

// Rerank applies MMR to diversify the results.
// MMR(c) = λ * relevance(c) - (1-λ) * max_similarity(c, selected)
func (r *MMRReranker) Rerank(candidates []Candidate, k int) []domain.ScoredEmbedding {
	if len(candidates) == 0 || k <= 0 {
		return nil
	}
	if k > len(candidates) {
		k = len(candidates)
	}

	// Cosine scores may be negative; shift relevance into [0, 1].
	minScore, maxScore := candidates[0].Score, candidates[0].Score
	for _, c := range candidates {
		if c.Score > maxScore {
			maxScore = c.Score
		}
		if c.Score < minScore {
			minScore = c.Score
		}
	}
	span := maxScore - minScore
	if span == 0 {
		span = 1
	}

	selected := make([]Candidate, 0, k)
	remaining := make([]Candidate, len(candidates))
	copy(remaining, candidates)

	for len(selected) < k && len(remaining) > 0 {
		bestIdx := -1
		bestMMR := -1e9

		for i, candidate := range remaining {
			relevance := (candidate.Score - minScore) / span

			maxSim := 0.0
			for _, sel := range selected {
				if sim := Cosine(candidate.Vector, sel.Vector); sim > maxSim {
					maxSim = sim
				}
			}
			if maxSim > r.dedupSim {
				continue
			}

			// Strict comparison keeps the earlier candidate on ties.
			if mmr := r.lambda*relevance - (1-r.lambda)*maxSim; mmr > bestMMR {
				bestMMR = mmr
				bestIdx = i
			}
		}

		if bestIdx == -1 {
			break
		}
		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	out := make([]domain.ScoredEmbedding, len(selected))
	for i, c := range selected {
		out[i] = c.ScoredEmbedding
	}
	return out
}

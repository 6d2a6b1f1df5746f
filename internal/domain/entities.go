package domain

import (
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// Sequence is one ordered list of symbols from a corpus.
type Sequence struct {
	ID      string
	Symbols []string
}

// Embedding is the SGT representation of a single sequence.
// Exactly one of Matrix or Vector is set, depending on the flatten policy.
type Embedding struct {
	SequenceID string
	Alphabet   []string
	Length     int
	Matrix     *mat.Dense
	Vector     []float64
}

// Flattened reports whether the embedding is in vector form.
func (e *Embedding) Flattened() bool {
	return e.Matrix == nil
}

// Dim returns the number of coordinates (m²).
func (e *Embedding) Dim() int {
	return len(e.Alphabet) * len(e.Alphabet)
}

// At returns the statistic for the ordered pair (u, v) regardless of form.
func (e *Embedding) At(u, v int) float64 {
	if e.Matrix != nil {
		return e.Matrix.At(u, v)
	}
	return e.Vector[u*len(e.Alphabet)+v]
}

// Values returns the row-major coordinates. The returned slice must not be modified.
func (e *Embedding) Values() []float64 {
	if e.Matrix == nil {
		return e.Vector
	}
	m := len(e.Alphabet)
	out := make([]float64, 0, m*m)
	for u := 0; u < m; u++ {
		out = append(out, e.Matrix.RawRowView(u)...)
	}
	return out
}

// Model is a fitted transformer state: the fixed alphabet and the
// parameters every stored embedding was computed with.
type Model struct {
	Alphabet        []string `json:"alphabet" yaml:"alphabet"`
	Kappa           float64  `json:"kappa" yaml:"kappa"`
	LengthSensitive bool     `json:"length_sensitive" yaml:"length_sensitive"`
	Flatten         bool     `json:"flatten" yaml:"flatten"`
	Statistic       string   `json:"statistic" yaml:"statistic"`
}

// BatchItem is the outcome for a single corpus position.
type BatchItem struct {
	Index      int
	SequenceID string
	Embedding  *Embedding
	Err        error
}

// BatchResult holds one item per input sequence, in corpus order.
type BatchResult struct {
	Items []BatchItem
}

// NewBatchResult allocates a result for n sequences with indices pre-assigned.
func NewBatchResult(corpus []Sequence) *BatchResult {
	items := make([]BatchItem, len(corpus))
	for i, seq := range corpus {
		id := seq.ID
		if id == "" {
			id = strconv.Itoa(i)
		}
		items[i] = BatchItem{Index: i, SequenceID: id}
	}
	return &BatchResult{Items: items}
}

// Embeddings returns the successful embeddings in corpus order.
func (r *BatchResult) Embeddings() []*Embedding {
	out := make([]*Embedding, 0, len(r.Items))
	for _, it := range r.Items {
		if it.Err == nil && it.Embedding != nil {
			out = append(out, it.Embedding)
		}
	}
	return out
}

// Failed returns the number of items that carry an error.
func (r *BatchResult) Failed() int {
	n := 0
	for _, it := range r.Items {
		if it.Err != nil {
			n++
		}
	}
	return n
}

// Err returns a *BatchError describing every failed item, or nil.
func (r *BatchResult) Err() error {
	var failures []ItemError
	for _, it := range r.Items {
		if it.Err != nil {
			failures = append(failures, ItemError{Index: it.Index, SequenceID: it.SequenceID, Err: it.Err})
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return &BatchError{Total: len(r.Items), Failures: failures}
}

// Stats describes the contents of an embedding store.
type Stats struct {
	Embeddings   int     `json:"embeddings"`
	AlphabetSize int     `json:"alphabet_size"`
	AvgLength    float64 `json:"avg_length"`
}

// ScoredEmbedding is a similarity search hit.
type ScoredEmbedding struct {
	SequenceID string  `json:"sequence_id"`
	Score      float64 `json:"score"`
	Length     int     `json:"length"`
}

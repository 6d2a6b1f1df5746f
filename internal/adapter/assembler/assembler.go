// Package assembler turns kernel accumulations into embeddings.
package assembler

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"sgt/internal/adapter/alphabet"
	"sgt/internal/adapter/kernel"
	"sgt/internal/domain"
)

// Options controls the shape and length policy of an embedding.
type Options struct {
	LengthSensitive bool
	Flatten         bool
	Statistic       kernel.Statistic
}

// Assembler is stateless and safe for concurrent use.
type Assembler struct {
	opts Options
}

func New(opts Options) *Assembler {
	if opts.Statistic == "" {
		opts.Statistic = kernel.RootMeanGap
	}
	return &Assembler{opts: opts}
}

// Options returns the assembler configuration.
func (a *Assembler) Options() Options { return a.opts }

// Assemble reduces acc to Φ, applies the length policy and shapes the result.
func (a *Assembler) Assemble(id string, idx *alphabet.Index, acc *kernel.Accumulation) (*domain.Embedding, error) {
	if idx.Len() != acc.M {
		return nil, fmt.Errorf("accumulation has %d symbols, alphabet has %d", acc.M, idx.Len())
	}

	var phi []float64
	switch a.opts.Statistic {
	case kernel.PowerMean:
		phi = kernel.PowerMeanPhi(acc, !a.opts.LengthSensitive)
	case kernel.RootMeanGap:
		phi = kernel.RootMeanGapPhi(acc)
		if a.opts.LengthSensitive {
			ScaleRows(phi, acc.Counts, acc.Length)
		}
	default:
		return nil, &domain.InvalidParameterError{Name: "statistic", Value: a.opts.Statistic, Reason: "unsupported"}
	}

	emb := &domain.Embedding{
		SequenceID: id,
		Alphabet:   idx.Symbols(),
		Length:     acc.Length,
	}
	if a.opts.Flatten {
		emb.Vector = phi
	} else {
		emb.Matrix = mat.NewDense(acc.M, acc.M, phi)
	}
	return emb, nil
}

// ScaleRows multiplies row u of the m×m row-major phi by counts[u]/length.
func ScaleRows(phi []float64, counts []int, length int) {
	m := len(counts)
	for u, n := range counts {
		f := float64(n) / float64(length)
		row := phi[u*m : (u+1)*m]
		for v := range row {
			row[v] *= f
		}
	}
}

// Flatten returns the row-major coordinates of a square matrix.
func Flatten(m *mat.Dense) []float64 {
	r, c := m.Dims()
	out := make([]float64, 0, r*c)
	for u := 0; u < r; u++ {
		out = append(out, m.RawRowView(u)...)
	}
	return out
}

// Unflatten reshapes a length-m² vector back into an m×m matrix. The
// vector is copied.
func Unflatten(vec []float64, m int) (*mat.Dense, error) {
	if m <= 0 || len(vec) != m*m {
		return nil, &domain.InvalidParameterError{Name: "vector", Value: len(vec), Reason: fmt.Sprintf("length must be %d²", m)}
	}
	return mat.NewDense(m, m, append([]float64(nil), vec...)), nil
}

// FeatureNames labels every flattened coordinate as "u->v".
func FeatureNames(idx *alphabet.Index) []string {
	m := idx.Len()
	names := make([]string, 0, m*m)
	for u := 0; u < m; u++ {
		for v := 0; v < m; v++ {
			names = append(names, idx.Symbol(u)+"->"+idx.Symbol(v))
		}
	}
	return names
}

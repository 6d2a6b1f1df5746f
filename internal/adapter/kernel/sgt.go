// Package kernel implements the Sequence Graph Transform accumulation.
//
// For every ordered symbol pair (u, v) and every pair of positions i < j with
// s[i] = u and s[j] = v, the kernel accumulates
//
//	W0[u][v] = Σ exp(-κ·(j-i))
//	W1[u][v] = Σ (j-i)·exp(-κ·(j-i))
//	P[u][v]  = number of such (i, j) pairs
//
// in a single left-to-right pass. Matrices are row-major slices of length m².
package kernel

import (
	"fmt"
	"math"

	"sgt/internal/domain"
)

// Accumulation is the raw per-sequence output of the kernel.
type Accumulation struct {
	M      int
	Length int
	Kappa  float64
	W0     []float64
	W1     []float64
	Pairs  []float64
	Counts []int
}

func newAccumulation(m, length int, kappa float64) *Accumulation {
	return &Accumulation{
		M:      m,
		Length: length,
		Kappa:  kappa,
		W0:     make([]float64, m*m),
		W1:     make([]float64, m*m),
		Pairs:  make([]float64, m*m),
		Counts: make([]int, m),
	}
}

// ValidateKappa rejects κ <= 0 and non-finite values.
func ValidateKappa(kappa float64) error {
	if math.IsNaN(kappa) || math.IsInf(kappa, 0) {
		return &domain.InvalidParameterError{Name: "kappa", Value: kappa, Reason: "must be finite"}
	}
	if kappa <= 0 {
		return &domain.InvalidParameterError{Name: "kappa", Value: kappa, Reason: "must be strictly positive"}
	}
	return nil
}

func validate(encoded []int, m int, kappa float64) error {
	if err := ValidateKappa(kappa); err != nil {
		return err
	}
	if m <= 0 {
		return &domain.EmptyAlphabetError{Source: "kernel input"}
	}
	if len(encoded) == 0 {
		return &domain.InvalidParameterError{Name: "sequence", Value: 0, Reason: "length must be at least 1"}
	}
	for pos, v := range encoded {
		if v < 0 || v >= m {
			return &domain.InvalidParameterError{Name: "sequence", Value: v, Reason: fmt.Sprintf("symbol index out of range at position %d", pos)}
		}
	}
	return nil
}

// Accumulate runs the single-pass O(L·k) accumulation, where k <= m is the
// number of distinct symbols in the sequence.
func Accumulate(encoded []int, m int, kappa float64) (*Accumulation, error) {
	if err := validate(encoded, m, kappa); err != nil {
		return nil, err
	}
	acc := newAccumulation(m, len(encoded), kappa)
	decay := math.Exp(-kappa)

	// a[u], b[u] hold Σ e^{-κd} and Σ d·e^{-κd} over prior occurrences of u,
	// decayed to the current position. c[u] counts prior occurrences.
	a := make([]float64, m)
	b := make([]float64, m)
	c := make([]float64, m)
	active := make([]int, 0, m)

	for _, v := range encoded {
		for _, u := range active {
			k := u*m + v
			acc.W0[k] += a[u]
			acc.W1[k] += b[u]
			acc.Pairs[k] += c[u]
		}

		if acc.Counts[v] == 0 {
			active = append(active, v)
		}
		acc.Counts[v]++
		a[v]++
		c[v]++

		for _, u := range active {
			b[u] = (b[u] + a[u]) * decay
			a[u] *= decay
		}
	}
	return acc, nil
}

// AccumulateQuadratic is the O(L²) double loop the single pass must agree with.
func AccumulateQuadratic(encoded []int, m int, kappa float64) (*Accumulation, error) {
	if err := validate(encoded, m, kappa); err != nil {
		return nil, err
	}
	acc := newAccumulation(m, len(encoded), kappa)
	for i, u := range encoded {
		acc.Counts[u]++
		for j := i + 1; j < len(encoded); j++ {
			gap := float64(j - i)
			w := math.Exp(-kappa * gap)
			k := u*m + encoded[j]
			acc.W0[k] += w
			acc.W1[k] += gap * w
			acc.Pairs[k]++
		}
	}
	return acc, nil
}

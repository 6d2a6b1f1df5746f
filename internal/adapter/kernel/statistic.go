package kernel

import (
	"math"

	"sgt/internal/domain"
)

// Statistic selects how an Accumulation is reduced to Φ.
type Statistic string

const (
	// RootMeanGap is Φ = sqrt(W1 / W0): the decay-weighted root-mean-gap
	// between occurrences of u and later occurrences of v.
	RootMeanGap Statistic = "root-mean-gap"

	// PowerMean is Φ = (W0 / P)^(1/κ), the formulation of the published SGT
	// package. P is divided by the sequence length when length-insensitive.
	PowerMean Statistic = "power-mean"
)

// ParseStatistic converts a config string. Empty selects RootMeanGap.
func ParseStatistic(s string) (Statistic, error) {
	switch Statistic(s) {
	case "", RootMeanGap:
		return RootMeanGap, nil
	case PowerMean:
		return PowerMean, nil
	default:
		return "", &domain.InvalidParameterError{Name: "statistic", Value: s, Reason: "must be root-mean-gap or power-mean"}
	}
}

// RootMeanGapPhi returns sqrt(W1/W0) per cell, 0 where W0 is 0.
func RootMeanGapPhi(acc *Accumulation) []float64 {
	phi := make([]float64, len(acc.W0))
	for k, w0 := range acc.W0 {
		if w0 > 0 {
			phi[k] = math.Sqrt(acc.W1[k] / w0)
		}
	}
	return phi
}

// PowerMeanPhi returns (W0/P)^(1/κ) per cell, 0 where no pair exists. When
// perLength is set, P is first divided by the sequence length.
func PowerMeanPhi(acc *Accumulation, perLength bool) []float64 {
	phi := make([]float64, len(acc.W0))
	inv := 1 / acc.Kappa
	for k, pairs := range acc.Pairs {
		if pairs == 0 || acc.W0[k] == 0 {
			continue
		}
		denom := pairs
		if perLength {
			denom /= float64(acc.Length)
		}
		phi[k] = math.Pow(acc.W0[k]/denom, inv)
	}
	return phi
}

package usecase

import (
	"sgt/internal/adapter/alphabet"
	"sgt/internal/adapter/assembler"
	"sgt/internal/adapter/kernel"
	"sgt/internal/domain"
)

// FitOptions configures the single-sequence Fit. Kappa and Flatten have no
// implicit defaults; start from DefaultFitOptions for κ = 1 and the vector
// form. A zero Kappa is rejected.
type FitOptions struct {
	Kappa           float64
	LengthSensitive bool
	Flatten         bool
	Statistic       kernel.Statistic

	// Alphabet defaults to the sorted symbols of the sequence.
	Alphabet []string
}

// DefaultFitOptions returns κ = 1, length-insensitive, flattened output.
func DefaultFitOptions() FitOptions {
	return FitOptions{
		Kappa:     1,
		Flatten:   true,
		Statistic: kernel.RootMeanGap,
	}
}

// Fit embeds one sequence without building a Transformer.
func Fit(symbols []string, opts FitOptions) (*domain.Embedding, error) {
	if err := kernel.ValidateKappa(opts.Kappa); err != nil {
		return nil, err
	}
	stat, err := kernel.ParseStatistic(string(opts.Statistic))
	if err != nil {
		return nil, err
	}

	var idx *alphabet.Index
	if len(opts.Alphabet) > 0 {
		idx, err = alphabet.New(opts.Alphabet)
	} else {
		idx, err = alphabet.Infer([][]string{symbols}, alphabet.OrderSorted)
	}
	if err != nil {
		return nil, err
	}

	return embedOne(domain.Sequence{ID: "0", Symbols: symbols}, idx, Params{
		Kappa: opts.Kappa,
		Assembly: assembler.Options{
			LengthSensitive: opts.LengthSensitive,
			Flatten:         opts.Flatten,
			Statistic:       stat,
		},
	})
}

func embedOne(seq domain.Sequence, idx *alphabet.Index, params Params) (*domain.Embedding, error) {
	encoded, err := idx.Encode(seq.Symbols)
	if err != nil {
		return nil, err
	}
	acc, err := kernel.Accumulate(encoded, idx.Len(), params.Kappa)
	if err != nil {
		return nil, err
	}
	return assembler.New(params.Assembly).Assemble(seq.ID, idx, acc)
}

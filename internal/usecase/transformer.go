package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"sgt/internal/adapter/alphabet"
	"sgt/internal/adapter/assembler"
	"sgt/internal/adapter/cache"
	"sgt/internal/adapter/executor"
	"sgt/internal/adapter/kernel"
	"sgt/internal/domain"
	"sgt/internal/observe"
	"sgt/internal/port"
)

// Options configures a Transformer. Zero values select a sorted inferred
// alphabet, the root-mean-gap statistic and sequential execution. Kappa and
// Flatten have no implicit defaults; start from DefaultOptions for κ = 1 and
// the vector form. A zero Kappa is rejected.
type Options struct {
	Kappa           float64
	LengthSensitive bool
	Flatten         bool
	Statistic       kernel.Statistic

	// Alphabet, when non-empty, is fixed at construction and never inferred.
	Alphabet      []string
	AlphabetOrder alphabet.Order

	Mode       executor.Mode
	Workers    int
	Partitions int

	// CacheSize > 0 enables the embedding cache.
	CacheSize int

	Metrics  *observe.Metrics
	Logger   *slog.Logger
	Progress port.ProgressFunc
}

// DefaultOptions returns κ = 1, length-insensitive, flattened output.
func DefaultOptions() Options {
	return Options{
		Kappa:         1,
		Flatten:       true,
		Statistic:     kernel.RootMeanGap,
		AlphabetOrder: alphabet.OrderSorted,
		Mode:          executor.ModeSequential,
	}
}

// Transformer embeds corpora against one fixed alphabet. Once the alphabet
// is fixed, Transform calls are safe for concurrent use.
type Transformer struct {
	params Params
	order  alphabet.Order
	driver *Driver
	cache  *cache.EmbeddingCache

	mu       sync.RWMutex
	idx      *alphabet.Index
	explicit bool // supplied by the caller, never re-inferred
}

// NewTransformer validates opts and builds the transformer.
func NewTransformer(opts Options) (*Transformer, error) {
	if err := kernel.ValidateKappa(opts.Kappa); err != nil {
		return nil, err
	}
	stat, err := kernel.ParseStatistic(string(opts.Statistic))
	if err != nil {
		return nil, err
	}
	order, err := alphabet.ParseOrder(string(opts.AlphabetOrder))
	if err != nil {
		return nil, err
	}
	mode, err := executor.ParseMode(string(opts.Mode))
	if err != nil {
		return nil, err
	}
	if mode == executor.ModeDistributedMap && len(opts.Alphabet) == 0 {
		return nil, &domain.InvalidParameterError{
			Name:   "alphabet",
			Value:  "<none>",
			Reason: "distributed-map mode requires an explicit alphabet",
		}
	}

	ex, err := executor.New(mode, opts.Workers, opts.Partitions)
	if err != nil {
		return nil, err
	}

	t := &Transformer{
		params: Params{
			Kappa: opts.Kappa,
			Assembly: assembler.Options{
				LengthSensitive: opts.LengthSensitive,
				Flatten:         opts.Flatten,
				Statistic:       stat,
			},
		},
		order: order,
	}

	if len(opts.Alphabet) > 0 {
		idx, err := alphabet.New(opts.Alphabet)
		if err != nil {
			return nil, err
		}
		t.idx = idx
		t.explicit = true
	}

	driverOpts := []DriverOption{
		WithMetrics(opts.Metrics),
		WithLogger(opts.Logger),
	}
	if opts.CacheSize > 0 {
		t.cache = cache.NewEmbeddingCache(opts.CacheSize, time.Hour)
		driverOpts = append(driverOpts, WithCache(t.cache))
	}
	if opts.Progress != nil {
		driverOpts = append(driverOpts, WithProgress(opts.Progress))
	}
	t.driver = NewDriver(ex, driverOpts...)

	return t, nil
}

// NewTransformerFromModel restores a previously fitted transformer. Execution
// settings come from opts; embedding parameters and alphabet come from model.
func NewTransformerFromModel(model domain.Model, opts Options) (*Transformer, error) {
	if len(model.Alphabet) == 0 {
		return nil, domain.ErrNotFitted
	}
	opts.Kappa = model.Kappa
	opts.LengthSensitive = model.LengthSensitive
	opts.Flatten = model.Flatten
	opts.Statistic = kernel.Statistic(model.Statistic)
	opts.Alphabet = model.Alphabet
	return NewTransformer(opts)
}

// Alphabet returns the fixed alphabet or nil if not fitted.
func (t *Transformer) Alphabet() *alphabet.Index {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.idx
}

// Model describes the fitted state for persistence.
func (t *Transformer) Model() (domain.Model, error) {
	idx := t.Alphabet()
	if idx == nil {
		return domain.Model{}, domain.ErrNotFitted
	}
	return domain.Model{
		Alphabet:        idx.Symbols(),
		Kappa:           t.params.Kappa,
		LengthSensitive: t.params.Assembly.LengthSensitive,
		Flatten:         t.params.Assembly.Flatten,
		Statistic:       string(t.params.Assembly.Statistic),
	}, nil
}

// Params returns the embedding parameters.
func (t *Transformer) Params() Params { return t.params }

// ExecutionMode returns the executor name.
func (t *Transformer) ExecutionMode() string { return t.driver.Executor().Name() }

// Fit embeds a single sequence. Without an explicit alphabet the alphabet is
// inferred from the sequence and becomes the transformer's fixed alphabet.
func (t *Transformer) Fit(symbols []string) (*domain.Embedding, error) {
	idx, err := t.fix([][]string{symbols})
	if err != nil {
		return nil, err
	}
	return embedOne(domain.Sequence{ID: "0", Symbols: symbols}, idx, t.params)
}

// FitTransform fixes the alphabet from the whole corpus, unless one was
// supplied, then embeds every sequence. The BatchResult is returned even
// when some items failed; the error is then a *domain.BatchError.
func (t *Transformer) FitTransform(ctx context.Context, corpus []domain.Sequence) (*domain.BatchResult, error) {
	symbols := make([][]string, len(corpus))
	for i, seq := range corpus {
		symbols[i] = seq.Symbols
	}
	idx, err := t.fix(symbols)
	if err != nil {
		return nil, err
	}
	return t.run(ctx, corpus, idx)
}

// Transform embeds corpus against the fixed alphabet. Sequences with symbols
// outside it fail with *domain.UnknownSymbolError.
func (t *Transformer) Transform(ctx context.Context, corpus []domain.Sequence) (*domain.BatchResult, error) {
	idx := t.Alphabet()
	if idx == nil {
		return nil, domain.ErrNotFitted
	}
	return t.run(ctx, corpus, idx)
}

func (t *Transformer) run(ctx context.Context, corpus []domain.Sequence, idx *alphabet.Index) (*domain.BatchResult, error) {
	result, err := t.driver.Run(ctx, corpus, idx, t.params)
	if err != nil {
		return result, err
	}
	if err := result.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// fix returns the fixed alphabet, inferring it from corpus when no explicit
// alphabet was supplied. Inference completes before any embedding starts.
func (t *Transformer) fix(corpus [][]string) (*alphabet.Index, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.explicit {
		return t.idx, nil
	}
	idx, err := alphabet.Infer(corpus, t.order)
	if err != nil {
		return nil, err
	}
	if t.idx == nil || !t.idx.Equal(idx) {
		t.idx = idx
		if t.cache != nil {
			t.cache.Invalidate()
		}
	}
	return t.idx, nil
}

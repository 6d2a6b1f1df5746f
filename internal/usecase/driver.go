package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"sgt/internal/adapter/alphabet"
	"sgt/internal/adapter/assembler"
	"sgt/internal/adapter/cache"
	"sgt/internal/adapter/kernel"
	"sgt/internal/domain"
	"sgt/internal/observe"
	"sgt/internal/port"
)

// Params are the per-batch embedding parameters.
type Params struct {
	Kappa    float64
	Assembly assembler.Options
}

// Driver runs the per-sequence pipeline over a corpus through a
// CorpusExecutor.
type Driver struct {
	executor port.CorpusExecutor
	metrics  *observe.Metrics
	logger   *slog.Logger
	cache    *cache.EmbeddingCache
	progress port.ProgressFunc
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithMetrics records batch metrics on m.
func WithMetrics(m *observe.Metrics) DriverOption {
	return func(d *Driver) { d.metrics = m }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) DriverOption {
	return func(d *Driver) { d.logger = l }
}

// WithCache serves repeated sequences from c.
func WithCache(c *cache.EmbeddingCache) DriverOption {
	return func(d *Driver) { d.cache = c }
}

// WithProgress calls fn once per finished sequence.
func WithProgress(fn port.ProgressFunc) DriverOption {
	return func(d *Driver) { d.progress = fn }
}

// NewDriver creates a driver for ex.
func NewDriver(ex port.CorpusExecutor, opts ...DriverOption) *Driver {
	d := &Driver{executor: ex}
	for _, opt := range opts {
		opt(d)
	}
	if d.metrics == nil {
		d.metrics = observe.NopMetrics()
	}
	if d.logger == nil {
		d.logger = observe.NopLogger()
	}
	return d
}

// Executor returns the execution strategy in use.
func (d *Driver) Executor() port.CorpusExecutor { return d.executor }

// Run embeds every sequence of corpus against the fixed alphabet idx. The
// returned result always has one item per input in corpus order; the error
// is non-nil only for batch-level failures such as cancellation.
func (d *Driver) Run(ctx context.Context, corpus []domain.Sequence, idx *alphabet.Index, params Params) (*domain.BatchResult, error) {
	if idx == nil {
		return nil, domain.ErrNotFitted
	}
	if err := kernel.ValidateKappa(params.Kappa); err != nil {
		return nil, err
	}

	result := domain.NewBatchResult(corpus)
	labelled := make([]domain.Sequence, len(corpus))
	for i, seq := range corpus {
		labelled[i] = domain.Sequence{ID: result.Items[i].SequenceID, Symbols: seq.Symbols}
	}

	fn := d.embedFunc(idx, params, len(corpus))
	mode := d.executor.Name()

	d.logger.Info("embedding corpus",
		"sequences", len(corpus),
		"alphabet_size", idx.Len(),
		"mode", mode,
		"kappa", params.Kappa,
	)

	start := time.Now()
	execErr := d.executor.Execute(ctx, labelled, fn, result)
	elapsed := time.Since(start)

	succeeded := 0
	for _, item := range result.Items {
		if item.Err == nil {
			succeeded++
			continue
		}
		d.metrics.RecordFailure(ctx, mode, failureKind(item.Err))
		d.logger.Debug("sequence failed",
			"index", item.Index,
			"sequence_id", item.SequenceID,
			"error", item.Err,
		)
	}
	d.metrics.RecordBatch(ctx, mode, succeeded, elapsed)

	d.logger.Info("embedding finished",
		"succeeded", succeeded,
		"failed", len(result.Items)-succeeded,
		"elapsed", elapsed,
	)

	if execErr != nil {
		return result, fmt.Errorf("%s execution: %w", mode, execErr)
	}
	return result, nil
}

// embedFunc builds the pure per-sequence function. Everything it closes over
// is read-only or internally synchronized.
func (d *Driver) embedFunc(idx *alphabet.Index, params Params, total int) port.EmbedFunc {
	fn := func(ctx context.Context, seq domain.Sequence) (*domain.Embedding, error) {
		d.metrics.SequenceLength.Record(ctx, int64(len(seq.Symbols)))
		return embedOne(seq, idx, params)
	}

	if d.cache != nil {
		cached := cache.NewCachedEmbedder(fn, d.cache, Fingerprint(idx, params), func(ctx context.Context) {
			d.metrics.CacheHits.Add(ctx, 1)
		})
		fn = cached.Embed
	}

	if d.progress != nil {
		var done atomic.Int64
		inner := fn
		progress := d.progress
		fn = func(ctx context.Context, seq domain.Sequence) (*domain.Embedding, error) {
			emb, err := inner(ctx, seq)
			progress(int(done.Add(1)), total)
			return emb, err
		}
	}
	return fn
}

// Fingerprint identifies every parameter that changes an embedding's values.
func Fingerprint(idx *alphabet.Index, params Params) string {
	var b strings.Builder
	b.WriteString(strconv.FormatFloat(params.Kappa, 'g', -1, 64))
	b.WriteByte('|')
	b.WriteString(strconv.FormatBool(params.Assembly.LengthSensitive))
	b.WriteByte('|')
	b.WriteString(strconv.FormatBool(params.Assembly.Flatten))
	b.WriteByte('|')
	b.WriteString(string(params.Assembly.Statistic))
	for _, s := range idx.Symbols() {
		b.WriteByte('|')
		b.WriteString(strconv.Quote(s))
	}
	return b.String()
}

// failureKind maps an item error to a low-cardinality metric attribute.
func failureKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnknownSymbol):
		return "unknown_symbol"
	case errors.Is(err, domain.ErrInvalidParameter):
		return "invalid_parameter"
	case errors.Is(err, domain.ErrEmptyAlphabet):
		return "empty_alphabet"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "other"
	}
}

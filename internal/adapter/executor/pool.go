package executor

import (
	"context"

	"golang.org/x/sync/errgroup"

	"sgt/internal/domain"
	"sgt/internal/port"
)

// WorkerPool runs sequences on a bounded number of goroutines.
type WorkerPool struct {
	workers int
}

func NewWorkerPool(workers int) (*WorkerPool, error) {
	if workers <= 0 {
		return nil, &domain.InvalidParameterError{Name: "workers", Value: workers, Reason: "must be at least 1"}
	}
	return &WorkerPool{workers: workers}, nil
}

func (p *WorkerPool) Name() string { return string(ModeWorkerPool) }

// Workers returns the concurrency bound.
func (p *WorkerPool) Workers() int { return p.workers }

func (p *WorkerPool) Execute(ctx context.Context, corpus []domain.Sequence, fn port.EmbedFunc, result *domain.BatchResult) error {
	// Item failures are recorded on the item and never returned to the
	// group, so one bad sequence does not cancel its siblings.
	var g errgroup.Group
	g.SetLimit(p.workers)

	for i := range corpus {
		if err := ctx.Err(); err != nil {
			_ = g.Wait()
			markCancelled(result, i, err)
			return err
		}
		g.Go(func() error {
			runItem(ctx, &result.Items[i], corpus[i], fn)
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

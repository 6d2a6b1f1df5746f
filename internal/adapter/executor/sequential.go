package executor

import (
	"context"

	"sgt/internal/domain"
	"sgt/internal/port"
)

// Sequential runs every sequence on the calling goroutine.
type Sequential struct{}

func NewSequential() *Sequential { return &Sequential{} }

func (s *Sequential) Name() string { return string(ModeSequential) }

func (s *Sequential) Execute(ctx context.Context, corpus []domain.Sequence, fn port.EmbedFunc, result *domain.BatchResult) error {
	for i := range corpus {
		if err := ctx.Err(); err != nil {
			markCancelled(result, i, err)
			return err
		}
		runItem(ctx, &result.Items[i], corpus[i], fn)
	}
	return nil
}

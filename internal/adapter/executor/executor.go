// Package executor provides the corpus execution strategies. All of them run
// the same per-sequence function and write results by original corpus
// index, so the choice of strategy never changes the numeric output.
package executor

import (
	"context"
	"fmt"

	"sgt/internal/domain"
	"sgt/internal/port"
)

// Mode names an execution strategy.
type Mode string

const (
	ModeSequential     Mode = "sequential"
	ModeWorkerPool     Mode = "worker-pool"
	ModeDistributedMap Mode = "distributed-map"
)

// ParseMode converts a config string. Empty selects ModeSequential.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeSequential:
		return ModeSequential, nil
	case ModeWorkerPool, "pool", "multiprocessing":
		return ModeWorkerPool, nil
	case ModeDistributedMap, "distributed":
		return ModeDistributedMap, nil
	default:
		return "", &domain.InvalidParameterError{Name: "mode", Value: s, Reason: "must be sequential, worker-pool or distributed-map"}
	}
}

// New builds the executor for mode. workers bounds concurrency for the
// worker pool and the number of shards processed at once for the
// distributed map; partitions is only used by the distributed map.
func New(mode Mode, workers, partitions int) (port.CorpusExecutor, error) {
	switch mode {
	case ModeSequential, "":
		return NewSequential(), nil
	case ModeWorkerPool:
		return NewWorkerPool(workers)
	case ModeDistributedMap:
		return NewDistributedMap(partitions, workers)
	default:
		return nil, fmt.Errorf("unknown execution mode %q", mode)
	}
}

// runItem computes a single item in place.
func runItem(ctx context.Context, item *domain.BatchItem, seq domain.Sequence, fn port.EmbedFunc) {
	if err := ctx.Err(); err != nil {
		item.Err = err
		return
	}
	emb, err := fn(ctx, seq)
	if err != nil {
		item.Err = err
		return
	}
	item.Embedding = emb
}

// markCancelled records err on every item that was never started.
func markCancelled(result *domain.BatchResult, from int, err error) {
	for i := from; i < len(result.Items); i++ {
		if result.Items[i].Embedding == nil && result.Items[i].Err == nil {
			result.Items[i].Err = err
		}
	}
}

package executor

import (
	"context"

	"golang.org/x/sync/errgroup"

	"sgt/internal/domain"
	"sgt/internal/port"
)

// Shard is a contiguous slice of the corpus handed to one partition worker.
type Shard struct {
	ID    int
	Start int
	End   int
}

// Partition splits n items into at most parts contiguous, balanced shards.
func Partition(n, parts int) []Shard {
	if n == 0 {
		return nil
	}
	if parts <= 0 {
		parts = 1
	}
	if parts > n {
		parts = n
	}
	shards := make([]Shard, 0, parts)
	base, extra := n/parts, n%parts
	start := 0
	for id := 0; id < parts; id++ {
		size := base
		if id < extra {
			size++
		}
		shards = append(shards, Shard{ID: id, Start: start, End: start + size})
		start += size
	}
	return shards
}

// record is what a partition worker ships back to the collector.
type record struct {
	index int
	emb   *domain.Embedding
	err   error
}

// DistributedMap models a data-parallel runtime: the corpus is cut into
// shards, each shard is mapped independently with only the sequences it
// owns, and a collector reassembles records by original index. The
// per-sequence function must therefore not depend on anything a shard
// cannot see, which is why the alphabet has to be supplied up front.
type DistributedMap struct {
	partitions  int
	parallelism int
}

func NewDistributedMap(partitions, parallelism int) (*DistributedMap, error) {
	if partitions <= 0 {
		return nil, &domain.InvalidParameterError{Name: "partitions", Value: partitions, Reason: "must be at least 1"}
	}
	if parallelism <= 0 {
		return nil, &domain.InvalidParameterError{Name: "workers", Value: parallelism, Reason: "must be at least 1"}
	}
	return &DistributedMap{partitions: partitions, parallelism: parallelism}, nil
}

func (d *DistributedMap) Name() string { return string(ModeDistributedMap) }

func (d *DistributedMap) Execute(ctx context.Context, corpus []domain.Sequence, fn port.EmbedFunc, result *domain.BatchResult) error {
	shards := Partition(len(corpus), d.partitions)
	out := make(chan []record, len(shards))

	var g errgroup.Group
	g.SetLimit(d.parallelism)
	for _, sh := range shards {
		g.Go(func() error {
			out <- mapShard(ctx, sh, corpus[sh.Start:sh.End], fn)
			return nil
		})
	}
	_ = g.Wait()
	close(out)

	for records := range out {
		for _, r := range records {
			item := &result.Items[r.index]
			item.Embedding = r.emb
			item.Err = r.err
		}
	}
	return ctx.Err()
}

func mapShard(ctx context.Context, sh Shard, local []domain.Sequence, fn port.EmbedFunc) []record {
	records := make([]record, len(local))
	for i, seq := range local {
		records[i].index = sh.Start + i
		if err := ctx.Err(); err != nil {
			records[i].err = err
			continue
		}
		records[i].emb, records[i].err = fn(ctx, seq)
	}
	return records
}

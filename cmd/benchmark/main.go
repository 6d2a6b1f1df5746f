package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strings"
	"time"

	"sgt/internal/adapter/alphabet"
	"sgt/internal/adapter/executor"
	"sgt/internal/adapter/kernel"
	"sgt/internal/domain"
	"sgt/internal/usecase"
)

func main() {
	n := flag.Int("n", 2000, "number of sequences")
	length := flag.Int("len", 200, "sequence length")
	m := flag.Int("m", 12, "alphabet size")
	kappa := flag.Float64("kappa", 1, "tuning parameter")
	workers := flag.Int("workers", 8, "worker-pool and distributed parallelism")
	seed := flag.Int64("seed", 1, "random seed")
	flag.Parse()

	symbols := make([]string, *m)
	for i := range symbols {
		symbols[i] = fmt.Sprintf("s%02d", i)
	}
	rng := rand.New(rand.NewSource(*seed))
	corpus := make([]domain.Sequence, *n)
	for i := range corpus {
		seq := make([]string, 1+rng.Intn(*length))
		for j := range seq {
			seq[j] = symbols[rng.Intn(*m)]
		}
		corpus[i] = domain.Sequence{ID: fmt.Sprintf("seq-%d", i), Symbols: seq}
	}

	fmt.Println("SGT BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Sequences: %d  max length: %d  alphabet: %d  kappa: %g\n\n", *n, *length, *m, *kappa)

	if err := benchKernel(corpus, symbols, *kappa); err != nil {
		fmt.Fprintf(os.Stderr, "Kernel check failed: %v\n", err)
		os.Exit(1)
	}
	if err := benchExecutors(corpus, symbols, *kappa, *workers); err != nil {
		fmt.Fprintf(os.Stderr, "Executor check failed: %v\n", err)
		os.Exit(1)
	}
}

// benchKernel compares the single-pass accumulation with the pairwise
// reference on a prefix of the corpus.
func benchKernel(corpus []domain.Sequence, symbols []string, kappa float64) error {
	idx, err := alphabet.New(symbols)
	if err != nil {
		return err
	}
	sample := corpus
	if len(sample) > 200 {
		sample = sample[:200]
	}
	encoded := make([][]int, len(sample))
	for i, seq := range sample {
		if encoded[i], err = idx.Encode(seq.Symbols); err != nil {
			return err
		}
	}

	start := time.Now()
	fast := make([]*kernel.Accumulation, len(encoded))
	for i, e := range encoded {
		if fast[i], err = kernel.Accumulate(e, idx.Len(), kappa); err != nil {
			return err
		}
	}
	fastElapsed := time.Since(start)

	start = time.Now()
	maxDiff := 0.0
	for i, e := range encoded {
		ref, err := kernel.AccumulateQuadratic(e, idx.Len(), kappa)
		if err != nil {
			return err
		}
		for k := range ref.W0 {
			maxDiff = math.Max(maxDiff, relDiff(fast[i].W0[k], ref.W0[k]))
			maxDiff = math.Max(maxDiff, relDiff(fast[i].W1[k], ref.W1[k]))
		}
	}
	refElapsed := time.Since(start)

	fmt.Printf("Kernel (%d sequences):\n", len(sample))
	fmt.Printf("  single pass:  %v\n", fastElapsed)
	fmt.Printf("  pairwise:     %v\n", refElapsed)
	fmt.Printf("  max rel diff: %.2e\n\n", maxDiff)
	if maxDiff > 1e-8 {
		return fmt.Errorf("accumulations disagree: %.2e", maxDiff)
	}
	return nil
}

func benchExecutors(corpus []domain.Sequence, symbols []string, kappa float64, workers int) error {
	modes := []executor.Mode{executor.ModeSequential, executor.ModeWorkerPool, executor.ModeDistributedMap}

	var baseline *domain.BatchResult
	fmt.Println("Executors:")
	for _, mode := range modes {
		opts := usecase.DefaultOptions()
		opts.Kappa = kappa
		opts.Alphabet = symbols
		opts.Mode = mode
		opts.Workers = workers
		opts.Partitions = workers * 2

		tr, err := usecase.NewTransformer(opts)
		if err != nil {
			return err
		}
		start := time.Now()
		result, err := tr.FitTransform(context.Background(), corpus)
		if err != nil {
			return fmt.Errorf("%s: %w", mode, err)
		}
		elapsed := time.Since(start)
		rate := float64(len(corpus)) / elapsed.Seconds()
		fmt.Printf("  %-16s %12v  %10.0f seq/s\n", mode, elapsed, rate)

		if baseline == nil {
			baseline = result
			continue
		}
		for i, item := range result.Items {
			want := baseline.Items[i].Embedding.Vector
			for j, v := range item.Embedding.Vector {
				if v != want[j] {
					return fmt.Errorf("%s differs from sequential at item %d feature %d", mode, i, j)
				}
			}
		}
	}
	fmt.Println(strings.Repeat("=", 70))
	fmt.Println("All execution modes produced identical embeddings.")
	return nil
}

func relDiff(a, b float64) float64 {
	if a == b {
		return 0
	}
	return math.Abs(a-b) / math.Max(math.Abs(a), math.Abs(b))
}

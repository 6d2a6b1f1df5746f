package cli

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"sgt/config"
	"sgt/internal/adapter/alphabet"
	"sgt/internal/adapter/corpus"
	"sgt/internal/adapter/executor"
	"sgt/internal/adapter/kernel"
	"sgt/internal/port"
	"sgt/internal/usecase"
)

// transformerOptions maps the loaded config onto transformer options.
func transformerOptions(cfg *config.Config, progress port.ProgressFunc) usecase.Options {
	return usecase.Options{
		Kappa:           cfg.Embedding.Kappa,
		LengthSensitive: cfg.Embedding.LengthSensitive,
		Flatten:         cfg.Embedding.Flatten,
		Statistic:       kernel.Statistic(cfg.Embedding.Statistic),
		Alphabet:        cfg.Alphabet.Symbols,
		AlphabetOrder:   alphabet.Order(cfg.Alphabet.Order),
		Mode:            executor.Mode(cfg.Execution.Mode),
		Workers:         cfg.Execution.Workers,
		Partitions:      cfg.Execution.Partitions,
		CacheSize:       cfg.Execution.CacheSize,
		Metrics:         metrics,
		Logger:          slog.Default(),
		Progress:        progress,
	}
}

func newTokenizer(cfg *config.Config) *corpus.Tokenizer {
	return corpus.NewTokenizer(cfg.Corpus.Delimiter, cfg.Corpus.Lowercase)
}

func newCorpusReader(cfg *config.Config) (*corpus.Reader, error) {
	format, err := corpus.ParseFormat(cfg.Corpus.Format)
	if err != nil {
		return nil, err
	}
	walker := corpus.NewWalker(cfg.Corpus.Includes, cfg.Corpus.Excludes)
	return corpus.NewReader(walker, newTokenizer(cfg), format), nil
}

// newProgressBar returns a ProgressFunc drawing a bar on stderr. The bar is
// created on the first call, once the total is known.
func newProgressBar(description string) port.ProgressFunc {
	var (
		bar       *progressbar.ProgressBar
		startTime time.Time
	)

	return monotonicProgress(func(done, total int) {
		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]"+description+"[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(os.Stderr)
				}),
			)
		}

		bar.Set(done)

		elapsed := time.Since(startTime)
		rate := float64(done) / elapsed.Seconds()
		if rate > 0 {
			eta := time.Duration(float64(total-done)/rate) * time.Second
			bar.Describe(fmt.Sprintf("[cyan]%s[reset] ETA: %s", description, formatDuration(eta)))
		}
	})
}

// monotonicProgress serializes calls to fn and drops updates that arrive
// after a higher count was already shown. Workers finish in any order, so
// counts can reach the lock out of sequence. A new total starts over.
func monotonicProgress(fn port.ProgressFunc) port.ProgressFunc {
	var (
		mu        sync.Mutex
		shown     int
		lastTotal = -1
	)
	return func(done, total int) {
		mu.Lock()
		defer mu.Unlock()

		if total != lastTotal {
			lastTotal = total
			shown = 0
		}
		if done <= shown {
			return
		}
		shown = done
		fn(done, total)
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}

package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"sgt/config"
	"sgt/internal/adapter/store"
	"sgt/internal/usecase"
)

var embedNoProgress bool

var embedCmd = &cobra.Command{
	Use:   "embed [path]",
	Short: "Fit a corpus and store its embeddings",
	Long: `Read every corpus file under path, fix the alphabet (configured or
inferred from the whole corpus), embed all sequences and store the model and
vectors in .sgt/embeddings.db under the root directory. Any previously stored
model and embeddings are replaced.

Examples:
  sgt embed .                        # Corpus files under the current directory
  sgt embed sessions.csv --metrics   # A single CSV file, printing metrics`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEmbed,
}

func init() {
	rootCmd.AddCommand(embedCmd)
	embedCmd.Flags().BoolVar(&embedNoProgress, "no-progress", false, "disable the progress bar")
}

func runEmbed(cmd *cobra.Command, args []string) error {
	return runCorpus(cmd, args, false, embedNoProgress)
}

// runCorpus backs both embed and transform.
func runCorpus(cmd *cobra.Command, args []string, transform, noProgress bool) error {
	path := GetRootDir()
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}

	cfg := GetConfig()
	root := GetRootDir()

	if err := config.EnsureSGTDir(root); err != nil {
		return fmt.Errorf("failed to create .sgt directory: %w", err)
	}
	dbPath := config.StoreDBPath(root)
	st, err := store.NewBoltStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open embedding store: %w", err)
	}
	defer st.Close()

	reader, err := newCorpusReader(cfg)
	if err != nil {
		return err
	}

	label := "Embedding"
	if transform {
		label = "Transforming"
	}
	var progress func(done, total int)
	if !noProgress {
		progress = newProgressBar(label)
	}
	opts := transformerOptions(cfg, progress)

	uc := usecase.NewEmbedUseCase(st, reader, nil)
	fmt.Fprintf(os.Stderr, "Reading %s...\n", path)

	var result *usecase.EmbedResult
	if transform {
		result, err = uc.Transform(cmd.Context(), path, opts)
	} else {
		result, err = uc.Fit(cmd.Context(), path, opts)
	}
	if err != nil {
		return fmt.Errorf("%s failed: %w", label, err)
	}

	if result.Rebuilt {
		fmt.Printf("Replaced previous embeddings: %s\n", result.Reason)
	}
	fmt.Printf("\n%s complete:\n", label)
	fmt.Printf("  Sequences:      %d\n", result.Sequences)
	fmt.Printf("  Embedded:       %d\n", result.Embedded)
	fmt.Printf("  Failed:         %d\n", len(result.Failures))
	fmt.Printf("  Alphabet size:  %d\n", result.AlphabetSize)
	fmt.Printf("  Mode:           %s\n", result.Mode)
	fmt.Printf("  Elapsed:        %s\n", formatDuration(result.Elapsed))

	if len(result.Failures) > 0 {
		fmt.Printf("\nFailures:\n")
		for i, f := range result.Failures {
			if i == 20 {
				fmt.Printf("  ... and %d more\n", len(result.Failures)-i)
				break
			}
			fmt.Printf("  - %s\n", f.Error())
		}
	}

	fmt.Printf("\nEmbeddings stored at: %s\n", dbPath)
	return nil
}

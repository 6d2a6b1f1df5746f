package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sgt/config"
	"sgt/internal/adapter/retriever"
	"sgt/internal/adapter/store"
	"sgt/internal/domain"
	"sgt/internal/usecase"
)

var (
	similarQuery  string
	similarID     string
	similarTopK   int
	similarJSON   bool
	similarMMR    bool
	similarLambda float64
	similarDedup  float64
)

var similarCmd = &cobra.Command{
	Use:   "similar",
	Short: "Find stored sequences similar to a query",
	Long: `Embed a query sequence with the stored model and rank the stored
embeddings by cosine similarity. Use --id to search from a stored sequence.

Examples:
  sgt similar -q "login pw pw pw ok"
  sgt similar --id sessions.txt:12 -k 10 --json
  sgt similar -q "login pw ok" --mmr`,
	RunE: runSimilar,
}

func init() {
	rootCmd.AddCommand(similarCmd)
	similarCmd.Flags().StringVarP(&similarQuery, "query", "q", "", "query sequence")
	similarCmd.Flags().StringVar(&similarID, "id", "", "id of a stored sequence")
	similarCmd.Flags().IntVarP(&similarTopK, "top-k", "k", 5, "number of results")
	similarCmd.Flags().BoolVar(&similarJSON, "json", false, "output as JSON")
	similarCmd.Flags().BoolVar(&similarMMR, "mmr", false, "diversify results with MMR reranking")
	similarCmd.Flags().Float64Var(&similarLambda, "mmr-lambda", 0.7, "MMR trade-off between relevance and diversity")
	similarCmd.Flags().Float64Var(&similarDedup, "mmr-dedup", 0.95, "drop results more similar than this to a selected one")
	similarCmd.MarkFlagsMutuallyExclusive("query", "id")
	similarCmd.MarkFlagsOneRequired("query", "id")
}

func runSimilar(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	dbPath := config.StoreDBPath(GetRootDir())
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return fmt.Errorf("no embeddings found. Run 'sgt embed' first")
	}

	st, err := store.NewBoltStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open embedding store: %w", err)
	}
	defer st.Close()

	model, err := st.LoadModel()
	if errors.Is(err, domain.ErrNotFitted) {
		return fmt.Errorf("no model stored. Run 'sgt embed' first")
	} else if err != nil {
		return err
	}

	tr, err := usecase.NewTransformerFromModel(model, transformerOptions(cfg, nil))
	if err != nil {
		return err
	}
	vectors, err := store.NewBoltVectorStore(st.DB(), len(model.Alphabet)*len(model.Alphabet))
	if err != nil {
		return fmt.Errorf("failed to open vector store: %w", err)
	}

	var mmr *retriever.MMRReranker
	if similarMMR {
		mmr = retriever.NewMMRReranker(similarLambda, similarDedup)
	}
	uc := usecase.NewSimilarUseCase(vectors, tr, mmr)

	var hits []domain.ScoredEmbedding
	label := similarID
	if similarID != "" {
		hits, err = uc.SearchByID(similarID, similarTopK)
	} else {
		symbols := newTokenizer(cfg).Tokenize(similarQuery)
		label = strings.Join(symbols, " ")
		hits, err = uc.Search(cmd.Context(), symbols, similarTopK)
	}
	if err != nil {
		return err
	}

	if similarJSON {
		output, _ := json.MarshalIndent(hits, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(hits) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	fmt.Printf("Found %d results for: %s\n\n", len(hits), label)
	for i, h := range hits {
		fmt.Printf("%2d. %-40s score: %.4f  length: %d\n", i+1, h.SequenceID, h.Score, h.Length)
	}
	return nil
}

package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"sgt/config"
	"sgt/internal/adapter/store"
	"sgt/internal/domain"
)

var modelYAML bool

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Show the stored model and corpus statistics",
	Long: `Print the alphabet and embedding parameters fixed by the last 'sgt embed'.
With --yaml the model is written in the config file's alphabet/embedding
layout so it can be pasted into sgt.yaml to pin the alphabet.`,
	RunE: runModel,
}

func init() {
	rootCmd.AddCommand(modelCmd)
	modelCmd.Flags().BoolVar(&modelYAML, "yaml", false, "output as sgt.yaml fragment")
}

func runModel(cmd *cobra.Command, args []string) error {
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

	if modelYAML {
		frag := config.DefaultConfig()
		frag.Embedding.Kappa = model.Kappa
		frag.Embedding.LengthSensitive = model.LengthSensitive
		frag.Embedding.Flatten = model.Flatten
		frag.Embedding.Statistic = model.Statistic
		frag.Alphabet.Symbols = model.Alphabet
		out, err := yaml.Marshal(struct {
			Embedding config.EmbeddingConfig `yaml:"embedding"`
			Alphabet  config.AlphabetConfig  `yaml:"alphabet"`
		}{frag.Embedding, frag.Alphabet})
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	}

	stats, err := st.GetStats()
	if err != nil {
		return err
	}
	info, err := st.GetSchemaInfo()
	if err != nil {
		return err
	}

	fmt.Printf("Model:\n")
	fmt.Printf("  Kappa:            %g\n", model.Kappa)
	fmt.Printf("  Statistic:        %s\n", model.Statistic)
	fmt.Printf("  Length sensitive: %t\n", model.LengthSensitive)
	fmt.Printf("  Flatten:          %t\n", model.Flatten)
	fmt.Printf("  Alphabet (%d):    %s\n", len(model.Alphabet), strings.Join(model.Alphabet, " "))
	fmt.Printf("\nStore:\n")
	fmt.Printf("  Embeddings:       %d\n", stats.Embeddings)
	fmt.Printf("  Avg length:       %.1f\n", stats.AvgLength)
	fmt.Printf("  Schema version:   %d\n", info.Version)
	fmt.Printf("  Model hash:       %s\n", info.ModelHash)
	return nil
}

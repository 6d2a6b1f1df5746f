package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"sgt/internal/adapter/alphabet"
	"sgt/internal/adapter/assembler"
	"sgt/internal/adapter/kernel"
	"sgt/internal/domain"
	"sgt/internal/usecase"
)

var (
	fitJSON    bool
	fitMatrix  bool
	fitNonZero bool
)

var fitCmd = &cobra.Command{
	Use:   "fit <symbol>...",
	Short: "Embed a single sequence",
	Long: `Embed one sequence given on the command line. Arguments are joined with
spaces and split with the configured corpus delimiter. The alphabet is the
configured one, or the sorted symbols of the sequence.

Examples:
  sgt fit B B A C A C A A B A
  sgt fit "login,pw,pw,ok" --matrix
  SGT_KAPPA=5 sgt fit B B A C --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFit,
}

func init() {
	rootCmd.AddCommand(fitCmd)
	fitCmd.Flags().BoolVar(&fitJSON, "json", false, "output as JSON")
	fitCmd.Flags().BoolVar(&fitMatrix, "matrix", false, "print the m x m matrix instead of feature rows")
	fitCmd.Flags().BoolVar(&fitNonZero, "nonzero", false, "only print non-zero features")
}

type fitOutput struct {
	Alphabet []string           `json:"alphabet"`
	Length   int                `json:"length"`
	Features map[string]float64 `json:"features"`
}

func runFit(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	symbols := newTokenizer(cfg).Tokenize(strings.Join(args, " "))
	emb, err := usecase.Fit(symbols, usecase.FitOptions{
		Kappa:           cfg.Embedding.Kappa,
		LengthSensitive: cfg.Embedding.LengthSensitive,
		Flatten:         true,
		Statistic:       kernel.Statistic(cfg.Embedding.Statistic),
		Alphabet:        cfg.Alphabet.Symbols,
	})
	if err != nil {
		return err
	}

	idx, err := alphabet.New(emb.Alphabet)
	if err != nil {
		return err
	}
	names := assembler.FeatureNames(idx)

	if fitJSON {
		out := fitOutput{Alphabet: emb.Alphabet, Length: emb.Length, Features: make(map[string]float64, len(names))}
		for i, name := range names {
			if fitNonZero && emb.Vector[i] == 0 {
				continue
			}
			out.Features[name] = emb.Vector[i]
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if fitMatrix {
		return printMatrix(emb)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for i, name := range names {
		if fitNonZero && emb.Vector[i] == 0 {
			continue
		}
		fmt.Fprintf(w, "%s\t%.6f\n", name, emb.Vector[i])
	}
	return w.Flush()
}

func printMatrix(emb *domain.Embedding) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(w, "\t")
	for _, s := range emb.Alphabet {
		fmt.Fprintf(w, "%s\t", s)
	}
	fmt.Fprintln(w)
	for u, from := range emb.Alphabet {
		fmt.Fprintf(w, "%s\t", from)
		for v := range emb.Alphabet {
			fmt.Fprintf(w, "%.4f\t", emb.At(u, v))
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

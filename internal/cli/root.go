package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"sgt/config"
	"sgt/internal/observe"
)

var (
	cfgFile     string
	cfg         *config.Config
	rootDir     string
	showMetrics bool
	provider    *observe.Provider
	metrics     *observe.Metrics
)

var rootCmd = &cobra.Command{
	Use:   "sgt",
	Short: "Sequence Graph Transform - fixed-length embeddings for symbol sequences",
	Long: `sgt turns variable-length sequences of discrete symbols into fixed-length
vectors that capture short- and long-range ordering between every pair of
symbols. Corpora are read from text or CSV files, the fitted alphabet and the
embeddings are stored in .sgt/embeddings.db.

Example usage:
  sgt fit B B A C A C A A B A       # Embed one sequence
  sgt embed ./sessions              # Fit a corpus and store its embeddings
  sgt transform ./new-sessions      # Embed more sequences with the stored alphabet
  sgt similar -q "login pw pw ok"   # Find the closest stored sequences`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.ApplyEnv(); err != nil {
			return fmt.Errorf("invalid environment: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		slog.SetDefault(observe.NewLogger(cfg.Logging.Level, os.Stderr))

		if showMetrics {
			provider = observe.NewProvider()
			metrics, err = observe.NewMetrics(provider.MeterProvider)
			if err != nil {
				return fmt.Errorf("failed to create metrics: %w", err)
			}
		} else {
			metrics = observe.NopMetrics()
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if provider == nil {
			return nil
		}
		ctx := context.Background()
		defer provider.Shutdown(ctx)

		fmt.Fprintln(os.Stderr, "\nMetrics:")
		return provider.WriteSnapshot(ctx, os.Stderr)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./sgt.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory holding .sgt (default is current directory)")
	rootCmd.PersistentFlags().BoolVar(&showMetrics, "metrics", false, "print collected metrics after the command")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}

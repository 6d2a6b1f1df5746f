package cli

import (
	"github.com/spf13/cobra"
)

var transformNoProgress bool

var transformCmd = &cobra.Command{
	Use:   "transform [path]",
	Short: "Embed more sequences with the stored model",
	Long: `Embed the corpus under path with the alphabet and parameters stored by a
previous 'sgt embed', and add the vectors to the store. Sequences containing
symbols outside the stored alphabet are reported and skipped.

Examples:
  sgt transform ./new-sessions`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCorpus(cmd, args, true, transformNoProgress)
	},
}

func init() {
	rootCmd.AddCommand(transformCmd)
	transformCmd.Flags().BoolVar(&transformNoProgress, "no-progress", false, "disable the progress bar")
}

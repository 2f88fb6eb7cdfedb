package cli

import (
	"github.com/spf13/cobra"

	"fx-market-risk/internal/app"
)

var (
	ingestRatesDir     string
	ingestPositionsDir string
	ingestDryRun       bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run a single ingest and recomputation cycle",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.IngestOptions{
			RatesDir:     ingestRatesDir,
			PositionsDir: ingestPositionsDir,
			DryRun:       ingestDryRun,
		}
		return getApp().Ingest(cmd.Context(), opts)
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestRatesDir, "rates-dir", "", "Override rates drop directory")
	ingestCmd.Flags().StringVar(&ingestPositionsDir, "positions-dir", "", "Override positions drop directory")
	ingestCmd.Flags().BoolVar(&ingestDryRun, "dry-run", false, "Run without writing to storage")
}

package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fx-market-risk/internal/app"
)

var (
	genDate string
	genOut  string
	genSeed int64
)

var genPositionsCmd = &cobra.Command{
	Use:   "gen-positions",
	Short: "Generate a simulated position file for one date",
	RunE: func(cmd *cobra.Command, args []string) error {
		date := time.Now().UTC()
		if genDate != "" {
			parsed, err := time.Parse("2006-01-02", genDate)
			if err != nil {
				return fmt.Errorf("invalid --date value: %w", err)
			}
			date = parsed
		}

		opts := app.GenPositionsOptions{
			Date: date,
			Out:  genOut,
			Seed: genSeed,
		}
		return getApp().GeneratePositions(cmd.Context(), opts)
	},
}

func init() {
	genPositionsCmd.Flags().StringVar(&genDate, "date", "", "Position date (YYYY-MM-DD, defaults to today)")
	genPositionsCmd.Flags().StringVar(&genOut, "out", "", "Output file (defaults to the positions drop directory)")
	genPositionsCmd.Flags().Int64Var(&genSeed, "seed", time.Now().UnixNano(), "Random seed")
}

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"fx-market-risk/internal/positions"
)

// GeneratePositions writes a simulated JSON-lines position file for one
// date into the positions drop directory, where the next ingest cycle picks
// it up like any producer delivery.
func (a *App) GeneratePositions(ctx context.Context, opts GenPositionsOptions) error {
	if len(a.Config.Pairs) == 0 {
		return errors.New("no currency pairs configured")
	}

	gen := positions.NewGenerator(a.Config.Pairs, a.Config.Positions, opts.Seed)
	records := gen.Generate(opts.Date)

	out := opts.Out
	if out == "" {
		name := fmt.Sprintf("%s_positions.json", opts.Date.Format("2006-01-02"))
		out = filepath.Join(a.Config.Feed.PositionsDir, name)
	}
	if err := ensureDir(out); err != nil {
		return err
	}

	file, err := os.Create(out)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	for _, rec := range records {
		line := map[string]any{
			"date":          rec.Date.Format("2006-01-02"),
			"currency_pair": rec.Pair,
			"desk":          rec.Desk,
			"direction":     string(rec.Direction),
			"position_size": rec.PositionSize.InexactFloat64(),
		}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}

	a.Logger.Info().Str("file", out).Int("positions", len(records)).Msg("positions generated")
	return nil
}

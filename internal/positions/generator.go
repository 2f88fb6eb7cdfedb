// Package positions generates simulated daily trading positions for the
// configured currency pairs. The generator feeds development and dry-run
// environments where no real position producer is attached.
package positions

import (
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"fx-market-risk/internal/config"
	"fx-market-risk/internal/model"
)

// Generator produces one net position per configured pair per day.
type Generator struct {
	pairs []config.PairConfig
	cfg   config.PositionsConfig
	rng   *rand.Rand
}

// NewGenerator seeds a Generator. A fixed seed makes output reproducible.
func NewGenerator(pairs []config.PairConfig, cfg config.PositionsConfig, seed int64) *Generator {
	return &Generator{pairs: pairs, cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

// Generate builds positions for a date: sizes random-walk within
// ±MaxDeviation of each pair's base size, direction follows the configured
// LONG/SHORT bias, and a small probability yields a flat (zero) position.
func (g *Generator) Generate(date time.Time) []model.PositionRecord {
	now := time.Now().UTC()
	out := make([]model.PositionRecord, 0, len(g.pairs))

	for _, pair := range g.pairs {
		deviation := (g.rng.Float64()*2 - 1) * g.cfg.MaxDeviation
		size := pair.BasePositionSize * (1 + deviation)

		direction := model.DirectionShort
		roll := g.rng.Float64()
		switch {
		case roll < g.cfg.FlatProbability:
			direction = model.DirectionFlat
			size = 0
		case roll < g.cfg.FlatProbability+g.cfg.LongProbability:
			direction = model.DirectionLong
		}

		out = append(out, model.PositionRecord{
			Date:          model.Day(date),
			Pair:          pair.Symbol,
			Desk:          g.cfg.Desk,
			Direction:     direction,
			PositionSize:  decimal.NewFromFloat(size).Round(2),
			SourceFile:    "generated",
			IngestionTime: now,
		})
	}

	return out
}

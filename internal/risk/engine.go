// Package risk computes historical-simulation Value-at-Risk per currency
// pair from lookback return distributions, current positions, and current
// rates.
package risk

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"fx-market-risk/internal/logging"
	"fx-market-risk/internal/model"
	"fx-market-risk/internal/window"
)

// RateLookup resolves the current rate row for a merge key.
type RateLookup interface {
	Get(key model.Key) (model.RateObservation, bool)
}

// PositionLookup resolves the current position row for a merge key.
type PositionLookup interface {
	Get(key model.Key) (model.PositionRecord, bool)
}

// Params tune the engine.
type Params struct {
	// PercentileLong is the downside tail for LONG positions, e.g. 0.05.
	PercentileLong float64
	// PercentileShort is the upside tail for SHORT positions, e.g. 0.95.
	PercentileShort float64
	// VolatilityWindow is the trailing observation count for rolling
	// volatility, e.g. 30.
	VolatilityWindow int
}

// Engine derives VaR records.
type Engine struct {
	params Params
	logger zerolog.Logger
}

// NewEngine constructs an Engine.
func NewEngine(params Params, logger zerolog.Logger) *Engine {
	return &Engine{params: params, logger: logging.WithComponent(logger, "var-engine")}
}

// Compute emits one VaRRecord per lookback anchor that has both a position
// row and a rate row for the same (date, pair). Missing any of the three
// inputs yields no row: absence means "no data", never "zero risk".
//
// observations must be the full return series ordered by (pair, date)
// ascending; it feeds the rolling volatility, which is independent of the
// lookback distribution.
func (e *Engine) Compute(lookbacks []window.Lookback, observations []model.ReturnObservation, rates RateLookup, positions PositionLookup) []model.VaRRecord {
	volatility := e.rollingVolatility(observations)

	out := make([]model.VaRRecord, 0, len(lookbacks))
	skipped := 0
	for _, lb := range lookbacks {
		key := model.KeyOf(lb.Date, lb.Pair)

		position, ok := positions.Get(key)
		if !ok {
			skipped++
			continue
		}
		rate, ok := rates.Get(key)
		if !ok {
			skipped++
			continue
		}

		rec := model.VaRRecord{
			Date:          lb.Date,
			Pair:          lb.Pair,
			Desk:          position.Desk,
			PositionSize:  position.PositionSize,
			Direction:     position.Direction,
			Volatility30D: volatility[key],
			CurrentRate:   rate.Close,
		}

		if p05, ok := window.Percentile(lb.Values, e.params.PercentileLong); ok {
			p95, _ := window.Percentile(lb.Values, e.params.PercentileShort)
			rec.P05Return = &p05
			rec.P95Return = &p95

			base := baseVaR(position, p05, p95)
			usd := normalizeUSD(lb.Pair, base, rate.Close)
			rec.VaR95Base = &base
			rec.VaR95USD = &usd
		}

		out = append(out, rec)
	}

	e.logger.Debug().Int("records", len(out)).Int("join_gaps", skipped).Msg("var computed")
	return out
}

// baseVaR applies tail selection by position direction: LONG positions
// realise loss risk from the downside percentile, SHORT positions from the
// absolute upside percentile. Other directions carry no VaR.
func baseVaR(position model.PositionRecord, p05, p95 decimal.Decimal) decimal.Decimal {
	var tail decimal.Decimal
	switch position.Direction {
	case model.DirectionLong:
		tail = p05
	case model.DirectionShort:
		tail = p95
	default:
		return decimal.Zero
	}
	return position.PositionSize.Mul(tail.Abs())
}

// normalizeUSD converts base-currency VaR to USD. A pair whose base
// currency is already USD passes through; otherwise the current close rate
// (quote per base, as the input data encodes it) converts the figure.
func normalizeUSD(pair string, base decimal.Decimal, closeRate decimal.Decimal) decimal.Decimal {
	if model.BaseCurrency(pair) == "USD" {
		return base
	}
	return base.Mul(closeRate)
}

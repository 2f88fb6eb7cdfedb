package risk

import (
	"math"

	"github.com/shopspring/decimal"

	"fx-market-risk/internal/model"
)

// rollingVolatility computes, per (date, pair), the sample standard
// deviation of the daily return over the trailing VolatilityWindow
// observations inclusive of the current row, ordered by date and
// partitioned by pair. Rows with nil returns stay in the window but
// contribute no value; keys with fewer than two contributing values map to
// nil. Input must be ordered by (pair, date) ascending.
func (e *Engine) rollingVolatility(observations []model.ReturnObservation) map[model.Key]*decimal.Decimal {
	out := make(map[model.Key]*decimal.Decimal, len(observations))

	var pair string
	var trailing []*decimal.Decimal
	for _, obs := range observations {
		if obs.Pair != pair {
			pair = obs.Pair
			trailing = trailing[:0]
		}

		trailing = append(trailing, obs.DailyReturn)
		if len(trailing) > e.params.VolatilityWindow {
			trailing = append(trailing[:0], trailing[len(trailing)-e.params.VolatilityWindow:]...)
		}

		out[model.KeyOf(obs.Date, obs.Pair)] = sampleStdDev(trailing)
	}

	return out
}

func sampleStdDev(values []*decimal.Decimal) *decimal.Decimal {
	present := make([]float64, 0, len(values))
	for _, v := range values {
		if v != nil {
			present = append(present, v.InexactFloat64())
		}
	}
	if len(present) < 2 {
		return nil
	}

	var sum float64
	for _, v := range present {
		sum += v
	}
	mean := sum / float64(len(present))

	var sq float64
	for _, v := range present {
		d := v - mean
		sq += d * d
	}
	sd := math.Sqrt(sq / float64(len(present)-1))

	result := decimal.NewFromFloat(sd)
	return &result
}
